package store

import "errors"

var (
	// ErrRecordNotFound wraps GORM's not found error for consistency
	ErrRecordNotFound = errors.New("record not found")

	// ErrChoiceExists is returned by TryRecordChoice when a reward choice
	// already exists for the user (unique-key violation on insert). The
	// stored choice is returned alongside it.
	ErrChoiceExists = errors.New("reward choice already recorded")
)
