package models

import "time"

// RewardKind is the closed set of connection rewards a user may choose from.
type RewardKind string

const (
	RewardPoints      RewardKind = "points"
	RewardCollectible RewardKind = "collectible"
)

// Valid reports whether k is a known reward kind.
func (k RewardKind) Valid() bool {
	return k == RewardPoints || k == RewardCollectible
}

// RewardChoice stores a user's one-time reward selection.
// Rows are immutable: the primary key on UserID is what enforces the
// at-most-one-choice rule, never a read-then-write check.
type RewardChoice struct {
	UserID    int64      `gorm:"primaryKey"                json:"user_id"`
	Kind      RewardKind `gorm:"type:varchar(20);not null" json:"kind"`
	DecidedAt time.Time  `gorm:"not null"                  json:"decided_at"`
}

// TableName specifies the table name for GORM
func (RewardChoice) TableName() string {
	return "reward_choices"
}
