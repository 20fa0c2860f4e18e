package custodian

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAccessDenied indicates the asset permission tab is not enabled for
	// the grant. The user must enable it; the grant itself is still valid.
	ErrAccessDenied = errors.New("custodian: asset access not enabled for grant")

	// ErrGrantInvalid indicates the remote service no longer recognizes the
	// grant. Callers must prune the stored connection before retrying.
	ErrGrantInvalid = errors.New("custodian: grant no longer recognized")

	// ErrInsufficientFunds indicates the point balance cannot cover the
	// requested transfer.
	ErrInsufficientFunds = errors.New("custodian: insufficient point balance")

	// ErrItemNotFound indicates the referenced item does not exist under
	// the grant (already moved, converted, or never held).
	ErrItemNotFound = errors.New("custodian: item not found")
)

// RemoteError carries an unrecognized custodial failure, including
// transport-level errors and timeouts. A timeout never implies the call
// did or did not take effect.
type RemoteError struct {
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("custodian: remote error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("custodian: remote error: %s", e.Message)
}

// classify maps a custodial error payload onto the local taxonomy.
// This is the only place that inspects remote error text; every other
// component works with the sentinel errors above.
func classify(code int, description string) error {
	switch {
	case strings.Contains(description, "ACCESS_FORBIDDEN"):
		return ErrAccessDenied
	case strings.Contains(description, "GRANT_INVALID"),
		strings.Contains(description, "CONNECTION_INVALID"):
		return ErrGrantInvalid
	case strings.Contains(description, "INSUFFICIENT_FUNDS"):
		return ErrInsufficientFunds
	case strings.Contains(description, "ITEM_NOT_FOUND"),
		strings.Contains(description, "GIFT_NOT_FOUND"):
		return ErrItemNotFound
	default:
		return &RemoteError{Code: code, Message: description}
	}
}
