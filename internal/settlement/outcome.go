package settlement

import (
	"errors"
	"fmt"

	"github.com/go-giftgate/giftgate/internal/custodian"
)

// Status summarizes how far a settlement flow got.
type Status string

const (
	// StatusCompleted: every step of the flow succeeded.
	StatusCompleted Status = "completed"
	// StatusPartial: earlier steps took effect but a later one failed.
	// Requires manual reconciliation; nothing is rolled back.
	StatusPartial Status = "partial"
	// StatusRejected: a precondition failed and no remote transfer was
	// attempted.
	StatusRejected Status = "rejected"
	// StatusFailed: a remote step failed before anything took effect.
	StatusFailed Status = "failed"
)

// Reason is the structured explanation attached to non-completed outcomes.
type Reason string

const (
	ReasonNone                      Reason = ""
	ReasonConnectionMissing         Reason = "connection_missing"
	ReasonInsufficientOperatorFunds Reason = "insufficient_operator_funds"
	ReasonNothingToTransfer         Reason = "nothing_to_transfer"
	ReasonNothingToConvert          Reason = "nothing_to_convert"
	ReasonDuplicateSelection        Reason = "duplicate_selection"
	ReasonAccessDenied              Reason = "access_denied"
	ReasonGrantInvalid              Reason = "grant_invalid"
	ReasonInsufficientFunds         Reason = "insufficient_funds"
	ReasonItemNotFound              Reason = "item_not_found"
	ReasonRemoteError               Reason = "remote_error"
	ReasonStorageFailure            Reason = "storage_failure"
)

// Outcome is the result of one settlement flow invocation.
type Outcome struct {
	Status Status
	Reason Reason
	Err    error // classified error for failed/partial outcomes

	// Mediated item transfer accounting
	ItemMoved bool
	FeePaid   bool

	// Points moved (sweep) or fee amount (mediated transfer)
	Amount int64

	// Batch conversion accounting
	Converted int
	Failed    int
}

// Detail renders the accounting line written to the settlement log.
func (o Outcome) Detail() string {
	switch o.Status {
	case StatusPartial:
		if o.ItemMoved && !o.FeePaid {
			return fmt.Sprintf("item moved, fee of %d points unpaid: %v", o.Amount, o.Err)
		}
		return fmt.Sprintf("converted %d, failed %d", o.Converted, o.Failed)
	case StatusCompleted:
		if o.Converted > 0 {
			return fmt.Sprintf("converted %d", o.Converted)
		}
		if o.Amount > 0 {
			return fmt.Sprintf("moved %d points", o.Amount)
		}
		return ""
	default:
		if o.Err != nil {
			return o.Err.Error()
		}
		return ""
	}
}

// reasonForErr maps a classified custodian error onto a Reason label.
func reasonForErr(err error) Reason {
	switch {
	case errors.Is(err, custodian.ErrAccessDenied):
		return ReasonAccessDenied
	case errors.Is(err, custodian.ErrGrantInvalid):
		return ReasonGrantInvalid
	case errors.Is(err, custodian.ErrInsufficientFunds):
		return ReasonInsufficientFunds
	case errors.Is(err, custodian.ErrItemNotFound):
		return ReasonItemNotFound
	default:
		var remote *custodian.RemoteError
		if errors.As(err, &remote) {
			return ReasonRemoteError
		}
		return ReasonStorageFailure
	}
}
