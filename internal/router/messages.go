package router

import (
	"fmt"

	"github.com/go-giftgate/giftgate/internal/models"
	"github.com/go-giftgate/giftgate/internal/settlement"
)

const (
	msgNoAccess = "No access."

	msgWelcome = "Welcome! Connect this assistant to your account to claim " +
		"your connection reward: a points bonus or a unique collectible — " +
		"your choice."
	msgInstructionStep1 = "Step 1: open your account settings and go to the assistants section."
	msgInstructionStep2 = "Step 2: add this assistant and enable the assets tab so rewards can be delivered."

	msgSelectionPrompt = "Congratulations, you're connected! Choose your connection reward:\n\n" +
		"⭐ Points bonus — credited within 60 minutes\n" +
		"🎨 Unique collectible — delivered within 2-3 hours"

	msgPointsPromised      = "Your points bonus will be credited within 60 minutes!"
	msgCollectiblePromised = "Your unique collectible will be delivered within 2-3 hours!"
	msgThanks              = "Your reward is on its way. Thank you for your trust!"

	msgDuplicateChoice = "You have already chosen your reward. A second choice is not possible."

	msgAccessDenied = "The assets tab is not enabled. Please enable it in your " +
		"account's assistant settings, otherwise your reward cannot be delivered."
	msgGrantInvalid = "Your connection is no longer active. Please add the " +
		"assistant to your account again."

	msgPingOK = "Service is up."
)

// describeError renders a classified failure for the initiating identity.
// Remediation differs per kind, so each gets its own wording.
func describeError(reason settlement.Reason, err error) string {
	switch reason {
	case settlement.ReasonAccessDenied:
		return msgAccessDenied
	case settlement.ReasonGrantInvalid:
		return msgGrantInvalid
	case settlement.ReasonInsufficientFunds:
		return "Insufficient point balance for this operation."
	case settlement.ReasonItemNotFound:
		return "Item not found — it may already have been moved or converted."
	case settlement.ReasonConnectionMissing:
		return "No active connection found for this user."
	case settlement.ReasonStorageFailure:
		return "Internal storage error; the operation was aborted."
	default:
		if err != nil {
			return fmt.Sprintf("Unexpected error: %v", err)
		}
		return "Unexpected error."
	}
}

// describeOutcome renders the settlement accounting shown to the operator.
func describeOutcome(flow models.Flow, out settlement.Outcome) string {
	switch out.Status {
	case settlement.StatusCompleted:
		switch flow {
		case models.FlowItemTransfer:
			return fmt.Sprintf("✅ Item transferred; %d points paid as compensation.", out.Amount)
		case models.FlowPointSweep:
			return fmt.Sprintf("✅ Swept %d points.", out.Amount)
		case models.FlowConversion:
			return fmt.Sprintf("✅ Converted %d holdings, no failures.", out.Converted)
		}
		return "✅ Completed."

	case settlement.StatusPartial:
		if flow == models.FlowItemTransfer {
			return fmt.Sprintf(
				"⚠️ Partial: the item was transferred but the %d-point fee was NOT paid (%s). Manual reconciliation required.",
				out.Amount, describeError(out.Reason, out.Err),
			)
		}
		return fmt.Sprintf("⚠️ Partial: converted %d, failed %d.", out.Converted, out.Failed)

	case settlement.StatusRejected:
		switch out.Reason {
		case settlement.ReasonInsufficientOperatorFunds:
			return fmt.Sprintf("❌ Rejected: operator balance cannot cover the %d-point fee. No transfer was attempted.", out.Amount)
		case settlement.ReasonNothingToTransfer:
			return "❌ Rejected: the user has no points to transfer."
		case settlement.ReasonNothingToConvert:
			return "❌ Rejected: the user has no holdings."
		case settlement.ReasonConnectionMissing:
			return "❌ Rejected: connection not found."
		}
		return "❌ Rejected."

	default:
		return "❌ Failed: " + describeError(out.Reason, out.Err)
	}
}
