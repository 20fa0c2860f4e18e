package router

import (
	"context"
	"log"

	"github.com/go-giftgate/giftgate/internal/metrics"
)

// notifier delivers user-facing messages best-effort: rich delivery first,
// plain text on failure, a log line when both fail. Flow logic never
// depends on delivery succeeding.
type notifier struct {
	transport Transport
	metrics   metrics.Recorder
}

func (n *notifier) text(ctx context.Context, userID int64, text string) {
	if err := n.transport.SendMessage(ctx, userID, text); err != nil {
		n.metrics.RecordNotifyFallback("dropped")
		log.Printf("send message to %d: %v", userID, err)
	}
}

func (n *notifier) photoOrText(ctx context.Context, userID int64, photo, caption string) {
	if photo != "" {
		if err := n.transport.SendPhoto(ctx, userID, photo, caption); err == nil {
			return
		}
		n.metrics.RecordNotifyFallback("photo_to_text")
	}
	n.text(ctx, userID, caption)
}

func (n *notifier) buttons(ctx context.Context, userID int64, text string, buttons [][]Button) {
	if err := n.transport.SendButtons(ctx, userID, text, buttons); err != nil {
		n.metrics.RecordNotifyFallback("dropped")
		log.Printf("send buttons to %d: %v", userID, err)
	}
}

func (n *notifier) photoButtonsOrText(ctx context.Context, userID int64, photo, caption string, buttons [][]Button) {
	if photo != "" {
		if err := n.transport.SendPhotoButtons(ctx, userID, photo, caption, buttons); err == nil {
			return
		}
		n.metrics.RecordNotifyFallback("photo_to_text")
	}
	n.buttons(ctx, userID, caption, buttons)
}

func (n *notifier) edit(ctx context.Context, userID, messageID int64, text string, buttons [][]Button) {
	if err := n.transport.EditMessage(ctx, userID, messageID, text, buttons); err != nil {
		n.metrics.RecordNotifyFallback("dropped")
		log.Printf("edit message %d for %d: %v", messageID, userID, err)
	}
}

func (n *notifier) clearButtons(ctx context.Context, userID, messageID int64) {
	if err := n.transport.ClearButtons(ctx, userID, messageID); err != nil {
		log.Printf("clear buttons on message %d for %d: %v", messageID, userID, err)
	}
}
