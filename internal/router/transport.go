package router

import "context"

// Button is one interactive control attached to an outbound message.
type Button struct {
	Label   string `json:"label"`
	Payload string `json:"payload"`
}

// Transport is the outbound side of the messaging gateway. Deliveries are
// fire-and-forget from the router's perspective: a returned error triggers
// degradation (photo to text, then a log line), never a retry loop or a
// blocked flow.
type Transport interface {
	SendMessage(ctx context.Context, userID int64, text string) error
	SendPhoto(ctx context.Context, userID int64, photo, caption string) error
	SendButtons(ctx context.Context, userID int64, text string, buttons [][]Button) error
	SendPhotoButtons(ctx context.Context, userID int64, photo, caption string, buttons [][]Button) error
	EditMessage(ctx context.Context, userID, messageID int64, text string, buttons [][]Button) error
	ClearButtons(ctx context.Context, userID, messageID int64) error
}
