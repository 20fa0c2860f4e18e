package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	retry "github.com/appleboy/go-httpretry"

	"github.com/go-giftgate/giftgate/internal/router"
)

// Transport delivers outbound messages through the messaging gateway. It
// speaks the same method-call envelope as the custodial side but only needs
// sent-or-not: delivery failures are degraded by the caller, never
// classified.
type Transport struct {
	baseURL     string
	retryClient *retry.Client
	timeout     time.Duration
}

func NewTransport(baseURL string, retryClient *retry.Client, timeout time.Duration) *Transport {
	return &Transport{
		baseURL:     baseURL,
		retryClient: retryClient,
		timeout:     timeout,
	}
}

var _ router.Transport = (*Transport)(nil)

type sendResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

func (t *Transport) call(ctx context.Context, method string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	resp, err := t.retryClient.Post(
		ctx,
		t.baseURL+"/"+method,
		retry.WithBody("application/json", bytes.NewReader(body)),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	var env sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s: invalid response (status %d): %w", method, resp.StatusCode, err)
	}
	if !env.OK {
		return fmt.Errorf("%s: gateway error %d: %s", method, env.ErrorCode, env.Description)
	}
	return nil
}

func (t *Transport) SendMessage(ctx context.Context, userID int64, text string) error {
	return t.call(ctx, "sendMessage", struct {
		UserID int64  `json:"user_id"`
		Text   string `json:"text"`
	}{userID, text})
}

func (t *Transport) SendPhoto(ctx context.Context, userID int64, photo, caption string) error {
	return t.call(ctx, "sendPhoto", struct {
		UserID  int64  `json:"user_id"`
		Photo   string `json:"photo"`
		Caption string `json:"caption,omitempty"`
	}{userID, photo, caption})
}

func (t *Transport) SendButtons(ctx context.Context, userID int64, text string, buttons [][]router.Button) error {
	return t.call(ctx, "sendMessage", struct {
		UserID  int64             `json:"user_id"`
		Text    string            `json:"text"`
		Buttons [][]router.Button `json:"buttons"`
	}{userID, text, buttons})
}

func (t *Transport) SendPhotoButtons(ctx context.Context, userID int64, photo, caption string, buttons [][]router.Button) error {
	return t.call(ctx, "sendPhoto", struct {
		UserID  int64             `json:"user_id"`
		Photo   string            `json:"photo"`
		Caption string            `json:"caption,omitempty"`
		Buttons [][]router.Button `json:"buttons"`
	}{userID, photo, caption, buttons})
}

func (t *Transport) EditMessage(ctx context.Context, userID, messageID int64, text string, buttons [][]router.Button) error {
	return t.call(ctx, "editMessage", struct {
		UserID    int64             `json:"user_id"`
		MessageID int64             `json:"message_id"`
		Text      string            `json:"text"`
		Buttons   [][]router.Button `json:"buttons,omitempty"`
	}{userID, messageID, text, buttons})
}

func (t *Transport) ClearButtons(ctx context.Context, userID, messageID int64) error {
	return t.call(ctx, "clearButtons", struct {
		UserID    int64 `json:"user_id"`
		MessageID int64 `json:"message_id"`
	}{userID, messageID})
}
