package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/go-giftgate/giftgate/internal/metrics"
	"github.com/go-giftgate/giftgate/internal/router"
)

// update is one pushed gateway event. Exactly one field is set.
type update struct {
	GrantEstablished *router.GrantEstablished `json:"grant_established,omitempty"`
	Message          *router.Command          `json:"message,omitempty"`
	Button           *router.ButtonPressed    `json:"button,omitempty"`
}

// WebhookHandler accepts pushed updates and dispatches them to the event
// router. Dispatch runs in the background under its own deadline so the
// gateway gets an immediate acknowledgment and never retries a slow flow.
type WebhookHandler struct {
	router      *router.Router
	flowTimeout time.Duration
	metrics     metrics.Recorder
}

func NewWebhookHandler(r *router.Router, flowTimeout time.Duration, rec metrics.Recorder) *WebhookHandler {
	return &WebhookHandler{
		router:      r,
		flowTimeout: flowTimeout,
		metrics:     rec,
	}
}

// HandleUpdate godoc: POST /updates
func (h *WebhookHandler) HandleUpdate(c *gin.Context) {
	var up update
	if err := c.ShouldBindJSON(&up); err != nil {
		h.metrics.RecordEvent("malformed")
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_update",
			"error_description": err.Error(),
		})
		return
	}

	switch {
	case up.GrantEstablished != nil:
		h.dispatch(func(ctx context.Context) {
			h.router.HandleGrant(ctx, *up.GrantEstablished)
		})
	case up.Message != nil:
		h.dispatch(func(ctx context.Context) {
			h.router.HandleCommand(ctx, *up.Message)
		})
	case up.Button != nil:
		h.dispatch(func(ctx context.Context) {
			h.router.HandleButton(ctx, *up.Button)
		})
	default:
		// Unknown update kinds are acknowledged and dropped so the
		// gateway does not redeliver them forever.
		h.metrics.RecordEvent("unknown")
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// dispatch runs one flow detached from the request context: the HTTP
// response must not wait on remote settlement calls.
func (h *WebhookHandler) dispatch(fn func(ctx context.Context)) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.flowTimeout)
		defer cancel()
		fn(ctx)
	}()
}
