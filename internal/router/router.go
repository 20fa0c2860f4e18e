package router

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/go-giftgate/giftgate/internal/config"
	"github.com/go-giftgate/giftgate/internal/custodian"
	"github.com/go-giftgate/giftgate/internal/metrics"
	"github.com/go-giftgate/giftgate/internal/models"
	"github.com/go-giftgate/giftgate/internal/settlement"
	"github.com/go-giftgate/giftgate/internal/store"
)

// Router dispatches inbound transport events to the connection registry,
// the reward choice ledger and the settlement orchestrator. It is the only
// caller of the orchestrator. Admin surfaces are gated on the operator
// identity; everyone else gets a fixed no-access reply.
type Router struct {
	store      *store.Store
	orch       *settlement.Orchestrator
	notify     *notifier
	operatorID int64
	metrics    metrics.Recorder

	welcomeImage      string
	connectedImage    string
	thanksImage       string
	instructionImage1 string
	instructionImage2 string
}

func New(
	s *store.Store,
	orch *settlement.Orchestrator,
	transport Transport,
	cfg *config.Config,
	rec metrics.Recorder,
) *Router {
	return &Router{
		store:      s,
		orch:       orch,
		notify:     &notifier{transport: transport, metrics: rec},
		operatorID: cfg.OperatorID,
		metrics:    rec,

		welcomeImage:      cfg.WelcomeImage,
		connectedImage:    cfg.ConnectedImage,
		thanksImage:       cfg.ThanksImage,
		instructionImage1: cfg.InstructionImage1,
		instructionImage2: cfg.InstructionImage2,
	}
}

// HandleGrant registers a new (or re-established) delegated-access grant,
// probes that the assets tab is actually reachable, and prompts the user
// to pick their connection reward.
func (r *Router) HandleGrant(ctx context.Context, ev GrantEstablished) {
	r.metrics.RecordEvent("grant")
	log.Printf("grant established: user=%d", ev.UserID)

	r.notify.text(ctx, r.operatorID, fmt.Sprintf("User #%d connected the assistant. 🎆", ev.UserID))

	if err := r.store.UpsertConnection(&models.Connection{
		UserID:      ev.UserID,
		GrantHandle: ev.GrantHandle,
		DisplayName: ev.DisplayName,
		Handle:      ev.Handle,
	}); err != nil {
		log.Printf("upsert connection for user %d: %v", ev.UserID, err)
		return
	}
	r.updateConnectionGauge()

	r.probeAndPrompt(ctx, ev.UserID)
}

// probeAndPrompt verifies asset access under the stored grant and, when it
// works, sends the reward selection prompt.
func (r *Router) probeAndPrompt(ctx context.Context, userID int64) {
	err := r.orch.ProbeAccess(ctx, userID)
	switch {
	case err == nil:
		r.sendSelectionPrompt(ctx, userID)
	case errors.Is(err, custodian.ErrAccessDenied):
		r.notify.text(ctx, userID, msgAccessDenied+"\n\n"+msgInstructionStep1+"\n"+msgInstructionStep2)
	case errors.Is(err, custodian.ErrGrantInvalid):
		// The orchestrator already pruned the stale connection.
		r.updateConnectionGauge()
		r.notify.text(ctx, userID, msgGrantInvalid+"\n\n"+msgInstructionStep1+"\n"+msgInstructionStep2)
	default:
		r.notify.text(ctx, userID, fmt.Sprintf("Could not verify asset access: %v", err))
	}
}

func (r *Router) sendSelectionPrompt(ctx context.Context, userID int64) {
	buttons := [][]Button{
		{{Label: "🎁 Points bonus", Payload: "gift:points"}},
		{{Label: "🎁 Unique collectible", Payload: "gift:collectible"}},
	}
	r.notify.photoButtonsOrText(ctx, userID, r.connectedImage, msgSelectionPrompt, buttons)
}

// HandleCommand dispatches a recognized text command; unrecognized text is
// ignored.
func (r *Router) HandleCommand(ctx context.Context, ev Command) {
	r.metrics.RecordEvent("command")

	switch strings.TrimSpace(ev.Text) {
	case "/start":
		if ev.UserID == r.operatorID {
			r.adminPanel(ctx)
		} else {
			r.userStart(ctx, ev.UserID)
		}
	case "/connections":
		r.adminOnly(ctx, ev.UserID, r.listConnections)
	case "/holdings":
		r.adminOnly(ctx, ev.UserID, func(ctx context.Context) {
			r.connectionPicker(ctx, "Pick a user to browse holdings:", "holdings")
		})
	case "/balances":
		r.adminOnly(ctx, ev.UserID, func(ctx context.Context) {
			r.connectionPicker(ctx, "Pick a user to view their point balance:", "balance")
		})
	case "/convert":
		r.adminOnly(ctx, ev.UserID, func(ctx context.Context) {
			r.connectionPicker(ctx, "Pick a user for holding conversion:", "convert_select")
		})
	case "/ping":
		r.adminOnly(ctx, ev.UserID, func(ctx context.Context) {
			r.notify.text(ctx, r.operatorID, msgPingOK)
		})
	}
}

func (r *Router) adminOnly(ctx context.Context, userID int64, fn func(context.Context)) {
	if userID != r.operatorID {
		r.notify.text(ctx, userID, msgNoAccess)
		return
	}
	fn(ctx)
}

func (r *Router) userStart(ctx context.Context, userID int64) {
	_, err := r.store.GetConnection(userID)
	if errors.Is(err, store.ErrRecordNotFound) {
		r.notify.photoOrText(ctx, userID, r.welcomeImage, msgWelcome)
		r.notify.photoOrText(ctx, userID, r.instructionImage1, msgInstructionStep1)
		r.notify.photoOrText(ctx, userID, r.instructionImage2, msgInstructionStep2)
		return
	}
	if err != nil {
		log.Printf("get connection for user %d: %v", userID, err)
		return
	}

	choice, err := r.orch.LookupChoice(userID)
	if err == nil {
		if choice.Kind == models.RewardPoints {
			r.notify.photoOrText(ctx, userID, r.connectedImage, msgPointsPromised)
		} else {
			r.notify.photoOrText(ctx, userID, r.thanksImage, msgCollectiblePromised)
		}
		return
	}
	if !errors.Is(err, store.ErrRecordNotFound) {
		log.Printf("lookup choice for user %d: %v", userID, err)
		return
	}

	r.probeAndPrompt(ctx, userID)
}

func (r *Router) adminPanel(ctx context.Context) {
	count, err := r.store.CountConnections()
	if err != nil {
		log.Printf("count connections: %v", err)
	}
	r.notify.text(ctx, r.operatorID, fmt.Sprintf(
		"🛠 Admin panel\n\nActive connections: %d\n\n"+
			"/connections - list connections\n"+
			"/holdings - browse a user's holdings\n"+
			"/balances - view point balances\n"+
			"/convert - convert holdings to points\n"+
			"/ping - liveness check",
		count,
	))
}

func (r *Router) listConnections(ctx context.Context) {
	conns, err := r.store.ListConnections()
	if err != nil {
		r.notify.text(ctx, r.operatorID, fmt.Sprintf("Error listing connections: %v", err))
		return
	}
	if len(conns) == 0 {
		r.notify.text(ctx, r.operatorID, "No connected accounts.")
		return
	}

	var b strings.Builder
	b.WriteString("Connections:\n")
	for _, c := range conns {
		b.WriteString("• " + c.Label() + "\n")
	}
	r.notify.text(ctx, r.operatorID, b.String())
}

// connectionPicker sends one button per connection with payload
// "<action>:<userID>".
func (r *Router) connectionPicker(ctx context.Context, prompt, action string) {
	conns, err := r.store.ListConnections()
	if err != nil {
		r.notify.text(ctx, r.operatorID, fmt.Sprintf("Error listing connections: %v", err))
		return
	}
	if len(conns) == 0 {
		r.notify.text(ctx, r.operatorID, "No connected accounts.")
		return
	}

	buttons := make([][]Button, 0, len(conns))
	for _, c := range conns {
		buttons = append(buttons, []Button{{
			Label:   c.Label(),
			Payload: fmt.Sprintf("%s:%d", action, c.UserID),
		}})
	}
	r.notify.buttons(ctx, r.operatorID, prompt, buttons)
}

// HandleButton routes a structured button payload of the form
// "action:arg1:arg2:..." to the matching flow. Unrecognized or malformed
// payloads are ignored.
func (r *Router) HandleButton(ctx context.Context, ev ButtonPressed) {
	r.metrics.RecordEvent("button")

	parts := strings.Split(ev.Payload, ":")
	switch parts[0] {
	case "gift":
		if len(parts) == 2 {
			if kind := models.RewardKind(parts[1]); kind.Valid() {
				r.handleSelection(ctx, ev, kind)
			}
		}
	case "holdings":
		r.adminOnly(ctx, ev.UserID, func(ctx context.Context) {
			if uid, ok := parseID(parts, 2); ok {
				r.browseHoldings(ctx, uid)
			}
		})
	case "balance":
		r.adminOnly(ctx, ev.UserID, func(ctx context.Context) {
			if uid, ok := parseID(parts, 2); ok {
				r.showBalance(ctx, uid)
			}
		})
	case "transfer":
		r.adminOnly(ctx, ev.UserID, func(ctx context.Context) {
			r.handleTransfer(ctx, parts)
		})
	case "sweep":
		r.adminOnly(ctx, ev.UserID, func(ctx context.Context) {
			if uid, ok := parseID(parts, 2); ok {
				out := r.orch.SweepPoints(ctx, uid)
				r.notify.text(ctx, r.operatorID, describeOutcome(models.FlowPointSweep, out))
			}
		})
	case "convert_select":
		r.adminOnly(ctx, ev.UserID, func(ctx context.Context) {
			if uid, ok := parseID(parts, 2); ok {
				r.notify.edit(ctx, r.operatorID, ev.MessageID,
					fmt.Sprintf("Convert all fungible holdings of user %d to points?", uid),
					[][]Button{{{
						Label:   "♻️ Convert to points",
						Payload: fmt.Sprintf("convert_exec:%d", uid),
					}}})
			}
		})
	case "convert_exec":
		r.adminOnly(ctx, ev.UserID, func(ctx context.Context) {
			if uid, ok := parseID(parts, 2); ok {
				out := r.orch.ConvertHoldings(ctx, uid)
				r.notify.edit(ctx, r.operatorID, ev.MessageID,
					describeOutcome(models.FlowConversion, out), nil)
			}
		})
	}
}

func (r *Router) handleSelection(ctx context.Context, ev ButtonPressed, kind models.RewardKind) {
	r.notify.clearButtons(ctx, ev.UserID, ev.MessageID)

	res, err := r.orch.SelectReward(ctx, ev.UserID, kind)
	if err != nil {
		log.Printf("select reward for user %d: %v", ev.UserID, err)
		r.notify.text(ctx, ev.UserID, describeError(settlement.ReasonStorageFailure, err))
		return
	}

	if res.Duplicate {
		r.notify.text(ctx, ev.UserID, msgDuplicateChoice)
		r.notify.text(ctx, r.operatorID,
			fmt.Sprintf("User %d attempted to re-select a reward (kept: %s).", ev.UserID, res.Choice.Kind))
		return
	}

	promise := msgCollectiblePromised
	if res.Choice.Kind == models.RewardPoints {
		promise = msgPointsPromised
	}
	r.notify.photoOrText(ctx, ev.UserID, r.thanksImage, "🎉 "+promise)
	r.notify.text(ctx, ev.UserID, msgThanks)
}

func (r *Router) browseHoldings(ctx context.Context, userID int64) {
	balance, err := r.orch.BalanceFor(ctx, userID)
	if err != nil {
		r.notify.text(ctx, r.operatorID,
			fmt.Sprintf("Balance for user %d: %s", userID, describeError(reasonFor(err), err)))
	} else {
		r.notify.text(ctx, r.operatorID,
			fmt.Sprintf("User %d — point balance: %d ⭐", userID, balance))
	}

	holdings, err := r.orch.HoldingsFor(ctx, userID)
	if err != nil {
		r.updateConnectionGauge()
		r.notify.text(ctx, r.operatorID, describeError(reasonFor(err), err))
		return
	}
	if len(holdings) == 0 {
		r.notify.text(ctx, r.operatorID, "🎁 No holdings.")
		return
	}

	fee := r.orch.Fee()
	fungible := 0
	for _, h := range holdings {
		if h.Kind != custodian.KindUnique {
			fungible++
			continue
		}
		info := fmt.Sprintf("🎁 %s #%d\nOwner: %d\nItem: %s\nTransfer fee: %d ⭐",
			h.Title, h.Number, userID, h.ID, fee)
		r.notify.buttons(ctx, r.operatorID, info, [][]Button{{{
			Label:   "🎁 Transfer to operator",
			Payload: fmt.Sprintf("transfer:%d:%s:%d", userID, h.ID, fee),
		}}})
	}
	if fungible > 0 {
		r.notify.text(ctx, r.operatorID,
			fmt.Sprintf("%d fungible holdings (use /convert to turn them into points).", fungible))
	}
}

func (r *Router) showBalance(ctx context.Context, userID int64) {
	balance, err := r.orch.BalanceFor(ctx, userID)
	if err != nil {
		r.updateConnectionGauge()
		r.notify.text(ctx, r.operatorID, describeError(reasonFor(err), err))
		return
	}
	r.notify.buttons(ctx, r.operatorID,
		fmt.Sprintf("⭐ User %d point balance: %d", userID, balance),
		[][]Button{{{
			Label:   "✨ Sweep points to operator",
			Payload: fmt.Sprintf("sweep:%d", userID),
		}}})
}

func (r *Router) handleTransfer(ctx context.Context, parts []string) {
	if len(parts) != 4 {
		return
	}
	uid, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return
	}
	fee, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return
	}

	out := r.orch.TransferItem(ctx, settlement.Request{
		UserID: uid,
		ItemID: parts[2],
		Fee:    fee,
	})
	r.notify.text(ctx, r.operatorID, describeOutcome(models.FlowItemTransfer, out))
}

func (r *Router) updateConnectionGauge() {
	if count, err := r.store.CountConnections(); err == nil {
		r.metrics.SetActiveConnections(int(count))
	}
}

// parseID extracts the int64 argument of an exact-length payload.
func parseID(parts []string, wantLen int) (int64, bool) {
	if len(parts) != wantLen {
		return 0, false
	}
	id, err := strconv.ParseInt(parts[wantLen-1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// reasonFor labels an error from a registry or custodian read so the
// shared message renderer can phrase the remediation.
func reasonFor(err error) settlement.Reason {
	switch {
	case errors.Is(err, store.ErrRecordNotFound):
		return settlement.ReasonConnectionMissing
	case errors.Is(err, custodian.ErrAccessDenied):
		return settlement.ReasonAccessDenied
	case errors.Is(err, custodian.ErrGrantInvalid):
		return settlement.ReasonGrantInvalid
	case errors.Is(err, custodian.ErrInsufficientFunds):
		return settlement.ReasonInsufficientFunds
	case errors.Is(err, custodian.ErrItemNotFound):
		return settlement.ReasonItemNotFound
	default:
		var remote *custodian.RemoteError
		if errors.As(err, &remote) {
			return settlement.ReasonRemoteError
		}
		return settlement.ReasonStorageFailure
	}
}
