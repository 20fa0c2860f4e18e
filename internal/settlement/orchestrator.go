package settlement

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/go-giftgate/giftgate/internal/cache"
	"github.com/go-giftgate/giftgate/internal/config"
	"github.com/go-giftgate/giftgate/internal/custodian"
	"github.com/go-giftgate/giftgate/internal/metrics"
	"github.com/go-giftgate/giftgate/internal/models"
	"github.com/go-giftgate/giftgate/internal/store"
)

// AssetClient is the slice of the custodial façade the orchestrator drives.
// *custodian.Client satisfies it; tests substitute fakes.
type AssetClient interface {
	PointBalance(ctx context.Context, grantHandle string) (int64, error)
	Holdings(ctx context.Context, grantHandle string) ([]custodian.Holding, error)
	TransferItem(ctx context.Context, sourceGrant, itemID string, destUserID int64) error
	TransferPoints(ctx context.Context, sourceGrant, destGrant string, amount int64) error
	ConvertItem(ctx context.Context, grantHandle, itemID string) error
}

// Orchestrator drives the settlement flows. All state lives in the store
// and the remote service; flows for different users run concurrently with
// no shared locks, and steps within one flow run strictly in order.
type Orchestrator struct {
	store        *store.Store
	assets       AssetClient
	balances     cache.Cache[int64]
	operatorID   int64
	fee          int64
	convertPause time.Duration
	balanceTTL   time.Duration
	metrics      metrics.Recorder
}

func New(
	s *store.Store,
	assets AssetClient,
	balances cache.Cache[int64],
	cfg *config.Config,
	rec metrics.Recorder,
) *Orchestrator {
	return &Orchestrator{
		store:        s,
		assets:       assets,
		balances:     balances,
		operatorID:   cfg.OperatorID,
		fee:          cfg.TransferFee,
		convertPause: cfg.ConvertPause,
		balanceTTL:   cfg.BalanceCacheTTL,
		metrics:      rec,
	}
}

// Fee returns the fixed compensation, in points, paid to a user per
// mediated item transfer.
func (o *Orchestrator) Fee() int64 {
	return o.fee
}

// SelectionResult reports a reward-selection attempt. Duplicate is a
// normal concurrent-user race, not an error.
type SelectionResult struct {
	Choice    *models.RewardChoice
	Duplicate bool
}

// SelectReward records the user's one-time reward choice. The reward is
// only promised here; value delivery is a separate operator action.
func (o *Orchestrator) SelectReward(ctx context.Context, userID int64, kind models.RewardKind) (*SelectionResult, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown reward kind %q", kind)
	}

	choice, err := o.store.TryRecordChoice(userID, kind)
	if errors.Is(err, store.ErrChoiceExists) {
		o.metrics.RecordDuplicateSelection()
		o.audit(userID, models.FlowSelection, Outcome{
			Status: StatusRejected,
			Reason: ReasonDuplicateSelection,
		})
		return &SelectionResult{Choice: choice, Duplicate: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("record reward choice: %w", err)
	}

	o.audit(userID, models.FlowSelection, Outcome{Status: StatusCompleted})
	return &SelectionResult{Choice: choice}, nil
}

// LookupChoice returns the user's recorded choice, if any.
func (o *Orchestrator) LookupChoice(userID int64) (*models.RewardChoice, error) {
	return o.store.LookupChoice(userID)
}

// ProbeAccess verifies the stored grant can actually reach the account's
// holdings. A grant the remote service no longer recognizes is pruned
// before the error is surfaced.
func (o *Orchestrator) ProbeAccess(ctx context.Context, userID int64) error {
	conn, err := o.store.GetConnection(userID)
	if err != nil {
		return err
	}
	_, err = o.assets.Holdings(ctx, conn.GrantHandle)
	return o.pruneIfInvalid(userID, err)
}

// HoldingsFor lists a connected user's holdings for the admin browser.
func (o *Orchestrator) HoldingsFor(ctx context.Context, userID int64) ([]custodian.Holding, error) {
	conn, err := o.store.GetConnection(userID)
	if err != nil {
		return nil, err
	}
	holdings, err := o.assets.Holdings(ctx, conn.GrantHandle)
	if err != nil {
		return nil, o.pruneIfInvalid(userID, err)
	}
	return holdings, nil
}

// BalanceFor returns a user's point balance for display, served through a
// short-TTL cache. Settlement flows never read this cache: the remote
// service stays the source of truth for every transfer decision.
func (o *Orchestrator) BalanceFor(ctx context.Context, userID int64) (int64, error) {
	conn, err := o.store.GetConnection(userID)
	if err != nil {
		return 0, err
	}

	key := "balance:" + strconv.FormatInt(userID, 10)
	return cache.GetWithFetch(ctx, o.balances, key, o.balanceTTL,
		func(ctx context.Context) (int64, error) {
			balance, err := o.assets.PointBalance(ctx, conn.GrantHandle)
			if err != nil {
				return 0, o.pruneIfInvalid(userID, err)
			}
			return balance, nil
		})
}

// Request describes one mediated item transfer: move the item from the
// user's account to the operator, paying the user a fee in points.
type Request struct {
	UserID int64
	ItemID string
	Fee    int64
}

// TransferItem runs the two-step mediated transfer.
//
// The fee payment is checked before the item moves: if the operator cannot
// honor the compensation, nothing is attempted. When the item has moved
// and the fee payment then fails, the outcome is partial — the custodial
// service has no compensating-transaction primitive, so no rollback is
// attempted and the settlement log records the imbalance.
func (o *Orchestrator) TransferItem(ctx context.Context, req Request) Outcome {
	source, out, ok := o.connection(req.UserID)
	if !ok {
		return o.finish(req.UserID, models.FlowItemTransfer, out)
	}
	operator, out, ok := o.connection(o.operatorID)
	if !ok {
		return o.finish(req.UserID, models.FlowItemTransfer, out)
	}

	balance, err := o.assets.PointBalance(ctx, operator.GrantHandle)
	if err != nil {
		err = o.pruneIfInvalid(o.operatorID, err)
		return o.finish(req.UserID, models.FlowItemTransfer, o.failed(err))
	}
	if balance < req.Fee {
		return o.finish(req.UserID, models.FlowItemTransfer, Outcome{
			Status: StatusRejected,
			Reason: ReasonInsufficientOperatorFunds,
			Amount: req.Fee,
		})
	}

	// Step A: item to the operator.
	if err := o.assets.TransferItem(ctx, source.GrantHandle, req.ItemID, o.operatorID); err != nil {
		err = o.pruneIfInvalid(req.UserID, err)
		return o.finish(req.UserID, models.FlowItemTransfer, o.failed(err))
	}

	out = Outcome{ItemMoved: true, Amount: req.Fee}

	// Step B: fee to the user.
	if err := o.assets.TransferPoints(ctx, operator.GrantHandle, source.GrantHandle, req.Fee); err != nil {
		err = o.pruneIfInvalid(o.operatorID, err)
		out.Status = StatusPartial
		out.Reason = reasonForErr(err)
		out.Err = err
		return o.finish(req.UserID, models.FlowItemTransfer, out)
	}

	out.Status = StatusCompleted
	out.FeePaid = true
	return o.finish(req.UserID, models.FlowItemTransfer, out)
}

// SweepPoints moves the user's entire point balance to the operator.
func (o *Orchestrator) SweepPoints(ctx context.Context, userID int64) Outcome {
	source, out, ok := o.connection(userID)
	if !ok {
		return o.finish(userID, models.FlowPointSweep, out)
	}

	balance, err := o.assets.PointBalance(ctx, source.GrantHandle)
	if err != nil {
		err = o.pruneIfInvalid(userID, err)
		return o.finish(userID, models.FlowPointSweep, o.failed(err))
	}
	if balance <= 0 {
		return o.finish(userID, models.FlowPointSweep, Outcome{
			Status: StatusRejected,
			Reason: ReasonNothingToTransfer,
		})
	}

	operator, out, ok := o.connection(o.operatorID)
	if !ok {
		return o.finish(userID, models.FlowPointSweep, out)
	}

	if err := o.assets.TransferPoints(ctx, source.GrantHandle, operator.GrantHandle, balance); err != nil {
		err = o.pruneIfInvalid(userID, err)
		return o.finish(userID, models.FlowPointSweep, o.failed(err))
	}

	return o.finish(userID, models.FlowPointSweep, Outcome{
		Status: StatusCompleted,
		Amount: balance,
	})
}

// ConvertHoldings converts every fungible holding of the user into points.
// Attempts are independent: one failure does not halt the rest, and the
// outcome accounts converted and failed separately. Unique holdings are
// never attempted.
func (o *Orchestrator) ConvertHoldings(ctx context.Context, userID int64) Outcome {
	conn, out, ok := o.connection(userID)
	if !ok {
		return o.finish(userID, models.FlowConversion, out)
	}

	holdings, err := o.assets.Holdings(ctx, conn.GrantHandle)
	if err != nil {
		err = o.pruneIfInvalid(userID, err)
		return o.finish(userID, models.FlowConversion, o.failed(err))
	}
	if len(holdings) == 0 {
		return o.finish(userID, models.FlowConversion, Outcome{
			Status: StatusRejected,
			Reason: ReasonNothingToConvert,
		})
	}

	var converted, failed int
	for _, h := range holdings {
		if h.Kind != custodian.KindFungible {
			continue
		}

		if err := o.assets.ConvertItem(ctx, conn.GrantHandle, h.ID); err != nil {
			_ = o.pruneIfInvalid(userID, err)
			failed++
			log.Printf("convert holding %s for user %d: %v", h.ID, userID, err)
		} else {
			converted++
		}

		// Pause between attempts for the remote service's rate limits.
		select {
		case <-ctx.Done():
			out = Outcome{
				Status:    StatusPartial,
				Reason:    ReasonRemoteError,
				Converted: converted,
				Failed:    failed,
				Err:       ctx.Err(),
			}
			return o.finish(userID, models.FlowConversion, out)
		case <-time.After(o.convertPause):
		}
	}

	out = Outcome{Converted: converted, Failed: failed}
	if failed == 0 {
		out.Status = StatusCompleted
	} else {
		out.Status = StatusPartial
	}
	return o.finish(userID, models.FlowConversion, out)
}

// connection resolves a required connection, translating absence into a
// rejected outcome and storage failures into a failed one.
func (o *Orchestrator) connection(userID int64) (*models.Connection, Outcome, bool) {
	conn, err := o.store.GetConnection(userID)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, Outcome{Status: StatusRejected, Reason: ReasonConnectionMissing}, false
	}
	if err != nil {
		return nil, Outcome{Status: StatusFailed, Reason: ReasonStorageFailure, Err: err}, false
	}
	return conn, Outcome{}, true
}

func (o *Orchestrator) failed(err error) Outcome {
	return Outcome{Status: StatusFailed, Reason: reasonForErr(err), Err: err}
}

// pruneIfInvalid removes the stored connection when the remote service no
// longer recognizes its grant, so the stale handle is never retried.
func (o *Orchestrator) pruneIfInvalid(userID int64, err error) error {
	if errors.Is(err, custodian.ErrGrantInvalid) {
		if rmErr := o.store.RemoveConnection(userID); rmErr != nil {
			log.Printf("prune invalid connection for user %d: %v", userID, rmErr)
		}
	}
	return err
}

// finish records the flow outcome in metrics and the settlement log.
// A log write failure aborts nothing; it is logged for operator follow-up.
func (o *Orchestrator) finish(userID int64, flow models.Flow, out Outcome) Outcome {
	o.metrics.RecordSettlement(string(flow), string(out.Status))
	o.audit(userID, flow, out)
	return out
}

func (o *Orchestrator) audit(userID int64, flow models.Flow, out Outcome) {
	entry := &models.SettlementLog{
		UserID: userID,
		Flow:   flow,
		Status: string(out.Status),
		Reason: string(out.Reason),
		Detail: out.Detail(),
	}
	if err := o.store.AppendSettlementLog(entry); err != nil {
		log.Printf("append settlement log (user=%d flow=%s status=%s): %v",
			userID, flow, out.Status, err)
	}
}
