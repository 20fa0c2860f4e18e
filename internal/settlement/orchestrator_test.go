package settlement

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-giftgate/giftgate/internal/cache"
	"github.com/go-giftgate/giftgate/internal/config"
	"github.com/go-giftgate/giftgate/internal/custodian"
	"github.com/go-giftgate/giftgate/internal/metrics"
	"github.com/go-giftgate/giftgate/internal/models"
	"github.com/go-giftgate/giftgate/internal/store"
)

const (
	operatorID    = int64(1)
	userID        = int64(42)
	operatorGrant = "grant-operator"
	userGrant     = "grant-user"
)

// fakeAssets scripts the custodial gateway and records the call order.
type fakeAssets struct {
	mu    sync.Mutex
	calls []string

	balances    map[string]int64
	balanceErr  map[string]error
	holdings    map[string][]custodian.Holding
	holdingsErr map[string]error

	transferItemErr   error
	transferPointsErr error
	convertErr        map[string]error
}

func newFakeAssets() *fakeAssets {
	return &fakeAssets{
		balances:    make(map[string]int64),
		balanceErr:  make(map[string]error),
		holdings:    make(map[string][]custodian.Holding),
		holdingsErr: make(map[string]error),
		convertErr:  make(map[string]error),
	}
}

func (f *fakeAssets) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeAssets) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAssets) PointBalance(ctx context.Context, grant string) (int64, error) {
	f.record("PointBalance:" + grant)
	if err := f.balanceErr[grant]; err != nil {
		return 0, err
	}
	return f.balances[grant], nil
}

func (f *fakeAssets) Holdings(ctx context.Context, grant string) ([]custodian.Holding, error) {
	f.record("Holdings:" + grant)
	if err := f.holdingsErr[grant]; err != nil {
		return nil, err
	}
	return f.holdings[grant], nil
}

func (f *fakeAssets) TransferItem(ctx context.Context, sourceGrant, itemID string, destUserID int64) error {
	f.record(fmt.Sprintf("TransferItem:%s:%s:%d", sourceGrant, itemID, destUserID))
	return f.transferItemErr
}

func (f *fakeAssets) TransferPoints(ctx context.Context, sourceGrant, destGrant string, amount int64) error {
	f.record(fmt.Sprintf("TransferPoints:%s:%s:%d", sourceGrant, destGrant, amount))
	return f.transferPointsErr
}

func (f *fakeAssets) ConvertItem(ctx context.Context, grant, itemID string) error {
	f.record("ConvertItem:" + itemID)
	return f.convertErr[itemID]
}

func newTestOrchestrator(t *testing.T, assets AssetClient) (*Orchestrator, *store.Store) {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)
	s, err := store.New("sqlite", dsn)
	require.NoError(t, err)

	cfg := &config.Config{
		OperatorID:      operatorID,
		TransferFee:     25,
		ConvertPause:    time.Millisecond,
		BalanceCacheTTL: time.Minute,
	}
	orch := New(s, assets, cache.NewMemoryCache[int64](), cfg, metrics.NewNoopMetrics())
	return orch, s
}

func connect(t *testing.T, s *store.Store, id int64, grant string) {
	t.Helper()
	require.NoError(t, s.UpsertConnection(&models.Connection{
		UserID:      id,
		GrantHandle: grant,
	}))
}

func TestSelectReward(t *testing.T) {
	orch, s := newTestOrchestrator(t, newFakeAssets())
	ctx := context.Background()

	res, err := orch.SelectReward(ctx, userID, models.RewardCollectible)
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, models.RewardCollectible, res.Choice.Kind)

	// A second attempt keeps the first choice and reports the duplicate.
	res, err = orch.SelectReward(ctx, userID, models.RewardPoints)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Equal(t, models.RewardCollectible, res.Choice.Kind)

	entries, err := s.ListSettlementLogs(userID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestSelectReward_UnknownKind(t *testing.T) {
	orch, _ := newTestOrchestrator(t, newFakeAssets())

	_, err := orch.SelectReward(context.Background(), userID, models.RewardKind("gold"))
	require.Error(t, err)
}

func TestTransferItem_Completed(t *testing.T) {
	assets := newFakeAssets()
	assets.balances[operatorGrant] = 30

	orch, s := newTestOrchestrator(t, assets)
	connect(t, s, userID, userGrant)
	connect(t, s, operatorID, operatorGrant)

	out := orch.TransferItem(context.Background(), Request{UserID: userID, ItemID: "item-1", Fee: 25})

	assert.Equal(t, StatusCompleted, out.Status)
	assert.True(t, out.ItemMoved)
	assert.True(t, out.FeePaid)
	assert.Equal(t, int64(25), out.Amount)

	// Balance check, then item, then fee, in that order.
	assert.Equal(t, []string{
		"PointBalance:" + operatorGrant,
		fmt.Sprintf("TransferItem:%s:item-1:%d", userGrant, operatorID),
		fmt.Sprintf("TransferPoints:%s:%s:25", operatorGrant, userGrant),
	}, assets.callLog())
}

func TestTransferItem_RejectedWhenOperatorCannotPayFee(t *testing.T) {
	assets := newFakeAssets()
	assets.balances[operatorGrant] = 10

	orch, s := newTestOrchestrator(t, assets)
	connect(t, s, userID, userGrant)
	connect(t, s, operatorID, operatorGrant)

	out := orch.TransferItem(context.Background(), Request{UserID: userID, ItemID: "item-1", Fee: 25})

	assert.Equal(t, StatusRejected, out.Status)
	assert.Equal(t, ReasonInsufficientOperatorFunds, out.Reason)
	assert.False(t, out.ItemMoved)

	// No transfer of any kind may have been attempted.
	for _, call := range assets.callLog() {
		assert.NotContains(t, call, "TransferItem")
		assert.NotContains(t, call, "TransferPoints")
	}
}

func TestTransferItem_PartialWhenFeePaymentFails(t *testing.T) {
	assets := newFakeAssets()
	assets.balances[operatorGrant] = 100
	assets.transferPointsErr = &custodian.RemoteError{Code: 502, Message: "upstream gone"}

	orch, s := newTestOrchestrator(t, assets)
	connect(t, s, userID, userGrant)
	connect(t, s, operatorID, operatorGrant)

	out := orch.TransferItem(context.Background(), Request{UserID: userID, ItemID: "item-1", Fee: 25})

	assert.Equal(t, StatusPartial, out.Status)
	assert.Equal(t, ReasonRemoteError, out.Reason)
	assert.True(t, out.ItemMoved)
	assert.False(t, out.FeePaid)

	// The imbalance is recorded for manual reconciliation.
	entries, err := s.ListSettlementLogs(userID, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, string(StatusPartial), entries[0].Status)
	assert.Contains(t, entries[0].Detail, "fee of 25 points unpaid")
}

func TestTransferItem_RejectedWithoutConnection(t *testing.T) {
	orch, _ := newTestOrchestrator(t, newFakeAssets())

	out := orch.TransferItem(context.Background(), Request{UserID: userID, ItemID: "item-1", Fee: 25})

	assert.Equal(t, StatusRejected, out.Status)
	assert.Equal(t, ReasonConnectionMissing, out.Reason)
}

func TestSweepPoints(t *testing.T) {
	assets := newFakeAssets()
	assets.balances[userGrant] = 340

	orch, s := newTestOrchestrator(t, assets)
	connect(t, s, userID, userGrant)
	connect(t, s, operatorID, operatorGrant)

	out := orch.SweepPoints(context.Background(), userID)

	assert.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, int64(340), out.Amount)
	assert.Contains(t, assets.callLog(), fmt.Sprintf("TransferPoints:%s:%s:340", userGrant, operatorGrant))
}

func TestSweepPoints_NothingToTransfer(t *testing.T) {
	assets := newFakeAssets()
	assets.balances[userGrant] = 0

	orch, s := newTestOrchestrator(t, assets)
	connect(t, s, userID, userGrant)
	connect(t, s, operatorID, operatorGrant)

	out := orch.SweepPoints(context.Background(), userID)

	assert.Equal(t, StatusRejected, out.Status)
	assert.Equal(t, ReasonNothingToTransfer, out.Reason)
	for _, call := range assets.callLog() {
		assert.NotContains(t, call, "TransferPoints")
	}
}

func TestConvertHoldings_SkipsUniqueAndContinuesPastFailures(t *testing.T) {
	assets := newFakeAssets()
	assets.holdings[userGrant] = []custodian.Holding{
		{ID: "fungible-a", Kind: custodian.KindFungible},
		{ID: "unique-b", Kind: custodian.KindUnique},
		{ID: "fungible-c", Kind: custodian.KindFungible},
	}
	assets.convertErr["fungible-c"] = &custodian.RemoteError{Code: 500, Message: "boom"}

	orch, s := newTestOrchestrator(t, assets)
	connect(t, s, userID, userGrant)

	out := orch.ConvertHoldings(context.Background(), userID)

	assert.Equal(t, StatusPartial, out.Status)
	assert.Equal(t, 1, out.Converted)
	assert.Equal(t, 1, out.Failed)

	calls := assets.callLog()
	assert.Contains(t, calls, "ConvertItem:fungible-a")
	assert.Contains(t, calls, "ConvertItem:fungible-c")
	assert.NotContains(t, calls, "ConvertItem:unique-b")
}

func TestConvertHoldings_AllSucceed(t *testing.T) {
	assets := newFakeAssets()
	assets.holdings[userGrant] = []custodian.Holding{
		{ID: "fungible-a", Kind: custodian.KindFungible},
		{ID: "fungible-b", Kind: custodian.KindFungible},
	}

	orch, s := newTestOrchestrator(t, assets)
	connect(t, s, userID, userGrant)

	out := orch.ConvertHoldings(context.Background(), userID)

	assert.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, 2, out.Converted)
	assert.Zero(t, out.Failed)
}

func TestConvertHoldings_NothingToConvert(t *testing.T) {
	assets := newFakeAssets()

	orch, s := newTestOrchestrator(t, assets)
	connect(t, s, userID, userGrant)

	out := orch.ConvertHoldings(context.Background(), userID)

	assert.Equal(t, StatusRejected, out.Status)
	assert.Equal(t, ReasonNothingToConvert, out.Reason)
}

func TestHoldingsFor_PrunesInvalidGrant(t *testing.T) {
	assets := newFakeAssets()
	assets.holdingsErr[userGrant] = custodian.ErrGrantInvalid

	orch, s := newTestOrchestrator(t, assets)
	connect(t, s, userID, userGrant)

	_, err := orch.HoldingsFor(context.Background(), userID)
	assert.ErrorIs(t, err, custodian.ErrGrantInvalid)

	// The stale connection is gone so the handle is never retried.
	_, err = s.GetConnection(userID)
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
}

func TestProbeAccess_AccessDeniedKeepsConnection(t *testing.T) {
	assets := newFakeAssets()
	assets.holdingsErr[userGrant] = custodian.ErrAccessDenied

	orch, s := newTestOrchestrator(t, assets)
	connect(t, s, userID, userGrant)

	err := orch.ProbeAccess(context.Background(), userID)
	assert.ErrorIs(t, err, custodian.ErrAccessDenied)

	// The grant is still valid; only the permission tab is off.
	_, err = s.GetConnection(userID)
	require.NoError(t, err)
}

func TestBalanceFor_CachesReads(t *testing.T) {
	assets := newFakeAssets()
	assets.balances[userGrant] = 777

	orch, s := newTestOrchestrator(t, assets)
	connect(t, s, userID, userGrant)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		balance, err := orch.BalanceFor(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, int64(777), balance)
	}

	var fetches int
	for _, call := range assets.callLog() {
		if strings.HasPrefix(call, "PointBalance:") {
			fetches++
		}
	}
	assert.Equal(t, 1, fetches, "repeat reads are served from the cache")
}
