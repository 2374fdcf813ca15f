package paper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	accounts  map[string]*Account
	snapshots map[string][]Snapshot
}

func newMemStore() *memStore {
	return &memStore{accounts: map[string]*Account{}, snapshots: map[string][]Snapshot{}}
}

func (m *memStore) LoadAccount(ctx context.Context, id string) (*Account, error) {
	acct, ok := m.accounts[id]
	if !ok {
		return nil, errors.New("account not found")
	}
	return acct, nil
}

func (m *memStore) SaveAccount(ctx context.Context, acct *Account) error {
	m.accounts[acct.ID] = acct
	return nil
}

func (m *memStore) AppendSnapshot(ctx context.Context, snap Snapshot) error {
	m.snapshots[snap.AccountID] = append(m.snapshots[snap.AccountID], snap)
	return nil
}

func (m *memStore) Snapshots(ctx context.Context, accountID string) ([]Snapshot, error) {
	return m.snapshots[accountID], nil
}

func newAccount(id string, cash float64) *Account {
	return &Account{ID: id, Name: id, InitialCapital: cash, Cash: cash, Positions: map[string]*Position{}}
}

var mondayMorning = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC) // Monday 15:00 UTC, US session open

func TestSubmitOrderRejectsUnknownAccount(t *testing.T) {
	store := newMemStore()
	engine := NewEngine(store, Config{SlippageBps: 5.0}, nil)

	order, err := engine.SubmitOrder(context.Background(), SubmitRequest{
		AccountID: "missing", Symbol: "AAPL", Market: "US", Side: OrderBuy, Type: OrderMarket, Quantity: 1,
		Price: PriceLookup{Current: 100}, Now: mondayMorning,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, order.Status)
	assert.Equal(t, "Account not found", order.Reason)
}

func TestSubmitOrderRejectsClosedMarket(t *testing.T) {
	store := newMemStore()
	store.accounts["a1"] = newAccount("a1", 10000)
	engine := NewEngine(store, Config{SlippageBps: 5.0}, nil)

	weekend := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC) // Sunday
	order, err := engine.SubmitOrder(context.Background(), SubmitRequest{
		AccountID: "a1", Symbol: "AAPL", Market: "US", Side: OrderBuy, Type: OrderMarket, Quantity: 1,
		Price: PriceLookup{Current: 100}, Now: weekend,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, order.Status)
	assert.Contains(t, order.Reason, "currently closed")
}

func TestSubmitOrderBuyFillsAndDeductsCash(t *testing.T) {
	store := newMemStore()
	store.accounts["a1"] = newAccount("a1", 10000)
	engine := NewEngine(store, Config{SlippageBps: 5.0}, nil)

	order, err := engine.SubmitOrder(context.Background(), SubmitRequest{
		AccountID: "a1", Symbol: "AAPL", Market: "US", Side: OrderBuy, Type: OrderMarket, Quantity: 10,
		Price: PriceLookup{Current: 100}, Now: mondayMorning,
	})
	require.NoError(t, err)
	require.Equal(t, StatusFilled, order.Status)

	acct := store.accounts["a1"]
	assert.Less(t, acct.Cash, 10000.0)
	pos, ok := acct.Positions["AAPL"]
	require.True(t, ok)
	assert.Equal(t, 10.0, pos.Quantity)
}

func TestSubmitOrderBuyUsesConfiguredSlippage(t *testing.T) {
	store := newMemStore()
	store.accounts["a1"] = newAccount("a1", 10000)
	engine := NewEngine(store, Config{SlippageBps: 100.0}, nil)

	order, err := engine.SubmitOrder(context.Background(), SubmitRequest{
		AccountID: "a1", Symbol: "AAPL", Market: "US", Side: OrderBuy, Type: OrderMarket, Quantity: 10,
		Price: PriceLookup{Current: 100}, Now: mondayMorning,
	})
	require.NoError(t, err)
	require.Equal(t, StatusFilled, order.Status)
	require.NotNil(t, order.FillPrice)
	assert.InDelta(t, 101.0, *order.FillPrice, 1e-9)
}

func TestSubmitOrderRejectsInsufficientCash(t *testing.T) {
	store := newMemStore()
	store.accounts["a1"] = newAccount("a1", 100)
	engine := NewEngine(store, Config{SlippageBps: 5.0}, nil)

	order, err := engine.SubmitOrder(context.Background(), SubmitRequest{
		AccountID: "a1", Symbol: "AAPL", Market: "US", Side: OrderBuy, Type: OrderMarket, Quantity: 10,
		Price: PriceLookup{Current: 100}, Now: mondayMorning,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, order.Status)
	assert.Equal(t, "Insufficient cash", order.Reason)
}

func TestSubmitOrderSellRejectsWithoutSellableLots(t *testing.T) {
	store := newMemStore()
	acct := newAccount("a1", 10000)
	future := mondayMorning.Add(48 * time.Hour)
	acct.Positions["AAPL"] = &Position{Symbol: "AAPL", Side: SideLong, Quantity: 10, EntryPrice: 100, CurrentPrice: 100,
		Lots: []Lot{{Quantity: 10, EntryPrice: 100, SettlableAfter: &future}}}
	store.accounts["a1"] = acct
	engine := NewEngine(store, Config{SlippageBps: 5.0}, nil)

	order, err := engine.SubmitOrder(context.Background(), SubmitRequest{
		AccountID: "a1", Symbol: "AAPL", Market: "US", Side: OrderSell, Type: OrderMarket, Quantity: 5,
		Price: PriceLookup{Current: 105}, Now: mondayMorning,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, order.Status)
	assert.Equal(t, "Insufficient sellable quantity", order.Reason)
}

func TestSubmitOrderSellConsumesLotsFIFOAndCredits(t *testing.T) {
	store := newMemStore()
	acct := newAccount("a1", 0)
	acct.Positions["AAPL"] = &Position{Symbol: "AAPL", Side: SideLong, Quantity: 10, EntryPrice: 100, CurrentPrice: 100,
		Lots: []Lot{{Quantity: 10, EntryPrice: 100}}}
	store.accounts["a1"] = acct
	engine := NewEngine(store, Config{SlippageBps: 5.0}, nil)

	order, err := engine.SubmitOrder(context.Background(), SubmitRequest{
		AccountID: "a1", Symbol: "AAPL", Market: "US", Side: OrderSell, Type: OrderMarket, Quantity: 10,
		Price: PriceLookup{Current: 105}, Now: mondayMorning,
	})
	require.NoError(t, err)
	require.Equal(t, StatusFilled, order.Status)

	result := store.accounts["a1"]
	assert.Greater(t, result.Cash, 0.0)
	_, stillOpen := result.Positions["AAPL"]
	assert.False(t, stillOpen)
}

func TestSubmitLimitOrderPendingWhenConditionNotMet(t *testing.T) {
	store := newMemStore()
	store.accounts["a1"] = newAccount("a1", 10000)
	engine := NewEngine(store, Config{SlippageBps: 5.0}, nil)

	limit := 90.0
	order, err := engine.SubmitOrder(context.Background(), SubmitRequest{
		AccountID: "a1", Symbol: "AAPL", Market: "US", Side: OrderBuy, Type: OrderLimit, Quantity: 1,
		LimitPrice: &limit, Price: PriceLookup{Current: 100}, Now: mondayMorning,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, order.Status)
}

func TestUpdatePricesRecalculatesUnrealizedPnl(t *testing.T) {
	store := newMemStore()
	acct := newAccount("a1", 0)
	acct.Positions["AAPL"] = &Position{Symbol: "AAPL", Side: SideLong, Quantity: 10, EntryPrice: 100, CurrentPrice: 100}
	store.accounts["a1"] = acct
	engine := NewEngine(store, Config{SlippageBps: 5.0}, nil)

	require.NoError(t, engine.UpdatePrices(context.Background(), "a1", map[string]float64{"AAPL": 110}))
	assert.Equal(t, 100.0, store.accounts["a1"].Positions["AAPL"].UnrealizedPnl)
}

func TestRecordSnapshotUsesInitialCapitalAsBaselineWhenEmpty(t *testing.T) {
	store := newMemStore()
	store.accounts["a1"] = newAccount("a1", 10000)
	engine := NewEngine(store, Config{SlippageBps: 5.0}, nil)

	snap, err := engine.RecordSnapshot(context.Background(), "a1", mondayMorning)
	require.NoError(t, err)
	assert.Equal(t, 0.0, snap.DailyPnl)
}
