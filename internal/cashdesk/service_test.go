package cashdesk

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jortegab/cash-denomination-ledger/internal/auth"
	"github.com/jortegab/cash-denomination-ledger/internal/ledger"
	"github.com/jortegab/cash-denomination-ledger/internal/models"
	"github.com/jortegab/cash-denomination-ledger/internal/reconcile"
	"github.com/jortegab/cash-denomination-ledger/internal/storage/memory"
	"github.com/jortegab/cash-denomination-ledger/internal/valuation"
)

const historyName = "Expenses/Income"

type capturingPublisher struct {
	mu     sync.Mutex
	events []any
}

func (p *capturingPublisher) Publish(topic string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func newTestService(t *testing.T, withHistory bool) (*Service, *memory.Store, *capturingPublisher) {
	t.Helper()
	store := memory.NewStore()
	store.Seed("Wallet",
		[]string{"Denomination", "Count", "Subtotal"},
		[]string{"50,00 €", "2", "100,00 €"},
		[]string{"10,00 €", "3", "30,00 €"},
	)
	store.Seed("Savings",
		[]string{"Denomination", "Count", "Subtotal"},
		[]string{"100,00 €", "2", "200,00 €"},
		[]string{"50,00 €", "1", "50,00 €"},
	)
	if withHistory {
		store.Seed(historyName,
			[]string{"Date", "Amount", "Tendered", "Change", "Balance", "Notes"})
	}

	pub := &capturingPublisher{}
	svc := NewService(store,
		reconcile.New(store, nil),
		ledger.NewPoster(store, historyName, nil),
		pub,
		map[models.AccountID]string{
			models.AccountWallet:  "Wallet",
			models.AccountSavings: "Savings",
		}, nil)
	return svc, store, pub
}

func session() auth.Session {
	return auth.Session{User: "operator", Authenticated: true}
}

func historyRows(t *testing.T, store *memory.Store) [][]string {
	t.Helper()
	table, err := store.ReadAll(context.Background(), historyName)
	require.NoError(t, err)
	return table.Rows
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRegisterIncome(t *testing.T) {
	svc, store, pub := newTestService(t, true)

	receipt, err := svc.Register(context.Background(), session(), models.Transaction{
		Account:      models.AccountSavings,
		Kind:         models.Income,
		StatedAmount: dec("100"),
		Note:         "salary",
	})
	require.NoError(t, err)

	// Prior savings total is 250.
	assert.True(t, receipt.ResultingBalance.Equal(dec("350")), "balance %s", receipt.ResultingBalance)
	assert.True(t, receipt.SignedAmount.Equal(dec("100")))
	assert.NotEmpty(t, receipt.EntryID)

	rows := historyRows(t, store)
	require.Len(t, rows, 1)
	assert.Equal(t, "100,00 €", rows[0][1])
	assert.Equal(t, "350,00 €", rows[0][4])
	assert.Equal(t, "salary", rows[0][5])
	// The posted balance survives the display round trip.
	assert.True(t, valuation.ParseAmount(rows[0][4]).Equal(dec("350")))

	require.Len(t, pub.events, 1)
}

func TestRegisterExpenseWithBreakdown(t *testing.T) {
	svc, store, _ := newTestService(t, true)

	receipt, err := svc.Register(context.Background(), session(), models.Transaction{
		Account:     models.AccountWallet,
		Kind:        models.Expense,
		Breakdown:   map[int]int{1: 2}, // two 10€ notes out
		UpdateStock: true,
		Tendered:    dec("20"),
		Note:        "bus tickets",
	})
	require.NoError(t, err)

	assert.True(t, receipt.FinalAmount.Equal(dec("20")))
	require.NotNil(t, receipt.ChangeDue)
	assert.True(t, receipt.ChangeDue.Equal(dec("0")))
	assert.True(t, receipt.StockUpdated)

	table, err := store.ReadAll(context.Background(), "Wallet")
	require.NoError(t, err)
	assert.Equal(t, "1", table.Rows[1][1])

	rows := historyRows(t, store)
	require.Len(t, rows, 1)
	assert.Equal(t, "-20,00 €", rows[0][1])
	assert.Equal(t, "20,00 €", rows[0][2])
	assert.Equal(t, "0,00 €", rows[0][3])
}

func TestRegisterRequiresAuthenticatedSession(t *testing.T) {
	svc, store, pub := newTestService(t, true)

	_, err := svc.Register(context.Background(), auth.Session{}, models.Transaction{
		Account:      models.AccountWallet,
		Kind:         models.Income,
		StatedAmount: dec("5"),
	})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Empty(t, historyRows(t, store))
	assert.Empty(t, pub.events)
}

func TestRegisterInvalidAmountDoesNotAppend(t *testing.T) {
	svc, store, pub := newTestService(t, true)

	_, err := svc.Register(context.Background(), session(), models.Transaction{
		Account:     models.AccountWallet,
		Kind:        models.Expense,
		Breakdown:   map[int]int{0: 0},
		UpdateStock: true,
	})
	assert.ErrorIs(t, err, reconcile.ErrInvalidAmount)
	assert.Empty(t, historyRows(t, store))
	assert.Empty(t, pub.events)
}

func TestRegisterInsufficientStockBlocksEverything(t *testing.T) {
	svc, store, pub := newTestService(t, true)

	_, err := svc.Register(context.Background(), session(), models.Transaction{
		Account:     models.AccountWallet,
		Kind:        models.Expense,
		Breakdown:   map[int]int{0: 3},
		UpdateStock: true,
	})
	var stockErr *reconcile.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)

	table, readErr := store.ReadAll(context.Background(), "Wallet")
	require.NoError(t, readErr)
	assert.Equal(t, "2", table.Rows[0][1])
	assert.Empty(t, historyRows(t, store))
	assert.Empty(t, pub.events)
}

func TestRegisterPostFailureReportsMutatedStock(t *testing.T) {
	// No history collection: posting fails after the stock write.
	svc, store, pub := newTestService(t, false)

	receipt, err := svc.Register(context.Background(), session(), models.Transaction{
		Account:     models.AccountWallet,
		Kind:        models.Expense,
		Breakdown:   map[int]int{0: 1},
		UpdateStock: true,
	})

	var missing *ledger.HistoryTargetMissingError
	require.ErrorAs(t, err, &missing)
	assert.ElementsMatch(t, []string{"Wallet", "Savings"}, missing.Available)

	// The receipt travels with the error so the caller knows manual
	// reconciliation is needed.
	require.NotNil(t, receipt)
	assert.True(t, receipt.StockUpdated)
	table, readErr := store.ReadAll(context.Background(), "Wallet")
	require.NoError(t, readErr)
	assert.Equal(t, "1", table.Rows[0][1])
	assert.Empty(t, pub.events)
}

func TestBalancesAndInventory(t *testing.T) {
	svc, _, _ := newTestService(t, true)

	balances, err := svc.Balances(context.Background())
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, models.AccountWallet, balances[0].Account)
	assert.True(t, balances[0].Total.Equal(dec("130")))
	assert.True(t, balances[1].Total.Equal(dec("250")))

	inv, err := svc.Inventory(context.Background(), models.AccountWallet)
	require.NoError(t, err)
	require.Len(t, inv, 2)
	// Display order is descending face value; row identity is unchanged.
	assert.True(t, inv[0].FaceValue.GreaterThan(inv[1].FaceValue))

	_, err = svc.Inventory(context.Background(), models.AccountID("vault"))
	assert.ErrorIs(t, err, ErrUnknownAccount)
}

func TestHistoryResolvesFuzzyTarget(t *testing.T) {
	svc, store, _ := newTestService(t, false)
	store.Seed("Expenses and Income 2026",
		[]string{"Date", "Amount", "Tendered", "Change", "Balance", "Notes"},
		[]string{"01/01/26", "5,00 €", "-", "-", "135,00 €", "coffee"})

	table, err := svc.History(context.Background())
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "coffee", table.Rows[0][5])
}
