package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"portfel/internal/core"
	"portfel/internal/storage"
)

// household is a seeded household with two sub-budgets and one category of each kind.
type household struct {
	actor           Actor
	wallet, savings int64
	food, salary    int64
}

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "portfel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedHousehold(t *testing.T, repo *storage.SQLiteRepository, email string) household {
	t.Helper()
	ctx := context.Background()
	q := repo.Queries()

	uid, err := q.CreateUser(ctx, "Ada", email, "hash")
	require.NoError(t, err)
	hid, err := q.CreateHousehold(ctx, "Home", uid)
	require.NoError(t, err)
	require.NoError(t, q.AddMember(ctx, core.Member{HouseholdID: hid, UserID: uid, IsAdmin: true}))

	h := household{actor: Actor{UserID: uid, HouseholdID: hid, IsAdmin: true}}
	h.wallet, err = q.CreateSubBudget(ctx, hid, "Wallet")
	require.NoError(t, err)
	h.savings, err = q.CreateSubBudget(ctx, hid, "Savings")
	require.NoError(t, err)
	h.food, err = q.CreateCategory(ctx, core.Category{HouseholdID: hid, Name: "Food", Kind: core.KindExpense})
	require.NoError(t, err)
	h.salary, err = q.CreateCategory(ctx, core.Category{HouseholdID: hid, Name: "Salary", Kind: core.KindIncome})
	require.NoError(t, err)
	h.actor.ActiveBudgetID = h.wallet
	return h
}

func balance(t *testing.T, repo *storage.SQLiteRepository, budgetID int64) decimal.Decimal {
	t.Helper()
	b, err := repo.Queries().GetSubBudget(context.Background(), budgetID)
	require.NoError(t, err)
	return b.Balance
}

func requireBalance(t *testing.T, repo *storage.SQLiteRepository, budgetID int64, want string) {
	t.Helper()
	got := balance(t, repo, budgetID)
	require.True(t, got.Equal(decimal.RequireFromString(want)), "balance of %d = %s, want %s", budgetID, got, want)
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// recordingPublisher remembers every export request.
type recordingPublisher struct {
	mu    sync.Mutex
	calls []int64
	err   error
}

func (p *recordingPublisher) PublishExport(_ context.Context, householdID int64, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, householdID)
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}
