package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"portfel/internal/core"
	"portfel/internal/storage"
)

func createTemplate(t *testing.T, repo *storage.SQLiteRepository, h household, period core.Period, start core.Date, amt string) int64 {
	t.Helper()
	id, err := repo.Queries().CreateCyclic(context.Background(), core.CyclicTransaction{
		UserID:      h.actor.UserID,
		SubBudgetID: h.wallet,
		CategoryID:  h.food,
		Kind:        core.KindExpense,
		Name:        "Rent",
		Amount:      amount(amt),
		StartDate:   start,
		NextDueDate: start,
		Period:      period,
	})
	require.NoError(t, err)
	return id
}

func nextDue(t *testing.T, repo *storage.SQLiteRepository, id int64) string {
	t.Helper()
	c, err := repo.Queries().GetCyclic(context.Background(), id)
	require.NoError(t, err)
	return c.NextDueDate.String()
}

func TestNewCyclicProcessor_NilStorage(t *testing.T) {
	_, err := NewCyclicProcessor(nil, nil).Run(context.Background(), core.NewDate(2024, 1, 1))
	require.Error(t, err)
}

func TestCatchUpMonthly(t *testing.T) {
	repo := newTestRepo(t)
	h := seedHousehold(t, repo, "ada@example.com")
	pub := &recordingPublisher{}
	id := createTemplate(t, repo, h, core.Monthly, core.NewDate(2024, 1, 1), "500")

	report, err := NewCyclicProcessor(repo, pub).Run(context.Background(), core.NewDate(2024, 4, 15))
	require.NoError(t, err)
	require.Equal(t, 1, report.Templates)
	require.Equal(t, 4, report.Generated)
	require.Empty(t, report.Truncated)

	require.Equal(t, "2024-05-01", nextDue(t, repo, id))
	requireBalance(t, repo, h.wallet, "-2000")

	txs, err := repo.Queries().ListBudgetTransactions(context.Background(), h.wallet)
	require.NoError(t, err)
	require.Len(t, txs, 4)
	for i, want := range []string{"2024-01-01", "2024-02-01", "2024-03-01", "2024-04-01"} {
		require.Equal(t, want, txs[i].Date.String())
		require.Equal(t, "Rent (recurring)", txs[i].Name)
	}
	require.Equal(t, []int64{h.actor.HouseholdID}, pub.calls)

	// a second run on the same day is a no-op
	report, err = NewCyclicProcessor(repo, pub).Run(context.Background(), core.NewDate(2024, 4, 15))
	require.NoError(t, err)
	require.Zero(t, report.Generated)
	require.Equal(t, 1, pub.count())
}

func TestCatchUpPeriods(t *testing.T) {
	tests := []struct {
		name      string
		period    core.Period
		start     core.Date
		today     core.Date
		generated int
		next      string
	}{
		{"weekly", core.Weekly, core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 29), 5, "2024-02-05"},
		{"yearly", core.Yearly, core.NewDate(2021, 6, 30), core.NewDate(2024, 1, 1), 3, "2024-06-30"},
		{"due today", core.Monthly, core.NewDate(2024, 3, 10), core.NewDate(2024, 3, 10), 1, "2024-04-10"},
		{"future start", core.Monthly, core.NewDate(2024, 5, 1), core.NewDate(2024, 3, 10), 0, "2024-05-01"},
		{"month end drift", core.Monthly, core.NewDate(2024, 1, 31), core.NewDate(2024, 3, 31), 3, "2024-04-29"},
		{"unknown period is monthly", core.Period("fortnightly"), core.NewDate(2024, 1, 1), core.NewDate(2024, 2, 1), 2, "2024-03-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newTestRepo(t)
			h := seedHousehold(t, repo, "ada@example.com")
			id := createTemplate(t, repo, h, tt.period, tt.start, "1")

			report, err := NewCyclicProcessor(repo, nil).Run(context.Background(), tt.today)
			require.NoError(t, err)
			require.Equal(t, tt.generated, report.Generated)
			require.Equal(t, tt.next, nextDue(t, repo, id))
		})
	}
}

func TestCatchUpIsCapped(t *testing.T) {
	repo := newTestRepo(t)
	h := seedHousehold(t, repo, "ada@example.com")
	id := createTemplate(t, repo, h, core.Weekly, core.NewDate(2020, 1, 6), "1")
	today := core.NewDate(2024, 1, 1)
	p := NewCyclicProcessor(repo, nil)

	report, err := p.Run(context.Background(), today)
	require.NoError(t, err)
	require.Equal(t, MaxCatchUpIterations, report.Generated)
	require.Equal(t, []int64{id}, report.Truncated)
	requireBalance(t, repo, h.wallet, "-50")

	// 50 weeks after 2020-01-06
	require.Equal(t, "2020-12-21", nextDue(t, repo, id))

	// the next run resumes where the previous one stopped
	report, err = p.Run(context.Background(), today)
	require.NoError(t, err)
	require.Equal(t, MaxCatchUpIterations, report.Generated)
	requireBalance(t, repo, h.wallet, "-100")
}

func TestCatchUpIncomeTemplate(t *testing.T) {
	repo := newTestRepo(t)
	h := seedHousehold(t, repo, "ada@example.com")
	_, err := repo.Queries().CreateCyclic(context.Background(), core.CyclicTransaction{
		UserID:      h.actor.UserID,
		SubBudgetID: h.savings,
		CategoryID:  h.salary,
		Kind:        core.KindIncome,
		Name:        "Pay",
		Amount:      amount("2500.50"),
		StartDate:   core.NewDate(2024, 1, 25),
		NextDueDate: core.NewDate(2024, 1, 25),
		Period:      core.Monthly,
	})
	require.NoError(t, err)

	_, err = NewCyclicProcessor(repo, nil).Run(context.Background(), core.NewDate(2024, 2, 26))
	require.NoError(t, err)
	requireBalance(t, repo, h.savings, "5001")
	requireBalance(t, repo, h.wallet, "0")
}
