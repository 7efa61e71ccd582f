package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"portfel/internal/core"
	"portfel/internal/storage"
)

// RecentLimit is how many transactions the dashboard shows.
const RecentLimit = 10

// ReportService builds the read-only views of a household.
type ReportService struct {
	storage *storage.SQLiteRepository
}

func NewReportService(storage *storage.SQLiteRepository) *ReportService {
	return &ReportService{storage: storage}
}

// Dashboard is the landing page data for one actor.
type Dashboard struct {
	Active  core.SubBudget
	Budgets []core.SubBudget
	Recent  []core.TransactionView
	Total   decimal.Decimal
}

func (s *ReportService) Dashboard(ctx context.Context, a Actor) (Dashboard, error) {
	q := s.storage.Queries()

	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := ownBudget(gctx, q, a, a.ActiveBudgetID)
		if err != nil {
			return fmt.Errorf("active sub-budget: %w", err)
		}
		d.Active = b
		return nil
	})
	g.Go(func() error {
		budgets, err := q.ListSubBudgets(gctx, a.HouseholdID)
		if err != nil {
			return err
		}
		d.Budgets = budgets
		return nil
	})
	g.Go(func() error {
		recent, err := q.ListRecentByBudget(gctx, a.ActiveBudgetID, RecentLimit)
		if err != nil {
			return err
		}
		d.Recent = recent
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	d.Total = decimal.Zero
	for _, b := range d.Budgets {
		d.Total = d.Total.Add(b.Balance)
	}
	return d, nil
}

// History returns every transaction of the household, newest first.
func (s *ReportService) History(ctx context.Context, a Actor) ([]core.TransactionView, error) {
	return s.storage.Queries().ListHouseholdTransactions(ctx, a.HouseholdID)
}

// Analysis holds expense totals per category for a household. Zero From or
// To means the range is open on that side.
type Analysis struct {
	From, To   core.Date
	ByCategory []core.CategoryAmount
	Total      decimal.Decimal
}

// Analysis totals the household's expenses per category over every
// sub-budget. Passing zero dates covers all time.
func (s *ReportService) Analysis(ctx context.Context, a Actor, from, to core.Date) (Analysis, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from.Time) {
		from, to = to, from
	}
	rows, err := s.storage.Queries().ListAmountsByCategory(ctx, a.HouseholdID, core.KindExpense, from, to)
	if err != nil {
		return Analysis{}, err
	}

	res := Analysis{From: from, To: to, Total: decimal.Zero}
	res.ByCategory = SumByCategory(rows)
	for _, c := range res.ByCategory {
		res.Total = res.Total.Add(c.Amount)
	}
	return res, nil
}

// SumByCategory merges amounts with the same category name, largest total first.
func SumByCategory(rows []core.CategoryAmount) []core.CategoryAmount {
	totals := make(map[string]decimal.Decimal)
	for _, r := range rows {
		totals[r.Name] = totals[r.Name].Add(r.Amount)
	}
	out := make([]core.CategoryAmount, 0, len(totals))
	for name, amount := range totals {
		out = append(out, core.CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Ledger returns the household's transactions as export rows, oldest first.
func (s *ReportService) Ledger(ctx context.Context, householdID int64) ([]core.LedgerRow, error) {
	views, err := s.storage.Queries().ListHouseholdTransactions(ctx, householdID)
	if err != nil {
		return nil, err
	}
	rows := make([]core.LedgerRow, len(views))
	for i, v := range views {
		rows[len(views)-1-i] = core.LedgerRow{
			Date:      v.Date,
			SubBudget: v.SubBudgetName,
			Category:  v.CategoryName,
			Kind:      v.Kind,
			Name:      v.Name,
			Amount:    v.Amount,
		}
	}
	return rows, nil
}
