package services

import (
	"context"
	"fmt"
	"log/slog"

	"portfel/internal/core"
	"portfel/internal/storage"
)

// MaxCatchUpIterations bounds how many transactions a single template can
// produce in one run.
const MaxCatchUpIterations = 50

// CatchUpReport summarises one run of the cyclic processor.
type CatchUpReport struct {
	Templates int
	Generated int
	// Truncated lists templates that hit MaxCatchUpIterations and are still overdue.
	Truncated []int64
}

// CyclicProcessor materialises overdue cyclic transactions.
type CyclicProcessor struct {
	storage   *storage.SQLiteRepository
	publisher LedgerPublisher
}

func NewCyclicProcessor(storage *storage.SQLiteRepository, publisher LedgerPublisher) *CyclicProcessor {
	return &CyclicProcessor{
		storage:   storage,
		publisher: publisher,
	}
}

// Run catches every template up to today. Each overdue occurrence becomes a
// transaction dated at its due date, with its effect applied to the
// sub-budget, and the template moves to its next due date. Everything
// commits in one database transaction.
func (p *CyclicProcessor) Run(ctx context.Context, today core.Date) (CatchUpReport, error) {
	if p.storage == nil {
		return CatchUpReport{}, fmt.Errorf("processor not properly initialized")
	}

	var report CatchUpReport
	households := make(map[int64]struct{})

	err := p.storage.InTx(ctx, func(q *storage.Queries) error {
		due, err := q.ListDueCyclic(ctx, today)
		if err != nil {
			return err
		}
		report.Templates = len(due)

		slog.InfoContext(ctx, "Processing cyclic transactions",
			"due_templates", len(due),
			"today", today.String())

		for _, c := range due {
			n, truncated, err := catchUp(ctx, q, c, today)
			if err != nil {
				return fmt.Errorf("cyclic transaction %d: %w", c.ID, err)
			}
			report.Generated += n
			if truncated {
				report.Truncated = append(report.Truncated, c.ID)
			}

			b, err := q.GetSubBudget(ctx, c.SubBudgetID)
			if err != nil {
				return err
			}
			households[b.HouseholdID] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return CatchUpReport{}, fmt.Errorf("cyclic catch-up: %w", err)
	}

	for id := range households {
		if err := publish(ctx, p.publisher, id, "cyclic catch-up"); err != nil {
			slog.ErrorContext(ctx, "Failed to publish ledger export",
				"household_id", id, "error", err)
		}
	}

	slog.InfoContext(ctx, "Cyclic catch-up complete",
		"generated", report.Generated,
		"templates", report.Templates,
		"truncated", len(report.Truncated))

	return report, nil
}

// catchUp materialises the overdue occurrences of one template and persists
// its new due date. It reports whether the iteration cap stopped it early.
func catchUp(ctx context.Context, q *storage.Queries, c core.CyclicTransaction, today core.Date) (int, bool, error) {
	advancer := AdvancerFor(c.Period)

	n := 0
	for ; n < MaxCatchUpIterations && c.NextDueDate.OnOrBefore(today); n++ {
		t := c.Materialize()

		b, err := q.GetSubBudget(ctx, t.SubBudgetID)
		if err != nil {
			return n, false, err
		}
		if err := q.UpdateBalance(ctx, b.ID, core.Apply(b.Balance, t)); err != nil {
			return n, false, err
		}
		if _, err := q.CreateTransaction(ctx, t); err != nil {
			return n, false, err
		}

		c.NextDueDate = advancer.Next(c.NextDueDate)
	}

	if err := q.UpdateNextDueDate(ctx, c.ID, c.NextDueDate); err != nil {
		return n, false, err
	}

	truncated := c.NextDueDate.OnOrBefore(today)
	if truncated {
		slog.WarnContext(ctx, "Cyclic catch-up truncated",
			"cyclic_id", c.ID,
			"name", c.Name,
			"generated", n,
			"next_due_date", c.NextDueDate.String())
	} else if n > 0 {
		slog.InfoContext(ctx, "Created transactions from cyclic template",
			"cyclic_id", c.ID,
			"name", c.Name,
			"generated", n,
			"period", c.Period,
			"next_due_date", c.NextDueDate.String())
	}
	return n, truncated, nil
}
