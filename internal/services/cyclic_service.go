package services

import (
	"context"
	"fmt"
	"log/slog"

	"portfel/internal/core"
	"portfel/internal/storage"
)

// CyclicService manages cyclic transaction templates.
type CyclicService struct {
	storage *storage.SQLiteRepository
	today   func() core.Date
}

func NewCyclicService(storage *storage.SQLiteRepository) *CyclicService {
	return &CyclicService{storage: storage, today: core.Today}
}

func (s *CyclicService) List(ctx context.Context, a Actor) ([]core.CyclicView, error) {
	return s.storage.Queries().ListCyclicByHousehold(ctx, a.HouseholdID)
}

func (s *CyclicService) Get(ctx context.Context, a Actor, id int64) (core.CyclicTransaction, error) {
	q := s.storage.Queries()
	c, err := q.GetCyclic(ctx, id)
	if err != nil {
		return core.CyclicTransaction{}, err
	}
	if _, err := ownBudget(ctx, q, a, c.SubBudgetID); err != nil {
		return core.CyclicTransaction{}, err
	}
	return c, nil
}

// Create stores a template whose first occurrence is its start date.
func (s *CyclicService) Create(ctx context.Context, a Actor, c core.CyclicTransaction) (int64, error) {
	c.ID = 0
	c.UserID = a.UserID
	c.NextDueDate = c.StartDate
	if err := c.Validate(); err != nil {
		return 0, err
	}

	var id int64
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		if _, err := ownBudget(ctx, q, a, c.SubBudgetID); err != nil {
			return err
		}
		if _, err := ownCategory(ctx, q, a, c.CategoryID); err != nil {
			return err
		}
		var err error
		id, err = q.CreateCyclic(ctx, c)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("create cyclic transaction: %w", err)
	}

	slog.InfoContext(ctx, "Cyclic transaction created",
		"id", id, "name", c.Name, "period", c.Period, "start_date", c.StartDate.String())
	return id, nil
}

// Update rewrites a template. Moving the start date into the future restarts
// the schedule there; otherwise the pending due date is kept.
func (s *CyclicService) Update(ctx context.Context, a Actor, id int64, c core.CyclicTransaction) error {
	if err := c.Validate(); err != nil {
		return err
	}

	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		old, err := q.GetCyclic(ctx, id)
		if err != nil {
			return err
		}
		if _, err := ownBudget(ctx, q, a, old.SubBudgetID); err != nil {
			return err
		}
		if _, err := ownBudget(ctx, q, a, c.SubBudgetID); err != nil {
			return err
		}
		if _, err := ownCategory(ctx, q, a, c.CategoryID); err != nil {
			return err
		}

		c.ID = old.ID
		c.UserID = old.UserID
		c.NextDueDate = old.NextDueDate
		if !c.StartDate.OnOrBefore(s.today()) {
			c.NextDueDate = c.StartDate
		}
		return q.UpdateCyclic(ctx, c)
	})
	if err != nil {
		return fmt.Errorf("update cyclic transaction %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Cyclic transaction updated", "id", id)
	return nil
}

// Delete removes a template. Transactions it already produced are kept.
func (s *CyclicService) Delete(ctx context.Context, a Actor, id int64) error {
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		c, err := q.GetCyclic(ctx, id)
		if err != nil {
			return err
		}
		if _, err := ownBudget(ctx, q, a, c.SubBudgetID); err != nil {
			return err
		}
		return q.DeleteCyclic(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete cyclic transaction %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Cyclic transaction deleted", "id", id)
	return nil
}
