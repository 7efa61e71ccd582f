package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"portfel/internal/core"
	"portfel/internal/storage"
)

// BudgetService manages the sub-budgets of a household.
type BudgetService struct {
	storage *storage.SQLiteRepository
}

func NewBudgetService(storage *storage.SQLiteRepository) *BudgetService {
	return &BudgetService{storage: storage}
}

func (s *BudgetService) List(ctx context.Context, a Actor) ([]core.SubBudget, error) {
	return s.storage.Queries().ListSubBudgets(ctx, a.HouseholdID)
}

// Get returns a sub-budget of the actor's household.
func (s *BudgetService) Get(ctx context.Context, a Actor, id int64) (core.SubBudget, error) {
	return ownBudget(ctx, s.storage.Queries(), a, id)
}

// Create adds an empty sub-budget.
func (s *BudgetService) Create(ctx context.Context, a Actor, name string) (int64, error) {
	b := core.SubBudget{HouseholdID: a.HouseholdID, Name: strings.TrimSpace(name)}
	if err := b.Validate(); err != nil {
		return 0, err
	}
	id, err := s.storage.Queries().CreateSubBudget(ctx, a.HouseholdID, b.Name)
	if err != nil {
		return 0, fmt.Errorf("create sub-budget: %w", err)
	}

	slog.InfoContext(ctx, "Sub-budget created", "id", id, "household_id", a.HouseholdID)
	return id, nil
}

func (s *BudgetService) Rename(ctx context.Context, a Actor, id int64, name string) error {
	b := core.SubBudget{Name: strings.TrimSpace(name)}
	if err := b.Validate(); err != nil {
		return err
	}
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		if _, err := ownBudget(ctx, q, a, id); err != nil {
			return err
		}
		return q.RenameSubBudget(ctx, id, b.Name)
	})
	if err != nil {
		return fmt.Errorf("rename sub-budget %d: %w", id, err)
	}
	return nil
}

// Delete removes an unused sub-budget. A household always keeps at least one.
func (s *BudgetService) Delete(ctx context.Context, a Actor, id int64) error {
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		if _, err := ownBudget(ctx, q, a, id); err != nil {
			return err
		}
		all, err := q.ListSubBudgets(ctx, a.HouseholdID)
		if err != nil {
			return err
		}
		if len(all) <= 1 {
			return core.ErrLastBudget
		}
		n, err := q.CountSubBudgetReferences(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return core.ErrBudgetInUse
		}
		err = q.DeleteSubBudget(ctx, id)
		if storage.IsForeignKeyViolation(err) {
			return core.ErrBudgetInUse
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("delete sub-budget %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Sub-budget deleted", "id", id)
	return nil
}
