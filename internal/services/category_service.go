package services

import (
	"context"
	"fmt"
	"log/slog"

	"portfel/internal/core"
	"portfel/internal/storage"
)

// CategoryService manages the categories of a household.
type CategoryService struct {
	storage *storage.SQLiteRepository
}

func NewCategoryService(storage *storage.SQLiteRepository) *CategoryService {
	return &CategoryService{storage: storage}
}

// CategoryLists holds a household's categories split by kind.
type CategoryLists struct {
	Expense []core.Category
	Income  []core.Category
}

// All returns expense categories followed by income categories.
func (l CategoryLists) All() []core.Category {
	out := make([]core.Category, 0, len(l.Expense)+len(l.Income))
	out = append(out, l.Expense...)
	return append(out, l.Income...)
}

func (s *CategoryService) List(ctx context.Context, a Actor) (CategoryLists, error) {
	cats, err := s.storage.Queries().ListCategories(ctx, a.HouseholdID)
	if err != nil {
		return CategoryLists{}, err
	}
	var l CategoryLists
	for _, c := range cats {
		if c.Kind == core.KindIncome {
			l.Income = append(l.Income, c)
		} else {
			l.Expense = append(l.Expense, c)
		}
	}
	return l, nil
}

func (s *CategoryService) Get(ctx context.Context, a Actor, id int64) (core.Category, error) {
	return ownCategory(ctx, s.storage.Queries(), a, id)
}

// Create adds a category. An empty kind means expense.
func (s *CategoryService) Create(ctx context.Context, a Actor, c core.Category) (int64, error) {
	c.ID = 0
	c.HouseholdID = a.HouseholdID
	c.System = false
	if c.Kind == "" {
		c.Kind = core.KindExpense
	}
	if err := c.Validate(); err != nil {
		return 0, err
	}

	id, err := s.storage.Queries().CreateCategory(ctx, c)
	if storage.IsUniqueViolation(err) {
		return 0, core.ErrDuplicateCategory
	}
	if err != nil {
		return 0, fmt.Errorf("create category: %w", err)
	}

	slog.InfoContext(ctx, "Category created", "id", id, "name", c.Name, "kind", c.Kind)
	return id, nil
}

// Update changes the name and description of a category.
func (s *CategoryService) Update(ctx context.Context, a Actor, id int64, name, description string) error {
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		c, err := ownCategory(ctx, q, a, id)
		if err != nil {
			return err
		}
		if c.System {
			return core.ErrSystemCategory
		}
		c.Name, c.Description = name, description
		if err := c.Validate(); err != nil {
			return err
		}
		err = q.UpdateCategory(ctx, id, c.Name, c.Description)
		if storage.IsUniqueViolation(err) {
			return core.ErrDuplicateCategory
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("update category %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Category updated", "id", id)
	return nil
}

// Delete removes a category nothing refers to.
func (s *CategoryService) Delete(ctx context.Context, a Actor, id int64) error {
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		c, err := ownCategory(ctx, q, a, id)
		if err != nil {
			return err
		}
		if c.System {
			return core.ErrSystemCategory
		}
		n, err := q.CountCategoryReferences(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return core.ErrCategoryInUse
		}
		err = q.DeleteCategory(ctx, id)
		if storage.IsForeignKeyViolation(err) {
			return core.ErrCategoryInUse
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Category deleted", "id", id)
	return nil
}
