package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"portfel/internal/core"
)

func (q *Queries) CreateSubBudget(ctx context.Context, householdID int64, name string) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO sub_budgets (household_id, name, balance) VALUES (?, ?, ?)`,
		householdID, name, amountArg(decimal.Zero))
	if err != nil {
		return 0, fmt.Errorf("insert sub-budget: %w", err)
	}
	return res.LastInsertId()
}

const selectSubBudget = `SELECT id, household_id, name, balance FROM sub_budgets`

func (q *Queries) GetSubBudget(ctx context.Context, id int64) (core.SubBudget, error) {
	var b core.SubBudget
	err := q.db.QueryRowContext(ctx, selectSubBudget+` WHERE id = ?`, id).
		Scan(&b.ID, &b.HouseholdID, &b.Name, &b.Balance)
	if err != nil {
		return core.SubBudget{}, notFound(err, "sub-budget")
	}
	return b, nil
}

func (q *Queries) ListSubBudgets(ctx context.Context, householdID int64) ([]core.SubBudget, error) {
	rows, err := q.db.QueryContext(ctx, selectSubBudget+` WHERE household_id = ? ORDER BY id`, householdID)
	if err != nil {
		return nil, fmt.Errorf("list sub-budgets: %w", err)
	}
	defer rows.Close()

	var out []core.SubBudget
	for rows.Next() {
		var b core.SubBudget
		if err := rows.Scan(&b.ID, &b.HouseholdID, &b.Name, &b.Balance); err != nil {
			return nil, fmt.Errorf("scan sub-budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (q *Queries) UpdateBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	res, err := q.db.ExecContext(ctx, `UPDATE sub_budgets SET balance = ? WHERE id = ?`, amountArg(balance), id)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	return expectOne(res, "sub-budget")
}

func (q *Queries) RenameSubBudget(ctx context.Context, id int64, name string) error {
	res, err := q.db.ExecContext(ctx, `UPDATE sub_budgets SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("rename sub-budget: %w", err)
	}
	return expectOne(res, "sub-budget")
}

func (q *Queries) DeleteSubBudget(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM sub_budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete sub-budget: %w", err)
	}
	return expectOne(res, "sub-budget")
}

// CountSubBudgetReferences counts transactions and cyclic templates pointing at a sub-budget.
func (q *Queries) CountSubBudgetReferences(ctx context.Context, id int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM transactions WHERE sub_budget_id = ?)
		      + (SELECT COUNT(*) FROM cyclic_transactions WHERE sub_budget_id = ?)`, id, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count sub-budget references: %w", err)
	}
	return n, nil
}

func (q *Queries) CreateCategory(ctx context.Context, c core.Category) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO categories (household_id, name, description, kind, system) VALUES (?, ?, ?, ?, ?)`,
		c.HouseholdID, c.Name, c.Description, string(c.Kind), boolArg(c.System))
	if err != nil {
		return 0, fmt.Errorf("insert category: %w", err)
	}
	return res.LastInsertId()
}

const selectCategory = `SELECT id, household_id, name, description, kind, system FROM categories`

func scanCategory(scan func(...any) error) (core.Category, error) {
	var (
		c    core.Category
		kind string
	)
	if err := scan(&c.ID, &c.HouseholdID, &c.Name, &c.Description, &kind, &c.System); err != nil {
		return core.Category{}, err
	}
	c.Kind = core.Kind(kind)
	return c, nil
}

func (q *Queries) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	c, err := scanCategory(q.db.QueryRowContext(ctx, selectCategory+` WHERE id = ?`, id).Scan)
	if err != nil {
		return core.Category{}, notFound(err, "category")
	}
	return c, nil
}

func (q *Queries) GetCategoryByName(ctx context.Context, householdID int64, name string) (core.Category, error) {
	c, err := scanCategory(q.db.QueryRowContext(ctx,
		selectCategory+` WHERE household_id = ? AND name = ?`, householdID, name).Scan)
	if err != nil {
		return core.Category{}, notFound(err, "category")
	}
	return c, nil
}

func (q *Queries) ListCategories(ctx context.Context, householdID int64) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx, selectCategory+` WHERE household_id = ? ORDER BY kind, name`, householdID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (q *Queries) UpdateCategory(ctx context.Context, id int64, name, description string) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, description = ? WHERE id = ?`, name, description, id)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return expectOne(res, "category")
}

func (q *Queries) DeleteCategory(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return expectOne(res, "category")
}

func expectOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return nil
}
