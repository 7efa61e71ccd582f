package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"portfel/internal/core"
)

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (q *Queries) CreateTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO transactions (user_id, sub_budget_id, category_id, kind, name, amount, occurred_on, transfer_ref)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.SubBudgetID, t.CategoryID, string(t.Kind), t.Name, amountArg(t.Amount),
		t.Date.String(), nullString(t.TransferRef))
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	return res.LastInsertId()
}

const selectTransaction = `SELECT t.id, t.user_id, t.sub_budget_id, t.category_id, t.kind, t.name, t.amount, t.occurred_on, t.transfer_ref
	FROM transactions t`

func scanTransaction(scan func(...any) error, extra ...any) (core.Transaction, error) {
	var (
		t    core.Transaction
		kind string
		date string
		ref  sql.NullString
	)
	dest := append([]any{&t.ID, &t.UserID, &t.SubBudgetID, &t.CategoryID, &kind, &t.Name, &t.Amount, &date, &ref}, extra...)
	if err := scan(dest...); err != nil {
		return core.Transaction{}, err
	}
	d, err := parseDateColumn(date)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Kind = core.Kind(kind)
	t.Date = d
	t.TransferRef = ref.String
	return t, nil
}

func (q *Queries) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	t, err := scanTransaction(q.db.QueryRowContext(ctx, selectTransaction+` WHERE t.id = ?`, id).Scan)
	if err != nil {
		return core.Transaction{}, notFound(err, "transaction")
	}
	return t, nil
}

// UpdateTransaction rewrites every editable column. TransferRef is left untouched.
func (q *Queries) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE transactions SET sub_budget_id = ?, category_id = ?, kind = ?, name = ?, amount = ?, occurred_on = ?
		 WHERE id = ?`,
		t.SubBudgetID, t.CategoryID, string(t.Kind), t.Name, amountArg(t.Amount), t.Date.String(), t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return expectOne(res, "transaction")
}

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return expectOne(res, "transaction")
}

func (q *Queries) listTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListTransfer returns both legs of a transfer, outgoing leg first.
func (q *Queries) ListTransfer(ctx context.Context, ref string) ([]core.Transaction, error) {
	return q.listTransactions(ctx,
		selectTransaction+` WHERE t.transfer_ref = ? ORDER BY CASE t.kind WHEN 'expense' THEN 0 ELSE 1 END, t.id`, ref)
}

// ListBudgetTransactions returns every transaction of a sub-budget, oldest first.
func (q *Queries) ListBudgetTransactions(ctx context.Context, budgetID int64) ([]core.Transaction, error) {
	return q.listTransactions(ctx,
		selectTransaction+` WHERE t.sub_budget_id = ? ORDER BY t.occurred_on, t.id`, budgetID)
}

const selectTransactionView = `SELECT t.id, t.user_id, t.sub_budget_id, t.category_id, t.kind, t.name, t.amount, t.occurred_on, t.transfer_ref,
	c.name, b.name
	FROM transactions t
	JOIN categories c ON c.id = t.category_id
	JOIN sub_budgets b ON b.id = t.sub_budget_id`

func (q *Queries) listViews(ctx context.Context, query string, args ...any) ([]core.TransactionView, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.TransactionView
	for rows.Next() {
		var v core.TransactionView
		t, err := scanTransaction(rows.Scan, &v.CategoryName, &v.SubBudgetName)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		v.Transaction = t
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListRecentByBudget returns the newest transactions of a sub-budget.
func (q *Queries) ListRecentByBudget(ctx context.Context, budgetID int64, limit int) ([]core.TransactionView, error) {
	return q.listViews(ctx,
		selectTransactionView+` WHERE t.sub_budget_id = ? ORDER BY t.occurred_on DESC, t.id DESC LIMIT ?`,
		budgetID, limit)
}

// ListHouseholdTransactions returns every transaction of a household, newest first.
func (q *Queries) ListHouseholdTransactions(ctx context.Context, householdID int64) ([]core.TransactionView, error) {
	return q.listViews(ctx,
		selectTransactionView+` WHERE b.household_id = ? ORDER BY t.occurred_on DESC, t.id DESC`, householdID)
}

// ListAmountsByCategory returns the category name and amount of each
// transaction of the given kind across a household's sub-budgets. A zero from
// or to leaves that end of the range open.
// Summing happens in Go so amounts never pass through floating point.
func (q *Queries) ListAmountsByCategory(ctx context.Context, householdID int64, kind core.Kind, from, to core.Date) ([]core.CategoryAmount, error) {
	query := `SELECT c.name, t.amount FROM transactions t
		 JOIN categories c ON c.id = t.category_id
		 JOIN sub_budgets b ON b.id = t.sub_budget_id
		 WHERE b.household_id = ? AND t.kind = ?`
	args := []any{householdID, string(kind)}
	if !from.IsZero() {
		query += ` AND t.occurred_on >= ?`
		args = append(args, from.String())
	}
	if !to.IsZero() {
		query += ` AND t.occurred_on <= ?`
		args = append(args, to.String())
	}
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list amounts: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryAmount
	for rows.Next() {
		var ca core.CategoryAmount
		if err := rows.Scan(&ca.Name, &ca.Amount); err != nil {
			return nil, fmt.Errorf("scan amount: %w", err)
		}
		out = append(out, ca)
	}
	return out, rows.Err()
}

// CountCategoryReferences counts transactions and cyclic templates using a category.
func (q *Queries) CountCategoryReferences(ctx context.Context, id int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM transactions WHERE category_id = ?)
		      + (SELECT COUNT(*) FROM cyclic_transactions WHERE category_id = ?)`, id, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count category references: %w", err)
	}
	return n, nil
}

func (q *Queries) CreateCyclic(ctx context.Context, c core.CyclicTransaction) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO cyclic_transactions (user_id, sub_budget_id, category_id, kind, name, amount, start_date, next_due_date, period)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.UserID, c.SubBudgetID, c.CategoryID, string(c.Kind), c.Name, amountArg(c.Amount),
		c.StartDate.String(), c.NextDueDate.String(), string(c.Period))
	if err != nil {
		return 0, fmt.Errorf("insert cyclic transaction: %w", err)
	}
	return res.LastInsertId()
}

const selectCyclic = `SELECT y.id, y.user_id, y.sub_budget_id, y.category_id, y.kind, y.name, y.amount, y.start_date, y.next_due_date, y.period
	FROM cyclic_transactions y`

func scanCyclic(scan func(...any) error, extra ...any) (core.CyclicTransaction, error) {
	var (
		c           core.CyclicTransaction
		kind, per   string
		start, next string
	)
	dest := append([]any{&c.ID, &c.UserID, &c.SubBudgetID, &c.CategoryID, &kind, &c.Name, &c.Amount, &start, &next, &per}, extra...)
	if err := scan(dest...); err != nil {
		return core.CyclicTransaction{}, err
	}
	var err error
	if c.StartDate, err = parseDateColumn(start); err != nil {
		return core.CyclicTransaction{}, err
	}
	if c.NextDueDate, err = parseDateColumn(next); err != nil {
		return core.CyclicTransaction{}, err
	}
	c.Kind = core.Kind(kind)
	c.Period = core.Period(per)
	return c, nil
}

func (q *Queries) GetCyclic(ctx context.Context, id int64) (core.CyclicTransaction, error) {
	c, err := scanCyclic(q.db.QueryRowContext(ctx, selectCyclic+` WHERE y.id = ?`, id).Scan)
	if err != nil {
		return core.CyclicTransaction{}, notFound(err, "cyclic transaction")
	}
	return c, nil
}

func (q *Queries) UpdateCyclic(ctx context.Context, c core.CyclicTransaction) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE cyclic_transactions SET sub_budget_id = ?, category_id = ?, kind = ?, name = ?, amount = ?,
		 start_date = ?, next_due_date = ?, period = ? WHERE id = ?`,
		c.SubBudgetID, c.CategoryID, string(c.Kind), c.Name, amountArg(c.Amount),
		c.StartDate.String(), c.NextDueDate.String(), string(c.Period), c.ID)
	if err != nil {
		return fmt.Errorf("update cyclic transaction: %w", err)
	}
	return expectOne(res, "cyclic transaction")
}

func (q *Queries) DeleteCyclic(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM cyclic_transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete cyclic transaction: %w", err)
	}
	return expectOne(res, "cyclic transaction")
}

// ListCyclicByHousehold returns the household's templates ordered by next due date.
func (q *Queries) ListCyclicByHousehold(ctx context.Context, householdID int64) ([]core.CyclicView, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT y.id, y.user_id, y.sub_budget_id, y.category_id, y.kind, y.name, y.amount, y.start_date, y.next_due_date, y.period,
		        c.name, b.name
		 FROM cyclic_transactions y
		 JOIN categories c ON c.id = y.category_id
		 JOIN sub_budgets b ON b.id = y.sub_budget_id
		 WHERE b.household_id = ?
		 ORDER BY y.next_due_date, y.id`, householdID)
	if err != nil {
		return nil, fmt.Errorf("list cyclic transactions: %w", err)
	}
	defer rows.Close()

	var out []core.CyclicView
	for rows.Next() {
		var v core.CyclicView
		c, err := scanCyclic(rows.Scan, &v.CategoryName, &v.SubBudgetName)
		if err != nil {
			return nil, fmt.Errorf("scan cyclic transaction: %w", err)
		}
		v.CyclicTransaction = c
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListDueCyclic returns every template whose next due date is on or before today.
// Dates are stored as YYYY-MM-DD so string comparison orders them correctly.
func (q *Queries) ListDueCyclic(ctx context.Context, today core.Date) ([]core.CyclicTransaction, error) {
	rows, err := q.db.QueryContext(ctx, selectCyclic+` WHERE y.next_due_date <= ? ORDER BY y.id`, today.String())
	if err != nil {
		return nil, fmt.Errorf("list due cyclic transactions: %w", err)
	}
	defer rows.Close()

	var out []core.CyclicTransaction
	for rows.Next() {
		c, err := scanCyclic(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan cyclic transaction: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (q *Queries) UpdateNextDueDate(ctx context.Context, id int64, next core.Date) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE cyclic_transactions SET next_due_date = ? WHERE id = ?`, next.String(), id)
	if err != nil {
		return fmt.Errorf("update next due date: %w", err)
	}
	return expectOne(res, "cyclic transaction")
}

// SumBalances returns the total balance of a household across sub-budgets.
func (q *Queries) SumBalances(ctx context.Context, householdID int64) (decimal.Decimal, error) {
	budgets, err := q.ListSubBudgets(ctx, householdID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, b := range budgets {
		total = total.Add(b.Balance)
	}
	return total, nil
}
