package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"portfel/internal/core"
	"portfel/internal/storage"
)

// TransactionService applies the balance-mutation rule: every change to a
// transaction updates its sub-budget balance by the signed amount inside the
// same database transaction.
type TransactionService struct {
	storage   *storage.SQLiteRepository
	publisher LedgerPublisher
}

func NewTransactionService(storage *storage.SQLiteRepository, publisher LedgerPublisher) *TransactionService {
	return &TransactionService{
		storage:   storage,
		publisher: publisher,
	}
}

// TransferRequest moves Amount from one sub-budget to another on Date.
type TransferRequest struct {
	FromBudgetID int64
	ToBudgetID   int64
	Amount       decimal.Decimal
	Date         core.Date
}

// Get returns a transaction of the actor's household.
func (s *TransactionService) Get(ctx context.Context, a Actor, id int64) (core.Transaction, error) {
	t, _, err := ownTransaction(ctx, s.storage.Queries(), a, id)
	return t, err
}

// Add records a new transaction and applies its effect to the sub-budget balance.
func (s *TransactionService) Add(ctx context.Context, a Actor, t core.Transaction) (int64, error) {
	t.ID = 0
	t.UserID = a.UserID
	t.TransferRef = ""
	if err := t.Validate(); err != nil {
		return 0, err
	}

	var id int64
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		b, err := ownBudget(ctx, q, a, t.SubBudgetID)
		if err != nil {
			return err
		}
		if _, err := ownCategory(ctx, q, a, t.CategoryID); err != nil {
			return err
		}
		if err := q.UpdateBalance(ctx, b.ID, core.Apply(b.Balance, t)); err != nil {
			return err
		}
		id, err = q.CreateTransaction(ctx, t)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("add transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction added",
		"id", id,
		"sub_budget_id", t.SubBudgetID,
		"kind", t.Kind,
		"amount", t.Amount.StringFixed(2))
	s.notify(ctx, a.HouseholdID, "transaction added")
	return id, nil
}

// Edit replaces the fields of an existing transaction. The old amount is
// reversed on the old sub-budget before the new amount is applied to the
// new one, which may be the same sub-budget.
func (s *TransactionService) Edit(ctx context.Context, a Actor, id int64, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}

	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		old, oldBudget, err := ownTransaction(ctx, q, a, id)
		if err != nil {
			return err
		}
		if old.IsTransferLeg() {
			return core.ErrTransferLeg
		}
		if _, err := ownCategory(ctx, q, a, t.CategoryID); err != nil {
			return err
		}

		if err := q.UpdateBalance(ctx, oldBudget.ID, core.Reverse(oldBudget.Balance, old)); err != nil {
			return err
		}
		// Re-read so the same-budget case sees the reversed balance.
		newBudget, err := ownBudget(ctx, q, a, t.SubBudgetID)
		if err != nil {
			return err
		}
		if err := q.UpdateBalance(ctx, newBudget.ID, core.Apply(newBudget.Balance, t)); err != nil {
			return err
		}

		t.ID = old.ID
		t.UserID = old.UserID
		return q.UpdateTransaction(ctx, t)
	})
	if err != nil {
		return fmt.Errorf("edit transaction %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Transaction edited", "id", id, "sub_budget_id", t.SubBudgetID)
	s.notify(ctx, a.HouseholdID, "transaction edited")
	return nil
}

// Delete removes a transaction and reverses its effect. Transfer legs must be
// removed together through DeleteTransfer.
func (s *TransactionService) Delete(ctx context.Context, a Actor, id int64) error {
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		t, b, err := ownTransaction(ctx, q, a, id)
		if err != nil {
			return err
		}
		if t.IsTransferLeg() {
			return core.ErrTransferLeg
		}
		if err := q.UpdateBalance(ctx, b.ID, core.Reverse(b.Balance, t)); err != nil {
			return err
		}
		return q.DeleteTransaction(ctx, t.ID)
	})
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	s.notify(ctx, a.HouseholdID, "transaction deleted")
	return nil
}

// Transfer moves money between two sub-budgets of the actor's household as a
// paired expense and income sharing one transfer reference.
func (s *TransactionService) Transfer(ctx context.Context, a Actor, r TransferRequest) (string, error) {
	if r.FromBudgetID == r.ToBudgetID {
		return "", core.ErrSameBudget
	}
	if err := core.ValidateAmount(r.Amount); err != nil {
		return "", err
	}
	if err := r.Date.Validate(); err != nil {
		return "", err
	}

	ref := uuid.NewString()
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		from, err := ownBudget(ctx, q, a, r.FromBudgetID)
		if err != nil {
			return err
		}
		to, err := ownBudget(ctx, q, a, r.ToBudgetID)
		if err != nil {
			return err
		}
		outCat, err := systemCategory(ctx, q, a.HouseholdID, core.TransferOutCategory, core.KindExpense)
		if err != nil {
			return err
		}
		inCat, err := systemCategory(ctx, q, a.HouseholdID, core.TransferInCategory, core.KindIncome)
		if err != nil {
			return err
		}

		legs := []struct {
			budget core.SubBudget
			tx     core.Transaction
		}{
			{from, core.Transaction{
				SubBudgetID: from.ID,
				CategoryID:  outCat.ID,
				Kind:        core.KindExpense,
				Name:        "Transfer to: " + to.Name,
			}},
			{to, core.Transaction{
				SubBudgetID: to.ID,
				CategoryID:  inCat.ID,
				Kind:        core.KindIncome,
				Name:        "Transfer from: " + from.Name,
			}},
		}
		for _, leg := range legs {
			leg.tx.UserID = a.UserID
			leg.tx.Amount = r.Amount
			leg.tx.Date = r.Date
			leg.tx.TransferRef = ref
			if err := q.UpdateBalance(ctx, leg.budget.ID, core.Apply(leg.budget.Balance, leg.tx)); err != nil {
				return err
			}
			if _, err := q.CreateTransaction(ctx, leg.tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("transfer: %w", err)
	}

	slog.InfoContext(ctx, "Transfer recorded",
		"transfer_ref", ref,
		"from", r.FromBudgetID,
		"to", r.ToBudgetID,
		"amount", r.Amount.StringFixed(2))
	s.notify(ctx, a.HouseholdID, "transfer recorded")
	return ref, nil
}

// DeleteTransfer removes both legs of a transfer and reverses both effects.
func (s *TransactionService) DeleteTransfer(ctx context.Context, a Actor, ref string) error {
	if ref == "" {
		return core.ErrNotTransfer
	}
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		legs, err := q.ListTransfer(ctx, ref)
		if err != nil {
			return err
		}
		if len(legs) == 0 {
			return core.ErrNotFound
		}
		for _, t := range legs {
			b, err := ownBudget(ctx, q, a, t.SubBudgetID)
			if err != nil {
				return err
			}
			if err := q.UpdateBalance(ctx, b.ID, core.Reverse(b.Balance, t)); err != nil {
				return err
			}
			if err := q.DeleteTransaction(ctx, t.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete transfer %s: %w", ref, err)
	}

	slog.InfoContext(ctx, "Transfer deleted", "transfer_ref", ref)
	s.notify(ctx, a.HouseholdID, "transfer deleted")
	return nil
}

// systemCategory returns the household's transfer category, creating it on
// first use. A user category holding the name, possible in databases written
// before the names were reserved, is never used for transfer legs.
func systemCategory(ctx context.Context, q *storage.Queries, householdID int64, name string, kind core.Kind) (core.Category, error) {
	c, err := q.GetCategoryByName(ctx, householdID, name)
	switch {
	case err == nil && c.System && c.Kind == kind:
		return c, nil
	case err == nil:
		return core.Category{}, fmt.Errorf("category %q: %w", name, core.ErrReservedCategory)
	case !errors.Is(err, core.ErrNotFound):
		return core.Category{}, err
	}

	c = core.Category{
		HouseholdID: householdID,
		Name:        name,
		Description: core.TransferCategoryDescription,
		Kind:        kind,
		System:      true,
	}
	c.ID, err = q.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("create %q category: %w", name, err)
	}
	return c, nil
}

func (s *TransactionService) notify(ctx context.Context, householdID int64, reason string) {
	if err := publish(ctx, s.publisher, householdID, reason); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger export",
			"household_id", householdID, "error", err)
	}
}
