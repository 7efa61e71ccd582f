// Package services holds the business rules of portfel: balance mutation,
// cyclic catch-up, and the household-scoped CRUD built around them.
package services

import (
	"context"
	"errors"
	"fmt"

	"portfel/internal/auth"
	"portfel/internal/core"
	"portfel/internal/storage"
)

// Actor is the authenticated user a request runs as, together with the
// sub-budget they currently have selected. It is resolved once per request
// and passed explicitly to every service call.
type Actor struct {
	UserID         int64
	HouseholdID    int64
	ActiveBudgetID int64
	IsAdmin        bool
}

// LedgerPublisher announces that a household's ledger changed.
type LedgerPublisher interface {
	PublishExport(ctx context.Context, householdID int64, reason string) error
}

// ownBudget loads a sub-budget and checks it belongs to the actor's household.
func ownBudget(ctx context.Context, q *storage.Queries, a Actor, id int64) (core.SubBudget, error) {
	if id <= 0 {
		return core.SubBudget{}, core.ErrMissingBudget
	}
	b, err := q.GetSubBudget(ctx, id)
	if err != nil {
		return core.SubBudget{}, err
	}
	if b.HouseholdID != a.HouseholdID {
		return core.SubBudget{}, fmt.Errorf("sub-budget %d: %w", id, core.ErrForbidden)
	}
	return b, nil
}

func ownCategory(ctx context.Context, q *storage.Queries, a Actor, id int64) (core.Category, error) {
	if id <= 0 {
		return core.Category{}, core.ErrMissingCategory
	}
	c, err := q.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, err
	}
	if c.HouseholdID != a.HouseholdID {
		return core.Category{}, fmt.Errorf("category %d: %w", id, core.ErrForbidden)
	}
	return c, nil
}

// ownTransaction loads a transaction and checks its sub-budget belongs to the actor's household.
func ownTransaction(ctx context.Context, q *storage.Queries, a Actor, id int64) (core.Transaction, core.SubBudget, error) {
	t, err := q.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, core.SubBudget{}, err
	}
	b, err := ownBudget(ctx, q, a, t.SubBudgetID)
	if err != nil {
		return core.Transaction{}, core.SubBudget{}, err
	}
	return t, b, nil
}

// publish notifies the ledger publisher, if any. Failures are logged by the
// caller and never undo a committed change.
func publish(ctx context.Context, p LedgerPublisher, householdID int64, reason string) error {
	if p == nil {
		return nil
	}
	return p.PublishExport(ctx, householdID, reason)
}

// IsUserError reports whether err is a validation or permission problem the
// user can fix, as opposed to an internal failure.
func IsUserError(err error) bool {
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

var userErrors = []error{
	core.ErrInvalidAmount, core.ErrInvalidKind, core.ErrInvalidPeriod, core.ErrInvalidDate,
	core.ErrEmptyName, core.ErrNameTooLong, core.ErrMissingBudget, core.ErrMissingCategory,
	core.ErrNotFound, core.ErrForbidden, core.ErrSameBudget, core.ErrTransferLeg,
	core.ErrNotTransfer, core.ErrSystemCategory, core.ErrDuplicateCategory, core.ErrReservedCategory, core.ErrCategoryInUse,
	core.ErrBudgetInUse, core.ErrLastBudget, core.ErrEmailTaken, core.ErrInvalidEmail,
	core.ErrWeakPassword, core.ErrBadCredentials, core.ErrNoHousehold,
	ErrHouseholdNameRequired, ErrBadInvite, auth.ErrInvalidToken, auth.ErrExpiredToken,
}
