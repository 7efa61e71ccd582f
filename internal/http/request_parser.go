// Package http provides HTTP server and handler implementations.
//
// This file turns submitted forms into domain values. Parsing only converts
// and trims; validation stays with the domain types and services.

package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"portfel/internal/core"
	"portfel/internal/services"
)

// DateRange is the period an analysis covers. A zero bound is open.
type DateRange struct {
	From core.Date
	To   core.Date
}

// ParseDateRange reads "from" and "to" from the query. Missing or invalid
// values leave that bound open.
func ParseDateRange(query url.Values) DateRange {
	var dr DateRange
	if d, err := core.ParseDate(strings.TrimSpace(query.Get("from"))); err == nil {
		dr.From = d
	}
	if d, err := core.ParseDate(strings.TrimSpace(query.Get("to"))); err == nil {
		dr.To = d
	}
	return dr
}

// formDate parses key as YYYY-MM-DD, returning fallback when the field is empty.
func formDate(form url.Values, key string, fallback core.Date) (core.Date, error) {
	v := strings.TrimSpace(form.Get(key))
	if v == "" {
		return fallback, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, fmt.Errorf("%s: %w", key, core.ErrInvalidDate)
	}
	return d, nil
}

// formID parses key as an id. Empty or malformed values give zero, which the
// domain rejects as a missing reference.
func formID(form url.Values, key string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(form.Get(key)), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

// formKind parses the transaction type, defaulting to expense.
func formKind(form url.Values) (core.Kind, error) {
	v := strings.TrimSpace(form.Get("kind"))
	if v == "" {
		return core.KindExpense, nil
	}
	return core.ParseKind(v)
}

// ParseTransactionForm reads a transaction form. The sub-budget defaults to
// the actor's active one and the date to today.
func ParseTransactionForm(form url.Values, a services.Actor, today core.Date) (core.Transaction, error) {
	kind, err := formKind(form)
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(form.Get("amount"))
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := formDate(form, "date", today)
	if err != nil {
		return core.Transaction{}, err
	}
	budgetID := formID(form, "sub_budget_id")
	if budgetID == 0 {
		budgetID = a.ActiveBudgetID
	}
	return core.Transaction{
		SubBudgetID: budgetID,
		CategoryID:  formID(form, "category_id"),
		Kind:        kind,
		Name:        sanitizeInput(form.Get("name")),
		Amount:      amount,
		Date:        date,
	}, nil
}

// ParseCyclicForm reads a cyclic transaction form.
func ParseCyclicForm(form url.Values, a services.Actor, today core.Date) (core.CyclicTransaction, error) {
	kind, err := formKind(form)
	if err != nil {
		return core.CyclicTransaction{}, err
	}
	amount, err := core.ParseAmount(form.Get("amount"))
	if err != nil {
		return core.CyclicTransaction{}, err
	}
	start, err := formDate(form, "start_date", today)
	if err != nil {
		return core.CyclicTransaction{}, err
	}
	period, err := core.ParsePeriod(form.Get("period"))
	if err != nil {
		return core.CyclicTransaction{}, err
	}
	budgetID := formID(form, "sub_budget_id")
	if budgetID == 0 {
		budgetID = a.ActiveBudgetID
	}
	return core.CyclicTransaction{
		SubBudgetID: budgetID,
		CategoryID:  formID(form, "category_id"),
		Kind:        kind,
		Name:        sanitizeInput(form.Get("name")),
		Amount:      amount,
		StartDate:   start,
		Period:      period,
	}, nil
}

// ParseCategoryForm reads a category form. Kind defaults to expense.
func ParseCategoryForm(form url.Values) (core.Category, error) {
	kind, err := formKind(form)
	if err != nil {
		return core.Category{}, err
	}
	return core.Category{
		Name:        sanitizeInput(form.Get("name")),
		Description: sanitizeInput(form.Get("description")),
		Kind:        kind,
	}, nil
}

// ParseTransferForm reads the transfer form. The source defaults to the
// actor's active sub-budget.
func ParseTransferForm(form url.Values, a services.Actor, today core.Date) (services.TransferRequest, error) {
	amount, err := core.ParseAmount(form.Get("amount"))
	if err != nil {
		return services.TransferRequest{}, err
	}
	date, err := formDate(form, "date", today)
	if err != nil {
		return services.TransferRequest{}, err
	}
	from := formID(form, "from_budget_id")
	if from == 0 {
		from = a.ActiveBudgetID
	}
	return services.TransferRequest{
		FromBudgetID: from,
		ToBudgetID:   formID(form, "to_budget_id"),
		Amount:       amount,
		Date:         date,
	}, nil
}
