package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	KindExpense Kind = "expense"
	KindIncome  Kind = "income"
)

const (
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
)

// Names of the categories created on the first transfer inside a household.
// Users cannot create or rename categories to these names.
const (
	TransferOutCategory = "Outgoing transfer"
	TransferInCategory  = "Incoming transfer"

	TransferCategoryDescription = "Automatic transfer between sub-budgets"
)

// IsReservedCategoryName reports whether name belongs to a transfer category.
func IsReservedCategoryName(name string) bool {
	name = strings.TrimSpace(name)
	return strings.EqualFold(name, TransferOutCategory) || strings.EqualFold(name, TransferInCategory)
}

type (
	// Kind tells whether a transaction takes money out of a sub-budget or puts it in.
	Kind string

	// Period is the schedule of a cyclic transaction.
	Period string

	User struct {
		ID           int64
		Name         string
		Email        string
		PasswordHash string
	}

	Household struct {
		ID      int64
		Name    string
		OwnerID int64
	}

	Member struct {
		HouseholdID int64
		UserID      int64
		IsAdmin     bool
	}

	// SubBudget is a named balance bucket ("wallet") inside a household.
	SubBudget struct {
		ID          int64
		HouseholdID int64
		Name        string
		Balance     decimal.Decimal
	}

	Category struct {
		ID          int64
		HouseholdID int64
		Name        string
		Description string
		Kind        Kind
		System      bool
	}

	// Transaction is a single money movement on one sub-budget.
	// TransferRef is set on both legs of a transfer and empty otherwise.
	Transaction struct {
		ID          int64
		UserID      int64
		SubBudgetID int64
		CategoryID  int64
		Kind        Kind
		Name        string
		Amount      decimal.Decimal
		Date        Date
		TransferRef string
	}

	// CyclicTransaction is a template that spawns a Transaction every Period,
	// starting at NextDueDate.
	CyclicTransaction struct {
		ID          int64
		UserID      int64
		SubBudgetID int64
		CategoryID  int64
		Kind        Kind
		Name        string
		Amount      decimal.Decimal
		StartDate   Date
		NextDueDate Date
		Period      Period
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidKind       = errors.New("invalid transaction type")
	ErrInvalidPeriod     = errors.New("invalid period")
	ErrInvalidDate       = errors.New("invalid date")
	ErrEmptyName         = errors.New("empty name")
	ErrNameTooLong       = errors.New("name too long")
	ErrMissingBudget     = errors.New("missing sub-budget")
	ErrMissingCategory   = errors.New("missing category")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("not allowed for this household")
	ErrSameBudget        = errors.New("source and target sub-budgets must differ")
	ErrTransferLeg       = errors.New("transfer legs cannot be changed one at a time")
	ErrNotTransfer       = errors.New("transaction is not part of a transfer")
	ErrSystemCategory    = errors.New("system categories cannot be changed")
	ErrDuplicateCategory = errors.New("category already exists")
	ErrReservedCategory  = errors.New("category name is reserved for transfers")
	ErrCategoryInUse     = errors.New("category is still used by transactions")
	ErrBudgetInUse       = errors.New("sub-budget still has transactions")
	ErrLastBudget        = errors.New("household needs at least one sub-budget")
	ErrEmailTaken        = errors.New("email already registered")
	ErrInvalidEmail      = errors.New("invalid email")
	ErrWeakPassword      = errors.New("password too short")
	ErrBadCredentials    = errors.New("invalid email or password")
	ErrNoHousehold       = errors.New("user has no household")
)

// ParseKind parses a transaction type coming from a form.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindExpense, KindIncome:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

func (k Kind) Valid() bool {
	return k == KindExpense || k == KindIncome
}

// ParsePeriod parses a period coming from a form. Stored periods are never
// parsed with it, unknown stored values fall back to monthly when advanced.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case Weekly, Monthly, Yearly:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
}

func validateName(name string, max int) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if len(name) > max {
		return fmt.Errorf("%w (max %d characters)", ErrNameTooLong, max)
	}
	return nil
}

func (b SubBudget) Validate() error {
	return validateName(b.Name, 50)
}

func (c Category) Validate() error {
	if err := validateName(c.Name, 50); err != nil {
		return err
	}
	if !c.System && IsReservedCategoryName(c.Name) {
		return ErrReservedCategory
	}
	if len(c.Description) > 255 {
		return fmt.Errorf("%w: description (max 255 characters)", ErrNameTooLong)
	}
	if !c.Kind.Valid() {
		return ErrInvalidKind
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := validateName(t.Name, 100); err != nil {
		return err
	}
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if t.SubBudgetID <= 0 {
		return ErrMissingBudget
	}
	if t.CategoryID <= 0 {
		return ErrMissingCategory
	}
	return nil
}

// IsTransferLeg reports whether the transaction is one half of a transfer.
func (t Transaction) IsTransferLeg() bool {
	return t.TransferRef != ""
}

func (c CyclicTransaction) Validate() error {
	if err := validateName(c.Name, 100); err != nil {
		return err
	}
	if !c.Kind.Valid() {
		return ErrInvalidKind
	}
	if err := ValidateAmount(c.Amount); err != nil {
		return err
	}
	if err := c.StartDate.Validate(); err != nil {
		return fmt.Errorf("start date: %w", err)
	}
	switch c.Period {
	case Weekly, Monthly, Yearly:
	default:
		return ErrInvalidPeriod
	}
	if c.SubBudgetID <= 0 {
		return ErrMissingBudget
	}
	if c.CategoryID <= 0 {
		return ErrMissingCategory
	}
	return nil
}

// Materialize builds the concrete transaction a template produces for its
// current due date.
func (c CyclicTransaction) Materialize() Transaction {
	return Transaction{
		UserID:      c.UserID,
		SubBudgetID: c.SubBudgetID,
		CategoryID:  c.CategoryID,
		Kind:        c.Kind,
		Name:        c.Name + " (recurring)",
		Amount:      c.Amount,
		Date:        c.NextDueDate,
	}
}

// Today returns the current UTC calendar date.
func Today() Date {
	return DateOf(time.Now())
}
