package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// TransactionView is a transaction joined with the names a listing shows.
type TransactionView struct {
	Transaction
	CategoryName  string
	SubBudgetName string
}

// CyclicView is a cyclic template joined with its category and sub-budget names.
type CyclicView struct {
	CyclicTransaction
	CategoryName  string
	SubBudgetName string
}

// LedgerRow is one line of an exported household ledger.
type LedgerRow struct {
	Date      Date
	SubBudget string
	Category  string
	Kind      Kind
	Name      string
	Amount    decimal.Decimal
}
