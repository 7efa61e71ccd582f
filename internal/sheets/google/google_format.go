package google

import (
	"strings"

	"portfel/internal/core"
)

var ledgerHeader = []any{"Date", "Sub-budget", "Category", "Type", "Name", "Amount"}

// ledgerValues converts rows into the value matrix written to a sheet.
// Expenses are written as negative numbers so a SUM over the column gives
// the net change.
func ledgerValues(rows []core.LedgerRow) [][]any {
	values := make([][]any, 0, len(rows)+1)
	values = append(values, ledgerHeader)
	for _, r := range rows {
		values = append(values, []any{
			r.Date.String(),
			text(r.SubBudget),
			text(r.Category),
			string(r.Kind),
			text(r.Name),
			core.Effect(r.Kind, r.Amount).StringFixed(2),
		})
	}
	return values
}

// quoteSheet quotes a sheet title for use in A1 notation.
func quoteSheet(title string) string {
	return "'" + title + "'"
}

// text stops user-entered strings from being interpreted as formulas.
func text(s string) string {
	if s != "" && strings.ContainsRune("=+-@", rune(s[0])) {
		return "'" + s
	}
	return s
}
