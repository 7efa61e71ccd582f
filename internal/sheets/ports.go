// Package sheets defines the spreadsheet mirror of household ledgers.
package sheets

import (
	"context"
	"fmt"
	"strings"

	"portfel/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerWriter replaces the contents of one sheet with a household ledger.
	LedgerWriter interface {
		WriteLedger(ctx context.Context, sheet string, rows []core.LedgerRow) error
	}
)

// maxTitle is the longest sheet title the spreadsheet API accepts.
const maxTitle = 100

// SheetName returns the sheet title a household's ledger is written to.
// The id prefix keeps titles unique when two households share a name.
func SheetName(h core.Household) string {
	name := strings.NewReplacer("'", "", "!", "").Replace(strings.TrimSpace(h.Name))
	title := fmt.Sprintf("%d %s", h.ID, name)
	if len(title) > maxTitle {
		title = title[:maxTitle]
	}
	return strings.TrimSpace(title)
}
