// Package memory keeps exported ledgers in process memory. It backs tests
// and local runs without a spreadsheet.
package memory

import (
	"context"
	"sync"

	"portfel/internal/core"
	ports "portfel/internal/sheets"
)

var _ ports.LedgerWriter = (*Store)(nil)

type Store struct {
	mu     sync.Mutex
	sheets map[string][]core.LedgerRow
	writes int
}

func New() *Store {
	return &Store{sheets: make(map[string][]core.LedgerRow)}
}

// WriteLedger replaces the rows stored under sheet.
func (s *Store) WriteLedger(_ context.Context, sheet string, rows []core.LedgerRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheets[sheet] = append([]core.LedgerRow(nil), rows...)
	s.writes++
	return nil
}

// Ledger returns a copy of the rows last written to sheet.
func (s *Store) Ledger(sheet string) ([]core.LedgerRow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.sheets[sheet]
	return append([]core.LedgerRow(nil), rows...), ok
}

// Writes returns how many times WriteLedger was called.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
