package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"portfel/internal/core"
	"portfel/internal/sheets/memory"
)

func TestDefaultExportProcessorConfig(t *testing.T) {
	config := DefaultExportProcessorConfig()

	if config.PollInterval != 10*time.Second {
		t.Errorf("expected PollInterval 10s, got %v", config.PollInterval)
	}
	if config.MaxRetries != 3 {
		t.Errorf("expected MaxRetries 3, got %d", config.MaxRetries)
	}
	if config.CleanupInterval != 1*time.Hour {
		t.Errorf("expected CleanupInterval 1h, got %v", config.CleanupInterval)
	}
}

func TestExportProcessor_IsRunning(t *testing.T) {
	processor := NewExportProcessor(nil, nil, DefaultExportProcessorConfig())

	if processor.IsRunning() {
		t.Error("processor should not be running initially")
	}
}

func TestExportProcessor_StartTwice(t *testing.T) {
	processor := NewExportProcessor(nil, nil, DefaultExportProcessorConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := processor.Start(ctx); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if err := processor.Start(ctx); err == nil {
		t.Error("expected error when starting already running processor")
	}
	if err := processor.Stop(ctx); err != nil {
		t.Errorf("stop: %v", err)
	}
	if processor.IsRunning() {
		t.Error("processor should not be running after stop")
	}
}

func TestExportProcessor_StopNotRunning(t *testing.T) {
	processor := NewExportProcessor(nil, nil, DefaultExportProcessorConfig())

	if err := processor.Stop(context.Background()); err != nil {
		t.Errorf("Stop on non-running processor should not error: %v", err)
	}
}

func TestExportProcessor_CoalescesExports(t *testing.T) {
	repo := newTestRepo(t)
	h := seedHousehold(t, repo, "ada@example.com")
	store := memory.New()
	processor := NewExportProcessor(NewLedgerExporter(repo, NewReportService(repo), store), nil, DefaultExportProcessorConfig())
	tx := NewTransactionService(repo, processor)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := tx.Add(ctx, h.actor, expense(h, h.wallet, "1"))
		require.NoError(t, err)
	}
	require.Equal(t, 1, processor.Pending())

	processor.ProcessPending(ctx)
	require.Zero(t, processor.Pending())
	require.Equal(t, 1, store.Writes())

	rows, ok := store.Ledger("1 Home")
	require.True(t, ok)
	require.Len(t, rows, 3)
}

type flakyWriter struct {
	mu    sync.Mutex
	calls int
}

func (w *flakyWriter) WriteLedger(context.Context, string, []core.LedgerRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	return errors.New("quota exceeded")
}

func TestExportProcessor_GivesUpAfterMaxRetries(t *testing.T) {
	repo := newTestRepo(t)
	h := seedHousehold(t, repo, "ada@example.com")
	w := &flakyWriter{}
	config := DefaultExportProcessorConfig()
	processor := NewExportProcessor(NewLedgerExporter(repo, NewReportService(repo), w), nil, config)
	ctx := context.Background()

	require.NoError(t, processor.PublishExport(ctx, h.actor.HouseholdID, "test"))
	for i := 0; i < config.MaxRetries+2; i++ {
		processor.ProcessPending(ctx)
	}
	require.Equal(t, config.MaxRetries, w.calls)
	require.Zero(t, processor.Pending())
}

type countingPurger struct{ calls int }

func (p *countingPurger) Purge(context.Context) (int64, error) {
	p.calls++
	return 2, nil
}

func TestExportProcessor_PurgesSessions(t *testing.T) {
	purger := &countingPurger{}
	processor := NewExportProcessor(nil, purger, DefaultExportProcessorConfig())
	processor.purgeSessions(context.Background())
	require.Equal(t, 1, purger.calls)

	// without an exporter pending exports are dropped
	require.NoError(t, processor.PublishExport(context.Background(), 1, "x"))
	processor.ProcessPending(context.Background())
	require.Zero(t, processor.Pending())
}
