package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"portfel/internal/sheets"
	"portfel/internal/storage"
)

// LedgerExporter writes one household's full ledger to its sheet.
type LedgerExporter struct {
	storage *storage.SQLiteRepository
	reports *ReportService
	writer  sheets.LedgerWriter
}

func NewLedgerExporter(storage *storage.SQLiteRepository, reports *ReportService, writer sheets.LedgerWriter) *LedgerExporter {
	return &LedgerExporter{storage: storage, reports: reports, writer: writer}
}

// Export rewrites the household's sheet from the database.
func (e *LedgerExporter) Export(ctx context.Context, householdID int64) error {
	h, err := e.storage.Queries().GetHousehold(ctx, householdID)
	if err != nil {
		return fmt.Errorf("get household %d: %w", householdID, err)
	}
	rows, err := e.reports.Ledger(ctx, householdID)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	sheet := sheets.SheetName(h)
	if err := e.writer.WriteLedger(ctx, sheet, rows); err != nil {
		return fmt.Errorf("write sheet %q: %w", sheet, err)
	}
	slog.InfoContext(ctx, "Exported household ledger",
		"household_id", householdID,
		"sheet", sheet,
		"rows", len(rows))
	return nil
}

// SessionPurger removes expired sessions.
type SessionPurger interface {
	Purge(ctx context.Context) (int64, error)
}

// ExportProcessorConfig holds configuration for the export processor
type ExportProcessorConfig struct {
	// PollInterval is how often dirty households are exported (default: 10s)
	PollInterval time.Duration

	// MaxRetries is how many failed exports a household gets before it is dropped (default: 3)
	MaxRetries int

	// CleanupInterval is how often expired sessions are purged (default: 1h)
	CleanupInterval time.Duration
}

func DefaultExportProcessorConfig() ExportProcessorConfig {
	return ExportProcessorConfig{
		PollInterval:    10 * time.Second,
		MaxRetries:      3,
		CleanupInterval: 1 * time.Hour,
	}
}

// ExportProcessor is the in-process export path used when no message
// broker is configured. It implements LedgerPublisher by remembering which
// households changed and exporting them on the next poll, so a burst of
// edits costs one sheet write.
type ExportProcessor struct {
	exporter *LedgerExporter
	sessions SessionPurger
	config   ExportProcessorConfig

	dirtyMu sync.Mutex
	dirty   map[int64]int // household id -> failed attempts

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewExportProcessor(exporter *LedgerExporter, sessions SessionPurger, config ExportProcessorConfig) *ExportProcessor {
	return &ExportProcessor{
		exporter: exporter,
		sessions: sessions,
		config:   config,
		dirty:    make(map[int64]int),
	}
}

// PublishExport marks the household for export on the next poll.
func (p *ExportProcessor) PublishExport(ctx context.Context, householdID int64, reason string) error {
	p.dirtyMu.Lock()
	if _, ok := p.dirty[householdID]; !ok {
		p.dirty[householdID] = 0
	}
	p.dirtyMu.Unlock()
	slog.DebugContext(ctx, "Household marked for export", "household_id", householdID, "reason", reason)
	return nil
}

// Pending returns the number of households waiting for export.
func (p *ExportProcessor) Pending() int {
	p.dirtyMu.Lock()
	defer p.dirtyMu.Unlock()
	return len(p.dirty)
}

// Start begins the processing loop. Returns an error if already running.
func (p *ExportProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("export processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Export processor started",
		"poll_interval", p.config.PollInterval,
		"export_enabled", p.exporter != nil)
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *ExportProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Export processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Export processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *ExportProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *ExportProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	pollTicker := time.NewTicker(p.config.PollInterval)
	defer pollTicker.Stop()

	cleanupTicker := time.NewTicker(p.config.CleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-p.stopCh:
			p.ProcessPending(ctx)
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			p.ProcessPending(ctx)
		case <-cleanupTicker.C:
			p.purgeSessions(ctx)
		}
	}
}

// ProcessPending exports every dirty household once. Failed exports stay
// dirty until MaxRetries is reached.
func (p *ExportProcessor) ProcessPending(ctx context.Context) {
	p.dirtyMu.Lock()
	batch := p.dirty
	p.dirty = make(map[int64]int)
	p.dirtyMu.Unlock()

	if len(batch) == 0 {
		return
	}
	if p.exporter == nil {
		slog.DebugContext(ctx, "Sheet export disabled, dropping pending exports", "count", len(batch))
		return
	}

	for hid, attempts := range batch {
		err := p.exporter.Export(ctx, hid)
		if err == nil {
			continue
		}
		attempts++
		slog.WarnContext(ctx, "Ledger export failed",
			"household_id", hid,
			"attempt", attempts,
			"error", err)
		if attempts >= p.config.MaxRetries {
			slog.ErrorContext(ctx, "Ledger export failed permanently after max retries",
				"household_id", hid,
				"attempts", attempts)
			continue
		}
		p.requeue(hid, attempts)
	}
}

// requeue keeps the failure count unless a newer change reset it.
func (p *ExportProcessor) requeue(hid int64, attempts int) {
	p.dirtyMu.Lock()
	defer p.dirtyMu.Unlock()
	if _, ok := p.dirty[hid]; !ok {
		p.dirty[hid] = attempts
	}
}

func (p *ExportProcessor) purgeSessions(ctx context.Context) {
	if p.sessions == nil {
		return
	}
	n, err := p.sessions.Purge(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to purge expired sessions", "error", err)
		return
	}
	if n > 0 {
		slog.InfoContext(ctx, "Purged expired sessions", "count", n)
	}
}
