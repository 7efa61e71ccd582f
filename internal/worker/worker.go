// Package worker handles the messages the web process queues: outgoing mail
// and ledger exports.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"portfel/internal/amqp"
	"portfel/internal/notify"
	"portfel/internal/services"
	"portfel/internal/storage"
)

// Worker delivers queued mail and exports household ledgers to sheets.
type Worker struct {
	storage  *storage.SQLiteRepository
	exporter *services.LedgerExporter
	mailer   notify.Sender
}

// NewWorker builds a worker. A nil exporter disables ledger exports; a nil
// mailer logs messages instead of sending them.
func NewWorker(storage *storage.SQLiteRepository, exporter *services.LedgerExporter, mailer notify.Sender) *Worker {
	if mailer == nil {
		mailer = notify.LogSender{}
	}
	return &Worker{
		storage:  storage,
		exporter: exporter,
		mailer:   mailer,
	}
}

// HandleMail delivers one queued mail.
func (w *Worker) HandleMail(ctx context.Context, msg *amqp.MailMessage) error {
	if err := w.mailer.Send(ctx, msg.Message); err != nil {
		return fmt.Errorf("deliver mail: %w", err)
	}
	slog.InfoContext(ctx, "Mail delivered",
		"subject", msg.Subject,
		"queued_at", msg.Timestamp)
	return nil
}

// HandleExport rewrites the sheet of the household named in msg.
func (w *Worker) HandleExport(ctx context.Context, msg *amqp.ExportMessage) error {
	if w.exporter == nil {
		slog.WarnContext(ctx, "No sheet exporter configured, skipping export",
			"household_id", msg.HouseholdID)
		return nil
	}
	if err := w.exporter.Export(ctx, msg.HouseholdID); err != nil {
		return fmt.Errorf("export household %d: %w", msg.HouseholdID, err)
	}
	return nil
}

// StartupExport rewrites every household's sheet. It recovers from export
// messages lost while the worker was down.
func (w *Worker) StartupExport(ctx context.Context) error {
	if w.exporter == nil {
		return nil
	}
	ids, err := w.storage.Queries().ListHouseholdIDs(ctx)
	if err != nil {
		return fmt.Errorf("list households for startup export: %w", err)
	}

	successCount, errorCount := 0, 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.exporter.Export(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to export household during startup",
				"household_id", id, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup export completed",
		"total", len(ids),
		"exported", successCount,
		"errors", errorCount)
	return nil
}
