// Package backend assembles the long-lived dependencies of a portfel process:
// the SQLite repository, the domain services and the optional mail, broker
// and spreadsheet integrations.
package backend

import (
	"context"
	"time"

	"portfel/internal/amqp"
	"portfel/internal/auth"
	"portfel/internal/cache"
	"portfel/internal/defaults"
	"portfel/internal/notify"
	"portfel/internal/services"
	"portfel/internal/storage"
)

// Services groups every domain service a process may need.
type Services struct {
	Accounts     *services.AccountService
	Transactions *services.TransactionService
	Cyclic       *services.CyclicService
	Categories   *services.CategoryService
	Budgets      *services.BudgetService
	Reports      *services.ReportService
	CatchUp      *services.CyclicProcessor
}

// CleanupFunc releases one resource.
type CleanupFunc func(ctx context.Context) error

// Backend is the assembled dependency graph.
type Backend struct {
	Repo     *storage.SQLiteRepository
	Defaults defaults.Household
	Sessions *auth.Sessions
	Services Services

	// Mailer is what request handlers send through: the broker when one is
	// configured, otherwise Delivery directly.
	Mailer notify.Sender
	// Delivery sends mail over SMTP, or logs it when SMTP is not configured.
	Delivery notify.Sender

	// Exporter is nil when no spreadsheet is configured.
	Exporter *services.LedgerExporter
	// Processor exports changed households in process when there is no
	// broker, and purges expired sessions either way.
	Processor *services.ExportProcessor
	// AMQP is nil when no broker is configured.
	AMQP *amqp.Client

	cacheManager *cache.Manager
	cleanups     []CleanupFunc
}

// Close releases resources in reverse order of acquisition and returns the
// first error.
func (b *Backend) Close(ctx context.Context) error {
	var first error
	for i := len(b.cleanups) - 1; i >= 0; i-- {
		if err := b.cleanups[i](ctx); err != nil && first == nil {
			first = err
		}
	}
	b.cleanups = nil
	return first
}

func (b *Backend) onClose(f CleanupFunc) {
	b.cleanups = append(b.cleanups, f)
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend opens storage and wires services according to config.
	CreateBackend(ctx context.Context, config Config) (*Backend, error)
}

// Config holds configuration for backend creation
type Config struct {
	SQLiteDBPath string
	DefaultsFile string

	SecretKey  string
	BaseURL    string
	SessionTTL time.Duration

	// Session cache; zero values use the defaults.
	SessionCacheSize int
	SessionCacheTTL  time.Duration

	AMQPURL         string
	AMQPExchange    string
	AMQPMailQueue   string
	AMQPExportQueue string
	// RequireAMQP fails creation when the broker cannot be reached instead
	// of falling back to in-process delivery. The worker sets it.
	RequireAMQP bool

	SMTPAddr     string
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	ExportInterval time.Duration
}
