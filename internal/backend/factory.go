package backend

import (
	"context"
	"fmt"
	"time"

	"portfel/internal/amqp"
	"portfel/internal/auth"
	"portfel/internal/cache"
	"portfel/internal/defaults"
	plog "portfel/internal/log"
	"portfel/internal/notify"
	"portfel/internal/services"
	"portfel/internal/sheets"
	gsheet "portfel/internal/sheets/google"
	"portfel/internal/storage"
)

const (
	defaultSessionCacheSize = 1000
	defaultSessionCacheTTL  = 5 * time.Minute
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *plog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *plog.Logger) Factory {
	if logger == nil {
		logger = plog.New(plog.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(plog.ComponentApp),
	}
}

// CreateBackend implements Factory.CreateBackend. On error everything opened
// so far is closed again.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (_ *Backend, err error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backend config: %w", err)
	}

	b := &Backend{}
	defer func() {
		if err != nil {
			_ = b.Close(context.Background())
		}
	}()

	b.Defaults, err = defaults.Load(config.DefaultsFile)
	if err != nil {
		return nil, fmt.Errorf("load household defaults: %w", err)
	}

	b.Repo, err = storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	b.onClose(func(context.Context) error { return b.Repo.Close() })
	f.logger.Info("Database ready", "path", config.SQLiteDBPath, "schema_version", b.Repo.SchemaVersion())

	b.Delivery = f.deliverySender(config)
	b.Mailer = b.Delivery

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPMailQueue, config.AMQPExportQueue)
		switch {
		case err != nil && config.RequireAMQP:
			return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
		case err != nil:
			f.logger.Warn("Failed to initialize AMQP client, delivering in process", plog.FieldError, err)
		default:
			b.AMQP = client
			b.Mailer = client
			b.onClose(func(context.Context) error { return client.Close() })
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"mail_queue", config.AMQPMailQueue,
				"export_queue", config.AMQPExportQueue)
		}
	}

	writer, err := f.ledgerWriter(ctx, config)
	if err != nil {
		return nil, err
	}

	sessionCache := cache.NewLRUCache[storage.Session](
		orDefault(config.SessionCacheSize, defaultSessionCacheSize),
		orDefault(config.SessionCacheTTL, defaultSessionCacheTTL))
	b.cacheManager = cache.NewManager(f.logger)
	b.cacheManager.Register(sessionCache)
	b.cacheManager.Start(time.Minute)
	b.onClose(func(context.Context) error { b.cacheManager.Stop(); return nil })

	b.Sessions = auth.NewSessions(b.Repo, sessionCache, config.SessionTTL)

	reports := services.NewReportService(b.Repo)
	if writer != nil {
		b.Exporter = services.NewLedgerExporter(b.Repo, reports, writer)
	}

	pc := services.DefaultExportProcessorConfig()
	if config.ExportInterval > 0 {
		pc.PollInterval = config.ExportInterval
	}
	b.Processor = services.NewExportProcessor(b.Exporter, b.Sessions, pc)

	publisher := f.publisher(b)
	b.Services = Services{
		Accounts:     services.NewAccountService(b.Repo, auth.NewSigner(config.SecretKey), b.Mailer, b.Defaults, config.BaseURL),
		Transactions: services.NewTransactionService(b.Repo, publisher),
		Cyclic:       services.NewCyclicService(b.Repo),
		Categories:   services.NewCategoryService(b.Repo),
		Budgets:      services.NewBudgetService(b.Repo),
		Reports:      reports,
		CatchUp:      services.NewCyclicProcessor(b.Repo, publisher),
	}

	f.logger.Info("Initialized backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", b.AMQP != nil,
		"smtp_enabled", config.SMTPAddr != "",
		"sheets_enabled", b.Exporter != nil)

	return b, nil
}

func (f *DefaultFactory) deliverySender(config Config) notify.Sender {
	if config.SMTPAddr == "" {
		f.logger.Info("SMTP not configured, mail will be logged")
		return notify.LogSender{}
	}
	return notify.NewSMTPSender(config.SMTPAddr, config.SMTPUsername, config.SMTPPassword, config.MailFrom)
}

func (f *DefaultFactory) ledgerWriter(ctx context.Context, config Config) (sheets.LedgerWriter, error) {
	if config.GoogleSpreadsheetID == "" {
		return nil, nil
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	return client, nil
}

// publisher picks where ledger changes are announced: the broker when
// connected, otherwise the in-process processor when there is somewhere to
// export to. Nil means nobody listens.
func (f *DefaultFactory) publisher(b *Backend) services.LedgerPublisher {
	switch {
	case b.AMQP != nil:
		return b.AMQP
	case b.Exporter != nil:
		return b.Processor
	default:
		return nil
	}
}

func orDefault[T int | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}
