package backend

import (
	"context"
	"fmt"

	"github.com/salemadams/cash-dash/internal/amqp"
	applog "github.com/salemadams/cash-dash/internal/log"
	"github.com/salemadams/cash-dash/internal/services"
	"github.com/salemadams/cash-dash/internal/sheets"
	gsheet "github.com/salemadams/cash-dash/internal/sheets/google"
	sinkmemory "github.com/salemadams/cash-dash/internal/sheets/memory"
	"github.com/salemadams/cash-dash/internal/storage"
	"github.com/salemadams/cash-dash/internal/store"
	"github.com/salemadams/cash-dash/internal/store/memory"
)

// memorySinkSize bounds the alerts kept when no spreadsheet is configured.
const memorySinkSize = 500

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
	dial   amqp.DialOptions
}

func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
		dial:   amqp.DefaultDialOptions(),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	seed, err := store.LoadSeed(config.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("load seed: %w", err)
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config, seed)
	case MemoryBackend:
		return f.createMemoryBackend(config, seed)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config, seed store.Seed) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(ctx, config.SQLiteDBPath, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{Store: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config, seed store.Seed) (*BackendResult, error) {
	st := memory.New(seed)

	f.logger.Info("Initialized memory backend",
		"seed_file", config.SeedFile,
		"transactions", len(seed.Transactions),
		"budgets", len(seed.Budgets))

	return &BackendResult{Store: st, Cleanup: st.Close}, nil
}

func (f *DefaultFactory) CreatePublisher(ctx context.Context, config Config) (services.AlertPublisher, CleanupFunc, error) {
	if config.AMQPURL == "" {
		f.logger.Info("AMQP not configured, budget alerts will only be logged")
		return services.NewLogPublisher(f.logger), func() error { return nil }, nil
	}

	client, err := amqp.NewClient(ctx, config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.dial, f.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize AMQP client: %w", err)
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client, client.Close, nil
}

func (f *DefaultFactory) CreateSink(ctx context.Context, config Config) (sheets.AlertSink, error) {
	if config.GoogleSpreadsheetID == "" {
		f.logger.Info("No spreadsheet configured, keeping alerts in memory", "capacity", memorySinkSize)
		return sinkmemory.New(memorySinkSize), nil
	}

	cli, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleAlertsSheetName,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets alert sink", "sheet", config.GoogleAlertsSheetName)
	return cli, nil
}
