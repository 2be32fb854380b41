package sql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"go.opentelemetry.io/otel/attribute"

	// import the postgres driver - "pgx"
	_ "github.com/jackc/pgx/v5/stdlib"
	// import the sqlite driver - "sqlite"
	_ "modernc.org/sqlite"

	"github.com/nsls2-sst/ucal-export/internal/abstractions"
)

const (
	SQLITE_DRIVER   = "sqlite"
	POSTGRES_DRIVER = "pgx"

	TABLE_PROCESSED_RUNS = "processed_runs"
)

type SQLStorage struct {
	db     *processingDatabase
	pool   *sql.DB
	logger *slog.Logger
}

func NewStorage(config map[string]any, logger *slog.Logger) (abstractions.Storage, error) {
	db, err := decodeDatabaseConfig(config)
	if err != nil {
		return nil, err
	}

	logger = logger.With("driver", db.Driver, "database", db.DatabaseName)
	logger.Info("Opening the processing store")

	pool, err := otelsql.Open(db.Driver, db.URL,
		otelsql.WithAttributes(attribute.String("db.system", db.Driver)),
		otelsql.WithDBName(db.DatabaseName),
	)
	if err != nil {
		return nil, err
	}

	if db.ConnMaxLifetime != nil {
		pool.SetConnMaxLifetime(*db.ConnMaxLifetime)
	}
	if db.MaxIdleConns != nil {
		pool.SetMaxIdleConns(*db.MaxIdleConns)
	}
	if db.MaxOpenConns != nil {
		pool.SetMaxOpenConns(*db.MaxOpenConns)
	}

	storage := &SQLStorage{db: db, pool: pool, logger: logger}

	if err := storage.Ping(time.Second); err != nil {
		pool.Close()
		return nil, fmt.Errorf("processing store is not reachable: %w", err)
	}
	if err := storage.ensureSchema(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create the %s table: %w", TABLE_PROCESSED_RUNS, err)
	}
	logger.Info("Processing store ready")

	return storage, nil
}

func (s *SQLStorage) WithLogger(logger *slog.Logger) abstractions.Storage {
	return &SQLStorage{db: s.db, pool: s.pool, logger: logger}
}

func (s *SQLStorage) Ping(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return s.pool.PingContext(ctx)
}

func (s *SQLStorage) GetDatasourceName() string {
	return s.db.Driver
}

func (s *SQLStorage) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.pool.ExecContext(ctx, query, args...)
}

func (s *SQLStorage) ensureSchema() error {
	schemas, err := schemasForDriver(s.db.Driver)
	if err != nil {
		return err
	}
	if _, err := s.exec(context.Background(), schemas); err != nil {
		return err
	}

	return nil
}

func (s *SQLStorage) Close() error {
	return s.pool.Close()
}
