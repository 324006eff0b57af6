// Package storage is the relational game state store. Every mutation runs in
// a transaction; rows the caller intends to write are read with FOR UPDATE.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	msqlite "modernc.org/sqlite"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds the database settings
type Config struct {
	Driver        string
	DSN           string
	MaxOpenConns  int
	MaxIdleConns  int
	BusyTimeoutMs int
	SlowQueryMs   int
	TxRetries     int
}

// Store owns the database handle
type Store struct {
	db     *gorm.DB
	driver string
	cfg    Config
	logger *zap.Logger
}

// Open connects to the configured database
func Open(cfg Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverSQLite, "":
		cfg.Driver = DriverSQLite
		dialector = sqlite.Dialector{
			DriverName: "sqlite",
			DSN:        sqliteDSN(cfg.DSN, cfg.BusyTimeoutMs),
		}
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  NewGormLogger(logger, time.Duration(cfg.SlowQueryMs)*time.Millisecond),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	maxOpen := cfg.MaxOpenConns
	if cfg.Driver == DriverSQLite && maxOpen <= 0 {
		// SQLite has no row locks; one connection serializes transactions.
		maxOpen = 1
	}
	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	return &Store{db: db, driver: cfg.Driver, cfg: cfg, logger: logger}, nil
}

func sqliteDSN(dsn string, busyTimeoutMs int) string {
	if busyTimeoutMs <= 0 {
		busyTimeoutMs = 5000
	}
	params := []string{
		fmt.Sprintf("_pragma=busy_timeout(%d)", busyTimeoutMs),
		"_pragma=foreign_keys(1)",
		"_txlock=immediate",
	}
	if dsn != ":memory:" && !strings.Contains(dsn, "mode=memory") {
		params = append(params, "_pragma=journal_mode(WAL)")
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

// DB returns the underlying gorm handle
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Driver returns the active driver name
func (s *Store) Driver() string {
	return s.driver
}

// Close releases the connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction runs fn in one transaction. Deadlocks, serialization failures
// and busy errors roll back and are retried with exponential backoff; fn must
// therefore be safe to run more than once. Any other error aborts.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Tx) error) error {
	attempt := 0
	op := func() (struct{}, error) {
		attempt++
		err := s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
			return fn(&Tx{db: db, driver: s.driver})
		})
		if err == nil {
			return struct{}{}, nil
		}
		if !IsRetryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		s.logger.Warn("Retrying transaction",
			zap.Int("attempt", attempt),
			zap.Error(err))
		return struct{}{}, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(max(s.cfg.TxRetries, 0)+1)),
	)
	if err != nil {
		return fmt.Errorf("transaction failed after %d attempt(s): %w", attempt, err)
	}
	return nil
}

// IsRetryable reports whether err is a transient locking failure
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// deadlock_detected, serialization_failure
		return pgErr.Code == "40P01" || pgErr.Code == "40001"
	}
	var liteErr *msqlite.Error
	if errors.As(err, &liteErr) {
		// SQLITE_BUSY, SQLITE_LOCKED
		code := liteErr.Code() & 0xff
		return code == 5 || code == 6
	}
	return false
}
