// Package postgres provides the prior-audit store: the record of every
// previously published model identity, consulted by assembly for identifier
// continuity and appended to after each release.
package postgres

import (
	"context"
	"fmt"
	"net/url"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xtalforge/ccmodel/internal/config"
	"github.com/xtalforge/ccmodel/internal/infrastructure/monitoring/logging"
	apperrors "github.com/xtalforge/ccmodel/pkg/errors"
)

// Connection manages the pgx connection pool for the audit database.
type Connection struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// buildDSN renders a keyword/value-free URL DSN from the configuration.
func buildDSN(cfg config.DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   cfg.DBName,
	}
	q := u.Query()
	q.Set("sslmode", cfg.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// NewConnection opens a pooled connection and verifies it with a ping.
func NewConnection(ctx context.Context, cfg config.DatabaseConfig, logger logging.Logger) (*Connection, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	poolCfg, err := pgxpool.ParseConfig(buildDSN(cfg))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDBError, "parse audit database configuration")
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDBError, "create audit database pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperrors.Wrap(err, apperrors.CodeDBError, "audit database unreachable")
	}

	logger.Info("audit database connected",
		logging.String("host", cfg.Host),
		logging.String("database", cfg.DBName))
	return &Connection{pool: pool, logger: logger}, nil
}

// Pool exposes the underlying pgx pool to repositories.
func (c *Connection) Pool() *pgxpool.Pool { return c.pool }

// Close releases the pool.
func (c *Connection) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
}

// Migrate applies pending schema migrations from the configured source path.
// A nil change set is not an error.
func Migrate(cfg config.DatabaseConfig, logger logging.Logger) error {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.MigrationPath == "" {
		return nil
	}

	m, err := migrate.New("file://"+cfg.MigrationPath, "pgx5://"+buildDSN(cfg)[len("postgres://"):])
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDBError, "initialise migrator")
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return apperrors.Wrap(err, apperrors.CodeDBError, "apply audit schema migrations")
	}
	logger.Info("audit schema up to date", logging.String("source", cfg.MigrationPath))
	return nil
}
