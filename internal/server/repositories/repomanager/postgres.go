package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/migrations"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"
)

// PostgresOptions configures the PostgreSQL user store.
type PostgresOptions struct {
	DSN           string
	ReplicaDSN    string
	Consistency   users.Consistency
	Retries       uint64
	RetryInterval time.Duration
}

// PostgresRepositoryManager owns the primary and optional replica pools.
type PostgresRepositoryManager struct {
	primary *sql.DB
	replica *sql.DB
	users   *users.PostgresRepository
}

// driverName is the database/sql driver used by Connect.
var driverName = "pgx"

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Connect opens a pool for dsn and pings it until it answers or the retries
// run out.
func Connect(ctx context.Context, dsn string, retries uint64, interval time.Duration) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	backoff := retry.WithMaxRetries(retries, retry.NewConstant(interval))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db not ready: %w", err)
	}

	return db, nil
}

// NewPostgresRepositoryManager connects to the primary and, when configured,
// the replica.
func NewPostgresRepositoryManager(ctx context.Context, opts PostgresOptions) (*PostgresRepositoryManager, error) {
	primary, err := Connect(ctx, opts.DSN, opts.Retries, opts.RetryInterval)
	if err != nil {
		return nil, err
	}

	var replica *sql.DB
	if opts.ReplicaDSN != "" {
		replica, err = Connect(ctx, opts.ReplicaDSN, opts.Retries, opts.RetryInterval)
		if err != nil {
			_ = primary.Close()
			return nil, fmt.Errorf("replica: %w", err)
		}
	}

	return &PostgresRepositoryManager{
		primary: primary,
		replica: replica,
		users:   users.NewPostgresRepository(primary, replica, opts.Consistency),
	}, nil
}

func (m *PostgresRepositoryManager) Users() users.Repository {
	return m.users
}

// RunMigrations applies the embedded migrations to the primary.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, m.primary, ".")
}

func (m *PostgresRepositoryManager) Close() error {
	var errs []error
	if m.replica != nil {
		errs = append(errs, m.replica.Close())
	}
	errs = append(errs, m.primary.Close())
	return errors.Join(errs...)
}
