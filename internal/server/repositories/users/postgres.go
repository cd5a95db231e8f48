package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sethvargo/go-retry"
)

const usernameConstraint = "users_username_key"

// A serializable create that loses a race with a concurrent insert of the
// same username fails with 40001 instead of hitting ON CONFLICT. A fresh
// transaction sees the committed row and reports the conflict.
const (
	serializationRetries = 3
	serializationBackoff = 10 * time.Millisecond
)

// Consistency holds the level used by each repository operation.
type Consistency struct {
	Create dbx.Consistency
	Fetch  dbx.Consistency
	Record dbx.Consistency
}

// DefaultConsistency favours uniqueness on create, durability on access
// appends and latency on reads.
var DefaultConsistency = Consistency{
	Create: dbx.Linearizable,
	Fetch:  dbx.Local,
	Record: dbx.Quorum,
}

// PostgresRepository runs every operation in its own transaction at the
// operation's consistency level. Reads at the Local level go to the replica
// when one is configured.
type PostgresRepository struct {
	primary *sql.DB
	replica *sql.DB
	levels  Consistency
}

// NewPostgresRepository builds a repository on primary. replica may be nil.
func NewPostgresRepository(primary, replica *sql.DB, levels Consistency) *PostgresRepository {
	return &PostgresRepository{primary: primary, replica: replica, levels: levels}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	created := user.Clone()
	created.AccessHistory = nil

	backoff := retry.WithMaxRetries(serializationRetries, retry.NewExponential(serializationBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := dbx.WithConsistentTx(ctx, r.primary, r.levels.Create, false, func(ctx context.Context, tx dbx.DBTX) error {
			return insertUser(ctx, tx, created)
		})
		if isSerializationFailure(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user *models.User
	err := dbx.WithConsistentTx(ctx, r.reader(), r.levels.Fetch, true, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		user, err = selectUser(ctx, tx, username)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *PostgresRepository) RecentAccesses(ctx context.Context, username string, n int) ([]time.Time, error) {
	var history []time.Time
	err := dbx.WithConsistentTx(ctx, r.reader(), r.levels.Fetch, true, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		history, err = selectAccesses(ctx, tx, username, max(n, 0))
		return err
	})
	if err != nil {
		return nil, err
	}
	return history, nil
}

func (r *PostgresRepository) RecordAccess(ctx context.Context, username string, at time.Time) error {
	return dbx.WithConsistentTx(ctx, r.primary, r.levels.Record, false, func(ctx context.Context, tx dbx.DBTX) error {
		return insertAccess(ctx, tx, username, at)
	})
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	if err := r.primary.PingContext(ctx); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if r.replica != nil {
		if err := r.replica.PingContext(ctx); err != nil {
			return fmt.Errorf("replica error: %w", err)
		}
	}
	return nil
}

// reader picks the replica for Local reads when one is configured.
func (r *PostgresRepository) reader() *sql.DB {
	if r.levels.Fetch == dbx.Local && r.replica != nil {
		return r.replica
	}
	return r.primary
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.SerializationFailure
}

func insertUser(ctx context.Context, db dbx.DBTX, user *models.User) error {
	query :=
		`INSERT INTO users (id, username, full_name, salt, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (username) DO NOTHING
		 RETURNING created_at
		 `

	err := db.QueryRowContext(ctx, query,
		user.ID, user.Username, user.FullName, user.Salt, user.PasswordHash, user.CreatedAt).Scan(&user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorConflict
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == usernameConstraint {
			return common.ErrorConflict
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func selectUser(ctx context.Context, db dbx.DBTX, username string) (*models.User, error) {
	query :=
		`SELECT id, username, full_name, salt, password_hash, created_at
		 FROM users
		 WHERE username = $1
		 `

	u := &models.User{}
	err := db.QueryRowContext(ctx, query, username).
		Scan(&u.ID, &u.Username, &u.FullName, &u.Salt, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

// selectAccesses reads at most n of the newest accesses, oldest first. The
// lateral join yields one row per known user even with no history, so an
// empty result means the user does not exist.
func selectAccesses(ctx context.Context, db dbx.DBTX, username string, n int) ([]time.Time, error) {
	query :=
		`SELECT a.accessed_at
		 FROM users u
		 LEFT JOIN LATERAL (
		     SELECT id, accessed_at FROM user_access
		     WHERE user_id = u.id
		     ORDER BY id DESC
		     LIMIT $2
		 ) a ON true
		 WHERE u.username = $1
		 ORDER BY a.id
		 `

	rows, err := db.QueryContext(ctx, query, username, n)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	found := false
	history := []time.Time{}
	for rows.Next() {
		found = true
		var at sql.NullTime
		if err := rows.Scan(&at); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if at.Valid {
			history = append(history, at.Time)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	if !found {
		return nil, common.ErrorNotFound
	}
	return history, nil
}

func insertAccess(ctx context.Context, db dbx.DBTX, username string, at time.Time) error {
	query :=
		`INSERT INTO user_access (user_id, accessed_at)
		 SELECT id, $2 FROM users
		 WHERE username = $1
		 `

	res, err := db.ExecContext(ctx, query, username, at)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
