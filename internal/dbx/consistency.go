package dbx

import (
	"context"
	"database/sql"
	"fmt"
)

// Consistency is the durability and visibility level requested for a single
// store operation.
type Consistency string

const (
	// Linearizable commits only once every synchronous standby has applied
	// the change, inside a serializable transaction.
	Linearizable Consistency = "linearizable"
	// Quorum waits for the synchronous standbys named in
	// synchronous_standby_names to flush the commit record.
	Quorum Consistency = "quorum"
	// Local waits only for the local WAL flush. Reads at this level may be
	// served by a replica.
	Local Consistency = "local"
)

// ParseConsistency converts a configuration value into a Consistency.
func ParseConsistency(s string) (Consistency, error) {
	switch c := Consistency(s); c {
	case Linearizable, Quorum, Local:
		return c, nil
	default:
		return "", fmt.Errorf("unknown consistency level %q", s)
	}
}

func (c Consistency) synchronousCommit() string {
	switch c {
	case Linearizable:
		return "remote_apply"
	case Quorum:
		return "on"
	default:
		return "local"
	}
}

// TxOptions returns the transaction options used for c.
func (c Consistency) TxOptions(readOnly bool) *sql.TxOptions {
	opts := &sql.TxOptions{ReadOnly: readOnly}
	if c == Linearizable {
		opts.Isolation = sql.LevelSerializable
	}
	return opts
}

// WithConsistentTx runs fn in a transaction whose commit waits as long as
// level requires.
func WithConsistentTx(ctx context.Context, db *sql.DB, level Consistency, readOnly bool, fn func(ctx context.Context, tx DBTX) error) error {
	return WithTx(ctx, db, level.TxOptions(readOnly), func(ctx context.Context, tx DBTX) error {
		// SET does not take bind parameters; the value comes from a closed set.
		if _, err := tx.ExecContext(ctx, "SET LOCAL synchronous_commit = "+level.synchronousCommit()); err != nil {
			return fmt.Errorf("set synchronous_commit: %w", err)
		}
		return fn(ctx, tx)
	})
}
