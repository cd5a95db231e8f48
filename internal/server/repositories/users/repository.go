// Package users holds the user record store and its in-memory and
// PostgreSQL implementations.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository is the user record store.
//
// Create is a single conditional write: it returns common.ErrorConflict if
// the username is taken, and never leaves a partial record behind.
// GetByUsername returns the credentials record without its access history,
// or common.ErrorNotFound for unknown users.
// RecentAccesses returns at most n of the newest access times, oldest
// first; n <= 0 yields an empty slice. Unknown users yield
// common.ErrorNotFound.
// RecordAccess appends at to the user's access history; concurrent calls
// for the same user are all reflected.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	RecentAccesses(ctx context.Context, username string, n int) ([]time.Time, error)
	RecordAccess(ctx context.Context, username string, at time.Time) error
	Ping(ctx context.Context) error
}
