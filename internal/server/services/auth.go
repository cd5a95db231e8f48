// Package services contains the server-side use cases. AuthService handles
// registration, login, session checks and activity queries.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/clock"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/credentials"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"github.com/dmitrijs2005/gophauth/internal/server/sessions"
	"github.com/google/uuid"
)

// AuthService composes the user store, password hashing and the session
// store. Each use case is a strictly ordered chain; the first failing step
// ends it.
//
// Errors are drawn from common: ErrorConflict, ErrorUnauthorized,
// ErrorNotFound, or ErrorInternal wrapping the underlying cause.
type AuthService struct {
	users           users.Repository
	passwords       *credentials.Passwords
	sessions        sessions.Store
	clock           clock.Clock
	logger          logging.Logger
	writeTimeout    time.Duration
	activityEntries int
}

func NewAuthService(repo users.Repository, passwords *credentials.Passwords, store sessions.Store,
	c clock.Clock, l logging.Logger, cfg *config.Config) *AuthService {
	return &AuthService{
		users:           repo,
		passwords:       passwords,
		sessions:        store,
		clock:           c,
		logger:          logging.OrNop(l).With("module", "auth_service"),
		writeTimeout:    cfg.WriteTimeout,
		activityEntries: cfg.ActivityEntries,
	}
}

// Register creates a user. It returns common.ErrorConflict when the
// username is already taken and common.ErrorInvalidUsername when it is empty.
func (s *AuthService) Register(ctx context.Context, username, password, fullName string) (*models.User, error) {
	if username == "" {
		return nil, common.ErrorInvalidUsername
	}

	salt, err := credentials.NewSalt()
	if err != nil {
		return nil, s.internal(ctx, "register", err)
	}

	hash, err := s.passwords.Derive(password, salt)
	if err != nil {
		return nil, s.internal(ctx, "register", err)
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, s.internal(ctx, "register", err)
	}

	user := &models.User{
		ID:           id.String(),
		Username:     username,
		FullName:     fullName,
		Salt:         salt,
		PasswordHash: hash,
		CreatedAt:    s.clock.Now(),
	}

	wctx, cancel := s.writeContext(ctx)
	defer cancel()

	created, err := s.users.Create(wctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			s.logger.Info(ctx, "username already taken", "username", username)
			return nil, common.ErrorConflict
		}
		return nil, s.internal(ctx, "register", err)
	}

	s.logger.Info(ctx, "user registered", "username", username, "id", created.ID)
	return created, nil
}

// Login checks the password, records the access and issues a session token.
// Unknown users and wrong passwords both yield common.ErrorUnauthorized.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Info(ctx, "login failed", "username", username)
			return "", common.ErrorUnauthorized
		}
		return "", s.internal(ctx, "login", err)
	}

	ok, err := s.passwords.Verify(password, user.Salt, user.PasswordHash)
	if err != nil {
		return "", s.internal(ctx, "login", err)
	}
	if !ok {
		s.logger.Info(ctx, "login failed", "username", username)
		return "", common.ErrorUnauthorized
	}

	wctx, cancel := s.writeContext(ctx)
	defer cancel()

	if err := s.users.RecordAccess(wctx, username, s.clock.Now()); err != nil {
		return "", s.internal(ctx, "login", err)
	}

	token, err := s.sessions.Create(wctx, username)
	if err != nil {
		return "", s.internal(ctx, "login", err)
	}

	s.logger.Info(ctx, "user logged in", "username", username)
	return token, nil
}

// IsAuthorized reports whether token is a live session for username.
func (s *AuthService) IsAuthorized(ctx context.Context, username, token string) bool {
	return s.sessions.Validate(ctx, username, token)
}

// RecentActivity returns up to maxEntries of the user's most recent access
// times, oldest first. Unknown users yield common.ErrorNotFound.
func (s *AuthService) RecentActivity(ctx context.Context, username string, maxEntries int) ([]time.Time, error) {
	history, err := s.users.RecentAccesses(ctx, username, maxEntries)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, s.internal(ctx, "recent activity", err)
	}
	return history, nil
}

// AuthorizedActivity checks the session token and then returns the
// configured number of recent accesses.
func (s *AuthService) AuthorizedActivity(ctx context.Context, username, token string) ([]time.Time, error) {
	if !s.IsAuthorized(ctx, username, token) {
		return nil, common.ErrorUnauthorized
	}
	return s.RecentActivity(ctx, username, s.activityEntries)
}

// writeContext detaches writes from caller cancellation so an abandoned
// request cannot leave a write half issued.
func (s *AuthService) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if s.writeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.writeTimeout)
}

func (s *AuthService) internal(ctx context.Context, op string, err error) error {
	s.logger.Error(ctx, op+" failed", "error", err)
	return fmt.Errorf("%w: %s: %w", common.ErrorInternal, op, err)
}
