package users

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type memoryEntry struct {
	mu   sync.Mutex
	user *models.User
}

// MemoryRepository keeps users in a map. The map lock guards membership;
// each entry has its own lock so appends to different users do not contend.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]*memoryEntry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]*memoryEntry)}
}

func (r *MemoryRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	stored := user.Clone()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.Username]; ok {
		return nil, common.ErrorConflict
	}
	r.users[user.Username] = &memoryEntry{user: stored}

	return stored.Clone(), nil
}

func (r *MemoryRepository) GetByUsername(_ context.Context, username string) (*models.User, error) {
	e, ok := r.entry(username)
	if !ok {
		return nil, common.ErrorNotFound
	}

	e.mu.Lock()
	user := *e.user
	e.mu.Unlock()

	user.AccessHistory = nil
	return &user, nil
}

func (r *MemoryRepository) RecentAccesses(_ context.Context, username string, n int) ([]time.Time, error) {
	e, ok := r.entry(username)
	if !ok {
		return nil, common.ErrorNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.user.LastAccesses(n), nil
}

func (r *MemoryRepository) RecordAccess(_ context.Context, username string, at time.Time) error {
	e, ok := r.entry(username)
	if !ok {
		return common.ErrorNotFound
	}

	e.mu.Lock()
	e.user.AccessHistory = append(e.user.AccessHistory, at)
	e.mu.Unlock()
	return nil
}

func (r *MemoryRepository) Ping(context.Context) error { return nil }

func (r *MemoryRepository) entry(username string) (*memoryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.users[username]
	return e, ok
}
