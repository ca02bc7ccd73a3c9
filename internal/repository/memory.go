package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/igarcialujan/user-management-api/internal/model"
)

// MemoryUserRepository keeps users in process. Username and email stay unique
// under the same lock that applies the write.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]model.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: map[string]model.User{}}
}

func (r *MemoryUserRepository) Insert(_ context.Context, u model.User) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conflictsLocked(u, "") {
		return "", model.ErrDuplicateKey
	}

	now := time.Now().UTC()
	u.ID = uuid.NewString()
	u.Favorites = slices.Clone(nonNil(u.Favorites))
	u.CreatedAt = now
	u.UpdatedAt = now
	r.users[u.ID] = u

	return u.ID, nil
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *MemoryUserRepository) FindByField(_ context.Context, field model.UniqueField, value string) (model.User, error) {
	if field != model.FieldUsername && field != model.FieldEmail {
		return model.User{}, fmt.Errorf("find user: unsupported field %q", field)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if (field == model.FieldUsername && u.Username == value) || (field == model.FieldEmail && u.Email == value) {
			return cloneUser(u), nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (r *MemoryUserRepository) Save(_ context.Context, u model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[u.ID]
	if !ok {
		return model.ErrUserNotFound
	}
	if r.conflictsLocked(u, u.ID) {
		return model.ErrDuplicateKey
	}

	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	r.users[u.ID] = cloneUser(u)

	return nil
}

func (r *MemoryUserRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return model.ErrUserNotFound
	}
	delete(r.users, id)

	return nil
}

func (r *MemoryUserRepository) Ping(context.Context) error {
	return nil
}

func (r *MemoryUserRepository) conflictsLocked(u model.User, selfID string) bool {
	for id, other := range r.users {
		if id == selfID {
			continue
		}
		if other.Username == u.Username || other.Email == u.Email {
			return true
		}
	}
	return false
}

func cloneUser(u model.User) model.User {
	u.Favorites = slices.Clone(nonNil(u.Favorites))
	return u
}

type MemoryTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]model.RefreshToken
	now    func() time.Time
}

func NewMemoryTokenRepository() *MemoryTokenRepository {
	return &MemoryTokenRepository{tokens: map[string]model.RefreshToken{}, now: time.Now}
}

func (r *MemoryTokenRepository) Store(_ context.Context, token model.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tokens[token.ID] = token
	return nil
}

func (r *MemoryTokenRepository) Consume(_ context.Context, id string, tokenHash string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[id]
	if !ok || token.TokenHash != tokenHash || !token.ExpiresAt.After(r.now()) {
		return "", model.ErrTokenNotFound
	}
	delete(r.tokens, id)

	return token.UserID, nil
}

func (r *MemoryTokenRepository) Revoke(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tokens, id)
	return nil
}

func (r *MemoryTokenRepository) RevokeAllForUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, token := range r.tokens {
		if token.UserID == userID {
			delete(r.tokens, id)
		}
	}
	return nil
}

func (r *MemoryTokenRepository) CleanExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	now := r.now()
	for id, token := range r.tokens {
		if !token.ExpiresAt.After(now) {
			delete(r.tokens, id)
			removed++
		}
	}
	return removed, nil
}

type MemoryAuditRepository struct {
	mu      sync.RWMutex
	entries []model.ActivityEntry
}

func NewMemoryAuditRepository() *MemoryAuditRepository {
	return &MemoryAuditRepository{}
}

func (r *MemoryAuditRepository) Append(_ context.Context, entry model.ActivityEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, entry)
	return nil
}

func (r *MemoryAuditRepository) ListByUser(_ context.Context, userID string, limit int) ([]model.ActivityEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]model.ActivityEntry, 0)
	for i := len(r.entries) - 1; i >= 0 && len(entries) < limit; i-- {
		if r.entries[i].UserID == userID {
			entries = append(entries, r.entries[i])
		}
	}
	return entries, nil
}
