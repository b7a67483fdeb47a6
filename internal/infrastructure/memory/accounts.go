// Package memory holds mutex-guarded in-process stores. They back
// STORE_DRIVER=memory and the service tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/go-tasks-api/internal/domain"
)

type AccountRepo struct {
	mu      sync.RWMutex
	byID    map[string]domain.Account
	byEmail map[string]string
}

func NewAccountRepo() *AccountRepo {
	return &AccountRepo{
		byID:    make(map[string]domain.Account),
		byEmail: make(map[string]string),
	}
}

// Create inserts a, failing with domain.ErrConflict if the email is taken.
func (r *AccountRepo) Create(_ context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[a.Email]; ok {
		return domain.ErrConflict
	}
	if _, ok := r.byID[a.AccountID]; ok {
		return domain.ErrConflict
	}
	r.byID[a.AccountID] = cloneAccount(*a)
	r.byEmail[a.Email] = a.AccountID
	return nil
}

func (r *AccountRepo) Get(_ context.Context, accountID string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[accountID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneAccount(a)
	return &out, nil
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	r.mu.RLock()
	accountID, ok := r.byEmail[email]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.Get(ctx, accountID)
}

func (r *AccountRepo) GetByResetTokenHash(_ context.Context, hash string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.byID {
		if a.ResetTokenHash != nil && *a.ResetTokenHash == hash {
			out := cloneAccount(a)
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *AccountRepo) MarkVerified(_ context.Context, accountID string) error {
	return r.mutate(accountID, func(a *domain.Account) error {
		a.IsVerified = true
		return nil
	})
}

func (r *AccountRepo) SetResetToken(_ context.Context, accountID, hash string, expiresAt time.Time) error {
	return r.mutate(accountID, func(a *domain.Account) error {
		a.ResetTokenHash = &hash
		a.ResetTokenExpiresAt = &expiresAt
		return nil
	})
}

// ConsumeResetToken swaps the password hash and clears the reset token, but
// only if the stored token still equals hash and is unexpired at now.
func (r *AccountRepo) ConsumeResetToken(_ context.Context, accountID, hash, passwordHash string, now time.Time) error {
	return r.mutate(accountID, func(a *domain.Account) error {
		if a.ResetTokenHash == nil || *a.ResetTokenHash != hash || !a.HasLiveResetToken(now) {
			return domain.ErrConflict
		}
		a.PasswordHash = passwordHash
		a.ResetTokenHash = nil
		a.ResetTokenExpiresAt = nil
		return nil
	})
}

func (r *AccountRepo) Delete(_ context.Context, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[accountID]
	if !ok {
		return domain.ErrNotFound
	}
	delete(r.byID, accountID)
	delete(r.byEmail, a.Email)
	return nil
}

func (r *AccountRepo) mutate(accountID string, fn func(*domain.Account) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[accountID]
	if !ok {
		return domain.ErrNotFound
	}
	if err := fn(&a); err != nil {
		return err
	}
	a.UpdatedAt = time.Now().UTC()
	r.byID[accountID] = a
	return nil
}

func cloneAccount(a domain.Account) domain.Account {
	if a.ResetTokenHash != nil {
		h := *a.ResetTokenHash
		a.ResetTokenHash = &h
	}
	if a.ResetTokenExpiresAt != nil {
		t := *a.ResetTokenExpiresAt
		a.ResetTokenExpiresAt = &t
	}
	return a
}
