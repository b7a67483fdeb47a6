package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-tasks-api/internal/domain"
	"github.com/go-tasks-api/internal/pkg/keylock"
)

// DeleteAccount removes the account row first, so a failed cascade can only
// leave tasks no operation can reach. Those are retried here, then left for
// the orphan sweeper; the caller still sees success.
func (s *service) DeleteAccount(ctx context.Context, accountID string) (err error) {
	defer s.finish("delete_account", &err)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	a, err := s.accounts.Get(ctx, accountID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewError(domain.ErrNotFound, msgUserNotFound)
	}
	if err != nil {
		return err
	}

	unlock, err := s.lock(ctx, keylock.EmailKey(a.Email), keylock.OwnerKey(accountID))
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.accounts.Delete(ctx, accountID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewError(domain.ErrNotFound, msgUserNotFound)
		}
		return fmt.Errorf("delete account: %w", err)
	}
	if err := s.ledger.Discard(ctx, a.Email); err != nil {
		slog.Warn("failed to discard OTP records of deleted account", "account_id", accountID, "err", err)
	}
	s.cascade(ctx, accountID)
	return nil
}

// cascade survives the request context being cancelled once the account is gone.
func (s *service) cascade(ctx context.Context, accountID string) {
	base := context.WithoutCancel(ctx)
	var err error
	for attempt := 1; attempt <= cascadeAttempts; attempt++ {
		actx, cancel := context.WithTimeout(base, s.ioTimeout)
		var n int
		n, err = s.tasks.DeleteAllForOwner(actx, accountID)
		cancel()
		if err == nil {
			if n > 0 {
				slog.Info("deleted tasks of removed account", "account_id", accountID, "count", n)
			}
			return
		}
		slog.Warn("task cascade attempt failed", "account_id", accountID, "attempt", attempt, "err", err)
		if attempt < cascadeAttempts {
			time.Sleep(time.Duration(attempt) * s.backoff)
		}
	}
	s.metrics.CascadeFailed()
	slog.Error("task cascade failed; orphaned tasks left for sweeper", "account_id", accountID, "err", err)
}
