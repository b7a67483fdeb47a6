package task

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-tasks-api/internal/domain"
	"github.com/go-tasks-api/internal/pkg/keylock"
)

type orphanCounter interface {
	OrphansRemoved(n int)
}

// Sweeper removes tasks whose owner account no longer exists. It picks up
// cascades that failed or were interrupted during account deletion.
type Sweeper struct {
	tasks    Store
	accounts accountReader
	locks    *keylock.Map
	metrics  orphanCounter
	interval time.Duration
}

func NewSweeper(tasks Store, accounts accountReader, locks *keylock.Map, metrics orphanCounter, interval time.Duration) *Sweeper {
	if locks == nil {
		locks = keylock.New()
	}
	return &Sweeper{tasks: tasks, accounts: accounts, locks: locks, metrics: metrics, interval: interval}
}

// Run sweeps once immediately, then every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	if _, err := s.SweepOnce(ctx); err != nil {
		slog.Error("orphan sweep failed", "err", err)
	}
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				slog.Error("orphan sweep failed", "err", err)
			}
		}
	}
}

// SweepOnce returns the number of orphaned tasks removed.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	owners, err := s.tasks.ListOwnerIDs(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, ownerID := range owners {
		n, err := s.sweepOwner(ctx, ownerID)
		if err != nil {
			slog.Warn("orphan sweep skipped owner", "owner_id", ownerID, "err", err)
			continue
		}
		if n > 0 {
			slog.Warn("removed orphaned tasks", "owner_id", ownerID, "count", n)
			total += n
		}
	}
	if s.metrics != nil {
		s.metrics.OrphansRemoved(total)
	}
	return total, nil
}

func (s *Sweeper) sweepOwner(ctx context.Context, ownerID string) (int, error) {
	unlock, err := s.locks.Lock(ctx, keylock.OwnerKey(ownerID))
	if err != nil {
		return 0, err
	}
	defer unlock()

	_, err = s.accounts.Get(ctx, ownerID)
	if err == nil {
		return 0, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return 0, err
	}
	return s.tasks.DeleteByOwner(ctx, ownerID)
}
