package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-tasks-api/internal/domain"
	"github.com/go-tasks-api/internal/pkg/id"
	"github.com/go-tasks-api/internal/pkg/keylock"
	"github.com/go-tasks-api/internal/pkg/validate"
)

type Service interface {
	List(ctx context.Context, ownerID string) ([]domain.Task, error)
	Create(ctx context.Context, ownerID string, req domain.CreateTaskRequest) (*domain.Task, error)
	Update(ctx context.Context, ownerID, taskID string, req domain.UpdateTaskRequest) (*domain.Task, error)
	ToggleComplete(ctx context.Context, ownerID, taskID string) (*domain.Task, error)
	Delete(ctx context.Context, ownerID, taskID string) error
	DeleteAllForOwner(ctx context.Context, ownerID string) (int, error)
}

// Store persists tasks. ListOwnerIDs feeds the orphan sweeper.
type Store interface {
	Put(ctx context.Context, t *domain.Task) error
	Get(ctx context.Context, taskID string) (*domain.Task, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Task, error)
	Delete(ctx context.Context, taskID string) error
	DeleteByOwner(ctx context.Context, ownerID string) (int, error)
	ListOwnerIDs(ctx context.Context) ([]string, error)
}

type accountReader interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
}

type service struct {
	repo     Store
	accounts accountReader
	locks    *keylock.Map
	now      func() time.Time
}

type ServiceDeps struct {
	TaskRepo    Store
	AccountRepo accountReader
	Locks       *keylock.Map
}

func NewService(deps ServiceDeps) Service {
	locks := deps.Locks
	if locks == nil {
		locks = keylock.New()
	}
	return &service{
		repo:     deps.TaskRepo,
		accounts: deps.AccountRepo,
		locks:    locks,
		now:      time.Now,
	}
}

func (s *service) List(ctx context.Context, ownerID string) ([]domain.Task, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

func (s *service) Create(ctx context.Context, ownerID string, req domain.CreateTaskRequest) (*domain.Task, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := validate.Struct(req); err != nil {
		return nil, domain.NewError(domain.ErrValidation, err.Error())
	}
	now := s.now().UTC()
	t := &domain.Task{
		TaskID:      id.New(),
		OwnerID:     ownerID,
		Title:       req.Title,
		Description: req.Description,
		Deadline:    req.Deadline,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.withOwner(ctx, ownerID, func() error {
		return s.repo.Put(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *service) Update(ctx context.Context, ownerID, taskID string, req domain.UpdateTaskRequest) (*domain.Task, error) {
	if req.Title != nil {
		trimmed := strings.TrimSpace(*req.Title)
		req.Title = &trimmed
	}
	if err := validate.Struct(req); err != nil {
		return nil, domain.NewError(domain.ErrValidation, err.Error())
	}
	return s.mutateOwned(ctx, ownerID, taskID, func(t *domain.Task) {
		if req.Title != nil {
			t.Title = *req.Title
		}
		if req.Description != nil {
			t.Description = *req.Description
		}
		if req.Deadline != nil {
			t.Deadline = req.Deadline
		}
		if req.Completed != nil {
			t.Completed = *req.Completed
		}
	})
}

func (s *service) ToggleComplete(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	return s.mutateOwned(ctx, ownerID, taskID, func(t *domain.Task) {
		t.Completed = !t.Completed
	})
}

func (s *service) Delete(ctx context.Context, ownerID, taskID string) error {
	return s.withOwner(ctx, ownerID, func() error {
		if _, err := s.getOwned(ctx, ownerID, taskID); err != nil {
			return err
		}
		return s.repo.Delete(ctx, taskID)
	})
}

// DeleteAllForOwner removes every task of ownerID. The caller holds the owner lock.
func (s *service) DeleteAllForOwner(ctx context.Context, ownerID string) (int, error) {
	return s.repo.DeleteByOwner(ctx, ownerID)
}

func (s *service) mutateOwned(ctx context.Context, ownerID, taskID string, fn func(*domain.Task)) (*domain.Task, error) {
	var out *domain.Task
	err := s.withOwner(ctx, ownerID, func() error {
		t, err := s.getOwned(ctx, ownerID, taskID)
		if err != nil {
			return err
		}
		fn(t)
		t.UpdatedAt = s.now().UTC()
		if err := s.repo.Put(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	return out, err
}

// getOwned hides tasks of other owners behind NotFound.
func (s *service) getOwned(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	t, err := s.repo.Get(ctx, taskID)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && t.OwnerID != ownerID) {
		return nil, domain.NewError(domain.ErrNotFound, "Task not found")
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// withOwner runs fn under the owner lock after confirming the owner account
// still exists, so no write lands behind an account deletion.
func (s *service) withOwner(ctx context.Context, ownerID string, fn func() error) error {
	unlock, err := s.locks.Lock(ctx, keylock.OwnerKey(ownerID))
	if err != nil {
		return fmt.Errorf("acquire owner lock: %w", domain.ErrTimeout)
	}
	defer unlock()

	if _, err := s.accounts.Get(ctx, ownerID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewError(domain.ErrNotFound, "User not found")
		}
		return err
	}
	return fn()
}
