package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/go-tasks-api/internal/domain"
)

type TaskRepo struct {
	mu    sync.RWMutex
	tasks map[string]domain.Task
}

func NewTaskRepo() *TaskRepo {
	return &TaskRepo{tasks: make(map[string]domain.Task)}
}

func (r *TaskRepo) Put(_ context.Context, t *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[t.TaskID] = cloneTask(*t)
	return nil
}

func (r *TaskRepo) Get(_ context.Context, taskID string) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[taskID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneTask(t)
	return &out, nil
}

// ListByOwner returns the owner's tasks, newest first.
func (r *TaskRepo) ListByOwner(_ context.Context, ownerID string) ([]domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Task, 0)
	for _, t := range r.tasks {
		if t.OwnerID == ownerID {
			out = append(out, cloneTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *TaskRepo) Delete(_ context.Context, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[taskID]; !ok {
		return domain.ErrNotFound
	}
	delete(r.tasks, taskID)
	return nil
}

// DeleteByOwner removes every task owned by ownerID and reports how many went.
func (r *TaskRepo) DeleteByOwner(_ context.Context, ownerID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, t := range r.tasks {
		if t.OwnerID == ownerID {
			delete(r.tasks, id)
			n++
		}
	}
	return n, nil
}

// ListOwnerIDs returns the distinct owner IDs referenced by stored tasks.
func (r *TaskRepo) ListOwnerIDs(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, t := range r.tasks {
		seen[t.OwnerID] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func cloneTask(t domain.Task) domain.Task {
	if t.Deadline != nil {
		d := *t.Deadline
		t.Deadline = &d
	}
	return t
}
