package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-tasks-api/internal/domain"
	"github.com/go-tasks-api/internal/infrastructure/memory"
	"github.com/go-tasks-api/internal/pkg/keylock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockAccountReader struct{ mock.Mock }

func (m *mockAccountReader) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

type countingMetrics struct{ removed int }

func (c *countingMetrics) OrphansRemoved(n int) { c.removed += n }

// --- helpers ---

type fixture struct {
	svc      Service
	tasks    *memory.TaskRepo
	accounts *memory.AccountRepo
	locks    *keylock.Map
}

func newFixture(t *testing.T, owners ...string) fixture {
	t.Helper()
	tasks := memory.NewTaskRepo()
	accounts := memory.NewAccountRepo()
	for _, o := range owners {
		require.NoError(t, accounts.Create(context.Background(), &domain.Account{AccountID: o, Email: o + "@x.com"}))
	}
	locks := keylock.New()
	return fixture{
		svc:      NewService(ServiceDeps{TaskRepo: tasks, AccountRepo: accounts, Locks: locks}),
		tasks:    tasks,
		accounts: accounts,
		locks:    locks,
	}
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

// --- tests ---

func TestCreate_ListScopedToOwner(t *testing.T) {
	f := newFixture(t, "o1", "o2")
	ctx := context.Background()

	_, err := f.svc.Create(ctx, "o1", domain.CreateTaskRequest{Title: "  buy milk "})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, "o2", domain.CreateTaskRequest{Title: "other"})
	require.NoError(t, err)

	list, err := f.svc.List(ctx, "o1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "buy milk", list[0].Title)
	assert.False(t, list[0].Completed)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t, "o1")
	_, err := f.svc.Create(context.Background(), "o1", domain.CreateTaskRequest{Title: "   "})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreate_DeletedOwner(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), "gone", domain.CreateTaskRequest{Title: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	owners, err := f.tasks.ListOwnerIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, owners)
}

func TestCreate_WaitsForOwnerLock(t *testing.T) {
	f := newFixture(t, "o1")
	ctx := context.Background()

	unlock, err := f.locks.Lock(ctx, keylock.OwnerKey("o1"))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Create(ctx, "o1", domain.CreateTaskRequest{Title: "x"})
		done <- err
	}()

	// Simulate DeleteAccount: account row goes away while the lock is held.
	require.NoError(t, f.accounts.Delete(ctx, "o1"))
	unlock()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, domain.ErrNotFound)
	case <-time.After(2 * time.Second):
		t.Fatal("create did not return")
	}
}

func TestUpdate_Toggle_Delete(t *testing.T) {
	f := newFixture(t, "o1", "o2")
	ctx := context.Background()
	created, err := f.svc.Create(ctx, "o1", domain.CreateTaskRequest{Title: "x"})
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, "o1", created.TaskID, domain.UpdateTaskRequest{
		Title:       strPtr("y"),
		Description: strPtr("desc"),
		Completed:   boolPtr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "y", updated.Title)
	assert.Equal(t, "desc", updated.Description)
	assert.True(t, updated.Completed)

	toggled, err := f.svc.ToggleComplete(ctx, "o1", created.TaskID)
	require.NoError(t, err)
	assert.False(t, toggled.Completed)

	_, err = f.svc.ToggleComplete(ctx, "o2", created.TaskID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "other owners see NotFound")
	assert.ErrorIs(t, f.svc.Delete(ctx, "o2", created.TaskID), domain.ErrNotFound)

	require.NoError(t, f.svc.Delete(ctx, "o1", created.TaskID))
	assert.ErrorIs(t, f.svc.Delete(ctx, "o1", created.TaskID), domain.ErrNotFound)
}

func TestUpdate_EmptyTitleRejected(t *testing.T) {
	f := newFixture(t, "o1")
	ctx := context.Background()
	created, err := f.svc.Create(ctx, "o1", domain.CreateTaskRequest{Title: "x"})
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, "o1", created.TaskID, domain.UpdateTaskRequest{Title: strPtr(" ")})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDeleteAllForOwner(t *testing.T) {
	f := newFixture(t, "o1")
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.svc.Create(ctx, "o1", domain.CreateTaskRequest{Title: "x"})
		require.NoError(t, err)
	}
	n, err := f.svc.DeleteAllForOwner(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSweepOnce_RemovesOnlyOrphans(t *testing.T) {
	f := newFixture(t, "live")
	ctx := context.Background()
	require.NoError(t, f.tasks.Put(ctx, &domain.Task{TaskID: "t1", OwnerID: "live"}))
	require.NoError(t, f.tasks.Put(ctx, &domain.Task{TaskID: "t2", OwnerID: "dead"}))
	require.NoError(t, f.tasks.Put(ctx, &domain.Task{TaskID: "t3", OwnerID: "dead"}))

	m := &countingMetrics{}
	n, err := NewSweeper(f.tasks, f.accounts, f.locks, m, 0).SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, m.removed)

	owners, err := f.tasks.ListOwnerIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"live"}, owners)
}

func TestSweepOnce_SkipsOwnerOnLookupError(t *testing.T) {
	tasks := memory.NewTaskRepo()
	ctx := context.Background()
	require.NoError(t, tasks.Put(ctx, &domain.Task{TaskID: "t1", OwnerID: "o1"}))

	accounts := &mockAccountReader{}
	accounts.On("Get", mock.Anything, "o1").Return(nil, errors.New("timeout"))

	n, err := NewSweeper(tasks, accounts, nil, nil, 0).SweepOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	list, err := tasks.ListByOwner(ctx, "o1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewSweeper(f.tasks, f.accounts, f.locks, nil, time.Millisecond).Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
