package postgres

import (
	"context"
	"fmt"

	"github.com/go-tasks-api/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const taskColumns = `task_id, owner_id, title, description, deadline, completed, created_at, updated_at`

// TaskRepo stores tasks. owner_id references accounts with ON DELETE CASCADE.
type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

// Put inserts the task or replaces its mutable fields.
func (r *TaskRepo) Put(ctx context.Context, t *domain.Task) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO tasks (`+taskColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (task_id) DO UPDATE SET
		   title = EXCLUDED.title,
		   description = EXCLUDED.description,
		   deadline = EXCLUDED.deadline,
		   completed = EXCLUDED.completed,
		   updated_at = EXCLUDED.updated_at`,
		t.TaskID, t.OwnerID, t.Title, t.Description, t.Deadline, t.Completed, t.CreatedAt, t.UpdatedAt)
	return mapError(err, "task")
}

func (r *TaskRepo) Get(ctx context.Context, taskID string) (*domain.Task, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE task_id = $1`, taskID)
	if err != nil {
		return nil, mapError(err, "task")
	}
	t, err := pgx.CollectExactlyOneRow(rows, scanTask)
	if err != nil {
		return nil, mapError(err, "task")
	}
	return &t, nil
}

// ListByOwner returns the owner's tasks, newest first.
func (r *TaskRepo) ListByOwner(ctx context.Context, ownerID string) ([]domain.Task, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE owner_id = $1 ORDER BY created_at DESC, task_id DESC`,
		ownerID)
	if err != nil {
		return nil, mapError(err, "task")
	}
	tasks, err := pgx.CollectRows(rows, scanTask)
	if err != nil {
		return nil, mapError(err, "task")
	}
	return tasks, nil
}

func (r *TaskRepo) Delete(ctx context.Context, taskID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE task_id = $1`, taskID)
	if err != nil {
		return mapError(err, "task")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task not found: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *TaskRepo) DeleteByOwner(ctx context.Context, ownerID string) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE owner_id = $1`, ownerID)
	if err != nil {
		return 0, mapError(err, "task")
	}
	return int(tag.RowsAffected()), nil
}

func (r *TaskRepo) ListOwnerIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT owner_id FROM tasks ORDER BY owner_id`)
	if err != nil {
		return nil, mapError(err, "task")
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, mapError(err, "task")
	}
	return ids, nil
}

func scanTask(row pgx.CollectableRow) (domain.Task, error) {
	var t domain.Task
	err := row.Scan(&t.TaskID, &t.OwnerID, &t.Title, &t.Description, &t.Deadline, &t.Completed, &t.CreatedAt, &t.UpdatedAt)
	t.Deadline = utcPtr(t.Deadline)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, err
}
