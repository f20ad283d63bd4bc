package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Eric920418/Manpower-sub002/internal/shared"
)

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const taskColumns = `t.id, t.title, t.type_id, tt.label, t.status, t.assignee_id,
	t.needs_revision, COALESCE(t.revision_reason, ''), t.pending_docs, COALESCE(t.pending_reason, ''),
	t.deadline, t.created_at, t.updated_at`

const taskFrom = ` FROM admin_tasks t JOIN task_types tt ON tt.id = t.type_id `

// GetTask fetches one task by id.
func (r *PGRepository) GetTask(ctx context.Context, id int64) (Task, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+taskColumns+taskFrom+`WHERE t.id = $1`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Task{}, shared.ErrNotFound
		}
		return Task{}, err
	}
	return task, nil
}

// ListNeedingRevision returns the caller's tasks flagged for revision.
func (r *PGRepository) ListNeedingRevision(ctx context.Context, assigneeID int64) ([]Task, error) {
	return r.list(ctx,
		`SELECT `+taskColumns+taskFrom+`WHERE t.assignee_id = $1 AND t.needs_revision ORDER BY t.updated_at DESC`,
		assigneeID)
}

// ListPendingDocuments returns the caller's tasks awaiting documents.
func (r *PGRepository) ListPendingDocuments(ctx context.Context, assigneeID int64) ([]Task, error) {
	return r.list(ctx,
		`SELECT `+taskColumns+taskFrom+`WHERE t.assignee_id = $1 AND t.pending_docs ORDER BY t.updated_at DESC`,
		assigneeID)
}

// CountUnclaimed counts tasks still awaiting a claimant.
func (r *PGRepository) CountUnclaimed(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM admin_tasks WHERE status = 'unclaimed'`).Scan(&count)
	return count, err
}

// ClaimTask moves an unclaimed task to the claiming user.
func (r *PGRepository) ClaimTask(ctx context.Context, taskID, userID int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE admin_tasks SET status = 'claimed', assignee_id = $2, updated_at = $3
		 WHERE id = $1 AND status = 'unclaimed'`,
		taskID, userID, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// AssignTask sets the assignee regardless of current claim state.
func (r *PGRepository) AssignTask(ctx context.Context, taskID, assigneeID int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE admin_tasks SET status = 'claimed', assignee_id = $2, updated_at = $3 WHERE id = $1`,
		taskID, assigneeID, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CreateTask inserts a new task.
func (r *PGRepository) CreateTask(ctx context.Context, task Task) (Task, error) {
	now := time.Now().UTC()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO admin_tasks (title, type_id, status, assignee_id, deadline, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6) RETURNING id`,
		task.Title, task.TypeID, string(StatusUnclaimed), task.AssigneeID, task.Deadline, now).Scan(&task.ID)
	if err != nil {
		return Task{}, err
	}
	task.Status = StatusUnclaimed
	task.CreatedAt = now
	task.UpdatedAt = now
	return task, nil
}

func (r *PGRepository) list(ctx context.Context, query string, args ...any) ([]Task, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanTask(row pgx.Row) (Task, error) {
	var (
		task   Task
		status string
	)
	err := row.Scan(&task.ID, &task.Title, &task.TypeID, &task.TypeLabel, &status, &task.AssigneeID,
		&task.NeedsRevision, &task.RevisionReason, &task.PendingDocs, &task.PendingReason,
		&task.Deadline, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return Task{}, err
	}
	task.Status = Status(status)
	return task, nil
}

var _ Repository = (*PGRepository)(nil)
