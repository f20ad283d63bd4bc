package reminders

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

const reminderColumns = `id, user_id, source_task_id, task_type_id, task_type_label,
	state, completed_task_id, last_shown_at, created_at, updated_at`

// Insert stores one row per deferred follow-up. No dedup is applied; two
// deferrals of the same follow-up surface twice by design.
func (r *PGRepository) Insert(ctx context.Context, userID, sourceTaskID int64, items []Input) ([]Reminder, error) {
	now := time.Now().UTC()
	out := make([]Reminder, 0, len(items))
	for _, item := range items {
		row := r.pool.QueryRow(ctx,
			`INSERT INTO pending_reminders (user_id, source_task_id, task_type_id, task_type_label, state, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $6)
			 RETURNING `+reminderColumns,
			userID, sourceTaskID, item.TaskTypeID, item.Label, string(StateOpen), now)
		reminder, err := scanReminder(row)
		if err != nil {
			return nil, err
		}
		out = append(out, reminder)
	}
	return out, nil
}

// Get fetches one reminder by id.
func (r *PGRepository) Get(ctx context.Context, id int64) (Reminder, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+reminderColumns+` FROM pending_reminders WHERE id = $1`, id)
	reminder, err := scanReminder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Reminder{}, shared.ErrNotFound
		}
		return Reminder{}, err
	}
	return reminder, nil
}

// ListDue returns active reminders eligible for re-prompting.
func (r *PGRepository) ListDue(ctx context.Context, userID int64, shownBefore time.Time) ([]Reminder, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+reminderColumns+` FROM pending_reminders
		 WHERE user_id = $1 AND state IN ('open', 'shown')
		   AND (last_shown_at IS NULL OR last_shown_at < $2)
		 ORDER BY created_at`,
		userID, shownBefore.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Reminder
	for rows.Next() {
		reminder, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, reminder)
	}
	return out, rows.Err()
}

// MarkShown batches the open→shown transition for the user's reminders.
func (r *PGRepository) MarkShown(ctx context.Context, userID int64, ids []int64, shownAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE pending_reminders
		 SET state = 'shown', last_shown_at = $2, updated_at = $2
		 WHERE id = ANY($1) AND user_id = $3 AND state IN ('open', 'shown')`,
		ids, shownAt.UTC(), userID)
	return err
}

// SetCompleted records the fulfilling task. Terminal rows are untouched so
// repeated completion is a no-op.
func (r *PGRepository) SetCompleted(ctx context.Context, id, completedTaskID int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE pending_reminders
		 SET state = 'completed', completed_task_id = $2, updated_at = $3
		 WHERE id = $1 AND state IN ('open', 'shown')`,
		id, completedTaskID, time.Now().UTC())
	return err
}

// SetDismissed marks the reminder dismissed. Terminal rows are untouched.
func (r *PGRepository) SetDismissed(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE pending_reminders
		 SET state = 'dismissed', updated_at = $2
		 WHERE id = $1 AND state IN ('open', 'shown')`,
		id, time.Now().UTC())
	return err
}

// ListUsersWithDue returns users holding at least one due reminder.
func (r *PGRepository) ListUsersWithDue(ctx context.Context, shownBefore time.Time) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT user_id FROM pending_reminders
		 WHERE state IN ('open', 'shown')
		   AND (last_shown_at IS NULL OR last_shown_at < $1)`,
		shownBefore.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func scanReminder(row pgx.Row) (Reminder, error) {
	var (
		reminder Reminder
		state    string
	)
	err := row.Scan(&reminder.ID, &reminder.UserID, &reminder.SourceTaskID, &reminder.TaskTypeID,
		&reminder.TaskTypeLabel, &state, &reminder.CompletedTaskID, &reminder.LastShownAt,
		&reminder.CreatedAt, &reminder.UpdatedAt)
	if err != nil {
		return Reminder{}, err
	}
	reminder.State = State(state)
	return reminder, nil
}

var _ Repository = (*PGRepository)(nil)
