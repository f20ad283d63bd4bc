package reminders

import (
	"context"
	"time"
)

// Repository defines persistence operations for reminders.
type Repository interface {
	Insert(ctx context.Context, userID, sourceTaskID int64, items []Input) ([]Reminder, error)
	Get(ctx context.Context, id int64) (Reminder, error)
	// ListDue returns open/shown reminders for the user whose last-shown
	// timestamp is null or older than the cutoff.
	ListDue(ctx context.Context, userID int64, shownBefore time.Time) ([]Reminder, error)
	// MarkShown transitions the user's reminders to shown; ids owned by
	// other users are left untouched.
	MarkShown(ctx context.Context, userID int64, ids []int64, shownAt time.Time) error
	SetCompleted(ctx context.Context, id, completedTaskID int64) error
	SetDismissed(ctx context.Context, id int64) error
	// ListUsersWithDue returns ids of users holding at least one due
	// reminder, used by the background sweep.
	ListUsersWithDue(ctx context.Context, shownBefore time.Time) ([]int64, error)
}
