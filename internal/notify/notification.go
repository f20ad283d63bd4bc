package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Eric920418/Manpower-sub002/internal/reminders"
)

// Category identifies which pending-work check produced a notification.
type Category string

const (
	CategoryReminder         Category = "reminder"
	CategoryNeedsRevision    Category = "needs_revision"
	CategoryPendingDocuments Category = "pending_documents"
	CategoryUnclaimed        Category = "unclaimed"
)

// Notification is one toast delivered to an admin user. Sticky toasts stay
// until acted on; otherwise AutoDismissAfter bounds their lifetime.
type Notification struct {
	ID               string        `json:"id"`
	Category         Category      `json:"category"`
	Title            string        `json:"title"`
	Message          string        `json:"message"`
	ActionPath       string        `json:"action_path,omitempty"`
	Sticky           bool          `json:"sticky"`
	AutoDismissAfter time.Duration `json:"auto_dismiss_after,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
}

// ReminderNotification builds the sticky toast for one due reminder. The
// action path opens the task creation form prefilled from the deferral.
func ReminderNotification(reminder reminders.Reminder, now time.Time) Notification {
	return Notification{
		ID:       uuid.NewString(),
		Category: CategoryReminder,
		Title:    "待辦提醒",
		Message:  fmt.Sprintf("尚未建立「%s」後續任務", reminder.TaskTypeLabel),
		ActionPath: fmt.Sprintf("/admin/admin-tasks/new?taskType=%d&fromTask=%d&reminder=%d",
			reminder.TaskTypeID, reminder.SourceTaskID, reminder.ID),
		Sticky:    true,
		CreatedAt: now,
	}
}

// Sink receives notification batches produced by a poll cycle.
type Sink interface {
	Notify(ctx context.Context, userID int64, batch []Notification) error
}

// MultiSink fans a batch out to several sinks. Delivery continues past a
// failing sink; the first error is returned.
type MultiSink []Sink

func (m MultiSink) Notify(ctx context.Context, userID int64, batch []Notification) error {
	var firstErr error
	for _, sink := range m {
		if err := sink.Notify(ctx, userID, batch); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
