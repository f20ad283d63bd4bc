package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReminderSweep refreshes notification feeds for users holding due
	// reminders, so prompts surface even without an open admin tab.
	TaskReminderSweep = "reminder:sweep"
	// TaskSessionCleanup purges expired session rows and stale
	// idempotency keys.
	TaskSessionCleanup = "session:cleanup"
)

// ReminderSweepPayload bounds one sweep run.
type ReminderSweepPayload struct {
	MaxUsers int `json:"max_users"`
}

// NewReminderSweepTask constructs an Asynq task.
func NewReminderSweepTask(maxUsers int) (*asynq.Task, error) {
	data, err := json.Marshal(ReminderSweepPayload{MaxUsers: maxUsers})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReminderSweep, data), nil
}

// SessionCleanupPayload configures retention for the cleanup run.
type SessionCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewSessionCleanupTask constructs an Asynq task.
func NewSessionCleanupTask(retentionHours int) (*asynq.Task, error) {
	data, err := json.Marshal(SessionCleanupPayload{RetentionHours: retentionHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionCleanup, data), nil
}
