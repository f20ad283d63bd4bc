package reminders

import "time"

// State enumerates the reminder lifecycle. Completed and dismissed are
// terminal; dismissal is a state transition, never a delete.
type State string

const (
	StateOpen      State = "open"
	StateShown     State = "shown"
	StateCompleted State = "completed"
	StateDismissed State = "dismissed"
)

// Terminal reports whether the state accepts no further transitions.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateDismissed
}

// Reminder is a deferred obligation to create a follow-up task.
type Reminder struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"user_id"`
	SourceTaskID    int64      `json:"source_task_id"`
	TaskTypeID      int64      `json:"task_type_id"`
	TaskTypeLabel   string     `json:"task_type_label"`
	State           State      `json:"state"`
	CompletedTaskID *int64     `json:"completed_task_id,omitempty"`
	LastShownAt     *time.Time `json:"last_shown_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Input describes one follow-up the user deferred.
type Input struct {
	TaskTypeID int64  `json:"task_type_id"`
	Label      string `json:"label"`
}
