package tasks

import "time"

// Status enumerates task lifecycle states.
type Status string

const (
	StatusUnclaimed Status = "unclaimed"
	StatusClaimed   Status = "claimed"
	StatusDone      Status = "done"
)

// Task is an internal admin work item.
type Task struct {
	ID             int64      `json:"id"`
	Title          string     `json:"title"`
	TypeID         int64      `json:"type_id"`
	TypeLabel      string     `json:"type_label"`
	Status         Status     `json:"status"`
	AssigneeID     *int64     `json:"assignee_id,omitempty"`
	NeedsRevision  bool       `json:"needs_revision"`
	RevisionReason string     `json:"revision_reason,omitempty"`
	PendingDocs    bool       `json:"pending_docs"`
	PendingReason  string     `json:"pending_reason,omitempty"`
	Deadline       *time.Time `json:"deadline,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
