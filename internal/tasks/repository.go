package tasks

import "context"

// Repository defines persistence operations for admin tasks.
type Repository interface {
	GetTask(ctx context.Context, id int64) (Task, error)
	ListNeedingRevision(ctx context.Context, assigneeID int64) ([]Task, error)
	ListPendingDocuments(ctx context.Context, assigneeID int64) ([]Task, error)
	CountUnclaimed(ctx context.Context) (int, error)
	ClaimTask(ctx context.Context, taskID, userID int64) error
	AssignTask(ctx context.Context, taskID, assigneeID int64) error
	CreateTask(ctx context.Context, task Task) (Task, error)
}
