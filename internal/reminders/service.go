package reminders

import (
	"context"
	"log/slog"
	"time"

	"github.com/Eric920418/Manpower-sub002/internal/shared"
)

// Service implements reminder lifecycle rules on top of the repository.
type Service struct {
	logger *slog.Logger
	repo   Repository
	now    func() time.Time
	// interval is the re-prompt window. A reminder shown within the last
	// interval is not due again until the window elapses.
	interval time.Duration
}

// NewService builds a Service. The clock is injectable for tests.
func NewService(logger *slog.Logger, repo Repository, interval time.Duration, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{logger: logger, repo: repo, now: now, interval: interval}
}

// Create records the follow-ups a user chose to defer while completing a
// task. Inputs with an empty label keep the label of their task type id as
// supplied by the caller; no deduplication is performed.
func (s *Service) Create(ctx context.Context, userID, sourceTaskID int64, items []Input) ([]Reminder, error) {
	if len(items) == 0 {
		return nil, nil
	}
	created, err := s.repo.Insert(ctx, userID, sourceTaskID, items)
	if err != nil {
		return nil, err
	}
	s.logger.Info("reminders created",
		slog.Int64("user_id", userID),
		slog.Int64("source_task_id", sourceTaskID),
		slog.Int("count", len(created)))
	return created, nil
}

// Due returns the user's active reminders that are eligible to surface now.
func (s *Service) Due(ctx context.Context, userID int64) ([]Reminder, error) {
	cutoff := s.now().Add(-s.interval)
	return s.repo.ListDue(ctx, userID, cutoff)
}

// MarkShown persists that the given reminders surfaced for the user. Callers
// must invoke this before rendering so a crash after the write drops the
// prompt rather than repeating it. Ids owned by another user are ignored.
func (s *Service) MarkShown(ctx context.Context, userID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return s.repo.MarkShown(ctx, userID, ids, s.now())
}

// Complete links the reminder to the task that fulfilled it. Completing an
// already terminal reminder is a no-op. A reminder owned by another user is
// reported as not found.
func (s *Service) Complete(ctx context.Context, userID, id, completedTaskID int64) error {
	reminder, err := s.get(ctx, userID, id)
	if err != nil {
		return err
	}
	if reminder.State.Terminal() {
		return nil
	}
	return s.repo.SetCompleted(ctx, id, completedTaskID)
}

// Dismiss marks the reminder dismissed without deleting the row. Dismissing
// an already terminal reminder is a no-op. A reminder owned by another user
// is reported as not found.
func (s *Service) Dismiss(ctx context.Context, userID, id int64) error {
	reminder, err := s.get(ctx, userID, id)
	if err != nil {
		return err
	}
	if reminder.State.Terminal() {
		return nil
	}
	return s.repo.SetDismissed(ctx, id)
}

// get fetches the reminder and enforces ownership. Foreign rows surface as
// not found so callers cannot probe for other users' ids.
func (s *Service) get(ctx context.Context, userID, id int64) (Reminder, error) {
	reminder, err := s.repo.Get(ctx, id)
	if err != nil {
		return Reminder{}, err
	}
	if reminder.UserID != userID {
		return Reminder{}, shared.ErrNotFound
	}
	return reminder, nil
}

// UsersWithDue lists users holding due reminders, for the background sweep.
func (s *Service) UsersWithDue(ctx context.Context) ([]int64, error) {
	cutoff := s.now().Add(-s.interval)
	return s.repo.ListUsersWithDue(ctx, cutoff)
}
