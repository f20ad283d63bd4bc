package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/Eric920418/Manpower-sub002/internal/notify"
	"github.com/Eric920418/Manpower-sub002/internal/reminders"
)

// ReminderSweepJob pushes due reminders into the notification feed for
// users who have no live stream open. The shown transition persists before
// the feed write, matching the live poller.
type ReminderSweepJob struct {
	logger  *slog.Logger
	service *reminders.Service
	sink    notify.Sink
	clock   notify.Clock
}

// NewReminderSweepJob constructs the job.
func NewReminderSweepJob(logger *slog.Logger, service *reminders.Service, sink notify.Sink, clock notify.Clock) *ReminderSweepJob {
	if clock == nil {
		clock = notify.SystemClock()
	}
	return &ReminderSweepJob{logger: logger, service: service, sink: sink, clock: clock}
}

// Handle processes TaskReminderSweep tasks.
func (j *ReminderSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ReminderSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	userIDs, err := j.service.UsersWithDue(ctx)
	if err != nil {
		return err
	}
	if payload.MaxUsers > 0 && len(userIDs) > payload.MaxUsers {
		userIDs = userIDs[:payload.MaxUsers]
	}

	swept := 0
	for _, userID := range userIDs {
		if err := j.sweepUser(ctx, userID); err != nil {
			j.logger.Error("reminder sweep user", slog.Int64("user_id", userID), slog.Any("error", err))
			continue
		}
		swept++
	}
	j.logger.Info("reminder sweep done", slog.Int("users", swept), slog.Int("candidates", len(userIDs)))
	return nil
}

func (j *ReminderSweepJob) sweepUser(ctx context.Context, userID int64) error {
	due, err := j.service.Due(ctx, userID)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}
	ids := make([]int64, len(due))
	for i, reminder := range due {
		ids[i] = reminder.ID
	}
	if err := j.service.MarkShown(ctx, userID, ids); err != nil {
		return err
	}
	batch := make([]notify.Notification, 0, len(due))
	for _, reminder := range due {
		batch = append(batch, notify.ReminderNotification(reminder, j.clock.Now()))
	}
	return j.sink.Notify(ctx, userID, batch)
}
