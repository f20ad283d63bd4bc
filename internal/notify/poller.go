package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Eric920418/Manpower-sub002/internal/reminders"
	"github.com/Eric920418/Manpower-sub002/internal/tasks"
)

// Gate decides whether a poll cycle may run for the user. The stream handler
// gates on an authenticated session; a signed-out user polls nothing.
type Gate interface {
	Allow(ctx context.Context, userID int64) bool
}

// GateFunc adapts a function to the Gate interface.
type GateFunc func(ctx context.Context, userID int64) bool

func (f GateFunc) Allow(ctx context.Context, userID int64) bool { return f(ctx, userID) }

// ReminderSource supplies due reminders and persists the shown transition.
type ReminderSource interface {
	Due(ctx context.Context, userID int64) ([]reminders.Reminder, error)
	MarkShown(ctx context.Context, userID int64, ids []int64) error
}

// TaskSource supplies the three task backed pending-work categories.
type TaskSource interface {
	NeedingRevision(ctx context.Context, assigneeID int64) ([]tasks.Task, error)
	PendingDocuments(ctx context.Context, assigneeID int64) ([]tasks.Task, error)
	UnclaimedCount(ctx context.Context) (int, error)
}

// Observer records poll cycle metrics. All methods may be called from
// concurrent cycles.
type Observer interface {
	ObservePollCycle(outcome string)
	ObservePollSkipped()
	ObserveCategoryFailure(category string)
}

type nopObserver struct{}

func (nopObserver) ObservePollCycle(string)       {}
func (nopObserver) ObservePollSkipped()           {}
func (nopObserver) ObserveCategoryFailure(string) {}

// PollerConfig carries the schedule knobs.
type PollerConfig struct {
	InitialDelay      time.Duration
	Interval          time.Duration
	CycleTimeout      time.Duration
	UnclaimedToastTTL time.Duration
}

// Poller runs the periodic pending-work sweep for one user: an initial short
// delay after start, then one cycle per interval. Each cycle checks four
// independent categories and pushes whatever it finds to the sink.
type Poller struct {
	logger    *slog.Logger
	cfg       PollerConfig
	clock     Clock
	gate      Gate
	reminders ReminderSource
	tasks     TaskSource
	sink      Sink
	observer  Observer

	inFlight atomic.Bool
}

// NewPoller builds a Poller. A nil clock falls back to the system clock and
// a nil observer to a no-op.
func NewPoller(logger *slog.Logger, cfg PollerConfig, clock Clock, gate Gate, reminderSrc ReminderSource, taskSrc TaskSource, sink Sink, observer Observer) *Poller {
	if clock == nil {
		clock = SystemClock()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Poller{
		logger:    logger,
		cfg:       cfg,
		clock:     clock,
		gate:      gate,
		reminders: reminderSrc,
		tasks:     taskSrc,
		sink:      sink,
		observer:  observer,
	}
}

// Run drives the schedule until the context is cancelled.
func (p *Poller) Run(ctx context.Context, userID int64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.clock.After(p.cfg.InitialDelay):
	}
	for {
		p.Poll(ctx, userID)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.clock.After(p.cfg.Interval):
		}
	}
}

// Poll runs one cycle. A cycle already in flight makes this call a recorded
// skip rather than a queued second cycle.
func (p *Poller) Poll(ctx context.Context, userID int64) {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.observer.ObservePollSkipped()
		return
	}
	defer p.inFlight.Store(false)

	if !p.gate.Allow(ctx, userID) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx, p.cfg.CycleTimeout)
	defer cancel()

	categories := []struct {
		name Category
		run  func(context.Context, int64) error
	}{
		{CategoryReminder, p.checkReminders},
		{CategoryNeedsRevision, p.checkNeedingRevision},
		{CategoryPendingDocuments, p.checkPendingDocuments},
		{CategoryUnclaimed, p.checkUnclaimed},
	}

	// Categories run concurrently and fail independently; one broken query
	// never suppresses the other prompts.
	var (
		g      errgroup.Group
		failed atomic.Bool
	)
	for _, category := range categories {
		g.Go(func() error {
			if err := category.run(cctx, userID); err != nil {
				failed.Store(true)
				p.observer.ObserveCategoryFailure(string(category.name))
				p.logger.Error("notification category check failed",
					slog.String("category", string(category.name)),
					slog.Int64("user_id", userID),
					slog.Any("error", err))
			}
			return nil
		})
	}
	_ = g.Wait()

	outcome := "ok"
	if failed.Load() {
		outcome = "partial"
	}
	p.observer.ObservePollCycle(outcome)
}

// checkReminders surfaces due reminders. The shown transition is persisted
// before the sink sees the batch; a crash in between drops the prompt for
// one interval instead of repeating it.
func (p *Poller) checkReminders(ctx context.Context, userID int64) error {
	due, err := p.reminders.Due(ctx, userID)
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
	if err := p.reminders.MarkShown(ctx, userID, ids); err != nil {
		return err
	}
	batch := make([]Notification, 0, len(due))
	for _, reminder := range due {
		batch = append(batch, ReminderNotification(reminder, p.clock.Now()))
	}
	return p.sink.Notify(ctx, userID, batch)
}

func (p *Poller) checkNeedingRevision(ctx context.Context, userID int64) error {
	list, err := p.tasks.NeedingRevision(ctx, userID)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return nil
	}
	batch := make([]Notification, 0, len(list))
	for _, task := range list {
		batch = append(batch, Notification{
			ID:         uuid.NewString(),
			Category:   CategoryNeedsRevision,
			Title:      "任務待修正",
			Message:    withDeadline(fmt.Sprintf("「%s」被退回：%s", task.Title, task.RevisionReason), task.Deadline),
			ActionPath: fmt.Sprintf("/admin/admin-tasks?viewTask=%d", task.ID),
			Sticky:     true,
			CreatedAt:  p.clock.Now(),
		})
	}
	return p.sink.Notify(ctx, userID, batch)
}

func (p *Poller) checkPendingDocuments(ctx context.Context, userID int64) error {
	list, err := p.tasks.PendingDocuments(ctx, userID)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return nil
	}
	batch := make([]Notification, 0, len(list))
	for _, task := range list {
		batch = append(batch, Notification{
			ID:         uuid.NewString(),
			Category:   CategoryPendingDocuments,
			Title:      "文件待補齊",
			Message:    withDeadline(fmt.Sprintf("「%s」文件未齊：%s", task.Title, task.PendingReason), task.Deadline),
			ActionPath: fmt.Sprintf("/admin/admin-tasks?viewTask=%d", task.ID),
			Sticky:     true,
			CreatedAt:  p.clock.Now(),
		})
	}
	return p.sink.Notify(ctx, userID, batch)
}

// withDeadline appends the task deadline to the message when one is set.
func withDeadline(message string, deadline *time.Time) string {
	if deadline == nil {
		return message
	}
	return fmt.Sprintf("%s（截止 %s）", message, deadline.Format("2006-01-02"))
}

// checkUnclaimed emits at most one summary toast regardless of how many
// tasks sit unclaimed.
func (p *Poller) checkUnclaimed(ctx context.Context, userID int64) error {
	count, err := p.tasks.UnclaimedCount(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	toast := Notification{
		ID:               uuid.NewString(),
		Category:         CategoryUnclaimed,
		Title:            "待認領任務",
		Message:          fmt.Sprintf("目前有 %d 件任務尚未認領", count),
		ActionPath:       "/admin/admin-tasks?filter=unclaimed",
		AutoDismissAfter: p.cfg.UnclaimedToastTTL,
		CreatedAt:        p.clock.Now(),
	}
	return p.sink.Notify(ctx, userID, []Notification{toast})
}
