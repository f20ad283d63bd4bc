package reminders

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eric920418/Manpower-sub002/internal/shared"
)

type memRepository struct {
	nextID    int64
	reminders map[int64]*Reminder
	shownSets [][]int64
}

func newMemRepository() *memRepository {
	return &memRepository{nextID: 1, reminders: make(map[int64]*Reminder)}
}

func (m *memRepository) Insert(ctx context.Context, userID, sourceTaskID int64, items []Input) ([]Reminder, error) {
	var out []Reminder
	for _, item := range items {
		reminder := &Reminder{
			ID:            m.nextID,
			UserID:        userID,
			SourceTaskID:  sourceTaskID,
			TaskTypeID:    item.TaskTypeID,
			TaskTypeLabel: item.Label,
			State:         StateOpen,
		}
		m.reminders[m.nextID] = reminder
		m.nextID++
		out = append(out, *reminder)
	}
	return out, nil
}

func (m *memRepository) Get(ctx context.Context, id int64) (Reminder, error) {
	if reminder, ok := m.reminders[id]; ok {
		return *reminder, nil
	}
	return Reminder{}, shared.ErrNotFound
}

func (m *memRepository) ListDue(ctx context.Context, userID int64, shownBefore time.Time) ([]Reminder, error) {
	var out []Reminder
	for id := int64(1); id < m.nextID; id++ {
		reminder, ok := m.reminders[id]
		if !ok || reminder.UserID != userID || reminder.State.Terminal() {
			continue
		}
		if reminder.LastShownAt != nil && !reminder.LastShownAt.Before(shownBefore) {
			continue
		}
		out = append(out, *reminder)
	}
	return out, nil
}

func (m *memRepository) MarkShown(ctx context.Context, userID int64, ids []int64, shownAt time.Time) error {
	m.shownSets = append(m.shownSets, ids)
	for _, id := range ids {
		if reminder, ok := m.reminders[id]; ok && reminder.UserID == userID && !reminder.State.Terminal() {
			at := shownAt
			reminder.State = StateShown
			reminder.LastShownAt = &at
		}
	}
	return nil
}

func (m *memRepository) SetCompleted(ctx context.Context, id, completedTaskID int64) error {
	reminder := m.reminders[id]
	if reminder.State.Terminal() {
		return nil
	}
	reminder.State = StateCompleted
	reminder.CompletedTaskID = &completedTaskID
	return nil
}

func (m *memRepository) SetDismissed(ctx context.Context, id int64) error {
	reminder := m.reminders[id]
	if reminder.State.Terminal() {
		return nil
	}
	reminder.State = StateDismissed
	return nil
}

func (m *memRepository) ListUsersWithDue(ctx context.Context, shownBefore time.Time) ([]int64, error) {
	seen := map[int64]bool{}
	var out []int64
	for id := int64(1); id < m.nextID; id++ {
		reminder := m.reminders[id]
		if reminder.State.Terminal() || seen[reminder.UserID] {
			continue
		}
		if reminder.LastShownAt != nil && !reminder.LastShownAt.Before(shownBefore) {
			continue
		}
		seen[reminder.UserID] = true
		out = append(out, reminder.UserID)
	}
	return out, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(repo Repository, now *time.Time) *Service {
	return NewService(discardLogger(), repo, 10*time.Minute, func() time.Time { return *now })
}

func TestCreateThenDueRoundTrip(t *testing.T) {
	repo := newMemRepository()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	service := newTestService(repo, &now)

	created, err := service.Create(context.Background(), 42, 100, []Input{{TaskTypeID: 7, Label: "聘僱許可函"}})
	require.NoError(t, err)
	require.Len(t, created, 1)

	due, err := service.Due(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, int64(7), due[0].TaskTypeID)
	assert.Equal(t, "聘僱許可函", due[0].TaskTypeLabel)
	assert.Equal(t, int64(100), due[0].SourceTaskID)
	assert.Equal(t, StateOpen, due[0].State)
}

func TestMarkShownSuppressesUntilWindowElapses(t *testing.T) {
	repo := newMemRepository()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	service := newTestService(repo, &now)

	created, err := service.Create(context.Background(), 1, 10, []Input{{TaskTypeID: 3, Label: "renewal"}})
	require.NoError(t, err)
	require.NoError(t, service.MarkShown(context.Background(), 1, []int64{created[0].ID}))

	due, err := service.Due(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, due, "a freshly shown reminder is not due again")

	now = now.Add(10*time.Minute + time.Second)
	due, err = service.Due(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, StateShown, due[0].State)
}

func TestDismissIsIdempotent(t *testing.T) {
	repo := newMemRepository()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	service := newTestService(repo, &now)

	created, err := service.Create(context.Background(), 1, 10, []Input{{TaskTypeID: 5, Label: "visa"}})
	require.NoError(t, err)
	id := created[0].ID

	require.NoError(t, service.Dismiss(context.Background(), 1, id))
	assert.Equal(t, StateDismissed, repo.reminders[id].State)

	require.NoError(t, service.Dismiss(context.Background(), 1, id), "second dismissal must not fail")
	assert.Equal(t, StateDismissed, repo.reminders[id].State)
}

func TestCompleteIsIdempotentAndKeepsFirstTask(t *testing.T) {
	repo := newMemRepository()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	service := newTestService(repo, &now)

	created, err := service.Create(context.Background(), 1, 10, []Input{{TaskTypeID: 5, Label: "visa"}})
	require.NoError(t, err)
	id := created[0].ID

	require.NoError(t, service.Complete(context.Background(), 1, id, 900))
	require.NoError(t, service.Complete(context.Background(), 1, id, 901))
	assert.Equal(t, StateCompleted, repo.reminders[id].State)
	assert.Equal(t, int64(900), *repo.reminders[id].CompletedTaskID)
}

func TestCompleteDoesNotReviveDismissed(t *testing.T) {
	repo := newMemRepository()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	service := newTestService(repo, &now)

	created, err := service.Create(context.Background(), 1, 10, []Input{{TaskTypeID: 5, Label: "visa"}})
	require.NoError(t, err)
	id := created[0].ID

	require.NoError(t, service.Dismiss(context.Background(), 1, id))
	require.NoError(t, service.Complete(context.Background(), 1, id, 900))
	assert.Equal(t, StateDismissed, repo.reminders[id].State)
}

func TestMutationsRejectForeignReminders(t *testing.T) {
	repo := newMemRepository()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	service := newTestService(repo, &now)

	created, err := service.Create(context.Background(), 42, 10, []Input{{TaskTypeID: 5, Label: "visa"}})
	require.NoError(t, err)
	id := created[0].ID

	assert.ErrorIs(t, service.Dismiss(context.Background(), 7, id), shared.ErrNotFound)
	assert.ErrorIs(t, service.Complete(context.Background(), 7, id, 900), shared.ErrNotFound)
	require.NoError(t, service.MarkShown(context.Background(), 7, []int64{id}))
	assert.Equal(t, StateOpen, repo.reminders[id].State, "another user's write must not touch the row")

	require.NoError(t, service.Dismiss(context.Background(), 42, id), "the owner still can")
	assert.Equal(t, StateDismissed, repo.reminders[id].State)
}

func TestUnknownReminderReturnsNotFound(t *testing.T) {
	repo := newMemRepository()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	service := newTestService(repo, &now)

	assert.ErrorIs(t, service.Dismiss(context.Background(), 1, 999), shared.ErrNotFound)
	assert.ErrorIs(t, service.Complete(context.Background(), 1, 999, 1), shared.ErrNotFound)
}
