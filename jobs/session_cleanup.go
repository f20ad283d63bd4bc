package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Eric920418/Manpower-sub002/internal/auth"
	"github.com/Eric920418/Manpower-sub002/internal/shared"
)

const defaultRetention = 7 * 24 * time.Hour

// SessionCleanupJob prunes expired session audit rows and aged idempotency
// keys.
type SessionCleanupJob struct {
	logger      *slog.Logger
	auth        *auth.Service
	idempotency *shared.IdempotencyStore
}

// NewSessionCleanupJob constructs the job.
func NewSessionCleanupJob(logger *slog.Logger, authService *auth.Service, idempotency *shared.IdempotencyStore) *SessionCleanupJob {
	return &SessionCleanupJob{logger: logger, auth: authService, idempotency: idempotency}
}

// Handle processes TaskSessionCleanup tasks.
func (j *SessionCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload SessionCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	retention := defaultRetention
	if payload.RetentionHours > 0 {
		retention = time.Duration(payload.RetentionHours) * time.Hour
	}

	removed, err := j.auth.PurgeExpiredSessions(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	if err := j.idempotency.Cleanup(ctx, retention); err != nil {
		return err
	}
	j.logger.Info("session cleanup done", slog.Int64("sessions_removed", removed))
	return nil
}
