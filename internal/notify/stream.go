package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Eric920418/Manpower-sub002/internal/platform/httpx"
	"github.com/Eric920418/Manpower-sub002/internal/rbac"
)

const streamHeartbeat = 30 * time.Second

// StreamHandler serves the live notification channel. Each connection gets
// its own poller; closing the tab tears the whole schedule down.
type StreamHandler struct {
	logger      *slog.Logger
	cfg         PollerConfig
	clock       Clock
	gate        Gate
	reminderSrc ReminderSource
	taskSrc     TaskSource
	feed        *Feed
	guard       rbac.Middleware
	observer    Observer
}

// NewStreamHandler builds a StreamHandler.
func NewStreamHandler(logger *slog.Logger, cfg PollerConfig, clock Clock, gate Gate, reminderSrc ReminderSource, taskSrc TaskSource, feed *Feed, guard rbac.Middleware, observer Observer) *StreamHandler {
	return &StreamHandler{
		logger:      logger,
		cfg:         cfg,
		clock:       clock,
		gate:        gate,
		reminderSrc: reminderSrc,
		taskSrc:     taskSrc,
		feed:        feed,
		guard:       guard,
		observer:    observer,
	}
}

// MountRoutes registers the stream and replay routes.
func (h *StreamHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(rbac.PermReminderRead, rbac.PermTaskRead))
		r.Get("/stream", h.stream)
		r.Get("/recent", h.recent)
	})
}

type channelSink struct {
	ch chan []Notification
}

func (s *channelSink) Notify(ctx context.Context, userID int64, batch []Notification) error {
	select {
	case s.ch <- batch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *StreamHandler) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "streaming unsupported")
		return
	}
	principal, ok := rbac.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	live := &channelSink{ch: make(chan []Notification, 8)}
	sink := Sink(live)
	if h.feed != nil {
		sink = MultiSink{h.feed, live}
	}

	poller := NewPoller(h.logger, h.cfg, h.clock, h.gate, h.reminderSrc, h.taskSrc, sink, h.observer)
	ctx := r.Context()
	go func() {
		if err := poller.Run(ctx, principal.UserID); err != nil && ctx.Err() == nil {
			h.logger.Error("notification poller stopped", slog.Any("error", err))
		}
	}()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case batch := <-live.ch:
			for _, notification := range batch {
				if err := writeEvent(w, notification); err != nil {
					return
				}
			}
			flusher.Flush()
		}
	}
}

func (h *StreamHandler) recent(w http.ResponseWriter, r *http.Request) {
	if h.feed == nil {
		httpx.JSON(w, http.StatusOK, map[string]any{"notifications": []Notification{}})
		return
	}
	principal, _ := rbac.PrincipalFromContext(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	notifications, err := h.feed.Recent(r.Context(), principal.UserID, limit)
	if err != nil {
		h.logger.Error("notification feed read", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if notifications == nil {
		notifications = []Notification{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

func writeEvent(w http.ResponseWriter, notification Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: notification\nid: %s\ndata: %s\n\n", notification.ID, payload)
	return err
}
