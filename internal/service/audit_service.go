package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/igarcialujan/user-management-api/internal/event"
	"github.com/igarcialujan/user-management-api/internal/model"
	"github.com/igarcialujan/user-management-api/internal/observability"
)

const (
	DefaultActivityLimit = 20
	MaxActivityLimit     = 100

	appendTimeout = 5 * time.Second
)

// AuditService turns account events into a per-user activity trail.
type AuditService struct {
	store ActivityStore
}

func NewAuditService(store ActivityStore) *AuditService {
	return &AuditService{store: store}
}

// Record appends every event received until events is closed. Failed writes
// are logged and skipped.
func (s *AuditService) Record(events <-chan event.Event) {
	for e := range events {
		ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
		err := s.store.Append(ctx, model.ActivityEntry{
			ID:         e.ID,
			UserID:     e.UserID,
			Action:     string(e.Type),
			OccurredAt: e.OccurredAt,
		})
		cancel()
		if err != nil {
			slog.Warn("activity entry not recorded", "type", e.Type, "user_id", e.UserID, "error", err)
		}
	}
}

// Activity lists the newest entries of a user. Limits outside 1..100 fall back
// to the default or the maximum.
func (s *AuditService) Activity(ctx context.Context, userID string, limit int) (list model.ActivityList, err error) {
	ctx, span := tracer.Start(ctx, "AuditService.Activity")
	defer func() { observability.EndSpan(span, err) }()

	switch {
	case limit <= 0:
		limit = DefaultActivityLimit
	case limit > MaxActivityLimit:
		limit = MaxActivityLimit
	}

	entries, err := s.store.ListByUser(ctx, userID, limit)
	if err != nil {
		return model.ActivityList{}, err
	}
	return model.ActivityList{Items: entries}, nil
}

// publisher is embedded by services that emit account events. A nil bus
// disables publishing.
type publisher struct {
	bus event.Bus
}

func (p publisher) publish(t event.Type, userID string) {
	if p.bus == nil {
		return
	}
	p.bus.Publish(event.New(t, userID))
}
