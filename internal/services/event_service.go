package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/postboard-be/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// sqliteTimeLayout matches what CURRENT_TIMESTAMP writes.
const sqliteTimeLayout = "2006-01-02 15:04:05"

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	CreateEvent(ctx context.Context, eventType, level, message string, userID *int64) error
	GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error)
	PruneEvents(ctx context.Context, olderThan time.Time) (int64, error)
}

// EventService provides business logic for event management.
type EventService struct {
	db *sqlx.DB
}

// NewEventService creates a new EventService.
func NewEventService(db *sqlx.DB) *EventService {
	return &EventService{db: db}
}

// CreateEvent logs a new event to the database.
func (s *EventService) CreateEvent(ctx context.Context, eventType, level, message string, userID *int64) (err error) {
	ctx, span := startSpan(ctx, "EventService.CreateEvent", trace.WithAttributes(attribute.String("event.type", eventType)))
	defer endSpan(span, &err)

	query, args, err := builder.Insert("events").
		Columns("id", "type", "level", "message", "user_id").
		Values(uuid.New().String(), eventType, level, message, userID).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

// GetRecentEvents retrieves the most recent events from the database.
func (s *EventService) GetRecentEvents(ctx context.Context, limit int) (events []models.Event, err error) {
	ctx, span := startSpan(ctx, "EventService.GetRecentEvents")
	defer endSpan(span, &err)

	query, args, err := builder.Select("id", "type", "level", "message", "user_id", "created_at").
		From("events").
		OrderBy("created_at DESC", "rowid DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}

	events = []models.Event{}
	if err = s.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, err
	}
	return events, nil
}

// PruneEvents deletes events created before olderThan and returns how many were removed.
func (s *EventService) PruneEvents(ctx context.Context, olderThan time.Time) (n int64, err error) {
	ctx, span := startSpan(ctx, "EventService.PruneEvents")
	defer endSpan(span, &err)

	query, args, err := builder.Delete("events").
		Where("created_at < ?", olderThan.UTC().Format(sqliteTimeLayout)).
		ToSql()
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return res.RowsAffected()
}

// recordEvent writes an audit event. A failed write is logged and never
// fails the operation that produced it.
func recordEvent(ctx context.Context, events EventServiceProvider, eventType, level, message string, userID *int64) {
	if events == nil {
		return
	}
	if err := events.CreateEvent(ctx, eventType, level, message, userID); err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("Failed to record event")
	}
}
