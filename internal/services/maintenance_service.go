package services

import (
	"context"

	"github.com/isdelr/postboard-be/internal/apperror"
	"github.com/isdelr/postboard-be/internal/database"
	"github.com/jmoiron/sqlx"
)

// MaintenanceServiceProvider defines store-wide operations.
type MaintenanceServiceProvider interface {
	ResetDatabase(ctx context.Context) error
	Ping(ctx context.Context) error
}

// MaintenanceService wraps schema resets and health checks.
type MaintenanceService struct {
	db     *sqlx.DB
	events EventServiceProvider
}

// NewMaintenanceService creates a new MaintenanceService.
func NewMaintenanceService(db *sqlx.DB, events EventServiceProvider) *MaintenanceService {
	return &MaintenanceService{db: db, events: events}
}

// ResetDatabase drops and recreates the users and posts tables.
func (s *MaintenanceService) ResetDatabase(ctx context.Context) (err error) {
	ctx, span := startSpan(ctx, "MaintenanceService.ResetDatabase")
	defer endSpan(span, &err)

	if err = database.Reset(ctx, s.db); err != nil {
		return apperror.NewDatabaseError("failed to reset database", err)
	}
	recordEvent(ctx, s.events, "database.clear", "warn", "All users and posts were deleted.", nil)
	return nil
}

// Ping checks that the store is reachable.
func (s *MaintenanceService) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
