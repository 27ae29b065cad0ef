package activity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for activity events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records per-user activity.
//
// Callers should treat recording as best-effort: log a failure, never fail
// the triggering operation because of it.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("activity: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("activity: repository not configured")
	}
	if e.UserID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogCustomerEvent records a customer lifecycle event.
func (s *Service) LogCustomerEvent(ctx context.Context, typ EventType, userID, customerID, message string) error {
	return s.Append(ctx, Event{
		UserID:     userID,
		Type:       typ,
		CustomerID: customerID,
		Message:    message,
	})
}

// LogAPIKeysUpdated records a credential change. Message names the rotated
// fields; key material must never enter an event.
func (s *Service) LogAPIKeysUpdated(ctx context.Context, userID, message string) error {
	return s.Append(ctx, Event{
		UserID:  userID,
		Type:    EventTypeAPIKeysUpdated,
		Message: message,
	})
}

// LogSyncRun records a completed contact reconciliation with its summary.
func (s *Service) LogSyncRun(ctx context.Context, userID, message, metadata string) error {
	return s.Append(ctx, Event{
		UserID:   userID,
		Type:     EventTypeContactSyncRun,
		Message:  message,
		Metadata: metadata,
	})
}
