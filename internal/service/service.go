package service

import (
	"context"
	"time"

	"reliefbridge/internal/domain"
)

//go:generate mockgen -source=service.go -destination=mocks/mock.go

// Persistence owns durable storage of help requests.
type Persistence interface {
	Insert(ctx context.Context, r *domain.HelpRequest) error
	Get(ctx context.Context, id string) (*domain.HelpRequest, error)
	// ConditionalUpdate replaces the stored request with next only if its status and
	// version still equal the expected values; otherwise it returns e.ErrConflict.
	ConditionalUpdate(ctx context.Context, id string, expected domain.RequestStatus, expectedVersion int64, next *domain.HelpRequest) (*domain.HelpRequest, error)
	Query(ctx context.Context, f domain.ListFilter) ([]*domain.HelpRequest, error)
	CountByStatus(ctx context.Context) (map[domain.RequestStatus]int64, error)
}

// IdentityProvider resolves externally owned users.
type IdentityProvider interface {
	RoleOf(ctx context.Context, userID string) (domain.Role, error)
	NameOf(ctx context.Context, userID string) (string, error)
}

// EventBroadcaster pushes events to subscribers, best effort.
type EventBroadcaster interface {
	Publish(ctx context.Context, topic string, event any) error
}

// LocationTracker keeps the latest known volunteer positions.
type LocationTracker interface {
	Save(ctx context.Context, loc domain.VolunteerLocation) error
	Get(ctx context.Context, volunteerID string) (*domain.VolunteerLocation, error)
	List(ctx context.Context) ([]domain.VolunteerLocation, error)
}

type WebhookQueue interface {
	Enqueue(ctx context.Context, payload domain.WebhookPayload) error
	BRPop(ctx context.Context, timeout time.Duration) (domain.WebhookPayload, error)
}
