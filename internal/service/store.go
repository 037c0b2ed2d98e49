package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"reliefbridge/internal/domain"
	"reliefbridge/internal/ids"
	"reliefbridge/internal/obs"
	"reliefbridge/pkg/e"
)

// Mutator adjusts a request about to enter a new status. Returning an error aborts
// the transition without touching storage.
type Mutator func(r *domain.HelpRequest, now time.Time) error

// StaleStateError reports a failed compare-and-set together with the state that won.
type StaleStateError struct {
	ID       string
	Expected domain.RequestStatus
	Current  *domain.HelpRequest
}

func (s *StaleStateError) Error() string {
	if s.Current == nil {
		return fmt.Sprintf("request %s: expected %s: %s", s.ID, s.Expected, e.ErrStaleState)
	}
	return fmt.Sprintf("request %s: expected %s, found %s (v%d): %s", s.ID, s.Expected, s.Current.Status, s.Current.Version, e.ErrStaleState)
}

func (s *StaleStateError) Unwrap() error { return e.ErrStaleState }

// RequestStore is the only writer of help requests. Every mutation is a
// compare-and-set against Persistence.
type RequestStore struct {
	db        Persistence
	logger    *slog.Logger
	opTimeout time.Duration
	now       func() time.Time
}

type StoreOption func(*RequestStore)

func WithClock(now func() time.Time) StoreOption {
	return func(s *RequestStore) { s.now = now }
}

func NewRequestStore(db Persistence, logger *slog.Logger, opTimeout time.Duration, opts ...StoreOption) *RequestStore {
	if opTimeout <= 0 {
		opTimeout = 3 * time.Second
	}
	s := &RequestStore{
		db:        db,
		logger:    logger,
		opTimeout: opTimeout,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RequestStore) Create(ctx context.Context, in domain.NewHelpRequest) (*domain.HelpRequest, error) {
	const op = "store.Create"

	if !in.Location.Valid() {
		return nil, fmt.Errorf("%s: lat=%v lng=%v: %w", op, in.Location.Lat, in.Location.Lng, e.ErrInvalidCoordinate)
	}
	if err := requireFields(map[string]string{
		"requester_id": in.RequesterID,
		"category":     in.Category,
		"description":  in.Description,
	}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	priority := in.Priority
	if priority == "" {
		priority = domain.PriorityNormal
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("%s: priority %q: %w", op, priority, e.ErrInvalidInput)
	}

	now := s.now()
	r := &domain.HelpRequest{
		ID:            ids.NewRequestID(),
		RequesterID:   in.RequesterID,
		RequesterName: in.RequesterName,
		Location:      in.Location,
		Address:       strings.TrimSpace(in.Address),
		Category:      strings.TrimSpace(in.Category),
		Description:   strings.TrimSpace(in.Description),
		Priority:      priority,
		Contact:       strings.TrimSpace(in.Contact),
		Status:        domain.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
		Version:       1,
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.db.Insert(ctx, r); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return r.Clone(), nil
}

func (s *RequestStore) Get(ctx context.Context, id string) (*domain.HelpRequest, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("store.Get: empty id: %w", e.ErrNotFound)
	}
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	r, err := s.db.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("store.Get: %w", err)
	}
	return r, nil
}

// List returns requests matching f ordered by creation time, oldest first.
func (s *RequestStore) List(ctx context.Context, f domain.ListFilter) ([]*domain.HelpRequest, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("store.List: status %q: %w", f.Status, e.ErrInvalidInput)
	}
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	out, err := s.db.Query(ctx, f.Normalize())
	if err != nil {
		return nil, fmt.Errorf("store.List: %w", err)
	}
	return out, nil
}

func (s *RequestStore) ListByStatus(ctx context.Context, status domain.RequestStatus) ([]*domain.HelpRequest, error) {
	return s.List(ctx, domain.ListFilter{Status: status, Limit: domain.MaxListLimit})
}

func (s *RequestStore) ListByRequester(ctx context.Context, requesterID string) ([]*domain.HelpRequest, error) {
	return s.List(ctx, domain.ListFilter{RequesterID: requesterID, Limit: domain.MaxListLimit})
}

func (s *RequestStore) ListByVolunteer(ctx context.Context, volunteerID string) ([]*domain.HelpRequest, error) {
	return s.List(ctx, domain.ListFilter{VolunteerID: volunteerID, Limit: domain.MaxListLimit})
}

func (s *RequestStore) CountByStatus(ctx context.Context) (map[domain.RequestStatus]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	counts, err := s.db.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("store.CountByStatus: %w", err)
	}
	return counts, nil
}

// Transition moves request id from `from` to `to` if and only if it is still in
// `from` at write time. A lost race yields *StaleStateError (errors.Is e.ErrStaleState).
func (s *RequestStore) Transition(ctx context.Context, id string, from, to domain.RequestStatus, mutate Mutator) (*domain.HelpRequest, error) {
	const op = "store.Transition"

	if !domain.CanTransition(from, to) {
		return nil, fmt.Errorf("%s: %s -> %s: %w", op, from, to, e.ErrInvalidTransition)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	cur, err := s.db.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cur.Status != from {
		return nil, &StaleStateError{ID: id, Expected: from, Current: cur}
	}

	now := s.now()
	next := cur.Clone()
	if mutate != nil {
		if err := mutate(next, now); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	next.ID = cur.ID
	next.Status = to
	next.UpdatedAt = now
	next.Version = cur.Version + 1
	if err := next.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", op, err, e.ErrInternal)
	}

	updated, err := s.db.ConditionalUpdate(ctx, id, from, cur.Version, next)
	if err != nil {
		if errors.Is(err, e.ErrConflict) {
			latest, gerr := s.db.Get(ctx, id)
			if gerr != nil {
				return nil, fmt.Errorf("%s: reload after conflict: %w", op, gerr)
			}
			return nil, &StaleStateError{ID: id, Expected: from, Current: latest}
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	obs.RecordTransition(string(from), string(to))
	s.logger.Debug("request transitioned",
		slog.String("request_id", id),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
		slog.Int64("version", updated.Version),
	)
	return updated, nil
}

func requireFields(fields map[string]string) error {
	var missing []string
	for name, v := range fields {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	slices.Sort(missing)
	return fmt.Errorf("%s: %w", strings.Join(missing, ", "), e.ErrMissingField)
}
