package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"reliefbridge/internal/domain"
	"reliefbridge/internal/service"
	"reliefbridge/pkg/e"
)

var _ service.Persistence = (*Store)(nil)

// Store keeps help requests in process memory. ConditionalUpdate runs under the
// write lock, which is what makes it a compare-and-set.
type Store struct {
	mu       sync.RWMutex
	requests map[string]*domain.HelpRequest
}

func NewStore() *Store {
	return &Store{requests: make(map[string]*domain.HelpRequest)}
}

func (s *Store) Insert(ctx context.Context, r *domain.HelpRequest) error {
	if err := ctx.Err(); err != nil {
		return e.WrapError(ctx, "memory.Store.Insert", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.requests[r.ID]; exists {
		return fmt.Errorf("memory.Store.Insert: id %s: %w", r.ID, e.ErrConflict)
	}
	s.requests[r.ID] = r.Clone()
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*domain.HelpRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, e.WrapError(ctx, "memory.Store.Get", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("memory.Store.Get: %s: %w", id, e.ErrNotFound)
	}
	return r.Clone(), nil
}

func (s *Store) ConditionalUpdate(ctx context.Context, id string, expected domain.RequestStatus, expectedVersion int64, next *domain.HelpRequest) (*domain.HelpRequest, error) {
	const op = "memory.Store.ConditionalUpdate"

	if err := ctx.Err(); err != nil {
		return nil, e.WrapError(ctx, op, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("%s: %s: %w", op, id, e.ErrNotFound)
	}
	if cur.Status != expected || cur.Version != expectedVersion {
		return nil, fmt.Errorf("%s: %s is %s v%d: %w", op, id, cur.Status, cur.Version, e.ErrConflict)
	}
	stored := next.Clone()
	stored.ID = id
	s.requests[id] = stored
	return stored.Clone(), nil
}

func (s *Store) Query(ctx context.Context, f domain.ListFilter) ([]*domain.HelpRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, e.WrapError(ctx, "memory.Store.Query", err)
	}
	s.mu.RLock()
	matched := make([]*domain.HelpRequest, 0)
	for _, r := range s.requests {
		if Matches(f, r) {
			matched = append(matched, r.Clone())
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b *domain.HelpRequest) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	if f.Offset >= len(matched) {
		return []*domain.HelpRequest{}, nil
	}
	matched = matched[f.Offset:]
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, nil
}

func (s *Store) CountByStatus(ctx context.Context) (map[domain.RequestStatus]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, e.WrapError(ctx, "memory.Store.CountByStatus", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.RequestStatus]int64, 4)
	for _, r := range s.requests {
		counts[r.Status]++
	}
	return counts, nil
}

// Matches reports whether r passes every non-empty field of f.
func Matches(f domain.ListFilter, r *domain.HelpRequest) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.RequesterID != "" && r.RequesterID != f.RequesterID {
		return false
	}
	if f.VolunteerID != "" && !r.AssignedTo(f.VolunteerID) {
		return false
	}
	if !f.ClaimedBefore.IsZero() && (r.ClaimedAt == nil || !r.ClaimedAt.Before(f.ClaimedBefore)) {
		return false
	}
	return true
}
