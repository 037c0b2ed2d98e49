package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"reliefbridge/internal/domain"
	"reliefbridge/internal/service"
	"reliefbridge/pkg/e"
)

var _ service.LocationTracker = (*Locations)(nil)

// Locations tracks volunteer positions with the same TTL semantics as the redis
// tracker: a position older than ttl is treated as unknown.
type Locations struct {
	mu   sync.RWMutex
	ttl  time.Duration
	now  func() time.Time
	last map[string]domain.VolunteerLocation
}

func NewLocations(ttl time.Duration) *Locations {
	return &Locations{
		ttl:  ttl,
		now:  func() time.Time { return time.Now().UTC() },
		last: make(map[string]domain.VolunteerLocation),
	}
}

func (l *Locations) Save(_ context.Context, loc domain.VolunteerLocation) error {
	l.mu.Lock()
	l.last[loc.VolunteerID] = loc
	l.mu.Unlock()
	return nil
}

func (l *Locations) Get(_ context.Context, volunteerID string) (*domain.VolunteerLocation, error) {
	l.mu.RLock()
	loc, ok := l.last[volunteerID]
	l.mu.RUnlock()

	if !ok || l.expired(loc) {
		return nil, fmt.Errorf("memory.Locations.Get: %s: %w", volunteerID, e.ErrNotFound)
	}
	return &loc, nil
}

func (l *Locations) List(_ context.Context) ([]domain.VolunteerLocation, error) {
	l.mu.RLock()
	out := make([]domain.VolunteerLocation, 0, len(l.last))
	for _, loc := range l.last {
		if !l.expired(loc) {
			out = append(out, loc)
		}
	}
	l.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.VolunteerLocation) int {
		return strings.Compare(a.VolunteerID, b.VolunteerID)
	})
	return out, nil
}

func (l *Locations) expired(loc domain.VolunteerLocation) bool {
	return l.ttl > 0 && l.now().Sub(loc.RecordedAt) > l.ttl
}
