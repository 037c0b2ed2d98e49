package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"reliefbridge/internal/auth"
	"reliefbridge/internal/domain"
	"reliefbridge/internal/geo"
	"reliefbridge/internal/ids"
	"reliefbridge/pkg/e"
)

func (s *CoordinationService) UpdateVolunteerLocation(ctx context.Context, userID string, loc domain.Coordinate) (*domain.VolunteerLocation, error) {
	const op = "coordination.UpdateVolunteerLocation"

	c, err := s.caller(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := auth.Check(c.Role, domain.OpUpdateLocation, true); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !loc.Valid() {
		return nil, fmt.Errorf("%s: lat=%v lng=%v: %w", op, loc.Lat, loc.Lng, e.ErrInvalidCoordinate)
	}
	if s.locations == nil {
		return nil, fmt.Errorf("%s: location tracking disabled: %w", op, e.ErrUnavailable)
	}

	vl := domain.VolunteerLocation{VolunteerID: c.UserID, Location: loc, RecordedAt: s.now()}
	if err := s.locations.Save(ctx, vl); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.logger.Debug("volunteer location updated",
		slog.String("volunteer_id", c.UserID),
		slog.Float64("lat", loc.Lat),
		slog.Float64("lng", loc.Lng),
	)
	s.publish(ctx, domain.TopicVolunteerLocation, domain.VolunteerMoved{
		EventID:     ids.NewEventID(),
		VolunteerID: c.UserID,
		Location:    loc,
		RecordedAt:  vl.RecordedAt,
	})
	return &vl, nil
}

// TrackRequest shows where the assigned volunteer is relative to the request,
// using the last position the volunteer reported.
func (s *CoordinationService) TrackRequest(ctx context.Context, userID, id string) (*domain.Navigation, error) {
	const op = "coordination.TrackRequest"

	c, err := s.caller(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := auth.Check(c.Role, domain.OpNavigate, r.AssignedTo(c.UserID) || r.RequesterID == c.UserID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if r.Status != domain.StatusClaimed || r.VolunteerID == nil {
		return nil, fmt.Errorf("%s: request %s is %s: %w", op, id, r.Status, e.ErrInvalidTransition)
	}
	if s.locations == nil {
		return nil, fmt.Errorf("%s: location tracking disabled: %w", op, e.ErrUnavailable)
	}

	loc, err := s.locations.Get(ctx, *r.VolunteerID)
	if err != nil {
		return nil, fmt.Errorf("%s: volunteer position: %w", op, err)
	}
	return s.navigate(r, loc.Location, op)
}

// MatchVolunteers ranks volunteers with a known position by distance to a pending
// request. Volunteers already holding a claim are skipped.
func (s *CoordinationService) MatchVolunteers(ctx context.Context, userID, id string, limit int) ([]domain.VolunteerMatch, error) {
	const op = "coordination.MatchVolunteers"

	c, err := s.caller(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := auth.Check(c.Role, domain.OpMatch, false); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if r.Status != domain.StatusPending {
		return nil, fmt.Errorf("%s: request %s is %s: %w", op, id, r.Status, e.ErrInvalidTransition)
	}
	if s.locations == nil {
		return nil, fmt.Errorf("%s: location tracking disabled: %w", op, e.ErrUnavailable)
	}
	if limit <= 0 {
		limit = s.cfg.MatchLimit
	}

	positions, err := s.locations.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	busy, err := s.store.ListByStatus(ctx, domain.StatusClaimed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	engaged := make(map[string]struct{}, len(busy))
	for _, b := range busy {
		if b.VolunteerID != nil {
			engaged[*b.VolunteerID] = struct{}{}
		}
	}

	matches := make([]domain.VolunteerMatch, 0, len(positions))
	for _, p := range positions {
		if _, ok := engaged[p.VolunteerID]; ok {
			continue
		}
		role, err := s.identity.RoleOf(ctx, p.VolunteerID)
		if err != nil || role != domain.RoleVolunteer {
			continue
		}
		dist := geo.DistanceKM(p.Location.Lat, p.Location.Lng, r.Location.Lat, r.Location.Lng)
		eta, err := geo.EtaMinutes(dist, s.cfg.AvgSpeedKmh)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		matches = append(matches, domain.VolunteerMatch{VolunteerID: p.VolunteerID, DistanceKM: dist, EtaMinutes: eta})
	}

	slices.SortStableFunc(matches, func(a, b domain.VolunteerMatch) int {
		switch {
		case a.DistanceKM < b.DistanceKM:
			return -1
		case a.DistanceKM > b.DistanceKM:
			return 1
		}
		return 0
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	for i := range matches {
		if name, err := s.identity.NameOf(ctx, matches[i].VolunteerID); err == nil {
			matches[i].VolunteerName = name
		}
	}
	return matches, nil
}

// Dashboard assembles the landing view for the caller's role.
func (s *CoordinationService) Dashboard(ctx context.Context, userID string) (*domain.Dashboard, error) {
	const op = "coordination.Dashboard"

	c, err := s.caller(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	d := &domain.Dashboard{Role: c.Role}
	switch c.Role {
	case domain.RoleVictim:
		if d.MyRequests, err = s.store.ListByRequester(ctx, c.UserID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	case domain.RoleVolunteer:
		if d.PendingRequests, err = s.store.ListByStatus(ctx, domain.StatusPending); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		mine, err := s.store.ListByVolunteer(ctx, c.UserID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		d.MyClaimed = slices.DeleteFunc(mine, func(r *domain.HelpRequest) bool {
			return r.Status != domain.StatusClaimed
		})
	case domain.RoleCoordinator:
		if d.PendingRequests, err = s.store.ListByStatus(ctx, domain.StatusPending); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if d.ClaimedRequests, err = s.store.ListByStatus(ctx, domain.StatusClaimed); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if d.Counts, err = s.store.CountByStatus(ctx); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	default:
		return nil, fmt.Errorf("%s: role %q: %w", op, c.Role, e.ErrForbidden)
	}
	return d, nil
}
