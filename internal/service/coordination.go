package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"reliefbridge/internal/auth"
	"reliefbridge/internal/config"
	"reliefbridge/internal/domain"
	"reliefbridge/internal/geo"
	"reliefbridge/internal/ids"
	"reliefbridge/pkg/e"
)

// CoordinationService is the entry point used by the API layer. Every call
// authorizes first, executes through RequestStore/ClaimCoordinator and then
// notifies subscribers.
type CoordinationService struct {
	store     *RequestStore
	claims    *ClaimCoordinator
	identity  IdentityProvider
	events    EventBroadcaster
	locations LocationTracker
	logger    *slog.Logger
	cfg       config.CoordinationConfig
	now       func() time.Time
}

type Deps struct {
	Persistence Persistence
	Identity    IdentityProvider
	Events      EventBroadcaster
	Locations   LocationTracker
	Logger      *slog.Logger
	Config      config.CoordinationConfig
	StoreOpts   []StoreOption
}

func NewCoordinationService(d Deps) *CoordinationService {
	cfg := d.Config
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 2 * time.Second
	}
	if cfg.AvgSpeedKmh <= 0 {
		cfg.AvgSpeedKmh = geo.DefaultSpeedKmh
	}
	if cfg.MatchLimit <= 0 {
		cfg.MatchLimit = 3
	}
	store := NewRequestStore(d.Persistence, d.Logger, cfg.OpTimeout, d.StoreOpts...)
	return &CoordinationService{
		store:     store,
		claims:    NewClaimCoordinator(store, d.Logger),
		identity:  d.Identity,
		events:    d.Events,
		locations: d.Locations,
		logger:    d.Logger,
		cfg:       cfg,
		now:       store.now,
	}
}

// Store exposes the underlying RequestStore for workers.
func (s *CoordinationService) Store() *RequestStore { return s.store }

// caller resolves the authoritative role of userID. Token claims are never trusted
// for the role.
func (s *CoordinationService) caller(ctx context.Context, userID string) (domain.Caller, error) {
	if userID == "" {
		return domain.Caller{}, fmt.Errorf("resolve caller: %w", e.ErrUnauthenticated)
	}
	role, err := s.identity.RoleOf(ctx, userID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return domain.Caller{}, fmt.Errorf("resolve caller %s: %w", userID, e.ErrForbidden)
		}
		return domain.Caller{}, fmt.Errorf("resolve caller %s: %w", userID, err)
	}
	return domain.Caller{UserID: userID, Role: role}, nil
}

func (s *CoordinationService) CreateRequest(ctx context.Context, userID string, in domain.CreateHelpRequest) (*domain.HelpRequest, error) {
	const op = "coordination.CreateRequest"

	c, err := s.caller(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	// requests are always created for the caller, so the victim is its own owner
	if err := auth.Check(c.Role, domain.OpCreate, true); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if in.Lat == nil || in.Lng == nil {
		return nil, fmt.Errorf("%s: lat/lng: %w", op, e.ErrMissingField)
	}

	name, err := s.identity.NameOf(ctx, c.UserID)
	if err != nil && !errors.Is(err, e.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r, err := s.store.Create(ctx, domain.NewHelpRequest{
		RequesterID:   c.UserID,
		RequesterName: name,
		Location:      domain.Coordinate{Lat: *in.Lat, Lng: *in.Lng},
		Address:       in.Address,
		Category:      in.Category,
		Description:   in.Description,
		Priority:      in.Priority,
		Contact:       in.Contact,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.logger.Info("help request created",
		slog.String("request_id", r.ID),
		slog.String("requester_id", c.UserID),
		slog.String("category", r.Category),
		slog.String("priority", string(r.Priority)),
	)
	s.publishChange(ctx, Prior{}, r, c.UserID, "")
	return r, nil
}

func (s *CoordinationService) GetRequest(ctx context.Context, userID, id string) (*domain.HelpRequest, error) {
	const op = "coordination.GetRequest"

	c, err := s.caller(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !canView(c, r) {
		return nil, fmt.Errorf("%s: %s may not view %s: %w", op, c.Role, id, e.ErrForbidden)
	}
	return r, nil
}

// canView: coordinators see everything, volunteers see the pending pool and their
// own claims, victims see their own requests.
func canView(c domain.Caller, r *domain.HelpRequest) bool {
	switch c.Role {
	case domain.RoleCoordinator:
		return true
	case domain.RoleVolunteer:
		return r.Status == domain.StatusPending || r.AssignedTo(c.UserID)
	case domain.RoleVictim:
		return r.RequesterID == c.UserID
	}
	return false
}

// ListRequests narrows f to what the caller may see. Mine lists the caller's own
// requests (victim) or claims (volunteer).
func (s *CoordinationService) ListRequests(ctx context.Context, userID string, f domain.ListFilter) ([]*domain.HelpRequest, error) {
	const op = "coordination.ListRequests"

	c, err := s.caller(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	switch {
	case f.Mine:
		if err := auth.Check(c.Role, domain.OpListMine, true); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		f.RequesterID, f.VolunteerID = "", ""
		if c.Role == domain.RoleVictim || c.Role == domain.RoleCoordinator {
			f.RequesterID = c.UserID
		} else {
			f.VolunteerID = c.UserID
		}
	case c.Role == domain.RoleVolunteer && f.Status == domain.StatusPending && f.RequesterID == "" && f.VolunteerID == "":
		if err := auth.Check(c.Role, domain.OpListAvailable, false); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	default:
		if err := auth.Check(c.Role, domain.OpListAll, false); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	out, err := s.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (s *CoordinationService) ClaimRequest(ctx context.Context, userID, id string) (*domain.HelpRequest, error) {
	const op = "coordination.ClaimRequest"

	c, err := s.caller(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := auth.Check(c.Role, domain.OpClaim, false); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	name, err := s.identity.NameOf(ctx, c.UserID)
	if err != nil && !errors.Is(err, e.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r, err := s.claims.Claim(ctx, id, c.UserID, name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.publishChange(ctx, Prior{From: domain.StatusPending}, r, c.UserID, "")
	return r, nil
}

func (s *CoordinationService) CompleteRequest(ctx context.Context, userID, id string) (*domain.HelpRequest, error) {
	const op = "coordination.CompleteRequest"

	c, err := s.caller(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	cur, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := auth.Check(c.Role, domain.OpComplete, cur.AssignedTo(c.UserID)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var r *domain.HelpRequest
	if c.Role == domain.RoleCoordinator {
		r, err = s.claims.CompleteAsCoordinator(ctx, id, c.UserID)
	} else {
		r, err = s.claims.Complete(ctx, id, c.UserID)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.publishChange(ctx, Prior{From: domain.StatusClaimed}, r, c.UserID, "")
	return r, nil
}

func (s *CoordinationService) CancelRequest(ctx context.Context, userID, id, reason string) (*domain.HelpRequest, error) {
	const op = "coordination.CancelRequest"

	c, err := s.caller(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	cur, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := auth.Check(c.Role, domain.OpCancel, cur.RequesterID == c.UserID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r, rel, err := s.claims.Cancel(ctx, id, c.UserID, reason)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.publishChange(ctx, rel, r, c.UserID, reason)
	return r, nil
}

// UnclaimRequest releases a claim. A volunteer may only release its own claim, and
// that is re-checked against the snapshot being replaced.
func (s *CoordinationService) UnclaimRequest(ctx context.Context, userID, id, reason string) (*domain.HelpRequest, error) {
	const op = "coordination.UnclaimRequest"

	c, err := s.caller(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	cur, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := auth.Check(c.Role, domain.OpUnclaim, cur.AssignedTo(c.UserID)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var guard Guard
	if c.Role != domain.RoleCoordinator {
		guard = func(r *domain.HelpRequest) error {
			if !r.AssignedTo(c.UserID) {
				return fmt.Errorf("claim on %s is held by another volunteer: %w", r.ID, e.ErrForbidden)
			}
			return nil
		}
	}

	r, rel, err := s.claims.Unclaim(ctx, id, reason, guard)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.publishChange(ctx, rel, r, c.UserID, reason)
	return r, nil
}

// ComputeNavigation measures the way from the volunteer at `from` to the request.
// Only claimed requests have a navigation view.
func (s *CoordinationService) ComputeNavigation(ctx context.Context, userID, id string, from domain.Coordinate) (*domain.Navigation, error) {
	const op = "coordination.ComputeNavigation"

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
	return s.navigate(r, from, op)
}

func (s *CoordinationService) navigate(r *domain.HelpRequest, from domain.Coordinate, op string) (*domain.Navigation, error) {
	if r.Status != domain.StatusClaimed {
		return nil, fmt.Errorf("%s: request %s is %s: %w", op, r.ID, r.Status, e.ErrInvalidTransition)
	}
	if !from.Valid() {
		return nil, fmt.Errorf("%s: lat=%v lng=%v: %w", op, from.Lat, from.Lng, e.ErrInvalidCoordinate)
	}

	dist := geo.DistanceKM(from.Lat, from.Lng, r.Location.Lat, r.Location.Lng)
	eta, err := geo.EtaMinutes(dist, s.cfg.AvgSpeedKmh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	band := geo.ProximityBand(dist)

	nav := &domain.Navigation{
		RequestID:  r.ID,
		From:       from,
		To:         r.Location,
		DistanceKM: dist,
		EtaMinutes: eta,
		Band:       string(band),
		Message:    band.Message(),
		ComputedAt: s.now(),
	}
	if r.VolunteerID != nil {
		nav.VolunteerID = *r.VolunteerID
	}
	return nav, nil
}

// ExpireClaims returns every claim taken before cutoff to the pending pool. It is
// driven by the claim reaper and runs with system authority.
func (s *CoordinationService) ExpireClaims(ctx context.Context, cutoff time.Time) (int, error) {
	const op = "coordination.ExpireClaims"

	stale, err := s.store.List(ctx, domain.ListFilter{
		Status:        domain.StatusClaimed,
		ClaimedBefore: cutoff,
		Limit:         domain.MaxListLimit,
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	released := 0
	for _, r := range stale {
		claimedAt := r.ClaimedAt
		// the claim may have been renewed between list and write
		guard := func(cur *domain.HelpRequest) error {
			if cur.ClaimedAt == nil || claimedAt == nil || !cur.ClaimedAt.Equal(*claimedAt) {
				return fmt.Errorf("claim on %s was renewed: %w", cur.ID, e.ErrStaleState)
			}
			return nil
		}
		out, rel, err := s.claims.Unclaim(ctx, r.ID, "claim timed out", guard)
		if err != nil {
			if errors.Is(err, e.ErrStaleState) || errors.Is(err, e.ErrInvalidTransition) {
				continue
			}
			return released, fmt.Errorf("%s: %w", op, err)
		}
		released++
		s.publishChange(ctx, rel, out, "system", "claim timed out")
	}
	return released, nil
}

// publishChange notifies subscribers of a committed transition. The state change
// already happened, so failures are logged and never returned.
func (s *CoordinationService) publishChange(ctx context.Context, rel Prior, r *domain.HelpRequest, actorID, reason string) {
	ev := domain.RequestChanged{
		EventID:             ids.NewEventID(),
		RequestID:           r.ID,
		PreviousStatus:      rel.From,
		NewStatus:           r.Status,
		PreviousVolunteerID: rel.VolunteerID,
		ActorID:             actorID,
		Reason:              reason,
		OccurredAt:          r.UpdatedAt,
		Request:             r,
	}
	s.publish(ctx, domain.TopicFor(r.Status), ev)
}

func (s *CoordinationService) publish(ctx context.Context, topic string, event any) {
	if s.events == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.PublishTimeout)
	defer cancel()

	if err := s.events.Publish(pctx, topic, event); err != nil {
		s.logger.Warn("publish event failed",
			slog.String("topic", topic),
			slog.Any("error", err),
		)
	}
}
