package service_test

import (
	"context"
	"errors"
	"testing"

	"reliefbridge/internal/domain"
	"reliefbridge/pkg/e"
)

func TestUpdateVolunteerLocation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	loc, err := f.svc.UpdateVolunteerLocation(ctx, volunteerA, domain.Coordinate{Lat: 22.5, Lng: 88.3})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if loc.VolunteerID != volunteerA || loc.RecordedAt.IsZero() {
		t.Fatalf("unexpected location: %+v", loc)
	}

	if _, err := f.svc.UpdateVolunteerLocation(ctx, volunteerA, domain.Coordinate{Lat: 100}); !errors.Is(err, e.ErrInvalidCoordinate) {
		t.Fatalf("expected invalid coordinate, got %v", err)
	}
	if _, err := f.svc.UpdateVolunteerLocation(ctx, victimID, domain.Coordinate{Lat: 1, Lng: 1}); !errors.Is(err, e.ErrForbidden) {
		t.Fatalf("victims do not report positions, got %v", err)
	}
}

func TestTrackRequest_UsesLastKnownPosition(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	r := f.create(t, 37.7749, -122.4194)

	if _, err := f.svc.ClaimRequest(ctx, volunteerA, r.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := f.svc.TrackRequest(ctx, victimID, r.ID); !errors.Is(err, e.ErrNotFound) {
		t.Fatalf("no position yet: expected not found, got %v", err)
	}

	if _, err := f.svc.UpdateVolunteerLocation(ctx, volunteerA, domain.Coordinate{Lat: 37.7750, Lng: -122.4195}); err != nil {
		t.Fatalf("update: %v", err)
	}
	nav, err := f.svc.TrackRequest(ctx, victimID, r.ID)
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if nav.Band != "arrived" || nav.EtaMinutes != 0 {
		t.Fatalf("unexpected tracking: %+v", nav)
	}

	if _, err := f.svc.TrackRequest(ctx, otherVictimID, r.ID); !errors.Is(err, e.ErrForbidden) {
		t.Fatalf("stranger tracking: expected forbidden, got %v", err)
	}
}

func TestMatchVolunteers_NearestFreeFirst(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	r := f.create(t, 22.57, 88.36)

	// B is closer than A
	if _, err := f.svc.UpdateVolunteerLocation(ctx, volunteerA, domain.Coordinate{Lat: 22.70, Lng: 88.36}); err != nil {
		t.Fatalf("update A: %v", err)
	}
	if _, err := f.svc.UpdateVolunteerLocation(ctx, volunteerB, domain.Coordinate{Lat: 22.58, Lng: 88.36}); err != nil {
		t.Fatalf("update B: %v", err)
	}

	matches, err := f.svc.MatchVolunteers(ctx, coordinatorID, r.ID, 0)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(matches) != 2 || matches[0].VolunteerID != volunteerB || matches[1].VolunteerID != volunteerA {
		t.Fatalf("unexpected ranking: %+v", matches)
	}
	if matches[0].VolunteerName != "Bilal" || matches[0].DistanceKM >= matches[1].DistanceKM {
		t.Fatalf("unexpected match details: %+v", matches)
	}

	one, err := f.svc.MatchVolunteers(ctx, coordinatorID, r.ID, 1)
	if err != nil || len(one) != 1 {
		t.Fatalf("limit not applied: %v %v", one, err)
	}

	// a volunteer busy with another claim drops out
	other := f.create(t, 22.60, 88.40)
	if _, err := f.svc.ClaimRequest(ctx, volunteerB, other.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	matches, err = f.svc.MatchVolunteers(ctx, coordinatorID, r.ID, 0)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(matches) != 1 || matches[0].VolunteerID != volunteerA {
		t.Fatalf("busy volunteer not skipped: %+v", matches)
	}

	if _, err := f.svc.MatchVolunteers(ctx, volunteerA, r.ID, 0); !errors.Is(err, e.ErrForbidden) {
		t.Fatalf("volunteers cannot match, got %v", err)
	}
	if _, err := f.svc.MatchVolunteers(ctx, coordinatorID, other.ID, 0); !errors.Is(err, e.ErrInvalidTransition) {
		t.Fatalf("claimed request cannot be matched, got %v", err)
	}
}

func TestDashboard_PerRole(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, 22.57, 88.36)
	b := f.create(t, 22.58, 88.37)
	if _, err := f.svc.ClaimRequest(ctx, volunteerA, b.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	victim, err := f.svc.Dashboard(ctx, victimID)
	if err != nil {
		t.Fatalf("victim dashboard: %v", err)
	}
	if victim.Role != domain.RoleVictim || len(victim.MyRequests) != 2 {
		t.Fatalf("unexpected victim dashboard: %+v", victim)
	}

	vol, err := f.svc.Dashboard(ctx, volunteerA)
	if err != nil {
		t.Fatalf("volunteer dashboard: %v", err)
	}
	if len(vol.PendingRequests) != 1 || vol.PendingRequests[0].ID != a.ID || len(vol.MyClaimed) != 1 {
		t.Fatalf("unexpected volunteer dashboard: %+v", vol)
	}

	coord, err := f.svc.Dashboard(ctx, coordinatorID)
	if err != nil {
		t.Fatalf("coordinator dashboard: %v", err)
	}
	if coord.Counts[domain.StatusPending] != 1 || coord.Counts[domain.StatusClaimed] != 1 || len(coord.ClaimedRequests) != 1 {
		t.Fatalf("unexpected coordinator dashboard: %+v", coord)
	}
}
