package service_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	"reliefbridge/internal/domain"
	"reliefbridge/internal/geo"
	"reliefbridge/pkg/e"
)

func TestEndToEnd_KolkataMedicalRequest(t *testing.T) {
	t.Parallel()

	var topics []string
	f := newFixture(t, func(f *fixture) {
		f.events.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, topic string, _ any) error {
				topics = append(topics, topic)
				return nil
			}).Times(3)
	})
	ctx := context.Background()

	r := f.create(t, 22.57, 88.36)
	if r.Status != domain.StatusPending || r.Category != "medical" || r.Priority != domain.PriorityHigh {
		t.Fatalf("unexpected created request: %+v", r)
	}

	claimed, err := f.svc.ClaimRequest(ctx, volunteerA, r.ID)
	if err != nil {
		t.Fatalf("claim A: %v", err)
	}
	if claimed.Status != domain.StatusClaimed || !claimed.AssignedTo(volunteerA) || *claimed.VolunteerName != "Asha" {
		t.Fatalf("unexpected claim: %+v", claimed)
	}

	_, err = f.svc.ClaimRequest(ctx, volunteerB, r.ID)
	if !errors.Is(err, e.ErrAlreadyClaimed) {
		t.Fatalf("claim B: expected already claimed, got %v", err)
	}
	if e.KindOf(err) != e.KindAlreadyClaimed {
		t.Fatalf("already claimed must be distinguishable, kind=%q", e.KindOf(err))
	}

	done, err := f.svc.CompleteRequest(ctx, volunteerA, r.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != domain.StatusCompleted || done.CompletedAt == nil {
		t.Fatalf("unexpected completion: %+v", done)
	}

	if _, err := f.svc.CancelRequest(ctx, coordinatorID, r.ID, "late"); !errors.Is(err, e.ErrInvalidTransition) {
		t.Fatalf("cancel completed: expected invalid transition, got %v", err)
	}

	want := []string{"requests.pending", "requests.claimed", "requests.completed"}
	if len(topics) != len(want) {
		t.Fatalf("topics=%v want %v", topics, want)
	}
	for i := range want {
		if topics[i] != want[i] {
			t.Fatalf("topics=%v want %v", topics, want)
		}
	}
}

func TestBroadcastFailure_DoesNotSurface(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(f *fixture) {
		f.events.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(errors.New("broker down")).Times(2)
	})
	ctx := context.Background()

	r := f.create(t, 22.57, 88.36)
	claimed, err := f.svc.ClaimRequest(ctx, volunteerA, r.ID)
	if err != nil {
		t.Fatalf("claim must succeed despite broadcaster failure: %v", err)
	}

	stored, err := f.store.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != domain.StatusClaimed || stored.Version != claimed.Version {
		t.Fatalf("state change must not roll back: %+v", stored)
	}
}

func TestBroadcast_BoundedByPublishTimeout(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(f *fixture) {
		f.events.EXPECT().Publish(gomock.Any(), "requests.pending", gomock.Any()).
			DoAndReturn(func(ctx context.Context, _ string, ev any) error {
				if _, ok := ctx.Deadline(); !ok {
					t.Errorf("publish context has no deadline")
				}
				changed, ok := ev.(domain.RequestChanged)
				if !ok {
					t.Errorf("unexpected event type %T", ev)
					return nil
				}
				if changed.PreviousStatus != "" || changed.NewStatus != domain.StatusPending || changed.EventID == "" {
					t.Errorf("unexpected event: %+v", changed)
				}
				<-ctx.Done()
				return ctx.Err()
			})
	})

	start := time.Now()
	f.create(t, 10, 10)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("slow broadcaster blocked the caller for %v", elapsed)
	}
}

func TestAuthorization_EnforcedBeforeExecution(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	r := f.create(t, 22.57, 88.36)

	cases := []struct {
		name string
		call func() error
	}{
		{"volunteer cannot create", func() error {
			_, err := f.svc.CreateRequest(ctx, volunteerA, domain.CreateHelpRequest{Lat: f64(1), Lng: f64(1), Category: "x", Description: "y"})
			return err
		}},
		{"coordinator cannot create", func() error {
			_, err := f.svc.CreateRequest(ctx, coordinatorID, domain.CreateHelpRequest{Lat: f64(1), Lng: f64(1), Category: "x", Description: "y"})
			return err
		}},
		{"victim cannot claim", func() error { _, err := f.svc.ClaimRequest(ctx, victimID, r.ID); return err }},
		{"volunteer cannot cancel", func() error { _, err := f.svc.CancelRequest(ctx, volunteerA, r.ID, ""); return err }},
		{"other victim cannot cancel", func() error { _, err := f.svc.CancelRequest(ctx, otherVictimID, r.ID, ""); return err }},
		{"victim cannot list all", func() error { _, err := f.svc.ListRequests(ctx, victimID, domain.ListFilter{}); return err }},
		{"other victim cannot view", func() error { _, err := f.svc.GetRequest(ctx, otherVictimID, r.ID); return err }},
		{"unknown user", func() error { _, err := f.svc.ClaimRequest(ctx, "ghost", r.ID); return err }},
	}
	for _, tc := range cases {
		if err := tc.call(); !errors.Is(err, e.ErrForbidden) {
			t.Fatalf("%s: expected forbidden, got %v", tc.name, err)
		}
	}

	cur, _ := f.store.Get(ctx, r.ID)
	if cur.Status != domain.StatusPending || cur.Version != 1 {
		t.Fatalf("denied calls mutated state: %+v", cur)
	}
}

func TestCompleteRequest_ByNonAssigneeForbidden(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	r := f.create(t, 22.57, 88.36)

	if _, err := f.svc.ClaimRequest(ctx, volunteerA, r.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := f.svc.CompleteRequest(ctx, volunteerB, r.ID); !errors.Is(err, e.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	cur, _ := f.store.Get(ctx, r.ID)
	if cur.Status != domain.StatusClaimed {
		t.Fatalf("expected claimed, got %s", cur.Status)
	}

	// a coordinator may close anybody's claim
	if _, err := f.svc.CompleteRequest(ctx, coordinatorID, r.ID); err != nil {
		t.Fatalf("coordinator complete: %v", err)
	}
}

func TestCreateRequest_InvalidCoordinate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	for _, c := range []domain.Coordinate{{Lat: 91, Lng: 0}, {Lat: 0, Lng: -181}} {
		_, err := f.svc.CreateRequest(context.Background(), victimID, domain.CreateHelpRequest{
			Lat: f64(c.Lat), Lng: f64(c.Lng), Category: "shelter", Description: "roof collapsed",
		})
		if !errors.Is(err, e.ErrInvalidCoordinate) {
			t.Fatalf("%+v: expected invalid coordinate, got %v", c, err)
		}
	}
}

func TestCreateRequest_MissingCoordinate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	for _, in := range []domain.CreateHelpRequest{
		{Category: "shelter", Description: "roof collapsed"},
		{Lat: f64(0), Category: "shelter", Description: "roof collapsed"},
	} {
		_, err := f.svc.CreateRequest(context.Background(), victimID, in)
		if !errors.Is(err, e.ErrMissingField) {
			t.Fatalf("expected missing field, got %v", err)
		}
	}

	// the equator and the prime meridian are real places
	r, err := f.svc.CreateRequest(context.Background(), victimID, domain.CreateHelpRequest{
		Lat: f64(0), Lng: f64(0), Category: "shelter", Description: "raft adrift",
	})
	if err != nil {
		t.Fatalf("create at 0,0: %v", err)
	}
	if r.Location != (domain.Coordinate{}) {
		t.Fatalf("unexpected location %+v", r.Location)
	}
}

func TestCancelRequest_EventNamesReleasedVolunteer(t *testing.T) {
	t.Parallel()

	var cancelled []domain.RequestChanged
	f := newFixture(t, func(f *fixture) {
		f.events.EXPECT().Publish(gomock.Any(), "requests.cancelled", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, ev any) error {
				cancelled = append(cancelled, ev.(domain.RequestChanged))
				return nil
			}).Times(1)
	})
	ctx := context.Background()

	r := f.create(t, 22.57, 88.36)
	if _, err := f.svc.ClaimRequest(ctx, volunteerA, r.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	out, err := f.svc.CancelRequest(ctx, victimID, r.ID, "help arrived")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if out.VolunteerID != nil {
		t.Fatalf("cancelled request keeps a volunteer: %+v", out)
	}

	if len(cancelled) != 1 {
		t.Fatalf("expected one cancel event, got %d", len(cancelled))
	}
	ev := cancelled[0]
	if ev.PreviousStatus != domain.StatusClaimed || ev.PreviousVolunteerID != volunteerA || ev.Reason != "help arrived" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestListRequests_Scopes(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, 22.57, 88.36)
	b := f.create(t, 22.58, 88.37)
	if _, err := f.svc.ClaimRequest(ctx, volunteerA, b.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	available, err := f.svc.ListRequests(ctx, volunteerB, domain.ListFilter{Status: domain.StatusPending})
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if len(available) != 1 || available[0].ID != a.ID {
		t.Fatalf("unexpected available list: %v", available)
	}

	mine, err := f.svc.ListRequests(ctx, volunteerA, domain.ListFilter{Mine: true})
	if err != nil {
		t.Fatalf("mine: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != b.ID {
		t.Fatalf("unexpected volunteer list: %v", mine)
	}

	own, err := f.svc.ListRequests(ctx, victimID, domain.ListFilter{Mine: true, RequesterID: otherVictimID})
	if err != nil {
		t.Fatalf("victim mine: %v", err)
	}
	if len(own) != 2 {
		t.Fatalf("victim should see own two requests, got %d", len(own))
	}

	all, err := f.svc.ListRequests(ctx, coordinatorID, domain.ListFilter{})
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 2 || all[0].ID != a.ID {
		t.Fatalf("coordinator list must be ordered by creation: %v", all)
	}
}

func TestComputeNavigation_SanFranciscoSample(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	r := f.create(t, 37.7749, -122.4194)

	from := domain.Coordinate{Lat: 37.7849, Lng: -122.4094}
	if _, err := f.svc.ComputeNavigation(ctx, volunteerA, r.ID, from); !errors.Is(err, e.ErrForbidden) {
		t.Fatalf("navigation before claim by stranger: %v", err)
	}
	if _, err := f.svc.ComputeNavigation(ctx, coordinatorID, r.ID, from); !errors.Is(err, e.ErrInvalidTransition) {
		t.Fatalf("navigation on pending: expected invalid transition, got %v", err)
	}

	if _, err := f.svc.ClaimRequest(ctx, volunteerA, r.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	nav, err := f.svc.ComputeNavigation(ctx, volunteerA, r.ID, from)
	if err != nil {
		t.Fatalf("navigation: %v", err)
	}
	// haversine gives 1.417 km for this pair
	if math.Abs(nav.DistanceKM-1.40) > 0.03 {
		t.Fatalf("distance=%v", nav.DistanceKM)
	}
	if nav.Band != string(geo.BandNear) || nav.EtaMinutes != 2 {
		t.Fatalf("unexpected navigation: %+v", nav)
	}
	if nav.VolunteerID != volunteerA {
		t.Fatalf("navigation volunteer=%q", nav.VolunteerID)
	}

	if _, err := f.svc.ComputeNavigation(ctx, volunteerB, r.ID, from); !errors.Is(err, e.ErrForbidden) {
		t.Fatalf("non-assignee navigation: expected forbidden, got %v", err)
	}
	if _, err := f.svc.ComputeNavigation(ctx, victimID, r.ID, from); err != nil {
		t.Fatalf("requester navigation: %v", err)
	}
	if _, err := f.svc.ComputeNavigation(ctx, coordinatorID, "missing", from); !errors.Is(err, e.ErrNotFound) {
		t.Fatalf("unknown id: expected not found, got %v", err)
	}
}

func TestUnclaimRequest_OnlyHolderOrCoordinator(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	r := f.create(t, 22.57, 88.36)
	if _, err := f.svc.ClaimRequest(ctx, volunteerA, r.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	if _, err := f.svc.UnclaimRequest(ctx, volunteerB, r.ID, "mine now"); !errors.Is(err, e.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	out, err := f.svc.UnclaimRequest(ctx, volunteerA, r.ID, "flat tyre")
	if err != nil {
		t.Fatalf("unclaim: %v", err)
	}
	if out.Status != domain.StatusPending {
		t.Fatalf("expected pending, got %s", out.Status)
	}
}

func TestExpireClaims(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	stale := f.create(t, 22.57, 88.36)
	if _, err := f.svc.ClaimRequest(ctx, volunteerA, stale.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	untouched := f.create(t, 22.60, 88.40)

	n, err := f.svc.ExpireClaims(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("ExpireClaims: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one released claim, got %d", n)
	}
	cur, _ := f.store.Get(ctx, stale.ID)
	if cur.Status != domain.StatusPending || cur.VolunteerID != nil {
		t.Fatalf("claim not released: %+v", cur)
	}
	other, _ := f.store.Get(ctx, untouched.ID)
	if other.Version != 1 {
		t.Fatalf("pending request must not be touched: %+v", other)
	}

	// nothing claimed before the distant past
	n, err = f.svc.ExpireClaims(ctx, time.Unix(0, 0))
	if err != nil || n != 0 {
		t.Fatalf("expected no-op, got n=%d err=%v", n, err)
	}
}
