package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	"reliefbridge/internal/config"
	"reliefbridge/internal/domain"
	"reliefbridge/internal/service"
	mock_service "reliefbridge/internal/service/mocks"
	"reliefbridge/internal/storage/memory"
)

const (
	victimID      = "victim-1"
	otherVictimID = "victim-2"
	volunteerA    = "vol-a"
	volunteerB    = "vol-b"
	coordinatorID = "coord-1"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDirectory() *memory.Directory {
	return memory.NewDirectory(
		memory.User{ID: victimID, Name: "Rina", Role: domain.RoleVictim},
		memory.User{ID: otherVictimID, Name: "Dev", Role: domain.RoleVictim},
		memory.User{ID: volunteerA, Name: "Asha", Role: domain.RoleVolunteer},
		memory.User{ID: volunteerB, Name: "Bilal", Role: domain.RoleVolunteer},
		memory.User{ID: coordinatorID, Name: "Chen", Role: domain.RoleCoordinator},
	)
}

type fixture struct {
	svc       *service.CoordinationService
	store     *memory.Store
	locations *memory.Locations
	events    *mock_service.MockEventBroadcaster
}

// newFixture wires the service over in-memory backends. The broadcaster accepts
// everything unless the test sets its own expectations first.
func newFixture(t *testing.T, setup ...func(f *fixture)) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &fixture{
		store:     memory.NewStore(),
		locations: memory.NewLocations(10 * time.Minute),
		events:    mock_service.NewMockEventBroadcaster(ctrl),
	}
	for _, s := range setup {
		s(f)
	}
	f.events.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	f.svc = service.NewCoordinationService(service.Deps{
		Persistence: f.store,
		Identity:    testDirectory(),
		Events:      f.events,
		Locations:   f.locations,
		Logger:      discardLogger(),
		Config: config.CoordinationConfig{
			OpTimeout:      time.Second,
			PublishTimeout: 100 * time.Millisecond,
			AvgSpeedKmh:    40,
			MatchLimit:     3,
		},
	})
	return f
}

func f64(v float64) *float64 { return &v }

func (f *fixture) create(t *testing.T, lat, lng float64) *domain.HelpRequest {
	t.Helper()
	r, err := f.svc.CreateRequest(context.Background(), victimID, domain.CreateHelpRequest{
		Lat:         &lat,
		Lng:         &lng,
		Category:    "medical",
		Description: "elderly neighbour needs insulin",
		Priority:    domain.PriorityHigh,
		Contact:     "+91 90000 00000",
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	return r
}
