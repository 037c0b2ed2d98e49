package workers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	mock_workers "reliefbridge/internal/workers/mocks"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestClaimReaper_TickUsesCutoff(t *testing.T) {
	ctrl := gomock.NewController(t)
	claims := mock_workers.NewMockClaimExpirer(ctrl)

	now := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	claims.EXPECT().ExpireClaims(gomock.Any(), now.Add(-30*time.Minute)).Return(2, nil)

	w := NewClaimReaper(claims, 30*time.Minute, time.Minute, discard())
	w.now = func() time.Time { return now }

	if n := w.Tick(context.Background()); n != 2 {
		t.Fatalf("want 2 released, got %d", n)
	}
}

func TestClaimReaper_TickSurvivesErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	claims := mock_workers.NewMockClaimExpirer(ctrl)
	claims.EXPECT().ExpireClaims(gomock.Any(), gomock.Any()).Return(0, errors.New("db down"))

	w := NewClaimReaper(claims, time.Minute, time.Minute, discard())
	if n := w.Tick(context.Background()); n != 0 {
		t.Fatalf("want 0, got %d", n)
	}
}

func TestClaimReaper_RunTicksUntilCancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	claims := mock_workers.NewMockClaimExpirer(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once
	ticked := make(chan struct{})
	claims.EXPECT().ExpireClaims(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, time.Time) (int, error) {
		once.Do(func() {
			cancel()
			close(ticked)
		})
		return 0, nil
	}).MinTimes(1)

	w := NewClaimReaper(claims, time.Minute, 10*time.Millisecond, discard())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reaper did not stop")
	}
	<-ticked
}

func TestClaimReaper_DisabledReturnsImmediately(t *testing.T) {
	ctrl := gomock.NewController(t)
	claims := mock_workers.NewMockClaimExpirer(ctrl)

	w := NewClaimReaper(claims, 0, time.Minute, discard())
	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled reaper must return")
	}
}
