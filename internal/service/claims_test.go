package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"reliefbridge/internal/domain"
	"reliefbridge/internal/service"
	"reliefbridge/internal/storage/memory"
	"reliefbridge/pkg/e"
)

func newClaims(t *testing.T) (*service.ClaimCoordinator, *service.RequestStore) {
	t.Helper()
	store := service.NewRequestStore(memory.NewStore(), discardLogger(), time.Second)
	return service.NewClaimCoordinator(store, discardLogger()), store
}

func seed(t *testing.T, store *service.RequestStore) *domain.HelpRequest {
	t.Helper()
	r, err := store.Create(context.Background(), domain.NewHelpRequest{
		RequesterID: victimID,
		Location:    domain.Coordinate{Lat: 22.57, Lng: 88.36},
		Category:    "food",
		Description: "family of four without supplies",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return r
}

func TestClaim_ConcurrentVolunteers_ExactlyOneWins(t *testing.T) {
	t.Parallel()

	claims, store := newClaims(t)
	r := seed(t, store)

	const n = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
		lost    int
		other   []error
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			<-start
			_, err := claims.Claim(context.Background(), r.ID, id, id)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, id)
			case errors.Is(err, e.ErrAlreadyClaimed):
				lost++
			default:
				other = append(other, err)
			}
		}(fmt.Sprintf("vol-%02d", i))
	}
	close(start)
	wg.Wait()

	if len(other) != 0 {
		t.Fatalf("unexpected errors: %v", other)
	}
	if len(winners) != 1 || lost != n-1 {
		t.Fatalf("expected 1 winner and %d losers, got winners=%v lost=%d", n-1, winners, lost)
	}

	final, err := store.Get(context.Background(), r.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if final.Status != domain.StatusClaimed || !final.AssignedTo(winners[0]) {
		t.Fatalf("stored claim does not match winner %s: %+v", winners[0], final)
	}
	if final.Version != 2 {
		t.Fatalf("expected exactly one committed write, version=%d", final.Version)
	}
}

func TestClaim_RetryByHolderIsAlreadyClaimed(t *testing.T) {
	t.Parallel()

	claims, store := newClaims(t)
	r := seed(t, store)
	ctx := context.Background()

	if _, err := claims.Claim(ctx, r.ID, volunteerA, "Asha"); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if _, err := claims.Claim(ctx, r.ID, volunteerA, "Asha"); !errors.Is(err, e.ErrAlreadyClaimed) {
		t.Fatalf("expected already claimed on retry, got %v", err)
	}
}

func TestComplete_WrongVolunteerForbidden(t *testing.T) {
	t.Parallel()

	claims, store := newClaims(t)
	r := seed(t, store)
	ctx := context.Background()

	if _, err := claims.Claim(ctx, r.ID, volunteerA, "Asha"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := claims.Complete(ctx, r.ID, volunteerB); !errors.Is(err, e.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	cur, _ := store.Get(ctx, r.ID)
	if cur.Status != domain.StatusClaimed || !cur.AssignedTo(volunteerA) {
		t.Fatalf("state changed after forbidden complete: %+v", cur)
	}

	done, err := claims.Complete(ctx, r.ID, volunteerA)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != domain.StatusCompleted || done.CompletedAt == nil {
		t.Fatalf("unexpected completed request: %+v", done)
	}
}

func TestTerminalStates_RejectEverything(t *testing.T) {
	t.Parallel()

	claims, store := newClaims(t)
	ctx := context.Background()

	completed := seed(t, store)
	mustNoErr(t, func() error { _, err := claims.Claim(ctx, completed.ID, volunteerA, "Asha"); return err })
	mustNoErr(t, func() error { _, err := claims.Complete(ctx, completed.ID, volunteerA); return err })

	cancelled := seed(t, store)
	mustNoErr(t, func() error { _, _, err := claims.Cancel(ctx, cancelled.ID, victimID, "resolved"); return err })

	for _, id := range []string{completed.ID, cancelled.ID} {
		if _, err := claims.Claim(ctx, id, volunteerB, "Bilal"); !errors.Is(err, e.ErrInvalidTransition) {
			t.Fatalf("claim on terminal %s: got %v", id, err)
		}
		if _, err := claims.Complete(ctx, id, volunteerA); !errors.Is(err, e.ErrInvalidTransition) {
			t.Fatalf("complete on terminal %s: got %v", id, err)
		}
		if _, _, err := claims.Cancel(ctx, id, coordinatorID, ""); !errors.Is(err, e.ErrInvalidTransition) {
			t.Fatalf("cancel on terminal %s: got %v", id, err)
		}
		if _, _, err := claims.Unclaim(ctx, id, "", nil); !errors.Is(err, e.ErrInvalidTransition) {
			t.Fatalf("unclaim on terminal %s: got %v", id, err)
		}
	}
}

func TestCancel_FromClaimedDropsVolunteer(t *testing.T) {
	t.Parallel()

	claims, store := newClaims(t)
	r := seed(t, store)
	ctx := context.Background()

	mustNoErr(t, func() error { _, err := claims.Claim(ctx, r.ID, volunteerA, "Asha"); return err })

	out, prior, err := claims.Cancel(ctx, r.ID, coordinatorID, "duplicate")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if prior.From != domain.StatusClaimed || prior.VolunteerID != volunteerA {
		t.Fatalf("expected to release %s from claimed, got %+v", volunteerA, prior)
	}
	if out.VolunteerID != nil || out.ClaimedAt != nil || out.CancelledAt == nil {
		t.Fatalf("unexpected cancelled request: %+v", out)
	}
}

func TestUnclaim_ReturnsToPool(t *testing.T) {
	t.Parallel()

	claims, store := newClaims(t)
	r := seed(t, store)
	ctx := context.Background()

	mustNoErr(t, func() error { _, err := claims.Claim(ctx, r.ID, volunteerA, "Asha"); return err })

	deny := func(*domain.HelpRequest) error { return e.ErrForbidden }
	if _, _, err := claims.Unclaim(ctx, r.ID, "", deny); !errors.Is(err, e.ErrForbidden) {
		t.Fatalf("guard must block unclaim, got %v", err)
	}

	out, prior, err := claims.Unclaim(ctx, r.ID, "volunteer silent", nil)
	if err != nil {
		t.Fatalf("unclaim: %v", err)
	}
	if prior.VolunteerID != volunteerA {
		t.Fatalf("expected %s to be released, got %q", volunteerA, prior.VolunteerID)
	}
	if out.Status != domain.StatusPending || out.VolunteerID != nil || out.VolunteerName != nil || out.ClaimedAt != nil {
		t.Fatalf("volunteer fields not cleared: %+v", out)
	}

	// pending again, so someone else can take it
	again, err := claims.Claim(ctx, r.ID, volunteerB, "Bilal")
	if err != nil {
		t.Fatalf("re-claim: %v", err)
	}
	if !again.AssignedTo(volunteerB) {
		t.Fatalf("expected %s to hold the claim", volunteerB)
	}
}

func mustNoErr(t *testing.T, fn func() error) {
	t.Helper()
	if err := fn(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// flakyStore loses the next `fail` conditional updates as if a concurrent writer
// had bumped the version without changing the status.
type flakyStore struct {
	*memory.Store
	mu    sync.Mutex
	fail  int
	calls int
}

func (f *flakyStore) ConditionalUpdate(ctx context.Context, id string, expected domain.RequestStatus, version int64, next *domain.HelpRequest) (*domain.HelpRequest, error) {
	f.mu.Lock()
	f.calls++
	lose := f.fail > 0
	if lose {
		f.fail--
	}
	f.mu.Unlock()
	if lose {
		return nil, fmt.Errorf("flaky: %w", e.ErrConflict)
	}
	return f.Store.ConditionalUpdate(ctx, id, expected, version, next)
}

func newFlakyClaims(t *testing.T) (*service.ClaimCoordinator, *service.RequestStore, *flakyStore) {
	t.Helper()
	db := &flakyStore{Store: memory.NewStore()}
	store := service.NewRequestStore(db, discardLogger(), time.Second)
	return service.NewClaimCoordinator(store, discardLogger()), store, db
}

func TestClaim_StaleStateRetriedOnce(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		fail      int
		wantErr   error
		wantCalls int
	}{
		{"one lost write is retried", 1, nil, 2},
		{"second lost write surfaces", 2, e.ErrStaleState, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, store, db := newFlakyClaims(t)
			r := seed(t, store)
			db.fail = tt.fail

			out, err := claims.Claim(context.Background(), r.ID, volunteerA, "Asha")
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("claim: %v", err)
				}
				if !out.AssignedTo(volunteerA) {
					t.Fatalf("expected %s to hold the claim: %+v", volunteerA, out)
				}
			} else {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if k := e.KindOf(err); k != e.KindStaleState {
					t.Fatalf("expected kind %s, got %s", e.KindStaleState, k)
				}
			}
			if db.calls != tt.wantCalls {
				t.Fatalf("expected %d conditional updates, got %d", tt.wantCalls, db.calls)
			}
		})
	}
}

func TestCancel_LearnsLiveStatusThenRetriesOnce(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		fail      int
		wantErr   error
		wantCalls int
	}{
		{"learning the claim is free", 0, nil, 1},
		{"one lost write is retried", 1, nil, 2},
		{"second lost write surfaces", 2, e.ErrStaleState, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, store, db := newFlakyClaims(t)
			r := seed(t, store)
			if _, err := claims.Claim(context.Background(), r.ID, volunteerA, "Asha"); err != nil {
				t.Fatalf("claim: %v", err)
			}
			db.mu.Lock()
			db.calls, db.fail = 0, tt.fail
			db.mu.Unlock()

			out, prior, err := claims.Cancel(context.Background(), r.ID, victimID, "")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
			} else {
				if err != nil {
					t.Fatalf("cancel: %v", err)
				}
				if out.Status != domain.StatusCancelled || prior.From != domain.StatusClaimed || prior.VolunteerID != volunteerA {
					t.Fatalf("unexpected result %+v / %+v", out, prior)
				}
			}
			if db.calls != tt.wantCalls {
				t.Fatalf("expected %d conditional updates, got %d", tt.wantCalls, db.calls)
			}
		})
	}
}
