package sqlite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reliefbridge/internal/domain"
	"reliefbridge/pkg/e"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func openMemory(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), ":memory:", discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func pending(id string, created time.Time) *domain.HelpRequest {
	return &domain.HelpRequest{
		ID:          id,
		RequesterID: "victim-1",
		Location:    domain.Coordinate{Lat: 37.7749, Lng: -122.4194},
		Category:    "shelter",
		Description: "roof gone",
		Priority:    domain.PriorityNormal,
		Status:      domain.StatusPending,
		CreatedAt:   created,
		UpdatedAt:   created,
		Version:     1,
	}
}

func claim(r *domain.HelpRequest, volunteer string) *domain.HelpRequest {
	next := r.Clone()
	at := r.CreatedAt.Add(time.Minute)
	next.Status = domain.StatusClaimed
	next.VolunteerID = &volunteer
	next.VolunteerName = &volunteer
	next.ClaimedAt = &at
	next.UpdatedAt = at
	next.Version = r.Version + 1
	return next
}

func TestSQLite_RoundTripAndCAS(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()
	created := time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC)

	r := pending("r1", created)
	require.NoError(t, db.Insert(ctx, r))
	assert.ErrorIs(t, db.Insert(ctx, r), e.ErrConflict)

	got, err := db.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, r.Location, got.Location)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Nil(t, got.VolunteerID)
	assert.True(t, got.CreatedAt.Equal(created))

	updated, err := db.ConditionalUpdate(ctx, "r1", domain.StatusPending, 1, claim(r, "vol-a"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated.Version)

	_, err = db.ConditionalUpdate(ctx, "r1", domain.StatusPending, 1, claim(r, "vol-b"))
	assert.ErrorIs(t, err, e.ErrConflict)

	_, err = db.ConditionalUpdate(ctx, "ghost", domain.StatusPending, 1, claim(r, "vol-b"))
	assert.ErrorIs(t, err, e.ErrNotFound)

	stored, err := db.Get(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, stored.VolunteerID)
	assert.Equal(t, "vol-a", *stored.VolunteerID)
	require.NotNil(t, stored.ClaimedAt)
	assert.True(t, stored.ClaimedAt.Equal(created.Add(time.Minute)))

	_, err = db.Get(ctx, "ghost")
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestSQLite_QueryOrderingAndFilters(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, db.Insert(ctx, pending(fmt.Sprintf("r%d", i), base.Add(time.Duration(5-i)*time.Minute))))
	}
	r2, err := db.Get(ctx, "r2")
	require.NoError(t, err)
	_, err = db.ConditionalUpdate(ctx, "r2", domain.StatusPending, 1, claim(r2, "vol-a"))
	require.NoError(t, err)

	all, err := db.Query(ctx, domain.ListFilter{Limit: 50})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "r4", all[0].ID)
	assert.Equal(t, "r0", all[4].ID)

	page, err := db.Query(ctx, domain.ListFilter{Status: domain.StatusPending, Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "r1", page[1].ID)

	expired, err := db.Query(ctx, domain.ListFilter{Status: domain.StatusClaimed, ClaimedBefore: base.Add(24 * time.Hour), Limit: 10})
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "r2", expired[0].ID)

	fresh, err := db.Query(ctx, domain.ListFilter{ClaimedBefore: base, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, fresh)

	counts, err := db.CountByStatus(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, counts[domain.StatusPending])
	assert.EqualValues(t, 1, counts[domain.StatusClaimed])
}

func TestSQLite_Users(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()

	require.NoError(t, db.PutUser(ctx, "u1", "Asha", domain.RoleVolunteer))
	require.NoError(t, db.PutUser(ctx, "u2", "Chen", "admin"))

	role, err := db.RoleOf(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleVolunteer, role)

	role, err = db.RoleOf(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCoordinator, role)

	name, err := db.NameOf(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Asha", name)

	_, err = db.RoleOf(ctx, "nobody")
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestConditionalUpdate_ZeroRowsIsConflict(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	db := New(conn, discard())
	r := pending("r1", time.Now().UTC())

	mock.ExpectExec("UPDATE help_requests").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			"r1", "pending", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT COUNT\\(1\\) FROM help_requests").
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, err = db.ConditionalUpdate(context.Background(), "r1", domain.StatusPending, 1, claim(r, "vol-a"))
	assert.ErrorIs(t, err, e.ErrConflict)
	assert.Equal(t, e.KindStaleState, e.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_DriverFailureIsInternal(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	db := New(conn, discard())
	mock.ExpectQuery("SELECT .* FROM help_requests WHERE id = ?").
		WithArgs("r1").
		WillReturnError(errors.New("disk I/O error"))

	_, err = db.Get(context.Background(), "r1")
	assert.ErrorIs(t, err, e.ErrInternal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_DeadlineIsTimeout(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	db := New(conn, discard())
	mock.ExpectQuery("SELECT .* FROM help_requests").WillDelayFor(200 * time.Millisecond).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = db.Get(ctx, "r1")
	assert.ErrorIs(t, err, e.ErrTimeout)
}

func TestSQLite_SingleWinnerUnderContention(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()
	r := pending("r1", time.Now().UTC())
	require.NoError(t, db.Insert(ctx, r))

	const racers = 8
	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := db.ConditionalUpdate(ctx, "r1", domain.StatusPending, 1, claim(r, fmt.Sprintf("vol-%d", i)))
			if err == nil {
				wins.Add(1)
				return
			}
			assert.ErrorIs(t, err, e.ErrConflict)
		}(i)
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins.Load())
}
