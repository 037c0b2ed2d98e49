//go:build integration

package redis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"reliefbridge/internal/config"
	"reliefbridge/internal/domain"
	"reliefbridge/pkg/e"
)

var testRedis *Redis

func TestMain(m *testing.M) {
	ctx := context.Background()

	tc, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		fmt.Println("cannot start container:", err)
		os.Exit(1)
	}

	host, _ := tc.Host(ctx)
	port, _ := tc.MappedPort(ctx, "6379/tcp")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	testRedis, err = NewRedis(ctx, config.RedisConfig{Addr: host + ":" + port.Port()}, logger)
	if err != nil {
		fmt.Println("NewRedis:", err)
		_ = tc.Terminate(ctx)
		os.Exit(1)
	}

	code := m.Run()

	_ = testRedis.Close()
	_ = tc.Terminate(ctx)
	os.Exit(code)
}

func flush(t *testing.T) {
	t.Helper()
	require.NoError(t, testRedis.Client.FlushDB(context.Background()).Err())
}

func TestLocationCache_SaveGetList(t *testing.T) {
	flush(t)
	ctx := context.Background()
	c := NewLocationCache(testRedis, time.Minute)

	now := time.Now().UTC().Truncate(time.Millisecond)
	for i, id := range []string{"vol-a", "vol-b"} {
		loc := domain.VolunteerLocation{
			VolunteerID: id,
			Location:    domain.Coordinate{Lat: 22.57 + float64(i)/100, Lng: 88.36},
			RecordedAt:  now,
		}
		require.NoError(t, c.Save(ctx, loc), id)
	}

	got, err := c.Get(ctx, "vol-b")
	require.NoError(t, err)
	assert.Equal(t, 22.58, got.Location.Lat)
	assert.True(t, got.RecordedAt.Equal(now))

	all, err := c.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = c.Get(ctx, "nobody")
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestLocationCache_ListDropsExpired(t *testing.T) {
	flush(t)
	ctx := context.Background()
	c := NewLocationCache(testRedis, time.Minute)

	require.NoError(t, c.Save(ctx, domain.VolunteerLocation{VolunteerID: "stale", RecordedAt: time.Now().Add(-time.Hour)}))
	require.NoError(t, c.Save(ctx, domain.VolunteerLocation{VolunteerID: "fresh", RecordedAt: time.Now()}))

	all, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "fresh", all[0].VolunteerID)
}

func TestWebhookQueue_FIFO(t *testing.T) {
	flush(t)
	ctx := context.Background()
	q := NewWebhookQueue(testRedis.Client, "relief:webhooks:test")

	for _, topic := range []string{"requests.pending", "requests.claimed"} {
		require.NoError(t, q.Enqueue(ctx, domain.WebhookPayload{Topic: topic, QueuedAt: time.Now()}))
	}
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	first, err := q.BRPop(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "requests.pending", first.Topic, "oldest first")

	_, err = q.BRPop(ctx, time.Second)
	require.NoError(t, err)

	_, err = q.BRPop(ctx, time.Second)
	assert.ErrorIs(t, err, e.ErrWebHookEmpty)
}
