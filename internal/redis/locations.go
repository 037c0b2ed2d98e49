package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"reliefbridge/internal/domain"
	"reliefbridge/internal/service"
	"reliefbridge/pkg/e"

	goredis "github.com/redis/go-redis/v9"
)

var _ service.LocationTracker = (*LocationCache)(nil)

const (
	locationKeyPrefix = "relief:volunteer:loc:"
	locationIndexKey  = "relief:volunteer:loc:index"
)

// LocationCache keeps one JSON document per volunteer with a TTL, plus a sorted
// set (score = recorded_at) so List does not need SCAN.
type LocationCache struct {
	client *goredis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewLocationCache(r *Redis, ttl time.Duration) *LocationCache {
	return &LocationCache{client: r.Client, ttl: ttl, now: time.Now}
}

func (c *LocationCache) Save(ctx context.Context, loc domain.VolunteerLocation) error {
	const op = "redis.LocationCache.Save"

	b, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("%s: %v: %w", op, err, e.ErrInternal)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, locationKeyPrefix+loc.VolunteerID, b, c.ttl)
	pipe.ZAdd(ctx, locationIndexKey, goredis.Z{Score: float64(loc.RecordedAt.UnixMilli()), Member: loc.VolunteerID})
	if _, err := pipe.Exec(ctx); err != nil {
		return e.WrapError(ctx, op, err)
	}
	return nil
}

func (c *LocationCache) Get(ctx context.Context, volunteerID string) (*domain.VolunteerLocation, error) {
	const op = "redis.LocationCache.Get"

	data, err := c.client.Get(ctx, locationKeyPrefix+volunteerID).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, fmt.Errorf("%s: volunteer %s: %w", op, volunteerID, e.ErrNotFound)
		}
		return nil, e.WrapError(ctx, op, err)
	}

	var loc domain.VolunteerLocation
	if err := json.Unmarshal(data, &loc); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", op, err, e.ErrInternal)
	}
	return &loc, nil
}

func (c *LocationCache) List(ctx context.Context) ([]domain.VolunteerLocation, error) {
	const op = "redis.LocationCache.List"

	// entries older than the TTL have already lost their document
	if c.ttl > 0 {
		cutoff := c.now().Add(-c.ttl).UnixMilli()
		if err := c.client.ZRemRangeByScore(ctx, locationIndexKey, "-inf", "("+strconv.FormatInt(cutoff, 10)).Err(); err != nil {
			return nil, e.WrapError(ctx, op, err)
		}
	}

	ids, err := c.client.ZRange(ctx, locationIndexKey, 0, -1).Result()
	if err != nil {
		return nil, e.WrapError(ctx, op, err)
	}
	if len(ids) == 0 {
		return []domain.VolunteerLocation{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = locationKeyPrefix + id
	}
	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, e.WrapError(ctx, op, err)
	}

	out := make([]domain.VolunteerLocation, 0, len(vals))
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var loc domain.VolunteerLocation
		if err := json.Unmarshal([]byte(s), &loc); err != nil {
			continue
		}
		out = append(out, loc)
	}
	return out, nil
}
