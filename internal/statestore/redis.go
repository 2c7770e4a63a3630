package statestore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const backendRedis = "redis"

// RedisStore is a Redis-backed implementation of Store, grounded on the
// teacher's revocation list store (go-redis/v9, per-operation prometheus
// histograms, pipeline use for batched work). This is the production
// backend: the correlation substrate shared across every stream processor
// and rule engine instance in a tenant's deployment (spec §4.6).
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func observe(operation string, start time.Time, err error) {
	operationDurationMs.WithLabelValues(operation, backendRedis).
		Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	if err != nil {
		operationErrors.WithLabelValues(operation, backendRedis).Inc()
	}
}

func (s *RedisStore) Incr(ctx context.Context, key string) (v int64, err error) {
	start := time.Now()
	defer func() { observe("incr", start, err) }()

	v, err = s.client.Incr(ctx, key).Result()
	return v, err
}

func (s *RedisStore) IncrBy(ctx context.Context, key string, delta int64) (v int64, err error) {
	start := time.Now()
	defer func() { observe("incr_by", start, err) }()

	v, err = s.client.IncrBy(ctx, key, delta).Result()
	return v, err
}

func (s *RedisStore) SetExpire(ctx context.Context, key string, ttl time.Duration) (err error) {
	start := time.Now()
	defer func() { observe("set_expire", start, err) }()

	err = s.client.Expire(ctx, key, ttl).Err()
	return err
}

func (s *RedisStore) Delete(ctx context.Context, key string) (err error) {
	start := time.Now()
	defer func() { observe("delete", start, err) }()

	err = s.client.Del(ctx, key).Err()
	return err
}

func (s *RedisStore) SetAdd(ctx context.Context, key, member string) (wasNew bool, err error) {
	start := time.Now()
	defer func() { observe("set_add", start, err) }()

	added, err := s.client.SAdd(ctx, key, member).Result()
	if err != nil {
		return false, err
	}
	return added > 0, nil
}

func (s *RedisStore) SetMembers(ctx context.Context, key string) (members []string, err error) {
	start := time.Now()
	defer func() { observe("set_members", start, err) }()

	members, err = s.client.SMembers(ctx, key).Result()
	return members, err
}

// ListPrepend prepends value and re-caps the list to defaultMaxListLen in a
// single pipeline round-trip, so no ordered-sequence reader ever observes an
// uncapped list (spec §4.5 "retain last 100 entries").
func (s *RedisStore) ListPrepend(ctx context.Context, key, value string) (err error) {
	start := time.Now()
	defer func() { observe("list_prepend", start, err) }()

	pipe := s.client.Pipeline()
	pipe.LPush(ctx, key, value)
	pipe.LTrim(ctx, key, 0, defaultMaxListLen-1)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) ListTrim(ctx context.Context, key string, maxLen int) (err error) {
	start := time.Now()
	defer func() { observe("list_trim", start, err) }()

	err = s.client.LTrim(ctx, key, 0, int64(maxLen)-1).Err()
	return err
}

func (s *RedisStore) ListLength(ctx context.Context, key string) (length int, err error) {
	start := time.Now()
	defer func() { observe("list_length", start, err) }()

	l, err := s.client.LLen(ctx, key).Result()
	return int(l), err
}

func (s *RedisStore) ListMembers(ctx context.Context, key string) (members []string, err error) {
	start := time.Now()
	defer func() { observe("list_members", start, err) }()

	members, err = s.client.LRange(ctx, key, 0, -1).Result()
	return members, err
}

func (s *RedisStore) GetTTL(ctx context.Context, key string) (ttl time.Duration, err error) {
	start := time.Now()
	defer func() { observe("get_ttl", start, err) }()

	ttl, err = s.client.TTL(ctx, key).Result()
	if err != nil {
		return -1, err
	}
	// go-redis reports -2 (key absent) and -1 (no expiry) as themselves;
	// normalize both to a negative duration per the Store contract.
	if ttl < 0 {
		return -1, nil
	}
	return ttl, nil
}

var _ Store = (*RedisStore)(nil)
