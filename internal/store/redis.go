package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"signalguard/internal/models"
)

// RedisStore implements Store on top of go-redis/v9, replacing a bare
// package-level *redis.Client with an injectable type so the engine and
// probes can be constructed against a fake Store in tests.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to addr and verifies the connection, mirroring
// an established queue.Init dial-then-ping sequence.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, &models.StoreUnavailable{Op: "connect", Err: err}
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return &models.StoreUnavailable{Op: "ping", Err: err}
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &models.StoreUnavailable{Op: "get", Err: err}
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return &models.StoreUnavailable{Op: "set", Err: err}
	}
	return nil
}

// IncrWithExpire increments key and attaches ttl only the first time the
// key is created within a window, using a small Lua script so the
// check-and-set is atomic (requires per-window counters that
// don't reset on every call).
func (s *RedisStore) IncrWithExpire(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	script := redis.NewScript(`
		local v = redis.call("INCR", KEYS[1])
		if v == 1 then
			redis.call("PEXPIRE", KEYS[1], ARGV[1])
		end
		return v
	`)
	res, err := script.Run(ctx, s.client, []string{key}, ttl.Milliseconds()).Result()
	if err != nil {
		return 0, &models.StoreUnavailable{Op: "incr_with_expire", Err: err}
	}
	v, ok := res.(int64)
	if !ok {
		return 0, &models.StoreUnavailable{Op: "incr_with_expire", Err: fmt.Errorf("unexpected script result type %T", res)}
	}
	return v, nil
}

// AddToRecentSet pushes member onto a Redis list acting as a bounded FIFO
// window of recent emails per domain, trimming to maxSize and returning
// the current contents oldest-first.
func (s *RedisStore) AddToRecentSet(ctx context.Context, key string, member string, maxSize int) ([]string, error) {
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, member)
	pipe.LTrim(ctx, key, 0, int64(maxSize-1))
	rangeCmd := pipe.LRange(ctx, key, 0, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, &models.StoreUnavailable{Op: "add_to_recent_set", Err: err}
	}
	members, err := rangeCmd.Result()
	if err != nil {
		return nil, &models.StoreUnavailable{Op: "add_to_recent_set", Err: err}
	}
	// LRANGE returns newest-first since we LPUSH; reverse to oldest-first.
	for i, j := 0, len(members)-1; i < j; i, j = i+1, j-1 {
		members[i], members[j] = members[j], members[i]
	}
	return members, nil
}

// RecentMembers returns a recent-set's contents oldest-first without
// mutating it.
func (s *RedisStore) RecentMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, &models.StoreUnavailable{Op: "recent_members", Err: err}
	}
	for i, j := 0, len(members)-1; i < j; i, j = i+1, j-1 {
		members[i], members[j] = members[j], members[i]
	}
	return members, nil
}

func (s *RedisStore) PushJob(ctx context.Context, key string, payload []byte) error {
	if err := s.client.RPush(ctx, key, payload).Err(); err != nil {
		return &models.StoreUnavailable{Op: "push_job", Err: err}
	}
	return nil
}

func (s *RedisStore) PopJob(ctx context.Context, key string, timeout time.Duration) ([]byte, bool, error) {
	res, err := s.client.BLPop(ctx, timeout, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &models.StoreUnavailable{Op: "pop_job", Err: err}
	}
	if len(res) < 2 {
		return nil, false, nil
	}
	return []byte(res[1]), true, nil
}

// ScanKeys enumerates keys matching pattern using Redis's cursor-based
// SCAN, avoiding the O(N) blocking behavior of KEYS on a live store.
func (s *RedisStore) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, &models.StoreUnavailable{Op: "scan_keys", Err: err}
	}
	return keys, nil
}

func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, false, &models.StoreUnavailable{Op: "ttl", Err: err}
	}
	if ttl < 0 {
		return 0, false, nil
	}
	return ttl, true, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return false, &models.StoreUnavailable{Op: "delete", Err: err}
	}
	return n > 0, nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
