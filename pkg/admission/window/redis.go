package window

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend implements Backend using Redis so multiple gate instances
// can share window counters.
//
// Windows are stored as JSON values under "gate:window:<scope>:<minute>"
// with a TTL slightly past the retention horizon, so Redis ages out stale
// minutes even if no purge cycle runs.
//
// Note that the Store's read-modify-write cycle is not atomic across
// processes; concurrent instances can briefly over-admit by the number of
// in-flight checks. This matches the subsystem's accepted check-then-record
// slack.
type RedisBackend struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// RedisBackendConfig configures the Redis backend.
type RedisBackendConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string

	// Password is the Redis password. Empty for no auth.
	Password string

	// DB is the Redis database number.
	DB int

	// KeyPrefix namespaces all window keys. Default: "gate:window".
	KeyPrefix string

	// TTL is how long windows live without purging.
	// Default: (DefaultRetentionMinutes + 1) minutes.
	TTL time.Duration
}

// NewRedisBackend creates a Redis window backend and verifies connectivity.
func NewRedisBackend(cfg RedisBackendConfig) (*RedisBackend, error) {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "gate:window"
	}
	if cfg.TTL == 0 {
		cfg.TTL = (DefaultRetentionMinutes + 1) * time.Minute
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisBackend{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		ttl:       cfg.TTL,
	}, nil
}

// Get retrieves the window for (scope, minute). Returns nil if absent.
func (r *RedisBackend) Get(ctx context.Context, scope string, minute int64) (*RateWindow, error) {
	data, err := r.client.Get(ctx, r.key(scope, minute)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var w RateWindow
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("redis decode window: %w", err)
	}
	return &w, nil
}

// Set stores the window with the configured TTL.
func (r *RedisBackend) Set(ctx context.Context, w *RateWindow) error {
	if w == nil {
		return fmt.Errorf("window cannot be nil")
	}

	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("redis encode window: %w", err)
	}

	if err := r.client.Set(ctx, r.key(w.Scope, w.Minute), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes the window for (scope, minute).
func (r *RedisBackend) Delete(ctx context.Context, scope string, minute int64) error {
	if err := r.client.Del(ctx, r.key(scope, minute)).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// List scans all window keys under the prefix and decodes them.
// Only used by the purge path; per-request reads go through Get.
func (r *RedisBackend) List(ctx context.Context) ([]*RateWindow, error) {
	var windows []*RateWindow

	iter := r.client.Scan(ctx, 0, r.keyPrefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := r.client.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil {
			continue // expired between scan and get
		}
		if err != nil {
			return nil, fmt.Errorf("redis list get: %w", err)
		}

		var w RateWindow
		if err := json.Unmarshal(data, &w); err != nil {
			continue // skip malformed entries
		}
		windows = append(windows, &w)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}

	return windows, nil
}

// Close closes the Redis client.
func (r *RedisBackend) Close() error {
	return r.client.Close()
}

func (r *RedisBackend) key(scope string, minute int64) string {
	return fmt.Sprintf("%s:%s:%d", r.keyPrefix, scope, minute)
}
