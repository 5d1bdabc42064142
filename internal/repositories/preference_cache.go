package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/notification-engine/internal/models"
	"github.com/redis/go-redis/v9"
)

// versionTTL outlives any read-through fill by a wide margin
const versionTTL = 24 * time.Hour

var errVersionMoved = errors.New("preference cache version moved")

// PreferenceCache is a read-through cache in front of PreferenceRepository.
// Every Invalidate bumps a per-user version; Set only stores a row if the
// version is still the one read before the row was loaded.
type PreferenceCache interface {
	// Get returns nil, nil on a miss.
	Get(ctx context.Context, userID string) (*models.NotificationPreferences, error)
	Version(ctx context.Context, userID string) (int64, error)
	// Set reports whether the row was stored.
	Set(ctx context.Context, prefs *models.NotificationPreferences, version int64) (bool, error)
	Invalidate(ctx context.Context, userID string) error
}

// RedisPreferenceCache implements PreferenceCache using Redis as the backend
type RedisPreferenceCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPreferenceCache creates a Redis-backed preference cache from a redis:// URL
func NewRedisPreferenceCache(ctx context.Context, redisURL string, ttl time.Duration) (*RedisPreferenceCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisPreferenceCache{client: client, ttl: ttl}, nil
}

func preferenceKey(userID string) string {
	return "notification:prefs:" + userID
}

func preferenceVersionKey(userID string) string {
	return "notification:prefs-version:" + userID
}

func (c *RedisPreferenceCache) Get(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
	val, err := c.client.Get(ctx, preferenceKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var prefs models.NotificationPreferences
	if err := json.Unmarshal(val, &prefs); err != nil {
		return nil, fmt.Errorf("failed to decode cached preferences: %w", err)
	}
	return &prefs, nil
}

func readVersion(ctx context.Context, cmd redis.Cmdable, userID string) (int64, error) {
	v, err := cmd.Get(ctx, preferenceVersionKey(userID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return v, err
}

func (c *RedisPreferenceCache) Version(ctx context.Context, userID string) (int64, error) {
	return readVersion(ctx, c.client, userID)
}

func (c *RedisPreferenceCache) Set(ctx context.Context, prefs *models.NotificationPreferences, version int64) (bool, error) {
	data, err := json.Marshal(prefs)
	if err != nil {
		return false, fmt.Errorf("failed to encode preferences: %w", err)
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readVersion(ctx, tx, prefs.UserID)
		if err != nil {
			return err
		}
		if current != version {
			return errVersionMoved
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, preferenceKey(prefs.UserID), data, c.ttl)
			return nil
		})
		return err
	}, preferenceVersionKey(prefs.UserID))

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errVersionMoved), errors.Is(err, redis.TxFailedErr):
		return false, nil
	default:
		return false, err
	}
}

func (c *RedisPreferenceCache) Invalidate(ctx context.Context, userID string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, preferenceVersionKey(userID))
		pipe.Expire(ctx, preferenceVersionKey(userID), versionTTL)
		pipe.Del(ctx, preferenceKey(userID))
		return nil
	})
	return err
}

// Close closes the underlying client
func (c *RedisPreferenceCache) Close() error {
	return c.client.Close()
}
