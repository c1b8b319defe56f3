package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"reunion_archive/internal/model"
)

const (
	// ThreadCachePrefix is the key prefix for a story's flat comment list
	ThreadCachePrefix = "thread:story:"

	// ThreadVersionPrefix is the key prefix for a story's write counter.
	// Invalidate bumps it; Set only stores a list read under the current value.
	ThreadVersionPrefix = "thread:version:"

	// DefaultThreadCacheTTL applies when the configured TTL is not positive
	DefaultThreadCacheTTL = 5 * time.Minute
)

// ThreadCache stores the flat, newest-first comment list of a story. The
// tree is never cached; it is rebuilt from the list on every read.
type ThreadCache interface {
	// Get returns the cached list. found is false on a miss.
	Get(ctx context.Context, storyID string) (comments []model.Comment, found bool, err error)

	// Version returns the story's write counter. Read it before loading the
	// list from the database and pass it to Set.
	Version(ctx context.Context, storyID string) (int64, error)

	// Set stores the list with the cache TTL. It returns ErrThreadChanged and
	// stores nothing when the story was invalidated after version was read.
	Set(ctx context.Context, storyID string, version int64, comments []model.Comment) error

	// Invalidate drops the cached list and bumps the version, so a read that
	// started before the write cannot fill the cache afterwards.
	Invalidate(ctx context.Context, storyID string) error
}

// ErrThreadChanged reports a Set skipped because the story was written meanwhile.
var ErrThreadChanged = errors.New("thread changed since version was read")

// RedisThreadCache implements ThreadCache with one JSON string per story.
type RedisThreadCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewThreadCache creates a ThreadCache backed by Redis.
func NewThreadCache(client *redis.Client, ttl time.Duration) ThreadCache {
	if ttl <= 0 {
		ttl = DefaultThreadCacheTTL
	}
	return &RedisThreadCache{client: client, ttl: ttl, log: zap.L().Named("thread_cache")}
}

func threadKey(storyID string) string {
	return ThreadCachePrefix + storyID
}

func versionKey(storyID string) string {
	return ThreadVersionPrefix + storyID
}

func (c *RedisThreadCache) Version(ctx context.Context, storyID string) (int64, error) {
	v, err := c.client.Get(ctx, versionKey(storyID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get thread version: %w", err)
	}
	return v, nil
}

func (c *RedisThreadCache) Get(ctx context.Context, storyID string) ([]model.Comment, bool, error) {
	start := time.Now()
	raw, err := c.client.Get(ctx, threadKey(storyID)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.log.Debug("miss", zap.String("story_id", storyID))
		return nil, false, nil
	}
	if err != nil {
		c.log.Warn("get failed", zap.String("story_id", storyID), zap.Error(err))
		return nil, false, fmt.Errorf("get thread cache: %w", err)
	}

	var comments []model.Comment
	if err := json.Unmarshal(raw, &comments); err != nil {
		// A corrupt entry is dropped and treated as a miss.
		c.log.Warn("corrupt entry", zap.String("story_id", storyID), zap.Error(err))
		_ = c.client.Del(ctx, threadKey(storyID)).Err()
		return nil, false, nil
	}

	for i := range comments {
		comments[i].Replies = nil
	}

	c.log.Debug("hit",
		zap.String("story_id", storyID),
		zap.Int("comments", len(comments)),
		zap.Duration("duration", time.Since(start)))
	return comments, true, nil
}

func (c *RedisThreadCache) Set(ctx context.Context, storyID string, version int64, comments []model.Comment) error {
	flat := make([]model.Comment, len(comments))
	for i, cm := range comments {
		cm.Replies = nil
		flat[i] = cm
	}

	raw, err := json.Marshal(flat)
	if err != nil {
		return fmt.Errorf("marshal thread: %w", err)
	}
	// WATCH makes the EXEC fail if Invalidate bumps the version between the
	// check and the write.
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey(storyID)).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return ErrThreadChanged
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, threadKey(storyID), raw, c.ttl)
			return nil
		})
		return err
	}, versionKey(storyID))

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrThreadChanged), errors.Is(err, redis.TxFailedErr):
		c.log.Debug("stale fill skipped", zap.String("story_id", storyID), zap.Int64("version", version))
		return ErrThreadChanged
	default:
		c.log.Warn("set failed", zap.String("story_id", storyID), zap.Error(err))
		return fmt.Errorf("set thread cache: %w", err)
	}
}

func (c *RedisThreadCache) Invalidate(ctx context.Context, storyID string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(storyID))
		pipe.Del(ctx, threadKey(storyID))
		return nil
	})
	if err != nil {
		c.log.Warn("invalidate failed", zap.String("story_id", storyID), zap.Error(err))
		return fmt.Errorf("invalidate thread cache: %w", err)
	}
	return nil
}
