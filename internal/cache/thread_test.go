package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reunion_archive/internal/model"
)

func newTestCache(t *testing.T, ttl time.Duration) (ThreadCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewThreadCache(client, ttl), mr
}

func TestThreadCache_MissThenHit(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	_, found, err := c.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, found)

	name := "An"
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	in := []model.Comment{
		{ID: "c2", StoryID: "s1", ParentID: "c1", CreatedAt: now.Add(time.Hour), LikedBy: []string{"u1"}, LikeCount: 1},
		{ID: "c1", StoryID: "s1", ParentID: model.RootParentID, CreatedAt: now,
			Author: &model.UserSummary{ID: "u1", Username: "an", DisplayName: &name}},
	}
	require.NoError(t, c.Set(ctx, "s1", 0, in))

	got, found, err := c.Get(ctx, "s1")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, got, 2)
	assert.Equal(t, "c2", got[0].ID)
	assert.Equal(t, "c1", got[0].ParentID)
	assert.Equal(t, []string{"u1"}, []string(got[0].LikedBy))
	assert.True(t, now.Equal(got[1].CreatedAt))
	require.NotNil(t, got[1].Author)
	assert.Equal(t, "An", *got[1].Author.DisplayName)
}

func TestThreadCache_RepliesAreNotStored(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	child := &model.Comment{ID: "c2", ParentID: "c1"}
	require.NoError(t, c.Set(ctx, "s1", 0, []model.Comment{{ID: "c1", ParentID: model.RootParentID, Replies: []*model.Comment{child}}}))

	got, _, err := c.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got[0].Replies)
}

func TestThreadCache_Invalidate(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "s1", 0, []model.Comment{{ID: "c1"}}))
	assert.True(t, mr.Exists(threadKey("s1")))

	require.NoError(t, c.Invalidate(ctx, "s1"))
	assert.False(t, mr.Exists(threadKey("s1")))

	_, found, err := c.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestThreadCache_Expires(t *testing.T) {
	c, mr := newTestCache(t, 30*time.Second)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "s1", 0, []model.Comment{{ID: "c1"}}))
	assert.Equal(t, 30*time.Second, mr.TTL(threadKey("s1")))

	mr.FastForward(31 * time.Second)

	_, found, err := c.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestThreadCache_CorruptEntryIsAMiss(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	require.NoError(t, mr.Set(threadKey("s1"), "{not json"))

	_, found, err := c.Get(context.Background(), "s1")

	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, mr.Exists(threadKey("s1")))
}

func TestThreadCache_DefaultTTL(t *testing.T) {
	c, mr := newTestCache(t, 0)
	require.NoError(t, c.Set(context.Background(), "s1", 0, []model.Comment{{ID: "c1"}}))
	assert.Equal(t, DefaultThreadCacheTTL, mr.TTL(threadKey("s1")))
}

func TestThreadCache_InvalidateBumpsVersion(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	v, err := c.Version(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	require.NoError(t, c.Invalidate(ctx, "s1"))
	require.NoError(t, c.Invalidate(ctx, "s1"))

	v, err = c.Version(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestThreadCache_StaleFillIsSkipped(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	// A reader takes the version, then a write lands before it fills the cache.
	v, err := c.Version(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx, "s1"))

	err = c.Set(ctx, "s1", v, []model.Comment{{ID: "c1"}})
	assert.ErrorIs(t, err, ErrThreadChanged)
	assert.False(t, mr.Exists(threadKey("s1")))

	// A reader that started after the write may fill it.
	v, err = c.Version(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "s1", v, []model.Comment{{ID: "c1"}, {ID: "c2"}}))

	got, found, err := c.Get(ctx, "s1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, got, 2)
}
