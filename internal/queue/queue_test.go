package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestEvent_MapRoundTrip(t *testing.T) {
	event := NewCommentCreatedEvent("g1", "s1", "c2", "c1", "u2")

	values, err := event.ToMap()
	require.NoError(t, err)
	assert.Equal(t, EventCommentCreated, values["type"])

	parsed, err := ParseEvent(values)
	require.NoError(t, err)
	assert.Equal(t, event, parsed)
}

func TestParseEvent_Invalid(t *testing.T) {
	_, err := ParseEvent(map[string]interface{}{})
	assert.Error(t, err)

	_, err = ParseEvent(map[string]interface{}{"data": "{"})
	assert.Error(t, err)
}

func TestPublishReadAck(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	pub := NewPublisher(client)
	con := NewConsumer(client)

	require.NoError(t, con.EnsureGroup(ctx, StreamReunion, ConsumerGroupReunion))
	// Second call hits BUSYGROUP and is not an error.
	require.NoError(t, con.EnsureGroup(ctx, StreamReunion, ConsumerGroupReunion))

	_, err := pub.Publish(ctx, StreamReunion, NewCommentLikedEvent("g1", "s1", "c1", "u9"))
	require.NoError(t, err)

	msgs, err := con.Read(ctx, StreamReunion, ConsumerGroupReunion, "w-1", 10, 100*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, EventCommentLiked, msgs[0].Event.Type)
	assert.Equal(t, "u9", msgs[0].Event.ActorID)

	pending, next, err := con.ReadPending(ctx, StreamReunion, ConsumerGroupReunion, "w-1", "0", 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, msgs[0].ID, pending[0].ID)
	assert.Equal(t, msgs[0].ID, next)

	require.NoError(t, con.Ack(ctx, StreamReunion, ConsumerGroupReunion, msgs[0].ID))

	pending, next, err = con.ReadPending(ctx, StreamReunion, ConsumerGroupReunion, "w-1", "0", 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Empty(t, next)
}

func TestRead_AcksMalformedMessages(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	con := NewConsumer(client)

	require.NoError(t, con.EnsureGroup(ctx, StreamReunion, ConsumerGroupReunion))
	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamReunion,
		Values: map[string]interface{}{"type": "bogus"},
	}).Err())

	msgs, err := con.Read(ctx, StreamReunion, ConsumerGroupReunion, "w-1", 10, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	pending, err := client.XPending(ctx, StreamReunion, ConsumerGroupReunion).Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
}

func TestReadPending_CursorPassesMalformedBatch(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	pub := NewPublisher(client)
	con := NewConsumer(client)
	require.NoError(t, con.EnsureGroup(ctx, StreamReunion, ConsumerGroupReunion))

	for i := 0; i < 2; i++ {
		require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{
			Stream: StreamReunion,
			Values: map[string]interface{}{"type": "bogus"},
		}).Err())
	}
	_, err := pub.Publish(ctx, StreamReunion, NewCommentLikedEvent("g1", "s1", "c1", "u9"))
	require.NoError(t, err)

	// Deliver everything to w-1 through the raw client so the malformed
	// entries are still pending.
	require.NoError(t, client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    ConsumerGroupReunion,
		Consumer: "w-1",
		Streams:  []string{StreamReunion, ">"},
		Count:    10,
		Block:    -1,
	}).Err())

	first, next, err := con.ReadPending(ctx, StreamReunion, ConsumerGroupReunion, "w-1", "0", 2)
	require.NoError(t, err)
	assert.Empty(t, first)
	require.NotEmpty(t, next)

	second, next, err := con.ReadPending(ctx, StreamReunion, ConsumerGroupReunion, "w-1", next, 2)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "u9", second[0].Event.ActorID)
	assert.Equal(t, second[0].ID, next)

	rest, next, err := con.ReadPending(ctx, StreamReunion, ConsumerGroupReunion, "w-1", next, 2)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Empty(t, next)
}
