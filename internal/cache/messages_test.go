package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Mohammad-Harkous/chat-app-backend/internal/models"
)

func newTestCache(t *testing.T) *MessageCache {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewMessageCache(rdb, "chat")
}

func snapshot(content string, at time.Time) *models.Message {
	return &models.Message{
		ID:             primitive.NewObjectID(),
		ConversationID: "conv-1",
		SenderID:       "u1",
		Content:        content,
		CreatedAt:      at,
		Sender:         &models.UserPublic{ID: "u1", Username: "alice"},
	}
}

func TestPutGetOrdering(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 5; i++ {
		require.NoError(t, c.Put(ctx, "conv-1", snapshot(fmt.Sprintf("msg-%d", i), base.Add(time.Duration(i)*time.Second))))
	}

	got, err := c.Get(ctx, "conv-1", 50)
	require.NoError(t, err)
	require.Len(t, got, 5)
	// oldest first
	for i, msg := range got {
		assert.Equal(t, fmt.Sprintf("msg-%d", i), msg.Content)
	}
	// sender snapshot survives the round trip
	assert.Equal(t, "alice", got[0].Sender.Username)
}

func TestTrimsToDepth(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < Depth+10; i++ {
		require.NoError(t, c.Put(ctx, "conv-1", snapshot(fmt.Sprintf("msg-%d", i), base.Add(time.Duration(i)*time.Second))))
	}

	got, err := c.Get(ctx, "conv-1", Depth)
	require.NoError(t, err)
	require.Len(t, got, Depth)
	// the 10 oldest fell off the end
	assert.Equal(t, "msg-10", got[0].Content)
	assert.Equal(t, fmt.Sprintf("msg-%d", Depth+9), got[len(got)-1].Content)
}

func TestGetLimit(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 10; i++ {
		require.NoError(t, c.Put(ctx, "conv-1", snapshot(fmt.Sprintf("msg-%d", i), base.Add(time.Duration(i)*time.Second))))
	}

	got, err := c.Get(ctx, "conv-1", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	// the 3 most recent, still oldest first
	assert.Equal(t, "msg-7", got[0].Content)
	assert.Equal(t, "msg-9", got[2].Content)
}

func TestMissReturnsEmpty(t *testing.T) {
	c := newTestCache(t)

	got, err := c.Get(context.Background(), "unknown", 50)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestInvalidate(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "conv-1", snapshot("hello", time.Now().UTC())))
	require.NoError(t, c.Invalidate(ctx, "conv-1"))

	got, err := c.Get(ctx, "conv-1", 50)
	require.NoError(t, err)
	assert.Empty(t, got)
}
