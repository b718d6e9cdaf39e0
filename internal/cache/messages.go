package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Mohammad-Harkous/chat-app-backend/internal/models"
)

// Depth is the fixed number of recent messages retained per conversation.
const Depth = 50

// MessageCache is a rolling per-conversation cache of recent message
// snapshots, kept in a Redis list newest-first. It accelerates history reads
// only; isRead flags and existence checks always go to the durable store.
type MessageCache struct {
	rdb    *redis.Client
	prefix string
}

func NewMessageCache(rdb *redis.Client, prefix string) *MessageCache {
	if prefix == "" {
		prefix = "chat"
	}
	return &MessageCache{rdb: rdb, prefix: prefix}
}

func (c *MessageCache) key(conversationID string) string {
	return fmt.Sprintf("%s:messages:%s", c.prefix, conversationID)
}

// Put prepends a snapshot and trims the list back to Depth.
func (c *MessageCache) Put(ctx context.Context, conversationID string, msg *models.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	pipe := c.rdb.TxPipeline()
	pipe.LPush(ctx, c.key(conversationID), data)
	pipe.LTrim(ctx, c.key(conversationID), 0, Depth-1)
	_, err = pipe.Exec(ctx)
	return err
}

// Get returns up to limit of the most recent snapshots, oldest first. An
// empty slice means a miss (or an empty conversation; callers treat both the
// same and fall through to the durable store).
func (c *MessageCache) Get(ctx context.Context, conversationID string, limit int) ([]*models.Message, error) {
	if limit <= 0 || limit > Depth {
		limit = Depth
	}
	raw, err := c.rdb.LRange(ctx, c.key(conversationID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*models.Message, 0, len(raw))
	// list is newest-first; walk backwards for chronological order
	for i := len(raw) - 1; i >= 0; i-- {
		var msg models.Message
		if err := json.Unmarshal([]byte(raw[i]), &msg); err != nil {
			continue
		}
		out = append(out, &msg)
	}
	return out, nil
}

// Invalidate drops the whole cached list for a conversation.
func (c *MessageCache) Invalidate(ctx context.Context, conversationID string) error {
	return c.rdb.Del(ctx, c.key(conversationID)).Err()
}
