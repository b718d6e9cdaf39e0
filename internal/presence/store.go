package presence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// TypingTTL is how long a typing marker lives without a refresh. It also
// covers clients that vanish without sending stopTyping.
const TypingTTL = 5 * time.Second

// Store keeps all transient per-user state in Redis: online membership, the
// delivery-channel binding, typing markers and unread counters. Nothing here
// is durable; everything is reconstructible or safely lost.
//
// Keyspace under the configured prefix:
//
//	<p>:online              set of online user ids
//	<p>:channel:<user>      current delivery channel id
//	<p>:typing:<conv>:<user>  marker, expires after TypingTTL
//	<p>:unread:<user>:<conv>  integer counter
type Store struct {
	rdb    *redis.Client
	prefix string
}

func NewStore(rdb *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "chat"
	}
	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) onlineKey() string { return s.prefix + ":online" }

func (s *Store) channelKey(userID string) string {
	return fmt.Sprintf("%s:channel:%s", s.prefix, userID)
}

func (s *Store) typingKey(conversationID, userID string) string {
	return fmt.Sprintf("%s:typing:%s:%s", s.prefix, conversationID, userID)
}

func (s *Store) unreadKey(userID, conversationID string) string {
	return fmt.Sprintf("%s:unread:%s:%s", s.prefix, userID, conversationID)
}

// AddOnline records the user as online and binds their current delivery
// channel (last writer wins on the binding).
func (s *Store) AddOnline(ctx context.Context, userID, channelID string) error {
	pipe := s.rdb.TxPipeline()
	pipe.SAdd(ctx, s.onlineKey(), userID)
	pipe.Set(ctx, s.channelKey(userID), channelID, 0)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) RemoveOnline(ctx context.Context, userID string) error {
	pipe := s.rdb.TxPipeline()
	pipe.SRem(ctx, s.onlineKey(), userID)
	pipe.Del(ctx, s.channelKey(userID))
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) IsOnline(ctx context.Context, userID string) (bool, error) {
	return s.rdb.SIsMember(ctx, s.onlineKey(), userID).Result()
}

func (s *Store) OnlineCount(ctx context.Context) (int64, error) {
	return s.rdb.SCard(ctx, s.onlineKey()).Result()
}

// SetTyping marks the user as typing in the conversation; the marker expires
// on its own after TypingTTL.
func (s *Store) SetTyping(ctx context.Context, conversationID, userID string) error {
	return s.rdb.Set(ctx, s.typingKey(conversationID, userID), "1", TypingTTL).Err()
}

// RemoveTyping clears the marker early; removing an absent marker is a no-op.
func (s *Store) RemoveTyping(ctx context.Context, conversationID, userID string) error {
	return s.rdb.Del(ctx, s.typingKey(conversationID, userID)).Err()
}

func (s *Store) IsTyping(ctx context.Context, conversationID, userID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.typingKey(conversationID, userID)).Result()
	return n > 0, err
}

// IncrementUnread atomically bumps the counter and returns the new value.
func (s *Store) IncrementUnread(ctx context.Context, userID, conversationID string) (int64, error) {
	return s.rdb.Incr(ctx, s.unreadKey(userID, conversationID)).Result()
}

// DecrementUnread drops the counter by one, clamped at zero: a decrement past
// zero deletes the key and reports zero.
func (s *Store) DecrementUnread(ctx context.Context, userID, conversationID string) (int64, error) {
	key := s.unreadKey(userID, conversationID)
	n, err := s.rdb.Decr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		if n < 0 {
			_ = s.rdb.Del(ctx, key).Err()
		}
		return 0, nil
	}
	return n, nil
}

func (s *Store) ResetUnread(ctx context.Context, userID, conversationID string) error {
	return s.rdb.Del(ctx, s.unreadKey(userID, conversationID)).Err()
}

func (s *Store) GetUnread(ctx context.Context, userID, conversationID string) (int64, error) {
	val, err := s.rdb.Get(ctx, s.unreadKey(userID, conversationID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}

// GetAllUnread returns every non-zero counter for the user keyed by
// conversation id.
func (s *Store) GetAllUnread(ctx context.Context, userID string) (map[string]int64, error) {
	pattern := fmt.Sprintf("%s:unread:%s:*", s.prefix, userID)
	keyPrefix := fmt.Sprintf("%s:unread:%s:", s.prefix, userID)

	out := make(map[string]int64)
	iter := s.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		val, err := s.rdb.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil || n <= 0 {
			continue
		}
		out[key[len(keyPrefix):]] = n
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
