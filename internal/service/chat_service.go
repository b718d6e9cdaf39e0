package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/Mohammad-Harkous/chat-app-backend/internal/apperr"
	"github.com/Mohammad-Harkous/chat-app-backend/internal/models"
	"github.com/Mohammad-Harkous/chat-app-backend/internal/repository"
	"github.com/Mohammad-Harkous/chat-app-backend/internal/ws"
)

// PresenceStore is the slice of the ephemeral store the service needs. Every
// call on it may fail without failing the surrounding operation.
type PresenceStore interface {
	IsOnline(ctx context.Context, userID string) (bool, error)
	OnlineCount(ctx context.Context) (int64, error)
	IncrementUnread(ctx context.Context, userID, conversationID string) (int64, error)
	DecrementUnread(ctx context.Context, userID, conversationID string) (int64, error)
	ResetUnread(ctx context.Context, userID, conversationID string) error
	GetUnread(ctx context.Context, userID, conversationID string) (int64, error)
	GetAllUnread(ctx context.Context, userID string) (map[string]int64, error)
}

// MessageCache accelerates history reads; it is never authoritative.
type MessageCache interface {
	Put(ctx context.Context, conversationID string, msg *models.Message) error
	Get(ctx context.Context, conversationID string, limit int) ([]*models.Message, error)
	Invalidate(ctx context.Context, conversationID string) error
}

// Notifier is the narrow fan-out capability the gateway exposes. Depending on
// this interface rather than the hub keeps the gateway/service dependency
// one-directional.
type Notifier interface {
	EmitToUser(userID, event string, payload any)
}

// EventPublisher emits integration events; implementations must never fail
// the caller.
type EventPublisher interface {
	MessageSent(ctx context.Context, msg *models.Message)
	ConversationDeleted(ctx context.Context, conversationID string)
}

// ChatService orchestrates conversation lifecycle, message flow, read
// receipts and unread bookkeeping across the durable store, the ephemeral
// store, the message cache and the gateway.
type ChatService struct {
	convs    repository.ConversationRepository
	msgs     repository.MessageRepository
	users    repository.UserRepository
	presence PresenceStore
	cache    MessageCache
	notifier Notifier
	events   EventPublisher
	log      *zap.SugaredLogger
}

func NewChatService(
	convs repository.ConversationRepository,
	msgs repository.MessageRepository,
	users repository.UserRepository,
	presence PresenceStore,
	cache MessageCache,
	notifier Notifier,
	events EventPublisher,
	log *zap.SugaredLogger,
) *ChatService {
	return &ChatService{
		convs:    convs,
		msgs:     msgs,
		users:    users,
		presence: presence,
		cache:    cache,
		notifier: notifier,
		events:   events,
		log:      log,
	}
}

type messagePayload struct {
	Message *models.Message `json:"message"`
}

type messageReadPayload struct {
	MessageID string `json:"messageId"`
}

type messagesReadPayload struct {
	ConversationID string `json:"conversationId"`
}

// UnreadCounts is the aggregate unread projection for one user.
type UnreadCounts struct {
	Conversations map[string]int64 `json:"conversations"`
	Total         int64            `json:"total"`
}

// DeleteResult reports the outcome of a soft delete.
type DeleteResult struct {
	AlreadyDeleted bool `json:"alreadyDeleted"`
}

// MarkConversationReadResult reports how many messages a batch read flipped.
type MarkConversationReadResult struct {
	MarkedCount int64 `json:"markedCount"`
}

// CreateOrGetConversation returns the unique conversation between the two
// users, creating it on first contact. Only confirmed friends may converse.
// If the caller had soft-deleted an existing conversation it is restored for
// the caller only.
func (s *ChatService) CreateOrGetConversation(ctx context.Context, userID, otherID string) (*models.Conversation, error) {
	if userID == otherID {
		return nil, apperr.PolicyViolation("cannot start a conversation with yourself")
	}
	friends, err := s.users.AreFriends(ctx, userID, otherID)
	if err != nil {
		return nil, apperr.Unavailable("friendship lookup failed", err)
	}
	if !friends {
		return nil, apperr.PolicyViolation("users are not friends")
	}

	conv, err := s.convs.FindByParticipants(ctx, userID, otherID)
	if err == nil {
		if conv.DeletedFor(userID) {
			if err := s.convs.RemoveDeletedBy(ctx, conv.ID.Hex(), userID); err != nil {
				return nil, apperr.Unavailable("conversation restore failed", err)
			}
			conv.DeletedBy = without(conv.DeletedBy, userID)
		}
		return conv, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Unavailable("conversation lookup failed", err)
	}

	created, err := s.convs.Create(ctx, &models.Conversation{
		Participant1ID: userID,
		Participant2ID: otherID,
	})
	if err != nil {
		return nil, apperr.Unavailable("conversation create failed", err)
	}
	return created, nil
}

// ListConversations returns the caller's visible conversations, most recent
// activity first, enriched with the other participant's profile and the
// caller's unread count.
func (s *ChatService) ListConversations(ctx context.Context, userID string) ([]*models.ConversationSummary, error) {
	convs, err := s.convs.ListForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Unavailable("conversation list failed", err)
	}

	otherIDs := make([]string, 0, len(convs))
	for _, c := range convs {
		otherIDs = append(otherIDs, c.OtherParticipant(userID))
	}
	profiles, err := s.users.GetManyByIDs(ctx, otherIDs)
	if err != nil {
		return nil, apperr.Unavailable("profile lookup failed", err)
	}

	unread, err := s.presence.GetAllUnread(ctx, userID)
	if err != nil {
		s.log.Warnw("unread counts degraded", "user", userID, "err", err)
		unread = nil
	}

	out := make([]*models.ConversationSummary, 0, len(convs))
	for _, c := range convs {
		summary := &models.ConversationSummary{
			Conversation: c,
			UnreadCount:  unread[c.ID.Hex()],
		}
		if u, ok := profiles[c.OtherParticipant(userID)]; ok {
			summary.OtherUser = u.Public()
		}
		out = append(out, summary)
	}
	return out, nil
}

// GetConversation loads a conversation and enforces participancy.
func (s *ChatService) GetConversation(ctx context.Context, conversationID, userID string) (*models.Conversation, error) {
	conv, err := s.convs.GetByID(ctx, conversationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("conversation not found")
	}
	if err != nil {
		return nil, apperr.Unavailable("conversation lookup failed", err)
	}
	if !conv.HasParticipant(userID) {
		return nil, apperr.Forbidden("not a participant of this conversation")
	}
	return conv, nil
}

// SendMessage persists a message, maintains the cache and unread projection,
// and pushes a live messageReceived to the recipient when connected. Sending
// into a conversation the recipient had deleted restores it for them: new
// activity revives visibility.
func (s *ChatService) SendMessage(ctx context.Context, senderID, conversationID, content string) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperr.InvalidArgument("message content must not be empty")
	}
	if utf8.RuneCountInString(content) > models.MaxMessageContentLength {
		return nil, apperr.InvalidArgument("message content too long")
	}

	conv, err := s.GetConversation(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}
	recipientID := conv.OtherParticipant(senderID)

	if conv.DeletedFor(recipientID) {
		if err := s.RestoreConversation(ctx, conv.ID.Hex(), recipientID); err != nil {
			return nil, err
		}
	}

	msg, err := s.msgs.Insert(ctx, &models.Message{
		ConversationID: conv.ID.Hex(),
		SenderID:       senderID,
		Content:        content,
		IsRead:         false,
	})
	if err != nil {
		return nil, apperr.Unavailable("message insert failed", err)
	}

	// a brief staleness window on last_message_at is acceptable
	if err := s.convs.SetLastMessageAt(ctx, conv.ID.Hex(), msg.CreatedAt); err != nil {
		s.log.Warnw("last_message_at update failed", "conversation", conv.ID.Hex(), "err", err)
	}

	if sender, err := s.users.GetByID(ctx, senderID); err != nil {
		s.log.Warnw("sender profile degraded", "user", senderID, "err", err)
	} else {
		msg.Sender = sender.Public()
	}

	if err := s.cache.Put(ctx, conv.ID.Hex(), msg); err != nil {
		s.log.Warnw("message cache degraded", "conversation", conv.ID.Hex(), "err", err)
	}
	if _, err := s.presence.IncrementUnread(ctx, recipientID, conv.ID.Hex()); err != nil {
		s.log.Warnw("unread increment degraded", "user", recipientID, "err", err)
	}

	s.notifier.EmitToUser(recipientID, ws.EventMessageReceived, messagePayload{Message: msg})
	s.events.MessageSent(ctx, msg)
	return msg, nil
}

// GetMessages returns up to limit recent messages, oldest first. The cache is
// consulted first; a miss reads the durable store and backfills entry by
// entry, preserving the write-through shape.
func (s *ChatService) GetMessages(ctx context.Context, conversationID, userID string, limit int) ([]*models.Message, error) {
	conv, err := s.GetConversation(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	cached, err := s.cache.Get(ctx, conv.ID.Hex(), limit)
	if err != nil {
		s.log.Warnw("message cache degraded", "conversation", conv.ID.Hex(), "err", err)
	} else if len(cached) > 0 {
		return cached, nil
	}

	msgs, err := s.msgs.ListRecent(ctx, conv.ID.Hex(), limit)
	if err != nil {
		return nil, apperr.Unavailable("message list failed", err)
	}

	profiles, err := s.users.GetManyByIDs(ctx, []string{conv.Participant1ID, conv.Participant2ID})
	if err != nil {
		s.log.Warnw("sender profiles degraded", "conversation", conv.ID.Hex(), "err", err)
		profiles = nil
	}
	for _, m := range msgs {
		if u, ok := profiles[m.SenderID]; ok {
			m.Sender = u.Public()
		}
		if err := s.cache.Put(ctx, conv.ID.Hex(), m); err != nil {
			s.log.Warnw("cache backfill degraded", "conversation", conv.ID.Hex(), "err", err)
			break
		}
	}
	return msgs, nil
}

// MarkMessageAsRead flips one message's read flag. A sender cannot
// acknowledge their own message. The caller's unread counter for the
// conversation drops by one on the first flip; repeated calls re-emit the
// receipt without touching the counter.
func (s *ChatService) MarkMessageAsRead(ctx context.Context, messageID, userID string) error {
	msg, err := s.msgs.GetByID(ctx, messageID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("message not found")
	}
	if err != nil {
		return apperr.Unavailable("message lookup failed", err)
	}
	if msg.SenderID == userID {
		return apperr.PolicyViolation("cannot mark own message as read")
	}
	conv, err := s.GetConversation(ctx, msg.ConversationID, userID)
	if err != nil {
		return err
	}

	if !msg.IsRead {
		if err := s.msgs.MarkRead(ctx, msg.ID.Hex()); err != nil {
			return apperr.Unavailable("message update failed", err)
		}
		if _, err := s.presence.DecrementUnread(ctx, userID, conv.ID.Hex()); err != nil {
			s.log.Warnw("unread decrement degraded", "user", userID, "err", err)
		}
	}

	s.notifier.EmitToUser(msg.SenderID, ws.EventMessageRead, messageReadPayload{MessageID: msg.ID.Hex()})
	return nil
}

// MarkConversationAsRead flips every unread message from the other
// participant in one batch, emits one messageRead per flipped message plus an
// aggregate messagesRead, and resets the caller's counter.
func (s *ChatService) MarkConversationAsRead(ctx context.Context, conversationID, userID string) (*MarkConversationReadResult, error) {
	conv, err := s.GetConversation(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	otherID := conv.OtherParticipant(userID)

	unread, err := s.msgs.FindUnreadBySender(ctx, conv.ID.Hex(), otherID)
	if err != nil {
		return nil, apperr.Unavailable("unread lookup failed", err)
	}

	ids := make([]string, 0, len(unread))
	for _, m := range unread {
		ids = append(ids, m.ID.Hex())
	}
	marked, err := s.msgs.MarkManyRead(ctx, ids)
	if err != nil {
		return nil, apperr.Unavailable("batch read update failed", err)
	}

	// per-message receipts keep client-side reconciliation granular
	for _, m := range unread {
		s.notifier.EmitToUser(otherID, ws.EventMessageRead, messageReadPayload{MessageID: m.ID.Hex()})
	}
	s.notifier.EmitToUser(otherID, ws.EventMessagesRead, messagesReadPayload{ConversationID: conv.ID.Hex()})

	if err := s.presence.ResetUnread(ctx, userID, conv.ID.Hex()); err != nil {
		s.log.Warnw("unread reset degraded", "user", userID, "err", err)
	}
	return &MarkConversationReadResult{MarkedCount: marked}, nil
}

// GetUnreadCounts returns the caller's per-conversation unread projection
// plus the grand total. Ephemeral-store loss degrades to empty, never errors.
func (s *ChatService) GetUnreadCounts(ctx context.Context, userID string) (*UnreadCounts, error) {
	counts, err := s.presence.GetAllUnread(ctx, userID)
	if err != nil {
		s.log.Warnw("unread counts degraded", "user", userID, "err", err)
		counts = map[string]int64{}
	}
	out := &UnreadCounts{Conversations: counts}
	for _, n := range counts {
		out.Total += n
	}
	return out, nil
}

// GetConversationUnreadCount returns the caller's unread count for one
// conversation, degrading to zero on ephemeral-store loss.
func (s *ChatService) GetConversationUnreadCount(ctx context.Context, userID, conversationID string) (int64, error) {
	conv, err := s.GetConversation(ctx, conversationID, userID)
	if err != nil {
		return 0, err
	}
	n, err := s.presence.GetUnread(ctx, userID, conv.ID.Hex())
	if err != nil {
		s.log.Warnw("unread count degraded", "user", userID, "err", err)
		return 0, nil
	}
	return n, nil
}

// DeleteConversation hides the conversation from the caller's view. Durable
// messages survive; only once both participants have deleted is the cached
// history dropped. Repeating the call is not an error.
func (s *ChatService) DeleteConversation(ctx context.Context, conversationID, userID string) (*DeleteResult, error) {
	conv, err := s.GetConversation(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if conv.DeletedFor(userID) {
		return &DeleteResult{AlreadyDeleted: true}, nil
	}
	if err := s.convs.AddDeletedBy(ctx, conv.ID.Hex(), userID); err != nil {
		return nil, apperr.Unavailable("conversation delete failed", err)
	}
	if !conv.DeletedFor(userID) {
		conv.DeletedBy = append(conv.DeletedBy, userID)
	}
	if err := s.presence.ResetUnread(ctx, userID, conv.ID.Hex()); err != nil {
		s.log.Warnw("unread reset degraded", "user", userID, "err", err)
	}

	if conv.DeletedByBoth() {
		// nobody left who can see the history
		if err := s.cache.Invalidate(ctx, conv.ID.Hex()); err != nil {
			s.log.Warnw("cache invalidate degraded", "conversation", conv.ID.Hex(), "err", err)
		}
		s.events.ConversationDeleted(ctx, conv.ID.Hex())
	}
	return &DeleteResult{}, nil
}

// IsUserOnline reports live presence, degrading to offline when the
// ephemeral store is unreachable.
func (s *ChatService) IsUserOnline(ctx context.Context, userID string) bool {
	online, err := s.presence.IsOnline(ctx, userID)
	if err != nil {
		s.log.Warnw("presence read degraded", "user", userID, "err", err)
		return false
	}
	return online
}

// OnlineCount reports how many users currently hold a live connection,
// degrading to zero on ephemeral-store loss.
func (s *ChatService) OnlineCount(ctx context.Context) int64 {
	n, err := s.presence.OnlineCount(ctx)
	if err != nil {
		s.log.Warnw("presence count degraded", "err", err)
		return 0
	}
	return n
}

// RestoreConversation removes the user from deletedBy; absent entries are a
// no-op. Used by SendMessage when incoming activity revives visibility.
func (s *ChatService) RestoreConversation(ctx context.Context, conversationID, userID string) error {
	if err := s.convs.RemoveDeletedBy(ctx, conversationID, userID); err != nil {
		return apperr.Unavailable("conversation restore failed", err)
	}
	return nil
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
