package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Mohammad-Harkous/chat-app-backend/internal/models"
)

// ErrNotFound is returned for any miss; callers translate it into their own
// taxonomy.
var ErrNotFound = errors.New("not found")

type ConversationRepository interface {
	Create(ctx context.Context, conv *models.Conversation) (*models.Conversation, error)
	GetByID(ctx context.Context, id string) (*models.Conversation, error)
	// FindByParticipants checks both orderings of the pair.
	FindByParticipants(ctx context.Context, userA, userB string) (*models.Conversation, error)
	// ListForUser returns conversations where userID participates and has not
	// soft-deleted, most recent activity first (never-active ones last).
	ListForUser(ctx context.Context, userID string) ([]*models.Conversation, error)
	SetLastMessageAt(ctx context.Context, id string, at time.Time) error
	AddDeletedBy(ctx context.Context, id, userID string) error
	RemoveDeletedBy(ctx context.Context, id, userID string) error
}

type MessageRepository interface {
	Insert(ctx context.Context, msg *models.Message) (*models.Message, error)
	GetByID(ctx context.Context, id string) (*models.Message, error)
	// ListRecent returns the most recent limit messages, oldest first.
	ListRecent(ctx context.Context, conversationID string, limit int) ([]*models.Message, error)
	MarkRead(ctx context.Context, id string) error
	// FindUnreadBySender returns unread messages in the conversation authored
	// by senderID, oldest first.
	FindUnreadBySender(ctx context.Context, conversationID, senderID string) ([]*models.Message, error)
	MarkManyRead(ctx context.Context, ids []string) (int64, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetManyByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
	// AreFriends reports whether an accepted friendship exists between the two
	// users, in either order.
	AreFriends(ctx context.Context, userA, userB string) (bool, error)
}
