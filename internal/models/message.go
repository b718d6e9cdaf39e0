package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxMessageContentLength bounds message content in runes.
const MaxMessageContentLength = 2000

// Message content is immutable after creation; only IsRead ever flips.
type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID string             `bson:"conversation_id" json:"conversationId"`
	SenderID       string             `bson:"sender_id" json:"senderId"`
	Content        string             `bson:"content" json:"content"`
	IsRead         bool               `bson:"is_read" json:"isRead"`
	CreatedAt      time.Time          `bson:"created_at" json:"createdAt"`

	// Sender is a denormalized profile attached on the way out; it is not
	// persisted with the message.
	Sender *UserPublic `bson:"-" json:"sender,omitempty"`
}
