package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation binds exactly two participants. The pair is semantically
// unordered: either user may be stored as participant1, and lookups must
// check both orderings.
type Conversation struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Participant1ID string             `bson:"participant1_id" json:"participant1Id"`
	Participant2ID string             `bson:"participant2_id" json:"participant2Id"`
	LastMessageAt  *time.Time         `bson:"last_message_at,omitempty" json:"lastMessageAt,omitempty"`
	DeletedBy      []string           `bson:"deleted_by,omitempty" json:"-"`
	CreatedAt      time.Time          `bson:"created_at" json:"createdAt"`
}

func (c *Conversation) HasParticipant(userID string) bool {
	return c.Participant1ID == userID || c.Participant2ID == userID
}

// OtherParticipant returns the participant that is not userID. userID must be
// a participant.
func (c *Conversation) OtherParticipant(userID string) string {
	if c.Participant1ID == userID {
		return c.Participant2ID
	}
	return c.Participant1ID
}

// DeletedFor reports whether userID has soft-deleted this conversation from
// their own view.
func (c *Conversation) DeletedFor(userID string) bool {
	for _, id := range c.DeletedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// DeletedByBoth reports whether both participants have soft-deleted the
// conversation, at which point its cached history has no remaining audience.
func (c *Conversation) DeletedByBoth() bool {
	return c.DeletedFor(c.Participant1ID) && c.DeletedFor(c.Participant2ID)
}

// ConversationSummary is the listing shape: the conversation plus the other
// participant's public profile and the caller's unread count for it.
type ConversationSummary struct {
	*Conversation
	OtherUser   *UserPublic `json:"otherUser,omitempty"`
	UnreadCount int64       `json:"unreadCount"`
}
