package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username  string             `bson:"username" json:"username"`
	Email     string             `bson:"email" json:"-"`
	AvatarURL string             `bson:"avatar_url,omitempty" json:"avatarUrl,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}

// UserPublic is the profile projection embedded in messages and conversation
// listings; it never carries credentials or contact details.
type UserPublic struct {
	ID        string `bson:"id" json:"id"`
	Username  string `bson:"username" json:"username"`
	AvatarURL string `bson:"avatar_url,omitempty" json:"avatarUrl,omitempty"`
}

func (u *User) Public() *UserPublic {
	return &UserPublic{
		ID:        u.ID.Hex(),
		Username:  u.Username,
		AvatarURL: u.AvatarURL,
	}
}

// Friendship rows are written by the friend-request workflow, which lives
// outside this service; only accepted rows matter here.
type Friendship struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserAID   string             `bson:"user_a_id" json:"userAId"`
	UserBID   string             `bson:"user_b_id" json:"userBId"`
	Status    string             `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}

const FriendshipAccepted = "accepted"
