package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Mohammad-Harkous/chat-app-backend/internal/models"
)

type mongoConversationRepo struct {
	coll *mongo.Collection
}

func NewConversationRepository(db *mongo.Database) ConversationRepository {
	return &mongoConversationRepo{coll: db.Collection(collConversations)}
}

func (r *mongoConversationRepo) Create(ctx context.Context, conv *models.Conversation) (*models.Conversation, error) {
	conv.CreatedAt = time.Now().UTC()
	res, err := r.coll.InsertOne(ctx, conv)
	if err != nil {
		return nil, err
	}
	conv.ID = res.InsertedID.(primitive.ObjectID)
	return conv, nil
}

func (r *mongoConversationRepo) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var conv models.Conversation
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *mongoConversationRepo) FindByParticipants(ctx context.Context, userA, userB string) (*models.Conversation, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"participant1_id": userA, "participant2_id": userB},
		bson.M{"participant1_id": userB, "participant2_id": userA},
	}}
	var conv models.Conversation
	err := r.coll.FindOne(ctx, filter).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *mongoConversationRepo) ListForUser(ctx context.Context, userID string) ([]*models.Conversation, error) {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"participant1_id": userID},
			bson.M{"participant2_id": userID},
		},
		"deleted_by": bson.M{"$ne": userID},
	}
	// descending sort places documents without last_message_at after the rest
	opts := options.Find().SetSort(bson.D{{Key: "last_message_at", Value: -1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*models.Conversation
	for cur.Next(ctx) {
		var conv models.Conversation
		if err := cur.Decode(&conv); err != nil {
			return nil, err
		}
		out = append(out, &conv)
	}
	return out, cur.Err()
}

func (r *mongoConversationRepo) SetLastMessageAt(ctx context.Context, id string, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	_, err = r.coll.UpdateByID(ctx, oid, bson.M{"$set": bson.M{"last_message_at": at.UTC()}})
	return err
}

func (r *mongoConversationRepo) AddDeletedBy(ctx context.Context, id, userID string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	// $addToSet keeps deleted_by duplicate-free
	_, err = r.coll.UpdateByID(ctx, oid, bson.M{"$addToSet": bson.M{"deleted_by": userID}})
	return err
}

func (r *mongoConversationRepo) RemoveDeletedBy(ctx context.Context, id, userID string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	_, err = r.coll.UpdateByID(ctx, oid, bson.M{"$pull": bson.M{"deleted_by": userID}})
	return err
}
