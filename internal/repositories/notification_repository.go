package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Bijoy-Prasad-Modi/Twitter-Clone/internal/models"
)

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
	GetByRecipient(ctx context.Context, recipientID primitive.ObjectID) ([]models.Notification, error)
	MarkAllRead(ctx context.Context, recipientID primitive.ObjectID) error
	DeleteMatching(ctx context.Context, from, to primitive.ObjectID, notifType string) error
	DeleteAllForRecipient(ctx context.Context, recipientID primitive.ObjectID) (int64, error)
}

type mongoNotificationRepository struct {
	collection *mongo.Collection
}

// NewMongoNotificationRepository creates a new NotificationRepository backed by MongoDB
func NewMongoNotificationRepository(db *mongo.Database) NotificationRepository {
	return &mongoNotificationRepository{collection: db.Collection("notifications")}
}

func (r *mongoNotificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	notification.ID = primitive.NewObjectID()
	notification.CreatedAt = time.Now()
	notification.Read = false
	_, err := r.collection.InsertOne(ctx, notification)
	return err
}

// GetByRecipient returns all notifications addressed to a recipient, newest first
func (r *mongoNotificationRepository) GetByRecipient(ctx context.Context, recipientID primitive.ObjectID) ([]models.Notification, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"to": recipientID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkAllRead flips every unread notification for the recipient to read.
// Idempotent: concurrent invocations converge on the same state.
func (r *mongoNotificationRepository) MarkAllRead(ctx context.Context, recipientID primitive.ObjectID) error {
	_, err := r.collection.UpdateMany(ctx,
		bson.M{"to": recipientID, "read": false},
		bson.M{"$set": bson.M{"read": true}})
	return err
}

// DeleteMatching removes a single notification matching (from, to, type).
// Best-effort: a missing match is not an error.
func (r *mongoNotificationRepository) DeleteMatching(ctx context.Context, from, to primitive.ObjectID, notifType string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"from": from, "to": to, "type": notifType})
	return err
}

// DeleteAllForRecipient removes every notification for the recipient and
// returns how many were deleted
func (r *mongoNotificationRepository) DeleteAllForRecipient(ctx context.Context, recipientID primitive.ObjectID) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"to": recipientID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
