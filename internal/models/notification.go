package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification types
const (
	NotificationTypeFollow  = "follow"
	NotificationTypeLike    = "like"
	NotificationTypeComment = "comment"
)

// Notification represents a user notification stored in MongoDB.
// Created by the actor's action, owned by the recipient for read/delete.
// Post is a pointer so follow/like notifications omit the field instead
// of serializing a zero ObjectID.
type Notification struct {
	ID        primitive.ObjectID  `json:"_id,omitempty" bson:"_id,omitempty"`
	From      primitive.ObjectID  `json:"from" bson:"from"`
	To        primitive.ObjectID  `json:"to" bson:"to"`
	Type      string              `json:"type" bson:"type"` // follow, like, comment
	Content   string              `json:"content,omitempty" bson:"content,omitempty"`
	Post      *primitive.ObjectID `json:"post,omitempty" bson:"post,omitempty"`
	Read      bool                `json:"read" bson:"read"`
	CreatedAt time.Time           `json:"createdAt" bson:"createdAt"`
}

// NotificationView is a notification with the actor's display identity
// populated (username and avatar only)
type NotificationView struct {
	ID        primitive.ObjectID  `json:"_id"`
	Type      string              `json:"type"`
	From      UserCompact         `json:"from"`
	Content   string              `json:"content,omitempty"`
	Post      *primitive.ObjectID `json:"post,omitempty"`
	Read      bool                `json:"read"`
	CreatedAt time.Time           `json:"createdAt"`
}
