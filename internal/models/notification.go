package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	NotificationTypeLike    = "like"
	NotificationTypeComment = "comment"
	NotificationTypeAlert   = "alert"
	NotificationTypeSystem  = "system"
)

type Notification struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	RecipientID primitive.ObjectID  `bson:"recipient_id" json:"recipient_id"`
	ActorID     *primitive.ObjectID `bson:"actor_id,omitempty" json:"actor_id,omitempty"`
	Type        string              `bson:"type" json:"type"`
	Title       string              `bson:"title" json:"title"`
	Message     string              `bson:"message" json:"message"`
	PostID      *primitive.ObjectID `bson:"post_id,omitempty" json:"post_id,omitempty"`
	CommentID   *primitive.ObjectID `bson:"comment_id,omitempty" json:"comment_id,omitempty"`
	AlertID     *primitive.ObjectID `bson:"alert_id,omitempty" json:"alert_id,omitempty"`
	ImageURL    string              `bson:"image_url,omitempty" json:"image_url,omitempty"`
	IsRead      bool                `bson:"is_read" json:"is_read"`
	ReadAt      *time.Time          `bson:"read_at,omitempty" json:"read_at,omitempty"`
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
}

type NotificationCount struct {
	Total  int64 `json:"total"`
	Unread int64 `json:"unread"`
}
