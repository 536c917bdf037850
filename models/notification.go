package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Notification records a post-comment event for the post author. Writes are
// best-effort: a failed insert is logged and never fails the comment.
type Notification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user" json:"userId"`
	Message   string             `bson:"message" json:"message"`
	PostID    primitive.ObjectID `bson:"postId" json:"postId"`
	Read      bool               `bson:"read" json:"read"`
	CreatedAt int64              `bson:"createdAt" json:"createdAt"`
}
