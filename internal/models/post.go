package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Subject types for vote records.
const (
	SubjectTypePost    = "post"
	SubjectTypeComment = "comment"
)

type Post struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	AuthorID        primitive.ObjectID  `bson:"author_id" json:"author_id"`
	AuthorName      string              `bson:"author_name" json:"author_name"`
	AuthorAvatarURL string              `bson:"author_avatar_url,omitempty" json:"author_avatar_url,omitempty"`
	Title           string              `bson:"title,omitempty" json:"title,omitempty"`
	Content         string              `bson:"content" json:"content"`
	Description     string              `bson:"description,omitempty" json:"description,omitempty"`
	ImageURL        string              `bson:"image_url,omitempty" json:"image_url,omitempty"`
	ImageURLs       []string            `bson:"image_urls,omitempty" json:"image_urls,omitempty"`
	CropType        string              `bson:"crop_type,omitempty" json:"crop_type,omitempty"`
	Tags            []string            `bson:"tags,omitempty" json:"tags,omitempty"`
	BestAnswerID    *primitive.ObjectID `bson:"best_answer_id,omitempty" json:"best_answer_id,omitempty"`

	// Denormalized vote/comment counters. Mutated only inside store
	// transactions together with the backing vote or comment record.
	LikeCount    int `bson:"like_count" json:"like_count"`
	DislikeCount int `bson:"dislike_count" json:"dislike_count"`
	VoteCount    int `bson:"vote_count" json:"vote_count"`
	CommentCount int `bson:"comment_count" json:"comment_count"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`

	// Filled per request for the calling user, never persisted.
	UserVote int       `bson:"-" json:"user_vote"`
	Comments []Comment `bson:"-" json:"comments,omitempty"`
}

type Comment struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	PostID          primitive.ObjectID `bson:"post_id" json:"post_id"`
	AuthorID        primitive.ObjectID `bson:"author_id" json:"author_id"`
	AuthorName      string             `bson:"author_name" json:"author_name"`
	AuthorAvatarURL string             `bson:"author_avatar_url,omitempty" json:"author_avatar_url,omitempty"`
	Content         string             `bson:"content" json:"content"`
	ImageURL        string             `bson:"image_url,omitempty" json:"image_url,omitempty"`

	LikeCount    int `bson:"like_count" json:"like_count"`
	DislikeCount int `bson:"dislike_count" json:"dislike_count"`
	VoteCount    int `bson:"vote_count" json:"vote_count"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`

	UserVote int `bson:"-" json:"user_vote"`
}

// Vote is the single per-user, per-subject stored intent. Absence implies 0;
// removing a vote resets Value to 0 instead of deleting the record.
type Vote struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	SubjectID   primitive.ObjectID `bson:"subject_id" json:"subject_id"`
	SubjectType string             `bson:"subject_type" json:"subject_type"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	Value       int                `bson:"value" json:"value"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}
