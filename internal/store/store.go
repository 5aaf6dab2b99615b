// Package store is the system-of-record behind the community feed, the field
// registry and the notification inbox. All counter mutations go through
// RunTransaction; writing a counter outside a transaction is a correctness
// violation.
package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"cropwise-backend/internal/models"
)

var (
	// ErrNotFound is returned when the referenced document does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrDuplicateEmail is returned by InsertUser for an already registered email.
	ErrDuplicateEmail = errors.New("store: email already registered")
)

// SubjectRef identifies a votable subject: a post, or a comment under a post.
type SubjectRef struct {
	PostID    primitive.ObjectID
	CommentID primitive.ObjectID
}

func PostRef(postID primitive.ObjectID) SubjectRef {
	return SubjectRef{PostID: postID}
}

func CommentRef(postID, commentID primitive.ObjectID) SubjectRef {
	return SubjectRef{PostID: postID, CommentID: commentID}
}

func (r SubjectRef) IsComment() bool {
	return !r.CommentID.IsZero()
}

// SubjectID returns the document id the vote records are keyed by.
func (r SubjectRef) SubjectID() primitive.ObjectID {
	if r.IsComment() {
		return r.CommentID
	}
	return r.PostID
}

func (r SubjectRef) SubjectType() string {
	if r.IsComment() {
		return models.SubjectTypeComment
	}
	return models.SubjectTypePost
}

// Counters are the denormalized aggregates cached on a subject document.
// Comments is only meaningful for post subjects.
type Counters struct {
	Likes    int
	Dislikes int
	Votes    int
	Comments int
}

// Subject is the transactional view of a votable document.
type Subject struct {
	Ref      SubjectRef
	OwnerID  primitive.ObjectID
	Title    string
	Counters Counters
}

// Tx exposes the reads and writes allowed inside one atomic transaction.
// Implementations guarantee all-or-nothing commit and serialization against
// conflicting transactions on the same subject.
type Tx interface {
	// Subject loads owner and counters; ErrNotFound when the subject is gone.
	Subject(ref SubjectRef) (Subject, error)
	SetCounters(ref SubjectRef, c Counters) error

	// Vote returns the caller's current vote value, 0 when absent.
	Vote(ref SubjectRef, userID primitive.ObjectID) (int, error)
	SetVote(ref SubjectRef, userID primitive.ObjectID, value int) error

	InsertComment(comment *models.Comment) error
}

// PostFilter narrows ListPosts. Zero value lists everything.
type PostFilter struct {
	CropType string
	AuthorID primitive.ObjectID
}

type Store interface {
	// RunTransaction executes fn atomically. Conflicting commits are retried
	// a bounded number of times by the implementation; once exhausted the
	// error surfaces to the caller as retryable.
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error

	InsertUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	SaveUser(ctx context.Context, u *models.User) error

	InsertPost(ctx context.Context, p *models.Post) error
	GetPost(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	ListPosts(ctx context.Context, filter PostFilter) ([]models.Post, error)
	SetBestAnswer(ctx context.Context, postID, commentID primitive.ObjectID) error

	GetComment(ctx context.Context, id primitive.ObjectID) (*models.Comment, error)
	ListComments(ctx context.Context, postID primitive.ObjectID) ([]models.Comment, error)

	// UserVote is the non-transactional read used to attach the caller's
	// vote to feed responses.
	UserVote(ctx context.Context, ref SubjectRef, userID primitive.ObjectID) (int, error)

	InsertField(ctx context.Context, f *models.Field) error
	GetField(ctx context.Context, id primitive.ObjectID) (*models.Field, error)
	ListFields(ctx context.Context) ([]models.Field, error)
	FieldsByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Field, error)
	SetFieldScan(ctx context.Context, fieldID primitive.ObjectID, scan *models.ScanResult) error

	InsertAlert(ctx context.Context, a *models.OutbreakAlert) error
	GetAlert(ctx context.Context, id primitive.ObjectID) (*models.OutbreakAlert, error)
	SetAlertStatus(ctx context.Context, id primitive.ObjectID, status string) error
	ListAlerts(ctx context.Context) ([]models.OutbreakAlert, error)

	InsertNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, recipientID primitive.ObjectID, includeRead bool) ([]models.Notification, error)
	CountNotifications(ctx context.Context, recipientID primitive.ObjectID) (models.NotificationCount, error)
	MarkNotificationRead(ctx context.Context, id, recipientID primitive.ObjectID) error
	MarkAllNotificationsRead(ctx context.Context, recipientID primitive.ObjectID) error
	DeleteNotification(ctx context.Context, id, recipientID primitive.ObjectID) error
}
