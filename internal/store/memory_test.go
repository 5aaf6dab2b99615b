package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"cropwise-backend/internal/models"
)

func seedPost(t *testing.T, m *Memory, author primitive.ObjectID) *models.Post {
	t.Helper()
	post := &models.Post{
		AuthorID:   author,
		AuthorName: "Farmer",
		Title:      "Rust spots on lower leaves",
		Content:    "Noticed orange pustules this morning.",
		CropType:   "corn",
		CreatedAt:  time.Now(),
	}
	require.NoError(t, m.InsertPost(context.Background(), post))
	return post
}

func TestMemoryTransactionCommitsStagedWrites(t *testing.T) {
	m := NewMemory()
	author := primitive.NewObjectID()
	voter := primitive.NewObjectID()
	post := seedPost(t, m, author)
	ref := PostRef(post.ID)

	err := m.RunTransaction(context.Background(), func(tx Tx) error {
		subject, err := tx.Subject(ref)
		if err != nil {
			return err
		}
		assert.Equal(t, author, subject.OwnerID)
		assert.Equal(t, Counters{}, subject.Counters)

		if err := tx.SetVote(ref, voter, 1); err != nil {
			return err
		}
		return tx.SetCounters(ref, Counters{Likes: 1, Votes: 1})
	})
	require.NoError(t, err)

	got, err := m.GetPost(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.LikeCount)
	assert.Equal(t, 1, got.VoteCount)

	value, err := m.UserVote(context.Background(), ref, voter)
	require.NoError(t, err)
	assert.Equal(t, 1, value)
}

func TestMemoryTransactionRollsBackOnError(t *testing.T) {
	m := NewMemory()
	post := seedPost(t, m, primitive.NewObjectID())
	voter := primitive.NewObjectID()
	ref := PostRef(post.ID)
	boom := errors.New("boom")

	err := m.RunTransaction(context.Background(), func(tx Tx) error {
		if err := tx.SetVote(ref, voter, 1); err != nil {
			return err
		}
		if err := tx.SetCounters(ref, Counters{Likes: 1, Votes: 1}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := m.GetPost(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.LikeCount)
	assert.Equal(t, 0, got.VoteCount)

	value, err := m.UserVote(context.Background(), ref, voter)
	require.NoError(t, err)
	assert.Equal(t, 0, value)
}

func TestMemoryTransactionReadsOwnWrites(t *testing.T) {
	m := NewMemory()
	post := seedPost(t, m, primitive.NewObjectID())
	voter := primitive.NewObjectID()
	ref := PostRef(post.ID)

	err := m.RunTransaction(context.Background(), func(tx Tx) error {
		if err := tx.SetVote(ref, voter, -1); err != nil {
			return err
		}
		value, err := tx.Vote(ref, voter)
		if err != nil {
			return err
		}
		assert.Equal(t, -1, value)

		if err := tx.SetCounters(ref, Counters{Dislikes: 1, Votes: -1}); err != nil {
			return err
		}
		subject, err := tx.Subject(ref)
		if err != nil {
			return err
		}
		assert.Equal(t, Counters{Dislikes: 1, Votes: -1}, subject.Counters)
		return nil
	})
	require.NoError(t, err)
}

func TestMemorySubjectNotFound(t *testing.T) {
	m := NewMemory()

	err := m.RunTransaction(context.Background(), func(tx Tx) error {
		_, err := tx.Subject(PostRef(primitive.NewObjectID()))
		return err
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCommentRefRequiresMatchingPost(t *testing.T) {
	m := NewMemory()
	post := seedPost(t, m, primitive.NewObjectID())

	comment := &models.Comment{
		PostID:    post.ID,
		AuthorID:  primitive.NewObjectID(),
		Content:   "Looks like common rust.",
		CreatedAt: time.Now(),
	}
	err := m.RunTransaction(context.Background(), func(tx Tx) error {
		return tx.InsertComment(comment)
	})
	require.NoError(t, err)
	require.False(t, comment.ID.IsZero())

	err = m.RunTransaction(context.Background(), func(tx Tx) error {
		_, err := tx.Subject(CommentRef(post.ID, comment.ID))
		return err
	})
	assert.NoError(t, err)

	err = m.RunTransaction(context.Background(), func(tx Tx) error {
		_, err := tx.Subject(CommentRef(primitive.NewObjectID(), comment.ID))
		return err
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryInsertUserDuplicateEmail(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	first := &models.User{Email: "a@cropwise.vn", Name: "A"}
	require.NoError(t, m.InsertUser(ctx, first))

	err := m.InsertUser(ctx, &models.User{Email: "a@cropwise.vn", Name: "B"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	got, err := m.GetUserByEmail(ctx, "a@cropwise.vn")
	require.NoError(t, err)
	assert.Equal(t, "A", got.Name)
}

func TestMemoryListCommentsOrdering(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	post := seedPost(t, m, primitive.NewObjectID())

	base := time.Now()
	insert := func(votes int, at time.Time) primitive.ObjectID {
		c := &models.Comment{
			PostID:    post.ID,
			AuthorID:  primitive.NewObjectID(),
			Content:   "c",
			VoteCount: votes,
			CreatedAt: at,
		}
		require.NoError(t, m.RunTransaction(ctx, func(tx Tx) error {
			return tx.InsertComment(c)
		}))
		return c.ID
	}

	low := insert(1, base)
	highOld := insert(5, base.Add(-time.Hour))
	highNew := insert(5, base.Add(time.Hour))

	comments, err := m.ListComments(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 3)
	assert.Equal(t, highNew, comments[0].ID)
	assert.Equal(t, highOld, comments[1].ID)
	assert.Equal(t, low, comments[2].ID)
}

func TestMemoryNotificationLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	recipient := primitive.NewObjectID()

	for i := 0; i < 3; i++ {
		require.NoError(t, m.InsertNotification(ctx, &models.Notification{
			RecipientID: recipient,
			Type:        models.NotificationTypeSystem,
			Title:       "hello",
			CreatedAt:   time.Now().Add(time.Duration(i) * time.Second),
		}))
	}

	count, err := m.CountNotifications(ctx, recipient)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count.Total)
	assert.Equal(t, int64(3), count.Unread)

	list, err := m.ListNotifications(ctx, recipient, true)
	require.NoError(t, err)
	require.Len(t, list, 3)

	require.NoError(t, m.MarkNotificationRead(ctx, list[0].ID, recipient))
	unread, err := m.ListNotifications(ctx, recipient, false)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	require.NoError(t, m.MarkAllNotificationsRead(ctx, recipient))
	count, err = m.CountNotifications(ctx, recipient)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count.Unread)

	// Another user cannot touch the inbox.
	err = m.MarkNotificationRead(ctx, list[0].ID, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrNotFound)
	err = m.DeleteNotification(ctx, list[0].ID, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.DeleteNotification(ctx, list[0].ID, recipient))
	count, err = m.CountNotifications(ctx, recipient)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count.Total)
}
