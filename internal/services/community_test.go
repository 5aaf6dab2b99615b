package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"cropwise-backend/internal/models"
	"cropwise-backend/internal/store"
)

func newCommunityFixture(t *testing.T) (*CommunityService, *NotificationService, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	notifications := NewNotificationService(mem)
	return NewCommunityService(mem, notifications), notifications, mem
}

func newTestUser(t *testing.T, mem *store.Memory, name string) *models.User {
	t.Helper()
	u := &models.User{
		Email:     fmt.Sprintf("%s@cropwise.vn", name),
		Name:      name,
		CreatedAt: time.Now(),
	}
	require.NoError(t, mem.InsertUser(context.Background(), u))
	return u
}

func newTestPost(t *testing.T, svc *CommunityService, author *models.User) *models.Post {
	t.Helper()
	post, err := svc.CreatePost(context.Background(), author, &models.Post{
		Title:    "Yellowing leaves after two weeks of rain",
		Content:  "Lower leaves turn yellow from the tip inward.",
		CropType: "rice",
	})
	require.NoError(t, err)
	return post
}

func TestApplyVoteIdempotent(t *testing.T) {
	svc, _, mem := newCommunityFixture(t)
	author := newTestUser(t, mem, "author")
	voter := newTestUser(t, mem, "voter")
	post := newTestPost(t, svc, author)
	ref := store.PostRef(post.ID)
	ctx := context.Background()

	first, err := svc.ApplyVote(ctx, ref, voter, 1)
	require.NoError(t, err)
	assert.Equal(t, store.Counters{Likes: 1, Votes: 1}, first.Counters)
	assert.Equal(t, 1, first.UserVote)

	// Submitting the same vote again changes nothing.
	second, err := svc.ApplyVote(ctx, ref, voter, 1)
	require.NoError(t, err)
	assert.Equal(t, first.Counters, second.Counters)

	got, err := mem.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.LikeCount)
	assert.Equal(t, 0, got.DislikeCount)
	assert.Equal(t, 1, got.VoteCount)

	// And produces no duplicate notification.
	inbox, err := mem.ListNotifications(ctx, author.ID, true)
	require.NoError(t, err)
	assert.Len(t, inbox, 1)
}

func TestApplyVoteTransitions(t *testing.T) {
	svc, _, mem := newCommunityFixture(t)
	author := newTestUser(t, mem, "author")
	alice := newTestUser(t, mem, "alice")
	bob := newTestUser(t, mem, "bob")
	post := newTestPost(t, svc, author)
	ref := store.PostRef(post.ID)
	ctx := context.Background()

	expect := func(likes, dislikes, votes int) {
		t.Helper()
		got, err := mem.GetPost(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, likes, got.LikeCount)
		assert.Equal(t, dislikes, got.DislikeCount)
		assert.Equal(t, votes, got.VoteCount)
		assert.Equal(t, votes, got.LikeCount-got.DislikeCount)
	}

	_, err := svc.ApplyVote(ctx, ref, alice, 1)
	require.NoError(t, err)
	expect(1, 0, 1)

	// Alice flips like to dislike.
	_, err = svc.ApplyVote(ctx, ref, alice, -1)
	require.NoError(t, err)
	expect(0, 1, -1)

	_, err = svc.ApplyVote(ctx, ref, bob, 1)
	require.NoError(t, err)
	expect(1, 1, 0)

	// Alice retracts her dislike.
	_, err = svc.ApplyVote(ctx, ref, alice, 0)
	require.NoError(t, err)
	expect(1, 0, 1)
}

func TestApplyVoteOnComment(t *testing.T) {
	svc, _, mem := newCommunityFixture(t)
	author := newTestUser(t, mem, "author")
	answerer := newTestUser(t, mem, "answerer")
	voter := newTestUser(t, mem, "voter")
	post := newTestPost(t, svc, author)
	ctx := context.Background()

	comment, err := svc.AddComment(ctx, post.ID, answerer, "Looks like nitrogen deficiency.", "")
	require.NoError(t, err)

	ref := store.CommentRef(post.ID, comment.ID)
	result, err := svc.ApplyVote(ctx, ref, voter, 1)
	require.NoError(t, err)
	assert.Equal(t, store.Counters{Likes: 1, Votes: 1}, result.Counters)

	got, err := mem.GetComment(ctx, comment.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.LikeCount)
	assert.Equal(t, 1, got.VoteCount)

	// Post counters untouched by comment votes.
	gotPost, err := mem.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, gotPost.LikeCount)
	assert.Equal(t, 1, gotPost.CommentCount)
}

func TestApplyVoteRejectsInvalidValue(t *testing.T) {
	svc, _, mem := newCommunityFixture(t)
	author := newTestUser(t, mem, "author")
	post := newTestPost(t, svc, author)

	_, err := svc.ApplyVote(context.Background(), store.PostRef(post.ID), author, 2)
	assert.ErrorIs(t, err, ErrInvalidVote)
}

func TestApplyVoteNoSelfLikeNotification(t *testing.T) {
	svc, _, mem := newCommunityFixture(t)
	author := newTestUser(t, mem, "author")
	post := newTestPost(t, svc, author)
	ctx := context.Background()

	_, err := svc.ApplyVote(ctx, store.PostRef(post.ID), author, 1)
	require.NoError(t, err)

	inbox, err := mem.ListNotifications(ctx, author.ID, true)
	require.NoError(t, err)
	assert.Empty(t, inbox)
}

func TestApplyVoteLikeNotification(t *testing.T) {
	svc, _, mem := newCommunityFixture(t)
	author := newTestUser(t, mem, "author")
	voter := newTestUser(t, mem, "voter")
	post := newTestPost(t, svc, author)
	ref := store.PostRef(post.ID)
	ctx := context.Background()

	_, err := svc.ApplyVote(ctx, ref, voter, 1)
	require.NoError(t, err)

	inbox, err := mem.ListNotifications(ctx, author.ID, true)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, models.NotificationTypeLike, inbox[0].Type)
	assert.Equal(t, &voter.ID, inbox[0].ActorID)
	assert.Equal(t, &post.ID, inbox[0].PostID)

	// Retract, then like again: the transition fires a second notification.
	_, err = svc.ApplyVote(ctx, ref, voter, 0)
	require.NoError(t, err)
	_, err = svc.ApplyVote(ctx, ref, voter, 1)
	require.NoError(t, err)

	inbox, err = mem.ListNotifications(ctx, author.ID, true)
	require.NoError(t, err)
	assert.Len(t, inbox, 2)

	// A dislike never notifies.
	disliker := newTestUser(t, mem, "disliker")
	_, err = svc.ApplyVote(ctx, ref, disliker, -1)
	require.NoError(t, err)
	inbox, err = mem.ListNotifications(ctx, author.ID, true)
	require.NoError(t, err)
	assert.Len(t, inbox, 2)
}

func TestAddCommentConcurrentCounter(t *testing.T) {
	svc, _, mem := newCommunityFixture(t)
	author := newTestUser(t, mem, "author")
	post := newTestPost(t, svc, author)
	ctx := context.Background()

	const n = 25
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			u := &models.User{ID: primitive.NewObjectID(), Name: fmt.Sprintf("farmer-%d", i)}
			_, err := svc.AddComment(ctx, post.ID, u, "me too", "")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := mem.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, n, got.CommentCount)

	comments, err := mem.ListComments(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, comments, n)
}

func TestAddCommentNotifiesPostAuthor(t *testing.T) {
	svc, _, mem := newCommunityFixture(t)
	author := newTestUser(t, mem, "author")
	commenter := newTestUser(t, mem, "commenter")
	post := newTestPost(t, svc, author)
	ctx := context.Background()

	comment, err := svc.AddComment(ctx, post.ID, commenter, "Try a fungicide rotation.", "")
	require.NoError(t, err)

	inbox, err := mem.ListNotifications(ctx, author.ID, true)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, models.NotificationTypeComment, inbox[0].Type)
	assert.Equal(t, &comment.ID, inbox[0].CommentID)

	// The author commenting on their own post stays silent.
	_, err = svc.AddComment(ctx, post.ID, author, "Thanks, will do.", "")
	require.NoError(t, err)
	inbox, err = mem.ListNotifications(ctx, author.ID, true)
	require.NoError(t, err)
	assert.Len(t, inbox, 1)
}

func TestAddCommentMissingPost(t *testing.T) {
	svc, _, mem := newCommunityFixture(t)
	commenter := newTestUser(t, mem, "commenter")

	_, err := svc.AddComment(context.Background(), primitive.NewObjectID(), commenter, "hello", "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetPostAttachesVotesAndBestAnswerFirst(t *testing.T) {
	svc, _, mem := newCommunityFixture(t)
	author := newTestUser(t, mem, "author")
	answerer := newTestUser(t, mem, "answerer")
	voter := newTestUser(t, mem, "voter")
	post := newTestPost(t, svc, author)
	ctx := context.Background()

	weak, err := svc.AddComment(ctx, post.ID, answerer, "Might be thrips?", "")
	require.NoError(t, err)
	strong, err := svc.AddComment(ctx, post.ID, answerer, "Classic nitrogen deficiency.", "")
	require.NoError(t, err)

	// Upvote the strong answer so it leads by votes.
	_, err = svc.ApplyVote(ctx, store.CommentRef(post.ID, strong.ID), voter, 1)
	require.NoError(t, err)
	_, err = svc.ApplyVote(ctx, store.PostRef(post.ID), voter, 1)
	require.NoError(t, err)

	loaded, err := svc.GetPost(ctx, post.ID, voter.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Comments, 2)
	assert.Equal(t, strong.ID, loaded.Comments[0].ID)
	assert.Equal(t, 1, loaded.Comments[0].UserVote)
	assert.Equal(t, 1, loaded.UserVote)

	// Author accepts the lower-voted answer; it must lead anyway.
	require.NoError(t, svc.MarkBestAnswer(ctx, post.ID, weak.ID, author.ID))
	loaded, err = svc.GetPost(ctx, post.ID, voter.ID)
	require.NoError(t, err)
	assert.Equal(t, weak.ID, loaded.Comments[0].ID)
	assert.Equal(t, strong.ID, loaded.Comments[1].ID)
}

func TestMarkBestAnswerAuthorization(t *testing.T) {
	svc, _, mem := newCommunityFixture(t)
	author := newTestUser(t, mem, "author")
	answerer := newTestUser(t, mem, "answerer")
	post := newTestPost(t, svc, author)
	other := newTestPost(t, svc, answerer)
	ctx := context.Background()

	comment, err := svc.AddComment(ctx, post.ID, answerer, "answer", "")
	require.NoError(t, err)

	err = svc.MarkBestAnswer(ctx, post.ID, comment.ID, answerer.ID)
	assert.ErrorIs(t, err, ErrNotPostAuthor)

	err = svc.MarkBestAnswer(ctx, other.ID, comment.ID, answerer.ID)
	assert.ErrorIs(t, err, ErrCommentNotOnPost)

	require.NoError(t, svc.MarkBestAnswer(ctx, post.ID, comment.ID, author.ID))

	// Accepting notifies the answer's author.
	inbox, err := mem.ListNotifications(ctx, answerer.ID, true)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, "Best answer", inbox[0].Title)
}
