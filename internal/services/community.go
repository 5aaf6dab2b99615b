package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"cropwise-backend/internal/models"
	"cropwise-backend/internal/store"
)

var (
	// ErrInvalidVote is returned for vote values outside {-1, 0, 1}.
	ErrInvalidVote = errors.New("vote value must be -1, 0 or 1")

	// ErrNotPostAuthor is returned when a caller who does not own the post
	// tries to mark a best answer.
	ErrNotPostAuthor = errors.New("only the post author can mark a best answer")

	// ErrCommentNotOnPost is returned when the best-answer comment belongs
	// to a different post.
	ErrCommentNotOnPost = errors.New("comment does not belong to this post")
)

// CommunityService owns the Q&A feed: posts, comments and votes. Counter
// updates run inside store transactions so the denormalized aggregates never
// drift from the vote and comment records.
type CommunityService struct {
	store         store.Store
	notifications *NotificationService
}

func NewCommunityService(s store.Store, notifications *NotificationService) *CommunityService {
	return &CommunityService{store: s, notifications: notifications}
}

func (s *CommunityService) CreatePost(ctx context.Context, author *models.User, post *models.Post) (*models.Post, error) {
	post.ID = primitive.NilObjectID
	post.AuthorID = author.ID
	post.AuthorName = author.Name
	post.AuthorAvatarURL = author.AvatarURL
	post.LikeCount = 0
	post.DislikeCount = 0
	post.VoteCount = 0
	post.CommentCount = 0
	post.BestAnswerID = nil
	post.CreatedAt = time.Now()

	if err := s.store.InsertPost(ctx, post); err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	return post, nil
}

// VoteResult is the committed state returned to the caller after ApplyVote.
type VoteResult struct {
	Counters store.Counters
	UserVote int
}

// ApplyVote moves the caller's vote on a subject to next and adjusts the
// subject's counters by the prev-to-next transition, all in one transaction.
// Re-submitting the current vote is a no-op. A transition into a like on
// someone else's subject produces an inbox notification after commit;
// notification failures are logged, never surfaced.
func (s *CommunityService) ApplyVote(ctx context.Context, ref store.SubjectRef, voter *models.User, next int) (*VoteResult, error) {
	if next < -1 || next > 1 {
		return nil, ErrInvalidVote
	}

	var (
		result  VoteResult
		ownerID primitive.ObjectID
		title   string
		liked   bool
	)
	err := s.store.RunTransaction(ctx, func(tx store.Tx) error {
		subject, err := tx.Subject(ref)
		if err != nil {
			return err
		}
		prev, err := tx.Vote(ref, voter.ID)
		if err != nil {
			return err
		}

		ownerID = subject.OwnerID
		title = subject.Title
		liked = false
		result = VoteResult{Counters: subject.Counters, UserVote: prev}
		if prev == next {
			return nil
		}

		c := subject.Counters
		switch prev {
		case 1:
			c.Likes--
		case -1:
			c.Dislikes--
		}
		switch next {
		case 1:
			c.Likes++
		case -1:
			c.Dislikes++
		}
		c.Votes += next - prev

		if err := tx.SetVote(ref, voter.ID, next); err != nil {
			return err
		}
		if err := tx.SetCounters(ref, c); err != nil {
			return err
		}

		result = VoteResult{Counters: c, UserVote: next}
		liked = next == 1
		return nil
	})
	if err != nil {
		return nil, err
	}

	if liked && ownerID != voter.ID {
		s.notifyLike(ctx, ref, voter, ownerID, title)
	}
	return &result, nil
}

func (s *CommunityService) notifyLike(ctx context.Context, ref store.SubjectRef, voter *models.User, ownerID primitive.ObjectID, title string) {
	message := fmt.Sprintf("%s liked your post", voter.Name)
	if ref.IsComment() {
		message = fmt.Sprintf("%s liked your comment", voter.Name)
	} else if title != "" {
		message = fmt.Sprintf("%s liked your post %q", voter.Name, title)
	}

	n := &models.Notification{
		RecipientID: ownerID,
		ActorID:     &voter.ID,
		Type:        models.NotificationTypeLike,
		Title:       "New like",
		Message:     message,
		PostID:      &ref.PostID,
	}
	if ref.IsComment() {
		n.CommentID = &ref.CommentID
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		log.Printf("⚠️ like notification for %s failed: %v", ownerID.Hex(), err)
	}
}

// AddComment inserts the comment and bumps the post's comment counter in the
// same transaction, so the counter equals the number of comment records even
// under concurrent commenters.
func (s *CommunityService) AddComment(ctx context.Context, postID primitive.ObjectID, author *models.User, content, imageURL string) (*models.Comment, error) {
	comment := &models.Comment{
		PostID:          postID,
		AuthorID:        author.ID,
		AuthorName:      author.Name,
		AuthorAvatarURL: author.AvatarURL,
		Content:         content,
		ImageURL:        imageURL,
		CreatedAt:       time.Now(),
	}

	ref := store.PostRef(postID)
	var (
		ownerID primitive.ObjectID
		title   string
	)
	err := s.store.RunTransaction(ctx, func(tx store.Tx) error {
		subject, err := tx.Subject(ref)
		if err != nil {
			return err
		}
		ownerID = subject.OwnerID
		title = subject.Title

		if err := tx.InsertComment(comment); err != nil {
			return err
		}

		c := subject.Counters
		c.Comments++
		return tx.SetCounters(ref, c)
	})
	if err != nil {
		return nil, err
	}

	if ownerID != author.ID {
		n := &models.Notification{
			RecipientID: ownerID,
			ActorID:     &author.ID,
			Type:        models.NotificationTypeComment,
			Title:       "New comment",
			Message:     fmt.Sprintf("%s commented on your post %q", author.Name, title),
			PostID:      &postID,
			CommentID:   &comment.ID,
		}
		if err := s.notifications.Create(ctx, n); err != nil {
			log.Printf("⚠️ comment notification for %s failed: %v", ownerID.Hex(), err)
		}
	}
	return comment, nil
}

// GetPost loads a post with its comments. Comments sort by vote count, except
// the marked best answer which always leads. When viewerID is non-zero the
// viewer's own votes are attached.
func (s *CommunityService) GetPost(ctx context.Context, postID, viewerID primitive.ObjectID) (*models.Post, error) {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	comments, err := s.store.ListComments(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.BestAnswerID != nil {
		for i, c := range comments {
			if c.ID == *post.BestAnswerID && i > 0 {
				best := comments[i]
				copy(comments[1:i+1], comments[:i])
				comments[0] = best
				break
			}
		}
	}

	if !viewerID.IsZero() {
		post.UserVote, err = s.store.UserVote(ctx, store.PostRef(postID), viewerID)
		if err != nil {
			return nil, err
		}
		for i := range comments {
			comments[i].UserVote, err = s.store.UserVote(ctx, store.CommentRef(postID, comments[i].ID), viewerID)
			if err != nil {
				return nil, err
			}
		}
	}

	post.Comments = comments
	return post, nil
}

func (s *CommunityService) ListPosts(ctx context.Context, filter store.PostFilter, viewerID primitive.ObjectID) ([]models.Post, error) {
	posts, err := s.store.ListPosts(ctx, filter)
	if err != nil {
		return nil, err
	}
	if !viewerID.IsZero() {
		for i := range posts {
			posts[i].UserVote, err = s.store.UserVote(ctx, store.PostRef(posts[i].ID), viewerID)
			if err != nil {
				return nil, err
			}
		}
	}
	return posts, nil
}

// MarkBestAnswer records commentID as the accepted answer on the post. Only
// the post author may do this, and the comment must belong to the post.
func (s *CommunityService) MarkBestAnswer(ctx context.Context, postID, commentID, callerID primitive.ObjectID) error {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != callerID {
		return ErrNotPostAuthor
	}

	comment, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.PostID != postID {
		return ErrCommentNotOnPost
	}

	if err := s.store.SetBestAnswer(ctx, postID, commentID); err != nil {
		return err
	}

	if comment.AuthorID != callerID {
		n := &models.Notification{
			RecipientID: comment.AuthorID,
			ActorID:     &callerID,
			Type:        models.NotificationTypeSystem,
			Title:       "Best answer",
			Message:     fmt.Sprintf("Your answer on %q was marked as the best answer", post.Title),
			PostID:      &postID,
			CommentID:   &commentID,
		}
		if err := s.notifications.Create(ctx, n); err != nil {
			log.Printf("⚠️ best answer notification for %s failed: %v", comment.AuthorID.Hex(), err)
		}
	}
	return nil
}
