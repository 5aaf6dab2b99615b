// internal/handlers/community.go
package handlers

import (
	"context"
	"io"
	"net/http"

	"cropwise-backend/internal/models"
	"cropwise-backend/internal/services"
	"cropwise-backend/internal/store"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// 10 MB cap on uploaded images.
const maxImageBytes = 10 << 20

type CommunityHandler struct {
	community *services.CommunityService
	upload    *services.UploadService
	store     store.Store
}

type CreatePostRequest struct {
	Title       string   `json:"title" binding:"required,min=3,max=200"`
	Content     string   `json:"content" binding:"required,min=3"`
	Description string   `json:"description,omitempty"`
	CropType    string   `json:"crop_type,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	ImageURLs   []string `json:"image_urls,omitempty"`
}

type VoteRequest struct {
	// -1 dislike, 0 retract, 1 like
	Value *int `json:"value" binding:"required"`
}

type AddCommentRequest struct {
	Content  string `json:"content" binding:"required,min=1,max=5000"`
	ImageURL string `json:"image_url,omitempty"`
}

func NewCommunityHandler(community *services.CommunityService, upload *services.UploadService, s store.Store) *CommunityHandler {
	return &CommunityHandler{
		community: community,
		upload:    upload,
		store:     s,
	}
}

func (h *CommunityHandler) CreatePost(c *gin.Context) {
	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	user, ok := currentUser(c, h.store)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	post, err := h.community.CreatePost(ctx, user, &models.Post{
		Title:       req.Title,
		Content:     req.Content,
		Description: req.Description,
		CropType:    req.CropType,
		Tags:        req.Tags,
		ImageURL:    req.ImageURL,
		ImageURLs:   req.ImageURLs,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, post)
}

func (h *CommunityHandler) ListPosts(c *gin.Context) {
	filter := store.PostFilter{
		CropType: c.Query("crop_type"),
	}
	if author := c.Query("author_id"); author != "" {
		authorID, err := primitive.ObjectIDFromHex(author)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid author_id",
			})
			return
		}
		filter.AuthorID = authorID
	}

	viewerID, _ := c.Get("user_id")
	viewer, _ := viewerID.(primitive.ObjectID)

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	posts, err := h.community.ListPosts(ctx, filter, viewer)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts": posts,
		"count": len(posts),
	})
}

func (h *CommunityHandler) GetPost(c *gin.Context) {
	postID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	viewerID, _ := c.Get("user_id")
	viewer, _ := viewerID.(primitive.ObjectID)

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	post, err := h.community.GetPost(ctx, postID, viewer)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, post)
}

func (h *CommunityHandler) VotePost(c *gin.Context) {
	postID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	h.vote(c, store.PostRef(postID))
}

func (h *CommunityHandler) VoteComment(c *gin.Context) {
	postID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	commentID, ok := objectIDParam(c, "commentId")
	if !ok {
		return
	}
	h.vote(c, store.CommentRef(postID, commentID))
}

func (h *CommunityHandler) vote(c *gin.Context, ref store.SubjectRef) {
	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	user, ok := currentUser(c, h.store)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	result, err := h.community.ApplyVote(ctx, ref, user, *req.Value)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"like_count":    result.Counters.Likes,
		"dislike_count": result.Counters.Dislikes,
		"vote_count":    result.Counters.Votes,
		"user_vote":     result.UserVote,
	})
}

func (h *CommunityHandler) AddComment(c *gin.Context) {
	postID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	var req AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	user, ok := currentUser(c, h.store)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	comment, err := h.community.AddComment(ctx, postID, user, req.Content, req.ImageURL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, comment)
}

func (h *CommunityHandler) MarkBestAnswer(c *gin.Context) {
	postID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	commentID, ok := objectIDParam(c, "commentId")
	if !ok {
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.community.MarkBestAnswer(ctx, postID, commentID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Best answer marked",
	})
}

// UploadImage pushes a multipart image to the image host and returns its URL
// for use in posts and comments.
func (h *CommunityHandler) UploadImage(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Image file is required",
		})
		return
	}
	if fileHeader.Size > maxImageBytes {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Image too large",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Cannot read image",
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Cannot read image",
		})
		return
	}

	url, err := h.upload.Upload(c.Request.Context(), fileHeader.Filename, data)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url": url,
	})
}
