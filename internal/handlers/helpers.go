package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"cropwise-backend/internal/models"
	"cropwise-backend/internal/services"
	"cropwise-backend/internal/store"
)

const requestTimeout = 10 * time.Second

// currentUserID reads the authenticated user id set by the auth middleware.
func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return primitive.NilObjectID, false
	}
	id, ok := v.(primitive.ObjectID)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return primitive.NilObjectID, false
	}
	return id, true
}

// currentUser loads the authenticated user's document, needed wherever the
// denormalized author fields get stamped onto new records.
func currentUser(c *gin.Context, s store.Store) (*models.User, bool) {
	id, ok := currentUserID(c)
	if !ok {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	user, err := s.GetUser(ctx, id)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not found",
		})
		return nil, false
	}
	return user, true
}

func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + name,
		})
		return primitive.NilObjectID, false
	}
	return id, true
}

// respondError maps service and store errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, store.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, gin.H{"error": "User with this email already exists"})
	case errors.Is(err, services.ErrInvalidVote),
		errors.Is(err, services.ErrInvalidSeverity),
		errors.Is(err, services.ErrInvalidRadius),
		errors.Is(err, services.ErrInvalidCoordinates),
		errors.Is(err, services.ErrInvalidArea),
		errors.Is(err, services.ErrUnknownCrop),
		errors.Is(err, services.ErrUnknownStage),
		errors.Is(err, services.ErrCommentNotOnPost):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotPostAuthor),
		errors.Is(err, services.ErrNotFieldOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrClassifierUnavailable),
		errors.Is(err, services.ErrWeatherUnavailable),
		errors.Is(err, services.ErrUploadFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Upstream service unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
