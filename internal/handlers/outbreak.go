// internal/handlers/outbreak.go
package handlers

import (
	"context"
	"net/http"

	"cropwise-backend/internal/models"
	"cropwise-backend/internal/services"
	"cropwise-backend/internal/store"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OutbreakHandler struct {
	outbreaks *services.OutbreakService
	store     store.Store
}

type CreateAlertRequest struct {
	FieldID      string         `json:"field_id,omitempty"`
	Title        string         `json:"title" binding:"required,min=3,max=200"`
	Description  string         `json:"description,omitempty"`
	Severity     string         `json:"severity" binding:"required"`
	RadiusMeters float64        `json:"radius_meters" binding:"required,gt=0"`
	Center       *models.LatLng `json:"center,omitempty"`
}

func NewOutbreakHandler(outbreaks *services.OutbreakService, s store.Store) *OutbreakHandler {
	return &OutbreakHandler{
		outbreaks: outbreaks,
		store:     s,
	}
}

func (h *OutbreakHandler) Create(c *gin.Context) {
	var req CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}
	if req.FieldID == "" && req.Center == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Either field_id or center is required",
		})
		return
	}

	user, ok := currentUser(c, h.store)
	if !ok {
		return
	}

	alert := &models.OutbreakAlert{
		Title:        req.Title,
		Description:  req.Description,
		Severity:     req.Severity,
		RadiusMeters: req.RadiusMeters,
	}
	if req.Center != nil {
		alert.Center = *req.Center
	}
	if req.FieldID != "" {
		fieldID, err := primitive.ObjectIDFromHex(req.FieldID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid field_id",
			})
			return
		}
		alert.FieldID = &fieldID
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	created, err := h.outbreaks.CreateAlert(ctx, user, alert)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// Resolve marks an alert as resolved. Reserved for verified experts.
func (h *OutbreakHandler) Resolve(c *gin.Context) {
	alertID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	alert, err := h.outbreaks.ResolveAlert(ctx, alertID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, alert)
}

func (h *OutbreakHandler) List(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	alerts, err := h.outbreaks.ListAlerts(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}
