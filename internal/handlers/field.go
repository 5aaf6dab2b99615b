// internal/handlers/field.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"cropwise-backend/internal/models"
	"cropwise-backend/internal/services"
	"cropwise-backend/internal/store"

	"github.com/gin-gonic/gin"
)

type FieldHandler struct {
	fields    *services.FieldService
	outbreaks *services.OutbreakService
	store     store.Store
}

type RegisterFieldRequest struct {
	Name       string         `json:"name" binding:"required,min=2,max=100"`
	AreaHa     float64        `json:"area_ha" binding:"required,gt=0"`
	CropType   string         `json:"crop_type" binding:"required"`
	SowingDate *time.Time     `json:"sowing_date,omitempty"`
	Location   *models.LatLng `json:"location,omitempty"`
}

func NewFieldHandler(fields *services.FieldService, outbreaks *services.OutbreakService, s store.Store) *FieldHandler {
	return &FieldHandler{
		fields:    fields,
		outbreaks: outbreaks,
		store:     s,
	}
}

func (h *FieldHandler) Register(c *gin.Context) {
	var req RegisterFieldRequest
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

	field := &models.Field{
		Name:     req.Name,
		AreaHa:   req.AreaHa,
		CropType: req.CropType,
		Location: req.Location,
	}
	if req.SowingDate != nil {
		field.SowingDate = *req.SowingDate
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	created, err := h.fields.Register(ctx, user, field)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *FieldHandler) MyFields(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	fields, err := h.fields.MyFields(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"fields": fields,
		"count":  len(fields),
	})
}

func (h *FieldHandler) Get(c *gin.Context) {
	fieldID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	field, err := h.fields.Get(ctx, fieldID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, field)
}

// Scan runs a drone health scan on the field and returns the heatmap.
func (h *FieldHandler) Scan(c *gin.Context) {
	fieldID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	scan, err := h.fields.RecordScan(ctx, fieldID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, scan)
}

// Alerts lists the active outbreak alerts covering this field.
func (h *FieldHandler) Alerts(c *gin.Context) {
	fieldID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	// Ownership check first so strangers cannot probe field coverage
	if _, err := h.fields.Get(ctx, fieldID, userID); err != nil {
		respondError(c, err)
		return
	}

	alerts, err := h.outbreaks.ActiveAlertsForField(ctx, fieldID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}
