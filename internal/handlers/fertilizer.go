// internal/handlers/fertilizer.go
package handlers

import (
	"net/http"

	"cropwise-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type FertilizerHandler struct {
	fertilizer *services.FertilizerService
}

type CalculateFertilizerRequest struct {
	Crop   string  `json:"crop" binding:"required"`
	Stage  string  `json:"stage" binding:"required"`
	AreaHa float64 `json:"area_ha" binding:"required,gt=0"`
}

func NewFertilizerHandler(fertilizer *services.FertilizerService) *FertilizerHandler {
	return &FertilizerHandler{fertilizer: fertilizer}
}

func (h *FertilizerHandler) Calculate(c *gin.Context) {
	var req CalculateFertilizerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	plan, err := h.fertilizer.Calculate(req.Crop, req.Stage, req.AreaHa)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

func (h *FertilizerHandler) Stages(c *gin.Context) {
	stages, err := h.fertilizer.Stages(c.Param("crop"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stages": stages,
	})
}
