// internal/handlers/disease.go
package handlers

import (
	"io"
	"net/http"

	"cropwise-backend/internal/services"

	"github.com/gin-gonic/gin"
)

const maxBatchImages = 5

type DiseaseHandler struct {
	disease *services.DiseaseService
}

func NewDiseaseHandler(disease *services.DiseaseService) *DiseaseHandler {
	return &DiseaseHandler{disease: disease}
}

// Predict classifies one uploaded leaf image.
func (h *DiseaseHandler) Predict(c *gin.Context) {
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

	result, err := h.disease.Predict(c.Request.Context(), fileHeader.Filename, data)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// PredictBatch classifies several images in one request.
func (h *DiseaseHandler) PredictBatch(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Multipart form is required",
		})
		return
	}

	fileHeaders := form.File["images"]
	if len(fileHeaders) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "At least one image is required",
		})
		return
	}
	if len(fileHeaders) > maxBatchImages {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Too many images in one batch",
		})
		return
	}

	images := make(map[string][]byte, len(fileHeaders))
	for _, fh := range fileHeaders {
		if fh.Size > maxImageBytes {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Image too large: " + fh.Filename,
			})
			return
		}
		file, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Cannot read image: " + fh.Filename,
			})
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Cannot read image: " + fh.Filename,
			})
			return
		}
		images[fh.Filename] = data
	}

	results, err := h.disease.PredictBatch(c.Request.Context(), images)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"count":   len(results),
	})
}

func (h *DiseaseHandler) Status(c *gin.Context) {
	status, err := h.disease.Status(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *DiseaseHandler) Catalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"diseases": h.disease.Catalog(),
	})
}
