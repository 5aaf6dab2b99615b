package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrClassifierUnavailable wraps any transport or non-200 failure from the
// classifier API. Handlers map it to a generic upstream error.
var ErrClassifierUnavailable = errors.New("disease classifier unavailable")

// DiseaseInfo is the catalog entry attached to a prediction.
type DiseaseInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Treatment   string `json:"treatment"`
}

// Prediction is the classifier's verdict for one image.
type Prediction struct {
	Success          bool               `json:"success"`
	PredictedClass   string             `json:"predicted_class"`
	PredictedClassVi string             `json:"predicted_class_vi,omitempty"`
	Confidence       float64            `json:"confidence"`
	DiseaseInfo      *DiseaseInfo       `json:"disease_info,omitempty"`
	AllPredictions   map[string]float64 `json:"all_predictions,omitempty"`
	Error            string             `json:"error,omitempty"`
}

// BatchPrediction pairs a prediction with the uploaded filename.
type BatchPrediction struct {
	Filename string `json:"filename"`
	Prediction
}

type batchResponse struct {
	Success bool              `json:"success"`
	Results []BatchPrediction `json:"results"`
	Error   string            `json:"error,omitempty"`
}

// ClassifierStatus reports model readiness.
type ClassifierStatus struct {
	Status      string   `json:"status"`
	ModelLoaded bool     `json:"model_loaded"`
	Classes     []string `json:"classes,omitempty"`
}

// diseaseCatalog describes the corn leaf classes the model distinguishes.
// Served locally so the catalog works even when the classifier is down.
var diseaseCatalog = map[string]DiseaseInfo{
	"Blight": {
		Name:        "Northern Corn Leaf Blight",
		Description: "Long gray-green cigar-shaped lesions on leaves, spreading upward from the lower canopy in humid weather.",
		Treatment:   "Rotate away from corn for a season, plant resistant hybrids, apply a triazole or strobilurin fungicide at early onset.",
	},
	"Common_Rust": {
		Name:        "Common Rust",
		Description: "Small cinnamon-brown pustules scattered on both leaf surfaces, heaviest in cool moist conditions.",
		Treatment:   "Usually tolerable on mature plants; spray fungicide only if pustules appear before tasseling on susceptible hybrids.",
	},
	"Gray_Leaf_Spot": {
		Name:        "Gray Leaf Spot",
		Description: "Rectangular tan-to-gray lesions bounded by leaf veins, developing in prolonged leaf wetness.",
		Treatment:   "Improve residue management and airflow, consider fungicide between silking and early dough stage.",
	},
	"Healthy": {
		Name:        "Healthy",
		Description: "No visible disease symptoms.",
		Treatment:   "No action needed. Keep monitoring weekly during the rainy season.",
	},
}

// DiseaseService calls the external leaf image classifier.
type DiseaseService struct {
	client *resty.Client
}

func NewDiseaseService(baseURL string) *DiseaseService {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second)
	return &DiseaseService{client: client}
}

// Predict classifies a single leaf image. The classifier's own catalog entry
// wins; the local one fills in when the response omits it.
func (s *DiseaseService) Predict(ctx context.Context, filename string, image []byte) (*Prediction, error) {
	var result Prediction
	resp, err := s.client.R().
		SetContext(ctx).
		SetFileReader("file", filename, bytes.NewReader(image)).
		SetResult(&result).
		Post("/predict")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d", ErrClassifierUnavailable, resp.StatusCode())
	}
	if !result.Success {
		return nil, fmt.Errorf("%w: %s", ErrClassifierUnavailable, result.Error)
	}

	if result.DiseaseInfo == nil {
		if info, ok := diseaseCatalog[result.PredictedClass]; ok {
			result.DiseaseInfo = &info
		}
	}
	return &result, nil
}

// PredictBatch classifies up to a handful of images in one request.
func (s *DiseaseService) PredictBatch(ctx context.Context, images map[string][]byte) ([]BatchPrediction, error) {
	req := s.client.R().SetContext(ctx)
	for filename, data := range images {
		req.SetFileReader("files", filename, bytes.NewReader(data))
	}

	var result batchResponse
	resp, err := req.SetResult(&result).Post("/predict-batch")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d", ErrClassifierUnavailable, resp.StatusCode())
	}
	if !result.Success {
		return nil, fmt.Errorf("%w: %s", ErrClassifierUnavailable, result.Error)
	}

	for i := range result.Results {
		if result.Results[i].DiseaseInfo == nil {
			if info, ok := diseaseCatalog[result.Results[i].PredictedClass]; ok {
				result.Results[i].DiseaseInfo = &info
			}
		}
	}
	return result.Results, nil
}

// Status checks classifier health and model readiness.
func (s *DiseaseService) Status(ctx context.Context) (*ClassifierStatus, error) {
	var status ClassifierStatus
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&status).
		Get("/status")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d", ErrClassifierUnavailable, resp.StatusCode())
	}
	return &status, nil
}

// Catalog returns the local disease reference, keyed by class name.
func (s *DiseaseService) Catalog() map[string]DiseaseInfo {
	catalog := make(map[string]DiseaseInfo, len(diseaseCatalog))
	for class, info := range diseaseCatalog {
		catalog[class] = info
	}
	return catalog
}
