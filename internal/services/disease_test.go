package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiseasePredict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/predict", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "leaf.jpg", header.Filename)

		json.NewEncoder(w).Encode(Prediction{
			Success:        true,
			PredictedClass: "Common_Rust",
			Confidence:     0.93,
			AllPredictions: map[string]float64{
				"Common_Rust": 0.93,
				"Healthy":     0.05,
			},
		})
	}))
	defer server.Close()

	svc := NewDiseaseService(server.URL)
	result, err := svc.Predict(context.Background(), "leaf.jpg", []byte("jpegdata"))
	require.NoError(t, err)
	assert.Equal(t, "Common_Rust", result.PredictedClass)
	assert.InDelta(t, 0.93, result.Confidence, 1e-9)

	// Catalog entry filled in locally when the classifier omits it.
	require.NotNil(t, result.DiseaseInfo)
	assert.Equal(t, "Common Rust", result.DiseaseInfo.Name)
}

func TestDiseasePredictClassifierError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Prediction{Success: false, Error: "model not loaded"})
	}))
	defer server.Close()

	svc := NewDiseaseService(server.URL)
	_, err := svc.Predict(context.Background(), "leaf.jpg", []byte("x"))
	assert.ErrorIs(t, err, ErrClassifierUnavailable)
}

func TestDiseasePredictUpstreamDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := NewDiseaseService(server.URL)
	_, err := svc.Predict(context.Background(), "leaf.jpg", []byte("x"))
	assert.ErrorIs(t, err, ErrClassifierUnavailable)
}

func TestDiseasePredictBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/predict-batch", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Len(t, r.MultipartForm.File["files"], 2)

		json.NewEncoder(w).Encode(batchResponse{
			Success: true,
			Results: []BatchPrediction{
				{Filename: "a.jpg", Prediction: Prediction{Success: true, PredictedClass: "Healthy", Confidence: 0.97}},
				{Filename: "b.jpg", Prediction: Prediction{Success: true, PredictedClass: "Blight", Confidence: 0.81}},
			},
		})
	}))
	defer server.Close()

	svc := NewDiseaseService(server.URL)
	results, err := svc.PredictBatch(context.Background(), map[string][]byte{
		"a.jpg": []byte("a"),
		"b.jpg": []byte("b"),
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.NotNil(t, r.DiseaseInfo)
	}
}

func TestDiseaseStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/status", r.URL.Path)
		json.NewEncoder(w).Encode(ClassifierStatus{
			Status:      "ok",
			ModelLoaded: true,
			Classes:     []string{"Blight", "Common_Rust", "Gray_Leaf_Spot", "Healthy"},
		})
	}))
	defer server.Close()

	svc := NewDiseaseService(server.URL)
	status, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.ModelLoaded)
	assert.Len(t, status.Classes, 4)
}

func TestDiseaseCatalog(t *testing.T) {
	svc := NewDiseaseService("http://unused")
	catalog := svc.Catalog()
	require.Len(t, catalog, 4)
	assert.Contains(t, catalog, "Gray_Leaf_Spot")
	assert.NotEmpty(t, catalog["Blight"].Treatment)
}
