package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeatherByCoords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/data/2.5/weather", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("appid"))
		assert.Equal(t, "metric", q.Get("units"))
		assert.NotEmpty(t, q.Get("lat"))
		assert.NotEmpty(t, q.Get("lon"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"name": "Hanoi",
			"weather": [{"description": "light rain"}],
			"main": {"temp": 28.4, "humidity": 88},
			"wind": {"speed": 3.1},
			"rain": {"1h": 0.8}
		}`))
	}))
	defer server.Close()

	svc := NewWeatherService(server.URL, "test-key", nil)
	report, err := svc.ByCoords(context.Background(), 21.0285, 105.8048)
	require.NoError(t, err)
	assert.Equal(t, "Hanoi", report.City)
	assert.Equal(t, "light rain", report.Description)
	assert.InDelta(t, 28.4, report.TempC, 1e-9)
	assert.Equal(t, 88, report.Humidity)
	assert.InDelta(t, 3.1, report.WindSpeed, 1e-9)
	assert.InDelta(t, 0.8, report.RainMM, 1e-9)
	assert.False(t, report.FetchedAt.IsZero())
}

func TestWeatherByCoordsUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"cod":401,"message":"Invalid API key"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	svc := NewWeatherService(server.URL, "bad-key", nil)
	_, err := svc.ByCoords(context.Background(), 21.0285, 105.8048)
	assert.ErrorIs(t, err, ErrWeatherUnavailable)
}
