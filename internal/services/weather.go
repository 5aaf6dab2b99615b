package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-resty/resty/v2"
)

// ErrWeatherUnavailable wraps any failure from the weather provider.
var ErrWeatherUnavailable = errors.New("weather provider unavailable")

const weatherCacheTTL = 10 * time.Minute

// WeatherReport is the subset of the OpenWeather response the app shows.
type WeatherReport struct {
	City        string    `json:"city"`
	Description string    `json:"description"`
	TempC       float64   `json:"temp_c"`
	Humidity    int       `json:"humidity"`
	WindSpeed   float64   `json:"wind_speed"`
	RainMM      float64   `json:"rain_mm"`
	FetchedAt   time.Time `json:"fetched_at"`
}

type openWeatherResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Rain struct {
		OneHour float64 `json:"1h"`
	} `json:"rain"`
}

// WeatherService fetches current conditions by coordinates. With a Redis
// client configured, responses are cached per rounded coordinate pair so a
// cluster of nearby fields shares one upstream call.
type WeatherService struct {
	client *resty.Client
	apiKey string
	cache  *redis.Client
}

func NewWeatherService(baseURL, apiKey string, cache *redis.Client) *WeatherService {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second)
	return &WeatherService{client: client, apiKey: apiKey, cache: cache}
}

// ByCoords returns current weather at the location. Cache failures fall
// through to the provider.
func (s *WeatherService) ByCoords(ctx context.Context, lat, lon float64) (*WeatherReport, error) {
	key := fmt.Sprintf("weather:%.2f:%.2f", lat, lon)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key).Result(); err == nil {
			var report WeatherReport
			if err := json.Unmarshal([]byte(cached), &report); err == nil {
				return &report, nil
			}
		}
	}

	var raw openWeatherResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat":   fmt.Sprintf("%f", lat),
			"lon":   fmt.Sprintf("%f", lon),
			"appid": s.apiKey,
			"units": "metric",
		}).
		SetResult(&raw).
		Get("/data/2.5/weather")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWeatherUnavailable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d", ErrWeatherUnavailable, resp.StatusCode())
	}

	report := &WeatherReport{
		City:      raw.Name,
		TempC:     raw.Main.Temp,
		Humidity:  raw.Main.Humidity,
		WindSpeed: raw.Wind.Speed,
		RainMM:    raw.Rain.OneHour,
		FetchedAt: time.Now(),
	}
	if len(raw.Weather) > 0 {
		report.Description = raw.Weather[0].Description
	}

	if s.cache != nil {
		if data, err := json.Marshal(report); err == nil {
			if err := s.cache.Set(ctx, key, data, weatherCacheTTL).Err(); err != nil {
				log.Printf("⚠️ weather cache set failed: %v", err)
			}
		}
	}
	return report, nil
}
