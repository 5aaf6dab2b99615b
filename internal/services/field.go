package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/montanaflynn/stats"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"cropwise-backend/internal/models"
	"cropwise-backend/internal/store"
)

var (
	// ErrInvalidCoordinates is returned for a location outside valid
	// latitude/longitude ranges.
	ErrInvalidCoordinates = errors.New("latitude must be in [-90, 90] and longitude in [-180, 180]")

	// ErrNotFieldOwner is returned when a caller operates on a field they
	// do not own.
	ErrNotFieldOwner = errors.New("field belongs to another user")
)

const (
	scanGridRows = 8
	scanGridCols = 8

	// Cell scores below this threshold count as a stressed sector.
	stressedCellThreshold = 65.0
)

// FieldService manages the field registry and per-field drone health scans.
type FieldService struct {
	store store.Store
}

func NewFieldService(s store.Store) *FieldService {
	return &FieldService{store: s}
}

func (s *FieldService) Register(ctx context.Context, owner *models.User, field *models.Field) (*models.Field, error) {
	if field.Location != nil {
		lat, lon := field.Location.Latitude, field.Location.Longitude
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			return nil, ErrInvalidCoordinates
		}
	}

	field.ID = primitive.NilObjectID
	field.OwnerID = owner.ID
	field.Status = models.FieldStatusActive
	field.LastScan = nil
	field.CreatedAt = time.Now()

	if err := s.store.InsertField(ctx, field); err != nil {
		return nil, fmt.Errorf("insert field: %w", err)
	}
	return field, nil
}

func (s *FieldService) MyFields(ctx context.Context, ownerID primitive.ObjectID) ([]models.Field, error) {
	return s.store.FieldsByOwner(ctx, ownerID)
}

func (s *FieldService) Get(ctx context.Context, fieldID, callerID primitive.ObjectID) (*models.Field, error) {
	field, err := s.store.GetField(ctx, fieldID)
	if err != nil {
		return nil, err
	}
	if field.OwnerID != callerID {
		return nil, ErrNotFieldOwner
	}
	return field, nil
}

// RecordScan runs a simulated drone pass over the field, persists the result
// as the field's latest scan and returns it. Real drone ingestion would slot
// in behind the same ScanResult shape.
func (s *FieldService) RecordScan(ctx context.Context, fieldID, callerID primitive.ObjectID) (*models.ScanResult, error) {
	field, err := s.Get(ctx, fieldID, callerID)
	if err != nil {
		return nil, err
	}

	scan := simulateScan(field)
	if err := s.store.SetFieldScan(ctx, fieldID, scan); err != nil {
		return nil, fmt.Errorf("save scan: %w", err)
	}
	return scan, nil
}

func simulateScan(field *models.Field) *models.ScanResult {
	cells := make([]models.HeatCell, 0, scanGridRows*scanGridCols)
	scores := make([]float64, 0, scanGridRows*scanGridCols)
	var issues []string

	for row := 0; row < scanGridRows; row++ {
		for col := 0; col < scanGridCols; col++ {
			score := 78 + rand.Float64()*12
			// A few sectors show stress to make the heatmap useful.
			if rand.Float64() < 0.08 {
				score -= 20 + rand.Float64()*15
			}
			cells = append(cells, models.HeatCell{Row: row, Col: col, Score: score})
			scores = append(scores, score)

			if score < stressedCellThreshold {
				issues = append(issues, fmt.Sprintf("Low vigor in sector R%dC%d", row+1, col+1))
			}
		}
	}

	healthScore, err := stats.Mean(scores)
	if err != nil {
		healthScore = 0
	}

	return &models.ScanResult{
		ScanDate:    time.Now(),
		HealthScore: healthScore,
		Issues:      issues,
		Cells:       cells,
	}
}
