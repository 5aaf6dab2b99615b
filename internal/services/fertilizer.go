package services

import (
	"errors"
	"strings"
)

var (
	// ErrUnknownCrop is returned when no rate table exists for the crop.
	ErrUnknownCrop = errors.New("no fertilizer table for this crop")

	// ErrUnknownStage is returned for a growth stage outside the table.
	ErrUnknownStage = errors.New("unknown growth stage")

	// ErrInvalidArea is returned for a non-positive field area.
	ErrInvalidArea = errors.New("area must be positive")
)

// Nutrient content of the commercial products the recommendation is quoted
// in: urea 46% N, DAP 18-46-0, KCl (MOP) 0-0-60.
const (
	ureaNitrogen    = 0.46
	dapNitrogen     = 0.18
	dapPhosphate    = 0.46
	potashPotassium = 0.60
)

// npkRate is pure nutrient demand in kg per hectare for one growth stage.
type npkRate struct {
	N, P2O5, K2O float64
}

// Per-crop, per-stage nutrient tables based on common extension-service
// recommendations for the region's staple crops.
var fertilizerTables = map[string]map[string]npkRate{
	"rice": {
		"basal":     {N: 40, P2O5: 60, K2O: 30},
		"tillering": {N: 40, P2O5: 0, K2O: 0},
		"panicle":   {N: 20, P2O5: 0, K2O: 30},
	},
	"corn": {
		"basal":     {N: 50, P2O5: 70, K2O: 40},
		"v6":        {N: 60, P2O5: 0, K2O: 20},
		"tasseling": {N: 40, P2O5: 0, K2O: 30},
	},
	"coffee": {
		"early-rain": {N: 70, P2O5: 40, K2O: 60},
		"mid-rain":   {N: 80, P2O5: 20, K2O: 80},
		"late-rain":  {N: 60, P2O5: 20, K2O: 90},
	},
}

// FertilizerPlan is a stage recommendation scaled to the field area,
// expressed both as nutrients and as commercial product weights.
type FertilizerPlan struct {
	Crop   string  `json:"crop"`
	Stage  string  `json:"stage"`
	AreaHa float64 `json:"area_ha"`

	NitrogenKg  float64 `json:"nitrogen_kg"`
	PhosphateKg float64 `json:"phosphate_kg"`
	PotassiumKg float64 `json:"potassium_kg"`

	DAPKg  float64 `json:"dap_kg"`
	UreaKg float64 `json:"urea_kg"`
	KClKg  float64 `json:"kcl_kg"`
}

// FertilizerService turns the per-crop nutrient tables into product
// quantities. Pure arithmetic, no I/O.
type FertilizerService struct{}

func NewFertilizerService() *FertilizerService {
	return &FertilizerService{}
}

// Calculate scales the stage's nutrient rate to the area and converts it to
// product weights. Phosphate comes from DAP; the nitrogen DAP brings along
// is credited before topping up with urea; potassium comes from KCl.
func (s *FertilizerService) Calculate(crop, stage string, areaHa float64) (*FertilizerPlan, error) {
	if areaHa <= 0 {
		return nil, ErrInvalidArea
	}

	crop = strings.ToLower(strings.TrimSpace(crop))
	stage = strings.ToLower(strings.TrimSpace(stage))

	table, ok := fertilizerTables[crop]
	if !ok {
		return nil, ErrUnknownCrop
	}
	rate, ok := table[stage]
	if !ok {
		return nil, ErrUnknownStage
	}

	n := rate.N * areaHa
	p := rate.P2O5 * areaHa
	k := rate.K2O * areaHa

	dap := p / dapPhosphate
	nFromDAP := dap * dapNitrogen
	urea := 0.0
	if n > nFromDAP {
		urea = (n - nFromDAP) / ureaNitrogen
	}
	kcl := k / potashPotassium

	return &FertilizerPlan{
		Crop:        crop,
		Stage:       stage,
		AreaHa:      areaHa,
		NitrogenKg:  n,
		PhosphateKg: p,
		PotassiumKg: k,
		DAPKg:       dap,
		UreaKg:      urea,
		KClKg:       kcl,
	}, nil
}

// Stages lists the growth stages available for a crop, for form dropdowns.
func (s *FertilizerService) Stages(crop string) ([]string, error) {
	table, ok := fertilizerTables[strings.ToLower(strings.TrimSpace(crop))]
	if !ok {
		return nil, ErrUnknownCrop
	}
	stages := make([]string, 0, len(table))
	for stage := range table {
		stages = append(stages, stage)
	}
	return stages, nil
}
