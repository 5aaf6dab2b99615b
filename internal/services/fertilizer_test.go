package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFertilizerCalculateRiceBasal(t *testing.T) {
	svc := NewFertilizerService()

	plan, err := svc.Calculate("rice", "basal", 2)
	require.NoError(t, err)

	// 2 ha at 40-60-30 kg/ha.
	assert.InDelta(t, 80, plan.NitrogenKg, 1e-9)
	assert.InDelta(t, 120, plan.PhosphateKg, 1e-9)
	assert.InDelta(t, 60, plan.PotassiumKg, 1e-9)

	// All phosphate from DAP: 120 / 0.46.
	assert.InDelta(t, 120/0.46, plan.DAPKg, 1e-9)
	// DAP carries 18% N; urea tops up the rest at 46% N.
	nFromDAP := plan.DAPKg * 0.18
	assert.InDelta(t, (80-nFromDAP)/0.46, plan.UreaKg, 1e-9)
	// Potassium from KCl at 60% K2O.
	assert.InDelta(t, 100, plan.KClKg, 1e-9)
}

func TestFertilizerCalculateTopDressingHasNoDAP(t *testing.T) {
	svc := NewFertilizerService()

	// Tillering top dressing is nitrogen only.
	plan, err := svc.Calculate("rice", "tillering", 1.5)
	require.NoError(t, err)
	assert.Zero(t, plan.DAPKg)
	assert.Zero(t, plan.KClKg)
	assert.InDelta(t, 60/0.46, plan.UreaKg, 1e-9)
}

func TestFertilizerCalculateNormalizesInput(t *testing.T) {
	svc := NewFertilizerService()

	plan, err := svc.Calculate("  Corn ", "V6", 1)
	require.NoError(t, err)
	assert.Equal(t, "corn", plan.Crop)
	assert.Equal(t, "v6", plan.Stage)
}

func TestFertilizerCalculateErrors(t *testing.T) {
	svc := NewFertilizerService()

	_, err := svc.Calculate("durian", "basal", 1)
	assert.ErrorIs(t, err, ErrUnknownCrop)

	_, err = svc.Calculate("rice", "flowering", 1)
	assert.ErrorIs(t, err, ErrUnknownStage)

	_, err = svc.Calculate("rice", "basal", 0)
	assert.ErrorIs(t, err, ErrInvalidArea)
}

func TestFertilizerStages(t *testing.T) {
	svc := NewFertilizerService()

	stages, err := svc.Stages("coffee")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"early-rain", "mid-rain", "late-rain"}, stages)

	_, err = svc.Stages("banana")
	assert.ErrorIs(t, err, ErrUnknownCrop)
}
