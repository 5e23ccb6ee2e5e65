package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePredictFlags(t *testing.T) {
	rec, err := parsePredictFlags([]string{"-crop", "Wheat", "-area", "1.5", "-ph", "6.5", "-moisture", "30", "-organic", "2"})
	require.NoError(t, err)
	assert.Equal(t, "Wheat", rec.Crop)
	assert.Equal(t, 1.5, rec.AreaHa)
	assert.Equal(t, 30.0, rec.SoilMoisturePct)
	assert.Nil(t, rec.AvgTempC, "unset weather flags stay absent")
	assert.Nil(t, rec.RainfallLast30dMM)

	rec, err = parsePredictFlags([]string{"-crop", "rice", "-area", "1", "-rain", "120"})
	require.NoError(t, err)
	require.NotNil(t, rec.RainfallLast30dMM)
	assert.Equal(t, 120.0, *rec.RainfallLast30dMM)
	assert.Nil(t, rec.AvgTempC)
}

func TestParsePredictFlags_Errors(t *testing.T) {
	_, err := parsePredictFlags([]string{"-area", "1"})
	assert.ErrorContains(t, err, "-crop is required")

	_, err = parsePredictFlags([]string{"-crop", "rice", "-area", "lots"})
	assert.Error(t, err)
}
