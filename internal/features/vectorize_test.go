package features

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func float64Ptr(v float64) *float64 { return &v }

func baseRecord(crop string) FeatureRecord {
	return FeatureRecord{
		Crop:             crop,
		AreaHa:           1.0,
		SoilPH:           6.5,
		SoilMoisturePct:  30,
		OrganicMatterPct: 2.0,
	}
}

func TestVectorize_KnownCropsAnyCase(t *testing.T) {
	enc := DefaultCropEncoding()

	testCases := []struct {
		crop string
		code float64
	}{
		{"wheat", 0},
		{"Wheat", 0},
		{"RICE", 1},
		{"maize", 2},
		{"CoTtOn", 3},
	}

	for _, tc := range testCases {
		t.Run(tc.crop, func(t *testing.T) {
			v, err := Vectorize(baseRecord(tc.crop), enc)
			require.NoError(t, err)
			require.Len(t, v, NumFeatures)
			assert.Equal(t, tc.code, v[ColCropCode])
		})
	}
}

func TestVectorize_ColumnOrder(t *testing.T) {
	rec := FeatureRecord{
		Crop:              "rice",
		AreaHa:            2.5,
		SoilPH:            6.1,
		SoilMoisturePct:   22,
		OrganicMatterPct:  1.4,
		AvgTempC:          float64Ptr(27.5),
		RainfallLast30dMM: float64Ptr(80),
	}

	v, err := Vectorize(rec, DefaultCropEncoding())
	require.NoError(t, err)
	assert.Equal(t, []float64{2.5, 6.1, 22, 1.4, 27.5, 80, 1}, v)
}

func TestVectorize_Defaults(t *testing.T) {
	v, err := Vectorize(baseRecord("wheat"), DefaultCropEncoding())
	require.NoError(t, err)
	assert.Equal(t, DefaultAvgTempC, v[ColAvgTemp])
	assert.Equal(t, DefaultRainfallMM, v[ColRainfall])
}

func TestVectorize_UnsupportedCrop(t *testing.T) {
	for _, crop := range []string{"barley", "Barley", "", "wheat2", " wheat", "maize "} {
		t.Run(crop, func(t *testing.T) {
			v, err := Vectorize(baseRecord(crop), DefaultCropEncoding())
			require.Error(t, err)
			assert.Nil(t, v)
			assert.True(t, errors.Is(err, ErrUnsupportedCrop))

			var ucErr *UnsupportedCropError
			require.True(t, errors.As(err, &ucErr))
		})
	}

	_, err := Vectorize(baseRecord("Barley"), DefaultCropEncoding())
	assert.EqualError(t, err, "Unsupported crop: barley")
}

func TestVectorize_UsesGivenEncoding(t *testing.T) {
	enc := CropEncoding{"wheat": 0, "sorghum": 4}

	v, err := Vectorize(baseRecord("Sorghum"), enc)
	require.NoError(t, err)
	assert.Equal(t, 4.0, v[ColCropCode])

	_, err = Vectorize(baseRecord("rice"), enc)
	assert.ErrorIs(t, err, ErrUnsupportedCrop)
}

func TestColumns(t *testing.T) {
	assert.Equal(t, []string{
		"area_ha", "soil_ph", "soil_moisture_pct", "organic_matter_pct",
		"avg_temp_c", "rainfall_mm", "crop_code",
	}, ColumnNames())
	assert.True(t, SameColumns(ColumnNames()))
	assert.False(t, SameColumns([]string{"soil_ph", "area_ha"}))

	reordered := ColumnNames()
	reordered[0], reordered[1] = reordered[1], reordered[0]
	assert.False(t, SameColumns(reordered))
}

func TestCropEncoding(t *testing.T) {
	enc := DefaultCropEncoding()
	assert.Equal(t, []string{"wheat", "rice", "maize", "cotton"}, enc.Names())
	assert.True(t, enc.Equal(DefaultCropEncoding()))
	assert.False(t, enc.Equal(CropEncoding{"wheat": 0}))

	code, ok := enc.Code("MAIZE")
	assert.True(t, ok)
	assert.Equal(t, 2, code)
	_, ok = enc.Code(" maize")
	assert.False(t, ok)

	_, ok = enc.Code("barley")
	assert.False(t, ok)
}

func TestFeatureRecord_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(r *FeatureRecord)
		wantErr string
	}{
		{"valid", func(r *FeatureRecord) {}, ""},
		{"zero area", func(r *FeatureRecord) { r.AreaHa = 0 }, "areaHa"},
		{"negative area", func(r *FeatureRecord) { r.AreaHa = -1 }, "areaHa"},
		{"moisture above 100", func(r *FeatureRecord) { r.SoilMoisturePct = 101 }, "soil_moisture_pct"},
		{"negative moisture", func(r *FeatureRecord) { r.SoilMoisturePct = -0.1 }, "soil_moisture_pct"},
		{"negative organic", func(r *FeatureRecord) { r.OrganicMatterPct = -1 }, "organic_matter_pct"},
		{"negative rainfall", func(r *FeatureRecord) { r.RainfallLast30dMM = float64Ptr(-5) }, "rainfall_last_30d_mm"},
		{"zero rainfall", func(r *FeatureRecord) { r.RainfallLast30dMM = float64Ptr(0) }, ""},
		{"moisture at 100", func(r *FeatureRecord) { r.SoilMoisturePct = 100 }, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := baseRecord("wheat")
			tc.mutate(&rec)
			err := rec.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRecord)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
