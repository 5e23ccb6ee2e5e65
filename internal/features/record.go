package features

import (
	"errors"
	"fmt"
	"math"
)

// Defaults substituted for optional weather fields.
const (
	DefaultAvgTempC   = 25.0
	DefaultRainfallMM = 50.0
)

// ErrInvalidRecord is matched by every ValidationError.
var ErrInvalidRecord = errors.New("invalid feature record")

// FeatureRecord is a single farm observation submitted for prediction.
type FeatureRecord struct {
	Crop              string   `json:"crop"`
	AreaHa            float64  `json:"areaHa"`
	SoilPH            float64  `json:"soil_ph"`
	SoilMoisturePct   float64  `json:"soil_moisture_pct"`
	OrganicMatterPct  float64  `json:"organic_matter_pct"`
	AvgTempC          *float64 `json:"avg_temp_c,omitempty"`
	RainfallLast30dMM *float64 `json:"rainfall_last_30d_mm,omitempty"`
}

// ValidationError reports a field outside its accepted range.
type ValidationError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s=%g: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRecord
}

// Validate checks numeric ranges. Crop membership is checked by Vectorize
// against the active encoding, not here.
func (r FeatureRecord) Validate() error {
	numeric := []struct {
		name string
		v    float64
	}{
		{"areaHa", r.AreaHa},
		{"soil_ph", r.SoilPH},
		{"soil_moisture_pct", r.SoilMoisturePct},
		{"organic_matter_pct", r.OrganicMatterPct},
	}
	for _, f := range numeric {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &ValidationError{Field: f.name, Value: f.v, Reason: "must be finite"}
		}
	}

	if r.AreaHa <= 0 {
		return &ValidationError{Field: "areaHa", Value: r.AreaHa, Reason: "must be greater than 0"}
	}
	if r.SoilMoisturePct < 0 || r.SoilMoisturePct > 100 {
		return &ValidationError{Field: "soil_moisture_pct", Value: r.SoilMoisturePct, Reason: "must be between 0 and 100"}
	}
	if r.OrganicMatterPct < 0 {
		return &ValidationError{Field: "organic_matter_pct", Value: r.OrganicMatterPct, Reason: "must not be negative"}
	}
	if r.AvgTempC != nil && (math.IsNaN(*r.AvgTempC) || math.IsInf(*r.AvgTempC, 0)) {
		return &ValidationError{Field: "avg_temp_c", Value: *r.AvgTempC, Reason: "must be finite"}
	}
	if r.RainfallLast30dMM != nil {
		v := *r.RainfallLast30dMM
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return &ValidationError{Field: "rainfall_last_30d_mm", Value: v, Reason: "must be a finite value >= 0"}
		}
	}
	return nil
}

// AvgTemp returns the average temperature or its default.
func (r FeatureRecord) AvgTemp() float64 {
	if r.AvgTempC != nil {
		return *r.AvgTempC
	}
	return DefaultAvgTempC
}

// Rainfall returns the 30-day rainfall or its default.
func (r FeatureRecord) Rainfall() float64 {
	if r.RainfallLast30dMM != nil {
		return *r.RainfallLast30dMM
	}
	return DefaultRainfallMM
}
