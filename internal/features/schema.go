// Package features defines the yield model's input schema: the typed farm
// record accepted at the service boundary, the crop encoding persisted with
// every model, and the vectorizer that turns a record into the fixed-order
// numeric row the regressors are trained on.
//
// Columns is the single source of truth for column order. The synthetic
// generator, the trainer and the vectorizer all index through it, and every
// persisted artifact records it so a reordered schema is rejected on load.
package features

// Column indices into a feature vector.
const (
	ColArea = iota
	ColSoilPH
	ColSoilMoisture
	ColOrganicMatter
	ColAvgTemp
	ColRainfall
	ColCropCode

	// NumFeatures is the width of every feature vector.
	NumFeatures
)

// Columns names each vector position, in order.
var Columns = [NumFeatures]string{
	ColArea:          "area_ha",
	ColSoilPH:        "soil_ph",
	ColSoilMoisture:  "soil_moisture_pct",
	ColOrganicMatter: "organic_matter_pct",
	ColAvgTemp:       "avg_temp_c",
	ColRainfall:      "rainfall_mm",
	ColCropCode:      "crop_code",
}

// ColumnNames returns a copy of Columns as a slice.
func ColumnNames() []string {
	out := make([]string, NumFeatures)
	copy(out, Columns[:])
	return out
}

// SameColumns reports whether names matches Columns exactly.
func SameColumns(names []string) bool {
	if len(names) != NumFeatures {
		return false
	}
	for i, n := range names {
		if Columns[i] != n {
			return false
		}
	}
	return true
}
