package features

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedCrop is matched by every UnsupportedCropError.
var ErrUnsupportedCrop = errors.New("unsupported crop")

// UnsupportedCropError is returned when a crop is absent from the active
// encoding. It is a client error and is never retried.
type UnsupportedCropError struct {
	Crop string
}

func (e *UnsupportedCropError) Error() string {
	return fmt.Sprintf("Unsupported crop: %s", e.Crop)
}

func (e *UnsupportedCropError) Is(target error) bool {
	return target == ErrUnsupportedCrop
}

// Vectorize maps rec onto the Columns order, applying defaults for the
// optional weather fields.
func Vectorize(rec FeatureRecord, enc CropEncoding) ([]float64, error) {
	crop := strings.ToLower(rec.Crop)
	code, ok := enc[crop]
	if !ok {
		return nil, &UnsupportedCropError{Crop: crop}
	}

	v := make([]float64, NumFeatures)
	v[ColArea] = rec.AreaHa
	v[ColSoilPH] = rec.SoilPH
	v[ColSoilMoisture] = rec.SoilMoisturePct
	v[ColOrganicMatter] = rec.OrganicMatterPct
	v[ColAvgTemp] = rec.AvgTemp()
	v[ColRainfall] = rec.Rainfall()
	v[ColCropCode] = float64(code)
	return v, nil
}
