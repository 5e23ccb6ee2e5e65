package features

import (
	"sort"
	"strings"
)

// Supported crops.
const (
	CropWheat  = "wheat"
	CropRice   = "rice"
	CropMaize  = "maize"
	CropCotton = "cotton"
)

// CropEncoding maps a lower-case crop name to its integer code.
type CropEncoding map[string]int

// DefaultCropEncoding returns the fixed encoding every model is trained with.
// Extending it requires retraining.
func DefaultCropEncoding() CropEncoding {
	return CropEncoding{
		CropWheat:  0,
		CropRice:   1,
		CropMaize:  2,
		CropCotton: 3,
	}
}

// Code resolves a crop name case-insensitively.
func (e CropEncoding) Code(crop string) (int, bool) {
	code, ok := e[strings.ToLower(crop)]
	return code, ok
}

// Names returns the known crop names ordered by code.
func (e CropEncoding) Names() []string {
	names := make([]string, 0, len(e))
	for n := range e {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return e[names[i]] < e[names[j]] })
	return names
}

// Equal reports whether both encodings hold the same entries.
func (e CropEncoding) Equal(other CropEncoding) bool {
	if len(e) != len(other) {
		return false
	}
	for k, v := range e {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}
