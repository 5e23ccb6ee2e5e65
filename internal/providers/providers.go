// Package providers supplies current weather and soil readings. The
// implementations here are fixed mocks standing in for a weather API and a
// soil sensor network.
package providers

import "context"

// WeatherSummary is the short-range outlook for a location.
type WeatherSummary struct {
	TempC           float64 `json:"tempC"`
	RainNext7DaysMM float64 `json:"rainNext7DaysMm"`
	Condition       string  `json:"condition"`
}

// SoilMetrics are the latest readings for a plot.
type SoilMetrics struct {
	PH               float64 `json:"ph"`
	MoisturePct      float64 `json:"moisturePct"`
	OrganicMatterPct float64 `json:"organicMatterPct"`
}

// Location optionally pins a weather lookup to coordinates.
type Location struct {
	Lat *float64
	Lon *float64
}

type WeatherProvider interface {
	Weather(ctx context.Context, loc Location) (WeatherSummary, error)
}

type SoilProvider interface {
	Soil(ctx context.Context, plotID string) (SoilMetrics, error)
}

// MockWeather always reports the same mild, partly cloudy outlook.
type MockWeather struct{}

func (MockWeather) Weather(ctx context.Context, _ Location) (WeatherSummary, error) {
	if err := ctx.Err(); err != nil {
		return WeatherSummary{}, err
	}
	return WeatherSummary{
		TempC:           28.5,
		RainNext7DaysMM: 15,
		Condition:       "Partly cloudy",
	}, nil
}

// MockSoil always reports the same slightly acidic, dry loam.
type MockSoil struct{}

func (MockSoil) Soil(ctx context.Context, _ string) (SoilMetrics, error) {
	if err := ctx.Err(); err != nil {
		return SoilMetrics{}, err
	}
	return SoilMetrics{
		PH:               6.4,
		MoisturePct:      23,
		OrganicMatterPct: 1.9,
	}, nil
}
