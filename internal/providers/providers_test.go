package providers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockWeather(t *testing.T) {
	lat, lon := 52.1, 5.3
	w, err := MockWeather{}.Weather(context.Background(), Location{Lat: &lat, Lon: &lon})
	require.NoError(t, err)
	assert.Equal(t, WeatherSummary{TempC: 28.5, RainNext7DaysMM: 15, Condition: "Partly cloudy"}, w)

	data, err := json.Marshal(w)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tempC":28.5,"rainNext7DaysMm":15,"condition":"Partly cloudy"}`, string(data))
}

func TestMockSoil(t *testing.T) {
	s, err := MockSoil{}.Soil(context.Background(), "plot-7")
	require.NoError(t, err)

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ph":6.4,"moisturePct":23,"organicMatterPct":1.9}`, string(data))
}

func TestMockProviders_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := MockWeather{}.Weather(ctx, Location{})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = MockSoil{}.Soil(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
}
