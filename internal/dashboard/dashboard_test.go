package dashboard

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"agri-yield/internal/features"
	"agri-yield/internal/ml"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticModels struct{ art *ml.Artifact }

func (s staticModels) Current() *ml.Artifact { return s.art }

func testArtifact() *ml.Artifact {
	return &ml.Artifact{
		CropMap: features.DefaultCropEncoding(),
		Meta: ml.ArtifactMeta{
			ModelLib:  ml.LibRandomForest,
			Version:   "20250601-120000",
			TrainedAt: time.Now().Add(-time.Minute),
		},
	}
}

func event(crop string, yield, confidence float64) ml.PredictionEvent {
	return ml.PredictionEvent{
		ID:        "id-" + crop,
		Timestamp: time.Now().UTC(),
		Record:    features.FeatureRecord{Crop: crop, AreaHa: 1, SoilMoisturePct: 30},
		Result:    ml.PredictionResult{YieldTons: yield, Confidence: confidence},
		ModelLib:  ml.LibRandomForest,
	}
}

func newTestDashboard(t *testing.T, interval time.Duration) (*Dashboard, *httptest.Server) {
	t.Helper()
	d := New(staticModels{testArtifact()}, interval)
	r := mux.NewRouter()
	d.Register(r)
	require.NoError(t, d.Start())
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		d.Stop()
		srv.Close()
	})
	return d, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/dashboard/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg.Type, msg.Data
}

func TestSummary_Aggregates(t *testing.T) {
	d := New(staticModels{testArtifact()}, time.Second)

	require.NoError(t, d.RecordPrediction(event("Wheat", 2, 0.8)))
	require.NoError(t, d.RecordPrediction(event("wheat", 4, 0.9)))
	require.NoError(t, d.RecordPrediction(event("rice", 5, 0.7)))

	s := d.Summary()
	assert.Equal(t, 3, s.TotalPredictions)
	assert.Equal(t, ml.LibRandomForest, s.ModelLib)
	assert.Equal(t, "20250601-120000", s.ModelVersion)
	assert.Greater(t, s.ModelAgeSeconds, 0.0)

	wheat := s.Crops["wheat"]
	assert.Equal(t, 2, wheat.Count)
	assert.InDelta(t, 3.0, wheat.MeanYieldTons, 1e-12)
	assert.InDelta(t, 0.85, wheat.MeanConfidence, 1e-12)
	assert.Equal(t, 4.0, wheat.LastYieldTons)
	assert.Greater(t, wheat.StdYieldTons, 0.0)

	rice := s.Crops["rice"]
	assert.Equal(t, 1, rice.Count)
	assert.Zero(t, rice.StdYieldTons)

	assert.Equal(t, []string{"rice", "wheat"}, d.CropNames())
}

func TestSummary_WindowBounded(t *testing.T) {
	d := New(staticModels{}, time.Second)
	for i := 0; i < recentWindow+50; i++ {
		d.RecordPrediction(event("maize", float64(i), 0.5))
	}

	s := d.Summary()
	maize := s.Crops["maize"]
	assert.Equal(t, recentWindow+50, maize.Count)
	// Mean over the last recentWindow values: 50..249.
	assert.InDelta(t, 149.5, maize.MeanYieldTons, 1e-9)
	assert.Empty(t, s.ModelLib, "no model loaded")
}

func TestSummaryAPI(t *testing.T) {
	d, srv := newTestDashboard(t, time.Hour)
	d.RecordPrediction(event("cotton", 1.5, 0.6))

	resp, err := http.Get(srv.URL + "/dashboard/api/summary")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var s Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	assert.Equal(t, 1, s.TotalPredictions)
	assert.Equal(t, 1, s.Crops["cotton"].Count)
}

func TestDashboardPage(t *testing.T) {
	_, srv := newTestDashboard(t, time.Hour)

	resp, err := http.Get(srv.URL + "/dashboard")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(body), "Agri Yield - Live Predictions")
	assert.Contains(t, string(body), "/dashboard/ws")
}

func TestWebSocket_StreamsPredictions(t *testing.T) {
	d, srv := newTestDashboard(t, time.Hour)
	conn := dial(t, srv)

	typ, data := readMessage(t, conn)
	require.Equal(t, "summary", typ)
	var initial Summary
	require.NoError(t, json.Unmarshal(data, &initial))
	assert.Equal(t, ml.LibRandomForest, initial.ModelLib)

	require.Eventually(t, func() bool { return d.Summary().ConnectedClients == 1 },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, d.RecordPrediction(event("rice", 4.2, 0.75)))

	typ, data = readMessage(t, conn)
	require.Equal(t, "prediction", typ)
	var ev ml.PredictionEvent
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, "rice", ev.Record.Crop)
	assert.Equal(t, 4.2, ev.Result.YieldTons)
}

func TestWebSocket_PeriodicSummary(t *testing.T) {
	d, srv := newTestDashboard(t, 50*time.Millisecond)
	conn := dial(t, srv)

	typ, _ := readMessage(t, conn)
	require.Equal(t, "summary", typ)
	require.Eventually(t, func() bool { return d.Summary().ConnectedClients == 1 },
		2*time.Second, 10*time.Millisecond)

	typ, _ = readMessage(t, conn)
	assert.Equal(t, "summary", typ)
}

func TestStartStop(t *testing.T) {
	d := New(staticModels{}, time.Second)

	require.NoError(t, d.Start())
	assert.Error(t, d.Start(), "second start must fail")
	require.NoError(t, d.Stop())
	require.NoError(t, d.Stop(), "stopping twice is a no-op")
}

func TestImplementsPredictionRecorder(t *testing.T) {
	var _ ml.PredictionRecorder = (*Dashboard)(nil)
}
