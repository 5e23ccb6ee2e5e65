// Package dashboard provides a live view of the prediction service. It
// streams every served prediction and a periodic per-crop summary to
// WebSocket clients, and serves the same summary as JSON.
package dashboard

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"agri-yield/internal/ml"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"
)

// recentWindow bounds the per-crop yield history used for summaries.
const recentWindow = 200

// CropStats summarises the recent predictions for one crop.
type CropStats struct {
	Count          int     `json:"count"`
	MeanYieldTons  float64 `json:"meanYieldTons"`
	StdYieldTons   float64 `json:"stdYieldTons"`
	MeanConfidence float64 `json:"meanConfidence"`
	LastYieldTons  float64 `json:"lastYieldTons"`
}

// Summary is the periodic dashboard snapshot.
type Summary struct {
	Timestamp        time.Time            `json:"timestamp"`
	ModelLib         string               `json:"modelLib"`
	ModelVersion     string               `json:"modelVersion"`
	ModelAgeSeconds  float64              `json:"modelAgeSeconds"`
	TotalPredictions int                  `json:"totalPredictions"`
	Crops            map[string]CropStats `json:"crops"`
	ConnectedClients int                  `json:"connectedClients"`
}

// Message is the envelope written to WebSocket clients.
type Message struct {
	Type string `json:"type"` // "prediction" or "summary"
	Data any    `json:"data"`
}

type cropWindow struct {
	count       int
	yields      []float64
	confidences []float64
}

func (cw *cropWindow) add(yield, confidence float64) {
	cw.count++
	cw.yields = append(cw.yields, yield)
	cw.confidences = append(cw.confidences, confidence)
	if len(cw.yields) > recentWindow {
		cw.yields = cw.yields[1:]
		cw.confidences = cw.confidences[1:]
	}
}

// Dashboard streams live predictions. It implements ml.PredictionRecorder
// so it can be handed straight to the predictor.
type Dashboard struct {
	models   ml.ModelSource
	interval time.Duration

	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex

	statsMu sync.RWMutex
	crops   map[string]*cropWindow
	total   int

	broadcastChannel chan Message
	stopChannel      chan struct{}
	isRunning        bool
	mu               sync.Mutex
}

// New creates a dashboard publishing a summary every interval.
func New(models ml.ModelSource, interval time.Duration) *Dashboard {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Dashboard{
		models:           models,
		interval:         interval,
		upgrader:         websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:          make(map[*websocket.Conn]bool),
		crops:            make(map[string]*cropWindow),
		broadcastChannel: make(chan Message, 100),
		stopChannel:      make(chan struct{}),
	}
}

// Register mounts the dashboard routes under /dashboard.
func (d *Dashboard) Register(r *mux.Router) {
	sub := r.PathPrefix("/dashboard").Subrouter()
	sub.HandleFunc("", d.handleDashboard).Methods(http.MethodGet)
	sub.HandleFunc("/", d.handleDashboard).Methods(http.MethodGet)
	sub.HandleFunc("/api/summary", d.handleSummaryAPI).Methods(http.MethodGet)
	sub.HandleFunc("/ws", d.handleWebSocket).Methods(http.MethodGet)
}

// Start launches the summary ticker and the broadcaster.
func (d *Dashboard) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.isRunning {
		return fmt.Errorf("dashboard is already running")
	}

	go d.summaryCollector()
	go d.clientBroadcaster()

	d.isRunning = true
	log.Info().Dur("interval", d.interval).Msg("dashboard started")
	return nil
}

// Stop halts broadcasting and disconnects every client.
func (d *Dashboard) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.isRunning {
		return nil
	}

	close(d.stopChannel)

	d.clientsMu.Lock()
	for client := range d.clients {
		client.Close()
	}
	d.clients = make(map[*websocket.Conn]bool)
	d.clientsMu.Unlock()

	d.isRunning = false
	log.Info().Msg("dashboard stopped")
	return nil
}

// RecordPrediction folds ev into the running statistics and queues it for
// broadcast. A full queue drops the event rather than slowing the caller.
func (d *Dashboard) RecordPrediction(ev ml.PredictionEvent) error {
	crop := strings.ToLower(strings.TrimSpace(ev.Record.Crop))

	d.statsMu.Lock()
	cw, ok := d.crops[crop]
	if !ok {
		cw = &cropWindow{}
		d.crops[crop] = cw
	}
	cw.add(ev.Result.YieldTons, ev.Result.Confidence)
	d.total++
	d.statsMu.Unlock()

	select {
	case d.broadcastChannel <- Message{Type: "prediction", Data: ev}:
	default:
		// Channel full, skip this update
	}
	return nil
}

// Summary computes the current snapshot.
func (d *Dashboard) Summary() Summary {
	s := Summary{
		Timestamp: time.Now().UTC(),
		Crops:     make(map[string]CropStats),
	}
	if art := d.models.Current(); art != nil {
		s.ModelLib = art.Meta.ModelLib
		s.ModelVersion = art.Meta.Version
		s.ModelAgeSeconds = time.Since(art.Meta.TrainedAt).Seconds()
	}

	d.statsMu.RLock()
	s.TotalPredictions = d.total
	for crop, cw := range d.crops {
		cs := CropStats{
			Count:          cw.count,
			MeanYieldTons:  stat.Mean(cw.yields, nil),
			MeanConfidence: stat.Mean(cw.confidences, nil),
			LastYieldTons:  cw.yields[len(cw.yields)-1],
		}
		if len(cw.yields) > 1 {
			cs.StdYieldTons = stat.StdDev(cw.yields, nil)
		}
		s.Crops[crop] = cs
	}
	d.statsMu.RUnlock()

	d.clientsMu.Lock()
	s.ConnectedClients = len(d.clients)
	d.clientsMu.Unlock()
	return s
}

// CropNames lists the crops seen so far, sorted.
func (d *Dashboard) CropNames() []string {
	d.statsMu.RLock()
	defer d.statsMu.RUnlock()
	names := make([]string, 0, len(d.crops))
	for crop := range d.crops {
		names = append(names, crop)
	}
	sort.Strings(names)
	return names
}

// summaryCollector publishes a summary every interval
func (d *Dashboard) summaryCollector() {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			select {
			case d.broadcastChannel <- Message{Type: "summary", Data: d.Summary()}:
			default:
				// Channel full, skip this update
			}
		case <-d.stopChannel:
			return
		}
	}
}

// clientBroadcaster fans queued messages out to all connected clients
func (d *Dashboard) clientBroadcaster() {
	for {
		select {
		case msg := <-d.broadcastChannel:
			d.broadcastToClients(msg)
		case <-d.stopChannel:
			return
		}
	}
}

func (d *Dashboard) broadcastToClients(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal dashboard message")
		return
	}

	d.clientsMu.Lock()
	defer d.clientsMu.Unlock()
	for client := range d.clients {
		client.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Warn().Err(err).Msg("dropping dashboard client")
			client.Close()
			delete(d.clients, client)
		}
	}
}

func (d *Dashboard) handleSummaryAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(d.Summary())
}

func (d *Dashboard) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	// The initial snapshot goes out before the client joins the broadcast
	// set so it is always the first message.
	if data, err := json.Marshal(Message{Type: "summary", Data: d.Summary()}); err == nil {
		conn.WriteMessage(websocket.TextMessage, data)
	}

	d.clientsMu.Lock()
	d.clients[conn] = true
	d.clientsMu.Unlock()

	// Keep connection alive
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	d.clientsMu.Lock()
	delete(d.clients, conn)
	d.clientsMu.Unlock()
}

var pageTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 20px; background-color: #f5f5f5; }
        .container { max-width: 1100px; margin: 0 auto; }
        .header { background: linear-gradient(135deg, #3a7d44 0%, #9dc08b 100%); color: white; padding: 20px; border-radius: 10px; margin-bottom: 20px; }
        .header h1 { margin: 0; text-align: center; }
        .card { background: white; border-radius: 10px; padding: 20px; margin-bottom: 20px; box-shadow: 0 4px 6px rgba(0,0,0,0.1); }
        table { width: 100%; border-collapse: collapse; }
        th, td { text-align: left; padding: 8px; border-bottom: 1px solid #eee; }
        th { background-color: #f8f9fa; }
    </style>
</head>
<body>
<div class="container">
    <div class="header"><h1>{{.Title}}</h1></div>
    <div class="card">
        <h3>Model</h3>
        <div>Library: <b id="model-lib">-</b> &middot; Version: <b id="model-version">-</b> &middot; Predictions: <b id="total">0</b></div>
    </div>
    <div class="card">
        <h3>Per crop</h3>
        <table><thead><tr><th>Crop</th><th>Count</th><th>Mean yield (t)</th><th>Std</th><th>Mean confidence</th></tr></thead>
        <tbody id="crops"></tbody></table>
    </div>
    <div class="card">
        <h3>Latest predictions</h3>
        <table><thead><tr><th>Time</th><th>Crop</th><th>Yield (t)</th><th>Confidence</th></tr></thead>
        <tbody id="feed"></tbody></table>
    </div>
</div>
<script>
    const proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
    const ws = new WebSocket(proto + location.host + '/dashboard/ws');
    function cell(row, text) { const td = document.createElement('td'); td.textContent = text; row.appendChild(td); }
    ws.onmessage = function (ev) {
        const msg = JSON.parse(ev.data);
        if (msg.type === 'summary') {
            const s = msg.data;
            document.getElementById('model-lib').textContent = s.modelLib || '-';
            document.getElementById('model-version').textContent = s.modelVersion || '-';
            document.getElementById('total').textContent = s.totalPredictions;
            const body = document.getElementById('crops');
            body.innerHTML = '';
            for (const [crop, c] of Object.entries(s.crops)) {
                const row = document.createElement('tr');
                cell(row, crop); cell(row, c.count); cell(row, c.meanYieldTons.toFixed(3));
                cell(row, c.stdYieldTons.toFixed(3)); cell(row, c.meanConfidence.toFixed(3));
                body.appendChild(row);
            }
        } else if (msg.type === 'prediction') {
            const p = msg.data;
            const row = document.createElement('tr');
            cell(row, p.timestamp); cell(row, p.record.crop);
            cell(row, p.result.yield_tons); cell(row, p.result.confidence);
            const feed = document.getElementById('feed');
            feed.insertBefore(row, feed.firstChild);
            while (feed.children.length > 25) { feed.removeChild(feed.lastChild); }
        }
    };
</script>
</body>
</html>
`))

func (d *Dashboard) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if err := pageTemplate.Execute(w, struct{ Title string }{"Agri Yield - Live Predictions"}); err != nil {
		log.Error().Err(err).Msg("failed to render dashboard")
	}
}
