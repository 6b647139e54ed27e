// Package monitor is the HTTP surface of the strixd daemon: health and
// status pages, the sensor registry, recorded events, traffic
// statistics, replay control, and rate charts.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/strix-photonics/strix-sdk-go/internal/store"
	"github.com/strix-photonics/strix-sdk-go/strixsdk"
)

// WebServer handles the HTTP interface for monitoring a running SDK
// instance. Store may be nil, in which case the event and chart
// endpoints report that no database is configured.
type WebServer struct {
	address   string
	sdk       *strixsdk.SDK
	store     *store.Store
	stats     *PacketStats
	sessionID string
	udpPort   int
	server    *http.Server
}

// WebServerConfig contains configuration options for the web server
type WebServerConfig struct {
	Address   string
	SDK       *strixsdk.SDK
	Store     *store.Store
	Stats     *PacketStats
	SessionID string
	UDPPort   int
}

// NewWebServer creates a new web server with the provided configuration
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address:   config.Address,
		sdk:       config.SDK,
		store:     config.Store,
		stats:     config.Stats,
		sessionID: config.SessionID,
		udpPort:   config.UDPPort,
	}

	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}

	return ws
}

func (ws *WebServer) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("JSON encoding error: %v", err)
	}
}

func (ws *WebServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Start begins the HTTP server in a goroutine and handles graceful shutdown
func (ws *WebServer) Start(ctx context.Context) error {
	go func() {
		log.Printf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Wait for context cancellation to shut down server
	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}

	log.Printf("HTTP server routine stopped")
	return nil
}

// Close shuts down the web server
func (ws *WebServer) Close() error {
	if ws.server != nil {
		return ws.server.Close()
	}
	return nil
}

// setupRoutes configures the HTTP routes and handlers
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/", ws.handleStatus)
	mux.HandleFunc("/api/sensors", ws.handleSensors)
	mux.HandleFunc("/api/events", ws.handleEvents)
	mux.HandleFunc("/api/stats", ws.handleStats)
	mux.HandleFunc("/api/replay/start", ws.handleReplayStart)
	mux.HandleFunc("/api/replay/stop", ws.handleReplayStop)
	mux.HandleFunc("/api/replay/pause", ws.handleReplayPause)
	mux.HandleFunc("/api/replay/resume", ws.handleReplayResume)
	mux.HandleFunc("/api/replay/seek", ws.handleReplaySeek)
	mux.HandleFunc("/api/replay/speed", ws.handleReplaySpeed)
	mux.HandleFunc("/api/replay/status", ws.handleReplayStatus)
	mux.HandleFunc("/charts/rates", ws.handleRatesChart)

	return mux
}

// handleHealth handles the health check endpoint
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "ok", "service": "strixd", "timestamp": "%s"}`, time.Now().UTC().Format(time.RFC3339))
}

// handleStatus handles the main status page endpoint
func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")

	uptime := "n/a"
	if ws.stats != nil {
		uptime = ws.stats.GetUptime().Round(time.Second).String()
	}

	fmt.Fprintf(w, `
<!DOCTYPE html>
<html>
<head><title>strixd</title></head>
<body>
	<h1>strixd</h1>
	<p>SDK %s, listening on UDP port %d</p>
	<p>Session %s, up %s, %d sensors</p>
	<ul>
		<li><a href="/health">Health check</a></li>
		<li><a href="/api/sensors">Sensors</a></li>
		<li><a href="/api/events">Events</a></li>
		<li><a href="/api/stats">Statistics</a></li>
		<li><a href="/api/replay/status">Replay status</a></li>
		<li><a href="/charts/rates">Rate chart</a></li>
	</ul>
</body>
</html>`, strixsdk.VersionString, ws.udpPort, ws.sessionID, uptime, ws.sdk.SensorCount())
}

// sensorSummary is the JSON shape of one registry entry.
type sensorSummary struct {
	Handle              string   `json:"handle"`
	SerialNumber        uint64   `json:"serial_number"`
	Model               string   `json:"model,omitempty"`
	FirmwareVersion     string   `json:"firmware_version,omitempty"`
	UptimeSeconds       uint32   `json:"uptime_seconds,omitempty"`
	TemperatureMilliC   int32    `json:"temperature_mc,omitempty"`
	MotorRPM            uint16   `json:"motor_rpm,omitempty"`
	Faults              []string `json:"faults,omitempty"`
	SegmentCount        int      `json:"segment_count"`
	ReturnCount         int      `json:"return_count"`
	LastTimestampMicros int64    `json:"last_timestamp_micros"`
	PacketCount         uint64   `json:"packet_count"`
	PointCount          uint64   `json:"point_count"`
	IsMock              bool     `json:"is_mock"`
}

// handleSensors returns a JSON array of every sensor the SDK has heard
// from.
func (ws *WebServer) handleSensors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	summaries := []sensorSummary{}
	for i := 0; i < ws.sdk.SensorCount(); i++ {
		info, cerr := ws.sdk.SensorInformationByIndex(i)
		if cerr != nil {
			// Registry shrank under a concurrent Clear.
			cerr.Ignore()
			break
		}
		s := sensorSummary{
			Handle:              info.Handle.String(),
			SerialNumber:        info.SerialNumber,
			Model:               info.Model,
			FirmwareVersion:     info.FirmwareVersion,
			UptimeSeconds:       info.UptimeSeconds,
			TemperatureMilliC:   info.TemperatureMilliC,
			MotorRPM:            info.MotorRPM,
			SegmentCount:        info.SegmentCount,
			ReturnCount:         info.ReturnCount,
			LastTimestampMicros: info.LastTimestampMicros,
			PacketCount:         info.PacketCount,
			PointCount:          info.PointCount,
			IsMock:              info.IsMock,
		}
		for _, code := range info.Faults {
			s.Faults = append(s.Faults, code.Name())
		}
		summaries = append(summaries, s)
	}

	ws.writeJSON(w, http.StatusOK, summaries)
}

// handleEvents returns recorded sensor events, newest first.
// Query params:
//   - session (optional; "current" selects the active session, default
//     spans all sessions)
//   - limit (optional; default 50, max 1000)
func (ws *WebServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if ws.store == nil {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}

	session := r.URL.Query().Get("session")
	if session == "current" {
		session = ws.sessionID
	}
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}

	events, err := ws.store.RecentEvents(session, limit)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("query events: %v", err))
		return
	}
	if events == nil {
		events = []store.SensorEvent{}
	}
	ws.writeJSON(w, http.StatusOK, events)
}

// handleStats returns daemon-level statistics: the latest traffic
// snapshot plus summary figures over the recorded rate series.
func (ws *WebServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	out := map[string]interface{}{
		"service":      "strixd",
		"sdk_version":  strixsdk.VersionString,
		"session_id":   ws.sessionID,
		"udp_port":     ws.udpPort,
		"sensor_count": ws.sdk.SensorCount(),
	}
	if ws.stats != nil {
		out["uptime_seconds"] = int64(ws.stats.GetUptime().Seconds())
		if snap := ws.stats.GetLatestSnapshot(); snap != nil {
			out["snapshot"] = snap
		}
	}

	if ws.store != nil {
		points, err := ws.store.RateSeries(ws.sessionID, 500)
		if err != nil {
			ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("query telemetry: %v", err))
			return
		}
		if len(points) > 0 {
			rates := make([]float64, len(points))
			for i, p := range points {
				rates[i] = p.PacketRate
			}
			out["packet_rate_mean"] = stat.Mean(rates, nil)
			out["packet_rate_max"] = floats.Max(rates)
			out["rate_samples"] = len(points)
		}
	}

	ws.writeJSON(w, http.StatusOK, out)
}
