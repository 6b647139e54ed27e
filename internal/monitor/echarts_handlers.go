package monitor

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/strix-photonics/strix-sdk-go/internal/store"
)

// handleRatesChart renders a line chart (HTML) of recorded telemetry
// rates using go-echarts, one series per sensor handle.
// Query params:
//   - metric (optional; packets, points or frames, default packets)
//   - session (optional; "current" selects the active session, default
//     spans all sessions)
//   - limit (optional; default 500, max 5000)
func (ws *WebServer) handleRatesChart(w http.ResponseWriter, r *http.Request) {
	if ws.store == nil {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}

	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = "packets"
	}
	var pick func(p store.RatePoint) float64
	switch metric {
	case "packets":
		pick = func(p store.RatePoint) float64 { return p.PacketRate }
	case "points":
		pick = func(p store.RatePoint) float64 { return p.PointRate }
	case "frames":
		pick = func(p store.RatePoint) float64 { return p.FrameRate }
	default:
		ws.writeJSONError(w, http.StatusBadRequest, "metric must be packets, points or frames")
		return
	}

	session := r.URL.Query().Get("session")
	if session == "current" {
		session = ws.sessionID
	}
	limit := 500
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 5000 {
			limit = parsed
		}
	}

	points, err := ws.store.RateSeries(session, limit)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("query telemetry: %v", err))
		return
	}
	if len(points) == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "no telemetry recorded")
		return
	}

	// One x-axis over the distinct sample times; one series per handle
	// with "-" filling the ticks a sensor missed.
	var ticks []int64
	seen := make(map[int64]bool)
	byHandle := make(map[string]map[int64]float64)
	for _, p := range points {
		if !seen[p.AtMicros] {
			seen[p.AtMicros] = true
			ticks = append(ticks, p.AtMicros)
		}
		m := byHandle[p.Handle]
		if m == nil {
			m = make(map[int64]float64)
			byHandle[p.Handle] = m
		}
		m[p.AtMicros] = pick(p)
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i] < ticks[j] })

	x := make([]string, len(ticks))
	for i, at := range ticks {
		x[i] = time.UnixMicro(at).Format("15:04:05")
	}

	handles := make([]string, 0, len(byHandle))
	for h := range byHandle {
		handles = append(handles, h)
	}
	sort.Strings(handles)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Strix Rates", Theme: "dark", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Sensor " + metric + "/s", Subtitle: fmt.Sprintf("session=%s samples=%d", session, len(points))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: metric + "/s"}),
	)
	line.SetXAxis(x)
	for _, h := range handles {
		m := byHandle[h]
		data := make([]opts.LineData, len(ticks))
		for i, at := range ticks {
			if v, ok := m[at]; ok {
				data[i] = opts.LineData{Value: v}
			} else {
				data[i] = opts.LineData{Value: "-"}
			}
		}
		line.AddSeries(h, data, charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	}

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
