package monitor

import (
	"net/http"
	"strconv"

	"github.com/strix-photonics/strix-sdk-go/sensorerr"
)

// replayHTTPStatus maps replay error codes onto HTTP statuses.
func replayHTTPStatus(code sensorerr.Code) int {
	switch code {
	case sensorerr.ErrorInvalidArguments, sensorerr.ErrorInvalidFileType:
		return http.StatusBadRequest
	case sensorerr.ErrorNotOpen, sensorerr.ErrorEOF:
		return http.StatusConflict
	case sensorerr.ErrorNotInitialized:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (ws *WebServer) writeReplayError(w http.ResponseWriter, cerr *sensorerr.Error) {
	ws.writeJSONError(w, replayHTTPStatus(cerr.Code()), cerr.Error())
}

// handleReplayStart opens a capture and starts the asynchronous pump.
// Query params:
//   - path (required) capture file to open
//   - speed (optional) pacing multiplier
//   - loop (optional) "true" to rewind at the end
func (ws *WebServer) handleReplayStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		ws.writeJSONError(w, http.StatusBadRequest, "missing 'path' parameter")
		return
	}

	rp := ws.sdk.Replay()
	if cerr := rp.Open(path); cerr != nil {
		ws.writeReplayError(w, cerr)
		return
	}
	if s := r.URL.Query().Get("speed"); s != "" {
		speed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			ws.writeJSONError(w, http.StatusBadRequest, "invalid 'speed' parameter")
			return
		}
		if cerr := rp.SetSpeed(speed); cerr != nil {
			ws.writeReplayError(w, cerr)
			return
		}
	}
	rp.SetEnableLoop(r.URL.Query().Get("loop") == "true")

	if cerr := rp.Resume(); cerr != nil {
		ws.writeReplayError(w, cerr)
		return
	}
	ws.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"filename": rp.Filename(),
		"length":   rp.Length(),
		"speed":    rp.Speed(),
	})
}

// handleReplayStop closes the current capture.
func (ws *WebServer) handleReplayStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if cerr := ws.sdk.Replay().Close(); cerr != nil {
		ws.writeReplayError(w, cerr)
		return
	}
	ws.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReplayPause stops the pump, preserving position.
func (ws *WebServer) handleReplayPause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if cerr := ws.sdk.Replay().Pause(); cerr != nil {
		ws.writeReplayError(w, cerr)
		return
	}
	ws.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReplayResume restarts the pump from the current position.
func (ws *WebServer) handleReplayResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if cerr := ws.sdk.Replay().Resume(); cerr != nil {
		ws.writeReplayError(w, cerr)
		return
	}
	ws.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReplaySeek moves the replay position. Query params: either
// 'position' (absolute seconds from capture start) or 'delta' (seconds
// relative to the current position).
func (ws *WebServer) handleReplaySeek(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	rp := ws.sdk.Replay()

	if p := r.URL.Query().Get("position"); p != "" {
		position, err := strconv.ParseFloat(p, 64)
		if err != nil {
			ws.writeJSONError(w, http.StatusBadRequest, "invalid 'position' parameter")
			return
		}
		if cerr := rp.Seek(position); cerr != nil {
			ws.writeReplayError(w, cerr)
			return
		}
	} else if d := r.URL.Query().Get("delta"); d != "" {
		delta, err := strconv.ParseFloat(d, 64)
		if err != nil {
			ws.writeJSONError(w, http.StatusBadRequest, "invalid 'delta' parameter")
			return
		}
		if cerr := rp.SeekRelative(delta); cerr != nil {
			ws.writeReplayError(w, cerr)
			return
		}
	} else {
		ws.writeJSONError(w, http.StatusBadRequest, "missing 'position' or 'delta' parameter")
		return
	}

	ws.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"position": rp.Position(),
	})
}

// handleReplaySpeed sets the pacing multiplier. Query param: speed.
func (ws *WebServer) handleReplaySpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s := r.URL.Query().Get("speed")
	if s == "" {
		ws.writeJSONError(w, http.StatusBadRequest, "missing 'speed' parameter")
		return
	}
	speed, err := strconv.ParseFloat(s, 64)
	if err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, "invalid 'speed' parameter")
		return
	}
	if cerr := ws.sdk.Replay().SetSpeed(speed); cerr != nil {
		ws.writeReplayError(w, cerr)
		return
	}
	ws.writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "speed": speed})
}

// handleReplayStatus returns the full replay state.
func (ws *WebServer) handleReplayStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	rp := ws.sdk.Replay()
	ws.writeJSON(w, http.StatusOK, map[string]interface{}{
		"open":              rp.IsOpen(),
		"filename":          rp.Filename(),
		"position":          rp.Position(),
		"length":            rp.Length(),
		"speed":             rp.Speed(),
		"loop":              rp.EnableLoop(),
		"running":           rp.IsRunning(),
		"at_end":            rp.IsEnd(),
		"start_time_micros": rp.StartTimeMicros(),
		"time_micros":       rp.TimeMicros(),
	})
}
