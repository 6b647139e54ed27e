// Package store persists daemon state to SQLite: replay/listen
// sessions, sensor error and fault events, and periodic telemetry
// samples used for rate charting. The schema is versioned through
// embedded migrations.
package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type Store struct {
	*sql.DB
}

// Open opens (creating if needed) the database at path and applies any
// pending migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	s := &Store{db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return s, nil
}

// CreateSession records a new daemon session and returns its id.
func (s *Store) CreateSession(listenPort int, capturePath, notes string, atMicros int64) (string, error) {
	id := uuid.NewString()
	_, err := s.Exec(
		`INSERT INTO sessions (id, started_at_micros, listen_port, capture_path, notes)
		 VALUES (?, ?, ?, ?, ?)`,
		id, atMicros, listenPort, capturePath, notes,
	)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

// EndSession stamps the session's end time.
func (s *Store) EndSession(id string, atMicros int64) error {
	_, err := s.Exec(`UPDATE sessions SET ended_at_micros = ? WHERE id = ?`, atMicros, id)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// SensorEvent is one recorded error or fault.
type SensorEvent struct {
	ID        int64  `json:"id"`
	SessionID string `json:"session_id"`
	Handle    string `json:"handle"`
	Code      int32  `json:"code"`
	Name      string `json:"name"`
	Message   string `json:"message"`
	AtMicros  int64  `json:"at_micros"`
}

// RecordEvent stores one sensor error or fault.
func (s *Store) RecordEvent(sessionID, handle string, code int32, name, message string, atMicros int64) error {
	_, err := s.Exec(
		`INSERT INTO sensor_events (session_id, handle, code, name, message, at_micros)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, handle, code, name, message, atMicros,
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// RecentEvents returns the newest events first. An empty sessionID
// spans all sessions.
func (s *Store) RecentEvents(sessionID string, limit int) ([]SensorEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, session_id, handle, code, name, message, at_micros
		FROM sensor_events`
	args := []interface{}{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY at_micros DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []SensorEvent
	for rows.Next() {
		var e SensorEvent
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Handle, &e.Code, &e.Name, &e.Message, &e.AtMicros); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// TelemetrySample is one periodic snapshot of traffic rates and sensor
// health for a single sensor.
type TelemetrySample struct {
	SessionID         string  `json:"session_id"`
	Handle            string  `json:"handle"`
	Packets           uint64  `json:"packets"`
	Points            uint64  `json:"points"`
	Frames            uint64  `json:"frames"`
	PacketRate        float64 `json:"packet_rate"`
	PointRate         float64 `json:"point_rate"`
	FrameRate         float64 `json:"frame_rate"`
	TemperatureMilliC int32   `json:"temperature_mc"`
	MotorRPM          int     `json:"motor_rpm"`
	AtMicros          int64   `json:"at_micros"`
}

// RecordTelemetry stores one sample.
func (s *Store) RecordTelemetry(t TelemetrySample) error {
	_, err := s.Exec(
		`INSERT INTO telemetry (session_id, handle, packets, points, frames,
			packet_rate, point_rate, frame_rate, temperature_mc, motor_rpm, at_micros)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.SessionID, t.Handle, t.Packets, t.Points, t.Frames,
		t.PacketRate, t.PointRate, t.FrameRate, t.TemperatureMilliC, t.MotorRPM, t.AtMicros,
	)
	if err != nil {
		return fmt.Errorf("record telemetry: %w", err)
	}
	return nil
}

// RatePoint is one charting sample.
type RatePoint struct {
	AtMicros   int64   `json:"at_micros"`
	Handle     string  `json:"handle"`
	PacketRate float64 `json:"packet_rate"`
	PointRate  float64 `json:"point_rate"`
	FrameRate  float64 `json:"frame_rate"`
}

// RateSeries returns up to limit of the newest samples in ascending
// time order, ready for charting. An empty sessionID spans all
// sessions.
func (s *Store) RateSeries(sessionID string, limit int) ([]RatePoint, error) {
	if limit <= 0 {
		limit = 500
	}
	query := `SELECT at_micros, handle, packet_rate, point_rate, frame_rate FROM telemetry`
	args := []interface{}{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY at_micros DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query telemetry: %w", err)
	}
	defer rows.Close()

	var points []RatePoint
	for rows.Next() {
		var p RatePoint
		if err := rows.Scan(&p.AtMicros, &p.Handle, &p.PacketRate, &p.PointRate, &p.FrameRate); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}
