package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Dv04/aixavier/internal/events"
)

// RecordEvent stores r. Records are keyed by event_id; storing the same
// event twice is a no-op.
func (db *DB) RecordEvent(ctx context.Context, r events.Record) error {
	id := r.EnsureID()
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode %s record: %w", r.Type, err)
	}

	var trackID, frameIndex sql.NullInt64
	if v, ok := r.TrackID(); ok {
		trackID = sql.NullInt64{Int64: v, Valid: true}
	}
	if v, ok := r.Int64(events.FieldFrameIndex); ok {
		frameIndex = sql.NullInt64{Int64: v, Valid: true}
	}
	var ts sql.NullFloat64
	if v, ok := r.Timestamp(); ok {
		ts = sql.NullFloat64{Float64: v, Valid: true}
	}

	_, err = db.ExecContext(ctx, `
		INSERT OR IGNORE INTO events (event_id, type, camera_id, track_id, timestamp, frame_index, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, r.Type, r.CameraID(), trackID, ts, frameIndex, string(payload))
	if err != nil {
		return fmt.Errorf("insert event %s: %w", id, err)
	}
	return nil
}

// Publish implements events.Sink.
func (db *DB) Publish(ctx context.Context, r events.Record) error {
	return db.RecordEvent(ctx, r)
}

// EventQuery filters Events. Zero fields match everything.
type EventQuery struct {
	Type     string
	CameraID string
	Since    float64 // minimum timestamp
	Limit    int     // defaults to 500
}

// Events returns stored records, newest first.
func (db *DB) Events(ctx context.Context, q EventQuery) ([]events.Record, error) {
	var where []string
	var args []any
	if q.Type != "" {
		where = append(where, "type = ?")
		args = append(args, q.Type)
	}
	if q.CameraID != "" {
		where = append(where, "camera_id = ?")
		args = append(args, q.CameraID)
	}
	if q.Since > 0 {
		where = append(where, "timestamp >= ?")
		args = append(args, q.Since)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 500
	}

	query := "SELECT payload FROM events"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []events.Record
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var r events.Record
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			opsf("skipping undecodable stored event: %v", err)
			continue
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// EventCounts returns the number of stored records per type.
func (db *DB) EventCounts(ctx context.Context) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, "SELECT type, COUNT(*) FROM events GROUP BY type")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		counts[typ] = n
	}
	return counts, rows.Err()
}
