package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strconv"

	"github.com/google/uuid"
)

// Well-known record fields.
const (
	FieldType       = "type"
	FieldEventID    = "event_id"
	FieldCameraID   = "camera_id"
	FieldTrackID    = "track_id"
	FieldTimestamp  = "timestamp"
	FieldFrameIndex = "frame_index"
	FieldConfidence = "confidence"
	FieldFirstSeen  = "first_seen"
	FieldClass      = "class"
	FieldClassID    = "class_id"
	FieldBBox       = "bbox"
	FieldKeypoints  = "keypoints"
	FieldEmbedding  = "embedding"
	FieldScore      = "score"
)

// ErrMissingType is returned when decoding a record without a string type.
var ErrMissingType = errors.New("record has no type")

// Record is one event on the bus. It serialises as a single flat JSON
// object: {"type": Type, ...Fields}.
type Record struct {
	Type   string
	Fields map[string]any
}

// New returns a record of the given type owning fields. A nil map is
// replaced by an empty one.
func New(typ string, fields map[string]any) Record {
	if fields == nil {
		fields = make(map[string]any)
	}
	return Record{Type: typ, Fields: fields}
}

// Clone returns a record with a shallow copy of the fields.
func (r Record) Clone() Record {
	return Record{Type: r.Type, Fields: maps.Clone(r.Fields)}
}

// Set stores a field. It allocates the field map when needed, so it takes
// a pointer receiver.
func (r *Record) Set(key string, v any) {
	if r.Fields == nil {
		r.Fields = make(map[string]any)
	}
	r.Fields[key] = v
}

// Get returns a raw field value.
func (r Record) Get(key string) (any, bool) {
	v, ok := r.Fields[key]
	return v, ok
}

// Has reports whether a field is present, even when its value is null.
func (r Record) Has(key string) bool {
	_, ok := r.Fields[key]
	return ok
}

// Float returns a numeric field as float64. Strings that parse as numbers
// are accepted.
func (r Record) Float(key string) (float64, bool) {
	v, ok := r.Fields[key]
	if !ok {
		return 0, false
	}
	return AsFloat(v)
}

// Int64 returns a numeric field truncated to int64.
func (r Record) Int64(key string) (int64, bool) {
	switch n := r.Fields[key].(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
	}
	f, ok := r.Float(key)
	return int64(f), ok
}

// Str returns a string field, or "" when absent or not a string.
func (r Record) Str(key string) string {
	s, _ := r.Fields[key].(string)
	return s
}

// Bool returns a boolean field.
func (r Record) Bool(key string) (bool, bool) {
	b, ok := r.Fields[key].(bool)
	return b, ok
}

// CameraID returns the camera_id field.
func (r Record) CameraID() string { return r.Str(FieldCameraID) }

// TrackID returns the track_id field when present.
func (r Record) TrackID() (int64, bool) { return r.Int64(FieldTrackID) }

// Timestamp returns the timestamp field when present.
func (r Record) Timestamp() (float64, bool) { return r.Float(FieldTimestamp) }

// EventID returns the event_id field, or "" before EnsureID.
func (r Record) EventID() string { return r.Str(FieldEventID) }

// EnsureID assigns a random event_id when the record has none and returns
// the id.
func (r *Record) EnsureID() string {
	if id := r.EventID(); id != "" {
		return id
	}
	id := uuid.NewString()
	r.Set(FieldEventID, id)
	return id
}

func (r Record) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(r.Fields)+1)
	for k, v := range r.Fields {
		flat[k] = v
	}
	flat[FieldType] = r.Type
	return json.Marshal(flat)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	typ, ok := flat[FieldType].(string)
	if !ok || typ == "" {
		return ErrMissingType
	}
	delete(flat, FieldType)
	r.Type = typ
	r.Fields = flat
	return nil
}

// AsFloat converts a decoded or in-process numeric value to float64.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// String renders the record as JSON for logs.
func (r Record) String() string {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf("%s %v", r.Type, r.Fields)
	}
	return string(data)
}
