package posemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
)

// ErrTelemetryValue reports a telemetry key with a value of the wrong type.
var ErrTelemetryValue = errors.New("invalid telemetry value")

// TelemetrySnapshot is a point-in-time copy of vehicle telemetry.
type TelemetrySnapshot struct {
	SpeedKmph float64 `json:"speed_kmph"`
	DoorOpen  bool    `json:"door_open"`
	GPS       any     `json:"gps,omitempty"`
}

// Telemetry holds externally supplied vehicle state. Safe for concurrent use.
type Telemetry struct {
	mu   sync.Mutex
	snap TelemetrySnapshot
}

// Snapshot returns a copy of the current state.
func (t *Telemetry) Snapshot() TelemetrySnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

func (t *Telemetry) SetSpeed(kmph float64) {
	t.mu.Lock()
	t.snap.SpeedKmph = kmph
	t.mu.Unlock()
}

func (t *Telemetry) SetDoor(open bool) {
	t.mu.Lock()
	t.snap.DoorOpen = open
	t.mu.Unlock()
}

func (t *Telemetry) SetGPS(gps any) {
	t.mu.Lock()
	t.snap.GPS = gps
	t.mu.Unlock()
}

// Update applies whichever of speed_kmph, door_open and gps are present.
// Keys with bad values are skipped and reported in the returned error.
func (t *Telemetry) Update(payload map[string]any) error {
	var errs []error
	if v, ok := payload["speed_kmph"]; ok {
		if f, err := toFloat(v); err == nil {
			t.SetSpeed(f)
		} else {
			errs = append(errs, fmt.Errorf("speed_kmph: %w", err))
		}
	}
	if v, ok := payload["door_open"]; ok {
		if b, err := toBool(v); err == nil {
			t.SetDoor(b)
		} else {
			errs = append(errs, fmt.Errorf("door_open: %w", err))
		}
	}
	if v, ok := payload["gps"]; ok {
		t.SetGPS(v)
	}
	return errors.Join(errs...)
}

// UpdateJSON applies one JSON object of telemetry.
func (t *Telemetry) UpdateJSON(line []byte) error {
	var payload map[string]any
	if err := json.Unmarshal(line, &payload); err != nil {
		return fmt.Errorf("decode telemetry: %w", err)
	}
	return t.Update(payload)
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrTelemetryValue, n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrTelemetryValue, v)
	}
}

func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case float64:
		return b != 0, nil
	case int:
		return b != 0, nil
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false, fmt.Errorf("%w: %q", ErrTelemetryValue, b)
		}
		return parsed, nil
	default:
		return false, fmt.Errorf("%w: %T", ErrTelemetryValue, v)
	}
}
