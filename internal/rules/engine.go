package rules

import (
	"fmt"
	"sync"
	"time"

	"github.com/Dv04/aixavier/internal/events"
	"github.com/Dv04/aixavier/internal/timeutil"
)

// Engine evaluates use cases against records. It is safe for concurrent
// use; dwell and cooldown state is shared by every caller.
type Engine struct {
	mu       sync.Mutex
	clock    timeutil.Clock
	usecases []UseCase

	firstSeen map[string]float64   // camera::track
	lastFire  map[string]float64 // usecase::camera::track[::label]
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock replaces the clock used for records without a timestamp.
func WithClock(c timeutil.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// NewEngine builds an engine over usecases, which must not be modified
// afterwards.
func NewEngine(usecases []UseCase, opts ...Option) *Engine {
	e := &Engine{
		clock:     timeutil.RealClock{},
		usecases:  usecases,
		firstSeen: make(map[string]float64),
		lastFire:  make(map[string]float64),
	}
	for _, fn := range opts {
		fn(e)
	}
	return e
}

// UseCases returns the loaded use cases in evaluation order.
func (e *Engine) UseCases() []UseCase { return e.usecases }

// Evaluate runs every handled rule against r and returns the derived
// events in use-case order. Each rule fires at most once per record.
func (e *Engine) Evaluate(r events.Record) []events.Record {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []events.Record
	for i := range e.usecases {
		uc := &e.usecases[i]
		for _, rule := range uc.Rules {
			h, ok := handlers[rule.Kind]
			if !ok {
				continue
			}
			payload, fired := h(e, uc, rule.Params, r)
			if !fired {
				continue
			}
			ev := derived(uc.ID, r, payload)
			tracef("%s fired %s on %s", rule.Kind, uc.ID, r.Type)
			out = append(out, ev)
		}
	}
	return out
}

// derived builds the use-case event. camera_id and track_id come from the
// source record unless the handler set them.
func derived(id string, src events.Record, payload map[string]any) events.Record {
	if payload == nil {
		payload = make(map[string]any)
	}
	if _, ok := payload[events.FieldCameraID]; !ok {
		payload[events.FieldCameraID] = src.CameraID()
	}
	if _, ok := payload[events.FieldTrackID]; !ok {
		if tid, ok := src.TrackID(); ok {
			payload[events.FieldTrackID] = tid
		}
	}
	for _, k := range []string{events.FieldTimestamp, events.FieldFrameIndex} {
		if v, ok := src.Fields[k]; ok {
			if _, set := payload[k]; !set {
				payload[k] = v
			}
		}
	}
	return events.New(id, payload)
}

// now is the record timestamp, or the clock in Unix seconds.
func (e *Engine) now(r events.Record) float64 {
	if ts, ok := r.Timestamp(); ok {
		return ts
	}
	return timeutil.UnixSeconds(e.clock.Now())
}

// trackKey is the composite key of a record's track on its camera.
func trackKey(r events.Record) string {
	if tid, ok := r.TrackID(); ok {
		return fmt.Sprintf("%s::%d", r.CameraID(), tid)
	}
	return r.CameraID() + "::"
}

// cooldownKey is usecase::camera::track with an optional label suffix.
// Track ids are only unique within a camera.
func cooldownKey(usecase string, r events.Record, label string) string {
	key := usecase + "::" + trackKey(r)
	if label != "" {
		key += "::" + label
	}
	return key
}

// tryFire reports whether key is outside its cooldown window at r's time
// and, if so, records a firing then. The window is measured in record time,
// falling back to the clock like dwell. Cooldown state is never cleared by track eviction.
func (e *Engine) tryFire(key string, r events.Record, cooldown time.Duration) bool {
	now := e.now(r)
	if last, ok := e.lastFire[key]; ok && now-last < cooldown.Seconds() {
		return false
	}
	e.lastFire[key] = now
	return true
}

// Reset clears dwell and cooldown state.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	clear(e.firstSeen)
	clear(e.lastFire)
}
