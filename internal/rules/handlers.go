package rules

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/Dv04/aixavier/internal/events"
)

// Record types consumed by the handlers.
const (
	typeTrack     = "track"
	typeObject    = "object"
	typeAction    = "action"
	typePose      = "pose"
	typeFRS       = "frs"
	typeTamper    = "tamper"
	typeCollapse  = "pose.collapse"
	typeGesture   = "pose.gesture"
	typePhoneUsed = "pose.phone_usage"
)

func field(r events.Record, key string, def float64) float64 {
	if v, ok := r.Float(key); ok {
		return v
	}
	return def
}

func fieldString(r events.Record, key string) string {
	v, ok := r.Fields[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func handleLineCrossing(_ *Engine, _ *UseCase, p Params, r events.Record) (map[string]any, bool) {
	if r.Type != typeTrack || !slices.Contains(p.Strings("classes"), r.Str(events.FieldClass)) {
		return nil, false
	}
	if p.String("line_id", "") != fieldString(r, "line_id") {
		return nil, false
	}
	out := map[string]any{
		events.FieldConfidence: field(r, events.FieldConfidence, 0),
		"attributes":           map[string]any{"direction": r.Fields["direction"]},
	}
	return out, true
}

func handleStaticObjectDwell(e *Engine, _ *UseCase, p Params, r events.Record) (map[string]any, bool) {
	if r.Type != typeObject || !slices.Contains(p.Strings("classes"), r.Str(events.FieldClass)) {
		return nil, false
	}
	key := trackKey(r)
	now := e.now(r)
	first, ok := r.Float(events.FieldFirstSeen)
	if ok {
		e.firstSeen[key] = first
	} else if prev, seen := e.firstSeen[key]; seen {
		first = prev
	} else {
		first = now
		e.firstSeen[key] = now
	}
	elapsed := now - first
	if elapsed < p.Float("dwell_seconds", 30) {
		return nil, false
	}
	return map[string]any{
		"dwell_seconds":        elapsed,
		events.FieldConfidence: field(r, events.FieldConfidence, 0),
	}, true
}

func handleActionScore(_ *Engine, _ *UseCase, p Params, r events.Record) (map[string]any, bool) {
	if r.Type != typeAction {
		return nil, false
	}
	label := p.String("label", "")
	var score float64
	switch scores := r.Fields["scores"].(type) {
	case map[string]any:
		score, _ = events.AsFloat(scores[label])
	case map[string]float64:
		score = scores[label]
	}
	if score < p.Float("threshold", 0.5) {
		return nil, false
	}
	return map[string]any{"action": label, events.FieldScore: score}, true
}

func handlePoseVelocityDrop(_ *Engine, _ *UseCase, p Params, r events.Record) (map[string]any, bool) {
	if r.Type != typePose {
		return nil, false
	}
	drop := field(r, "velocity_drop", 0)
	if drop < p.Float("min_drop", 1.5) {
		return nil, false
	}
	return map[string]any{"velocity_drop": drop}, true
}

func handleProneDwell(_ *Engine, _ *UseCase, p Params, r events.Record) (map[string]any, bool) {
	if r.Type != typePose {
		return nil, false
	}
	height := field(r, "height_px", math.Inf(1))
	dwell := field(r, "dwell_seconds", 0)
	if height > p.Float("max_height_px", 200) || dwell < p.Float("min_duration_seconds", 4) {
		return nil, false
	}
	return map[string]any{"dwell_seconds": dwell}, true
}

func handleFRSMatch(_ *Engine, _ *UseCase, p Params, r events.Record) (map[string]any, bool) {
	if r.Type != typeFRS {
		return nil, false
	}
	score := field(r, events.FieldScore, 0)
	if score < p.Float("threshold", 0.47) {
		return nil, false
	}
	return map[string]any{"identity": r.Fields["identity"], events.FieldScore: score}, true
}

func handleBlurDetect(_ *Engine, _ *UseCase, p Params, r events.Record) (map[string]any, bool) {
	if r.Type != typeTamper {
		return nil, false
	}
	variance := field(r, "variance", 0)
	if variance > p.Float("variance_threshold", 100) {
		return nil, false
	}
	return map[string]any{"variance": variance}, true
}

// doorGate applies require_door_open / require_door_closed. A record
// without door state fails either requirement.
func doorGate(p Params, r events.Record) bool {
	open, known := r.Bool("door_open")
	if p.Bool("require_door_open") && (!known || !open) {
		return false
	}
	if p.Bool("require_door_closed") && (!known || open) {
		return false
	}
	return true
}

func cooldown(p Params, def float64) time.Duration {
	return time.Duration(p.Float("cooldown_seconds", def) * float64(time.Second))
}

func handlePoseCollapse(e *Engine, uc *UseCase, p Params, r events.Record) (map[string]any, bool) {
	if r.Type != typeCollapse {
		return nil, false
	}
	score := field(r, events.FieldScore, 0)
	speed := field(r, "speed_kmph", 0)
	if score < p.Float("min_score", 0.65) || speed < p.Float("min_speed_kmph", 0) {
		return nil, false
	}
	prone, hasProne := r.Float("prone_height_px")
	if limit, ok := p.OptFloat("max_prone_height_px"); ok && (!hasProne || prone > limit) {
		return nil, false
	}
	accel, hasAccel := r.Float("a_mag")
	if limit, ok := p.OptFloat("min_abs_accel"); ok && (!hasAccel || math.Abs(accel) < limit) {
		return nil, false
	}
	if !doorGate(p, r) {
		return nil, false
	}
	if !e.tryFire(cooldownKey(uc.ID, r, ""), r, cooldown(p, 5)) {
		return nil, false
	}
	return map[string]any{
		events.FieldScore: score,
		"speed_kmph":      speed,
		"door_open":       r.Fields["door_open"],
		"prone_height_px": r.Fields["prone_height_px"],
		"a_mag":           r.Fields["a_mag"],
	}, true
}

func handlePoseGesture(e *Engine, uc *UseCase, p Params, r events.Record) (map[string]any, bool) {
	if r.Type != typeGesture {
		return nil, false
	}
	label := r.Str("label")
	if allowed := p.Strings("gestures"); len(allowed) > 0 && !slices.Contains(allowed, label) {
		return nil, false
	}
	score := field(r, events.FieldScore, 0)
	if score < p.Float("confidence_min", 0.6) {
		return nil, false
	}
	if !e.tryFire(cooldownKey(uc.ID, r, label), r, cooldown(p, 2)) {
		return nil, false
	}
	return map[string]any{
		"label":           label,
		events.FieldScore: score,
		"speed_kmph":      r.Fields["speed_kmph"],
	}, true
}

func handlePosePhoneUsage(e *Engine, uc *UseCase, p Params, r events.Record) (map[string]any, bool) {
	if r.Type != typePhoneUsed {
		return nil, false
	}
	score := field(r, events.FieldScore, 0)
	speed := field(r, "speed_kmph", 0)
	dwell := field(r, "dwell_frames", 0)
	if score < p.Float("min_score", 0.6) || speed < p.Float("min_speed_kmph", 0) || dwell < p.Float("min_dwell_frames", 0) {
		return nil, false
	}
	if !doorGate(p, r) {
		return nil, false
	}
	if !e.tryFire(cooldownKey(uc.ID, r, ""), r, cooldown(p, 5)) {
		return nil, false
	}
	return map[string]any{
		events.FieldScore: score,
		"speed_kmph":      speed,
		"dwell_frames":    dwell,
		"door_open":       r.Fields["door_open"],
	}, true
}
