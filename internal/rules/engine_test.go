package rules

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dv04/aixavier/internal/events"
	"github.com/Dv04/aixavier/internal/timeutil"
)

var epoch = time.Unix(1_700_000_000, 0)

func engineWith(t *testing.T, id string, rules ...Rule) (*Engine, *timeutil.MockClock) {
	t.Helper()
	clock := timeutil.NewMockClock(epoch)
	return NewEngine([]UseCase{{ID: id, Metadata: map[string]any{"id": id}, Rules: rules}}, WithClock(clock)), clock
}

func rule(kind Kind, p Params) Rule { return Rule{Kind: kind, Name: kind.String(), Params: p} }

func rec(typ string, fields map[string]any) events.Record {
	if _, ok := fields[events.FieldCameraID]; !ok {
		fields[events.FieldCameraID] = "CAM01"
	}
	return events.New(typ, fields)
}

func TestBlurDetect(t *testing.T) {
	t.Parallel()

	e, _ := engineWith(t, "camera_tampering", rule(KindBlurDetect, Params{"variance_threshold": 100}))
	out := e.Evaluate(rec("tamper", map[string]any{"variance": 50}))
	require.Len(t, out, 1)
	assert.Equal(t, "camera_tampering", out[0].Type)
	assert.Equal(t, "CAM01", out[0].CameraID())
	assert.Equal(t, 50.0, out[0].Fields["variance"])

	assert.Empty(t, e.Evaluate(rec("tamper", map[string]any{"variance": 150})))
	assert.Empty(t, e.Evaluate(rec("object", map[string]any{"variance": 50})))
}

func TestStaticObjectDwell(t *testing.T) {
	t.Parallel()

	now := timeutil.UnixSeconds(epoch)
	e, _ := engineWith(t, "unattended_baggage", rule(KindStaticObjectDwell, Params{"classes": []any{"bag"}, "dwell_seconds": 1}))

	out := e.Evaluate(rec("object", map[string]any{"track_id": 1, "class": "bag", "first_seen": now - 2, "confidence": 0.9}))
	require.Len(t, out, 1)
	assert.Equal(t, "unattended_baggage", out[0].Type)
	assert.InDelta(t, 2.0, out[0].Fields["dwell_seconds"], 1e-6)
	assert.Equal(t, 0.9, out[0].Fields["confidence"])
	tid, _ := out[0].TrackID()
	assert.Equal(t, int64(1), tid)

	assert.Empty(t, e.Evaluate(rec("object", map[string]any{"track_id": 2, "class": "bag", "first_seen": now})))
	assert.Empty(t, e.Evaluate(rec("object", map[string]any{"track_id": 3, "class": "person", "first_seen": now - 10})))
}

func TestStaticObjectDwellRemembersFirstSighting(t *testing.T) {
	t.Parallel()

	e, _ := engineWith(t, "unattended_baggage", rule(KindStaticObjectDwell, Params{"classes": []any{"bag"}, "dwell_seconds": 5}))
	obs := func(ts float64) []events.Record {
		return e.Evaluate(rec("object", map[string]any{"track_id": 7, "class": "bag", "timestamp": ts}))
	}
	assert.Empty(t, obs(100))
	assert.Empty(t, obs(103))
	out := obs(106)
	require.Len(t, out, 1)
	assert.Equal(t, 6.0, out[0].Fields["dwell_seconds"])
	assert.Equal(t, 106.0, out[0].Fields["timestamp"])

	// Same track id on another camera is a different object.
	assert.Empty(t, e.Evaluate(rec("object", map[string]any{"camera_id": "CAM02", "track_id": 7, "class": "bag", "timestamp": 106.0})))
}

func TestFRSMatch(t *testing.T) {
	t.Parallel()

	for _, kind := range []string{"frs_match", "identity_match"} {
		e, _ := engineWith(t, "face_recognition", rule(ParseKind(kind), Params{"threshold": 0.5}))
		out := e.Evaluate(rec("frs", map[string]any{"identity": "Test", "score": 0.8}))
		require.Len(t, out, 1, kind)
		assert.Equal(t, 0.8, out[0].Fields["score"])
		assert.Equal(t, "Test", out[0].Fields["identity"])
		assert.Empty(t, e.Evaluate(rec("frs", map[string]any{"identity": "Test", "score": 0.3})))
	}
}

func TestThresholdHandlers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		rule   Rule
		record events.Record
		fires  bool
		check  func(t *testing.T, r events.Record)
	}{
		{
			name:   "line crossing fires on matching line and class",
			rule:   rule(KindLineCrossing, Params{"classes": []any{"person"}, "line_id": "gate_a"}),
			record: rec("track", map[string]any{"class": "person", "line_id": "gate_a", "track_id": 4, "confidence": 0.7, "direction": "in"}),
			fires:  true,
			check: func(t *testing.T, r events.Record) {
				assert.Equal(t, map[string]any{"direction": "in"}, r.Fields["attributes"])
				assert.Equal(t, 0.7, r.Fields["confidence"])
			},
		},
		{
			name:   "line crossing ignores other lines",
			rule:   rule(KindLineCrossing, Params{"classes": []any{"person"}, "line_id": "gate_a"}),
			record: rec("track", map[string]any{"class": "person", "line_id": "gate_b"}),
		},
		{
			name:   "line crossing ignores other classes",
			rule:   rule(KindLineCrossing, Params{"classes": []any{"person"}, "line_id": 3}),
			record: rec("track", map[string]any{"class": "car", "line_id": 3.0}),
		},
		{
			name:   "action score at threshold",
			rule:   rule(KindActionScore, Params{"label": "fight", "threshold": 0.6}),
			record: rec("action", map[string]any{"scores": map[string]any{"fight": 0.6}}),
			fires:  true,
			check: func(t *testing.T, r events.Record) {
				assert.Equal(t, "fight", r.Fields["action"])
				assert.Equal(t, 0.6, r.Fields["score"])
			},
		},
		{
			name:   "action score missing label",
			rule:   rule(KindActionScore, Params{"label": "fight"}),
			record: rec("action", map[string]any{"scores": map[string]any{"run": 0.9}}),
		},
		{
			name:   "velocity drop default threshold",
			rule:   rule(KindPoseVelocityDrop, Params{}),
			record: rec("pose", map[string]any{"velocity_drop": 2.0}),
			fires:  true,
		},
		{
			name:   "velocity drop below threshold",
			rule:   rule(KindPoseVelocityDrop, Params{"min_drop": 3}),
			record: rec("pose", map[string]any{"velocity_drop": 2.0}),
		},
		{
			name:   "prone dwell",
			rule:   rule(KindProneDwell, Params{}),
			record: rec("pose", map[string]any{"height_px": 150, "dwell_seconds": 5}),
			fires:  true,
			check: func(t *testing.T, r events.Record) {
				assert.Equal(t, 5.0, r.Fields["dwell_seconds"])
			},
		},
		{
			name:   "prone dwell without height never fires",
			rule:   rule(KindProneDwell, Params{}),
			record: rec("pose", map[string]any{"dwell_seconds": 10}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, _ := engineWith(t, "uc", tt.rule)
			out := e.Evaluate(tt.record)
			if !tt.fires {
				assert.Empty(t, out)
				return
			}
			require.Len(t, out, 1)
			assert.Equal(t, "uc", out[0].Type)
			if tt.check != nil {
				tt.check(t, out[0])
			}
		})
	}
}

func TestUnknownKindIgnored(t *testing.T) {
	t.Parallel()

	e, _ := engineWith(t, "future", Rule{Kind: KindUnknown, Name: "teleport_detect"}, rule(KindBlurDetect, Params{}))
	out := e.Evaluate(rec("tamper", map[string]any{"variance": 10}))
	require.Len(t, out, 1)
	assert.Equal(t, "future", out[0].Type)
}

func collapse(track int, score float64) events.Record {
	return rec("pose.collapse", map[string]any{
		"track_id":        track,
		"score":           score,
		"speed_kmph":      6.0,
		"a_mag":           -2.0,
		"prone_height_px": 150.0,
		"door_open":       false,
	})
}

func TestPoseCollapseGatesAndCooldown(t *testing.T) {
	t.Parallel()

	e, clock := engineWith(t, "collapse", rule(KindPoseCollapse, Params{
		"min_score":           0.6,
		"min_speed_kmph":      5,
		"max_prone_height_px": 220,
		"min_abs_accel":       1.5,
	}))

	out := e.Evaluate(collapse(1, 0.8))
	require.Len(t, out, 1)
	assert.Equal(t, 0.8, out[0].Fields["score"])
	assert.Equal(t, 6.0, out[0].Fields["speed_kmph"])
	assert.Equal(t, false, out[0].Fields["door_open"])

	// Within the default 5s cooldown.
	clock.Advance(4 * time.Second)
	assert.Empty(t, e.Evaluate(collapse(1, 0.9)))
	// Another track is not blocked, nor is the same track id on another camera.
	assert.Len(t, e.Evaluate(collapse(2, 0.9)), 1)
	other := collapse(1, 0.9)
	other.Fields[events.FieldCameraID] = "CAM02"
	assert.Len(t, e.Evaluate(other), 1)

	clock.Advance(time.Second)
	assert.Len(t, e.Evaluate(collapse(1, 0.9)), 1)

	assert.Empty(t, e.Evaluate(collapse(3, 0.5)), "below min_score")
	slow := collapse(4, 0.9)
	slow.Fields["speed_kmph"] = 1.0
	assert.Empty(t, e.Evaluate(slow))
	tall := collapse(5, 0.9)
	tall.Fields["prone_height_px"] = 300.0
	assert.Empty(t, e.Evaluate(tall))
	gentle := collapse(6, 0.9)
	gentle.Fields["a_mag"] = 0.5
	assert.Empty(t, e.Evaluate(gentle))
}

func TestPoseCollapseDoorGate(t *testing.T) {
	t.Parallel()

	e, _ := engineWith(t, "collapse", rule(KindPoseCollapse, Params{"require_door_open": true}))
	assert.Empty(t, e.Evaluate(collapse(1, 0.9)))

	open := collapse(1, 0.9)
	open.Fields["door_open"] = true
	assert.Len(t, e.Evaluate(open), 1)

	unknown := collapse(2, 0.9)
	delete(unknown.Fields, "door_open")
	assert.Empty(t, e.Evaluate(unknown))

	closed, _ := engineWith(t, "collapse", rule(KindPoseCollapse, Params{"require_door_closed": true}))
	assert.Len(t, closed.Evaluate(collapse(1, 0.9)), 1)
}

func TestCooldownUsesRecordTime(t *testing.T) {
	t.Parallel()

	// The clock never moves; only the records' own timestamps do.
	e, _ := engineWith(t, "collapse", rule(KindPoseCollapse, Params{"cooldown_seconds": 5}))
	at := func(ts float64) events.Record {
		r := collapse(1, 0.9)
		r.Fields[events.FieldTimestamp] = ts
		return r
	}

	require.Len(t, e.Evaluate(at(100)), 1)
	assert.Empty(t, e.Evaluate(at(103)), "inside the window")
	assert.Len(t, e.Evaluate(at(160)), 1, "a minute later in record time")
	assert.Empty(t, e.Evaluate(at(164.5)))
	assert.Len(t, e.Evaluate(at(165)), 1)
}

func gesture(track int, label string, score float64) events.Record {
	return rec("pose.gesture", map[string]any{"track_id": track, "label": label, "score": score})
}

func TestPoseGesture(t *testing.T) {
	t.Parallel()

	e, clock := engineWith(t, "gestures", rule(KindPoseGesture, Params{"gestures": []any{"halt", "proceed"}}))

	out := e.Evaluate(gesture(1, "halt", 0.9))
	require.Len(t, out, 1)
	assert.Equal(t, "halt", out[0].Fields["label"])

	// Cooldown is per label.
	assert.Empty(t, e.Evaluate(gesture(1, "halt", 0.9)))
	assert.Len(t, e.Evaluate(gesture(1, "proceed", 0.9)), 1)

	assert.Empty(t, e.Evaluate(gesture(2, "reverse", 0.9)), "not in allow-list")
	assert.Empty(t, e.Evaluate(gesture(2, "halt", 0.5)), "below confidence_min")

	clock.Advance(2 * time.Second)
	assert.Len(t, e.Evaluate(gesture(1, "halt", 0.9)), 1)
}

func phone(speed, dwell float64) events.Record {
	return rec("pose.phone_usage", map[string]any{"track_id": 9, "score": 0.7, "speed_kmph": speed, "dwell_frames": dwell})
}

func TestPosePhoneUsageSpeedGate(t *testing.T) {
	t.Parallel()

	e, _ := engineWith(t, "phone", rule(KindPosePhoneUsage, Params{"min_speed_kmph": 1, "min_dwell_frames": 3}))

	assert.Empty(t, e.Evaluate(phone(0, 2)))
	assert.Empty(t, e.Evaluate(phone(0, 50)), "stationary never fires")
	assert.Empty(t, e.Evaluate(phone(5, 2)), "dwell below minimum")

	out := e.Evaluate(phone(5, 4))
	require.Len(t, out, 1)
	assert.Equal(t, 5.0, out[0].Fields["speed_kmph"])
	assert.Equal(t, 4.0, out[0].Fields["dwell_frames"])
}

func TestResetClearsCooldown(t *testing.T) {
	t.Parallel()

	e, clock := engineWith(t, "phone", rule(KindPosePhoneUsage, Params{}))
	require.Len(t, e.Evaluate(phone(5, 4)), 1)
	clock.Advance(time.Second)
	assert.Empty(t, e.Evaluate(phone(5, 4)))

	e.Reset()
	assert.Len(t, e.Evaluate(phone(5, 4)), 1)
}

func TestMultipleUseCasesInOrder(t *testing.T) {
	t.Parallel()

	e := NewEngine([]UseCase{
		{ID: "a_blur", Rules: []Rule{rule(KindBlurDetect, Params{})}},
		{ID: "b_blur", Rules: []Rule{rule(KindBlurDetect, Params{}), rule(KindBlurDetect, Params{"variance_threshold": 10})}},
	})
	out := e.Evaluate(rec("tamper", map[string]any{"variance": 50}))
	require.Len(t, out, 2)
	assert.Equal(t, "a_blur", out[0].Type)
	assert.Equal(t, "b_blur", out[1].Type)
	assert.Len(t, e.UseCases(), 2)
}

func TestEvaluateConcurrent(t *testing.T) {
	t.Parallel()

	e, _ := engineWith(t, "gestures", rule(KindPoseGesture, Params{}))
	var wg sync.WaitGroup
	var mu sync.Mutex
	fired := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n := len(e.Evaluate(gesture(1, "halt", 0.9)))
			mu.Lock()
			fired += n
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, fired, "cooldown admits exactly one firing")
}
