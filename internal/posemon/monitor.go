package posemon

import (
	"fmt"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/Dv04/aixavier/internal/config"
	"github.com/Dv04/aixavier/internal/timeutil"
	"github.com/Dv04/aixavier/internal/vision"
)

// Sub-event types attached to pose detections.
const (
	EventCollapse   = "pose.collapse"
	EventGesture    = "pose.gesture"
	EventPhoneUsage = "pose.phone_usage"
)

// Config holds the Monitor thresholds.
type Config struct {
	FPS               float64
	CollapseThreshold float64
	CollapseWindow    int
	GestureThreshold  float64
	GestureThresholds map[string]float64
	PhoneThreshold    float64
	PhoneMinSpeedKmph float64
	HandToEarPx       float64
	PhoneDwell        time.Duration
	BannerTTL         time.Duration
	// SmootherAlpha enables keypoint smoothing when positive.
	SmootherAlpha float64
}

// DefaultConfig returns the monitor defaults.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning extracts the monitor settings from a tuning config.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		FPS:               cfg.GetFPS(),
		CollapseThreshold: cfg.GetCollapseThreshold(),
		CollapseWindow:    cfg.GetCollapseWindow(),
		GestureThreshold:  cfg.GetGestureThreshold(),
		GestureThresholds: cfg.GetGestureThresholds(),
		PhoneThreshold:    cfg.GetPhoneThreshold(),
		PhoneMinSpeedKmph: cfg.GetPhoneMinSpeedKmph(),
		HandToEarPx:       cfg.GetHandToEarPx(),
		PhoneDwell:        cfg.GetPhoneDwell(),
		BannerTTL:         cfg.GetBannerTTL(),
		SmootherAlpha:     cfg.GetSmootherAlpha(),
	}
}

// Option customises a Monitor.
type Option func(*Monitor)

// WithCollapseScorer replaces the heuristic collapse scorer.
func WithCollapseScorer(s CollapseScorer) Option {
	return func(m *Monitor) { m.collapse = s }
}

// WithGestureModel replaces the default gesture model.
func WithGestureModel(g GestureModel) Option {
	return func(m *Monitor) { m.gesture = g }
}

// WithTelemetry shares a telemetry source between monitors.
func WithTelemetry(t *Telemetry) Option {
	return func(m *Monitor) { m.telemetry = t }
}

// WithClock sets the clock used for banner expiry.
func WithClock(c timeutil.Clock) Option {
	return func(m *Monitor) { m.clock = c }
}

type trackState struct {
	history     history
	midHip      []float64
	velocity    float64
	phone       *PhoneUsage
	phoneActive bool
}

// Monitor turns tracked pose detections into pose sub-events.
type Monitor struct {
	cfg       Config
	collapse  CollapseScorer
	gesture   GestureModel
	telemetry *Telemetry
	clock     timeutil.Clock
	banners   *Banners
	smoother  *KeypointSmoother
	tracks    map[int64]*trackState
}

// NewMonitor creates a Monitor with the heuristic collapse scorer unless
// an option overrides it.
func NewMonitor(cfg Config, opts ...Option) *Monitor {
	if cfg.FPS < 1 {
		cfg.FPS = 1
	}
	if cfg.CollapseWindow < 1 {
		cfg.CollapseWindow = 1
	}
	m := &Monitor{
		cfg:     cfg,
		gesture: NewGestureModel(),
		clock:   timeutil.RealClock{},
		tracks:  make(map[int64]*trackState),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.collapse == nil {
		m.collapse = NewHeuristicCollapse()
	}
	if m.telemetry == nil {
		m.telemetry = &Telemetry{}
	}
	m.banners = NewBanners(cfg.BannerTTL, m.clock)
	if cfg.SmootherAlpha > 0 {
		m.smoother = NewKeypointSmoother(cfg.SmootherAlpha)
	}
	return m
}

// Telemetry returns the telemetry source read on every Process call.
func (m *Monitor) Telemetry() *Telemetry { return m.telemetry }

// Banners returns the emission counts and display labels.
func (m *Monitor) Banners() *Banners { return m.banners }

// UpdateTelemetry applies a telemetry payload; see Telemetry.Update.
func (m *Monitor) UpdateTelemetry(payload map[string]any) error {
	if len(payload) == 0 {
		return nil
	}
	return m.telemetry.Update(payload)
}

// Process scores every tracked pose in dets and appends the resulting
// sub-events to each detection's PoseEvents. Detections without keypoints
// or a track id are skipped. A non-positive fps uses the configured hint.
// It returns the number of sub-events emitted.
func (m *Monitor) Process(camera string, dets []vision.Detection, fps float64) int {
	if fps <= 0 {
		fps = m.cfg.FPS
	}
	snap := m.telemetry.Snapshot()
	emitted := 0
	for i := range dets {
		det := &dets[i]
		if len(det.Keypoints) == 0 || !det.HasTrack() {
			continue
		}
		kps := det.Keypoints
		if m.smoother != nil {
			kps = m.smoother.Smooth(det.TrackID, kps)
		}
		st := m.state(det.TrackID)
		latest := st.update(kps, fps)

		var events []vision.PoseEvent
		if e, ok := m.scoreCollapse(st, latest, snap, det.TrackID); ok {
			events = append(events, e)
		}
		if e, ok := m.scoreGesture(kps, snap, det.TrackID); ok {
			events = append(events, e)
		}
		if e, ok := m.scorePhone(st, kps, snap, det.TrackID); ok {
			events = append(events, e)
		}
		for _, e := range events {
			tracef("%s track=%d %s score=%.2f", camera, det.TrackID, e.Type, e.Score)
		}
		det.PoseEvents = append(det.PoseEvents, events...)
		emitted += len(events)
	}
	return emitted
}

func (m *Monitor) scoreCollapse(st *trackState, latest Sample, snap TelemetrySnapshot, trackID int64) (vision.PoseEvent, bool) {
	score := m.collapse.Score(st.history.tail(m.cfg.CollapseWindow))
	if score < m.cfg.CollapseThreshold {
		return vision.PoseEvent{}, false
	}
	m.banners.Record(BannerCollapse, fmt.Sprintf("COLLAPSE %.2f", score), trackID)
	return vision.PoseEvent{
		Type:  EventCollapse,
		Score: score,
		Fields: map[string]any{
			"speed_kmph":      snap.SpeedKmph,
			"door_open":       snap.DoorOpen,
			"v_mag":           latest.VMag,
			"a_mag":           latest.AMag,
			"prone_height_px": latest.ProneHeightPx,
		},
	}, true
}

func (m *Monitor) scoreGesture(kps []vision.Keypoint, snap TelemetrySnapshot, trackID int64) (vision.PoseEvent, bool) {
	label, score := m.gesture.Predict(kps)
	if label == GestureUnknown || score < m.gestureThreshold(label) {
		return vision.PoseEvent{}, false
	}
	m.banners.Record(BannerGesture, strings.ToUpper(label), trackID)
	return vision.PoseEvent{
		Type:  EventGesture,
		Score: score,
		Fields: map[string]any{
			"label":      label,
			"speed_kmph": snap.SpeedKmph,
			"delta_r":    yDelta(kps, kpRightWrist, kpRightShoulder),
			"delta_l":    yDelta(kps, kpLeftWrist, kpLeftShoulder),
		},
	}, true
}

// scorePhone emits once per activation. The active flag is cleared when
// proximity ends or the speed gate fails, which re-arms the track.
func (m *Monitor) scorePhone(st *trackState, kps []vision.Keypoint, snap TelemetrySnapshot, trackID int64) (vision.PoseEvent, bool) {
	score, active := st.phone.Score(kps)
	if !active || score < m.cfg.PhoneThreshold {
		if !active {
			st.phoneActive = false
		}
		return vision.PoseEvent{}, false
	}
	if snap.SpeedKmph < m.cfg.PhoneMinSpeedKmph {
		st.phoneActive = false
		return vision.PoseEvent{}, false
	}
	if st.phoneActive {
		return vision.PoseEvent{}, false
	}
	st.phoneActive = true
	m.banners.Record(BannerPhone, "PHONE-USAGE", trackID)
	return vision.PoseEvent{
		Type:  EventPhoneUsage,
		Score: score,
		Fields: map[string]any{
			"speed_kmph":   snap.SpeedKmph,
			"dwell_frames": st.phone.LastDwellFrames(),
		},
	}, true
}

func (m *Monitor) gestureThreshold(label string) float64 {
	if t, ok := m.cfg.GestureThresholds[label]; ok {
		return t
	}
	return m.cfg.GestureThreshold
}

func (m *Monitor) state(trackID int64) *trackState {
	st, ok := m.tracks[trackID]
	if !ok {
		st = &trackState{
			history: newHistory(HistorySize),
			phone:   NewPhoneUsage(m.cfg.HandToEarPx, m.cfg.PhoneDwell, m.cfg.FPS),
		}
		m.tracks[trackID] = st
	}
	return st
}

// update appends a feature sample derived from kps and returns it.
func (st *trackState) update(kps []vision.Keypoint, fps float64) Sample {
	mid := midHip(kps)
	velocity := 0.0
	if st.midHip != nil {
		velocity = floats.Distance(mid, st.midHip, 2) * fps
	}
	s := Sample{
		VMag:          velocity,
		AMag:          velocity - st.velocity,
		ProneHeightPx: proneHeight(kps),
	}
	st.history.push(s)
	st.midHip = mid
	st.velocity = velocity
	return s
}

// History returns a copy of a track's feature samples, oldest first.
func (m *Monitor) History(trackID int64) []Sample {
	st, ok := m.tracks[trackID]
	if !ok {
		return nil
	}
	out := make([]Sample, st.history.len())
	copy(out, st.history.samples)
	return out
}

// Retain drops the state of every track for which keep returns false.
func (m *Monitor) Retain(keep func(trackID int64) bool) {
	for id := range m.tracks {
		if !keep(id) {
			delete(m.tracks, id)
			if m.smoother != nil {
				m.smoother.Forget(id)
			}
		}
	}
}

// Tracks is the number of tracks with state.
func (m *Monitor) Tracks() int { return len(m.tracks) }
