package posemon

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dv04/aixavier/internal/timeutil"
	"github.com/Dv04/aixavier/internal/vision"
	"github.com/Dv04/aixavier/internal/vision/detector"
	"github.com/Dv04/aixavier/internal/vision/geometry"
)

type stubCollapse float64

func (s stubCollapse) Score([]Sample) float64 { return float64(s) }

func zeroPose() []vision.Keypoint {
	kps := make([]vision.Keypoint, 17)
	for i := range kps {
		kps[i].Conf = 0.9
	}
	return kps
}

func tracked(id int64, kps []vision.Keypoint) []vision.Detection {
	return []vision.Detection{{TrackID: id, Keypoints: kps, ClassName: "person"}}
}

func TestHeuristicCollapse(t *testing.T) {
	t.Parallel()

	h := NewHeuristicCollapse()
	window := make([]Sample, 5)
	for i := range window {
		window[i] = Sample{VMag: 1.0, AMag: -2.2, ProneHeightPx: 180}
	}
	assert.GreaterOrEqual(t, h.Score(window), 0.65)
	assert.InDelta(t, 1.0, h.Score(window), 1e-9)

	assert.Zero(t, h.Score(nil))

	standing := []Sample{{VMag: 10, AMag: 0, ProneHeightPx: 400}}
	assert.Zero(t, h.Score(standing))

	// Only the last three samples count.
	mixed := []Sample{
		{VMag: 1, AMag: -5, ProneHeightPx: 100},
		{VMag: 10, AMag: 0, ProneHeightPx: 400},
		{VMag: 10, AMag: 0, ProneHeightPx: 400},
		{VMag: 10, AMag: 0, ProneHeightPx: 400},
	}
	assert.Zero(t, h.Score(mixed))
}

type fakeSession struct {
	shape []int64
	out   float32
	err   error
}

func (f *fakeSession) Run(in geometry.Tensor) ([]geometry.Tensor, error) {
	f.shape = in.Shape
	if f.err != nil {
		return nil, f.err
	}
	return []geometry.Tensor{{Shape: []int64{1, 1}, Data: []float32{f.out}}}, nil
}

func (f *fakeSession) InputShape() []int64 { return []int64{1, -1, 3} }
func (f *fakeSession) Close() error        { return nil }

func TestONNXCollapse(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{out: 0.75}
	open := func(string, string) (detector.Session, error) { return sess, nil }
	c := NewONNXCollapse("collapse.onnx", "", open)
	require.IsType(t, detector.Available{}, c.Backend())

	window := []Sample{{VMag: 1}, {VMag: 2}}
	assert.InDelta(t, 0.75, c.Score(window), 1e-6)
	assert.Equal(t, []int64{1, 2, 3}, sess.shape)
	assert.NoError(t, c.Close())

	sess.err = errors.New("boom")
	drop := []Sample{{VMag: 1, AMag: -2.2, ProneHeightPx: 180}}
	assert.InDelta(t, 1.0, c.Score(drop), 1e-9, "run failures fall back to the heuristic")
}

func TestNewCollapseScorer(t *testing.T) {
	t.Parallel()

	assert.IsType(t, HeuristicCollapse{}, NewCollapseScorer("", "", nil))

	failing := func(string, string) (detector.Session, error) { return nil, errors.New("no runtime") }
	s := NewCollapseScorer("missing.onnx", "", failing)
	c, ok := s.(*ONNXCollapse)
	require.True(t, ok)
	assert.IsType(t, detector.Unavailable{}, c.Backend())
	assert.InDelta(t, 1.0, c.Score([]Sample{{VMag: 1, AMag: -2.2, ProneHeightPx: 180}}), 1e-9)
}

func TestGestureModel(t *testing.T) {
	t.Parallel()

	g := NewGestureModel()
	kps := make([]vision.Keypoint, 17)
	kps[kpRightWrist] = vision.Keypoint{X: 100, Y: 50}
	kps[kpRightShoulder] = vision.Keypoint{X: 100, Y: 100}
	label, score := g.Predict(kps)
	assert.Equal(t, GestureHalt, label)
	assert.GreaterOrEqual(t, score, 0.6)

	kps = make([]vision.Keypoint, 17)
	kps[kpLeftWrist] = vision.Keypoint{Y: 20}
	kps[kpLeftShoulder] = vision.Keypoint{Y: 80}
	label, score = g.Predict(kps)
	assert.Equal(t, GestureProceed, label)
	assert.InDelta(t, 0.7, score, 1e-9)

	label, score = g.Predict(make([]vision.Keypoint, 17))
	assert.Equal(t, GestureUnknown, label)
	assert.InDelta(t, 0.1, score, 1e-9)

	label, score = g.Predict(make([]vision.Keypoint, 5))
	assert.Equal(t, GestureUnknown, label)
	assert.Zero(t, score)
}

func TestPhoneUsageDwell(t *testing.T) {
	t.Parallel()

	p := NewPhoneUsage(50, 300*time.Millisecond, 10)
	assert.Equal(t, 3, p.DwellFrames)

	kps := make([]vision.Keypoint, 17)
	kps[kpRightWrist] = vision.Keypoint{X: 100, Y: 100}
	kps[kpRightEar] = vision.Keypoint{X: 110, Y: 100}
	kps[kpLeftWrist] = vision.Keypoint{X: 500, Y: 500}

	var score float64
	fired := false
	for i := 0; i < 5; i++ {
		var active bool
		score, active = p.Score(kps)
		fired = fired || active
	}
	assert.True(t, fired)
	assert.GreaterOrEqual(t, score, 0.7)
	assert.Equal(t, 5, p.LastDwellFrames())

	far := make([]vision.Keypoint, 17)
	far[kpRightWrist] = vision.Keypoint{X: 500}
	far[kpLeftWrist] = vision.Keypoint{X: 500}
	score, active := p.Score(far)
	assert.False(t, active)
	assert.Zero(t, score)
	assert.Zero(t, p.LastDwellFrames())

	score, active = p.Score(kps[:4])
	assert.False(t, active)
	assert.Zero(t, score)

	assert.Equal(t, 1, NewPhoneUsage(80, 50*time.Millisecond, 15).DwellFrames)
}

func TestTelemetryUpdate(t *testing.T) {
	t.Parallel()

	var tel Telemetry
	require.NoError(t, tel.Update(map[string]any{"speed_kmph": 12, "door_open": true}))
	snap := tel.Snapshot()
	assert.Equal(t, 12.0, snap.SpeedKmph)
	assert.True(t, snap.DoorOpen)
	assert.Nil(t, snap.GPS)

	// Absent keys leave values untouched.
	require.NoError(t, tel.Update(map[string]any{"gps": []any{1.0, 2.0}}))
	snap = tel.Snapshot()
	assert.Equal(t, 12.0, snap.SpeedKmph)
	assert.Equal(t, []any{1.0, 2.0}, snap.GPS)

	err := tel.Update(map[string]any{"speed_kmph": "fast", "door_open": false})
	assert.ErrorIs(t, err, ErrTelemetryValue)
	snap = tel.Snapshot()
	assert.Equal(t, 12.0, snap.SpeedKmph)
	assert.False(t, snap.DoorOpen)

	require.NoError(t, tel.UpdateJSON([]byte(`{"speed_kmph": 3.5}`)))
	assert.Equal(t, 3.5, tel.Snapshot().SpeedKmph)
	assert.Error(t, tel.UpdateJSON([]byte(`{`)))
}

func TestBannersExpire(t *testing.T) {
	t.Parallel()

	clock := timeutil.NewMockClock(time.Unix(1000, 0))
	b := NewBanners(3*time.Second, clock)
	b.Record(BannerGesture, "HALT", 4)

	assert.Equal(t, map[int64]string{4: "HALT"}, b.TrackLabels())
	assert.Equal(t, []string{"Pose events: collapse=0 gesture=1 phone=0", "HALT"}, b.HUDLines())

	clock.Advance(3 * time.Second)
	assert.Empty(t, b.TrackLabels())
	assert.Equal(t, []string{"Pose events: collapse=0 gesture=1 phone=0"}, b.HUDLines())
	assert.Equal(t, 1, b.EventCounts()[BannerGesture], "expiry never resets counts")
}

func TestBannersStayBoundedWithoutReaders(t *testing.T) {
	t.Parallel()

	clock := timeutil.NewMockClock(time.Unix(0, 0))
	b := NewBanners(3*time.Second, clock)
	for i := 0; i < 10000; i++ {
		b.Record(BannerCollapse, "COLLAPSE", int64(i%50)+1)
		clock.Advance(66 * time.Millisecond)
	}

	b.mu.Lock()
	active, tracks := len(b.active), len(b.tracks)
	b.mu.Unlock()
	// At most one TTL worth of emissions survives.
	assert.LessOrEqual(t, active, 46)
	assert.LessOrEqual(t, tracks, 46)
	assert.Equal(t, 10000, b.EventCounts()[BannerCollapse])
}

func TestKeypointSmoother(t *testing.T) {
	t.Parallel()

	s := NewKeypointSmoother(0.5)
	first := s.Smooth(1, []vision.Keypoint{{X: 0, Y: 0, Conf: 1}})
	assert.Equal(t, []vision.Keypoint{{X: 0, Y: 0, Conf: 1}}, first)

	second := s.Smooth(1, []vision.Keypoint{{X: 10, Y: 20, Conf: 0}})
	assert.Equal(t, []vision.Keypoint{{X: 5, Y: 10, Conf: 0.5}}, second)

	// A different keypoint count restarts the estimate.
	restart := s.Smooth(1, []vision.Keypoint{{X: 7}, {X: 8}})
	assert.Len(t, restart, 2)
	assert.Equal(t, 7.0, restart[0].X)

	s.Forget(1)
	assert.Equal(t, 42.0, s.Smooth(1, []vision.Keypoint{{X: 42}})[0].X)

	assert.Equal(t, DefaultSmootherAlpha, NewKeypointSmoother(0).alpha)
}

func TestMonitorRecordsCollapse(t *testing.T) {
	t.Parallel()

	m := NewMonitor(DefaultConfig(), WithCollapseScorer(stubCollapse(0.9)))
	dets := tracked(1, zeroPose())
	n := m.Process("CAM01", dets, 15)

	require.Equal(t, 1, n)
	require.Len(t, dets[0].PoseEvents, 1)
	evt := dets[0].PoseEvents[0]
	assert.Equal(t, EventCollapse, evt.Type)
	assert.InDelta(t, 0.9, evt.Score, 1e-9)
	assert.Contains(t, evt.Fields, "prone_height_px")
	assert.Contains(t, evt.Fields, "door_open")

	assert.Equal(t, 1, m.Banners().EventCounts()[BannerCollapse])
	labels := m.Banners().TrackLabels()
	require.Contains(t, labels, int64(1))
	assert.True(t, strings.HasPrefix(labels[1], "COLLAPSE"))
}

func TestMonitorGesture(t *testing.T) {
	t.Parallel()

	m := NewMonitor(DefaultConfig())
	kps := zeroPose()
	kps[kpRightWrist] = vision.Keypoint{X: 100, Y: 40, Conf: 0.9}
	kps[kpRightShoulder] = vision.Keypoint{X: 100, Y: 120, Conf: 0.9}
	dets := tracked(7, kps)
	m.Process("CAM01", dets, 15)

	assert.Equal(t, 1, m.Banners().EventCounts()[BannerGesture])
	var gesture *vision.PoseEvent
	for i := range dets[0].PoseEvents {
		if dets[0].PoseEvents[i].Type == EventGesture {
			gesture = &dets[0].PoseEvents[i]
		}
	}
	require.NotNil(t, gesture)
	assert.Equal(t, GestureHalt, gesture.Fields["label"])
	assert.Equal(t, -80.0, gesture.Fields["delta_r"])
}

func TestMonitorGesturePerLabelThreshold(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.GestureThresholds = map[string]float64{GestureHalt: 0.9}
	m := NewMonitor(cfg)
	kps := zeroPose()
	kps[kpRightWrist].Y = 40
	kps[kpRightShoulder].Y = 120
	m.Process("CAM01", tracked(7, kps), 15)
	assert.Zero(t, m.Banners().EventCounts()[BannerGesture])
}

func phonePose() []vision.Keypoint {
	kps := zeroPose()
	kps[kpRightWrist] = vision.Keypoint{X: 10, Y: 10, Conf: 0.9}
	kps[kpRightEar] = vision.Keypoint{X: 15, Y: 10, Conf: 0.9}
	return kps
}

func phoneConfig() Config {
	cfg := DefaultConfig()
	cfg.HandToEarPx = 200
	cfg.PhoneDwell = 50 * time.Millisecond
	return cfg
}

func TestMonitorPhoneUsageIsSticky(t *testing.T) {
	t.Parallel()

	m := NewMonitor(phoneConfig())
	require.NoError(t, m.UpdateTelemetry(map[string]any{"speed_kmph": 6.0}))
	for i := 0; i < 5; i++ {
		m.Process("CAM01", tracked(10, phonePose()), 15)
	}
	assert.Equal(t, 1, m.Banners().EventCounts()[BannerPhone])

	// Moving the hand away re-arms the track.
	far := zeroPose()
	for i := range far {
		far[i].X = float64(i) * 1000
	}
	m.Process("CAM01", tracked(10, far), 15)
	m.Process("CAM01", tracked(10, phonePose()), 15)
	assert.Equal(t, 2, m.Banners().EventCounts()[BannerPhone])
}

func TestMonitorPhoneUsageSpeedGate(t *testing.T) {
	t.Parallel()

	cfg := phoneConfig()
	cfg.PhoneMinSpeedKmph = 10
	m := NewMonitor(cfg)

	require.NoError(t, m.UpdateTelemetry(map[string]any{"speed_kmph": 6.0}))
	for i := 0; i < 5; i++ {
		m.Process("CAM01", tracked(3, phonePose()), 15)
	}
	assert.Zero(t, m.Banners().EventCounts()[BannerPhone])

	require.NoError(t, m.UpdateTelemetry(map[string]any{"speed_kmph": 12.0}))
	dets := tracked(3, phonePose())
	m.Process("CAM01", dets, 15)
	assert.Equal(t, 1, m.Banners().EventCounts()[BannerPhone])

	var phone *vision.PoseEvent
	for i := range dets[0].PoseEvents {
		if dets[0].PoseEvents[i].Type == EventPhoneUsage {
			phone = &dets[0].PoseEvents[i]
		}
	}
	require.NotNil(t, phone)
	assert.Equal(t, 12.0, phone.Fields["speed_kmph"])
	assert.Equal(t, 6, phone.Fields["dwell_frames"])
}

func TestMonitorFeatures(t *testing.T) {
	t.Parallel()

	m := NewMonitor(DefaultConfig())
	for i := 0; i < 3; i++ {
		kps := zeroPose()
		kps[kpLeftHip] = vision.Keypoint{X: float64(2 * i), Y: 100}
		kps[kpRightHip] = vision.Keypoint{X: float64(2 * i), Y: 100}
		m.Process("CAM01", tracked(5, kps), 15)
	}
	hist := m.History(5)
	require.Len(t, hist, 3)
	assert.Equal(t, Sample{VMag: 0, AMag: 0, ProneHeightPx: 200}, hist[0])
	assert.InDelta(t, 30, hist[1].VMag, 1e-9)
	assert.InDelta(t, 30, hist[1].AMag, 1e-9)
	assert.InDelta(t, 30, hist[2].VMag, 1e-9)
	assert.InDelta(t, 0, hist[2].AMag, 1e-9)
}

func TestMonitorHistoryBounded(t *testing.T) {
	t.Parallel()

	m := NewMonitor(DefaultConfig())
	for i := 0; i < HistorySize+10; i++ {
		kps := zeroPose()
		kps[kpLeftHip].X = float64(i)
		kps[kpRightHip].X = float64(i)
		m.Process("CAM01", tracked(1, kps), 15)
	}
	assert.Len(t, m.History(1), HistorySize)
}

func TestMonitorSkipsUntrackedAndRetain(t *testing.T) {
	t.Parallel()

	m := NewMonitor(DefaultConfig(), WithCollapseScorer(stubCollapse(1)))
	dets := []vision.Detection{
		{Keypoints: zeroPose()},
		{TrackID: 2},
		{TrackID: 3, Keypoints: zeroPose()},
	}
	assert.Equal(t, 1, m.Process("CAM01", dets, 0))
	assert.Empty(t, dets[0].PoseEvents)
	assert.Empty(t, dets[1].PoseEvents)
	assert.Len(t, dets[2].PoseEvents, 1)
	assert.Equal(t, 1, m.Tracks())

	m.Retain(func(id int64) bool { return id != 3 })
	assert.Zero(t, m.Tracks())
	assert.Nil(t, m.History(3))
}

func TestMonitorSharedTelemetry(t *testing.T) {
	t.Parallel()

	tel := &Telemetry{}
	a := NewMonitor(DefaultConfig(), WithTelemetry(tel))
	b := NewMonitor(DefaultConfig(), WithTelemetry(tel))
	tel.SetSpeed(40)
	assert.Equal(t, 40.0, a.Telemetry().Snapshot().SpeedKmph)
	assert.Same(t, a.Telemetry(), b.Telemetry())
}
