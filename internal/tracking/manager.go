package tracking

import (
	"sync"

	"github.com/Dv04/aixavier/internal/vision"
)

// Manager owns one tracker per camera and caches each camera's most
// recent tracked detections.
type Manager struct {
	mu       sync.RWMutex
	cfg      Config
	trackers map[string]Tracker
	latest   map[string][]vision.Detection
}

// NewManager creates a manager that builds trackers from cfg. Unknown
// algorithms fall back to ByteTrack.
func NewManager(cfg Config) *Manager {
	return &Manager{
		cfg:      cfg,
		trackers: make(map[string]Tracker),
		latest:   make(map[string][]vision.Detection),
	}
}

// New builds a tracker for cfg.Algorithm.
func New(cfg Config) Tracker {
	if cfg.Algorithm == AlgorithmSimple {
		return NewSimpleTracker(cfg)
	}
	return NewByteTrack(cfg)
}

// For returns the camera's tracker, creating it on first use.
func (m *Manager) For(camera string) Tracker {
	m.mu.RLock()
	t, ok := m.trackers[camera]
	m.mu.RUnlock()
	if ok {
		return t
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.trackers[camera]; ok {
		return t
	}
	t = New(m.cfg)
	m.trackers[camera] = t
	diagf("camera %s: created %s tracker", camera, m.algorithm())
	return t
}

func (m *Manager) algorithm() string {
	if m.cfg.Algorithm == AlgorithmSimple {
		return AlgorithmSimple
	}
	return AlgorithmByteTrack
}

// Update runs the camera's tracker on dets and caches the result.
func (m *Manager) Update(camera string, dets []vision.Detection) []vision.Detection {
	out := m.For(camera).Update(dets)

	cached := make([]vision.Detection, len(out))
	for i := range out {
		cached[i] = out[i].Clone()
	}
	m.mu.Lock()
	m.latest[camera] = cached
	m.mu.Unlock()
	return out
}

// Tracks returns the camera's active tracks, or nil for an unknown camera.
func (m *Manager) Tracks(camera string) []Track {
	m.mu.RLock()
	t, ok := m.trackers[camera]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return t.ActiveTracks()
}

// LatestDetections returns a copy of the camera's last tracked detections.
func (m *Manager) LatestDetections(camera string) []vision.Detection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cached := m.latest[camera]
	out := make([]vision.Detection, len(cached))
	for i := range cached {
		out[i] = cached[i].Clone()
	}
	return out
}

// Cameras returns the number of cameras with a tracker.
func (m *Manager) Cameras() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.trackers)
}
