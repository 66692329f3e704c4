package tracking

import (
	"slices"
	"sort"
	"sync"

	"github.com/Dv04/aixavier/internal/vision"
)

// SimpleTracker performs a single greedy IoU pass. Detections that already
// carry a track id are trusted and (re)register that track.
type SimpleTracker struct {
	mu     sync.Mutex
	cfg    Config
	gate   ReIDGate
	tracks []*Track // ascending id
	nextID int64
}

// NewSimpleTracker creates a single-tier tracker using cfg.MatchIoU,
// cfg.MaxAge and cfg.FirstID.
func NewSimpleTracker(cfg Config) *SimpleTracker {
	return &SimpleTracker{
		cfg:    cfg,
		gate:   ReIDGate{Threshold: cfg.ReIDThreshold},
		nextID: max(cfg.FirstID, 1),
	}
}

// Update assigns ids to dets. Trusted ids at or above the internal counter
// advance it so spawned ids never collide with them.
func (st *SimpleTracker) Update(dets []vision.Detection) []vision.Detection {
	st.mu.Lock()
	defer st.mu.Unlock()

	matched := make(map[int64]bool, len(dets))
	for i := range dets {
		det := &dets[i]
		if !det.HasTrack() {
			continue
		}
		st.register(det)
		matched[det.TrackID] = true
	}

	for i := range dets {
		det := &dets[i]
		if det.HasTrack() {
			continue
		}
		if j := bestMatch(st.tracks, matched, det, st.cfg.MatchIoU, st.gate); j >= 0 {
			t := st.tracks[j]
			t.Box = det.Box
			t.Score = det.Confidence
			t.Age = 0
			if len(det.Embedding) > 0 {
				t.Embedding = slices.Clone(det.Embedding)
			}
			matched[t.ID] = true
			det.TrackID = t.ID
			if det.FirstSeen == 0 {
				det.FirstSeen = t.FirstSeen
			}
			continue
		}
		t := st.insert(&Track{ID: st.nextID, FirstSeen: det.Timestamp}, det)
		st.nextID++
		matched[t.ID] = true
	}

	st.tracks = ageUnmatched(st.tracks, matched, st.cfg.MaxAge)
	return dets
}

// register replaces or creates the track named by det.TrackID.
func (st *SimpleTracker) register(det *vision.Detection) {
	if det.TrackID >= st.nextID {
		st.nextID = det.TrackID + 1
	}
	for _, t := range st.tracks {
		if t.ID == det.TrackID {
			if det.FirstSeen != 0 {
				t.FirstSeen = det.FirstSeen
			}
			st.fill(t, det)
			return
		}
	}
	first := det.FirstSeen
	if first == 0 {
		first = det.Timestamp
	}
	st.insert(&Track{ID: det.TrackID, FirstSeen: first}, det)
}

func (st *SimpleTracker) insert(t *Track, det *vision.Detection) *Track {
	st.fill(t, det)
	st.tracks = append(st.tracks, t)
	sort.Slice(st.tracks, func(a, b int) bool { return st.tracks[a].ID < st.tracks[b].ID })
	return t
}

func (st *SimpleTracker) fill(t *Track, det *vision.Detection) {
	t.Box = det.Box
	t.Score = det.Confidence
	t.Age = 0
	t.Hits = 1
	t.Active = true
	t.Embedding = slices.Clone(det.Embedding)
	det.TrackID = t.ID
	if det.FirstSeen == 0 {
		det.FirstSeen = t.FirstSeen
	}
}

// ActiveTracks returns copies of the live tracks in ascending id order.
func (st *SimpleTracker) ActiveTracks() []Track {
	st.mu.Lock()
	defer st.mu.Unlock()
	return snapshot(st.tracks)
}

// Reset drops every track without reusing ids.
func (st *SimpleTracker) Reset() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.tracks = nil
}
