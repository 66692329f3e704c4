package tracking

import (
	"slices"
	"sync"

	"github.com/Dv04/aixavier/internal/vision"
)

// ByteTrack is a two-tier greedy IoU tracker.
type ByteTrack struct {
	mu     sync.Mutex
	cfg    Config
	gate   ReIDGate
	tracks []*Track // ascending id
	nextID int64
}

// NewByteTrack creates a ByteTrack tracker.
func NewByteTrack(cfg Config) *ByteTrack {
	return &ByteTrack{
		cfg:    cfg,
		gate:   ReIDGate{Threshold: cfg.ReIDThreshold},
		nextID: 1,
	}
}

// Update matches dets against the current tracks.
//
// Pass 1 lets each high-confidence detection claim its best unclaimed track;
// unmatched high-confidence detections spawn tracks. Pass 2 lets
// low-confidence detections refresh tracks left unmatched by pass 1 without
// counting a hit. Detections below the low threshold, and low-confidence
// detections without a match, leave with TrackID 0.
func (bt *ByteTrack) Update(dets []vision.Detection) []vision.Detection {
	bt.mu.Lock()
	defer bt.mu.Unlock()

	var high, low []int
	for i := range dets {
		dets[i].TrackID = 0
		switch c := dets[i].Confidence; {
		case c >= bt.cfg.HighThreshold:
			high = append(high, i)
		case c >= bt.cfg.LowThreshold:
			low = append(low, i)
		}
	}

	matched := make(map[int64]bool, len(bt.tracks))

	// Pass 1: high-confidence detections against all tracks.
	var spawn []int
	for _, i := range high {
		det := &dets[i]
		j := bestMatch(bt.tracks, matched, det, bt.cfg.MatchIoU, bt.gate)
		if j < 0 {
			spawn = append(spawn, i)
			continue
		}
		t := bt.tracks[j]
		t.Box = det.Box
		t.Score = det.Confidence
		t.Age = 0
		t.Hits++
		if len(det.Embedding) > 0 {
			t.Embedding = slices.Clone(det.Embedding)
		}
		matched[t.ID] = true
		det.TrackID = t.ID
		det.FirstSeen = t.FirstSeen
	}
	for _, i := range spawn {
		t := bt.spawn(&dets[i])
		matched[t.ID] = true
	}

	// Pass 2: low-confidence detections against tracks still unmatched.
	for _, i := range low {
		det := &dets[i]
		j := bestMatch(bt.tracks, matched, det, bt.cfg.MatchIoU, bt.gate)
		if j < 0 {
			continue
		}
		t := bt.tracks[j]
		t.Box = det.Box
		t.Score = det.Confidence
		t.Age = 0
		matched[t.ID] = true
		det.TrackID = t.ID
		det.FirstSeen = t.FirstSeen
	}

	bt.tracks = ageUnmatched(bt.tracks, matched, bt.cfg.MaxAge)
	tracef("bytetrack: %d high, %d low, %d spawned, %d active", len(high), len(low), len(spawn), len(bt.tracks))
	return dets
}

func (bt *ByteTrack) spawn(det *vision.Detection) *Track {
	t := &Track{
		ID:        bt.nextID,
		Box:       det.Box,
		Score:     det.Confidence,
		Hits:      1,
		Active:    true,
		Embedding: slices.Clone(det.Embedding),
		FirstSeen: det.Timestamp,
	}
	bt.nextID++
	bt.tracks = append(bt.tracks, t)
	det.TrackID = t.ID
	det.FirstSeen = t.FirstSeen
	diagf("spawn track %d (score %.2f)", t.ID, t.Score)
	return t
}

// ActiveTracks returns copies of the live tracks in ascending id order.
func (bt *ByteTrack) ActiveTracks() []Track {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	return snapshot(bt.tracks)
}

// Reset drops every track. Ids keep increasing so none is ever reused.
func (bt *ByteTrack) Reset() {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	bt.tracks = nil
}

// NextTrackID returns the id the next spawned track will get.
func (bt *ByteTrack) NextTrackID() int64 {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	return bt.nextID
}
