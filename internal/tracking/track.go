package tracking

import (
	"slices"

	"github.com/Dv04/aixavier/internal/config"
	"github.com/Dv04/aixavier/internal/vision"
	"github.com/Dv04/aixavier/internal/vision/geometry"
)

// Algorithm names accepted by Manager.
const (
	AlgorithmByteTrack = "bytetrack"
	AlgorithmSimple    = "simple"
)

// Track is the tracker's view of one identity.
type Track struct {
	ID        int64
	Box       geometry.Box
	Score     float64
	Age       int // updates since last match; 0 on match
	Hits      int // ByteTrack: high-confidence matches; SimpleTracker keeps 1
	Active    bool
	Embedding []float64
	FirstSeen float64
}

func (t *Track) clone() Track {
	c := *t
	c.Embedding = slices.Clone(t.Embedding)
	return c
}

// Tracker assigns track ids to detections. Update writes TrackID (and
// FirstSeen) into dets in place and returns dets.
type Tracker interface {
	Update(dets []vision.Detection) []vision.Detection
	ActiveTracks() []Track
	Reset()
}

// Config holds tracker parameters.
type Config struct {
	Algorithm     string
	HighThreshold float64 // ByteTrack: detections at or above spawn tracks
	LowThreshold  float64 // ByteTrack: detections below are ignored
	MatchIoU      float64 // minimum IoU for a match
	MaxAge        int     // tracks older than this are evicted
	ReIDThreshold float64 // cosine similarity a match must exceed when both sides carry embeddings
	FirstID       int64   // SimpleTracker: first self-issued id; zero means 1
}

// DefaultConfig returns the built-in tracker defaults.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		Algorithm:     cfg.GetTrackerAlgorithm(),
		HighThreshold: cfg.GetHighThreshold(),
		LowThreshold:  cfg.GetLowThreshold(),
		MatchIoU:      cfg.GetMatchIoU(),
		MaxAge:        cfg.GetMaxAge(),
		ReIDThreshold: cfg.GetReIDThreshold(),
	}
}

// bestMatch returns the index of the unclaimed track with the highest
// positive IoU against det that passes the ReID gate, or -1 when that IoU
// is below minIoU.
func bestMatch(tracks []*Track, claimed map[int64]bool, det *vision.Detection, minIoU float64, gate ReIDGate) int {
	best, bestIoU := -1, 0.0
	for i, t := range tracks {
		if claimed[t.ID] {
			continue
		}
		iou := geometry.IoU(t.Box, det.Box)
		if iou <= bestIoU {
			continue
		}
		if !gate.Allows(t.Embedding, det.Embedding) {
			continue
		}
		best, bestIoU = i, iou
	}
	if best < 0 || bestIoU < minIoU {
		return -1
	}
	return best
}

// ageUnmatched increments the age of tracks not in matched and drops those
// whose age exceeds maxAge.
func ageUnmatched(tracks []*Track, matched map[int64]bool, maxAge int) []*Track {
	kept := tracks[:0]
	for _, t := range tracks {
		if !matched[t.ID] {
			t.Age++
		}
		if t.Age > maxAge {
			tracef("evict track %d after %d missed updates", t.ID, t.Age)
			continue
		}
		kept = append(kept, t)
	}
	for i := len(kept); i < len(tracks); i++ {
		tracks[i] = nil
	}
	return kept
}

func snapshot(tracks []*Track) []Track {
	out := make([]Track, len(tracks))
	for i, t := range tracks {
		out[i] = t.clone()
	}
	return out
}
