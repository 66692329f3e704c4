// Package vision defines the per-frame detection type exchanged between the
// detector, tracker, pose associator and pose monitor.
package vision

import (
	"maps"
	"slices"
	"strings"

	"github.com/Dv04/aixavier/internal/vision/geometry"
)

// Keypoint is a pose landmark in source pixels.
type Keypoint = geometry.Keypoint

// PoseEvent is a sub-event derived from a tracked pose. Fields holds the
// feature values reported alongside the score.
type PoseEvent struct {
	Type   string
	Score  float64
	Fields map[string]any
}

// Detection is one candidate produced for a frame. TrackID is zero until a
// tracker or the pose associator assigns one. Timestamps are fractional
// Unix seconds; FirstSeen is zero when unknown.
type Detection struct {
	Box        geometry.Box
	Confidence float64
	ClassID    int
	ClassName  string
	Keypoints  []Keypoint
	Embedding  []float64
	TrackID    int64
	FirstSeen  float64
	Timestamp  float64
	PoseEvents []PoseEvent
}

// HasTrack reports whether a track id has been assigned.
func (d *Detection) HasTrack() bool { return d.TrackID > 0 }

// IsClass reports whether the detection's class name matches name,
// ignoring case.
func (d *Detection) IsClass(name string) bool {
	return strings.EqualFold(d.ClassName, name)
}

// Clone returns a deep copy of d.
func (d Detection) Clone() Detection {
	d.Keypoints = slices.Clone(d.Keypoints)
	d.Embedding = slices.Clone(d.Embedding)
	if d.PoseEvents != nil {
		events := make([]PoseEvent, len(d.PoseEvents))
		for i, e := range d.PoseEvents {
			e.Fields = maps.Clone(e.Fields)
			events[i] = e
		}
		d.PoseEvents = events
	}
	return d
}

// KeypointAt returns keypoint i and whether it exists.
func (d *Detection) KeypointAt(i int) (Keypoint, bool) {
	if i < 0 || i >= len(d.Keypoints) {
		return Keypoint{}, false
	}
	return d.Keypoints[i], true
}
