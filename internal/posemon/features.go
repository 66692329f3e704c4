package posemon

import (
	"gonum.org/v1/gonum/floats"

	"github.com/Dv04/aixavier/internal/vision"
)

// COCO-17 keypoint indices used by the feature extractors.
const (
	kpNose          = 0
	kpLeftEar       = 3
	kpRightEar      = 4
	kpLeftShoulder  = 5
	kpRightShoulder = 6
	kpLeftWrist     = 9
	kpRightWrist    = 10
	kpLeftHip       = 11
	kpRightHip      = 12
)

// HistorySize bounds the per-track feature history.
const HistorySize = 120

// fallbackProneHeight is reported when head or hips are missing, and is
// tall enough never to look prone.
const fallbackProneHeight = 400.0

// Sample is one per-update kinematic snapshot of a track.
type Sample struct {
	VMag          float64 `json:"v_mag"`
	AMag          float64 `json:"a_mag"`
	ProneHeightPx float64 `json:"prone_height_px"`
}

// history holds the most recent samples, oldest first.
type history struct {
	samples []Sample
	limit   int
}

func newHistory(limit int) history {
	return history{samples: make([]Sample, 0, limit), limit: limit}
}

func (h *history) push(s Sample) {
	if len(h.samples) == h.limit {
		copy(h.samples, h.samples[1:])
		h.samples[len(h.samples)-1] = s
		return
	}
	h.samples = append(h.samples, s)
}

// tail returns up to n of the newest samples. The slice aliases the
// history and is only valid until the next push.
func (h *history) tail(n int) []Sample {
	if n <= 0 || n >= len(h.samples) {
		return h.samples
	}
	return h.samples[len(h.samples)-n:]
}

func (h *history) len() int { return len(h.samples) }

// midHip returns the hip midpoint, or the origin when either hip is missing.
func midHip(kps []vision.Keypoint) []float64 {
	if len(kps) <= kpRightHip {
		return []float64{0, 0}
	}
	l, r := kps[kpLeftHip], kps[kpRightHip]
	return []float64{(l.X + r.X) / 2, (l.Y + r.Y) / 2}
}

// proneHeight is twice the vertical head-to-hip distance. A small value
// means the body is lying down.
func proneHeight(kps []vision.Keypoint) float64 {
	if len(kps) <= kpRightHip {
		return fallbackProneHeight
	}
	hipY := (kps[kpLeftHip].Y + kps[kpRightHip].Y) / 2
	d := kps[kpNose].Y - hipY
	if d < 0 {
		d = -d
	}
	return d * 2
}

// yDelta is kps[a].Y - kps[b].Y, or 0 when either index is missing.
func yDelta(kps []vision.Keypoint, a, b int) float64 {
	if a >= len(kps) || b >= len(kps) {
		return 0
	}
	return kps[a].Y - kps[b].Y
}

func distance(a, b vision.Keypoint) float64 {
	return floats.Distance([]float64{a.X, a.Y}, []float64{b.X, b.Y}, 2)
}
