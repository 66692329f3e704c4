package posemon

import (
	"slices"

	"github.com/Dv04/aixavier/internal/vision"
)

// DefaultSmootherAlpha is the EMA weight of the newest keypoints.
const DefaultSmootherAlpha = 0.4

// KeypointSmoother applies a per-track exponential moving average to
// keypoint positions and confidences.
type KeypointSmoother struct {
	alpha float64
	state map[int64][]vision.Keypoint
}

// NewKeypointSmoother returns a smoother; alpha outside (0,1] uses
// DefaultSmootherAlpha.
func NewKeypointSmoother(alpha float64) *KeypointSmoother {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultSmootherAlpha
	}
	return &KeypointSmoother{alpha: alpha, state: make(map[int64][]vision.Keypoint)}
}

// Smooth blends kps into the track's running estimate and returns a copy
// of the new estimate. A change in keypoint count restarts the estimate.
func (s *KeypointSmoother) Smooth(trackID int64, kps []vision.Keypoint) []vision.Keypoint {
	prev, ok := s.state[trackID]
	if !ok || len(prev) != len(kps) {
		s.state[trackID] = slices.Clone(kps)
		return slices.Clone(kps)
	}
	a := s.alpha
	for i, k := range kps {
		prev[i].X = a*k.X + (1-a)*prev[i].X
		prev[i].Y = a*k.Y + (1-a)*prev[i].Y
		prev[i].Conf = a*k.Conf + (1-a)*prev[i].Conf
	}
	return slices.Clone(prev)
}

// Forget drops the estimate of a track.
func (s *KeypointSmoother) Forget(trackID int64) { delete(s.state, trackID) }
