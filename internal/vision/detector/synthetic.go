package detector

import (
	"math"

	"github.com/Dv04/aixavier/internal/vision"
	"github.com/Dv04/aixavier/internal/vision/geometry"
)

// SkeletonKeypoints is the number of keypoints in a synthetic skeleton,
// matching the COCO layout pose models emit.
const SkeletonKeypoints = 17

// Synthetic generates deterministic placeholder detections for detectors
// whose backend is unavailable and for the simulated detector.
type Synthetic struct{}

// CenteredBox returns a square box of side 0.4*min(w,h) centred in a w x h
// frame with confidence 0.5, class id 0 and the first configured class
// name, or "object".
func (Synthetic) CenteredBox(w, h int, classes []string) vision.Detection {
	size := math.Min(float64(w), float64(h)) * 0.4
	x1 := (float64(w) - size) / 2
	y1 := (float64(h) - size) / 2
	name := "object"
	if len(classes) > 0 {
		name = classes[0]
	}
	return vision.Detection{
		Box:        geometry.Box{X1: x1, Y1: y1, X2: x1 + size, Y2: y1 + size},
		Confidence: 0.5,
		ClassID:    0,
		ClassName:  name,
	}
}

// Skeleton returns an upright 17-keypoint person centred in a w x h frame.
// The first four keypoints run head, neck, spine, pelvis down the centre
// line; the rest sit on a ring around the spine.
func (Synthetic) Skeleton(w, h int) vision.Detection {
	torso := float64(h) * 0.25
	cx, cy := float64(w)/2, float64(h)/2

	kps := make([]vision.Keypoint, 0, SkeletonKeypoints)
	kps = append(kps,
		vision.Keypoint{X: cx, Y: cy - torso, Conf: 0.8},   // head
		vision.Keypoint{X: cx, Y: cy - torso/2, Conf: 0.9}, // neck
		vision.Keypoint{X: cx, Y: cy, Conf: 0.95},          // spine
		vision.Keypoint{X: cx, Y: cy + torso/2, Conf: 0.9}, // pelvis
	)
	radius := torso / 1.5
	for len(kps) < SkeletonKeypoints {
		angle := float64(len(kps)-4) * (math.Pi / 6)
		kps = append(kps, vision.Keypoint{
			X:    cx + radius*math.Cos(angle),
			Y:    cy + radius*math.Sin(angle),
			Conf: 0.6,
		})
	}

	return vision.Detection{
		Box: geometry.Box{
			X1: cx - torso/1.2,
			Y1: cy - torso*1.2,
			X2: cx + torso/1.2,
			Y2: cy + torso*1.2,
		},
		Confidence: 0.6,
		ClassName:  "person",
		Keypoints:  kps,
	}
}

// Region returns a box spanning [lo,hi] of each frame axis.
func (Synthetic) Region(w, h int, lo, hi, conf float64, class string) vision.Detection {
	fw, fh := float64(w), float64(h)
	return vision.Detection{
		Box:        geometry.Box{X1: fw * lo, Y1: fh * lo, X2: fw * hi, Y2: fh * hi},
		Confidence: conf,
		ClassID:    0,
		ClassName:  class,
	}
}
