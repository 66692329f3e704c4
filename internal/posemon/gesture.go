package posemon

import "github.com/Dv04/aixavier/internal/vision"

// Gesture labels.
const (
	GestureUnknown = "unknown"
	GestureHalt    = "halt"
	GestureProceed = "proceed"
	GestureReverse = "reverse"
	GestureCaution = "caution"
)

// GestureLabels lists every label a GestureModel may report.
var GestureLabels = []string{GestureUnknown, GestureHalt, GestureProceed, GestureReverse, GestureCaution}

// GestureModel classifies raised-hand signals: right wrist above the right
// shoulder is "halt", left wrist above the left shoulder is "proceed".
type GestureModel struct {
	// Margin is how far in pixels the wrist must be above the shoulder.
	Margin float64
}

// NewGestureModel returns a model with the default 10px margin.
func NewGestureModel() GestureModel { return GestureModel{Margin: 10} }

// Predict returns the label and its score. Too few keypoints yield
// ("unknown", 0).
func (g GestureModel) Predict(kps []vision.Keypoint) (string, float64) {
	if len(kps) <= kpRightWrist {
		return GestureUnknown, 0
	}
	if kps[kpRightWrist].Y < kps[kpRightShoulder].Y-g.Margin {
		return GestureHalt, 0.8
	}
	if kps[kpLeftWrist].Y < kps[kpLeftShoulder].Y-g.Margin {
		return GestureProceed, 0.7
	}
	return GestureUnknown, 0.1
}
