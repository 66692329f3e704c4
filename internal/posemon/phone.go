package posemon

import (
	"math"
	"time"

	"github.com/Dv04/aixavier/internal/vision"
)

// PhoneUsage counts consecutive updates with a wrist near an ear. It is
// active once the count reaches DwellFrames. One instance tracks one
// person.
type PhoneUsage struct {
	HandToEarPx float64
	DwellFrames int

	counter   int
	lastDwell int
}

// NewPhoneUsage sizes the dwell in frames from a duration and frame rate.
func NewPhoneUsage(handToEarPx float64, dwell time.Duration, fps float64) *PhoneUsage {
	frames := int(dwell.Seconds() * math.Round(fps))
	return &PhoneUsage{HandToEarPx: handToEarPx, DwellFrames: max(1, frames)}
}

// Score updates the proximity counter and returns (score, active): 0.7
// when active, 0.2 while near but not yet dwelling, else 0. Too few
// keypoints yield (0, false) and leave the counter untouched.
func (p *PhoneUsage) Score(kps []vision.Keypoint) (float64, bool) {
	if len(kps) <= kpRightWrist {
		return 0, false
	}
	right := distance(kps[kpRightWrist], kps[kpRightEar])
	left := distance(kps[kpLeftWrist], kps[kpLeftEar])
	near := right < p.HandToEarPx || left < p.HandToEarPx
	if near {
		p.counter++
	} else {
		p.counter = 0
	}
	p.lastDwell = p.counter
	if p.counter >= p.DwellFrames {
		return 0.7, true
	}
	if near {
		return 0.2, false
	}
	return 0, false
}

// LastDwellFrames is the proximity count after the latest Score.
func (p *PhoneUsage) LastDwellFrames() int { return p.lastDwell }
