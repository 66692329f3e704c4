package detector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dv04/aixavier/internal/vision"
	"github.com/Dv04/aixavier/internal/vision/geometry"
)

func TestSyntheticCenteredBox(t *testing.T) {
	t.Parallel()
	var s Synthetic

	det := s.CenteredBox(1000, 500, nil)
	assert.Equal(t, geometry.Box{X1: 400, Y1: 150, X2: 600, Y2: 350}, det.Box)
	assert.Equal(t, 0.5, det.Confidence)
	assert.Equal(t, 0, det.ClassID)
	assert.Equal(t, "object", det.ClassName)

	det = s.CenteredBox(100, 100, []string{"bag", "car"})
	assert.Equal(t, "bag", det.ClassName)
	assert.InDelta(t, 40, det.Box.Width(), 1e-9)
}

func TestSyntheticSkeleton(t *testing.T) {
	t.Parallel()
	var s Synthetic

	det := s.Skeleton(640, 480)
	require.Len(t, det.Keypoints, SkeletonKeypoints)
	assert.Equal(t, 0.6, det.Confidence)

	// torso 120, centre (320, 240)
	assert.Equal(t, vision.Keypoint{X: 320, Y: 120, Conf: 0.8}, det.Keypoints[0])
	assert.Equal(t, vision.Keypoint{X: 320, Y: 180, Conf: 0.9}, det.Keypoints[1])
	assert.Equal(t, vision.Keypoint{X: 320, Y: 240, Conf: 0.95}, det.Keypoints[2])
	assert.Equal(t, vision.Keypoint{X: 320, Y: 300, Conf: 0.9}, det.Keypoints[3])

	radius := 120 / 1.5
	for i := 4; i < SkeletonKeypoints; i++ {
		kp := det.Keypoints[i]
		angle := float64(i-4) * math.Pi / 6
		assert.InDelta(t, 320+radius*math.Cos(angle), kp.X, 1e-9, "keypoint %d", i)
		assert.InDelta(t, 240+radius*math.Sin(angle), kp.Y, 1e-9, "keypoint %d", i)
		assert.Equal(t, 0.6, kp.Conf)
	}

	assert.InDelta(t, 220, det.Box.X1, 1e-9)
	assert.InDelta(t, 96, det.Box.Y1, 1e-9)
	assert.InDelta(t, 420, det.Box.X2, 1e-9)
	assert.InDelta(t, 384, det.Box.Y2, 1e-9)
}

func TestSyntheticRegion(t *testing.T) {
	t.Parallel()
	var s Synthetic

	det := s.Region(200, 100, 0.25, 0.75, 0.4, "event")
	assert.Equal(t, geometry.Box{X1: 50, Y1: 25, X2: 150, Y2: 75}, det.Box)
	assert.Equal(t, 0.4, det.Confidence)
	assert.Equal(t, "event", det.ClassName)
}

func TestSyntheticIsDeterministic(t *testing.T) {
	t.Parallel()
	var a, b Synthetic
	assert.Equal(t, a.Skeleton(333, 777), b.Skeleton(333, 777))
	assert.Equal(t, a.CenteredBox(333, 777, nil), b.CenteredBox(333, 777, nil))
}
