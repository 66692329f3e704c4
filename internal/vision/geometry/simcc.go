package geometry

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// ErrSimCCShape reports SimCC heads that cannot be decoded together.
var ErrSimCCShape = errors.New("geometry: unexpected SimCC head shape")

// Keypoint is a decoded pose landmark.
type Keypoint struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Conf float64 `json:"conf"`
}

// Pose is a decoded person pose in model input space.
type Pose struct {
	Box       Box
	Score     float64
	Keypoints []Keypoint
}

func prepareSimCC(t Tensor) (Tensor, error) {
	if err := t.check(); err != nil {
		return Tensor{}, fmt.Errorf("%w: %v", ErrSimCCShape, err)
	}
	switch t.Rank() {
	case 2:
		return Tensor{Shape: append([]int64{1}, t.Shape...), Data: t.Data}, nil
	case 3:
		return t, nil
	default:
		return Tensor{}, fmt.Errorf("%w: rank %d head %v", ErrSimCCShape, t.Rank(), t.Shape)
	}
}

// DecodeSimCC decodes paired x/y SimCC heads shaped (batch, keypoints, bins)
// into poses. Coordinates are scaled to the model input size; each pose box
// spans its keypoints and its score is the mean keypoint confidence.
func DecodeSimCC(xHead, yHead Tensor, inputW, inputH int) ([]Pose, error) {
	x, err := prepareSimCC(xHead)
	if err != nil {
		return nil, err
	}
	y, err := prepareSimCC(yHead)
	if err != nil {
		return nil, err
	}
	if !slices.Equal(x.Shape[:2], y.Shape[:2]) {
		return nil, fmt.Errorf("%w: heads mismatch %v vs %v", ErrSimCCShape, x.Shape, y.Shape)
	}

	batch, kpts := int(x.Shape[0]), int(x.Shape[1])
	xBins, yBins := int(x.Shape[2]), int(y.Shape[2])
	if kpts == 0 || xBins == 0 || yBins == 0 {
		return nil, fmt.Errorf("%w: empty head %v / %v", ErrSimCCShape, x.Shape, y.Shape)
	}
	xDen := float64(max(xBins-1, 1))
	yDen := float64(max(yBins-1, 1))

	poses := make([]Pose, 0, batch)
	for n := 0; n < batch; n++ {
		pose := Pose{
			Keypoints: make([]Keypoint, kpts),
			Box:       Box{X1: math.Inf(1), Y1: math.Inf(1), X2: math.Inf(-1), Y2: math.Inf(-1)},
		}
		var confSum float64
		for k := 0; k < kpts; k++ {
			xi, xc := argmax(x.Data[(n*kpts+k)*xBins : (n*kpts+k+1)*xBins])
			yi, yc := argmax(y.Data[(n*kpts+k)*yBins : (n*kpts+k+1)*yBins])
			conf := math.Sqrt(clip(xc*yc, 0, 1))
			kp := Keypoint{
				X:    float64(xi) / xDen * float64(inputW),
				Y:    float64(yi) / yDen * float64(inputH),
				Conf: conf,
			}
			pose.Keypoints[k] = kp
			confSum += conf
			pose.Box.X1 = math.Min(pose.Box.X1, kp.X)
			pose.Box.Y1 = math.Min(pose.Box.Y1, kp.Y)
			pose.Box.X2 = math.Max(pose.Box.X2, kp.X)
			pose.Box.Y2 = math.Max(pose.Box.Y2, kp.Y)
		}
		pose.Score = confSum / float64(kpts)
		poses = append(poses, pose)
	}
	return poses, nil
}

func argmax(v []float32) (int, float64) {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best, float64(v[best])
}

func clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
