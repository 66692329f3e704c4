package geometry

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// MinChannels is the smallest candidate row width a detector head may
// produce: four box values plus at least two score channels.
const MinChannels = 6

// ErrTensorShape reports a backend output that cannot be decoded. It is
// fatal for the current frame only.
var ErrTensorShape = errors.New("geometry: unexpected tensor shape")

// Tensor is a dense float32 tensor in row-major order.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// Rank returns the number of dimensions.
func (t Tensor) Rank() int { return len(t.Shape) }

// Len returns the element count implied by Shape.
func (t Tensor) Len() int {
	if len(t.Shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range t.Shape {
		n *= int(d)
	}
	return n
}

func (t Tensor) check() error {
	for _, d := range t.Shape {
		if d < 0 {
			return fmt.Errorf("%w: negative dimension in %v", ErrTensorShape, t.Shape)
		}
	}
	if t.Len() != len(t.Data) {
		return fmt.Errorf("%w: shape %v implies %d values, have %d", ErrTensorShape, t.Shape, t.Len(), len(t.Data))
	}
	return nil
}

// NormalizeRows turns a detector head output into an (anchors x channels)
// matrix. Rank-3 outputs arrive as (batch, channels, anchors) or
// (batch, anchors, channels); the former is transposed when the channel
// count is the smaller of the two, then the first batch is taken. Rank-2
// outputs are used as is.
func NormalizeRows(t Tensor) (*mat.Dense, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	var rows, cols int
	var at func(r, c int) float32
	switch t.Rank() {
	case 3:
		if t.Shape[0] < 1 {
			return nil, fmt.Errorf("%w: empty batch in %v", ErrTensorShape, t.Shape)
		}
		d1, d2 := int(t.Shape[1]), int(t.Shape[2])
		if d1 < d2 {
			rows, cols = d2, d1
			at = func(r, c int) float32 { return t.Data[c*d2+r] }
		} else {
			rows, cols = d1, d2
			at = func(r, c int) float32 { return t.Data[r*d2+c] }
		}
	case 2:
		rows, cols = int(t.Shape[0]), int(t.Shape[1])
		at = func(r, c int) float32 { return t.Data[r*cols+c] }
	default:
		return nil, fmt.Errorf("%w: rank %d output %v", ErrTensorShape, t.Rank(), t.Shape)
	}
	if cols < MinChannels {
		return nil, fmt.Errorf("%w: %d channels in %v, need at least %d", ErrTensorShape, cols, t.Shape, MinChannels)
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: no candidate rows in %v", ErrTensorShape, t.Shape)
	}

	out := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out.Set(r, c, float64(at(r, c)))
		}
	}
	return out, nil
}
