package geometry

import "math"

// iouEpsilon keeps the IoU denominator away from zero for degenerate boxes.
const iouEpsilon = 1e-6

// Box is an axis-aligned bounding box in corner form (x1,y1,x2,y2).
type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Width returns the box width, clamped at zero.
func (b Box) Width() float64 { return math.Max(0, b.X2-b.X1) }

// Height returns the box height, clamped at zero.
func (b Box) Height() float64 { return math.Max(0, b.Y2-b.Y1) }

// Area returns the box area, clamped at zero.
func (b Box) Area() float64 { return b.Width() * b.Height() }

// Center returns the box centre point.
func (b Box) Center() (float64, float64) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

// Slice returns the box as [x1,y1,x2,y2].
func (b Box) Slice() []float64 { return []float64{b.X1, b.Y1, b.X2, b.Y2} }

// BoxFromSlice builds a Box from [x1,y1,x2,y2]. ok is false when v does not
// hold exactly four values.
func BoxFromSlice(v []float64) (Box, bool) {
	if len(v) != 4 {
		return Box{}, false
	}
	return Box{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]}, true
}

// XYWHToXYXY converts a centre/size box to corner form.
func XYWHToXYXY(cx, cy, w, h float64) Box {
	return Box{X1: cx - w/2, Y1: cy - h/2, X2: cx + w/2, Y2: cy + h/2}
}

// IoU returns the intersection-over-union of a and b. Boxes that do not
// overlap score exactly zero.
func IoU(a, b Box) float64 {
	interW := math.Max(0, math.Min(a.X2, b.X2)-math.Max(a.X1, b.X1))
	interH := math.Max(0, math.Min(a.Y2, b.Y2)-math.Max(a.Y1, b.Y1))
	inter := interW * interH
	if inter <= 0 {
		return 0
	}
	return inter / (a.Area() + b.Area() - inter + iouEpsilon)
}
