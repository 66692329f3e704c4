package geometry

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// PadValue is the grey level used to fill letterbox borders.
const PadValue = 114

// ErrInvalidSize is returned when a source or target dimension is not positive.
var ErrInvalidSize = errors.New("geometry: invalid image size")

// Transform records how a source image was mapped onto a letterboxed
// canvas so model-space coordinates can be taken back to source pixels.
type Transform struct {
	Scale  float64
	PadX   int // left offset in target pixels
	PadY   int // top offset in target pixels
	Width  int // target width
	Height int // target height
}

// ComputeTransform returns the letterbox mapping of a srcW x srcH image onto
// a dstW x dstH canvas together with the resized content size.
func ComputeTransform(srcW, srcH, dstW, dstH int) (Transform, image.Point, error) {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return Transform{}, image.Point{}, fmt.Errorf("%w: src %dx%d dst %dx%d", ErrInvalidSize, srcW, srcH, dstW, dstH)
	}
	scale := math.Min(float64(dstW)/float64(srcW), float64(dstH)/float64(srcH))
	rw := max(1, int(float64(srcW)*scale))
	rh := max(1, int(float64(srcH)*scale))
	return Transform{
		Scale:  scale,
		PadX:   int(float64(dstW-rw) / 2),
		PadY:   int(float64(dstH-rh) / 2),
		Width:  dstW,
		Height: dstH,
	}, image.Pt(rw, rh), nil
}

// Forward maps a source-pixel coordinate into letterboxed model space.
func (t Transform) Forward(x, y float64) (float64, float64) {
	return x*t.Scale + float64(t.PadX), y*t.Scale + float64(t.PadY)
}

// Inverse maps a model-space coordinate back to source pixels.
func (t Transform) Inverse(x, y float64) (float64, float64) {
	return (x - float64(t.PadX)) / t.Scale, (y - float64(t.PadY)) / t.Scale
}

// InverseBox maps a model-space box back to source pixels.
func (t Transform) InverseBox(b Box) Box {
	x1, y1 := t.Inverse(b.X1, b.Y1)
	x2, y2 := t.Inverse(b.X2, b.Y2)
	return Box{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Letterbox resizes src preserving its aspect ratio and centres it on a
// dstW x dstH canvas filled with PadValue.
func Letterbox(src image.Image, dstW, dstH int) (*image.RGBA, Transform, error) {
	sb := src.Bounds()
	tr, size, err := ComputeTransform(sb.Dx(), sb.Dy(), dstW, dstH)
	if err != nil {
		return nil, Transform{}, err
	}
	canvas := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	fill := image.NewUniform(color.RGBA{R: PadValue, G: PadValue, B: PadValue, A: 255})
	draw.Draw(canvas, canvas.Bounds(), fill, image.Point{}, draw.Src)

	target := image.Rect(tr.PadX, tr.PadY, tr.PadX+size.X, tr.PadY+size.Y)
	draw.BiLinear.Scale(canvas, target, src, sb, draw.Src, nil)
	return canvas, tr, nil
}

// ToCHW flattens img into a planar RGB float tensor scaled to [0,1], the
// layout expected by NCHW detector inputs.
func ToCHW(img *image.RGBA) []float32 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	plane := w * h
	out := make([]float32, 3*plane)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			px := row[x*4:]
			i := y*w + x
			out[i] = float32(px[0]) / 255
			out[plane+i] = float32(px[1]) / 255
			out[2*plane+i] = float32(px[2]) / 255
		}
	}
	return out
}
