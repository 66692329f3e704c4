package detector

import (
	"fmt"

	"github.com/Dv04/aixavier/internal/vision/geometry"
)

// Session runs a loaded model on one input tensor.
type Session interface {
	Run(input geometry.Tensor) ([]geometry.Tensor, error)
	// InputShape is the model's first input shape; dynamic dims are <= 0.
	InputShape() []int64
	Close() error
}

// Opener loads the model at path. sharedLibrary optionally points at the
// runtime library.
type Opener func(path, sharedLibrary string) (Session, error)

// Backend is the inference capability of a detector: Available or
// Unavailable. It is resolved once and never changes.
type Backend interface {
	backend()
}

// Available carries a loaded inference session.
type Available struct {
	Session Session
}

// Unavailable records why no session could be loaded.
type Unavailable struct {
	Reason string
}

func (Available) backend()   {}
func (Unavailable) backend() {}

// ResolveBackend attempts to load the model at path with open. Any failure
// yields Unavailable; the error is not returned because detectors degrade
// to synthetic output instead of failing.
func ResolveBackend(path, sharedLibrary string, open Opener) Backend {
	if path == "" {
		return Unavailable{Reason: "no onnx_path configured"}
	}
	if open == nil {
		open = OpenONNX
	}
	s, err := open(path, sharedLibrary)
	if err != nil {
		return Unavailable{Reason: fmt.Sprintf("load %s: %v", path, err)}
	}
	return Available{Session: s}
}

// syncInputSize takes spatial dims from an NCHW model input when they are
// static, otherwise keeps the configured size.
func syncInputSize(b Backend, w, h int) (int, int) {
	a, ok := b.(Available)
	if !ok {
		return w, h
	}
	shape := a.Session.InputShape()
	if len(shape) < 4 {
		return w, h
	}
	if shape[2] > 0 {
		h = int(shape[2])
	}
	if shape[3] > 0 {
		w = int(shape[3])
	}
	return w, h
}

func closeBackend(b Backend) error {
	if a, ok := b.(Available); ok && a.Session != nil {
		return a.Session.Close()
	}
	return nil
}

func describe(b Backend) string {
	switch v := b.(type) {
	case Available:
		return "onnx"
	case Unavailable:
		return "synthetic (" + v.Reason + ")"
	default:
		return "unknown"
	}
}
