package detector

import (
	"context"
	"image"
	"strconv"

	"github.com/Dv04/aixavier/internal/config"
	"github.com/Dv04/aixavier/internal/vision"
)

// EventKind is the record type a detector's output is published under.
type EventKind string

const (
	KindObject          EventKind = "object"
	KindPose            EventKind = "pose"
	KindFace            EventKind = "face"
	KindFaceRecognition EventKind = "face_recognition"
)

// Detector produces detections for one frame. Implementations are not safe
// for concurrent use; each camera owns its detectors.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]vision.Detection, error)
	Kind() EventKind
	Backend() Backend
	Close() error
}

// Option customises detector construction.
type Option func(*options)

type options struct {
	open Opener
}

// WithOpener replaces the ONNX session loader.
func WithOpener(open Opener) Option {
	return func(o *options) { o.open = open }
}

// New builds the detector selected by cfg's task. Unrecognised tasks build
// a SimulatedDetector.
func New(cfg *config.DetectorConfig, opts ...Option) (Detector, error) {
	if cfg == nil {
		cfg = &config.DetectorConfig{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	switch cfg.GetTask() {
	case config.TaskObject:
		return NewObjectDetector(cfg, o.open), nil
	case config.TaskPose:
		return NewPoseDetector(cfg, o.open), nil
	case config.TaskFace:
		return NewFaceDetector(cfg, o.open), nil
	case config.TaskFaceRecognition:
		return NewFaceRecognitionDetector(cfg, o.open), nil
	default:
		return NewSimulatedDetector(cfg), nil
	}
}

// resolve loads the backend for cfg, logs the outcome once and returns the
// effective input size.
func resolve(name string, cfg *config.DetectorConfig, open Opener, defSize int) (Backend, int, int) {
	b := ResolveBackend(cfg.ONNXPath, cfg.SharedLibrary, open)
	w, h := cfg.GetInputSize(defSize)
	w, h = syncInputSize(b, w, h)
	if u, ok := b.(Unavailable); ok && cfg.ONNXPath != "" {
		opsf("%s detector falling back to synthetic detections: %s", name, u.Reason)
	}
	diagf("%s detector ready: backend=%s input=%dx%d", name, describe(b), w, h)
	return b, w, h
}

func className(classes []string, id int) string {
	if id >= 0 && id < len(classes) {
		return classes[id]
	}
	return strconv.Itoa(id)
}
