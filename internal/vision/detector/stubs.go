package detector

import (
	"context"
	"image"

	"github.com/Dv04/aixavier/internal/config"
	"github.com/Dv04/aixavier/internal/vision"
)

// EmbeddingSize is the length of face recognition embeddings.
const EmbeddingSize = 512

// SimulatedDetector emits one mid-frame box every interval calls. It stands
// in for tasks without a dedicated pipeline.
type SimulatedDetector struct {
	kind     EventKind
	class    string
	interval int
	counter  int
	synth    Synthetic
}

// NewSimulatedDetector builds a simulated detector.
func NewSimulatedDetector(cfg *config.DetectorConfig) *SimulatedDetector {
	return &SimulatedDetector{
		kind:     EventKind(cfg.GetEventType()),
		class:    cfg.GetSimulationClass(),
		interval: cfg.GetInterval(),
	}
}

func (d *SimulatedDetector) Kind() EventKind  { return d.kind }
func (d *SimulatedDetector) Backend() Backend { return Unavailable{Reason: "simulated"} }
func (d *SimulatedDetector) Close() error     { return nil }

// Detect returns a box over the central half of the frame on every
// interval-th call and nothing otherwise.
func (d *SimulatedDetector) Detect(ctx context.Context, img image.Image) ([]vision.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.counter++
	if d.counter%d.interval != 0 {
		return nil, nil
	}
	b := img.Bounds()
	return []vision.Detection{d.synth.Region(b.Dx(), b.Dy(), 0.25, 0.75, 0.4, d.class)}, nil
}

// FaceDetector is a placeholder face detector. A loaded model yields no
// detections until face decoding exists; without one it emits a fixed
// central face box.
type FaceDetector struct {
	backend Backend
	width   int
	height  int
	synth   Synthetic
}

// NewFaceDetector builds a face detector (input 640x640).
func NewFaceDetector(cfg *config.DetectorConfig, open Opener) *FaceDetector {
	b, w, h := resolve("face", cfg, open, 640)
	return &FaceDetector{backend: b, width: w, height: h}
}

func (d *FaceDetector) Kind() EventKind  { return KindFace }
func (d *FaceDetector) Backend() Backend { return d.backend }
func (d *FaceDetector) Close() error     { return closeBackend(d.backend) }

// InputSize returns the model input width and height.
func (d *FaceDetector) InputSize() (int, int) { return d.width, d.height }

func (d *FaceDetector) Detect(ctx context.Context, img image.Image) ([]vision.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, ok := d.backend.(Available); ok {
		return nil, nil
	}
	b := img.Bounds()
	return []vision.Detection{d.synth.Region(b.Dx(), b.Dy(), 0.3, 0.7, 0.6, "face")}, nil
}

// FaceRecognitionDetector is a placeholder recogniser producing a central
// face with a zero embedding when no model is loaded.
type FaceRecognitionDetector struct {
	backend Backend
	width   int
	height  int
	synth   Synthetic
}

// NewFaceRecognitionDetector builds a recogniser (input 112x112).
func NewFaceRecognitionDetector(cfg *config.DetectorConfig, open Opener) *FaceRecognitionDetector {
	b, w, h := resolve("face_recognition", cfg, open, 112)
	return &FaceRecognitionDetector{backend: b, width: w, height: h}
}

func (d *FaceRecognitionDetector) Kind() EventKind  { return KindFaceRecognition }
func (d *FaceRecognitionDetector) Backend() Backend { return d.backend }
func (d *FaceRecognitionDetector) Close() error     { return closeBackend(d.backend) }

// InputSize returns the model input width and height.
func (d *FaceRecognitionDetector) InputSize() (int, int) { return d.width, d.height }

func (d *FaceRecognitionDetector) Detect(ctx context.Context, img image.Image) ([]vision.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, ok := d.backend.(Available); ok {
		return nil, nil
	}
	b := img.Bounds()
	det := d.synth.Region(b.Dx(), b.Dy(), 0.3, 0.7, 0.7, "face_recognition")
	det.Embedding = make([]float64, EmbeddingSize)
	return []vision.Detection{det}, nil
}
