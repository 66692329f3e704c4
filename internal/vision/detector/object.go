package detector

import (
	"context"
	"fmt"
	"image"

	"gonum.org/v1/gonum/floats"

	"github.com/Dv04/aixavier/internal/config"
	"github.com/Dv04/aixavier/internal/vision"
	"github.com/Dv04/aixavier/internal/vision/geometry"
)

// ObjectDetector decodes YOLO-style box + class-score heads.
type ObjectDetector struct {
	backend Backend
	width   int
	height  int
	conf    float64
	iou     float64
	maxDet  int
	classes []string
	synth   Synthetic
}

// NewObjectDetector builds an object detector. Defaults: input 640x640,
// confidence 0.25, NMS IoU 0.5, at most 300 detections.
func NewObjectDetector(cfg *config.DetectorConfig, open Opener) *ObjectDetector {
	b, w, h := resolve("object", cfg, open, 640)
	return &ObjectDetector{
		backend: b,
		width:   w,
		height:  h,
		conf:    cfg.GetConfidenceThreshold(0.25),
		iou:     cfg.GetNMSIoUThreshold(0.5),
		maxDet:  cfg.GetMaxDetections(300),
		classes: append([]string(nil), cfg.Classes...),
	}
}

func (d *ObjectDetector) Kind() EventKind  { return KindObject }
func (d *ObjectDetector) Backend() Backend { return d.backend }
func (d *ObjectDetector) Close() error     { return closeBackend(d.backend) }

// InputSize returns the model input width and height.
func (d *ObjectDetector) InputSize() (int, int) { return d.width, d.height }

// Detect runs the model on img, or returns the synthetic centred box when
// the backend is unavailable.
func (d *ObjectDetector) Detect(ctx context.Context, img image.Image) ([]vision.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a, ok := d.backend.(Available)
	if !ok {
		b := img.Bounds()
		return []vision.Detection{d.synth.CenteredBox(b.Dx(), b.Dy(), d.classes)}, nil
	}

	canvas, tr, err := geometry.Letterbox(img, d.width, d.height)
	if err != nil {
		return nil, err
	}
	outs, err := a.Session.Run(geometry.Tensor{
		Shape: []int64{1, 3, int64(d.height), int64(d.width)},
		Data:  geometry.ToCHW(canvas),
	})
	if err != nil {
		return nil, fmt.Errorf("object inference: %w", err)
	}
	if len(outs) == 0 {
		return nil, fmt.Errorf("%w: object model returned no outputs", geometry.ErrTensorShape)
	}
	return d.decode(outs[0], tr)
}

func (d *ObjectDetector) decode(out geometry.Tensor, tr geometry.Transform) ([]vision.Detection, error) {
	rows, err := geometry.NormalizeRows(out)
	if err != nil {
		return nil, err
	}
	n, _ := rows.Dims()

	boxes := make([]geometry.Box, 0, n)
	scores := make([]float64, 0, n)
	classIDs := make([]int, 0, n)
	for i := 0; i < n; i++ {
		row := rows.RawRowView(i)
		cls := floats.MaxIdx(row[4:])
		conf := row[4+cls]
		if conf < d.conf {
			continue
		}
		boxes = append(boxes, tr.InverseBox(geometry.XYWHToXYXY(row[0], row[1], row[2], row[3])))
		scores = append(scores, conf)
		classIDs = append(classIDs, cls)
	}

	keep := geometry.Suppress(boxes, scores, d.conf, d.iou, d.maxDet)
	tracef("object decode: %d rows, %d above %.2f, %d kept", n, len(boxes), d.conf, len(keep))

	dets := make([]vision.Detection, 0, len(keep))
	for _, i := range keep {
		dets = append(dets, vision.Detection{
			Box:        boxes[i],
			Confidence: scores[i],
			ClassID:    classIDs[i],
			ClassName:  className(d.classes, classIDs[i]),
		})
	}
	return dets, nil
}
