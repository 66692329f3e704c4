package detector

import (
	"context"
	"fmt"
	"image"

	"github.com/Dv04/aixavier/internal/config"
	"github.com/Dv04/aixavier/internal/vision"
	"github.com/Dv04/aixavier/internal/vision/geometry"
)

// PoseDetector decodes person poses from either a combined
// [cx,cy,w,h,score,kpts*3] head or a pair of SimCC heads.
type PoseDetector struct {
	backend Backend
	width   int
	height  int
	conf    float64
	iou     float64
	maxDet  int
	synth   Synthetic
}

// NewPoseDetector builds a pose detector. Defaults: input 640x640,
// confidence 0.25, NMS IoU 0.6, at most 200 detections.
func NewPoseDetector(cfg *config.DetectorConfig, open Opener) *PoseDetector {
	b, w, h := resolve("pose", cfg, open, 640)
	return &PoseDetector{
		backend: b,
		width:   w,
		height:  h,
		conf:    cfg.GetConfidenceThreshold(0.25),
		iou:     cfg.GetNMSIoUThreshold(0.6),
		maxDet:  cfg.GetMaxDetections(200),
	}
}

func (d *PoseDetector) Kind() EventKind  { return KindPose }
func (d *PoseDetector) Backend() Backend { return d.backend }
func (d *PoseDetector) Close() error     { return closeBackend(d.backend) }

// InputSize returns the model input width and height.
func (d *PoseDetector) InputSize() (int, int) { return d.width, d.height }

// Detect runs the model on img, or returns the synthetic skeleton when the
// backend is unavailable.
func (d *PoseDetector) Detect(ctx context.Context, img image.Image) ([]vision.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a, ok := d.backend.(Available)
	if !ok {
		b := img.Bounds()
		return []vision.Detection{d.synth.Skeleton(b.Dx(), b.Dy())}, nil
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
		return nil, fmt.Errorf("pose inference: %w", err)
	}

	var poses []geometry.Pose
	switch len(outs) {
	case 0:
		return nil, fmt.Errorf("%w: pose model returned no outputs", geometry.ErrTensorShape)
	case 2:
		poses, err = geometry.DecodeSimCC(outs[0], outs[1], d.width, d.height)
	default:
		poses, err = decodeCombined(outs[0])
	}
	if err != nil {
		return nil, err
	}
	return d.finish(poses, tr), nil
}

// decodeCombined reads rows of [cx,cy,w,h,score,x,y,c,...] into poses in
// model input space.
func decodeCombined(out geometry.Tensor) ([]geometry.Pose, error) {
	rows, err := geometry.NormalizeRows(out)
	if err != nil {
		return nil, err
	}
	n, cols := rows.Dims()
	numKpts := (cols - 5) / 3

	poses := make([]geometry.Pose, n)
	for i := 0; i < n; i++ {
		row := rows.RawRowView(i)
		kps := make([]geometry.Keypoint, numKpts)
		for k := range kps {
			base := 5 + 3*k
			kps[k] = geometry.Keypoint{X: row[base], Y: row[base+1], Conf: row[base+2]}
		}
		poses[i] = geometry.Pose{
			Box:       geometry.XYWHToXYXY(row[0], row[1], row[2], row[3]),
			Score:     row[4],
			Keypoints: kps,
		}
	}
	return poses, nil
}

// finish filters poses by confidence, maps boxes and keypoints back to
// source pixels and applies NMS.
func (d *PoseDetector) finish(poses []geometry.Pose, tr geometry.Transform) []vision.Detection {
	boxes := make([]geometry.Box, len(poses))
	scores := make([]float64, len(poses))
	for i, p := range poses {
		boxes[i] = tr.InverseBox(p.Box)
		scores[i] = p.Score
	}
	keep := geometry.Suppress(boxes, scores, d.conf, d.iou, d.maxDet)
	tracef("pose decode: %d candidates, %d kept", len(poses), len(keep))

	dets := make([]vision.Detection, 0, len(keep))
	for _, i := range keep {
		kps := make([]vision.Keypoint, len(poses[i].Keypoints))
		for k, kp := range poses[i].Keypoints {
			x, y := tr.Inverse(kp.X, kp.Y)
			kps[k] = vision.Keypoint{X: x, Y: y, Conf: kp.Conf}
		}
		dets = append(dets, vision.Detection{
			Box:        boxes[i],
			Confidence: scores[i],
			ClassName:  "person",
			Keypoints:  kps,
		})
	}
	return dets
}
