// Package detector turns frames into detections.
//
// Each detector resolves its inference backend exactly once at construction:
// either an Available ONNX session or Unavailable with a reason. Detectors
// with an unavailable backend fall back to the shared Synthetic generator so
// downstream stages keep receiving plausible detections on hosts without a
// model or runtime.
//
// Object and pose detectors letterbox the frame to the model input, run the
// session, normalise the output tensor, filter by confidence, map boxes back
// to source pixels and apply NMS. Pose models may emit either a combined
// tensor of box, score and keypoints, or a pair of SimCC heads.
package detector
