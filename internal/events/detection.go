package events

import (
	"maps"

	"github.com/Dv04/aixavier/internal/vision"
)

// FromDetection builds the record published for one detection of a frame.
// first_seen defaults to the frame timestamp; track_id is omitted until a
// tracker has assigned one.
func FromDetection(kind, cameraID string, frameIndex int64, timestamp float64, det vision.Detection) Record {
	f := map[string]any{
		FieldCameraID:   cameraID,
		FieldTimestamp:  timestamp,
		FieldFrameIndex: frameIndex,
		FieldConfidence: det.Confidence,
		FieldBBox:       []float64{det.Box.X1, det.Box.Y1, det.Box.X2, det.Box.Y2},
		FieldClassID:    det.ClassID,
		FieldFirstSeen:  timestamp,
	}
	if det.ClassName != "" {
		f[FieldClass] = det.ClassName
	}
	if det.FirstSeen != 0 {
		f[FieldFirstSeen] = det.FirstSeen
	}
	if det.HasTrack() {
		f[FieldTrackID] = det.TrackID
	}
	if len(det.Keypoints) > 0 {
		kps := make([][3]float64, len(det.Keypoints))
		for i, k := range det.Keypoints {
			kps[i] = [3]float64{k.X, k.Y, k.Conf}
		}
		f[FieldKeypoints] = kps
	}
	if len(det.Embedding) > 0 {
		f[FieldEmbedding] = det.Embedding
	}
	return New(kind, f)
}

// FromPoseEvent builds the record of a pose sub-event. Identity and frame
// fields are copied from the parent detection record.
func FromPoseEvent(parent Record, ev vision.PoseEvent) Record {
	f := maps.Clone(ev.Fields)
	if f == nil {
		f = make(map[string]any)
	}
	for _, k := range []string{FieldCameraID, FieldTrackID, FieldTimestamp, FieldFrameIndex, FieldFirstSeen, FieldConfidence} {
		if v, ok := parent.Fields[k]; ok {
			f[k] = v
		}
	}
	f[FieldScore] = ev.Score
	return New(ev.Type, f)
}
