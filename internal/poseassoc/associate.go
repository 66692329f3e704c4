// Package poseassoc links pose detections to tracked person detections so
// pose-derived events carry the person's track identity.
package poseassoc

import (
	"sort"

	"github.com/Dv04/aixavier/internal/vision"
	"github.com/Dv04/aixavier/internal/vision/geometry"
)

// DefaultMinIoU is the minimum person/pose overlap for association.
const DefaultMinIoU = 0.1

// PersonClass is the object class poses are associated with.
const PersonClass = "person"

// Persons returns the detections whose class is "person", ignoring case.
func Persons(dets []vision.Detection) []vision.Detection {
	var out []vision.Detection
	for i := range dets {
		if dets[i].IsClass(PersonClass) {
			out = append(out, dets[i])
		}
	}
	return out
}

// PoseTrackIDBase is the first id a pose tracker issues for poses no person
// claimed. Person trackers count up from 1, so the two never meet.
const PoseTrackIDBase int64 = 1 << 32

// Associate gives poses the track id and first-seen time of the tracked
// person they overlap, when that overlap reaches minIoU. Pairs are taken in
// descending IoU and each person and each pose is used at most once. Poses
// are updated in place and returned; unmatched poses are left untouched.
func Associate(persons, poses []vision.Detection, minIoU float64) []vision.Detection {
	if len(persons) == 0 || len(poses) == 0 {
		return poses
	}
	type pair struct {
		pose, person int
		iou          float64
	}
	var pairs []pair
	for i := range poses {
		for j := range persons {
			if !persons[j].HasTrack() {
				continue
			}
			iou := geometry.IoU(persons[j].Box, poses[i].Box)
			if iou > 0 && iou >= minIoU {
				pairs = append(pairs, pair{pose: i, person: j, iou: iou})
			}
		}
	}
	sort.SliceStable(pairs, func(a, b int) bool { return pairs[a].iou > pairs[b].iou })

	posed := make([]bool, len(poses))
	claimed := make([]bool, len(persons))
	for _, p := range pairs {
		if posed[p.pose] || claimed[p.person] {
			continue
		}
		posed[p.pose], claimed[p.person] = true, true
		pose, person := &poses[p.pose], &persons[p.person]
		pose.TrackID = person.TrackID
		if person.FirstSeen != 0 {
			pose.FirstSeen = person.FirstSeen
		}
	}
	return poses
}
