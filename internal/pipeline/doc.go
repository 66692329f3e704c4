// Package pipeline runs the per-camera perception-to-event flow.
//
// A Camera owns the detectors, the pose tracker and the pose monitor of one
// stream and processes its frames strictly in order: detect, track,
// associate poses with tracked persons, derive pose events, publish
// records and evaluate use cases. The Runner feeds frame records to one
// goroutine per camera. Object tracking state lives in a tracking.Manager
// and rule state in a rules.Engine, both shared by every camera.
package pipeline
