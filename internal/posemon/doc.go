// Package posemon derives pose sub-events from tracked pose detections.
//
// A Monitor keeps one kinematic history per track id and scores every
// update with three models:
//
//   - collapse: a CollapseScorer over the most recent feature samples
//     (heuristic, or an ONNX model when one is configured)
//   - gesture: wrist-above-shoulder signalling (GestureModel)
//   - phone use: sustained hand-to-ear proximity (PhoneUsage), sticky until
//     the condition clears and gated by vehicle speed telemetry
//
// Emitted sub-events are attached to the detection as vision.PoseEvent
// values. Each emission also refreshes a short-lived banner used for HUD
// summaries; banner expiry never suppresses the sub-events themselves.
//
// A Monitor is owned by one camera pipeline and is not safe for concurrent
// Process calls. Telemetry and Banners are safe to share.
package posemon
