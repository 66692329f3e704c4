// Package tracking assigns persistent identities to per-frame detections.
//
// ByteTrack is the default two-tier tracker: high-confidence detections
// claim existing tracks or spawn new ones, then low-confidence detections
// may only keep still-unmatched tracks alive. SimpleTracker is a single
// greedy IoU pass that trusts externally supplied ids; the pipeline uses it
// to keep pose identities stable when pose association fails.
//
// Matching is greedy in detection order. An optimal assignment
// (Hungarian) could resolve crowded scenes better but would change which
// ids survive, so the greedy behaviour is kept.
//
// Track ids are positive, strictly increasing per tracker and never reused.
// Manager owns one tracker per camera; trackers never share state.
package tracking
