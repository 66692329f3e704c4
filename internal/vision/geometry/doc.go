// Package geometry holds the numeric building blocks shared by the
// detectors: letterbox resize and its inverse, normalisation of raw
// inference tensors into candidate rows, SimCC keypoint decoding, IoU and
// greedy non-maximum suppression.
//
// Dependency rule: geometry imports no other internal package. Everything
// here is a pure function of its inputs and safe for concurrent use.
package geometry
