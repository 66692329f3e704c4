package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync/atomic"

	"github.com/Dv04/aixavier/internal/config"
	"github.com/Dv04/aixavier/internal/events"
	"github.com/Dv04/aixavier/internal/poseassoc"
	"github.com/Dv04/aixavier/internal/posemon"
	"github.com/Dv04/aixavier/internal/rules"
	"github.com/Dv04/aixavier/internal/tracking"
	"github.com/Dv04/aixavier/internal/vision"
	"github.com/Dv04/aixavier/internal/vision/detector"
	"github.com/Dv04/aixavier/internal/vision/geometry"
)

// CameraConfig wires one camera. Detectors are owned by the camera and
// closed with it; Objects, Rules and Sink may be shared.
type CameraConfig struct {
	ID        string
	Detectors []detector.Detector

	// Objects tracks object detections. Required when an object
	// detector is configured.
	Objects *tracking.Manager

	// Poses tracks associated pose detections. Nil builds a
	// SimpleTracker from Tuning that issues ids from
	// poseassoc.PoseTrackIDBase.
	Poses   tracking.Tracker
	Monitor *posemon.Monitor
	Rules   *rules.Engine
	Sink    events.Sink

	// Tuning supplies association, pose tracker and monitor defaults.
	Tuning *config.TuningConfig
}

// Camera is the per-camera pipeline context. It is not safe for concurrent
// use; the Runner gives each camera its own goroutine.
type Camera struct {
	id        string
	detectors []detector.Detector
	objects   *tracking.Manager
	poses     tracking.Tracker
	monitor   *posemon.Monitor
	rules     *rules.Engine
	sink      events.Sink
	minIoU    float64
	fps       float64

	// persons is the latest tracked person set, read by pose association.
	persons []vision.Detection

	frames      atomic.Uint64
	failed      atomic.Uint64
	shapeErrors atomic.Uint64
	published   atomic.Uint64
	derived     atomic.Uint64
}

// NewCamera builds a camera pipeline.
func NewCamera(cfg CameraConfig) (*Camera, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("camera id is required")
	}
	if cfg.Sink == nil {
		return nil, fmt.Errorf("camera %s: sink is required", cfg.ID)
	}
	tuning := cfg.Tuning
	if tuning == nil {
		tuning = config.EmptyTuningConfig()
	}
	for _, d := range cfg.Detectors {
		if d.Kind() == detector.KindObject && cfg.Objects == nil {
			return nil, fmt.Errorf("camera %s: object detector needs a tracker", cfg.ID)
		}
	}

	c := &Camera{
		id:        cfg.ID,
		detectors: cfg.Detectors,
		objects:   cfg.Objects,
		poses:     cfg.Poses,
		monitor:   cfg.Monitor,
		rules:     cfg.Rules,
		sink:      cfg.Sink,
		minIoU:    tuning.GetPoseAssocMinIoU(),
		fps:       tuning.GetFPS(),
	}
	if c.poses == nil {
		c.poses = tracking.NewSimpleTracker(tracking.Config{
			Algorithm: tracking.AlgorithmSimple,
			MatchIoU:  tuning.GetPoseTrackIoU(),
			MaxAge:    tuning.GetPoseTrackMaxAge(),
			FirstID:   poseassoc.PoseTrackIDBase,
		})
	}
	if c.monitor == nil {
		c.monitor = posemon.NewMonitor(posemon.ConfigFromTuning(tuning))
	}
	diagf("camera %s: %d detectors", c.id, len(c.detectors))
	return c, nil
}

// ID returns the camera id.
func (c *Camera) ID() string { return c.id }

// Monitor returns the camera's pose monitor.
func (c *Camera) Monitor() *posemon.Monitor { return c.monitor }

// Process runs every detector on img and publishes the resulting records
// in order. A detector failure discards the whole frame; tracker state
// already updated for this frame is kept.
func (c *Camera) Process(ctx context.Context, fr FrameRecord, img image.Image) error {
	c.frames.Add(1)
	var out []events.Record
	for _, d := range c.detectors {
		recs, err := c.detect(ctx, d, fr, img)
		if err != nil {
			c.failed.Add(1)
			if errors.Is(err, geometry.ErrTensorShape) || errors.Is(err, geometry.ErrSimCCShape) {
				n := c.shapeErrors.Add(1)
				opsf("camera %s frame %d: %s output rejected (%d shape errors): %v", c.id, fr.FrameIndex, d.Kind(), n, err)
			}
			return fmt.Errorf("camera %s frame %d: %w", c.id, fr.FrameIndex, err)
		}
		out = append(out, recs...)
	}
	return c.publish(ctx, out)
}

func (c *Camera) detect(ctx context.Context, d detector.Detector, fr FrameRecord, img image.Image) ([]events.Record, error) {
	dets, err := d.Detect(ctx, img)
	if err != nil {
		return nil, err
	}
	for i := range dets {
		if dets[i].Timestamp == 0 {
			dets[i].Timestamp = fr.Timestamp
		}
	}

	switch d.Kind() {
	case detector.KindObject:
		dets = c.objects.Update(c.id, dets)
		persons := poseassoc.Persons(dets)
		c.persons = c.persons[:0]
		for i := range persons {
			c.persons = append(c.persons, persons[i].Clone())
		}
	case detector.KindPose:
		dets = poseassoc.Associate(c.persons, dets, c.minIoU)
		dets = c.poses.Update(dets)
		c.monitor.Process(c.id, dets, c.fps)
		c.monitor.Retain(activeIDs(c.poses.ActiveTracks()))
	}

	recs := make([]events.Record, 0, len(dets))
	for i := range dets {
		rec := events.FromDetection(string(d.Kind()), c.id, fr.FrameIndex, fr.Timestamp, dets[i])
		recs = append(recs, rec)
		for _, ev := range dets[i].PoseEvents {
			recs = append(recs, events.FromPoseEvent(rec, ev))
		}
	}
	tracef("camera %s frame %d: %s produced %d records", c.id, fr.FrameIndex, d.Kind(), len(recs))
	return recs, nil
}

func activeIDs(tracks []tracking.Track) func(int64) bool {
	ids := make(map[int64]struct{}, len(tracks))
	for _, t := range tracks {
		ids[t.ID] = struct{}{}
	}
	return func(id int64) bool {
		_, ok := ids[id]
		return ok
	}
}

// publish sends each record to the sink, followed by the use-case events
// it triggers.
func (c *Camera) publish(ctx context.Context, recs []events.Record) error {
	var errs []error
	for _, r := range recs {
		if err := c.sink.Publish(ctx, r); err != nil {
			errs = append(errs, err)
			continue
		}
		c.published.Add(1)
		if c.rules == nil {
			continue
		}
		for _, ev := range c.rules.Evaluate(r) {
			if err := c.sink.Publish(ctx, ev); err != nil {
				errs = append(errs, err)
				continue
			}
			c.derived.Add(1)
			diagf("camera %s: use case %s fired", c.id, ev.Type)
		}
	}
	return errors.Join(errs...)
}

// CameraStats counts a camera's activity.
type CameraStats struct {
	Frames      uint64
	Failed      uint64
	ShapeErrors uint64
	Published   uint64
	Derived     uint64
}

// Stats returns the camera's counters.
func (c *Camera) Stats() CameraStats {
	return CameraStats{
		Frames:      c.frames.Load(),
		Failed:      c.failed.Load(),
		ShapeErrors: c.shapeErrors.Load(),
		Published:   c.published.Load(),
		Derived:     c.derived.Load(),
	}
}

// Close releases the detectors' inference sessions.
func (c *Camera) Close() error {
	var errs []error
	for _, d := range c.detectors {
		if err := d.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.poses.Reset()
	return errors.Join(errs...)
}
