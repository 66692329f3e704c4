package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/Dv04/aixavier/internal/config"
	"github.com/Dv04/aixavier/internal/posemon"
	"github.com/Dv04/aixavier/internal/vision"
	"github.com/Dv04/aixavier/internal/vision/detector"
)

type demoOptions struct {
	frames    int
	fallAt    int
	width     int
	height    int
	speedKmph float64
	doorOpen  bool
}

func handleDemo(args []string, w io.Writer) error {
	var o demoOptions
	fs := flag.NewFlagSet("demo", flag.ContinueOnError)
	fs.IntVar(&o.frames, "frames", 60, "Number of synthetic frames")
	fs.IntVar(&o.fallAt, "fall-at", 20, "Frame at which the person starts to fall")
	fs.IntVar(&o.width, "width", 640, "Synthetic frame width")
	fs.IntVar(&o.height, "height", 480, "Synthetic frame height")
	fs.Float64Var(&o.speedKmph, "speed", 0, "Vehicle speed reported by telemetry")
	fs.BoolVar(&o.doorOpen, "door-open", false, "Door state reported by telemetry")
	if err := fs.Parse(args); err != nil {
		return err
	}
	counts := runDemo(o, w)
	fmt.Fprintf(w, "events: %v\n", counts)
	return nil
}

// fallingSkeleton flattens the synthetic skeleton towards the bottom of
// the frame as progress goes from 0 to 1.
func fallingSkeleton(w, h int, progress float64) vision.Detection {
	det := detector.Synthetic{}.Skeleton(w, h)
	if progress <= 0 {
		return det
	}
	if progress > 1 {
		progress = 1
	}
	floor := float64(h) * 0.95
	squash := 1 - 0.9*progress
	for i := range det.Keypoints {
		kp := &det.Keypoints[i]
		kp.Y = floor - (floor-kp.Y)*squash
	}
	return det
}

// runDemo drives a pose monitor with one synthetic track and prints every
// sub-event and the banner lines it raises. It returns the banner counts.
func runDemo(o demoOptions, w io.Writer) map[string]int {
	tuning := config.EmptyTuningConfig()
	mon := posemon.NewMonitor(posemon.ConfigFromTuning(tuning))
	mon.Telemetry().SetSpeed(o.speedKmph)
	mon.Telemetry().SetDoor(o.doorOpen)

	fallFrames := max(1, int(tuning.GetFPS()))
	for i := 0; i < o.frames; i++ {
		progress := float64(i-o.fallAt) / float64(fallFrames)
		det := fallingSkeleton(o.width, o.height, progress)
		det.TrackID = 1
		dets := []vision.Detection{det}
		mon.Process("DEMO", dets, 0)
		for _, ev := range dets[0].PoseEvents {
			fmt.Fprintf(w, "frame %3d track %d %-18s score=%.2f\n", i, det.TrackID, ev.Type, ev.Score)
		}
		if hud := mon.Banners().HUDLines(); len(hud) > 0 && len(dets[0].PoseEvents) > 0 {
			fmt.Fprintf(w, "          %s\n", strings.Join(hud, " | "))
		}
	}
	return mon.Banners().EventCounts()
}
