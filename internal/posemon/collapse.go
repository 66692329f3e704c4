package posemon

import (
	"gonum.org/v1/gonum/stat"

	"github.com/Dv04/aixavier/internal/vision/detector"
	"github.com/Dv04/aixavier/internal/vision/geometry"
)

// CollapseScorer maps a window of feature samples, oldest first, to a
// collapse likelihood in [0,1].
type CollapseScorer interface {
	Score(window []Sample) float64
}

// HeuristicCollapse scores the mean of the last three samples against
// fixed drop, prone and stillness limits.
type HeuristicCollapse struct {
	MinDrop        float64 // acceleration at or below this counts as a drop
	MaxProneHeight float64 // prone height at or below this counts as lying down
	MaxVelocity    float64 // velocity below this counts as still
}

// NewHeuristicCollapse returns the default heuristic scorer.
func NewHeuristicCollapse() HeuristicCollapse {
	return HeuristicCollapse{MinDrop: -1.8, MaxProneHeight: 220, MaxVelocity: 3}
}

const heuristicWindow = 3

func (h HeuristicCollapse) Score(window []Sample) float64 {
	if len(window) == 0 {
		return 0
	}
	if len(window) > heuristicWindow {
		window = window[len(window)-heuristicWindow:]
	}
	accel := make([]float64, len(window))
	prone := make([]float64, len(window))
	vel := make([]float64, len(window))
	for i, s := range window {
		accel[i] = s.AMag
		prone[i] = s.ProneHeightPx
		vel[i] = s.VMag
	}

	score := 0.0
	if stat.Mean(accel, nil) <= h.MinDrop {
		score += 0.55
	}
	if stat.Mean(prone, nil) <= h.MaxProneHeight {
		score += 0.35
	}
	if stat.Mean(vel, nil) < h.MaxVelocity {
		score += 0.10
	}
	return clamp01(score)
}

// ONNXCollapse runs a sequence model over the feature window, input shape
// [1, T, 3]. It falls back to the heuristic whenever the model is
// unavailable or a run fails.
type ONNXCollapse struct {
	backend  detector.Backend
	fallback HeuristicCollapse
}

// NewONNXCollapse resolves the model once. A nil open uses onnxruntime.
func NewONNXCollapse(path, sharedLibrary string, open detector.Opener) *ONNXCollapse {
	b := detector.ResolveBackend(path, sharedLibrary, open)
	if u, ok := b.(detector.Unavailable); ok {
		opsf("collapse model unavailable, using heuristic: %s", u.Reason)
	} else {
		diagf("collapse model loaded from %s", path)
	}
	return &ONNXCollapse{backend: b, fallback: NewHeuristicCollapse()}
}

// NewCollapseScorer returns an ONNXCollapse when path is set, else the
// heuristic.
func NewCollapseScorer(path, sharedLibrary string, open detector.Opener) CollapseScorer {
	if path == "" {
		return NewHeuristicCollapse()
	}
	return NewONNXCollapse(path, sharedLibrary, open)
}

// Backend reports the resolved capability.
func (o *ONNXCollapse) Backend() detector.Backend { return o.backend }

func (o *ONNXCollapse) Score(window []Sample) float64 {
	if len(window) == 0 {
		return 0
	}
	a, ok := o.backend.(detector.Available)
	if !ok {
		return o.fallback.Score(window)
	}
	data := make([]float32, 0, len(window)*3)
	for _, s := range window {
		data = append(data, float32(s.VMag), float32(s.AMag), float32(s.ProneHeightPx))
	}
	outs, err := a.Session.Run(geometry.Tensor{Shape: []int64{1, int64(len(window)), 3}, Data: data})
	if err != nil || len(outs) == 0 || len(outs[0].Data) == 0 {
		opsf("collapse model run failed, using heuristic: %v", err)
		return o.fallback.Score(window)
	}
	return float64(outs[0].Data[0])
}

// Close releases the model session.
func (o *ONNXCollapse) Close() error {
	if a, ok := o.backend.(detector.Available); ok && a.Session != nil {
		return a.Session.Close()
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
