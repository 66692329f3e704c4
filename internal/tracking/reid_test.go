package tracking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Dv04/aixavier/internal/vision"
)

func TestCosine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1},
		{"both zero", []float64{0, 0}, []float64{0, 0}, 1},
		{"one zero", []float64{0, 0}, []float64{1, 0}, 0},
		{"length mismatch", []float64{1}, []float64{1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-9)
		})
	}
}

func TestReIDGateOpenWithoutEmbeddings(t *testing.T) {
	t.Parallel()
	g := ReIDGate{Threshold: 0.4}
	assert.True(t, g.Allows(nil, []float64{1}))
	assert.True(t, g.Allows([]float64{1}, nil))
	assert.False(t, g.Allows([]float64{1, 0}, []float64{0, 1}))
	assert.True(t, g.Allows([]float64{1, 0}, []float64{1, 0.1}))
}

func TestByteTrackWithReIDGating(t *testing.T) {
	t.Parallel()

	bt := NewByteTrack(Config{HighThreshold: 0.1, LowThreshold: 0.05, MatchIoU: 0.1, MaxAge: 3, ReIDThreshold: 0.4})

	emb1 := make([]float64, 256)
	emb2 := make([]float64, 256)
	emb2[0] = 1

	d1 := det(0, 0, 100, 100, 0.9)
	d1.Embedding = emb1
	id := bt.Update([]vision.Detection{d1})[0].TrackID

	d2 := det(5, 5, 105, 105, 0.85)
	d2.Embedding = emb1
	assert.Equal(t, id, bt.Update([]vision.Detection{d2})[0].TrackID)

	d3 := det(10, 10, 110, 110, 0.95)
	d3.Embedding = emb2
	assert.NotEqual(t, id, bt.Update([]vision.Detection{d3})[0].TrackID)
}
