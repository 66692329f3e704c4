package tracking

import "gonum.org/v1/gonum/floats"

// ReIDGate restricts IoU matches to appearance-compatible pairs.
type ReIDGate struct {
	Threshold float64
}

// Allows reports whether a track and detection may be matched. When either
// side has no embedding the gate is open; otherwise the cosine similarity
// must exceed Threshold.
func (g ReIDGate) Allows(trackEmb, detEmb []float64) bool {
	if len(trackEmb) == 0 || len(detEmb) == 0 {
		return true
	}
	return Cosine(trackEmb, detEmb) > g.Threshold
}

// Cosine returns the cosine similarity of a and b. Two zero vectors are
// identical (1); a zero vector against a non-zero one, or vectors of
// different length, are unrelated (0).
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	switch {
	case na == 0 && nb == 0:
		return 1
	case na == 0 || nb == 0:
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}
