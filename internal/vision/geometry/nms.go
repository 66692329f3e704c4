package geometry

import "sort"

// NMS greedily keeps the highest-scoring remaining box and discards every
// other box whose IoU with it exceeds iouThr. It returns indices into boxes
// in descending score order.
func NMS(boxes []Box, scores []float64, iouThr float64) []int {
	order := make([]int, len(boxes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	keep := make([]int, 0, len(order))
	suppressed := make([]bool, len(boxes))
	for pos, i := range order {
		if suppressed[i] {
			continue
		}
		keep = append(keep, i)
		for _, j := range order[pos+1:] {
			if !suppressed[j] && IoU(boxes[i], boxes[j]) > iouThr {
				suppressed[j] = true
			}
		}
	}
	return keep
}

// Suppress filters candidates below scoreThr, runs NMS and caps the result
// to maxDet boxes (maxDet <= 0 disables the cap).
func Suppress(boxes []Box, scores []float64, scoreThr, iouThr float64, maxDet int) []int {
	idx := make([]int, 0, len(boxes))
	for i, s := range scores {
		if s >= scoreThr {
			idx = append(idx, i)
		}
	}
	fb := make([]Box, len(idx))
	fs := make([]float64, len(idx))
	for k, i := range idx {
		fb[k] = boxes[i]
		fs[k] = scores[i]
	}

	kept := NMS(fb, fs, iouThr)
	if maxDet > 0 && len(kept) > maxDet {
		kept = kept[:maxDet]
	}
	out := make([]int, len(kept))
	for k, i := range kept {
		out[k] = idx[i]
	}
	return out
}
