package rdo

import "github.com/deepteams/vp8enc/internal/dsp"

// Reference-frame signalling cost: one bit for "matches the
// context-predicted reference", then a tree over the three remaining
// references through the predicted-reference's fallback model.

// estimateRefFrameCosts works out the bit cost of selecting each
// reference frame for the current MB.
func (s *Search) estimateRefFrameCosts(mb *Macroblock) [numRefFrames]int {
	var costs [numRefFrames]int

	predRef := s.Segments.PredictedRef(mb)
	predProb := s.Segments.PredProb(mb, PredRef)
	mod := s.Probs.ModRefProbs[predRef]

	for i := RefFrame(0); i < numRefFrames; i++ {
		predFlag := 0
		if i == predRef {
			predFlag = 1
		}
		cost := dsp.VP8BitCost(predFlag, predProb)

		if predFlag == 0 {
			if mod[0] != 0 {
				cost += dsp.VP8BitCost(b2bit(i != IntraFrame), mod[0])
			}
			if i != IntraFrame {
				if mod[1] != 0 {
					cost += dsp.VP8BitCost(b2bit(i != LastFrame), mod[1])
				}
				if i != LastFrame && mod[2] != 0 {
					cost += dsp.VP8BitCost(b2bit(i != GoldenFrame), mod[2])
				}
			}
		}
		costs[i] = cost
	}
	return costs
}

func b2bit(b bool) int {
	if b {
		return 1
	}
	return 0
}
