package rdo

import (
	"math"

	"github.com/deepteams/vp8enc/internal/dsp"
)

// Search carries the frame-level state of the mode decision: the
// collaborator kernels, the per-frame cost tables and λ, the frame
// configuration and the adaptive per-candidate thresholds. Per-frame
// read-only state is prepared once before the MB loop; the threshold
// arrays and histograms are updated at the end of each MB.
type Search struct {
	// Collaborators.
	Xform     Transforms
	Quant     Quantizer
	Intra     IntraPredictor
	Inter     InterPredictor
	Motion    MotionSearcher
	Metrics   Metrics
	Recon     Reconstructor
	Segments  SegmentPolicy
	Neighbors NeighborMVs

	// Per-frame scoring state.
	Costs *CostTables
	Probs *FrameProbs
	RD    RDConsts

	// Frame configuration.
	KeyFrame             bool
	LastFrameIsKey       bool
	TxfmMode             TransformMode
	CompPredMode         CompPredMode
	MBNoCoeffSkip        bool
	ProbSkipFalse        uint8
	EncodeBreakout       uint32
	CompressorSpeed      int // 0 = good quality
	Speed                int
	NoSkipBlock4x4Search bool
	FirstStep            int
	MaxStepSearchSteps   int
	IsSrcFrameAltRef     bool
	ARNRMaxFrames        int
	RefFrameEnabled      [numRefFrames]bool
	SignBias             [numRefFrames]bool

	// Adaptive per-candidate thresholds.
	ThreshMult     [maxModes]int
	Threshes       [maxModes]int
	BaselineThresh [maxModes]int

	// Frame statistics published for the caller's adaptation.
	ModeChosenCounts [maxModes]int
	MVCount          [2][mvVals]int
	MBsTestedSoFar   int

	speedState speedState
}

// NewSearch returns a Search with the default threshold multipliers
// and search parameters; collaborators and frame state are wired by
// the caller before InitFrame.
func NewSearch() *Search {
	s := &Search{
		Xform:              DefaultTransforms{},
		Recon:              BasicRecon{},
		MaxStepSearchSteps: maxMVSearchSteps,
		Speed:              1,
	}
	s.ThreshMult = defaultThreshMult
	return s
}

func (s *Search) frameType() int {
	if s.KeyFrame {
		return frameTypeKey
	}
	return frameTypeInter
}

// InitFrame prepares the per-frame read-only scoring state: λ, cost
// tables, motion-search per-bit costs and the candidate thresholds.
// It is called once before the MB loop and nothing it computes is
// mutated inside the loop except the adaptive threshold arrays.
func (s *Search) InitFrame(qindex, zbinOverQuant, iiRatio int, probs *FrameProbs, mvCosts *MVCosts) {
	s.RD = InitRDConsts(qindex, zbinOverQuant, iiRatio)
	s.Probs = probs
	s.Costs = BuildCostTables(probs, mvCosts)

	q := threshScale(qindex)
	rescaled := s.RD.RDDiv == 1
	for i := 0; i < maxModes; i++ {
		mult := s.ThreshMult[i]
		if mult == 0 {
			s.ThreshMult[i] = defaultThreshMult[i]
			mult = defaultThreshMult[i]
		}
		switch {
		case rescaled && mult < math.MaxInt32:
			s.Threshes[i] = mult * q / 100
		case mult < math.MaxInt32/q:
			s.Threshes[i] = mult * q
		default:
			s.Threshes[i] = math.MaxInt32
		}
		s.BaselineThresh[i] = s.Threshes[i]
	}
}

// InterModeResult reports the winning decision's totals and the
// best-RD deltas that feed the caller's prediction-mode adaptation.
// Deltas are math.MinInt32 when the category had no contender.
type InterModeResult struct {
	Rate       int
	Distortion int

	// IntraDistortion is the distortion of the best intra candidate.
	IntraDistortion int

	SingleRDDiff int
	CompRDDiff   int
	HybridRDDiff int
}

const noContender = math.MinInt32

// uvSSE measures the chroma prediction error of the current MV
// directly against the reference, at half the luma vector.
func (s *Search) uvSSE(mb *Macroblock, ref *RefView, mv MV) int {
	mvRow, mvCol := int(mv.Row), int(mv.Col)
	if mvRow < 0 {
		mvRow--
	} else {
		mvRow++
	}
	if mvCol < 0 {
		mvCol--
	} else {
		mvCol++
	}
	mvRow /= 2
	mvCol /= 2

	offset := (mvRow>>3)*ref.UVStride + (mvCol >> 3)
	uptr := ref.U[ref.UVOff+offset:]
	vptr := ref.V[ref.UVOff+offset:]

	var sse1, sse2 uint32
	if (mvRow|mvCol)&7 != 0 {
		_, sse2 = s.Metrics.SubPixVar8x8(uptr, ref.UVStride, mvCol&7, mvRow&7, mb.SrcU[:], 8)
		_, sse1 = s.Metrics.SubPixVar8x8(vptr, ref.UVStride, mvCol&7, mvRow&7, mb.SrcV[:], 8)
	} else {
		_, sse2 = s.Metrics.Var8x8(uptr, ref.UVStride, mb.SrcU[:], 8)
		_, sse1 = s.Metrics.Var8x8(vptr, ref.UVStride, mb.SrcV[:], 8)
	}
	return int(sse1 + sse2)
}

// PickInterMode is the per-MB mode decision: enumerate the fixed
// candidate table, gate by adaptive threshold, dispatch by candidate
// class, and commit the J-minimising decision into mi/pi.
func (s *Search) PickInterMode(mb *Macroblock, mi *ModeInfo, pi *PartitionInfo) InterModeResult {
	res := InterModeResult{IntraDistortion: invalidRD}
	s.MBsTestedSoFar++
	mb.Skip = false

	var (
		frameNearest, frameNear, frameBestRef [numRefFrames]MV
		frameMDCounts                         [numRefFrames][4]int
		refOK                                 [numRefFrames]bool
	)
	for r := LastFrame; r <= AltRefFrame; r++ {
		if s.RefFrameEnabled[r] && mb.Refs[r] != nil {
			refOK[r] = true
			frameNearest[r], frameNear[r], frameBestRef[r], frameMDCounts[r] =
				s.Neighbors.FindNearMVs(mb, r)
		}
	}

	var mcSearchResult [numRefFrames]MV
	var mcValid [numRefFrames]bool

	uvIntra := s.pickIntraUV(mb)
	refCosts := s.estimateRefFrameCosts(mb)

	bestRD := invalidRD
	bestIntraRD := invalidRD
	bestCompRD := invalidRD
	bestSingleRD := invalidRD
	bestHybridRD := invalidRD
	bestYRD := invalidRD

	var bestMI ModeInfo
	var bestPartition PartitionInfo
	haveBest := false
	bestModeIndex := 0

	var nearSADIdx [8]int
	sadDone := false

	var modes4 [16]SubMode
	var bestModes4 [16]SubMode
	var modes8 [4]MBMode
	var bestModes8 [4]MBMode
	var curSeg segResult
	var bestSeg segResult
	haveSeg := false

	for modeIndex := 0; modeIndex < maxModes; modeIndex++ {
		cand := modeOrder[modeIndex]

		// Threshold gate: skip when the best so far is already below
		// this candidate's bar.
		if bestRD <= s.Threshes[modeIndex] {
			continue
		}
		if cand.Ref != IntraFrame && !refOK[cand.Ref] {
			continue
		}
		if cand.SecondRef != IntraFrame && !refOK[cand.SecondRef] {
			continue
		}

		cur := ModeInfo{
			Mode:      cand.Mode,
			Ref:       cand.Ref,
			SecondRef: cand.SecondRef,
			UVMode:    DCPred,
			SegmentID: mb.SegmentID,
		}

		// Segment gates.
		segID := mb.SegmentID
		refFeature := s.Segments.Active(segID, SegLvlRefFrame)
		modeFeature := s.Segments.Active(segID, SegLvlMode)
		if refFeature && !s.Segments.CheckRef(segID, cand.Ref) {
			continue
		} else if modeFeature && int(cand.Mode) != s.Segments.Data(segID, SegLvlMode) {
			continue
		} else if !refFeature && !modeFeature {
			// The frame that overlays an unfiltered altref only takes
			// (ZEROMV, ALTREF).
			if s.IsSrcFrameAltRef && s.ARNRMaxFrames == 0 {
				if cand.Mode != ZeroMV || cand.Ref != AltRefFrame {
					continue
				}
			}
		}

		var ref *RefView
		var nearestMV, nearMV, bestRefMV MV
		var mdcounts [4]int
		if cand.Ref != IntraFrame {
			ref = mb.Refs[cand.Ref]
			nearestMV = frameNearest[cand.Ref]
			nearMV = frameNear[cand.Ref]
			bestRefMV = frameBestRef[cand.Ref]
			mdcounts = frameMDCounts[cand.Ref]
		}

		rate2 := 0
		dist2 := 0
		rateY := 0
		rateUV := 0
		distUV := 0
		otherCost := 0
		compModeCost := 0
		disableSkip := false
		rejected := false
		skipCandidate := false
		modeExcluded := false
		thisRD := invalidRD

		switch cand.kind() {
		case candIntraB:
			cur.Ref = IntraFrame
			r, ry, d, tmpRD := s.pickIntra4x4MBY(mb, &modes4, bestYRD)
			if tmpRD == invalidRD {
				rejected = true
				disableSkip = true
				break
			}
			rate2 += r
			dist2 += d
			rateY = ry
			rate2 += uvIntra.rate
			rateUV = uvIntra.rateTO
			dist2 += uvIntra.dist
			distUV = uvIntra.dist
			cur.UVMode = uvIntra.mode

		case candIntra8x8:
			cur.Ref = IntraFrame
			r, ry, d, tmpRD := s.pickIntra8x8MBY(mb, &modes8)
			rate2 += r
			dist2 += d
			rateY = ry
			if tmpRD < bestYRD {
				rate2 += uvIntra.rate
				rateUV = uvIntra.rateTO
				dist2 += uvIntra.dist
				distUV = uvIntra.dist
				cur.UVMode = uvIntra.mode
			} else {
				rejected = true
				disableSkip = true
			}

		case candSplit:
			thresh := s.Threshes[thrNewMV]
			if cand.Ref == AltRefFrame {
				thresh = s.Threshes[thrNewA]
			}
			if cand.Ref == GoldenFrame {
				thresh = s.Threshes[thrNewG]
			}
			curSeg = s.rdPickBestSegmentation(mb, ref, bestRefMV, bestYRD, mdcounts, thresh)
			copy(mb.EOB[:16], curSeg.eobs[:])
			rate2 += curSeg.rate
			dist2 += curSeg.dist
			rateY = curSeg.yRate
			if curSeg.rd < bestYRD {
				var uvRate, uvDist int
				var mvs [16]MV
				for i := range curSeg.bmi {
					mvs[i] = curSeg.bmi[i].MV
				}
				_, uvRate, uvDist = s.inter4x4UVRD(mb, ref, &mvs)
				rate2 += uvRate
				dist2 += uvDist
				rateUV = uvRate
				distUV = uvDist
				cur.MV = curSeg.mv
				cur.Partitioning = curSeg.partition
			} else {
				rejected = true
				disableSkip = true
			}

		case candIntra16:
			cur.Ref = IntraFrame
			s.Intra.PredictMBY(mb, cand.Mode)
			var d int
			if s.TxfmMode == Allow8x8 {
				rateY, d = s.macroBlockYRD8x8(mb)
			} else {
				rateY, d = s.macroBlockYRD(mb)
			}
			rate2 += rateY
			dist2 += d
			rate2 += s.Costs.MBMode[s.frameType()][cand.Mode]
			rate2 += uvIntra.rate
			rateUV = uvIntra.rateTO
			dist2 += uvIntra.dist
			distUV = uvIntra.dist
			cur.UVMode = uvIntra.mode

		case candInterSingle:
			mv := MV{}
			switch cand.Mode {
			case NewMV:
				newMV, sme, ok := s.searchNewMV(mb, ref, cand.Ref, bestRefMV,
					&nearSADIdx, &sadDone)
				if !ok || sme == invalidRD {
					skipCandidate = true
					break
				}
				mv = newMV
				mcSearchResult[cand.Ref] = newMV
				mcValid[cand.Ref] = true
				rate2 += mvBitCost(mv, bestRefMV, s.Costs.MV, 96)
			case NearestMV:
				mv = mb.clampMV(nearestMV)
			case NearMV:
				mv = mb.clampMV(nearMV)
			case ZeroMV:
				mv = MV{}
			}
			if skipCandidate {
				break
			}

			// A zero nearest/near is coded as ZEROMV instead.
			if (cand.Mode == NearMV || cand.Mode == NearestMV) && mv.IsZero() {
				continue
			}
			if !mb.mvInWindow(mv) {
				continue
			}

			cur.MV = mv
			s.Inter.PredictMBY(mb, ref, mv)

			compModeCost = dsp.VP8BitCost(0, s.Segments.PredProb(mb, PredComp))

			if s.EncodeBreakout != 0 {
				if skipRD, sse, sse2, ok := s.tryEncodeBreakout(mb, ref, mv); ok {
					mb.Skip = true
					dist2 = sse + sse2
					rate2 = 500
					rateUV = 0
					distUV = sse2
					disableSkip = true
					thisRD = skipRD
					break
				}
			}

			rate2 += costMVRef(cand.Mode, mdcounts)

			var d int
			if s.TxfmMode == Allow8x8 {
				rateY, d = s.macroBlockYRD8x8(mb)
			} else {
				rateY, d = s.macroBlockYRD(mb)
			}
			rate2 += rateY
			dist2 += d

			s.Inter.PredictMBUV(mb, ref, mv)
			var uvRate, uvDist int
			if s.TxfmMode == Allow8x8 {
				_, uvRate, uvDist = s.interUVRD8x8(mb)
			} else {
				_, uvRate, uvDist = s.interUVRD(mb)
			}
			rate2 += uvRate
			dist2 += uvDist
			rateUV = uvRate
			distUV = uvDist
			modeExcluded = s.CompPredMode == CompPredictionOnly

		case candInterCompound:
			ref2 := mb.Refs[cand.SecondRef]
			modeExcluded = s.CompPredMode == SinglePredictionOnly

			switch cand.Mode {
			case NewMV:
				if !mcValid[cand.Ref] || !mcValid[cand.SecondRef] {
					skipCandidate = true
				} else {
					cur.MV = mcSearchResult[cand.Ref]
					cur.SecondMV = mcSearchResult[cand.SecondRef]
					rate2 += mvBitCost(cur.MV, frameBestRef[cand.Ref], s.Costs.MV, 96)
					rate2 += mvBitCost(cur.SecondMV, frameBestRef[cand.SecondRef], s.Costs.MV, 96)
				}
			case ZeroMV:
				cur.MV = MV{}
				cur.SecondMV = MV{}
			case NearMV:
				if frameNear[cand.Ref].IsZero() || frameNear[cand.SecondRef].IsZero() {
					skipCandidate = true
				} else {
					cur.MV = frameNear[cand.Ref]
					cur.SecondMV = frameNear[cand.SecondRef]
				}
			case NearestMV:
				if frameNearest[cand.Ref].IsZero() || frameNearest[cand.SecondRef].IsZero() {
					skipCandidate = true
				} else {
					cur.MV = frameNearest[cand.Ref]
					cur.SecondMV = frameNearest[cand.SecondRef]
				}
			}
			if skipCandidate {
				break
			}

			rate2 += costMVRef(cand.Mode, mdcounts)

			cur.MV = mb.clampMV(cur.MV)
			cur.SecondMV = mb.clampMV(cur.SecondMV)
			if !mb.mvInWindow(cur.MV) || !mb.mvInWindow(cur.SecondMV) {
				continue
			}

			s.Inter.PredictMBY(mb, ref, cur.MV)
			s.Inter.PredictMBUV(mb, ref, cur.MV)
			s.Inter.PredictSecond(mb, ref2, cur.SecondMV)

			var d int
			if s.TxfmMode == Allow8x8 {
				rateY, d = s.macroBlockYRD8x8(mb)
			} else {
				rateY, d = s.macroBlockYRD(mb)
			}
			rate2 += rateY
			dist2 += d

			var uvRate, uvDist int
			if s.TxfmMode == Allow8x8 {
				_, uvRate, uvDist = s.interUVRD8x8(mb)
			} else {
				_, uvRate, uvDist = s.interUVRD(mb)
			}
			rate2 += uvRate
			dist2 += uvDist
			rateUV = uvRate
			distUV = uvDist

			// The second reference is implied by the first, so only
			// the compound flag is charged.
			compModeCost = dsp.VP8BitCost(1, s.Segments.PredProb(mb, PredComp))
		}

		if skipCandidate {
			// Candidate not representable here (missing cached MV,
			// zero near vector): no threshold update at all.
			continue
		}
		if rejected {
			// Abandoned over budget before producing a score: a plain
			// loss.
			s.missThreshold(modeIndex)
			continue
		}

		// Per-MB overheads: the no-skip flag, the compound-mode flag
		// in hybrid mode, and the reference signalling cost.
		if s.MBNoCoeffSkip {
			c := dsp.VP8BitCost(0, s.ProbSkipFalse)
			otherCost += c
			rate2 += c
		}
		if s.CompPredMode == HybridPrediction {
			rate2 += compModeCost
		}
		rate2 += refCosts[cur.Ref]

		skipped := false
		if !disableSkip {
			if s.MBNoCoeffSkip {
				tteob := s.totalEOB(mb, cand.Mode, cur.Ref, uvIntra.totalEOB)
				if tteob == 0 {
					rate2 -= rateY + rateUV
					rateUV = 0
					skipped = true
					if s.ProbSkipFalse != 0 {
						c := dsp.VP8BitCost(1, s.ProbSkipFalse) -
							dsp.VP8BitCost(0, s.ProbSkipFalse)
						rate2 += c
						otherCost += c
					}
				}
			}
			thisRD = rdCost(s.RD.RDMult, s.RD.RDDiv, rate2, dist2)
		}

		if cur.Ref == IntraFrame && thisRD < bestIntraRD {
			bestIntraRD = thisRD
			res.IntraDistortion = dist2
		}

		if !disableSkip && (cand.Mode == SplitMV || cur.Ref == IntraFrame) {
			if thisRD < bestCompRD {
				bestCompRD = thisRD
			}
			if thisRD < bestSingleRD {
				bestSingleRD = thisRD
			}
			if thisRD < bestHybridRD {
				bestHybridRD = thisRD
			}
		}

		if thisRD < bestRD || mb.Skip {
			if !modeExcluded {
				bestModeIndex = modeIndex
				if cand.Mode <= BPred && cur.Ref == IntraFrame {
					cur.UVMode = uvIntra.mode
					cur.MV = MV{} // required for neighbour MV lookups
				}

				otherCost += refCosts[cur.Ref]
				bestYRD = rdCost(s.RD.RDMult, s.RD.RDDiv,
					rate2-rateUV-otherCost, dist2-distUV)

				res.Rate = rate2
				res.Distortion = dist2
				bestRD = thisRD
				cur.Skip = skipped || mb.Skip
				bestMI = cur
				haveBest = true
				bestModes4 = modes4
				bestModes8 = modes8
				if cand.Mode == SplitMV {
					bestSeg = curSeg
					haveSeg = true
					bestPartition.Count = curSeg.count
					bestPartition.BMI = [16]BModeInfo{}
					copy(bestPartition.BMI[:curSeg.count], curSeg.part[:curSeg.count])
				} else {
					haveSeg = false
				}
			}

			// A win lowers the candidate's bar for the next MB.
			if s.ThreshMult[modeIndex] >= minThreshMult+2 {
				s.ThreshMult[modeIndex] -= 2
			} else {
				s.ThreshMult[modeIndex] = minThreshMult
			}
			s.Threshes[modeIndex] = (s.BaselineThresh[modeIndex] >> 7) * s.ThreshMult[modeIndex]
		} else {
			s.missThreshold(modeIndex)
		}

		// Best single vs compound bookkeeping for inter, non-split
		// candidates.
		if !disableSkip && cur.Ref != IntraFrame && cand.Mode != SplitMV {
			singleRate := rate2
			hybridRate := rate2 + compModeCost
			if s.CompPredMode == HybridPrediction {
				singleRate = rate2 - compModeCost
				hybridRate = rate2
			}
			singleRD := rdCost(s.RD.RDMult, s.RD.RDDiv, singleRate, dist2)
			hybridRD := rdCost(s.RD.RDMult, s.RD.RDDiv, hybridRate, dist2)
			if cur.SecondRef == IntraFrame && singleRD < bestSingleRD {
				bestSingleRD = singleRD
			} else if cur.SecondRef != IntraFrame && singleRD < bestCompRD {
				bestCompRD = singleRD
			}
			if hybridRD < bestHybridRD {
				bestHybridRD = hybridRD
			}
		}

		if mb.Skip {
			break
		}
	}

	// Extra threshold drop for the outright winner.
	if s.BaselineThresh[bestModeIndex] > 0 && s.BaselineThresh[bestModeIndex] < math.MaxInt32>>2 {
		adj := s.ThreshMult[bestModeIndex] >> 2
		if s.ThreshMult[bestModeIndex] >= minThreshMult+adj {
			s.ThreshMult[bestModeIndex] -= adj
		} else {
			s.ThreshMult[bestModeIndex] = minThreshMult
		}
		s.Threshes[bestModeIndex] = (s.BaselineThresh[bestModeIndex] >> 7) * s.ThreshMult[bestModeIndex]
	}

	s.ModeChosenCounts[bestModeIndex]++

	// The frame that overlays an unfiltered altref is forced to a
	// skipped (ZEROMV, ALTREF) unless segment features are active.
	if !s.Segments.Active(mb.SegmentID, SegLvlRefFrame) &&
		!s.Segments.Active(mb.SegmentID, SegLvlMode) &&
		s.IsSrcFrameAltRef && s.ARNRMaxFrames == 0 &&
		(bestMI.Mode != ZeroMV || bestMI.Ref != AltRefFrame) {
		*mi = ModeInfo{
			Mode:      ZeroMV,
			Ref:       AltRefFrame,
			UVMode:    DCPred,
			Skip:      s.MBNoCoeffSkip,
			SegmentID: mb.SegmentID,
		}
		pi.Count = 0
		res.SingleRDDiff = 0
		res.CompRDDiff = 0
		res.HybridRDDiff = 0
		return res
	}

	// A feasible candidate always survives: DC intra and ZEROMV are
	// never gated away simultaneously.
	if !haveBest {
		panic("rdo: no candidate survived the mode search")
	}

	*mi = bestMI
	switch bestMI.Mode {
	case BPred:
		mi.SubModes = bestModes4
	case I8x8Pred:
		for i, ib := range i8x8Blocks {
			m := SubMode(bestModes8[i])
			mi.SubModes[ib] = m
			mi.SubModes[ib+1] = m
			mi.SubModes[ib+4] = m
			mi.SubModes[ib+5] = m
		}
	case SplitMV:
		if haveSeg {
			for i := 0; i < 16; i++ {
				mi.SubModes[i] = bestSeg.bmi[i].Mode
				mi.SubMVs[i] = bestSeg.bmi[i].MV
			}
			*pi = bestPartition
			mi.MV = bestSeg.mv
		}
	}
	if bestMI.Mode != SplitMV {
		pi.Count = 0
	}

	s.updateMVCount(mi, pi, frameBestRef[mi.Ref])

	res.SingleRDDiff = rdDiff(bestRD, bestSingleRD)
	res.CompRDDiff = rdDiff(bestRD, bestCompRD)
	res.HybridRDDiff = rdDiff(bestRD, bestHybridRD)
	return res
}

func rdDiff(best, category int) int {
	if category == invalidRD {
		return noContender
	}
	return best - category
}

// missThreshold raises a losing candidate's bar.
func (s *Search) missThreshold(modeIndex int) {
	s.ThreshMult[modeIndex] += 4
	if s.ThreshMult[modeIndex] > maxThreshMult {
		s.ThreshMult[modeIndex] = maxThreshMult
	}
	s.Threshes[modeIndex] = (s.BaselineThresh[modeIndex] >> 7) * s.ThreshMult[modeIndex]
}

// searchNewMV runs the NEWMV full-pel ladder: predictor-seeded
// diamond search, optional further steps, optional 1-away refinement,
// then sub-pel refinement.
func (s *Search) searchNewMV(mb *Macroblock, ref *RefView, refFrame RefFrame,
	bestRefMV MV, nearSADIdx *[8]int, sadDone *bool) (MV, int, bool) {

	if !*sadDone {
		s.calNearSAD(mb, nearSADIdx)
		*sadDone = true
	}

	mvp, sr := s.mvPred(mb, refFrame, nearSADIdx)
	mvpFull := MV{Row: mvp.Row >> 3, Col: mvp.Col >> 3}

	// Tighten the window to the reachable range.
	colMin := (int(bestRefMV.Col) >> 3) - maxFullPelVal + b2bit(bestRefMV.Col&7 != 0)
	rowMin := (int(bestRefMV.Row) >> 3) - maxFullPelVal + b2bit(bestRefMV.Row&7 != 0)
	colMax := (int(bestRefMV.Col) >> 3) + maxFullPelVal
	rowMax := (int(bestRefMV.Row) >> 3) + maxFullPelVal

	saveColMin, saveColMax := mb.MVColMin, mb.MVColMax
	saveRowMin, saveRowMax := mb.MVRowMin, mb.MVRowMax
	if mb.MVColMin < colMin {
		mb.MVColMin = colMin
	}
	if mb.MVColMax > colMax {
		mb.MVColMax = colMax
	}
	if mb.MVRowMin < rowMin {
		mb.MVRowMin = rowMin
	}
	if mb.MVRowMax > rowMax {
		mb.MVRowMax = rowMax
	}
	defer func() {
		mb.MVColMin, mb.MVColMax = saveColMin, saveColMax
		mb.MVRowMin, mb.MVRowMax = saveRowMin, saveRowMax
	}()

	step := s.FirstStep
	if sr > step {
		step = sr
	}
	sadpb := s.RD.SadPerBit16

	bestMV, bestSME, num00 := s.Motion.DiamondSearch(mb, 0, Shape16x16, ref,
		mvpFull, step, sadpb, bestRefMV)

	furtherSteps := (s.MaxStepSearchSteps - 1) - step
	doRefine := true
	n := num00
	num00 = 0
	if n > furtherSteps {
		doRefine = false
	}
	for n < furtherSteps {
		n++
		if num00 > 0 {
			num00--
			continue
		}
		var thisMV MV
		var thisSME int
		thisMV, thisSME, num00 = s.Motion.DiamondSearch(mb, 0, Shape16x16, ref,
			mvpFull, step+n, sadpb, bestRefMV)
		if num00 > furtherSteps-n {
			doRefine = false
		}
		if thisSME < bestSME {
			bestSME = thisSME
			bestMV = thisMV
		}
	}

	if doRefine {
		const searchRange = 8
		thisMV, thisSME := s.Motion.RefiningSearch(mb, 0, Shape16x16, ref,
			bestMV, sadpb, searchRange, bestRefMV)
		if thisSME < bestSME {
			bestSME = thisSME
			bestMV = thisMV
		}
	}

	if bestSME < invalidRD {
		bestMV, _, _ = s.Motion.FractionalStep(mb, 0, Shape16x16, ref,
			bestMV, bestRefMV, s.RD.ErrorPerBit)
	}

	return bestMV, bestSME, true
}

// tryEncodeBreakout checks the small-residual fast path of the zero/
// near-zero inter modes: when the whole-MB prediction error is close
// to flat relative to the quantizer, signal a skip without running
// the transform path. Returns (rd, sse, sse2, ok).
func (s *Search) tryEncodeBreakout(mb *Macroblock, ref *RefView, mv MV) (int, int, int, bool) {
	threshold := s.Quant.DequantStep(PlaneYAfterY2, false)
	threshold = (threshold * threshold) >> 4
	if threshold < int(s.EncodeBreakout) {
		threshold = int(s.EncodeBreakout)
	}

	v, sse := s.Metrics.Var16x16(mb.SrcY[:], 16, mb.Pred[predY:], 16)
	if int(sse) >= threshold {
		return 0, 0, 0, false
	}

	q2dc := s.Quant.DequantStep(PlaneY2, true)
	// No codeable second-order DC, or a very small uniform change.
	if int(sse)-int(v) < (q2dc*q2dc)>>4 ||
		(int(sse)/2 > int(v) && int(sse)-int(v) < 64) {
		sse2 := s.uvSSE(mb, ref, mv)
		if sse2*2 < threshold {
			rd := rdCost(s.RD.RDMult, s.RD.RDDiv, 500, int(sse)+sse2)
			return rd, int(sse), sse2, true
		}
	}
	return 0, 0, 0, false
}

// totalEOB counts the coefficients that would have to be coded if the
// candidate were committed, honouring the Y2 structure of the mode
// and the transform size.
func (s *Search) totalEOB(mb *Macroblock, mode MBMode, ref RefFrame, uvIntraEOB int) int {
	hasY2 := mode != SplitMV && mode != BPred && mode != I8x8Pred
	tteob := 0
	if hasY2 {
		tteob += mb.EOB[y2Block]
	}

	if s.TxfmMode == Allow8x8 && hasY2 {
		for b := 0; b < yBlocks; b += 4 {
			if mb.EOB[b] > 1 {
				tteob++
			}
		}
		if ref != IntraFrame {
			tteob += mb.EOB[16]
			tteob += mb.EOB[20]
		} else {
			tteob += uvIntraEOB
		}
	} else {
		threshold := 0
		if hasY2 {
			threshold = 1
		}
		for b := 0; b < yBlocks; b++ {
			if mb.EOB[b] > threshold {
				tteob++
			}
		}
		if ref != IntraFrame {
			for b := yBlocks; b < yBlocks+uvBlocks; b++ {
				tteob += mb.EOB[b]
			}
		} else {
			tteob += uvIntraEOB
		}
	}
	return tteob
}

// updateMVCount feeds the winner's MV into the per-component
// histograms keyed by the difference to the best reference MV.
func (s *Search) updateMVCount(mi *ModeInfo, pi *PartitionInfo, bestRefMV MV) {
	bump := func(mv MV) {
		r := mvMax + (int(mv.Row)-int(bestRefMV.Row))>>1
		c := mvMax + (int(mv.Col)-int(bestRefMV.Col))>>1
		if r >= 0 && r < mvVals && c >= 0 && c < mvVals {
			s.MVCount[0][r]++
			s.MVCount[1][c]++
		}
	}
	switch mi.Mode {
	case SplitMV:
		for i := 0; i < pi.Count; i++ {
			if pi.BMI[i].Mode == New4x4 {
				bump(pi.BMI[i].MV)
			}
		}
	case NewMV:
		bump(mi.MV)
	}
}
