package rdo

// SPLITMV segmentation search: for each partition shape, jointly pick
// a sub-mode and MV per label, accumulating rate/distortion with
// early-outs against the caller's best.

const (
	maxMVSearchSteps = 8
	maxFirstStep     = 1 << (maxMVSearchSteps - 1)
	maxFullPelVal    = (1 << maxMVSearchSteps) - 1
)

// fullSearchGate is the best-SAD threshold (after the per-shape
// shift) above which good-quality mode escalates to a full search.
const fullSearchGate = 4000

// bestSegInfo accumulates the best segmentation found so far.
type bestSegInfo struct {
	refMV MV
	mvp   MV

	segmentRD  int
	segmentNum Partition
	r          int
	d          int
	yRate      int

	modes [16]SubMode
	mvs   [16]MV
	eobs  [16]int

	mvthresh int
	mdcounts [4]int

	svMVP   [4]MV  // the four 8x8 winners, predictors for 16x8/8x16
	svIStep [2]int // initial step params derived from them
}

// segResult is the committed outcome of the segmentation search.
type segResult struct {
	rd    int
	rate  int
	yRate int
	dist  int

	partition Partition
	count     int
	bmi       [16]BModeInfo // full 4x4 grid
	part      [16]BModeInfo // one entry per label
	eobs      [16]int
	mv        MV // block 15's MV, the MB-level MV downstream
}

// leftBlockMV resolves the MV left of 4x4 block i during labelling.
func (mb *Macroblock) leftBlockMV(bmi *[16]BModeInfo, i int) MV {
	if i&3 != 0 {
		return bmi[i-1].MV
	}
	if mb.LeftMI == nil {
		return MV{}
	}
	if mb.LeftMI.Mode == SplitMV {
		return mb.LeftMI.SubMVs[i+3]
	}
	return mb.LeftMI.MV
}

func (mb *Macroblock) aboveBlockMV(bmi *[16]BModeInfo, i int) MV {
	if i >= 4 {
		return bmi[i-4].MV
	}
	if mb.AboveMI == nil {
		return MV{}
	}
	if mb.AboveMI.Mode == SplitMV {
		return mb.AboveMI.SubMVs[i+12]
	}
	return mb.AboveMI.MV
}

// labels2Mode assigns mode and MV to every block of the label and
// returns the signalling cost. ABOVE4X4 collapses to LEFT4X4 when the
// two neighbours agree, saving a bit.
func (s *Search) labels2Mode(mb *Macroblock, bmi *[16]BModeInfo, labels *[16]int,
	which int, mode SubMode, thisMV *MV, bestRefMV MV) int {

	cost := 0
	thisMVCost := 0

	for i := 0; i < 16; i++ {
		if labels[i] != which {
			continue
		}
		row, col := i>>2, i&3

		var m SubMode
		switch {
		case col != 0 && labels[i] == labels[i-1]:
			m = Left4x4
		case row != 0 && labels[i] == labels[i-4]:
			m = Above4x4
		default:
			// Only the label's first block pays for the mode and MV.
			m = mode
			switch mode {
			case New4x4:
				thisMVCost = mvBitCost(*thisMV, bestRefMV, s.Costs.MV, 102)
			case Left4x4:
				*thisMV = mb.leftBlockMV(bmi, i)
			case Above4x4:
				*thisMV = mb.aboveBlockMV(bmi, i)
			case Zero4x4:
				*thisMV = MV{}
			}

			if m == Above4x4 {
				if mb.leftBlockMV(bmi, i) == *thisMV {
					m = Left4x4
				}
			}
			cost = s.Costs.InterBMode[m]
		}

		bmi[i].Mode = m
		bmi[i].MV = *thisMV
	}

	return cost + thisMVCost
}

// encodeInterMBSegment predicts, transforms and quantizes the label's
// blocks and returns their raw coefficient error.
func (s *Search) encodeInterMBSegment(mb *Macroblock, ref *RefView, bmi *[16]BModeInfo,
	labels *[16]int, which int) int {

	distortion := 0
	for i := 0; i < 16; i++ {
		if labels[i] != which {
			continue
		}
		s.Inter.PredictBlock(mb, ref, i, bmi[i].MV)
		mb.subtractBlock4(i)
		s.Xform.FDCT4x4(mb.BlockDiff(i), mb.BlockCoeff(i))
		s.Quant.Quantize(mb, i, PlaneYWithDC)
		distortion += blockErrorN(mb.BlockCoeff(i), mb.BlockDQCoeff(i), 16)
	}
	return distortion
}

// rdCostMBSegmentY sums the coefficient rate of the label's blocks.
func (s *Search) rdCostMBSegmentY(mb *Macroblock, labels *[16]int, which int,
	ta, tl *ContextPlanes) int {

	cost := 0
	for b := 0; b < 16; b++ {
		if labels[b] == which {
			cost += s.Costs.costCoeffs(mb, b, PlaneYWithDC,
				&ta[block2Above[b]], &tl[block2Left[b]])
		}
	}
	return cost
}

// checkSegment evaluates one partition shape against the running best.
func (s *Search) checkSegment(mb *Macroblock, ref *RefView, bsi *bestSegInfo, seg Partition) {
	labels := &mbSplits[seg]
	labelCount := mbSplitCount[seg]
	shape := shapeOf(seg)

	taBase := *mb.Above
	tlBase := *mb.Left
	var taBest, tlBest ContextPlanes

	var bmi [16]BModeInfo

	// The per-label threshold is the MB-level one divided by the label
	// count; NEW4X4 is searched unless a label already scores below it.
	labelMVThresh := 1 * bsi.mvthresh / labelCount

	// Split-type selector and SPLITMV mv-ref cost, charged up front.
	rate := s.Costs.MBSplit[seg]
	rate += costMVRef(SplitMV, bsi.mdcounts)
	thisSegmentRD := rdCost(s.RD.RDMult, s.RD.RDDiv, rate, 0)
	br := rate
	bd := 0
	segmentYRate := 0

	for i := 0; i < labelCount; i++ {
		var modeMV [numSubModes]MV
		bestLabelRD := invalidRD
		modeSelected := Zero4x4
		bestLabelYRate := 0
		sbr, sbd := 0, 0

		for m := Left4x4; m <= New4x4; m++ {
			taS := taBase
			tlS := tlBase

			if m == New4x4 {
				// A good-enough label needs no new search.
				if bestLabelRD < labelMVThresh {
					break
				}

				step := 0
				if s.CompressorSpeed != 0 {
					if seg == Block8x16 || seg == Block16x8 {
						bsi.mvp = bsi.svMVP[i]
						if i == 1 && seg == Block16x8 {
							bsi.mvp = bsi.svMVP[2]
						}
						step = bsi.svIStep[i]
					}
					if seg == Block4x4 && i > 0 {
						bsi.mvp = bmi[i-1].MV
						if i == 4 || i == 8 || i == 12 {
							bsi.mvp = bmi[i-4].MV
						}
						step = 2
					}
				}

				furtherSteps := (maxMVSearchSteps - 1) - step
				sadpb := s.RD.SadPerBit4
				mvpFull := MV{Row: bsi.mvp.Row >> 3, Col: bsi.mvp.Col >> 3}
				n := mbSplitOffset[seg][i]

				bestMV, bestSME, num00 := s.Motion.DiamondSearch(mb, n, shape, ref,
					mvpFull, step, sadpb, bsi.refMV)

				steps := num00
				num00 = 0
				for steps < furtherSteps {
					steps++
					if num00 > 0 {
						num00--
						continue
					}
					var thisMV MV
					var thisSME int
					thisMV, thisSME, num00 = s.Motion.DiamondSearch(mb, n, shape, ref,
						mvpFull, step+steps, sadpb, bsi.refMV)
					if thisSME < bestSME {
						bestSME = thisSME
						bestMV = thisMV
					}
				}

				if s.CompressorSpeed == 0 &&
					(bestSME>>segmentationToSSEShift[seg]) > fullSearchGate {
					clamped := mb.clampFullPelMV(mvpFull)
					thisMV, thisSME := s.Motion.FullSearch(mb, n, shape, ref,
						clamped, sadpb, 16, bsi.refMV)
					if thisSME < bestSME {
						bestSME = thisSME
						bestMV = thisMV
					}
				}

				if bestSME < invalidRD {
					bestMV, _, _ = s.Motion.FractionalStep(mb, n, shape, ref,
						bestMV, bsi.refMV, s.RD.ErrorPerBit)
				}
				modeMV[New4x4] = bestMV
			}

			labelRate := s.labels2Mode(mb, &bmi, labels, i, m, &modeMV[m], bsi.refMV)

			if !mb.mvInWindow(modeMV[m]) {
				continue
			}

			distortion := s.encodeInterMBSegment(mb, ref, &bmi, labels, i) / 4
			labelYRate := s.rdCostMBSegmentY(mb, labels, i, &taS, &tlS)
			labelRate += labelYRate

			thisRD := rdCost(s.RD.RDMult, s.RD.RDDiv, labelRate, distortion)
			if thisRD < bestLabelRD {
				sbr = labelRate
				sbd = distortion
				bestLabelYRate = labelYRate
				modeSelected = m
				bestLabelRD = thisRD
				taBest = taS
				tlBest = tlS
			}
		}

		taBase = taBest
		tlBase = tlBest

		// Re-commit the winner: the later trials overwrote the working
		// state, and its quantized blocks feed the eob snapshot below.
		s.labels2Mode(mb, &bmi, labels, i, modeSelected, &modeMV[modeSelected], bsi.refMV)
		s.encodeInterMBSegment(mb, ref, &bmi, labels, i)

		br += sbr
		bd += sbd
		segmentYRate += bestLabelYRate
		thisSegmentRD += bestLabelRD

		if thisSegmentRD >= bsi.segmentRD {
			break
		}
	}

	if thisSegmentRD < bsi.segmentRD {
		bsi.r = br
		bsi.d = bd
		bsi.yRate = segmentYRate
		bsi.segmentRD = thisSegmentRD
		bsi.segmentNum = seg

		for i := 0; i < 16; i++ {
			bsi.mvs[i] = bmi[i].MV
			bsi.modes[i] = bmi[i].Mode
			bsi.eobs[i] = mb.EOB[i]
		}
	}
}

// clampFullPelMV clamps a full-pel MV into the MB's search window.
func (mb *Macroblock) clampFullPelMV(mv MV) MV {
	if int(mv.Col) < mb.MVColMin {
		mv.Col = int16(mb.MVColMin)
	} else if int(mv.Col) > mb.MVColMax {
		mv.Col = int16(mb.MVColMax)
	}
	if int(mv.Row) < mb.MVRowMin {
		mv.Row = int16(mb.MVRowMin)
	} else if int(mv.Row) > mb.MVRowMax {
		mv.Row = int16(mb.MVRowMax)
	}
	return mv
}

// calStepParam sizes the initial diamond step from a search range.
func calStepParam(sr int) int {
	step := 0
	if sr > maxFirstStep {
		sr = maxFirstStep
	} else if sr < 1 {
		sr = 1
	}
	for sr > 1 {
		sr >>= 1
		step++
	}
	return maxMVSearchSteps - 1 - step
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// rdPickBestSegmentation drives the per-shape search. bestRD is the
// caller's luma budget; mvthresh gates NEW4X4 searches.
func (s *Search) rdPickBestSegmentation(mb *Macroblock, ref *RefView, bestRefMV MV,
	bestRD int, mdcounts [4]int, mvthresh int) segResult {

	bsi := bestSegInfo{
		segmentRD: bestRD,
		refMV:     bestRefMV,
		mvp:       bestRefMV,
		mvthresh:  mvthresh,
		mdcounts:  mdcounts,
	}
	for i := range bsi.modes {
		bsi.modes[i] = Zero4x4
	}

	if s.CompressorSpeed == 0 {
		// Good quality: keep the original shape order.
		s.checkSegment(mb, ref, &bsi, Block16x8)
		s.checkSegment(mb, ref, &bsi, Block8x16)
		s.checkSegment(mb, ref, &bsi, Block8x8)
		s.checkSegment(mb, ref, &bsi, Block4x4)
	} else {
		s.checkSegment(mb, ref, &bsi, Block8x8)

		if bsi.segmentRD < bestRD {
			colMin := (int(bestRefMV.Col) >> 3) - maxFullPelVal + b2bit(bestRefMV.Col&7 != 0)
			rowMin := (int(bestRefMV.Row) >> 3) - maxFullPelVal + b2bit(bestRefMV.Row&7 != 0)
			colMax := (int(bestRefMV.Col) >> 3) + maxFullPelVal
			rowMax := (int(bestRefMV.Row) >> 3) + maxFullPelVal

			saveColMin, saveColMax := mb.MVColMin, mb.MVColMax
			saveRowMin, saveRowMax := mb.MVRowMin, mb.MVRowMax

			// Intersect the MV window with the reachable range so the
			// diamond search checks fewer points.
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

			bsi.svMVP[0] = bsi.mvs[0]
			bsi.svMVP[1] = bsi.mvs[2]
			bsi.svMVP[2] = bsi.mvs[8]
			bsi.svMVP[3] = bsi.mvs[10]

			// Trust the 8x8 answer: size the rectangular shapes'
			// start step from the spread of the 8x8 winners.
			sr := maxInt(absInt(int(bsi.svMVP[0].Row-bsi.svMVP[2].Row))>>3,
				absInt(int(bsi.svMVP[0].Col-bsi.svMVP[2].Col))>>3)
			bsi.svIStep[0] = calStepParam(sr)
			sr = maxInt(absInt(int(bsi.svMVP[1].Row-bsi.svMVP[3].Row))>>3,
				absInt(int(bsi.svMVP[1].Col-bsi.svMVP[3].Col))>>3)
			bsi.svIStep[1] = calStepParam(sr)
			s.checkSegment(mb, ref, &bsi, Block8x16)

			sr = maxInt(absInt(int(bsi.svMVP[0].Row-bsi.svMVP[1].Row))>>3,
				absInt(int(bsi.svMVP[0].Col-bsi.svMVP[1].Col))>>3)
			bsi.svIStep[0] = calStepParam(sr)
			sr = maxInt(absInt(int(bsi.svMVP[2].Row-bsi.svMVP[3].Row))>>3,
				absInt(int(bsi.svMVP[2].Col-bsi.svMVP[3].Col))>>3)
			bsi.svIStep[1] = calStepParam(sr)
			s.checkSegment(mb, ref, &bsi, Block16x8)

			// 4x4 only if 8x8 stayed ahead of the rectangles.
			if s.NoSkipBlock4x4Search || bsi.segmentNum == Block8x8 {
				bsi.mvp = bsi.svMVP[0]
				s.checkSegment(mb, ref, &bsi, Block4x4)
			}

			mb.MVColMin, mb.MVColMax = saveColMin, saveColMax
			mb.MVRowMin, mb.MVRowMax = saveRowMin, saveRowMax
		}
	}

	res := segResult{
		rd:        bsi.segmentRD,
		rate:      bsi.r,
		yRate:     bsi.yRate,
		dist:      bsi.d,
		partition: bsi.segmentNum,
		count:     mbSplitCount[bsi.segmentNum],
		mv:        bsi.mvs[15],
	}
	for i := 0; i < 16; i++ {
		res.bmi[i] = BModeInfo{Mode: bsi.modes[i], MV: bsi.mvs[i]}
		res.eobs[i] = bsi.eobs[i]
	}
	for i := 0; i < res.count; i++ {
		j := mbSplitOffset[bsi.segmentNum][i]
		res.part[i] = BModeInfo{Mode: bsi.modes[j], MV: bsi.mvs[j]}
	}
	return res
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
