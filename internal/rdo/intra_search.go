package rdo

// Intra mode search at the three luma granularities plus chroma. Each
// search trial-codes candidate predictors through the residual path
// and keeps the J = D + λR minimiser; winning 4x4/8x8 trials commit
// their reconstruction so later sub-blocks predict from the right
// neighbours.

var intra16Modes = [numIntra16Modes]MBMode{DCPred, VPred, HPred, TMPred}

// pickIntra16x16 picks the best whole-MB intra luma mode. The
// returned rate includes the mode signalling cost; rateY is the
// coefficient rate alone.
func (s *Search) pickIntra16x16(mb *Macroblock) (best MBMode, rate, rateY, dist, bestRD int) {
	bestRD = invalidRD
	ft := s.frameType()
	for _, mode := range intra16Modes {
		s.Intra.PredictMBY(mb, mode)

		var ry, d int
		if s.TxfmMode == Allow8x8 {
			ry, d = s.macroBlockYRD8x8(mb)
		} else {
			ry, d = s.macroBlockYRD(mb)
		}
		r := ry + s.Costs.MBMode[ft][mode]
		rd := rdCost(s.RD.RDMult, s.RD.RDDiv, r, d)
		if rd < bestRD {
			bestRD = rd
			best = mode
			rate = r
			rateY = ry
			dist = d
		}
	}
	// Rebuild the winner so the coefficient state matches the choice.
	s.Intra.PredictMBY(mb, best)
	if s.TxfmMode == Allow8x8 {
		s.macroBlockYRD8x8(mb)
	} else {
		s.macroBlockYRD(mb)
	}
	return best, rate, rateY, dist, bestRD
}

// pickIntra4x4Block picks the b-mode of one 4x4 sub-block, commits
// its reconstruction, and advances the scratch contexts to the
// winner's state.
func (s *Search) pickIntra4x4Block(mb *Macroblock, b int, bmodeCosts *[numBModes]int,
	ta, tl *uint8) (best SubMode, rate, rateY, dist, bestRD int) {

	bestRD = invalidRD

	var bestPred [16]uint8
	var bestDQ [16]int16
	aIn, lIn := *ta, *tl
	bestA, bestL := aIn, lIn

	for m := 0; m < numBModes; m++ {
		mode := SubMode(m)
		r := bmodeCosts[m]

		s.Intra.Predict4x4(mb, b, mode)
		mb.subtractBlock4(b)
		s.Xform.FDCT4x4(mb.BlockDiff(b), mb.BlockCoeff(b))
		s.Quant.Quantize(mb, b, PlaneYWithDC)

		tempA, tempL := aIn, lIn
		ry := s.Costs.costCoeffs(mb, b, PlaneYWithDC, &tempA, &tempL)
		r += ry
		d := blockErrorN(mb.BlockCoeff(b), mb.BlockDQCoeff(b), 16) >> 2

		rd := rdCost(s.RD.RDMult, s.RD.RDDiv, r, d)
		if rd < bestRD {
			bestRD = rd
			best = mode
			rate = r
			rateY = ry
			dist = d
			bestA, bestL = tempA, tempL
			off := predOffset4(b)
			for row := 0; row < 4; row++ {
				copy(bestPred[row*4:row*4+4], mb.Pred[predY+off+row*16:predY+off+row*16+4])
			}
			copy(bestDQ[:], mb.BlockDQCoeff(b))
		}
	}

	*ta, *tl = bestA, bestL
	s.Recon.Recon4x4(mb, b, bestPred[:], bestDQ[:])
	return best, rate, rateY, dist, bestRD
}

// pickIntra4x4MBY runs the 16-sub-block intra search (B_PRED). If the
// accumulated cost reaches bestRD the whole candidate is abandoned
// and invalidRD is returned.
func (s *Search) pickIntra4x4MBY(mb *Macroblock, modes *[16]SubMode, bestRD int) (rate, rateY, dist, rd int) {
	ft := s.frameType()
	cost := s.Costs.MBMode[ft][BPred]
	distortion := 0
	totRateY := 0
	var totalRD int64

	ta := *mb.Above
	tl := *mb.Left

	flatCosts := s.Costs.InterBMode10()
	bmodeCosts := &flatCosts
	for i := 0; i < 16; i++ {
		if s.KeyFrame {
			above := mb.aboveBMode(i, modes)
			left := mb.leftBMode(i, modes)
			bmodeCosts = &s.Costs.KfBMode[above][left]
		}

		mode, r, ry, d, blockRD := s.pickIntra4x4Block(mb, i, bmodeCosts,
			&ta[block2Above[i]], &tl[block2Left[i]])
		modes[i] = mode
		cost += r
		distortion += d
		totRateY += ry
		totalRD += int64(blockRD)

		if totalRD >= int64(bestRD) {
			return 0, 0, 0, invalidRD
		}
	}

	return cost, totRateY, distortion,
		rdCost(s.RD.RDMult, s.RD.RDDiv, cost, distortion)
}

// InterBMode10 is the flat b-mode cost table used outside key frames.
func (ct *CostTables) InterBMode10() [numBModes]int {
	var out [numBModes]int
	copy(out[:], ct.InterBMode[:numBModes])
	return out
}

// aboveBMode resolves the sub-mode of the block above 4x4 block i,
// reading the neighbouring MB's bottom row when i is in the top row.
func (mb *Macroblock) aboveBMode(i int, modes *[16]SubMode) SubMode {
	if i >= 4 {
		return modes[i-4]
	}
	if mb.AboveBModes == nil {
		return BDCPred
	}
	return clampBMode(mb.AboveBModes[i])
}

func (mb *Macroblock) leftBMode(i int, modes *[16]SubMode) SubMode {
	if i&3 != 0 {
		return modes[i-1]
	}
	if mb.LeftBModes == nil {
		return BDCPred
	}
	return clampBMode(mb.LeftBModes[i>>2])
}

// clampBMode folds SPLITMV sub-modes from an inter neighbour down to
// DC for the mode-cost context lookup.
func clampBMode(m SubMode) SubMode {
	if m >= numBModes {
		return BDCPred
	}
	return m
}

// pickIntra8x8Block picks the mode of one 8x8 region (top-left 4x4
// block ib), commits its reconstruction and context.
func (s *Search) pickIntra8x8Block(mb *Macroblock, ib int, ta, tl *ContextPlanes) (best MBMode, rate, rateY, dist, bestRD int) {
	bestRD = invalidRD

	blocks := [4]int{ib, ib + 1, ib + 4, ib + 5}
	var bestA, bestL [2]uint8

	for _, mode := range intra16Modes {
		r := s.Costs.I8x8Mode[mode]

		s.Intra.Predict8x8(mb, ib, mode)
		d := 0
		for _, b := range blocks {
			mb.subtractBlock4(b)
			s.Xform.FDCT4x4(mb.BlockDiff(b), mb.BlockCoeff(b))
		}
		s.Quant.QuantizePair(mb, ib, ib+1, PlaneYWithDC)
		s.Quant.QuantizePair(mb, ib+4, ib+5, PlaneYWithDC)
		for _, b := range blocks {
			d += blockErrorN(mb.BlockCoeff(b), mb.BlockDQCoeff(b), 16) >> 2
		}

		ta0 := ta[block2Above[ib]]
		ta1 := ta[block2Above[ib+1]]
		tl0 := tl[block2Left[ib]]
		tl1 := tl[block2Left[ib+4]]
		rt := s.Costs.costCoeffs(mb, ib, PlaneYWithDC, &ta0, &tl0)
		rt += s.Costs.costCoeffs(mb, ib+1, PlaneYWithDC, &ta1, &tl0)
		rt += s.Costs.costCoeffs(mb, ib+4, PlaneYWithDC, &ta0, &tl1)
		rt += s.Costs.costCoeffs(mb, ib+5, PlaneYWithDC, &ta1, &tl1)
		r += rt

		rd := rdCost(s.RD.RDMult, s.RD.RDDiv, r, d)
		if rd < bestRD {
			bestRD = rd
			best = mode
			rate = r
			rateY = rt
			dist = d
			bestA = [2]uint8{ta0, ta1}
			bestL = [2]uint8{tl0, tl1}
		}
	}

	// Re-encode the winner so its reconstruction becomes the context
	// of the next region.
	s.Intra.Predict8x8(mb, ib, best)
	for _, b := range blocks {
		mb.subtractBlock4(b)
		s.Xform.FDCT4x4(mb.BlockDiff(b), mb.BlockCoeff(b))
	}
	s.Quant.QuantizePair(mb, ib, ib+1, PlaneYWithDC)
	s.Quant.QuantizePair(mb, ib+4, ib+5, PlaneYWithDC)
	var pred [16]uint8
	for _, b := range blocks {
		off := predOffset4(b)
		for row := 0; row < 4; row++ {
			copy(pred[row*4:row*4+4], mb.Pred[predY+off+row*16:predY+off+row*16+4])
		}
		s.Recon.Recon4x4(mb, b, pred[:], mb.BlockDQCoeff(b))
	}

	ta[block2Above[ib]] = bestA[0]
	ta[block2Above[ib+1]] = bestA[1]
	tl[block2Left[ib]] = bestL[0]
	tl[block2Left[ib+4]] = bestL[1]
	return best, rate, rateY, dist, bestRD
}

// pickIntra8x8MBY runs the four-region 8x8 intra search (I8X8_PRED).
func (s *Search) pickIntra8x8MBY(mb *Macroblock, modes8 *[4]MBMode) (rate, rateY, dist, rd int) {
	ft := s.frameType()
	cost := s.Costs.MBMode[ft][I8x8Pred]
	distortion := 0
	totRateY := 0

	ta := *mb.Above
	tl := *mb.Left

	for i, ib := range i8x8Blocks {
		mode, r, ry, d, _ := s.pickIntra8x8Block(mb, ib, &ta, &tl)
		modes8[i] = mode
		cost += r
		distortion += d
		totRateY += ry
	}
	return cost, totRateY, distortion,
		rdCost(s.RD.RDMult, s.RD.RDDiv, cost, distortion)
}

// uvIntraResult caches the shared chroma intra search of the driver.
type uvIntraResult struct {
	mode     MBMode
	rate     int
	rateTO   int // token-only rate
	dist     int
	totalEOB int
}

// pickIntraUV picks the chroma intra mode and leaves the winner's
// quantized state in the MB.
func (s *Search) pickIntraUV(mb *Macroblock) uvIntraResult {
	ft := s.frameType()
	best := uvIntraResult{}
	bestRD := invalidRD

	for _, mode := range intra16Modes {
		s.Intra.PredictMBUV(mb, mode)
		s.transformQuantUV(mb)

		rateTO := s.rdCostMBUV(mb)
		r := rateTO + s.Costs.UVMode[ft][mode]
		d := mb.mbUVError() / 4

		rd := rdCost(s.RD.RDMult, s.RD.RDDiv, r, d)
		if rd < bestRD {
			bestRD = rd
			best = uvIntraResult{mode: mode, rate: r, rateTO: rateTO, dist: d}
		}
	}

	// Re-encode the winner: the eob state feeds the skip decision.
	s.Intra.PredictMBUV(mb, best.mode)
	s.transformQuantUV(mb)
	for b := yBlocks; b < yBlocks+uvBlocks; b++ {
		best.totalEOB += mb.EOB[b]
	}
	return best
}
