package rdo

// Residual evaluation: subtract, transform, quantize and return the
// coefficient rate and distortion of the current prediction. Distortion
// is measured on coefficients, not pixels: sum of squared differences
// between the transform coefficients and their dequantized values.

// subtractMBY fills Diff[0:256] with the luma residual, one 16-entry
// run per 4x4 block in raster block order.
func (mb *Macroblock) subtractMBY() {
	for b := 0; b < yBlocks; b++ {
		off := predOffset4(b)
		d := mb.BlockDiff(b)
		for r := 0; r < 4; r++ {
			for c := 0; c < 4; c++ {
				p := off + r*16 + c
				d[r*4+c] = int16(int(mb.SrcY[p]) - int(mb.Pred[predY+p]))
			}
		}
	}
}

// subtractMBY8x8 fills Diff with four contiguous 64-entry 8x8 residual
// blocks at offsets 0, 64, 128, 192.
func (mb *Macroblock) subtractMBY8x8() {
	for q := 0; q < 4; q++ {
		base := (q>>1)*8*16 + (q&1)*8
		d := mb.Diff[q*64 : q*64+64]
		for r := 0; r < 8; r++ {
			for c := 0; c < 8; c++ {
				p := base + r*16 + c
				d[r*8+c] = int16(int(mb.SrcY[p]) - int(mb.Pred[predY+p]))
			}
		}
	}
}

// subtractMBUV fills Diff[256:384] with the chroma residual in 4x4
// block order.
func (mb *Macroblock) subtractMBUV() {
	for b := yBlocks; b < yBlocks+uvBlocks; b++ {
		src := &mb.SrcU
		if b >= 20 {
			src = &mb.SrcV
		}
		i := (b - yBlocks) & 3
		off := (i>>1)*32 + (i&1)*4
		pOff := predOffsetUV(b)
		d := mb.BlockDiff(b)
		for r := 0; r < 4; r++ {
			for c := 0; c < 4; c++ {
				d[r*4+c] = int16(int(src[off+r*8+c]) - int(mb.Pred[pOff+r*8+c]))
			}
		}
	}
}

// subtractMBUV8x8 fills Diff[256:320] and Diff[320:384] with one
// 64-entry residual block per chroma plane.
func (mb *Macroblock) subtractMBUV8x8() {
	for ch := 0; ch < 2; ch++ {
		src := &mb.SrcU
		base := predU
		if ch == 1 {
			src = &mb.SrcV
			base = predV
		}
		d := mb.Diff[256+ch*64 : 256+ch*64+64]
		for r := 0; r < 8; r++ {
			for c := 0; c < 8; c++ {
				d[r*8+c] = int16(int(src[r*8+c]) - int(mb.Pred[base+r*8+c]))
			}
		}
	}
}

// subtractBlock4 fills the residual of a single luma 4x4 block.
func (mb *Macroblock) subtractBlock4(b int) {
	off := predOffset4(b)
	d := mb.BlockDiff(b)
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			p := off + r*16 + c
			d[r*4+c] = int16(int(mb.SrcY[p]) - int(mb.Pred[predY+p]))
		}
	}
}

// blockErrorN is the squared coefficient error over n positions.
func blockErrorN(coeff, dqcoeff []int16, n int) int {
	e := 0
	for i := 0; i < n; i++ {
		d := int(coeff[i]) - int(dqcoeff[i])
		e += d * d
	}
	return e
}

// mbBlockError sums the luma coefficient error; with skipDC the DC
// position of each 4x4 block is excluded (it is carried by Y2).
func (mb *Macroblock) mbBlockError(skipDC bool) int {
	first := 0
	if skipDC {
		first = 1
	}
	e := 0
	for b := 0; b < yBlocks; b++ {
		coeff := mb.BlockCoeff(b)
		dq := mb.BlockDQCoeff(b)
		for j := first; j < 16; j++ {
			d := int(coeff[j]) - int(dq[j])
			e += d * d
		}
	}
	return e
}

// mbBlockError8x8 sums the error of the four 64-coefficient luma
// transform blocks.
func (mb *Macroblock) mbBlockError8x8() int {
	e := 0
	for _, b := range [4]int{0, 4, 8, 12} {
		e += blockErrorN(mb.Coeff[b*16:b*16+64], mb.DQCoeff[b*16:b*16+64], 64)
	}
	return e
}

// mbUVError sums the chroma coefficient error.
func (mb *Macroblock) mbUVError() int {
	return blockErrorN(mb.Coeff[256:384], mb.DQCoeff[256:384], 128)
}

// rdCostMBY is the luma coefficient rate under scratch context copies.
func (s *Search) rdCostMBY(mb *Macroblock) int {
	ta := *mb.Above
	tl := *mb.Left
	cost := 0
	for b := 0; b < yBlocks; b++ {
		cost += s.Costs.costCoeffs(mb, b, PlaneYAfterY2,
			&ta[block2Above[b]], &tl[block2Left[b]])
	}
	cost += s.Costs.costCoeffs(mb, y2Block, PlaneY2,
		&ta[block2Above[y2Block]], &tl[block2Left[y2Block]])
	return cost
}

func (s *Search) rdCostMBY8x8(mb *Macroblock) int {
	ta := *mb.Above
	tl := *mb.Left
	cost := 0
	for b := 0; b < yBlocks; b += 4 {
		cost += s.Costs.costCoeffs8x8(mb, b, PlaneYAfterY2,
			&ta[block2Above8x8[b]], &tl[block2Left8x8[b]])
	}
	cost += s.Costs.costCoeffs2x2(mb,
		&ta[block2Above[y2Block]], &tl[block2Left[y2Block]])
	return cost
}

// macroBlockYRD evaluates the 16x16 luma residual with the 4x4
// transform: rate, coefficient distortion.
func (s *Search) macroBlockYRD(mb *Macroblock) (rate, dist int) {
	mb.subtractMBY()

	y2 := mb.Diff[384:400]
	for b := 0; b < yBlocks; b++ {
		s.Xform.FDCT4x4(mb.BlockDiff(b), mb.BlockCoeff(b))
		y2[b] = mb.BlockCoeff(b)[0]
	}
	s.Xform.Walsh4x4(y2, mb.BlockCoeff(y2Block))

	for b := 0; b < yBlocks; b++ {
		s.Quant.Quantize(mb, b, PlaneYAfterY2)
	}
	s.Quant.Quantize(mb, y2Block, PlaneY2)

	d := mb.mbBlockError(true) << 2
	d += blockErrorN(mb.BlockCoeff(y2Block), mb.BlockDQCoeff(y2Block), 16) << 2

	return s.rdCostMBY(mb), d >> 4
}

// macroBlockYRD8x8 is the 8x8-transform flavour. The luma DC
// positions are zeroed before the error sum so the Y2 block's DC is
// not double counted.
func (s *Search) macroBlockYRD8x8(mb *Macroblock) (rate, dist int) {
	mb.subtractMBY8x8()

	y2 := mb.Diff[384:400]
	for i := range y2 {
		y2[i] = 0
	}
	for i, b := range [4]int{0, 4, 8, 12} {
		s.Xform.FDCT8x8(mb.Diff[b*16:b*16+64], mb.Coeff[b*16:b*16+64])
		y2[i] = mb.Coeff[b*16]
	}
	walsh2x2(y2[:4], mb.BlockCoeff(y2Block))

	for _, b := range [4]int{0, 4, 8, 12} {
		s.Quant.Quantize8x8(mb, b, PlaneYAfterY2)
	}
	s.Quant.Quantize2x2(mb, PlaneY2)

	for _, off := range [4]int{0, 64, 128, 192} {
		mb.Coeff[off] = 0
		mb.DQCoeff[off] = 0
	}
	d := mb.mbBlockError8x8() << 2
	d += blockErrorN(mb.BlockCoeff(y2Block), mb.BlockDQCoeff(y2Block), 4) << 2

	return s.rdCostMBY8x8(mb), d >> 4
}

// walsh2x2 is the second-order transform of the four 8x8 luma DCs.
func walsh2x2(in, out []int16) {
	a := int(in[0])
	b := int(in[1])
	c := int(in[2])
	d := int(in[3])
	out[0] = int16((a + b + c + d) >> 1)
	out[1] = int16((a - b + c - d) >> 1)
	out[2] = int16((a + b - c - d) >> 1)
	out[3] = int16((a - b - c + d) >> 1)
	for i := 4; i < 16; i++ {
		out[i] = 0
	}
}

func (s *Search) rdCostMBUV(mb *Macroblock) int {
	ta := *mb.Above
	tl := *mb.Left
	cost := 0
	for b := yBlocks; b < yBlocks+uvBlocks; b++ {
		cost += s.Costs.costCoeffs(mb, b, PlaneUV,
			&ta[block2Above[b]], &tl[block2Left[b]])
	}
	return cost
}

func (s *Search) rdCostMBUV8x8(mb *Macroblock) int {
	ta := *mb.Above
	tl := *mb.Left
	cost := 0
	for b := yBlocks; b < yBlocks+uvBlocks; b += 4 {
		cost += s.Costs.costCoeffs8x8(mb, b, PlaneUV,
			&ta[block2Above8x8[b]], &tl[block2Left8x8[b]])
	}
	return cost
}

// transformQuantUV runs the chroma residual path with the 4x4
// transform.
func (s *Search) transformQuantUV(mb *Macroblock) {
	mb.subtractMBUV()
	for b := yBlocks; b < yBlocks+uvBlocks; b++ {
		s.Xform.FDCT4x4(mb.BlockDiff(b), mb.BlockCoeff(b))
		s.Quant.Quantize(mb, b, PlaneUV)
	}
}

func (s *Search) transformQuantUV8x8(mb *Macroblock) {
	mb.subtractMBUV8x8()
	for b := yBlocks; b < yBlocks+uvBlocks; b += 4 {
		s.Xform.FDCT8x8(mb.Diff[b*16:b*16+64], mb.Coeff[b*16:b*16+64])
		s.Quant.Quantize8x8(mb, b, PlaneUV)
	}
}

// interUVRD evaluates the chroma residual of the current 16x16 inter
// prediction and returns (rd, rate, dist).
func (s *Search) interUVRD(mb *Macroblock) (rd, rate, dist int) {
	s.transformQuantUV(mb)
	rate = s.rdCostMBUV(mb)
	dist = mb.mbUVError() / 4
	return rdCost(s.RD.RDMult, s.RD.RDDiv, rate, dist), rate, dist
}

func (s *Search) interUVRD8x8(mb *Macroblock) (rd, rate, dist int) {
	s.transformQuantUV8x8(mb)
	rate = s.rdCostMBUV8x8(mb)
	dist = mb.mbUVError() / 4
	return rdCost(s.RD.RDMult, s.RD.RDDiv, rate, dist), rate, dist
}

// inter4x4UVRD builds the chroma predictors from the per-block MVs
// chosen by the segmentation and evaluates the chroma residual.
func (s *Search) inter4x4UVRD(mb *Macroblock, ref *RefView, mvs *[16]MV) (rd, rate, dist int) {
	s.Inter.PredictUV4x4(mb, ref, mvs)
	return s.interUVRD(mb)
}
