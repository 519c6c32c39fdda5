package vp8enc

import (
	"github.com/deepteams/vp8enc/internal/dsp"
	"github.com/deepteams/vp8enc/internal/rdo"
)

// Collaborator implementations wiring the mode search to the dsp
// kernels. Intra predictors read their context from the committed
// reconstruction planes; inter predictors fetch motion-compensated
// samples from the reference views.

// Border sample defaults when a neighbour row/column is outside the
// frame.
const (
	topBorder  = 127
	leftBorder = 129
)

// reconIntra builds intra predictors into mb.Pred, assembling the
// above/left context from the reconstruction planes.
type reconIntra struct{}

// squareMode maps a whole-block mode to the dsp predictor, remapping
// DC to its reduced-context variants at frame edges.
func squareMode(mode rdo.MBMode, hasTop, hasLeft bool) int {
	switch mode {
	case rdo.VPred:
		return dsp.PredVE
	case rdo.HPred:
		return dsp.PredHE
	case rdo.TMPred:
		return dsp.PredTM
	}
	switch {
	case hasTop && hasLeft:
		return dsp.PredDC
	case hasLeft:
		return dsp.PredDCNoTop
	case hasTop:
		return dsp.PredDCNoLeft
	}
	return dsp.PredDCNoTopLeft
}

// fillSquareContext copies the block's top row, left column and
// corner from the reconstruction into the bordered scratch.
func fillSquareContext(scratch []uint8, off, stride int, recon []uint8, reconOff, reconStride, n int, hasTop, hasLeft bool) {
	for i := -1; i < n; i++ {
		scratch[off-stride+i] = topBorder
	}
	for j := 0; j < n; j++ {
		scratch[off-1+j*stride] = leftBorder
	}
	if hasTop {
		for i := 0; i < n; i++ {
			scratch[off-stride+i] = recon[reconOff-reconStride+i]
		}
		if hasLeft {
			scratch[off-stride-1] = recon[reconOff-reconStride-1]
		}
	}
	if hasLeft {
		for j := 0; j < n; j++ {
			scratch[off-1+j*stride] = recon[reconOff-1+j*reconStride]
		}
	}
}

func (reconIntra) PredictMBY(mb *rdo.Macroblock, mode rdo.MBMode) {
	const stride = 18
	var scratch [17 * stride]uint8
	off := stride + 1
	hasTop := mb.ToTopEdge != 0
	hasLeft := mb.ToLeftEdge != 0

	fillSquareContext(scratch[:], off, stride, mb.Recon, mb.ReconOff, mb.ReconStride, 16, hasTop, hasLeft)
	dsp.PredLuma16(squareMode(mode, hasTop, hasLeft), scratch[:], off, stride)
	for r := 0; r < 16; r++ {
		copy(mb.Pred[r*16:r*16+16], scratch[off+r*stride:off+r*stride+16])
	}
}

func (reconIntra) PredictMBUV(mb *rdo.Macroblock, mode rdo.MBMode) {
	const stride = 10
	var scratch [9 * stride]uint8
	off := stride + 1
	hasTop := mb.ToTopEdge != 0
	hasLeft := mb.ToLeftEdge != 0
	m := squareMode(mode, hasTop, hasLeft)

	for ch, plane := range [2][]uint8{mb.ReconU, mb.ReconV} {
		fillSquareContext(scratch[:], off, stride, plane, mb.ReconUVOff, mb.ReconUVStride, 8, hasTop, hasLeft)
		dsp.Pred8(m, scratch[:], off, stride)
		base := 256 + ch*64
		for r := 0; r < 8; r++ {
			copy(mb.Pred[base+r*8:base+r*8+8], scratch[off+r*stride:off+r*stride+8])
		}
	}
}

// bModeMap translates the bitstream sub-mode order to the dsp 4x4
// predictor order.
var bModeMap = [10]int{
	rdo.BDCPred: dsp.PredDC4,
	rdo.BTMPred: dsp.PredTM4,
	rdo.BVEPred: dsp.PredVE4,
	rdo.BHEPred: dsp.PredHE4,
	rdo.BLDPred: dsp.PredLD4,
	rdo.BRDPred: dsp.PredRD4,
	rdo.BVRPred: dsp.PredVR4,
	rdo.BVLPred: dsp.PredVL4,
	rdo.BHDPred: dsp.PredHD4,
	rdo.BHUPred: dsp.PredHU4,
}

func (reconIntra) Predict4x4(mb *rdo.Macroblock, b int, mode rdo.SubMode) {
	const stride = 16
	var scratch [5 * stride]uint8
	off := stride + 1

	by, bx := (b>>2)*4, (b&3)*4
	pos := mb.ReconOff + by*mb.ReconStride + bx
	hasTop := mb.ToTopEdge != 0 || by > 0
	hasLeft := mb.ToLeftEdge != 0 || bx > 0

	// Top row plus the four above-right samples; the b-modes always
	// have context, border defaults stand in at frame edges.
	for i := -1; i < 8; i++ {
		scratch[off-stride+i] = topBorder
	}
	for j := 0; j < 4; j++ {
		scratch[off-1+j*stride] = leftBorder
	}
	if hasTop {
		for i := 0; i < 8; i++ {
			src := pos - mb.ReconStride + i
			if bx+i < 16 {
				scratch[off-stride+i] = mb.Recon[src]
				continue
			}
			// Above-right of the MB: read the row above the MB when it
			// exists on both sides, else replicate the last top sample.
			if mb.ToTopEdge != 0 && mb.ToRightEdge != 0 {
				scratch[off-stride+i] = mb.Recon[mb.ReconOff-mb.ReconStride+bx+i]
			} else {
				scratch[off-stride+i] = scratch[off-stride+i-1]
			}
		}
		if hasLeft {
			scratch[off-stride-1] = mb.Recon[pos-mb.ReconStride-1]
		}
	}
	if hasLeft {
		for j := 0; j < 4; j++ {
			scratch[off-1+j*stride] = mb.Recon[pos-1+j*mb.ReconStride]
		}
	}

	dsp.PredLuma4(bModeMap[mode], scratch[:], off, stride)
	for r := 0; r < 4; r++ {
		copy(mb.Pred[by*16+bx+r*16:by*16+bx+r*16+4], scratch[off+r*stride:off+r*stride+4])
	}
}

func (reconIntra) Predict8x8(mb *rdo.Macroblock, ib int, mode rdo.MBMode) {
	const stride = 10
	var scratch [9 * stride]uint8
	off := stride + 1

	by, bx := (ib>>2)*4, (ib&3)*4
	pos := mb.ReconOff + by*mb.ReconStride + bx
	hasTop := mb.ToTopEdge != 0 || by > 0
	hasLeft := mb.ToLeftEdge != 0 || bx > 0

	fillSquareContext(scratch[:], off, stride, mb.Recon, pos, mb.ReconStride, 8, hasTop, hasLeft)
	dsp.Pred8(squareMode(mode, hasTop, hasLeft), scratch[:], off, stride)
	for r := 0; r < 8; r++ {
		copy(mb.Pred[(by+r)*16+bx:(by+r)*16+bx+8], scratch[off+r*stride:off+r*stride+8])
	}
}

// mcInter builds motion-compensated predictors from the reference
// views.
type mcInter struct{}

func (mcInter) PredictMBY(mb *rdo.Macroblock, ref *rdo.RefView, mv rdo.MV) {
	dsp.InterPredict(mb.Pred[:], 16, ref.Y, ref.YOff, ref.YStride, int(mv.Row), int(mv.Col), 16, 16)
}

func (mcInter) PredictMBUV(mb *rdo.Macroblock, ref *rdo.RefView, mv rdo.MV) {
	cr, cc := int(mv.Row)/2, int(mv.Col)/2
	dsp.InterPredict(mb.Pred[256:], 8, ref.U, ref.UVOff, ref.UVStride, cr, cc, 8, 8)
	dsp.InterPredict(mb.Pred[320:], 8, ref.V, ref.UVOff, ref.UVStride, cr, cc, 8, 8)
}

func (mcInter) PredictUV4x4(mb *rdo.Macroblock, ref *rdo.RefView, mvs *[16]rdo.MV) {
	// Each chroma 4x4 averages the vectors of its four co-located
	// luma blocks, at half precision.
	for cy := 0; cy < 2; cy++ {
		for cx := 0; cx < 2; cx++ {
			row, col := 0, 0
			for j := 0; j < 2; j++ {
				for i := 0; i < 2; i++ {
					lb := (cy*2+j)*4 + cx*2 + i
					row += int(mvs[lb].Row)
					col += int(mvs[lb].Col)
				}
			}
			row, col = row/8, col/8
			uvOff := ref.UVOff + cy*4*ref.UVStride + cx*4
			dsp.InterPredict(mb.Pred[256+cy*4*8+cx*4:], 8, ref.U, uvOff, ref.UVStride, row, col, 4, 4)
			dsp.InterPredict(mb.Pred[320+cy*4*8+cx*4:], 8, ref.V, uvOff, ref.UVStride, row, col, 4, 4)
		}
	}
}

func (mcInter) PredictBlock(mb *rdo.Macroblock, ref *rdo.RefView, b int, mv rdo.MV) {
	by, bx := (b>>2)*4, (b&3)*4
	base := ref.YOff + by*ref.YStride + bx
	dsp.InterPredict(mb.Pred[by*16+bx:], 16, ref.Y, base, ref.YStride, int(mv.Row), int(mv.Col), 4, 4)
}

func (mcInter) PredictSecond(mb *rdo.Macroblock, ref *rdo.RefView, mv rdo.MV) {
	var second [256]uint8
	dsp.InterPredict(second[:], 16, ref.Y, ref.YOff, ref.YStride, int(mv.Row), int(mv.Col), 16, 16)
	dsp.AveragePredict(mb.Pred[:], 16, second[:], 16, 16, 16)

	cr, cc := int(mv.Row)/2, int(mv.Col)/2
	var secondUV [128]uint8
	dsp.InterPredict(secondUV[:], 8, ref.U, ref.UVOff, ref.UVStride, cr, cc, 8, 8)
	dsp.InterPredict(secondUV[64:], 8, ref.V, ref.UVOff, ref.UVStride, cr, cc, 8, 8)
	dsp.AveragePredict(mb.Pred[256:], 8, secondUV[:], 8, 8, 8)
	dsp.AveragePredict(mb.Pred[320:], 8, secondUV[64:], 8, 8, 8)
}

// dspMetrics delegates the metric kernels.
type dspMetrics struct{}

func (dspMetrics) Var16x16(src []uint8, srcStride int, pred []uint8, predStride int) (uint32, uint32) {
	return dsp.Var16x16(src, srcStride, pred, predStride)
}

func (dspMetrics) Var8x8(src []uint8, srcStride int, pred []uint8, predStride int) (uint32, uint32) {
	return dsp.Var8x8(src, srcStride, pred, predStride)
}

func (dspMetrics) SubPixVar8x8(ref []uint8, refStride, xoff, yoff int, pred []uint8, predStride int) (uint32, uint32) {
	return dsp.SubPixVar8x8(ref, refStride, xoff, yoff, pred, predStride)
}

func (dspMetrics) SAD16x16(src []uint8, srcStride int, ref []uint8, refStride int) int {
	return dsp.SAD16x16(src, srcStride, ref, refStride)
}

// staticSegments is the no-features segment policy: nothing forced,
// the reference prediction fixed per frame.
type staticSegments struct {
	predRef rdo.RefFrame
}

func (s *staticSegments) Active(segmentID uint8, f rdo.SegFeature) bool { return false }
func (s *staticSegments) CheckRef(segmentID uint8, r rdo.RefFrame) bool { return true }
func (s *staticSegments) Data(segmentID uint8, f rdo.SegFeature) int    { return 0 }

func (s *staticSegments) PredictedRef(mb *rdo.Macroblock) rdo.RefFrame { return s.predRef }

func (s *staticSegments) PredProb(mb *rdo.Macroblock, ctx rdo.PredContext) uint8 { return 128 }

// gridNeighbors resolves nearest/near/best-ref MVs from the committed
// mode info of the MB's neighbours: candidate vectors are merged by
// equality with 2/2/1 weights (above, left, above-left), the two
// heaviest survivors become nearest and near, and the weights feed the
// mv-ref signalling context.
type gridNeighbors struct {
	signBias *[4]bool
}

func (g *gridNeighbors) FindNearMVs(mb *rdo.Macroblock, ref rdo.RefFrame) (nearest, near, bestRef rdo.MV, counts [4]int) {
	type cand struct {
		mv     rdo.MV
		weight int
	}
	// Slot 0 holds the implicit zero vector.
	cands := []cand{{}}

	add := func(mi *rdo.ModeInfo, weight int) {
		if mi == nil || mi.Ref == rdo.IntraFrame {
			return
		}
		if mi.Mode == rdo.SplitMV {
			counts[3] += weight
		}
		mv := mi.MV
		if g.signBias != nil && g.signBias[mi.Ref] != g.signBias[ref] {
			mv = rdo.MV{Row: -mv.Row, Col: -mv.Col}
		}
		for i := range cands {
			if cands[i].mv == mv {
				cands[i].weight += weight
				return
			}
		}
		if len(cands) < 3 {
			cands = append(cands, cand{mv: mv, weight: weight})
		}
	}
	add(mb.AboveMI, 2)
	add(mb.LeftMI, 2)
	add(mb.AboveLeftMI, 1)

	counts[0] = cands[0].weight
	if len(cands) > 1 {
		counts[1] = cands[1].weight
	}
	if len(cands) > 2 {
		counts[2] = cands[2].weight
	}
	if counts[2] > counts[1] {
		counts[1], counts[2] = counts[2], counts[1]
		if len(cands) > 2 {
			cands[1], cands[2] = cands[2], cands[1]
		}
	}

	if len(cands) > 1 {
		nearest = cands[1].mv
	}
	if len(cands) > 2 {
		near = cands[2].mv
	}
	bestRef = nearest
	return nearest, near, bestRef, counts
}
