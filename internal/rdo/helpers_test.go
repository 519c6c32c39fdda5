package rdo

// Shared test doubles for the collaborator interfaces. The fakes are
// deliberately simple: exact-copy predictors, exhaustive small-window
// motion search, straightforward metric kernels.

// --- intra predictor ---

type fakeIntra struct{}

func intraFill(mode MBMode) uint8 {
	switch mode {
	case DCPred:
		return 128
	case VPred:
		return 100
	case HPred:
		return 90
	}
	return 80
}

func (fakeIntra) PredictMBY(mb *Macroblock, mode MBMode) {
	v := intraFill(mode)
	for i := 0; i < 256; i++ {
		mb.Pred[predY+i] = v
	}
}

func (fakeIntra) PredictMBUV(mb *Macroblock, mode MBMode) {
	v := intraFill(mode)
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			mb.Pred[predU+r*8+c] = v
			mb.Pred[predV+r*8+c] = v
		}
	}
}

func (fakeIntra) Predict4x4(mb *Macroblock, b int, mode SubMode) {
	v := uint8(128)
	if mode != BDCPred {
		v = 120 - uint8(mode)
	}
	off := predOffset4(b)
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			mb.Pred[predY+off+r*16+c] = v
		}
	}
}

func (fakeIntra) Predict8x8(mb *Macroblock, b int, mode MBMode) {
	v := intraFill(mode)
	off := predOffset4(b)
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			mb.Pred[predY+off+r*16+c] = v
		}
	}
}

// --- inter predictor ---

type fakeInter struct{}

func (fakeInter) PredictMBY(mb *Macroblock, ref *RefView, mv MV) {
	fr, fc := int(mv.Row)>>3, int(mv.Col)>>3
	for r := 0; r < 16; r++ {
		for c := 0; c < 16; c++ {
			mb.Pred[predY+r*16+c] = ref.Y[ref.YOff+(r+fr)*ref.YStride+c+fc]
		}
	}
}

func (fakeInter) PredictMBUV(mb *Macroblock, ref *RefView, mv MV) {
	fr, fc := (int(mv.Row)/2)>>3, (int(mv.Col)/2)>>3
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			mb.Pred[predU+r*8+c] = ref.U[ref.UVOff+(r+fr)*ref.UVStride+c+fc]
			mb.Pred[predV+r*8+c] = ref.V[ref.UVOff+(r+fr)*ref.UVStride+c+fc]
		}
	}
}

func (f fakeInter) PredictUV4x4(mb *Macroblock, ref *RefView, mvs *[16]MV) {
	f.PredictMBUV(mb, ref, mvs[0])
}

func (fakeInter) PredictBlock(mb *Macroblock, ref *RefView, b int, mv MV) {
	fr, fc := int(mv.Row)>>3, int(mv.Col)>>3
	off := predOffset4(b)
	by, bx := (b>>2)*4, (b&3)*4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			mb.Pred[predY+off+r*16+c] =
				ref.Y[ref.YOff+(by+r+fr)*ref.YStride+bx+c+fc]
		}
	}
}

func (fakeInter) PredictSecond(mb *Macroblock, ref *RefView, mv MV) {
	fr, fc := int(mv.Row)>>3, int(mv.Col)>>3
	for r := 0; r < 16; r++ {
		for c := 0; c < 16; c++ {
			v := int(mb.Pred[predY+r*16+c]) + int(ref.Y[ref.YOff+(r+fr)*ref.YStride+c+fc])
			mb.Pred[predY+r*16+c] = uint8((v + 1) >> 1)
		}
	}
	cr, cc := (int(mv.Row)/2)>>3, (int(mv.Col)/2)>>3
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			u := int(mb.Pred[predU+r*8+c]) + int(ref.U[ref.UVOff+(r+cr)*ref.UVStride+c+cc])
			v := int(mb.Pred[predV+r*8+c]) + int(ref.V[ref.UVOff+(r+cr)*ref.UVStride+c+cc])
			mb.Pred[predU+r*8+c] = uint8((u + 1) >> 1)
			mb.Pred[predV+r*8+c] = uint8((v + 1) >> 1)
		}
	}
}

// --- motion search ---

type fakeMotion struct{}

func shapeDims(shape SearchShape) (w, h int) {
	switch shape {
	case Shape16x8:
		return 16, 8
	case Shape8x16:
		return 8, 16
	case Shape8x8:
		return 8, 8
	case Shape4x4:
		return 4, 4
	}
	return 16, 16
}

func regionSAD(mb *Macroblock, b int, shape SearchShape, ref *RefView, fr, fc int) int {
	w, h := shapeDims(shape)
	by, bx := (b>>2)*4, (b&3)*4
	sad := 0
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			d := int(mb.SrcY[(by+r)*16+bx+c]) -
				int(ref.Y[ref.YOff+(by+r+fr)*ref.YStride+bx+c+fc])
			if d < 0 {
				d = -d
			}
			sad += d
		}
	}
	return sad
}

func (fakeMotion) DiamondSearch(mb *Macroblock, b int, shape SearchShape, ref *RefView,
	start MV, step, sadPerBit int, refMV MV) (MV, int, int) {

	best := MV{}
	bestSAD := invalidRD
	bestDist := 0
	for dr := -3; dr <= 3; dr++ {
		for dc := -3; dc <= 3; dc++ {
			fr := int(start.Row) + dr
			fc := int(start.Col) + dc
			if fr < mb.MVRowMin || fr > mb.MVRowMax || fc < mb.MVColMin || fc > mb.MVColMax {
				continue
			}
			sad := regionSAD(mb, b, shape, ref, fr, fc)
			dist := absInt(dr) + absInt(dc)
			if sad < bestSAD || (sad == bestSAD && dist < bestDist) {
				bestSAD = sad
				bestDist = dist
				best = MV{Row: int16(fr << 3), Col: int16(fc << 3)}
			}
		}
	}
	return best, bestSAD, 0
}

func (f fakeMotion) FullSearch(mb *Macroblock, b int, shape SearchShape, ref *RefView,
	start MV, sadPerBit, distance int, refMV MV) (MV, int) {
	mv, sad, _ := f.DiamondSearch(mb, b, shape, ref, start, 0, sadPerBit, refMV)
	return mv, sad
}

func (fakeMotion) RefiningSearch(mb *Macroblock, b int, shape SearchShape, ref *RefView,
	mv MV, sadPerBit, searchRange int, refMV MV) (MV, int) {
	return mv, regionSAD(mb, b, shape, ref, int(mv.Row)>>3, int(mv.Col)>>3)
}

func (fakeMotion) FractionalStep(mb *Macroblock, b int, shape SearchShape, ref *RefView,
	mv, refMV MV, errorPerBit int) (MV, int, uint32) {
	return mv, 0, 0
}

// --- metrics ---

type fakeMetrics struct{}

func varN(src []uint8, srcStride int, pred []uint8, predStride, w, h int) (uint32, uint32) {
	sum, sse := 0, 0
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			d := int(src[r*srcStride+c]) - int(pred[r*predStride+c])
			sum += d
			sse += d * d
		}
	}
	v := sse - sum*sum/(w*h)
	return uint32(v), uint32(sse)
}

func (fakeMetrics) Var16x16(src []uint8, srcStride int, pred []uint8, predStride int) (uint32, uint32) {
	return varN(src, srcStride, pred, predStride, 16, 16)
}

func (fakeMetrics) Var8x8(src []uint8, srcStride int, pred []uint8, predStride int) (uint32, uint32) {
	return varN(src, srcStride, pred, predStride, 8, 8)
}

func (fakeMetrics) SubPixVar8x8(ref []uint8, refStride, xoff, yoff int, pred []uint8, predStride int) (uint32, uint32) {
	return varN(ref, refStride, pred, predStride, 8, 8)
}

func (fakeMetrics) SAD16x16(src []uint8, srcStride int, ref []uint8, refStride int) int {
	sad := 0
	for r := 0; r < 16; r++ {
		for c := 0; c < 16; c++ {
			d := int(src[r*srcStride+c]) - int(ref[r*refStride+c])
			if d < 0 {
				d = -d
			}
			sad += d
		}
	}
	return sad
}

// --- segment policy ---

type fakeSegments struct {
	forceRef *RefFrame
	predRef  RefFrame
}

func (f *fakeSegments) Active(segmentID uint8, feat SegFeature) bool {
	return feat == SegLvlRefFrame && f.forceRef != nil
}

func (f *fakeSegments) CheckRef(segmentID uint8, ref RefFrame) bool {
	if f.forceRef == nil {
		return true
	}
	return ref == *f.forceRef
}

func (f *fakeSegments) Data(segmentID uint8, feat SegFeature) int { return 0 }

func (f *fakeSegments) PredictedRef(mb *Macroblock) RefFrame { return f.predRef }

func (f *fakeSegments) PredProb(mb *Macroblock, ctx PredContext) uint8 { return 128 }

// --- neighbour MVs ---

type fakeNeighbors struct {
	nearest [numRefFrames]MV
	near    [numRefFrames]MV
	bestRef [numRefFrames]MV
	counts  [numRefFrames][4]int
}

func (f *fakeNeighbors) FindNearMVs(mb *Macroblock, ref RefFrame) (MV, MV, MV, [4]int) {
	return f.nearest[ref], f.near[ref], f.bestRef[ref], f.counts[ref]
}

// --- builders ---

const (
	testQIndex    = 20
	refYSize      = 48
	refUVSize     = 24
	testReconSide = 64
)

// newTestSearch wires a Search with the fakes and a flat probability
// model.
func newTestSearch() (*Search, *fakeSegments, *fakeNeighbors) {
	seg := &fakeSegments{predRef: LastFrame}
	nbh := &fakeNeighbors{}
	for r := range nbh.counts {
		nbh.counts[r] = [4]int{5, 2, 2, 2}
	}

	s := NewSearch()
	s.Quant = NewBasicQuantizer(testQIndex)
	s.Intra = fakeIntra{}
	s.Inter = fakeInter{}
	s.Motion = fakeMotion{}
	s.Metrics = fakeMetrics{}
	s.Segments = seg
	s.Neighbors = nbh
	s.MBNoCoeffSkip = true
	s.ProbSkipFalse = 200
	s.RefFrameEnabled[LastFrame] = true
	s.InitFrame(testQIndex, 0, -1, DefaultFrameProbs(), &MVCosts{})
	return s, seg, nbh
}

// newTestMB builds a corner macroblock with valid buffers and a
// permissive MV window.
func newTestMB() *Macroblock {
	mb := &Macroblock{
		Above:        &ContextPlanes{},
		Left:         &ContextPlanes{},
		MVRowMin:     -16,
		MVRowMax:     16,
		MVColMin:     -16,
		MVColMax:     16,
		ToTopEdge:    0,
		ToLeftEdge:   0,
		ToRightEdge:  64 << 3,
		ToBottomEdge: 64 << 3,
		Recon:        make([]uint8, testReconSide*testReconSide),
		ReconStride:  testReconSide,
		ReconOff:     16*testReconSide + 16,
	}
	for i := range mb.SrcY {
		mb.SrcY[i] = 128
	}
	for i := range mb.SrcU {
		mb.SrcU[i] = 128
		mb.SrcV[i] = 128
	}
	return mb
}

// newFlatRef builds a reference view filled with a constant value.
func newFlatRef(v uint8) *RefView {
	ref := &RefView{
		Y:        make([]uint8, refYSize*refYSize),
		U:        make([]uint8, refUVSize*refUVSize),
		V:        make([]uint8, refUVSize*refUVSize),
		YOff:     16*refYSize + 16,
		UVOff:    8*refUVSize + 8,
		YStride:  refYSize,
		UVStride: refUVSize,
	}
	for i := range ref.Y {
		ref.Y[i] = v
	}
	for i := range ref.U {
		ref.U[i] = v
		ref.V[i] = v
	}
	return ref
}
