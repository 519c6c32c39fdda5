package rdo

// The mode search never owns a DSP kernel: transforms, quantization,
// predictor generation, motion search and metric kernels are external
// collaborators called through the interfaces below. The interfaces
// mirror the call sites, not the collaborators' internals.

// Transforms supplies the forward transforms. All operate on the MB's
// residual and coefficient arrays in the layout documented on
// Macroblock.
type Transforms interface {
	// FDCT4x4 transforms one 4x4 residual block into 16 coefficients.
	FDCT4x4(diff, coeff []int16)
	// FDCT8x8 transforms one 8x8 residual block (row-major, stride 8)
	// into 64 coefficients.
	FDCT8x8(diff, coeff []int16)
	// Walsh4x4 applies the second-order Walsh-Hadamard transform to
	// the 16 luma DC values.
	Walsh4x4(diff, coeff []int16)
}

// Quantizer quantizes coefficient blocks in place on the Macroblock,
// filling QCoeff, DQCoeff and EOB for the given coded block.
type Quantizer interface {
	// Quantize quantizes coded block b (16 coefficients) of the MB.
	Quantize(mb *Macroblock, b int, plane PlaneType)
	// QuantizePair quantizes two horizontally adjacent luma blocks.
	QuantizePair(mb *Macroblock, b1, b2 int, plane PlaneType)
	// Quantize8x8 quantizes the 64-coefficient transform block whose
	// storage starts at coded block b (0, 4, 8, 12, 16 or 20).
	Quantize8x8(mb *Macroblock, b int, plane PlaneType)
	// Quantize2x2 quantizes the 4-coefficient Y2 block used with the
	// 8x8 transform.
	Quantize2x2(mb *Macroblock, plane PlaneType)
	// DequantStep returns the dequantizer step of a plane: the DC step
	// when dc is true, else the AC step. Used by the encode-breakout
	// and skip heuristics.
	DequantStep(plane PlaneType, dc bool) int
}

// IntraPredictor builds intra predictor samples into mb.Pred.
type IntraPredictor interface {
	// PredictMBY writes the 16x16 luma predictor for mode (DC/V/H/TM).
	PredictMBY(mb *Macroblock, mode MBMode)
	// PredictMBUV writes the 8x8 chroma predictors for mode.
	PredictMBUV(mb *Macroblock, mode MBMode)
	// Predict4x4 writes the predictor of 4x4 luma block b for a
	// b-mode, using committed reconstruction as context.
	Predict4x4(mb *Macroblock, b int, mode SubMode)
	// Predict8x8 writes the predictor of the 8x8 region whose
	// top-left 4x4 block is b, for mode (DC/V/H/TM).
	Predict8x8(mb *Macroblock, b int, mode MBMode)
}

// InterPredictor builds motion-compensated predictor samples.
type InterPredictor interface {
	// PredictMBY writes the 16x16 luma predictor from ref at mv.
	PredictMBY(mb *Macroblock, ref *RefView, mv MV)
	// PredictMBUV writes the 8x8 chroma predictors from ref at mv.
	PredictMBUV(mb *Macroblock, ref *RefView, mv MV)
	// PredictUV4x4 writes chroma predictors from the per-4x4 MVs in
	// bmi (SPLITMV chroma path).
	PredictUV4x4(mb *Macroblock, ref *RefView, mvs *[16]MV)
	// PredictBlock writes the predictor of a single 4x4 luma block.
	PredictBlock(mb *Macroblock, ref *RefView, b int, mv MV)
	// PredictSecond averages the second reference's 16x16+8x8
	// prediction at (mv) into the already built first prediction.
	PredictSecond(mb *Macroblock, ref *RefView, mv MV)
}

// SearchShape selects the metric block shape of a motion search.
type SearchShape uint8

const (
	Shape16x8 SearchShape = iota
	Shape8x16
	Shape8x8
	Shape4x4
	Shape16x16
)

// shapeOf maps a SPLITMV partition to its search shape; the two share
// ordinals.
func shapeOf(p Partition) SearchShape { return SearchShape(p) }

// MotionSearcher runs the full-pel and sub-pel MV search stages over
// the luma region of the given shape whose top-left 4x4 block is b
// (b==0 with Shape16x16 for whole-MB search).
type MotionSearcher interface {
	// DiamondSearch runs one diamond search pass from start (full-pel
	// units). It returns the best MV (eighth-pel), its SAD-based cost,
	// and the number of consecutive centre-best steps.
	DiamondSearch(mb *Macroblock, b int, shape SearchShape, ref *RefView, start MV, step, sadPerBit int, refMV MV) (mv MV, cost, num00 int)
	// FullSearch exhaustively searches a window around start
	// (full-pel units) and returns the best MV and cost.
	FullSearch(mb *Macroblock, b int, shape SearchShape, ref *RefView, start MV, sadPerBit, distance int, refMV MV) (mv MV, cost int)
	// RefiningSearch runs a 1-away refinement around mv.
	RefiningSearch(mb *Macroblock, b int, shape SearchShape, ref *RefView, mv MV, sadPerBit, searchRange int, refMV MV) (MV, int)
	// FractionalStep refines mv to sub-pel precision and returns the
	// refined MV together with its distortion and SSE.
	FractionalStep(mb *Macroblock, b int, shape SearchShape, ref *RefView, mv, refMV MV, errorPerBit int) (out MV, distortion int, sse uint32)
}

// Metrics are the variance/SAD kernels used by the skip heuristics and
// the neighbour-SAD ranking.
type Metrics interface {
	// Var16x16 returns (variance, sse) of src vs pred, both 16x16.
	Var16x16(src []uint8, srcStride int, pred []uint8, predStride int) (uint32, uint32)
	// Var8x8 returns (variance, sse) of an 8x8 block.
	Var8x8(src []uint8, srcStride int, pred []uint8, predStride int) (uint32, uint32)
	// SubPixVar8x8 returns (variance, sse) of an 8x8 block fetched at
	// a sub-pel offset (xoff, yoff in eighth-pel).
	SubPixVar8x8(ref []uint8, refStride, xoff, yoff int, pred []uint8, predStride int) (uint32, uint32)
	// SAD16x16 is the plain 16x16 SAD kernel.
	SAD16x16(src []uint8, srcStride int, ref []uint8, refStride int) int
}

// Reconstructor commits a winning intra 4x4 trial: inverse transform
// the saved dequantized coefficients, add them to the predictor and
// write the block into the reconstruction buffer.
type Reconstructor interface {
	Recon4x4(mb *Macroblock, b int, pred []uint8, dqcoeff []int16)
}

// SegmentPolicy answers the segment-feature queries of the driver.
type SegmentPolicy interface {
	// Active reports whether a segment-level feature is enabled for
	// the segment.
	Active(segmentID uint8, f SegFeature) bool
	// CheckRef reports whether the segment allows the reference frame.
	CheckRef(segmentID uint8, ref RefFrame) bool
	// Data returns the feature's configured value.
	Data(segmentID uint8, f SegFeature) int
	// PredictedRef is the context-predicted reference frame of the MB.
	PredictedRef(mb *Macroblock) RefFrame
	// PredProb is the context probability of a predicted syntax
	// element for the MB.
	PredProb(mb *Macroblock, ctx PredContext) uint8
}

// NeighborMVs resolves the nearest/near/best-ref MVs and the mv-ref
// context counts for a reference frame, from the committed mode info
// of the MB's neighbours.
type NeighborMVs interface {
	FindNearMVs(mb *Macroblock, ref RefFrame) (nearest, near, bestRef MV, counts [4]int)
}
