package rdo

// RefFrame identifies the prediction source of a macroblock.
type RefFrame uint8

const (
	IntraFrame RefFrame = iota
	LastFrame
	GoldenFrame
	AltRefFrame

	numRefFrames = 4
)

// MBMode is a macroblock-level prediction mode.
type MBMode uint8

const (
	DCPred MBMode = iota
	VPred
	HPred
	TMPred
	BPred
	I8x8Pred
	NearestMV
	NearMV
	ZeroMV
	NewMV
	SplitMV

	numMBModes
	numIntra16Modes = 4 // DC, V, H, TM
	numYModes       = 6 // DC, V, H, TM, B, I8x8
)

// IsInter reports whether the mode predicts from a reference frame.
func (m MBMode) IsInter() bool { return m >= NearestMV }

// SubMode is a 4x4 sub-block mode: the ten intra b-modes followed by
// the four SPLITMV sub-modes.
type SubMode uint8

const (
	BDCPred SubMode = iota
	BTMPred
	BVEPred
	BHEPred
	BLDPred
	BRDPred
	BVRPred
	BVLPred
	BHDPred
	BHUPred

	Left4x4
	Above4x4
	Zero4x4
	New4x4

	numSubModes
	numBModes = 10
)

// Partition is a SPLITMV sub-partition shape.
type Partition uint8

const (
	Block16x8 Partition = iota
	Block8x16
	Block8x8
	Block4x4

	numPartitions
)

// MV is a motion vector in eighth-pel units.
type MV struct {
	Row, Col int16
}

// IsZero reports whether the vector is (0,0).
func (m MV) IsZero() bool { return m.Row == 0 && m.Col == 0 }

// TransformMode selects the residual transform size for non-4x4-coded
// macroblocks.
type TransformMode uint8

const (
	Only4x4 TransformMode = iota
	Allow8x8
)

// PlaneType classifies a coded block for the coefficient entropy model.
type PlaneType uint8

const (
	PlaneYAfterY2 PlaneType = iota // luma block in a mode with a Y2 block
	PlaneY2                        // second-order DC block
	PlaneUV                        // chroma
	PlaneYWithDC                   // luma block carrying its own DC
)

// CompPredMode is the frame-level compound-prediction signalling mode.
type CompPredMode uint8

const (
	SinglePredictionOnly CompPredMode = iota
	CompPredictionOnly
	HybridPrediction
)

// SegFeature identifies a segment-level override.
type SegFeature uint8

const (
	SegLvlAltQ SegFeature = iota
	SegLvlAltLF
	SegLvlRefFrame
	SegLvlMode
	SegLvlEOB
	SegLvlTransform
)

// PredContext identifies a context-predicted syntax element.
type PredContext uint8

const (
	PredSeg PredContext = iota
	PredRef
	PredComp
	PredMBSkip
)

// ModeInfo is the committed per-macroblock decision consumed downstream.
type ModeInfo struct {
	Mode      MBMode
	UVMode    MBMode
	Ref       RefFrame
	SecondRef RefFrame
	MV        MV
	SecondMV  MV

	Partitioning Partition
	Skip         bool
	SegmentID    uint8

	// SubModes/SubMVs carry the per-4x4 decision for BPred, I8x8Pred
	// and SplitMV; unused entries are zero.
	SubModes [16]SubMode
	SubMVs   [16]MV
}

// BModeInfo is one labelled sub-block of a SPLITMV partition.
type BModeInfo struct {
	Mode SubMode
	MV   MV
}

// PartitionInfo describes the chosen SPLITMV partitioning: one entry
// per label, plus the full 16-entry grid for neighbour lookups.
type PartitionInfo struct {
	Count int
	BMI   [16]BModeInfo
}

// Block offsets of the luma plane inside the 384-byte predictor buffer
// and the coefficient array.
const (
	yBlocks  = 16
	uvBlocks = 8
	y2Block  = 24
	numCoded = 25

	predY = 0   // 16x16 luma at predictor offset 0
	predU = 256 // 8x8 U
	predV = 320 // 8x8 V
)

// Macroblock is the per-MB scratch state of the mode search: source
// pixels, prediction buffer, residuals, coefficient arrays and the MV
// window. One instance is reused across the MB loop.
type Macroblock struct {
	// Source samples, raster order.
	SrcY [256]uint8
	SrcU [64]uint8
	SrcV [64]uint8

	// Prediction samples: Y 16x16 then U, V 8x8.
	Pred [384]uint8

	// Signed prediction residual; block b occupies Diff[b*16 : b*16+16],
	// the Y2 block Diff[384:400]. In 8x8 transform mode the four luma
	// transform blocks occupy Diff[0:64], [64:128], [128:192], [192:256].
	Diff [400]int16

	// Coefficient arrays, laid out exactly like Diff.
	Coeff   [400]int16
	QCoeff  [400]int16
	DQCoeff [400]int16
	EOB     [numCoded]int

	// Committed entropy contexts of the neighbouring row and column.
	Above *ContextPlanes
	Left  *ContextPlanes

	// Full-pel MV search window for this MB.
	MVRowMin, MVRowMax int
	MVColMin, MVColMax int

	// Distances from the MB to the frame edges in eighth-pel units,
	// used for MV clamping against the bordered reference window.
	ToTopEdge, ToBottomEdge int
	ToLeftEdge, ToRightEdge int

	// Reference views positioned at the co-located MB, indexed by
	// RefFrame. Entry 0 (intra) is unused.
	Refs [numRefFrames]*RefView

	// Reconstructed current frame, for neighbour SADs and the intra
	// 4x4 commit.
	Recon       []uint8
	ReconStride int
	ReconOff    int

	// Reconstructed chroma planes, context for the chroma intra
	// predictors.
	ReconU, ReconV []uint8
	ReconUVStride  int
	ReconUVOff     int

	// Position of this MB in the frame.
	MBRow, MBCol int

	// Sub-modes of the neighbouring MBs' facing edges, for the
	// key-frame 4x4 mode-cost contexts; nil at frame edges.
	AboveBModes *[4]SubMode
	LeftBModes  *[4]SubMode

	// Committed mode info of the current-frame neighbours, consumed
	// by the MV predictor; nil at frame edges.
	AboveMI     *ModeInfo
	LeftMI      *ModeInfo
	AboveLeftMI *ModeInfo

	// Co-located MV candidates from the previous frame, in the order
	// centre, above, left, right, below. Invalid entries keep
	// IntraFrame as their reference.
	LastMVs      [5]MV
	LastRefs     [5]RefFrame
	LastSignBias [5]bool

	SegmentID uint8

	// Skip is set by the encode-breakout fast path.
	Skip bool
}

// RefView is a window into one reference frame's planes. YOff/UVOff
// locate the current macroblock inside the full planes so neighbour
// lookups can step outside the MB.
type RefView struct {
	Y, U, V  []uint8
	YOff     int
	UVOff    int
	YStride  int
	UVStride int
}

// BlockDiff returns the residual slice of coded block b.
func (mb *Macroblock) BlockDiff(b int) []int16 { return mb.Diff[b*16 : b*16+16] }

// BlockCoeff returns the transform output slice of coded block b.
func (mb *Macroblock) BlockCoeff(b int) []int16 { return mb.Coeff[b*16 : b*16+16] }

// BlockQCoeff returns the quantized coefficients of coded block b.
func (mb *Macroblock) BlockQCoeff(b int) []int16 { return mb.QCoeff[b*16 : b*16+16] }

// BlockDQCoeff returns the dequantized coefficients of coded block b.
func (mb *Macroblock) BlockDQCoeff(b int) []int16 { return mb.DQCoeff[b*16 : b*16+16] }

// predOffset4 returns the offset of 4x4 luma block b inside Pred/SrcY
// (stride 16, raster block order).
func predOffset4(b int) int { return (b>>2)*64 + (b&3)*4 }

// predOffsetUV returns the offset of chroma block b (16..23) inside
// Pred, relative to the U plane origin.
func predOffsetUV(b int) int {
	i := (b - yBlocks) & 3
	base := predU
	if b >= 20 {
		base = predV
	}
	return base + (i>>1)*32 + (i&1)*4
}

// clampMV clamps an eighth-pel MV against the bordered prediction
// window of this macroblock.
func (mb *Macroblock) clampMV(mv MV) MV {
	const margin = 16 << 3 // border allowance in eighth-pel units
	lo := int16(mb.ToLeftEdge - margin)
	hi := int16(mb.ToRightEdge + margin)
	if mv.Col < lo {
		mv.Col = lo
	} else if mv.Col > hi {
		mv.Col = hi
	}
	lo = int16(mb.ToTopEdge - margin)
	hi = int16(mb.ToBottomEdge + margin)
	if mv.Row < lo {
		mv.Row = lo
	} else if mv.Row > hi {
		mv.Row = hi
	}
	return mv
}

// mvInWindow reports whether the full-pel part of mv lies inside the
// MB's search window.
func (mb *Macroblock) mvInWindow(mv MV) bool {
	return int(mv.Row)>>3 >= mb.MVRowMin && int(mv.Row)>>3 <= mb.MVRowMax &&
		int(mv.Col)>>3 >= mb.MVColMin && int(mv.Col)>>3 <= mb.MVColMax
}
