package rdo

// Fixed candidate enumeration order of the mode driver. The order
// matters: cheap, frequently winning candidates come first so their
// threshold updates tighten the gate for everything behind them.
type candidate struct {
	Mode      MBMode
	Ref       RefFrame
	SecondRef RefFrame
}

const maxModes = 33

// Named indices into the candidate table used by the driver when it
// borrows another candidate's threshold (SPLITMV reuses NEWMV's).
const (
	thrNewMV  = 13
	thrNewG   = 14
	thrNewA   = 15
	thrSplit  = 16
	thrSplitG = 17
	thrSplitA = 18
)

var modeOrder = [maxModes]candidate{
	{ZeroMV, LastFrame, IntraFrame},
	{DCPred, IntraFrame, IntraFrame},

	{NearestMV, LastFrame, IntraFrame},
	{NearMV, LastFrame, IntraFrame},

	{ZeroMV, GoldenFrame, IntraFrame},
	{NearestMV, GoldenFrame, IntraFrame},

	{ZeroMV, AltRefFrame, IntraFrame},
	{NearestMV, AltRefFrame, IntraFrame},

	{NearMV, GoldenFrame, IntraFrame},
	{NearMV, AltRefFrame, IntraFrame},

	{VPred, IntraFrame, IntraFrame},
	{HPred, IntraFrame, IntraFrame},
	{TMPred, IntraFrame, IntraFrame},

	{NewMV, LastFrame, IntraFrame},
	{NewMV, GoldenFrame, IntraFrame},
	{NewMV, AltRefFrame, IntraFrame},

	{SplitMV, LastFrame, IntraFrame},
	{SplitMV, GoldenFrame, IntraFrame},
	{SplitMV, AltRefFrame, IntraFrame},

	{BPred, IntraFrame, IntraFrame},
	{I8x8Pred, IntraFrame, IntraFrame},

	// compound prediction
	{ZeroMV, LastFrame, GoldenFrame},
	{NearestMV, LastFrame, GoldenFrame},
	{NearMV, LastFrame, GoldenFrame},

	{ZeroMV, AltRefFrame, LastFrame},
	{NearestMV, AltRefFrame, LastFrame},
	{NearMV, AltRefFrame, LastFrame},

	{ZeroMV, GoldenFrame, AltRefFrame},
	{NearestMV, GoldenFrame, AltRefFrame},
	{NearMV, GoldenFrame, AltRefFrame},

	{NewMV, LastFrame, GoldenFrame},
	{NewMV, AltRefFrame, LastFrame},
	{NewMV, GoldenFrame, AltRefFrame},
}

// candidateKind is the dispatch class of a candidate.
type candidateKind uint8

const (
	candIntra16 candidateKind = iota
	candIntraB
	candIntra8x8
	candSplit
	candInterSingle
	candInterCompound
)

func (c candidate) kind() candidateKind {
	if c.SecondRef != IntraFrame {
		return candInterCompound
	}
	switch c.Mode {
	case BPred:
		return candIntraB
	case I8x8Pred:
		return candIntra8x8
	case SplitMV:
		return candSplit
	case DCPred, VPred, HPred, TMPred:
		return candIntra16
	}
	return candInterSingle
}

// Adaptive threshold bounds.
const (
	minThreshMult = 32
	maxThreshMult = 512
)

// Baseline threshold multipliers per candidate, good-quality defaults.
// Cheap candidates start at zero (always tried); motion search and
// split candidates start progressively higher.
var defaultThreshMult = [maxModes]int{
	0, 0, 0, 0,
	0, 0, 0, 0,
	0, 0,
	1000, 1000, 1000,
	1000, 1000, 1000,
	2500, 5000, 5000,
	2500, 2000,
	1500, 1500, 1500,
	1500, 1500, 1500,
	1500, 1500, 1500,
	2000, 2000, 2000,
}

// rdIIFactor scales the two-pass frame-importance boost of the RD
// multiplier, indexed by the next-frame intra/inter error ratio.
var rdIIFactor = [32]int{
	4, 4, 3, 2, 1, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
}

// autoSpeedThresh is the per-level hysteresis denominator (percent)
// used by the adaptive speed selection.
var autoSpeedThresh = [17]int{
	1000,
	200,
	150,
	130,
	150,
	125,
	120,
	115,
	115,
	115,
	115,
	115,
	115,
	115,
	115,
	115,
	105,
}

// mbSplits labels each 4x4 block of the MB with its partition label.
var mbSplits = [numPartitions][16]int{
	{0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 1, 1, 1, 1}, // 16x8
	{0, 0, 1, 1, 0, 0, 1, 1, 0, 0, 1, 1, 0, 0, 1, 1}, // 8x16
	{0, 0, 1, 1, 0, 0, 1, 1, 2, 2, 3, 3, 2, 2, 3, 3}, // 8x8
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
}

// mbSplitCount is the number of labels per partition shape.
var mbSplitCount = [numPartitions]int{2, 2, 4, 16}

// mbSplitOffset gives the first 4x4 block of each label.
var mbSplitOffset = [numPartitions][16]int{
	{0, 8},
	{0, 2},
	{0, 2, 8, 10},
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
}

// i8x8Blocks are the top-left 4x4 block indices of the four 8x8 regions.
var i8x8Blocks = [4]int{0, 2, 8, 10}

// segmentationToSSEShift scales the best-SAD full-search gate per
// partition shape.
var segmentationToSSEShift = [numPartitions]uint{3, 3, 2, 0}

// Entropy-context index per coded block, 4x4 transform layout.
var block2Above = [numCoded]int{
	0, 1, 2, 3, 0, 1, 2, 3, 0, 1, 2, 3, 0, 1, 2, 3,
	4, 5, 4, 5, 6, 7, 6, 7, 8,
}

var block2Left = [numCoded]int{
	0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3,
	4, 4, 5, 5, 6, 6, 7, 7, 8,
}

// 8x8 transform layout: luma transform blocks live at 0, 4, 8, 12 and
// chroma at 16, 20.
var block2Above8x8 = [numCoded]int{
	0, 0, 0, 0, 2, 2, 2, 2, 0, 0, 0, 0, 2, 2, 2, 2,
	4, 4, 5, 5, 6, 6, 7, 7, 8,
}

var block2Left8x8 = [numCoded]int{
	0, 0, 0, 0, 0, 0, 0, 0, 2, 2, 2, 2, 2, 2, 2, 2,
	4, 4, 5, 5, 6, 6, 7, 7, 8,
}

// Zig-zag scan orders.
var zigzag = [16]int{
	0, 1, 4, 8, 5, 2, 3, 6, 9, 12, 13, 10, 7, 11, 14, 15,
}

var zigzag8x8 = [64]int{
	0, 1, 8, 16, 9, 2, 3, 10,
	17, 24, 32, 25, 18, 11, 4, 5,
	12, 19, 26, 33, 40, 48, 41, 34,
	27, 20, 13, 6, 7, 14, 21, 28,
	35, 42, 49, 56, 57, 50, 43, 36,
	29, 22, 15, 23, 30, 37, 44, 51,
	58, 59, 52, 45, 38, 31, 39, 46,
	53, 60, 61, 54, 47, 55, 62, 63,
}

// Coefficient position to probability band.
var coefBands = [16]int{0, 1, 2, 3, 6, 4, 5, 6, 6, 6, 6, 6, 6, 6, 6, 7}

var coefBands8x8 = [64]int{
	0, 1, 2, 3, 5, 4, 4, 5,
	5, 3, 6, 3, 5, 4, 6, 6,
	6, 5, 5, 6, 6, 6, 6, 6,
	6, 6, 6, 6, 6, 6, 6, 6,
	6, 6, 6, 6, 7, 7, 7, 7,
	7, 7, 7, 7, 7, 7, 7, 7,
	7, 7, 7, 7, 7, 7, 7, 7,
	7, 7, 7, 7, 7, 7, 7, 7,
}

// DC quantizer lookup, indexed by quantizer index.
const maxQIndex = 127

var dcQLookup = [maxQIndex + 1]int{
	4, 5, 6, 7, 8, 9, 10, 10, 11, 12, 13, 14, 15,
	16, 17, 17, 18, 19, 20, 20, 21, 21, 22, 22, 23, 23,
	24, 25, 25, 26, 27, 28, 29, 30, 31, 32, 33, 34, 35,
	36, 37, 37, 38, 39, 40, 41, 42, 43, 44, 45, 46, 46,
	47, 48, 49, 50, 51, 52, 53, 54, 55, 56, 57, 58, 59,
	60, 61, 62, 63, 64, 65, 66, 67, 68, 69, 70, 71, 72,
	73, 74, 75, 76, 76, 77, 78, 79, 80, 81, 82, 83, 84,
	85, 86, 87, 88, 89, 91, 93, 95, 96, 98, 100, 101, 102,
	104, 106, 108, 110, 112, 114, 116, 118, 122, 124, 126, 128, 130,
	132, 134, 136, 138, 140, 143, 145, 148, 151, 154, 157,
}

// dcQuant returns the DC quantizer step for a quantizer index.
func dcQuant(qindex int) int {
	if qindex < 0 {
		qindex = 0
	} else if qindex > maxQIndex {
		qindex = maxQIndex
	}
	return dcQLookup[qindex]
}

// modeContexts maps the near-MV reference counts to the mv-ref tree
// probabilities. Rows are indexed by the clamped neighbour count.
var modeContexts = [6][4]int{
	{7, 1, 1, 143},
	{14, 18, 14, 107},
	{135, 64, 57, 68},
	{60, 56, 128, 65},
	{234, 160, 1, 1},
	{255, 255, 1, 2},
}

// mvRefProbs derives the mv-ref tree probabilities from the neighbour
// MV counts supplied by the near-MV scan.
func mvRefProbs(counts [4]int) [4]uint8 {
	var p [4]uint8
	for i, c := range counts {
		if c > 5 {
			c = 5
		}
		v := modeContexts[c][i]
		if v < 1 {
			v = 1
		} else if v > 255 {
			v = 255
		}
		p[i] = uint8(v)
	}
	return p
}
