package rdo

import (
	"math"

	"github.com/deepteams/vp8enc/internal/dsp"
)

// Coefficient tokens.
const (
	tokenZero = iota
	tokenOne
	tokenTwo
	tokenThree
	tokenFour
	tokenCat1
	tokenCat2
	tokenCat3
	tokenCat4
	tokenCat5
	tokenCat6
	tokenEOB

	numTokens       = 12
	numEntropyNodes = 11
	numBlockTypes   = 4
	numCoefBands    = 8
	numPrevCtx      = 3
)

// coefTree is the coefficient token coding tree. Leaves are stored as
// non-positive values (-token); inner nodes as the index of their
// first child.
var coefTree = [22]int16{
	-tokenEOB, 2,
	-tokenZero, 4,
	-tokenOne, 6,
	8, 12,
	-tokenTwo, 10,
	-tokenThree, -tokenFour,
	14, 16,
	-tokenCat1, -tokenCat2,
	18, 20,
	-tokenCat3, -tokenCat4,
	-tokenCat5, -tokenCat6,
}

// prevTokenClass maps a coded token to the context class it leaves for
// the next coefficient.
var prevTokenClass = [numTokens]int{0, 1, 2, 2, 2, 2, 2, 2, 2, 2, 2, 0}

// Extra-bit probabilities of the six value categories.
var (
	catProb1 = [1]uint8{159}
	catProb2 = [2]uint8{165, 145}
	catProb3 = [3]uint8{173, 148, 140}
	catProb4 = [4]uint8{176, 155, 140, 135}
	catProb5 = [5]uint8{180, 157, 141, 134, 130}
	catProb6 = [11]uint8{254, 254, 243, 230, 196, 177, 153, 140, 133, 130, 129}
)

// catBase[t] is the smallest absolute value coded with category token t.
var catBase = [numTokens]int{0, 1, 2, 3, 4, 5, 7, 11, 19, 35, 67, 0}

const (
	dctMaxValue    = 2048
	dctValueOffset = dctMaxValue
)

// dctValueToken and dctValueCost map a coefficient value (offset by
// dctValueOffset) to its token and the fixed cost of its sign and
// extra bits. Filled once at package init.
var (
	dctValueToken [2 * dctMaxValue]uint8
	dctValueCost  [2 * dctMaxValue]int
)

func catExtraProbs(token int) []uint8 {
	switch token {
	case tokenCat1:
		return catProb1[:]
	case tokenCat2:
		return catProb2[:]
	case tokenCat3:
		return catProb3[:]
	case tokenCat4:
		return catProb4[:]
	case tokenCat5:
		return catProb5[:]
	case tokenCat6:
		return catProb6[:]
	}
	return nil
}

func tokenForValue(av int) int {
	switch {
	case av == 0:
		return tokenZero
	case av <= 4:
		return tokenZero + av
	case av <= 6:
		return tokenCat1
	case av <= 10:
		return tokenCat2
	case av <= 18:
		return tokenCat3
	case av <= 34:
		return tokenCat4
	case av <= 66:
		return tokenCat5
	}
	return tokenCat6
}

func initDCTValueTables() {
	for v := -dctMaxValue; v < dctMaxValue; v++ {
		av := v
		if av < 0 {
			av = -av
		}
		t := tokenForValue(av)
		dctValueToken[v+dctValueOffset] = uint8(t)

		cost := 0
		if av > 0 {
			cost = 256 // sign, coded at probability one half
			if probs := catExtraProbs(t); probs != nil {
				eb := av - catBase[t]
				for i, p := range probs {
					bit := (eb >> uint(len(probs)-1-i)) & 1
					cost += dsp.VP8BitCost(bit, p)
				}
			}
		}
		dctValueCost[v+dctValueOffset] = cost
	}
}

// sadPerBit lookups indexed by quantizer index; affine in the
// converted quantizer value.
var (
	sadPerBit16Lut [maxQIndex + 1]int
	sadPerBit4Lut  [maxQIndex + 1]int
)

func initSADPerBitLuts() {
	for i := 0; i <= maxQIndex; i++ {
		q := float64(dcQLookup[i])
		sadPerBit16Lut[i] = int(0.0418*q + 2.4107)
		sadPerBit4Lut[i] = int(0.063*q + 2.742)
	}
}

func init() {
	initDCTValueTables()
	initSADPerBitLuts()
}

// fillTreeCosts writes the bit cost of every leaf symbol of tree into
// costs, walking all root-to-leaf paths once.
func fillTreeCosts(costs []int, probs []uint8, tree []int16) {
	var walk func(i, c int)
	walk = func(i, c int) {
		p := probs[i>>1]
		if left := tree[i]; left <= 0 {
			costs[-left] = c + dsp.VP8BitCost(0, p)
		} else {
			walk(int(left), c+dsp.VP8BitCost(0, p))
		}
		if right := tree[i+1]; right <= 0 {
			costs[-right] = c + dsp.VP8BitCost(1, p)
		} else {
			walk(int(right), c+dsp.VP8BitCost(1, p))
		}
	}
	walk(0, 0)
}

// treeSymbolCost returns the cost of a single symbol under tree/probs.
func treeSymbolCost(tree []int16, probs []uint8, symbol int) int {
	var costs [16]int
	fillTreeCosts(costs[:], probs, tree)
	return costs[symbol]
}

// Mode coding trees.
var ymodeTree = []int16{
	-int16(DCPred), 2,
	4, 6,
	-int16(VPred), -int16(HPred),
	-int16(TMPred), 8,
	-int16(BPred), -int16(I8x8Pred),
}

var uvModeTree = []int16{
	-int16(DCPred), 2,
	-int16(VPred), 4,
	-int16(HPred), -int16(TMPred),
}

var bModeTree = []int16{
	-int16(BDCPred), 2,
	-int16(BTMPred), 4,
	-int16(BVEPred), 6,
	8, 12,
	-int16(BHEPred), 10,
	-int16(BRDPred), -int16(BVRPred),
	-int16(BLDPred), 14,
	-int16(BVLPred), 16,
	-int16(BHDPred), -int16(BHUPred),
}

var subMVRefTree = []int16{
	0, 2, // symbol 0 = LEFT4X4 relative
	-1, 4,
	-2, -3,
}

var mbSplitTree = []int16{
	-3, 2,
	-2, 4,
	-0, -1,
}

// mvRefTree codes {ZEROMV, NEARESTMV, NEARMV, NEWMV, SPLITMV} as
// relative symbols 0..4.
var mvRefTree = []int16{
	-0, 2,
	-1, 4,
	-2, 6,
	-3, -4,
}

func mvRefSymbol(m MBMode) int {
	switch m {
	case ZeroMV:
		return 0
	case NearestMV:
		return 1
	case NearMV:
		return 2
	case NewMV:
		return 3
	}
	return 4 // SplitMV
}

// CoefProbs is the coefficient probability model of one transform
// size, owned by the entropy coder.
type CoefProbs [numBlockTypes][numCoefBands][numPrevCtx][numEntropyNodes]uint8

// TokenCosts caches the bit cost of every token under CoefProbs.
type TokenCosts [numBlockTypes][numCoefBands][numPrevCtx][numTokens]int

// MV cost tables, component-wise, indexed mvMax + (diff >> 1).
const (
	mvMax  = 1023
	mvVals = 2*mvMax + 1
)

// MVCosts holds the per-component signalling cost of an MV difference.
type MVCosts [2][mvVals]int

// FrameProbs carries the frame's entropy-model probabilities. The
// tables are owned and adapted by the entropy coder; the search only
// derives bit costs from them at frame start.
type FrameProbs struct {
	Coef    *CoefProbs
	Coef8x8 *CoefProbs

	YMode    [5]uint8
	KfYMode  [5]uint8
	UVMode   [3]uint8
	BMode    [9]uint8
	KfBMode  [10][10][9]uint8
	I8x8Mode [3]uint8
	SubMVRef [3]uint8
	MBSplit  [3]uint8

	// ModRefProbs[predRef] is the reference tree fallback model used
	// when the context prediction of the reference frame fails.
	ModRefProbs [numRefFrames][3]uint8
}

// DefaultFrameProbs returns a usable probability set: the standard
// default mode probabilities and a flat coefficient model. Encoders
// normally install the coder's adapted tables instead.
func DefaultFrameProbs() *FrameProbs {
	p := &FrameProbs{
		Coef:     &CoefProbs{},
		Coef8x8:  &CoefProbs{},
		YMode:    [5]uint8{112, 86, 140, 37, 120},
		KfYMode:  [5]uint8{145, 156, 163, 128, 128},
		UVMode:   [3]uint8{162, 101, 204},
		BMode:    [9]uint8{120, 90, 79, 133, 87, 85, 80, 111, 151},
		I8x8Mode: [3]uint8{162, 101, 204},
		SubMVRef: [3]uint8{180, 162, 25},
		MBSplit:  [3]uint8{110, 111, 150},
		ModRefProbs: [numRefFrames][3]uint8{
			{174, 128, 128},
			{204, 64, 128},
			{140, 128, 54},
			{140, 128, 202},
		},
	}
	for t := range p.Coef {
		for b := range p.Coef[t] {
			for c := range p.Coef[t][b] {
				for n := range p.Coef[t][b][c] {
					p.Coef[t][b][c][n] = 128
					p.Coef8x8[t][b][c][n] = 128
				}
			}
		}
	}
	for a := range p.KfBMode {
		for l := range p.KfBMode[a] {
			for n := range p.KfBMode[a][l] {
				p.KfBMode[a][l][n] = 128
			}
		}
	}
	return p
}

// Frame type index into the mode cost arrays.
const (
	frameTypeKey = iota
	frameTypeInter
)

// CostTables holds every bit-cost table the search consults, built
// once per frame from the coder's probabilities.
type CostTables struct {
	Token    TokenCosts
	Token8x8 TokenCosts

	// MBMode costs the intra macroblock modes (DC..I8x8) per frame
	// type; inter modes are costed through the mv-ref tree instead.
	MBMode [2][numYModes]int

	// KfBMode costs a 4x4 intra sub-mode given the above and left
	// neighbours' sub-modes (key frames only).
	KfBMode [numBModes][numBModes][numBModes]int

	// InterBMode costs every sub-block mode with the flat inter-frame
	// model: b-modes 0..9, SPLITMV sub-modes 10..13.
	InterBMode [numSubModes]int

	I8x8Mode [numIntra16Modes]int
	UVMode   [2][numIntra16Modes]int
	MBSplit  [numPartitions]int

	MV *MVCosts
}

// BuildCostTables derives all bit-cost tables from probs. mvCosts is
// the MV entropy model's component cost table; it is referenced, not
// copied.
func BuildCostTables(probs *FrameProbs, mvCosts *MVCosts) *CostTables {
	ct := &CostTables{MV: mvCosts}

	fillTokenCosts(&ct.Token, probs.Coef)
	fillTokenCosts(&ct.Token8x8, probs.Coef8x8)

	var ymode [numYModes]int
	fillTreeCosts(ymode[:], probs.KfYMode[:], ymodeTree)
	ct.MBMode[frameTypeKey] = ymode
	fillTreeCosts(ymode[:], probs.YMode[:], ymodeTree)
	ct.MBMode[frameTypeInter] = ymode

	var bmode [numBModes]int
	for a := 0; a < numBModes; a++ {
		for l := 0; l < numBModes; l++ {
			fillTreeCosts(bmode[:], probs.KfBMode[a][l][:], bModeTree)
			ct.KfBMode[a][l] = bmode
		}
	}

	fillTreeCosts(ct.InterBMode[:numBModes], probs.BMode[:], bModeTree)
	var subref [4]int
	fillTreeCosts(subref[:], probs.SubMVRef[:], subMVRefTree)
	for i, c := range subref {
		ct.InterBMode[int(Left4x4)+i] = c
	}

	fillTreeCosts(ct.I8x8Mode[:], probs.I8x8Mode[:], uvModeTree)

	var uv [numIntra16Modes]int
	fillTreeCosts(uv[:], probs.UVMode[:], uvModeTree)
	ct.UVMode[frameTypeKey] = uv
	ct.UVMode[frameTypeInter] = uv

	var split [numPartitions]int
	fillTreeCosts(split[:], probs.MBSplit[:], mbSplitTree)
	ct.MBSplit = split

	return ct
}

func fillTokenCosts(dst *TokenCosts, src *CoefProbs) {
	for t := 0; t < numBlockTypes; t++ {
		for b := 0; b < numCoefBands; b++ {
			for c := 0; c < numPrevCtx; c++ {
				fillTreeCosts(dst[t][b][c][:], src[t][b][c][:], coefTree[:])
			}
		}
	}
}

// costMVRef is the bit cost of signalling an inter mode under the
// neighbour-derived mv-ref context.
func costMVRef(mode MBMode, counts [4]int) int {
	probs := mvRefProbs(counts)
	return treeSymbolCost(mvRefTree, probs[:], mvRefSymbol(mode))
}

// mvBitCost is the cost of coding mv relative to ref under the MV
// component model, scaled by weight (in 1/128 units).
func mvBitCost(mv, ref MV, costs *MVCosts, weight int) int {
	r := mvMax + (int(mv.Row)-int(ref.Row))>>1
	c := mvMax + (int(mv.Col)-int(ref.Col))>>1
	if r < 0 {
		r = 0
	} else if r >= mvVals {
		r = mvVals - 1
	}
	if c < 0 {
		c = 0
	} else if c >= mvVals {
		c = mvVals - 1
	}
	return (costs[0][r] + costs[1][c]) * weight >> 7
}

// The RD sentinel: a candidate that cannot win.
const invalidRD = math.MaxInt32

// rdCost combines rate and distortion under the frame's multiplier
// pair: (128 + R*RDMULT)>>8 + RDDIV*D.
func rdCost(rdmult, rddiv, rate, dist int) int {
	return ((128 + rate*rdmult) >> 8) + rddiv*dist
}

// computeRDMult derives the base rate-distortion multiplier from the
// quantizer index.
func computeRDMult(qindex int) int {
	q := dcQuant(qindex)
	return (3 * q * q) >> 4
}

// RDConsts is the per-frame scoring state derived from the quantizer:
// the λ fixed-point pair and the motion-search per-bit costs.
type RDConsts struct {
	RDMult      int
	RDDiv       int
	ErrorPerBit int
	SadPerBit16 int
	SadPerBit4  int
}

// InitRDConsts computes the frame scoring constants. zbinOverQuant
// extends the multiplier alongside quantizer zbin growth (units of
// 1/128 of a Q bin); iiRatio is the two-pass frame-importance ratio,
// negative when unavailable.
func InitRDConsts(qindex, zbinOverQuant, iiRatio int) RDConsts {
	if qindex < 0 {
		qindex = 0
	} else if qindex > maxQIndex {
		qindex = maxQIndex
	}

	rdmult := computeRDMult(qindex)

	if zbinOverQuant > 0 {
		oq := 1.0 + 0.0015625*float64(zbinOverQuant)
		rdmult = int(float64(rdmult) * oq * oq)
	}

	if iiRatio >= 0 {
		if iiRatio > 31 {
			iiRatio = 31
		}
		rdmult += (rdmult * rdIIFactor[iiRatio]) >> 4
	}

	if rdmult < 7 {
		rdmult = 7
	}

	errorPerBit := rdmult / 110
	if errorPerBit == 0 {
		errorPerBit = 1
	}

	rdmult <<= 4

	c := RDConsts{
		RDMult:      rdmult,
		RDDiv:       100,
		ErrorPerBit: errorPerBit,
		SadPerBit16: sadPerBit16Lut[qindex],
		SadPerBit4:  sadPerBit4Lut[qindex],
	}
	if rdmult > 1000 {
		c.RDMult = rdmult / 100
		c.RDDiv = 1
	}
	return c
}

// threshScale is the per-mode threshold scale q' = max(8,
// ((q_dc>>2)^1.25)<<2). When the multiplier pair was rescaled the
// caller divides each threshold by 100 to stay on the same scale.
func threshScale(qindex int) int {
	q := int(math.Pow(float64(dcQuant(qindex)>>2), 1.25)) << 2
	if q < 8 {
		q = 8
	}
	return q
}

// costCoeffs returns the bits needed to code block b's quantized
// coefficients under the 4x4 token model, and advances the entropy
// contexts to the post-block state.
func (ct *CostTables) costCoeffs(mb *Macroblock, b int, plane PlaneType, ta, tl *uint8) int {
	c := 0
	if plane == PlaneYAfterY2 {
		c = 1 // DC lives in the Y2 block
	}
	first := c
	eob := mb.EOB[b]
	pt := combineContexts(*ta, *tl)
	qcoeff := mb.BlockQCoeff(b)

	cost := 0
	for ; c < eob; c++ {
		v := int(qcoeff[zigzag[c]])
		t := int(dctValueToken[v+dctValueOffset])
		cost += ct.Token[plane][coefBands[c]][pt][t]
		cost += dctValueCost[v+dctValueOffset]
		pt = prevTokenClass[t]
	}

	if c < 16 {
		cost += ct.Token[plane][coefBands[c]][pt][tokenEOB]
	}

	nz := uint8(0)
	if c != first {
		nz = 1
	}
	*ta, *tl = nz, nz
	return cost
}

// costCoeffs8x8 is the 64-coefficient variant; b addresses the coded
// block whose storage begins the 8x8 transform block (0, 4, 8, 12 for
// luma, 16, 20 for chroma).
func (ct *CostTables) costCoeffs8x8(mb *Macroblock, b int, plane PlaneType, ta, tl *uint8) int {
	c := 0
	if plane == PlaneYAfterY2 {
		c = 1
	}
	first := c
	eob := mb.EOB[b]
	pt := combineContexts(*ta, *tl)
	qcoeff := mb.QCoeff[b*16 : b*16+64]

	cost := 0
	for ; c < eob; c++ {
		v := int(qcoeff[zigzag8x8[c]])
		t := int(dctValueToken[v+dctValueOffset])
		cost += ct.Token8x8[plane][coefBands8x8[c]][pt][t]
		cost += dctValueCost[v+dctValueOffset]
		pt = prevTokenClass[t]
	}

	if c < 64 {
		cost += ct.Token8x8[plane][coefBands8x8[c]][pt][tokenEOB]
	}

	nz := uint8(0)
	if c != first {
		nz = 1
	}
	*ta, *tl = nz, nz
	return cost
}

// costCoeffs2x2 costs the 4-coefficient Y2 block used with the 8x8
// transform.
func (ct *CostTables) costCoeffs2x2(mb *Macroblock, ta, tl *uint8) int {
	c := 0
	eob := mb.EOB[y2Block]
	pt := combineContexts(*ta, *tl)
	qcoeff := mb.BlockQCoeff(y2Block)

	cost := 0
	for ; c < eob; c++ {
		v := int(qcoeff[zigzag[c]])
		t := int(dctValueToken[v+dctValueOffset])
		cost += ct.Token8x8[PlaneY2][coefBands[c]][pt][t]
		cost += dctValueCost[v+dctValueOffset]
		pt = prevTokenClass[t]
	}

	if c < 4 {
		cost += ct.Token8x8[PlaneY2][coefBands[c]][pt][tokenEOB]
	}

	nz := uint8(0)
	if c != 0 {
		nz = 1
	}
	*ta, *tl = nz, nz
	return cost
}
