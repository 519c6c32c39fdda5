package rdo

import (
	"math"
	"testing"

	"github.com/deepteams/vp8enc/internal/dsp"
)

func TestDCTValueTokens(t *testing.T) {
	tests := []struct {
		v    int
		want int
	}{
		{0, tokenZero},
		{1, tokenOne},
		{-1, tokenOne},
		{4, tokenFour},
		{5, tokenCat1},
		{6, tokenCat1},
		{7, tokenCat2},
		{10, tokenCat2},
		{11, tokenCat3},
		{18, tokenCat3},
		{19, tokenCat4},
		{34, tokenCat4},
		{35, tokenCat5},
		{66, tokenCat5},
		{67, tokenCat6},
		{-2000, tokenCat6},
	}
	for _, tt := range tests {
		if got := int(dctValueToken[tt.v+dctValueOffset]); got != tt.want {
			t.Errorf("token(%d) = %d, want %d", tt.v, got, tt.want)
		}
	}

	if dctValueCost[dctValueOffset] != 0 {
		t.Error("value 0 must cost nothing")
	}
	// Literal tokens carry only the sign bit.
	for _, v := range []int{1, -1, 2, 3, 4} {
		if dctValueCost[v+dctValueOffset] != 256 {
			t.Errorf("cost(%d) = %d, want 256", v, dctValueCost[v+dctValueOffset])
		}
	}
	// Category values pay extra bits on top of the sign.
	if dctValueCost[5+dctValueOffset] <= 256 {
		t.Error("cat1 value must cost more than a literal")
	}
}

func TestFillTreeCostsFlatProbs(t *testing.T) {
	var costs [4]int
	probs := []uint8{128, 128, 128}
	fillTreeCosts(costs[:], probs, uvModeTree)

	b0 := dsp.VP8BitCost(0, 128)
	b1 := dsp.VP8BitCost(1, 128)
	want := [4]int{b0, b1 + b0, b1 + b1 + b0, b1 + b1 + b1}
	for i, w := range want {
		if costs[i] != w {
			t.Errorf("symbol %d: cost = %d, want %d", i, costs[i], w)
		}
	}
	// Deeper symbols never get cheaper than shallower ones under a
	// flat model.
	if !(costs[0] < costs[1] && costs[1] < costs[2]) {
		t.Errorf("tree costs not monotone in depth: %v", costs)
	}
}

func TestCostCoeffsIdempotent(t *testing.T) {
	s, _, _ := newTestSearch()
	mb := newTestMB()

	q := mb.BlockQCoeff(0)
	q[0] = 3
	q[1] = -2
	q[4] = 1
	mb.EOB[0] = 4

	a1, l1 := uint8(0), uint8(1)
	r1 := s.Costs.costCoeffs(mb, 0, PlaneYWithDC, &a1, &l1)
	a2, l2 := uint8(0), uint8(1)
	r2 := s.Costs.costCoeffs(mb, 0, PlaneYWithDC, &a2, &l2)

	if r1 != r2 {
		t.Errorf("cost changed across identical runs: %d vs %d", r1, r2)
	}
	if a1 != a2 || l1 != l2 {
		t.Error("context mutation differed across identical runs")
	}
	if a1 != 1 || l1 != 1 {
		t.Error("non-zero block must set both contexts")
	}
}

func TestCostCoeffsEmptyBlock(t *testing.T) {
	s, _, _ := newTestSearch()
	mb := newTestMB()
	mb.EOB[5] = 0

	a, l := uint8(1), uint8(1)
	r := s.Costs.costCoeffs(mb, 5, PlaneYWithDC, &a, &l)
	if r <= 0 {
		t.Error("empty block still pays for the EOB token")
	}
	if a != 0 || l != 0 {
		t.Error("empty block must clear both contexts")
	}
}

func TestInitRDConsts(t *testing.T) {
	// qindex 0: base (3*4*4)>>4 = 3, floored at 7, scaled by 16.
	c := InitRDConsts(0, 0, -1)
	if c.RDMult != 112 || c.RDDiv != 100 {
		t.Errorf("low-Q consts = %+v, want RDMult 112, RDDiv 100", c)
	}
	if c.ErrorPerBit < 1 {
		t.Errorf("errorPerBit = %d, want >= 1", c.ErrorPerBit)
	}

	// High quantizers push the multiplier past 1000 and switch the
	// divider pair to keep the arithmetic in range.
	h := InitRDConsts(maxQIndex, 0, -1)
	if h.RDDiv != 1 {
		t.Errorf("high-Q RDDiv = %d, want 1", h.RDDiv)
	}
	if h.RDMult <= 0 {
		t.Errorf("high-Q RDMult = %d", h.RDMult)
	}

	// The zbin boost only ever raises the multiplier.
	boosted := InitRDConsts(64, 192, -1)
	plain := InitRDConsts(64, 0, -1)
	if boosted.RDMult*boosted.RDDiv < plain.RDMult*plain.RDDiv &&
		boosted.RDDiv == plain.RDDiv {
		t.Error("zbin boost lowered the multiplier")
	}
}

func TestSadPerBitLutsMonotone(t *testing.T) {
	for i := 1; i <= maxQIndex; i++ {
		if sadPerBit16Lut[i] < sadPerBit16Lut[i-1] {
			t.Fatalf("sadPerBit16 not monotone at %d", i)
		}
		if sadPerBit4Lut[i] < sadPerBit4Lut[i-1] {
			t.Fatalf("sadPerBit4 not monotone at %d", i)
		}
	}
}

func TestMVBitCost(t *testing.T) {
	var costs MVCosts
	for i := range costs[0] {
		costs[0][i] = 10
		costs[1][i] = 20
	}
	got := mvBitCost(MV{Row: 16, Col: -8}, MV{}, &costs, 128)
	if got != 30 {
		t.Errorf("mvBitCost = %d, want 30", got)
	}
	if mvBitCost(MV{}, MV{}, &costs, 0) != 0 {
		t.Error("zero weight must cost nothing")
	}
}

func TestRDCostScaling(t *testing.T) {
	if rdCost(256, 1, 100, 0) != 100 {
		t.Error("rate term scaling broken")
	}
	if rdCost(256, 1, 0, 7) != 7 {
		t.Error("distortion term scaling broken")
	}
	if rdCost(256, 100, 0, 7) != 700 {
		t.Error("distortion divider scaling broken")
	}
}

func TestCostMVRefOrdering(t *testing.T) {
	// With strong zero counts, ZEROMV must be the cheapest signal.
	counts := [4]int{5, 2, 2, 2}
	zero := costMVRef(ZeroMV, counts)
	for _, m := range []MBMode{NearestMV, NearMV, NewMV, SplitMV} {
		if costMVRef(m, counts) < zero {
			t.Errorf("%v cheaper than ZEROMV under zero-heavy context", m)
		}
	}
}

func TestThreshScaleFloor(t *testing.T) {
	if q := threshScale(0); q < 8 {
		t.Errorf("threshScale(0) = %d, want >= 8", q)
	}
	if threshScale(maxQIndex) <= threshScale(0) {
		t.Error("threshScale must grow with the quantizer")
	}
}

func TestBuildCostTablesSubMVRefSlots(t *testing.T) {
	ct := BuildCostTables(DefaultFrameProbs(), &MVCosts{})
	for m := Left4x4; m <= New4x4; m++ {
		if ct.InterBMode[m] <= 0 {
			t.Errorf("sub-mv-ref cost for %d not filled", m)
		}
	}
	if ct.MBSplit[Block8x8] <= 0 || ct.MBSplit[Block4x4] <= 0 {
		t.Error("split-type selector costs not filled")
	}
}

func TestInvalidRDSentinel(t *testing.T) {
	if invalidRD != math.MaxInt32 {
		t.Error("sentinel must be the 32-bit maximum")
	}
}
