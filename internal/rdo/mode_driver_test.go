package rdo

import "testing"

func TestPickInterModeFlatPicksZeroMVLast(t *testing.T) {
	s, _, _ := newTestSearch()
	mb := newTestMB()
	mb.Refs[LastFrame] = newFlatRef(128)

	var mi ModeInfo
	var pi PartitionInfo
	res := s.PickInterMode(mb, &mi, &pi)

	if mi.Mode != ZeroMV || mi.Ref != LastFrame {
		t.Fatalf("winner = (%v, %v), want (ZeroMV, LastFrame)", mi.Mode, mi.Ref)
	}
	if !mi.MV.IsZero() {
		t.Errorf("winner MV = %+v, want zero", mi.MV)
	}
	if !mi.Skip {
		t.Error("an exact zero-residual match must set the skip flag")
	}
	if mi.SecondRef != IntraFrame {
		t.Error("single-reference winner must carry no second reference")
	}
	if res.Distortion != 0 {
		t.Errorf("distortion = %d, want 0", res.Distortion)
	}
}

func TestPickInterModeWinnerInCandidateTable(t *testing.T) {
	s, _, _ := newTestSearch()
	mb := newTestMB()
	mb.Refs[LastFrame] = newFlatRef(128)

	var mi ModeInfo
	var pi PartitionInfo
	s.PickInterMode(mb, &mi, &pi)

	found := false
	for _, c := range modeOrder {
		if c.Mode == mi.Mode && c.Ref == mi.Ref && c.SecondRef == mi.SecondRef {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("winning triple (%v, %v, %v) not in the candidate table",
			mi.Mode, mi.Ref, mi.SecondRef)
	}
}

func TestPickInterModeGradientFindsMotion(t *testing.T) {
	s, _, nbh := newTestSearch()
	_ = nbh
	mb := newTestMB()

	// Vertical gradient source; the reference holds the same gradient
	// shifted down one row, so a (+8, 0) eighth-pel MV predicts it
	// exactly.
	for r := 0; r < 16; r++ {
		for c := 0; c < 16; c++ {
			mb.SrcY[r*16+c] = uint8(clamp255(r * 16))
		}
	}
	ref := newFlatRef(128)
	for y := 0; y < refYSize; y++ {
		for x := 0; x < refYSize; x++ {
			ref.Y[y*refYSize+x] = uint8(clamp255((y - 17) * 16))
		}
	}
	mb.Refs[LastFrame] = ref

	var mi ModeInfo
	var pi PartitionInfo
	s.PickInterMode(mb, &mi, &pi)

	if mi.Ref != LastFrame {
		t.Fatalf("ref = %v, want LastFrame", mi.Ref)
	}
	if mi.Mode != NewMV {
		t.Fatalf("mode = %v, want NewMV", mi.Mode)
	}
	if mi.MV.Row != 8 || mi.MV.Col != 0 {
		t.Errorf("MV = %+v, want {8 0}", mi.MV)
	}
}

func clamp255(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

func TestPickInterModeSegmentForcesAltRef(t *testing.T) {
	s, seg, _ := newTestSearch()
	s.RefFrameEnabled[AltRefFrame] = true
	forced := AltRefFrame
	seg.forceRef = &forced

	mb := newTestMB()
	mb.Refs[LastFrame] = newFlatRef(128)
	mb.Refs[AltRefFrame] = newFlatRef(128)

	var mi ModeInfo
	var pi PartitionInfo
	s.PickInterMode(mb, &mi, &pi)

	if mi.Ref != AltRefFrame {
		t.Errorf("ref = %v, want the segment-forced AltRefFrame", mi.Ref)
	}
}

func TestThresholdHysteresis(t *testing.T) {
	s, _, _ := newTestSearch()

	// Candidate 1 (DC intra) is evaluated every MB and keeps losing to
	// ZEROMV/LAST: its multiplier must climb by 4 per loss up to the
	// ceiling; the winner's must fall to the floor.
	for i := 0; i < 10; i++ {
		mb := newTestMB()
		mb.Refs[LastFrame] = newFlatRef(128)
		var mi ModeInfo
		var pi PartitionInfo
		s.PickInterMode(mb, &mi, &pi)
		if mi.Mode != ZeroMV {
			t.Fatalf("MB %d: unexpected winner %v", i, mi.Mode)
		}
	}

	if s.ThreshMult[1] != 40 {
		t.Errorf("losing candidate multiplier = %d, want 40 after 10 losses",
			s.ThreshMult[1])
	}
	if s.ThreshMult[0] > maxThreshMult || s.ThreshMult[0] < minThreshMult {
		t.Errorf("winner multiplier = %d, outside [%d, %d]",
			s.ThreshMult[0], minThreshMult, maxThreshMult)
	}
	if s.ModeChosenCounts[0] != 10 {
		t.Errorf("mode chosen count = %d, want 10", s.ModeChosenCounts[0])
	}
}

func TestThresholdHysteresisCeiling(t *testing.T) {
	s, _, _ := newTestSearch()
	s.ThreshMult[1] = maxThreshMult
	s.BaselineThresh[1] = 1 << 10

	for i := 0; i < 5; i++ {
		s.missThreshold(1)
	}
	if s.ThreshMult[1] != maxThreshMult {
		t.Errorf("multiplier = %d, want clamped at %d", s.ThreshMult[1], maxThreshMult)
	}

	start := maxThreshMult
	s.ThreshMult[2] = start
	s.BaselineThresh[2] = 1 << 10
	// Ten consecutive wins drop the multiplier by 2 each.
	for i := 0; i < 10; i++ {
		if s.ThreshMult[2] >= minThreshMult+2 {
			s.ThreshMult[2] -= 2
		} else {
			s.ThreshMult[2] = minThreshMult
		}
	}
	if s.ThreshMult[2] > start-20 {
		t.Errorf("multiplier = %d after 10 wins, want <= %d", s.ThreshMult[2], start-20)
	}
}

func TestPickInterModeAltRefOverlayForced(t *testing.T) {
	s, _, _ := newTestSearch()
	s.IsSrcFrameAltRef = true
	s.ARNRMaxFrames = 0
	s.RefFrameEnabled[AltRefFrame] = true

	mb := newTestMB()
	mb.Refs[LastFrame] = newFlatRef(128)
	mb.Refs[AltRefFrame] = newFlatRef(128)

	var mi ModeInfo
	var pi PartitionInfo
	res := s.PickInterMode(mb, &mi, &pi)

	if mi.Mode != ZeroMV || mi.Ref != AltRefFrame {
		t.Errorf("overlay frame winner = (%v, %v), want (ZeroMV, AltRefFrame)",
			mi.Mode, mi.Ref)
	}
	if res.SingleRDDiff != 0 && res.SingleRDDiff != noContender {
		// The forced path reports zero deltas.
		t.Errorf("single diff = %d", res.SingleRDDiff)
	}
}

func TestPickInterModeRDDiffs(t *testing.T) {
	s, _, _ := newTestSearch()
	mb := newTestMB()
	mb.Refs[LastFrame] = newFlatRef(128)

	var mi ModeInfo
	var pi PartitionInfo
	res := s.PickInterMode(mb, &mi, &pi)

	// With only LAST enabled no compound candidate runs.
	if res.CompRDDiff != noContender && res.CompRDDiff > 0 {
		t.Errorf("comp diff = %d, want <= 0 or the sentinel", res.CompRDDiff)
	}
	if res.SingleRDDiff > 0 {
		t.Errorf("single diff = %d, want <= 0 (best_rd <= best_single_rd)", res.SingleRDDiff)
	}
}

func TestEncodeBreakoutSkips(t *testing.T) {
	s, _, _ := newTestSearch()
	s.EncodeBreakout = 1 << 12
	mb := newTestMB()
	mb.Refs[LastFrame] = newFlatRef(128)

	var mi ModeInfo
	var pi PartitionInfo
	s.PickInterMode(mb, &mi, &pi)

	if !mb.Skip {
		t.Error("breakout must set the macroblock skip state")
	}
	if mi.Mode != ZeroMV || mi.Ref != LastFrame {
		t.Errorf("winner = (%v, %v)", mi.Mode, mi.Ref)
	}
}

func TestUVSSEWholePel(t *testing.T) {
	s, _, _ := newTestSearch()
	mb := newTestMB()
	ref := newFlatRef(128)
	if got := s.uvSSE(mb, ref, MV{}); got != 0 {
		t.Errorf("uvSSE = %d for an exact chroma match", got)
	}
	ref2 := newFlatRef(130)
	if got := s.uvSSE(mb, ref2, MV{}); got != 2*64*4 {
		t.Errorf("uvSSE = %d, want %d", got, 2*64*4)
	}
}

func TestTotalEOBHonoursY2Structure(t *testing.T) {
	s, _, _ := newTestSearch()
	mb := newTestMB()

	// Y blocks with only a DC coefficient: invisible to Y2-carrying
	// modes, visible to SPLITMV/BPred.
	for b := 0; b < yBlocks; b++ {
		mb.EOB[b] = 1
	}
	mb.EOB[y2Block] = 0

	if got := s.totalEOB(mb, ZeroMV, LastFrame, 0); got != 0 {
		t.Errorf("Y2 mode tteob = %d, want 0", got)
	}
	if got := s.totalEOB(mb, SplitMV, LastFrame, 0); got != 16 {
		t.Errorf("split tteob = %d, want 16", got)
	}
}
