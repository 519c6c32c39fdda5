package rdo

import "testing"

func TestInsertSort(t *testing.T) {
	arr := []int{5, 1, 4, 1, 9, 0}
	insertSort(arr)
	for i := 1; i < len(arr); i++ {
		if arr[i-1] > arr[i] {
			t.Fatalf("not sorted: %v", arr)
		}
	}
}

func TestInsertSortSAD(t *testing.T) {
	arr := []int{30, 10, 20}
	idx := []int{0, 1, 2}
	insertSortSAD(arr, idx)
	if arr[0] != 10 || idx[0] != 1 {
		t.Errorf("smallest = (%d, idx %d), want (10, 1)", arr[0], idx[0])
	}
	if arr[2] != 30 || idx[2] != 0 {
		t.Errorf("largest = (%d, idx %d), want (30, 0)", arr[2], idx[2])
	}
}

func TestMVBias(t *testing.T) {
	mv := MV{Row: 8, Col: -4}
	if got := mvBias(true, true, mv); got != mv {
		t.Error("equal bias must not flip")
	}
	if got := mvBias(true, false, mv); got != (MV{Row: -8, Col: 4}) {
		t.Errorf("opposite bias flip = %+v", got)
	}
}

func TestMVPredCurrentFrameMatch(t *testing.T) {
	s, _, _ := newTestSearch()
	s.LastFrameIsKey = true
	mb := newTestMB()
	mb.AboveMI = &ModeInfo{Ref: LastFrame, MV: MV{Row: 16, Col: 8}}

	idx := [8]int{0, 1, 2, 3, 4, 5, 6, 7}
	mvp, sr := s.mvPred(mb, LastFrame, &idx)
	if mvp != (MV{Row: 16, Col: 8}) {
		t.Errorf("mvp = %+v, want the above neighbour's MV", mvp)
	}
	if sr != 3 {
		t.Errorf("search range hint = %d, want 3 for a current-frame match", sr)
	}
}

func TestMVPredMedianFallback(t *testing.T) {
	s, _, _ := newTestSearch()
	s.LastFrameIsKey = true
	mb := newTestMB()
	// Neighbours reference golden; the target is last, so nothing
	// matches and the median applies over all three slots.
	mb.AboveMI = &ModeInfo{Ref: GoldenFrame, MV: MV{Row: 8, Col: 8}}
	mb.LeftMI = &ModeInfo{Ref: GoldenFrame, MV: MV{Row: 24, Col: 24}}

	idx := [8]int{0, 1, 2, 3, 4, 5, 6, 7}
	mvp, sr := s.mvPred(mb, LastFrame, &idx)
	if sr != 0 {
		t.Errorf("search range hint = %d, want 0 for the median fallback", sr)
	}
	// Slots: {8,8}, {24,24}, {0,0} (empty above-left). Median of
	// {0,8,24} is 8.
	if mvp != (MV{Row: 8, Col: 8}) {
		t.Errorf("median mvp = %+v, want {8 8}", mvp)
	}
}

func TestMVPredTopRowBoundary(t *testing.T) {
	s, _, _ := newTestSearch()
	s.LastFrameIsKey = true
	mb := newTestMB()
	// Top row: no above / above-left neighbours at all.
	mb.LeftMI = &ModeInfo{Ref: LastFrame, MV: MV{Row: -8, Col: 16}}

	idx := [8]int{0, 1, 2, 3, 4, 5, 6, 7}
	mvp, sr := s.mvPred(mb, LastFrame, &idx)
	if sr != 3 {
		t.Errorf("sr = %d, want 3", sr)
	}
	if mvp != (MV{Row: -8, Col: 16}) {
		t.Errorf("mvp = %+v, want the left neighbour's MV", mvp)
	}
}

func TestMVPredIntraTarget(t *testing.T) {
	s, _, _ := newTestSearch()
	mb := newTestMB()
	mvp, sr := s.mvPred(mb, IntraFrame, &[8]int{0, 1, 2, 3, 4, 5, 6, 7})
	if !mvp.IsZero() || sr != 0 {
		t.Error("intra target must produce a zero prediction")
	}
}

func TestCollectNearMVsSignBias(t *testing.T) {
	s, _, _ := newTestSearch()
	s.LastFrameIsKey = true
	s.SignBias[GoldenFrame] = true
	mb := newTestMB()
	mb.AboveMI = &ModeInfo{Ref: GoldenFrame, MV: MV{Row: 8, Col: -8}}

	mvs, refs, vcnt := s.collectNearMVs(mb, LastFrame)
	if vcnt != 3 {
		t.Fatalf("vcnt = %d, want 3", vcnt)
	}
	if refs[0] != GoldenFrame {
		t.Fatalf("slot 0 ref = %v", refs[0])
	}
	if mvs[0] != (MV{Row: -8, Col: 8}) {
		t.Errorf("sign-biased candidate = %+v, want flipped", mvs[0])
	}
}

func TestCalNearSADRanksExactMatchFirst(t *testing.T) {
	s, _, _ := newTestSearch()
	s.LastFrameIsKey = false
	mb := newTestMB()
	// Corner MB: the three current-frame slots are unavailable; the
	// co-located last-frame block matches the source exactly.
	mb.Refs[LastFrame] = newFlatRef(128)

	var idx [8]int
	s.calNearSAD(mb, &idx)
	if idx[0] != 3 {
		t.Errorf("best SAD slot = %d, want 3 (co-located last-frame)", idx[0])
	}
}

func TestCalStepParam(t *testing.T) {
	if got := calStepParam(1); got != maxMVSearchSteps-1 {
		t.Errorf("calStepParam(1) = %d", got)
	}
	if got := calStepParam(maxFirstStep); got != 0 {
		t.Errorf("calStepParam(max) = %d, want 0", got)
	}
	if calStepParam(0) != maxMVSearchSteps-1 {
		t.Error("range below 1 must clamp to 1")
	}
}
