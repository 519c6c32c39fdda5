package rdo

import "testing"

func TestLabels2ModeCanonicalization(t *testing.T) {
	s, _, _ := newTestSearch()
	mb := newTestMB()
	mb.AboveMI = &ModeInfo{Mode: NearestMV, Ref: LastFrame, MV: MV{Row: 4, Col: 4}}

	labels := &mbSplits[Block8x8]
	var bmi [16]BModeInfo

	// Label 0 first: give block 1 (left neighbour of label 1's first
	// block) the same MV the ABOVE neighbour carries.
	mv0 := MV{Row: 4, Col: 4}
	s.labels2Mode(mb, &bmi, labels, 0, New4x4, &mv0, MV{})

	// Label 1 starts at block 2; ABOVE4X4 resolves to the above MB's
	// MV, which matches the left neighbour, so the sub-mode must
	// collapse to LEFT4X4.
	var mv MV
	s.labels2Mode(mb, &bmi, labels, 1, Above4x4, &mv, MV{})

	if mv != (MV{Row: 4, Col: 4}) {
		t.Fatalf("resolved MV = %+v, want the above neighbour's {4 4}", mv)
	}
	if bmi[2].Mode != Left4x4 {
		t.Errorf("sub-mode = %v, want Left4x4 after canonicalization", bmi[2].Mode)
	}
}

func TestLabels2ModeZero(t *testing.T) {
	s, _, _ := newTestSearch()
	mb := newTestMB()

	labels := &mbSplits[Block16x8]
	var bmi [16]BModeInfo
	mv := MV{Row: 99, Col: 99}
	cost := s.labels2Mode(mb, &bmi, labels, 0, Zero4x4, &mv, MV{})

	if !mv.IsZero() {
		t.Errorf("ZERO4X4 must resolve the MV to zero, got %+v", mv)
	}
	if cost <= 0 {
		t.Error("labelling must cost the sub-mode bits")
	}
	for i := 0; i < 8; i++ {
		if bmi[i].MV != (MV{}) {
			t.Fatalf("block %d MV = %+v", i, bmi[i].MV)
		}
	}
	// Continuation blocks of the label are LEFT/ABOVE markers.
	if bmi[1].Mode != Left4x4 {
		t.Errorf("block 1 mode = %v, want Left4x4 continuation", bmi[1].Mode)
	}
	if bmi[4].Mode != Above4x4 {
		t.Errorf("block 4 mode = %v, want Above4x4 continuation", bmi[4].Mode)
	}
}

func TestSegmentationEarlyOut(t *testing.T) {
	s, _, _ := newTestSearch()
	s.CompressorSpeed = 0
	mb := newTestMB()
	ref := newFlatRef(128)
	mb.Refs[LastFrame] = ref

	// A best-rd below the split-selector cost alone: every shape aborts
	// after its first label and nothing is snapshotted.
	res := s.rdPickBestSegmentation(mb, ref, MV{}, 1, [4]int{5, 2, 2, 2}, 0)

	if res.rd != 1 {
		t.Errorf("rd = %d, want the caller's bound untouched", res.rd)
	}
	if res.rate != 0 || res.dist != 0 {
		t.Errorf("rate/dist = %d/%d, want 0/0 with no snapshot", res.rate, res.dist)
	}
}

func TestSegmentationFlatPicksZeroSubModes(t *testing.T) {
	s, _, _ := newTestSearch()
	s.CompressorSpeed = 0
	mb := newTestMB()
	ref := newFlatRef(128)
	mb.Refs[LastFrame] = ref

	res := s.rdPickBestSegmentation(mb, ref, MV{}, invalidRD, [4]int{5, 2, 2, 2}, 0)

	if res.rd >= invalidRD {
		t.Fatal("segmentation found no shape under an unlimited budget")
	}
	if res.count != mbSplitCount[res.partition] {
		t.Errorf("count = %d, partition %d wants %d",
			res.count, res.partition, mbSplitCount[res.partition])
	}
	// Flat content on a flat reference: zero vectors everywhere.
	for i := 0; i < 16; i++ {
		if !res.bmi[i].MV.IsZero() {
			t.Errorf("block %d MV = %+v, want zero", i, res.bmi[i].MV)
		}
		if res.eobs[i] != 0 {
			t.Errorf("block %d eob = %d, want 0", i, res.eobs[i])
		}
	}
	if !res.mv.IsZero() {
		t.Errorf("MB-level MV = %+v", res.mv)
	}
}

func TestSegmentationPartitionCounts(t *testing.T) {
	// Spec'd shape/count pairing.
	want := map[Partition]int{Block16x8: 2, Block8x16: 2, Block8x8: 4, Block4x4: 16}
	for p, n := range want {
		if mbSplitCount[p] != n {
			t.Errorf("partition %d count = %d, want %d", p, mbSplitCount[p], n)
		}
	}
}

func TestSegmentationFastPathRuns8x8First(t *testing.T) {
	s, _, _ := newTestSearch()
	s.CompressorSpeed = 1
	mb := newTestMB()
	ref := newFlatRef(128)
	mb.Refs[LastFrame] = ref

	res := s.rdPickBestSegmentation(mb, ref, MV{}, invalidRD, [4]int{5, 2, 2, 2}, 0)
	if res.rd >= invalidRD {
		t.Fatal("fast path found nothing")
	}
	// The window must be restored after the tightened searches.
	if mb.MVRowMin != -16 || mb.MVRowMax != 16 || mb.MVColMin != -16 || mb.MVColMax != 16 {
		t.Error("MV window not restored after the fast-path searches")
	}
}
