package rdo

import "testing"

func TestModeOrderShape(t *testing.T) {
	if len(modeOrder) != maxModes {
		t.Fatalf("mode order has %d entries, want %d", len(modeOrder), maxModes)
	}

	// The driver relies on named slots for threshold borrowing.
	if modeOrder[thrNewMV] != (candidate{NewMV, LastFrame, IntraFrame}) {
		t.Errorf("thrNewMV slot holds %+v", modeOrder[thrNewMV])
	}
	if modeOrder[thrNewG] != (candidate{NewMV, GoldenFrame, IntraFrame}) {
		t.Errorf("thrNewG slot holds %+v", modeOrder[thrNewG])
	}
	if modeOrder[thrNewA] != (candidate{NewMV, AltRefFrame, IntraFrame}) {
		t.Errorf("thrNewA slot holds %+v", modeOrder[thrNewA])
	}
	if modeOrder[thrSplit].Mode != SplitMV {
		t.Errorf("thrSplit slot holds %+v", modeOrder[thrSplit])
	}

	// Compound candidates name two distinct non-intra references.
	for i, c := range modeOrder {
		if c.SecondRef == IntraFrame {
			continue
		}
		if c.Ref == IntraFrame || c.Ref == c.SecondRef {
			t.Errorf("candidate %d: bad compound pair (%v, %v)", i, c.Ref, c.SecondRef)
		}
		if c.kind() != candInterCompound {
			t.Errorf("candidate %d: kind = %v", i, c.kind())
		}
	}
}

func TestCandidateKinds(t *testing.T) {
	tests := []struct {
		c    candidate
		want candidateKind
	}{
		{candidate{DCPred, IntraFrame, IntraFrame}, candIntra16},
		{candidate{TMPred, IntraFrame, IntraFrame}, candIntra16},
		{candidate{BPred, IntraFrame, IntraFrame}, candIntraB},
		{candidate{I8x8Pred, IntraFrame, IntraFrame}, candIntra8x8},
		{candidate{SplitMV, LastFrame, IntraFrame}, candSplit},
		{candidate{NewMV, LastFrame, IntraFrame}, candInterSingle},
		{candidate{ZeroMV, AltRefFrame, IntraFrame}, candInterSingle},
		{candidate{NearMV, GoldenFrame, AltRefFrame}, candInterCompound},
	}
	for _, tt := range tests {
		if got := tt.c.kind(); got != tt.want {
			t.Errorf("kind(%+v) = %v, want %v", tt.c, got, tt.want)
		}
	}
}

func TestMBSplitTables(t *testing.T) {
	for p := Partition(0); p < numPartitions; p++ {
		count := mbSplitCount[p]
		seen := map[int]bool{}
		for _, l := range mbSplits[p] {
			if l < 0 || l >= count {
				t.Fatalf("partition %d: label %d out of range", p, l)
			}
			seen[l] = true
		}
		if len(seen) != count {
			t.Errorf("partition %d: %d distinct labels, want %d", p, len(seen), count)
		}
		for i := 0; i < count; i++ {
			off := mbSplitOffset[p][i]
			if mbSplits[p][off] != i {
				t.Errorf("partition %d: offset %d does not start label %d", p, off, i)
			}
		}
	}
}

func TestZigzag8x8IsPermutation(t *testing.T) {
	var seen [64]bool
	for _, z := range zigzag8x8 {
		if z < 0 || z >= 64 || seen[z] {
			t.Fatalf("bad zigzag entry %d", z)
		}
		seen[z] = true
	}
}

func TestContextIndexTables(t *testing.T) {
	for b := 0; b < numCoded; b++ {
		for _, tbl := range [][numCoded]int{block2Above, block2Left, block2Above8x8, block2Left8x8} {
			if tbl[b] < 0 || tbl[b] > 8 {
				t.Fatalf("context index %d out of range for block %d", tbl[b], b)
			}
		}
	}
	if block2Above[y2Block] != 8 || block2Left[y2Block] != 8 {
		t.Error("Y2 block must map to the ninth context entry")
	}
}

func TestMVRefProbsClamped(t *testing.T) {
	p := mvRefProbs([4]int{0, 3, 5, 9})
	for i, v := range p {
		if v < 1 {
			t.Errorf("prob %d = %d, want >= 1", i, v)
		}
	}
}
