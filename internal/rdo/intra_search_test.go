package rdo

import "testing"

func TestPickIntra16x16FlatPicksDC(t *testing.T) {
	s, _, _ := newTestSearch()
	s.KeyFrame = true
	mb := newTestMB()

	mode, _, _, dist, rd := s.pickIntra16x16(mb)
	if mode != DCPred {
		t.Errorf("mode = %v, want DCPred for a flat 128 source", mode)
	}
	if dist != 0 {
		t.Errorf("distortion = %d, want 0", dist)
	}
	if rd >= invalidRD {
		t.Error("no candidate scored")
	}
}

func TestPickIntra4x4EarlyOut(t *testing.T) {
	s, _, _ := newTestSearch()
	mb := newTestMB()

	var modes [16]SubMode
	_, _, _, rd := s.pickIntra4x4MBY(mb, &modes, 1)
	if rd != invalidRD {
		t.Errorf("rd = %d, want the sentinel when the budget is one", rd)
	}
}

func TestPickIntra4x4FlatPicksDC(t *testing.T) {
	s, _, _ := newTestSearch()
	s.KeyFrame = true
	mb := newTestMB()

	var modes [16]SubMode
	_, _, dist, rd := s.pickIntra4x4MBY(mb, &modes, invalidRD)
	if rd == invalidRD {
		t.Fatal("search must complete under an unlimited budget")
	}
	if dist != 0 {
		t.Errorf("distortion = %d, want 0", dist)
	}
	for i, m := range modes {
		if m != BDCPred {
			t.Errorf("block %d mode = %v, want BDCPred", i, m)
		}
	}
}

func TestPickIntra8x8Flat(t *testing.T) {
	s, _, _ := newTestSearch()
	mb := newTestMB()

	var modes8 [4]MBMode
	_, _, dist, rd := s.pickIntra8x8MBY(mb, &modes8)
	if rd == invalidRD {
		t.Fatal("8x8 search produced no result")
	}
	if dist != 0 {
		t.Errorf("distortion = %d, want 0", dist)
	}
	for i, m := range modes8 {
		if m != DCPred {
			t.Errorf("region %d mode = %v, want DCPred", i, m)
		}
	}
}

func TestPickIntraUVFlat(t *testing.T) {
	s, _, _ := newTestSearch()
	mb := newTestMB()

	uv := s.pickIntraUV(mb)
	if uv.mode != DCPred {
		t.Errorf("uv mode = %v, want DCPred", uv.mode)
	}
	if uv.dist != 0 {
		t.Errorf("uv distortion = %d", uv.dist)
	}
	if uv.totalEOB != 0 {
		t.Errorf("uv total eob = %d, want 0 for an exact prediction", uv.totalEOB)
	}
}

func TestPickIntraModeFlatKeyframe(t *testing.T) {
	s, _, _ := newTestSearch()
	s.KeyFrame = true
	mb := newTestMB()

	var mi ModeInfo
	rate := s.PickIntraMode(mb, &mi)
	if mi.Ref != IntraFrame {
		t.Errorf("ref = %v, want intra", mi.Ref)
	}
	if mi.Mode != DCPred {
		t.Errorf("mode = %v, want DCPred on a flat key-frame MB", mi.Mode)
	}
	if mi.UVMode != DCPred {
		t.Errorf("uv mode = %v", mi.UVMode)
	}
	if rate <= 0 {
		t.Error("rate must include mode signalling")
	}
}

func TestIntra4x4CommitsReconstruction(t *testing.T) {
	s, _, _ := newTestSearch()
	mb := newTestMB()

	var modes [16]SubMode
	s.pickIntra4x4MBY(mb, &modes, invalidRD)

	// Flat source, exact DC prediction, zero residual: the committed
	// reconstruction equals the source.
	for r := 0; r < 16; r++ {
		for c := 0; c < 16; c++ {
			got := mb.Recon[mb.ReconOff+r*mb.ReconStride+c]
			if got != 128 {
				t.Fatalf("recon[%d,%d] = %d, want 128", r, c, got)
			}
		}
	}
}
