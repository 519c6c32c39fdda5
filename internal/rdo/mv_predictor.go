package rdo

import "math"

// MV prediction: rank up to eight neighbour MVs (three from the
// current frame, five co-located from the previous frame) by source
// SAD, return the first whose reference matches the target, or the
// per-component median when none does.

// insertSort orders arr ascending in place.
func insertSort(arr []int) {
	for i := 1; i < len(arr); i++ {
		for j := 0; j < i; j++ {
			if arr[j] > arr[i] {
				tmp := arr[i]
				for k := i; k > j; k-- {
					arr[k] = arr[k-1]
				}
				arr[j] = tmp
			}
		}
	}
}

// insertSortSAD orders arr ascending, carrying idx along.
func insertSortSAD(arr, idx []int) {
	for i := 1; i < len(arr); i++ {
		for j := 0; j < i; j++ {
			if arr[j] > arr[i] {
				tmp, tmpi := arr[i], idx[i]
				for k := i; k > j; k-- {
					arr[k] = arr[k-1]
					idx[k] = idx[k-1]
				}
				arr[j] = tmp
				idx[j] = tmpi
			}
		}
	}
}

// mvBias flips the vector when the candidate's reference and the
// target reference sit on opposite sides of the sign-bias split.
func mvBias(candBias, targetBias bool, mv MV) MV {
	if candBias != targetBias {
		return MV{Row: -mv.Row, Col: -mv.Col}
	}
	return mv
}

// collectNearMVs gathers the candidate vectors and their references.
// The slot count is fixed (3 current-frame, then 5 last-frame slots
// when the previous frame carries MVs); empty slots keep IntraFrame.
func (s *Search) collectNearMVs(mb *Macroblock, target RefFrame) (mvs [8]MV, refs [8]RefFrame, vcnt int) {
	targetBias := s.SignBias[target]

	put := func(mi *ModeInfo) {
		if mi != nil && mi.Ref != IntraFrame {
			mvs[vcnt] = mvBias(s.SignBias[mi.Ref], targetBias, mi.MV)
			refs[vcnt] = mi.Ref
		}
		vcnt++
	}
	put(mb.AboveMI)
	put(mb.LeftMI)
	put(mb.AboveLeftMI)

	if !s.LastFrameIsKey {
		for i := 0; i < 5; i++ {
			if mb.LastRefs[i] != IntraFrame {
				mvs[vcnt] = mvBias(mb.LastSignBias[i], targetBias, mb.LastMVs[i])
				refs[vcnt] = mb.LastRefs[i]
			}
			vcnt++
		}
	}
	return mvs, refs, vcnt
}

// mvPred derives the predicted MV for the target reference and a
// search-range hint: 3 when the match came from a current-frame
// neighbour, 2 from a last-frame one, 0 for the median fallback
// ("caller decides").
func (s *Search) mvPred(mb *Macroblock, target RefFrame, nearSADIdx *[8]int) (mvp MV, sr int) {
	if target == IntraFrame {
		return MV{}, 0
	}

	mvs, refs, vcnt := s.collectNearMVs(mb, target)

	for i := 0; i < vcnt; i++ {
		c := nearSADIdx[i]
		if refs[c] == target {
			mvp = mvs[c]
			if c < 3 {
				sr = 3
			} else {
				sr = 2
			}
			return mb.clampMV(mvp), sr
		}
	}

	// No reference match: fall back to the per-component median of
	// all candidate slots.
	var rows, cols [8]int
	for i := 0; i < vcnt; i++ {
		rows[i] = int(mvs[i].Row)
		cols[i] = int(mvs[i].Col)
	}
	insertSort(rows[:vcnt])
	insertSort(cols[:vcnt])
	mvp = MV{Row: int16(rows[vcnt/2]), Col: int16(cols[vcnt/2])}
	return mb.clampMV(mvp), 0
}

// calNearSAD ranks the eight candidate positions by their SAD against
// the current source block, writing the order into nearSADIdx. Slots
// that fall outside the frame stay at the tail with a maximal SAD.
func (s *Search) calNearSAD(mb *Macroblock, nearSADIdx *[8]int) {
	var sad [8]int
	for i := range sad {
		nearSADIdx[i] = i
	}

	hasTop := mb.ToTopEdge != 0
	hasLeft := mb.ToLeftEdge != 0
	src := mb.SrcY[:]

	recon := mb.Recon
	rs := mb.ReconStride
	switch {
	case !hasTop && !hasLeft:
		sad[0], sad[1], sad[2] = math.MaxInt32, math.MaxInt32, math.MaxInt32
	case !hasTop:
		sad[0], sad[2] = math.MaxInt32, math.MaxInt32
		sad[1] = s.Metrics.SAD16x16(src, 16, recon[mb.ReconOff-16:], rs)
	case !hasLeft:
		sad[1], sad[2] = math.MaxInt32, math.MaxInt32
		sad[0] = s.Metrics.SAD16x16(src, 16, recon[mb.ReconOff-rs*16:], rs)
	default:
		sad[0] = s.Metrics.SAD16x16(src, 16, recon[mb.ReconOff-rs*16:], rs)
		sad[1] = s.Metrics.SAD16x16(src, 16, recon[mb.ReconOff-16:], rs)
		sad[2] = s.Metrics.SAD16x16(src, 16, recon[mb.ReconOff-rs*16-16:], rs)
	}

	n := 3
	if ref := mb.Refs[LastFrame]; !s.LastFrameIsKey && ref != nil {
		ps := ref.YStride
		sad[4], sad[5], sad[6], sad[7] = math.MaxInt32, math.MaxInt32, math.MaxInt32, math.MaxInt32
		sad[3] = s.Metrics.SAD16x16(src, 16, ref.Y[ref.YOff:], ps)
		if hasTop {
			sad[4] = s.Metrics.SAD16x16(src, 16, ref.Y[ref.YOff-ps*16:], ps)
		}
		if hasLeft {
			sad[5] = s.Metrics.SAD16x16(src, 16, ref.Y[ref.YOff-16:], ps)
		}
		if mb.ToRightEdge != 0 {
			sad[6] = s.Metrics.SAD16x16(src, 16, ref.Y[ref.YOff+16:], ps)
		}
		if mb.ToBottomEdge != 0 {
			sad[7] = s.Metrics.SAD16x16(src, 16, ref.Y[ref.YOff+ps*16:], ps)
		}
		n = 8
	}
	insertSortSAD(sad[:n], nearSADIdx[:n])
}
