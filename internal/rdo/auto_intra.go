package rdo

// Key-frame and intra-refresh decision: run the three intra shapes
// plus the chroma search and keep the cheapest.

// PickIntraMode picks the best intra-only decision for the MB and
// commits it into mi. The returned rate includes the chroma mode once.
func (s *Search) PickIntraMode(mb *Macroblock, mi *ModeInfo) (rate int) {
	mi.Ref = IntraFrame
	mi.SecondRef = IntraFrame
	mi.SegmentID = mb.SegmentID

	uv := s.pickIntraUV(mb)
	rate = uv.rate
	mi.UVMode = uv.mode

	mode16, rate16, _, _, error16 := s.pickIntra16x16(mb)

	var modes8 [4]MBMode
	rate8, _, _, error8 := s.pickIntra8x8MBY(mb, &modes8)

	var modes4 [16]SubMode
	rate4, _, _, error4 := s.pickIntra4x4MBY(mb, &modes4, error16)

	pick16 := func() {
		mi.Mode = mode16
		rate += rate16
	}
	pick4 := func() {
		mi.Mode = BPred
		mi.SubModes = modes4
		rate += rate4
	}
	pick8 := func() {
		mi.Mode = I8x8Pred
		for i, ib := range i8x8Blocks {
			m := SubMode(modes8[i])
			mi.SubModes[ib] = m
			mi.SubModes[ib+1] = m
			mi.SubModes[ib+4] = m
			mi.SubModes[ib+5] = m
		}
		rate += rate8
	}

	if error8 > error16 {
		if error4 < error16 {
			pick4()
		} else {
			pick16()
		}
	} else {
		if error4 < error8 {
			pick4()
		} else {
			pick8()
		}
	}
	return rate
}
