// Package mcomp implements the motion-vector search stages consumed
// by the mode-decision core: coarse-to-fine diamond search, exhaustive
// full search, 1-away refinement and sub-pel refinement.
package mcomp

import (
	"math"

	"github.com/deepteams/vp8enc/internal/dsp"
	"github.com/deepteams/vp8enc/internal/rdo"
)

// Searcher is the default rdo.MotionSearcher. The SAD stages charge a
// per-bit motion cost proportional to the full-pel distance from the
// reference vector; the sub-pel stage scores SSE plus errorPerBit.
type Searcher struct{}

const maxSearchSteps = 8

func shapeDims(shape rdo.SearchShape) (w, h int) {
	switch shape {
	case rdo.Shape16x8:
		return 16, 8
	case rdo.Shape8x16:
		return 8, 16
	case rdo.Shape8x8:
		return 8, 8
	case rdo.Shape4x4:
		return 4, 4
	}
	return 16, 16
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// regionSAD measures the shape region whose top-left 4x4 block is b,
// displaced by the full-pel vector (fr, fc).
func regionSAD(mb *rdo.Macroblock, b int, shape rdo.SearchShape, ref *rdo.RefView, fr, fc int) int {
	w, h := shapeDims(shape)
	by, bx := (b>>2)*4, (b&3)*4
	src := mb.SrcY[by*16+bx:]
	refOff := ref.YOff + (by+fr)*ref.YStride + bx + fc
	return dsp.SAD(src, 16, ref.Y[refOff:], ref.YStride, w, h)
}

// mvSADCost approximates the vector signalling cost during the SAD
// stages: per-bit cost times the full-pel distance from the reference.
func mvSADCost(fr, fc int, refMV rdo.MV, sadPerBit int) int {
	dr := absInt(fr - int(refMV.Row)>>3)
	dc := absInt(fc - int(refMV.Col)>>3)
	return (dr + dc) * sadPerBit
}

func clampFull(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DiamondSearch walks a shrinking diamond from start (full-pel
// units). num00 counts the trailing scales at which the centre stayed
// best; the caller uses it to skip redundant further-step passes.
func (Searcher) DiamondSearch(mb *rdo.Macroblock, b int, shape rdo.SearchShape, ref *rdo.RefView,
	start rdo.MV, step, sadPerBit int, refMV rdo.MV) (rdo.MV, int, int) {

	fr := clampFull(int(start.Row), mb.MVRowMin, mb.MVRowMax)
	fc := clampFull(int(start.Col), mb.MVColMin, mb.MVColMax)
	bestCost := regionSAD(mb, b, shape, ref, fr, fc) + mvSADCost(fr, fc, refMV, sadPerBit)

	radius := 1 << uint(maxSearchSteps-1-clampFull(step, 0, maxSearchSteps-1))
	num00 := 0
	for ; radius >= 1; radius >>= 1 {
		improved := false
		for moved := true; moved; {
			moved = false
			cr, cc := fr, fc
			for _, d := range [4][2]int{{-radius, 0}, {radius, 0}, {0, -radius}, {0, radius}} {
				nr, nc := cr+d[0], cc+d[1]
				if nr < mb.MVRowMin || nr > mb.MVRowMax || nc < mb.MVColMin || nc > mb.MVColMax {
					continue
				}
				cost := regionSAD(mb, b, shape, ref, nr, nc) + mvSADCost(nr, nc, refMV, sadPerBit)
				if cost < bestCost {
					bestCost = cost
					fr, fc = nr, nc
					moved = true
					improved = true
				}
			}
		}
		if improved {
			num00 = 0
		} else {
			num00++
		}
	}
	return rdo.MV{Row: int16(fr << 3), Col: int16(fc << 3)}, bestCost, num00
}

// FullSearch exhaustively scans a square of the given full-pel radius
// around start.
func (Searcher) FullSearch(mb *rdo.Macroblock, b int, shape rdo.SearchShape, ref *rdo.RefView,
	start rdo.MV, sadPerBit, distance int, refMV rdo.MV) (rdo.MV, int) {

	br := clampFull(int(start.Row), mb.MVRowMin, mb.MVRowMax)
	bc := clampFull(int(start.Col), mb.MVColMin, mb.MVColMax)
	bestCost := math.MaxInt32
	bestR, bestC := br, bc
	for r := br - distance; r <= br+distance; r++ {
		if r < mb.MVRowMin || r > mb.MVRowMax {
			continue
		}
		for c := bc - distance; c <= bc+distance; c++ {
			if c < mb.MVColMin || c > mb.MVColMax {
				continue
			}
			cost := regionSAD(mb, b, shape, ref, r, c) + mvSADCost(r, c, refMV, sadPerBit)
			if cost < bestCost {
				bestCost = cost
				bestR, bestC = r, c
			}
		}
	}
	return rdo.MV{Row: int16(bestR << 3), Col: int16(bestC << 3)}, bestCost
}

// RefiningSearch runs up to searchRange rounds of 1-away refinement
// around mv (eighth-pel in, eighth-pel out).
func (Searcher) RefiningSearch(mb *rdo.Macroblock, b int, shape rdo.SearchShape, ref *rdo.RefView,
	mv rdo.MV, sadPerBit, searchRange int, refMV rdo.MV) (rdo.MV, int) {

	fr, fc := int(mv.Row)>>3, int(mv.Col)>>3
	bestCost := regionSAD(mb, b, shape, ref, fr, fc) + mvSADCost(fr, fc, refMV, sadPerBit)
	for i := 0; i < searchRange; i++ {
		improved := false
		for _, d := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
			nr, nc := fr+d[0], fc+d[1]
			if nr < mb.MVRowMin || nr > mb.MVRowMax || nc < mb.MVColMin || nc > mb.MVColMax {
				continue
			}
			cost := regionSAD(mb, b, shape, ref, nr, nc) + mvSADCost(nr, nc, refMV, sadPerBit)
			if cost < bestCost {
				bestCost = cost
				fr, fc = nr, nc
				improved = true
			}
		}
		if !improved {
			break
		}
	}
	return rdo.MV{Row: int16(fr << 3), Col: int16(fc << 3)}, bestCost
}

// subPelSSE scores an eighth-pel candidate by interpolated SSE.
func subPelSSE(mb *rdo.Macroblock, b int, shape rdo.SearchShape, ref *rdo.RefView, mvRow, mvCol int) int {
	w, h := shapeDims(shape)
	by, bx := (b>>2)*4, (b&3)*4
	var pred [256]uint8
	base := ref.YOff + by*ref.YStride + bx
	dsp.InterPredict(pred[:], w, ref.Y, base, ref.YStride, mvRow, mvCol, w, h)
	_, sse := dsp.Variance(mb.SrcY[by*16+bx:], 16, pred[:], w, w, h)
	return int(sse)
}

// FractionalStep refines mv to half- then quarter-pel precision,
// scoring SSE plus an errorPerBit-weighted vector cost against refMV.
func (Searcher) FractionalStep(mb *rdo.Macroblock, b int, shape rdo.SearchShape, ref *rdo.RefView,
	mv, refMV rdo.MV, errorPerBit int) (rdo.MV, int, uint32) {

	score := func(r, c int) int {
		sse := subPelSSE(mb, b, shape, ref, r, c)
		bits := (absInt(r-int(refMV.Row)) + absInt(c-int(refMV.Col))) >> 1
		return sse + bits*errorPerBit
	}

	br, bc := int(mv.Row), int(mv.Col)
	bestCost := score(br, bc)
	for _, stepSize := range [2]int{4, 2} {
		improved := true
		for improved {
			improved = false
			for _, d := range [4][2]int{{-stepSize, 0}, {stepSize, 0}, {0, -stepSize}, {0, stepSize}} {
				nr, nc := br+d[0], bc+d[1]
				if nr>>3 < mb.MVRowMin || nr>>3 > mb.MVRowMax ||
					nc>>3 < mb.MVColMin || nc>>3 > mb.MVColMax {
					continue
				}
				cost := score(nr, nc)
				if cost < bestCost {
					bestCost = cost
					br, bc = nr, nc
					improved = true
				}
			}
		}
	}

	out := rdo.MV{Row: int16(br), Col: int16(bc)}
	sse := subPelSSE(mb, b, shape, ref, br, bc)
	return out, sse, uint32(sse)
}
