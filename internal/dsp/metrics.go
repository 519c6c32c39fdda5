package dsp

// SAD and variance metric kernels used by the motion search and the
// skip heuristics.

// SAD returns the sum of absolute differences over a w x h region.
func SAD(src []uint8, srcStride int, ref []uint8, refStride, w, h int) int {
	sad := 0
	for r := 0; r < h; r++ {
		s := src[r*srcStride : r*srcStride+w]
		f := ref[r*refStride : r*refStride+w]
		for c := 0; c < w; c++ {
			d := int(s[c]) - int(f[c])
			if d < 0 {
				d = -d
			}
			sad += d
		}
	}
	return sad
}

// SAD16x16 is the whole-MB SAD kernel.
func SAD16x16(src []uint8, srcStride int, ref []uint8, refStride int) int {
	return SAD(src, srcStride, ref, refStride, 16, 16)
}

// Variance returns (variance, sse) of src vs ref over a w x h region.
func Variance(src []uint8, srcStride int, ref []uint8, refStride, w, h int) (uint32, uint32) {
	sum, sse := 0, 0
	for r := 0; r < h; r++ {
		s := src[r*srcStride : r*srcStride+w]
		f := ref[r*refStride : r*refStride+w]
		for c := 0; c < w; c++ {
			d := int(s[c]) - int(f[c])
			sum += d
			sse += d * d
		}
	}
	v := sse - sum*sum/(w*h)
	return uint32(v), uint32(sse)
}

// Var16x16 returns (variance, sse) of a 16x16 block.
func Var16x16(src []uint8, srcStride int, ref []uint8, refStride int) (uint32, uint32) {
	return Variance(src, srcStride, ref, refStride, 16, 16)
}

// Var8x8 returns (variance, sse) of an 8x8 block.
func Var8x8(src []uint8, srcStride int, ref []uint8, refStride int) (uint32, uint32) {
	return Variance(src, srcStride, ref, refStride, 8, 8)
}

// SubPixVar8x8 fetches an 8x8 region from ref at a sub-pel offset
// (xoff, yoff in eighth-pel) with the bilinear filter and returns its
// (variance, sse) against src.
func SubPixVar8x8(ref []uint8, refStride, xoff, yoff int, src []uint8, srcStride int) (uint32, uint32) {
	var pred [64]uint8
	Interpolate(pred[:], 8, ref, refStride, xoff, yoff, 8, 8)
	return Variance(src, srcStride, pred[:], 8, 8, 8)
}
