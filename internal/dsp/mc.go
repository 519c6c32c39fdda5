package dsp

// Motion-compensated prediction. Sub-pel samples use the bilinear
// filter; the fractional offsets are in eighth-pel units.

// Interpolate writes a w x h region of ref, offset by (xoff, yoff)
// eighth-pel fractions, into dst. ref must have one extra row and
// column available past the region when a fraction is non-zero.
func Interpolate(dst []uint8, dstStride int, ref []uint8, refStride, xoff, yoff, w, h int) {
	xf := xoff & 7
	yf := yoff & 7
	if xf == 0 && yf == 0 {
		for r := 0; r < h; r++ {
			copy(dst[r*dstStride:r*dstStride+w], ref[r*refStride:r*refStride+w])
		}
		return
	}
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			p00 := int(ref[r*refStride+c])
			p01 := int(ref[r*refStride+c+1])
			p10 := int(ref[(r+1)*refStride+c])
			p11 := int(ref[(r+1)*refStride+c+1])
			top := p00*(8-xf) + p01*xf
			bot := p10*(8-xf) + p11*xf
			dst[r*dstStride+c] = uint8((top*(8-yf) + bot*yf + 32) >> 6)
		}
	}
}

// InterPredict builds a w x h motion-compensated predictor from ref
// at the eighth-pel vector (mvRow, mvCol).
func InterPredict(dst []uint8, dstStride int, ref []uint8, refOff, refStride, mvRow, mvCol, w, h int) {
	base := refOff + (mvRow>>3)*refStride + (mvCol >> 3)
	Interpolate(dst, dstStride, ref[base:], refStride, mvCol&7, mvRow&7, w, h)
}

// AveragePredict averages a second w x h predictor into dst, the
// compound-prediction combiner.
func AveragePredict(dst []uint8, dstStride int, second []uint8, secondStride, w, h int) {
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			v := int(dst[r*dstStride+c]) + int(second[r*secondStride+c])
			dst[r*dstStride+c] = uint8((v + 1) >> 1)
		}
	}
}
