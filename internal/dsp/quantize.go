package dsp

// Block quantization with a separate DC step, producing the quantized
// and dequantized coefficients plus the end-of-block position in the
// supplied scan order.

// QuantFactors is a {DC, AC} quantizer step pair for one plane.
type QuantFactors struct {
	DC, AC int
}

func quantizeOne(v, step int) int16 {
	if step <= 0 {
		step = 1
	}
	neg := v < 0
	if neg {
		v = -v
	}
	q := v / step
	if q > 2047 {
		q = 2047
	}
	if neg {
		q = -q
	}
	return int16(q)
}

// QuantizeBlock quantizes coeff[:n] into qcoeff and dqcoeff, scanning
// in the given order, and returns the eob (index one past the last
// non-zero coefficient in scan order; 0 when the block is empty).
func QuantizeBlock(coeff, qcoeff, dqcoeff []int16, n int, scan []int, q QuantFactors) int {
	eob := 0
	for zz := 0; zz < n; zz++ {
		i := scan[zz]
		step := q.AC
		if i == 0 {
			step = q.DC
		}
		v := quantizeOne(int(coeff[i]), step)
		qcoeff[i] = v
		dqcoeff[i] = int16(int(v) * step)
		if v != 0 {
			eob = zz + 1
		}
	}
	return eob
}
