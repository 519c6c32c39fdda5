package dsp

import "math"

// Forward and inverse transforms over prediction residuals. The 4x4
// DCT and the Walsh-Hadamard second-order transform use the standard
// VP8 integer butterflies; the 8x8 DCT-II is a fixed-point basis
// product used by the 8x8 transform-size path.

// FDCT4x4 transforms a 16-entry residual block into 16 coefficients.
func FDCT4x4(diff, coeff []int16) {
	_ = diff[15]
	_ = coeff[15]
	// An all-zero residual maps to all-zero coefficients; the rounding
	// offsets of the butterflies alone would leave a 1 at index 1.
	zero := true
	for _, v := range diff[:16] {
		if v != 0 {
			zero = false
			break
		}
	}
	if zero {
		for i := range coeff[:16] {
			coeff[i] = 0
		}
		return
	}
	var tmp [16]int
	for i := 0; i < 4; i++ {
		ip := diff[i*4:]
		a1 := int(ip[0]+ip[3]) * 8
		b1 := int(ip[1]+ip[2]) * 8
		c1 := int(ip[1]-ip[2]) * 8
		d1 := int(ip[0]-ip[3]) * 8
		tmp[i*4+0] = a1 + b1
		tmp[i*4+2] = a1 - b1
		tmp[i*4+1] = (c1*2217 + d1*5352 + 14500) >> 12
		tmp[i*4+3] = (d1*2217 - c1*5352 + 7500) >> 12
	}
	for i := 0; i < 4; i++ {
		a1 := tmp[i] + tmp[i+12]
		b1 := tmp[i+4] + tmp[i+8]
		c1 := tmp[i+4] - tmp[i+8]
		d1 := tmp[i] - tmp[i+12]
		coeff[i] = int16((a1 + b1 + 7) >> 4)
		coeff[i+8] = int16((a1 - b1 + 7) >> 4)
		v := (c1*2217 + d1*5352 + 12000) >> 16
		if d1 != 0 {
			v++
		}
		coeff[i+4] = int16(v)
		coeff[i+12] = int16((d1*2217 - c1*5352 + 51000) >> 16)
	}
}

// FWalsh4x4 applies the second-order Walsh-Hadamard transform to the
// 16 luma DC values.
func FWalsh4x4(diff, coeff []int16) {
	_ = diff[15]
	_ = coeff[15]
	var tmp [16]int
	for i := 0; i < 4; i++ {
		ip := diff[i*4:]
		a1 := int(ip[0]) + int(ip[3])
		b1 := int(ip[1]) + int(ip[2])
		c1 := int(ip[1]) - int(ip[2])
		d1 := int(ip[0]) - int(ip[3])
		tmp[i*4+0] = a1 + b1
		tmp[i*4+1] = c1 + d1
		tmp[i*4+2] = a1 - b1
		tmp[i*4+3] = d1 - c1
	}
	for i := 0; i < 4; i++ {
		a1 := tmp[i] + tmp[i+12]
		b1 := tmp[i+4] + tmp[i+8]
		c1 := tmp[i+4] - tmp[i+8]
		d1 := tmp[i] - tmp[i+12]
		a2 := a1 + b1
		b2 := c1 + d1
		c2 := a1 - b1
		d2 := d1 - c1
		if a2 > 0 {
			a2++
		}
		if b2 > 0 {
			b2++
		}
		if c2 > 0 {
			c2++
		}
		if d2 > 0 {
			d2++
		}
		coeff[i] = int16(a2 >> 1)
		coeff[i+4] = int16(b2 >> 1)
		coeff[i+8] = int16(c2 >> 1)
		coeff[i+12] = int16(d2 >> 1)
	}
}

// dct8Basis is the fixed-point DCT-II basis used by FDCT8x8:
// round(cos((2j+1)*u*pi/16) * c(u) * 4096) with c(0)=1/sqrt(2),
// c(u>0)=1. Filled once at init; integer thereafter.
var dct8Basis [8][8]int

func init() {
	for u := 0; u < 8; u++ {
		cu := 1.0
		if u == 0 {
			cu = math.Sqrt2 / 2
		}
		for j := 0; j < 8; j++ {
			v := cu * math.Cos(float64(2*j+1)*float64(u)*math.Pi/16)
			dct8Basis[u][j] = int(math.Round(v * 4096))
		}
	}
}

// FDCT8x8 transforms a 64-entry residual block (row-major, stride 8)
// into 64 coefficients, scaled to match the 4x4 path's range.
func FDCT8x8(diff, coeff []int16) {
	_ = diff[63]
	_ = coeff[63]
	var tmp [64]int
	for i := 0; i < 8; i++ {
		for u := 0; u < 8; u++ {
			s := 0
			for j := 0; j < 8; j++ {
				s += int(diff[i*8+j]) * dct8Basis[u][j]
			}
			tmp[i*8+u] = (s + 2048) >> 12
		}
	}
	for u := 0; u < 8; u++ {
		for v := 0; v < 8; v++ {
			s := 0
			for i := 0; i < 8; i++ {
				s += tmp[i*8+u] * dct8Basis[v][i]
			}
			coeff[v*8+u] = int16((s + 2048) >> 12)
		}
	}
}

// Inverse 4x4 transform constants.
const (
	kC1 = 20091 // cos(pi/8)*sqrt(2)<<16, minus one
	kC2 = 35468 // sin(pi/8)*sqrt(2)<<16
)

// IDCT4x4Add inverse transforms dqcoeff, adds the 4x4 predictor
// (stride predStride) and stores the clipped samples into dst at
// dstStride.
func IDCT4x4Add(dqcoeff []int16, pred []uint8, predStride int, dst []uint8, dstStride int) {
	_ = dqcoeff[15]
	var tmp [16]int
	for i := 0; i < 4; i++ {
		a1 := int(dqcoeff[i]) + int(dqcoeff[i+8])
		b1 := int(dqcoeff[i]) - int(dqcoeff[i+8])
		t1 := (int(dqcoeff[i+4]) * kC2) >> 16
		t2 := int(dqcoeff[i+12]) + ((int(dqcoeff[i+12]) * kC1) >> 16)
		c1 := t1 - t2
		t1 = int(dqcoeff[i+4]) + ((int(dqcoeff[i+4]) * kC1) >> 16)
		t2 = (int(dqcoeff[i+12]) * kC2) >> 16
		d1 := t1 + t2
		tmp[i] = a1 + d1
		tmp[i+12] = a1 - d1
		tmp[i+4] = b1 + c1
		tmp[i+8] = b1 - c1
	}
	for i := 0; i < 4; i++ {
		a1 := tmp[i*4] + tmp[i*4+3]
		b1 := tmp[i*4] - tmp[i*4+3]
		t1 := (tmp[i*4+1] * kC2) >> 16
		t2 := tmp[i*4+2] + ((tmp[i*4+2] * kC1) >> 16)
		c1 := t1 - t2
		t1 = tmp[i*4+1] + ((tmp[i*4+1] * kC1) >> 16)
		t2 = (tmp[i*4+2] * kC2) >> 16
		d1 := t1 + t2
		row := [4]int{
			(a1 + d1 + 4) >> 3,
			(b1 + c1 + 4) >> 3,
			(b1 - c1 + 4) >> 3,
			(a1 - d1 + 4) >> 3,
		}
		for j, r := range row {
			dst[i*dstStride+j] = Clip8b(r + int(pred[i*predStride+j]))
		}
	}
}
