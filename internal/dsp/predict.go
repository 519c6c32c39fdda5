// Package dsp provides the low-level kernels of the mode-decision
// core: intra predictor sample generation, forward/inverse transforms,
// quantization, motion-compensated prediction and the SAD/variance
// metric kernels.
package dsp

// Intra prediction.
//
// Convention: each predictor receives a destination buffer, an offset
// and a row stride such that dst[off] is the top-left pixel of the
// block. Reference samples live before off:
//   - dst[off - stride + i] : top row (4x4 modes read up to 8 samples)
//   - dst[off - 1 + j*stride] : left column
//   - dst[off - stride - 1]   : top-left corner
//
// Using an explicit offset keeps all slice indices non-negative, which
// is required by Go's runtime bounds checking. Callers pre-fill the
// border samples (127/129 defaults at frame edges) and remap the DC
// mode to its NoTop/NoLeft variants where context is missing.

// Whole-block prediction modes for PredLuma16 and Pred8.
const (
	PredDC = iota
	PredTM
	PredVE
	PredHE
	PredDCNoTop
	PredDCNoLeft
	PredDCNoTopLeft
)

// 4x4 prediction modes for PredLuma4.
const (
	PredDC4 = iota
	PredTM4
	PredVE4
	PredHE4
	PredRD4
	PredVR4
	PredLD4
	PredVL4
	PredHD4
	PredHU4
)

// Clip8b clamps v to the unsigned 8-bit sample range.
func Clip8b(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// avg3 returns (a + 2*b + c + 2) >> 2.
func avg3(a, b, c uint8) uint8 {
	return uint8((int(a) + 2*int(b) + int(c) + 2) >> 2)
}

// avg2 returns (a + b + 1) >> 1.
func avg2(a, b uint8) uint8 {
	return uint8((int(a) + int(b) + 1) >> 1)
}

// ---------- square DC/TM/VE/HE bodies, parametric in block size ----------

func dcN(dst []byte, off, stride, n, round, shift int) {
	dc := 0
	for i := 0; i < n; i++ {
		dc += int(dst[off+i-stride])
		dc += int(dst[off-1+i*stride])
	}
	fillN(dst, off, stride, n, uint8((dc+round)>>shift))
}

func dcNNoTop(dst []byte, off, stride, n, round, shift int) {
	dc := 0
	for i := 0; i < n; i++ {
		dc += int(dst[off-1+i*stride])
	}
	fillN(dst, off, stride, n, uint8((dc+round)>>shift))
}

func dcNNoLeft(dst []byte, off, stride, n, round, shift int) {
	dc := 0
	for i := 0; i < n; i++ {
		dc += int(dst[off+i-stride])
	}
	fillN(dst, off, stride, n, uint8((dc+round)>>shift))
}

func fillN(dst []byte, off, stride, n int, v uint8) {
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			dst[off+i+j*stride] = v
		}
	}
}

func tmN(dst []byte, off, stride, n int) {
	tl := int(dst[off-1-stride])
	for j := 0; j < n; j++ {
		base := int(dst[off-1+j*stride]) - tl
		rowOff := off + j*stride
		for i := 0; i < n; i++ {
			dst[rowOff+i] = Clip8b(base + int(dst[off+i-stride]))
		}
	}
}

func veN(dst []byte, off, stride, n int) {
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			dst[off+i+j*stride] = dst[off+i-stride]
		}
	}
}

func heN(dst []byte, off, stride, n int) {
	for j := 0; j < n; j++ {
		v := dst[off-1+j*stride]
		for i := 0; i < n; i++ {
			dst[off+i+j*stride] = v
		}
	}
}

func predSquare(mode int, dst []byte, off, stride, n int) {
	// DC rounding for 2n samples; the No* variants halve both.
	round, shift := 16, 5
	if n == 8 {
		round, shift = 8, 4
	}
	switch mode {
	case PredDC:
		dcN(dst, off, stride, n, round, shift)
	case PredTM:
		tmN(dst, off, stride, n)
	case PredVE:
		veN(dst, off, stride, n)
	case PredHE:
		heN(dst, off, stride, n)
	case PredDCNoTop:
		dcNNoTop(dst, off, stride, n, round>>1, shift-1)
	case PredDCNoLeft:
		dcNNoLeft(dst, off, stride, n, round>>1, shift-1)
	case PredDCNoTopLeft:
		fillN(dst, off, stride, n, 128)
	}
}

// PredLuma16 writes a 16x16 intra predictor for mode.
func PredLuma16(mode int, dst []byte, off, stride int) {
	predSquare(mode, dst, off, stride, 16)
}

// Pred8 writes an 8x8 intra predictor for mode; it serves both the
// chroma planes and the luma 8x8 region modes.
func Pred8(mode int, dst []byte, off, stride int) {
	predSquare(mode, dst, off, stride, 8)
}

// ---------- 4x4 prediction modes ----------

func dc4(dst []byte, off, stride int) {
	dc := 0
	for i := 0; i < 4; i++ {
		dc += int(dst[off+i-stride])
		dc += int(dst[off-1+i*stride])
	}
	v := uint8((dc + 4) >> 3)
	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			dst[off+i+j*stride] = v
		}
	}
}

func tm4(dst []byte, off, stride int) {
	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			v := int(dst[off-1+j*stride]) + int(dst[off+i-stride]) - int(dst[off-1-stride])
			dst[off+i+j*stride] = Clip8b(v)
		}
	}
}

func ve4(dst []byte, off, stride int) {
	topM1 := dst[off-1-stride]
	top0 := dst[off+0-stride]
	top1 := dst[off+1-stride]
	top2 := dst[off+2-stride]
	top3 := dst[off+3-stride]
	top4 := dst[off+4-stride]
	vals := [4]uint8{
		avg3(topM1, top0, top1),
		avg3(top0, top1, top2),
		avg3(top1, top2, top3),
		avg3(top2, top3, top4),
	}
	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			dst[off+i+j*stride] = vals[i]
		}
	}
}

func he4(dst []byte, off, stride int) {
	tl := dst[off-1-stride]
	l0 := dst[off-1+0*stride]
	l1 := dst[off-1+1*stride]
	l2 := dst[off-1+2*stride]
	l3 := dst[off-1+3*stride]
	vals := [4]uint8{
		avg3(tl, l0, l1),
		avg3(l0, l1, l2),
		avg3(l1, l2, l3),
		avg3(l2, l3, l3),
	}
	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			dst[off+i+j*stride] = vals[j]
		}
	}
}

func rd4(dst []byte, off, stride int) {
	tl := dst[off-1-stride]
	t0 := dst[off+0-stride]
	t1 := dst[off+1-stride]
	t2 := dst[off+2-stride]
	t3 := dst[off+3-stride]
	l0 := dst[off-1+0*stride]
	l1 := dst[off-1+1*stride]
	l2 := dst[off-1+2*stride]
	l3 := dst[off-1+3*stride]

	dst[off+0+3*stride] = avg3(l3, l2, l1)
	dst[off+0+2*stride] = avg3(l2, l1, l0)
	dst[off+1+3*stride] = avg3(l2, l1, l0)
	dst[off+0+1*stride] = avg3(l1, l0, tl)
	dst[off+1+2*stride] = avg3(l1, l0, tl)
	dst[off+2+3*stride] = avg3(l1, l0, tl)
	dst[off+0+0*stride] = avg3(l0, tl, t0)
	dst[off+1+1*stride] = avg3(l0, tl, t0)
	dst[off+2+2*stride] = avg3(l0, tl, t0)
	dst[off+3+3*stride] = avg3(l0, tl, t0)
	dst[off+1+0*stride] = avg3(tl, t0, t1)
	dst[off+2+1*stride] = avg3(tl, t0, t1)
	dst[off+3+2*stride] = avg3(tl, t0, t1)
	dst[off+2+0*stride] = avg3(t0, t1, t2)
	dst[off+3+1*stride] = avg3(t0, t1, t2)
	dst[off+3+0*stride] = avg3(t1, t2, t3)
}

func vr4(dst []byte, off, stride int) {
	tl := dst[off-1-stride]
	t0 := dst[off+0-stride]
	t1 := dst[off+1-stride]
	t2 := dst[off+2-stride]
	t3 := dst[off+3-stride]
	l0 := dst[off-1+0*stride]
	l1 := dst[off-1+1*stride]
	l2 := dst[off-1+2*stride]

	dst[off+0+0*stride] = avg2(tl, t0)
	dst[off+1+0*stride] = avg2(t0, t1)
	dst[off+2+0*stride] = avg2(t1, t2)
	dst[off+3+0*stride] = avg2(t2, t3)

	dst[off+0+1*stride] = avg3(l0, tl, t0)
	dst[off+1+1*stride] = avg3(tl, t0, t1)
	dst[off+2+1*stride] = avg3(t0, t1, t2)
	dst[off+3+1*stride] = avg3(t1, t2, t3)

	dst[off+0+2*stride] = avg3(l1, l0, tl)
	dst[off+1+2*stride] = dst[off+0+0*stride]
	dst[off+2+2*stride] = dst[off+1+0*stride]
	dst[off+3+2*stride] = dst[off+2+0*stride]

	dst[off+0+3*stride] = avg3(l2, l1, l0)
	dst[off+1+3*stride] = dst[off+0+1*stride]
	dst[off+2+3*stride] = dst[off+1+1*stride]
	dst[off+3+3*stride] = dst[off+2+1*stride]
}

func ld4(dst []byte, off, stride int) {
	a := dst[off+0-stride]
	b := dst[off+1-stride]
	c := dst[off+2-stride]
	d := dst[off+3-stride]
	e := dst[off+4-stride]
	f := dst[off+5-stride]
	g := dst[off+6-stride]
	h := dst[off+7-stride]

	dst[off+0+0*stride] = avg3(a, b, c)
	dst[off+1+0*stride] = avg3(b, c, d)
	dst[off+0+1*stride] = avg3(b, c, d)
	dst[off+2+0*stride] = avg3(c, d, e)
	dst[off+1+1*stride] = avg3(c, d, e)
	dst[off+0+2*stride] = avg3(c, d, e)
	dst[off+3+0*stride] = avg3(d, e, f)
	dst[off+2+1*stride] = avg3(d, e, f)
	dst[off+1+2*stride] = avg3(d, e, f)
	dst[off+0+3*stride] = avg3(d, e, f)
	dst[off+3+1*stride] = avg3(e, f, g)
	dst[off+2+2*stride] = avg3(e, f, g)
	dst[off+1+3*stride] = avg3(e, f, g)
	dst[off+3+2*stride] = avg3(f, g, h)
	dst[off+2+3*stride] = avg3(f, g, h)
	dst[off+3+3*stride] = avg3(g, h, h)
}

func vl4(dst []byte, off, stride int) {
	a := dst[off+0-stride]
	b := dst[off+1-stride]
	c := dst[off+2-stride]
	d := dst[off+3-stride]
	e := dst[off+4-stride]
	f := dst[off+5-stride]
	g := dst[off+6-stride]
	h := dst[off+7-stride]

	dst[off+0+0*stride] = avg2(a, b)
	dst[off+1+0*stride] = avg2(b, c)
	dst[off+0+2*stride] = avg2(b, c)
	dst[off+2+0*stride] = avg2(c, d)
	dst[off+1+2*stride] = avg2(c, d)
	dst[off+3+0*stride] = avg2(d, e)
	dst[off+2+2*stride] = avg2(d, e)

	dst[off+0+1*stride] = avg3(a, b, c)
	dst[off+1+1*stride] = avg3(b, c, d)
	dst[off+0+3*stride] = avg3(b, c, d)
	dst[off+2+1*stride] = avg3(c, d, e)
	dst[off+1+3*stride] = avg3(c, d, e)
	dst[off+3+1*stride] = avg3(d, e, f)
	dst[off+2+3*stride] = avg3(d, e, f)
	dst[off+3+2*stride] = avg3(e, f, g)
	dst[off+3+3*stride] = avg3(f, g, h)
}

func hd4(dst []byte, off, stride int) {
	tl := dst[off-1-stride]
	t0 := dst[off+0-stride]
	t1 := dst[off+1-stride]
	t2 := dst[off+2-stride]
	l0 := dst[off-1+0*stride]
	l1 := dst[off-1+1*stride]
	l2 := dst[off-1+2*stride]
	l3 := dst[off-1+3*stride]

	dst[off+0+0*stride] = avg2(tl, l0)
	dst[off+1+0*stride] = avg3(l0, tl, t0)
	dst[off+2+0*stride] = avg3(tl, t0, t1)
	dst[off+3+0*stride] = avg3(t0, t1, t2)

	dst[off+0+1*stride] = avg2(l0, l1)
	dst[off+1+1*stride] = avg3(tl, l0, l1)
	dst[off+2+1*stride] = dst[off+0+0*stride]
	dst[off+3+1*stride] = dst[off+1+0*stride]

	dst[off+0+2*stride] = avg2(l1, l2)
	dst[off+1+2*stride] = avg3(l0, l1, l2)
	dst[off+2+2*stride] = dst[off+0+1*stride]
	dst[off+3+2*stride] = dst[off+1+1*stride]

	dst[off+0+3*stride] = avg2(l2, l3)
	dst[off+1+3*stride] = avg3(l1, l2, l3)
	dst[off+2+3*stride] = dst[off+0+2*stride]
	dst[off+3+3*stride] = dst[off+1+2*stride]
}

func hu4(dst []byte, off, stride int) {
	l0 := dst[off-1+0*stride]
	l1 := dst[off-1+1*stride]
	l2 := dst[off-1+2*stride]
	l3 := dst[off-1+3*stride]

	dst[off+0+0*stride] = avg2(l0, l1)
	dst[off+1+0*stride] = avg3(l0, l1, l2)
	dst[off+2+0*stride] = avg2(l1, l2)
	dst[off+3+0*stride] = avg3(l1, l2, l3)

	dst[off+0+1*stride] = dst[off+2+0*stride]
	dst[off+1+1*stride] = dst[off+3+0*stride]
	dst[off+2+1*stride] = avg2(l2, l3)
	dst[off+3+1*stride] = avg3(l2, l3, l3)

	dst[off+0+2*stride] = dst[off+2+1*stride]
	dst[off+1+2*stride] = dst[off+3+1*stride]
	dst[off+2+2*stride] = l3
	dst[off+3+2*stride] = l3

	dst[off+0+3*stride] = l3
	dst[off+1+3*stride] = l3
	dst[off+2+3*stride] = l3
	dst[off+3+3*stride] = l3
}

// PredLuma4 writes the 4x4 intra predictor for mode via a direct
// switch, avoiding indirect call overhead in the per-mode trial loop.
func PredLuma4(mode int, dst []byte, off, stride int) {
	switch mode {
	case PredDC4:
		dc4(dst, off, stride)
	case PredTM4:
		tm4(dst, off, stride)
	case PredVE4:
		ve4(dst, off, stride)
	case PredHE4:
		he4(dst, off, stride)
	case PredRD4:
		rd4(dst, off, stride)
	case PredVR4:
		vr4(dst, off, stride)
	case PredLD4:
		ld4(dst, off, stride)
	case PredVL4:
		vl4(dst, off, stride)
	case PredHD4:
		hd4(dst, off, stride)
	case PredHU4:
		hu4(dst, off, stride)
	}
}
