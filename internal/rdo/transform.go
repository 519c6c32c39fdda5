package rdo

import "github.com/deepteams/vp8enc/internal/dsp"

// Collaborator implementations over the dsp kernels: the forward
// transforms, a zero-zbin quantizer, and the inverse-transform commit
// used by winning intra 4x4 trials. Encoders with platform-specific
// kernel sets can substitute their own through the interfaces.

// DefaultTransforms routes the Transforms interface to the dsp
// forward-transform kernels.
type DefaultTransforms struct{}

// FDCT4x4 is the 4x4 forward DCT over a 16-entry residual block.
func (DefaultTransforms) FDCT4x4(diff, coeff []int16) {
	dsp.FDCT4x4(diff, coeff)
}

// FDCT8x8 is the 8x8 forward DCT over a 64-entry residual block.
func (DefaultTransforms) FDCT8x8(diff, coeff []int16) {
	dsp.FDCT8x8(diff, coeff)
}

// Walsh4x4 is the second-order transform over the 16 luma DC values.
func (DefaultTransforms) Walsh4x4(diff, coeff []int16) {
	dsp.FWalsh4x4(diff, coeff)
}

// BasicQuantizer quantizes the MB's coefficient arrays through the
// dsp block quantizer, with per-plane {DC, AC} steps.
type BasicQuantizer struct {
	Y1, Y2, UV dsp.QuantFactors
}

// NewBasicQuantizer derives the three plane quantizers from a
// quantizer index using the DC step table (AC = DC here; real
// encoders use their own AC lookup).
func NewBasicQuantizer(qindex int) *BasicQuantizer {
	q := dcQuant(qindex)
	return &BasicQuantizer{
		Y1: dsp.QuantFactors{DC: q, AC: q},
		Y2: dsp.QuantFactors{DC: q * 2, AC: q * 2},
		UV: dsp.QuantFactors{DC: q, AC: q},
	}
}

func (bq *BasicQuantizer) planeQuant(plane PlaneType) dsp.QuantFactors {
	switch plane {
	case PlaneY2:
		return bq.Y2
	case PlaneUV:
		return bq.UV
	}
	return bq.Y1
}

func (bq *BasicQuantizer) quantizeN(mb *Macroblock, b, n int, plane PlaneType, scan []int) {
	mb.EOB[b] = dsp.QuantizeBlock(
		mb.Coeff[b*16:b*16+n],
		mb.QCoeff[b*16:b*16+n],
		mb.DQCoeff[b*16:b*16+n],
		n, scan, bq.planeQuant(plane))
}

// Quantize quantizes one 16-coefficient coded block.
func (bq *BasicQuantizer) Quantize(mb *Macroblock, b int, plane PlaneType) {
	bq.quantizeN(mb, b, 16, plane, zigzag[:])
}

// QuantizePair quantizes two adjacent blocks.
func (bq *BasicQuantizer) QuantizePair(mb *Macroblock, b1, b2 int, plane PlaneType) {
	bq.Quantize(mb, b1, plane)
	bq.Quantize(mb, b2, plane)
}

// Quantize8x8 quantizes the 64-coefficient transform block starting
// at coded block b.
func (bq *BasicQuantizer) Quantize8x8(mb *Macroblock, b int, plane PlaneType) {
	bq.quantizeN(mb, b, 64, plane, zigzag8x8[:])
}

// Quantize2x2 quantizes the 4-coefficient Y2 block.
func (bq *BasicQuantizer) Quantize2x2(mb *Macroblock, plane PlaneType) {
	scan := [4]int{0, 1, 2, 3}
	bq.quantizeN(mb, y2Block, 4, plane, scan[:])
}

// DequantStep returns the dequantizer step of a plane.
func (bq *BasicQuantizer) DequantStep(plane PlaneType, dc bool) int {
	q := bq.planeQuant(plane)
	if dc {
		return q.DC
	}
	return q.AC
}

// BasicRecon commits an intra 4x4 trial through the dsp inverse
// transform, writing the reconstructed block into the MB's
// reconstruction buffer.
type BasicRecon struct{}

// Recon4x4 inverse transforms dqcoeff, adds it to the 4x4 predictor
// (stride 4) and stores the clipped result at block b's position.
func (BasicRecon) Recon4x4(mb *Macroblock, b int, pred []uint8, dqcoeff []int16) {
	dst := mb.Recon[mb.ReconOff+(b>>2)*4*mb.ReconStride+(b&3)*4:]
	dsp.IDCT4x4Add(dqcoeff, pred, 4, dst, mb.ReconStride)
}
