// Package rdo implements the per-macroblock mode decision and
// rate-distortion optimization core of the VP8-family video encoder.
//
// For each 16x16 macroblock the search chooses the reference frame(s),
// the prediction mode (intra at 16x16, 8x8 and 4x4 granularity; inter
// including compound prediction and motion-compensated splits), the
// motion vectors, and the transform size, minimising J = D + λ·R.
//
// The package owns the enumeration driver, the segmentation search,
// coefficient-level entropy costing, residual rate/distortion
// evaluation, MV prediction and the adaptive trial thresholds. The
// DSP kernels it drives (transforms, quantization, predictor sample
// generation, motion search, metric kernels) are collaborators wired
// through the interfaces in collaborators.go.
package rdo
