// Package vp8enc runs the mode-decision stage of a VP8-family video
// encoder: for every 16x16 macroblock of a frame it chooses the
// reference frame, prediction mode, motion vectors and transform size
// minimising J = D + λ·R, and publishes the per-MB decisions for the
// downstream encode stages.
package vp8enc

import (
	"fmt"

	"github.com/deepteams/vp8enc/internal/mcomp"
	"github.com/deepteams/vp8enc/internal/rdo"
)

// Planes is one frame's sample storage.
type Planes struct {
	Y        []uint8
	YStride  int
	U, V     []uint8
	UVStride int
}

// References names the prediction sources of an inter frame. Nil
// entries are disabled.
type References struct {
	Last, Golden, AltRef *Planes
}

// Config sets the frame-level knobs of the picker. The zero value is
// completed by New: good-quality search, 4x4 transform, skip
// signalling enabled.
type Config struct {
	Width, Height int
	QIndex        int

	TxfmMode        rdo.TransformMode
	CompPredMode    rdo.CompPredMode
	CompressorSpeed int
	EncodeBreakout  uint32

	// Probs overrides the entropy model used for bit costing; nil
	// selects the defaults.
	Probs *rdo.FrameProbs
	// MVCosts overrides the MV component cost model; nil selects a
	// flat table.
	MVCosts *rdo.MVCosts
}

// Decision is the committed outcome of one frame's mode search.
type Decision struct {
	Modes      []rdo.ModeInfo
	Partitions []rdo.PartitionInfo

	Rate       int
	Distortion int

	// Best-RD deltas summed over the frame, feeding compound-mode
	// adaptation.
	SingleRDDiff int
	CompRDDiff   int
	HybridRDDiff int
}

// Picker drives the per-frame, per-MB mode decision. It owns the
// search state, the reconstruction planes used as prediction context,
// and the previous frame's mode grid for the MV predictor.
type Picker struct {
	cfg      Config
	search   *rdo.Search
	segments *staticSegments

	mbW, mbH int

	grid  []rdo.ModeInfo
	parts []rdo.PartitionInfo

	// Previous frame's committed grid, consumed by the MV predictor.
	prevGrid    []rdo.ModeInfo
	prevWasKey  bool
	firstPicked bool

	reconY     []uint8
	reconU     []uint8
	reconV     []uint8
	reconYStr  int
	reconUVStr int

	// Entropy contexts: one above entry per MB column plus the
	// rolling left state.
	above []rdo.ContextPlanes
	left  rdo.ContextPlanes

	// Bottom-row / right-column sub-modes per MB, context for the
	// key-frame 4x4 mode costs.
	aboveBModes [][4]rdo.SubMode
	leftBModes  [4]rdo.SubMode

	mb rdo.Macroblock
}

// New builds a Picker for the given frame geometry. Width and height
// must be multiples of 16 (the caller pads its planes, exactly as the
// downstream encoder does).
func New(cfg Config) (*Picker, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width%16 != 0 || cfg.Height%16 != 0 {
		return nil, fmt.Errorf("vp8enc: frame %dx%d is not a positive multiple of 16", cfg.Width, cfg.Height)
	}
	if cfg.QIndex < 0 || cfg.QIndex > 127 {
		return nil, fmt.Errorf("vp8enc: quantizer index %d out of range", cfg.QIndex)
	}

	p := &Picker{
		cfg: cfg,
		mbW: cfg.Width / 16,
		mbH: cfg.Height / 16,
	}
	p.grid = make([]rdo.ModeInfo, p.mbW*p.mbH)
	p.parts = make([]rdo.PartitionInfo, p.mbW*p.mbH)
	p.prevGrid = make([]rdo.ModeInfo, p.mbW*p.mbH)
	p.reconYStr = cfg.Width
	p.reconUVStr = cfg.Width / 2
	p.reconY = make([]uint8, cfg.Width*cfg.Height)
	p.reconU = make([]uint8, cfg.Width*cfg.Height/4)
	p.reconV = make([]uint8, cfg.Width*cfg.Height/4)
	p.above = make([]rdo.ContextPlanes, p.mbW)
	p.aboveBModes = make([][4]rdo.SubMode, p.mbW)

	p.segments = &staticSegments{predRef: rdo.LastFrame}

	s := rdo.NewSearch()
	s.Quant = rdo.NewBasicQuantizer(cfg.QIndex)
	s.Intra = &reconIntra{}
	s.Inter = &mcInter{}
	s.Motion = mcomp.Searcher{}
	s.Metrics = dspMetrics{}
	s.Segments = p.segments
	s.Neighbors = &gridNeighbors{signBias: &s.SignBias}
	s.TxfmMode = cfg.TxfmMode
	s.CompPredMode = cfg.CompPredMode
	s.CompressorSpeed = cfg.CompressorSpeed
	s.EncodeBreakout = cfg.EncodeBreakout
	s.MBNoCoeffSkip = true
	s.ProbSkipFalse = 200
	p.search = s
	return p, nil
}

// Search exposes the frame search state (thresholds, histograms,
// speed knob) for callers that adapt across frames.
func (p *Picker) Search() *rdo.Search { return p.search }

// Reference border widths: motion search may step past the frame
// edges and sub-pel interpolation reads one extra sample.
const (
	borderY  = 32
	borderUV = 16
)

// borderedPlanes is an internal reference copy with replicated edges,
// so every vector the MV window admits fetches valid samples.
type borderedPlanes struct {
	y, u, v           []uint8
	yStride, uvStride int
	yOrigin, uvOrigin int
}

func (p *Picker) borderPlanes(src *Planes) *borderedPlanes {
	if src == nil {
		return nil
	}
	w, h := p.cfg.Width, p.cfg.Height
	bp := &borderedPlanes{
		yStride:  w + 2*borderY,
		uvStride: w/2 + 2*borderUV,
	}
	bp.yOrigin = borderY*bp.yStride + borderY
	bp.uvOrigin = borderUV*bp.uvStride + borderUV
	bp.y = make([]uint8, (h+2*borderY)*bp.yStride)
	bp.u = make([]uint8, (h/2+2*borderUV)*bp.uvStride)
	bp.v = make([]uint8, (h/2+2*borderUV)*bp.uvStride)

	fill := func(dst []uint8, dstStride, origin int, plane []uint8, stride, pw, ph, border int) {
		for y := -border; y < ph+border; y++ {
			sy := y
			if sy < 0 {
				sy = 0
			} else if sy >= ph {
				sy = ph - 1
			}
			row := dst[origin+y*dstStride-border : origin+y*dstStride+pw+border]
			copy(row[border:border+pw], plane[sy*stride:sy*stride+pw])
			for x := 0; x < border; x++ {
				row[x] = row[border]
				row[border+pw+x] = row[border+pw-1]
			}
		}
	}
	fill(bp.y, bp.yStride, bp.yOrigin, src.Y, src.YStride, w, h, borderY)
	fill(bp.u, bp.uvStride, bp.uvOrigin, src.U, src.UVStride, w/2, h/2, borderUV)
	fill(bp.v, bp.uvStride, bp.uvOrigin, src.V, src.UVStride, w/2, h/2, borderUV)
	return bp
}

// PickFrame runs the mode decision over one frame. keyFrame restricts
// the search to the intra path; otherwise refs supplies the enabled
// prediction sources.
func (p *Picker) PickFrame(src *Planes, refs References, keyFrame bool) (*Decision, error) {
	if err := p.checkPlanes(src); err != nil {
		return nil, err
	}

	s := p.search
	s.KeyFrame = keyFrame
	s.LastFrameIsKey = p.prevWasKey || !p.firstPicked
	s.RefFrameEnabled[rdo.LastFrame] = refs.Last != nil
	s.RefFrameEnabled[rdo.GoldenFrame] = refs.Golden != nil
	s.RefFrameEnabled[rdo.AltRefFrame] = refs.AltRef != nil

	probs := p.cfg.Probs
	if probs == nil {
		probs = rdo.DefaultFrameProbs()
	}
	mvCosts := p.cfg.MVCosts
	if mvCosts == nil {
		mvCosts = &rdo.MVCosts{}
	}
	s.InitFrame(p.cfg.QIndex, 0, -1, probs, mvCosts)

	dec := &Decision{}

	var brefs [4]*borderedPlanes
	if !keyFrame {
		brefs[rdo.LastFrame] = p.borderPlanes(refs.Last)
		brefs[rdo.GoldenFrame] = p.borderPlanes(refs.Golden)
		brefs[rdo.AltRefFrame] = p.borderPlanes(refs.AltRef)
	}

	for i := range p.above {
		p.above[i] = rdo.ContextPlanes{}
		p.aboveBModes[i] = [4]rdo.SubMode{}
	}

	for mbRow := 0; mbRow < p.mbH; mbRow++ {
		p.left = rdo.ContextPlanes{}
		p.leftBModes = [4]rdo.SubMode{}
		for mbCol := 0; mbCol < p.mbW; mbCol++ {
			p.setupMB(src, &brefs, mbRow, mbCol)
			idx := mbRow*p.mbW + mbCol
			mi := &p.grid[idx]
			pi := &p.parts[idx]
			*mi = rdo.ModeInfo{}
			*pi = rdo.PartitionInfo{}

			if keyFrame {
				dec.Rate += s.PickIntraMode(&p.mb, mi)
			} else {
				res := s.PickInterMode(&p.mb, mi, pi)
				dec.Rate += res.Rate
				dec.Distortion += res.Distortion
				dec.SingleRDDiff += res.SingleRDDiff
				dec.CompRDDiff += res.CompRDDiff
				dec.HybridRDDiff += res.HybridRDDiff
			}

			p.commitMB(mi)
		}
	}

	dec.Modes = append([]rdo.ModeInfo(nil), p.grid...)
	dec.Partitions = append([]rdo.PartitionInfo(nil), p.parts...)

	copy(p.prevGrid, p.grid)
	p.prevWasKey = keyFrame
	p.firstPicked = true
	return dec, nil
}

func (p *Picker) checkPlanes(src *Planes) error {
	if src == nil || len(src.Y) == 0 {
		return fmt.Errorf("vp8enc: missing source planes")
	}
	if src.YStride < p.cfg.Width || src.UVStride < p.cfg.Width/2 {
		return fmt.Errorf("vp8enc: source strides %d/%d too small", src.YStride, src.UVStride)
	}
	return nil
}

// setupMB loads the macroblock's source samples and wires its
// neighbourhood: edges, MV window, reference views, committed
// neighbour mode info and the previous frame's co-located vectors.
func (p *Picker) setupMB(src *Planes, brefs *[4]*borderedPlanes, mbRow, mbCol int) {
	mb := &p.mb
	px, py := mbCol*16, mbRow*16

	for r := 0; r < 16; r++ {
		copy(mb.SrcY[r*16:r*16+16], src.Y[(py+r)*src.YStride+px:])
	}
	cx, cy := px/2, py/2
	for r := 0; r < 8; r++ {
		copy(mb.SrcU[r*8:r*8+8], src.U[(cy+r)*src.UVStride+cx:])
		copy(mb.SrcV[r*8:r*8+8], src.V[(cy+r)*src.UVStride+cx:])
	}

	mb.MBRow, mb.MBCol = mbRow, mbCol
	mb.ToTopEdge = -(py) << 3
	mb.ToBottomEdge = (p.cfg.Height - 16 - py) << 3
	mb.ToLeftEdge = -(px) << 3
	mb.ToRightEdge = (p.cfg.Width - 16 - px) << 3

	// Full-pel search window: sixteen pels past the frame edges, well
	// inside the bordered reference copies.
	mb.MVRowMin = -py - 16
	mb.MVRowMax = p.cfg.Height - 16 - py + 16
	mb.MVColMin = -px - 16
	mb.MVColMax = p.cfg.Width - 16 - px + 16

	mb.Recon = p.reconY
	mb.ReconStride = p.reconYStr
	mb.ReconOff = py*p.reconYStr + px
	mb.ReconU = p.reconU
	mb.ReconV = p.reconV
	mb.ReconUVStride = p.reconUVStr
	mb.ReconUVOff = cy*p.reconUVStr + cx

	view := func(bp *borderedPlanes) *rdo.RefView {
		if bp == nil {
			return nil
		}
		return &rdo.RefView{
			Y: bp.y, YOff: bp.yOrigin + py*bp.yStride + px, YStride: bp.yStride,
			U: bp.u, V: bp.v, UVOff: bp.uvOrigin + cy*bp.uvStride + cx, UVStride: bp.uvStride,
		}
	}
	mb.Refs[rdo.LastFrame] = view(brefs[rdo.LastFrame])
	mb.Refs[rdo.GoldenFrame] = view(brefs[rdo.GoldenFrame])
	mb.Refs[rdo.AltRefFrame] = view(brefs[rdo.AltRefFrame])

	// Committed neighbours of the current frame.
	idx := mbRow*p.mbW + mbCol
	mb.AboveMI, mb.LeftMI, mb.AboveLeftMI = nil, nil, nil
	mb.AboveBModes, mb.LeftBModes = nil, nil
	if mbRow > 0 {
		mb.AboveMI = &p.grid[idx-p.mbW]
		mb.AboveBModes = &p.aboveBModes[mbCol]
		if mbCol > 0 {
			mb.AboveLeftMI = &p.grid[idx-p.mbW-1]
		}
	}
	if mbCol > 0 {
		mb.LeftMI = &p.grid[idx-1]
		mb.LeftBModes = &p.leftBModes
	}

	// Co-located candidates from the previous frame: centre, above,
	// left, right, below.
	offsets := [5]int{0, -p.mbW, -1, 1, p.mbW}
	valid := [5]bool{
		true,
		mbRow > 0,
		mbCol > 0,
		mbCol < p.mbW-1,
		mbRow < p.mbH-1,
	}
	for i := range offsets {
		mb.LastMVs[i] = rdo.MV{}
		mb.LastRefs[i] = rdo.IntraFrame
		mb.LastSignBias[i] = false
		if valid[i] && p.firstPicked {
			mi := &p.prevGrid[idx+offsets[i]]
			mb.LastMVs[i] = mi.MV
			mb.LastRefs[i] = mi.Ref
		}
	}

	mb.Above = &p.above[mbCol]
	mb.Left = &p.left
	mb.SegmentID = 0
}

// commitMB publishes the winner: rebuilds its predictor, re-runs the
// residual once for the committed entropy contexts, and stores the
// prediction into the reconstruction planes that seed the following
// macroblocks' context. Exact pixel reconstruction (prediction plus
// dequantized residual) belongs to the downstream encode stage; the
// prediction-only reconstruction here only steers neighbour context.
func (p *Picker) commitMB(mi *rdo.ModeInfo) {
	mb := &p.mb
	p.rebuildPredictor(mi)

	above, left := p.search.CommitWinner(mb, mi)
	p.above[mb.MBCol] = above
	p.left = left

	// Copy the predictor into the reconstruction planes.
	for r := 0; r < 16; r++ {
		copy(p.reconY[mb.ReconOff+r*p.reconYStr:mb.ReconOff+r*p.reconYStr+16],
			mb.Pred[r*16:r*16+16])
	}
	for r := 0; r < 8; r++ {
		copy(p.reconU[mb.ReconUVOff+r*p.reconUVStr:mb.ReconUVOff+r*p.reconUVStr+8],
			mb.Pred[256+r*8:256+r*8+8])
	}
	for r := 0; r < 8; r++ {
		copy(p.reconV[mb.ReconUVOff+r*p.reconUVStr:mb.ReconUVOff+r*p.reconUVStr+8],
			mb.Pred[320+r*8:320+r*8+8])
	}

	// 4x4 sub-mode context for the key-frame cost tables.
	if mi.Mode == rdo.BPred {
		p.aboveBModes[mb.MBCol] = [4]rdo.SubMode{
			mi.SubModes[12], mi.SubModes[13], mi.SubModes[14], mi.SubModes[15],
		}
		p.leftBModes = [4]rdo.SubMode{
			mi.SubModes[3], mi.SubModes[7], mi.SubModes[11], mi.SubModes[15],
		}
	} else {
		p.aboveBModes[mb.MBCol] = [4]rdo.SubMode{}
		p.leftBModes = [4]rdo.SubMode{}
	}
}

// rebuildPredictor regenerates the winner's prediction samples in
// mb.Pred; trial candidates evaluated after the winner overwrote them.
func (p *Picker) rebuildPredictor(mi *rdo.ModeInfo) {
	mb := &p.mb
	s := p.search
	switch {
	case mi.Ref == rdo.IntraFrame:
		switch mi.Mode {
		case rdo.BPred:
			for b := 0; b < 16; b++ {
				s.Intra.Predict4x4(mb, b, mi.SubModes[b])
			}
		case rdo.I8x8Pred:
			for _, ib := range [4]int{0, 2, 8, 10} {
				s.Intra.Predict8x8(mb, ib, rdo.MBMode(mi.SubModes[ib]))
			}
		default:
			s.Intra.PredictMBY(mb, mi.Mode)
		}
		s.Intra.PredictMBUV(mb, mi.UVMode)

	case mi.Mode == rdo.SplitMV:
		ref := mb.Refs[mi.Ref]
		for b := 0; b < 16; b++ {
			s.Inter.PredictBlock(mb, ref, b, mi.SubMVs[b])
		}
		s.Inter.PredictUV4x4(mb, ref, &mi.SubMVs)

	default:
		ref := mb.Refs[mi.Ref]
		s.Inter.PredictMBY(mb, ref, mi.MV)
		s.Inter.PredictMBUV(mb, ref, mi.MV)
		if mi.SecondRef != rdo.IntraFrame {
			s.Inter.PredictSecond(mb, mb.Refs[mi.SecondRef], mi.SecondMV)
		}
	}
}
