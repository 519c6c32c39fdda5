package dsp

import "math"

// Entropy-cost primitives of the RD scoring: the cost, in 1/256 bit
// units, of coding one boolean event under the arithmetic coder's
// 8-bit probability model. Filled once at package init.

// VP8EntropyCost[p] is the cost of an event whose probability is
// p/256.
var VP8EntropyCost [256]uint16

// VP8BitCost returns the cost of coding bit under probability proba.
func VP8BitCost(bit int, proba uint8) int {
	if bit == 0 {
		return int(VP8EntropyCost[proba])
	}
	return int(VP8EntropyCost[255-proba])
}

func init() {
	for p := 0; p < 256; p++ {
		v := p
		if v < 1 {
			v = 1
		}
		c := int(-math.Log2(float64(v)/256.0)*256.0 + 0.5)
		if c > 2047 {
			c = 2047
		}
		VP8EntropyCost[p] = uint16(c)
	}
}
