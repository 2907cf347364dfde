package motion

import (
	"encoding/binary"

	"github.com/ausocean/panstitch/decode"
)

// sampleFn returns a function reading one luma sample as an 8-bit-scale
// value, scaling 10-bit little-endian samples down to 8 bits (>>2)
// rather than masking an arbitrary byte, per the "clean implementation"
// called for in spec.md §9. Shared by both the scalar and the gocv
// kernel, which normalizes into 8-bit Mats using the same function
// before handing off to OpenCV.
func sampleFn(format decode.PixelFormat) func(p decode.Plane, x, y int) uint8 {
	if format.BitDepth() == 10 {
		return func(p decode.Plane, x, y int) uint8 {
			off := y*p.Stride + x*2
			v := binary.LittleEndian.Uint16(p.Data[off : off+2])
			return uint8(v >> 2)
		}
	}
	return func(p decode.Plane, x, y int) uint8 {
		return p.Data[y*p.Stride+x]
	}
}

// to8Bit materializes a plane as a tightly packed 8-bit buffer (stride ==
// width), applying sampleFn. Used by the gocv kernel to build a Mat
// without per-pixel CGo calls in the hot loop.
func to8Bit(p decode.Plane, format decode.PixelFormat) []byte {
	sample := sampleFn(format)
	out := make([]byte, p.W*p.H)
	for y := 0; y < p.H; y++ {
		for x := 0; x < p.W; x++ {
			out[y*p.W+x] = sample(p, x, y)
		}
	}
	return out
}
