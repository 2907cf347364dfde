package decode

import (
	"io"
	"math"
)

// MemSource is an in-memory Source used by panstitch's own tests to build
// synthetic pans, the way device.ManualInput in the teacher repo lets
// tests drive revid without a real capture device.
type MemSource struct {
	frames []Frame
	pos    int
}

// NewMemSource returns a Source that yields frames in order.
func NewMemSource(frames []Frame) *MemSource {
	return &MemSource{frames: frames}
}

func (m *MemSource) Next() (Frame, error) {
	if m.pos >= len(m.frames) {
		return Frame{}, io.EOF
	}
	f := m.frames[m.pos]
	m.pos++
	return f, nil
}

func (m *MemSource) Close() error { return nil }

// PanFrames synthesizes n frames of a w x h 8-bit 4:2:0 still image panned
// by (dxPerFrame, dyPerFrame) pixels per frame, with the given base
// luma value. It is used throughout pipeline/stitch tests to exercise
// the run-length state machine and the stitcher against deterministic,
// known ground truth (spec.md §8 end-to-end scenarios).
func PanFrames(n, w, h int, dxPerFrame, dyPerFrame int, base byte) []Frame {
	// Background is large enough that every frame's w x h window, shifted
	// by up to n*max(|dx|,|dy|), stays inside it.
	pad := (n + 2) * (absInt(dxPerFrame) + absInt(dyPerFrame) + 1)
	bgW, bgH := w+2*pad, h+2*pad
	bg := make([]byte, bgW*bgH)
	fillGradient(bg, bgW, bgH, base)

	frames := make([]Frame, n)
	for i := 0; i < n; i++ {
		ox := pad + i*dxPerFrame
		oy := pad + i*dyPerFrame
		y := make([]byte, w*h)
		for r := 0; r < h; r++ {
			copy(y[r*w:(r+1)*w], bg[(oy+r)*bgW+ox:(oy+r)*bgW+ox+w])
		}
		frames[i] = Frame{
			Idx:         uint32(i),
			Y:           Plane{Data: y, Stride: w, W: w, H: h},
			Format:      FormatYUV420P8,
			PictureType: PictureP,
			SAR:         Rational{1, 1},
			RGBA:        grayToRGBA(y, w, h),
		}
	}
	return frames
}

// StillFrames synthesizes n identical w x h frames (no motion at all).
func StillFrames(n, w, h int, base byte) []Frame {
	return PanFrames(n, w, h, 0, 0, base)
}

func fillGradient(buf []byte, w, h int, base byte) {
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// Three sine ridges of unrelated periods (along x, y and the
			// diagonal) give a smooth texture that does not repeat, so
			// the search locks onto a unique offset, and enough luma
			// spread to clear the low-entropy (§4.4) gate.
			v := int(base) + int(30*math.Sin(float64(x)/9)+30*math.Sin(float64(y)/13)+20*math.Sin(float64(x+y)/23))
			if v < 0 {
				v = 0
			}
			if v > 255 {
				v = 255
			}
			buf[y*w+x] = byte(v)
		}
	}
}

func grayToRGBA(y []byte, w, h int) []byte {
	out := make([]byte, w*h*4)
	for i, v := range y {
		out[i*4+0] = v
		out[i*4+1] = v
		out[i*4+2] = v
		out[i*4+3] = 255
	}
	return out
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
