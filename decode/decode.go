/*
DESCRIPTION
  decode.go defines the boundary between panstitch and the external media
  library that demuxes a container, decodes frames and exports codec
  motion-vector side data. Nothing in this package decodes video; it only
  describes the shape a decoder integration must have.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package decode describes the decoded-frame boundary panstitch consumes
// from an external demuxer/decoder. It ships no decoder of its own.
package decode

import "fmt"

// PixelFormat enumerates the Y-plane layouts panstitch's motion search
// understands. Container/colour-space conversion is the decoder's job;
// panstitch only ever looks at luma.
type PixelFormat int

const (
	FormatYUV420P8 PixelFormat = iota
	FormatYUV420P10LE
	FormatYUV444P8
	FormatYUV444P10LE
)

func (f PixelFormat) String() string {
	switch f {
	case FormatYUV420P8:
		return "yuv420p8"
	case FormatYUV420P10LE:
		return "yuv420p10le"
	case FormatYUV444P8:
		return "yuv444p8"
	case FormatYUV444P10LE:
		return "yuv444p10le"
	default:
		return fmt.Sprintf("unknown(%d)", int(f))
	}
}

// BitDepth returns 8 or 10, the sample bit depth implied by the format.
func (f PixelFormat) BitDepth() int {
	switch f {
	case FormatYUV420P10LE, FormatYUV444P10LE:
		return 10
	default:
		return 8
	}
}

// Chroma444 reports whether the format is 4:4:4 (true) or 4:2:0 (false).
// The distinction doesn't affect the Y-plane search; block-geometry
// selection in package motion depends on BitDepth only.
func (f PixelFormat) Chroma444() bool {
	return f == FormatYUV444P8 || f == FormatYUV444P10LE
}

// Plane is a read-only view of a single decoded image plane. Data is row
// major with the given Stride in bytes; for 10-bit formats each sample
// occupies two little-endian bytes.
type Plane struct {
	Data   []byte
	Stride int
	W, H   int
}

// PictureType is the coding type the decoder assigned a frame.
type PictureType int

const (
	PictureI PictureType = iota
	PictureP
	PictureB
)

func (t PictureType) String() string {
	switch t {
	case PictureI:
		return "I"
	case PictureP:
		return "P"
	case PictureB:
		return "B"
	default:
		return "?"
	}
}

// MotionVector is one codec-reported motion vector, in the shape ffmpeg's
// AVMotionVector side data takes: a destination block plus a displacement
// scaled by MotionScale, and a Source indicating which reference it came
// from (negative: past, positive: future, zero: intra/no prediction).
type MotionVector struct {
	DstX, DstY       int
	MotionX, MotionY int
	MotionScale      int
	BlockW, BlockH   int
	Source           int
}

// Rational is a reduced fraction, used for sample aspect ratio.
type Rational struct{ Num, Den int }

// Square reports whether the ratio is 1:1.
func (r Rational) Square() bool { return r.Num == r.Den }

// Frame is one decoded frame as panstitch consumes it: a Y plane, its
// coding metadata, and whatever motion vectors the codec exported for it.
// Idx is the decode-order frame number and is panstitch's sole notion of
// frame identity.
type Frame struct {
	Idx         uint32
	Y           Plane
	Format      PixelFormat
	PictureType PictureType
	SAR         Rational
	Vectors     []MotionVector

	// RGBA, if non-nil, is a full-range RGBA rendition of the frame used
	// by the stitcher to composite pan panoramas. A real decoder
	// integration supplies this from the same decode pass (e.g. via a
	// second scaler context); the in-memory test source in this package
	// derives it directly from Y for synthetic grayscale test content.
	RGBA []byte // 4 bytes/pixel, stride Y.W*4
}

// Source is the external collaborator: a sequence of decoded frames in
// display order, each carrying codec motion-vector side data. Real
// integrations wrap a media library; Close releases any underlying
// container/decoder resources.
type Source interface {
	// Next returns the next decoded frame, or an error wrapping io.EOF
	// once the source is exhausted. A per-packet decode failure should be
	// logged by the caller and Next should be called again for the next
	// frame; Source implementations are not required to retry internally.
	Next() (Frame, error)
	Close() error
}

// RequireWidthMultipleOf16 validates the invariant spec §7 relies on to
// guarantee a non-empty search interior: frame width must be a multiple
// of 16.
func RequireWidthMultipleOf16(w int) error {
	if w%16 != 0 {
		return fmt.Errorf("decode: frame width %d is not a multiple of 16", w)
	}
	return nil
}
