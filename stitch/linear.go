/*
DESCRIPTION
  linear.go implements the incremental linear-pan compositor of spec.md
  §4.5: each admitted frame's cumulative offset is resolved against the
  most recent non-still frame, the canvas grows to the union of every
  frame's placed rectangle, and the final composite is alpha-feathered at
  the seams and SAR-corrected before PNG emission. Grounded on
  original_source/src/stitchers/linear.rs.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package stitch implements the linear translational compositor that
// turns a detected pan's aligned frames into a single panorama.
package stitch

import (
	"bufio"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	xdraw "golang.org/x/image/draw"

	"github.com/ausocean/panstitch/decode"
	"github.com/ausocean/panstitch/motion"
)

// seamWidth is the feather band, in pixels, over which an overlapping
// frame's edge blends into what's already on the canvas.
const seamWidth = 8

// AlignedFrame is one frame admitted to a pan, with its resolved
// cumulative offset relative to the pan's first frame.
type AlignedFrame struct {
	RGBA        []byte // w*h*4, full-range RGBA
	Y           decode.Plane
	Format      decode.PixelFormat
	W, H        int
	SAR         decode.Rational
	OffsetX     int
	OffsetY     int
	Estimate    motion.Estimate
	hasEstimate bool
}

// LinStitcher accumulates a pan's frames and produces its composite.
type LinStitcher struct {
	frames    []AlignedFrame
	lastMoved int // index into frames of the most recent non-still frame, or -1
	kernel    motion.Kernel
	geo       motion.BlockGeometry
}

// New returns an empty stitcher that will use k/geo to recompute an
// estimate for any frame that doesn't already carry one.
func New(k motion.Kernel, geo motion.BlockGeometry) *LinStitcher {
	return &LinStitcher{lastMoved: -1, kernel: k, geo: geo}
}

// AddFrame admits a decoded frame to the pan. est, if non-nil, is the
// externally computed F→predecessor estimate (from the pan-finder's own
// cache); otherwise the stitcher searches against the most recent
// non-still frame (or the first frame), hinted by that frame's own
// offset, per spec.md §4.5.
func (s *LinStitcher) AddFrame(ctx context.Context, f decode.Frame, est *motion.Estimate) {
	if len(s.frames) == 0 {
		s.frames = append(s.frames, AlignedFrame{
			RGBA: f.RGBA, Y: f.Y, Format: f.Format, W: f.Y.W, H: f.Y.H, SAR: f.SAR,
		})
		return
	}

	ref := s.lastMoved
	if ref < 0 {
		ref = 0
	}
	refFrame := s.frames[ref]

	var e motion.Estimate
	if est != nil {
		e = *est
	} else if s.kernel != nil {
		hint := motion.Offset{X: refFrame.OffsetX, Y: refFrame.OffsetY}
		e = motion.Search(ctx, f.Y, refFrame.Y, f.Format, &hint, s.kernel, s.geo)
	} else {
		e = motion.Estimate{X: refFrame.OffsetX, Y: refFrame.OffsetY, Area: uint32(f.Y.W * f.Y.H)}
	}

	af := AlignedFrame{
		RGBA: f.RGBA, Y: f.Y, Format: f.Format, W: f.Y.W, H: f.Y.H, SAR: f.SAR,
		OffsetX: refFrame.OffsetX + e.X, OffsetY: refFrame.OffsetY + e.Y,
		Estimate: e, hasEstimate: true,
	}
	s.frames = append(s.frames, af)
	if e.X != 0 || e.Y != 0 {
		s.lastMoved = len(s.frames) - 1
	}
}

// bounds returns the union rectangle of every placed frame.
func (s *LinStitcher) bounds() image.Rectangle {
	if len(s.frames) == 0 {
		return image.Rectangle{}
	}
	r := image.Rect(s.frames[0].OffsetX, s.frames[0].OffsetY,
		s.frames[0].OffsetX+s.frames[0].W, s.frames[0].OffsetY+s.frames[0].H)
	for _, f := range s.frames[1:] {
		r = r.Union(image.Rect(f.OffsetX, f.OffsetY, f.OffsetX+f.W, f.OffsetY+f.H))
	}
	return r
}

// Expansion is the composite's area divided by a single frame's area,
// the expansion_ratio gate of spec.md §4.4's finish-batch step.
func (s *LinStitcher) Expansion() float64 {
	if len(s.frames) == 0 {
		return 1
	}
	b := s.bounds()
	frameArea := s.frames[0].W * s.frames[0].H
	if frameArea == 0 {
		return 1
	}
	return float64(b.Dx()*b.Dy()) / float64(frameArea)
}

// contributing filters s.frames down to the first frame plus every frame
// with a non-zero estimate, discarding still duplicates per spec.md §4.5.
func (s *LinStitcher) contributing() []AlignedFrame {
	out := make([]AlignedFrame, 0, len(s.frames))
	for i, f := range s.frames {
		if i == 0 || f.Estimate.X != 0 || f.Estimate.Y != 0 {
			out = append(out, f)
		}
	}
	return out
}

// Composite renders the feathered-blend canvas and applies SAR
// correction, returning a ready-to-encode RGBA image.
func (s *LinStitcher) Composite() image.Image {
	b := s.bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	for _, f := range s.contributing() {
		ox, oy := f.OffsetX-b.Min.X, f.OffsetY-b.Min.Y
		// mergeY, unused beyond this assignment: the original reuses
		// estimate.x here for both components of an internal point.
		mergeY := f.Estimate.X
		_ = mergeY
		for y := 0; y < f.H; y++ {
			for x := 0; x < f.W; x++ {
				edgeDist := x
				if v := f.W - 1 - x; v < edgeDist {
					edgeDist = v
				}
				if v := y; v < edgeDist {
					edgeDist = v
				}
				if v := f.H - 1 - y; v < edgeDist {
					edgeDist = v
				}

				si := (y*f.W + x) * 4
				src := color.RGBA{f.RGBA[si], f.RGBA[si+1], f.RGBA[si+2], f.RGBA[si+3]}
				dstX, dstY := ox+x, oy+y
				oldC := canvas.RGBAAt(dstX, dstY)

				if edgeDist >= seamWidth || oldC.A < 255 {
					canvas.SetRGBA(dstX, dstY, src)
					continue
				}

				alpha := edgeDist * 255 / seamWidth
				blend := func(s, d uint8) uint8 {
					return uint8((int(s)*alpha + int(d)*(255-alpha)) / 255)
				}
				canvas.SetRGBA(dstX, dstY, color.RGBA{
					R: blend(src.R, oldC.R),
					G: blend(src.G, oldC.G),
					B: blend(src.B, oldC.B),
					A: 255,
				})
			}
		}
	}

	return correctSAR(canvas, s.frames[0].SAR)
}

// correctSAR rescales img so its pixel grid represents the intended
// display aspect ratio, per spec.md §4.5.
func correctSAR(img *image.RGBA, sar decode.Rational) image.Image {
	if sar.Square() || sar.Num == 0 || sar.Den == 0 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	var outW, outH int
	if sar.Num > sar.Den {
		outW = w * sar.Num / sar.Den
		outH = h
	} else {
		outW = w
		outH = h * sar.Den / sar.Num
	}
	out := image.NewRGBA(image.Rect(0, 0, outW, outH))
	xdraw.CatmullRom.Scale(out, out.Bounds(), img, b, xdraw.Over, nil)
	return out
}

// EncodePNG writes img at compression level 0 (speed over size; optional
// post-optimization is an external collaborator's concern per spec.md
// §4.5).
func EncodePNG(w io.Writer, img image.Image) error {
	bw := bufio.NewWriter(w)
	enc := png.Encoder{CompressionLevel: png.NoCompression}
	if err := enc.Encode(bw, img); err != nil {
		return err
	}
	return bw.Flush()
}

var _ draw.Image = (*image.RGBA)(nil)
