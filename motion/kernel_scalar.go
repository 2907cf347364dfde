//go:build !withcv

/*
DESCRIPTION
  kernel_scalar.go is the pure-Go SAD kernel, built by default (no cv
  build tag). It is the scalar fallback spec.md §4.1/§9 calls for: no
  SIMD intrinsics are available from portable Go without per-arch
  assembly, so every lane is summed in a plain loop, the way
  filter/basic.go processes pixels with only the standard library
  instead of gocv.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package motion

import (
	"github.com/ausocean/panstitch/decode"
)

const hasCVKernel = false

func newKernel() Kernel { return scalarKernel{} }

// scalarKernel computes block SAD with plain Go loops over the Y plane.
// 10-bit samples are scaled to 8-bit range (>>2) before differencing, the
// "clean implementation" spec.md §9 asks for in place of the original's
// ambiguous lane-extraction shortcut.
type scalarKernel struct{}

func (scalarKernel) Name() string { return "scalar" }

func (scalarKernel) SAD(cur, pred decode.Plane, format decode.PixelFormat, dx, dy int, geo BlockGeometry) Estimate {
	w, h := cur.W, cur.H

	// Intersection of cur's own frame with pred's frame translated by
	// (-dx, -dy): the cur pixels (x, y) whose pred counterpart
	// (x+dx, y+dy) lies inside pred, shrunk inward by 16 to ignore
	// letterbox edges.
	minX, minY := 0, 0
	maxX, maxY := w, h
	if -dx > minX {
		minX = -dx
	}
	if -dy > minY {
		minY = -dy
	}
	if w-dx < maxX {
		maxX = w - dx
	}
	if h-dy < maxY {
		maxY = h - dy
	}
	minX += 16
	minY += 16
	maxX -= 16
	maxY -= 16

	var est Estimate
	if maxX <= minX || maxY <= minY {
		return est
	}

	sample := sampleFn(format)
	blockArea := geo.Area()

	// Round the scanned region down to whole blocks, same as the
	// original's step_by loops implicitly do by stopping short of the
	// final partial block.
	rows := (maxY - minY) / geo.H * geo.H
	cols := (maxX - minX) / geo.W * geo.W

	for by := 0; by < rows; by += geo.H {
		for bx := 0; bx < cols; bx += geo.W {
			blockSum := 0
			for j := 0; j < geo.H; j++ {
				cy := minY + by + j
				py := cy + dy
				for i := 0; i < geo.W; i++ {
					cx := minX + bx + i
					px := cx + dx
					a := sample(cur, cx, cy)
					b := sample(pred, px, py)
					d := int(a) - int(b)
					if d < 0 {
						d = -d
					}
					blockSum += d
				}
			}
			est.ErrorSum += uint64(blockSum)
			if blockSum < blockArea {
				est.ErrorArea += uint64(blockSum)
			} else {
				est.ErrorArea += uint64(blockArea)
			}
			bucket := blockSum / blockArea
			if bucket > 255 {
				bucket = 255
			}
			est.Histogram[bucket]++
		}
	}

	est.X, est.Y = dx, dy
	est.Area = uint32((cols) * (rows))
	return est
}
