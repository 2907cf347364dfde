//go:build withcv

/*
DESCRIPTION
  kernel_cv.go is the gocv-accelerated SAD kernel, built with the withcv
  tag exactly as filter/diff.go and filter/mog.go are in the teacher
  repo. It normalizes both planes to tightly packed 8-bit Mats once, then
  leans on gocv.AbsDiff (OpenCV's own SIMD) per block row instead of a
  hand-written Go inner loop.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package motion

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/ausocean/panstitch/decode"
)

const hasCVKernel = true

func newKernel() Kernel { return cvKernel{} }

type cvKernel struct{}

func (cvKernel) Name() string { return "gocv" }

func (cvKernel) SAD(cur, pred decode.Plane, format decode.PixelFormat, dx, dy int, geo BlockGeometry) Estimate {
	w, h := cur.W, cur.H

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

	rows := (maxY - minY) / geo.H * geo.H
	cols := (maxX - minX) / geo.W * geo.W
	if rows <= 0 || cols <= 0 {
		return est
	}

	curMat, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8U, to8Bit(cur, format))
	if err != nil {
		return est
	}
	defer curMat.Close()
	predMat, err := gocv.NewMatFromBytes(pred.H, pred.W, gocv.MatTypeCV8U, to8Bit(pred, format))
	if err != nil {
		return est
	}
	defer predMat.Close()

	diff := gocv.NewMat()
	defer diff.Close()

	blockArea := geo.Area()

	for by := 0; by < rows; by += geo.H {
		for bx := 0; bx < cols; bx += geo.W {
			cx, cy := minX+bx, minY+by
			px, py := cx+dx, cy+dy

			curRegion := curMat.Region(image.Rect(cx, cy, cx+geo.W, cy+geo.H))
			predRegion := predMat.Region(image.Rect(px, py, px+geo.W, py+geo.H))

			gocv.AbsDiff(curRegion, predRegion, &diff)
			sum := diff.Sum()
			blockSum := int(sum.Val1)

			curRegion.Close()
			predRegion.Close()

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
	est.Area = uint32(cols * rows)
	return est
}
