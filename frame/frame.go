/*
DESCRIPTION
  frame.go defines MVFrame, the per-frame record that flows through every
  stage of the pipeline: the decoded frame itself, its motion-vector
  swarm aggregate, a coarse luma histogram, and the symmetric
  motion_estimates cache spec.md §3/§9 calls for (no back-pointers
  between frames; each frame holds its own half of every edge).

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package frame implements MVFrame, the annotated per-frame record
// exchanged between the prefilter, pan-finder, and stitcher stages.
package frame

import (
	"fmt"

	"github.com/ausocean/panstitch/decode"
	"github.com/ausocean/panstitch/motion"
)

// MVFrame is one decoded frame plus every piece of motion evidence the
// pipeline has computed for it so far.
type MVFrame struct {
	Frame   decode.Frame
	MVInfo  motion.MVInfo
	Estimates map[uint32]motion.Estimate

	histogram [256]uint32
}

// New wraps a decoded frame, populating its motion-vector swarm from
// codec side data (prev/nxt may be nil if unavailable).
func New(f decode.Frame, prev, nxt *decode.Frame) *MVFrame {
	mf := &MVFrame{Frame: f, Estimates: make(map[uint32]motion.Estimate)}
	mf.MVInfo.Populate(prev, &mf.Frame, nxt)
	return mf
}

// Idx is the frame's decode-order index.
func (f *MVFrame) Idx() uint32 { return f.Frame.Idx }

func (f *MVFrame) area() int { return f.Frame.Y.W * f.Frame.Y.H }

// PredictedFraction is the codec-predicted area over the frame's total
// area; it can exceed 1 since multiple vectors may predict the same
// pixel.
func (f *MVFrame) PredictedFraction() float64 {
	if f.area() == 0 {
		return 0
	}
	return float64(f.MVInfo.Pred()) / float64(f.area())
}

// CalculateHistogram builds the coarse luma histogram by sampling every
// 65th sample of the Y plane (every 65th byte for 8-bit formats; the low
// byte of every 65th 2-byte sample, a 130-byte step, for 10-bit ones),
// per spec.md §4.3's cheap batch pass.
func (f *MVFrame) CalculateHistogram() {
	data := f.Frame.Y.Data
	bpp := 1
	if f.Frame.Format.BitDepth() == 10 {
		bpp = 2
	}
	step := 65 * bpp
	for i := 0; i < len(data); i += step {
		f.histogram[data[i]]++
	}
}

// FullCompare returns the cached Estimate against peer frame index idx,
// if one has been computed.
func (f *MVFrame) FullCompare(idx uint32) (motion.Estimate, bool) {
	e, ok := f.Estimates[idx]
	return e, ok
}

// PredecessorEstimate returns the Estimate against idx-1, if known.
func (f *MVFrame) PredecessorEstimate() (motion.Estimate, bool) {
	if f.Idx() == 0 {
		return motion.Estimate{}, false
	}
	return f.FullCompare(f.Idx() - 1)
}

// Mode, Min, Max, Avg and Quantile mirror motion.Estimate's histogram
// queries, operating on the frame's own luma histogram instead of a
// block-error histogram.

func (f *MVFrame) Mode() uint8 {
	best, bestN := 0, -1
	for i, n := range f.histogram {
		if int(n) > bestN {
			best, bestN = i, int(n)
		}
	}
	return uint8(best)
}

func (f *MVFrame) Min() uint8 {
	for i, n := range f.histogram {
		if n > 0 {
			return uint8(i)
		}
	}
	return 0
}

func (f *MVFrame) Max() uint8 {
	for i := len(f.histogram) - 1; i >= 0; i-- {
		if f.histogram[i] > 0 {
			return uint8(i)
		}
	}
	return 0
}

// HistPop is the total sampled population of the luma histogram.
func (f *MVFrame) HistPop() uint32 {
	var sum uint32
	for _, n := range f.histogram {
		sum += n
	}
	return sum
}

// Quantile returns the smallest bucket index whose cumulative population
// reaches q (0..1) of the total, spec.md §4.4's 75th/90th/10th percentile
// gates, via the same gonum-backed empirical quantile motion.Estimate
// uses for its per-block error histogram.
func (f *MVFrame) Quantile(q float64) uint8 {
	return motion.HistogramQuantile(f.histogram[:], q)
}

// Avg is the population-weighted mean luma bucket.
func (f *MVFrame) Avg() uint32 {
	var weighted, pop uint32
	for i, n := range f.histogram {
		weighted += uint32(i) * n
		pop += n
	}
	if pop == 0 {
		pop = 1
	}
	return weighted / pop
}

// AddFullCompare records est as this frame's motion estimate against
// peerIdx. The first time an estimate for a given peer is recorded, and
// only when that peer precedes this frame (peerIdx < Idx) with a low
// error fraction (< 5.0), the offset is folded into this frame's own
// MVInfo as a synthesized forward swarm — the recomputed global motion
// standing in for a codec motion vector the codec never reported,
// per add_full_compare in the original.
func (f *MVFrame) AddFullCompare(peerIdx uint32, est motion.Estimate) {
	if _, exists := f.Estimates[peerIdx]; exists {
		return
	}
	f.Estimates[peerIdx] = est

	if est.ErrorFraction() >= 5.0 || peerIdx >= f.Idx() {
		return
	}

	w, h := f.Frame.Y.W, f.Frame.Y.H
	area := intersectionArea(est.X, est.Y, w, h)
	if area <= 0 {
		return
	}
	swarm := motion.SwarmFromVector(float64(est.X), float64(est.Y))
	swarm.Forward = area
	f.MVInfo.Add(swarm)
}

// intersectionArea is the overlap, in pixels, between a w x h rect at
// the origin and the same rect translated by (dx, dy).
func intersectionArea(dx, dy, w, h int) int {
	minX, maxX := 0, w
	if dx > minX {
		minX = dx
	}
	if dx+w < maxX {
		maxX = dx + w
	}
	minY, maxY := 0, h
	if dy > minY {
		minY = dy
	}
	if dy+h < maxY {
		maxY = dy + h
	}
	if maxX <= minX || maxY <= minY {
		return 0
	}
	return (maxX - minX) * (maxY - minY)
}

func (f *MVFrame) String() string {
	return fmt.Sprintf("%d %s | %.3f %v\n hist: avg%d mode%d min%d 10th%d 25th%d 50th%d 75th%d 90th%d max%d",
		f.Idx(), f.Frame.PictureType, f.PredictedFraction(), f.MVInfo,
		f.Avg(), f.Mode(), f.Min(), f.Quantile(0.1), f.Quantile(0.25), f.Quantile(0.5), f.Quantile(0.75), f.Quantile(0.9), f.Max())
}
