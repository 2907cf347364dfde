/*
DESCRIPTION
  estimate.go defines Estimate, the result of a block-matching motion
  search between two frames, and its derived queries.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package motion implements the translational block-matching search, its
// SIMD-dispatched SAD kernels, and the codec motion-vector aggregate that
// feed the pan-finder's run-length state machine.
package motion

import "fmt"

// Estimate is the result of comparing a block-matched offset (X, Y)
// between two frames: the total block-SAD error over the compared
// interior, the "actually different" area under that error, and a
// 256-bucket histogram of per-block errors used for quantile queries by
// the pan-finder.
type Estimate struct {
	X, Y      int
	Area      uint32
	ErrorSum  uint64
	ErrorArea uint64
	Histogram [256]uint16
}

// Still returns the identity estimate: no motion, zero error, over the
// given comparison area.
func Still(area uint32) Estimate {
	return Estimate{Area: area}
}

// Reverse negates the offset, preserving every other field. It is used to
// populate a peer frame's estimate of this frame without recomputing it,
// maintaining the reverse-symmetry invariant of spec.md §3.
func (e Estimate) Reverse() Estimate {
	e.X, e.Y = -e.X, -e.Y
	return e
}

// ErrorFraction is the mean per-pixel SAD error over the compared area.
func (e Estimate) ErrorFraction() float64 {
	if e.Area == 0 {
		return 0
	}
	return float64(e.ErrorSum) / float64(e.Area)
}

// AreaFraction is the fraction of the compared area whose blocks
// registered as meaningfully different.
func (e Estimate) AreaFraction() float64 {
	if e.Area == 0 {
		return 0
	}
	return float64(e.ErrorArea) / float64(e.Area)
}

// Quantile returns the p-quantile (0..1) of the per-block error
// histogram, same semantics as MVFrame's luma histogram quantile: the
// smallest bucket index whose cumulative population reaches p * total.
func (e Estimate) Quantile(p float64) uint8 {
	return HistogramQuantile(e.Histogram[:], p)
}

// Mode returns the most populated histogram bucket.
func (e Estimate) Mode() uint8 {
	best, bestN := 0, -1
	for i, n := range e.Histogram {
		if int(n) > bestN {
			best, bestN = i, int(n)
		}
	}
	return uint8(best)
}

// Min returns the lowest populated histogram bucket.
func (e Estimate) Min() uint8 {
	for i, n := range e.Histogram {
		if n > 0 {
			return uint8(i)
		}
	}
	return 0
}

// Max returns the highest populated histogram bucket.
func (e Estimate) Max() uint8 {
	for i := len(e.Histogram) - 1; i >= 0; i-- {
		if e.Histogram[i] > 0 {
			return uint8(i)
		}
	}
	return 0
}

func (e Estimate) String() string {
	return fmt.Sprintf("est(x:%d y:%d area:%d sum:%d aerr:%d fr:%.3f afr:%.3f)",
		e.X, e.Y, e.Area, e.ErrorSum, e.ErrorArea, e.ErrorFraction(), e.AreaFraction())
}
