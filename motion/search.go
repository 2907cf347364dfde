/*
DESCRIPTION
  search.go implements the exponential cross search of spec.md §4.1: an
  unconstrained/constrained two-mode cardinal-direction search over
  power-of-two step sizes, refining a starting hint offset until no
  candidate improves on the best error fraction found so far.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package motion

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ausocean/panstitch/decode"
)

// Offset is a candidate or hint motion-vector offset in full-resolution
// pixel units.
type Offset struct {
	X, Y int
}

// searchMode is the exponential cross search's two-mode switch: a wide
// unconstrained sweep, and a tight constrained sweep entered once a
// refinement lands close to the incumbent, matching search.rs's
// UnconstrainedCross/ConstrainedCross.
type searchMode int

const (
	unconstrainedCross searchMode = iota
	constrainedCross
)

// Search finds the integer-pel offset (dx, dy) that minimizes
// error_fraction when each cur pixel (x, y) is compared against pred's
// pixel (x+dx, y+dy) over their common interior, i.e. how far the view
// moved from pred to cur, per spec.md §4.1. hint, if non-nil, seeds the
// search; it is discarded (falling back to the origin) if either
// component is half the frame or more, since a hint that large is more
// likely wrong than useful. The candidate grid is evaluated concurrently per step, mirroring
// the original's rayon par_iter fan-out over tuples.
func Search(ctx context.Context, cur, pred decode.Plane, format decode.PixelFormat, hint *Offset, k Kernel, geo BlockGeometry) Estimate {
	w, h := cur.W, cur.H

	start := Offset{}
	if hint != nil {
		if absInt(hint.X) < w/2 && absInt(hint.Y) < h/2 {
			start = *hint
		}
	}

	best := Estimate{X: start.X, Y: start.Y, Area: uint32(w * h), ErrorSum: ^uint64(0), ErrorArea: ^uint64(0)}
	visited := make(map[Offset]bool, 180)

	mode := unconstrainedCross
	iterations := 0

	for {
		if ctx != nil && ctx.Err() != nil {
			return best
		}
		iterations++

		steps := 11
		if mode == constrainedCross {
			steps = 4
		}

		candidates := make([]Offset, 0, steps*4+2)
		x, y := best.X, best.Y
		for i := 0; i <= steps; i++ {
			step := 0
			if i < steps {
				step = 1 << uint(i)
			}
			candidates = append(candidates,
				Offset{x, y + step}, Offset{x, y - step},
				Offset{x + step, y}, Offset{x - step, y})
		}
		candidates = append(candidates, Offset{})

		tuples := make([]Offset, 0, len(candidates))
		for _, t := range candidates {
			if !intersects(t, w, h) {
				continue
			}
			if visited[t] {
				continue
			}
			visited[t] = true
			tuples = append(tuples, t)
		}

		found, ok := bestOf(tuples, cur, pred, format, k, geo)
		if !ok {
			found = best
		}

		if found.ErrorFraction() < best.ErrorFraction()-1e-5 {
			taxicab := maxInt(absInt(found.X-best.X), absInt(found.Y-best.Y))
			if taxicab < 1<<4 {
				mode = constrainedCross
			}
			best = found
			continue
		}

		if mode == unconstrainedCross {
			break
		}
		mode = unconstrainedCross
	}

	addSearchCounts(iterations, len(visited))
	return best
}

// searchIterations and searchVisited are the process-wide search
// statistics counters of spec.md §9's design note, reported by
// cmd/panstitch at the end of a run the way the original prints its
// COUNTS static. They are observational only and never influence
// search behavior.
var (
	searchIterations uint64
	searchVisited    uint64
)

func addSearchCounts(iterations, visited int) {
	atomic.AddUint64(&searchIterations, uint64(iterations))
	atomic.AddUint64(&searchVisited, uint64(visited))
}

// SearchStats returns the cumulative iteration and visited-offset counts
// across every Search call in this process.
func SearchStats() (iterations, visited uint64) {
	return atomic.LoadUint64(&searchIterations), atomic.LoadUint64(&searchVisited)
}

// intersects reports whether offsetting a w x h rect by t still overlaps
// the unshifted w x h rect by at least a quarter of its area, the
// candidate-pruning rule of spec.md §4.1/search.rs.
func intersects(t Offset, w, h int) bool {
	minX, maxX := 0, w
	if t.X > minX {
		minX = t.X
	}
	if t.X+w < maxX {
		maxX = t.X + w
	}
	minY, maxY := 0, h
	if t.Y > minY {
		minY = t.Y
	}
	if t.Y+h < maxY {
		maxY = t.Y + h
	}
	if maxX <= minX || maxY <= minY {
		return false
	}
	return (maxX-minX)*(maxY-minY) >= w*h/4
}

// bestOf evaluates every candidate concurrently and returns the one with
// the lowest error fraction among candidates that compared at least one
// block; ok is false if none did.
func bestOf(tuples []Offset, cur, pred decode.Plane, format decode.PixelFormat, k Kernel, geo BlockGeometry) (Estimate, bool) {
	if len(tuples) == 0 {
		return Estimate{}, false
	}
	ests := make([]Estimate, len(tuples))
	var wg sync.WaitGroup
	for i, t := range tuples {
		wg.Add(1)
		go func(i int, t Offset) {
			defer wg.Done()
			ests[i] = k.SAD(cur, pred, format, t.X, t.Y, geo)
		}(i, t)
	}
	wg.Wait()

	best, ok := Estimate{}, false
	for _, e := range ests {
		if e.Area == 0 {
			continue
		}
		if !ok || e.ErrorFraction() < best.ErrorFraction() {
			best, ok = e, true
		}
	}
	return best, ok
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
