/*
DESCRIPTION
  vectors.go implements the motion-vector aggregate of spec.md §4.2 (MVec
  in the original): codec-reported motion vectors binned by quantized
  (angle, length) into forward/backward/intra swarms, with zero-motion
  culling, cross-frame transplant, and the directional queries the
  pan-finder's run-length walk needs.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package motion

import (
	"math"
	"sort"

	"github.com/ausocean/panstitch/decode"
)

// Swarm is a single (angle, length) bin of codec motion vectors, weighted
// by block area and split by predicted-from direction. Angle is degrees,
// quantized to the nearest 22.5° and normalized to mean "direction of
// apparent motion" regardless of which reference frame a vector actually
// points at. Length is a power-of-two magnitude bucket.
type Swarm struct {
	Angle, Length     int
	Forward, Backward int
	Intra             int
}

// Count is the total weighted area of every prediction in this bin.
func (s Swarm) Count() int { return s.Forward + s.Backward + s.Intra }

// MVInfo is the per-frame swarm aggregate, named MVInfo (MVec in the
// original) in spec.md §4.2.
type MVInfo struct {
	Swarms []Swarm
}

// NewMVInfo returns an empty aggregate, matching MVInfo::new's single
// zero-valued swarm placeholder.
func NewMVInfo() MVInfo {
	return MVInfo{Swarms: []Swarm{{}}}
}

type swarmKey struct{ Angle, Length int }

func (m MVInfo) bins() map[swarmKey]Swarm {
	bins := make(map[swarmKey]Swarm, len(m.Swarms))
	for _, s := range m.Swarms {
		bins[swarmKey{s.Angle, s.Length}] = s
	}
	return bins
}

func sortedSwarms(bins map[swarmKey]Swarm) []Swarm {
	out := make([]Swarm, 0, len(bins))
	for _, s := range bins {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Count() > out[j].Count() })
	return out
}

// Populate rebuilds the aggregate from cur's codec-reported motion
// vectors, consulting prev/nxt (whichever cur's frame's reference
// direction indicates) to cull spurious zero-motion vectors. prev and
// nxt may be nil; cur must not be.
func (m *MVInfo) Populate(prev, cur, nxt *decode.Frame) {
	if len(cur.Vectors) == 0 {
		return
	}

	sample := sampleFn(cur.Format)
	bins := make(map[swarmKey]int3)

	for _, v := range cur.Vectors {
		if v.MotionX == 0 && v.MotionY == 0 && v.BlockW == 16 && v.BlockH == 16 {
			var other *decode.Frame
			if v.Source < 0 {
				other = prev
			} else {
				other = nxt
			}
			if other != nil && zeroVecCulled(cur, other, v, sample) {
				continue
			}
		}

		mx := float64(v.MotionX) / float64(v.MotionScale)
		my := float64(v.MotionY) / float64(v.MotionScale)
		angle, length := mvAngleLength(mx, my, v.Source)
		area := v.BlockW * v.BlockH

		k := swarmKey{angle, length}
		b := bins[k]
		switch {
		case v.Source < 0:
			b.fwd += area
		case v.Source > 0:
			b.bwd += area
		default:
			b.intra += area
		}
		bins[k] = b
	}

	sorted := make([]Swarm, 0, len(bins))
	for k, b := range bins {
		sorted = append(sorted, Swarm{Angle: k.Angle, Length: k.Length, Forward: b.fwd, Backward: b.bwd, Intra: b.intra})
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Count() > sorted[j].Count() })
	m.Swarms = sorted
}

// int3 accumulates forward/backward/intra area while building bins, kept
// separate from Swarm so Populate's map doesn't need swarmKey duplicated
// into the value.
type int3 struct{ fwd, bwd, intra int }

// zeroVecCulled reports whether a reported (0,0) 16x16 motion vector
// should be rejected: true when the referenced block in other actually
// differs from cur by more than max_error = 48 * rows (spec.md §4.2),
// meaning the codec's zero vector was standing in for intra prediction
// rather than genuine zero motion.
func zeroVecCulled(cur, other *decode.Frame, v decode.MotionVector, sample func(decode.Plane, int, int) uint8) bool {
	frameW, frameH := cur.Y.W, cur.Y.H
	offX := v.DstX - v.BlockW/2
	offY := v.DstY - v.BlockH/2
	if offX < 0 || offY < 0 || offX+16 > frameW {
		return false
	}
	rows := frameH - offY
	if rows > 16 {
		rows = 16
	}
	if rows <= 0 {
		return false
	}
	maxError := uint32(48 * rows)

	var errorSum uint32
	for r := 0; r < rows; r++ {
		y := offY + r
		for c := 0; c < 16; c++ {
			x := offX + c
			a := int(sample(cur.Y, x, y))
			b := int(sample(other.Y, x, y))
			d := a - b
			if d < 0 {
				d = -d
			}
			errorSum += uint32(d)
		}
		if errorSum > maxError {
			return true
		}
	}
	return false
}

// mvAngleLength quantizes a raw (mx, my) displacement to the nearest
// 22.5° direction and power-of-two length bucket, per spec.md §4.2.
// source's sign flips the angle to always mean "direction of apparent
// motion" rather than "direction to the reference frame".
func mvAngleLength(mx, my float64, source int) (angle, length int) {
	a := vectorAngle(mx, my)
	a += 180
	if source > 0 {
		a += 180
	}
	a = normalizeAngle(a)
	return int(a), vectorLength(mx, my)
}

// vectorAngle quantizes a displacement to the nearest 22.5° direction,
// unnormalized (the caller adds any further offset, e.g. the +180 "mean
// apparent motion" convention or a source-direction flip, before
// reducing modulo 360).
func vectorAngle(mx, my float64) float64 {
	return math.Round(math.Atan2(my, mx)*180/math.Pi/22.5) * 22.5
}

func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return a
}

// vectorLength buckets a displacement's magnitude to the nearest
// power-of-two length: log2 of the magnitude, rounded, then exp2.
func vectorLength(mx, my float64) int {
	h := math.Hypot(mx, my)
	if h == 0 {
		return 0
	}
	return int(math.Exp2(math.Round(math.Log2(h))))
}

// SwarmFromVector builds a synthesized swarm from a raw (x, y) offset
// (e.g. a recomputed global-motion Estimate), without any source-frame
// direction flip — matching MVec::new().from_vector(x, y) in the
// original, which the caller then attributes to forward or backward
// prediction count itself.
func SwarmFromVector(x, y float64) Swarm {
	angle := normalizeAngle(vectorAngle(x, y) + 180)
	return Swarm{Angle: int(angle), Length: vectorLength(x, y)}
}

// Add merges a single synthesized swarm (e.g. derived from a full-frame
// Estimate) into the aggregate.
func (m *MVInfo) Add(v Swarm) {
	bins := m.bins()
	k := swarmKey{v.Angle, v.Length}
	b := bins[k]
	b.Angle, b.Length = v.Angle, v.Length
	b.Forward += v.Forward
	b.Backward += v.Backward
	b.Intra += v.Intra
	bins[k] = b
	m.Swarms = sortedSwarms(bins)
}

// TransplantFrom fills in forward predictions from prev's backward
// swarms and backward predictions from nxt's forward swarms, the way
// spec.md §4.2 compensates for I/P frames lacking native backward
// predictions.
func (m *MVInfo) TransplantFrom(prev, nxt *MVInfo) {
	bins := m.bins()

	if prev != nil {
		for _, v := range prev.Swarms {
			if v.Backward == 0 {
				continue
			}
			k := swarmKey{v.Angle, v.Length}
			b := bins[k]
			b.Angle, b.Length = v.Angle, v.Length
			b.Forward += v.Backward
			bins[k] = b
		}
	}

	if nxt != nil {
		for _, v := range nxt.Swarms {
			if v.Forward == 0 {
				continue
			}
			k := swarmKey{v.Angle, v.Length}
			b := bins[k]
			b.Angle, b.Length = v.Angle, v.Length
			b.Backward += v.Forward
			bins[k] = b
		}
	}

	m.Swarms = sortedSwarms(bins)
}

// Past is the total area predicted from a past reference frame.
func (m MVInfo) Past() int {
	sum := 0
	for _, s := range m.Swarms {
		sum += s.Forward
	}
	return sum
}

// Future is the total area predicted from a future reference frame.
func (m MVInfo) Future() int {
	sum := 0
	for _, s := range m.Swarms {
		sum += s.Backward
	}
	return sum
}

// Intra is the total area predicted intra-frame.
func (m MVInfo) Intra() int {
	sum := 0
	for _, s := range m.Swarms {
		sum += s.Intra
	}
	return sum
}

// ForwardStillBlocks is the forward-predicted area in the zero-length
// (stationary) swarm.
func (m MVInfo) ForwardStillBlocks() int {
	sum := 0
	for _, s := range m.Swarms {
		if s.Length == 0 {
			sum += s.Forward
		}
	}
	return sum
}

// ForwardDominantAngle returns the moving (non-zero-length) angle with
// the most forward-predicted area, and that area.
func (m MVInfo) ForwardDominantAngle() (angle, count int) {
	byAngle := make(map[int]int)
	for _, s := range m.Swarms {
		if s.Length == 0 {
			continue
		}
		byAngle[s.Angle] += s.Forward
	}
	bestAngle, bestCount := 0, -1
	for a, c := range byAngle {
		if c > bestCount || (c == bestCount && a < bestAngle) {
			bestAngle, bestCount = a, c
		}
	}
	if bestCount < 0 {
		return 0, 0
	}
	return bestAngle, bestCount
}

// Pred is the total weighted prediction count across every swarm; it can
// exceed the frame's pixel count if multiple vectors predict the same
// location.
func (m MVInfo) Pred() int {
	sum := 0
	for _, s := range m.Swarms {
		sum += s.Count()
	}
	return sum
}

// circularAngleDiff is the smaller of the two arcs between a and b on a
// 360°-wrapped circle, in degrees.
func circularAngleDiff(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	d %= 360
	if d > 180 {
		d = 360 - d
	}
	return d
}

// IsSimilar reports whether two quantized swarms describe the same
// apparent motion: their angles differ by at most 23° in the circular
// sense, and their quantized lengths agree exactly.
func (s Swarm) IsSimilar(other Swarm) bool {
	return s.Length == other.Length && circularAngleDiff(s.Angle, other.Angle) <= 23
}

// MostCommonVector ranks a frame's raw codec motion vectors by how many
// times each distinct (x, y) offset (rounded to whole pixels) occurs,
// returning the most frequent offset. This favours genuine frequency
// ranking over the original's apparent key-value sort, since spec.md
// does not call out that quirk as one to preserve.
func MostCommonVector(vecs []decode.MotionVector) (Offset, bool) {
	if len(vecs) == 0 {
		return Offset{}, false
	}
	counts := make(map[Offset]int, len(vecs))
	for _, v := range vecs {
		x := int(math.Round(float64(v.MotionX) / float64(v.MotionScale)))
		y := int(math.Round(float64(v.MotionY) / float64(v.MotionScale)))
		counts[Offset{X: x, Y: y}]++
	}
	best, bestN := Offset{}, -1
	for o, n := range counts {
		if n > bestN || (n == bestN && (o.X < best.X || (o.X == best.X && o.Y < best.Y))) {
			best, bestN = o, n
		}
	}
	return best, true
}
