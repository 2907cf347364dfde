/*
DESCRIPTION
  kernel.go defines the block-matching SAD kernel interface and the
  per-(format, subsample) block geometry table of spec.md §4.1, dispatched
  between a gocv-accelerated implementation (build tag withcv) and a
  pure-Go scalar fallback, the way filter/diff.go and filter/basic.go
  dispatch between gocv and stdlib image processing in the teacher repo.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package motion

import (
	"fmt"

	"github.com/ausocean/utils/logging"
	"golang.org/x/sys/cpu"

	"github.com/ausocean/panstitch/decode"
)

// BlockGeometry describes the block size a kernel scans the comparison
// region with. Both dimensions must be powers of two and must divide the
// scanned region; BlockW*BlockH must be at least 64 samples so that
// per-block error histogramming (spec.md §4.1) is statistically
// meaningful.
type BlockGeometry struct {
	W, H int
}

// Area is the number of samples per block.
func (g BlockGeometry) Area() int { return g.W * g.H }

// Kernel computes the SAD-based Estimate between two Y planes at a given
// integer offset, using the supplied block geometry. Implementations
// must inflate the comparison interior inward by 16 pixels (spec.md
// §4.1) to ignore letterboxing before scanning.
type Kernel interface {
	SAD(cur, pred decode.Plane, format decode.PixelFormat, dx, dy int, geo BlockGeometry) Estimate
	Name() string
}

// geometryTable is the block-size table of spec.md §4.1: a wide 32x8
// geometry for the gocv-accelerated (withcv) kernel, which can lean on
// OpenCV's own SIMD SAD, and a narrower 16x8 geometry for the portable
// scalar kernel. 10-bit formats use 16x8 in both builds since each
// sample occupies two bytes and a 32-wide row would no longer fit a
// single vector register class; both satisfy the >=64-sample floor.
var geometryTable = map[bool]map[int]BlockGeometry{
	false: { // scalar
		8:  {W: 16, H: 8},
		10: {W: 16, H: 8},
	},
	true: { // withcv
		8:  {W: 32, H: 8},
		10: {W: 16, H: 8},
	},
}

// AutoSubsample implements spec.md §4.1's auto-subsample rule: 0 for
// <720p, 1 for >=720p, 2 for >=1080p, keyed off frame height.
func AutoSubsample(height int) int {
	switch {
	case height >= 1080:
		return 2
	case height >= 720:
		return 1
	default:
		return 0
	}
}

// subsampleFactor maps the subsample parameter onto a block-grid scale
// factor: 0 (auto's smallest tier) leaves the base geometry alone, and
// each larger tier doubles both block dimensions, halving the grid
// density and roughly quartering the number of blocks searched. Both
// dimensions stay powers of two, preserving the BlockGeometry invariant.
func subsampleFactor(subsample int) int {
	switch subsample {
	case 0:
		return 1
	case 1:
		return 2
	case 2:
		return 4
	case 4:
		return 8
	case 8:
		return 16
	default:
		return 1
	}
}

// SelectKernel picks the SAD kernel and block geometry for a format and
// requested subsample (spec.md §4.1: 0 meaning auto, resolved by the
// caller via AutoSubsample before reaching here, or 1/2/4/8 as an
// explicit override). It logs which kernel and CPU features are in play
// for diagnostics; this is purely observational, matching spec.md §9's
// note that the only cross-cutting mutable state (search-iteration
// counters) is allowed to be informational only.
func SelectKernel(format decode.PixelFormat, subsample int, log logging.Logger) (Kernel, BlockGeometry, error) {
	depth := format.BitDepth()
	base, ok := geometryTable[hasCVKernel][depth]
	if !ok {
		return nil, BlockGeometry{}, fmt.Errorf("motion: unsupported bit depth %d for format %v", depth, format)
	}
	factor := subsampleFactor(subsample)
	geo := BlockGeometry{W: base.W * factor, H: base.H * factor}
	k := newKernel()
	if log != nil {
		log.Debug("selected motion search kernel", "kernel", k.Name(),
			"subsample", subsample, "block_w", geo.W, "block_h", geo.H,
			"avx2", cpu.X86.HasAVX2, "sse2", cpu.X86.HasSSE2)
	}
	return k, geo, nil
}
