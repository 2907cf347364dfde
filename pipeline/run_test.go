package pipeline

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ausocean/panstitch/decode"
)

func newTestPanFinder(t *testing.T) *PanFinder {
	t.Helper()
	pf, _, _ := newTestFinder(t, 10)
	return pf
}

func TestRunLengthStillOnFewerThanTwoFrames(t *testing.T) {
	pf := newTestPanFinder(t)
	pf.frames = mvFrames(decode.StillFrames(1, 64, 64, 120))
	got := pf.runLength()
	want := Run{Kind: KindStill}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("runLength() with one frame mismatch (-want +got):\n%s", diff)
	}
}

func TestRunLengthStillOnZeroMotion(t *testing.T) {
	pf := newTestPanFinder(t)
	pf.frames = mvFrames(decode.StillFrames(10, 64, 64, 120))
	if got := pf.runLength(); got.Kind != KindStill {
		t.Errorf("runLength() on a still clip = %+v, want Still", got)
	}
}

func TestRunLengthDetectsMotionRun(t *testing.T) {
	pf := newTestPanFinder(t)
	pf.frames = mvFrames(decode.PanFrames(10, 64, 64, 4, 0, 120))
	// The prefilter computes luma histograms before frames reach the
	// pan-finder; the low-entropy gate reads them.
	for _, mf := range pf.frames {
		mf.CalculateHistogram()
	}
	got := pf.runLength()
	if got.Kind != KindRun {
		t.Fatalf("runLength() on a panning clip = %+v, want Run", got)
	}
	if got.MotionFrames == 0 {
		t.Errorf("runLength() MotionFrames = 0, want > 0")
	}
}

func TestQuantizedDirectionNearbyVectorsSimilar(t *testing.T) {
	a := quantizedDirection(4, 0)
	b := quantizedDirection(4, 1)
	if !a.IsSimilar(b) {
		t.Errorf("quantizedDirection(4,0) and (4,1) should quantize to similar swarms")
	}
}

func TestQuantizedDirectionOppositeNotSimilar(t *testing.T) {
	a := quantizedDirection(4, 0)
	b := quantizedDirection(-4, 0)
	if a.IsSimilar(b) {
		t.Errorf("quantizedDirection(4,0) and (-4,0) should not be similar")
	}
}
