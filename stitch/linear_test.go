package stitch

import (
	"context"
	"testing"

	"github.com/ausocean/panstitch/decode"
	"github.com/ausocean/panstitch/motion"
)

func newTestStitcher(t *testing.T) *LinStitcher {
	t.Helper()
	k, geo, err := motion.SelectKernel(decode.FormatYUV420P8, 0, nil)
	if err != nil {
		t.Fatalf("SelectKernel: %v", err)
	}
	return New(k, geo)
}

func TestFirstFrameAtOrigin(t *testing.T) {
	s := newTestStitcher(t)
	frames := decode.PanFrames(1, 64, 64, 0, 0, 120)
	s.AddFrame(context.Background(), frames[0], nil)

	if len(s.frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(s.frames))
	}
	if s.frames[0].OffsetX != 0 || s.frames[0].OffsetY != 0 {
		t.Errorf("first frame offset = (%d, %d), want (0, 0)", s.frames[0].OffsetX, s.frames[0].OffsetY)
	}
}

func TestExpansionGrowsWithPan(t *testing.T) {
	s := newTestStitcher(t)
	frames := decode.PanFrames(10, 64, 64, 4, 0, 120)
	for i, f := range frames {
		est := motion.Estimate{}
		if i > 0 {
			est = motion.Estimate{X: 4, Y: 0, Area: uint32(64 * 64)}
		}
		s.AddFrame(context.Background(), f, &est)
	}
	if got := s.Expansion(); got <= 1.0 {
		t.Errorf("Expansion() = %.3f after a 10-frame pan, want > 1.0", got)
	}
}

func TestExpansionStaysAtOneForAStillPan(t *testing.T) {
	s := newTestStitcher(t)
	frames := decode.StillFrames(5, 64, 64, 120)
	for _, f := range frames {
		est := motion.Estimate{}
		s.AddFrame(context.Background(), f, &est)
	}
	if got := s.Expansion(); got != 1.0 {
		t.Errorf("Expansion() = %.3f for a still pan, want exactly 1.0", got)
	}
}

func TestContributingDropsStillDuplicates(t *testing.T) {
	s := newTestStitcher(t)
	frames := decode.PanFrames(4, 64, 64, 4, 0, 120)
	ests := []motion.Estimate{{}, {X: 4, Area: 4096}, {}, {X: 4, Area: 4096}}
	for i, f := range frames {
		e := ests[i]
		s.AddFrame(context.Background(), f, &e)
	}
	got := s.contributing()
	if len(got) != 3 { // first frame + the two moving frames, not the repeated still.
		t.Errorf("contributing() returned %d frames, want 3", len(got))
	}
}

func TestCompositeProducesNonEmptyImage(t *testing.T) {
	s := newTestStitcher(t)
	frames := decode.PanFrames(5, 32, 32, 4, 0, 120)
	for i, f := range frames {
		est := motion.Estimate{}
		if i > 0 {
			est = motion.Estimate{X: 4, Area: 32 * 32}
		}
		s.AddFrame(context.Background(), f, &est)
	}
	img := s.Composite()
	b := img.Bounds()
	if b.Dx() <= 32 || b.Dy() != 32 {
		t.Errorf("Composite() bounds = %v, want width > 32 and height == 32", b)
	}
}
