package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ausocean/panstitch/config"
	"github.com/ausocean/panstitch/decode"
	"github.com/ausocean/panstitch/frame"
	"github.com/ausocean/panstitch/motion"
	"github.com/ausocean/panstitch/output"
)

// newTestFinder returns a pan-finder wired to an in-test stitcher-writer
// stage (mirroring pipeline.Run's own composites channel), the output
// directory it writes under, and a finish func that closes the pan-finder,
// drains the composites channel, and waits for every write to land on disk
// before returning.
func newTestFinder(t *testing.T, minExpand int) (*PanFinder, string, func(t *testing.T)) {
	t.Helper()
	k, geo, err := motion.SelectKernel(decode.FormatYUV420P8, 0, nil)
	if err != nil {
		t.Fatalf("SelectKernel: %v", err)
	}
	dir := t.TempDir()
	cfg := config.Config{Pictures: dir, Stitch: true, MinExpand: minExpand, Workers: 1}

	composites := make(chan compositeJob, stitcherCap)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for job := range composites {
			if _, err := output.WriteComposite(job.dir, job.start, job.img); err != nil {
				t.Errorf("WriteComposite: %v", err)
			}
		}
	}()

	pf := NewPanFinder(context.Background(), cfg, "clip", k, geo, composites)
	finish := func(t *testing.T) {
		t.Helper()
		if err := pf.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		close(composites)
		<-done
	}
	return pf, dir, finish
}

// mvFrames wraps decode.Frames into MVFrames the way pipeline.decode
// does, wiring each frame's immediate predecessor for MVInfo.Populate.
func mvFrames(frames []decode.Frame) []*frame.MVFrame {
	out := make([]*frame.MVFrame, len(frames))
	for i, f := range frames {
		var prev *decode.Frame
		if i > 0 {
			prev = &frames[i-1]
		}
		out[i] = frame.New(f, prev, nil)
	}
	return out
}

func TestPanFinderStillClipEmitsNothing(t *testing.T) {
	pf, dir, finish := newTestFinder(t, 20)
	frames := mvFrames(decode.StillFrames(60, 320, 180, 120))
	for _, mf := range frames {
		if err := pf.AddFrame(mf); err != nil {
			t.Fatalf("AddFrame: %v", err)
		}
	}
	finish(t)

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected no output directories for a still clip, got %v", entries)
	}
}

func TestPanFinderSyntheticPanEmitsOneComposite(t *testing.T) {
	pf, dir, finish := newTestFinder(t, 10)
	frames := mvFrames(decode.PanFrames(30, 320, 180, 4, 0, 120))
	// The prefilter computes luma histograms before frames reach the
	// pan-finder; the low-entropy gate reads them.
	for _, mf := range frames {
		mf.CalculateHistogram()
	}
	for _, mf := range frames {
		if err := pf.AddFrame(mf); err != nil {
			t.Fatalf("AddFrame: %v", err)
		}
	}
	finish(t)

	panDir := filepath.Join(dir, "clip.seq")
	entries, err := os.ReadDir(panDir)
	if err != nil {
		t.Fatalf("expected a clip.seq directory, got error: %v", err)
	}
	foundComposite := false
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".png" {
			foundComposite = true
		}
	}
	if !foundComposite {
		t.Errorf("expected a composite PNG in %s, entries: %v", panDir, entries)
	}
}

func TestPanFinderShortPanEmitsNothing(t *testing.T) {
	pf, dir, finish := newTestFinder(t, 10)
	frames := mvFrames(decode.PanFrames(4, 320, 180, 4, 0, 120))
	for _, mf := range frames {
		if err := pf.AddFrame(mf); err != nil {
			t.Fatalf("AddFrame: %v", err)
		}
	}
	finish(t)

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected no output for a 4-frame pan (below the 6-frame threshold), got %v", entries)
	}
}
