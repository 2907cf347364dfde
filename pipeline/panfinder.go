/*
DESCRIPTION
  panfinder.go implements the pan-finder stage of spec.md §4.4: a
  sliding deque of up to 24 annotated frames, the run-length walk
  (run.go), and the open-batch lifecycle that creates a per-pan output
  directory, log, and stitcher, and decides whether a finished batch's
  composite clears the expansion gate.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/ausocean/panstitch/config"
	"github.com/ausocean/panstitch/decode"
	"github.com/ausocean/panstitch/frame"
	"github.com/ausocean/panstitch/motion"
	"github.com/ausocean/panstitch/output"
	"github.com/ausocean/panstitch/stitch"
)

// maxQueue is the deque's size bound (spec.md §4.4's 24-frame window).
const maxQueue = 24

// minMotionFrames is try_open_batch's gate.
const minMotionFrames = 6

// batch is an open candidate pan: the sliding deque frames between
// startIdx and the most recently admitted frame are being streamed into
// the linear stitcher and (if requested) the per-frame image sink.
type batch struct {
	startIdx uint32
	dir      string
	logW     *bufio.Writer
	logF     *os.File
	frameW   *output.FrameWriter
	stitcher *stitch.LinStitcher
}

// PanFinder is the pan-finder stage: it owns the sliding deque and the
// one (if any) currently open batch. Finished composites are handed off
// to composites rather than written inline, so a slow encode/filesystem
// write never blocks frame ingestion (spec.md §5's stitcher-writer stage).
type PanFinder struct {
	ctx        context.Context
	cfg        config.Config
	base       string // stem used to name each pan's "<stem>.seq" directory
	kernel     motion.Kernel
	geo        motion.BlockGeometry
	composites chan<- compositeJob

	frames []*frame.MVFrame // oldest at index 0, newest at the end
	out    *batch
}

// NewPanFinder returns a pan-finder that will write pans for one input
// video named by base (the video's path stem) under cfg.Pictures. Finished
// composites are sent to composites for the stitcher-writer stage to
// encode and write; ctx governs that handoff so a cancelled run never
// blocks forever on a full composites channel.
func NewPanFinder(ctx context.Context, cfg config.Config, base string, k motion.Kernel, geo motion.BlockGeometry, composites chan<- compositeJob) *PanFinder {
	return &PanFinder{ctx: ctx, cfg: cfg, base: base, kernel: k, geo: geo, composites: composites}
}

func (pf *PanFinder) frameByIdx(idx uint32) *frame.MVFrame {
	for _, f := range pf.frames {
		if f.Idx() == idx {
			return f
		}
	}
	return nil
}

// compareFrames returns the Estimate between newer and older (newer.Idx
// > older.Idx), computing and symmetrically caching it via a fresh
// motion.Search if not already known. older may be nil (no predecessor
// in the window), in which case ok is false.
func (pf *PanFinder) compareFrames(newer, older *frame.MVFrame) (motion.Estimate, bool) {
	if older == nil {
		return motion.Estimate{}, false
	}
	if e, ok := newer.FullCompare(older.Idx()); ok {
		return e, true
	}

	hint, _ := motion.MostCommonVector(newer.Frame.Vectors)
	e := motion.Search(context.Background(), newer.Frame.Y, older.Frame.Y, newer.Frame.Format, &hint, pf.kernel, pf.geo)
	newer.AddFullCompare(older.Idx(), e)
	older.AddFullCompare(newer.Idx(), e.Reverse())
	return e, true
}

// quantizedDirection converts a raw offset into a swarm carrying only
// the quantized (angle, length) pair, for IsSimilar comparisons.
func quantizedDirection(x, y int) motion.Swarm {
	return motion.SwarmFromVector(float64(x), float64(y))
}

// AddFrame admits the next decode-order frame to the pan-finder,
// running the run-length walk and advancing or closing any open batch,
// per spec.md §4.4's per-frame step table.
func (pf *PanFinder) AddFrame(mf *frame.MVFrame) error {
	pf.frames = append(pf.frames, mf)

	if len(pf.frames) > maxQueue {
		if pf.out != nil {
			return errors.Errorf("pipeline: queue overflow with open batch at frame %d", mf.Idx())
		}
		pf.frames = pf.frames[1:]
	}

	run := pf.runLength()
	switch run.Kind {
	case KindStill:
		// nothing.
	case KindSceneChange:
		if err := pf.finishBatch(EndSceneChange); err != nil {
			return err
		}
	case KindRun:
		if pf.out != nil && run.OldestFrame != pf.frames[0].Idx() {
			if err := pf.finishBatch(EndRunDiscontinuity); err != nil {
				return err
			}
		}
	}

	if len(pf.frames) >= maxQueue && pf.out != nil {
		if err := pf.finishBatch(EndQueueSaturation); err != nil {
			return err
		}
	}

	run = pf.runLength()
	if run.Kind == KindRun && pf.out == nil {
		if err := pf.tryOpenBatch(run); err != nil {
			return err
		}
	}

	if pf.out != nil {
		return pf.drainToBatch()
	}
	return nil
}

// drainToBatch transfers every queued frame at or after the batch's
// start, oldest first, into the stitcher and (if configured) the
// per-frame image sink, retiring them from the deque.
func (pf *PanFinder) drainToBatch() error {
	kept := pf.frames[:0:0]
	for _, f := range pf.frames {
		if f.Idx() < pf.out.startIdx {
			kept = append(kept, f)
			continue
		}
		est, _ := pf.predecessorEstimateInWindow(f)
		pf.out.stitcher.AddFrame(context.Background(), f.Frame, est)
		if pf.out.frameW != nil {
			if img := frameRGBA(f.Frame); img != nil {
				if _, err := pf.out.frameW.Write(img); err != nil {
					return errors.Wrapf(err, "pipeline: writing pan frame %d", f.Idx())
				}
			}
		}
		if pf.out.logW != nil {
			fmt.Fprintf(pf.out.logW, "%s\n", f.String())
		}
	}
	pf.frames = kept
	return nil
}

func (pf *PanFinder) predecessorEstimateInWindow(f *frame.MVFrame) (*motion.Estimate, bool) {
	if f.Idx() == 0 {
		return nil, false
	}
	e, ok := f.FullCompare(f.Idx() - 1)
	if !ok {
		return nil, false
	}
	return &e, true
}

// tryOpenBatch implements spec.md §4.4's try_open_batch: it requires at
// least minMotionFrames of detected motion, then creates the pan's
// output directory, log, and stitcher, discarding deque frames newer
// than start_frame+1 as pre-pan noise.
func (pf *PanFinder) tryOpenBatch(run Run) error {
	if run.MotionFrames < minMotionFrames {
		return nil
	}

	dir := filepath.Join(pf.cfg.Pictures, fmt.Sprintf("%s.seq", pf.base))
	b := &batch{startIdx: run.OldestFrame, dir: dir, stitcher: stitch.New(pf.kernel, pf.geo)}

	if pf.cfg.Log {
		logPath := filepath.Join(dir, fmt.Sprintf("%06d.log", run.OldestFrame))
		w, f, err := output.OpenLog(logPath)
		if err != nil {
			return errors.Wrap(err, "pipeline: opening pan log")
		}
		b.logW, b.logF = w, f
	}

	if pf.cfg.SingleFrameFormat != config.FormatNull {
		fw, err := output.NewFrameWriter(dir, run.OldestFrame, pf.cfg.SingleFrameFormat)
		if err != nil {
			return errors.Wrap(err, "pipeline: opening pan frame writer")
		}
		b.frameW = fw
	}

	pf.out = b

	kept := pf.frames[:0:0]
	for _, f := range pf.frames {
		if f.Idx() > run.OldestFrame+1 {
			continue // pre-pan noise, per spec.md §4.4.
		}
		kept = append(kept, f)
	}
	pf.frames = kept
	return nil
}

// finishBatch closes the currently open batch (if any): flushes the log,
// and if requested, hands the stitcher's composite to the writer only
// when the expansion gate clears.
func (pf *PanFinder) finishBatch(reason RunEnd) error {
	if pf.out == nil {
		return nil
	}
	b := pf.out
	pf.out = nil

	if b.logW != nil {
		fmt.Fprintf(b.logW, "end: %s\n", reason)
		b.logW.Flush()
		b.logF.Close()
	}

	if !pf.cfg.Stitch {
		return nil
	}
	minRatio := 1 + float64(pf.cfg.MinExpand)/100
	if b.stitcher.Expansion() < minRatio {
		return nil
	}

	job := compositeJob{dir: b.dir, start: b.startIdx, img: b.stitcher.Composite()}
	select {
	case pf.composites <- job:
		return nil
	case <-pf.ctx.Done():
		return pf.ctx.Err()
	}
}

// Close flushes any still-open batch at end of stream, per spec.md §5's
// graceful-shutdown rule.
func (pf *PanFinder) Close() error {
	return pf.finishBatch(EndOfStream)
}

func frameRGBA(f decode.Frame) image.Image {
	if f.RGBA == nil {
		return nil
	}
	return &image.RGBA{
		Pix:    f.RGBA,
		Stride: f.Y.W * 4,
		Rect:   image.Rect(0, 0, f.Y.W, f.Y.H),
	}
}
