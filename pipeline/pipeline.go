/*
DESCRIPTION
  pipeline.go wires the decode -> prefilter -> pan-finder -> stitcher-writer
  stage graph of spec.md §5: buffered channels at the documented capacities
  (25/25/3) connect a decoder-producer goroutine to the prefilter, the
  pan-finder, and a dedicated composite-writer goroutine, the way
  revid/pipeline.go's setupPipeline wires filters and senders together.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package pipeline implements the prefilter and pan-finder stages and
// the channel graph that connects them to a decode.Source.
package pipeline

import (
	"context"
	"errors"
	"image"
	"io"

	"github.com/ausocean/panstitch/config"
	"github.com/ausocean/panstitch/decode"
	"github.com/ausocean/panstitch/frame"
	"github.com/ausocean/panstitch/motion"
	"github.com/ausocean/panstitch/output"
)

// Channel capacities of spec.md §5.
const (
	prefilterCap = 25
	panfinderCap = 25
	stitcherCap  = 3
)

// compositeJob is one finished pan's composite, handed from the
// pan-finder to the stitcher-writer stage for encoding and writing.
type compositeJob struct {
	dir   string
	start uint32
	img   image.Image
}

// Pipeline runs one input source end to end: decode -> prefilter ->
// pan-finder -> stitcher-writer, logging per-file decoder errors and
// continuing (spec.md §7) rather than aborting the run. A composite
// write failure is a filesystem error per spec.md §7 and is surfaced as
// a process failure.
type Pipeline struct {
	cfg    config.Config
	kernel motion.Kernel
	geo    motion.BlockGeometry
}

// New returns a pipeline that will use k/geo for every motion search its
// stages perform.
func New(cfg config.Config, k motion.Kernel, geo motion.BlockGeometry) *Pipeline {
	return &Pipeline{cfg: cfg, kernel: k, geo: geo}
}

// Run processes src to completion, naming output pans after base (the
// input video's path stem). The stage graph is decoder-producer ->
// prefilter -> pan-finder -> stitcher-writer, each connected by a
// buffered channel at spec.md §5's documented capacity, so a slow
// composite encode/write never stalls frame ingestion upstream.
func (p *Pipeline) Run(ctx context.Context, src decode.Source, base string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	decoded := make(chan *frame.MVFrame, prefilterCap)
	filtered := make(chan *frame.MVFrame, panfinderCap)
	composites := make(chan compositeJob, stitcherCap)

	go p.decode(ctx, src, decoded)

	pf := NewPrefilter(p.kernel, p.geo)
	go pf.Run(ctx, decoded, filtered, p.cfg.Workers)

	var writeErr error
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for job := range composites {
			if writeErr != nil {
				continue // keep draining so the pan-finder never blocks; first error wins.
			}
			if _, err := output.WriteComposite(job.dir, job.start, job.img); err != nil {
				writeErr = err
				cancel()
			}
		}
	}()

	finder := NewPanFinder(ctx, p.cfg, base, p.kernel, p.geo, composites)
	var runErr error
	for mf := range filtered {
		if err := finder.AddFrame(mf); err != nil {
			runErr = err
			cancel()
			break
		}
	}
	if runErr == nil {
		runErr = finder.Close()
	}
	close(composites)
	<-writerDone

	if runErr != nil {
		return runErr
	}
	return writeErr
}

// decode pulls frames from src, applying Skip/Max, and pushes them into
// out as MVFrames. Per-packet decode errors are logged and skipped
// (spec.md §7); input exhaustion or a fatal source error closes out.
func (p *Pipeline) decode(ctx context.Context, src decode.Source, out chan<- *frame.MVFrame) {
	defer close(out)

	var prev *decode.Frame
	skipped, taken := 0, 0
	for {
		if p.cfg.Max > 0 && taken >= p.cfg.Max {
			return
		}

		f, err := src.Next()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			if p.cfg.Logger != nil {
				p.cfg.Logger.Error("decode error, skipping frame", "error", err.Error())
			}
			continue
		}

		if skipped < p.cfg.Skip {
			skipped++
			prev = &f
			continue
		}
		taken++

		mf := frame.New(f, prev, nil)
		prev = &f

		select {
		case out <- mf:
		case <-ctx.Done():
			return
		}
	}
}
