/*
DESCRIPTION
  prefilter.go implements stage 1 of spec.md §4.3: a non-blocking batch
  drain, parallel per-frame luma histograms, parallel pairwise motion
  search over the batch's sliding pairs, and a symmetric write of each
  resulting estimate onto both frames before releasing all but the
  newest frame downstream in original order. Grounded on
  pipeline.rs's MVPrefilter.add_frames and the teacher's filter/basic.go
  per-row goroutine fan-out, generalized here to per-pair fan-out.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package pipeline

import (
	"context"
	"sync"

	"github.com/ausocean/panstitch/frame"
	"github.com/ausocean/panstitch/motion"
)

// Prefilter is stage 1: it annotates frames with luma histograms and
// pairwise motion estimates against their immediate predecessor.
type Prefilter struct {
	kernel motion.Kernel
	geo    motion.BlockGeometry
}

// NewPrefilter returns a prefilter that will use k/geo for its pairwise
// searches.
func NewPrefilter(k motion.Kernel, geo motion.BlockGeometry) *Prefilter {
	return &Prefilter{kernel: k, geo: geo}
}

// Run drains in, batches up to workers frames at a time, computes
// histograms and pairwise estimates in parallel, and emits every frame
// but the newest of each batch downstream in original order, retaining
// the newest to pair with the next batch's first arrival. On input
// closure it flushes its one retained frame before closing out.
func (p *Prefilter) Run(ctx context.Context, in <-chan *frame.MVFrame, out chan<- *frame.MVFrame, workers int) {
	defer close(out)
	if workers < 1 {
		workers = 1
	}

	var retained *frame.MVFrame
	for {
		f, ok := p.pull(ctx, in)
		if !ok {
			if retained != nil {
				select {
				case out <- retained:
				case <-ctx.Done():
				}
			}
			return
		}

		batch := append([]*frame.MVFrame{f}, p.drainUpTo(in, workers-1)...)
		if retained != nil {
			batch = append([]*frame.MVFrame{retained}, batch...)
		}

		p.annotateBatch(batch, workers)

		for _, b := range batch[:len(batch)-1] {
			select {
			case out <- b:
			case <-ctx.Done():
				return
			}
		}
		retained = batch[len(batch)-1]
	}
}

func (p *Prefilter) pull(ctx context.Context, in <-chan *frame.MVFrame) (*frame.MVFrame, bool) {
	select {
	case f, ok := <-in:
		return f, ok
	case <-ctx.Done():
		return nil, false
	}
}

// drainUpTo non-blockingly collects up to n further frames already
// waiting on in, without blocking for more to arrive.
func (p *Prefilter) drainUpTo(in <-chan *frame.MVFrame, n int) []*frame.MVFrame {
	var batch []*frame.MVFrame
	for i := 0; i < n; i++ {
		select {
		case f, ok := <-in:
			if !ok {
				return batch
			}
			batch = append(batch, f)
		default:
			return batch
		}
	}
	return batch
}

// annotateBatch computes every frame's luma histogram and every sliding
// pair's estimate concurrently, capped at workers goroutines in flight,
// then writes each estimate symmetrically onto both frames.
func (p *Prefilter) annotateBatch(batch []*frame.MVFrame, workers int) {
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for _, f := range batch {
		wg.Add(1)
		sem <- struct{}{}
		go func(f *frame.MVFrame) {
			defer wg.Done()
			defer func() { <-sem }()
			f.CalculateHistogram()
		}(f)
	}
	wg.Wait()

	if len(batch) < 2 {
		return
	}

	type pairResult struct {
		i   int
		est motion.Estimate
	}
	results := make([]pairResult, len(batch)-1)

	for i := 0; i < len(batch)-1; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			cur, pred := batch[i+1], batch[i]
			hint, _ := motion.MostCommonVector(cur.Frame.Vectors)
			est := motion.Search(context.Background(), cur.Frame.Y, pred.Frame.Y, cur.Frame.Format, &hint, p.kernel, p.geo)
			results[i] = pairResult{i: i, est: est}
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		cur, pred := batch[r.i+1], batch[r.i]
		cur.AddFullCompare(pred.Idx(), r.est)
		pred.AddFullCompare(cur.Idx(), r.est.Reverse())
	}
}
