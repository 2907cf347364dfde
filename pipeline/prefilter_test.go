package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/ausocean/panstitch/decode"
	"github.com/ausocean/panstitch/frame"
	"github.com/ausocean/panstitch/motion"
)

func TestPrefilterPreservesOrderAndAnnotates(t *testing.T) {
	k, geo, err := motion.SelectKernel(decode.FormatYUV420P8, 0, nil)
	if err != nil {
		t.Fatalf("SelectKernel: %v", err)
	}
	p := NewPrefilter(k, geo)

	in := make(chan *frame.MVFrame, 10)
	out := make(chan *frame.MVFrame, 10)
	for _, mf := range mvFrames(decode.PanFrames(5, 64, 64, 2, 0, 120)) {
		in <- mf
	}
	close(in)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p.Run(ctx, in, out, 4)

	var got []*frame.MVFrame
	for mf := range out {
		got = append(got, mf)
	}
	if len(got) != 5 {
		t.Fatalf("got %d frames out, want 5 (the retained last frame must flush on close)", len(got))
	}
	for i, mf := range got {
		if mf.Idx() != uint32(i) {
			t.Errorf("frame %d out of order: idx = %d", i, mf.Idx())
		}
		if mf.HistPop() == 0 {
			t.Errorf("frame %d: histogram not populated", i)
		}
	}
	for i := 1; i < len(got); i++ {
		if _, ok := got[i].FullCompare(got[i-1].Idx()); !ok {
			t.Errorf("frame %d: missing estimate against predecessor %d", got[i].Idx(), got[i-1].Idx())
		}
	}
}
