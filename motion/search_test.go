package motion

import (
	"context"
	"testing"

	"github.com/ausocean/panstitch/decode"
)

func planeAt(frames []decode.Frame, i int) decode.Plane { return frames[i].Y }

func testKernelGeo(t *testing.T) (Kernel, BlockGeometry) {
	t.Helper()
	k, geo, err := SelectKernel(decode.FormatYUV420P8, 0, nil)
	if err != nil {
		t.Fatalf("SelectKernel: %v", err)
	}
	return k, geo
}

// TestSearchIdentity is spec.md §8 property 2: searching a frame against
// itself finds the origin with zero error.
func TestSearchIdentity(t *testing.T) {
	frames := decode.PanFrames(1, 160, 96, 0, 0, 120)
	k, geo := testKernelGeo(t)
	p := planeAt(frames, 0)

	est := Search(context.Background(), p, p, decode.FormatYUV420P8, nil, k, geo)
	if est.X != 0 || est.Y != 0 {
		t.Fatalf("identity search = (%d, %d), want (0, 0)", est.X, est.Y)
	}
	if est.ErrorFraction() != 0 {
		t.Fatalf("identity error_fraction = %v, want 0", est.ErrorFraction())
	}
}

// TestSearchTranslationRecovery is spec.md §8 property 3: a known integer
// shift within |w/2|, |h/2| is recovered exactly.
func TestSearchTranslationRecovery(t *testing.T) {
	cases := []struct{ dx, dy int }{
		{4, 0}, {0, 4}, {6, -3}, {-5, 5},
	}
	for _, c := range cases {
		frames := decode.PanFrames(2, 160, 96, c.dx, c.dy, 120)
		k, geo := testKernelGeo(t)
		cur, pred := planeAt(frames, 1), planeAt(frames, 0)

		est := Search(context.Background(), cur, pred, decode.FormatYUV420P8, nil, k, geo)
		if est.X != c.dx || est.Y != c.dy {
			t.Errorf("shift (%d,%d): search = (%d,%d)", c.dx, c.dy, est.X, est.Y)
		}
	}
}

// TestSearchReverseSymmetry is spec.md §8 property 1: searching B against
// A recovers the negation of searching A against B, with matching error.
func TestSearchReverseSymmetry(t *testing.T) {
	frames := decode.PanFrames(2, 160, 96, 5, -2, 120)
	k, geo := testKernelGeo(t)
	a, b := planeAt(frames, 0), planeAt(frames, 1)

	forward := Search(context.Background(), b, a, decode.FormatYUV420P8, nil, k, geo)
	backward := Search(context.Background(), a, b, decode.FormatYUV420P8, nil, k, geo)

	if backward.X != -forward.X || backward.Y != -forward.Y {
		t.Fatalf("forward=(%d,%d) backward=(%d,%d), want backward = -forward",
			forward.X, forward.Y, backward.X, backward.Y)
	}
}

// TestSearchHintOutOfRangeIgnored exercises the hint-discarding rule: a
// hint covering more than half the frame in either axis falls back to the
// origin instead of seeding the search with nonsense.
func TestSearchHintOutOfRangeIgnored(t *testing.T) {
	frames := decode.PanFrames(2, 160, 96, 3, 0, 120)
	k, geo := testKernelGeo(t)
	cur, pred := planeAt(frames, 1), planeAt(frames, 0)

	hint := &Offset{X: 1000, Y: 1000}
	est := Search(context.Background(), cur, pred, decode.FormatYUV420P8, hint, k, geo)
	if est.X != 3 || est.Y != 0 {
		t.Fatalf("search with out-of-range hint = (%d,%d), want (3,0)", est.X, est.Y)
	}
}

func TestIntersects(t *testing.T) {
	if !intersects(Offset{0, 0}, 100, 100) {
		t.Fatal("zero offset must always intersect")
	}
	if intersects(Offset{90, 0}, 100, 100) {
		t.Fatal("shift leaving under a quarter overlap must be rejected")
	}
	if !intersects(Offset{10, 0}, 100, 100) {
		t.Fatal("small shift should keep well over a quarter overlap")
	}
}

func TestSearchStatsAccumulate(t *testing.T) {
	before, _ := SearchStats()

	frames := decode.PanFrames(2, 160, 96, 2, 0, 120)
	k, geo := testKernelGeo(t)
	Search(context.Background(), planeAt(frames, 1), planeAt(frames, 0), decode.FormatYUV420P8, nil, k, geo)

	after, visited := SearchStats()
	if after <= before {
		t.Fatalf("search iteration count did not increase: before=%d after=%d", before, after)
	}
	if visited == 0 {
		t.Fatal("expected a nonzero visited-offset count")
	}
}
