package motion

import (
	"testing"

	"github.com/ausocean/panstitch/decode"
)

func frameWithVectors(vecs []decode.MotionVector) *decode.Frame {
	return &decode.Frame{
		Format: decode.FormatYUV420P8,
		Y:      decode.Plane{Data: make([]byte, 64*64), Stride: 64, W: 64, H: 64},
		Vectors: vecs,
	}
}

func TestMVInfoPopulateBinsBySignedSource(t *testing.T) {
	cur := frameWithVectors([]decode.MotionVector{
		{DstX: 32, DstY: 32, MotionX: 4, MotionY: 0, MotionScale: 1, BlockW: 16, BlockH: 16, Source: -1},
		{DstX: 32, DstY: 32, MotionX: 4, MotionY: 0, MotionScale: 1, BlockW: 16, BlockH: 16, Source: 1},
		{DstX: 32, DstY: 32, MotionX: 0, MotionY: 0, MotionScale: 1, BlockW: 16, BlockH: 16, Source: 0},
	})

	var info MVInfo
	info.Populate(nil, cur, nil)

	if got := info.Past(); got != 256 {
		t.Errorf("Past() = %d, want 256 (one 16x16 forward vector)", got)
	}
	if got := info.Future(); got != 256 {
		t.Errorf("Future() = %d, want 256 (one 16x16 backward vector)", got)
	}
	if got := info.Intra(); got != 256 {
		t.Errorf("Intra() = %d, want 256 (one 16x16 intra vector)", got)
	}
}

func TestMVInfoZeroMotionCulledWhenBlocksDiffer(t *testing.T) {
	cur := frameWithVectors([]decode.MotionVector{
		{DstX: 32, DstY: 32, MotionX: 0, MotionY: 0, MotionScale: 1, BlockW: 16, BlockH: 16, Source: -1},
	})
	other := &decode.Frame{
		Format: decode.FormatYUV420P8,
		Y:      decode.Plane{Data: make([]byte, 64*64), Stride: 64, W: 64, H: 64},
	}
	for i := range other.Y.Data {
		other.Y.Data[i] = 255 // maximally different from cur's all-zero plane
	}

	var info MVInfo
	info.Populate(other, cur, nil)

	if info.Past() != 0 {
		t.Fatalf("expected the mismatched zero-motion vector to be culled, got Past()=%d", info.Past())
	}
}

func TestMVInfoZeroMotionKeptWhenBlocksMatch(t *testing.T) {
	cur := frameWithVectors([]decode.MotionVector{
		{DstX: 32, DstY: 32, MotionX: 0, MotionY: 0, MotionScale: 1, BlockW: 16, BlockH: 16, Source: -1},
	})
	other := &decode.Frame{
		Format: decode.FormatYUV420P8,
		Y:      decode.Plane{Data: make([]byte, 64*64), Stride: 64, W: 64, H: 64}, // identical, all zero
	}

	var info MVInfo
	info.Populate(other, cur, nil)

	if info.Past() != 256 {
		t.Fatalf("expected the matching zero-motion vector to be kept, got Past()=%d", info.Past())
	}
}

func TestMVInfoTransplantFrom(t *testing.T) {
	prev := &MVInfo{Swarms: []Swarm{{Angle: 90, Length: 4, Backward: 10}}}
	nxt := &MVInfo{Swarms: []Swarm{{Angle: 90, Length: 4, Forward: 20}}}

	var cur MVInfo
	cur.TransplantFrom(prev, nxt)

	if got := cur.Past(); got != 10 {
		t.Errorf("Past() after transplant = %d, want 10", got)
	}
	if got := cur.Future(); got != 20 {
		t.Errorf("Future() after transplant = %d, want 20", got)
	}
}

func TestMVInfoAddMergesSameBin(t *testing.T) {
	var info MVInfo
	info.Add(Swarm{Angle: 0, Length: 1, Forward: 5})
	info.Add(Swarm{Angle: 0, Length: 1, Forward: 7})
	info.Add(Swarm{Angle: 180, Length: 1, Backward: 3})

	if got := info.Past(); got != 12 {
		t.Errorf("Past() = %d, want 12 (merged bin)", got)
	}
	if got := info.Future(); got != 3 {
		t.Errorf("Future() = %d, want 3", got)
	}
}

func TestMVInfoForwardStillBlocksAndDominantAngle(t *testing.T) {
	info := MVInfo{Swarms: []Swarm{
		{Angle: 0, Length: 0, Forward: 10},   // still
		{Angle: 90, Length: 2, Forward: 30},  // moving, dominant
		{Angle: 180, Length: 2, Forward: 20}, // moving
	}}

	if got := info.ForwardStillBlocks(); got != 10 {
		t.Errorf("ForwardStillBlocks() = %d, want 10", got)
	}
	angle, count := info.ForwardDominantAngle()
	if angle != 90 || count != 30 {
		t.Errorf("ForwardDominantAngle() = (%d,%d), want (90,30)", angle, count)
	}
}

func TestMVAngleLengthQuantization(t *testing.T) {
	// A purely rightward vector (mx>0, my=0) from a past reference
	// quantizes to angle 180 after the +180 normalization the original
	// applies (atan2 is 0 deg, +180 -> 180, the "apparent motion"
	// direction opposite the raw displacement).
	angle, length := mvAngleLength(4, 0, -1)
	if length != 4 {
		t.Errorf("length = %d, want 4 (hypot 4 is exactly the 4 bucket)", length)
	}
	if angle < 0 || angle >= 360 {
		t.Errorf("angle = %d out of [0,360) range", angle)
	}

	_, zeroLen := mvAngleLength(0, 0, 0)
	if zeroLen != 0 {
		t.Errorf("zero displacement length = %d, want 0", zeroLen)
	}
}

func TestCircularAngleDiff(t *testing.T) {
	cases := []struct{ a, b, want int }{
		{0, 0, 0},
		{10, 350, 20},
		{350, 10, 20},
		{0, 180, 180},
		{45, 90, 45},
	}
	for _, c := range cases {
		if got := circularAngleDiff(c.a, c.b); got != c.want {
			t.Errorf("circularAngleDiff(%d, %d) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestSwarmIsSimilar(t *testing.T) {
	a := Swarm{Angle: 0, Length: 4}
	close := Swarm{Angle: 22, Length: 4}
	far := Swarm{Angle: 180, Length: 4}
	diffLen := Swarm{Angle: 0, Length: 8}

	if !a.IsSimilar(close) {
		t.Error("angle within 23 degrees and equal length should be similar")
	}
	if a.IsSimilar(far) {
		t.Error("opposite angle should not be similar")
	}
	if a.IsSimilar(diffLen) {
		t.Error("different quantized length should not be similar")
	}
}

func TestMostCommonVector(t *testing.T) {
	vecs := []decode.MotionVector{
		{MotionX: 4, MotionY: 0, MotionScale: 1},
		{MotionX: 4, MotionY: 0, MotionScale: 1},
		{MotionX: -2, MotionY: 2, MotionScale: 1},
	}
	got, ok := MostCommonVector(vecs)
	if !ok {
		t.Fatal("MostCommonVector() ok = false, want true")
	}
	if got != (Offset{X: 4, Y: 0}) {
		t.Errorf("MostCommonVector() = %+v, want {4 0}", got)
	}

	if _, ok := MostCommonVector(nil); ok {
		t.Error("MostCommonVector(nil) ok = true, want false")
	}
}
