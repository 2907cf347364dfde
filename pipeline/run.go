/*
DESCRIPTION
  run.go implements the pan-finder's run-length walk (spec.md §4.4): a
  deque scan from newest toward oldest frame that decides whether the
  recent window is a linear pan, a scene change, or nothing of interest,
  ported from pipeline.rs's run_length (only the active algorithm; an
  older, fully commented-out rewrite in the original is not carried
  forward).

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package pipeline

// RunEnd names why a run-length walk stopped extending a candidate pan.
type RunEnd int

const (
	// EndOutOfFrames means the run-length walk reached the oldest queued
	// frame without any other reason to stop. A pan still open at end of
	// stream is closed with EndOfStream instead.
	EndOutOfFrames RunEnd = iota
	EndSceneChange
	EndLowEntropyFrame
	EndQueueSaturation
	EndRunDiscontinuity
	EndOfStream
)

func (e RunEnd) String() string {
	switch e {
	case EndOutOfFrames:
		return "out-of-frames"
	case EndSceneChange:
		return "scene-change"
	case EndLowEntropyFrame:
		return "low-entropy-frame"
	case EndQueueSaturation:
		return "queue-saturation"
	case EndRunDiscontinuity:
		return "run-discontinuity"
	case EndOfStream:
		return "end-of-stream"
	default:
		return "unknown"
	}
}

// RunKind is the run-length walk's verdict.
type RunKind int

const (
	KindStill RunKind = iota
	KindSceneChange
	KindRun
)

// Run is the result of a run-length walk: KindStill and KindSceneChange
// carry no further data; KindRun additionally reports how many frames in
// the window show non-zero motion, the oldest frame index the run
// reaches back to, and why the walk stopped extending further.
type Run struct {
	Kind         RunKind
	MotionFrames int
	OldestFrame  uint32
	End          RunEnd
}

// lowEntropyThreshold gates LowEntropyFrame termination: spec.md §4.4's
// luma 90th-10th percentile spread.
const lowEntropyThreshold = 35

// sceneChangeErrorThreshold is the 75th-percentile block-error floor
// that, combined with a dissimilar direction, signals a scene change.
const sceneChangeErrorThreshold = 10

// errorFractionDeltaThreshold ends a run when a frame's predecessor and
// successor estimates disagree sharply on error fraction.
const errorFractionDeltaThreshold = 6.5

// runLength walks pf.frames from newest (last element) to oldest (first
// element), per spec.md §4.4.
func (pf *PanFinder) runLength() Run {
	n := len(pf.frames)
	if n < 2 {
		return Run{Kind: KindStill}
	}

	newest := pf.frames[n-1]
	predIdx := newest.Idx() - 1
	seed, ok := pf.compareFrames(newest, pf.frameByIdx(predIdx))
	if !ok {
		return Run{Kind: KindStill}
	}

	if seed.Quantile(0.75) >= sceneChangeErrorThreshold {
		priorEst, ok := pf.frameByIdx(predIdx).PredecessorEstimate()
		if !ok || !quantizedDirection(seed.X, seed.Y).IsSimilar(quantizedDirection(priorEst.X, priorEst.Y)) {
			return Run{Kind: KindSceneChange}
		}
	}
	if seed.X == 0 && seed.Y == 0 {
		return Run{Kind: KindStill}
	}

	prevVec := quantizedDirection(seed.X, seed.Y)
	motionFrames := 0
	oldest := newest.Idx()

	for i := n - 2; i >= 0; i-- {
		f := pf.frames[i]

		if int(f.Quantile(0.9))-int(f.Quantile(0.1)) <= lowEntropyThreshold {
			return Run{Kind: KindRun, MotionFrames: motionFrames, OldestFrame: oldest, End: EndLowEntropyFrame}
		}

		succ := pf.frames[i+1]
		est, ok := pf.compareFrames(succ, f)
		if !ok {
			break
		}
		v := quantizedDirection(est.X, est.Y)

		if est.Quantile(0.75) >= sceneChangeErrorThreshold && !v.IsSimilar(prevVec) {
			return Run{Kind: KindRun, MotionFrames: motionFrames, OldestFrame: oldest, End: EndSceneChange}
		}

		oldest = f.Idx()
		if est.X != 0 || est.Y != 0 {
			motionFrames++
			prevVec = v
		}

		if predEst, ok := f.PredecessorEstimate(); ok {
			delta := predEst.ErrorFraction() - est.ErrorFraction()
			if delta < 0 {
				delta = -delta
			}
			if delta > errorFractionDeltaThreshold {
				return Run{Kind: KindRun, MotionFrames: motionFrames, OldestFrame: oldest, End: EndSceneChange}
			}
		}
	}

	if motionFrames == 0 {
		return Run{Kind: KindStill}
	}
	return Run{Kind: KindRun, MotionFrames: motionFrames, OldestFrame: oldest, End: EndOutOfFrames}
}
