/*
DESCRIPTION
  output.go writes a detected pan's per-frame images and diagnostic logs
  to disk: "<start:06>+<NNN>.<ext>" aligned-frame images and a plain
  buffered text log per batch, the naming and log-writer idiom of
  pipeline.rs's ImageOut/PanFinder.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package output writes a detected pan's per-frame images and
// diagnostic logs to the output directory tree.
package output

import (
	"bufio"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/ausocean/panstitch/config"
)

// FrameWriter emits the individual aligned frames of one open pan batch
// as "<start:06>+<seq:03>.<ext>" files under dir.
type FrameWriter struct {
	dir        string
	start      uint32
	format     config.SingleFrameFormat
	next       int
}

// NewFrameWriter creates dir (and any missing parents) and returns a
// writer for a pan starting at startFrame.
func NewFrameWriter(dir string, startFrame uint32, format config.SingleFrameFormat) (*FrameWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("output: create pan directory %s: %w", dir, err)
	}
	return &FrameWriter{dir: dir, start: startFrame, format: format}, nil
}

// Write emits one frame image, returning the path written. FormatNull
// writes nothing and returns "".
func (w *FrameWriter) Write(img image.Image) (string, error) {
	if w.format == config.FormatNull {
		w.next++
		return "", nil
	}

	name := fmt.Sprintf("%06d+%03d.%s", w.start, w.next, w.format.Extension())
	path := filepath.Join(w.dir, name)
	w.next++

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("output: create frame file %s: %w", path, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	switch w.format {
	case config.FormatPNG:
		enc := png.Encoder{CompressionLevel: png.NoCompression}
		if err := enc.Encode(bw, img); err != nil {
			return "", fmt.Errorf("output: encode png %s: %w", path, err)
		}
	case config.FormatJPG:
		if err := jpeg.Encode(bw, img, &jpeg.Options{Quality: 90}); err != nil {
			return "", fmt.Errorf("output: encode jpeg %s: %w", path, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return "", fmt.Errorf("output: flush frame file %s: %w", path, err)
	}
	return path, nil
}

// WriteComposite writes a pan's stitched composite as
// "<start:06>_lin.png" under dir, at no compression (speed over size,
// matching spec.md §4.5).
func WriteComposite(dir string, startFrame uint32, img image.Image) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("output: create pan directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%06d_lin.png", startFrame))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("output: create composite file %s: %w", path, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	enc := png.Encoder{CompressionLevel: png.NoCompression}
	if err := enc.Encode(bw, img); err != nil {
		return "", fmt.Errorf("output: encode composite png %s: %w", path, err)
	}
	return path, bw.Flush()
}

// OpenLog opens (creating or truncating) a plain buffered text log file
// at path. The caller must Flush and close the returned file when done;
// this is process-level/per-pan diagnostic logging, not the rotating
// lumberjack log cmd/panstitch sets up for its own operational log.
func OpenLog(path string) (*bufio.Writer, *os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("output: open log %s: %w", path, err)
	}
	return bufio.NewWriter(f), f, nil
}
