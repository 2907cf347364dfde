/*
DESCRIPTION
  config.go defines Config, the run-time parameters shared by every
  pipeline stage, in the shape revid/config/config.go uses: plain
  exported fields, sensible defaults applied by Validate, and an
  ausocean/utils/logging.Logger threaded through for diagnostics.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config holds the configuration settings shared across
// panstitch's pipeline stages.
package config

import (
	"fmt"

	"github.com/ausocean/utils/logging"
)

// SingleFrameFormat selects the per-frame sink format for a pan's
// individual aligned frames, mirroring the original's Format enum.
type SingleFrameFormat int

const (
	FormatPNG SingleFrameFormat = iota
	FormatJPG
	FormatNull // discard per-frame output; only the stitched composite is kept.
)

func (f SingleFrameFormat) String() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatJPG:
		return "jpg"
	case FormatNull:
		return "null"
	default:
		return "unknown"
	}
}

// Extension returns the file extension for the format, or "" for
// FormatNull.
func (f SingleFrameFormat) Extension() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatJPG:
		return "jpg"
	default:
		return ""
	}
}

// Default tuning values, used when Validate fills in zero fields.
const (
	DefaultMax       = 0 // 0 means "no limit".
	DefaultMinExpand = 20
	DefaultWorkers   = 4
)

// Config holds every user-facing and internal tuning knob of the
// pipeline, set from CLI flags by cmd/panstitch and threaded through
// pipeline.Pipeline/pipeline.PanFinder/stitch.LinStitcher.
type Config struct {
	// Pictures is the output directory root under which each detected
	// pan gets its own "<stem>.seq" subdirectory.
	Pictures string

	// Stitch enables composite-panorama emission (the CLI's --nostitch
	// flag clears this).
	Stitch bool

	// SingleFrameFormat is the per-frame aligned-image sink format.
	SingleFrameFormat SingleFrameFormat

	// Optimize records the CLI --opt flag. No stage reads it: composites
	// are always written as uncompressed PNGs, whatever its value.
	Optimize bool

	// Skip is the number of leading input frames to discard before
	// motion analysis begins (CLI -s).
	Skip int

	// Max is the maximum number of frames to process, or 0 for no
	// limit (CLI -n).
	Max int

	// Log enables the per-pan NNNNNN.log diagnostic logs. No
	// process-level frames.log is written.
	Log bool

	// MinExpand is the minimum percentage area growth a composite must
	// reach over a single frame to be considered worth emitting
	// (spec.md §8 property 8's expansion gate), e.g. 10 means the
	// composite must be at least 1.10x the frame's area.
	MinExpand int

	// Subsample is the motion-search block-grid subsample factor
	// (0 = auto, or an explicit 1/2/4/8 override).
	Subsample int

	// Workers bounds the prefilter's parallel batch width.
	Workers int

	// Logger receives structured diagnostics from every stage.
	Logger logging.Logger
}

// Validate fills in zero-valued fields with defaults and rejects
// combinations that can't produce a usable run.
func (c *Config) Validate() error {
	if c.Pictures == "" {
		return fmt.Errorf("config: Pictures output directory must be set")
	}
	if c.MinExpand == 0 {
		c.LogInvalidField("MinExpand", DefaultMinExpand)
		c.MinExpand = DefaultMinExpand
	}
	if c.Workers == 0 {
		c.LogInvalidField("Workers", DefaultWorkers)
		c.Workers = DefaultWorkers
	}
	if c.Subsample != 0 && c.Subsample != 1 && c.Subsample != 2 && c.Subsample != 4 && c.Subsample != 8 {
		return fmt.Errorf("config: Subsample must be one of 0 (auto), 1, 2, 4, 8, got %d", c.Subsample)
	}
	if c.Max < 0 {
		return fmt.Errorf("config: Max must be >= 0, got %d", c.Max)
	}
	if c.Skip < 0 {
		return fmt.Errorf("config: Skip must be >= 0, got %d", c.Skip)
	}
	return nil
}

// LogInvalidField logs that a field was unset or invalid and records
// the default value substituted for it, matching revid/config's
// diagnostic convention.
func (c *Config) LogInvalidField(name string, def interface{}) {
	if c.Logger == nil {
		return
	}
	c.Logger.Info(name+" bad or unset, defaulting", name, def)
}
