/*
DESCRIPTION
  panstitch is the command-line front end of spec.md §6: it parses input
  paths (or a "-" stdin list), builds a Config from flags, opens each
  input via the configured decode.Source, and runs the pipeline against
  it, isolating per-file failures the way §7 requires.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Command panstitch detects linear camera pans in a video and emits
// per-frame outputs plus stitched panorama composites.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/panstitch/config"
	"github.com/ausocean/panstitch/decode"
	"github.com/ausocean/panstitch/motion"
	"github.com/ausocean/panstitch/pipeline"
)

const version = "v0.1.0"

const (
	logPath      = "panstitch.log"
	logMaxSizeMB = 50
	logMaxBackup = 3
	logMaxAgeDay = 28
)

func main() {
	var (
		noStitch  = flag.Bool("nostitch", false, "suppress composite generation")
		pictures  string
		optimize  = flag.Bool("opt", false, "accepted for compatibility; composite PNGs are not post-optimized")
		skip      = flag.Int("s", 0, "skip the first N decoded frames")
		max       = flag.Int("n", 0, "process at most N frames after skip")
		logPan    = flag.Bool("log", false, "enable per-pan debug logs")
		minExpand = flag.Int("min", 20, "minimum expansion percent for emitted composites")
		subsample = flag.Int("sub", 0, "override motion-search subsampling (1|2|4|8)")
		showVer   = flag.Bool("version", false, "show version")
	)
	flag.StringVar(&pictures, "p", "", "emit individual frames of detected pans (png|jpg)")
	flag.StringVar(&pictures, "pictures", "", "alias of -p")
	flag.Parse()

	if *showVer {
		fmt.Println(version)
		return
	}

	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSizeMB,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAgeDay,
	}
	log := logging.New(logging.Info, io.MultiWriter(fileLog, os.Stderr), true)
	log.Info("starting panstitch", "version", version)

	format := config.FormatNull
	switch pictures {
	case "png":
		format = config.FormatPNG
	case "jpg", "jpeg":
		format = config.FormatJPG
	case "":
	default:
		log.Fatal("unrecognized -p format", "value", pictures)
	}

	cfg := config.Config{
		Pictures:          ".",
		Stitch:            !*noStitch,
		SingleFrameFormat: format,
		Optimize:          *optimize,
		Skip:              *skip,
		Max:               *max,
		Log:               *logPan,
		MinExpand:         *minExpand,
		Subsample:         *subsample,
		Logger:            log,
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", "error", err.Error())
	}

	inputs, err := inputPaths(flag.Args())
	if err != nil {
		log.Fatal("could not read input list", "error", err.Error())
	}
	if len(inputs) == 0 {
		log.Fatal("no input files given")
	}

	for _, path := range inputs {
		if err := processInput(log, cfg, path); err != nil {
			log.Error("input failed, skipping", "path", path, "error", err.Error())
		}
	}

	iterations, visited := motion.SearchStats()
	log.Info("search statistics", "iterations", iterations, "visited", visited)
}

// inputPaths expands the CLI's positional arguments, treating a lone
// "-" as a request to read newline-separated paths from stdin.
func inputPaths(args []string) ([]string, error) {
	if len(args) == 1 && args[0] == "-" {
		var paths []string
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line != "" {
				paths = append(paths, line)
			}
		}
		return paths, sc.Err()
	}
	return args, nil
}

// processInput opens one video and runs the pipeline against it. Input
// errors (open/unsupported format) are returned to the caller, which
// logs and continues with the next input (spec.md §7); the decoder's
// own per-packet errors are handled inside pipeline.Pipeline. An error
// from the run itself (a pan or composite write failure, a pan-finder
// invariant violation) ends the process.
func processInput(log logging.Logger, cfg config.Config, path string) error {
	src, err := openSource(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer src.Close()

	base := stem(path)
	k, geo, err := selectKernelForInput(cfg, log)
	if err != nil {
		return err
	}

	p := pipeline.New(cfg, k, geo)
	if err := p.Run(context.Background(), src, base); err != nil {
		log.Fatal("pipeline failed", "path", path, "error", err.Error())
	}
	return nil
}

// selectKernelForInput resolves the subsample (auto or explicit) against
// an assumed 1080p working resolution; a real decoder integration would
// resolve this per-input after probing the first frame's height.
func selectKernelForInput(cfg config.Config, log logging.Logger) (motion.Kernel, motion.BlockGeometry, error) {
	sub := cfg.Subsample
	if sub == 0 {
		sub = motion.AutoSubsample(1080)
	}
	return motion.SelectKernel(decode.FormatYUV420P8, sub, log)
}

// openSource is the seam where a real demuxer/decoder integration plugs
// in; this build has no bundled decoder (spec.md §1's external
// collaborator), so any concrete path always fails to open.
func openSource(path string) (decode.Source, error) {
	return nil, fmt.Errorf("no decoder integration configured for %s", path)
}

func stem(path string) string {
	base := path
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return base
}
