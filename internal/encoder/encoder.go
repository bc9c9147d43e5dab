// Package encoder drives ffmpeg to derive the intermediate PCM track the
// separator consumes.
package encoder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-audio/wav"

	"ytvox/internal/model"
	"ytvox/internal/progress"
	"ytvox/internal/util"
)

// Options control ffmpeg execution.
type Options struct {
	FFmpegPath  string
	Verbose     bool
	DurationSec float64 // source duration for percentages; 0 if unknown

	Runner   util.CmdRunner
	Reporter progress.Reporter
	JobID    string
	Logger   *slog.Logger
}

// WAVInfo describes a validated PCM file.
type WAVInfo struct {
	Path       string
	Bytes      int64
	SampleRate int
	Channels   int
	BitDepth   int
	Duration   time.Duration
}

// TranscodeWAV writes the audio track of inputPath to outputPath in the
// canonical intermediate format and validates the result. Failures are
// reported as model.ErrTranscodeFailed and remove the incomplete output.
func TranscodeWAV(ctx context.Context, inputPath, outputPath string, opts Options) (WAVInfo, error) {
	if opts.FFmpegPath == "" {
		return WAVInfo{}, errors.New("ffmpeg path is required")
	}
	if inputPath == "" || outputPath == "" {
		return WAVInfo{}, errors.New("input and output paths are required")
	}
	if !util.FileExists(inputPath) {
		return WAVInfo{}, fmt.Errorf("%w: input %s does not exist", model.ErrTranscodeFailed, inputPath)
	}
	if samePath(inputPath, outputPath) {
		return WAVInfo{}, fmt.Errorf("%w: output %s would overwrite the input", model.ErrTranscodeFailed, outputPath)
	}
	if err := util.EnsureDir(filepath.Dir(outputPath)); err != nil {
		return WAVInfo{}, fmt.Errorf("ensure output dir: %w", err)
	}
	runner := opts.Runner
	if runner == nil {
		runner = util.NewDefaultRunner()
	}
	rep := opts.Reporter
	if rep == nil {
		rep = progress.Nop{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	args := BuildWAVArgs(inputPath, outputPath, true)
	logger.Info("transcode started", "input", inputPath, "output", outputPath)
	logger.Debug("transcode command", "cmd", util.ShellQuote(opts.FFmpegPath, args))

	var ps ProgressState
	res, runErr := runner.Run(ctx, util.CmdSpec{
		Path:    opts.FFmpegPath,
		Args:    args,
		Verbose: opts.Verbose,
		StdoutLine: func(line string) {
			if u, ok := ps.UpdateFromLine(line, opts.JobID, opts.DurationSec); ok {
				rep.Update(u)
			}
		},
		StderrLine: func(line string) {
			rep.Log(progress.Log{JobID: opts.JobID, Stream: progress.StreamStderr, Line: line})
		},
	})
	if runErr != nil {
		_ = util.RemoveIfExists(outputPath)
		if ctx.Err() != nil {
			return WAVInfo{}, fmt.Errorf("%w: %w", model.ErrTranscodeFailed, ctx.Err())
		}
		msg := util.LastErrorLine(res.Stderr)
		if msg == "" {
			msg = runErr.Error()
		}
		return WAVInfo{}, fmt.Errorf("%w: ffmpeg: %s", model.ErrTranscodeFailed, msg)
	}

	info, err := InspectWAV(outputPath)
	if err != nil {
		_ = util.RemoveIfExists(outputPath)
		return WAVInfo{}, fmt.Errorf("%w: %v", model.ErrTranscodeFailed, err)
	}
	if info.SampleRate != WAVSampleRate || info.Channels != WAVChannels || info.BitDepth != WAVBitDepth {
		logger.Warn("unexpected wav layout",
			"sample_rate", info.SampleRate,
			"channels", info.Channels,
			"bit_depth", info.BitDepth,
		)
	}
	logger.Info("transcode finished", "output", outputPath, "bytes", info.Bytes, "duration", info.Duration)
	return info, nil
}

// samePath reports whether a and b name the same file, following links
// when the output already exists.
func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil && absA == absB {
		return true
	}
	fa, err := os.Stat(a)
	if err != nil {
		return false
	}
	fb, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(fa, fb)
}

// InspectWAV opens path and reads its PCM header.
func InspectWAV(path string) (WAVInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return WAVInfo{}, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return WAVInfo{}, fmt.Errorf("invalid WAV file %s", path)
	}
	dur, err := dec.Duration()
	if err != nil {
		dur = 0
	}
	return WAVInfo{
		Path:       path,
		Bytes:      util.FileSize(path),
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
		Duration:   dur,
	}, nil
}
