// Package downloader drives yt-dlp to fetch a resolved plan into the
// downloads directory while translating its progress output.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"ytvox/internal/model"
	"ytvox/internal/progress"
	"ytvox/internal/util"
)

// Options controls downloader behavior.
type Options struct {
	DownloaderPath string // Path to yt-dlp
	Verbose        bool

	Concurrency    int    // --concurrent-fragments
	ChunkSizeBytes int64  // --http-chunk-size
	MergeFormat    string // container for remuxed plans

	Runner   util.CmdRunner
	Reporter progress.Reporter
	JobID    string
	Logger   *slog.Logger
}

// Request is one fetch of a resolved plan.
type Request struct {
	URL     string
	Plan    model.FetchPlan
	DestDir string
	Title   string // narrows the artifact lookup when no path is reported
}

// OutputTemplate names artifacts after the video title so a retry of the
// same video overwrites its previous partial output.
const OutputTemplate = "%(title)s.%(ext)s"

// Fetch downloads req.Plan into req.DestDir and returns the final artifact
// path. It emits fetching/merging updates while the engine runs and a
// StageDownloaded update before returning successfully. Engine failures
// are returned as model.ErrFetchFailed; partial files stay on disk.
func Fetch(ctx context.Context, req Request, opts Options) (string, error) {
	if opts.DownloaderPath == "" {
		return "", errors.New("downloader path is required")
	}
	if req.Plan.IsZero() {
		return "", fmt.Errorf("%w: empty fetch plan", model.ErrFetchFailed)
	}
	if req.DestDir == "" {
		req.DestDir = model.DefaultDownloadsDir
	}
	if err := util.EnsureDir(req.DestDir); err != nil {
		return "", fmt.Errorf("ensure downloads dir: %w", err)
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

	streams := 1
	if req.Plan.Kind() == model.PlanNeedsRemux {
		streams = 2
	}
	tr := newTracker(opts.JobID, streams)

	// Lines arrive from the stdout and stderr readers concurrently.
	var mu sync.Mutex
	var finalPath string
	onLine := func(stream progress.LogStream) func(string) {
		return func(line string) {
			mu.Lock()
			defer mu.Unlock()
			if p, ok := strings.CutPrefix(strings.TrimSpace(line), fileMarker); ok {
				finalPath = strings.TrimSpace(p)
				return
			}
			if u, ok := tr.line(line); ok {
				rep.Update(u)
				return
			}
			rep.Log(progress.Log{JobID: opts.JobID, Stream: stream, Line: line})
		}
	}

	args := buildArgs(req, opts)
	logger.Info("fetch started",
		"title", req.Title,
		"selector", req.Plan.Selector(),
		"plan", string(req.Plan.Kind()),
		"dest", req.DestDir,
	)
	logger.Debug("fetch command", "cmd", util.ShellQuote(opts.DownloaderPath, args))

	started := time.Now().Add(-2 * time.Second)
	rep.Update(progress.Update{
		JobID:   opts.JobID,
		Stage:   progress.StageFetching,
		Percent: -1,
		Message: "Starting fetch",
	})

	res, runErr := runner.Run(ctx, util.CmdSpec{
		Path:       opts.DownloaderPath,
		Args:       args,
		Verbose:    opts.Verbose,
		StdoutLine: onLine(progress.StreamStdout),
		StderrLine: onLine(progress.StreamStderr),
	})
	if runErr != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %w", model.ErrFetchFailed, ctx.Err())
		}
		msg := util.LastErrorLine(res.Stderr)
		if msg == "" {
			msg = runErr.Error()
		}
		logger.Warn("fetch failed", "selector", req.Plan.Selector(), "error", msg)
		return "", fmt.Errorf("%w: %s", model.ErrFetchFailed, msg)
	}

	mu.Lock()
	path := finalPath
	mu.Unlock()
	if path == "" || !util.FileExists(path) {
		found, err := SelectArtifact(req.DestDir, started, req.Title, opts.MergeFormat)
		if err != nil {
			return "", fmt.Errorf("%w: engine finished but no artifact found in %s", model.ErrFetchFailed, req.DestDir)
		}
		path = found
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	size := util.FileSize(path)
	rep.Update(progress.Update{
		JobID:           opts.JobID,
		Stage:           progress.StageDownloaded,
		Percent:         100,
		BytesDownloaded: size,
		BytesTotal:      &size,
		Message:         "Saved " + filepath.Base(path),
	})
	logger.Info("fetch finished", "path", path, "bytes", size)
	return path, nil
}

func buildArgs(req Request, opts Options) []string {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = model.DefaultConcurrency
	}
	chunk := opts.ChunkSizeBytes
	if chunk <= 0 {
		chunk = model.DefaultChunkSizeBytes
	}
	merge := opts.MergeFormat
	if merge == "" {
		merge = model.DefaultMergeFormat
	}

	return []string{
		"-f", req.Plan.Selector(),
		"-o", filepath.Join(req.DestDir, OutputTemplate),
		"--no-playlist",
		"--no-mtime",
		"--merge-output-format", merge,
		"--concurrent-fragments", strconv.Itoa(concurrency),
		"--http-chunk-size", strconv.FormatInt(chunk, 10),
		"--newline",
		"--progress",
		"--progress-template", "download:" + progressMarker + "%(progress)j",
		"--progress-template", "postprocess:" + postMarker + "%(progress)j",
		"--print", "after_move:" + fileMarker + "%(filepath)s",
		"--no-simulate",
		req.URL,
	}
}
