package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"ytvox/internal/config"
	"ytvox/internal/dirs"
	"ytvox/internal/history"
	"ytvox/internal/logging"
	"ytvox/internal/model"
	"ytvox/internal/pipeline"
	"ytvox/internal/progress"
	"ytvox/internal/util"
	"ytvox/internal/util/deps"
)

type ctxKey string

const envKey ctxKey = "env"

// env is the per-invocation state shared by subcommands.
type env struct {
	opts       model.Options
	configFile string

	// runner overrides os/exec; set by tests.
	runner util.CmdRunner
}

func setupEnv(cmd *cobra.Command, _ []string) error {
	if existing, ok := cmd.Context().Value(envKey).(*env); ok && existing != nil {
		// already injected (tests)
		return nil
	}
	root := cmd.Root()
	file, _ := root.PersistentFlags().GetString("config")
	opts, used, err := config.Resolve(root, file)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	cmd.SetContext(context.WithValue(cmd.Context(), envKey, &env{opts: opts, configFile: used}))
	return nil
}

func envFrom(cmd *cobra.Command) *env {
	if e, ok := cmd.Context().Value(envKey).(*env); ok && e != nil {
		return e
	}
	return &env{opts: model.Options{}.WithDefaults()}
}

// logger builds the command logger. The TUI owns the terminal, so it logs
// to the state-dir log file instead of stderr.
func (e *env) logger(toFile bool) (*slog.Logger, func() error, error) {
	out := []string{"stderr"}
	if toFile {
		p, err := dirs.LogFile()
		if err != nil {
			return nil, nil, err
		}
		out = []string{p}
	}
	lg, closeFn, err := logging.New(logging.Options{
		Level:       e.opts.LogLevel,
		Format:      e.opts.LogFormat,
		OutputPaths: out,
	})
	if err != nil {
		return nil, nil, &ExitError{Code: ExitCLIError, Err: err}
	}
	return lg, closeFn, nil
}

// openHistory opens the history store, or returns nil when history is off.
func (e *env) openHistory(ctx context.Context) (*history.Store, error) {
	if !e.opts.History {
		return nil, nil
	}
	p, err := dirs.HistoryDB()
	if err != nil {
		return nil, err
	}
	return history.Open(ctx, p)
}

// tools resolves the external binaries. The downloader is mandatory unless
// needDownloader is false; ffmpeg and spleeter only when needPost is set.
type tools struct {
	downloader string
	ffmpeg     string
	spleeter   string
}

func (e *env) findTools(needDownloader, needPost bool) (tools, error) {
	var t tools
	var err error
	if needDownloader {
		if t.downloader, err = deps.FindDownloader(e.opts.DLBinary); err != nil {
			return t, &ExitError{Code: ExitMissingDep, Err: err}
		}
	}
	if needPost {
		if t.ffmpeg, err = deps.FindFFmpeg(e.opts.FFmpegBinary); err != nil {
			return t, &ExitError{Code: ExitMissingDep, Err: err}
		}
		if t.spleeter, err = deps.FindSpleeter(e.opts.SpleeterBinary); err != nil {
			return t, &ExitError{Code: ExitMissingDep, Err: err}
		}
	}
	return t, nil
}

func (e *env) service(t tools, lg *slog.Logger, rep progress.Reporter, jobID string, store *history.Store) *pipeline.Service {
	opts := []pipeline.Option{
		pipeline.WithDownloaderPath(t.downloader),
		pipeline.WithFFmpegPath(t.ffmpeg),
		pipeline.WithSpleeterPath(t.spleeter),
		pipeline.WithOptions(e.opts),
		pipeline.WithLogger(lg),
		pipeline.WithJobID(jobID),
	}
	if rep != nil {
		opts = append(opts, pipeline.WithReporter(rep))
	}
	if store != nil {
		opts = append(opts, pipeline.WithHistory(store))
	}
	if e.runner != nil {
		opts = append(opts, pipeline.WithRunner(e.runner))
	}
	return pipeline.NewService(opts...)
}

func closeQuietly(lg *slog.Logger, what string, fn func() error) {
	if fn == nil {
		return
	}
	if err := fn(); err != nil && lg != nil {
		lg.Warn(fmt.Sprintf("close %s", what), "error", err)
	}
}
