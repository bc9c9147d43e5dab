// Package separator runs the external vocal-isolation tool on an
// intermediate WAV and checks for the vocal stem it is expected to write.
package separator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ytvox/internal/model"
	"ytvox/internal/util"
	"ytvox/internal/util/media"
)

// Options control the spleeter invocation.
type Options struct {
	SpleeterPath string
	Model        string // e.g. "spleeter:2stems"
	Verbose      bool

	Runner util.CmdRunner
	Logger *slog.Logger
}

// BuildArgs returns the spleeter arguments separating wavPath into outDir.
func BuildArgs(modelName, outDir, wavPath string) []string {
	if modelName == "" {
		modelName = model.DefaultSpleeterModel
	}
	return []string{"separate", "-p", modelName, "-o", outDir, wavPath}
}

// Separate isolates the vocals of wavPath under root. The tool's output is
// discarded and its exit status is not trusted: success is decided only by
// the presence of the expected stem, whose path is returned.
func Separate(ctx context.Context, root, wavPath string, opts Options) (string, error) {
	if opts.SpleeterPath == "" {
		return "", errors.New("spleeter path is required")
	}
	runner := opts.Runner
	if runner == nil {
		runner = util.NewDefaultRunner()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	outDir := media.VocalsDir(root)
	if err := util.EnsureDir(outDir); err != nil {
		return "", fmt.Errorf("ensure vocals dir: %w", err)
	}
	want := media.VocalTrackPath(root, wavPath)

	args := BuildArgs(opts.Model, outDir, wavPath)
	logger.Info("separation started", "input", wavPath, "model", args[2])
	logger.Debug("separation command", "cmd", util.ShellQuote(opts.SpleeterPath, args))

	res, runErr := runner.Run(ctx, util.CmdSpec{
		Path:    opts.SpleeterPath,
		Args:    args,
		Verbose: opts.Verbose,
		Discard: !opts.Verbose,
	})
	if ctx.Err() != nil {
		return "", fmt.Errorf("%w: %w", model.ErrSeparationFailed, ctx.Err())
	}
	if runErr != nil {
		logger.Debug("separator exited with error", "code", res.Code, "error", runErr)
	}

	if !util.FileExists(want) {
		logger.Warn("vocal stem missing", "expected", want)
		return "", fmt.Errorf("%w: %s was not produced", model.ErrSeparationFailed, want)
	}
	logger.Info("separation finished", "vocals", want)
	return want, nil
}
