package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ytvox/internal/model"
)

const (
	ExitOK              = 0
	ExitCLIError        = 1
	ExitMissingDep      = 2
	ExitDownloadError   = 3
	ExitTranscodeError  = 4
	ExitSeparationError = 5
	ExitCatalogError    = 6
)

// ExitError wraps an error with a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// exitFor maps pipeline errors to exit codes. Errors that already carry a
// code pass through.
func exitFor(err error) error {
	if err == nil {
		return nil
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return err
	}
	code := ExitCLIError
	switch {
	case errors.Is(err, model.ErrCatalog), errors.Is(err, model.ErrNoResolutions):
		code = ExitCatalogError
	case errors.Is(err, model.ErrFetchFailed):
		code = ExitDownloadError
	case errors.Is(err, model.ErrTranscodeFailed):
		code = ExitTranscodeError
	case errors.Is(err, model.ErrSeparationFailed):
		code = ExitSeparationError
	}
	return &ExitError{Code: code, Err: err}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ytvox [url]",
		Short: "Download online videos at a chosen resolution and extract vocals",
		Long: "ytvox lists the resolutions a video is offered in, downloads the one you pick " +
			"(merging separate video and audio streams when needed) and can isolate the vocal " +
			"track of the result. Run it without a subcommand in a terminal for the interactive UI.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		Args:              cobra.MaximumNArgs(1),
		PersistentPreRunE: setupEnv,
		RunE: func(cmd *cobra.Command, args []string) error {
			url := ""
			if len(args) == 1 {
				url = args[0]
			}
			if isTerminal() {
				return runTUI(cmd, url, "", false)
			}
			if url == "" {
				return cmd.Help()
			}
			return runDetect(cmd, url, false)
		},
	}

	// Persistent flags available to all subcommands
	pf := root.PersistentFlags()
	pf.StringP("downloads-dir", "o", model.DefaultDownloadsDir, "Downloads root for videos, intermediate audio and vocals")
	pf.BoolP("verbose", "v", false, "Show full subprocess commands/output")
	pf.String("dl-binary", "", "Path to yt-dlp")
	pf.String("ffmpeg-binary", "", "Path to ffmpeg")
	pf.String("spleeter-binary", "", "Path to spleeter")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.String("log-format", "text", "Log format: text, json")
	pf.String("config", "", "Config file (default <config dir>/ytvox/config.yaml)")

	// Subcommands
	root.AddCommand(newDetectCmd())
	root.AddCommand(newDownloadCmd())
	root.AddCommand(newVocalsCmd())
	root.AddCommand(newTuiCmd())
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newCompletionCmd())

	return root
}

// Execute runs the CLI with the provided context.
func Execute(ctx context.Context) error {
	root := newRootCmd()
	return root.ExecuteContext(ctx)
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
