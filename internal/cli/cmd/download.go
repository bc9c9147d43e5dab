package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"ytvox/internal/pipeline"
	"ytvox/internal/progress"
	"ytvox/internal/util/format"
)

func newDownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download <url>",
		Short: "Download a video at a chosen resolution",
		Long: "Download a video. --resolution takes a label exactly as printed by 'ytvox detect' " +
			"(for example \"1080p (landscape)\"); without it the highest resolution is used.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			label, _ := cmd.Flags().GetString("resolution")
			vocals, _ := cmd.Flags().GetBool("vocals")
			noProgress, _ := cmd.Flags().GetBool("no-progress")
			return runDownload(cmd, args[0], label, vocals, !noProgress && isTerminal())
		},
	}
	bindFetchFlags(cmd.Flags())
	cmd.Flags().Bool("no-progress", false, "Disable the progress bar")
	return cmd
}

// bindFetchFlags registers the flags download and tui share.
func bindFetchFlags(fs *pflag.FlagSet) {
	fs.StringP("resolution", "r", "", "Resolution label as printed by 'ytvox detect' (default: highest)")
	fs.Bool("vocals", false, "Extract the vocal track after downloading")
}

// reporterFor picks the progress bar on a terminal and stage log lines
// otherwise.
func reporterFor(cmd *cobra.Command, lg *slog.Logger, showProgress bool) progress.Reporter {
	if showProgress {
		return newBarReporter(cmd.ErrOrStderr())
	}
	var last progress.Stage
	return progress.Func(func(u progress.Update) {
		if u.Stage == last {
			return
		}
		last = u.Stage
		lg.Info("stage", "stage", string(u.Stage), "message", u.Message)
	})
}

func runDownload(cmd *cobra.Command, rawURL, label string, vocals, showProgress bool) error {
	ctx := cmd.Context()
	e := envFrom(cmd)
	lg, closeLog, err := e.logger(false)
	if err != nil {
		return err
	}
	defer closeQuietly(nil, "log", closeLog)

	t, err := e.findTools(true, vocals)
	if err != nil {
		return err
	}

	store, err := e.openHistory(ctx)
	if err != nil {
		lg.Warn("history unavailable", "error", err)
	}
	if store != nil {
		defer closeQuietly(lg, "history", store.Close)
	}

	svc := e.service(t, lg, reporterFor(cmd, lg, showProgress), uuid.NewString(), store)

	det, err := svc.Detect(ctx, rawURL)
	if err != nil {
		return exitFor(err)
	}
	res, err := svc.Download(ctx, det, label, vocals)
	if err != nil {
		return exitFor(err)
	}
	writeResult(cmd.OutOrStdout(), res)
	return nil
}

func writeResult(w io.Writer, res pipeline.Result) {
	fmt.Fprintf(w, "Saved: %s (%s, %s)\n", res.ArtifactPath, res.Label, format.HumanizeBytes(res.Bytes))
	if res.Vocals != nil {
		fmt.Fprintf(w, "Vocals: %s\n", res.Vocals.VocalsPath)
	}
}

func newVocalsCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "vocals <file>",
		Short:         "Extract the vocal track of a downloaded file",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e := envFrom(cmd)
			lg, closeLog, err := e.logger(false)
			if err != nil {
				return err
			}
			defer closeQuietly(nil, "log", closeLog)

			t, err := e.findTools(false, true)
			if err != nil {
				return err
			}
			rep := reporterFor(cmd, lg, isTerminal())
			path, err := filepath.Abs(args[0])
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			vr, err := e.service(t, lg, rep, uuid.NewString(), nil).ExtractVocals(ctx, path)
			if err != nil {
				return exitFor(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Vocals: %s\n", vr.VocalsPath)
			return nil
		},
	}
}
