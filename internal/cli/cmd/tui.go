package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"ytvox/internal/ui"
)

func newTuiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tui [url]",
		Short:         "Start the interactive downloader",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := ""
			if len(args) == 1 {
				url = args[0]
			}
			label, _ := cmd.Flags().GetString("resolution")
			vocals, _ := cmd.Flags().GetBool("vocals")
			return runTUI(cmd, url, label, vocals)
		},
	}
	bindFetchFlags(cmd.Flags())
	return cmd
}

func runTUI(cmd *cobra.Command, url, label string, vocals bool) error {
	if !isTerminal() {
		return &ExitError{Code: ExitCLIError, Err: errors.New("the interactive UI needs a terminal; use 'ytvox detect' and 'ytvox download' instead")}
	}
	ctx := cmd.Context()
	e := envFrom(cmd)
	// fail before taking over the screen
	if _, err := e.findTools(true, false); err != nil {
		return err
	}

	lg, closeLog, err := e.logger(true)
	if err != nil {
		return err
	}
	defer closeQuietly(nil, "log", closeLog)

	store, err := e.openHistory(ctx)
	if err != nil {
		lg.Warn("history unavailable", "error", err)
	}
	if store != nil {
		defer closeQuietly(lg, "history", store.Close)
	}

	err = ui.Run(ctx, ui.Config{
		Options: e.opts,
		URL:     url,
		Label:   label,
		Vocals:  vocals,
		Logger:  lg,
		History: store,
		Runner:  e.runner,
	})
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	return nil
}
