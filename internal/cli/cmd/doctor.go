package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ytvox/internal/util"
	"ytvox/internal/util/deps"
)

type toolCheck struct {
	tool        deps.Tool
	custom      string
	required    bool
	versionArgs []string
}

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "doctor",
		Short:         "Diagnose external dependencies (yt-dlp, ffmpeg, spleeter)",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := envFrom(cmd)
			runner := e.runner
			if runner == nil {
				runner = util.NewDefaultRunner()
			}
			checks := []toolCheck{
				{tool: deps.Downloader, custom: e.opts.DLBinary, required: true, versionArgs: []string{"--version"}},
				{tool: deps.FFmpeg, custom: e.opts.FFmpegBinary, versionArgs: []string{"-version"}},
				{tool: deps.Spleeter, custom: e.opts.SpleeterBinary, versionArgs: []string{"--version"}},
			}

			var rows [][]string
			var missing []string
			requiredMissing := false
			for _, c := range checks {
				path, err := deps.Find(c.tool, c.custom)
				if err != nil {
					rows = append(rows, []string{c.tool.Name, "missing", "-", c.tool.Hint})
					missing = append(missing, c.tool.Name)
					requiredMissing = requiredMissing || c.required
					continue
				}
				rows = append(rows, []string{c.tool.Name, "ok", path, toolVersion(cmd.Context(), runner, path, c.versionArgs)})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]column{left("Tool"), left("Status"), left("Path"), left("Version").capped(50)}, rows))
			fmt.Fprintf(out, "Downloads root: %s\n", e.opts.DownloadsDir)
			if e.configFile != "" {
				fmt.Fprintf(out, "Config file:    %s\n", e.configFile)
			}

			switch {
			case requiredMissing:
				return &ExitError{Code: ExitMissingDep, Err: errors.New("missing: " + strings.Join(missing, ", "))}
			case len(missing) > 0:
				fmt.Fprintf(out, "Vocal extraction unavailable (missing %s); downloads still work.\n", strings.Join(missing, ", "))
			}
			return nil
		},
	}
}

// toolVersion returns the first line a tool prints for its version flag.
func toolVersion(ctx context.Context, runner util.CmdRunner, path string, args []string) string {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	res, err := runner.Run(ctx, util.CmdSpec{Path: path, Args: args, CaptureStdout: true})
	if err != nil {
		return "-"
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(res.Stdout)), "\n")
	if line == "" {
		line, _, _ = strings.Cut(strings.TrimSpace(string(res.Stderr)), "\n")
	}
	if line == "" {
		return "-"
	}
	return truncateText(strings.TrimSpace(line), 60)
}
