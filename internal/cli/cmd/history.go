package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ytvox/internal/dirs"
	"ytvox/internal/history"
	"ytvox/internal/util/format"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "history [id]",
		Short:         "Show recent downloads, or one entry in full",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			limit, _ := cmd.Flags().GetInt("limit")
			wipe, _ := cmd.Flags().GetBool("clear")

			p, err := dirs.HistoryDB()
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			store, err := history.Open(ctx, p)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			defer func() { _ = store.Close() }()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				entry, err := store.Get(ctx, args[0])
				if err != nil {
					return &ExitError{Code: ExitCLIError, Err: err}
				}
				if entry == nil {
					return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("no history entry %q", args[0])}
				}
				writeEntry(out, *entry)
				return nil
			}
			if wipe {
				n, err := store.Clear(ctx)
				if err != nil {
					return &ExitError{Code: ExitCLIError, Err: err}
				}
				fmt.Fprintf(out, "Removed %d entries from %s\n", n, store.Path())
				return nil
			}

			entries, err := store.List(ctx, limit)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No downloads recorded yet.")
				return nil
			}
			fmt.Fprintln(out, renderHistory(entries))
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 20, "Number of entries to show")
	cmd.Flags().Bool("clear", false, "Delete all history entries")
	return cmd
}

func renderHistory(entries []history.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		title := e.Title
		if title == "" {
			title = e.URL
		}
		file := "-"
		if e.ArtifactPath != "" {
			file = filepath.Base(e.ArtifactPath)
		}
		status := string(e.Status)
		if e.VocalsPath != "" {
			status += " +vocals"
		}
		if e.Status == history.StatusFailed && e.ErrorMessage != "" {
			status += ": " + e.ErrorMessage
		}
		size := "-"
		if e.Bytes > 0 {
			size = format.HumanizeBytes(e.Bytes)
		}
		rows = append(rows, []string{
			e.ID,
			humanize.Time(e.CreatedAt),
			title,
			e.Label,
			size,
			status,
			file,
		})
	}
	return renderTable([]column{
		left("ID"),
		left("When"),
		left("Title").capped(40),
		left("Resolution"),
		right("Size"),
		left("Status").capped(48),
		left("File").capped(40),
	}, rows)
}

func writeEntry(w io.Writer, e history.Entry) {
	fields := []struct{ name, value string }{
		{"ID", e.ID},
		{"When", e.CreatedAt.Local().Format(time.RFC3339)},
		{"URL", e.URL},
		{"Title", e.Title},
		{"Resolution", e.Label},
		{"Streams", e.Selector},
		{"Fetch", e.PlanKind},
		{"File", e.ArtifactPath},
		{"Size", format.HumanizeBytes(e.Bytes)},
		{"Vocals", e.VocalsPath},
		{"Status", string(e.Status)},
		{"Error", e.ErrorMessage},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		fmt.Fprintf(w, "%-11s %s\n", f.name+":", f.value)
	}
}
