package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"ytvox/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "config",
		Short:         "Print the effective configuration as YAML",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := envFrom(cmd)
			data, err := config.MarshalYAML(e.opts)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			out := cmd.OutOrStdout()
			if e.configFile != "" {
				fmt.Fprintf(out, "# loaded from %s\n", e.configFile)
			}
			_, err = out.Write(data)
			return err
		},
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigPathCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "init [path]",
		Short:         "Write a config file with default values",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				p, err := config.DefaultPath()
				if err != nil {
					return &ExitError{Code: ExitCLIError, Err: err}
				}
				path = p
			}
			if err := config.WriteDefault(path, force); err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "Overwrite an existing file")
	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "path",
		Short:         "Print the default config file location",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := config.DefaultPath()
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
}
