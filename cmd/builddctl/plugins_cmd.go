package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newPluginsCommand(cfg *cliConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Manage controller plugins",
	}
	cmd.AddCommand(
		newPluginsListCommand(cfg),
		newPluginsInstallCommand(cfg),
	)
	return cmd
}

func newPluginsListCommand(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cli, err := cfg.client()
			if err != nil {
				return err
			}
			records, err := cli.Plugins().List(cmd.Context())
			if err != nil {
				return err
			}
			return cfg.render(cmd.OutOrStdout(), records, func(out io.Writer) error {
				for _, rec := range records {
					state := "enabled"
					if !rec.Enabled {
						state = "disabled"
					}
					fmt.Fprintf(out, "%s\t%s\t%s\n", rec.ShortName, rec.Version, state)
				}
				return nil
			})
		},
	}
}

func newPluginsInstallCommand(cfg *cliConfig) *cobra.Command {
	var version string
	cmd := &cobra.Command{
		Use:   "install <short-name>",
		Short: "Install a plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := cfg.client()
			if err != nil {
				return err
			}
			if err := cli.Plugins().Install(cmd.Context(), args[0], version); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "install requested for %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&version, "version", "", "plugin version (default latest)")
	return cmd
}
