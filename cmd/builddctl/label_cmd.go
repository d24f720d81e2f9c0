package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newLabelCommand(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "label <name>",
		Short: "Show node-label details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := cfg.client()
			if err != nil {
				return err
			}
			info, err := cli.Label(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return cfg.render(cmd.OutOrStdout(), info, func(out io.Writer) error {
				fmt.Fprintf(out, "label: %s\n", info.Name)
				if info.Description != "" {
					fmt.Fprintf(out, "description: %s\n", info.Description)
				}
				fmt.Fprintf(out, "nodes: %s\n", strings.Join(info.Nodes, ", "))
				fmt.Fprintf(out, "tied jobs: %s\n", strings.Join(info.TiedJobs, ", "))
				return nil
			})
		},
	}
}
