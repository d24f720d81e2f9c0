package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newViewsCommand(cfg *cliConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "views",
		Short: "Manage views on the controller",
	}
	cmd.AddCommand(
		newViewsListCommand(cfg),
		newViewsCreateCommand(cfg),
		newViewsDeleteCommand(cfg),
		newViewsAddJobCommand(cfg),
	)
	return cmd
}

func newViewsListCommand(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List views",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cli, err := cfg.client()
			if err != nil {
				return err
			}
			records, err := cli.Views().List(cmd.Context())
			if err != nil {
				return err
			}
			return cfg.render(cmd.OutOrStdout(), records, func(out io.Writer) error {
				for _, rec := range records {
					fmt.Fprintf(out, "%s\t%s\n", rec.Name, rec.URL)
				}
				return nil
			})
		},
	}
}

func newViewsCreateCommand(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a list view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := cfg.client()
			if err != nil {
				return err
			}
			if err := cli.Views().Create(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", args[0])
			return nil
		},
	}
}

func newViewsDeleteCommand(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a view",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := cfg.client()
			if err != nil {
				return err
			}
			if err := cli.Views().Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func newViewsAddJobCommand(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "add-job <view> <job>",
		Short: "Add a job to a view",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := cfg.client()
			if err != nil {
				return err
			}
			if err := cli.Views().AddJob(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s to %s\n", args[1], args[0])
			return nil
		},
	}
}
