package main

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newJobsCommand(cfg *cliConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage jobs on the controller",
	}
	cmd.AddCommand(
		newJobsListCommand(cfg),
		newJobsCreateCommand(cfg),
		newJobsCopyCommand(cfg),
		newJobsDeleteCommand(cfg),
		newJobsBuildCommand(cfg),
		newJobsConfigCommand(cfg),
		newJobsEnableCommand(cfg, true),
		newJobsEnableCommand(cfg, false),
	)
	return cmd
}

func newJobsListCommand(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cli, err := cfg.client()
			if err != nil {
				return err
			}
			records, err := cli.Jobs().List(cmd.Context())
			if err != nil {
				return err
			}
			return cfg.render(cmd.OutOrStdout(), records, func(out io.Writer) error {
				for _, rec := range records {
					state := "enabled"
					if !rec.Buildable {
						state = "disabled"
					}
					fmt.Fprintf(out, "%s\t%s\t%s\n", rec.Name, state, rec.URL)
				}
				return nil
			})
		},
	}
}

func newJobsCreateCommand(cfg *cliConfig) *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a job from an XML configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configXML, err := readFileOrStdin(configPath)
			if err != nil {
				return err
			}
			cli, err := cfg.client()
			if err != nil {
				return err
			}
			if err := cli.Jobs().Create(cmd.Context(), args[0], configXML); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "-", "job config XML file (use - for stdin)")
	return cmd
}

func newJobsCopyCommand(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "copy <source> <destination>",
		Short: "Copy an existing job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := cfg.client()
			if err != nil {
				return err
			}
			if err := cli.Jobs().Copy(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "copied %s to %s\n", args[0], args[1])
			return nil
		},
	}
}

func newJobsDeleteCommand(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a job",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := cfg.client()
			if err != nil {
				return err
			}
			if err := cli.Jobs().Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func newJobsBuildCommand(cfg *cliConfig) *cobra.Command {
	var params []string
	cmd := &cobra.Command{
		Use:   "build <name>",
		Short: "Trigger a build",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values := url.Values{}
			for _, pair := range params {
				key, value, ok := strings.Cut(pair, "=")
				if !ok {
					return fmt.Errorf("invalid parameter %q (expected key=value)", pair)
				}
				values.Set(key, value)
			}
			cli, err := cfg.client()
			if err != nil {
				return err
			}
			ref, err := cli.Jobs().Build(cmd.Context(), args[0], values)
			if err != nil {
				return err
			}
			return cfg.render(cmd.OutOrStdout(), ref, func(out io.Writer) error {
				fmt.Fprintf(out, "queued %s as item %d\n", args[0], ref.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&params, "param", "p", nil, "build parameter (key=value, repeatable)")
	return cmd
}

func newJobsConfigCommand(cfg *cliConfig) *cobra.Command {
	var setPath string
	cmd := &cobra.Command{
		Use:   "config <name>",
		Short: "Show or replace a job's XML configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := cfg.client()
			if err != nil {
				return err
			}
			job, err := cli.Jobs().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if setPath != "" {
				configXML, err := readFileOrStdin(setPath)
				if err != nil {
					return err
				}
				if err := job.SetConfig(cmd.Context(), configXML); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", args[0])
				return nil
			}
			configXML, err := job.Config(cmd.Context())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(configXML)
			return err
		},
	}
	cmd.Flags().StringVar(&setPath, "set", "", "replace the config from this XML file (use - for stdin)")
	return cmd
}

func newJobsEnableCommand(cfg *cliConfig, enable bool) *cobra.Command {
	use, verb := "enable", "enabled"
	if !enable {
		use, verb = "disable", "disabled"
	}
	return &cobra.Command{
		Use:   use + " <name>",
		Short: strings.ToUpper(use[:1]) + use[1:] + " a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := cfg.client()
			if err != nil {
				return err
			}
			job, err := cli.Jobs().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if enable {
				err = job.Enable(cmd.Context())
			} else {
				err = job.Disable(cmd.Context())
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, args[0])
			return nil
		},
	}
}

func readFileOrStdin(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("input file required")
	}
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
