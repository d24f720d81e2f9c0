package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/cobra"

	builddclient "pkt.systems/buildd/client"
)

func newResourcesCommand(cfg *cliConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "resources",
		Aliases: []string{"res"},
		Short:   "Inspect and reserve lockable resources",
	}
	cmd.AddCommand(
		newResourcesListCommand(cfg),
		newResourcesReserveCommand(cfg),
		newResourcesUnreserveCommand(cfg),
		newResourcesWithCommand(cfg),
	)
	return cmd
}

func newResourcesListCommand(cfg *cliConfig) *cobra.Command {
	var label string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List lockable resources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cli, err := cfg.client()
			if err != nil {
				return err
			}
			pool, err := cli.LockableResources(cmd.Context())
			if err != nil {
				return err
			}
			snap, err := pool.Snapshot()
			if err != nil {
				return err
			}
			records := snap.Records()
			if label != "" {
				filtered := records[:0]
				for _, rec := range records {
					if rec.HasLabel(label) {
						filtered = append(filtered, rec)
					}
				}
				records = filtered
			}
			return cfg.render(cmd.OutOrStdout(), records, func(out io.Writer) error {
				for _, rec := range records {
					fmt.Fprintf(out, "%s\tfree=%t reserved=%t", rec.Name, rec.Free, rec.Reserved)
					if rec.ReservedBy != "" {
						fmt.Fprintf(out, " by=%s", rec.ReservedBy)
					}
					if len(rec.LabelList) > 0 {
						fmt.Fprintf(out, " labels=%s", strings.Join(rec.LabelList, ","))
					}
					fmt.Fprintln(out)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&label, "label", "l", "", "only show resources carrying this label")
	return cmd
}

func newResourcesReserveCommand(cfg *cliConfig) *cobra.Command {
	var sleep time.Duration
	var wait time.Duration
	var noWait bool
	cmd := &cobra.Command{
		Use:   "reserve <name>",
		Short: "Reserve a lockable resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			cli, err := cfg.client()
			if err != nil {
				return err
			}
			pool, err := cli.LockableResources(cmd.Context())
			if err != nil {
				return err
			}
			if noWait {
				if err := pool.Reserve(cmd.Context(), name); err != nil {
					return err
				}
			} else {
				retry := builddclient.FixedRetry{SleepPeriod: sleep, Timeout: wait}
				if _, err := pool.WaitReserve(cmd.Context(), builddclient.SelectName(name), retry); err != nil {
					return err
				}
			}
			return cfg.render(cmd.OutOrStdout(),
				map[string]string{"resource": name, "state": "reserved"},
				func(out io.Writer) error {
					fmt.Fprintf(out, "reserved %s\n", name)
					return nil
				})
		},
	}
	cmd.Flags().DurationVar(&sleep, "sleep", builddclient.DefaultReserveSleepPeriod, "pause between reservation attempts")
	cmd.Flags().DurationVar(&wait, "wait", builddclient.DefaultReserveTimeout, "total time to wait for the resource")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "fail immediately when the resource is busy")
	return cmd
}

func newResourcesUnreserveCommand(cfg *cliConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "unreserve <name>",
		Aliases: []string{"release"},
		Short:   "Release a reserved resource",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			cli, err := cfg.client()
			if err != nil {
				return err
			}
			pool, err := cli.LockableResources(cmd.Context())
			if err != nil {
				return err
			}
			if err := pool.Unreserve(cmd.Context(), name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "released %s\n", name)
			return nil
		},
	}
	return cmd
}

func newResourcesWithCommand(cfg *cliConfig) *cobra.Command {
	var names []string
	var label string
	var sleep time.Duration
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "with -- <command> [args...]",
		Short: "Run a command while holding a resource",
		Long: "Reserves a matching resource, runs the command with " + envReservedResource +
			" set to the reserved name, and releases the resource when the command exits.",
		Example: `  # Run integration tests while holding a database from the pool
  builddctl resources with --label db -- go test ./integration/...`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := buildSelector(names, label)
			if err != nil {
				return err
			}
			cli, err := cfg.client()
			if err != nil {
				return err
			}
			pool, err := cli.LockableResources(cmd.Context())
			if err != nil {
				return err
			}
			retry := builddclient.FixedRetry{SleepPeriod: sleep, Timeout: wait}
			res := pool.NewReservation(sel, retry)
			return res.Do(cmd.Context(), func(ctx context.Context, name string) error {
				fmt.Fprintf(cmd.ErrOrStderr(), "holding %s\n", name)
				child := exec.CommandContext(ctx, args[0], args[1:]...)
				child.Stdin = os.Stdin
				child.Stdout = cmd.OutOrStdout()
				child.Stderr = cmd.ErrOrStderr()
				child.Env = append(os.Environ(), envReservedResource+"="+name)
				return child.Run()
			})
		},
	}
	cmd.Flags().StringSliceVarP(&names, "name", "n", nil, "candidate resource name (repeatable)")
	cmd.Flags().StringVarP(&label, "label", "l", "", "reserve any resource carrying this label")
	cmd.Flags().DurationVar(&sleep, "sleep", builddclient.DefaultReserveSleepPeriod, "pause between reservation attempts")
	cmd.Flags().DurationVar(&wait, "wait", builddclient.DefaultReserveTimeout, "total time to wait for a resource")
	return cmd
}

func buildSelector(names []string, label string) (builddclient.Selector, error) {
	switch {
	case label != "" && len(names) > 0:
		return nil, fmt.Errorf("--label and --name are mutually exclusive")
	case label != "":
		return builddclient.SelectLabel(label), nil
	case len(names) == 1:
		return builddclient.SelectName(names[0]), nil
	case len(names) > 1:
		return builddclient.SelectNames(names...), nil
	default:
		return nil, fmt.Errorf("either --label or --name is required")
	}
}
