package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	builddclient "pkt.systems/buildd/client"
)

func newCredentialsCommand(cfg *cliConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "credentials",
		Aliases: []string{"creds"},
		Short:   "Manage the system credential store",
	}
	cmd.AddCommand(
		newCredentialsListCommand(cfg),
		newCredentialsCreateCommand(cfg),
		newCredentialsDeleteCommand(cfg),
	)
	return cmd
}

func newCredentialsListCommand(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cli, err := cfg.client()
			if err != nil {
				return err
			}
			records, err := cli.Credentials().List(cmd.Context())
			if err != nil {
				return err
			}
			return cfg.render(cmd.OutOrStdout(), records, func(out io.Writer) error {
				for _, rec := range records {
					fmt.Fprintf(out, "%s\t%s\t%s\n", rec.ID, rec.TypeName, rec.Description)
				}
				return nil
			})
		},
	}
}

func newCredentialsCreateCommand(cfg *cliConfig) *cobra.Command {
	var spec builddclient.CredentialSpec
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Store a username/password credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if spec.Username == "" {
				return fmt.Errorf("--username is required")
			}
			cli, err := cfg.client()
			if err != nil {
				return err
			}
			id, err := cli.Credentials().Create(cmd.Context(), spec)
			if err != nil {
				return err
			}
			if id == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "created (server-assigned id)")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&spec.ID, "id", "", "credential id (default server-assigned)")
	cmd.Flags().StringVar(&spec.Description, "description", "", "credential description")
	cmd.Flags().StringVar(&spec.Username, "username", "", "username (required)")
	cmd.Flags().StringVar(&spec.Password, "password", "", "password")
	cmd.Flags().StringVar(&spec.Secret, "secret", "", "secret text")
	return cmd
}

func newCredentialsDeleteCommand(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a stored credential",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := cfg.client()
			if err != nil {
				return err
			}
			if err := cli.Credentials().Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}
