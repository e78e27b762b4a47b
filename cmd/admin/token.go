package main

import (
	"fmt"

	"mt5_gateway/internal/modules/store/service"

	"github.com/spf13/cobra"
)

const defaultTokenName = "n8n_token"

func newTokenCmd(rc *rootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API tokens",
	}
	cmd.AddCommand(newTokenCreateCmd(rc))
	return cmd
}

func newTokenCreateCmd(rc *rootConfig) *cobra.Command {
	var (
		username string
		name     string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Issue a new API token for an existing user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				return fmt.Errorf("missing --username")
			}

			return rc.withRepo(cmd.Context(), func(repo service.Repository) error {
				tok, err := repo.CreateToken(cmd.Context(), username, name)
				if err != nil {
					return err
				}
				// токен показывается один раз
				fmt.Fprintf(cmd.OutOrStdout(), "token for %s (%s):\n%s\n", tok.Username, tok.Name, tok.Token)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "owner of the token")
	cmd.Flags().StringVar(&name, "name", defaultTokenName, "label for the token")
	return cmd
}
