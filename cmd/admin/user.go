package main

import (
	"fmt"

	"mt5_gateway/internal/models"
	"mt5_gateway/internal/modules/store/service"

	"github.com/spf13/cobra"
)

func newUserCmd(rc *rootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage API users",
	}
	cmd.AddCommand(newUserCreateCmd(rc))
	return cmd
}

func newUserCreateCmd(rc *rootConfig) *cobra.Command {
	var (
		username string
		password string
		role     string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user that API tokens can be issued for",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				return fmt.Errorf("missing --username")
			}
			if password == "" {
				return fmt.Errorf("missing --password")
			}
			r := models.Role(role)
			if r != models.RoleUser && r != models.RoleAdmin {
				return fmt.Errorf("bad --role %q: use user or admin", role)
			}

			return rc.withRepo(cmd.Context(), func(repo service.Repository) error {
				u, err := repo.CreateUser(cmd.Context(), username, password, r)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id=%d, role=%s)\n", u.Username, u.ID, u.Role)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "user name")
	cmd.Flags().StringVar(&password, "password", "", "password, at least 8 characters")
	cmd.Flags().StringVar(&role, "role", string(models.RoleUser), "user|admin")
	return cmd
}
