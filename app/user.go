package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/assetdesk/assetdesk/internal/daemon"
	"github.com/assetdesk/assetdesk/internal/db/controller/identity"
)

func init() { //nolint: gochecknoinits
	createAdminCmd.Flags().StringVar(&adminUsername, "username", "", "login name")
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "email address")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "initial password")

	_ = createAdminCmd.MarkFlagRequired("username")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")

	userCmd.AddCommand(createAdminCmd)
	rootCmd.AddCommand(userCmd)
}

var (
	adminUsername string
	adminEmail    string
	adminPassword string

	userCmd = &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	createAdminCmd = &cobra.Command{
		Use:     "create-admin",
		Short:   "Create a local platform-admin, e.g. to recover from a lost password",
		PreRunE: loadConfig,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := daemon.OpenDB(&cfg)
			if err != nil {
				return err
			}

			store, err := identity.New(db)
			if err != nil {
				return err
			}

			user, err := daemon.CreateAdmin(cmd.Context(), store, adminUsername, adminEmail, adminPassword)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "created platform-admin %s (id %d)\n", user.Username, user.ID)

			return err
		},
	}
)
