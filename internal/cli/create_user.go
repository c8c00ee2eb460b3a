package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teawithlucas/keycloak-provisioner/internal/keycloak"
	"github.com/teawithlucas/keycloak-provisioner/internal/provisioning"
)

func newCreateUserCmd() *cobra.Command {
	var username, password, realm string
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a single user without starting the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(username) == "" {
				return errors.New("username is required")
			}
			if strings.TrimSpace(password) == "" {
				return errors.New("password is required")
			}

			cfg, logger, closer, err := loadRuntime(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closer.Close()

			discoverCtx, cancelDiscover := context.WithTimeout(cmd.Context(), cfg.Keycloak.HTTPTimeout)
			admin, err := keycloak.NewAdminClient(discoverCtx, cfg.AdminClientConfig())
			cancelDiscover()
			if err != nil {
				return err
			}
			if realm == "" {
				realm = admin.Realm()
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Keycloak.HTTPTimeout)
			defer cancel()
			svc := provisioning.NewService(admin, admin.Realm(), logger)
			outcome := svc.ProvisionInRealm(ctx, realm, username, password)
			if outcome.Failed() {
				return fmt.Errorf("%s: %s", outcome.Kind, outcome.Message)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s created in realm %s\n", username, realm)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username of the new user")
	cmd.Flags().StringVar(&password, "password", "", "password of the new user")
	cmd.Flags().StringVar(&realm, "realm", "", "realm to create the user in (defaults to KEYCLOAK_REALM)")
	return cmd
}
