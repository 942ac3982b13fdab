package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // cobra command pattern
var registerCmd = &cobra.Command{
	Use:   "register <requester-id>",
	Short: "Reconcile a requester into a provisioned tenant",
	Long: `Resolves the requester against the credential cache and the control
plane: a cached credential is returned as-is, a known remote user has its
credential rotated and adopted, and an unknown requester gets a full tenant
(project, user, role, network stack) provisioned from scratch.`,
	Args: cobra.ExactArgs(1),
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)
}

func runRegister(cobraCmd *cobra.Command, args []string) error {
	application, err := buildApp(cobraCmd.Context())
	if err != nil {
		return err
	}

	cred, err := application.engine.ReconcileTenant(cobraCmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(cobraCmd.OutOrStdout(), "auth url: %s\n", application.settings.AuthURL)
	fmt.Fprintf(cobraCmd.OutOrStdout(), "project:  %s\n", cred.ProjectName)
	fmt.Fprintf(cobraCmd.OutOrStdout(), "username: %s\n", cred.RequesterID)
	fmt.Fprintf(cobraCmd.OutOrStdout(), "password: %s\n", cred.Secret)

	return nil
}
