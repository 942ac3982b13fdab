package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // cobra command pattern
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Manage the tenant's server",
}

//nolint:gochecknoglobals // cobra command pattern
var serverCreateCmd = &cobra.Command{
	Use:   "create <requester-id>",
	Short: "Create the tenant's server and publish its SSH endpoint",
	Long: `Boots the tenant's fixed-name server if it does not exist, waits for
it to become active, and publishes ssh://<floating-ip>:22 through the edge
router. An existing server is reported, never recreated.`,
	Args: cobra.ExactArgs(1),
	RunE: runServerCreate,
}

//nolint:gochecknoglobals // cobra command pattern
var serverStatusCmd = &cobra.Command{
	Use:   "status <requester-id>",
	Short: "Show the tenant's server status",
	Args:  cobra.ExactArgs(1),
	RunE:  runServerStatus,
}

func init() {
	serverCreateCmd.Flags().String("flavor", "", "Flavor name or ID")
	serverCreateCmd.Flags().String("image", "", "Image name or ID")
	_ = serverCreateCmd.MarkFlagRequired("flavor")
	_ = serverCreateCmd.MarkFlagRequired("image")

	serverCmd.AddCommand(serverCreateCmd)
	serverCmd.AddCommand(serverStatusCmd)
	rootCmd.AddCommand(serverCmd)
}

func runServerCreate(cobraCmd *cobra.Command, args []string) error {
	flavor, _ := cobraCmd.Flags().GetString("flavor")
	image, _ := cobraCmd.Flags().GetString("image")

	application, err := buildApp(cobraCmd.Context())
	if err != nil {
		return err
	}

	status, err := application.engine.EnsureServer(cobraCmd.Context(), args[0], flavor, image)
	if err != nil {
		return err
	}

	if !status.Created {
		fmt.Fprintf(cobraCmd.OutOrStdout(), "server %s already exists (%s)\n", status.Name, status.Status)

		return nil
	}

	fmt.Fprintf(cobraCmd.OutOrStdout(), "server %s is %s at %s\n", status.Name, status.Status, status.FloatingIP)
	fmt.Fprintf(cobraCmd.OutOrStdout(), "ssh endpoint: %s\n", status.Hostname)

	return nil
}

func runServerStatus(cobraCmd *cobra.Command, args []string) error {
	application, err := buildApp(cobraCmd.Context())
	if err != nil {
		return err
	}

	status, err := application.engine.ServerStatus(cobraCmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(cobraCmd.OutOrStdout(), "name:        %s\n", status.Name)
	fmt.Fprintf(cobraCmd.OutOrStdout(), "status:      %s\n", status.Status)
	fmt.Fprintf(cobraCmd.OutOrStdout(), "floating ip: %s\n", status.FloatingIP)

	return nil
}
