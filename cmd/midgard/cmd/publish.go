package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lexfrei/midgard/internal/ingress"
)

//nolint:gochecknoglobals // cobra command pattern
var publishCmd = &cobra.Command{
	Use:   "publish <requester-id> <service> <hostname>",
	Short: "Publish a service endpoint under a hostname",
	Long: `Inserts a route for the service at the head of the tunnel ingress
table and creates the matching CNAME record. The hostname is normalized: one
trailing dot is stripped and the routing domain appended when missing.`,
	Args: cobra.ExactArgs(3),
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().Bool("no-tls-verify", false, "Skip TLS verification against the origin")
	publishCmd.Flags().String("host-header", "", "Override the Host header sent to the origin")

	rootCmd.AddCommand(publishCmd)
}

func runPublish(cobraCmd *cobra.Command, args []string) error {
	noTLSVerify, _ := cobraCmd.Flags().GetBool("no-tls-verify")
	hostHeader, _ := cobraCmd.Flags().GetString("host-header")

	var origin *ingress.OriginRequest
	if noTLSVerify || hostHeader != "" {
		origin = &ingress.OriginRequest{
			NoTLSVerify:    noTLSVerify,
			HTTPHostHeader: hostHeader,
		}
	}

	application, err := buildApp(cobraCmd.Context())
	if err != nil {
		return err
	}

	hostname, err := application.engine.PublishEndpoint(cobraCmd.Context(), args[0], args[1], args[2], origin)
	if err != nil {
		return err
	}

	fmt.Fprintf(cobraCmd.OutOrStdout(), "https://%s -> %s\n", hostname, args[1])

	return nil
}
