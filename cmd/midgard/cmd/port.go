package cmd

import (
	"fmt"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/lexfrei/midgard/internal/fault"
)

//nolint:gochecknoglobals // cobra command pattern
var openPortCmd = &cobra.Command{
	Use:   "open-port <requester-id> <port>",
	Short: "Open a port on the tenant's default security group",
	Args:  cobra.ExactArgs(2),
	RunE:  runOpenPort,
}

//nolint:gochecknoglobals // cobra command pattern
var forwardCmd = &cobra.Command{
	Use:   "port-forward <requester-id> <port>",
	Short: "Open a port and publish it through the edge router",
	Long: `Opens the port on the tenant's security group and publishes
<protocol>://<floating-ip>:<port> under the <requester>-<protocol>-<port>
hostname.`,
	Args: cobra.ExactArgs(2),
	RunE: runForward,
}

func init() {
	openPortCmd.Flags().String("direction", "", "Rule direction (ingress, egress); defaults to ingress")
	forwardCmd.Flags().String("protocol", "http", "Service protocol for the published endpoint")

	rootCmd.AddCommand(openPortCmd)
	rootCmd.AddCommand(forwardCmd)
}

func parsePort(raw string) (int, error) {
	port, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid port %q", raw)
	}

	return port, nil
}

func runOpenPort(cobraCmd *cobra.Command, args []string) error {
	port, err := parsePort(args[1])
	if err != nil {
		return err
	}

	direction, _ := cobraCmd.Flags().GetString("direction")

	application, err := buildApp(cobraCmd.Context())
	if err != nil {
		return err
	}

	err = application.engine.OpenPort(cobraCmd.Context(), args[0], port, direction)
	if err != nil {
		// An existing identical rule means the port is already open.
		if fault.IsKind(err, fault.KindConflict) {
			fmt.Fprintf(cobraCmd.OutOrStdout(), "port %d already open\n", port)

			return nil
		}

		return err
	}

	fmt.Fprintf(cobraCmd.OutOrStdout(), "port %d open\n", port)

	return nil
}

func runForward(cobraCmd *cobra.Command, args []string) error {
	port, err := parsePort(args[1])
	if err != nil {
		return err
	}

	protocol, _ := cobraCmd.Flags().GetString("protocol")

	application, err := buildApp(cobraCmd.Context())
	if err != nil {
		return err
	}

	forward, err := application.engine.ForwardPort(cobraCmd.Context(), args[0], port, protocol)
	if err != nil {
		return err
	}

	fmt.Fprintf(cobraCmd.OutOrStdout(), "https://%s -> %s\n", forward.Hostname, forward.Service)

	return nil
}
