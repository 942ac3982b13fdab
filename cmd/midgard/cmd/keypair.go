package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // cobra command pattern
var keypairCmd = &cobra.Command{
	Use:   "keypair <requester-id> <public-key>",
	Short: "Rotate the tenant's SSH keypair",
	Long: `Replaces the tenant's fixed-name keypair with the given public key.
An existing keypair is deleted before the new one is created. The key may be
given inline or as @path to read it from a file.`,
	Args: cobra.ExactArgs(2),
	RunE: runKeypair,
}

func init() {
	rootCmd.AddCommand(keypairCmd)
}

func runKeypair(cobraCmd *cobra.Command, args []string) error {
	publicKey := args[1]

	if strings.HasPrefix(publicKey, "@") {
		data, err := os.ReadFile(strings.TrimPrefix(publicKey, "@"))
		if err != nil {
			return errors.Wrap(err, "failed to read public key file")
		}

		publicKey = strings.TrimSpace(string(data))
	}

	application, err := buildApp(cobraCmd.Context())
	if err != nil {
		return err
	}

	err = application.engine.RotateKeypair(cobraCmd.Context(), args[0], publicKey)
	if err != nil {
		return err
	}

	fmt.Fprintf(cobraCmd.OutOrStdout(), "keypair %s rotated\n", application.settings.Compute.KeypairName)

	return nil
}
