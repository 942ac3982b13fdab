package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // cobra command pattern
var flavorsCmd = &cobra.Command{
	Use:   "flavors",
	Short: "List flavors available for server creation",
	Args:  cobra.NoArgs,
	RunE:  runFlavors,
}

//nolint:gochecknoglobals // cobra command pattern
var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "List images available for server creation",
	Args:  cobra.NoArgs,
	RunE:  runImages,
}

func init() {
	rootCmd.AddCommand(flavorsCmd)
	rootCmd.AddCommand(imagesCmd)
}

func runFlavors(cobraCmd *cobra.Command, _ []string) error {
	application, err := buildApp(cobraCmd.Context())
	if err != nil {
		return err
	}

	flavors, err := application.engine.ListFlavors(cobraCmd.Context())
	if err != nil {
		return err
	}

	for _, flavor := range flavors {
		fmt.Fprintf(cobraCmd.OutOrStdout(), "%s\t%s\t%d vcpu\t%d MB ram\t%d GB disk\n",
			flavor.ID, flavor.Name, flavor.VCPUs, flavor.RAM, flavor.Disk)
	}

	return nil
}

func runImages(cobraCmd *cobra.Command, _ []string) error {
	application, err := buildApp(cobraCmd.Context())
	if err != nil {
		return err
	}

	images, err := application.engine.ListImages(cobraCmd.Context())
	if err != nil {
		return err
	}

	for _, image := range images {
		fmt.Fprintf(cobraCmd.OutOrStdout(), "%s\t%s\n", image.ID, image.Name)
	}

	return nil
}
