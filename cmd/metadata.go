package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Prints the build backend's raw metadata",
	RunE: func(cmd *cobra.Command, args []string) error {
		proj, err := openProject(cmd.Context())
		if err != nil {
			return err
		}

		if err := proj.prepare(); err != nil {
			return err
		}

		raw, err := proj.bs.RawMetadata(proj.ctx)
		if err != nil {
			return err
		}

		_, err = os.Stdout.Write(raw)
		return err
	},
}

func init() {
	rootCmd.AddCommand(metadataCmd)
}
