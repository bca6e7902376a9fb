package cmd

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/setupshim/setupshim/pkg/shimlog"
)

var wheelCmd = &cobra.Command{
	Use:   "wheel",
	Short: "Builds a wheel via the build backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		dest, err := cmd.Flags().GetString("dest")
		if err != nil {
			return err
		}

		proj, err := openProject(cmd.Context())
		if err != nil {
			return err
		}

		if err := proj.prepare(); err != nil {
			return err
		}

		if err := os.MkdirAll(dest, os.FileMode(0o755)); err != nil {
			return eris.Wrapf(err, "failed to create %s", dest)
		}

		wheelFile, err := proj.bs.Wheel(proj.ctx, dest)
		if err != nil {
			return err
		}

		shimlog.Log(proj.ctx).Info().Msgf("Built %s", wheelFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(wheelCmd)
	wheelCmd.Flags().StringP("dest", "d", "dist", "directory to place the wheel in")
}
