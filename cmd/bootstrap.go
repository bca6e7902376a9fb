package cmd

import (
	"github.com/spf13/cobra"

	"github.com/setupshim/setupshim/pkg/shimlog"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Installs the bootstrap and build requirements without building anything",
	Long: `Prepares the build environment exactly like the other commands do and then
stops. Useful to verify that every declared requirement can actually be
installed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		proj, err := openProject(cmd.Context())
		if err != nil {
			return err
		}

		if err := proj.prepare(); err != nil {
			return err
		}

		shimlog.Log(proj.ctx).Info().Msg("Build environment is ready")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(bootstrapCmd)
}
