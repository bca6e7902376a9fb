package cmd

import (
	"github.com/spf13/cobra"

	"github.com/setupshim/setupshim/pkg/egginfo"
	"github.com/setupshim/setupshim/pkg/shimlog"
)

var eggInfoCmd = &cobra.Command{
	Use:     "egg_info",
	Aliases: []string{"egg-info"},
	Short:   "Writes a setuptools-compatible .egg-info directory",
	Long: `Queries the build backend for the project's metadata and writes the
.egg-info directory legacy installers read to determine the project's name,
version and dependencies.`,
	FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
	RunE: func(cmd *cobra.Command, args []string) error {
		eggBase, err := cmd.Flags().GetString("egg-base")
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

		meta, err := proj.bs.Metadata(proj.ctx)
		if err != nil {
			return err
		}

		markerEnv, err := proj.inst.MarkerEnv(proj.ctx)
		if err != nil {
			return err
		}

		eggDir, err := egginfo.Write(eggBase, meta, markerEnv)
		if err != nil {
			return err
		}

		shimlog.Log(proj.ctx).Info().Msgf("Wrote %s", eggDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eggInfoCmd)
	eggInfoCmd.Flags().String("egg-base", ".", "directory to write the .egg-info directory to")
}
