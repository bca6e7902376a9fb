package cmd

import (
	"github.com/spf13/cobra"
)

var developCmd = &cobra.Command{
	Use:   "develop",
	Short: "Installs the project in development mode via the build backend",
	// Seen installer command lines: develop --no-deps
	FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix, err := cmd.Flags().GetString("prefix")
		if err != nil {
			return err
		}

		root, err := cmd.Flags().GetString("root")
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

		return proj.bs.Develop(proj.ctx, prefix, root)
	},
}

func init() {
	rootCmd.AddCommand(developCmd)
	developCmd.Flags().String("prefix", "", "installation prefix, forwarded to the backend")
	developCmd.Flags().String("root", "", "install everything relative to this directory, forwarded to the backend")
	// dependency handling is the calling installer's job, accept and ignore
	developCmd.Flags().Bool("no-deps", false, "ignored; the calling installer handles dependencies")
}
