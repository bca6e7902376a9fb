package cmd

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Builds a wheel via the backend and installs it",
	Long: `There is no install operation in the abstract build system, so this builds
a wheel and recursively invokes the package installer to install it. Since an
installer called us and there may be dependency loops involved, dependency
handling is disabled; that's the parent installer's problem.`,
	// Seen installer command lines:
	// install --record /tmp/...-record/install-record.txt
	//   --single-version-externally-managed --compile --install-headers /tmp/.../include/...
	FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
	RunE: func(cmd *cobra.Command, args []string) error {
		record, err := cmd.Flags().GetString("record")
		if err != nil {
			return err
		}

		if record == "" {
			return eris.New("--record not supplied. If installing by hand, use pip install DIRECTORY")
		}

		proj, err := openProject(cmd.Context())
		if err != nil {
			return err
		}

		if err := proj.prepare(); err != nil {
			return err
		}

		tempDir, err := os.MkdirTemp("", "setupshim")
		if err != nil {
			return eris.Wrap(err, "failed to create a temporary directory")
		}
		defer os.RemoveAll(tempDir)

		wheelFile, err := proj.bs.Wheel(proj.ctx, tempDir)
		if err != nil {
			return err
		}

		if err := proj.inst.InstallWheel(proj.ctx, wheelFile); err != nil {
			return err
		}

		return proj.inst.WriteInstallRecord(proj.ctx, wheelFile, record)
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
	installCmd.Flags().String("record", "", "file to write the list of installed files to")
	installCmd.Flags().Bool("single-version-externally-managed", false, "accepted for compatibility")
	installCmd.Flags().Bool("compile", false, "accepted for compatibility")
	installCmd.Flags().String("install-headers", "", "accepted for compatibility")
}
