// Package cmd implements the legacy build entry point commands. The command
// surface mirrors what old installers pass to a setup script; setupshim adds
// nothing of its own beyond the bootstrap helper.
package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/setupshim/setupshim/pkg/backend"
	"github.com/setupshim/setupshim/pkg/buildenv"
	"github.com/setupshim/setupshim/pkg/config"
	"github.com/setupshim/setupshim/pkg/installer"
	"github.com/setupshim/setupshim/pkg/pypa"
	"github.com/setupshim/setupshim/pkg/shimlog"
)

var rootCmd = &cobra.Command{
	Use:   "setupshim",
	Short: "Legacy build entry point for projects using an abstract build backend",
	Long: `setupshim accepts the commands old package installers pass to a project's
setup script (egg_info, develop, install, ...), installs the bootstrap and
build requirements declared in pypa.json and translates each command into the
project's actual build backend protocol.`,
	SilenceUsage: true,
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

// project bundles everything a command needs to talk to the build backend.
type project struct {
	ctx  context.Context
	cfg  *config.Config
	pypa *pypa.Config
	bs   *backend.BuildSystem
	inst *installer.Installer
}

// openProject loads the shim settings, sets up logging and locates and
// validates the project config. No subprocess runs before this succeeded.
func openProject(baseCtx context.Context) (*project, error) {
	cfg, loader := config.Loader()
	if err := loader.Load(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var logger zerolog.Logger
	if cfg.Log.JSON {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(NewConsoleWriter())
	}
	logger = logger.Level(cfg.LogLevel())

	ctx := shimlog.WithLogger(baseCtx, &logger)

	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	cfgPath, err := pypa.Find(wd)
	if err != nil {
		return nil, err
	}

	projectCfg, err := pypa.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	root := filepath.Dir(cfgPath)
	return &project{
		ctx:  ctx,
		cfg:  cfg,
		pypa: projectCfg,
		bs:   backend.New(root, cfg.Python, projectCfg.BuildCommand),
		inst: installer.New(cfg.Python),
	}, nil
}

// prepare provisions the bootstrap and build requirements.
func (p *project) prepare() error {
	return buildenv.Prepare(p.ctx, p.pypa, p.bs, p.inst, p.cfg.DepsDir)
}
