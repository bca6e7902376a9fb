// Package buildenv prepares the environment the build backend runs in:
// bootstrap requirements first, then the build requirements the backend
// reports.
package buildenv

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/setupshim/setupshim/pkg/backend"
	"github.com/setupshim/setupshim/pkg/installer"
	"github.com/setupshim/setupshim/pkg/pypa"
	"github.com/setupshim/setupshim/pkg/reqs"
	"github.com/setupshim/setupshim/pkg/shimlog"
)

// Prepare installs the project's bootstrap requirements, asks the backend
// for its build requirements and installs those as well. Both stages go into
// depsDir (resolved relative to the project root) which is prepended to the
// backend's PYTHONPATH so later operations can import them.
func Prepare(ctx context.Context, cfg *pypa.Config, bs *backend.BuildSystem, inst *installer.Installer, depsDir string) error {
	if !filepath.IsAbs(depsDir) {
		depsDir = filepath.Join(bs.Root, depsDir)
	}

	bootstrap, err := cfg.Bootstrap()
	if err != nil {
		return err
	}

	if len(bootstrap) > 0 {
		shimlog.Log(ctx).Info().Msgf("Installing %d bootstrap requirements", len(bootstrap))
		if err := inst.Install(ctx, bootstrap, depsDir); err != nil {
			return eris.Wrap(err, "failed to install the bootstrap requirements")
		}
	}

	path := extendedPythonPath(depsDir)
	bs.ForcePythonPath(&path)

	buildDeps, err := bs.BuildRequires(ctx)
	if err != nil {
		return eris.Wrap(err, "failed to query the build requirements")
	}

	active, err := filterRequirements(ctx, inst, buildDeps)
	if err != nil {
		return err
	}

	if len(active) > 0 {
		shimlog.Log(ctx).Info().Msgf("Installing %d build requirements", len(active))
		if err := inst.Install(ctx, active, depsDir); err != nil {
			return eris.Wrap(err, "failed to install the build requirements")
		}
	}

	return nil
}

// filterRequirements drops requirements whose marker doesn't apply to the
// current interpreter and rejects direct references.
func filterRequirements(ctx context.Context, inst *installer.Installer, requirements []*reqs.Requirement) ([]*reqs.Requirement, error) {
	if len(requirements) == 0 {
		return nil, nil
	}

	env, err := inst.MarkerEnv(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*reqs.Requirement, 0, len(requirements))
	for _, req := range requirements {
		if req.URL != "" {
			return nil, eris.Errorf("direct reference dependencies are not supported: %s @ %s", req.Name, req.URL)
		}

		active, err := req.Evaluate(env)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to evaluate the marker for %s", req.Name)
		}

		if !active {
			shimlog.Log(ctx).Debug().Msgf("Skipping %s (marker %s doesn't apply)", req.Name, req.Marker)
			continue
		}

		result = append(result, req)
	}

	return result, nil
}

// extendedPythonPath prepends depsDir to the inherited PYTHONPATH.
func extendedPythonPath(depsDir string) string {
	existing := os.Getenv("PYTHONPATH")
	if existing == "" {
		return depsDir
	}

	return strings.Join([]string{depsDir, existing}, string(os.PathListSeparator))
}
