// Package installer wraps the package installer (pip) that is used to
// provision bootstrap and build requirements and to install built wheels.
package installer

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/setupshim/setupshim/pkg/reqs"
	"github.com/setupshim/setupshim/pkg/shimlog"
)

// Installer invokes pip through the configured Python interpreter.
type Installer struct {
	python string
}

// New returns an Installer that runs pip via the given interpreter.
func New(python string) *Installer {
	return &Installer{python: python}
}

// Install installs the given requirements into the target directory. An
// empty requirement list is a no-op.
func (inst *Installer) Install(ctx context.Context, requirements []*reqs.Requirement, target string) error {
	if len(requirements) == 0 {
		return nil
	}

	args := []string{inst.python, "-m", "pip", "install", "--target", target}
	for _, req := range requirements {
		args = append(args, req.String())
	}

	if err := inst.run(ctx, args); err != nil {
		names := make([]string, len(requirements))
		for idx, req := range requirements {
			names[idx] = req.Name
		}

		return eris.Wrapf(err, "failed to install %s", strings.Join(names, ", "))
	}

	return nil
}

// InstallWheel installs a built wheel into the active environment. Dependency
// handling is disabled since the installer that called us is responsible for
// dependencies.
func (inst *Installer) InstallWheel(ctx context.Context, wheelFile string) error {
	args := []string{inst.python, "-m", "pip", "-v", "install", "--no-deps", wheelFile}
	if err := inst.run(ctx, args); err != nil {
		return eris.Wrapf(err, "failed to install wheel %s", wheelFile)
	}

	return nil
}

func (inst *Installer) run(ctx context.Context, args []string) error {
	shimlog.Log(ctx).Info().Msgf("Running %s", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}

// one line so the invocation stays readable in logs
const markerEnvScript = `import json, os, platform, sys; ` +
	`print(json.dumps({"os_name": os.name, "sys_platform": sys.platform, ` +
	`"platform_machine": platform.machine(), "platform_system": platform.system(), ` +
	`"platform_python_implementation": platform.python_implementation(), ` +
	`"implementation_name": sys.implementation.name, ` +
	`"python_version": "%d.%d" % sys.version_info[:2], ` +
	`"python_full_version": platform.python_version()}))`

// MarkerEnv queries the interpreter for the values environment markers are
// evaluated against.
func (inst *Installer) MarkerEnv(ctx context.Context) (reqs.Environment, error) {
	output, err := inst.query(ctx, markerEnvScript)
	if err != nil {
		return nil, eris.Wrap(err, "failed to query the marker environment")
	}

	env := make(reqs.Environment)
	if err := json.Unmarshal(output, &env); err != nil {
		return nil, eris.Wrap(err, "failed to parse the marker environment")
	}

	return env, nil
}

const schemeScript = `import json, sysconfig; print(json.dumps(sysconfig.get_paths()))`

// Scheme describes where the interpreter installs packages to.
type Scheme struct {
	Purelib string `json:"purelib"`
	Platlib string `json:"platlib"`
}

// Scheme queries the interpreter's install scheme.
func (inst *Installer) Scheme(ctx context.Context) (*Scheme, error) {
	output, err := inst.query(ctx, schemeScript)
	if err != nil {
		return nil, eris.Wrap(err, "failed to query the install scheme")
	}

	var scheme Scheme
	if err := json.Unmarshal(output, &scheme); err != nil {
		return nil, eris.Wrap(err, "failed to parse the install scheme")
	}

	if scheme.Purelib == "" || scheme.Platlib == "" {
		return nil, eris.New("the install scheme is missing purelib or platlib")
	}

	return &scheme, nil
}

func (inst *Installer) query(ctx context.Context, script string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, inst.python, "-c", script)
	cmd.Stderr = os.Stderr

	output, err := cmd.Output()
	if err != nil {
		return nil, eris.Wrapf(err, "%s -c ... failed", inst.python)
	}

	return output, nil
}
