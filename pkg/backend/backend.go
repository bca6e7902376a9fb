// Package backend talks to a project's abstract build system. Every
// operation is a subprocess built from the configured command prefix plus the
// operation name; queries return their stdout, actions inherit the shim's
// stdio.
package backend

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/setupshim/setupshim/pkg/pymeta"
	"github.com/setupshim/setupshim/pkg/reqs"
	"github.com/setupshim/setupshim/pkg/shimlog"
)

// BuildSystem is a handle for the build backend of the project rooted at
// Root.
type BuildSystem struct {
	Root string

	python     string
	prefix     []string
	pythonPath *string
	pathForced bool
}

// New constructs a BuildSystem from the project's build command. {PYTHON}
// placeholders in the command are replaced with the given interpreter.
func New(root string, python string, buildCommand []string) *BuildSystem {
	prefix := make([]string, len(buildCommand))
	for idx, item := range buildCommand {
		prefix[idx] = strings.ReplaceAll(item, "{PYTHON}", python)
	}

	return &BuildSystem{
		Root:   root,
		python: python,
		prefix: prefix,
	}
}

// ForcePythonPath overrides PYTHONPATH for all following backend calls.
// Passing nil removes the variable entirely; without a call to this method
// the variable is inherited unchanged.
func (bs *BuildSystem) ForcePythonPath(path *string) {
	bs.pythonPath = path
	bs.pathForced = true
}

// BuildRequires queries the backend for its build requirements.
func (bs *BuildSystem) BuildRequires(ctx context.Context) ([]*reqs.Requirement, error) {
	output, err := bs.runCommand(ctx, []string{"build_requires"}, true)
	if err != nil {
		return nil, err
	}

	var payload struct {
		BuildRequires []string `json:"build_requires"`
	}
	if err := json.Unmarshal(output, &payload); err != nil {
		return nil, eris.Wrap(err, "failed to parse the backend's build_requires response")
	}

	result := make([]*reqs.Requirement, len(payload.BuildRequires))
	for idx, raw := range payload.BuildRequires {
		req, err := reqs.Parse(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid build requirement %q", raw)
		}

		result[idx] = req
	}

	return result, nil
}

// RawMetadata returns the backend's metadata output unmodified.
func (bs *BuildSystem) RawMetadata(ctx context.Context) ([]byte, error) {
	return bs.runCommand(ctx, []string{"metadata"}, true)
}

// Metadata queries and parses the backend's metadata.
func (bs *BuildSystem) Metadata(ctx context.Context) (*pymeta.Metadata, error) {
	output, err := bs.RawMetadata(ctx)
	if err != nil {
		return nil, err
	}

	return pymeta.Parse(output)
}

// Develop asks the backend to install the project in development mode.
// prefix and root are forwarded when they aren't empty.
func (bs *BuildSystem) Develop(ctx context.Context, prefix, root string) error {
	command := []string{"develop"}
	if prefix != "" {
		command = append(command, "--prefix", prefix)
	}
	if root != "" {
		command = append(command, "--root", root)
	}

	_, err := bs.runCommand(ctx, command, false)
	return err
}

// Wheel asks the backend to build a wheel into outputDir and returns the
// path of the built file.
func (bs *BuildSystem) Wheel(ctx context.Context, outputDir string) (string, error) {
	_, err := bs.runCommand(ctx, []string{"wheel", "-d", outputDir}, false)
	if err != nil {
		return "", err
	}

	names, err := filepath.Glob(filepath.Join(outputDir, "*.whl"))
	if err != nil {
		return "", eris.Wrapf(err, "failed to scan %s", outputDir)
	}

	if len(names) != 1 {
		return "", eris.Errorf("expected exactly one wheel in %s, found %d", outputDir, len(names))
	}

	return names[0], nil
}

func (bs *BuildSystem) runCommand(ctx context.Context, command []string, capture bool) ([]byte, error) {
	args := append(append([]string{}, bs.prefix...), command...)

	shimlog.Log(ctx).Info().Msgf("Running %s", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = bs.Root
	cmd.Env = bs.commandEnv()
	cmd.Stderr = os.Stderr
	if !capture {
		cmd.Stdout = os.Stdout
	}

	if capture {
		output, err := cmd.Output()
		if err != nil {
			return nil, eris.Wrapf(err, "%s failed, got %q", strings.Join(args, " "), output)
		}

		return output, nil
	}

	if err := cmd.Run(); err != nil {
		return nil, eris.Wrapf(err, "%s failed", strings.Join(args, " "))
	}

	return nil, nil
}

func (bs *BuildSystem) commandEnv() []string {
	env := make([]string, 0, len(os.Environ())+2)
	for _, item := range os.Environ() {
		if bs.pathForced && strings.HasPrefix(item, "PYTHONPATH=") {
			continue
		}
		if strings.HasPrefix(item, "PYTHON=") {
			continue
		}

		env = append(env, item)
	}

	env = append(env, "PYTHON="+bs.python)
	if bs.pathForced && bs.pythonPath != nil {
		env = append(env, "PYTHONPATH="+*bs.pythonPath)
	}

	return env
}
