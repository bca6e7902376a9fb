package buildenv

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/setupshim/setupshim/pkg/backend"
	"github.com/setupshim/setupshim/pkg/installer"
	"github.com/setupshim/setupshim/pkg/pypa"
)

// testSetup builds a fake interpreter and a fake backend that both append
// their invocations to a shared log so the test can verify ordering.
type testSetup struct {
	root    string
	depsDir string
	logFile string
	inst    *installer.Installer
	bs      *backend.BuildSystem
}

func newTestSetup(t *testing.T, buildRequires string) *testSetup {
	t.Helper()

	root := t.TempDir()
	setup := testSetup{
		root:    root,
		depsDir: filepath.Join(root, ".shim-deps"),
		logFile: filepath.Join(t.TempDir(), "calls.log"),
	}

	python := filepath.Join(t.TempDir(), "python")
	pythonScript := `#!/bin/sh
echo "python $@" >> "` + setup.logFile + `"
if [ "$1" = "-c" ]; then
	echo '{"sys_platform": "linux", "python_version": "3.11"}'
fi
`
	require.NoError(t, os.WriteFile(python, []byte(pythonScript), 0o755))

	backendPath := filepath.Join(t.TempDir(), "backend")
	backendScript := `#!/bin/sh
echo "backend $@ pythonpath=$PYTHONPATH" >> "` + setup.logFile + `"
if [ "$1" = "build_requires" ]; then
	echo '` + buildRequires + `'
fi
`
	require.NoError(t, os.WriteFile(backendPath, []byte(backendScript), 0o755))

	setup.inst = installer.New(python)
	setup.bs = backend.New(root, python, []string{backendPath})
	return &setup
}

func (s *testSetup) log(t *testing.T) []string {
	t.Helper()

	content, err := os.ReadFile(s.logFile)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(content), "\n"), "\n")
}

func TestPrepare(t *testing.T) {
	t.Setenv("PYTHONPATH", "")
	setup := newTestSetup(t, `{"build_requires": ["toml>=0.9", "wincrutch; sys_platform == \"win32\""]}`)
	cfg := &pypa.Config{
		BuildCommand:      []string{"backend"},
		BootstrapRequires: []string{"flit"},
	}

	require.NoError(t, Prepare(context.Background(), cfg, setup.bs, setup.inst, ".shim-deps"))

	lines := setup.log(t)
	require.Len(t, lines, 4)

	// bootstrap requirements are installed before the backend runs
	assert.Equal(t, "python -m pip install --target "+setup.depsDir+" flit", lines[0])
	// the backend query sees the deps dir on PYTHONPATH
	assert.Equal(t, "backend build_requires pythonpath="+setup.depsDir, lines[1])
	// the marker environment is queried from the interpreter
	assert.True(t, strings.HasPrefix(lines[2], "python -c "), "unexpected line %q", lines[2])
	// only the build requirement whose marker applies gets installed
	assert.Equal(t, "python -m pip install --target "+setup.depsDir+" toml>=0.9", lines[3])
}

func TestPrepareWithoutRequirements(t *testing.T) {
	setup := newTestSetup(t, `{"build_requires": []}`)
	cfg := &pypa.Config{BuildCommand: []string{"backend"}}

	require.NoError(t, Prepare(context.Background(), cfg, setup.bs, setup.inst, ".shim-deps"))

	// no installer invocation at all, just the backend query
	lines := setup.log(t)
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "backend build_requires"), "unexpected line %q", lines[0])
}

func TestPrepareRejectsDirectReferences(t *testing.T) {
	setup := newTestSetup(t, `{"build_requires": ["demo @ https://example.com/demo.tar.gz"]}`)
	cfg := &pypa.Config{BuildCommand: []string{"backend"}}

	err := Prepare(context.Background(), cfg, setup.bs, setup.inst, ".shim-deps")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "direct reference")
}

func TestPrepareInvalidBootstrapRequirement(t *testing.T) {
	setup := newTestSetup(t, `{"build_requires": []}`)
	cfg := &pypa.Config{
		BuildCommand:      []string{"backend"},
		BootstrapRequires: []string{"broken =="},
	}

	err := Prepare(context.Background(), cfg, setup.bs, setup.inst, ".shim-deps")
	require.Error(t, err)

	// nothing ran
	_, statErr := os.Stat(setup.logFile)
	assert.True(t, os.IsNotExist(statErr))
}

func TestPrepareFailedInstall(t *testing.T) {
	setup := newTestSetup(t, `{"build_requires": []}`)

	// replace the interpreter with one that always fails
	failing := filepath.Join(t.TempDir(), "python")
	require.NoError(t, os.WriteFile(failing, []byte("#!/bin/sh\nexit 1\n"), 0o755))
	setup.inst = installer.New(failing)

	cfg := &pypa.Config{
		BuildCommand:      []string{"backend"},
		BootstrapRequires: []string{"flit"},
	}

	err := Prepare(context.Background(), cfg, setup.bs, setup.inst, ".shim-deps")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bootstrap requirements")
}

func TestExtendedPythonPath(t *testing.T) {
	t.Setenv("PYTHONPATH", "")
	os.Unsetenv("PYTHONPATH")
	assert.Equal(t, "/deps", extendedPythonPath("/deps"))

	t.Setenv("PYTHONPATH", "/existing")
	assert.Equal(t, "/deps"+string(os.PathListSeparator)+"/existing", extendedPythonPath("/deps"))
}
