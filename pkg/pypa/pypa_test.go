package pypa

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("JSON", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "pypa.json", `{
			"build_command": ["{PYTHON}", "-m", "flit"],
			"bootstrap_requires": ["flit", "requests>=2.8.1"]
		}`)

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, []string{"{PYTHON}", "-m", "flit"}, cfg.BuildCommand)
		assert.Equal(t, []string{"flit", "requests>=2.8.1"}, cfg.BootstrapRequires)
	})

	t.Run("YAML", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "pypa.yaml", `
build_command: ["{PYTHON}", "-m", "flit"]
bootstrap_requires:
  - flit
`)

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"flit"}, cfg.BootstrapRequires)
	})

	t.Run("NoBootstrapRequires", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "pypa.json", `{"build_command": ["backend"]}`)

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Empty(t, cfg.BootstrapRequires)

		bootstrap, err := cfg.Bootstrap()
		require.NoError(t, err)
		assert.Empty(t, bootstrap)
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "pypa.json", `{"build_command": [`)

		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("MissingBuildCommand", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "pypa.json", `{"bootstrap_requires": ["flit"]}`)

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "build_command")
	})

	t.Run("InvalidBootstrapRequirement", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "pypa.json", `{
			"build_command": ["backend"],
			"bootstrap_requires": ["not a requirement =="]
		}`)

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bootstrap requirement")
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "pypa.json"))
		assert.Error(t, err)
	})
}

func TestFind(t *testing.T) {
	t.Run("WalksUp", func(t *testing.T) {
		root := t.TempDir()
		expected := writeConfig(t, root, "pypa.json", `{"build_command": ["backend"]}`)

		nested := filepath.Join(root, "src", "demo")
		require.NoError(t, os.MkdirAll(nested, 0o755))

		path, err := Find(nested)
		require.NoError(t, err)
		assert.Equal(t, expected, path)
	})

	t.Run("PrefersJSON", func(t *testing.T) {
		root := t.TempDir()
		expected := writeConfig(t, root, "pypa.json", `{}`)
		writeConfig(t, root, "pypa.yaml", ``)

		path, err := Find(root)
		require.NoError(t, err)
		assert.Equal(t, expected, path)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := Find(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "pypa.json")
	})
}
