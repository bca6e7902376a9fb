// Package pypa reads the declarative build configuration (pypa.json or
// pypa.yaml) that describes how to talk to a project's build backend.
package pypa

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/setupshim/setupshim/pkg/reqs"
)

// ConfigNames lists the recognized config file names in lookup order.
var ConfigNames = []string{"pypa.json", "pypa.yaml"}

// Config is the parsed project build configuration.
type Config struct {
	// BuildCommand is the argv prefix used to invoke the build backend.
	// {PYTHON} placeholders are replaced with the configured interpreter.
	BuildCommand []string `json:"build_command" yaml:"build_command"`
	// BootstrapRequires lists the requirements that have to be installed
	// before the backend itself can run.
	BootstrapRequires []string `json:"bootstrap_requires" yaml:"bootstrap_requires"`
}

// Find walks up from the given directory until it finds a config file and
// returns its path.
func Find(dir string) (string, error) {
	path, err := filepath.Abs(dir)
	if err != nil {
		return "", eris.Wrapf(err, "failed to resolve %s", dir)
	}

	for {
		for _, name := range ConfigNames {
			cfgPath := filepath.Join(path, name)
			_, err := os.Stat(cfgPath)
			if err == nil {
				return cfgPath, nil
			}
			if !eris.Is(err, os.ErrNotExist) {
				return "", eris.Wrapf(err, "failed to check %s", cfgPath)
			}
		}

		parent := filepath.Dir(path)
		if parent == path {
			return "", eris.Errorf("no %s file found", strings.Join(ConfigNames, " or "))
		}

		path = parent
	}
}

// Load reads and validates the config file at the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "could not open file %s", path)
	}

	var cfg Config
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "failed to parse %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, eris.Wrapf(err, "invalid config in %s", path)
	}

	return &cfg, nil
}

// Validate checks that the config is complete enough to invoke the backend
// and that every bootstrap requirement parses. This runs before any
// subprocess so a broken config can't leave partial side effects behind.
func (cfg *Config) Validate() error {
	if len(cfg.BuildCommand) == 0 {
		return eris.New("build_command must not be empty")
	}

	for _, item := range cfg.BuildCommand {
		if strings.TrimSpace(item) == "" {
			return eris.New("build_command must not contain empty elements")
		}
	}

	_, err := cfg.Bootstrap()
	return err
}

// Bootstrap returns the parsed bootstrap requirements.
func (cfg *Config) Bootstrap() ([]*reqs.Requirement, error) {
	result := make([]*reqs.Requirement, len(cfg.BootstrapRequires))
	for idx, raw := range cfg.BootstrapRequires {
		req, err := reqs.Parse(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid bootstrap requirement %q", raw)
		}

		result[idx] = req
	}

	return result, nil
}
