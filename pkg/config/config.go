package config

import (
	"github.com/cristalhq/aconfig"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Config describes the shim's own settings. They're only read from the
// environment because the command line belongs to the legacy installer
// protocol and must not be polluted with our own flags.
type Config struct {
	Python  string `default:"python3" usage:"Python interpreter used for the backend and the installer"`
	DepsDir string `default:".shim-deps" env:"DEPSDIR" usage:"Directory (relative to the project root) that bootstrap and build requirements are installed into"`
	Log     struct {
		Level string `default:"info"`
		JSON  bool   `default:"false" usage:"Output JSONND instead of pretty console messages"`
	}
}

var logLevels = map[string]zerolog.Level{
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
	"fatal":   zerolog.FatalLevel,
}

// Loader initializes an empty config object and returns a new Loader for this object
func Loader() (*Config, *aconfig.Loader) {
	cfg := Config{}
	return &cfg, aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SETUPSHIM",
		SkipFlags: true,
	})
}

// Validate verifies that all config fields have valid values
func (cfg *Config) Validate() error {
	if cfg.Python == "" {
		return eris.New("python must not be empty")
	}

	if cfg.DepsDir == "" {
		return eris.New("depsdir must not be empty")
	}

	_, ok := logLevels[cfg.Log.Level]
	if !ok {
		return eris.Errorf(`Invalid value for log.level: %s`, cfg.Log.Level)
	}

	return nil
}

// LogLevel converts the .Log.Level field to a zerolog.Level
func (cfg *Config) LogLevel() zerolog.Level {
	return logLevels[cfg.Log.Level]
}
