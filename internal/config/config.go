// Package config loads the tokenizer server's YAML configuration file and
// supplies defaults for anything the file omits.
package config

// file: internal/config/config.go

import (
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// ServerSettings controls the listener.
type ServerSettings struct {
	// Protocol is "tcp" or "unix".
	Protocol string `yaml:"protocol"`
	// Address is a host:port for tcp, or a socket path for unix.
	Address string `yaml:"address"`
	// Threads sets GOMAXPROCS. Default is 1; zero is a fatal config error.
	Threads int `yaml:"threads"`
}

// LogSettings controls the process-wide logger.
type LogSettings struct {
	// Level is "debug" or "info"; any other value runs at info.
	Level string `yaml:"level"`
	// Format is "json" or "text".
	Format string `yaml:"format"`
}

// Settings is the root configuration document.
type Settings struct {
	Server ServerSettings `yaml:"server"`
	Log    LogSettings    `yaml:"log"`
}

// Default returns a Settings populated with the same defaults the CLI
// flags fall back to when unset.
func Default() *Settings {
	return &Settings{
		Server: ServerSettings{
			Protocol: "tcp",
			Address:  ":7200",
			Threads:  1,
		},
		Log: LogSettings{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads and parses a YAML configuration file at path, applying its
// values on top of Default(). An empty path returns Default() unchanged.
func Load(path string) (*Settings, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: failed to read %q", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "config: failed to parse %q", path)
	}
	return cfg, nil
}
