package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up next to the binary's working
// directory and in ConfigDir.
const FileName = "navscene.yaml"

// EnvConfig names an environment variable holding a config file path. It is
// consulted after --config and before the standard locations.
const EnvConfig = "NAVSCENE_CONFIG"

// Load builds the effective config: defaults, then the first config file
// found, then command-line flags.
func Load() (*Config, error) {
	cfg := Default()

	if path := configSource(); path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, errors.Wrapf(err, "loading config from %s", path)
		}
	}

	applyFlags(cfg)
	return cfg, nil
}

// LoadFile returns defaults merged with the YAML file at path. Flags are not applied.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := loadFromFile(cfg, path); err != nil {
		return nil, errors.Wrapf(err, "loading config from %s", path)
	}
	return cfg, nil
}

// configSource picks the file Load reads. An explicit --config or
// NAVSCENE_CONFIG path is returned even when missing, so the error surfaces.
func configSource() string {
	if p := ConfigPath(); p != "" {
		return p
	}
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	return findConfigFile()
}

// findConfigFile returns the first existing file among ./navscene.yaml and
// ConfigDir()/navscene.yaml, or "".
func findConfigFile() string {
	for _, path := range []string{FileName, filepath.Join(ConfigDir(), FileName)} {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// ConfigDir returns the per-user navscene config directory.
func ConfigDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "navscene")
}

// loadFromFile merges the YAML at path into cfg. Unknown keys are rejected
// and an empty file leaves cfg untouched.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return errors.Wrap(err, "decoding yaml")
	}
	return nil
}
