// Package config implements §4.14: an optional YAML config file of extra
// plugin scan paths and default test settings, merged with the
// CLAP_VALIDATOR_PATH environment variable from §6. Grounded on the
// pack's gopkg.in/yaml.v3 usage and the teacher's preference for small,
// explicit structs over a generic config-loading framework.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// pathListSeparator matches §6's "colon/semicolon-separated" wording:
// semicolon on Windows, colon everywhere else, mirroring os.PathListSeparator.
const pathListSeparator = string(os.PathListSeparator)

// Defaults holds the subset of `validate` flags a config file may supply so
// the CLI doesn't have to be re-specified on every invocation.
type Defaults struct {
	TestFilter   string `yaml:"test_filter,omitempty"`
	InvertFilter bool   `yaml:"invert_filter,omitempty"`
	InProcess    bool   `yaml:"in_process,omitempty"`
	NoParallel   bool   `yaml:"no_parallel,omitempty"`
	HideOutput   bool   `yaml:"hide_output,omitempty"`
}

// File is the optional YAML config file's shape.
type File struct {
	ScanPaths []string `yaml:"scan_paths,omitempty"`
	Defaults  Defaults `yaml:"defaults,omitempty"`
}

// Config is the merged result of a YAML file (if present) and the
// CLAP_VALIDATOR_PATH environment variable.
type Config struct {
	ScanPaths []string
	Defaults  Defaults
}

// Load reads configPath if non-empty and it exists, and always merges in
// CLAP_VALIDATOR_PATH, returning their union. A missing configPath is not
// an error -- per §4.14 the file is entirely optional.
func Load(configPath string) (Config, error) {
	var file File
	if configPath != "" {
		raw, err := os.ReadFile(configPath)
		switch {
		case os.IsNotExist(err):
			// fine, nothing to load
		case err != nil:
			return Config{}, err
		default:
			if err := yaml.Unmarshal(raw, &file); err != nil {
				return Config{}, err
			}
		}
	}

	cfg := Config{
		ScanPaths: append([]string(nil), file.ScanPaths...),
		Defaults:  file.Defaults,
	}
	cfg.ScanPaths = append(cfg.ScanPaths, envScanPaths()...)
	return cfg, nil
}

// envScanPaths splits CLAP_VALIDATOR_PATH on the platform's path-list
// separator, dropping empty segments.
func envScanPaths() []string {
	raw := os.Getenv("CLAP_VALIDATOR_PATH")
	if raw == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, pathListSeparator) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, filepath.Clean(p))
		}
	}
	return out
}

// DefaultConfigPath returns the conventional per-user config file
// location: $XDG_CONFIG_HOME/clap-validator/config.yaml on Linux, falling
// back to os.UserConfigDir() elsewhere. Callers treat a nonexistent file
// at this path as "no config", not an error.
func DefaultConfigPath() string {
	if runtime.GOOS == "linux" {
		if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
			return filepath.Join(dir, "clap-validator", "config.yaml")
		}
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "clap-validator", "config.yaml")
}
