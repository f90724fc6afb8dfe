// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable that selects a config file when
// --config is absent.
const EnvVar = "XIWRAP_CONFIG"

// Config is the xiwrap configuration.
type Config struct {
	// Bwrap is the bubblewrap binary. Empty searches the standard
	// locations and PATH.
	Bwrap string `yaml:"bwrap"`

	// DBusProxy is the xdg-dbus-proxy binary. Empty searches PATH.
	DBusProxy string `yaml:"dbus_proxy"`

	// IncludePaths are module directories searched after any given
	// with --include-path.
	IncludePaths []string `yaml:"include_paths"`

	// SystemIncludeDir replaces /etc/xiwrap/includes. Set to "-" to
	// disable the system directory.
	SystemIncludeDir string `yaml:"system_include_dir"`

	// ConfineProxy runs xdg-dbus-proxy inside its own minimal sandbox.
	ConfineProxy bool `yaml:"confine_proxy"`

	// ProxyStartupTimeout bounds the wait for each bus proxy to
	// become ready, as a Go duration string.
	ProxyStartupTimeout string `yaml:"proxy_startup_timeout"`
}

// Default returns the configuration used when no file is selected.
func Default() *Config {
	return &Config{
		SystemIncludeDir:    "/etc/xiwrap/includes",
		ConfineProxy:        true,
		ProxyStartupTimeout: "5s",
	}
}

// Select loads the file named by flagPath, or by the XIWRAP_CONFIG value
// from lookupEnv when flagPath is empty. With neither it returns Default.
// The returned string names the file used, or is empty.
func Select(flagPath string, lookupEnv func(string) (string, bool)) (*Config, string, error) {
	path := flagPath
	if path == "" && lookupEnv != nil {
		path, _ = lookupEnv(EnvVar)
	}
	if path == "" {
		return Default(), "", nil
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// LoadFile loads path over Default, expands variables in path fields, and
// validates the result.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	// An empty file decodes to io.EOF and leaves the defaults.
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.expandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	timeout, err := time.ParseDuration(c.ProxyStartupTimeout)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("proxy_startup_timeout: %w", err))
	case timeout <= 0:
		errs = append(errs, fmt.Errorf("proxy_startup_timeout must be positive, got %s", c.ProxyStartupTimeout))
	}

	for _, directory := range c.IncludePaths {
		if directory == "" {
			errs = append(errs, errors.New("include_paths contains an empty entry"))
		}
	}

	return errors.Join(errs...)
}

// StartupTimeout returns ProxyStartupTimeout parsed. Call Validate first;
// an unparsable value yields the default.
func (c *Config) StartupTimeout() time.Duration {
	timeout, err := time.ParseDuration(c.ProxyStartupTimeout)
	if err != nil || timeout <= 0 {
		return 5 * time.Second
	}
	return timeout
}

// SystemIncludes returns the system module directory, or "" if disabled.
func (c *Config) SystemIncludes() string {
	if c.SystemIncludeDir == "-" {
		return ""
	}
	return c.SystemIncludeDir
}

func (c *Config) expandVariables() {
	c.Bwrap = expandVars(c.Bwrap)
	c.DBusProxy = expandVars(c.DBusProxy)
	c.SystemIncludeDir = expandVars(c.SystemIncludeDir)
	for i, directory := range c.IncludePaths {
		c.IncludePaths[i] = expandVars(directory)
	}
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}
