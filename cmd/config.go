// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// fileConfig mirrors the optional TOML config file. Every field may be
// overridden by the corresponding command-line flag.
type fileConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Serial   string `toml:"serial"`
	Baud     int    `toml:"baud"`
	Password string `toml:"password"`

	PollInterval   string `toml:"poll_interval"`
	CommandTimeout string `toml:"command_timeout"`
}

func (c *fileConfig) pollInterval() time.Duration   { return parseDuration(c.PollInterval) }
func (c *fileConfig) commandTimeout() time.Duration { return parseDuration(c.CommandTimeout) }

func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// defaultConfigPath returns the conventional config location, or empty
// when the user config directory cannot be determined.
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "dilactl", "config.toml")
}

// loadConfig reads the config file at path, or the default location when
// path is empty. A missing file is not an error; a malformed one is.
func loadConfig(path string) (*fileConfig, error) {
	explicit := path != ""
	if path == "" {
		path = defaultConfigPath()
	}

	cfg := &fileConfig{}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
