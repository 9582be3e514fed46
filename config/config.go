/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package config loads hotmod settings from defaults, a hotmod config file,
// HOTMOD_ environment variables and command-line flags, in increasing order
// of precedence.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"bennypowers.dev/hotmod/fs"
)

// EnvPrefix prefixes environment overrides, e.g. HOTMOD_SERVER_PORT.
const EnvPrefix = "HOTMOD"

// FileNames are the config file names searched for, in order.
var FileNames = []string{"hotmod.yaml", "hotmod.yml", "hotmod.json", "hotmod.toml"}

// Platforms lists the valid values of the platform key.
var Platforms = []string{"browser", "node"}

// Config is the resolved configuration.
type Config struct {
	// Root is the absolute project directory.
	Root string `mapstructure:"root"`
	// Entries are entry points relative to Root. HTML entries contribute
	// their module scripts. Empty means index.html.
	Entries   []string        `mapstructure:"entries"`
	Platform  string          `mapstructure:"platform"`
	Server    ServerConfig    `mapstructure:"server"`
	Prebundle PrebundleConfig `mapstructure:"prebundle"`
	Watch     WatchConfig     `mapstructure:"watch"`
	Log       LogConfig       `mapstructure:"log"`
	Resolve   ResolveConfig   `mapstructure:"resolve"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	HMR  bool   `mapstructure:"hmr"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type PrebundleConfig struct {
	// Force recomputes the prebundle plan even when a saved one is fresh.
	Force bool `mapstructure:"force"`
	// IncludeWorkspacePackages prebundles linked workspace packages.
	IncludeWorkspacePackages bool `mapstructure:"include_workspace_packages"`
}

type WatchConfig struct {
	// Ignore holds doublestar globs, matched against root-relative paths.
	Ignore   []string      `mapstructure:"ignore"`
	Debounce time.Duration `mapstructure:"debounce"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type ResolveConfig struct {
	Extensions []string `mapstructure:"extensions"`
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("root", "")
	v.SetDefault("entries", []string{})
	v.SetDefault("platform", "browser")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.hmr", true)
	v.SetDefault("prebundle.force", false)
	v.SetDefault("prebundle.include_workspace_packages", false)
	v.SetDefault("watch.ignore", []string{"**/node_modules/**", "**/.git/**"})
	v.SetDefault("watch.debounce", 100*time.Millisecond)
	v.SetDefault("log.level", "info")
	v.SetDefault("resolve.extensions", []string{".ts", ".tsx", ".mjs", ".js", ".jsx", ".cjs"})
}

// Find looks for a config file in dir and then in each parent directory.
func Find(fsys fs.FileSystem, dir string) (string, bool) {
	for {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if fsys.Exists(candidate) {
				return candidate, true
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// Load resolves the configuration held by v. When v has no config file
// set, one is searched for from the root (or the working directory)
// upwards. A relative root in a config file is relative to that file.
func Load(fsys fs.FileSystem, v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	// A root from a flag or the environment is relative to the working
	// directory. Set pins it above the config file.
	start := wd
	if root := v.GetString("root"); root != "" {
		start = absFrom(wd, root)
		v.Set("root", start)
	}
	if v.ConfigFileUsed() == "" {
		if file, ok := Find(fsys, start); ok {
			v.SetConfigFile(file)
		}
	}

	var cfg Config
	base := wd
	if file := v.ConfigFileUsed(); file != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", file, err)
		}
		cfg.File = file
		base = filepath.Dir(file)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.Root == "" {
		cfg.Root = base
	} else {
		cfg.Root = absFrom(base, cfg.Root)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that the rest of hotmod cannot recover from.
func (c *Config) Validate() error {
	if !slices.Contains(Platforms, c.Platform) {
		return fmt.Errorf("invalid platform %q: must be one of %s", c.Platform, strings.Join(Platforms, ", "))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("invalid watch debounce %s", c.Watch.Debounce)
	}
	for _, ext := range c.Resolve.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("invalid resolve extension %q: must start with a dot", ext)
		}
	}
	return nil
}

func absFrom(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}
