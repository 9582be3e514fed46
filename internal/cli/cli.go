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

// Package cli holds the setup shared by hotmod's commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"bennypowers.dev/hotmod/config"
	"bennypowers.dev/hotmod/fs"
	"bennypowers.dev/hotmod/internal/logging"
)

// Env is what a command needs to run against a project.
type Env struct {
	FS     *fs.OSFileSystem
	Config *config.Config
	Logger *logging.CharmLogger
}

// Load reads the configuration bound to the global viper instance and
// creates a logger writing to stderr at the configured level.
func Load() (*Env, error) {
	osfs := fs.NewOSFileSystem()
	v := viper.GetViper()
	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
	}

	cfg, err := config.Load(osfs, v)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(os.Stderr, cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	if cfg.File != "" {
		logger.Debug("Using config %s", cfg.File)
	}
	if _, err := osfs.Stat(cfg.Root); err != nil {
		return nil, fmt.Errorf("invalid root: %w", err)
	}
	return &Env{FS: osfs, Config: cfg, Logger: logger}, nil
}
