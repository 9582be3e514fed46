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

// Package logging provides the leveled logger shared by hotmod packages.
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Logger is an interface for logging messages from library packages.
// Packages accept a nil Logger and stay quiet in that case.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warning(format string, args ...any)
}

// CharmLogger implements Logger on top of charmbracelet/log.
type CharmLogger struct {
	l *log.Logger
}

// New creates a logger writing to w at the named level
// (debug, info, warn, error).
func New(w io.Writer, level string) (*CharmLogger, error) {
	lvl := log.InfoLevel
	if level != "" {
		parsed, err := log.ParseLevel(strings.ToLower(level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}
	return &CharmLogger{
		l: log.NewWithOptions(w, log.Options{
			Level:           lvl,
			Prefix:          "hotmod",
			ReportTimestamp: true,
			TimeFormat:      time.TimeOnly,
		}),
	}, nil
}

// With returns a logger that adds the given key/value pairs to every entry.
func (c *CharmLogger) With(keyvals ...any) *CharmLogger {
	return &CharmLogger{l: c.l.With(keyvals...)}
}

func (c *CharmLogger) Debug(format string, args ...any) {
	c.l.Debugf(format, args...)
}

func (c *CharmLogger) Info(format string, args ...any) {
	c.l.Infof(format, args...)
}

func (c *CharmLogger) Warning(format string, args ...any) {
	c.l.Warnf(format, args...)
}
