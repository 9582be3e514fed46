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

// Package deps provides the deps command, which prints the import edges
// reachable from a project's entry points.
package deps

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"bennypowers.dev/hotmod/bundler"
	"bennypowers.dev/hotmod/internal/cli"
	"bennypowers.dev/hotmod/internal/output"
	"bennypowers.dev/hotmod/modpath"
	"bennypowers.dev/hotmod/prebundle"
	"bennypowers.dev/hotmod/scan"
	"bennypowers.dev/hotmod/traverse"
)

// Cmd is the deps command.
var Cmd = &cobra.Command{
	Use:   "deps [entry...]",
	Short: "Print the import edges reachable from entry points",
	Long: `Compile the entry points with esbuild and print every import edge in the
resulting module graph as {"importer", "resolvedImportPath"} pairs.

Traversal stops at installed packages, and at workspace packages when
prebundle.include_workspace_packages is set. With no entries, the configured
entries (or the module scripts of index.html) are used. HTML entries
contribute the module scripts they load.`,
	Example: `  # Edges of the configured entries
  hotmod deps

  # Edges of specific files, one JSON object per line
  hotmod deps src/main.ts src/worker.ts --format ndjson

  # All pages of a site
  hotmod deps --glob "pages/**/*.html"`,
	RunE: run,
}

func init() {
	Cmd.Flags().StringP("format", "f", "json", "Output format ("+strings.Join(output.Formats, ", ")+")")
	Cmd.Flags().String("glob", "", "Glob pattern selecting entry files")
	Cmd.Flags().Bool("all", false, "Traverse into packages instead of stopping at them")
}

func run(cmd *cobra.Command, args []string) error {
	env, err := cli.Load()
	if err != nil {
		return err
	}
	cfg := env.Config

	configured, err := entryArgs(cmd, args)
	if err != nil {
		return err
	}
	if len(configured) == 0 {
		configured = cfg.Entries
	}
	entries, err := scan.Entries(env.FS, cfg.Root, configured)
	if err != nil {
		return err
	}

	opts := traverse.Options{
		Entries:    entries,
		Cwd:        cfg.Root,
		Extensions: cfg.Resolve.Extensions,
	}
	if all, _ := cmd.Flags().GetBool("all"); !all {
		planner, err := prebundle.NewPlanner(env.FS, cfg.Root, prebundle.Options{
			IncludeWorkspacePackages: cfg.Prebundle.IncludeWorkspacePackages,
			Logger:                   env.Logger,
		})
		if err != nil {
			return err
		}
		opts.Stop = planner.Stop
	}

	compiler := bundler.New(env.FS, env.Logger).WithPlatform(cfg.Platform)
	edges, err := traverse.Traverse(cmd.Context(), compiler, opts)
	if err != nil {
		return err
	}
	env.Logger.Debug("Found %d edges from %d entries", len(edges), len(entries))

	format, _ := cmd.Flags().GetString("format")
	return output.Write(env.FS, edges, format)
}

// entryArgs collects absolute entry paths from arguments and --glob,
// dropping duplicates.
func entryArgs(cmd *cobra.Command, args []string) ([]string, error) {
	files := make([]string, 0, len(args))
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid entry %q: %w", arg, err)
		}
		files = append(files, abs)
	}

	if pattern, _ := cmd.Flags().GetString("glob"); pattern != "" {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern: %w", err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", pattern)
		}
		for _, match := range matches {
			abs, err := filepath.Abs(match)
			if err != nil {
				return nil, fmt.Errorf("invalid entry %q: %w", match, err)
			}
			files = append(files, abs)
		}
	}
	return modpath.Unique(files, func(s string) string { return s }), nil
}
