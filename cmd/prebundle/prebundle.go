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

// Package prebundle provides the prebundle command, which plans which
// packages the dev server should prebundle.
package prebundle

import (
	"strings"

	"github.com/spf13/cobra"

	"bennypowers.dev/hotmod/bundler"
	"bennypowers.dev/hotmod/internal/cli"
	"bennypowers.dev/hotmod/internal/output"
	"bennypowers.dev/hotmod/prebundle"
	"bennypowers.dev/hotmod/scan"
	"bennypowers.dev/hotmod/traverse"
)

// Cmd is the prebundle command.
var Cmd = &cobra.Command{
	Use:   "prebundle",
	Short: "Plan and print the packages to prebundle",
	Long: `Traverse the project's entry points and print every package its source
imports, with the package's version, entry module, kind and importers.

The plan is saved to ` + prebundle.StateFile + ` together with a hash of
package.json and the lockfiles. A saved plan is reused while that hash is
unchanged unless --force (or prebundle.force) is set.`,
	Example: `  # Print the plan, reusing a fresh saved one
  hotmod prebundle

  # Recompute even if nothing changed
  hotmod prebundle --force

  # Treat linked workspace packages as prebundle candidates
  HOTMOD_PREBUNDLE_INCLUDE_WORKSPACE_PACKAGES=true hotmod prebundle`,
	RunE: run,
}

func init() {
	Cmd.Flags().StringP("format", "f", "json", "Output format ("+strings.Join(output.Formats, ", ")+")")
	Cmd.Flags().Bool("force", false, "Recompute the plan even when the saved one is fresh")
}

func run(cmd *cobra.Command, args []string) error {
	env, err := cli.Load()
	if err != nil {
		return err
	}
	cfg := env.Config
	format, _ := cmd.Flags().GetString("format")

	force, _ := cmd.Flags().GetBool("force")
	if !force && !cfg.Prebundle.Force {
		plan, fresh, err := prebundle.LoadFresh(env.FS, cfg.Root)
		if err != nil {
			env.Logger.Warning("Ignoring saved plan: %v", err)
		} else if fresh {
			env.Logger.Debug("Saved plan is fresh")
			return output.Write(env.FS, plan, format)
		}
	}

	planner, err := prebundle.NewPlanner(env.FS, cfg.Root, prebundle.Options{
		IncludeWorkspacePackages: cfg.Prebundle.IncludeWorkspacePackages,
		Logger:                   env.Logger,
	})
	if err != nil {
		return err
	}
	entries, err := scan.Entries(env.FS, cfg.Root, cfg.Entries)
	if err != nil {
		return err
	}
	edges, err := traverse.Traverse(cmd.Context(), bundler.New(env.FS, env.Logger).WithPlatform(cfg.Platform), traverse.Options{
		Entries:    entries,
		Cwd:        cfg.Root,
		Extensions: cfg.Resolve.Extensions,
		Stop:       planner.Stop,
	})
	if err != nil {
		return err
	}

	plan := planner.Plan(edges)
	if err := prebundle.Save(env.FS, cfg.Root, plan); err != nil {
		return err
	}
	env.Logger.Info("Planned %d packages", len(plan))
	return output.Write(env.FS, plan, format)
}
