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

// Package serve provides the serve command, which runs the dev server.
package serve

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/hotmod/bundler"
	"bennypowers.dev/hotmod/devserver"
	"bennypowers.dev/hotmod/internal/cli"
)

// Cmd is the serve command.
var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the project with hot module replacement",
	Long: `Build the module graph for the project's entry points and serve the
project. Source changes are pushed to connected browsers as HMR updates, or
as a full reload when no module accepts them.`,
	Example: `  # Serve the current directory on localhost:3000
  hotmod serve

  # Serve another project on all interfaces
  hotmod serve --root ../app --host 0.0.0.0 --port 8080

  # Without HMR
  hotmod serve --hmr=false`,
	RunE: run,
}

func init() {
	Cmd.Flags().String("host", "localhost", "Host to listen on")
	Cmd.Flags().IntP("port", "P", 3000, "Port to listen on")
	Cmd.Flags().Bool("hmr", true, "Enable hot module replacement")
	Cmd.Flags().Bool("force", false, "Recompute the prebundle plan")

	_ = viper.BindPFlag("server.host", Cmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", Cmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.hmr", Cmd.Flags().Lookup("hmr"))
	_ = viper.BindPFlag("prebundle.force", Cmd.Flags().Lookup("force"))
}

func run(cmd *cobra.Command, args []string) error {
	env, err := cli.Load()
	if err != nil {
		return err
	}

	session, err := devserver.NewSession(cmd.Context(), devserver.Options{
		Config:   env.Config,
		FS:       env.FS,
		Compiler: bundler.New(env.FS, env.Logger).WithPlatform(env.Config.Platform),
		Logger:   env.Logger,
	})
	if err != nil {
		return err
	}
	return session.Run(cmd.Context())
}
