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

// Package bundler runs esbuild as the compiler behind dependency traversal.
//
// A build writes nothing but its metafile. Modules matched by the traversal's
// stop predicate are loaded into a separate namespace as a one-line re-export
// of an external marker, so they appear in the metafile as inputs without
// any imports of their own.
package bundler

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"bennypowers.dev/hotmod/fs"
	"bennypowers.dev/hotmod/internal/logging"
	"bennypowers.dev/hotmod/manifest"
	"bennypowers.dev/hotmod/traverse"
)

const (
	// ExternalNamespace holds modules the stop predicate matched.
	ExternalNamespace = "external-but-keep-in-metafile"
	externalModule    = "externalModuleXXX"
	metafileName      = "meta.json"
)

// DefaultExtensions is the resolution order used when none is configured.
var DefaultExtensions = []string{".ts", ".tsx", ".mjs", ".js", ".jsx", ".cjs"}

// BuildError carries the formatted esbuild error messages of a failed build.
type BuildError struct {
	Messages []string
}

func (e *BuildError) Error() string {
	switch len(e.Messages) {
	case 0:
		return "build failed"
	case 1:
		return "build failed: " + e.Messages[0]
	default:
		return fmt.Sprintf("build failed with %d errors: %s", len(e.Messages), e.Messages[0])
	}
}

// Esbuild implements traverse.Compiler.
type Esbuild struct {
	fs       fs.FileSystem
	logger   logging.Logger
	platform api.Platform
}

// New creates an esbuild compiler. The filesystem provides the temporary
// output directory and receives the metafile. logger may be nil.
func New(fsys fs.FileSystem, logger logging.Logger) *Esbuild {
	return &Esbuild{fs: fsys, logger: logger, platform: api.PlatformNode}
}

// WithPlatform returns a copy that resolves for the named platform,
// "browser" or "node".
func (e *Esbuild) WithPlatform(platform string) *Esbuild {
	c := *e
	switch platform {
	case "browser":
		c.platform = api.PlatformBrowser
	default:
		c.platform = api.PlatformNode
	}
	return &c
}

// Compile bundles opts.Entries into a fresh temporary directory and returns
// the decoded metafile. The directory is removed before Compile returns.
// Cancelling ctx cancels the running build.
func (e *Esbuild) Compile(ctx context.Context, opts traverse.Options) (*manifest.Manifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	outdir, err := e.fs.MkdirTemp(e.fs.TempDir(), "hotmod-traverse-")
	if err != nil {
		return nil, fmt.Errorf("creating build directory: %w", err)
	}
	defer func() {
		if rmErr := e.fs.RemoveAll(outdir); rmErr != nil && e.logger != nil {
			e.logger.Warning("Failed to remove %s: %v", outdir, rmErr)
		}
	}()

	bctx, ctxErr := api.Context(e.buildOptions(opts, outdir))
	if ctxErr != nil {
		return nil, &BuildError{Messages: formatMessages(ctxErr.Errors)}
	}
	defer bctx.Dispose()

	done := make(chan api.BuildResult, 1)
	go func() { done <- bctx.Rebuild() }()

	var result api.BuildResult
	select {
	case result = <-done:
	case <-ctx.Done():
		bctx.Cancel()
		<-done
		return nil, fmt.Errorf("build cancelled: %w", ctx.Err())
	}

	for _, w := range result.Warnings {
		if e.logger != nil {
			e.logger.Debug("esbuild: %s", formatMessage(w))
		}
	}
	if len(result.Errors) > 0 {
		return nil, &BuildError{Messages: formatMessages(result.Errors)}
	}

	metafile := filepath.Join(outdir, metafileName)
	if err := e.fs.WriteFile(metafile, []byte(result.Metafile), 0644); err != nil {
		return nil, fmt.Errorf("writing metafile: %w", err)
	}
	return manifest.ParseFile(e.fs, metafile)
}

func (e *Esbuild) buildOptions(opts traverse.Options, outdir string) api.BuildOptions {
	extensions := opts.Extensions
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	plugins := []api.Plugin{externalButInMetafile()}
	if opts.Stop != nil {
		plugins = append(plugins, e.stopPlugin(opts.Stop))
	}
	return api.BuildOptions{
		EntryPoints:       opts.Entries,
		AbsWorkingDir:     opts.Cwd,
		Outdir:            outdir,
		Bundle:            true,
		Write:             false,
		Metafile:          true,
		Format:            api.FormatESModule,
		Platform:          e.platform,
		MainFields:        []string{"module", "browser", "main"},
		ResolveExtensions: extensions,
		Sourcemap:         api.SourceMapNone,
		Loader:            map[string]api.Loader{".js": api.LoaderJSX},
		Define: map[string]string{
			"process.env.NODE_ENV": `"development"`,
			"global":               "window",
		},
		LogLevel: api.LogLevelSilent,
		Plugins:  plugins,
	}
}

// externalButInMetafile loads every module in ExternalNamespace as a
// re-export of an external marker module.
func externalButInMetafile() api.Plugin {
	return api.Plugin{
		Name: ExternalNamespace,
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: "^" + regexp.QuoteMeta(externalModule) + "$"},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					return api.OnResolveResult{Path: args.Path, External: true}, nil
				})
			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: ExternalNamespace},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					contents := fmt.Sprintf("export * from '%s'", externalModule)
					return api.OnLoadResult{Contents: &contents, Loader: api.LoaderJS}, nil
				})
		},
	}
}

// resolving marks the nested resolve issued by the stop plugin so the
// plugin does not intercept its own request.
type resolving struct{}

// stopPlugin resolves every import itself and moves the ones stop matches
// into ExternalNamespace. Unresolvable imports become external.
func (e *Esbuild) stopPlugin(stop traverse.StopFunc) api.Plugin {
	return api.Plugin{
		Name: "stop-traversing",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: ".*"},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					if _, nested := args.PluginData.(resolving); nested {
						return api.OnResolveResult{}, nil
					}
					if args.Kind == api.ResolveEntryPoint || args.Namespace == ExternalNamespace {
						return api.OnResolveResult{}, nil
					}

					res := build.Resolve(args.Path, api.ResolveOptions{
						Importer:   args.Importer,
						Namespace:  args.Namespace,
						ResolveDir: args.ResolveDir,
						Kind:       args.Kind,
						PluginData: resolving{},
					})
					if len(res.Errors) > 0 {
						if e.logger != nil {
							e.logger.Warning("Cannot resolve %q from %s", args.Path, args.Importer)
						}
						return api.OnResolveResult{Path: args.Path, External: true}, nil
					}
					if res.External {
						return api.OnResolveResult{Path: res.Path, External: true}, nil
					}
					if stop(res.Path) {
						return api.OnResolveResult{Path: res.Path, Namespace: ExternalNamespace}, nil
					}
					return api.OnResolveResult{Path: res.Path, Namespace: res.Namespace}, nil
				})
		},
	}
}

func formatMessages(msgs []api.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, formatMessage(msg))
	}
	return out
}

func formatMessage(msg api.Message) string {
	var b strings.Builder
	if loc := msg.Location; loc != nil {
		fmt.Fprintf(&b, "%s:%d:%d: ", loc.File, loc.Line, loc.Column)
	}
	b.WriteString(msg.Text)
	return b.String()
}
