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

package devserver

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"bennypowers.dev/hotmod/bundler"
	"bennypowers.dev/hotmod/modpath"
	"bennypowers.dev/hotmod/scan"
)

const (
	// SocketPath is the websocket endpoint HMR messages are pushed on.
	SocketPath = "/__hmr"
	// ClientPath serves the browser HMR runtime.
	ClientPath = "/__hmr_client.js"

	shutdownTimeout = 5 * time.Second
	jsContentType   = "text/javascript; charset=utf-8"
)

//go:embed client.js
var clientJS []byte

var clientModTime = time.Now()

// hotPreamble gives a module its import.meta.hot object.
const hotPreamble = `import { createHotContext as __hotmod_hot } from "` + ClientPath + `"; import.meta.hot = __hotmod_hot(import.meta.url);`

// Handler returns the HTTP handler for the session: project files, and
// the HMR endpoints when HMR is enabled.
func (s *Session) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.cfg.Server.HMR {
		mux.Handle(SocketPath, s.hub)
		mux.HandleFunc(ClientPath, serveClient)
	}
	mux.HandleFunc("/", s.serveFile)
	return mux
}

func serveClient(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", jsContentType)
	http.ServeContent(w, r, ClientPath, clientModTime, bytes.NewReader(clientJS))
}

func (s *Session) serveFile(w http.ResponseWriter, r *http.Request) {
	file := modpath.RequestToFile(s.root, r.URL.Path)
	key := modpath.Key(s.root, file)
	if key == ".." || strings.HasPrefix(key, "../") {
		http.NotFound(w, r)
		return
	}

	info, err := s.fs.Stat(file)
	if err == nil && info.IsDir() {
		file = filepath.Join(file, "index.html")
		key = modpath.Key(s.root, file)
		info, err = s.fs.Stat(file)
	}
	if err != nil {
		http.NotFound(w, r)
		return
	}

	// A module with pending invalidations must not be answered from cache.
	if node, ok := s.graph.Get(key); ok && node.ConsumeDirty() {
		r.Header.Del("If-Modified-Since")
		r.Header.Del("If-None-Match")
	}
	w.Header().Set("Cache-Control", "no-cache")

	content, err := s.fs.ReadFile(file)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if !modpath.IsStaticAsset(file) {
		content, err = s.render(key, file, content, w.Header())
		if err != nil {
			s.warn("Cannot serve %s: %v", key, err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	http.ServeContent(w, r, file, info.ModTime(), bytes.NewReader(content))
}

// render rewrites content for the browser: pages get the import map and
// the HMR client, TypeScript and JSX are compiled, and modules that use
// import.meta.hot get a hot context.
func (s *Session) render(key, file string, content []byte, header http.Header) ([]byte, error) {
	lang, ok := scan.LanguageFor(file)
	if !ok {
		return content, nil
	}
	if lang == scan.LangHTML {
		client := ""
		if s.cfg.Server.HMR {
			client = ClientPath
		}
		return InjectHTML(content, s.imports.Load(), client)
	}

	header.Set("Content-Type", jsContentType)
	if bundler.NeedsTransform(file) {
		var err error
		content, err = bundler.Transform(content, file)
		if err != nil {
			return nil, err
		}
	}
	if node, ok := s.graph.Get(key); ok && node.Enabled && s.cfg.Server.HMR {
		content = append([]byte(hotPreamble), content...)
	}
	return content, nil
}

// Run serves the session on the configured address and, with HMR
// enabled, watches the project until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	var watcher *Watcher
	if s.cfg.Server.HMR {
		var err error
		watcher, err = NewWatcher(s.root, s.cfg.Watch.Ignore, s.cfg.Watch.Debounce, s.logger)
		if err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              s.cfg.Server.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("serving on %s: %w", srv.Addr, err)
		}
	}()
	if s.logger != nil {
		s.logger.Info("Serving %s on http://%s", s.root, srv.Addr)
	}

	if watcher != nil {
		go func() {
			if err := watcher.Run(ctx, func(changes []Change) { s.HandleChanges(ctx, changes) }); err != nil {
				errCh <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("shutting down: %w", err)
	}
	return runErr
}
