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

// Package hmr decides which hot module replacement messages a file change
// produces by walking the module graph from the changed module towards its
// importers.
package hmr

import (
	"bennypowers.dev/hotmod/graph"
	"bennypowers.dev/hotmod/internal/logging"
	"bennypowers.dev/hotmod/modpath"
)

// Kind is the kind of an HMR message.
type Kind string

const (
	// KindUpdate asks the client to hot-swap the module at Path.
	KindUpdate Kind = "update"
	// KindReload asks the client to reload the whole page.
	KindReload Kind = "reload"
)

// Message is one instruction for the client.
type Message struct {
	Kind Kind   `json:"kind"`
	Path string `json:"path,omitempty"`
}

// Sink receives the messages produced by a propagation.
type Sink interface {
	Send(msg Message)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(msg Message)

// Send calls f(msg).
func (f SinkFunc) Send(msg Message) {
	f(msg)
}

// Report summarizes one propagation.
type Report struct {
	// Key is the graph key of the changed file.
	Key string
	// Updates lists the import paths that were sent as update messages.
	Updates []string
	// Reloads counts the branches that ended in a reload message.
	Reloads int
	// Visited lists the keys in the order they were processed.
	Visited []string
}

// Propagator turns file changes into HMR messages.
type Propagator struct {
	graph  *graph.Graph
	root   string
	sink   Sink
	logger logging.Logger
}

// New creates a Propagator for the graph of the project at root.
// logger may be nil.
func New(g *graph.Graph, root string, sink Sink, logger logging.Logger) *Propagator {
	return &Propagator{
		graph:  g,
		root:   root,
		sink:   sink,
		logger: logger,
	}
}

// OnFileChange propagates a change of file through the graph breadth-first.
//
// Each branch ends independently when it reaches a module that accepts
// updates, a module that declines them, a module with no importers, a file
// the graph does not track, or a module already visited. Importers reached
// along the way have their dirty count incremented so they refetch the
// changed code.
func (p *Propagator) OnFileChange(file string) Report {
	key := modpath.Key(p.root, file)
	report := Report{Key: key}

	queue := []string{key}
	visited := make(map[string]struct{})

	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]

		if _, ok := visited[k]; ok {
			continue
		}
		visited[k] = struct{}{}
		report.Visited = append(report.Visited, k)

		node, ok := p.graph.Get(k)
		if !ok {
			// not a module, e.g. index.html
			p.reload(&report, k, "untracked")
			continue
		}
		if node.Declines {
			p.reload(&report, k, "declined")
			continue
		}
		if node.Enabled {
			p.update(&report, modpath.KeyToImportPath(k))
		}
		if node.Accepts {
			continue
		}

		importers := p.graph.ImportersOf(k)
		if len(importers) == 0 {
			p.reload(&report, k, "no importers")
			continue
		}
		for _, importer := range importers {
			p.graph.EnsureEntry(importer).MarkDirty()
			if _, ok := visited[importer]; !ok {
				queue = append(queue, importer)
			}
		}
	}

	return report
}

func (p *Propagator) update(report *Report, path string) {
	report.Updates = append(report.Updates, path)
	if p.logger != nil {
		p.logger.Debug("hmr update %s", path)
	}
	p.sink.Send(Message{Kind: KindUpdate, Path: path})
}

func (p *Propagator) reload(report *Report, key, reason string) {
	report.Reloads++
	if p.logger != nil {
		p.logger.Debug("hmr reload at %s (%s)", key, reason)
	}
	p.sink.Send(Message{Kind: KindReload})
}
