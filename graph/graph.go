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

// Package graph holds the dev server's in-memory module graph.
//
// The graph stores only forward edges (importees). Importers are always
// derived by scanning every node, so forward and reverse edges can never
// disagree. Nodes are created lazily and never removed; recompiling a module
// overwrites its edges and HMR flags.
//
// Structural mutations (edges, flags) are expected to come from a single
// owner, the file-change handler, one change at a time. The dirty counter is
// atomic and may be read and decremented concurrently by the serving layer.
package graph

import (
	"slices"
	"sync"
	"sync/atomic"
)

// HMR describes how a module participates in hot module replacement.
type HMR struct {
	// Accepts marks the module as a boundary: updates reaching it stop there.
	Accepts bool
	// Declines turns any update reaching the module into a full reload.
	Declines bool
	// Enabled means the module's runtime can apply a patched version in place.
	Enabled bool
}

// Node is one source file known to the dev server.
type Node struct {
	// Key is the root-relative, forward-slash path of the module.
	Key string

	HMR

	importees map[string]struct{}
	dirty     atomic.Int64
}

// Importees returns the sorted keys of the modules this module imports.
func (n *Node) Importees() []string {
	keys := make([]string, 0, len(n.importees))
	for k := range n.importees {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Imports reports whether this module statically imports key.
func (n *Node) Imports(key string) bool {
	_, ok := n.importees[key]
	return ok
}

// DirtyImportersCount is the number of pending invalidations the module must
// resolve by being refetched. It is a hint, not a lock.
func (n *Node) DirtyImportersCount() int64 {
	return n.dirty.Load()
}

// MarkDirty records one more pending invalidation and returns the new count.
func (n *Node) MarkDirty() int64 {
	return n.dirty.Add(1)
}

// ConsumeDirty records that the module was refetched. It reports whether the
// module had pending invalidations; the count never drops below zero.
func (n *Node) ConsumeDirty() bool {
	for {
		cur := n.dirty.Load()
		if cur <= 0 {
			return false
		}
		if n.dirty.CompareAndSwap(cur, cur-1) {
			return true
		}
	}
}

// Graph maps module keys to nodes.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]*Node
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// EnsureEntry returns the node for key, creating an empty one if needed.
// An existing node is never modified.
func (g *Graph) EnsureEntry(key string) *Node {
	g.mu.RLock()
	n, ok := g.nodes[key]
	g.mu.RUnlock()
	if ok {
		return n
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ensureLocked(key)
}

func (g *Graph) ensureLocked(key string) *Node {
	if n, ok := g.nodes[key]; ok {
		return n
	}
	n := &Node{Key: key, importees: make(map[string]struct{})}
	g.nodes[key] = n
	return n
}

// Get returns the node for key without creating it.
func (g *Graph) Get(key string) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[key]
	return n, ok
}

// ImportersOf returns the sorted keys of every module that imports key.
// It scans the whole graph.
func (g *Graph) ImportersOf(key string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var importers []string
	for k, n := range g.nodes {
		if n.Imports(key) {
			importers = append(importers, k)
		}
	}
	slices.Sort(importers)
	return importers
}

// SetImportees replaces the import edges of key. Every importee gets a node
// so that later changes to it can be propagated.
func (g *Graph) SetImportees(key string, importees []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := g.ensureLocked(key)
	n.importees = make(map[string]struct{}, len(importees))
	for _, imp := range importees {
		n.importees[imp] = struct{}{}
		g.ensureLocked(imp)
	}
}

// AddImport adds a single edge from importer to importee, keeping existing
// edges.
func (g *Graph) AddImport(importer, importee string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.ensureLocked(importer).importees[importee] = struct{}{}
	g.ensureLocked(importee)
}

// SetHMR replaces the HMR flags of key.
func (g *Graph) SetHMR(key string, hmr HMR) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ensureLocked(key).HMR = hmr
}

// Keys returns every module key in sorted order.
func (g *Graph) Keys() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	keys := make([]string, 0, len(g.nodes))
	for k := range g.nodes {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}
