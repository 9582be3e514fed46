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

package packagejson

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"bennypowers.dev/hotmod/fs"
)

// DefaultCacheSize bounds the number of parsed package.json files a Cache keeps.
const DefaultCacheSize = 1024

// loadEntry coordinates concurrent loads of one path.
type loadEntry struct {
	pkg  *PackageJSON
	err  error
	once sync.Once
}

// Cache holds parsed package.json files keyed by path. Least recently used
// entries are evicted once the cache is full. It is safe for concurrent use.
type Cache struct {
	entries *lru.Cache[string, *PackageJSON]
	loading sync.Map // map[string]*loadEntry for in-flight loads
}

// NewCache creates a cache holding up to size files.
func NewCache(size int) (*Cache, error) {
	entries, err := lru.New[string, *PackageJSON](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries}, nil
}

// Get retrieves a cached package.json by its file path.
func (c *Cache) Get(path string) (*PackageJSON, bool) {
	return c.entries.Get(path)
}

// Invalidate drops path, typically because the file changed on disk.
func (c *Cache) Invalidate(path string) {
	c.entries.Remove(path)
	c.loading.Delete(path)
}

// Len returns the number of cached files.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// GetOrLoad returns the cached package for path, or runs loader to fill it.
// Concurrent callers for the same path share one loader call. Failed loads
// are not cached.
func (c *Cache) GetOrLoad(path string, loader func() (*PackageJSON, error)) (*PackageJSON, error) {
	if pkg, ok := c.entries.Get(path); ok {
		return pkg, nil
	}

	actual, _ := c.loading.LoadOrStore(path, &loadEntry{})
	entry := actual.(*loadEntry)
	entry.once.Do(func() {
		// Callers holding entry still see its result; later callers go
		// through the LRU, or retry after a failure.
		defer c.loading.CompareAndDelete(path, entry)

		// A load for path may have finished between the miss above and
		// LoadOrStore.
		if pkg, ok := c.entries.Get(path); ok {
			entry.pkg = pkg
			return
		}
		entry.pkg, entry.err = loader()
		if entry.err == nil {
			c.entries.Add(path, entry.pkg)
		}
	})
	return entry.pkg, entry.err
}

// Load reads path through the cache.
func (c *Cache) Load(fsys fs.FileSystem, path string) (*PackageJSON, error) {
	return c.GetOrLoad(path, func() (*PackageJSON, error) {
		return ParseFile(fsys, path)
	})
}
