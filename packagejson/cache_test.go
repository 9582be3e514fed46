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

package packagejson_test

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"bennypowers.dev/hotmod/internal/mapfs"
	"bennypowers.dev/hotmod/packagejson"
)

func newCache(t *testing.T, size int) *packagejson.Cache {
	t.Helper()
	cache, err := packagejson.NewCache(size)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	return cache
}

func TestCacheMiss(t *testing.T) {
	cache := newCache(t, packagejson.DefaultCacheSize)

	pkg, ok := cache.Get("/nonexistent/package.json")
	if ok || pkg != nil {
		t.Errorf("Expected cache miss, got %v, %v", pkg, ok)
	}
}

func TestNewCacheInvalidSize(t *testing.T) {
	if _, err := packagejson.NewCache(0); err == nil {
		t.Error("Expected error for zero-size cache")
	}
}

func TestCacheGetOrLoad(t *testing.T) {
	cache := newCache(t, packagejson.DefaultCacheSize)

	var loadCount atomic.Int32
	loader := func() (*packagejson.PackageJSON, error) {
		loadCount.Add(1)
		return &packagejson.PackageJSON{Name: "loaded"}, nil
	}

	for range 2 {
		pkg, err := cache.GetOrLoad("/path/to/package.json", loader)
		if err != nil {
			t.Fatalf("GetOrLoad failed: %v", err)
		}
		if pkg.Name != "loaded" {
			t.Errorf("Expected name 'loaded', got %q", pkg.Name)
		}
	}
	if loadCount.Load() != 1 {
		t.Errorf("Expected loader to be called once, called %d times", loadCount.Load())
	}
	if _, ok := cache.Get("/path/to/package.json"); !ok {
		t.Error("Expected cache hit after GetOrLoad")
	}
}

func TestCacheGetOrLoadConcurrent(t *testing.T) {
	cache := newCache(t, packagejson.DefaultCacheSize)

	var loadCount atomic.Int32
	loader := func() (*packagejson.PackageJSON, error) {
		loadCount.Add(1)
		return &packagejson.PackageJSON{Name: "loaded"}, nil
	}

	var wg sync.WaitGroup
	for range 100 {
		wg.Go(func() {
			if _, err := cache.GetOrLoad("/same/path/package.json", loader); err != nil {
				t.Errorf("GetOrLoad failed: %v", err)
			}
		})
	}
	wg.Wait()

	if loadCount.Load() != 1 {
		t.Errorf("Expected loader to be called exactly once, called %d times", loadCount.Load())
	}
}

func TestCacheFailedLoadIsRetried(t *testing.T) {
	cache := newCache(t, packagejson.DefaultCacheSize)

	boom := errors.New("boom")
	if _, err := cache.GetOrLoad("/pkg/package.json", func() (*packagejson.PackageJSON, error) {
		return nil, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("Expected loader error, got %v", err)
	}

	pkg, err := cache.GetOrLoad("/pkg/package.json", func() (*packagejson.PackageJSON, error) {
		return &packagejson.PackageJSON{Name: "second"}, nil
	})
	if err != nil {
		t.Fatalf("GetOrLoad failed: %v", err)
	}
	if pkg.Name != "second" {
		t.Errorf("Expected retried load, got %q", pkg.Name)
	}
}

func TestCacheInvalidateAllowsReload(t *testing.T) {
	cache := newCache(t, packagejson.DefaultCacheSize)

	var loadCount atomic.Int32
	loader := func() (*packagejson.PackageJSON, error) {
		n := loadCount.Add(1)
		return &packagejson.PackageJSON{Name: "loaded", Version: fmt.Sprint(n)}, nil
	}

	pkg, err := cache.GetOrLoad("/path/package.json", loader)
	if err != nil {
		t.Fatalf("GetOrLoad failed: %v", err)
	}
	if pkg.Version != "1" {
		t.Errorf("Expected version '1', got %q", pkg.Version)
	}

	cache.Invalidate("/path/package.json")
	cache.Invalidate("/never/cached/package.json")

	pkg, err = cache.GetOrLoad("/path/package.json", loader)
	if err != nil {
		t.Fatalf("GetOrLoad failed: %v", err)
	}
	if pkg.Version != "2" {
		t.Errorf("Expected version '2' after invalidate, got %q", pkg.Version)
	}
}

func TestCacheEviction(t *testing.T) {
	cache := newCache(t, 2)
	for i := range 3 {
		path := fmt.Sprintf("/p%d/package.json", i)
		if _, err := cache.GetOrLoad(path, func() (*packagejson.PackageJSON, error) {
			return &packagejson.PackageJSON{Name: path}, nil
		}); err != nil {
			t.Fatalf("GetOrLoad failed: %v", err)
		}
	}
	if cache.Len() != 2 {
		t.Errorf("Expected 2 entries, got %d", cache.Len())
	}
	if _, ok := cache.Get("/p0/package.json"); ok {
		t.Error("Expected least recently used entry to be evicted")
	}
}

func TestCacheLoad(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/node_modules/lit/package.json", `{"name": "lit", "version": "3.1.0"}`, 0644)
	cache := newCache(t, packagejson.DefaultCacheSize)

	pkg, err := cache.Load(mfs, "/node_modules/lit/package.json")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if pkg.Name != "lit" || pkg.Version != "3.1.0" {
		t.Errorf("Unexpected package %+v", pkg)
	}

	if _, err := cache.Load(mfs, "/node_modules/missing/package.json"); err == nil {
		t.Error("Expected error for missing package.json")
	}
}
