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

package prebundle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	iofs "io/fs"
	"path/filepath"

	"bennypowers.dev/hotmod/fs"
)

// StateFile is where a plan is saved, relative to the project root.
const StateFile = "node_modules/.hotmod/prebundle.json"

// inputs are the root files whose contents decide whether a saved plan
// is still valid.
var inputs = []string{
	"package.json",
	"package-lock.json",
	"npm-shrinkwrap.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"bun.lock",
}

type state struct {
	Hash     string    `json:"hash"`
	Packages []Package `json:"packages"`
}

// Hash fingerprints the package manifests and lockfiles present in root.
func Hash(fsys fs.FileSystem, root string) (string, error) {
	h := sha256.New()
	for _, name := range inputs {
		data, err := fsys.ReadFile(filepath.Join(root, name))
		if errors.Is(err, iofs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		fmt.Fprintf(h, "%s\x00%d\x00", name, len(data))
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Save writes plan to root's state file together with the current hash.
func Save(fsys fs.FileSystem, root string, plan []Package) error {
	hash, err := Hash(fsys, root)
	if err != nil {
		return fmt.Errorf("hashing package manifests: %w", err)
	}
	data, err := json.MarshalIndent(state{Hash: hash, Packages: plan}, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(root, filepath.FromSlash(StateFile))
	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	return fsys.WriteFile(path, append(data, '\n'), 0644)
}

// LoadFresh returns the saved plan for root if the package manifests and
// lockfiles have not changed since it was saved. A missing or stale plan
// reports false without error.
func LoadFresh(fsys fs.FileSystem, root string) ([]Package, bool, error) {
	data, err := fsys.ReadFile(filepath.Join(root, filepath.FromSlash(StateFile)))
	if errors.Is(err, iofs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var saved state
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, false, fmt.Errorf("decoding %s: %w", StateFile, err)
	}
	hash, err := Hash(fsys, root)
	if err != nil {
		return nil, false, err
	}
	if hash != saved.Hash {
		return nil, false, nil
	}
	return saved.Packages, true, nil
}
