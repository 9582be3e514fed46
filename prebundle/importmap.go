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
	"path/filepath"
	"strings"

	"bennypowers.dev/hotmod/importmap"
	"bennypowers.dev/hotmod/modpath"
)

// ImportMap maps each planned package's bare name onto the URL of its
// entry module, plus a trailing-slash prefix for deep imports. Packages
// outside root cannot be served and are left out.
func ImportMap(root string, plan []Package) *importmap.ImportMap {
	im := importmap.New()
	for _, pkg := range plan {
		dir := modpath.Key(root, pkg.Dir)
		if dir == ".." || strings.HasPrefix(dir, "../") || filepath.IsAbs(dir) {
			continue
		}
		if pkg.Entry != "" {
			im.Add(pkg.Name, modpath.ImportPath(root, pkg.Entry))
		}
		im.Add(pkg.Name+"/", modpath.KeyToImportPath(dir)+"/")
	}
	return im
}
