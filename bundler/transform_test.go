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

package bundler_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bennypowers.dev/hotmod/bundler"
)

func TestNeedsTransform(t *testing.T) {
	tests := map[string]bool{
		"src/a.ts":     true,
		"src/a.mts":    true,
		"src/view.tsx": true,
		"src/view.JSX": true,
		"src/a.js":     false,
		"src/a.mjs":    false,
		"index.html":   false,
	}
	for file, want := range tests {
		assert.Equal(t, want, bundler.NeedsTransform(file), file)
	}
}

func TestTransformTypeScript(t *testing.T) {
	src := []byte(`import { b } from './b';
export const a: number = b + 1;
if (import.meta.hot) import.meta.hot.accept();
`)
	out, err := bundler.Transform(src, "/project/src/a.ts")
	require.NoError(t, err)

	code := string(out)
	assert.NotContains(t, code, ": number")
	assert.Contains(t, code, `from "./b"`)
	assert.Contains(t, code, "import.meta.hot.accept()")
	assert.Contains(t, code, "sourceMappingURL=data:application/json")
}

func TestTransformSyntaxError(t *testing.T) {
	_, err := bundler.Transform([]byte("export const = ;"), "broken.ts")
	require.Error(t, err)

	var buildErr *bundler.BuildError
	require.True(t, errors.As(err, &buildErr))
	assert.Contains(t, buildErr.Messages[0], "broken.ts")
}
