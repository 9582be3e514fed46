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

// Package output provides shared output utilities for hotmod CLI commands.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"bennypowers.dev/hotmod/fs"
)

// Formats lists the values accepted by a command's --format flag.
var Formats = []string{"json", "ndjson"}

// Encode renders items as one indented JSON array, or as one compact
// JSON object per line for "ndjson".
func Encode[T any](items []T, format string) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case "json":
		if items == nil {
			items = []T{}
		}
		data, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			return nil, err
		}
		buf.Write(data)
		buf.WriteByte('\n')
	case "ndjson":
		enc := json.NewEncoder(&buf)
		for _, item := range items {
			if err := enc.Encode(item); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("invalid format %q: must be one of json, ndjson", format)
	}
	return buf.Bytes(), nil
}

// Write encodes items and writes them to the file named by viper's
// "output" key, or to stdout when it is empty.
func Write[T any](osfs fs.FileSystem, items []T, format string) error {
	data, err := Encode(items, format)
	if err != nil {
		return err
	}
	if outputPath := viper.GetString("output"); outputPath != "" {
		return osfs.WriteFile(outputPath, data, 0644)
	}
	_, err = os.Stdout.Write(data)
	return err
}
