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

package output

import (
	"testing"
)

type edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func TestEncode(t *testing.T) {
	items := []edge{{"a", "b"}, {"b", "c"}}

	tests := []struct {
		format string
		want   string
	}{
		{"json", "[\n  {\n    \"from\": \"a\",\n    \"to\": \"b\"\n  },\n  {\n    \"from\": \"b\",\n    \"to\": \"c\"\n  }\n]\n"},
		{"ndjson", "{\"from\":\"a\",\"to\":\"b\"}\n{\"from\":\"b\",\"to\":\"c\"}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got, err := Encode(items, tt.format)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Encode() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestEncodeEmpty(t *testing.T) {
	got, err := Encode[edge](nil, "json")
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if string(got) != "[]\n" {
		t.Errorf("expected empty array, got %q", got)
	}

	got, err = Encode[edge](nil, "ndjson")
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no output, got %q", got)
	}
}

func TestEncodeInvalidFormat(t *testing.T) {
	if _, err := Encode([]edge{}, "yaml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
