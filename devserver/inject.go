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
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"bennypowers.dev/hotmod/importmap"
)

// pageLayout records the byte offsets in an HTML page that injection
// cares about. Offsets are -1 when the element is absent.
type pageLayout struct {
	// insertAt is just after the <head> start tag, or the <html> start
	// tag when there is no head, or 0.
	insertAt int
	// mapStart and mapEnd delimit the content of an existing import map.
	mapStart, mapEnd int
	// mapClose is just after the existing import map's end tag.
	mapClose int
}

func scanPage(content []byte) (pageLayout, error) {
	layout := pageLayout{insertAt: -1, mapStart: -1, mapEnd: -1, mapClose: -1}
	htmlEnd := -1
	inImportMap := false

	z := html.NewTokenizer(bytes.NewReader(content))
	offset := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return layout, err
			}
			break
		}
		start := offset
		offset += len(z.Raw())

		switch tt {
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			switch string(name) {
			case "head":
				if layout.insertAt < 0 {
					layout.insertAt = offset
				}
			case "html":
				if htmlEnd < 0 {
					htmlEnd = offset
				}
			case "script":
				if layout.mapStart < 0 && hasAttr && scriptType(z) == "importmap" {
					inImportMap = true
					layout.mapStart = offset
					layout.mapEnd = offset
				}
			}
		case html.TextToken:
			if inImportMap {
				layout.mapEnd = offset
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); inImportMap && string(name) == "script" {
				inImportMap = false
				layout.mapEnd = start
				layout.mapClose = offset
			}
		}
	}

	if inImportMap {
		layout.mapEnd = len(content)
		layout.mapClose = len(content)
	}
	if layout.insertAt < 0 {
		layout.insertAt = max(htmlEnd, 0)
	}
	return layout, nil
}

func scriptType(z *html.Tokenizer) string {
	for {
		key, val, more := z.TagAttr()
		if string(key) == "type" {
			return strings.ToLower(strings.TrimSpace(string(val)))
		}
		if !more {
			return ""
		}
	}
}

// InjectHTML returns content with the import map merged into the page's
// existing import map or added as a new one, and, when client is not
// empty, a module script loading client placed after the import map.
func InjectHTML(content []byte, im *importmap.ImportMap, client string) ([]byte, error) {
	if im.Empty() && client == "" {
		return content, nil
	}
	layout, err := scanPage(content)
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}

	var clientTag string
	if client != "" {
		clientTag = fmt.Sprintf("\n<script type=\"module\" src=%q></script>", client)
	}

	if layout.mapStart >= 0 {
		existing := &importmap.ImportMap{}
		if raw := bytes.TrimSpace(content[layout.mapStart:layout.mapEnd]); len(raw) > 0 {
			existing, err = importmap.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("parsing existing import map: %w", err)
			}
		}
		merged := im.Merge(existing)

		var out bytes.Buffer
		out.Write(content[:layout.mapStart])
		out.WriteString("\n" + merged.ToJSON() + "\n")
		out.Write(content[layout.mapEnd:layout.mapClose])
		out.WriteString(clientTag)
		out.Write(content[layout.mapClose:])
		return out.Bytes(), nil
	}

	var tags strings.Builder
	if !im.Empty() {
		tags.WriteString("\n<script type=\"importmap\">\n")
		tags.WriteString(im.ToJSON())
		tags.WriteString("\n</script>")
	}
	tags.WriteString(clientTag)

	var out bytes.Buffer
	out.Write(content[:layout.insertAt])
	out.WriteString(tags.String())
	out.Write(content[layout.insertAt:])
	return out.Bytes(), nil
}
