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

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestMain(m *testing.M) {
	// Build the binary before running tests
	wd := mustGetwd()
	cmd := exec.Command("go", "build", "-o", "hotmod_test", ".")
	cmd.Dir = wd
	if out, err := cmd.CombinedOutput(); err != nil {
		panic("failed to build test binary: " + err.Error() + "\n" + string(out))
	}
	code := m.Run()
	_ = os.Remove(filepath.Join(wd, "hotmod_test"))
	os.Exit(code)
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return wd
}

func runCLI(t *testing.T, dir string, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()
	binary := filepath.Join(mustGetwd(), "hotmod_test")
	cmd := exec.Command(binary, args...)
	cmd.Dir = dir

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			t.Fatalf("Failed to run CLI: %v", err)
		}
	}

	return stdout, stderr, exitCode
}

// writeApp creates a small project with one installed package.
func writeApp(t *testing.T) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"package.json":                  `{"name": "app", "dependencies": {"lit": "^3.1.0"}}`,
		"index.html":                    `<html><head></head><body><script type="module" src="/src/main.js"></script></body></html>`,
		"src/main.js":                   "import { n } from './counter';\nimport { html } from 'lit';\nconsole.log(n, html);\n",
		"src/counter.ts":                "export const n: number = 1;\nimport.meta.hot?.accept();\n",
		"node_modules/lit/package.json": `{"name": "lit", "version": "3.1.0", "module": "index.js"}`,
		"node_modules/lit/index.js":     "export { html } from './lib.js';\n",
		"node_modules/lit/lib.js":       "export const html = String.raw;\n",
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

type edge struct {
	Importer           string `json:"importer"`
	ResolvedImportPath string `json:"resolvedImportPath"`
}

func TestVersion(t *testing.T) {
	stdout, stderr, code := runCLI(t, mustGetwd(), "version")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	if !strings.HasPrefix(stdout, "hotmod ") {
		t.Errorf("unexpected output: %q", stdout)
	}

	stdout, _, code = runCLI(t, mustGetwd(), "version", "--format", "json")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d", code)
	}
	var info map[string]any
	if err := json.Unmarshal([]byte(stdout), &info); err != nil {
		t.Fatalf("Failed to parse JSON output: %v\nstdout: %s", err, stdout)
	}
	if info["version"] == nil {
		t.Error("Expected version field")
	}
}

func TestDeps(t *testing.T) {
	root := writeApp(t)

	stdout, stderr, code := runCLI(t, root, "deps")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}

	var edges []edge
	if err := json.Unmarshal([]byte(stdout), &edges); err != nil {
		t.Fatalf("Failed to parse JSON output: %v\nstdout: %s", err, stdout)
	}

	want := map[edge]bool{
		{filepath.Join(root, "src", "main.js"), filepath.Join(root, "src", "counter.ts")}:               true,
		{filepath.Join(root, "src", "main.js"), filepath.Join(root, "node_modules", "lit", "index.js")}: true,
	}
	if len(edges) != len(want) {
		t.Fatalf("Expected %d edges, got %v", len(want), edges)
	}
	for _, e := range edges {
		if !want[e] {
			t.Errorf("Unexpected edge %+v", e)
		}
	}
}

func TestDepsAllNDJSON(t *testing.T) {
	root := writeApp(t)

	stdout, stderr, code := runCLI(t, root, "deps", "src/main.js", "--all", "--format", "ndjson")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 edges, got %d:\n%s", len(lines), stdout)
	}
	found := false
	for _, line := range lines {
		var e edge
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("Failed to parse line %q: %v", line, err)
		}
		if e.ResolvedImportPath == filepath.Join(root, "node_modules", "lit", "lib.js") {
			found = true
		}
	}
	if !found {
		t.Error("Expected --all to traverse into lit")
	}
}

func TestDepsInvalidFormat(t *testing.T) {
	root := writeApp(t)
	_, stderr, code := runCLI(t, root, "deps", "--format", "yaml")
	if code == 0 {
		t.Fatal("Expected non-zero exit code for invalid format")
	}
	if !strings.Contains(stderr, "invalid format") {
		t.Errorf("Expected invalid format error, got: %s", stderr)
	}
}

func TestDepsNoEntries(t *testing.T) {
	root := t.TempDir()
	_, stderr, code := runCLI(t, root, "deps")
	if code == 0 {
		t.Fatal("Expected non-zero exit code without entries")
	}
	if !strings.Contains(stderr, "index.html") {
		t.Errorf("Expected error naming index.html, got: %s", stderr)
	}
}

func TestPrebundle(t *testing.T) {
	root := writeApp(t)

	stdout, stderr, code := runCLI(t, root, "prebundle")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}

	var plan []map[string]any
	if err := json.Unmarshal([]byte(stdout), &plan); err != nil {
		t.Fatalf("Failed to parse JSON output: %v\nstdout: %s", err, stdout)
	}
	if len(plan) != 1 || plan[0]["name"] != "lit" || plan[0]["kind"] != "dependency" {
		t.Errorf("Unexpected plan: %v", plan)
	}

	if _, err := os.Stat(filepath.Join(root, "node_modules", ".hotmod", "prebundle.json")); err != nil {
		t.Errorf("Expected saved plan: %v", err)
	}

	again, stderr, code := runCLI(t, root, "prebundle", "--log-level", "debug")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	if again != stdout {
		t.Errorf("Expected the saved plan to be reused:\n%s\nvs\n%s", again, stdout)
	}
	if !strings.Contains(stderr, "Saved plan is fresh") {
		t.Errorf("Expected reuse to be logged, got: %s", stderr)
	}
}

func TestRootFlagAndOutputFile(t *testing.T) {
	root := writeApp(t)
	out := filepath.Join(t.TempDir(), "edges.json")

	stdout, stderr, code := runCLI(t, t.TempDir(), "deps", "--root", root, "--output", out)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	if stdout != "" {
		t.Errorf("Expected no stdout when writing to file, got: %s", stdout)
	}
	content, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("Failed to read output file: %v", err)
	}
	var edges []edge
	if err := json.Unmarshal(content, &edges); err != nil {
		t.Fatalf("Failed to parse output file JSON: %v", err)
	}
	if len(edges) != 2 {
		t.Errorf("Expected 2 edges, got %v", edges)
	}
}
