package treecrypt

import (
	"path"
	"strings"
	"testing"

	"github.com/absfs/absfs"
	"github.com/absfs/memfs"
)

func newTestFS(t *testing.T) absfs.FileSystem {
	t.Helper()
	fs, err := memfs.NewFS()
	if err != nil {
		t.Fatalf("Failed to create memfs: %v", err)
	}
	return fs
}

// writeTree creates files from a map of path to contents. Paths ending in
// "/" are created as empty directories.
func writeTree(t *testing.T, fs absfs.FileSystem, files map[string]string) {
	t.Helper()
	for p, content := range files {
		if strings.HasSuffix(p, "/") {
			if err := fs.MkdirAll(p, 0755); err != nil {
				t.Fatalf("MkdirAll(%q) failed: %v", p, err)
			}
			continue
		}
		if err := fs.MkdirAll(path.Dir(p), 0755); err != nil {
			t.Fatalf("MkdirAll(%q) failed: %v", path.Dir(p), err)
		}
		if err := writeFile(fs, p, []byte(content), 0644); err != nil {
			t.Fatalf("writeFile(%q) failed: %v", p, err)
		}
	}
}

// readTree returns every node below dir keyed by its path relative to dir.
// Directories map to "/" so empty ones are compared too.
func readTree(t *testing.T, fs absfs.FileSystem, dir string) map[string]string {
	t.Helper()
	out := make(map[string]string)

	var walk func(p, rel string)
	walk = func(p, rel string) {
		nodes, err := listDir(fs, p)
		if err != nil {
			t.Fatalf("listDir(%q) failed: %v", p, err)
		}
		for _, n := range nodes {
			_, leaf := SplitPath(n.path)
			r := path.Join(rel, leaf)
			if n.kind == KindDirectory {
				out[r+"/"] = "/"
				walk(n.path, r)
				continue
			}
			data, _, err := readFile(fs, n.path)
			if err != nil {
				t.Fatalf("readFile(%q) failed: %v", n.path, err)
			}
			out[r] = string(data)
		}
	}
	walk(dir, "")
	return out
}

func assertTree(t *testing.T, got, want map[string]string) {
	t.Helper()
	if len(got) != len(want) {
		t.Errorf("tree has %d nodes, want %d\ngot:  %v\nwant: %v", len(got), len(want), got, want)
	}
	for p, content := range want {
		g, ok := got[p]
		if !ok {
			t.Errorf("missing %q", p)
			continue
		}
		if g != content {
			t.Errorf("%q:\ngot:  %q\nwant: %q", p, g, content)
		}
	}
}
