package pseudofs

import "testing"

type testEntry struct {
	path   string
	kind   Kind
	target string
}

func newTestFilesystem(t *testing.T, entries []testEntry) *Filesystem {
	t.Helper()

	fs := New()
	fs.Lock()
	defer fs.Unlock()
	for _, e := range entries {
		if _, err := fs.Reserve(e.path, e.kind, e.target); err != nil {
			t.Fatalf("reserve %s: %v", e.path, err)
		}
	}
	return fs
}

// contextName renders an inode for fixture comparison: "" for nil, "/" for
// the root, the inode name otherwise.
func contextName(fs *Filesystem, node *Inode) string {
	if node == nil {
		return ""
	}
	if node == fs.root {
		return "/"
	}
	return node.name
}
