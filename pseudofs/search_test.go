package pseudofs

import (
	"errors"
	"fmt"
	"testing"
)

///////////////////////////////////////////////////////////////////////////////////////////////////
// Fixture types
///////////////////////////////////////////////////////////////////////////////////////////////////

type searchFixture []struct {
	path    string
	follow  bool
	node    string // expected terminal inode name, "" on miss
	relPath string
	parent  string // "/" is the root inode, "" is nil
	peer    string
	rest    string
}

///////////////////////////////////////////////////////////////////////////////////////////////////
// Test helpers
///////////////////////////////////////////////////////////////////////////////////////////////////

func assertSearches(t *testing.T, fs *Filesystem, fixture searchFixture) {
	t.Helper()

	fs.Lock()
	defer fs.Unlock()
	for _, f := range fixture {
		var (
			res SearchResult
			err error
		)
		if f.follow {
			res, err = fs.Search(f.path)
		} else {
			res, err = fs.SearchNoFollow(f.path)
		}
		if err != nil {
			t.Errorf("search %q: unexpected error %v", f.path, err)
			continue
		}

		if got := contextName(fs, res.Node); got != f.node {
			t.Errorf("search %q: node = %q, want %q", f.path, got, f.node)
		}
		if res.RelPath != f.relPath {
			t.Errorf("search %q: relpath = %q, want %q", f.path, res.RelPath, f.relPath)
		}
		if got := contextName(fs, res.Parent); got != f.parent {
			t.Errorf("search %q: parent = %q, want %q", f.path, got, f.parent)
		}
		if got := contextName(fs, res.Peer); got != f.peer {
			t.Errorf("search %q: peer = %q, want %q", f.path, got, f.peer)
		}
		if res.Rest != f.rest {
			t.Errorf("search %q: rest = %q, want %q", f.path, res.Rest, f.rest)
		}
	}
}

// The /bin /dev /mnt tree. Entries are reserved out of name order so the
// sibling lists are exercised through real splicing.
func newBasicTree(t *testing.T) *Filesystem {
	return newTestFilesystem(t, []testEntry{
		{path: "/mnt", kind: Mountpoint},
		{path: "/bin/sh"},
		{path: "/dev/null"},
		{path: "/bin/ls"},
	})
}

func newLinkTree(t *testing.T) *Filesystem {
	return newTestFilesystem(t, []testEntry{
		{path: "/real/conf"},
		{path: "/mnt", kind: Mountpoint},
		{path: "/etc/conf", kind: Softlink, target: "/real/conf"},
		{path: "/etc/mlink", kind: Softlink, target: "/mnt"},
		{path: "/etc/dlink", kind: Softlink, target: "/mnt/x"},
		{path: "/lnkdir", kind: Softlink, target: "/real"},
		{path: "/dangling", kind: Softlink, target: "/nope"},
	})
}

///////////////////////////////////////////////////////////////////////////////////////////////////
// Test functions
///////////////////////////////////////////////////////////////////////////////////////////////////

func TestSearch_BasicTree(t *testing.T) {
	fs := newBasicTree(t)

	fixture := searchFixture{
		{path: "/bin/ls", follow: true, node: "ls", parent: "bin"},
		{path: "/bin/sh", follow: true, node: "sh", parent: "bin", peer: "ls"},
		{path: "/bin/zz", follow: true, parent: "bin", peer: "sh", rest: "zz"},
		{path: "/aaa", follow: true, parent: "/", rest: "aaa"},
		{path: "/mnt/a/b/c", follow: true, node: "mnt", relPath: "a/b/c", parent: "/", peer: "dev", rest: "a/b/c"},
		{path: "/dev/null", follow: true, node: "null", parent: "dev"},
		// larger than every top-level name
		{path: "/zzz", follow: true, parent: "/", peer: "mnt", rest: "zzz"},
		// deeper than the tree goes
		{path: "/bin/ls/x", follow: true, parent: "ls", rest: "x"},
		// trailing slash matches on the end-of-string check
		{path: "/bin/", follow: true, node: "bin", parent: "/"},
		{path: "/bin/ls/", follow: true, node: "ls", parent: "bin"},
		// empty segments never match
		{path: "//bin", follow: true, parent: "/", rest: "/bin"},
		{path: "/bin//ls", follow: true, parent: "bin", rest: "/ls"},
		// the root itself is reported as a miss
		{path: "/", follow: true, parent: "/"},
	}

	assertSearches(t, fs, fixture)
}

// Without softlinks or mountpoints in the way, the follow and no-follow
// walks must agree on everything.
func TestSearch_FollowEquivalence(t *testing.T) {
	fs := newBasicTree(t)

	paths := []string{
		"/bin", "/bin/ls", "/bin/sh", "/bin/zz", "/dev", "/dev/null",
		"/aaa", "/zzz", "/", "/bin/", "//x", "/dev/null/deep",
	}

	fs.Lock()
	defer fs.Unlock()
	for _, path := range paths {
		follow, errF := fs.Search(path)
		nofollow, errN := fs.SearchNoFollow(path)
		if errF != nil || errN != nil {
			t.Fatalf("search %q: errors %v / %v", path, errF, errN)
		}
		if follow != nofollow {
			t.Errorf("search %q: follow %+v != nofollow %+v", path, follow, nofollow)
		}
	}
}

func TestSearch_Softlinks(t *testing.T) {
	fs := newLinkTree(t)

	fixture := searchFixture{
		// terminal link dereferenced by Search
		{path: "/etc/conf", follow: true, node: "conf", parent: "real"},
		// and returned raw by SearchNoFollow
		{path: "/etc/conf", follow: false, node: "conf", parent: "etc"},
		// an intermediate link is always chased
		{path: "/lnkdir/conf", follow: false, node: "conf", parent: "real"},
		// terminal link onto a mountpoint
		{path: "/etc/mlink", follow: true, node: "mnt", parent: "/", peer: "lnkdir"},
		// mountpoint reached through a mid-path link absorbs the rest;
		// sibling context does not survive the jump
		{path: "/etc/mlink/extra", follow: true, node: "mnt", relPath: "extra", rest: "extra"},
		// the residual is rebuilt from the mount root when the link target
		// carries its own tail
		{path: "/etc/dlink/y/z", follow: true, node: "mnt", relPath: "x/y/z", rest: "y/z"},
		// a dangling terminal link is a miss for Search; the remaining
		// outputs describe where its target would have lived
		{path: "/dangling", follow: true, parent: "/", peer: "mnt", rest: "nope"},
		// but the raw link is still there for SearchNoFollow
		{path: "/dangling", follow: false, node: "dangling", parent: "/"},
	}

	assertSearches(t, fs, fixture)
}

func TestSearch_DanglingIntermediateLink(t *testing.T) {
	fs := newLinkTree(t)

	fs.Lock()
	defer fs.Unlock()
	res, err := fs.Search("/dangling/sub")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Node != nil {
		t.Errorf("node = %q, want miss", res.Node.name)
	}
}

func TestSearch_LinkCycle(t *testing.T) {
	fs := newTestFilesystem(t, []testEntry{
		{path: "/a", kind: Softlink, target: "/b"},
		{path: "/b", kind: Softlink, target: "/a"},
	})

	fs.Lock()
	defer fs.Unlock()

	if _, err := fs.Search("/a"); !errors.Is(err, ErrLinkLoop) {
		t.Errorf("Search(/a) error = %v, want ErrLinkLoop", err)
	}
	if _, err := fs.Search("/a/sub"); !errors.Is(err, ErrLinkLoop) {
		t.Errorf("Search(/a/sub) error = %v, want ErrLinkLoop", err)
	}

	// The raw links themselves are still reachable.
	res, err := fs.SearchNoFollow("/a")
	if err != nil || res.Node == nil || !res.Node.IsSoftlink() {
		t.Errorf("SearchNoFollow(/a) = %+v, %v, want the raw link", res, err)
	}
}

// Two links whose targets route through each other force the walker to
// re-enter itself. The shared dereference budget has to cut this off
// instead of recursing without bound.
func TestSearch_MutuallyRecursiveLinks(t *testing.T) {
	fs := newTestFilesystem(t, []testEntry{
		{path: "/a", kind: Softlink, target: "/b/c"},
		{path: "/b", kind: Softlink, target: "/a/c"},
	})

	fs.Lock()
	defer fs.Unlock()
	if _, err := fs.Search("/a/c"); !errors.Is(err, ErrLinkLoop) {
		t.Errorf("Search(/a/c) error = %v, want ErrLinkLoop", err)
	}
}

func TestLinkTarget_ChainBound(t *testing.T) {
	chain := func(t *testing.T, links int) *Filesystem {
		entries := []testEntry{{path: "/target"}}
		for i := 0; i < links; i++ {
			next := fmt.Sprintf("/link%03d", i+1)
			if i == links-1 {
				next = "/target"
			}
			entries = append(entries, testEntry{
				path:   fmt.Sprintf("/link%03d", i),
				kind:   Softlink,
				target: next,
			})
		}
		return newTestFilesystem(t, entries)
	}

	// A chain exactly at the bound resolves.
	fs := chain(t, SymloopMax)
	fs.Lock()
	res, err := fs.Search("/link000")
	fs.Unlock()
	if err != nil {
		t.Fatalf("chain of %d: %v", SymloopMax, err)
	}
	if res.Node == nil || res.Node.name != "target" {
		t.Fatalf("chain of %d: node = %+v, want target", SymloopMax, res.Node)
	}

	// One more link tips it over.
	fs = chain(t, SymloopMax+1)
	fs.Lock()
	_, err = fs.Search("/link000")
	fs.Unlock()
	if !errors.Is(err, ErrLinkLoop) {
		t.Fatalf("chain of %d: error = %v, want ErrLinkLoop", SymloopMax+1, err)
	}
}

func TestLinkTarget_NonLinkReturnsItself(t *testing.T) {
	fs := newBasicTree(t)

	fs.Lock()
	defer fs.Unlock()
	res, _ := fs.SearchNoFollow("/bin/ls")
	ls := res.Node

	lt, err := fs.LinkTarget(ls)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lt.Node != ls {
		t.Errorf("LinkTarget(ls) = %+v, want ls itself", lt.Node)
	}
}

func TestLinkTarget_Chained(t *testing.T) {
	fs := newTestFilesystem(t, []testEntry{
		{path: "/file"},
		{path: "/l1", kind: Softlink, target: "/l2"},
		{path: "/l2", kind: Softlink, target: "/file"},
	})

	fs.Lock()
	defer fs.Unlock()
	res, _ := fs.SearchNoFollow("/l1")
	lt, err := fs.LinkTarget(res.Node)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lt.Node == nil || lt.Node.name != "file" {
		t.Errorf("LinkTarget chain = %+v, want file", lt.Node)
	}
}
