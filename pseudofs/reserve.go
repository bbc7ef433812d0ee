package pseudofs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExist       = errors.New("inode exists")
	ErrNotFound    = errors.New("no such inode")
	ErrNotEmpty    = errors.New("inode has children")
	ErrMountpoint  = errors.New("path descends into a mounted filesystem")
	ErrInvalidPath = errors.New("invalid path")
)

// Reserve creates the inode named by path and returns it. Missing
// intermediate segments are created as ordinary inodes; the final segment
// is created with the given kind, and for a softlink with the given
// absolute target path. Every new inode is spliced into its sibling list
// at the position the preceding search determined, which keeps each level
// in ascending name order.
//
// The caller must hold the filesystem lock.
func (fs *Filesystem) Reserve(path string, kind Kind, target string) (*Inode, error) {
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("%w: '%s' is not absolute", ErrInvalidPath, path)
	}
	if kind == Softlink && !strings.HasPrefix(target, "/") {
		return nil, fmt.Errorf("%w: link target '%s' is not absolute", ErrInvalidPath, target)
	}

	nlinks := 0
	st, err := fs.search(path, &nlinks)
	if err != nil {
		return nil, err
	}

	if st.Node != nil {
		if st.RelPath != "" {
			// A mountpoint along the way owns everything below itself.
			return nil, fmt.Errorf("%w: '%s'", ErrMountpoint, path)
		}
		return nil, fmt.Errorf("%w: '%s'", ErrExist, path)
	}

	if st.danglingLink {
		// The miss happened inside a softlink whose target is gone; the
		// returned sibling context belongs to the link, not to the place
		// the new inode would live.
		return nil, fmt.Errorf("%w: dangling link in '%s'", ErrNotFound, path)
	}

	segments := strings.Split(st.Rest, "/")
	for _, segment := range segments {
		if segment == "" {
			return nil, fmt.Errorf("%w: empty segment in '%s'", ErrInvalidPath, path)
		}
	}

	parent, peer := st.Parent, st.Peer

	var node *Inode
	for i, segment := range segments {
		node = &Inode{name: segment}
		if i == len(segments)-1 {
			node.kind = kind
			if kind == Softlink {
				node.target = target
			}
		}

		if peer != nil {
			// Insert to the right of the last lesser sibling.
			node.peer = peer.peer
			peer.peer = node
		} else {
			// The name sorts first on its level.
			node.peer = parent.child
			parent.child = node
		}

		// Deeper segments start a fresh, single-entry level.
		parent, peer = node, nil
	}

	return node, nil
}

// Remove unlinks the inode named by path. The inode must exist, must not
// have children, and must not live inside a mounted filesystem. A softlink
// is removed itself, its target is left alone.
//
// The caller must hold the filesystem lock.
func (fs *Filesystem) Remove(path string) error {
	nlinks := 0
	st, err := fs.search(path, &nlinks)
	if err != nil {
		return err
	}

	if st.Node == nil {
		return fmt.Errorf("%w: '%s'", ErrNotFound, path)
	}
	if st.RelPath != "" {
		return fmt.Errorf("%w: '%s'", ErrMountpoint, path)
	}
	if st.Node.child != nil {
		return fmt.Errorf("%w: '%s'", ErrNotEmpty, path)
	}

	if st.Peer != nil {
		st.Peer.peer = st.Node.peer
	} else {
		st.Parent.child = st.Node.peer
	}
	st.Node.peer = nil

	return nil
}
