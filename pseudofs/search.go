package pseudofs

import "errors"

// SymloopMax bounds the number of softlink dereferences performed across
// one resolution, nested link chasing included. The budget is spent on
// every dereference, so a cyclic chain is cut off deterministically no
// matter whether its intermediate targets exist, and without the walk
// recursing deeper than the budget allows.
const SymloopMax = 40

// ErrLinkLoop reports that a softlink chain exceeded SymloopMax
// dereferences. It is the only error the searcher itself produces; a plain
// miss is reported as a nil Node with a nil error.
var ErrLinkLoop = errors.New("too many levels of symbolic links")

// SearchResult carries the outcome of a search together with enough
// neighbouring context for a follow-up Reserve or Remove.
type SearchResult struct {
	// Node is the matched inode, or nil when no inode answers to the path.
	Node *Inode

	// Peer is the highest-ordered sibling whose name is strictly less than
	// the matched or missing name, or nil when the name sorts first on its
	// level. On a successful match it is the immediate predecessor of Node.
	Peer *Inode

	// Parent is the inode whose child list the matched or missing name
	// lives in. For first-level names this is the root inode. It is nil
	// when the search jumped through a softlink onto a mountpoint, since
	// sibling context does not survive a mount jump.
	Parent *Inode

	// RelPath is the unconsumed remainder of the path when the search
	// stopped at a mountpoint, without a leading '/'. When the mountpoint
	// was reached by jumping through a softlink, it is measured from the
	// mount root: the unconsumed tail of the link target followed by the
	// unconsumed remainder of the path. Empty otherwise.
	RelPath string

	// Rest is the position the path cursor ended at: the first unconsumed
	// character. On a miss it points at the segment that failed to match,
	// on a full match it is empty.
	Rest string
}

// searchState is the internal shape of a search outcome. The danglingLink
// marker distinguishes a miss caused by an intermediate softlink whose
// target does not exist, where Peer and Parent carry no usable insert
// context.
type searchState struct {
	SearchResult
	danglingLink bool
}

// SearchNoFollow walks the tree along path and returns the terminal inode
// without dereferencing it, so a softlink at the end of the path is
// returned raw. Softlinks met in the middle of the path are still chased,
// and a mountpoint anywhere along the way absorbs the remainder of the
// path into RelPath.
//
// The path must be absolute. The caller must hold the filesystem lock.
func (fs *Filesystem) SearchNoFollow(path string) (SearchResult, error) {
	nlinks := 0
	st, err := fs.search(path, &nlinks)
	return st.SearchResult, err
}

// Search behaves like SearchNoFollow and additionally dereferences the
// terminal inode when it is a softlink, returning the link target instead.
//
// The caller must hold the filesystem lock.
func (fs *Filesystem) Search(path string) (SearchResult, error) {
	nlinks := 0
	st, err := fs.search(path, &nlinks)
	if err != nil {
		return st.SearchResult, err
	}

	if softlinksEnabled && st.Node != nil && st.Node.kind == Softlink {
		return fs.linkTarget(st.Node, &nlinks)
	}

	return st.SearchResult, nil
}

// LinkTarget dereferences a possibly chained softlink inode and returns
// the first non-link inode it reaches. A non-link argument is returned
// unchanged. A chain whose final target does not exist yields a nil Node;
// a chain longer than SymloopMax yields ErrLinkLoop.
//
// The caller must hold the filesystem lock.
func (fs *Filesystem) LinkTarget(node *Inode) (SearchResult, error) {
	nlinks := 0
	return fs.linkTarget(node, &nlinks)
}

// search is the core walk. It consumes path segment by segment, scanning
// each sorted sibling list and descending on a match, and terminates in
// one of the ways documented on SearchResult. nlinks is the shared
// dereference budget for the whole resolution.
func (fs *Filesystem) search(path string, nlinks *int) (searchState, error) {
	name := path
	if len(name) > 0 && name[0] == '/' {
		name = name[1:]
	}

	var (
		node  = fs.root.child
		left  *Inode
		above = fs.root
	)

loop:
	for node != nil {
		switch result := compareName(name, node); {
		case result < 0:
			// The name sorts before this sibling. Siblings are ordered,
			// so nothing further right can match.
			break loop

		case result > 0:
			// The name may still be to the right.
			left = node
			node = node.peer

		default:
			name = NextName(name)

			if name == "" || node.kind == Mountpoint {
				// Either the path is fully consumed and this is the inode
				// we were sent for, or a mountpoint absorbs whatever is
				// left of it. A terminal softlink is returned raw here;
				// Search dereferences it afterwards.
				return searchState{SearchResult: SearchResult{
					Node:    node,
					Peer:    left,
					Parent:  above,
					RelPath: name,
					Rest:    name,
				}}, nil
			}

			if softlinksEnabled && node.kind == Softlink {
				// An intermediate softlink is chased before descending.
				lt, err := fs.linkTarget(node, nlinks)
				if err != nil {
					return searchState{SearchResult: SearchResult{
						Peer:   left,
						Parent: above,
						Rest:   name,
					}}, err
				}
				if lt.Node == nil {
					// The link target does not exist.
					return searchState{
						SearchResult: SearchResult{
							Peer:   left,
							Parent: above,
							Rest:   name,
						},
						danglingLink: true,
					}, nil
				}
				if lt.Node != node {
					node = lt.Node
					if node.kind == Mountpoint {
						// The jump landed on a mountpoint. The residual is
						// rebuilt from the mount root: whatever of the link
						// target the sub-search did not consume, followed
						// by the unconsumed part of the caller's path.
						// Sibling context does not survive the jump.
						return searchState{SearchResult: SearchResult{
							Node:    node,
							RelPath: joinRelPath(lt.RelPath, name),
							Rest:    name,
						}}, nil
					}
				}
			}

			// Keep looking one level down.
			above = node
			left = nil
			node = node.child
		}
	}

	// No inode answers to the path. left and above tell an inserter where
	// the missing name would have to go.
	return searchState{SearchResult: SearchResult{
		Peer:   left,
		Parent: above,
		Rest:   name,
	}}, nil
}

func (fs *Filesystem) linkTarget(node *Inode, nlinks *int) (SearchResult, error) {
	res := SearchResult{Node: node}

	for res.Node != nil && softlinksEnabled && res.Node.kind == Softlink {
		*nlinks++
		if *nlinks > SymloopMax {
			return SearchResult{}, ErrLinkLoop
		}

		// Each hop runs a fresh no-follow search over the stored target
		// path; the caller's own cursor is never touched.
		st, err := fs.search(res.Node.target, nlinks)
		if err != nil {
			return st.SearchResult, err
		}
		res = st.SearchResult
	}

	return res, nil
}

// joinRelPath splices the residual of a link-target lookup onto the
// unconsumed suffix of the original path. Neither part carries a leading
// '/'.
func joinRelPath(linkRel, rest string) string {
	if linkRel == "" {
		return rest
	}
	if rest == "" {
		return linkRel
	}
	return linkRel + "/" + rest
}
