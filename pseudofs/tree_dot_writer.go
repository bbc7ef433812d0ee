package pseudofs

import (
	"fmt"
	"io"
	"os"

	graph "github.com/awalterschulze/gographviz"
)

// TreeDotWriter provides functions for writing the structure of the inode
// tree to a write buffer. A convenience function for writing the structure
// directly to a file is also provided.
//
// TreeDotWriter writes the tree structure to a plain-text file using the
// DOT language specified by Graphviz. Inodes are coloured by kind, and a
// softlink additionally carries a dashed edge pointing at the textual
// target path.
type TreeDotWriter struct {
	ColorScheme       string
	BaseColorForRoot  uint32
	BaseColorForFile  uint32
	BaseColorForMount uint32
	BaseColorForLink  uint32
}

func NewTreeDotWriter() *TreeDotWriter {
	return &TreeDotWriter{
		ColorScheme:       "set312",
		BaseColorForRoot:  1,
		BaseColorForFile:  6,
		BaseColorForMount: 4,
		BaseColorForLink:  2,
	}
}

func (t *TreeDotWriter) WriteToFile(filename string, fs *Filesystem) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if err := file.Close(); err != nil {
			panic(err)
		}
	}()
	return t.Write(file, fs)
}

func (t *TreeDotWriter) Write(w io.Writer, fs *Filesystem) error {
	const GraphName = "G"

	g := graph.NewEscape()

	if err := g.SetName(GraphName); err != nil {
		return err
	}
	if err := g.SetDir(true); err != nil {
		return err
	}

	rootLabel := `"/"`
	rootAttrs := map[string]string{
		"color":       fmt.Sprintf("%d", t.BaseColorForRoot),
		"colorscheme": t.ColorScheme,
		"style":       "filled",
		"shape":       "polygon",
	}
	if err := g.AddNode(GraphName, rootLabel, rootAttrs); err != nil {
		return err
	}

	if err := t.writeLevel(g, rootLabel, fs.root.child, "/"); err != nil {
		return err
	}

	_, err := w.Write([]byte(g.String()))
	return err
}

// writeLevel walks one sibling list and recurses into each child list.
// Labels carry the full path so equal names on different levels stay
// distinct graph nodes.
func (t *TreeDotWriter) writeLevel(g *graph.Escape, parentLabel string, first *Inode, parentPath string) error {
	for node := first; node != nil; node = node.peer {
		path := parentPath + node.name

		label := fmt.Sprintf(`"%s[k=%s]"`, path, node.kind)
		attrs := t.nodeAttrsFor(node)

		if err := g.AddNode(parentLabel, label, attrs); err != nil {
			return err
		}
		if err := g.AddEdge(parentLabel, label, true, nil); err != nil {
			return err
		}

		if node.kind == Softlink {
			targetLabel := fmt.Sprintf(`"%s"`, node.target)
			targetAttrs := map[string]string{"shape": "plaintext"}
			if err := g.AddNode(parentLabel, targetLabel, targetAttrs); err != nil {
				return err
			}
			if err := g.AddEdge(label, targetLabel, true, map[string]string{"style": "dashed"}); err != nil {
				return err
			}
		}

		if node.child != nil {
			if err := t.writeLevel(g, label, node.child, path+"/"); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *TreeDotWriter) nodeAttrsFor(node *Inode) map[string]string {
	attrs := map[string]string{
		"colorscheme": t.ColorScheme,
		"style":       "filled",
	}

	var color uint32
	switch node.kind {
	case Mountpoint:
		color = t.BaseColorForMount
	case Softlink:
		color = t.BaseColorForLink
	default:
		color = t.BaseColorForFile
	}
	attrs["color"] = fmt.Sprintf("%d", color)

	if node.child == nil {
		attrs["shape"] = "box"
	}

	return attrs
}
