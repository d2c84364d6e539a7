// Package tree holds a scanned filesystem snapshot and the bounded view
// derived from it.
package tree

import (
	"fmt"
)

// Kind tags every node of the raw and pruned trees.
type Kind uint8

const (
	KindDirectory Kind = iota
	KindFile
	KindMoreDirs
	KindMoreFiles
)

var kindNames = [...]string{
	KindDirectory: "directory",
	KindFile:      "file",
	KindMoreDirs:  "more-dirs",
	KindMoreFiles: "more-files",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// IsPlaceholder reports whether k is one of the "+N more" kinds.
func (k Kind) IsPlaceholder() bool { return k == KindMoreDirs || k == KindMoreFiles }

func (k Kind) MarshalText() ([]byte, error) {
	if int(k) >= len(kindNames) {
		return nil, fmt.Errorf("tree: unknown kind %d", uint8(k))
	}
	return []byte(kindNames[k]), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	for i, name := range kindNames {
		if name == string(b) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("tree: unknown kind %q", b)
}

// =====================
// Raw snapshot
// =====================

// RawNode is one entry of a scan result. Paths are unique across the tree and
// a child's path is its parent's path plus a separator and its name.
type RawNode struct {
	Name     string     `json:"name"`
	Path     string     `json:"path"`
	Kind     Kind       `json:"type"`
	Mtime    int64      `json:"mtime"` // epoch milliseconds
	Size     int64      `json:"size,omitempty"`
	Children []*RawNode `json:"children,omitempty"`
}

func (n *RawNode) IsDir() bool { return n.Kind == KindDirectory }

// Count returns the number of nodes in the subtree rooted at n.
func Count(n *RawNode) int {
	if n == nil {
		return 0
	}
	total := 1
	for _, c := range n.Children {
		total += Count(c)
	}
	return total
}

// =====================
// Pruned view
// =====================

// DirCounts is attached to pruned directories only.
type DirCounts struct {
	HiddenDirs  int `json:"hiddenDirsCount"`
	HiddenFiles int `json:"hiddenFilesCount"`
	TotalDirs   int `json:"totalDirsCount"`
	TotalFiles  int `json:"totalFilesCount"`
}

// Placeholder is attached to more-dirs / more-files nodes only. Items keeps
// every pruned-away sibling, itself pruned, so it can be materialized later
// without scanning again.
type Placeholder struct {
	Hidden int           `json:"hidden"`
	Total  int           `json:"total"`
	Items  []*PrunedNode `json:"hiddenItems"`
}

// PrunedNode is a node of the bounded view. Dir is set for directories, More
// for placeholders, neither for files.
type PrunedNode struct {
	Name     string        `json:"name"`
	Path     string        `json:"path"`
	Kind     Kind          `json:"type"`
	Mtime    int64         `json:"mtime"`
	Size     int64         `json:"size,omitempty"`
	Children []*PrunedNode `json:"children,omitempty"`

	Dir  *DirCounts   `json:"dir,omitempty"`
	More *Placeholder `json:"more,omitempty"`
}

// Walk visits n and its descendants in pre-order. Placeholder items are not
// visited; they are not part of the visible tree.
func (n *PrunedNode) Walk(fn func(node *PrunedNode, depth int)) {
	var visit func(*PrunedNode, int)
	visit = func(p *PrunedNode, depth int) {
		fn(p, depth)
		for _, c := range p.Children {
			visit(c, depth+1)
		}
	}
	if n != nil {
		visit(n, 0)
	}
}

// PlaceholderPath returns the synthetic id of the placeholder of kind k under
// the directory at parentPath.
func PlaceholderPath(parentPath string, k Kind) string {
	if k == KindMoreDirs {
		return parentPath + "/__more_dirs__"
	}
	return parentPath + "/__more_files__"
}

func placeholderName(k Kind, hidden int) string {
	if k == KindMoreDirs {
		if hidden == 1 {
			return "... +1 folder"
		}
		return fmt.Sprintf("... +%d folders", hidden)
	}
	if hidden == 1 {
		return "... +1 file"
	}
	return fmt.Sprintf("... +%d files", hidden)
}
