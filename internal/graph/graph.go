// Package graph flattens a pruned tree into the node and edge lists the
// layout and mutation passes work on.
package graph

import (
	"encoding/json"

	"graphfs/internal/tree"
)

// Node is one vertex of the live diagram. ID is the filesystem path (or the
// synthetic placeholder path) and is unique across the live set.
type Node struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Kind     tree.Kind `json:"type"`
	Depth    int       `json:"depth"`
	ParentID string    `json:"parentId,omitempty"` // empty for the root
	Mtime    int64     `json:"mtime"`
	Size     int64     `json:"size,omitempty"`

	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	LabelAngle float64 `json:"labelAngle"`

	Dir  *tree.DirCounts   `json:"dir,omitempty"`
	More *tree.Placeholder `json:"-"`

	Collapsed bool `json:"collapsed,omitempty"`
	// Expanded marks nodes materialized from a placeholder.
	Expanded bool `json:"isExpandedItem,omitempty"`
}

func (n *Node) IsRoot() bool        { return n.ParentID == "" }
func (n *Node) IsDir() bool         { return n.Kind == tree.KindDirectory }
func (n *Node) IsPlaceholder() bool { return n.Kind.IsPlaceholder() }

// HiddenCount is the number of items a placeholder stands for.
func (n *Node) HiddenCount() int {
	if n.More == nil {
		return 0
	}
	return n.More.Hidden
}

// MarshalJSON adds hiddenCount so renderers can tell how many items a
// placeholder stands for without reading its label.
func (n Node) MarshalJSON() ([]byte, error) {
	type plain Node
	return json.Marshal(struct {
		plain
		HiddenCount int `json:"hiddenCount,omitempty"`
	}{plain(n), n.HiddenCount()})
}

// Clone returns a shallow copy of n. Dir and More are shared; both are
// immutable once produced by the pruner.
func (n *Node) Clone() *Node {
	c := *n
	return &c
}

// Edge links a parent (Source) to one of its children (Target).
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

func (e Edge) ID() string { return e.Source + "->" + e.Target }

// Flatten walks root in pre-order and returns one Node per pruned node and
// one Edge per non-root node. Placeholder items are carried on their
// placeholder node, not flattened.
func Flatten(root *tree.PrunedNode) ([]*Node, []Edge) {
	if root == nil {
		return nil, nil
	}
	var nodes []*Node
	var edges []Edge
	nodes, edges = appendSubtree(nodes, edges, root, "", 0, false)
	return nodes, edges
}

// Materialize flattens items as children of parent, marking every produced
// node as expanded from a placeholder. Items that are directories bring their
// already pruned subtrees along.
func Materialize(items []*tree.PrunedNode, parent *Node) ([]*Node, []Edge) {
	var nodes []*Node
	var edges []Edge
	for _, it := range items {
		nodes, edges = appendSubtree(nodes, edges, it, parent.ID, parent.Depth+1, true)
	}
	return nodes, edges
}

type frame struct {
	node     *tree.PrunedNode
	parentID string
	depth    int
}

func appendSubtree(nodes []*Node, edges []Edge, top *tree.PrunedNode, parentID string, depth int, expanded bool) ([]*Node, []Edge) {
	stack := []frame{{top, parentID, depth}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		p := f.node
		n := &Node{
			ID:       p.Path,
			Name:     p.Name,
			Kind:     p.Kind,
			Depth:    f.depth,
			ParentID: f.parentID,
			Mtime:    p.Mtime,
			Size:     p.Size,
			Dir:      p.Dir,
			More:     p.More,
			Expanded: expanded,
		}
		nodes = append(nodes, n)
		if f.parentID != "" {
			edges = append(edges, Edge{Source: f.parentID, Target: n.ID})
		}

		// reversed so children pop in their original order
		for i := len(p.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{p.Children[i], n.ID, f.depth + 1})
		}
	}
	return nodes, edges
}

// Weights maps every node id to 1 + the sum of its children's weights.
// Children are derived from ParentID, so any node order works.
func Weights(nodes []*Node) map[string]int {
	children := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		if n.ParentID != "" {
			children[n.ParentID] = append(children[n.ParentID], n.ID)
		}
	}

	w := make(map[string]int, len(nodes))
	type item struct {
		id   string
		done bool
	}
	for _, n := range nodes {
		if _, ok := w[n.ID]; ok {
			continue
		}
		stack := []item{{n.ID, false}}
		for len(stack) > 0 {
			it := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if _, ok := w[it.id]; ok {
				continue
			}
			if !it.done {
				stack = append(stack, item{it.id, true})
				for _, c := range children[it.id] {
					if _, ok := w[c]; !ok {
						stack = append(stack, item{c, false})
					}
				}
				continue
			}
			sum := 1
			for _, c := range children[it.id] {
				sum += w[c]
			}
			w[it.id] = sum
		}
	}
	return w
}
