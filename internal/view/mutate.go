package view

import (
	"go.uber.org/zap"

	"graphfs/internal/graph"
	"graphfs/internal/layout"
	"graphfs/internal/tree"
)

// Mutation names, as logged and counted.
const (
	OpCollapse          = "collapse"
	OpExpand            = "expand"
	OpExpandPlaceholder = "expand_placeholder"
	OpRelayout          = "relayout"
)

func (s *State) noop(op, id, reason string) bool {
	s.log.Debug("mutation ignored", zap.String("op", op), zap.String("node", id), zap.String("reason", reason))
	return false
}

// Collapse hides every descendant of the directory id and keeps them for
// Expand. Siblings keep their positions; no relayout happens. It is a no-op
// (false) for unknown ids, non-directories, directories already collapsed and
// directories with nothing below them.
func (s *State) Collapse(id string) bool {
	n, ok := s.Node(id)
	switch {
	case !ok:
		return s.noop(OpCollapse, id, "unknown node")
	case n.Kind != tree.KindDirectory:
		return s.noop(OpCollapse, id, "not a directory")
	case s.IsCollapsed(id):
		return s.noop(OpCollapse, id, "already collapsed")
	}

	desc := s.index.Descendants(id)
	if len(desc) == 0 {
		return s.noop(OpCollapse, id, "no descendants")
	}

	entry := &CollapsedEntry{
		Descendants: make([]*graph.Node, 0, len(desc)),
		Edges:       make([]graph.Edge, 0, len(desc)),
	}
	gone := make(map[string]bool, len(desc))
	for _, d := range desc {
		gone[d.ID] = true
		entry.Descendants = append(entry.Descendants, d.Clone())
		if e, ok := s.index.Incoming(d.ID); ok {
			entry.Edges = append(entry.Edges, e)
		}
	}

	s.nodes = filterNodes(s.nodes, func(x *graph.Node) bool { return !gone[x.ID] })
	s.edges = filterEdges(s.edges, func(e graph.Edge) bool { return !gone[e.Target] })
	for gid := range gone {
		delete(s.display, gid)
	}
	if s.anim != nil {
		for gid := range gone {
			delete(s.anim.Start, gid)
			delete(s.anim.Target, gid)
			delete(s.anim.Appearing, gid)
		}
	}

	s.collapsed[id] = entry
	n.Collapsed = true
	s.touch()

	s.log.Debug("collapsed", zap.String("node", id), zap.Int("nodes", len(entry.Descendants)))
	return true
}

// Expand restores what Collapse(id) removed. Restored nodes come back at
// their saved positions and fade in. No-op (false) when id has no pending
// collapse.
func (s *State) Expand(id string) bool {
	entry, ok := s.collapsed[id]
	if !ok {
		return s.noop(OpExpand, id, "not collapsed")
	}
	n, ok := s.Node(id)
	if !ok {
		// the directory itself went away (its own parent collapsed)
		return s.noop(OpExpand, id, "unknown node")
	}

	appearing := make(map[string]bool, len(entry.Descendants))
	for _, d := range entry.Descendants {
		s.nodes = append(s.nodes, d.Clone())
		appearing[d.ID] = true
	}
	s.edges = append(s.edges, entry.Edges...)

	delete(s.collapsed, id)
	n.Collapsed = false
	s.touch()

	s.animate(appearing, nil)
	s.log.Debug("expanded", zap.String("node", id), zap.Int("nodes", len(entry.Descendants)))
	return true
}

// Toggle collapses an expanded directory and expands a collapsed one.
func (s *State) Toggle(id string) bool {
	if s.IsCollapsed(id) {
		return s.Expand(id)
	}
	return s.Collapse(id)
}

// ExpandPlaceholder replaces the placeholder id by the items it stands for,
// attached to the placeholder's parent along with their pruned subtrees, then
// relays out everything and animates to the new positions. New nodes start
// where the placeholder was displayed. No-op (false) for unknown ids,
// non-placeholders and placeholders without items.
func (s *State) ExpandPlaceholder(id string) bool {
	p, ok := s.Node(id)
	switch {
	case !ok:
		return s.noop(OpExpandPlaceholder, id, "unknown node")
	case !p.IsPlaceholder():
		return s.noop(OpExpandPlaceholder, id, "not a placeholder")
	case p.More == nil || len(p.More.Items) == 0:
		return s.noop(OpExpandPlaceholder, id, "no hidden items")
	}
	parent, ok := s.index.Node(p.ParentID)
	if !ok {
		return s.noop(OpExpandPlaceholder, id, "parent not in view")
	}

	added, addedEdges := graph.Materialize(p.More.Items, parent)

	// ids already live win; their subtree stays as it is
	skip := make(map[string]bool)
	for _, a := range added {
		if _, live := s.index.Node(a.ID); live || skip[a.ParentID] {
			skip[a.ID] = true
		}
	}

	spawn, ok := s.display[id]
	if !ok {
		spawn = Point{X: p.X, Y: p.Y}
	}

	s.nodes = filterNodes(s.nodes, func(x *graph.Node) bool { return x.ID != id })
	s.edges = filterEdges(s.edges, func(e graph.Edge) bool { return e.Target != id })
	delete(s.display, id)
	if s.anim != nil {
		delete(s.anim.Start, id)
		delete(s.anim.Target, id)
	}

	appearing := make(map[string]bool, len(added))
	for _, a := range added {
		if skip[a.ID] {
			continue
		}
		s.nodes = append(s.nodes, a)
		appearing[a.ID] = true
	}
	for _, e := range addedEdges {
		if !skip[e.Target] {
			s.edges = append(s.edges, e)
		}
	}
	s.touch()

	s.layout()
	s.animate(appearing, &spawn)
	s.log.Debug("placeholder expanded", zap.String("node", id), zap.Int("nodes", len(appearing)))
	return true
}

// Relayout recomputes every position and animates to it.
func (s *State) Relayout() layout.Report {
	s.layout()
	s.animate(nil, nil)
	return s.report
}

func filterNodes(in []*graph.Node, keep func(*graph.Node) bool) []*graph.Node {
	out := make([]*graph.Node, 0, len(in))
	for _, n := range in {
		if keep(n) {
			out = append(out, n)
		}
	}
	return out
}

func filterEdges(in []graph.Edge, keep func(graph.Edge) bool) []graph.Edge {
	out := make([]graph.Edge, 0, len(in))
	for _, e := range in {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
