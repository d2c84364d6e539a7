package graph

// Index holds the id lookups over a live node/edge set. It is stamped with
// the revision of the set it was built from; Sync rebuilds whenever the
// revision moves, so lookups never outlive the arrays they were built over.
type Index struct {
	rev      uint64
	builds   int
	byID     map[string]*Node
	incoming map[string]Edge
	children map[string][]*Node
}

func NewIndex() *Index { return &Index{} }

// Sync rebuilds the index if rev differs from the revision it was built at.
// It reports whether a rebuild happened.
func (ix *Index) Sync(rev uint64, nodes []*Node, edges []Edge) bool {
	if ix.byID != nil && ix.rev == rev {
		return false
	}
	ix.byID = make(map[string]*Node, len(nodes))
	ix.children = make(map[string][]*Node, len(nodes))
	for _, n := range nodes {
		ix.byID[n.ID] = n
		if n.ParentID != "" {
			ix.children[n.ParentID] = append(ix.children[n.ParentID], n)
		}
	}
	ix.incoming = make(map[string]Edge, len(edges))
	for _, e := range edges {
		ix.incoming[e.Target] = e
	}
	ix.rev = rev
	ix.builds++
	return true
}

// Revision is the revision the index was last built at.
func (ix *Index) Revision() uint64 { return ix.rev }

// Builds counts rebuilds since creation.
func (ix *Index) Builds() int { return ix.builds }

func (ix *Index) Node(id string) (*Node, bool) {
	n, ok := ix.byID[id]
	return n, ok
}

// Incoming returns the edge whose target is id.
func (ix *Index) Incoming(id string) (Edge, bool) {
	e, ok := ix.incoming[id]
	return e, ok
}

func (ix *Index) Children(id string) []*Node { return ix.children[id] }

// Descendants returns every node below id, parents before children.
func (ix *Index) Descendants(id string) []*Node {
	var out []*Node
	seen := map[string]bool{id: true}
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, c := range ix.children[cur] {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			out = append(out, c)
			queue = append(queue, c.ID)
		}
	}
	return out
}

// PathToRoot returns the edges from id up to the root, nearest first.
func (ix *Index) PathToRoot(id string) []Edge {
	var out []Edge
	seen := map[string]bool{}
	for cur := id; !seen[cur]; {
		seen[cur] = true
		e, ok := ix.incoming[cur]
		if !ok {
			break
		}
		out = append(out, e)
		cur = e.Source
	}
	return out
}
