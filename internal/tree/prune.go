package tree

import (
	"sort"
	"time"
)

// Filter bounds.
const (
	DefaultItemsPerDir = 3
	MinItemsPerDir     = 1
	MaxItemsPerDir     = 10
)

// Filter is the user-facing view configuration. A zero TimeWindow disables
// the time filter.
type Filter struct {
	TimeWindow  time.Duration `json:"timeWindow"`
	ItemsPerDir int           `json:"itemsPerDir"`
}

// DefaultFilter shows everything, three items per directory and type.
func DefaultFilter() Filter {
	return Filter{ItemsPerDir: DefaultItemsPerDir}
}

// Normalize clamps ItemsPerDir into range and negative windows to zero.
func (f Filter) Normalize() Filter {
	switch {
	case f.ItemsPerDir < MinItemsPerDir:
		f.ItemsPerDir = MinItemsPerDir
	case f.ItemsPerDir > MaxItemsPerDir:
		f.ItemsPerDir = MaxItemsPerDir
	}
	if f.TimeWindow < 0 {
		f.TimeWindow = 0
	}
	return f
}

// Prune derives the bounded view of root: per directory, at most
// f.ItemsPerDir subdirectories (ranked by the newest mtime anywhere in their
// subtree) and f.ItemsPerDir files (ranked by mtime), ties kept in original
// order. Everything else that passes the time filter is folded into a
// more-dirs / more-files placeholder appended after the kept children.
//
// root always passes the time filter. Prune never modifies root.
func Prune(root *RawNode, f Filter, now time.Time) *PrunedNode {
	if root == nil {
		return nil
	}
	f = f.Normalize()
	p := &pruner{
		limit:  f.ItemsPerDir,
		timed:  f.TimeWindow > 0,
		cutoff: now.UnixMilli() - f.TimeWindow.Milliseconds(),
		newest: make(map[*RawNode]int64),
	}
	return p.prune(root)
}

type pruner struct {
	limit  int
	timed  bool
	cutoff int64
	newest map[*RawNode]int64
}

// newestMtime is the max mtime over n and all of its descendants.
func (p *pruner) newestMtime(n *RawNode) int64 {
	if v, ok := p.newest[n]; ok {
		return v
	}
	max := n.Mtime
	for _, c := range n.Children {
		if m := p.newestMtime(c); m > max {
			max = m
		}
	}
	p.newest[n] = max
	return max
}

func (p *pruner) passes(n *RawNode) bool {
	if !p.timed {
		return true
	}
	if n.Kind == KindDirectory {
		return p.newestMtime(n) >= p.cutoff
	}
	return n.Mtime >= p.cutoff
}

// rank keeps the nodes passing the time filter, newest first, and splits them
// at the limit.
func (p *pruner) rank(nodes []*RawNode, key func(*RawNode) int64) (kept, hidden []*RawNode) {
	passing := make([]*RawNode, 0, len(nodes))
	for _, n := range nodes {
		if p.passes(n) {
			passing = append(passing, n)
		}
	}
	sort.SliceStable(passing, func(i, j int) bool { return key(passing[i]) > key(passing[j]) })
	if len(passing) <= p.limit {
		return passing, nil
	}
	return passing[:p.limit], passing[p.limit:]
}

func (p *pruner) prune(n *RawNode) *PrunedNode {
	out := &PrunedNode{
		Name:  n.Name,
		Path:  n.Path,
		Kind:  n.Kind,
		Mtime: n.Mtime,
		Size:  n.Size,
	}
	if n.Kind != KindDirectory {
		return out
	}

	var dirs, files []*RawNode
	for _, c := range n.Children {
		switch c.Kind {
		case KindDirectory:
			dirs = append(dirs, c)
		case KindFile:
			files = append(files, c)
		}
	}

	keptDirs, hiddenDirs := p.rank(dirs, p.newestMtime)
	keptFiles, hiddenFiles := p.rank(files, func(f *RawNode) int64 { return f.Mtime })

	out.Children = make([]*PrunedNode, 0, len(keptDirs)+len(keptFiles)+2)
	for _, d := range keptDirs {
		out.Children = append(out.Children, p.prune(d))
	}
	for _, f := range keptFiles {
		out.Children = append(out.Children, p.prune(f))
	}
	if len(hiddenDirs) > 0 {
		out.Children = append(out.Children, p.placeholder(n.Path, KindMoreDirs, hiddenDirs, len(dirs)))
	}
	if len(hiddenFiles) > 0 {
		out.Children = append(out.Children, p.placeholder(n.Path, KindMoreFiles, hiddenFiles, len(files)))
	}

	out.Dir = &DirCounts{
		HiddenDirs:  len(hiddenDirs),
		HiddenFiles: len(hiddenFiles),
		TotalDirs:   len(dirs),
		TotalFiles:  len(files),
	}
	return out
}

func (p *pruner) placeholder(parentPath string, k Kind, hidden []*RawNode, total int) *PrunedNode {
	items := make([]*PrunedNode, 0, len(hidden))
	for _, h := range hidden {
		items = append(items, p.prune(h))
	}
	return &PrunedNode{
		Name: placeholderName(k, len(hidden)),
		Path: PlaceholderPath(parentPath, k),
		Kind: k,
		More: &Placeholder{Hidden: len(hidden), Total: total, Items: items},
	}
}

// NewestMtime returns the newest mtime found in the subtree rooted at n.
func NewestMtime(n *RawNode) int64 {
	if n == nil {
		return 0
	}
	p := &pruner{newest: make(map[*RawNode]int64)}
	return p.newestMtime(n)
}
