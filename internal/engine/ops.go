package engine

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"graphfs/internal/graph"
	"graphfs/internal/metrics"
	"graphfs/internal/tree"
)

// Details is what the side panel shows for a node.
type Details struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Kind     tree.Kind `json:"type"`
	Depth    int       `json:"depth"`
	Size     int64     `json:"size,omitempty"`
	SizeText string    `json:"sizeText,omitempty"`

	Modified     time.Time `json:"modified"`
	ModifiedText string    `json:"modifiedText,omitempty"`
	ModifiedAgo  string    `json:"modifiedAgo,omitempty"`

	Dir    *tree.DirCounts `json:"dir,omitempty"`
	Hidden int             `json:"hidden,omitempty"`

	Collapsed bool    `json:"collapsed,omitempty"`
	Expanded  bool    `json:"isExpandedItem,omitempty"`
	Recency   float64 `json:"recency"`
	// PathToRoot lists the ids of the edges from the node up to the root.
	PathToRoot []string `json:"pathToRoot"`
}

// NodeClick selects id and returns its details.
func (e *Engine) NodeClick(id string) (Details, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return Details{}, ErrNoTree
	}
	n, ok := e.state.Node(id)
	if !ok {
		e.log.Debug("click on unknown node", zap.String("node", id))
		return Details{}, fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	e.selected = id
	return e.detailsLocked(n), nil
}

// Selected returns the id of the last clicked node.
func (e *Engine) Selected() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

// Details returns the details of id without selecting it.
func (e *Engine) Details(id string) (Details, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return Details{}, ErrNoTree
	}
	n, ok := e.state.Node(id)
	if !ok {
		return Details{}, fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	return e.detailsLocked(n), nil
}

func (e *Engine) detailsLocked(n *graph.Node) Details {
	d := Details{
		ID:        n.ID,
		Name:      n.Name,
		Kind:      n.Kind,
		Depth:     n.Depth,
		Dir:       n.Dir,
		Hidden:    n.HiddenCount(),
		Collapsed: n.Collapsed,
		Expanded:  n.Expanded,
	}
	if n.Kind == tree.KindFile {
		d.Size = n.Size
		d.SizeText = humanize.Bytes(uint64(max(n.Size, 0)))
	}
	if n.Mtime > 0 {
		d.Modified = time.UnixMilli(n.Mtime)
		d.ModifiedText = d.Modified.Format("2006-01-02 15:04:05")
		d.ModifiedAgo = humanize.RelTime(d.Modified, e.now(), "ago", "from now")
	}
	if !n.IsPlaceholder() {
		lo, hi, _ := graph.MtimeRange(e.state.Nodes())
		d.Recency = graph.Recency(n.Mtime, lo, hi)
	}
	for _, edge := range e.state.PathToRoot(n.ID) {
		d.PathToRoot = append(d.PathToRoot, edge.ID())
	}
	return d
}

// PathToRoot returns the edge ids from id to the root, nearest first.
func (e *Engine) PathToRoot(id string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, ErrNoTree
	}
	var out []string
	for _, edge := range e.state.PathToRoot(id) {
		out = append(out, edge.ID())
	}
	return out, nil
}

// DirectoryClick collapses or expands the directory id. It reports whether
// the view changed.
func (e *Engine) DirectoryClick(id string) bool {
	return e.mutate("toggle", func() bool { return e.state.Toggle(id) })
}

// Collapse hides the descendants of directory id.
func (e *Engine) Collapse(id string) bool {
	return e.mutate("collapse", func() bool { return e.state.Collapse(id) })
}

// Expand restores a collapsed directory.
func (e *Engine) Expand(id string) bool {
	return e.mutate("expand", func() bool { return e.state.Expand(id) })
}

// PlaceholderClick materializes the items behind placeholder id and
// reflows the diagram.
func (e *Engine) PlaceholderClick(id string) bool {
	return e.mutate("expand_placeholder", func() bool { return e.state.ExpandPlaceholder(id) })
}

// Relayout recomputes positions for the live set and animates to them.
func (e *Engine) Relayout() bool {
	return e.mutate("relayout", func() bool {
		e.state.Relayout()
		return true
	})
}

func (e *Engine) mutate(reason string, fn func() bool) bool {
	e.mu.Lock()
	if e.state == nil {
		e.mu.Unlock()
		e.log.Debug("mutation without a tree", zap.String("op", reason))
		return false
	}
	applied := fn()
	metrics.RecordMutation(reason, applied)
	if !applied {
		e.mu.Unlock()
		return false
	}
	ev := e.layoutEventLocked(reason)
	e.mu.Unlock()
	e.emit(ev)
	return true
}

// NodeDoubleClick opens id with the system's default application.
func (e *Engine) NodeDoubleClick(id string) error {
	return e.shellOp(id, "open", e.shell.OpenPath)
}

// ShowInFolder reveals id in the system file manager.
func (e *Engine) ShowInFolder(id string) error {
	return e.shellOp(id, "reveal", e.shell.ShowItemInFolder)
}

func (e *Engine) shellOp(id, op string, fn func(string) error) error {
	e.mu.Lock()
	var n graph.Node
	ok := false
	if e.state != nil {
		var live *graph.Node
		if live, ok = e.state.Node(id); ok {
			n = *live
		}
	}
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	if n.IsPlaceholder() {
		return fmt.Errorf("%s: %q is not a file or directory", op, n.Name)
	}
	if err := fn(n.ID); err != nil {
		e.log.Warn("shell operation failed", zap.String("op", op), zap.String("node", id), zap.Error(err))
		e.notice(NoticeError, fmt.Sprintf("Could not %s %s: %v", op, n.Name, err))
		return err
	}
	e.log.Debug("shell operation", zap.String("op", op), zap.String("node", id))
	return nil
}
