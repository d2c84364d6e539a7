// Package view owns the live diagram: the node and edge lists derived from
// one pruned tree, the directories collapsed by the user, the lookup caches
// over the live lists, and the animation of displayed positions.
//
// A State is not safe for concurrent use; the engine serializes access.
package view

import (
	"time"

	"go.uber.org/zap"

	"graphfs/internal/graph"
	"graphfs/internal/layout"
	"graphfs/internal/metrics"
	"graphfs/internal/tree"
)

// CollapsedEntry is everything a collapse removed, kept for the matching
// expand.
type CollapsedEntry struct {
	Descendants []*graph.Node
	Edges       []graph.Edge
}

type State struct {
	cfg      layout.Config
	log      *zap.Logger
	now      func() time.Time
	duration time.Duration

	rootID string
	nodes  []*graph.Node
	edges  []graph.Edge

	// rev moves on every structural change to nodes/edges.
	rev        uint64
	index      *graph.Index
	weights    map[string]int
	weightsRev uint64

	collapsed map[string]*CollapsedEntry

	display map[string]Point
	anim    *Animation
	report  layout.Report
}

type Option func(*State)

func WithLogger(l *zap.Logger) Option { return func(s *State) { s.log = l } }

// WithClock replaces time.Now for animation timing.
func WithClock(now func() time.Time) Option { return func(s *State) { s.now = now } }

func WithAnimationDuration(d time.Duration) Option { return func(s *State) { s.duration = d } }

// New flattens root and lays it out. The initial positions are displayed
// as-is, without animation.
func New(root *tree.PrunedNode, cfg layout.Config, opts ...Option) *State {
	s := &State{
		cfg:       cfg,
		log:       zap.NewNop(),
		now:       time.Now,
		duration:  DefaultAnimationDuration,
		index:     graph.NewIndex(),
		collapsed: make(map[string]*CollapsedEntry),
		display:   make(map[string]Point),
	}
	for _, o := range opts {
		o(s)
	}
	if root == nil {
		return s
	}

	s.rootID = root.Path
	s.nodes, s.edges = graph.Flatten(root)
	s.touch()
	s.layout()
	for _, n := range s.nodes {
		s.display[n.ID] = pointOf(n)
	}
	return s
}

func pointOf(n *graph.Node) Point { return Point{X: n.X, Y: n.Y, LabelAngle: n.LabelAngle} }

// touch marks a structural change: caches keyed by the old revision go stale.
func (s *State) touch() {
	s.rev++
	metrics.SetViewNodes(len(s.nodes))
}

func (s *State) sync() {
	s.index.Sync(s.rev, s.nodes, s.edges)
}

func (s *State) layout() {
	start := time.Now()
	s.report = layout.Layout(s.rootID, s.nodes, s.edges, s.cfg)
	took := time.Since(start)
	metrics.RecordLayout(took)
	s.log.Debug("layout",
		zap.Int("nodes", len(s.nodes)),
		zap.Int("edges", len(s.edges)),
		zap.Float64("residual_overlap", s.report.Residual()),
		zap.Duration("duration", took),
	)
}

// ---- read access ----

func (s *State) RootID() string   { return s.rootID }
func (s *State) Revision() uint64 { return s.rev }
func (s *State) Len() int         { return len(s.nodes) }

// Nodes returns the live nodes. Callers must not modify them.
func (s *State) Nodes() []*graph.Node { return s.nodes }

// Edges returns the live edges. Callers must not modify them.
func (s *State) Edges() []graph.Edge { return s.edges }

func (s *State) Node(id string) (*graph.Node, bool) {
	s.sync()
	return s.index.Node(id)
}

// Index returns the lookup index, rebuilt first if the live set changed.
func (s *State) Index() *graph.Index {
	s.sync()
	return s.index
}

// Weights returns subtree weights for the live set, recomputed when it
// changed.
func (s *State) Weights() map[string]int {
	if s.weights == nil || s.weightsRev != s.rev {
		s.weights = graph.Weights(s.nodes)
		s.weightsRev = s.rev
	}
	return s.weights
}

// IsCollapsed reports whether id has a pending collapse snapshot.
func (s *State) IsCollapsed(id string) bool {
	_, ok := s.collapsed[id]
	return ok
}

// CollapsedCount is the number of pending collapse snapshots.
func (s *State) CollapsedCount() int { return len(s.collapsed) }

// LastLayout is the report of the most recent layout pass.
func (s *State) LastLayout() layout.Report { return s.report }

// PathToRoot returns the edges from id up to the root.
func (s *State) PathToRoot(id string) []graph.Edge {
	s.sync()
	return s.index.PathToRoot(id)
}

// Snapshot copies the live set so it can leave the owner's lock.
type Snapshot struct {
	RootID   string       `json:"rootId"`
	Revision uint64       `json:"revision"`
	Nodes    []graph.Node `json:"nodes"`
	Edges    []graph.Edge `json:"edges"`
}

func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		RootID:   s.rootID,
		Revision: s.rev,
		Nodes:    make([]graph.Node, len(s.nodes)),
		Edges:    make([]graph.Edge, len(s.edges)),
	}
	for i, n := range s.nodes {
		snap.Nodes[i] = *n
	}
	copy(snap.Edges, s.edges)
	return snap
}

// ---- animation ----

// Animating reports whether a position animation is running.
func (s *State) Animating() bool { return s.anim != nil }

// Animation returns the running animation, or nil.
func (s *State) Animation() *Animation { return s.anim }

// Displayed returns the position currently on screen for id.
func (s *State) Displayed(id string) (Point, bool) {
	p, ok := s.display[id]
	return p, ok
}

// Tick advances the running animation to now and returns the frame to draw.
// Without an animation the frame holds the resting positions and is Done.
func (s *State) Tick(now time.Time) Frame {
	if s.anim == nil {
		f := Frame{Positions: make(map[string]Point, len(s.nodes)), Progress: 1, Done: true}
		for _, n := range s.nodes {
			f.Positions[n.ID] = s.display[n.ID]
		}
		return f
	}
	f := s.anim.At(now)
	for id, p := range f.Positions {
		s.display[id] = p
	}
	if f.Done {
		s.anim = nil
	}
	return f
}

// animate starts a new animation from the displayed positions to the current
// layout, replacing any running one. Nodes without a displayed position start
// at spawn (or at their target when spawn is nil) and fade in.
func (s *State) animate(appearing map[string]bool, spawn *Point) {
	a := &Animation{
		Start:     make(map[string]Point, len(s.nodes)),
		Target:    make(map[string]Point, len(s.nodes)),
		Appearing: appearing,
		StartTime: s.now(),
		Duration:  s.duration,
	}
	for _, n := range s.nodes {
		to := pointOf(n)
		a.Target[n.ID] = to
		from, ok := s.display[n.ID]
		if !ok {
			from = to
			if spawn != nil {
				from = Point{X: spawn.X, Y: spawn.Y, LabelAngle: to.LabelAngle}
			}
			s.display[n.ID] = from
		}
		a.Start[n.ID] = from
	}
	s.anim = a
}
