// Package layout places a live node set as a radial node-link diagram.
//
// Placement is a recursive angular subdivision: every node owns a sector,
// its children share the part of that sector their combined subtree weight
// asks for, and each child sits at the center of its share, a depth-decayed
// distance away from its parent. A relaxation pass then pushes overlapping
// label ellipses apart.
package layout

import (
	"math"

	"graphfs/internal/graph"
)

// Sector is an angular interval [Start, End).
type Sector struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (s Sector) Span() float64 { return s.End - s.Start }

// Contains reports whether angle lies in [Start, End).
func (s Sector) Contains(angle float64) bool { return angle >= s.Start && angle < s.End }

// Placement records where a node was put during subdivision: its angle, and
// the sector its parent handed out to its children.
type Placement struct {
	Angle  float64 `json:"angle"`
	Parent Sector  `json:"parent"`
}

// Report describes one layout pass.
type Report struct {
	Placement map[string]Placement `json:"placement"`
	// Overlap holds the summed label overlap measured at the start of each
	// relaxation iteration.
	Overlap []float64 `json:"overlap"`
}

// Residual is the overlap at the start of the last relaxation iteration.
func (r Report) Residual() float64 {
	if len(r.Overlap) == 0 {
		return 0
	}
	return r.Overlap[len(r.Overlap)-1]
}

// rootSector is the full circle handed to the root, centered on angle 0.
var rootSector = Sector{Start: -math.Pi, End: math.Pi}

// Layout rewrites X, Y and LabelAngle of every node reachable from rootID.
// Children are taken from edges in edge order. Layout is deterministic for a
// given input.
func Layout(rootID string, nodes []*graph.Node, edges []graph.Edge, cfg Config) Report {
	rep := Report{Placement: make(map[string]Placement, len(nodes))}

	byID := make(map[string]*graph.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	root, ok := byID[rootID]
	if !ok {
		return rep
	}

	children := make(map[string][]*graph.Node, len(nodes))
	for _, e := range edges {
		if c, ok := byID[e.Target]; ok {
			children[e.Source] = append(children[e.Source], c)
		}
	}
	weights := graph.Weights(nodes)

	root.X, root.Y = 0, 0
	root.LabelAngle = math.Pi / 2

	placed := subdivide(root, children, weights, cfg, rep.Placement)
	setLabelAngles(placed, root)
	rep.Overlap = relax(placed, root, cfg)
	setLabelAngles(placed, root)
	return rep
}

type span struct {
	node   *graph.Node
	sector Sector
	depth  int
}

// subdivide places every node below root and returns the placed set,
// root first.
func subdivide(root *graph.Node, children map[string][]*graph.Node, weights map[string]int, cfg Config, out map[string]Placement) []*graph.Node {
	placed := []*graph.Node{root}
	stack := []span{{root, rootSector, 0}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		kids := children[s.node.ID]
		if len(kids) == 0 {
			continue
		}
		total := 0
		for _, k := range kids {
			total += weights[k.ID]
		}

		avail := s.sector.Span()
		used := math.Min(avail, float64(total)*cfg.AnglePerWeight)
		start := s.sector.Start + (avail-used)/2

		depth := s.depth + 1
		radius := math.Max(cfg.BaseRadius*math.Pow(cfg.RadiusDecay, float64(depth-1)), cfg.MinRadius)

		// pushed in reverse so siblings are processed in order
		next := make([]span, 0, len(kids))
		for _, k := range kids {
			share := float64(weights[k.ID]) / float64(total) * used
			angle := start + share/2

			k.X = s.node.X + math.Cos(angle)*radius
			k.Y = s.node.Y + math.Sin(angle)*radius
			out[k.ID] = Placement{Angle: angle, Parent: s.sector}
			placed = append(placed, k)

			gap := math.Min(cfg.MinAngleGap, share/4)
			next = append(next, span{k, Sector{Start: start + gap, End: start + share - gap}, depth})
			start += share
		}
		for i := len(next) - 1; i >= 0; i-- {
			stack = append(stack, next[i])
		}
	}
	return placed
}

// setLabelAngles points every label away from the diagram origin. The root's
// label points down.
func setLabelAngles(nodes []*graph.Node, root *graph.Node) {
	for _, n := range nodes {
		if n == root {
			n.LabelAngle = math.Pi / 2
			continue
		}
		n.LabelAngle = math.Atan2(n.Y, n.X)
	}
}
