package layout

import (
	"math"

	"graphfs/internal/graph"
)

// relax runs the pairwise label-ellipse separation over nodes and returns
// the overlap measured at the start of each iteration. Push strength decays
// linearly from 1 at the first iteration to 0 at the last. root never moves.
func relax(nodes []*graph.Node, root *graph.Node, cfg Config) []float64 {
	iters := cfg.Collision.Iterations
	if iters <= 0 || len(nodes) < 2 {
		return nil
	}
	overlap := make([]float64, 0, iters)
	ells := make([]ellipse, len(nodes))

	for it := 0; it < iters; it++ {
		alpha := 1.0
		if iters > 1 {
			alpha = 1 - float64(it)/float64(iters-1)
		}
		for i, n := range nodes {
			ells[i] = cfg.labelEllipse(n)
		}

		total := 0.0
		for i := 0; i < len(nodes); i++ {
			for j := i + 1; j < len(nodes); j++ {
				ei, ej := ells[i], ells[j]
				dx := ej.cx - ei.cx
				dy := ej.cy - ei.cy
				dist := math.Hypot(dx, dy)

				var ux, uy float64
				if dist == 0 {
					ux, uy = 1, 0
				} else {
					ux, uy = dx/dist, dy/dist
				}
				theta := math.Atan2(uy, ux)
				need := EllipseRadius(ei.a, ei.b, theta) + EllipseRadius(ej.a, ej.b, theta)
				if dist >= need {
					continue
				}
				o := need - dist
				total += o

				push := o / 2 * cfg.Collision.Strength * alpha
				if push == 0 {
					continue
				}
				if nodes[i] != root {
					nodes[i].X -= ux * push
					nodes[i].Y -= uy * push
				}
				if nodes[j] != root {
					nodes[j].X += ux * push
					nodes[j].Y += uy * push
				}
			}
		}
		overlap = append(overlap, total)
	}
	return overlap
}

// Overlaps returns every pair of nodes whose label ellipses overlap by more
// than tolerance, as index pairs into nodes.
func Overlaps(nodes []*graph.Node, cfg Config, tolerance float64) [][2]int {
	ells := make([]ellipse, len(nodes))
	for i, n := range nodes {
		ells[i] = cfg.labelEllipse(n)
	}
	var out [][2]int
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			dx := ells[j].cx - ells[i].cx
			dy := ells[j].cy - ells[i].cy
			theta := math.Atan2(dy, dx)
			need := EllipseRadius(ells[i].a, ells[i].b, theta) + EllipseRadius(ells[j].a, ells[j].b, theta)
			if need-math.Hypot(dx, dy) > tolerance {
				out = append(out, [2]int{i, j})
			}
		}
	}
	return out
}
