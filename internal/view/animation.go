package view

import (
	"math"
	"time"
)

// DefaultAnimationDuration is the time a relayout takes to settle on screen.
const DefaultAnimationDuration = 500 * time.Millisecond

// Point is a displayed node position.
type Point struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	LabelAngle float64 `json:"labelAngle"`
}

// Animation interpolates displayed positions from Start to Target. Nodes in
// Appearing fade in over the same span. An Animation is replaced, never
// merged, by the next one.
type Animation struct {
	Start     map[string]Point
	Target    map[string]Point
	Appearing map[string]bool
	StartTime time.Time
	Duration  time.Duration
}

// Frame is what the renderer draws for one tick.
type Frame struct {
	Positions map[string]Point `json:"positions"`
	// Appearing maps fading-in nodes to their opacity (0..1).
	Appearing map[string]float64 `json:"appearing,omitempty"`
	Progress  float64            `json:"progress"`
	Done      bool               `json:"done"`
}

func easeOutCubic(t float64) float64 {
	return 1 - math.Pow(1-t, 3)
}

// Progress is the linear completion of a at now, clamped to [0, 1].
func (a *Animation) Progress(now time.Time) float64 {
	if a.Duration <= 0 {
		return 1
	}
	p := float64(now.Sub(a.StartTime)) / float64(a.Duration)
	return math.Max(0, math.Min(1, p))
}

// At evaluates a at now.
func (a *Animation) At(now time.Time) Frame {
	p := a.Progress(now)
	e := easeOutCubic(p)

	f := Frame{
		Positions: make(map[string]Point, len(a.Target)),
		Progress:  p,
		Done:      p >= 1,
	}
	for id, to := range a.Target {
		from, ok := a.Start[id]
		if !ok || f.Done {
			f.Positions[id] = to
			continue
		}
		f.Positions[id] = Point{
			X:          from.X + (to.X-from.X)*e,
			Y:          from.Y + (to.Y-from.Y)*e,
			LabelAngle: to.LabelAngle,
		}
	}
	if len(a.Appearing) > 0 && !f.Done {
		f.Appearing = make(map[string]float64, len(a.Appearing))
		for id := range a.Appearing {
			f.Appearing[id] = e
		}
	}
	return f
}
