package graph

import "math"

// MtimeRange returns the oldest and newest mtime among non-placeholder nodes
// with a known mtime. ok is false when there is none.
func MtimeRange(nodes []*Node) (min, max int64, ok bool) {
	for _, n := range nodes {
		if n.IsPlaceholder() || n.Mtime <= 0 {
			continue
		}
		if !ok {
			min, max, ok = n.Mtime, n.Mtime, true
			continue
		}
		if n.Mtime < min {
			min = n.Mtime
		}
		if n.Mtime > max {
			max = n.Mtime
		}
	}
	return min, max, ok
}

// Recency scores mtime within [min, max] on a 0..1 curve that spreads out
// the recent end. 0.5 when the range is empty or mtime is unknown.
func Recency(mtime, min, max int64) float64 {
	if mtime <= 0 || max <= min {
		return 0.5
	}
	t := float64(mtime-min) / float64(max-min)
	t = math.Max(0, math.Min(1, t))
	return math.Pow(t, 0.7)
}
