package layout

import (
	"math"
	"strings"

	"github.com/mattn/go-runewidth"

	"graphfs/internal/graph"
	"graphfs/internal/tree"
)

const ellipsis = "…"

// Truncate shortens name to at most max display cells, ending in an
// ellipsis. A file extension survives when there is room for at least one
// cell of the base name in front of it.
func Truncate(name string, max int) string {
	if runewidth.StringWidth(name) <= max {
		return name
	}
	if dot := strings.LastIndex(name, "."); dot > 0 {
		ext := name[dot:]
		if avail := max - runewidth.StringWidth(ext) - 1; avail > 0 {
			return runewidth.Truncate(name[:dot], avail, "") + ellipsis + ext
		}
	}
	if max <= 1 {
		return ellipsis
	}
	return runewidth.Truncate(name, max-1, "") + ellipsis
}

// DisplayName is the label text drawn for n. Placeholder names are never
// shortened.
func (c Config) DisplayName(n *graph.Node) string {
	if n.IsPlaceholder() {
		return n.Name
	}
	if n.IsRoot() {
		return Truncate(n.Name, c.Label.MaxCharsRoot)
	}
	return Truncate(n.Name, c.Label.MaxCharsNode)
}

// NodeRadius is the drawn radius of the node body.
func (c Config) NodeRadius(n *graph.Node) float64 {
	switch {
	case n.IsRoot():
		return c.NodeSize.Root
	case n.Kind == tree.KindDirectory:
		return c.NodeSize.Directory
	case n.IsPlaceholder():
		return c.NodeSize.More
	default:
		return c.NodeSize.File
	}
}

// TextWidth estimates the rendered width of n's label.
func (c Config) TextWidth(n *graph.Node) float64 {
	return float64(runewidth.StringWidth(c.DisplayName(n))) * c.Collision.CharWidth
}

// TextCenter returns the offset from a node's position to the center of its
// label box. The box sits distance away along labelAngle and is anchored on
// the side facing the node, by quadrant. The root's label hangs below it.
func TextCenter(labelAngle, distance, textWidth, textHeight float64, isRoot bool, padX, padY float64) (x, y float64) {
	bw := textWidth + 2*padX
	bh := textHeight + 2*padY
	if isRoot {
		return 0, distance + bh/2
	}

	x = math.Cos(labelAngle) * distance
	y = math.Sin(labelAngle) * distance

	a := math.Mod(labelAngle, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	switch {
	case a < math.Pi/4 || a > 7*math.Pi/4: // right
		x += bw / 2
	case a < 3*math.Pi/4: // down
		y += bh / 2
	case a < 5*math.Pi/4: // left
		x -= bw / 2
	default: // up
		y -= bh / 2
	}
	return x, y
}

// EllipseRadius is the distance from the center of an axis-aligned ellipse
// with semi-axes a (x) and b (y) to its boundary in direction theta.
func EllipseRadius(a, b, theta float64) float64 {
	bc := b * math.Cos(theta)
	as := a * math.Sin(theta)
	d := math.Sqrt(bc*bc + as*as)
	if d == 0 {
		return 0
	}
	return a * b / d
}

type ellipse struct {
	cx, cy float64
	a, b   float64
}

// labelEllipse approximates n's label footprint at its current position.
func (c Config) labelEllipse(n *graph.Node) ellipse {
	w := c.TextWidth(n)
	ox, oy := TextCenter(n.LabelAngle, c.NodeRadius(n)+c.Label.Distance, w, c.Label.TextHeight, n.IsRoot(), c.Label.PadX, c.Label.PadY)
	return ellipse{
		cx: n.X + ox,
		cy: n.Y + oy,
		a:  c.Collision.BaseRadius + w*c.Collision.TextWeight,
		b:  c.Collision.BaseRadius,
	}
}
