package layout

// Config carries every layout tunable. Angles are in radians, lengths in
// diagram units.
type Config struct {
	BaseRadius     float64 `json:"baseRadius"`     // parent-child distance at depth 1
	RadiusDecay    float64 `json:"radiusDecay"`    // per-level factor
	MinRadius      float64 `json:"minRadius"`      // parent-child distance floor
	MinAngleGap    float64 `json:"minAngleGap"`    // shrink applied to each side of a child sector
	AnglePerWeight float64 `json:"anglePerWeight"` // ideal angular span per unit of subtree weight

	Collision CollisionConfig `json:"collision"`
	Label     LabelConfig     `json:"label"`
	NodeSize  NodeSizeConfig  `json:"nodeSize"`
}

type CollisionConfig struct {
	BaseRadius float64 `json:"baseRadius"` // semi-minor axis, and the constant part of the semi-major one
	CharWidth  float64 `json:"charWidth"`
	TextWeight float64 `json:"textWeight"`
	Iterations int     `json:"iterations"`
	Strength   float64 `json:"strength"`
}

type LabelConfig struct {
	Distance     float64 `json:"distance"` // gap between node body and label
	MaxCharsRoot int     `json:"maxCharsRoot"`
	MaxCharsNode int     `json:"maxCharsNode"`
	PadX         float64 `json:"padX"`
	PadY         float64 `json:"padY"`
	TextHeight   float64 `json:"textHeight"`
}

type NodeSizeConfig struct {
	Root      float64 `json:"root"`
	Directory float64 `json:"directory"`
	More      float64 `json:"more"`
	File      float64 `json:"file"`
}

func DefaultConfig() Config {
	return Config{
		BaseRadius:     120,
		RadiusDecay:    0.85,
		MinRadius:      80,
		MinAngleGap:    0.05,
		AnglePerWeight: 0.25,
		Collision: CollisionConfig{
			BaseRadius: 15,
			CharWidth:  5,
			TextWeight: 0.6,
			Iterations: 100,
			Strength:   0.4,
		},
		Label: LabelConfig{
			Distance:     12,
			MaxCharsRoot: 40,
			MaxCharsNode: 30,
			PadX:         4,
			PadY:         2,
			TextHeight:   12,
		},
		NodeSize: NodeSizeConfig{
			Root:      18,
			Directory: 11,
			More:      9,
			File:      7,
		},
	}
}
