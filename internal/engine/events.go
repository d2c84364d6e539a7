package engine

import (
	"graphfs/internal/search"
	"graphfs/internal/view"
)

// Event is a state change pushed to subscribers.
type Event interface {
	isEvent()
}

// LayoutChanged replaces the whole diagram: the live node and edge lists
// with their resting positions.
type LayoutChanged struct {
	Reason  string             `json:"reason"`
	View    view.Snapshot      `json:"view"`
	Recency map[string]float64 `json:"recency"`
	// Animating is set when PositionsAnimating frames will follow.
	Animating bool `json:"animating"`
}

func (LayoutChanged) isEvent() {}

// PositionsAnimating carries one interpolated frame.
type PositionsAnimating struct {
	Frame view.Frame `json:"frame"`
}

func (PositionsAnimating) isEvent() {}

// Notice levels.
const (
	NoticeInfo    = "info"
	NoticeWarning = "warning"
	NoticeError   = "error"
)

// Notice is a user-visible message, shown inline by the renderer.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

func (Notice) isEvent() {}

type ScanStarted struct {
	Token string `json:"token"`
	Root  string `json:"root"`
}

func (ScanStarted) isEvent() {}

type ScanProgress struct {
	Token string `json:"token"`
	search.Progress
}

func (ScanProgress) isEvent() {}

type ScanFinished struct {
	Token string       `json:"token"`
	Root  string       `json:"root"`
	Stats search.Stats `json:"stats"`
}

func (ScanFinished) isEvent() {}
