// Package search produces raw filesystem trees for the viewer. Several
// engines can back a scan: a portable concurrent directory walk, and the
// host's file index (plocate/locate, Everything) where one is installed.
package search

import (
	"context"
	"errors"
	"time"

	"graphfs/internal/tree"
)

var (
	// ErrUnavailable wraps the engine's own message when its backing tool is
	// not ready.
	ErrUnavailable = errors.New("search engine unavailable")
	ErrNoEngine    = errors.New("no search engine available")
	ErrUnknown     = errors.New("unknown search engine")
)

// DefaultTopFiles is used by index engines that cannot list a whole subtree.
const DefaultTopFiles = 50

// Status is an engine's availability report.
type Status struct {
	Available bool   `json:"available"`
	Message   string `json:"message"`
}

// Info describes a registered engine.
type Info struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Message   string `json:"message"`
	Current   bool   `json:"current"`
}

// Scan phases reported through Options.OnProgress.
const (
	PhaseScanning     = "scanning"
	PhaseBuildingTree = "building-tree"
	PhaseDone         = "done"
)

type Progress struct {
	Phase   string `json:"phase"`
	Message string `json:"message,omitempty"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
}

type Options struct {
	// TopFiles keeps only the N most recently modified files of the whole
	// scan, with the directories leading to them. 0 keeps everything.
	TopFiles   int
	OnProgress func(Progress)
}

func (o Options) progress(p Progress) {
	if o.OnProgress != nil {
		o.OnProgress(p)
	}
}

type Stats struct {
	TotalFiles int           `json:"totalFiles"`
	TotalDirs  int           `json:"totalDirs"`
	Engine     string        `json:"engine"`
	Duration   time.Duration `json:"duration"`
	// Disk figures are only filled for scans of a mount root.
	DiskTotal uint64 `json:"diskTotal,omitempty"`
	DiskFree  uint64 `json:"diskFree,omitempty"`
}

type Result struct {
	Tree  *tree.RawNode `json:"tree"`
	Stats Stats         `json:"stats"`
}

// Hit is one search result.
type Hit struct {
	Name  string    `json:"name"`
	Path  string    `json:"path"`
	Kind  tree.Kind `json:"type"`
	Mtime int64     `json:"mtime"`
}

type SearchOptions struct {
	Path       string // limit to this subtree
	MaxResults int    // 0 means 1000
}

func (o SearchOptions) max() int {
	if o.MaxResults <= 0 {
		return 1000
	}
	return o.MaxResults
}

// Engine is a scan backend. Scan and Search stop when ctx is canceled and
// return ctx.Err().
type Engine interface {
	Name() string
	Available(ctx context.Context) Status
	Scan(ctx context.Context, root string, opts Options) (*Result, error)
	Search(ctx context.Context, query string, opts SearchOptions) ([]Hit, error)
}
