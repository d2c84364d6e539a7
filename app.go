package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"graphfs/internal/engine"
	"graphfs/internal/platform"
	"graphfs/internal/search"
	"graphfs/internal/store"
	"graphfs/internal/tree"
)

// Events pushed to the renderer.
const (
	eventLayout       = "layout:changed"
	eventFrame        = "positions:frame"
	eventNotice       = "notice"
	eventScanStarted  = "scan:started"
	eventScanProgress = "scan:progress"
	eventScanFinished = "scan:finished"
)

const frameInterval = time.Second / 60

var errNoArchive = errors.New("scan database unavailable")

// scanArchive is the read side of the scan database.
type scanArchive interface {
	LoadScan(root string) (*store.Snapshot, error)
	List() ([]store.Entry, error)
}

// App is the API the renderer talks to: bound into the desktop window and
// served as JSON in HTTP mode.
type App struct {
	ctx     context.Context
	eng     *engine.Engine
	mgr     *search.Manager
	archive scanArchive
	root    string
	log     *zap.Logger
}

func NewApp(eng *engine.Engine, mgr *search.Manager, archive scanArchive, root string, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	return &App{ctx: context.Background(), eng: eng, mgr: mgr, archive: archive, root: root, log: log}
}

// start runs the animation loop and the first scan for the lifetime of ctx.
// When emit is set, every engine event is forwarded to it by name.
func (a *App) start(ctx context.Context, emit func(name string, data interface{})) {
	a.ctx = ctx
	if emit != nil {
		events, unsubscribe := a.eng.Subscribe(256)
		go func() {
			defer unsubscribe()
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-events:
					if !ok {
						return
					}
					emit(eventName(ev), ev)
				}
			}
		}()
	}
	go a.eng.Run(ctx, frameInterval)
	go a.bootstrap(ctx)
}

func (a *App) bootstrap(ctx context.Context) {
	var err error
	if a.root != "" {
		_, err = a.eng.Scan(ctx, a.root)
	} else {
		err = a.eng.Bootstrap(ctx)
	}
	if err != nil && !errors.Is(err, engine.ErrScanCanceled) {
		a.log.Warn("startup scan", zap.Error(err))
	}
}

func eventName(ev engine.Event) string {
	switch ev.(type) {
	case engine.LayoutChanged:
		return eventLayout
	case engine.PositionsAnimating:
		return eventFrame
	case engine.Notice:
		return eventNotice
	case engine.ScanStarted:
		return eventScanStarted
	case engine.ScanProgress:
		return eventScanProgress
	case engine.ScanFinished:
		return eventScanFinished
	}
	return fmt.Sprintf("%T", ev)
}

// ---- view ----

func (a *App) GetView() (engine.LayoutChanged, error) { return a.eng.View() }

// Status describes what is on screen.
type Status struct {
	Root     string       `json:"root"`
	Loaded   bool         `json:"loaded"`
	Stats    search.Stats `json:"stats"`
	Filter   tree.Filter  `json:"filter"`
	Scanning bool         `json:"scanning"`
	Engine   string       `json:"engine"`
}

func (a *App) GetStatus() Status {
	root, stats, loaded := a.eng.Root()
	id, _, _ := a.mgr.Current()
	return Status{
		Root:     root,
		Loaded:   loaded,
		Stats:    stats,
		Filter:   a.eng.Filter(),
		Scanning: a.eng.Scanning(),
		Engine:   id,
	}
}

// FilterChange applies a time window (milliseconds, 0 for everything) and a
// per-directory item limit.
func (a *App) FilterChange(timeWindowMs int64, itemsPerDir int) tree.Filter {
	return a.eng.SetFilter(time.Duration(timeWindowMs)*time.Millisecond, itemsPerDir)
}

func (a *App) NodeClick(id string) (engine.Details, error)   { return a.eng.NodeClick(id) }
func (a *App) NodeDoubleClick(id string) error               { return a.eng.NodeDoubleClick(id) }
func (a *App) ShowInFolder(id string) error                  { return a.eng.ShowInFolder(id) }
func (a *App) DirectoryClick(id string) bool                 { return a.eng.DirectoryClick(id) }
func (a *App) PlaceholderClick(id string) bool               { return a.eng.PlaceholderClick(id) }
func (a *App) PathToRoot(id string) ([]string, error)        { return a.eng.PathToRoot(id) }
func (a *App) Relayout() bool                                { return a.eng.Relayout() }
func (a *App) NodeDetails(id string) (engine.Details, error) { return a.eng.Details(id) }

// ---- scans ----

// Scan scans root, or the default start path when root is empty.
func (a *App) Scan(root string) (search.Stats, error) {
	return a.eng.Scan(a.ctx, root)
}

func (a *App) CancelScan() bool { return a.eng.CancelScan() }

func (a *App) DefaultPath() string {
	return platform.Impl.DefaultStartPath()
}

func (a *App) ListEngines() []search.Info {
	ctx, cancel := context.WithTimeout(a.ctx, 10*time.Second)
	defer cancel()
	return a.mgr.List(ctx)
}

func (a *App) SetEngine(id string) error {
	if err := a.mgr.SetCurrent(id); err != nil {
		return err
	}
	a.log.Info("scan engine changed", zap.String("engine", id))
	return nil
}

// Search looks up query below the scanned root, newest first.
func (a *App) Search(query string, maxResults int) ([]search.Hit, error) {
	if query == "" {
		return nil, errors.New("empty query")
	}
	root, _, _ := a.eng.Root()
	return a.mgr.Search(a.ctx, query, search.SearchOptions{Path: root, MaxResults: maxResults})
}

// RecentScans lists the saved scans, newest first.
func (a *App) RecentScans() ([]store.Entry, error) {
	if a.archive == nil {
		return nil, errNoArchive
	}
	return a.archive.List()
}

// OpenScan shows the saved scan of root without scanning again.
func (a *App) OpenScan(root string) error {
	if a.archive == nil {
		return errNoArchive
	}
	snap, err := a.archive.LoadScan(root)
	if err != nil {
		return err
	}
	a.eng.Load(snap.Tree, snap.Root, search.Stats{
		TotalFiles: snap.TotalFiles,
		TotalDirs:  snap.TotalDirs,
		Engine:     snap.Engine,
	})
	a.log.Info("saved scan opened", zap.String("root", snap.Root), zap.Time("scanned_at", snap.ScannedAt))
	return nil
}

// ---- system ----

type MemoryInfo struct {
	RSS        uint64 `json:"rss"`
	VMS        uint64 `json:"vms"`
	HeapAlloc  uint64 `json:"heapAlloc"`
	Goroutines int    `json:"goroutines"`
	Text       string `json:"text"`
}

// MemoryUsage reports the memory held by this process.
func (a *App) MemoryUsage() (MemoryInfo, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return MemoryInfo{}, err
	}
	mi, err := p.MemoryInfo()
	if err != nil {
		return MemoryInfo{}, err
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return MemoryInfo{
		RSS:        mi.RSS,
		VMS:        mi.VMS,
		HeapAlloc:  ms.HeapAlloc,
		Goroutines: runtime.NumGoroutine(),
		Text:       fmt.Sprintf("%s resident, %s heap", humanize.Bytes(mi.RSS), humanize.Bytes(ms.HeapAlloc)),
	}, nil
}
