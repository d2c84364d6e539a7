// Package engine ties the pieces of the viewer together. It owns the raw
// scan tree, the filter and the live view, runs scans one at a time, turns
// renderer gestures into view mutations, and publishes the results as
// events.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"graphfs/internal/graph"
	"graphfs/internal/layout"
	"graphfs/internal/metrics"
	"graphfs/internal/platform"
	"graphfs/internal/search"
	"graphfs/internal/store"
	"graphfs/internal/tree"
	"graphfs/internal/view"
)

var (
	ErrScanUnavailable = errors.New("scan unavailable")
	ErrScanFailed      = errors.New("scan failed")
	// ErrScanInProgress is returned under ScanPolicyReject.
	ErrScanInProgress = errors.New("scan already in progress")
	// ErrScanCanceled is returned by a scan that was canceled or superseded
	// by a newer one; its result is dropped.
	ErrScanCanceled = errors.New("scan canceled")
	ErrNoTree       = errors.New("no tree loaded")
	ErrUnknownNode  = errors.New("unknown node")
)

// Scanner runs one scan. *search.Manager satisfies it.
type Scanner interface {
	Scan(ctx context.Context, root string, opts search.Options) (*search.Result, error)
}

// Store persists scans. *store.Store satisfies it.
type Store interface {
	SaveLastScan(*store.Snapshot) error
	LoadLastScan() (*store.Snapshot, error)
}

// Shell opens paths outside the app.
type Shell interface {
	OpenPath(string) error
	ShowItemInFolder(string) error
}

// ScanPolicy decides what a scan request does while another is running.
type ScanPolicy int

const (
	ScanPolicyCancel ScanPolicy = iota // cancel the running scan
	ScanPolicyReject                   // fail with ErrScanInProgress
)

type Engine struct {
	scanner  Scanner
	store    Store
	shell    Shell
	log      *zap.Logger
	now      func() time.Time
	cfg      layout.Config
	policy   ScanPolicy
	topFiles int
	animDur  time.Duration

	mu       sync.Mutex
	filter   tree.Filter
	raw      *tree.RawNode
	root     string
	stats    search.Stats
	state    *view.State
	selected string

	scanMu     sync.Mutex
	scanToken  string
	scanCancel context.CancelFunc

	subMu sync.Mutex
	subs  map[int]chan Event
	next  int
}

type Option func(*Engine)

func WithStore(s Store) Option                { return func(e *Engine) { e.store = s } }
func WithShell(s Shell) Option                { return func(e *Engine) { e.shell = s } }
func WithLogger(l *zap.Logger) Option         { return func(e *Engine) { e.log = l } }
func WithClock(now func() time.Time) Option   { return func(e *Engine) { e.now = now } }
func WithLayoutConfig(c layout.Config) Option { return func(e *Engine) { e.cfg = c } }
func WithScanPolicy(p ScanPolicy) Option      { return func(e *Engine) { e.policy = p } }
func WithFilter(f tree.Filter) Option         { return func(e *Engine) { e.filter = f.Normalize() } }

// WithTopFiles limits scans to the n most recently modified files.
func WithTopFiles(n int) Option { return func(e *Engine) { e.topFiles = n } }

func WithAnimationDuration(d time.Duration) Option { return func(e *Engine) { e.animDur = d } }

func New(scanner Scanner, opts ...Option) *Engine {
	e := &Engine{
		scanner: scanner,
		shell:   platform.Impl,
		log:     zap.NewNop(),
		now:     time.Now,
		cfg:     layout.DefaultConfig(),
		filter:  tree.DefaultFilter(),
		animDur: view.DefaultAnimationDuration,
		subs:    make(map[int]chan Event),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// ---- events ----

// Subscribe returns a channel receiving every event from now on, and a
// function that ends the subscription. Slow subscribers lose events rather
// than block the engine.
func (e *Engine) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)
	e.subMu.Lock()
	id := e.next
	e.next++
	e.subs[id] = ch
	e.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.subMu.Lock()
			delete(e.subs, id)
			e.subMu.Unlock()
			close(ch)
		})
	}
}

func (e *Engine) emit(ev Event) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for id, ch := range e.subs {
		select {
		case ch <- ev:
		default:
			e.log.Debug("event dropped", zap.Int("subscriber", id))
		}
	}
}

func (e *Engine) notice(level, msg string) {
	e.emit(Notice{Level: level, Message: msg})
}

// ---- tree and filter ----

// Load replaces the raw tree and rebuilds the view from it.
func (e *Engine) Load(raw *tree.RawNode, root string, stats search.Stats) {
	e.mu.Lock()
	e.raw, e.root, e.stats = raw, root, stats
	e.rebuildLocked()
	ev := e.layoutEventLocked("load")
	e.mu.Unlock()
	e.emit(ev)
}

// rebuildLocked discards every derived structure and builds the view again
// from the raw tree.
func (e *Engine) rebuildLocked() {
	start := time.Now()
	pruned := tree.Prune(e.raw, e.filter, e.now())
	metrics.RecordPrune(time.Since(start))

	e.state = view.New(pruned, e.cfg,
		view.WithLogger(e.log),
		view.WithClock(e.now),
		view.WithAnimationDuration(e.animDur),
	)
	e.selected = ""
	e.log.Info("view rebuilt",
		zap.String("root", e.root),
		zap.Int("items_per_dir", e.filter.ItemsPerDir),
		zap.Duration("time_window", e.filter.TimeWindow),
		zap.Int("nodes", e.state.Len()),
	)
}

// SetFilter applies a new time window and items-per-directory limit and
// rebuilds the whole view. It returns the filter in effect after clamping.
func (e *Engine) SetFilter(window time.Duration, itemsPerDir int) tree.Filter {
	e.mu.Lock()
	e.filter = tree.Filter{TimeWindow: window, ItemsPerDir: itemsPerDir}.Normalize()
	f := e.filter
	if e.raw == nil {
		e.mu.Unlock()
		return f
	}
	e.rebuildLocked()
	ev := e.layoutEventLocked("filter")
	e.mu.Unlock()
	e.emit(ev)
	return f
}

func (e *Engine) Filter() tree.Filter {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filter
}

// Root returns the scanned root and its stats.
func (e *Engine) Root() (string, search.Stats, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.root, e.stats, e.raw != nil
}

// View returns the current diagram.
func (e *Engine) View() (LayoutChanged, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return LayoutChanged{}, ErrNoTree
	}
	return e.layoutEventLocked("view"), nil
}

func (e *Engine) layoutEventLocked(reason string) LayoutChanged {
	return LayoutChanged{
		Reason:    reason,
		View:      e.state.Snapshot(),
		Recency:   recency(e.state.Nodes()),
		Animating: e.state.Animating(),
	}
}

func recency(nodes []*graph.Node) map[string]float64 {
	lo, hi, _ := graph.MtimeRange(nodes)
	out := make(map[string]float64, len(nodes))
	for _, n := range nodes {
		if n.IsPlaceholder() {
			continue
		}
		out[n.ID] = graph.Recency(n.Mtime, lo, hi)
	}
	return out
}

// ---- animation ----

// Tick advances the running animation to the engine clock and returns the
// frame to draw.
func (e *Engine) Tick() (view.Frame, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return view.Frame{}, ErrNoTree
	}
	return e.state.Tick(e.now()), nil
}

// Run publishes a PositionsAnimating event every interval while an
// animation is running, until ctx is done.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second / 60
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			e.mu.Lock()
			if e.state == nil || !e.state.Animating() {
				e.mu.Unlock()
				continue
			}
			f := e.state.Tick(e.now())
			e.mu.Unlock()
			e.emit(PositionsAnimating{Frame: f})
		}
	}
}
