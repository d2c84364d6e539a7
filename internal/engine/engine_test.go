package engine

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"graphfs/internal/platform"
	"graphfs/internal/search"
	"graphfs/internal/store"
	"graphfs/internal/tree"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func rfile(parent, name string, age time.Duration) *tree.RawNode {
	return &tree.RawNode{Name: name, Path: parent + "/" + name, Kind: tree.KindFile, Mtime: t0.Add(-age).UnixMilli(), Size: 1}
}

// rawTree prunes (3 per directory) to 10 nodes:
//
//	/r
//	├── a ── 1, 2, b ── x
//	├── f0 f1 f2
//	└── more-files -> f3 f4
func rawTree(root string) *tree.RawNode {
	r := &tree.RawNode{Name: "r", Path: root, Kind: tree.KindDirectory, Mtime: t0.UnixMilli(), Children: []*tree.RawNode{
		{Name: "a", Path: root + "/a", Kind: tree.KindDirectory, Mtime: t0.Add(-time.Minute).UnixMilli(), Children: []*tree.RawNode{
			rfile(root+"/a", "1", time.Minute),
			rfile(root+"/a", "2", 2*time.Minute),
			{Name: "b", Path: root + "/a/b", Kind: tree.KindDirectory, Mtime: t0.Add(-3 * time.Minute).UnixMilli(), Children: []*tree.RawNode{
				rfile(root+"/a/b", "x", 3*time.Minute),
			}},
		}},
	}}
	for i := 0; i < 5; i++ {
		r.Children = append(r.Children, rfile(root, fmt.Sprintf("f%d", i), time.Duration(i)*time.Hour))
	}
	return r
}

// fakeScanner serves rawTree for any root. Scans of "/slow" block until
// their context ends.
type fakeScanner struct {
	mu      sync.Mutex
	roots   []string
	err     error
	started chan string
}

func (f *fakeScanner) Scan(ctx context.Context, root string, opts search.Options) (*search.Result, error) {
	f.mu.Lock()
	f.roots = append(f.roots, root)
	err := f.err
	f.mu.Unlock()
	if f.started != nil {
		f.started <- root
	}
	if root == "/slow" {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	opts.OnProgress(search.Progress{Phase: search.PhaseDone, Current: 5, Total: 5})
	return &search.Result{Tree: rawTree(root), Stats: search.Stats{TotalFiles: 8, TotalDirs: 3, Engine: "fake"}}, nil
}

type memStore struct {
	last  *store.Snapshot
	saves int
}

func (m *memStore) SaveLastScan(s *store.Snapshot) error {
	m.last = s
	m.saves++
	return nil
}

func (m *memStore) LoadLastScan() (*store.Snapshot, error) {
	if m.last == nil {
		return nil, store.ErrNotFound
	}
	return m.last, nil
}

type fakeShell struct {
	opened, revealed []string
	err              error
}

func (s *fakeShell) OpenPath(p string) error {
	s.opened = append(s.opened, p)
	return s.err
}

func (s *fakeShell) ShowItemInFolder(p string) error {
	s.revealed = append(s.revealed, p)
	return s.err
}

func newEngine(t *testing.T, opts ...Option) (*Engine, *fakeScanner, *fakeClock) {
	t.Helper()
	clk := &fakeClock{now: t0}
	sc := &fakeScanner{}
	opts = append([]Option{WithClock(clk.Now)}, opts...)
	return New(sc, opts...), sc, clk
}

func drain(ch <-chan Event) []Event {
	var out []Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func nodeIDs(lc LayoutChanged) map[string]bool {
	out := make(map[string]bool, len(lc.View.Nodes))
	for _, n := range lc.View.Nodes {
		out[n.ID] = true
	}
	return out
}

func mustView(t *testing.T, e *Engine) LayoutChanged {
	t.Helper()
	v, err := e.View()
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	return v
}

func TestEngineWithoutTree(t *testing.T) {
	e, _, _ := newEngine(t)
	if _, err := e.View(); !errors.Is(err, ErrNoTree) {
		t.Errorf("View = %v; want ErrNoTree", err)
	}
	if e.DirectoryClick("/r/a") {
		t.Error("DirectoryClick without a tree reported a change")
	}
	if _, err := e.NodeClick("/r"); !errors.Is(err, ErrNoTree) {
		t.Errorf("NodeClick = %v; want ErrNoTree", err)
	}
	if got := e.SetFilter(time.Hour, 50); got.ItemsPerDir != tree.MaxItemsPerDir {
		t.Errorf("SetFilter clamped ItemsPerDir to %d; want %d", got.ItemsPerDir, tree.MaxItemsPerDir)
	}
}

func TestEngineScanLoadsAndPersists(t *testing.T) {
	ms := &memStore{}
	e, sc, _ := newEngine(t, WithStore(ms), WithTopFiles(50))
	events, unsubscribe := e.Subscribe(64)
	defer unsubscribe()

	stats, err := e.Scan(context.Background(), "/r")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if stats.Engine != "fake" {
		t.Errorf("stats.Engine = %q; want fake", stats.Engine)
	}
	if got := sc.roots; !reflect.DeepEqual(got, []string{"/r"}) {
		t.Errorf("scanned roots = %v; want [/r]", got)
	}
	if v := mustView(t, e); len(v.View.Nodes) != 10 || v.View.RootID != "/r" {
		t.Errorf("view has %d nodes rooted at %q; want 10 at /r", len(v.View.Nodes), v.View.RootID)
	}
	if ms.saves != 1 || ms.last.Root != "/r" || !ms.last.ScannedAt.Equal(t0) {
		t.Errorf("store saves = %d, last = %+v; want one save of /r at t0", ms.saves, ms.last)
	}
	if e.Scanning() {
		t.Error("Scanning() = true after the scan returned")
	}

	var kinds []string
	for _, ev := range drain(events) {
		kinds = append(kinds, fmt.Sprintf("%T", ev))
	}
	want := []string{"engine.ScanStarted", "engine.ScanProgress", "engine.LayoutChanged", "engine.ScanFinished"}
	if !reflect.DeepEqual(kinds, want) {
		t.Errorf("events = %v; want %v", kinds, want)
	}
}

func TestEngineScanErrors(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		want  error
		level string
	}{
		{"unavailable", fmt.Errorf("%w: es.exe not found", search.ErrUnavailable), ErrScanUnavailable, NoticeWarning},
		{"no engine", search.ErrNoEngine, ErrScanUnavailable, NoticeWarning},
		{"failed", errors.New("disk on fire"), ErrScanFailed, NoticeError},
		{"canceled", context.Canceled, ErrScanCanceled, NoticeInfo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, sc, _ := newEngine(t)
			e.Load(rawTree("/old"), "/old", search.Stats{})
			events, unsubscribe := e.Subscribe(16)
			defer unsubscribe()

			sc.err = tt.err
			_, err := e.Scan(context.Background(), "/r")
			if !errors.Is(err, tt.want) || !errors.Is(err, tt.err) {
				t.Fatalf("Scan = %v; want %v wrapping %v", err, tt.want, tt.err)
			}
			if v := mustView(t, e); v.View.RootID != "/old" {
				t.Errorf("view root = %q; want the previous tree kept", v.View.RootID)
			}

			var notices []Notice
			for _, ev := range drain(events) {
				if n, ok := ev.(Notice); ok {
					notices = append(notices, n)
				}
			}
			if len(notices) != 1 || notices[0].Level != tt.level {
				t.Errorf("notices = %+v; want one %s", notices, tt.level)
			}
		})
	}
}

func TestEngineNewScanCancelsRunningOne(t *testing.T) {
	e, sc, _ := newEngine(t)
	sc.started = make(chan string, 2)

	slow := make(chan error, 1)
	go func() {
		_, err := e.Scan(context.Background(), "/slow")
		slow <- err
	}()
	<-sc.started

	if _, err := e.Scan(context.Background(), "/r"); err != nil {
		t.Fatalf("second Scan: %v", err)
	}
	if err := <-slow; !errors.Is(err, ErrScanCanceled) {
		t.Errorf("first Scan = %v; want ErrScanCanceled", err)
	}
	if v := mustView(t, e); v.View.RootID != "/r" {
		t.Errorf("view root = %q; want /r", v.View.RootID)
	}
}

func TestEngineRejectPolicy(t *testing.T) {
	e, sc, _ := newEngine(t, WithScanPolicy(ScanPolicyReject))
	sc.started = make(chan string, 2)

	slow := make(chan error, 1)
	go func() {
		_, err := e.Scan(context.Background(), "/slow")
		slow <- err
	}()
	<-sc.started

	if _, err := e.Scan(context.Background(), "/r"); !errors.Is(err, ErrScanInProgress) {
		t.Fatalf("second Scan = %v; want ErrScanInProgress", err)
	}
	if !e.CancelScan() {
		t.Fatal("CancelScan() = false with a scan running")
	}
	if err := <-slow; !errors.Is(err, ErrScanCanceled) {
		t.Errorf("canceled Scan = %v; want ErrScanCanceled", err)
	}
	if e.CancelScan() {
		t.Error("CancelScan() = true with nothing running")
	}
}

func TestEngineClaimedScanIgnoresCancel(t *testing.T) {
	e, _, _ := newEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.scanMu.Lock()
	e.scanToken, e.scanCancel = "current", cancel
	e.scanMu.Unlock()

	if e.claimScan("stale") {
		t.Fatal("claimScan(stale) = true; want false")
	}
	if !e.claimScan("current") {
		t.Fatal("claimScan(current) = false; want true")
	}
	if e.CancelScan() {
		t.Error("CancelScan() = true after the result was claimed")
	}
	if ctx.Err() != nil {
		t.Errorf("claimed scan context = %v; want alive", ctx.Err())
	}
	if e.Scanning() {
		t.Error("Scanning() = true after the result was claimed")
	}
	if e.claimScan("current") {
		t.Error("second claimScan(current) = true; want false")
	}
}

func TestEngineDirectoryClickAndFilter(t *testing.T) {
	e, _, _ := newEngine(t)
	e.Load(rawTree("/r"), "/r", search.Stats{})

	if !e.DirectoryClick("/r/a") {
		t.Fatal("DirectoryClick(/r/a) = false")
	}
	v := mustView(t, e)
	if len(v.View.Nodes) != 6 {
		t.Fatalf("after collapse %d nodes; want 6", len(v.View.Nodes))
	}
	if v.Animating {
		t.Error("collapse started an animation")
	}
	if e.DirectoryClick("/r/f0") {
		t.Error("DirectoryClick on a file reported a change")
	}

	f := e.SetFilter(0, 1)
	if f.ItemsPerDir != 1 {
		t.Fatalf("ItemsPerDir = %d; want 1", f.ItemsPerDir)
	}
	v = mustView(t, e)
	// r, a, b, x, 1, a/more-files, f0, more-files
	if len(v.View.Nodes) != 8 {
		t.Errorf("after filter %d nodes; want 8", len(v.View.Nodes))
	}
	for _, n := range v.View.Nodes {
		if n.Collapsed {
			t.Errorf("%s still collapsed after a filter change", n.ID)
		}
	}
}

func TestEnginePlaceholderClickAnimates(t *testing.T) {
	e, _, clk := newEngine(t)
	e.Load(rawTree("/r"), "/r", search.Stats{})
	ph := tree.PlaceholderPath("/r", tree.KindMoreFiles)

	if !e.PlaceholderClick(ph) {
		t.Fatalf("PlaceholderClick(%s) = false", ph)
	}
	v := mustView(t, e)
	ids := nodeIDs(v)
	if ids[ph] || !ids["/r/f3"] || !ids["/r/f4"] {
		t.Fatalf("after expansion ids = %v; want f3, f4 and no placeholder", ids)
	}
	if !v.Animating {
		t.Fatal("placeholder expansion did not animate")
	}

	f, err := e.Tick()
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if f.Done || f.Appearing["/r/f3"] != 0 {
		t.Errorf("first frame = done %v, f3 opacity %v; want running, 0", f.Done, f.Appearing["/r/f3"])
	}
	clk.Advance(600 * time.Millisecond)
	if f, _ = e.Tick(); !f.Done {
		t.Error("animation not done after its duration")
	}
	if e.PlaceholderClick(ph) {
		t.Error("second PlaceholderClick on a removed placeholder reported a change")
	}
}

func TestEngineNodeClickDetails(t *testing.T) {
	e, _, _ := newEngine(t)
	e.Load(rawTree("/r"), "/r", search.Stats{})

	d, err := e.NodeClick("/r/f1")
	if err != nil {
		t.Fatalf("NodeClick: %v", err)
	}
	if d.SizeText != "1 B" {
		t.Errorf("SizeText = %q; want 1 B", d.SizeText)
	}
	if d.ModifiedAgo != "1 hour ago" {
		t.Errorf("ModifiedAgo = %q; want 1 hour ago", d.ModifiedAgo)
	}
	if e.Selected() != "/r/f1" {
		t.Errorf("Selected = %q; want /r/f1", e.Selected())
	}

	d, _ = e.Details("/r/a/b/x")
	want := []string{"/r/a/b->/r/a/b/x", "/r/a->/r/a/b", "/r->/r/a"}
	if !reflect.DeepEqual(d.PathToRoot, want) {
		t.Errorf("PathToRoot = %v; want %v", d.PathToRoot, want)
	}

	d, _ = e.Details("/r/f0")
	if d.Recency != 1 {
		t.Errorf("newest file recency = %v; want 1", d.Recency)
	}
	d, _ = e.Details(tree.PlaceholderPath("/r", tree.KindMoreFiles))
	if d.Hidden != 2 {
		t.Errorf("placeholder Hidden = %d; want 2", d.Hidden)
	}

	if _, err := e.NodeClick("/nope"); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("NodeClick(/nope) = %v; want ErrUnknownNode", err)
	}
}

func TestEngineShellOperations(t *testing.T) {
	sh := &fakeShell{}
	e, _, _ := newEngine(t, WithShell(sh))
	e.Load(rawTree("/r"), "/r", search.Stats{})
	events, unsubscribe := e.Subscribe(8)
	defer unsubscribe()

	if err := e.NodeDoubleClick("/r/f0"); err != nil {
		t.Fatalf("NodeDoubleClick: %v", err)
	}
	if err := e.ShowInFolder("/r/a"); err != nil {
		t.Fatalf("ShowInFolder: %v", err)
	}
	if !reflect.DeepEqual(sh.opened, []string{"/r/f0"}) || !reflect.DeepEqual(sh.revealed, []string{"/r/a"}) {
		t.Errorf("opened %v, revealed %v", sh.opened, sh.revealed)
	}
	if err := e.NodeDoubleClick(tree.PlaceholderPath("/r", tree.KindMoreFiles)); err == nil {
		t.Error("NodeDoubleClick on a placeholder succeeded")
	}
	if err := e.NodeDoubleClick("/nope"); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("NodeDoubleClick(/nope) = %v; want ErrUnknownNode", err)
	}

	sh.err = errors.New("no handler")
	if err := e.NodeDoubleClick("/r/f0"); err == nil {
		t.Fatal("NodeDoubleClick ignored the shell error")
	}
	evs := drain(events)
	if len(evs) != 1 {
		t.Fatalf("events = %v; want one notice", evs)
	}
	if n, ok := evs[0].(Notice); !ok || n.Level != NoticeError {
		t.Errorf("event = %+v; want an error notice", evs[0])
	}
}

func TestEngineBootstrap(t *testing.T) {
	t.Run("from store", func(t *testing.T) {
		ms := &memStore{last: &store.Snapshot{Root: "/saved", ScannedAt: t0.Add(-2 * time.Hour), Tree: rawTree("/saved")}}
		e, sc, _ := newEngine(t, WithStore(ms))
		if err := e.Bootstrap(context.Background()); err != nil {
			t.Fatalf("Bootstrap: %v", err)
		}
		if len(sc.roots) != 0 {
			t.Errorf("Bootstrap scanned %v; want the stored tree used", sc.roots)
		}
		if root, _, ok := e.Root(); !ok || root != "/saved" {
			t.Errorf("Root = %q, %v; want /saved", root, ok)
		}
	})
	t.Run("scan default path", func(t *testing.T) {
		e, sc, _ := newEngine(t, WithStore(&memStore{}))
		if err := e.Bootstrap(context.Background()); err != nil {
			t.Fatalf("Bootstrap: %v", err)
		}
		want := platform.Impl.Canonicalize(platform.Impl.DefaultStartPath())
		if len(sc.roots) != 1 || sc.roots[0] != want {
			t.Errorf("scanned %v; want [%s]", sc.roots, want)
		}
	})
}

func TestEngineUnsubscribe(t *testing.T) {
	e, _, _ := newEngine(t)
	ch, unsubscribe := e.Subscribe(1)
	unsubscribe()
	unsubscribe()
	e.Load(rawTree("/r"), "/r", search.Stats{})
	if _, ok := <-ch; ok {
		t.Error("event delivered after unsubscribe")
	}
}

func TestEngineRunPublishesFrames(t *testing.T) {
	e, _, clk := newEngine(t)
	e.Load(rawTree("/r"), "/r", search.Stats{})
	events, unsubscribe := e.Subscribe(256)
	defer unsubscribe()

	e.Relayout()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx, time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			pa, ok := ev.(PositionsAnimating)
			if !ok {
				continue
			}
			if pa.Frame.Done {
				cancel()
				<-done
				return
			}
			clk.Advance(100 * time.Millisecond)
		case <-deadline:
			cancel()
			t.Fatal("no final frame within 2s")
		}
	}
}
