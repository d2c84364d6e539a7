package search

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"graphfs/internal/metrics"
)

// Manager keeps the registered engines, in registration order, and the one
// currently selected.
type Manager struct {
	mu      sync.RWMutex
	engines map[string]Engine
	order   []string
	current string
	log     *zap.Logger
}

func NewManager(log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{engines: make(map[string]Engine), log: log}
}

// DefaultManager registers the host index engine of this OS, if any, ahead
// of the directory walk.
func DefaultManager(p *Profile, log *zap.Logger) *Manager {
	m := NewManager(log)
	switch runtime.GOOS {
	case "windows":
		m.Register("everything", NewEverythingEngine(p, log))
	case "linux", "darwin":
		m.Register("locate", NewLocateEngine(p, log))
	}
	m.Register("walk", NewWalkEngine(p, 0, log))
	return m
}

// Register adds or replaces engine id. The first engine registered becomes
// current.
func (m *Manager) Register(id string, e Engine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.engines[id]; !ok {
		m.order = append(m.order, id)
	}
	m.engines[id] = e
	if m.current == "" {
		m.current = id
	}
}

func (m *Manager) Unregister(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.engines[id]; !ok {
		return
	}
	delete(m.engines, id)
	for i, o := range m.order {
		if o == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	if m.current == id {
		m.current = ""
		if len(m.order) > 0 {
			m.current = m.order[0]
		}
	}
}

func (m *Manager) Get(id string) (Engine, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.engines[id]
	return e, ok
}

func (m *Manager) SetCurrent(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.engines[id]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknown, id)
	}
	m.current = id
	return nil
}

// Current returns the selected engine.
func (m *Manager) Current() (string, Engine, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.engines[m.current]
	return m.current, e, ok
}

type entry struct {
	id string
	e  Engine
}

func (m *Manager) entries() []entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]entry, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, entry{id, m.engines[id]})
	}
	return out
}

// List reports every engine with its availability. Availability checks run
// outside the lock; they may spawn processes.
func (m *Manager) List(ctx context.Context) []Info {
	cur, _, _ := m.Current()
	var out []Info
	for _, en := range m.entries() {
		st := en.e.Available(ctx)
		out = append(out, Info{
			ID:        en.id,
			Name:      en.e.Name(),
			Available: st.Available,
			Message:   st.Message,
			Current:   en.id == cur,
		})
	}
	return out
}

// Detect selects the first available engine and returns its id.
func (m *Manager) Detect(ctx context.Context) (string, error) {
	for _, en := range m.entries() {
		if st := en.e.Available(ctx); st.Available {
			m.mu.Lock()
			m.current = en.id
			m.mu.Unlock()
			m.log.Info("search engine selected", zap.String("engine", en.id), zap.String("message", st.Message))
			return en.id, nil
		}
	}
	return "", ErrNoEngine
}

// Scan runs the current engine after checking it is available.
func (m *Manager) Scan(ctx context.Context, root string, opts Options) (*Result, error) {
	id, e, ok := m.Current()
	if !ok {
		return nil, ErrNoEngine
	}
	if st := e.Available(ctx); !st.Available {
		metrics.RecordScan(id, "unavailable", 0)
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, st.Message)
	}
	m.log.Info("scan started", zap.String("engine", id), zap.String("root", root), zap.Int("top_files", opts.TopFiles))
	start := time.Now()
	res, err := e.Scan(ctx, root, opts)
	switch {
	case err == nil:
		metrics.RecordScan(id, "ok", time.Since(start))
	case errors.Is(err, context.Canceled):
		metrics.RecordScan(id, "canceled", 0)
	default:
		metrics.RecordScan(id, "failed", 0)
	}
	return res, err
}

func (m *Manager) Search(ctx context.Context, query string, opts SearchOptions) ([]Hit, error) {
	_, e, ok := m.Current()
	if !ok {
		return nil, ErrNoEngine
	}
	if st := e.Available(ctx); !st.Available {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, st.Message)
	}
	return e.Search(ctx, query, opts)
}
