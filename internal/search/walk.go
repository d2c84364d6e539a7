package search

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"graphfs/internal/platform"
	"graphfs/internal/tree"
)

// progressEvery is how many files pass between two progress reports.
const progressEvery = 500

// WalkEngine scans by reading directories itself. It needs no index and is
// always available.
type WalkEngine struct {
	profile    *Profile
	maxWorkers int
	log        *zap.Logger
}

// NewWalkEngine (maxWorkers<=0 => sensible default)
func NewWalkEngine(p *Profile, maxWorkers int, log *zap.Logger) *WalkEngine {
	if p == nil {
		p = DefaultProfile()
	}
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU() * 4 // good starting point for NVMe; tune for HDDs
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &WalkEngine{profile: p, maxWorkers: maxWorkers, log: log}
}

func (e *WalkEngine) Name() string { return "Directory walk" }

func (e *WalkEngine) Available(context.Context) Status {
	return Status{Available: true, Message: fmt.Sprintf("built-in, %d workers", e.maxWorkers)}
}

type walker struct {
	ctx     context.Context
	g       *errgroup.Group
	root    string
	profile *Profile
	filter  *ScanFilter
	opts    Options
	log     *zap.Logger

	files, dirs atomic.Int64
	seen        sync.Map // inodeKey -> struct{}
	progressMu  sync.Mutex
}

func (e *WalkEngine) Scan(ctx context.Context, root string, opts Options) (*Result, error) {
	start := time.Now()
	abs := platform.Impl.Canonicalize(root)
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", abs, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("walk %s: not a directory", abs)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxWorkers)
	w := &walker{
		ctx:     gctx,
		g:       g,
		root:    abs,
		profile: e.profile,
		filter:  LoadScanFilter(abs, e.log),
		opts:    opts,
		log:     e.log,
	}
	opts.progress(Progress{Phase: PhaseScanning, Message: abs})

	rootNode := w.dir(abs, fi)
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if opts.TopFiles > 0 {
		opts.progress(Progress{Phase: PhaseBuildingTree, Current: int(w.files.Load())})
		rootNode = BuildTree(abs, TopRecent(Files(rootNode), opts.TopFiles), e.log)
	}

	res := &Result{
		Tree: rootNode,
		Stats: Stats{
			TotalFiles: int(w.files.Load()),
			TotalDirs:  int(w.dirs.Load()),
			Engine:     e.Name(),
			Duration:   time.Since(start),
		},
	}
	if platform.Impl.IsMountRoot(abs) {
		if u, err := disk.Usage(abs); err == nil {
			res.Stats.DiskTotal, res.Stats.DiskFree = u.Total, u.Free
		}
	}
	opts.progress(Progress{Phase: PhaseDone, Current: res.Stats.TotalFiles, Total: res.Stats.TotalFiles})
	e.log.Info("walk finished",
		zap.String("root", abs),
		zap.Int("files", res.Stats.TotalFiles),
		zap.Int("dirs", res.Stats.TotalDirs),
		zap.Duration("duration", res.Stats.Duration),
	)
	return res, nil
}

// dir reads path and all descendants.
// Concurrency: subdirectories of a folder are read in parallel, bounded by
// the group limit; when no worker is free the subdirectory is read inline.
func (w *walker) dir(path string, fi fs.FileInfo) *tree.RawNode {
	w.dirs.Add(1)
	node := &tree.RawNode{
		Name:  platform.Impl.BaseName(path),
		Path:  path,
		Kind:  tree.KindDirectory,
		Mtime: fi.ModTime().UnixMilli(),
	}
	if w.ctx.Err() != nil {
		return node
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		// unreadable directory -> empty folder
		w.log.Debug("directory unreadable", zap.String("path", path), zap.Error(err))
		return node
	}

	type subdir struct {
		full string
		info fs.FileInfo
	}
	subdirs := make([]subdir, 0, 32)

	for _, de := range entries {
		name := de.Name()
		full := filepath.Join(path, name)

		if w.profile.Excluded(full) || w.filter.Ignore(full, name) {
			continue
		}
		if de.Type()&os.ModeSymlink != 0 && !w.profile.FollowSymlinks {
			continue
		}
		if w.profile.SkipHidden && isHidden(full) {
			continue
		}

		info, err := de.Info()
		if de.Type()&os.ModeSymlink != 0 {
			info, err = os.Stat(full)
		}
		if err != nil {
			continue
		}

		if info.IsDir() {
			if w.profile.SkipNetworkFS && platform.Impl.IsLikelyNetworkFS(full) {
				w.log.Debug("network filesystem skipped", zap.String("path", full))
				continue
			}
			subdirs = append(subdirs, subdir{full: full, info: info})
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		if w.profile.MinFileSize > 0 && info.Size() < w.profile.MinFileSize {
			continue
		}
		if id, ok := fileID(info); ok {
			if _, dup := w.seen.LoadOrStore(id, struct{}{}); dup {
				continue
			}
		}

		node.Children = append(node.Children, &tree.RawNode{
			Name:  name,
			Path:  full,
			Kind:  tree.KindFile,
			Mtime: info.ModTime().UnixMilli(),
			Size:  info.Size(),
		})
		if n := w.files.Add(1); n%progressEvery == 0 {
			w.report(int(n))
		}
	}

	if len(subdirs) > 0 {
		results := make([]*tree.RawNode, len(subdirs))
		var wg sync.WaitGroup
		for i, sd := range subdirs {
			wg.Add(1)
			run := func() error {
				defer wg.Done()
				results[i] = w.dir(sd.full, sd.info)
				return w.ctx.Err()
			}
			if !w.g.TryGo(run) {
				// Pool is full, do it synchronously to avoid deadlock
				_ = run()
			}
		}
		wg.Wait()
		node.Children = append(node.Children, results...)
	}

	sort.SliceStable(node.Children, func(i, j int) bool { return node.Children[i].Mtime > node.Children[j].Mtime })
	return node
}

func (w *walker) report(files int) {
	if w.opts.OnProgress == nil {
		return
	}
	w.progressMu.Lock()
	defer w.progressMu.Unlock()
	w.opts.progress(Progress{Phase: PhaseScanning, Message: w.root, Current: files})
}

// Search walks opts.Path (the default start path when empty) for names
// containing query, case-insensitively.
func (e *WalkEngine) Search(ctx context.Context, query string, opts SearchOptions) ([]Hit, error) {
	root := opts.Path
	if root == "" {
		root = platform.Impl.DefaultStartPath()
	}
	root = platform.Impl.Canonicalize(root)
	needle := strings.ToLower(query)
	filter := LoadScanFilter(root, e.log)

	var hits []Hit
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err != nil {
			if d != nil && d.IsDir() && p != root {
				return fs.SkipDir
			}
			return nil
		}
		if p == root {
			return nil
		}
		if e.profile.Excluded(p) || filter.Ignore(p, d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.Contains(strings.ToLower(d.Name()), needle) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		kind := tree.KindFile
		if d.IsDir() {
			kind = tree.KindDirectory
		}
		hits = append(hits, Hit{Name: d.Name(), Path: p, Kind: kind, Mtime: info.ModTime().UnixMilli()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newestHits(hits, opts.max()), nil
}

func newestHits(hits []Hit, max int) []Hit {
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Mtime > hits[j].Mtime })
	if len(hits) > max {
		hits = hits[:max]
	}
	return hits
}
