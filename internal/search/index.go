package search

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"go.uber.org/zap"

	"graphfs/internal/platform"
)

// listing is what an index engine returns for a root before post-processing.
type listing struct {
	engine string
	root   string
	paths  []string
	start  time.Time
}

// fromListing turns the raw paths an index tool printed into a scan result:
// paths outside root, under excluded paths, or matching the scan filter are
// dropped, the rest are stat'ed, ranked newest first, cut to topFiles (0 keeps
// all) and assembled into a tree.
func fromListing(ctx context.Context, l listing, profile *Profile, topFiles int, opts Options, log *zap.Logger) (*Result, error) {
	filter := LoadScanFilter(l.root, log)
	kept := make([]string, 0, len(l.paths))
	for _, p := range l.paths {
		if p == l.root || !platform.HasPathPrefix(p, l.root) {
			continue
		}
		if profile.Excluded(p) || (profile.SkipHidden && isHidden(p)) {
			continue
		}
		kept = append(kept, p)
	}
	log.Debug("index listing",
		zap.String("engine", l.engine),
		zap.Int("raw", len(l.paths)),
		zap.Int("under_root", len(kept)),
	)

	opts.progress(Progress{Phase: PhaseScanning, Message: l.root, Current: 0, Total: len(kept)})
	files, err := statFiles(ctx, kept)
	if err != nil {
		return nil, err
	}
	files = filter.Filter(l.root, files)
	files = TopRecent(files, topFiles)

	opts.progress(Progress{Phase: PhaseBuildingTree, Current: len(files), Total: len(files)})
	rootNode := BuildTree(l.root, files, log)
	nFiles, nDirs := countTree(rootNode)

	res := &Result{
		Tree: rootNode,
		Stats: Stats{
			TotalFiles: nFiles,
			TotalDirs:  nDirs,
			Engine:     l.engine,
			Duration:   time.Since(l.start),
		},
	}
	if platform.Impl.IsMountRoot(l.root) {
		if u, err := disk.Usage(l.root); err == nil {
			res.Stats.DiskTotal, res.Stats.DiskFree = u.Total, u.Free
		}
	}
	opts.progress(Progress{Phase: PhaseDone, Current: nFiles, Total: nFiles})
	return res, nil
}
