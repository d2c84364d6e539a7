package search

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"graphfs/internal/platform"
)

// LocateEngine lists files from the host's locate database (plocate, or
// mlocate/BSD locate as a fallback). The database may lag behind the disk;
// listed paths that no longer exist are skipped.
type LocateEngine struct {
	bin     string
	profile *Profile
	log     *zap.Logger
}

func NewLocateEngine(p *Profile, log *zap.Logger) *LocateEngine {
	if p == nil {
		p = DefaultProfile()
	}
	if log == nil {
		log = zap.NewNop()
	}
	e := &LocateEngine{profile: p, log: log}
	for _, name := range []string{"plocate", "locate"} {
		if path, err := exec.LookPath(name); err == nil {
			e.bin = path
			break
		}
	}
	return e
}

func (e *LocateEngine) Name() string { return "Locate index" }

// nul reports whether the binary supports NUL-separated output. BSD locate
// on macOS does not.
func (e *LocateEngine) nul() bool { return runtime.GOOS != "darwin" }

func (e *LocateEngine) Available(ctx context.Context) Status {
	if e.bin == "" {
		return Status{Message: "plocate/locate not found in PATH"}
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var first string
	err := runLines(ctx, e.bin, []string{"-S"}, '\n', func(line string) {
		if first == "" {
			first = strings.TrimSpace(line)
		}
	})
	if err != nil {
		return Status{Message: fmt.Sprintf("%s: %v", filepath.Base(e.bin), err)}
	}
	return Status{Available: true, Message: fmt.Sprintf("%s: %s", filepath.Base(e.bin), first)}
}

func (e *LocateEngine) args(extra ...string) ([]string, byte) {
	if e.nul() {
		return append([]string{"-0"}, extra...), 0
	}
	return extra, '\n'
}

func (e *LocateEngine) Scan(ctx context.Context, root string, opts Options) (*Result, error) {
	if e.bin == "" {
		return nil, ErrUnavailable
	}
	start := time.Now()
	root = platform.Impl.Canonicalize(root)
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}

	args, sep := e.args(prefix)
	var paths []string
	err := runLines(ctx, e.bin, args, sep, func(p string) { paths = append(paths, p) })
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(e.bin), err)
	}

	res, err := fromListing(ctx, listing{engine: e.Name(), root: root, paths: paths, start: start}, e.profile, opts.TopFiles, opts, e.log)
	if err != nil {
		return nil, err
	}
	e.log.Info("locate scan finished",
		zap.String("root", root),
		zap.Int("listed", len(paths)),
		zap.Int("files", res.Stats.TotalFiles),
		zap.Duration("duration", res.Stats.Duration),
	)
	return res, nil
}

func (e *LocateEngine) Search(ctx context.Context, query string, opts SearchOptions) ([]Hit, error) {
	if e.bin == "" {
		return nil, ErrUnavailable
	}
	max := opts.max()
	// fetch more; results outside opts.Path are dropped afterwards
	args, sep := e.args("-i", "-l", strconv.Itoa(max*3), query)
	var paths []string
	err := runLines(ctx, e.bin, args, sep, func(p string) {
		if opts.Path == "" || platform.HasPathPrefix(p, opts.Path) {
			paths = append(paths, p)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(e.bin), err)
	}
	hits, err := statHits(ctx, paths)
	if err != nil {
		return nil, err
	}
	return newestHits(hits, max), nil
}
