package search

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"graphfs/internal/platform"
)

var everythingVersion = regexp.MustCompile(`\d+\.\d+`)

// EverythingEngine queries the Everything service through its es.exe
// command-line client. Everything only answers global queries quickly, so a
// scan asks for the newest files of the whole index and keeps those under
// the root.
type EverythingEngine struct {
	es      string
	profile *Profile
	log     *zap.Logger
}

func NewEverythingEngine(p *Profile, log *zap.Logger) *EverythingEngine {
	if p == nil {
		p = DefaultProfile()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &EverythingEngine{es: findES(), profile: p, log: log}
}

// findES looks next to the executable, in its bin/ directory, then in PATH.
func findES() string {
	var candidates []string
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		candidates = append(candidates, filepath.Join(dir, "es.exe"), filepath.Join(dir, "bin", "es.exe"))
	}
	for _, c := range candidates {
		if fi, err := os.Stat(c); err == nil && !fi.IsDir() {
			return c
		}
	}
	if p, err := exec.LookPath("es.exe"); err == nil {
		return p
	}
	return ""
}

func (e *EverythingEngine) Name() string { return "Everything" }

func (e *EverythingEngine) Available(ctx context.Context) Status {
	if e.es == "" {
		return Status{Message: "es.exe not found; install the Everything command-line interface"}
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var out []string
	err := runLines(ctx, e.es, []string{"-get-everything-version"}, '\n', func(line string) { out = append(out, line) })
	if err != nil {
		return Status{Message: fmt.Sprintf("Everything is not responding: %v", err)}
	}
	version := strings.TrimSpace(strings.Join(out, " "))
	if !everythingVersion.MatchString(version) {
		return Status{Message: "could not read the Everything version"}
	}
	return Status{Available: true, Message: "Everything " + version}
}

// scanArgs builds the global newest-files query. limit is the number of
// results the caller will keep; three times as many are requested because
// most fall outside the root.
func scanArgs(exclusions []string, limit int) []string {
	args := []string{"file:"}
	args = append(args, exclusions...)
	return append(args, "-n", strconv.Itoa(limit*3), "-sort", "dm", "-sort-descending")
}

func (e *EverythingEngine) Scan(ctx context.Context, root string, opts Options) (*Result, error) {
	if e.es == "" {
		return nil, ErrUnavailable
	}
	start := time.Now()
	root = platform.Impl.Canonicalize(root)
	top := opts.TopFiles
	if top <= 0 {
		top = DefaultTopFiles
	}

	filter := LoadScanFilter(root, e.log)
	args := scanArgs(filter.EverythingExclusions(), top*2)
	e.log.Debug("everything query", zap.Strings("args", args))

	var paths []string
	if err := runLines(ctx, e.es, args, '\n', func(p string) { paths = append(paths, strings.TrimSpace(p)) }); err != nil {
		return nil, fmt.Errorf("es.exe: %w", err)
	}

	res, err := fromListing(ctx, listing{engine: e.Name(), root: root, paths: paths, start: start}, e.profile, top, opts, e.log)
	if err != nil {
		return nil, err
	}
	e.log.Info("everything scan finished",
		zap.String("root", root),
		zap.Int("listed", len(paths)),
		zap.Int("files", res.Stats.TotalFiles),
		zap.Duration("duration", res.Stats.Duration),
	)
	return res, nil
}

func (e *EverythingEngine) Search(ctx context.Context, query string, opts SearchOptions) ([]Hit, error) {
	if e.es == "" {
		return nil, ErrUnavailable
	}
	var args []string
	if opts.Path != "" {
		args = append(args, strings.TrimRight(opts.Path, `\`)+`\`)
	}
	max := opts.max()
	args = append(args, query, "-n", strconv.Itoa(max), "-sort", "date-modified", "-sort-descending")

	var paths []string
	if err := runLines(ctx, e.es, args, '\n', func(p string) { paths = append(paths, strings.TrimSpace(p)) }); err != nil {
		return nil, fmt.Errorf("es.exe: %w", err)
	}
	hits, err := statHits(ctx, paths)
	if err != nil {
		return nil, err
	}
	return newestHits(hits, max), nil
}
