package search

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"graphfs/internal/tree"
)

// ScanIgnoreFile is the name of the per-user ignore list.
const ScanIgnoreFile = ".scanignore"

// ScanFilter drops paths matching a .scanignore list. Lines are globs
// (`*.log`, `node_modules`, `build/`, `.*`), `regex:` expressions, or `#`
// comments. Globs without a slash match a name or the last component of a
// path; globs with one match the whole slash-separated path. Matching is
// case-insensitive.
type ScanFilter struct {
	Source     string
	patterns   []*regexp.Regexp
	exclusions []string
}

// LoadScanFilter reads the first .scanignore found in base, next to the
// executable, or in the working directory. A missing file yields an empty
// filter.
func LoadScanFilter(base string, log *zap.Logger) *ScanFilter {
	if log == nil {
		log = zap.NewNop()
	}
	for _, p := range scanIgnoreCandidates(base) {
		f, err := os.Open(p)
		if err != nil {
			continue
		}
		sf := ParseScanFilter(f, log)
		f.Close()
		sf.Source = p
		log.Info("scan filter loaded",
			zap.String("path", p),
			zap.Int("patterns", len(sf.patterns)),
			zap.Int("exclusions", len(sf.exclusions)),
		)
		return sf
	}
	log.Debug("no scan filter found")
	return &ScanFilter{}
}

func scanIgnoreCandidates(base string) []string {
	var out []string
	if base != "" {
		out = append(out, filepath.Join(base, ScanIgnoreFile))
	}
	if exe, err := os.Executable(); err == nil {
		out = append(out, filepath.Join(filepath.Dir(exe), ScanIgnoreFile))
	}
	if wd, err := os.Getwd(); err == nil {
		out = append(out, filepath.Join(wd, ScanIgnoreFile))
	}
	return out
}

// ParseScanFilter reads patterns from r. Invalid regexes are logged and
// skipped.
func ParseScanFilter(r io.Reader, log *zap.Logger) *ScanFilter {
	if log == nil {
		log = zap.NewNop()
	}
	sf := &ScanFilter{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if expr, ok := strings.CutPrefix(line, "regex:"); ok {
			re, err := regexp.Compile("(?i)" + expr)
			if err != nil {
				log.Warn("invalid scan filter regex ignored", zap.String("regex", expr), zap.Error(err))
				continue
			}
			sf.patterns = append(sf.patterns, re)
			continue
		}
		if re, err := globToRegexp(line); err == nil {
			sf.patterns = append(sf.patterns, re)
		}
		if ex := everythingExclusion(line); ex != "" {
			sf.exclusions = append(sf.exclusions, ex)
		}
	}
	return sf
}

func globToRegexp(glob string) (*regexp.Regexp, error) {
	pat := strings.TrimSuffix(glob, "/")
	pat = regexp.QuoteMeta(pat)
	pat = strings.ReplaceAll(pat, `\*`, `.*`)
	pat = strings.ReplaceAll(pat, `\?`, `.`)
	if !strings.ContainsAny(glob, `/\`) {
		pat = `(^|[\\/])` + pat + `$`
	} else {
		pat = `^` + pat + `$`
	}
	return regexp.Compile("(?i)" + pat)
}

// everythingExclusion translates a glob into an Everything search term, or
// "" when it has no exact equivalent.
func everythingExclusion(glob string) string {
	p := strings.TrimSuffix(glob, "/")
	switch {
	case strings.HasPrefix(p, "*."):
		return "!ext:" + p[2:]
	case p == ".*":
		return ""
	case strings.ContainsAny(p, "*? "):
		return ""
	}
	return "!path:" + p
}

// Len is the number of active patterns.
func (f *ScanFilter) Len() int { return len(f.patterns) }

// Patterns returns the compiled expressions, for display.
func (f *ScanFilter) Patterns() []string {
	out := make([]string, 0, len(f.patterns))
	for _, re := range f.patterns {
		out = append(out, re.String())
	}
	return out
}

// EverythingExclusions returns the terms to append to an Everything query.
func (f *ScanFilter) EverythingExclusions() []string { return f.exclusions }

// Ignore reports whether the item at path (named name, or the base of path
// when empty) matches any pattern.
func (f *ScanFilter) Ignore(path, name string) bool {
	if f == nil || len(f.patterns) == 0 {
		return false
	}
	if name == "" {
		name = filepath.Base(path)
	}
	norm := strings.ReplaceAll(path, `\`, "/")
	for _, re := range f.patterns {
		if re.MatchString(name) || re.MatchString(norm) {
			return true
		}
	}
	return false
}

// IgnoreUnder is Ignore applied to path and to every directory between root
// and path, for flat listings where excluded directories were not pruned
// while walking.
func (f *ScanFilter) IgnoreUnder(root, path string) bool {
	if f == nil || len(f.patterns) == 0 {
		return false
	}
	if f.Ignore(path, "") {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	dir := root
	parts := strings.Split(rel, string(filepath.Separator))
	for _, part := range parts[:len(parts)-1] {
		dir = filepath.Join(dir, part)
		if f.Ignore(dir, part) {
			return true
		}
	}
	return false
}

// Filter returns the files of items that are not ignored.
func (f *ScanFilter) Filter(root string, items []tree.RawNode) []tree.RawNode {
	if f == nil || len(f.patterns) == 0 {
		return items
	}
	out := make([]tree.RawNode, 0, len(items))
	for _, it := range items {
		if !f.IgnoreUnder(root, it.Path) {
			out = append(out, it)
		}
	}
	return out
}
