//go:build linux || darwin

package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

// fakeLocate writes a shell script that records its arguments and prints
// paths in the record format LocateEngine asks for.
func fakeLocate(t *testing.T, paths []string) (*LocateEngine, string) {
	t.Helper()
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args")
	e := &LocateEngine{profile: &Profile{}, log: zap.NewNop()}
	format := `%s\n`
	if e.nul() {
		format = `%s\000`
	}
	var quoted []string
	for _, p := range paths {
		quoted = append(quoted, "'"+p+"'")
	}
	script := fmt.Sprintf("#!/bin/sh\necho \"$@\" > '%s'\nprintf '%s' %s\n", argsFile, format, strings.Join(quoted, " "))
	e.bin = filepath.Join(dir, "locate")
	if err := os.WriteFile(e.bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return e, argsFile
}

func TestLocateScan(t *testing.T) {
	root, _ := fixture(t)
	e, argsFile := fakeLocate(t, indexListing(t, root))

	res, err := e.Scan(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if got, want := res.Stats.TotalFiles, 4; got != want {
		t.Errorf("TotalFiles = %d; want %d", got, want)
	}
	if got, want := res.Stats.TotalDirs, 4; got != want {
		t.Errorf("TotalDirs = %d; want %d", got, want)
	}
	if res.Stats.Engine != e.Name() {
		t.Errorf("Engine = %q; want %q", res.Stats.Engine, e.Name())
	}

	args, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := strings.TrimSpace(string(args)), root+string(filepath.Separator); !strings.HasSuffix(got, want) {
		t.Errorf("locate args = %q; want the root prefix %q last", got, want)
	}
	if e.nul() && !strings.HasPrefix(string(args), "-0 ") {
		t.Errorf("locate args = %q; want -0 first", args)
	}
}

func TestLocateSearch(t *testing.T) {
	root, _ := fixture(t)
	e, _ := fakeLocate(t, indexListing(t, root))

	hits, err := e.Search(context.Background(), "x", SearchOptions{Path: filepath.Join(root, "a"), MaxResults: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	var got []string
	for _, h := range hits {
		got = append(got, h.Name)
	}
	// a and x.txt share an mtime and keep listing order
	if want := []string{"a", "x.txt", "y.txt"}; strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("hits = %v; want %v", got, want)
	}
}

func TestLocateFailure(t *testing.T) {
	e := &LocateEngine{profile: &Profile{}, log: zap.NewNop()}
	if _, err := e.Scan(context.Background(), t.TempDir(), Options{}); err != ErrUnavailable {
		t.Errorf("Scan without a binary = %v; want ErrUnavailable", err)
	}

	e.bin = filepath.Join(t.TempDir(), "locate")
	if err := os.WriteFile(e.bin, []byte("#!/bin/sh\necho 'database missing' >&2\nexit 1\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	_, err := e.Scan(context.Background(), t.TempDir(), Options{})
	if err == nil || !strings.Contains(err.Error(), "database missing") {
		t.Errorf("Scan = %v; want the tool's stderr", err)
	}
	if st := e.Available(context.Background()); st.Available {
		t.Errorf("Available = %+v; want unavailable", st)
	}
}
