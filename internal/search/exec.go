package search

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"graphfs/internal/tree"
)

// runLines runs name with args and calls fn for every record of its stdout.
// Records end with sep ('\n' or 0). The process is killed when ctx is done.
func runLines(ctx context.Context, name string, args []string, sep byte, fn func(string)) error {
	cmd := exec.CommandContext(ctx, name, args...)
	hideWindow(cmd)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}

	sc := bufio.NewScanner(stdout)
	// Increase buffer size in case of very long paths
	buf := make([]byte, 0, 64*1024)
	sc.Buffer(buf, 1024*1024)
	if sep == 0 {
		sc.Split(splitNUL)
	}
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) != "" {
			fn(line)
		}
	}
	scanErr := sc.Err()
	if scanErr != nil {
		// unblock the child before waiting on it
		_, _ = io.Copy(io.Discard, stdout)
	}

	waitErr := cmd.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}
	if scanErr != nil {
		return scanErr
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return fmt.Errorf("%s exited with %d: %s", name, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return waitErr
	}
	return nil
}

func splitNUL(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// statFiles stats every path concurrently and returns the regular files
// that still exist, in input order. Vanished or unreadable paths are
// skipped.
func statFiles(ctx context.Context, paths []string) ([]tree.RawNode, error) {
	out := make([]*tree.RawNode, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU() * 4)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fi, err := os.Stat(p)
			if err != nil || !fi.Mode().IsRegular() {
				return nil
			}
			out[i] = &tree.RawNode{
				Name:  filepath.Base(p),
				Path:  p,
				Kind:  tree.KindFile,
				Mtime: fi.ModTime().UnixMilli(),
				Size:  fi.Size(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	files := make([]tree.RawNode, 0, len(paths))
	for _, n := range out {
		if n != nil {
			files = append(files, *n)
		}
	}
	return files, nil
}

// statHits is statFiles for search results, keeping directories.
func statHits(ctx context.Context, paths []string) ([]Hit, error) {
	out := make([]*Hit, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU() * 4)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fi, err := os.Stat(p)
			if err != nil {
				return nil
			}
			kind := tree.KindFile
			if fi.IsDir() {
				kind = tree.KindDirectory
			}
			out[i] = &Hit{Name: filepath.Base(p), Path: p, Kind: kind, Mtime: fi.ModTime().UnixMilli()}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(paths))
	for _, h := range out {
		if h != nil {
			hits = append(hits, *h)
		}
	}
	return hits, nil
}
