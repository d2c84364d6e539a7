package search

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"graphfs/internal/platform"
	"graphfs/internal/tree"
)

// BuildTree assembles a tree rooted at root from a flat list of files,
// creating the directories between them. Directory mtimes come from the
// filesystem, or now when a directory cannot be stat'ed. Files outside
// root are dropped. Children are ordered newest first.
func BuildTree(root string, files []tree.RawNode, log *zap.Logger) *tree.RawNode {
	if log == nil {
		log = zap.NewNop()
	}
	now := time.Now().UnixMilli()
	dirMtime := func(p string) int64 {
		if fi, err := os.Stat(p); err == nil {
			return fi.ModTime().UnixMilli()
		}
		return now
	}

	rootNode := &tree.RawNode{
		Name:  platform.Impl.BaseName(root),
		Path:  root,
		Kind:  tree.KindDirectory,
		Mtime: dirMtime(root),
	}
	dirs := map[string]*tree.RawNode{platform.Impl.PathKey(root): rootNode}

	for i := range files {
		f := files[i]
		rel, err := filepath.Rel(root, f.Path)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		parts := strings.Split(rel, string(filepath.Separator))

		cur, curPath := rootNode, root
		for _, part := range parts[:len(parts)-1] {
			curPath = filepath.Join(curPath, part)
			key := platform.Impl.PathKey(curPath)
			d, ok := dirs[key]
			if !ok {
				d = &tree.RawNode{Name: part, Path: curPath, Kind: tree.KindDirectory, Mtime: dirMtime(curPath)}
				cur.Children = append(cur.Children, d)
				dirs[key] = d
				log.Debug("intermediate directory", zap.String("path", curPath))
			}
			cur = d
		}

		f.Kind = tree.KindFile
		f.Children = nil
		if f.Name == "" {
			f.Name = parts[len(parts)-1]
		}
		cur.Children = append(cur.Children, &f)
	}

	sortNewestFirst(rootNode)
	return rootNode
}

func sortNewestFirst(n *tree.RawNode) {
	sort.SliceStable(n.Children, func(i, j int) bool { return n.Children[i].Mtime > n.Children[j].Mtime })
	for _, c := range n.Children {
		if c.Kind == tree.KindDirectory {
			sortNewestFirst(c)
		}
	}
}

// TopRecent returns the n most recently modified files, newest first, ties
// in input order. n <= 0 keeps all of them, sorted.
func TopRecent(files []tree.RawNode, n int) []tree.RawNode {
	out := make([]tree.RawNode, len(files))
	copy(out, files)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Mtime > out[j].Mtime })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Files flattens the files of the tree rooted at n.
func Files(n *tree.RawNode) []tree.RawNode {
	var out []tree.RawNode
	stack := []*tree.RawNode{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur.Kind == tree.KindFile {
			leaf := *cur
			leaf.Children = nil
			out = append(out, leaf)
			continue
		}
		for i := len(cur.Children) - 1; i >= 0; i-- {
			stack = append(stack, cur.Children[i])
		}
	}
	return out
}

// countTree returns the number of files and directories below n, n included.
func countTree(n *tree.RawNode) (files, dirs int) {
	if n == nil {
		return 0, 0
	}
	if n.Kind == tree.KindFile {
		return 1, 0
	}
	dirs = 1
	for _, c := range n.Children {
		f, d := countTree(c)
		files += f
		dirs += d
	}
	return files, dirs
}
