//go:build windows

package platform

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

type Windows struct{ Default }

func (Windows) BaseName(p string) string {
	b := filepath.Base(p)
	if b == "." || b == string(os.PathSeparator) || b == "" {
		if vol := filepath.VolumeName(p); vol != "" {
			return vol + `\`
		}
	}
	return b
}
func (Windows) IsMountRoot(p string) bool {
	p, _ = filepath.Abs(p)
	vol := filepath.VolumeName(p)
	return strings.EqualFold(filepath.Clean(p), vol+`\`)
}

func (Windows) DefaultStartPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return h
	}
	return `C:\`
}

// UNC paths are network shares.
func (Windows) IsLikelyNetworkFS(p string) bool { return strings.HasPrefix(p, `\\`) }

func (Windows) PathKey(p string) string { return strings.ToLower(p) }

func (Windows) OpenPath(p string) error {
	if _, err := os.Stat(p); err != nil {
		return err
	}
	return exec.Command("explorer", p).Start()
}

func (Windows) ShowItemInFolder(p string) error {
	if info, err := os.Stat(p); err == nil && !info.IsDir() {
		return exec.Command("explorer", "/select,", p).Start()
	}
	return exec.Command("explorer", p).Start()
}

func init() { Impl = Windows{} }
