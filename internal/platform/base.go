package platform

import (
	"os"
	"os/exec"
	"path/filepath"
)

type API interface {
	BaseName(string) string
	IsMountRoot(string) bool
	Canonicalize(string) string
	DefaultStartPath() string
	IsLikelyNetworkFS(string) bool
	// PathKey folds p for equality and prefix checks on this OS.
	PathKey(string) string
	OpenPath(string) error
	ShowItemInFolder(string) error
}

// -------- defaults (POSIX-ish + xdg-open) --------

type Default struct{}

func (Default) BaseName(p string) string {
	b := filepath.Base(p)
	if b == "." || b == string(os.PathSeparator) || b == "" {
		return "/"
	}
	return b
}
func (Default) IsMountRoot(p string) bool {
	p, _ = filepath.Abs(p)
	return filepath.Clean(p) == "/"
}

func (Default) Canonicalize(p string) string {
	abs, _ := filepath.Abs(p)
	return filepath.Clean(abs)
}

func (Default) DefaultStartPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		if fi, err := os.Stat(h); err == nil && fi.IsDir() {
			return h
		}
	}
	return string(os.PathSeparator)
}

func (Default) IsLikelyNetworkFS(string) bool { return false }

func (Default) PathKey(p string) string { return p }

func (Default) OpenPath(p string) error {
	if _, err := os.Stat(p); err != nil {
		return err
	}
	return exec.Command("xdg-open", p).Start()
}

func (Default) ShowItemInFolder(p string) error {
	info, err := os.Stat(p)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return exec.Command("xdg-open", p).Start()
	}
	return exec.Command("xdg-open", filepath.Dir(p)).Start()
}

// Global chosen implementation (overridden in per-OS files during init()).
var Impl API = Default{}

// HasPathPrefix reports whether p is root or lies below it, using Impl's
// path folding.
func HasPathPrefix(p, root string) bool {
	kp, kr := Impl.PathKey(filepath.Clean(p)), Impl.PathKey(filepath.Clean(root))
	if kp == kr {
		return true
	}
	if len(kr) > 0 && os.IsPathSeparator(kr[len(kr)-1]) {
		return len(kp) > len(kr) && kp[:len(kr)] == kr
	}
	return len(kp) > len(kr) && kp[:len(kr)] == kr && os.IsPathSeparator(kp[len(kr)])
}
