//go:build darwin

package platform

import (
	"os"
	"os/exec"
	"strings"
)

type Darwin struct{ Default }

func (Darwin) OpenPath(p string) error {
	if _, err := os.Stat(p); err != nil {
		return err
	}
	return exec.Command("open", p).Start()
}

func (Darwin) ShowItemInFolder(p string) error {
	if info, err := os.Stat(p); err == nil && !info.IsDir() {
		return exec.Command("open", "-R", p).Start() // reveal
	}
	return exec.Command("open", p).Start()
}

// APFS and HFS+ are case-insensitive by default.
func (Darwin) PathKey(p string) string { return strings.ToLower(p) }

func init() { Impl = Darwin{} }
