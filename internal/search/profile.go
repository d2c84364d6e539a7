package search

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"graphfs/internal/platform"
)

// Profile is the per-OS scan policy.
type Profile struct {
	PlatformSystem string
	ExcludedPaths  []string
	SkipHidden     bool
	MinFileSize    int64
	FollowSymlinks bool
	SkipNetworkFS  bool
}

func DefaultProfile() *Profile {
	p := &Profile{
		PlatformSystem: runtime.GOOS, // "windows" | "darwin" | "linux"
		SkipHidden:     false,
		FollowSymlinks: false,
		SkipNetworkFS:  true,
	}

	switch runtime.GOOS {
	case "linux":
		p.ExcludedPaths = []string{"/proc", "/sys", "/dev", "/run", "/var/lib/docker", "/var/log/lastlog", "/snap"}
	case "darwin":
		p.ExcludedPaths = []string{"/System", "/private/var/vm", "/Volumes/MobileBackups", "/Library/Application Support/MobileSync/Backup"}
	case "windows":
		windir := os.Getenv("WINDIR")
		if windir == "" {
			windir = `C:\Windows`
		}
		p.ExcludedPaths = []string{
			`C:\$Recycle.Bin`,
			`C:\System Volume Information`,
			filepath.Join(windir, "WinSxS"),
			filepath.Join(windir, "Temp"),
		}
	}
	return p
}

// Excluded reports whether absPath is one of the excluded system paths or
// lies below one.
func (p *Profile) Excluded(absPath string) bool {
	for _, ex := range p.ExcludedPaths {
		if platform.HasPathPrefix(absPath, ex) {
			return true
		}
	}
	return false
}

func isHidden(path string) bool {
	base := filepath.Base(path)
	if base == "" {
		return false
	}
	// Simple cross-platform heuristic: leading dot
	return strings.HasPrefix(base, ".")
}
