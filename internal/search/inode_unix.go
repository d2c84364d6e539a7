//go:build linux || darwin

package search

import (
	"os"
	"syscall"
)

type inodeKey struct{ dev, ino uint64 }

// fileID identifies the inode behind fi so hard links are listed once.
func fileID(fi os.FileInfo) (inodeKey, bool) {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return inodeKey{}, false
	}
	if st.Nlink <= 1 {
		return inodeKey{}, false
	}
	return inodeKey{dev: uint64(st.Dev), ino: uint64(st.Ino)}, true
}
