//go:build !windows

package pathutil

import (
	"os"
	"syscall"
)

// OpenNoFollow opens a file for reading without following
// symlinks at the final path component. On Unix systems this
// uses O_NOFOLLOW which causes the open to fail with ELOOP if
// the target is a symlink, so a log file that was swapped for a
// symlink after discovery is refused at read time.
func OpenNoFollow(path string) (*os.File, error) {
	return os.OpenFile(
		path, os.O_RDONLY|syscall.O_NOFOLLOW, 0,
	)
}
