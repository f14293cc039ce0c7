//go:build windows

package pathutil

import "os"

// OpenNoFollow opens a file for reading. On Windows,
// O_NOFOLLOW is not available so we fall back to a regular
// open, which follows symlinks.
func OpenNoFollow(path string) (*os.File, error) {
	return os.Open(path)
}
