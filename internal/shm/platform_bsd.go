//go:build unix && !linux

package shm

import (
	"fmt"
	"os"
	"path/filepath"
)

// shmDir is a tmpfs-like directory for file-backed segments. Every process
// maps the same file with MAP_SHARED, so it behaves like a POSIX shm object.
func shmDir() string {
	return filepath.Join(os.TempDir(), "shmrecord")
}

func prepareDir() error {
	if err := os.MkdirAll(shmDir(), 0o700); err != nil {
		return fmt.Errorf("shm: prepare %s: %w", shmDir(), err)
	}
	return nil
}
