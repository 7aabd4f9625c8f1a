package shm

import (
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/srediag/shmrecord/internal/logger"
)

// canCreateOnDevShm reports whether the filesystem holding path has room for
// size more bytes. Only paths under /dev/shm are checked; tmpfs there is small
// by default and a full mount turns into SIGBUS on first touch of the mapping.
func canCreateOnDevShm(size uint64, path string) bool {
	if !strings.HasPrefix(filepath.Clean(path), "/dev/shm/") {
		return true
	}
	stat, err := disk.Usage("/dev/shm")
	if err != nil {
		logger.Internal.Warnf("could not read /dev/shm usage: %v", err)
		return true
	}
	return stat.Free >= size
}
