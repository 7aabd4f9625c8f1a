//go:build unix

package shm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/srediag/shmrecord/internal/logger"
)

// Path returns the filesystem path backing the shared memory object name.
func Path(name string) (string, error) {
	clean, err := CleanName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(shmDir(), clean), nil
}

// MapRegion maps or creates a shared memory region.
//
// A created region reads as zeros: ftruncate on a new object fills it with
// zero bytes, and the region is not written here, so an attacher that maps it
// right after the truncate keeps whatever it stores.
func MapRegion(ctx context.Context, opts MapOptions) (*MappedRegion, error) {
	path, err := Path(opts.Name)
	if err != nil {
		return nil, err
	}
	flags := unix.O_RDWR | unix.O_CLOEXEC
	prot := unix.PROT_READ | unix.PROT_WRITE
	if opts.ReadOnly {
		flags = unix.O_RDONLY | unix.O_CLOEXEC
		prot = unix.PROT_READ
	}
	if opts.Create {
		if opts.Size <= 0 {
			return nil, fmt.Errorf("shm: invalid segment size %d", opts.Size)
		}
		if err := prepareDir(); err != nil {
			return nil, err
		}
		if !canCreateOnDevShm(uint64(opts.Size), path) {
			return nil, fmt.Errorf("%w: path:%s, size:%d", ErrNoSpace, path, opts.Size)
		}
		flags |= unix.O_CREAT | unix.O_EXCL
	}
	fd, err := unix.Open(path, flags, 0600)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	defer func() {
		if cerr := unix.Close(fd); cerr != nil {
			logger.Internal.Warnf("close fd of %s: %v", path, cerr)
		}
	}()

	size := opts.Size
	if opts.Create {
		if err := unix.Ftruncate(fd, int64(size)); err != nil {
			_ = unix.Unlink(path)
			return nil, fmt.Errorf("ftruncate: %w", err)
		}
	} else {
		var st unix.Stat_t
		if err := unix.Fstat(fd, &st); err != nil {
			return nil, fmt.Errorf("fstat: %w", err)
		}
		if size > 0 && st.Size != int64(size) {
			return nil, &SizeError{Name: opts.Name, Want: size, Got: st.Size}
		}
		if st.Size == 0 {
			return nil, &SizeError{Name: opts.Name, Want: size, Got: 0}
		}
		size = int(st.Size)
	}

	addr, err := unix.Mmap(fd, 0, size, prot, unix.MAP_SHARED)
	if err != nil {
		if opts.Create {
			_ = unix.Unlink(path)
		}
		return nil, fmt.Errorf("mmap: %w", err)
	}
	return &MappedRegion{
		Addr:    addr,
		Name:    opts.Name,
		Path:    path,
		Created: opts.Create,
	}, nil
}

// UnmapRegion unmaps the shared memory region. The OS object stays in place.
func UnmapRegion(ctx context.Context, region *MappedRegion) error {
	if region == nil || region.Addr == nil {
		return nil
	}
	if err := unix.Munmap(region.Addr); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	region.Addr = nil
	return nil
}

// RemoveRegion unlinks the named shared memory object. Existing mappings in
// any process stay valid until they are unmapped.
func RemoveRegion(name string) error {
	path, err := Path(name)
	if err != nil {
		return err
	}
	if err := unix.Unlink(path); err != nil {
		return &os.PathError{Op: "unlink", Path: path, Err: err}
	}
	return nil
}

// Stat returns the current size of the named shared memory object.
func Stat(name string) (int64, error) {
	path, err := Path(name)
	if err != nil {
		return 0, err
	}
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, &os.PathError{Op: "stat", Path: path, Err: err}
	}
	return st.Size, nil
}
