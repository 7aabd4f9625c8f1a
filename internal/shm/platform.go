// Package shm contains platform-specific helpers for mapping named shared memory segments.
package shm

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupported is returned on platforms without a shared memory implementation.
	ErrUnsupported = errors.New("shm: shared memory is not supported on this platform")
	// ErrInvalidName is returned for names that cannot identify a shared memory object.
	ErrInvalidName = errors.New("shm: invalid segment name")
	// ErrNoSpace is returned when the shared memory filesystem cannot hold a new segment.
	ErrNoSpace = errors.New("shm: share memory had not left space")
)

// maxNameLen mirrors NAME_MAX on Linux.
const maxNameLen = 255

// MappedRegion represents a memory-mapped shared region.
type MappedRegion struct {
	Addr    []byte
	Name    string
	Path    string
	Created bool
}

// MapOptions defines options for mapping shared memory.
type MapOptions struct {
	Name string
	// Size is the segment size in bytes. When attaching, a positive Size must
	// match the existing object exactly; zero or less accepts any size.
	Size int
	// Create requests an exclusive create. It fails with an error matching
	// fs.ErrExist when the object is already present.
	Create   bool
	ReadOnly bool
}

// SizeError reports an existing object whose size differs from the requested one.
type SizeError struct {
	Name string
	Want int
	Got  int64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("shm: segment %q is %d bytes, expected %d", e.Name, e.Got, e.Want)
}

// CleanName strips the optional leading slash of a POSIX shm name and
// validates what remains.
func CleanName(name string) (string, error) {
	clean := strings.TrimPrefix(name, "/")
	switch {
	case clean == "":
		return "", fmt.Errorf("%w: empty name", ErrInvalidName)
	case len(clean) > maxNameLen:
		return "", fmt.Errorf("%w: %q is longer than %d bytes", ErrInvalidName, clean, maxNameLen)
	case strings.ContainsAny(clean, "/\x00"), clean == ".", clean == "..":
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return clean, nil
}

// Function implementations are provided in platform-specific files (e.g., platform_unix.go, platform_windows.go).
