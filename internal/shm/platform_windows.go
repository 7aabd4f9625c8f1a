//go:build windows

package shm

import (
	"context"
)

// Path reports that named segments are not available on Windows.
func Path(name string) (string, error) {
	if _, err := CleanName(name); err != nil {
		return "", err
	}
	return "", ErrUnsupported
}

// MapRegion reports that named segments are not available on Windows.
func MapRegion(ctx context.Context, opts MapOptions) (*MappedRegion, error) {
	return nil, ErrUnsupported
}

// UnmapRegion is not supported on Windows.
func UnmapRegion(ctx context.Context, region *MappedRegion) error {
	if region == nil || region.Addr == nil {
		return nil
	}
	return ErrUnsupported
}

// RemoveRegion is not supported on Windows.
func RemoveRegion(name string) error {
	return ErrUnsupported
}

// Stat is not supported on Windows.
func Stat(name string) (int64, error) {
	return 0, ErrUnsupported
}
