package shm

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/srediag/shmrecord/internal/logger"
	internalshm "github.com/srediag/shmrecord/internal/shm"
)

const (
	// attachRetryInterval and attachMaxRetries bound how long an attacher
	// waits for a racing creator to size a segment it has just created.
	attachRetryInterval = 5 * time.Millisecond
	attachMaxRetries    = 20
	// createAttempts bounds create/attach round trips when the segment keeps
	// disappearing between the failed create and the attach.
	createAttempts = 8
)

// segment is one mapped OS shared memory object laid out as
// [data: dataBytes][guard: DigestSize].
type segment struct {
	name      string
	region    *internalshm.MappedRegion
	dataBytes int
}

// openSegment creates the named segment, or attaches to it when it exists.
//
// reset unlinks an existing segment first. Processes still attached to the
// old one keep a private, now orphaned, mapping.
func openSegment(ctx context.Context, name string, dataBytes int, reset bool) (*segment, error) {
	total := dataBytes + DigestSize
	didReset := false
	for attempt := 0; attempt < createAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		region, err := internalshm.MapRegion(ctx, internalshm.MapOptions{
			Name:   name,
			Size:   total,
			Create: true,
		})
		if err == nil {
			logger.Internal.Infof("shm created: %s (%d bytes)", name, total)
			return &segment{name: name, region: region, dataBytes: dataBytes}, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("shm: create segment %q: %w", name, err)
		}

		if reset && !didReset {
			logger.Internal.Warnf("shm reset: %s", name)
			if err := internalshm.RemoveRegion(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("shm: reset segment %q: %w", name, err)
			}
			didReset = true
			continue
		}

		region, err = attachRegion(ctx, name, total)
		if errors.Is(err, fs.ErrNotExist) {
			// unlinked between our create and attach; try to create again
			continue
		}
		if err != nil {
			return nil, err
		}
		logger.Internal.Infof("shm attached: %s (%d bytes)", name, total)
		return &segment{name: name, region: region, dataBytes: dataBytes}, nil
	}
	return nil, fmt.Errorf("shm: segment %q kept changing during create-or-attach", name)
}

// attachRegion maps an existing segment of exactly total bytes. A zero-sized
// object belongs to a creator that has not truncated it yet and is retried.
func attachRegion(ctx context.Context, name string, total int) (*internalshm.MappedRegion, error) {
	op := func() (*internalshm.MappedRegion, error) {
		region, err := internalshm.MapRegion(ctx, internalshm.MapOptions{Name: name, Size: total})
		var sizeErr *internalshm.SizeError
		if errors.As(err, &sizeErr) && sizeErr.Got == 0 {
			return nil, err
		}
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		return region, nil
	}
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(attachRetryInterval), attachMaxRetries), ctx)
	region, err := backoff.RetryWithData(op, b)
	if err != nil {
		var sizeErr *internalshm.SizeError
		if errors.As(err, &sizeErr) {
			return nil, sizeErr
		}
		return nil, fmt.Errorf("shm: attach segment %q: %w", name, err)
	}
	return region, nil
}

func (s *segment) created() bool { return s.region.Created }

func (s *segment) data() []byte { return s.region.Addr[:s.dataBytes] }

func (s *segment) guard() []byte { return s.region.Addr[s.dataBytes : s.dataBytes+DigestSize] }

func (s *segment) close(ctx context.Context) error {
	return internalshm.UnmapRegion(ctx, s.region)
}

func (s *segment) unlink() error {
	if err := internalshm.RemoveRegion(s.name); err != nil {
		return fmt.Errorf("shm: unlink segment %q: %w", s.name, err)
	}
	logger.Internal.Infof("shm unlinked: %s", s.name)
	return nil
}
