package shm

import (
	"errors"
	"fmt"
	"strings"

	internalshm "github.com/srediag/shmrecord/internal/shm"
)

// Configuration errors are returned by BuildSchema and Open. Access errors are
// returned by the slot and name accessors. Match them with errors.Is.
var (
	ErrInvalidScalarType           = errors.New("shm: invalid scalar type")
	ErrSchemaCountMismatch         = errors.New("shm: field name count does not match slot count")
	ErrDuplicateFieldName          = errors.New("shm: duplicate field name")
	ErrInvalidSegmentName          = internalshm.ErrInvalidName
	ErrSegmentSizeMismatch         = errors.New("shm: segment size mismatch")
	ErrSchemaConfigurationMismatch = errors.New("shm: schema configuration mismatch")
	ErrNoSpaceLeft                 = internalshm.ErrNoSpace
	ErrPlatformUnsupported         = internalshm.ErrUnsupported

	ErrSlotIndexOutOfRange = errors.New("shm: slot index out of range")
	ErrUnknownFieldName    = errors.New("shm: unknown field name")
	ErrValueOutOfRange     = errors.New("shm: value out of range")
	ErrClosed              = errors.New("shm: record set is closed")
)

// DuplicateFieldNameError lists every name that appears more than once.
type DuplicateFieldNameError struct {
	Segment string
	Names   []string
}

func (e *DuplicateFieldNameError) Error() string {
	return fmt.Sprintf("shm: duplicate field names %s in segment %q", quoteList(e.Names), e.Segment)
}

func (e *DuplicateFieldNameError) Unwrap() error { return ErrDuplicateFieldName }

// SegmentSizeMismatchError is returned when an existing segment has a size
// other than the one the local schema needs.
type SegmentSizeMismatchError struct {
	Segment     string
	Want        int
	Got         int64
	Description string
}

func (e *SegmentSizeMismatchError) Error() string {
	return fmt.Sprintf("shm: segment %q is %d bytes but this schema needs %d\n%s",
		e.Segment, e.Got, e.Want, e.Description)
}

func (e *SegmentSizeMismatchError) Unwrap() error { return ErrSegmentSizeMismatch }

// SchemaMismatchError is returned when the guard of a segment holds the digest
// of a different schema. Stored is what the segment holds, Local is ours.
type SchemaMismatchError struct {
	Segment     string
	Stored      Digest
	Local       Digest
	Description string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("shm: segment %q was initialized by a different schema\n"+
		"  stored digest: %s\n  local digest:  %s\nlocal schema:\n%s",
		e.Segment, e.Stored, e.Local, e.Description)
}

func (e *SchemaMismatchError) Unwrap() error { return ErrSchemaConfigurationMismatch }

func quoteList(names []string) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, n := range names {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%q", n)
	}
	b.WriteByte(']')
	return b.String()
}
