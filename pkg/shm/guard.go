package shm

import (
	"bytes"
	"fmt"
)

// GuardState is the outcome of checking a segment's guard.
type GuardState uint8

const (
	// GuardSkipped means schema verification was disabled for this handle.
	GuardSkipped GuardState = iota
	// GuardClaimed means the guard was empty and now holds our digest.
	GuardClaimed
	// GuardVerified means the guard already held our digest.
	GuardVerified
)

func (g GuardState) String() string {
	switch g {
	case GuardClaimed:
		return "claimed"
	case GuardVerified:
		return "verified"
	default:
		return "skipped"
	}
}

// ClaimOrVerify checks the guard bytes of a segment against schema s.
//
// An all-zero guard is claimed by writing the digest into it. A guard holding
// the same digest verifies. Anything else is a *SchemaMismatchError.
//
// There is no cross-process lock: two processes that see the zero guard at
// the same moment both claim it, and the later write wins.
func ClaimOrVerify(guard []byte, s *Schema) (GuardState, error) {
	if len(guard) != DigestSize {
		return GuardSkipped, fmt.Errorf("shm: guard is %d bytes, expected %d", len(guard), DigestSize)
	}
	local := s.Digest()
	switch {
	case isZero(guard):
		copy(guard, local[:])
		return GuardClaimed, nil
	case bytes.Equal(guard, local[:]):
		return GuardVerified, nil
	}
	var stored Digest
	copy(stored[:], guard)
	return GuardSkipped, &SchemaMismatchError{
		Segment:     s.SegmentName(),
		Stored:      stored,
		Local:       local,
		Description: s.Describe(),
	}
}

// ReadGuard copies the digest held in guard. A zero result means unclaimed.
func ReadGuard(guard []byte) Digest {
	var d Digest
	copy(d[:], guard)
	return d
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
