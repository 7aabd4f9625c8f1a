package shm

import (
	"encoding/hex"
	"fmt"
	"slices"
	"strconv"

	"github.com/valyala/bytebufferpool"
	"github.com/zeebo/blake3"

	internalshm "github.com/srediag/shmrecord/internal/shm"
)

// DigestSize is the width of the guard region at the end of every segment.
const DigestSize = 32

// Digest identifies a schema across processes. The zero digest marks an
// unclaimed guard.
type Digest [DigestSize]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

func (d Digest) IsZero() bool { return d == Digest{} }

// Schema is the logical shape of a record set. It is immutable once built.
type Schema struct {
	segment string
	typ     ScalarType
	names   []string
	indexed bool
	version string

	canonical []byte
	digest    Digest
}

// BuildSchema validates a record set shape and computes its digest.
//
// When names is empty the fields are addressed by their index: "0", "1", ...
// Such a schema digests differently from one that spells the same names out.
func BuildSchema(segment string, count int, typeTag string, names []string, version string) (*Schema, error) {
	segment, err := internalshm.CleanName(segment)
	if err != nil {
		return nil, err
	}
	typ, err := ParseScalarType(typeTag)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: slot count must be positive, got %d", ErrSchemaCountMismatch, count)
	}

	s := &Schema{segment: segment, typ: typ, version: version}
	if len(names) == 0 {
		s.indexed = true
		s.names = make([]string, count)
		for i := range s.names {
			s.names[i] = strconv.Itoa(i)
		}
	} else {
		if len(names) != count {
			return nil, fmt.Errorf("%w: %d names given for %d slots in segment %q",
				ErrSchemaCountMismatch, len(names), count, segment)
		}
		if dups := duplicates(names); len(dups) > 0 {
			return nil, &DuplicateFieldNameError{Segment: segment, Names: dups}
		}
		s.names = slices.Clone(names)
	}

	s.canonical = s.serialize()
	s.digest = blake3.Sum256(s.canonical)
	return s, nil
}

// duplicates returns each repeated name once, sorted.
func duplicates(names []string) []string {
	seen := make(map[string]int, len(names))
	var dups []string
	for _, n := range names {
		seen[n]++
		if seen[n] == 2 {
			dups = append(dups, n)
		}
	}
	slices.Sort(dups)
	return dups
}

// serialize writes the canonical form the digest is computed from. Every
// variable-length field is length-prefixed, so no two schemas share a form.
func (s *Schema) serialize() []byte {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString("shmrecord-schema\n")
	writeBytesField(buf, "segment", s.segment)
	writeField(buf, "count", strconv.Itoa(len(s.names)))
	writeField(buf, "type", s.typ.String())
	if s.indexed {
		writeField(buf, "keys", "index")
	} else {
		writeField(buf, "keys", "names")
	}
	for _, n := range s.names {
		writeBytesField(buf, "name", n)
	}
	writeBytesField(buf, "version", s.version)
	return slices.Clone(buf.B)
}

func writeField(buf *bytebufferpool.ByteBuffer, key, value string) {
	_, _ = buf.WriteString(key)
	_ = buf.WriteByte(':')
	_, _ = buf.WriteString(value)
	_ = buf.WriteByte('\n')
}

func writeBytesField(buf *bytebufferpool.ByteBuffer, key, value string) {
	writeField(buf, key, strconv.Itoa(len(value))+":"+value)
}

func (s *Schema) SegmentName() string { return s.segment }

func (s *Schema) Count() int { return len(s.names) }

func (s *Schema) Type() ScalarType { return s.typ }

// Names returns a copy of the field names in slot order.
func (s *Schema) Names() []string { return slices.Clone(s.names) }

// Indexed reports whether the names are the implicit slot indexes.
func (s *Schema) Indexed() bool { return s.indexed }

func (s *Schema) FormatVersion() string { return s.version }

func (s *Schema) Digest() Digest { return s.digest }

// Canonical returns a copy of the bytes the digest was computed from.
func (s *Schema) Canonical() []byte { return slices.Clone(s.canonical) }

// DataBytes is the size of the slot region.
func (s *Schema) DataBytes() int { return len(s.names) * s.typ.Width() }

// TotalBytes is the full segment size: slots followed by the guard.
func (s *Schema) TotalBytes() int { return s.DataBytes() + DigestSize }

// Equal reports whether both schemas share a digest.
func (s *Schema) Equal(other *Schema) bool {
	return other != nil && s.digest == other.digest
}

// Describe renders the schema for error messages, one field per line, so two
// descriptions can be compared with diff.
func (s *Schema) Describe() string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	keys := "names"
	if s.indexed {
		keys = "index"
	}
	fmt.Fprintf(buf, "  segment: %q\n  count:   %d\n  type:    %s\n  keys:    %s\n  version: %q\n  digest:  %s\n  fields:\n",
		s.segment, len(s.names), s.typ, keys, s.version, s.digest)
	for i, n := range s.names {
		fmt.Fprintf(buf, "    %d %q\n", i, n)
	}
	return buf.String()
}
