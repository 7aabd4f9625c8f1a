// Package api defines the contracts record set producers and viewers are written against.
package api

import (
	"iter"

	"github.com/srediag/shmrecord/pkg/shm"
)

// Writer is what producers need: timers, signal generators, input pollers.
// The store puts no rate or ordering constraint on them.
type Writer interface {
	Set(i int, v shm.Value) error
	SetVar(name string, v shm.Value) error
}

// Reader is the read-only view used by display tooling. A Reader is polled
// at whatever cadence the viewer picks.
type Reader interface {
	Name() string
	Len() int
	Keys() []string
	Items() iter.Seq2[string, shm.Value]
	Values() []shm.Value
	Get(i int) (shm.Value, error)
	GetVar(name string) (shm.Value, error)
}

// ReadWriter is a full record set handle.
type ReadWriter interface {
	Reader
	Writer
	Close() error
}

var _ ReadWriter = (*shm.RecordSet)(nil)
