package api

// Health reports whether a component can serve. It backs the /ready probe
// of the viewer daemon.
type Health interface {
	Ready() error
}
