// Package shm shares fixed-size arrays of typed scalars between processes
// through named shared memory segments.
//
// A segment is laid out as the slot data followed by a 32-byte guard. The
// first process to open a segment writes the BLAKE3 digest of its schema into
// the guard; every later process must present the same schema or Open fails
// with ErrSchemaConfigurationMismatch.
//
//	rs, err := shm.Open(ctx, shm.Config{
//		Name:     "telemetry",
//		Count:    3,
//		Type:     "float64",
//		VarNames: []string{"altitude", "speed", "heading"},
//	})
//	if err != nil {
//		return err
//	}
//	defer rs.Close()
//	_ = rs.SetVar("speed", shm.Float(12.5))
//
// Writes are not atomic across the bytes of a slot. The package assumes one
// writer per slot and any number of readers.
//
// Open is instrumented with OpenTelemetry when Config.Meter and Config.Tracer
// are set. Platform helpers live in internal/shm.
package shm
