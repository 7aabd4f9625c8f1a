package shm

import (
	"errors"
	"slices"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultType is used when Config.Type is empty.
	DefaultType = "float64"
	// DefaultFormatVersion is used when Config.FormatVersion is empty. It is
	// part of the digest, so bump it when the meaning of a layout changes.
	DefaultFormatVersion = "1"
)

// Config holds record set creation parameters.
type Config struct {
	// Name is the machine-wide shared memory identifier.
	Name string
	// Count is the number of slots.
	Count int
	// Type is a scalar type tag, see ScalarTags.
	Type string
	// VarNames optionally names every slot. Empty means index keys "0".."Count-1".
	VarNames []string
	// Reset unlinks an existing segment before creating it. Attached
	// processes are left on an orphaned copy: use for exclusive test setups only.
	Reset bool
	// DisableSchemaCheck skips the guard claim/verify step. Debugging only.
	DisableSchemaCheck bool
	// FormatVersion is mixed into the schema digest.
	FormatVersion string

	Meter  metric.Meter
	Tracer trace.Tracer
}

// DefaultConfig returns a Config with every optional field at its default.
func DefaultConfig() Config {
	return Config{
		Type:          DefaultType,
		FormatVersion: DefaultFormatVersion,
	}
}

func (c Config) withDefaults() Config {
	if c.Type == "" {
		c.Type = DefaultType
	}
	if c.FormatVersion == "" {
		c.FormatVersion = DefaultFormatVersion
	}
	c.VarNames = slices.Clone(c.VarNames)
	return c
}

// Schema builds the schema this configuration describes.
func (c Config) Schema() (*Schema, error) {
	c = c.withDefaults()
	return BuildSchema(c.Name, c.Count, c.Type, c.VarNames, c.FormatVersion)
}

// VerifyConfig reports the first configuration error Open would fail with
// before any shared memory is touched.
func VerifyConfig(c Config) error {
	if c.Name == "" {
		return errors.New("shm: config has no segment name")
	}
	_, err := c.Schema()
	return err
}
