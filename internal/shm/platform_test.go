package shm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanName(t *testing.T) {
	clean, err := CleanName("/telemetry")
	assert.Nil(t, err)
	assert.Equal(t, "telemetry", clean)

	clean, err = CleanName("a.b-c_d")
	assert.Nil(t, err)
	assert.Equal(t, "a.b-c_d", clean)

	for _, name := range []string{"", "/", "a/b", "//x", ".", "..", "nul\x00byte", string(make([]byte, maxNameLen+1))} {
		_, err := CleanName(name)
		assert.ErrorIs(t, err, ErrInvalidName, "%q", name)
	}
}

func TestSizeError(t *testing.T) {
	err := &SizeError{Name: "seg", Want: 40, Got: 48}
	assert.Contains(t, err.Error(), `"seg"`)
	assert.Contains(t, err.Error(), "48")
}
