package health

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
)

type readyFunc func() error

func (f readyFunc) Ready() error { return f() }

func status(h http.Handler, path string) int {
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, path, nil))
	return rw.Code
}

func TestProbes(t *testing.T) {
	p := NewProbes(nil)
	assert.Equal(t, http.StatusOK, status(p, "/live"))
	assert.Equal(t, http.StatusOK, status(p, "/ready"))

	var err error
	p.AddRecordSet("telemetry", readyFunc(func() error { return err }))
	assert.Equal(t, http.StatusOK, status(p, "/ready"))

	err = errors.New("not attached")
	assert.Equal(t, http.StatusServiceUnavailable, status(p, "/ready"))
	// liveness does not depend on record sets
	assert.Equal(t, http.StatusOK, status(p, "/live"))
}

func TestProbesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewProbes(reg)
	p.AddRecordSet("switches", readyFunc(func() error { return errors.New("down") }))
	assert.Equal(t, http.StatusServiceUnavailable, status(p, "/ready"))

	families, err := reg.Gather()
	assert.Nil(t, err)
	found := false
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if hasLabel(m, "check", "recordset-switches") {
				found = true
				assert.Equal(t, 1.0, m.GetGauge().GetValue())
			}
		}
	}
	assert.True(t, found)
}

func hasLabel(m *dto.Metric, name, value string) bool {
	for _, l := range m.GetLabel() {
		if l.GetName() == name && l.GetValue() == value {
			return true
		}
	}
	return false
}
