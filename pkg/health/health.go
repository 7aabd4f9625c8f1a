// Package health serves liveness and readiness probes for processes that
// hold record sets open, such as the viewer daemon.
package health

import (
	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/srediag/shmrecord/api"
)

// maxGoroutines fails liveness when pollers pile up.
const maxGoroutines = 1000

// Probes is an http.Handler serving /live and /ready.
type Probes struct {
	healthcheck.Handler
}

// NewProbes returns probes with a goroutine liveness check. A non-nil
// registry also exports every check result as a gauge.
func NewProbes(registry prometheus.Registerer) *Probes {
	var h healthcheck.Handler
	if registry != nil {
		h = healthcheck.NewMetricsHandler(registry, "shmrecord")
	} else {
		h = healthcheck.NewHandler()
	}
	h.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(maxGoroutines))
	return &Probes{Handler: h}
}

// AddRecordSet makes readiness depend on c.
func (p *Probes) AddRecordSet(label string, c api.Health) {
	p.AddReadinessCheck("recordset-"+label, c.Ready)
}
