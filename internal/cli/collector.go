package cli

import (
	"github.com/prometheus/client_golang/prometheus"
)

// collector exports every slot of every attached record set as a gauge.
// Values are read from shared memory at scrape time.
type collector struct {
	reg          *registry
	value        *prometheus.Desc
	attached     *prometheus.Desc
	attachErrors *prometheus.Desc
}

func newCollector(reg *registry) *collector {
	return &collector{
		reg: reg,
		value: prometheus.NewDesc("shmrecord_value",
			"Current value of a record set field.", []string{"set", "field"}, nil),
		attached: prometheus.NewDesc("shmrecord_attached",
			"Whether the record set is attached (1) or failed to open (0).", []string{"set"}, nil),
		attachErrors: prometheus.NewDesc("shmrecord_attach_errors_total",
			"Record sets that failed to open.", nil, nil),
	}
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.value
	ch <- c.attached
	ch <- c.attachErrors
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.attachErrors, prometheus.CounterValue,
		float64(c.reg.attachErrors.Load()))
	for _, a := range c.reg.list() {
		if a.Ready() != nil {
			ch <- prometheus.MustNewConstMetric(c.attached, prometheus.GaugeValue, 0, a.entry.Label)
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.attached, prometheus.GaugeValue, 1, a.entry.Label)
		for field, v := range a.rs.Items() {
			ch <- prometheus.MustNewConstMetric(c.value, prometheus.GaugeValue, v.Float64(), a.entry.Label, field)
		}
	}
}
