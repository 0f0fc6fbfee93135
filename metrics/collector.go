package metrics

import (
	"github.com/hugolhafner/go-dispatch/tracker"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dispatch"

// StatsSource is anything that can report tracker stats, normally a
// *tracker.Tracker or a *dispatch.Dispatcher.
type StatsSource interface {
	Stats() tracker.Stats
}

var _ prometheus.Collector = (*Collector)(nil)

// Collector exposes tracker stats as prometheus metrics. Values are read
// at scrape time.
type Collector struct {
	source StatsSource

	pending   *prometheus.Desc
	submitted *prometheus.Desc
	succeeded *prometheus.Desc
	failed    *prometheus.Desc
	stale     *prometheus.Desc
	abandoned *prometheus.Desc
}

func NewCollector(source StatsSource, constLabels prometheus.Labels) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, constLabels)
	}

	return &Collector{
		source:    source,
		pending:   desc("pending", "Dispatches awaiting acknowledgment."),
		submitted: desc("submitted_total", "Dispatches handed to the transport."),
		succeeded: desc("succeeded_total", "Dispatches acknowledged successfully."),
		failed:    desc("failed_total", "Dispatches acknowledged with a failure."),
		stale:     desc("stale_acks_total", "Acknowledgments that matched no pending dispatch."),
		abandoned: desc("abandoned_total", "Dispatches abandoned before acknowledgment."),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.pending
	ch <- c.submitted
	ch <- c.succeeded
	ch <- c.failed
	ch <- c.stale
	ch <- c.abandoned
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats()

	ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, float64(s.Pending))
	ch <- prometheus.MustNewConstMetric(c.submitted, prometheus.CounterValue, float64(s.Submitted))
	ch <- prometheus.MustNewConstMetric(c.succeeded, prometheus.CounterValue, float64(s.Succeeded))
	ch <- prometheus.MustNewConstMetric(c.failed, prometheus.CounterValue, float64(s.Failed))
	ch <- prometheus.MustNewConstMetric(c.stale, prometheus.CounterValue, float64(s.Stale))
	ch <- prometheus.MustNewConstMetric(c.abandoned, prometheus.CounterValue, float64(s.Abandoned))
}
