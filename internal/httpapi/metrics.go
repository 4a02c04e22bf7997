package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// collector adapts the store's query metrics and the scheduler's job
// metrics into Prometheus series on every scrape, rather than keeping a
// second set of counters in sync with the ones store and schedule
// already maintain.
type collector struct {
	s *Server
}

var (
	queryCountDesc = prometheus.NewDesc(
		"piwardrive_query_total", "Executed queries per SQL verb.",
		[]string{"verb"}, nil)
	queryLatencyDesc = prometheus.NewDesc(
		"piwardrive_query_mean_latency_seconds", "Mean query latency per SQL verb.",
		[]string{"verb"}, nil)
	jobSuccessDesc = prometheus.NewDesc(
		"piwardrive_job_success_total", "Successful scheduled job runs.",
		[]string{"job"}, nil)
	jobErrorDesc = prometheus.NewDesc(
		"piwardrive_job_error_total", "Failed scheduled job runs.",
		[]string{"job"}, nil)
	jobDurationDesc = prometheus.NewDesc(
		"piwardrive_job_last_duration_seconds", "Duration of the most recent run of a scheduled job.",
		[]string{"job"}, nil)
	widgetRefreshDesc = prometheus.NewDesc(
		"piwardrive_widget_refresh_total", "Widget refresh invocations.",
		[]string{"widget"}, nil)
)

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- queryCountDesc
	ch <- queryLatencyDesc
	ch <- jobSuccessDesc
	ch <- jobErrorDesc
	ch <- jobDurationDesc
	ch <- widgetRefreshDesc
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	if c.s.svc.Store != nil {
		for verb, stat := range c.s.svc.Store.Metrics().Snapshot() {
			ch <- prometheus.MustNewConstMetric(queryCountDesc, prometheus.CounterValue, float64(stat.Count), verb)
			ch <- prometheus.MustNewConstMetric(queryLatencyDesc, prometheus.GaugeValue, stat.MeanLatency.Seconds(), verb)
		}
	}
	if c.s.svc.Jobs != nil {
		for name, m := range c.s.svc.Jobs.Metrics() {
			ch <- prometheus.MustNewConstMetric(jobSuccessDesc, prometheus.CounterValue, float64(m.SuccessCount), name)
			ch <- prometheus.MustNewConstMetric(jobErrorDesc, prometheus.CounterValue, float64(m.ErrorCount), name)
			ch <- prometheus.MustNewConstMetric(jobDurationDesc, prometheus.GaugeValue, m.LastDuration.Seconds(), name)
		}
	}
	if c.s.svc.Widgets != nil {
		for name, count := range c.s.svc.Widgets.Metrics() {
			ch <- prometheus.MustNewConstMetric(widgetRefreshDesc, prometheus.CounterValue, float64(count), name)
		}
	}
}

// MetricsHandler returns the /metrics handler for mux registration. It
// builds a fresh registry rather than using the global default so
// scraping this server never picks up process metrics registered by
// an unrelated package sharing the binary.
func (s *Server) MetricsHandler() http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(&collector{s: s})
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
