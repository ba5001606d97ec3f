package evcore

import "github.com/prometheus/client_golang/prometheus"

// MetricsCollector adapts a Loop's Stats snapshot into a
// prometheus.Collector, so a running loop's registry accounting can be
// scraped alongside the rest of a process's metrics.
type MetricsCollector struct {
	loop *Loop

	incoming   *prometheus.Desc
	outgoing   *prometheus.Desc
	dnsQueries *prometheus.Desc
	dataCount  *prometheus.Desc
	fnCount    *prometheus.Desc
}

// NewMetricsCollector builds a MetricsCollector for loop. Register it
// with a prometheus.Registry to expose evcore_* gauges.
func NewMetricsCollector(loop *Loop) *MetricsCollector {
	return &MetricsCollector{
		loop:       loop,
		incoming:   prometheus.NewDesc("evcore_incoming_connections", "Open sockets accepted by a TCP server.", nil, nil),
		outgoing:   prometheus.NewDesc("evcore_outgoing_connections", "Open sockets created by tcp-send.", nil, nil),
		dnsQueries: prometheus.NewDesc("evcore_open_dns_queries", "In-flight asynchronous DNS lookups.", nil, nil),
		dataCount:  prometheus.NewDesc("evcore_data_registry_count", "Live handle records.", nil, nil),
		fnCount:    prometheus.NewDesc("evcore_fn_registry_count", "Live callback bundles.", nil, nil),
	}
}

func (c *MetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.incoming
	ch <- c.outgoing
	ch <- c.dnsQueries
	ch <- c.dataCount
	ch <- c.fnCount
}

func (c *MetricsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.loop.Stats()
	ch <- prometheus.MustNewConstMetric(c.incoming, prometheus.GaugeValue, float64(s.IncomingConnections))
	ch <- prometheus.MustNewConstMetric(c.outgoing, prometheus.GaugeValue, float64(s.OutgoingConnections))
	ch <- prometheus.MustNewConstMetric(c.dnsQueries, prometheus.GaugeValue, float64(s.OpenDNSQueries))
	ch <- prometheus.MustNewConstMetric(c.dataCount, prometheus.GaugeValue, float64(s.DataRegistryCount))
	ch <- prometheus.MustNewConstMetric(c.fnCount, prometheus.GaugeValue, float64(s.FnRegistryCount))
}
