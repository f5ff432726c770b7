/* Metrics.go: prometheus instrumentation for the bridge
 *
 * This software is open source software available under the BSD-3 license.
 * Copyright (c) 2018-2021, Triad National Security, LLC
 * See LICENSE file for details.
 */

package core

import (
	"github.com/kraken-hpc/ipmbbridge/lib/ipmb"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ipmbbridge"

// Metrics holds the bridge counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	frames        *prometheus.CounterVec
	dropped       *prometheus.CounterVec
	requests      *prometheus.CounterVec
	writeFailures *prometheus.CounterVec
	filtered      *prometheus.CounterVec
	upstream      *prometheus.CounterVec
}

// NewMetrics creates the bridge counters and registers them with r, if r is not nil
func NewMetrics(r prometheus.Registerer) *Metrics {
	m := &Metrics{
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Valid IPMB frames received, by kind.",
		}, []string{"channel", "kind"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Inbound IPMB frames dropped, by reason.",
		}, []string{"channel", "reason"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Outbound IPMB requests, by result status.",
		}, []string{"channel", "status"}),
		writeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "write_failures_total",
			Help:      "Frames that could not be written after inline retries.",
		}, []string{"channel"}),
		filtered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filtered_requests_total",
			Help:      "Inbound requests answered locally with an invalid command completion code.",
		}, []string{"channel"}),
		upstream: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_calls_total",
			Help:      "Inbound requests forwarded to the IPMI responder, by result.",
		}, []string{"channel", "result"}),
	}
	if r != nil {
		r.MustRegister(m.frames, m.dropped, m.requests, m.writeFailures, m.filtered, m.upstream)
	}
	return m
}

func (m *Metrics) frame(t ChannelType, kind string) {
	if m != nil {
		m.frames.WithLabelValues(t.String(), kind).Inc()
	}
}

func (m *Metrics) drop(t ChannelType, reason string) {
	if m != nil {
		m.dropped.WithLabelValues(t.String(), reason).Inc()
	}
}

func (m *Metrics) request(t ChannelType, s Status) {
	if m != nil {
		m.requests.WithLabelValues(t.String(), s.String()).Inc()
	}
}

func (m *Metrics) writeFailure(t ChannelType) {
	if m != nil {
		m.writeFailures.WithLabelValues(t.String()).Inc()
	}
}

func (m *Metrics) filter(t ChannelType) {
	if m != nil {
		m.filtered.WithLabelValues(t.String()).Inc()
	}
}

func (m *Metrics) upstreamCall(t ChannelType, result string) {
	if m != nil {
		m.upstream.WithLabelValues(t.String(), result).Inc()
	}
}

var _ prometheus.Collector = (*registryCollector)(nil)

// registryCollector reports channel state at scrape time
type registryCollector struct {
	reg         *ChannelRegistry
	filter      *ipmb.CommandFilter
	outstanding *prometheus.Desc
	bmcAddr     *prometheus.Desc
	filterSize  *prometheus.Desc
}

func newRegistryCollector(reg *ChannelRegistry, filter *ipmb.CommandFilter) *registryCollector {
	return &registryCollector{
		reg:    reg,
		filter: filter,
		outstanding: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "outstanding_requests"),
			"Requests currently waiting for a response.",
			[]string{"channel"},
			nil,
		),
		bmcAddr: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "bmc_slave_address"),
			"The BMC's current 8-bit slave address on the channel.",
			[]string{"channel"},
			nil,
		),
		filterSize: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "filtered_commands"),
			"Commands learned to be unsupported by the IPMI responder.",
			nil,
			nil,
		),
	}
}

func (c *registryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.outstanding
	ch <- c.bmcAddr
	ch <- c.filterSize
}

func (c *registryCollector) Collect(ch chan<- prometheus.Metric) {
	for _, chn := range c.reg.Channels() {
		s := chn.Status()
		ch <- prometheus.MustNewConstMetric(c.outstanding, prometheus.GaugeValue, float64(s.Outstanding), s.Type.String())
		ch <- prometheus.MustNewConstMetric(c.bmcAddr, prometheus.GaugeValue, float64(s.BmcAddr), s.Type.String())
	}
	ch <- prometheus.MustNewConstMetric(c.filterSize, prometheus.GaugeValue, float64(c.filter.Len()))
}
