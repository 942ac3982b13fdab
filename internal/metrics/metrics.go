// Package metrics provides Prometheus metrics instrumentation for the provisioner.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector provides metrics recording interface.
// This allows components to record metrics without direct prometheus dependency.
//
//nolint:interfacebloat // All methods are needed for comprehensive metrics coverage
type Collector interface {
	// Reconciliation metrics
	RecordReconcile(ctx context.Context, outcome string, duration time.Duration)
	RecordProvisionStep(ctx context.Context, step, status string)

	// Control-plane API metrics
	RecordCloudAPICall(ctx context.Context, service, method, status string, duration time.Duration)
	RecordCloudAPIError(ctx context.Context, method, errorType string)

	// Edge routing metrics
	RecordEdgeAPICall(ctx context.Context, method, status string, duration time.Duration)
	RecordEdgeAPIError(ctx context.Context, method, errorType string)
	RecordIngressRules(ctx context.Context, count int)
	RecordTablePush(ctx context.Context, status string)
	RecordDNSRecord(ctx context.Context, status string)
}

// prometheusCollector implements Collector using Prometheus metrics.
type prometheusCollector struct {
	// Reconciliation metrics
	reconcileDuration   *prometheus.HistogramVec
	provisionStepsTotal *prometheus.CounterVec

	// Control-plane API metrics
	cloudAPIDuration    *prometheus.HistogramVec
	cloudAPICallsTotal  *prometheus.CounterVec
	cloudAPIErrorsTotal *prometheus.CounterVec

	// Edge routing metrics
	edgeAPIDuration    *prometheus.HistogramVec
	edgeAPICallsTotal  *prometheus.CounterVec
	edgeAPIErrorsTotal *prometheus.CounterVec
	ingressRulesTotal  prometheus.Gauge
	tablePushesTotal   *prometheus.CounterVec
	dnsRecordsTotal    *prometheus.CounterVec
}

// NewCollector creates a new Prometheus metrics collector and registers metrics.
func NewCollector(reg prometheus.Registerer) Collector {
	c := &prometheusCollector{}
	c.initReconcileMetrics()
	c.initCloudMetrics()
	c.initEdgeMetrics()
	c.register(reg)

	return c
}

// RecordReconcile records the outcome and duration of a tenant reconciliation.
func (c *prometheusCollector) RecordReconcile(_ context.Context, outcome string, duration time.Duration) {
	c.reconcileDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordProvisionStep records one provisioning sub-protocol step result.
func (c *prometheusCollector) RecordProvisionStep(_ context.Context, step, status string) {
	c.provisionStepsTotal.WithLabelValues(step, status).Inc()
}

// RecordCloudAPICall records a control-plane API call.
func (c *prometheusCollector) RecordCloudAPICall(
	_ context.Context,
	service, method, status string,
	duration time.Duration,
) {
	c.cloudAPIDuration.WithLabelValues(service, method).Observe(duration.Seconds())
	c.cloudAPICallsTotal.WithLabelValues(service, method, status).Inc()
}

// RecordCloudAPIError records a control-plane API error.
func (c *prometheusCollector) RecordCloudAPIError(_ context.Context, method, errorType string) {
	c.cloudAPIErrorsTotal.WithLabelValues(method, errorType).Inc()
}

// RecordEdgeAPICall records a Cloudflare API call.
func (c *prometheusCollector) RecordEdgeAPICall(
	_ context.Context,
	method, status string,
	duration time.Duration,
) {
	c.edgeAPIDuration.WithLabelValues(method).Observe(duration.Seconds())
	c.edgeAPICallsTotal.WithLabelValues(method, status).Inc()
}

// RecordEdgeAPIError records a Cloudflare API error.
func (c *prometheusCollector) RecordEdgeAPIError(_ context.Context, method, errorType string) {
	c.edgeAPIErrorsTotal.WithLabelValues(method, errorType).Inc()
}

// RecordIngressRules records the total number of ingress rules.
func (c *prometheusCollector) RecordIngressRules(_ context.Context, count int) {
	c.ingressRulesTotal.Set(float64(count))
}

// RecordTablePush records one full replacement of the remote rule table.
func (c *prometheusCollector) RecordTablePush(_ context.Context, status string) {
	c.tablePushesTotal.WithLabelValues(status).Inc()
}

// RecordDNSRecord records one DNS record creation attempt.
func (c *prometheusCollector) RecordDNSRecord(_ context.Context, status string) {
	c.dnsRecordsTotal.WithLabelValues(status).Inc()
}

func (c *prometheusCollector) initReconcileMetrics() {
	c.reconcileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "midgard_reconcile_duration_seconds",
			Help:    "Duration of tenant reconciliation by outcome",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"outcome"},
	)
	c.provisionStepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "midgard_provision_steps_total",
			Help: "Provisioning sub-protocol steps by step and status",
		},
		[]string{"step", "status"},
	)
}

func (c *prometheusCollector) initCloudMetrics() {
	c.cloudAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "midgard_cloud_api_duration_seconds",
			Help:    "Duration of control-plane API calls",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service", "method"},
	)
	c.cloudAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "midgard_cloud_api_calls_total",
			Help: "Total control-plane API calls",
		},
		[]string{"service", "method", "status"},
	)
	c.cloudAPIErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "midgard_cloud_api_errors_total",
			Help: "Total control-plane API errors by type",
		},
		[]string{"method", "error_type"},
	)
}

func (c *prometheusCollector) initEdgeMetrics() {
	c.edgeAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "midgard_cloudflare_api_duration_seconds",
			Help:    "Duration of Cloudflare API calls",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method"},
	)
	c.edgeAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "midgard_cloudflare_api_calls_total",
			Help: "Total Cloudflare API calls",
		},
		[]string{"method", "status"},
	)
	c.edgeAPIErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "midgard_cloudflare_api_errors_total",
			Help: "Total Cloudflare API errors by type",
		},
		[]string{"method", "error_type"},
	)
	c.ingressRulesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "midgard_ingress_rules",
			Help: "Total ingress rules in tunnel config after last push",
		},
	)
	c.tablePushesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "midgard_ingress_table_pushes_total",
			Help: "Full rule table replacements by status",
		},
		[]string{"status"},
	)
	c.dnsRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "midgard_dns_records_total",
			Help: "DNS record creations by status",
		},
		[]string{"status"},
	)
}

func (c *prometheusCollector) register(reg prometheus.Registerer) {
	reg.MustRegister(
		c.reconcileDuration,
		c.provisionStepsTotal,
		c.cloudAPIDuration,
		c.cloudAPICallsTotal,
		c.cloudAPIErrorsTotal,
		c.edgeAPIDuration,
		c.edgeAPICallsTotal,
		c.edgeAPIErrorsTotal,
		c.ingressRulesTotal,
		c.tablePushesTotal,
		c.dnsRecordsTotal,
	)
}

// NoopCollector is a no-op implementation of Collector for testing.
type NoopCollector struct{}

// NewNoopCollector creates a new no-op collector.
func NewNoopCollector() *NoopCollector {
	return &NoopCollector{}
}

// RecordReconcile is a no-op.
func (c *NoopCollector) RecordReconcile(_ context.Context, _ string, _ time.Duration) {}

// RecordProvisionStep is a no-op.
func (c *NoopCollector) RecordProvisionStep(_ context.Context, _, _ string) {}

// RecordCloudAPICall is a no-op.
func (c *NoopCollector) RecordCloudAPICall(_ context.Context, _, _, _ string, _ time.Duration) {}

// RecordCloudAPIError is a no-op.
func (c *NoopCollector) RecordCloudAPIError(_ context.Context, _, _ string) {}

// RecordEdgeAPICall is a no-op.
func (c *NoopCollector) RecordEdgeAPICall(_ context.Context, _, _ string, _ time.Duration) {}

// RecordEdgeAPIError is a no-op.
func (c *NoopCollector) RecordEdgeAPIError(_ context.Context, _, _ string) {}

// RecordIngressRules is a no-op.
func (c *NoopCollector) RecordIngressRules(_ context.Context, _ int) {}

// RecordTablePush is a no-op.
func (c *NoopCollector) RecordTablePush(_ context.Context, _ string) {}

// RecordDNSRecord is a no-op.
func (c *NoopCollector) RecordDNSRecord(_ context.Context, _ string) {}
