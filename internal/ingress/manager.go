package ingress

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lexfrei/midgard/internal/fault"
	"github.com/lexfrei/midgard/internal/metrics"
)

// RemoteTable is the edge-routing client consumed by Manager: the hosted
// rule table plus DNS record creation. Implemented by CloudflareClient.
type RemoteTable interface {
	GetIngressTable(ctx context.Context) (Table, error)
	PutIngressTable(ctx context.Context, table Table) error
	CreateDNSRecord(ctx context.Context, hostname string) error
}

// Manager owns the fetch, insert, push cycle against the shared rule table.
//
// The remote table carries no version token, so two concurrent cycles would
// silently drop each other's rules. A single mutex serializes all writers in
// this process; cross-process races remain an accepted limitation.
type Manager struct {
	remote  RemoteTable
	domain  string
	metrics metrics.Collector

	mu sync.Mutex
}

// NewManager creates a Manager publishing under the given domain suffix.
func NewManager(remote RemoteTable, domain string, collector metrics.Collector) *Manager {
	if collector == nil {
		collector = metrics.NewNoopCollector()
	}

	return &Manager{
		remote:  remote,
		domain:  domain,
		metrics: collector,
	}
}

// FetchTable returns the current remote rule sequence.
func (m *Manager) FetchTable(ctx context.Context) (Table, error) {
	return m.remote.GetIngressTable(ctx)
}

// PushTable replaces the entire remote table, re-pinning the catch-all rule
// at the end.
func (m *Manager) PushTable(ctx context.Context, table Table) error {
	final := table.EnsureCatchAll()

	err := m.remote.PutIngressTable(ctx, final)
	if err != nil {
		m.metrics.RecordTablePush(ctx, "error")

		return err
	}

	m.metrics.RecordTablePush(ctx, "success")
	m.metrics.RecordIngressRules(ctx, final.Len())

	return nil
}

// Publish runs one serialized fetch→insert→push cycle for the given service
// endpoint and then creates the DNS record for the published hostname.
// Returns the normalized hostname.
//
// The DNS record is created after the table push; a failure there leaves the
// rule in place and surfaces the error (the provider owns CNAME idempotency,
// so a retried Publish fails on the hostname conflict instead).
func (m *Manager) Publish(ctx context.Context, service, hostname string, origin *OriginRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	logger := slog.Default().With("component", "ingress-manager")

	table, err := m.remote.GetIngressTable(ctx)
	if err != nil {
		return "", fault.Wrap(err, fault.KindRemoteUnavailable, "failed to fetch ingress table")
	}

	next, err := table.Insert(service, hostname, m.domain, origin)
	if err != nil {
		return "", err
	}

	normalized := NormalizeHostname(hostname, m.domain)

	err = m.PushTable(ctx, next)
	if err != nil {
		return "", fault.Wrap(err, fault.KindRemoteUnavailable, "failed to push ingress table")
	}

	logger.Info("published ingress rule",
		"hostname", normalized,
		"service", service,
		"rules", next.Len(),
	)

	err = m.remote.CreateDNSRecord(ctx, normalized)
	if err != nil {
		m.metrics.RecordDNSRecord(ctx, "error")

		return "", fault.Wrap(err, fault.KindRemoteUnavailable, "failed to create dns record")
	}

	m.metrics.RecordDNSRecord(ctx, "success")

	return normalized, nil
}
