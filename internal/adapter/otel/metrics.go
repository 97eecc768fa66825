// Package otel provides OpenTelemetry instrumentation for FiberDesk.
package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "fiberdesk"

// Metrics holds all FiberDesk metric instruments. A nil *Metrics is valid
// and records nothing, so tests can pass nil.
type Metrics struct {
	tenantsProvisioned metric.Int64Counter
	fallbackScans      metric.Int64Counter
	syncPages          metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.tenantsProvisioned, err = meter.Int64Counter("fiberdesk.tenants.provisioned",
		metric.WithDescription("Number of tenants provisioned"))
	if err != nil {
		return nil, err
	}

	m.fallbackScans, err = meter.Int64Counter("fiberdesk.resolver.fallback_scans",
		metric.WithDescription("Number of directory-wide fallback scans"))
	if err != nil {
		return nil, err
	}

	m.syncPages, err = meter.Int64Counter("fiberdesk.sync.pages",
		metric.WithDescription("Number of Alwatani pages fetched"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// AddTenantProvisioned records one provisioned tenant.
func (m *Metrics) AddTenantProvisioned(ctx context.Context) {
	if m == nil {
		return
	}
	m.tenantsProvisioned.Add(ctx, 1)
}

// AddFallbackScan records one directory-wide fallback scan.
func (m *Metrics) AddFallbackScan(ctx context.Context) {
	if m == nil {
		return
	}
	m.fallbackScans.Add(ctx, 1)
}

// AddSyncPage records one fetched Alwatani page.
func (m *Metrics) AddSyncPage(ctx context.Context) {
	if m == nil {
		return
	}
	m.syncPages.Add(ctx, 1)
}
