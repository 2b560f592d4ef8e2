package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/opsnotify/notification-hub/internal/notify"
)

const notifyScopeName = "github.com/opsnotify/notification-hub/notify"

// InstrumentedProvider wraps notify.Provider with OTel tracing and metrics.
// Every SendNotification gets a span and is counted in nhub.notify.* metrics.
type InstrumentedProvider struct {
	inner  notify.Provider
	tracer trace.Tracer
	sends  metric.Int64Counter
	errs   metric.Int64Counter
	dur    metric.Float64Histogram
}

// WrapProvider returns p decorated with OTel instrumentation.
// When telemetry is disabled, p is returned as-is.
func WrapProvider(p notify.Provider) notify.Provider {
	if !Enabled() {
		return p
	}
	return newInstrumentedProvider(p, Tracer(notifyScopeName), Meter(notifyScopeName))
}

func newInstrumentedProvider(p notify.Provider, tracer trace.Tracer, m metric.Meter) *InstrumentedProvider {
	sends, _ := m.Int64Counter("nhub.notify.sends",
		metric.WithDescription("Total notifications attempted"),
	)
	errs, _ := m.Int64Counter("nhub.notify.errors",
		metric.WithDescription("Total notifications that failed"),
	)
	dur, _ := m.Float64Histogram("nhub.notify.duration",
		metric.WithDescription("Notification delivery duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	return &InstrumentedProvider{inner: p, tracer: tracer, sends: sends, errs: errs, dur: dur}
}

// Unwrap returns the decorated provider.
func (p *InstrumentedProvider) Unwrap() notify.Provider { return p.inner }

// Name implements notify.Provider.
func (p *InstrumentedProvider) Name() string { return p.inner.Name() }

// SendNotification implements notify.Provider.
func (p *InstrumentedProvider) SendNotification(ctx context.Context, destination, message string, opts notify.Options) (notify.Result, error) {
	attrs := []attribute.KeyValue{attribute.String("nhub.provider", p.inner.Name())}
	ctx, span := p.tracer.Start(ctx, "notify."+p.inner.Name(),
		trace.WithAttributes(append(attrs, attribute.String("nhub.destination", destination))...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()
	p.sends.Add(ctx, 1, metric.WithAttributes(attrs...))

	start := time.Now()
	res, err := p.inner.SendNotification(ctx, destination, message, opts)
	p.dur.Record(ctx, float64(time.Since(start).Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.errs.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	return res, err
}
