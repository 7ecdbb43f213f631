package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jmolas/spagate/internal/domain"
)

// TracingSink wraps a domain.EffectSink with OpenTelemetry tracing.
type TracingSink struct {
	next   domain.EffectSink
	tracer trace.Tracer
}

// Compile-time check: TracingSink implements domain.EffectSink.
var _ domain.EffectSink = (*TracingSink)(nil)

// NewTracingSink creates a tracing decorator around the given sink.
func NewTracingSink(next domain.EffectSink) *TracingSink {
	return &TracingSink{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (s *TracingSink) Notify(ctx context.Context, e domain.NotificationEffect) error {
	ctx, span := s.tracer.Start(ctx, "EffectSink.Notify",
		trace.WithAttributes(
			attribute.String("spa.id", e.SpaID),
			attribute.String("notification.recipient", e.Recipient),
		),
	)
	defer span.End()

	err := s.next.Notify(ctx, e)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *TracingSink) Audit(ctx context.Context, e domain.AuditEffect) error {
	ctx, span := s.tracer.Start(ctx, "EffectSink.Audit",
		trace.WithAttributes(
			attribute.String("spa.id", e.SpaID),
			attribute.String("audit.event", string(e.Event)),
			attribute.String("audit.from", string(e.From)),
			attribute.String("audit.to", string(e.To)),
		),
	)
	defer span.End()

	err := s.next.Audit(ctx, e)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
