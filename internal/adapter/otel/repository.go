package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jmolas/spagate/internal/domain"
)

const tracerName = "github.com/jmolas/spagate/internal/adapter/otel"

// TracingRepository wraps a domain.SpaRepository with OpenTelemetry tracing.
// Each method creates a span with semantic attributes and records errors.
type TracingRepository struct {
	next   domain.SpaRepository
	tracer trace.Tracer
}

// Compile-time check: TracingRepository implements domain.SpaRepository.
var _ domain.SpaRepository = (*TracingRepository)(nil)

// NewTracingRepository creates a tracing decorator around the given repository.
func NewTracingRepository(next domain.SpaRepository) *TracingRepository {
	return &TracingRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingRepository) Create(ctx context.Context, spa domain.Spa) error {
	ctx, span := r.tracer.Start(ctx, "SpaRepository.Create",
		trace.WithAttributes(
			attribute.String("spa.id", spa.ID),
			attribute.String("spa.status", string(spa.Status)),
		),
	)
	defer span.End()

	err := r.next.Create(ctx, spa)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingRepository) GetByID(ctx context.Context, id string) (domain.Spa, error) {
	ctx, span := r.tracer.Start(ctx, "SpaRepository.GetByID",
		trace.WithAttributes(attribute.String("spa.id", id)),
	)
	defer span.End()

	spa, err := r.next.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return spa, err
}

func (r *TracingRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Spa, error) {
	ctx, span := r.tracer.Start(ctx, "SpaRepository.List",
		trace.WithAttributes(
			attribute.Int("filter.limit", filter.Limit),
			attribute.Int("filter.offset", filter.Offset),
		),
	)
	defer span.End()

	if filter.Status != nil {
		span.SetAttributes(attribute.String("filter.status", string(*filter.Status)))
	}

	spas, err := r.next.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("result.count", len(spas)))
	}
	return spas, err
}

func (r *TracingRepository) CompareAndSwapStatus(ctx context.Context, id string, expected domain.Status, spa domain.Spa) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "SpaRepository.CompareAndSwapStatus",
		trace.WithAttributes(
			attribute.String("spa.id", id),
			attribute.String("spa.status.expected", string(expected)),
			attribute.String("spa.status.new", string(spa.Status)),
		),
	)
	defer span.End()

	ok, err := r.next.CompareAndSwapStatus(ctx, id, expected, spa)
	span.SetAttributes(attribute.Bool("swap.applied", ok))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return ok, err
}
