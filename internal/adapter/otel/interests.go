package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/stanzaq/internal/domain"
)

const tracerName = "github.com/neomorfeo/stanzaq/internal/adapter/otel"

// TracingInterestRepository wraps the interest repository, the hot
// path of every queue mutation, with OpenTelemetry tracing. Each
// method creates a span with semantic attributes and records errors.
type TracingInterestRepository struct {
	next   domain.InterestRepository
	tracer trace.Tracer
}

// Compile-time check: TracingInterestRepository implements domain.InterestRepository.
var _ domain.InterestRepository = (*TracingInterestRepository)(nil)

// NewTracingInterestRepository creates a tracing decorator around the
// given repository.
func NewTracingInterestRepository(next domain.InterestRepository) *TracingInterestRepository {
	return &TracingInterestRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingInterestRepository) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func record(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func (r *TracingInterestRepository) Create(ctx context.Context, in domain.Interest) error {
	ctx, span := r.span(ctx, "InterestRepository.Create",
		attribute.String("interest.id", in.ID),
		attribute.String("listing.id", in.ListingID),
		attribute.String("interest.status", string(in.Status)),
	)
	defer span.End()

	err := r.next.Create(ctx, in)
	record(span, err)
	return err
}

func (r *TracingInterestRepository) Update(ctx context.Context, in domain.Interest) error {
	ctx, span := r.span(ctx, "InterestRepository.Update",
		attribute.String("interest.id", in.ID),
		attribute.String("interest.status", string(in.Status)),
	)
	defer span.End()

	err := r.next.Update(ctx, in)
	record(span, err)
	return err
}

func (r *TracingInterestRepository) FindOpenSolo(ctx context.Context, listingID, tenantID string) (domain.Interest, error) {
	ctx, span := r.span(ctx, "InterestRepository.FindOpenSolo",
		attribute.String("listing.id", listingID),
		attribute.String("tenant.id", tenantID),
	)
	defer span.End()

	in, err := r.next.FindOpenSolo(ctx, listingID, tenantID)
	record(span, err)
	return in, err
}

func (r *TracingInterestRepository) FindOpenGroup(ctx context.Context, listingID, groupID string) (domain.Interest, error) {
	ctx, span := r.span(ctx, "InterestRepository.FindOpenGroup",
		attribute.String("listing.id", listingID),
		attribute.String("group.id", groupID),
	)
	defer span.End()

	in, err := r.next.FindOpenGroup(ctx, listingID, groupID)
	record(span, err)
	return in, err
}

func (r *TracingInterestRepository) CountByStatus(ctx context.Context, listingID string, status domain.InterestStatus) (int, error) {
	ctx, span := r.span(ctx, "InterestRepository.CountByStatus",
		attribute.String("listing.id", listingID),
		attribute.String("interest.status", string(status)),
	)
	defer span.End()

	n, err := r.next.CountByStatus(ctx, listingID, status)
	record(span, err)
	return n, err
}

func (r *TracingInterestRepository) CountOpenByTenant(ctx context.Context, tenantID string) (int, error) {
	ctx, span := r.span(ctx, "InterestRepository.CountOpenByTenant",
		attribute.String("tenant.id", tenantID),
	)
	defer span.End()

	n, err := r.next.CountOpenByTenant(ctx, tenantID)
	record(span, err)
	return n, err
}

func (r *TracingInterestRepository) MaxPosition(ctx context.Context, listingID string) (int, error) {
	ctx, span := r.span(ctx, "InterestRepository.MaxPosition",
		attribute.String("listing.id", listingID),
	)
	defer span.End()

	n, err := r.next.MaxPosition(ctx, listingID)
	record(span, err)
	return n, err
}

func (r *TracingInterestRepository) NextWaiting(ctx context.Context, listingID string) (domain.Interest, error) {
	ctx, span := r.span(ctx, "InterestRepository.NextWaiting",
		attribute.String("listing.id", listingID),
	)
	defer span.End()

	in, err := r.next.NextWaiting(ctx, listingID)
	record(span, err)
	return in, err
}

func (r *TracingInterestRepository) ListOpenByListing(ctx context.Context, listingID string) ([]domain.Interest, error) {
	ctx, span := r.span(ctx, "InterestRepository.ListOpenByListing",
		attribute.String("listing.id", listingID),
	)
	defer span.End()

	out, err := r.next.ListOpenByListing(ctx, listingID)
	record(span, err)
	if err == nil {
		span.SetAttributes(attribute.Int("result.count", len(out)))
	}
	return out, err
}

func (r *TracingInterestRepository) ListOpenByGroup(ctx context.Context, groupID string) ([]domain.Interest, error) {
	ctx, span := r.span(ctx, "InterestRepository.ListOpenByGroup",
		attribute.String("group.id", groupID),
	)
	defer span.End()

	out, err := r.next.ListOpenByGroup(ctx, groupID)
	record(span, err)
	if err == nil {
		span.SetAttributes(attribute.Int("result.count", len(out)))
	}
	return out, err
}

func (r *TracingInterestRepository) ListByListingStatus(ctx context.Context, listingID string, status domain.InterestStatus) ([]domain.Interest, error) {
	ctx, span := r.span(ctx, "InterestRepository.ListByListingStatus",
		attribute.String("listing.id", listingID),
		attribute.String("interest.status", string(status)),
	)
	defer span.End()

	out, err := r.next.ListByListingStatus(ctx, listingID, status)
	record(span, err)
	if err == nil {
		span.SetAttributes(attribute.Int("result.count", len(out)))
	}
	return out, err
}
