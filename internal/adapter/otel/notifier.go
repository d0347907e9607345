package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/stanzaq/internal/domain"
)

// TracingNotifier wraps a Notifier with OpenTelemetry tracing so that
// notification fan-out shows up linked to the queue operation that
// triggered it.
type TracingNotifier struct {
	next   domain.Notifier
	tracer trace.Tracer
}

var _ domain.Notifier = (*TracingNotifier)(nil)

// NewTracingNotifier creates a tracing decorator around the given notifier.
func NewTracingNotifier(next domain.Notifier) *TracingNotifier {
	return &TracingNotifier{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (n *TracingNotifier) Notify(ctx context.Context, note domain.Notification) error {
	ctx, span := n.tracer.Start(ctx, "Notifier.Notify",
		trace.WithAttributes(
			attribute.String("notification.type", string(note.Type)),
			attribute.String("notification.user", note.UserID),
		),
	)
	defer span.End()

	err := n.next.Notify(ctx, note)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
