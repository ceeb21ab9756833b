package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/hisiddique/bloodathome"

// Metrics are the booking engine counters. The zero value is not usable;
// build it with NewMetrics. Instruments come from the global meter
// provider, which is a no-op until Init runs.
type Metrics struct {
	bookingsCommitted metric.Int64Counter
	promoRejections   metric.Int64Counter
	commitConflicts   metric.Int64Counter
	searches          metric.Int64Counter
}

func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	bookingsCommitted, err := meter.Int64Counter("bookings_committed_total",
		metric.WithDescription("Drafts committed into bookings"))
	if err != nil {
		return nil, err
	}
	promoRejections, err := meter.Int64Counter("promo_rejections_total",
		metric.WithDescription("Promo codes rejected at preview or commit"))
	if err != nil {
		return nil, err
	}
	commitConflicts, err := meter.Int64Counter("commit_conflicts_total",
		metric.WithDescription("Confirm calls that lost a concurrent commit and returned the winner"))
	if err != nil {
		return nil, err
	}
	searches, err := meter.Int64Counter("provider_searches_total",
		metric.WithDescription("Provider searches by outcome"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		bookingsCommitted: bookingsCommitted,
		promoRejections:   promoRejections,
		commitConflicts:   commitConflicts,
		searches:          searches,
	}, nil
}

func (m *Metrics) BookingCommitted(ctx context.Context, promoApplied bool) {
	if m == nil {
		return
	}
	m.bookingsCommitted.Add(ctx, 1, metric.WithAttributes(attribute.Bool("promo", promoApplied)))
}

func (m *Metrics) PromoRejected(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.promoRejections.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

func (m *Metrics) CommitConflict(ctx context.Context) {
	if m == nil {
		return
	}
	m.commitConflicts.Add(ctx, 1)
}

func (m *Metrics) Search(ctx context.Context, outcome string, widened bool) {
	if m == nil {
		return
	}
	m.searches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.Bool("widened", widened),
	))
}
