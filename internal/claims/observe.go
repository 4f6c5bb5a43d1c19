// SPDX-License-Identifier: MIT

package claims

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	xglog "github.com/Shansgupta/Bajaj-hackathon/internal/log"
	"github.com/Shansgupta/Bajaj-hackathon/internal/metrics"
	"github.com/Shansgupta/Bajaj-hackathon/internal/telemetry"
)

const meterName = "github.com/Shansgupta/Bajaj-hackathon/internal/claims"

// observer records final decisions to Prometheus, the otel meter and the
// pipeline span.
type observer struct {
	decisions metric.Int64Counter
	amounts   metric.Float64Histogram
}

func newObserver(mp metric.MeterProvider) *observer {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)
	logger := xglog.WithComponent("claims")

	o := &observer{}
	var err error
	if o.decisions, err = meter.Int64Counter("claims.decision.total",
		metric.WithDescription("Final claim decisions by decision and source"),
	); err != nil {
		logger.Warn().Err(err).Str(xglog.FieldEvent, "claims.meter_init_failed").Msg("decision counter unavailable")
		o.decisions = noop.Int64Counter{}
	}
	if o.amounts, err = meter.Float64Histogram("claims.decision.amount",
		metric.WithDescription("Amount of final claim decisions"),
		metric.WithUnit("{INR}"),
	); err != nil {
		logger.Warn().Err(err).Str(xglog.FieldEvent, "claims.meter_init_failed").Msg("amount histogram unavailable")
		o.amounts = noop.Float64Histogram{}
	}
	return o
}

func (o *observer) decision(ctx context.Context, span trace.Span, res Response, source string) {
	attrs := metric.WithAttributes(
		attribute.String("decision", res.Decision),
		attribute.String("source", source),
	)
	o.decisions.Add(ctx, 1, attrs)
	o.amounts.Record(ctx, res.Amount, attrs)

	span.AddEvent("claim.decision", trace.WithAttributes(
		telemetry.ClaimAttributes(res.ParsedQuery.Procedure, res.Decision, source, res.Amount)...,
	))
	span.SetAttributes(attribute.String(telemetry.ClaimDecisionKey, res.Decision))
	metrics.RecordClaim(res.Decision, source, res.Amount)
}
