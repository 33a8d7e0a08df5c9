// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package oracle

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("lintpilot.oracle")
	meter  = otel.Meter("lintpilot.oracle")
)

var (
	callLatency    metric.Float64Histogram
	callTotal      metric.Int64Counter
	normalizeTotal metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		callLatency, err = meter.Float64Histogram(
			"lintpilot_oracle_call_duration_seconds",
			metric.WithDescription("Duration of oracle calls"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		callTotal, err = meter.Int64Counter(
			"lintpilot_oracle_calls_total",
			metric.WithDescription("Total number of oracle calls"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		normalizeTotal, err = meter.Int64Counter(
			"lintpilot_oracle_normalize_total",
			metric.WithDescription("Normalization outcomes by winning strategy"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordCall(ctx context.Context, provider, request string, duration time.Duration, success bool) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("request", request),
		attribute.Bool("success", success),
	)
	callLatency.Record(ctx, duration.Seconds(), attrs)
	callTotal.Add(ctx, 1, attrs)
}

func recordNormalize(ctx context.Context, schema, strategy string) {
	if err := initMetrics(); err != nil {
		return
	}
	normalizeTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("schema", schema),
		attribute.String("strategy", strategy),
	))
}
