// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package loop

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("lintpilot.loop")
	meter  = otel.Meter("lintpilot.loop")
)

var (
	iterationTotal metric.Int64Counter
	actionTotal    metric.Int64Counter
	fixedTotal     metric.Int64Counter
	skippedTotal   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		iterationTotal, err = meter.Int64Counter(
			"lintpilot_loop_iterations_total",
			metric.WithDescription("Fix loop iterations (scans)"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		actionTotal, err = meter.Int64Counter(
			"lintpilot_loop_actions_total",
			metric.WithDescription("Actions taken on fix bundles"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		fixedTotal, err = meter.Int64Counter(
			"lintpilot_loop_fixed_total",
			metric.WithDescription("Location fixes applied"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		skippedTotal, err = meter.Int64Counter(
			"lintpilot_loop_skipped_total",
			metric.WithDescription("Occurrences skipped or failed to apply"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordIteration(ctx context.Context, mode Mode) {
	if err := initMetrics(); err != nil {
		return
	}
	iterationTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", string(mode))))
}

func recordAction(ctx context.Context, mode Mode, result ActionResult, skipped int) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("mode", string(mode)),
		attribute.String("action", result.Kind.String()),
	)
	actionTotal.Add(ctx, 1, attrs)
	if result.Kind == ActionApplyFixes && result.Applied > 0 {
		fixedTotal.Add(ctx, int64(result.Applied), attrs)
	}
	if skipped > 0 {
		skippedTotal.Add(ctx, int64(skipped), attrs)
	}
}
