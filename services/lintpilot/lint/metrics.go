// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lint

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for analyzer invocations.
var (
	tracer = otel.Tracer("lintpilot.lint")
	meter  = otel.Meter("lintpilot.lint")
)

var (
	scanLatency     metric.Float64Histogram
	scanTotal       metric.Int64Counter
	diagnosticsSeen metric.Int64Histogram
	autofixTotal    metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		scanLatency, err = meter.Float64Histogram(
			"lintpilot_scan_duration_seconds",
			metric.WithDescription("Duration of analyzer invocations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		scanTotal, err = meter.Int64Counter(
			"lintpilot_scan_total",
			metric.WithDescription("Total number of analyzer scans"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		diagnosticsSeen, err = meter.Int64Histogram(
			"lintpilot_scan_diagnostics",
			metric.WithDescription("Number of diagnostics per scan"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		autofixTotal, err = meter.Int64Counter(
			"lintpilot_autofix_total",
			metric.WithDescription("Total number of analyzer auto-fix runs"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startSpan creates a span for an analyzer invocation.
func startSpan(ctx context.Context, name, linter, target string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithAttributes(
			attribute.String("lint.linter", linter),
			attribute.String("lint.target", target),
		),
	)
}

// recordScanMetrics records metrics for one Run.
func recordScanMetrics(ctx context.Context, linter string, duration time.Duration, diagnostics int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("linter", linter),
		attribute.Bool("success", success),
	)
	scanLatency.Record(ctx, duration.Seconds(), attrs)
	scanTotal.Add(ctx, 1, attrs)
	if success {
		diagnosticsSeen.Record(ctx, int64(diagnostics), metric.WithAttributes(
			attribute.String("linter", linter),
		))
	}
}

// recordAutoFix records one RunAutoFix.
func recordAutoFix(ctx context.Context, linter string, success bool) {
	if err := initMetrics(); err != nil {
		return
	}
	autofixTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("linter", linter),
		attribute.Bool("success", success),
	))
}
