// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package fixgen

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("lintpilot.fixgen")
	meter  = otel.Meter("lintpilot.fixgen")
)

var (
	proposalTotal metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		proposalTotal, metricsErr = meter.Int64Counter(
			"lintpilot_fixgen_proposals_total",
			metric.WithDescription("Location fix proposals by outcome"),
		)
	})
	return metricsErr
}

// recordProposal counts one location outcome: accepted, rejected or failed.
func recordProposal(ctx context.Context, rule, outcome string) {
	if err := initMetrics(); err != nil {
		return
	}
	proposalTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("rule", rule),
		attribute.String("outcome", outcome),
	))
}
