package ports

import (
	"context"

	"safelink/internal/domain"
)

// Scanner is the single entry point of the scan pipeline: one URL in, one
// complete ScanResult out. Implementations run every stage (or its defined
// failure fallback) before returning.
type Scanner interface {
	Scan(ctx context.Context, rawurl string) (domain.ScanResult, error)
}

// RiskScorer runs the trained anomaly model against a feature vector and
// blends the result with the rule score. Implementations must be
// deterministic and safe for concurrent use.
type RiskScorer interface {
	Score(features domain.Features) (domain.Assessment, error)
	Combine(ruleScore float64, assessment domain.Assessment, features domain.Features) domain.Hybrid
}

// InsightGenerator explains a finished scan in remediation-oriented terms.
type InsightGenerator interface {
	Generate(res domain.ScanResult) []domain.Insight
}
