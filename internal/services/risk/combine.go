package risk

import (
	"fmt"
	"math"

	"safelink/internal/domain"
)

// Hard floors applied after the weighted blend, in order. A blacklist hit or
// an IP-literal host is decisive on its own, whatever the model thinks.
const (
	blacklistFloor = 80.0
	ipLiteralFloor = 60.0
)

// Combine blends the rule score with the anomaly score using the trained
// weights, applies the override floors, and classifies the result.
func (m *Model) Combine(ruleScore float64, assessment domain.Assessment, features domain.Features) domain.Hybrid {
	rw, mw := m.params.RuleWeight, m.params.MLWeight

	hybrid := rw*ruleScore + mw*assessment.Score
	hybrid = round2(math.Min(hybrid, 100))

	if features.IsBlacklisted {
		hybrid = math.Max(hybrid, blacklistFloor)
	}
	if features.HasIPInURL {
		hybrid = math.Max(hybrid, ipLiteralFloor)
	}

	return domain.Hybrid{
		Score:      hybrid,
		Level:      domain.ClassifyThreat(hybrid),
		RuleScore:  round2(ruleScore),
		MLScore:    round2(assessment.Score),
		RuleWeight: rw,
		MLWeight:   mw,
		Formula: fmt.Sprintf("(%.2f x %.1f) + (%.2f x %.1f) = %.2f",
			rw, ruleScore, mw, assessment.Score, hybrid),
	}
}
