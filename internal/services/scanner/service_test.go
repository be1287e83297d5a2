package scanner

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safelink/internal/domain"
)

type fakeScorer struct {
	assessment domain.Assessment
	err        error
	gotVector  []float64
}

func (f *fakeScorer) Score(features domain.Features) (domain.Assessment, error) {
	f.gotVector = features.Vector()
	return f.assessment, f.err
}

func (f *fakeScorer) Combine(ruleScore float64, assessment domain.Assessment, features domain.Features) domain.Hybrid {
	score := 0.6*ruleScore + 0.4*assessment.Score
	return domain.Hybrid{
		Score:     score,
		Level:     domain.ClassifyThreat(score),
		RuleScore: ruleScore,
		MLScore:   assessment.Score,
	}
}

func stubStages(svc *Service, age domain.DomainAgeResult, tlsRes domain.TLSResult, bl domain.BlacklistResult, redir domain.RedirectResult) {
	svc.ageFn = func(context.Context, string) domain.DomainAgeResult { return age }
	svc.tlsFn = func(context.Context, *url.URL) domain.TLSResult { return tlsRes }
	svc.blFn = func(context.Context, string) domain.BlacklistResult { return bl }
	svc.redirFn = func(context.Context, string) domain.RedirectResult { return redir }
}

func TestNormalize(t *testing.T) {
	normalized, u, err := Normalize("example.com/path")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/path", normalized)
	assert.Equal(t, "example.com", u.Hostname())

	normalized, _, err = Normalize("  http://example.com  ")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com", normalized)

	_, _, err = Normalize("https://")
	assert.ErrorIs(t, err, domain.ErrInvalidURL)

	_, _, err = Normalize("")
	assert.ErrorIs(t, err, domain.ErrInvalidURL)
}

func TestScanAggregatesStages(t *testing.T) {
	scorer := &fakeScorer{assessment: domain.Assessment{Score: 50, Confidence: "Medium"}}
	svc := New(DefaultPolicy(), nil, scorer)
	stubStages(svc,
		domain.DomainAgeResult{Outcome: domain.OutcomeOK, AgeDays: 20, Score: 20, Rules: []domain.RuleHit{{Description: "age", Points: 20}}},
		domain.TLSResult{Outcome: domain.OutcomeOK, HasHTTPS: true, ValidCert: true},
		domain.BlacklistResult{},
		domain.RedirectResult{Outcome: domain.OutcomeOK, Count: 3, Score: 8, Rules: []domain.RuleHit{{Description: "hops", Points: 8}}},
	)

	res, err := svc.Scan(context.Background(), "https://example-host.net/login")
	require.NoError(t, err)

	// lexical keyword (8) + age (20) + redirects (8)
	assert.Equal(t, 36, res.RuleScore)
	assert.Len(t, res.Rules, 3)
	assert.Equal(t, "example-host.net", res.RegistrableDomain)
	assert.Equal(t, 20, res.Features.DomainAgeDays)
	assert.Equal(t, 3, res.Features.RedirectCount)
	assert.True(t, res.Features.HasHTTPS)
	assert.True(t, res.Features.HasValidSSL)
	assert.Equal(t, 1, res.Features.SuspiciousPatterns)
	assert.Len(t, scorer.gotVector, domain.NumFeatures)
	assert.False(t, res.ScannedAt.IsZero())
}

func TestScanRuleScoreCapped(t *testing.T) {
	scorer := &fakeScorer{assessment: domain.Assessment{Score: 90, IsAnomaly: true, Confidence: "High"}}
	svc := New(DefaultPolicy(), nil, scorer)
	stubStages(svc,
		domain.DomainAgeResult{Score: 25},
		domain.TLSResult{Score: 20},
		domain.BlacklistResult{Listed: true, Score: 40},
		domain.RedirectResult{Score: 20},
	)

	res, err := svc.Scan(context.Background(), "http://198.51.100.7/verify-login-account")
	require.NoError(t, err)

	assert.Equal(t, 100, res.RuleScore)
	assert.True(t, res.Features.IsBlacklisted)
	assert.True(t, res.Features.HasIPInURL)
}

func TestScanInvalidURL(t *testing.T) {
	svc := New(DefaultPolicy(), nil, &fakeScorer{})
	_, err := svc.Scan(context.Background(), "http://")
	assert.ErrorIs(t, err, domain.ErrInvalidURL)
}

func TestScanModelFailureAborts(t *testing.T) {
	scorer := &fakeScorer{err: errors.New("shape mismatch")}
	svc := New(DefaultPolicy(), nil, scorer)
	stubStages(svc, domain.DomainAgeResult{}, domain.TLSResult{}, domain.BlacklistResult{}, domain.RedirectResult{})

	_, err := svc.Scan(context.Background(), "https://example.org/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "risk model")
}
