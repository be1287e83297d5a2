package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safelink/internal/domain"
)

type fakeWhois struct {
	rec WhoisRecord
	err error
}

func (f fakeWhois) Lookup(ctx context.Context, registrable string) (WhoisRecord, error) {
	return f.rec, f.err
}

func created(daysAgo int) *time.Time {
	t := time.Now().AddDate(0, 0, -daysAgo)
	return &t
}

func TestDomainAgeAllowListed(t *testing.T) {
	svc := New(DefaultPolicy(), fakeWhois{err: errors.New("must not be called")}, nil)
	res := svc.analyzeDomainAge(context.Background(), "google.com")

	assert.Equal(t, domain.OutcomeAllowListed, res.Outcome)
	assert.Equal(t, allowListedAgeDays, res.AgeDays)
	assert.Zero(t, res.Score)
	assert.False(t, res.NewlyRegistered)
}

func TestDomainAgeWhoisUnavailable(t *testing.T) {
	svc := New(DefaultPolicy(), nil, nil)
	res := svc.analyzeDomainAge(context.Background(), "example-host.net")

	assert.Equal(t, domain.OutcomeUnavailable, res.Outcome)
	assert.Equal(t, 8, res.Score)
	assert.Equal(t, -1, res.AgeDays)
}

func TestDomainAgeLookupFailure(t *testing.T) {
	svc := New(DefaultPolicy(), fakeWhois{err: errors.New("whois: connection refused")}, nil)
	res := svc.analyzeDomainAge(context.Background(), "example-host.net")

	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.Equal(t, 5, res.Score)
}

func TestDomainAgeTiers(t *testing.T) {
	cases := []struct {
		name    string
		daysAgo int
		score   int
		newish  bool
	}{
		{"very new", 10, 20, true},
		{"recent", 90, 12, true},
		{"under a year", 300, 5, false},
		{"mature", 2000, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := New(DefaultPolicy(), fakeWhois{rec: WhoisRecord{Created: created(tc.daysAgo), Registrar: "Test Registrar"}}, nil)
			res := svc.analyzeDomainAge(context.Background(), "example-host.net")

			assert.Equal(t, domain.OutcomeOK, res.Outcome)
			assert.Equal(t, tc.score, res.Score)
			assert.LessOrEqual(t, res.Score, maxDomainAgeScore)
			assert.Equal(t, tc.newish, res.NewlyRegistered)
			assert.Equal(t, "Test Registrar", res.Registrar)
			assert.InDelta(t, tc.daysAgo, res.AgeDays, 1)
		})
	}
}

func TestDomainAgeUnknownCreationDate(t *testing.T) {
	svc := New(DefaultPolicy(), fakeWhois{rec: WhoisRecord{Registrar: "Hidden"}}, nil)
	res := svc.analyzeDomainAge(context.Background(), "example-host.net")

	require.Equal(t, domain.OutcomeOK, res.Outcome)
	assert.Equal(t, -1, res.AgeDays)
	assert.Equal(t, 10, res.Score)
}
