package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"

	"safelink/internal/domain"
)

const maxDomainAgeScore = 25

// allow-listed domains short-circuit to a mature age without a lookup
const allowListedAgeDays = 5000

// WhoisRecord is the subset of registry data the age stage needs.
type WhoisRecord struct {
	Created   *time.Time
	Expires   *time.Time
	Registrar string
}

// WhoisClient performs a registry lookup for a registrable domain.
type WhoisClient interface {
	Lookup(ctx context.Context, registrable string) (WhoisRecord, error)
}

// whoisClient resolves registry data over the WHOIS protocol.
type whoisClient struct {
	client *whois.Client
}

// NewWhoisClient returns the production WHOIS client with a bounded
// per-query timeout.
func NewWhoisClient(timeout time.Duration) WhoisClient {
	c := whois.NewClient()
	c.SetTimeout(timeout)
	return &whoisClient{client: c}
}

func (w *whoisClient) Lookup(ctx context.Context, registrable string) (WhoisRecord, error) {
	type lookupResult struct {
		rec WhoisRecord
		err error
	}
	ch := make(chan lookupResult, 1)
	go func() {
		raw, err := w.client.Whois(registrable)
		if err != nil {
			ch <- lookupResult{err: err}
			return
		}
		info, err := whoisparser.Parse(raw)
		if err != nil {
			ch <- lookupResult{err: err}
			return
		}
		rec := WhoisRecord{}
		if info.Domain != nil {
			rec.Created = info.Domain.CreatedDateInTime
			rec.Expires = info.Domain.ExpirationDateInTime
		}
		if info.Registrar != nil {
			rec.Registrar = info.Registrar.Name
		}
		ch <- lookupResult{rec: rec}
	}()
	select {
	case <-ctx.Done():
		return WhoisRecord{}, ctx.Err()
	case out := <-ch:
		return out.rec, out.err
	}
}

// analyzeDomainAge resolves how long the registrable domain has existed.
// Exactly one of allow-list short-circuit, unavailable, lookup failure, or
// success applies.
func (s *Service) analyzeDomainAge(ctx context.Context, registrable string) domain.DomainAgeResult {
	res := domain.DomainAgeResult{
		Outcome:         domain.OutcomeOK,
		AgeDays:         -1,
		NewlyRegistered: true,
	}

	if _, ok := s.allowSet[registrable]; ok {
		res.Outcome = domain.OutcomeAllowListed
		res.AgeDays = allowListedAgeDays
		res.NewlyRegistered = false
		return res
	}

	if s.whois == nil {
		res.Outcome = domain.OutcomeUnavailable
		res.Score = 8
		res.Rules = []domain.RuleHit{{Description: "WHOIS unavailable - domain age unverifiable", Points: 8}}
		return res
	}

	rec, err := s.whois.Lookup(ctx, registrable)
	if err != nil {
		res.Outcome = domain.OutcomeFailed
		res.Score = 5
		res.Rules = []domain.RuleHit{{Description: "WHOIS lookup failed - treating as unverified", Points: 5}}
		return res
	}

	if rec.Created != nil {
		age := int(time.Since(*rec.Created).Hours() / 24)
		res.AgeDays = age
		res.CreationDate = rec.Created.Format("2006-01-02")
		res.NewlyRegistered = age < 180
	}
	if rec.Expires != nil {
		res.ExpiryDate = rec.Expires.Format("2006-01-02")
	}
	res.Registrar = rec.Registrar

	score := 0
	switch age := res.AgeDays; {
	case age == -1:
		score = 10
		res.Rules = append(res.Rules, domain.RuleHit{Description: "Domain age unknown", Points: 10})
	case age < 30:
		score = 20
		res.Rules = append(res.Rules, domain.RuleHit{
			Description: fmt.Sprintf("Very new domain (%d days old) - high phishing risk", age), Points: 20})
	case age < 180:
		score = 12
		res.Rules = append(res.Rules, domain.RuleHit{
			Description: fmt.Sprintf("Recently registered domain (%d days old)", age), Points: 12})
	case age < 365:
		score = 5
		res.Rules = append(res.Rules, domain.RuleHit{
			Description: fmt.Sprintf("Relatively new domain (%d days old)", age), Points: 5})
	}
	if score > maxDomainAgeScore {
		score = maxDomainAgeScore
	}
	res.Score = score
	return res
}
