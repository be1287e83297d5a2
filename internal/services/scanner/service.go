package scanner

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"safelink/internal/domain"
	"safelink/internal/ports"
)

// Service is the scan pipeline: lexical analysis, four concurrent network
// stages, rule aggregation, anomaly scoring, hybrid combination. One call to
// Scan produces one complete ScanResult; no shared state survives a scan.
type Service struct {
	policy Policy
	whois  WhoisClient
	scorer ports.RiskScorer

	tldSet       map[string]struct{}
	allowSet     map[string]struct{}
	blacklistSet map[string]struct{}
	hashSet      map[string]struct{}

	// stage hooks, swapped for fakes in tests
	ageFn   func(ctx context.Context, registrable string) domain.DomainAgeResult
	tlsFn   func(ctx context.Context, u *url.URL) domain.TLSResult
	blFn    func(ctx context.Context, registrable string) domain.BlacklistResult
	redirFn func(ctx context.Context, rawurl string) domain.RedirectResult
}

// New builds a pipeline around an injected policy and risk scorer. A nil
// whois client marks the domain-age lookup mechanism as unavailable rather
// than disabling the stage.
func New(policy Policy, whois WhoisClient, scorer ports.RiskScorer) *Service {
	s := &Service{
		policy:       policy,
		whois:        whois,
		scorer:       scorer,
		tldSet:       toSet(policy.SuspiciousTLDs),
		allowSet:     toSet(policy.AllowedDomains),
		blacklistSet: toSet(policy.BlacklistedDomains),
		hashSet:      toSet(policy.BlacklistedHashes),
	}
	s.ageFn = s.analyzeDomainAge
	s.tlsFn = s.analyzeTLS
	s.blFn = s.checkBlacklist
	s.redirFn = s.traceRedirects
	return s
}

// Normalize prepends https:// when no scheme is given and validates that the
// URL carries a host. This is the only fatal validation in the pipeline.
func Normalize(rawurl string) (string, *url.URL, error) {
	rawurl = strings.TrimSpace(rawurl)
	if !strings.HasPrefix(rawurl, "http://") && !strings.HasPrefix(rawurl, "https://") {
		rawurl = "https://" + rawurl
	}
	u, err := url.Parse(rawurl)
	if err != nil || u.Hostname() == "" {
		return "", nil, domain.ErrInvalidURL
	}
	return rawurl, u, nil
}

// Scan runs the full pipeline against one URL. The four network stages run
// concurrently, each under its own timeout; the aggregation below the
// barrier never sees a missing stage because every stage maps failure onto
// its defined fallback result.
func (s *Service) Scan(ctx context.Context, rawurl string) (domain.ScanResult, error) {
	normalized, u, err := Normalize(rawurl)
	if err != nil {
		return domain.ScanResult{}, err
	}
	registrable := RegistrableDomain(u.Hostname())

	lex := s.analyzeLexical(u, normalized)

	var (
		wg       sync.WaitGroup
		ageRes   domain.DomainAgeResult
		tlsRes   domain.TLSResult
		blRes    domain.BlacklistResult
		redirRes domain.RedirectResult
	)
	stage := func(run func(ctx context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stageCtx, cancel := context.WithTimeout(ctx, s.policy.StageTimeout)
			defer cancel()
			run(stageCtx)
		}()
	}
	stage(func(ctx context.Context) { ageRes = s.ageFn(ctx, registrable) })
	stage(func(ctx context.Context) { tlsRes = s.tlsFn(ctx, u) })
	stage(func(ctx context.Context) { blRes = s.blFn(ctx, registrable) })
	stage(func(ctx context.Context) { redirRes = s.redirFn(ctx, normalized) })
	wg.Wait()

	ruleScore := lex.Score + ageRes.Score + tlsRes.Score + blRes.Score + redirRes.Score
	if ruleScore > 100 {
		ruleScore = 100
	}

	var rules []domain.RuleHit
	rules = append(rules, lex.Rules...)
	rules = append(rules, ageRes.Rules...)
	rules = append(rules, tlsRes.Rules...)
	rules = append(rules, blRes.Rules...)
	rules = append(rules, redirRes.Rules...)

	features := domain.Features{
		URLLength:          lex.URLLength,
		NumSubdomains:      lex.NumSubdomains,
		HasHTTPS:           tlsRes.HasHTTPS,
		DomainAgeDays:      ageRes.AgeDays,
		RedirectCount:      redirRes.Count,
		IsBlacklisted:      blRes.Listed,
		HasIPInURL:         lex.HasIPHost,
		SuspiciousPatterns: len(lex.MatchedKeywords),
		HasValidSSL:        tlsRes.ValidCert,
		SpecialCharCount:   lex.SpecialCharCount,
		NumHyphens:         lex.NumHyphens,
		PathDepth:          lex.PathDepth,
		PctEncodedCount:    lex.PctEncodedCount,
		HasAtSymbol:        lex.HasAtSymbol,
		IsURLShortener:     lex.IsURLShortener,
	}

	assessment, err := s.scorer.Score(features)
	if err != nil {
		// A broken model invalidates the hybrid score entirely; this is the
		// one non-input error that aborts a scan.
		return domain.ScanResult{}, fmt.Errorf("risk model: %w", err)
	}
	hybrid := s.scorer.Combine(float64(ruleScore), assessment, features)

	return domain.ScanResult{
		URL:               normalized,
		RegistrableDomain: registrable,
		Lexical:           lex,
		DomainAge:         ageRes,
		TLS:               tlsRes,
		Blacklist:         blRes,
		Redirects:         redirRes,
		Features:          features,
		RuleScore:         ruleScore,
		Anomaly:           assessment,
		Hybrid:            hybrid,
		Rules:             rules,
		ScannedAt:         time.Now().UTC(),
	}, nil
}
