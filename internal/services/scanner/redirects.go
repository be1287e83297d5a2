package scanner

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"safelink/internal/domain"
)

const maxRedirectScore = 20

const traceUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120 SafeLink-Scanner/1.0"

const errRedirectLoop = tracerError("too many redirects")

type tracerError string

func (e tracerError) Error() string { return string(e) }

// traceRedirects follows the redirect chain up to the configured hop bound
// and records every hop. Certificate verification is intentionally disabled
// here: certificate trust is the TLS stage's job, and a tracer that refuses
// invalid certs would never see the chain behind them.
func (s *Service) traceRedirects(ctx context.Context, rawurl string) domain.RedirectResult {
	res := domain.RedirectResult{Outcome: domain.OutcomeOK, FinalURL: rawurl}

	var hops []domain.RedirectHop
	client := &http.Client{
		Transport: &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			prev := req.Response
			hops = append(hops, domain.RedirectHop{
				URL:    prev.Request.URL.String(),
				Status: prev.StatusCode,
				Scheme: prev.Request.URL.Scheme,
			})
			if len(via) >= s.policy.MaxRedirects {
				return errRedirectLoop
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		res.Outcome = domain.OutcomeFailed
		res.Score = 3
		res.Rules = []domain.RuleHit{{Description: "Redirect analysis error", Points: 3}}
		return res
	}
	req.Header.Set("User-Agent", traceUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		res.Chain = hops
		res.Count = len(hops)
		return classifyTraceError(res, err, s.policy.MaxRedirects)
	}
	// Headers are all the tracer needs.
	resp.Body.Close()

	hops = append(hops, domain.RedirectHop{
		URL:    resp.Request.URL.String(),
		Status: resp.StatusCode,
		Scheme: resp.Request.URL.Scheme,
	})
	res.Chain = hops
	res.Count = len(hops) - 1
	res.FinalURL = resp.Request.URL.String()

	return scoreChain(res)
}

// scoreChain derives the penalty signals from a recorded chain: hop count,
// how many registrable domains the chain touches, and scheme downgrades
// between adjacent hops.
func scoreChain(res domain.RedirectResult) domain.RedirectResult {
	visited := make(map[string]struct{})
	for _, hop := range res.Chain {
		if u, err := url.Parse(hop.URL); err == nil {
			visited[RegistrableDomain(u.Hostname())] = struct{}{}
		}
	}
	res.CrossesDomains = len(visited) > 2

	for i := 0; i < len(res.Chain)-1; i++ {
		if res.Chain[i].Scheme == "https" && res.Chain[i+1].Scheme == "http" {
			res.Downgrade = true
			break
		}
	}

	score := 0
	if res.Count >= 5 {
		score += 15
		res.Rules = append(res.Rules, domain.RuleHit{
			Description: fmt.Sprintf("Excessive redirects (%d hops)", res.Count), Points: 15})
	} else if res.Count >= 3 {
		score += 8
		res.Rules = append(res.Rules, domain.RuleHit{
			Description: fmt.Sprintf("Multiple redirects (%d hops)", res.Count), Points: 8})
	}
	if res.CrossesDomains {
		score += 10
		res.Rules = append(res.Rules, domain.RuleHit{
			Description: fmt.Sprintf("Redirect chain crosses %d different domains", len(visited)), Points: 10})
	}
	if res.Downgrade {
		score += 12
		res.Rules = append(res.Rules, domain.RuleHit{
			Description: "HTTPS to HTTP downgrade in redirect chain", Points: 12})
	}
	if score > maxRedirectScore {
		score = maxRedirectScore
	}
	res.Score = score
	return res
}

func classifyTraceError(res domain.RedirectResult, err error, maxRedirects int) domain.RedirectResult {
	switch {
	case errors.Is(err, errRedirectLoop):
		res.Outcome = domain.OutcomeFailed
		res.Count = maxRedirects
		res.Score = 18
		res.Rules = []domain.RuleHit{{
			Description: fmt.Sprintf("Redirect loop detected (>%d redirects)", maxRedirects), Points: 18}}
	case isTLSProtocolError(err):
		res.Outcome = domain.OutcomeFailed
		res.Score = 5
		res.Rules = []domain.RuleHit{{Description: "TLS error during redirect follow", Points: 5}}
	case errors.Is(err, context.DeadlineExceeded) || isTimeoutError(err):
		res.Outcome = domain.OutcomeTimeout
		res.Score = 3
		res.Rules = []domain.RuleHit{{Description: "Connection timed out during redirect check", Points: 3}}
	case isConnectionError(err):
		res.Outcome = domain.OutcomeFailed
		res.Score = 5
		res.Rules = []domain.RuleHit{{Description: "Could not connect to host for redirect analysis", Points: 5}}
	default:
		res.Outcome = domain.OutcomeFailed
		res.Score = 3
		res.Rules = []domain.RuleHit{{Description: "Redirect analysis error", Points: 3}}
	}
	return res
}
