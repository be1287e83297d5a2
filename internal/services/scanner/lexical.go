package scanner

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"

	"safelink/internal/domain"
)

const maxLexicalScore = 50

var (
	specialCharRe   = regexp.MustCompile(`[@%&=~#!$*]`)
	digitRe         = regexp.MustCompile(`\d`)
	ipv4LiteralRe   = regexp.MustCompile(`\b\d{1,3}(?:\.\d{1,3}){3}\b`)
	pctEncodedRe    = regexp.MustCompile(`%[0-9a-fA-F]{2}`)
	doubleEncodedRe = regexp.MustCompile(`%25[0-9a-fA-F]{2}`)
)

// analyzeLexical extracts the structural features of the URL string and
// scores them. Pure: no I/O, no failure mode; malformed components just
// yield zero-valued features.
func (s *Service) analyzeLexical(u *url.URL, raw string) domain.LexicalResult {
	host := strings.ToLower(u.Hostname())
	lower := strings.ToLower(raw)

	res := domain.LexicalResult{
		URLLength:        len(raw),
		NumDots:          strings.Count(raw, "."),
		NumHyphens:       strings.Count(raw, "-"),
		SpecialCharCount: len(specialCharRe.FindAllString(raw, -1)),
		DigitsInHost:     len(digitRe.FindAllString(host, -1)),
		PctEncodedCount:  len(pctEncodedRe.FindAllString(raw, -1)),
		DoubleEncoded:    doubleEncodedRe.MatchString(raw),
		HasAtSymbol:      u.User != nil,
		HasPunycode:      strings.Contains(host, "xn--"),
		NumQueryParams:   len(u.Query()),
	}

	if trimmed := strings.Trim(u.Path, "/"); trimmed != "" {
		res.PathDepth = strings.Count(trimmed, "/")
	}

	// IP literal in place of a hostname
	if net.ParseIP(host) != nil || ipv4LiteralRe.MatchString(host) {
		res.HasIPHost = true
	}

	// Subdomain depth below the registrable domain
	if etld1 := RegistrableDomain(host); etld1 != host {
		sub := strings.TrimSuffix(strings.TrimSuffix(host, etld1), ".")
		if sub != "" {
			res.NumSubdomains = strings.Count(sub, ".") + 1
		}
	}

	if suffix, _ := publicsuffix.PublicSuffix(host); suffix != "" {
		if _, ok := s.tldSet["."+suffix]; ok {
			res.SuspiciousTLD = true
		}
	}

	for _, kw := range s.policy.PhishingKeywords {
		if strings.Contains(lower, kw) {
			res.MatchedKeywords = append(res.MatchedKeywords, kw)
		}
	}

	for _, shortener := range s.policy.URLShorteners {
		if strings.Contains(host, shortener) {
			res.IsURLShortener = true
			break
		}
	}

	score := 0
	add := func(points int, format string, args ...any) {
		score += points
		res.Rules = append(res.Rules, domain.RuleHit{
			Description: fmt.Sprintf(format, args...),
			Points:      points,
		})
	}

	if res.URLLength > 75 {
		penalty := (res.URLLength - 75) / 10 * 3
		if penalty > 15 {
			penalty = 15
		}
		add(penalty, "Long URL (%d chars)", res.URLLength)
	}
	if res.HasIPHost {
		add(25, "IP address used instead of domain name")
	}
	if res.NumSubdomains >= 3 {
		add(10, "Excessive subdomains (%d)", res.NumSubdomains)
	} else if res.NumSubdomains == 2 {
		add(5, "Multiple subdomains (%d)", res.NumSubdomains)
	}
	if n := len(res.MatchedKeywords); n >= 3 {
		add(15, "Multiple phishing keywords (%s)", strings.Join(res.MatchedKeywords[:3], ", "))
	} else if n >= 1 {
		add(8, "Phishing keyword detected (%s)", res.MatchedKeywords[0])
	}
	if res.SuspiciousTLD {
		add(12, "High-risk TLD")
	}
	if res.NumHyphens >= 4 {
		add(8, "Excessive hyphens (%d)", res.NumHyphens)
	}
	if res.SpecialCharCount >= 5 {
		add(7, "Suspicious special characters (%d)", res.SpecialCharCount)
	}
	if res.HasAtSymbol {
		add(15, "@ symbol in URL (credential obfuscation)")
	}
	if res.PctEncodedCount >= 3 {
		add(8, "URL encoding obfuscation (%d encoded chars)", res.PctEncodedCount)
	}
	if res.DoubleEncoded {
		add(12, "Double URL encoding detected")
	}
	if res.HasPunycode {
		add(10, "Punycode/IDN homograph risk")
	}
	if res.IsURLShortener {
		add(10, "URL shortener hides true destination")
	}
	if res.DigitsInHost >= 4 {
		add(5, "Many digits in domain name (%d)", res.DigitsInHost)
	}

	if score > maxLexicalScore {
		score = maxLexicalScore
	}
	res.Score = score
	return res
}

// RegistrableDomain returns the eTLD+1 for a host, falling back to the host
// itself for IP literals and unlisted suffixes.
func RegistrableDomain(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if net.ParseIP(host) != nil {
		return host
	}
	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return etld1
}
