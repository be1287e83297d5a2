package scanner

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/miekg/dns"

	"safelink/internal/domain"
)

const blacklistScore = 40

// checkBlacklist looks the registrable domain up in every configured threat
// source: the exact-match local list, the hash-prefix set (a stand-in for a
// remote hash-based threat API), and an optional DNS blocklist zone. The
// penalty is flat regardless of how many sources match.
func (s *Service) checkBlacklist(ctx context.Context, registrable string) domain.BlacklistResult {
	res := domain.BlacklistResult{}

	if _, ok := s.blacklistSet[registrable]; ok {
		res.Listed = true
		res.Sources = append(res.Sources, "Local Threat Database")
	}

	sum := md5.Sum([]byte(registrable))
	prefix := hex.EncodeToString(sum[:])[:16]
	if _, ok := s.hashSet[prefix]; ok {
		res.Listed = true
		res.Sources = append(res.Sources, "Threat Hash Database")
	}

	if s.policy.DNSBLZone != "" && s.dnsblListed(ctx, registrable) {
		res.Listed = true
		res.Sources = append(res.Sources, fmt.Sprintf("DNS Blocklist (%s)", s.policy.DNSBLZone))
	}

	if res.Listed {
		res.Score = blacklistScore
		res.Rules = []domain.RuleHit{{
			Description: fmt.Sprintf("Domain flagged in blacklist (%s)", strings.Join(res.Sources, ", ")),
			Points:      blacklistScore,
		}}
	}
	return res
}

// dnsblListed queries <registrable>.<zone> for an A record. Any answer means
// the zone lists the domain; lookup errors are treated as a miss since the
// DNSBL is a best-effort extra source.
func (s *Service) dnsblListed(ctx context.Context, registrable string) bool {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(registrable+"."+s.policy.DNSBLZone), dns.TypeA)
	msg.RecursionDesired = true

	client := &dns.Client{Timeout: s.policy.StageTimeout}
	resp, _, err := client.ExchangeContext(ctx, msg, s.policy.Resolver)
	if err != nil || resp == nil {
		return false
	}
	return resp.Rcode == dns.RcodeSuccess && len(resp.Answer) > 0
}
