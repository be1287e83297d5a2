package scanner

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Policy is the injected configuration for the scan pipeline: threat lists,
// allow-list, network bounds. Defaults ship in-process; deployments may
// override any field from a YAML file.
type Policy struct {
	SuspiciousTLDs     []string      `yaml:"suspicious_tlds"`
	PhishingKeywords   []string      `yaml:"phishing_keywords"`
	AllowedDomains     []string      `yaml:"allowed_domains"`
	BlacklistedDomains []string      `yaml:"blacklisted_domains"`
	BlacklistedHashes  []string      `yaml:"blacklisted_hashes"` // md5 hex prefixes, 16 chars
	URLShorteners      []string      `yaml:"url_shorteners"`
	DNSBLZone          string        `yaml:"dnsbl_zone"` // empty disables the DNSBL source
	Resolver           string        `yaml:"resolver"`
	StageTimeout       time.Duration `yaml:"-"` // set via stage_timeout ("8s")
	MaxRedirects       int           `yaml:"max_redirects"`
}

// UnmarshalYAML decodes stage_timeout from a human-readable duration string.
func (p *Policy) UnmarshalYAML(value *yaml.Node) error {
	type alias Policy
	if err := value.Decode((*alias)(p)); err != nil {
		return err
	}
	var aux struct {
		StageTimeout string `yaml:"stage_timeout"`
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	if aux.StageTimeout != "" {
		d, err := time.ParseDuration(aux.StageTimeout)
		if err != nil {
			return fmt.Errorf("stage_timeout: %w", err)
		}
		p.StageTimeout = d
	}
	return nil
}

// DefaultPolicy returns the built-in threat lists. The blacklist entries are
// a stand-in for a real feed and exist mainly so the whole path is testable.
func DefaultPolicy() Policy {
	return Policy{
		SuspiciousTLDs: []string{
			".tk", ".ml", ".ga", ".cf", ".gq", ".xyz", ".top", ".club",
			".online", ".site", ".icu", ".pw", ".cc", ".biz", ".info",
			".vip", ".fun", ".work", ".loan", ".win", ".bid",
		},
		PhishingKeywords: []string{
			"login", "signin", "verify", "account", "secure", "update", "confirm",
			"banking", "paypal", "amazon", "google", "microsoft", "apple", "netflix",
			"password", "credential", "validate", "authenticate", "suspended",
			"unusual", "activity", "alert", "urgent", "click", "free", "win",
			"prize", "lottery", "crypto", "bitcoin", "wallet", "recovery",
		},
		AllowedDomains: []string{
			"google.com", "youtube.com", "facebook.com", "twitter.com", "instagram.com",
			"linkedin.com", "github.com", "microsoft.com", "apple.com", "amazon.com",
			"wikipedia.org", "reddit.com", "stackoverflow.com", "medium.com",
			"cloudflare.com", "netflix.com", "spotify.com", "zoom.us", "slack.com",
		},
		BlacklistedDomains: []string{
			"malware-test.com", "phishing-example.net", "evil-site.tk",
			"fakepaypal-secure.com", "login-amazon-verify.xyz",
		},
		BlacklistedHashes: []string{
			"7f3a0f4d2b8c1e9a", "a1b2c3d4e5f67890",
		},
		URLShorteners: []string{
			"bit.ly", "t.co", "tinyurl.com", "goo.gl", "ow.ly",
			"buff.ly", "is.gd", "rebrand.ly", "cutt.ly", "short.gy",
		},
		Resolver:     "8.8.8.8:53",
		StageTimeout: 8 * time.Second,
		MaxRedirects: 10,
	}
}

// LoadPolicy reads a YAML policy file and overlays it on the defaults.
// Only fields present in the file replace the built-in values.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read policy: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse policy: %w", err)
	}
	if p.StageTimeout <= 0 {
		p.StageTimeout = 8 * time.Second
	}
	if p.MaxRedirects <= 0 {
		p.MaxRedirects = 10
	}
	return p, nil
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}
