package insights

import (
	"fmt"

	"safelink/internal/domain"
)

// Service turns a finished scan into ordered educational insights. It is a
// pure lookup over the result's flags: no I/O, no state beyond the library.
type Service struct{}

func New() *Service { return &Service{} }

var severityRank = map[string]int{"High": 0, "Medium": 1, "Low": 2, "Info": 3}

// Generate returns the insights whose trigger conditions hold for this scan,
// most severe first. A clean scan gets a single positive entry.
func (s *Service) Generate(res domain.ScanResult) []domain.Insight {
	var out []domain.Insight
	add := func(in domain.Insight) { out = append(out, in) }

	if res.Blacklist.Listed {
		add(domain.Insight{
			Key:      "blacklisted",
			Title:    "Domain Found in Threat Database",
			Severity: "High",
			Explanation: "This domain appears in a known threat database. Security vendors " +
				"track domains serving malware, phishing pages, or scam content; a listing " +
				"means the domain has already been observed doing harm.",
			Actions: []string{
				"Do not visit this URL under any circumstances.",
				"If you received it in a message, report the message as phishing.",
				"Warn anyone else who may have received the same link.",
			},
			LearnMore: "Google Safe Browsing: How blocklists work",
		})
	}
	if res.Features.HasIPInURL {
		add(domain.Insight{
			Key:      "ip_in_url",
			Title:    "IP Address Used Instead of Domain Name",
			Severity: "High",
			Explanation: "Legitimate websites use memorable domain names. A URL built on a raw " +
				"IP address is a classic sign of phishing or malware infrastructure: attackers " +
				"use IP literals to avoid domain registration scrutiny and to make their " +
				"infrastructure harder to track and block.",
			Actions: []string{
				"Do not click on or visit this link.",
				"Report the URL to your organization's IT security team.",
				"If you accidentally visited it, run a malware scan immediately.",
			},
			LearnMore: "OWASP: Phishing techniques",
		})
	}
	if !res.Features.HasHTTPS {
		add(domain.Insight{
			Key:      "no_https",
			Title:    "No HTTPS (Unencrypted Connection)",
			Severity: "High",
			Explanation: "Without HTTPS, everything sent to this site - including passwords and " +
				"card numbers - travels in plaintext and can be read by anyone on the same " +
				"network. Modern browsers mark such pages as Not Secure.",
			Actions: []string{
				"Avoid entering any personal information on HTTP sites.",
				"Look for the padlock icon in your browser address bar.",
				"Use a VPN if you must browse over an untrusted network.",
			},
			LearnMore: "Let's Encrypt: Why HTTPS matters",
		})
	} else if !res.Features.HasValidSSL {
		add(domain.Insight{
			Key:      "invalid_ssl",
			Title:    "Invalid or Untrusted TLS Certificate",
			Severity: "High",
			Explanation: "A TLS certificate authenticates a website's identity. Expired, " +
				"self-signed, or mismatched certificates are major red flags: phishing sites " +
				"often rely on them to show a padlock while still being fraudulent.",
			Actions: []string{
				"Do not bypass certificate warnings in your browser.",
				"Check the certificate details via the padlock icon.",
				"Verify you are on the correct domain before entering credentials.",
			},
			LearnMore: "DigiCert: TLS certificate types explained",
		})
	}
	if age := res.DomainAge.AgeDays; age >= 0 && age < 180 {
		add(domain.Insight{
			Key:      "new_domain",
			Title:    "Newly Registered Domain",
			Severity: "Medium",
			Explanation: fmt.Sprintf("This domain is only %d days old. The large majority of "+
				"malicious domains are registered shortly before their first campaign, used "+
				"briefly, then abandoned. A young domain that mimics a well-known brand "+
				"warrants extra caution.", age),
			Actions: []string{
				"Cross-check the site through an independent search before trusting it.",
				"Be especially wary if it imitates a brand you know.",
			},
			LearnMore: "Palo Alto Unit 42: Newly registered domains",
		})
	}
	if res.Redirects.Count >= 3 || res.Redirects.Downgrade {
		add(domain.Insight{
			Key:      "redirects",
			Title:    "Suspicious Redirect Behavior",
			Severity: "Medium",
			Explanation: "Long redirect chains hide the real destination of a link, and a hop " +
				"that drops from HTTPS back to HTTP silently removes encryption mid-journey. " +
				"Both are common in malvertising and phishing funnels.",
			Actions: []string{
				"Check where a link actually leads before following it.",
				"Close the tab if the address bar cycles through unfamiliar domains.",
			},
		})
	}
	if res.Features.IsURLShortener {
		add(domain.Insight{
			Key:      "url_shortener",
			Title:    "Shortened URL Hides the Destination",
			Severity: "Medium",
			Explanation: "URL shorteners conceal the final destination, which is exactly why " +
				"attackers like them. The shortener itself is harmless; the unknown target is " +
				"the risk.",
			Actions: []string{
				"Use a link expander to preview the destination first.",
				"Treat shortened links in unsolicited messages as hostile.",
			},
		})
	}
	if res.Lexical.HasPunycode {
		add(domain.Insight{
			Key:      "punycode",
			Title:    "Internationalized Domain (Possible Homograph Attack)",
			Severity: "Medium",
			Explanation: "This hostname uses punycode encoding. Attackers register domains with " +
				"look-alike unicode characters so the address appears identical to a trusted " +
				"brand while being an entirely different domain.",
			Actions: []string{
				"Type the address you intended by hand instead of following the link.",
			},
		})
	}
	if res.Features.SuspiciousPatterns >= 1 {
		add(domain.Insight{
			Key:      "phishing_keywords",
			Title:    "Phishing Vocabulary in the URL",
			Severity: "Low",
			Explanation: "The URL contains wording commonly used to create urgency or imitate " +
				"account security flows (verify, suspended, urgent, and similar). Legitimate " +
				"sites rarely pack such terms into their addresses.",
			Actions: []string{
				"Navigate to the service directly instead of using the link.",
			},
		})
	}
	if res.Features.HasAtSymbol {
		add(domain.Insight{
			Key:      "at_symbol",
			Title:    "@ Symbol Embedded in the URL",
			Severity: "Low",
			Explanation: "Everything before an @ in a URL is treated as credentials, not as the " +
				"destination. Attackers exploit this to show a trusted name while the browser " +
				"actually connects to the host after the @.",
		})
	}
	if res.Lexical.PctEncodedCount >= 3 || res.Lexical.DoubleEncoded {
		add(domain.Insight{
			Key:      "encoding",
			Title:    "Heavy URL Encoding",
			Severity: "Low",
			Explanation: "Percent-encoding legitimate characters is normal in small doses; heavy " +
				"or double encoding is a common trick to slip hostile URLs past filters and " +
				"human eyes.",
		})
	}

	if len(out) == 0 {
		add(domain.Insight{
			Key:      "clean",
			Title:    "No Significant Risk Indicators",
			Severity: "Info",
			Explanation: "None of the heuristic checks raised a flag for this URL. That is a " +
				"good sign, not a guarantee: keep normal caution with credentials and payments.",
		})
	}

	// stable ordering: severity first, insertion order within a tier
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && severityRank[out[j].Severity] < severityRank[out[j-1].Severity]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
