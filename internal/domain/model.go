package domain

import "time"

// Core domain models shared by the scan pipeline, the risk engine, and the
// adapters. Every record is write-once: stages build their result and hand it
// to the aggregator, which never mutates it again.

// ThreatLevel is the three-tier classification derived from the hybrid score.
type ThreatLevel string

const (
	ThreatSafe       ThreatLevel = "Safe"
	ThreatSuspicious ThreatLevel = "Suspicious"
	ThreatHighRisk   ThreatLevel = "High Risk"
)

// ClassifyThreat maps a hybrid score onto its threat tier.
// Boundaries are inclusive on the upper tier: 40 is Suspicious, 70 is High Risk.
func ClassifyThreat(hybrid float64) ThreatLevel {
	switch {
	case hybrid >= 70:
		return ThreatHighRisk
	case hybrid >= 40:
		return ThreatSuspicious
	default:
		return ThreatSafe
	}
}

// RuleHit is a single triggered heuristic: a human-readable description plus
// the score delta it contributed.
type RuleHit struct {
	Description string `json:"description"`
	Points      int    `json:"points"`
}

// StageOutcome tags how a network stage terminated. Exactly one outcome
// applies per stage result.
type StageOutcome string

const (
	OutcomeOK          StageOutcome = "ok"
	OutcomeAllowListed StageOutcome = "allow_listed"
	OutcomeUnavailable StageOutcome = "unavailable"
	OutcomeFailed      StageOutcome = "failed"
	OutcomeTimeout     StageOutcome = "timeout"
	OutcomeSkipped     StageOutcome = "skipped"
)

// LexicalResult carries the structural features of the URL string.
type LexicalResult struct {
	URLLength        int       `json:"url_length"`
	NumSubdomains    int       `json:"num_subdomains"`
	HasIPHost        bool      `json:"has_ip_host"`
	MatchedKeywords  []string  `json:"matched_keywords,omitempty"`
	SpecialCharCount int       `json:"special_char_count"`
	NumHyphens       int       `json:"num_hyphens"`
	NumDots          int       `json:"num_dots"`
	PathDepth        int       `json:"path_depth"`
	PctEncodedCount  int       `json:"pct_encoded_count"`
	DoubleEncoded    bool      `json:"double_encoded"`
	HasAtSymbol      bool      `json:"has_at_symbol"`
	HasPunycode      bool      `json:"has_punycode"`
	IsURLShortener   bool      `json:"is_url_shortener"`
	SuspiciousTLD    bool      `json:"suspicious_tld"`
	DigitsInHost     int       `json:"digits_in_host"`
	NumQueryParams   int       `json:"num_query_params"`
	Score            int       `json:"score"`
	Rules            []RuleHit `json:"rules,omitempty"`
}

// DomainAgeResult is the WHOIS stage output. AgeDays is -1 when the creation
// date could not be established.
type DomainAgeResult struct {
	Outcome         StageOutcome `json:"outcome"`
	AgeDays         int          `json:"age_days"`
	CreationDate    string       `json:"creation_date,omitempty"`
	ExpiryDate      string       `json:"expiry_date,omitempty"`
	Registrar       string       `json:"registrar,omitempty"`
	NewlyRegistered bool         `json:"newly_registered"`
	Score           int          `json:"score"`
	Rules           []RuleHit    `json:"rules,omitempty"`
}

// TLSResult is the certificate-inspection stage output.
type TLSResult struct {
	Outcome    StageOutcome `json:"outcome"`
	HasHTTPS   bool         `json:"has_https"`
	ValidCert  bool         `json:"valid_cert"`
	SelfSigned bool         `json:"self_signed"`
	Issuer     string       `json:"issuer,omitempty"`
	Subject    string       `json:"subject,omitempty"`
	NotAfter   *time.Time   `json:"not_after,omitempty"`
	DaysLeft   int          `json:"days_left"`
	Version    string       `json:"version,omitempty"`
	Score      int          `json:"score"`
	Rules      []RuleHit    `json:"rules,omitempty"`
}

// BlacklistResult reports threat-list membership of the registrable domain.
type BlacklistResult struct {
	Listed  bool      `json:"listed"`
	Sources []string  `json:"sources,omitempty"`
	Score   int       `json:"score"`
	Rules   []RuleHit `json:"rules,omitempty"`
}

// RedirectHop is one entry in a traced redirect chain.
type RedirectHop struct {
	URL    string `json:"url"`
	Status int    `json:"status"`
	Scheme string `json:"scheme"`
}

// RedirectResult is the redirect-tracing stage output.
type RedirectResult struct {
	Outcome        StageOutcome  `json:"outcome"`
	Count          int           `json:"count"`
	Chain          []RedirectHop `json:"chain,omitempty"`
	FinalURL       string        `json:"final_url"`
	CrossesDomains bool          `json:"crosses_domains"`
	Downgrade      bool          `json:"downgrade"`
	Score          int           `json:"score"`
	Rules          []RuleHit     `json:"rules,omitempty"`
}

// FeatureNames is the canonical model input order. The risk engine's scaler
// and forest were fitted against this exact ordering; changing it invalidates
// every trained parameter file.
var FeatureNames = []string{
	"url_length",
	"num_subdomains",
	"has_https",
	"domain_age_days",
	"redirect_count",
	"is_blacklisted",
	"has_ip_in_url",
	"suspicious_patterns",
	"has_valid_ssl",
	"special_char_count",
	"num_hyphens",
	"path_depth",
	"pct_encoded_count",
	"has_at_symbol",
	"is_url_shortener",
}

// NumFeatures is the fixed width of the model input.
const NumFeatures = 15

// Features is the typed 15-entry feature vector fed to the anomaly model.
type Features struct {
	URLLength          int  `json:"url_length"`
	NumSubdomains      int  `json:"num_subdomains"`
	HasHTTPS           bool `json:"has_https"`
	DomainAgeDays      int  `json:"domain_age_days"`
	RedirectCount      int  `json:"redirect_count"`
	IsBlacklisted      bool `json:"is_blacklisted"`
	HasIPInURL         bool `json:"has_ip_in_url"`
	SuspiciousPatterns int  `json:"suspicious_patterns"`
	HasValidSSL        bool `json:"has_valid_ssl"`
	SpecialCharCount   int  `json:"special_char_count"`
	NumHyphens         int  `json:"num_hyphens"`
	PathDepth          int  `json:"path_depth"`
	PctEncodedCount    int  `json:"pct_encoded_count"`
	HasAtSymbol        bool `json:"has_at_symbol"`
	IsURLShortener     bool `json:"is_url_shortener"`
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Vector flattens the features into model input order (see FeatureNames).
func (f Features) Vector() []float64 {
	return []float64{
		float64(f.URLLength),
		float64(f.NumSubdomains),
		b2f(f.HasHTTPS),
		float64(f.DomainAgeDays),
		float64(f.RedirectCount),
		b2f(f.IsBlacklisted),
		b2f(f.HasIPInURL),
		float64(f.SuspiciousPatterns),
		b2f(f.HasValidSSL),
		float64(f.SpecialCharCount),
		float64(f.NumHyphens),
		float64(f.PathDepth),
		float64(f.PctEncodedCount),
		b2f(f.HasAtSymbol),
		b2f(f.IsURLShortener),
	}
}

// Assessment is the anomaly model's verdict for one feature vector.
type Assessment struct {
	Score      float64 `json:"anomaly_score"` // normalized, 0 = benign, 100 = most anomalous
	IsAnomaly  bool    `json:"is_anomaly"`
	Confidence string  `json:"confidence"` // Low | Medium | High
	RawScore   float64 `json:"raw_score"`
	Decision   float64 `json:"decision"`
}

// Hybrid is the blended final verdict.
type Hybrid struct {
	Score      float64     `json:"risk_score"`
	Level      ThreatLevel `json:"threat_level"`
	RuleScore  float64     `json:"rule_score"`
	MLScore    float64     `json:"ml_score"`
	RuleWeight float64     `json:"rule_weight"`
	MLWeight   float64     `json:"ml_weight"`
	Formula    string      `json:"formula"`
}

// ScanResult is the one terminal record of a scan. It is fully assembled by
// the pipeline before being returned; callers and adapters treat it as
// immutable.
type ScanResult struct {
	URL               string          `json:"url"`
	RegistrableDomain string          `json:"domain"`
	Lexical           LexicalResult   `json:"lexical"`
	DomainAge         DomainAgeResult `json:"domain_age"`
	TLS               TLSResult       `json:"tls"`
	Blacklist         BlacklistResult `json:"blacklist"`
	Redirects         RedirectResult  `json:"redirects"`
	Features          Features        `json:"feature_vector"`
	RuleScore         int             `json:"rule_score"`
	Anomaly           Assessment      `json:"anomaly"`
	Hybrid            Hybrid          `json:"hybrid"`
	Rules             []RuleHit       `json:"rules"`
	ScannedAt         time.Time       `json:"scanned_at"`
}

// Insight is one educational explanation keyed to a scan finding.
type Insight struct {
	Key         string   `json:"key"`
	Title       string   `json:"title"`
	Severity    string   `json:"severity"` // High | Medium | Low | Info
	Explanation string   `json:"explanation"`
	Actions     []string `json:"actions,omitempty"`
	LearnMore   string   `json:"learn_more,omitempty"`
}

// ErrInvalidURL aborts a scan before any stage runs.
const ErrInvalidURL = errString("invalid URL format")

type errString string

func (e errString) Error() string { return string(e) }
