package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"safelink/internal/domain"
	"safelink/internal/ports"
)

// DomainRepository
func (db *DB) GetOrCreate(ctx context.Context, registrable string) (string, error) {
	registrable = strings.ToLower(registrable)
	var id string
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO domains (registrable_domain)
		VALUES ($1)
		ON CONFLICT (registrable_domain) DO UPDATE SET registrable_domain = EXCLUDED.registrable_domain
		RETURNING id
	`, registrable).Scan(&id)
	return id, err
}

// ScanRepository

func (db *DB) Create(ctx context.Context, domainID, userID, url string) (string, error) {
	var scanID string
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO scans (domain_id, user_id, url, status, progress)
		VALUES ($1, $2, $3, 'queued', 0)
		RETURNING id
	`, domainID, userID, url).Scan(&scanID)
	if err != nil {
		return "", err
	}
	_, err = db.Pool.Exec(ctx, `INSERT INTO scan_jobs (scan_id) VALUES ($1)`, scanID)
	return scanID, err
}

func (db *DB) Get(ctx context.Context, scanID string) (ports.ScanRecord, error) {
	var rec ports.ScanRecord
	err := db.Pool.QueryRow(ctx, `
		SELECT s.id, s.user_id, s.url, d.registrable_domain, s.status, s.progress,
		       COALESCE(s.risk_score, 0), COALESCE(s.threat_level, ''),
		       COALESCE(s.rule_score, 0), COALESCE(s.ml_score, 0),
		       COALESCE(s.scanned_at, s.queued_at)
		FROM scans s
		JOIN domains d ON d.id = s.domain_id
		WHERE s.id = $1
	`, scanID).Scan(&rec.ID, &rec.UserID, &rec.URL, &rec.Domain, &rec.Status, &rec.Progress,
		&rec.RiskScore, &rec.ThreatLevel, &rec.RuleScore, &rec.MLScore, &rec.ScannedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return rec, ports.ErrNotFound
	}
	return rec, err
}

// SaveResult stores the terminal record of a scan. The feature vector, rule
// list, redirect chain, and TLS detail travel as jsonb blobs alongside the
// flat columns used for querying.
func (db *DB) SaveResult(ctx context.Context, scanID string, res domain.ScanResult) error {
	features, err := json.Marshal(res.Features)
	if err != nil {
		return err
	}
	rules, err := json.Marshal(res.Rules)
	if err != nil {
		return err
	}
	chain, err := json.Marshal(res.Redirects.Chain)
	if err != nil {
		return err
	}
	tlsInfo, err := json.Marshal(res.TLS)
	if err != nil {
		return err
	}
	_, err = db.Pool.Exec(ctx, `
		UPDATE scans SET
			risk_score = $2, threat_level = $3, rule_score = $4, ml_score = $5,
			is_anomaly = $6, confidence = $7,
			url_length = $8, num_subdomains = $9, has_https = $10, domain_age_days = $11,
			redirect_count = $12, is_blacklisted = $13, has_ip_in_url = $14,
			suspicious_patterns = $15, has_valid_ssl = $16, special_char_count = $17,
			feature_vector = $18, triggered_rules = $19, redirect_chain = $20, tls_info = $21,
			scanned_at = $22
		WHERE id = $1
	`, scanID,
		res.Hybrid.Score, string(res.Hybrid.Level), res.Hybrid.RuleScore, res.Hybrid.MLScore,
		res.Anomaly.IsAnomaly, res.Anomaly.Confidence,
		res.Features.URLLength, res.Features.NumSubdomains, res.Features.HasHTTPS,
		res.Features.DomainAgeDays, res.Features.RedirectCount, res.Features.IsBlacklisted,
		res.Features.HasIPInURL, res.Features.SuspiciousPatterns, res.Features.HasValidSSL,
		res.Features.SpecialCharCount,
		features, rules, chain, tlsInfo,
		res.ScannedAt)
	return err
}

func (db *DB) ListByUser(ctx context.Context, userID string, limit int) ([]ports.ScanRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx, `
		SELECT s.id, s.user_id, s.url, d.registrable_domain, s.status, s.progress,
		       COALESCE(s.risk_score, 0), COALESCE(s.threat_level, ''),
		       COALESCE(s.rule_score, 0), COALESCE(s.ml_score, 0),
		       COALESCE(s.scanned_at, s.queued_at)
		FROM scans s
		JOIN domains d ON d.id = s.domain_id
		WHERE s.user_id = $1
		ORDER BY s.queued_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ports.ScanRecord
	for rows.Next() {
		var rec ports.ScanRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.URL, &rec.Domain, &rec.Status, &rec.Progress,
			&rec.RiskScore, &rec.ThreatLevel, &rec.RuleScore, &rec.MLScore, &rec.ScannedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
