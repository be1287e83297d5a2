package scanner

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/url"
	"time"

	"safelink/internal/domain"
)

const maxTLSScore = 20

// analyzeTLS inspects the certificate presented on port 443. A non-HTTPS
// scheme skips the handshake entirely and takes the full stage penalty.
func (s *Service) analyzeTLS(ctx context.Context, u *url.URL) domain.TLSResult {
	res := domain.TLSResult{Outcome: domain.OutcomeOK, DaysLeft: -1}

	if u.Scheme != "https" {
		res.Outcome = domain.OutcomeSkipped
		res.Score = maxTLSScore
		res.Rules = []domain.RuleHit{{Description: "No HTTPS - data transmitted in plaintext", Points: 20}}
		return res
	}
	res.HasHTTPS = true

	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "443"
	}
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: s.policy.StageTimeout},
		Config:    &tls.Config{ServerName: host},
	}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return classifyTLSError(res, err)
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	res.ValidCert = true
	res.Version = tls.VersionName(state.Version)

	if len(state.PeerCertificates) > 0 {
		return scoreCertificate(res, state.PeerCertificates[0])
	}
	return res
}

// scoreCertificate fills the certificate detail and applies the self-signed
// and expiry penalties, capped at the stage maximum.
func scoreCertificate(res domain.TLSResult, cert *x509.Certificate) domain.TLSResult {
	res.Subject = cert.Subject.CommonName
	res.Issuer = cert.Issuer.CommonName
	if len(cert.Issuer.Organization) > 0 {
		res.Issuer = cert.Issuer.Organization[0]
	}
	notAfter := cert.NotAfter
	res.NotAfter = &notAfter
	res.DaysLeft = int(time.Until(cert.NotAfter).Hours() / 24)
	res.SelfSigned = bytes.Equal(cert.RawIssuer, cert.RawSubject)

	score := 0
	if res.SelfSigned {
		score += 15
		res.Rules = append(res.Rules, domain.RuleHit{
			Description: "Self-signed TLS certificate (not trusted by CA)", Points: 15})
	}
	switch d := res.DaysLeft; {
	case d < 0:
		score += 18
		res.Rules = append(res.Rules, domain.RuleHit{
			Description: fmt.Sprintf("TLS certificate EXPIRED (%d days ago)", -d), Points: 18})
	case d < 15:
		score += 10
		res.Rules = append(res.Rules, domain.RuleHit{
			Description: fmt.Sprintf("TLS certificate expiring very soon (%d days)", d), Points: 10})
	case d < 30:
		score += 5
		res.Rules = append(res.Rules, domain.RuleHit{
			Description: fmt.Sprintf("TLS certificate expiring soon (%d days)", d), Points: 5})
	}
	if score > maxTLSScore {
		score = maxTLSScore
	}
	res.Score = score
	return res
}

// classifyTLSError maps a handshake error onto its fixed penalty. A rejected
// handshake scores higher than a plain connection failure: an endpoint that
// actively fails validation is a stronger signal than one that is unreachable.
func classifyTLSError(res domain.TLSResult, err error) domain.TLSResult {
	switch {
	case isCertificateError(err):
		res.Outcome = domain.OutcomeFailed
		res.Score = 18
		res.Rules = []domain.RuleHit{{Description: "TLS certificate validation failed", Points: 18}}
	case isTimeoutError(err):
		res.Outcome = domain.OutcomeTimeout
		res.Score = 8
		res.Rules = []domain.RuleHit{{Description: "Could not connect to host for TLS check", Points: 8}}
	case isConnectionError(err):
		res.Outcome = domain.OutcomeFailed
		res.Score = 8
		res.Rules = []domain.RuleHit{{Description: "Could not connect to host for TLS check", Points: 8}}
	default:
		res.Outcome = domain.OutcomeFailed
		res.Score = 5
		res.Rules = []domain.RuleHit{{Description: "TLS check error", Points: 5}}
	}
	return res
}
