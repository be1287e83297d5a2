package ports

import (
	"context"
	"time"

	"safelink/internal/domain"
)

// DomainRepository stores and fetches domains by registrable domain (eTLD+1).
type DomainRepository interface {
	GetOrCreate(ctx context.Context, registrable string) (domainID string, err error)
}

// ScanRecord is a stored scan row, either still queued or carrying a result.
type ScanRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	URL         string    `json:"url"`
	Domain      string    `json:"domain"`
	Status      string    `json:"status"` // queued|running|completed|failed
	Progress    float64   `json:"progress"`
	RiskScore   float64   `json:"risk_score"`
	ThreatLevel string    `json:"threat_level"`
	RuleScore   float64   `json:"rule_score"`
	MLScore     float64   `json:"ml_score"`
	ScannedAt   time.Time `json:"scanned_at"`
}

// ScanRepository manages scan records and their stored results.
type ScanRepository interface {
	Create(ctx context.Context, domainID, userID, url string) (scanID string, err error)
	Get(ctx context.Context, scanID string) (ScanRecord, error)
	SaveResult(ctx context.Context, scanID string, res domain.ScanResult) error
	ListByUser(ctx context.Context, userID string, limit int) ([]ScanRecord, error)
}

// ErrNotFound is returned by repositories when a record does not exist.
var ErrNotFound = errString("not found")

type errString string

func (e errString) Error() string { return string(e) }
