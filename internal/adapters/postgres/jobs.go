package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"safelink/internal/ports"
)

// ClaimNext selects the next queued job using SKIP LOCKED and marks it running.
func (db *DB) ClaimNext(ctx context.Context) (job ports.ScanJob, found bool, err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return job, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	err = tx.QueryRow(ctx, `
		SELECT j.id, j.scan_id, s.url FROM scan_jobs j
		JOIN scans s ON s.id = j.scan_id
		WHERE j.status = 'queued'
		ORDER BY j.queued_at
		FOR UPDATE OF j SKIP LOCKED
		LIMIT 1
	`).Scan(&job.ID, &job.ScanID, &job.URL)
	if errors.Is(err, pgx.ErrNoRows) {
		return job, false, nil
	}
	if err != nil {
		return job, false, err
	}

	if _, err = tx.Exec(ctx, `
		UPDATE scan_jobs SET status='running', started_at=now(), attempts=attempts+1 WHERE id=$1
	`, job.ID); err != nil {
		return job, false, err
	}
	if _, err = tx.Exec(ctx, `
		UPDATE scans SET status='running', started_at=COALESCE(started_at, now()) WHERE id=$1
	`, job.ScanID); err != nil {
		return job, false, err
	}
	return job, true, nil
}

func (db *DB) UpdateScanProgress(ctx context.Context, scanID string, progress float64) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	_, err := db.Pool.Exec(ctx, `UPDATE scans SET progress=$2 WHERE id=$1`, scanID, progress)
	return err
}

func (db *DB) MarkCompleted(ctx context.Context, jobID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	var scanID string
	if err = tx.QueryRow(ctx, `SELECT scan_id FROM scan_jobs WHERE id=$1`, jobID).Scan(&scanID); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `UPDATE scan_jobs SET status='completed', finished_at=now() WHERE id=$1`, jobID); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `UPDATE scans SET status='completed', progress=1, finished_at=now() WHERE id=$1`, scanID); err != nil {
		return err
	}
	return nil
}

func (db *DB) MarkFailed(ctx context.Context, jobID string, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()
	var scanID string
	if err = tx.QueryRow(ctx, `SELECT scan_id FROM scan_jobs WHERE id=$1`, jobID).Scan(&scanID); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `UPDATE scan_jobs SET status='failed', last_error=$2, finished_at=now() WHERE id=$1`, jobID, reason); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `UPDATE scans SET status='failed', finished_at=now() WHERE id=$1`, scanID); err != nil {
		return err
	}
	return nil
}

// StartJobForScan marks the queued job for a specific scan as running and
// returns it, for the blocking scan path.
func (db *DB) StartJobForScan(ctx context.Context, scanID string) (job ports.ScanJob, err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return job, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	err = tx.QueryRow(ctx, `
		SELECT j.id, j.scan_id, s.url FROM scan_jobs j
		JOIN scans s ON s.id = j.scan_id
		WHERE j.scan_id = $1 AND j.status = 'queued'
		FOR UPDATE OF j SKIP LOCKED
	`, scanID).Scan(&job.ID, &job.ScanID, &job.URL)
	if err != nil {
		return job, err
	}
	if _, err = tx.Exec(ctx, `UPDATE scan_jobs SET status='running', started_at=now(), attempts=attempts+1 WHERE id=$1`, job.ID); err != nil {
		return job, err
	}
	if _, err = tx.Exec(ctx, `UPDATE scans SET status='running', started_at=COALESCE(started_at, now()) WHERE id=$1`, scanID); err != nil {
		return job, err
	}
	return job, nil
}
