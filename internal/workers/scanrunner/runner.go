package scanrunner

import (
	"context"
	"log"
	"time"

	"safelink/internal/domain"
	"safelink/internal/ports"
)

// ScanProcessor performs the scan work for a claimed job and returns the
// terminal result so blocking callers can render it directly.
type ScanProcessor interface {
	Process(ctx context.Context, job ports.ScanJob) (domain.ScanResult, error)
}

// Processor runs the real pipeline against a job's URL and stores the result.
type Processor struct {
	Scanner ports.Scanner
	Jobs    ports.JobRepository
	Scans   ports.ScanRepository
}

func (p Processor) Process(ctx context.Context, job ports.ScanJob) (domain.ScanResult, error) {
	if err := p.Jobs.UpdateScanProgress(ctx, job.ScanID, 0.1); err != nil {
		return domain.ScanResult{}, err
	}
	res, err := p.Scanner.Scan(ctx, job.URL)
	if err != nil {
		return domain.ScanResult{}, err
	}
	if err := p.Scans.SaveResult(ctx, job.ScanID, res); err != nil {
		return res, err
	}
	return res, p.Jobs.UpdateScanProgress(ctx, job.ScanID, 1.0)
}

// Run starts worker goroutines that claim queued jobs and process them.
func Run(ctx context.Context, repo ports.JobRepository, processor ScanProcessor, concurrency int, pollInterval time.Duration) {
	if concurrency < 1 {
		return
	}
	jobsCh := make(chan ports.ScanJob, concurrency)

	// dispatcher loop
	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				close(jobsCh)
				return
			case <-ticker.C:
				for {
					job, found, err := repo.ClaimNext(ctx)
					if err != nil {
						log.Printf("job claim error: %v", err)
						break
					}
					if !found {
						break
					}
					jobsCh <- job
				}
			}
		}
	}()

	// workers
	for i := 0; i < concurrency; i++ {
		go func(idx int) {
			for job := range jobsCh {
				if _, err := processor.Process(ctx, job); err != nil {
					_ = repo.MarkFailed(ctx, job.ID, err.Error())
					log.Printf("worker %d: job %s failed: %v", idx, job.ID, err)
					continue
				}
				if err := repo.MarkCompleted(ctx, job.ID); err != nil {
					log.Printf("worker %d: complete err: %v", idx, err)
				}
			}
		}(i)
	}
}

// ProcessInline claims the job for a specific scan and processes it
// synchronously with the same processor logic as the background workers.
func ProcessInline(ctx context.Context, repo ports.JobRepository, processor ScanProcessor, scanID string) (domain.ScanResult, error) {
	job, err := repo.StartJobForScan(ctx, scanID)
	if err != nil {
		return domain.ScanResult{}, err
	}
	res, err := processor.Process(ctx, job)
	if err != nil {
		_ = repo.MarkFailed(ctx, job.ID, err.Error())
		return res, err
	}
	return res, repo.MarkCompleted(ctx, job.ID)
}
