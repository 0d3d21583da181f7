package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/invoice-adjust-backend/internal/domain/tax"
)

// ReconcileStatus represents the current state of a reconcile job.
type ReconcileStatus string

const (
	StatusPending   ReconcileStatus = "pending"
	StatusRunning   ReconcileStatus = "running"
	StatusCompleted ReconcileStatus = "completed"
	StatusFailed    ReconcileStatus = "failed"
	StatusCancelled ReconcileStatus = "cancelled"
)

// ReconcileTarget pairs an invoice with the total it should settle at.
type ReconcileTarget struct {
	InvoiceID   string
	TargetTotal int64
}

// ReconcileRequest holds parameters for starting a reconcile run.
type ReconcileRequest struct {
	Provider  string
	Targets   []ReconcileTarget
	TaxRate   decimal.Decimal
	RoundMode tax.RoundMode
	DryRun    bool
}

// ReconcileProgress holds real-time progress information.
type ReconcileProgress struct {
	CurrentPhase  string // "pending", "adjusting", "completed", "failed", "cancelled"
	TotalInvoices int
	Adjusted      int
	Skipped       int
	Errored       int
	LastUpdate    time.Time
}

// ReconcileJob represents a running or completed reconcile job.
type ReconcileJob struct {
	ID          string
	Provider    string
	Status      ReconcileStatus
	Request     ReconcileRequest
	StartedAt   time.Time
	CompletedAt *time.Time
	Progress    ReconcileProgress
	RunID       int64
	Errors      []string
	cancelFunc  context.CancelFunc
}

// StartReconcile starts a reconcile job asynchronously and returns its ID.
// Note: The passed context is NOT used as the parent for the background
// job; jobs run on context.Background() so they survive the HTTP request
// that started them. Use CancelReconcile() to stop a running job.
func (s *AdjustmentService) StartReconcile(_ context.Context, req ReconcileRequest) (string, error) {
	providerName := req.Provider
	if providerName == "" {
		providerName = s.defaultProvider
	}
	if _, err := s.registry.Get(providerName); err != nil {
		return "", fmt.Errorf("invalid provider: %s", providerName)
	}
	if len(req.Targets) == 0 {
		return "", errors.New("no invoices to reconcile")
	}
	req.Provider = providerName

	// Only one reconcile per provider at a time
	if !s.tryLockProvider(providerName) {
		return "", fmt.Errorf("reconcile already running for provider: %s", providerName)
	}

	jobID := uuid.NewString()
	jobCtx, cancel := context.WithCancel(context.Background())

	job := &ReconcileJob{
		ID:         jobID,
		Provider:   providerName,
		Status:     StatusPending,
		Request:    req,
		StartedAt:  time.Now(),
		cancelFunc: cancel,
		Progress: ReconcileProgress{
			CurrentPhase:  "pending",
			TotalInvoices: len(req.Targets),
			LastUpdate:    time.Now(),
		},
	}

	s.jobsMutex.Lock()
	s.jobs[jobID] = job
	s.jobsMutex.Unlock()

	go s.runReconcileJob(jobCtx, job)

	s.logger.Info("reconcile job started",
		"job_id", jobID,
		"provider", providerName,
		"invoices", len(req.Targets),
		"dry_run", req.DryRun,
	)

	return jobID, nil
}

// GetReconcileJob retrieves a snapshot of a job by ID.
func (s *AdjustmentService) GetReconcileJob(jobID string) (*ReconcileJob, error) {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}

	snapshot := *job
	snapshot.cancelFunc = nil
	return &snapshot, nil
}

// ListReconcileJobs returns snapshots of all jobs.
func (s *AdjustmentService) ListReconcileJobs() []*ReconcileJob {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	jobs := make([]*ReconcileJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		snapshot := *job
		snapshot.cancelFunc = nil
		jobs = append(jobs, &snapshot)
	}
	return jobs
}

// CancelReconcile cancels a running reconcile job.
func (s *AdjustmentService) CancelReconcile(jobID string) error {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if job.Status != StatusPending && job.Status != StatusRunning {
		return fmt.Errorf("job cannot be cancelled: status=%s", job.Status)
	}

	job.cancelFunc()
	job.Status = StatusCancelled
	now := time.Now()
	job.CompletedAt = &now
	job.Progress.CurrentPhase = "cancelled"
	job.Progress.LastUpdate = now

	s.logger.Info("reconcile job cancelled", "job_id", jobID)
	return nil
}

// runReconcileJob executes the reconcile in a background goroutine.
func (s *AdjustmentService) runReconcileJob(ctx context.Context, job *ReconcileJob) {
	defer s.unlockProvider(job.Provider)

	var runID int64
	if s.storage != nil {
		id, err := s.storage.StartReconcileRun(job.Provider, len(job.Request.Targets), job.Request.DryRun)
		if err != nil {
			s.logger.Error("failed to record reconcile run", "job_id", job.ID, "error", err)
		} else {
			runID = id
		}
	}

	s.updateJob(job.ID, func(j *ReconcileJob) {
		j.Status = StatusRunning
		j.RunID = runID
		j.Progress.CurrentPhase = "adjusting"
		j.Progress.LastUpdate = time.Now()
	})

	var adjusted, skipped, errored int

	for _, target := range job.Request.Targets {
		if ctx.Err() != nil {
			// Cancelled; CancelReconcile already updated the job
			break
		}

		_, err := s.Apply(ctx, ApplyRequest{
			Provider:    job.Provider,
			InvoiceID:   target.InvoiceID,
			TargetTotal: target.TargetTotal,
			TaxRate:     job.Request.TaxRate,
			RoundMode:   job.Request.RoundMode,
			DryRun:      job.Request.DryRun,
		})

		switch {
		case err == nil:
			adjusted++
		case errors.Is(err, ErrInvoiceNotDraft), errors.Is(err, ErrZeroSubtotal):
			// Not adjustable; nothing to fix on these invoices
			skipped++
		default:
			errored++
			s.updateJob(job.ID, func(j *ReconcileJob) {
				j.Errors = append(j.Errors, fmt.Sprintf("%s: %v", target.InvoiceID, err))
			})
		}

		s.updateJob(job.ID, func(j *ReconcileJob) {
			j.Progress.Adjusted = adjusted
			j.Progress.Skipped = skipped
			j.Progress.Errored = errored
			j.Progress.LastUpdate = time.Now()
		})
	}

	if s.storage != nil && runID != 0 {
		if err := s.storage.CompleteReconcileRun(runID, adjusted, skipped, errored); err != nil {
			s.logger.Error("failed to complete reconcile run", "job_id", job.ID, "error", err)
		}
	}

	if ctx.Err() != nil {
		return
	}

	s.updateJob(job.ID, func(j *ReconcileJob) {
		now := time.Now()
		j.Status = StatusCompleted
		j.CompletedAt = &now
		j.Progress.CurrentPhase = "completed"
		j.Progress.LastUpdate = now
	})

	s.logger.Info("reconcile job completed",
		"job_id", job.ID,
		"adjusted", adjusted,
		"skipped", skipped,
		"errored", errored,
	)
}

// updateJob applies a mutation to a job under the jobs lock.
func (s *AdjustmentService) updateJob(jobID string, fn func(*ReconcileJob)) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists {
		fn(job)
	}
}

// CleanupOldJobs removes finished jobs older than the specified duration.
func (s *AdjustmentService) CleanupOldJobs(maxAge time.Duration) int {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, job := range s.jobs {
		if job.Status == StatusCompleted || job.Status == StatusFailed || job.Status == StatusCancelled {
			if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
				delete(s.jobs, id)
				removed++
			}
		}
	}
	return removed
}

// tryLockProvider attempts to acquire the lock for a provider.
func (s *AdjustmentService) tryLockProvider(provider string) bool {
	s.locksMutex.Lock()
	defer s.locksMutex.Unlock()

	if _, exists := s.providerLocks[provider]; !exists {
		s.providerLocks[provider] = &sync.Mutex{}
	}

	return s.providerLocks[provider].TryLock()
}

// unlockProvider releases the lock for a provider.
func (s *AdjustmentService) unlockProvider(provider string) {
	s.locksMutex.Lock()
	defer s.locksMutex.Unlock()

	if lock, exists := s.providerLocks[provider]; exists {
		lock.Unlock()
	}
}
