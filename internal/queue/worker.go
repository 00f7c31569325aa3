package queue

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cesargomez89/fetchpay/internal/config"
	"github.com/cesargomez89/fetchpay/internal/constants"
	"github.com/cesargomez89/fetchpay/internal/domain"
	"github.com/cesargomez89/fetchpay/internal/logger"
	"github.com/cesargomez89/fetchpay/internal/storage"
	"github.com/cesargomez89/fetchpay/internal/store"
	"github.com/cesargomez89/fetchpay/internal/tagging"
)

// Worker drains the queue. Processing is strictly serial by default to bound
// the footprint of the external fetch tool; concurrency is configurable but
// defaults to one.
type Worker struct {
	queue    *Queue
	fetcher  Fetcher
	notifier Notifier
	repo     *store.DB
	cfg      *config.Config
	log      *logger.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewWorker(q *Queue, f Fetcher, n Notifier, repo *store.DB, cfg *config.Config, log *logger.Logger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if log == nil {
		log = logger.Default()
	}

	return &Worker{
		queue:    q,
		fetcher:  f,
		notifier: n,
		repo:     repo,
		cfg:      cfg,
		log:      log.WithComponent("worker"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (w *Worker) Start() {
	w.log.Info("Starting worker", "count", w.cfg.WorkerCount)

	for i := 0; i < w.cfg.WorkerCount; i++ {
		w.wg.Add(1)
		go w.processJobs()
	}
}

func (w *Worker) Stop() {
	w.log.Info("Stopping worker")
	w.cancel()
	w.wg.Wait()
}

func (w *Worker) processJobs() {
	defer w.wg.Done()
	ticker := time.NewTicker(constants.DefaultPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			for {
				job := w.queue.Pop()
				if job == nil {
					break
				}
				w.runJob(job)

				select {
				case <-w.ctx.Done():
					return
				default:
				}
			}
		}
	}
}

// runJob processes one job to a terminal state. A crash inside a job must
// never abort the loop: everything is caught here, reported, and cleaned up.
func (w *Worker) runJob(job *domain.Job) {
	log := w.log.WithJob(job.ID, job.AccountID)

	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic in job", "panic", r)
			w.fail(job, fmt.Errorf("internal error: %v", r), log)
		}
	}()

	// A job that already reached a terminal state must never run again.
	if job.Status.IsTerminal() {
		log.Warn("Skipping finished job", "status", job.Status)
		return
	}

	log.Info("Running job", "media_url", job.MediaURL, "format_id", job.FormatID)

	job.Status = domain.JobStatusRunning
	if err := w.repo.UpdateJobStatus(job.ID, domain.JobStatusRunning); err != nil {
		log.Error("Failed to update status", "error", err)
	}

	w.report(job.Target, fmt.Sprintf("Starting download (%s). This can take a while.", job.Label))
	w.broadcastPositions()
	defer w.broadcastPositions()

	// Each job gets its own scratch directory so cleanup is unconditional
	// on every exit path.
	jobDir := filepath.Join(w.cfg.DownloadsDir, job.ID)
	defer func() {
		if err := storage.RemoveAll(jobDir); err != nil {
			log.Warn("Failed to remove scratch dir", "dir", jobDir, "error", err)
		}
	}()

	if err := storage.EnsureDir(jobDir); err != nil {
		w.fail(job, fmt.Errorf("%w: create scratch dir: %v", domain.ErrFetchFailed, err), log)
		return
	}

	artifact, err := w.fetch(job, jobDir)
	if err != nil {
		w.fail(job, err, log)
		return
	}

	size, err := storage.FileSize(artifact)
	if err != nil {
		if storage.IsNotExist(err) {
			w.fail(job, fmt.Errorf("%w: artifact missing after fetch", domain.ErrFetchFailed), log)
		} else {
			w.fail(job, fmt.Errorf("%w: stat artifact: %v", domain.ErrFetchFailed, err), log)
		}
		return
	}
	if size >= w.cfg.MaxArtifactBytes {
		w.fail(job, fmt.Errorf("%w: %d bytes", domain.ErrArtifactTooLarge, size), log)
		return
	}

	// Best-effort: a missing tag never fails the job.
	if strings.EqualFold(filepath.Ext(artifact), constants.ExtMP3) {
		if tagErr := tagging.TagFile(artifact, job.Label); tagErr != nil {
			log.Warn("Failed to tag artifact", "error", tagErr)
		}
	}

	w.report(job.Target, "Uploading the file...")

	displayName := storage.Sanitize(filepath.Base(artifact))
	if err := w.notifier.DeliverArtifact(job.Target, artifact, displayName); err != nil {
		w.fail(job, fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, err), log)
		return
	}

	job.Status = domain.JobStatusSucceeded
	if err := w.repo.UpdateJobStatus(job.ID, domain.JobStatusSucceeded); err != nil {
		log.Error("Failed to update final job status", "error", err)
	}
	w.report(job.Target, fmt.Sprintf("Done! Downloaded %s.", job.Label))
	log.Info("Job completed", "size_bytes", size)
}

func (w *Worker) fetch(job *domain.Job, destDir string) (string, error) {
	ctx := w.ctx
	if w.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.FetchTimeout)
		defer cancel()
	}
	return w.fetcher.Fetch(ctx, job.MediaURL, job.FormatID, destDir)
}

// fail records a terminal failure and tells the requester with a bounded
// user-facing message. There are no refunds and no retries here.
func (w *Worker) fail(job *domain.Job, err error, log *logger.Logger) {
	msg := truncateMessage(w.userMessage(err))
	log.Error("Job failed", "error", err)

	job.Status = domain.JobStatusFailed
	if repoErr := w.repo.UpdateJobError(job.ID, err.Error()); repoErr != nil {
		log.Error("Failed to record job error", "error", repoErr)
	}
	w.report(job.Target, msg)
}

func (w *Worker) userMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrVariantNotFound):
		return "The requested quality is not available for this item."
	case errors.Is(err, domain.ErrArtifactTooLarge):
		return fmt.Sprintf("The file is too large to send (limit %d MB).", w.cfg.MaxArtifactBytes/(1024*1024))
	case errors.Is(err, domain.ErrDeliveryFailed):
		return "The file was downloaded but could not be delivered. Please try again later."
	default:
		return fmt.Sprintf("Download failed: %v", err)
	}
}

// report sends status text best-effort; notification failures are logged,
// never fatal.
func (w *Worker) report(target, text string) {
	if err := w.notifier.ReportStatus(target, text); err != nil {
		w.log.Warn("Failed to report status", "target", target, "error", err)
	}
}

// broadcastPositions tells every waiting job its current 1-based position.
// A failure to reach one requester does not stop the broadcast to the rest.
func (w *Worker) broadcastPositions() {
	for i, job := range w.queue.Pending() {
		if err := w.notifier.UpdatePosition(job.Target, i+1); err != nil {
			w.log.Warn("Failed to update queue position", "target", job.Target, "error", err)
		}
	}
}

func truncateMessage(msg string) string {
	if len(msg) <= constants.MaxErrorMessageLen {
		return msg
	}
	return msg[:constants.MaxErrorMessageLen] + "..."
}
