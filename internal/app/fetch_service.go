// Package app wires probing, pricing, the ledger and the queue into the
// request-level operations the HTTP layer exposes.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cesargomez89/fetchpay/internal/constants"
	"github.com/cesargomez89/fetchpay/internal/domain"
	"github.com/cesargomez89/fetchpay/internal/fetcher"
	"github.com/cesargomez89/fetchpay/internal/ledger"
	"github.com/cesargomez89/fetchpay/internal/logger"
	"github.com/cesargomez89/fetchpay/internal/pricing"
	"github.com/cesargomez89/fetchpay/internal/queue"
	"github.com/cesargomez89/fetchpay/internal/store"
)

// Prober inspects a media URL and lists its downloadable variants.
type Prober interface {
	Probe(ctx context.Context, mediaURL string) (*fetcher.MediaInfo, error)
}

// InsufficientFundsError carries the price the account could not cover so
// the caller can tell the requester what a retry would take.
type InsufficientFundsError struct {
	Cost    int64
	Balance int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: need %d credits, have %d", e.Cost, e.Balance)
}

func (e *InsufficientFundsError) Unwrap() error { return domain.ErrInsufficientFunds }

// Option is a downloadable variant together with its credit cost.
type Option struct {
	Variant domain.Variant `json:"variant"`
	Cost    int64          `json:"cost"`
}

// Submission describes an accepted fetch request.
type Submission struct {
	Job      *domain.Job `json:"job"`
	Position int         `json:"position"`
	Cost     int64       `json:"cost"`
	Balance  int64       `json:"balance"`
}

type FetchService struct {
	Repo   *store.DB
	Ledger *ledger.Ledger
	Prober Prober
	Queue  *queue.Queue
	Policy pricing.Policy
	Logger *logger.Logger
}

func NewFetchService(repo *store.DB, ldg *ledger.Ledger, prober Prober, q *queue.Queue, policy pricing.Policy, log *logger.Logger) *FetchService {
	if log == nil {
		log = logger.Default()
	}
	return &FetchService{
		Repo:   repo,
		Ledger: ldg,
		Prober: prober,
		Queue:  q,
		Policy: policy,
		Logger: log.WithComponent("fetch"),
	}
}

// Options probes the URL and prices every variant so the caller can pick one.
func (s *FetchService) Options(ctx context.Context, mediaURL string) (string, []Option, error) {
	info, err := s.Prober.Probe(ctx, mediaURL)
	if err != nil {
		return "", nil, err
	}

	opts := make([]Option, 0, len(info.Variants))
	for _, v := range info.Variants {
		opts = append(opts, Option{Variant: v, Cost: s.Policy.PriceVariant(v)})
	}
	return info.Title, opts, nil
}

// Submit charges the account for the chosen variant and enqueues the fetch.
// The debit happens before the job exists, so a rejected charge leaves no
// trace in the queue or the job history.
func (s *FetchService) Submit(ctx context.Context, accountID, target, mediaURL, formatID string) (*Submission, error) {
	info, err := s.Prober.Probe(ctx, mediaURL)
	if err != nil {
		return nil, err
	}

	var variant *domain.Variant
	for i := range info.Variants {
		if info.Variants[i].FormatID == formatID {
			variant = &info.Variants[i]
			break
		}
	}
	if variant == nil {
		return nil, fmt.Errorf("%w: format %s", domain.ErrVariantNotFound, formatID)
	}

	cost := s.Policy.PriceVariant(*variant)
	ok, err := s.Ledger.Debit(accountID, cost)
	if err != nil {
		return nil, err
	}
	if !ok {
		balance, berr := s.Ledger.GetOrCreate(accountID)
		if berr != nil {
			return nil, berr
		}
		return nil, &InsufficientFundsError{Cost: cost, Balance: balance}
	}

	now := time.Now()
	job := &domain.Job{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Target:    target,
		MediaURL:  mediaURL,
		FormatID:  formatID,
		Label:     fmt.Sprintf("%s (%s)", info.Title, variant.Quality),
		Status:    domain.JobStatusQueued,
		Cost:      cost,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.CreateJob(job); err != nil {
		return nil, fmt.Errorf("record job: %w", err)
	}

	position := s.Queue.Enqueue(job)
	balance, err := s.Ledger.GetOrCreate(accountID)
	if err != nil {
		return nil, err
	}

	s.Logger.Info("Job submitted", "job_id", job.ID, "account_id", accountID, "cost", cost, "position", position)
	return &Submission{Job: job, Position: position, Cost: cost, Balance: balance}, nil
}

// Pending lists queued jobs in processing order.
func (s *FetchService) Pending() []*domain.Job {
	return s.Queue.Pending()
}

// History returns the most recent finished jobs for an account. A limit at
// or below zero falls back to the default page size.
func (s *FetchService) History(accountID string, limit int) ([]*domain.Job, error) {
	if limit <= 0 {
		limit = constants.DefaultHistoryLimit
	}
	return s.Repo.ListJobsByAccount(accountID, limit)
}

// Stats summarizes finished jobs across all accounts.
func (s *FetchService) Stats() (*store.JobStats, []*domain.Job, error) {
	stats, err := s.Repo.GetJobStats()
	if err != nil {
		return nil, nil, err
	}
	recent, err := s.Repo.ListFinishedJobs(constants.DefaultHistoryLimit)
	if err != nil {
		return nil, nil, err
	}
	return stats, recent, nil
}

func (s *FetchService) GetJob(id string) (*domain.Job, error) {
	return s.Repo.GetJob(id)
}
