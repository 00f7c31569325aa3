// Package queue holds the in-memory FIFO job queue and the worker loop that
// drains it.
package queue

import (
	"context"
	"sync"

	"github.com/cesargomez89/fetchpay/internal/domain"
)

// Fetcher retrieves one media variant into destDir and returns the local
// artifact path. It may internally perform several retrieval and merge
// steps; the worker treats it as one opaque blocking unit of work.
type Fetcher interface {
	Fetch(ctx context.Context, mediaURL, formatID, destDir string) (string, error)
}

// Notifier delivers status text, queue positions and final artifacts back to
// the requester. Implemented by the front-end.
type Notifier interface {
	UpdatePosition(target string, position int) error
	ReportStatus(target, text string) error
	DeliverArtifact(target, path, displayName string) error
}

// Queue is an ordered, mutable sequence of pending jobs. Insertion order is
// processing order; the queue exclusively owns its jobs until they leave it.
type Queue struct {
	mu   sync.Mutex
	jobs []*domain.Job
}

func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends the job and returns its 1-based position at the moment of
// insertion. The position is a snapshot, not a live value.
func (q *Queue) Enqueue(job *domain.Job) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.jobs = append(q.jobs, job)
	return len(q.jobs)
}

// Pop removes and returns the head job, or nil when the queue is empty.
func (q *Queue) Pop() *domain.Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) == 0 {
		return nil
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return job
}

// Pending returns a snapshot of the queued jobs in order.
func (q *Queue) Pending() []*domain.Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	snapshot := make([]*domain.Job, len(q.jobs))
	copy(snapshot, q.jobs)
	return snapshot
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}
