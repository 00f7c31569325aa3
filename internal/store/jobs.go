package store

import (
	"database/sql"
	"time"

	"github.com/cesargomez89/fetchpay/internal/domain"
)

func (db *DB) CreateJob(job *domain.Job) error {
	query := `INSERT INTO jobs (id, account_id, target, media_url, format_id, label, status, cost, created_at, updated_at)
		VALUES (:id, :account_id, :target, :media_url, :format_id, :label, :status, :cost, :created_at, :updated_at)`

	_, err := db.NamedExec(query, job)
	return err
}

func (db *DB) GetJob(id string) (*domain.Job, error) {
	query := `SELECT id, account_id, target, media_url, format_id, label, status, cost, error, created_at, updated_at
		FROM jobs WHERE id = ?`

	job := &domain.Job{}
	err := db.Get(job, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (db *DB) UpdateJobStatus(id string, status domain.JobStatus) error {
	query := `UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`
	_, err := db.Exec(query, status, time.Now(), id)
	return err
}

func (db *DB) UpdateJobError(id string, errorMsg string) error {
	query := `UPDATE jobs SET status = ?, error = ?, updated_at = ? WHERE id = ?`
	_, err := db.Exec(query, domain.JobStatusFailed, errorMsg, time.Now(), id)
	return err
}

func (db *DB) ListFinishedJobs(limit int) ([]*domain.Job, error) {
	query := `SELECT id, account_id, target, media_url, format_id, label, status, cost, error, created_at, updated_at
		FROM jobs WHERE status IN ('succeeded', 'failed') ORDER BY updated_at DESC LIMIT ?`

	var jobs []*domain.Job
	err := db.Select(&jobs, query, limit)
	return jobs, err
}

func (db *DB) ListJobsByAccount(accountID string, limit int) ([]*domain.Job, error) {
	query := `SELECT id, account_id, target, media_url, format_id, label, status, cost, error, created_at, updated_at
		FROM jobs WHERE account_id = ? ORDER BY created_at DESC LIMIT ?`

	var jobs []*domain.Job
	err := db.Select(&jobs, query, accountID, limit)
	return jobs, err
}

type JobStats struct {
	Total     int `json:"total" db:"total"`
	Succeeded int `json:"succeeded" db:"succeeded"`
	Failed    int `json:"failed" db:"failed"`
}

func (db *DB) GetJobStats() (*JobStats, error) {
	query := `SELECT
		COUNT(*) as total,
		COALESCE(SUM(CASE WHEN status = 'succeeded' THEN 1 ELSE 0 END), 0) as succeeded,
		COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0) as failed
	FROM jobs
	WHERE status IN ('succeeded', 'failed')`

	stats := &JobStats{}
	err := db.Get(stats, query)
	return stats, err
}
