package domain

import (
	"time"
)

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal reports whether the status is a final state.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// Job represents one paid fetch-and-deliver request. A Job exists only after
// its cost has been successfully debited from the account.
type Job struct {
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	Error     *string   `json:"error,omitempty" db:"error"`
	ID        string    `json:"id" db:"id"`
	AccountID string    `json:"account_id" db:"account_id"`
	Target    string    `json:"target" db:"target"`
	MediaURL  string    `json:"media_url" db:"media_url"`
	FormatID  string    `json:"format_id" db:"format_id"`
	Label     string    `json:"label" db:"label"`
	Status    JobStatus `json:"status" db:"status"`
	Cost      int64     `json:"cost" db:"cost"`
}

type VariantKind string

const (
	VariantAudio VariantKind = "audio"
	VariantVideo VariantKind = "video"
)

// Variant describes one downloadable option of a media item. Variants are
// inputs to pricing and fetching only and are never persisted.
type Variant struct {
	FormatID string      `json:"format_id"`
	Kind     VariantKind `json:"kind"`
	Quality  string      `json:"quality"` // resolution tier for video, bitrate for audio
	SizeMB   int64       `json:"size_mb"`
}

// Account is a ledger entry holding a non-negative credit balance.
type Account struct {
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	ID        string    `json:"id" db:"id"`
	Balance   int64     `json:"balance" db:"balance"`
}

type InvoiceStatus string

const (
	InvoiceStatusPending  InvoiceStatus = "pending"
	InvoiceStatusCredited InvoiceStatus = "credited"
)

// Invoice records one top-up attempt so a confirmed payment is credited
// exactly once.
type Invoice struct {
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at" db:"updated_at"`
	ID         string        `json:"id" db:"id"`
	AccountID  string        `json:"account_id" db:"account_id"`
	Provider   string        `json:"provider" db:"provider"`
	ExternalID string        `json:"external_id" db:"external_id"`
	PayURL     string        `json:"pay_url,omitempty" db:"pay_url"`
	Status     InvoiceStatus `json:"status" db:"status"`
	Credits    int64         `json:"credits" db:"credits"`
}
