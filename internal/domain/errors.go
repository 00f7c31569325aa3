package domain

import "errors"

// Business outcomes are plain error values so callers can branch on them
// with errors.Is; panics are reserved for programming errors.
var (
	// ErrInsufficientFunds means a debit was refused; nothing was mutated.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrVariantNotFound means the requested quality/format does not exist
	// for the media item.
	ErrVariantNotFound = errors.New("variant not found")

	// ErrFetchFailed is a transient tool or network failure during retrieval.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrArtifactTooLarge means the fetched file exceeds the delivery ceiling.
	ErrArtifactTooLarge = errors.New("artifact too large")

	// ErrDeliveryFailed means the artifact could not be handed to the requester.
	ErrDeliveryFailed = errors.New("delivery failed")

	// ErrStorage is a ledger or job store I/O fault.
	ErrStorage = errors.New("storage error")
)
