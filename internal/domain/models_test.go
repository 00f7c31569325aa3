package domain

import (
	"errors"
	"testing"
)

func TestJobStatusIsTerminal(t *testing.T) {
	cases := []struct {
		status   JobStatus
		terminal bool
	}{
		{JobStatusQueued, false},
		{JobStatusRunning, false},
		{JobStatusSucceeded, true},
		{JobStatusFailed, true},
	}

	for _, c := range cases {
		if got := c.status.IsTerminal(); got != c.terminal {
			t.Errorf("IsTerminal(%s) = %v, want %v", c.status, got, c.terminal)
		}
	}
}

func TestErrorIdentity(t *testing.T) {
	// Sentinels must remain distinct so errors.Is branching stays reliable.
	sentinels := []error{
		ErrInsufficientFunds,
		ErrVariantNotFound,
		ErrFetchFailed,
		ErrArtifactTooLarge,
		ErrDeliveryFailed,
		ErrStorage,
	}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("sentinel %v unexpectedly matches %v", a, b)
			}
		}
	}
}
