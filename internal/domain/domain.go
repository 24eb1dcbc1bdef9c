package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTransition is returned when a status write would violate the
// transition table for its entity.
var ErrInvalidTransition = errors.New("invalid status transition")

// DomainStatus enumerates per-domain processing states.
type DomainStatus string

const (
	DomainPending    DomainStatus = "pending"
	DomainProcessing DomainStatus = "processing"
	DomainCompleted  DomainStatus = "completed"
	DomainFailed     DomainStatus = "failed"
)

// domainTransitions is the validated transition table for domain records.
// processing→pending covers both retry re-entry and stuck-state recovery.
var domainTransitions = map[DomainStatus][]DomainStatus{
	DomainPending:    {DomainProcessing},
	DomainProcessing: {DomainCompleted, DomainFailed, DomainPending},
	DomainCompleted:  {},
	DomainFailed:     {},
}

// CanTransition reports whether a domain may move from one status to another.
// Same-status writes are treated as no-ops and allowed.
func (s DomainStatus) CanTransition(to DomainStatus) bool {
	if s == to {
		return true
	}
	for _, next := range domainTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s DomainStatus) Terminal() bool {
	return len(domainTransitions[s]) == 0
}

// CheckTransition returns ErrInvalidTransition when the move is not allowed.
func CheckTransition(from, to DomainStatus) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("domain %s -> %s: %w", from, to, ErrInvalidTransition)
	}
	return nil
}

// Domain is one domain name plus its per-job processing state.
type Domain struct {
	ID            string
	JobID         string
	Name          string
	ScheduledDate time.Time
	Status        DomainStatus
	RetryCount    int
	ErrorMessage  string
	CreatedAt     time.Time
}

// Eligible reports whether the domain may be selected for processing on the
// given day: pending, with a scheduled date on or before it.
func (d Domain) Eligible(today time.Time) bool {
	return d.Status == DomainPending && !d.ScheduledDate.After(today)
}
