package repo

import (
	"context"
	"time"

	"github.com/anthropics/whatsapp-monitor/internal/biz/domain"
)

// MessageStore is the triage store interface.
// It owns message records and enforces the lifecycle transitions; the
// collector only inserts, the classifier and digest generator only perform
// their own transitions, and nothing deletes.
type MessageStore interface {
	// Insert creates a new record in state Ingested and returns its id.
	Insert(ctx context.Context, chatID, chatName, body string, observedAt time.Time) (int64, error)

	// ClaimUntriaged atomically marks all Ingested records as claimed for
	// triage and returns exactly the records it marked. Returns an empty
	// slice when nothing is pending.
	ClaimUntriaged(ctx context.Context) ([]*domain.Message, error)

	// SetPriority transitions a triage-claimed record to Triaged with the
	// given priority. Returns domain.ErrNotFound for an unknown id and
	// domain.ErrInvalidState if the record is not triage-claimed.
	SetPriority(ctx context.Context, id int64, p domain.Priority) error

	// ClaimUndigestedLowPriority atomically marks all Triaged/Low records
	// as claimed for digest inclusion and returns exactly that set.
	ClaimUndigestedLowPriority(ctx context.Context) ([]*domain.Message, error)

	// MarkResolved transitions a Triaged or DigestClaimed record to
	// Resolved. Calling it on an already-Resolved record is a no-op.
	MarkResolved(ctx context.Context, id int64) error

	// ListUnresolvedHigh returns Triaged/High records that have not yet
	// been alerted, oldest first.
	ListUnresolvedHigh(ctx context.Context) ([]*domain.Message, error)

	// ReleaseStaleClaims returns claims older than the cutoff to their
	// pre-claim state so an abandoned run's work becomes visible again.
	// Returns the number of records released.
	ReleaseStaleClaims(ctx context.Context, olderThan time.Time) (int64, error)

	// CountByState returns the number of records in each lifecycle state.
	CountByState(ctx context.Context) (map[domain.LifecycleState]int, error)

	Close() error
}
