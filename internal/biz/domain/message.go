package domain

import "time"

// Priority is the triage verdict for a message.
type Priority int

const (
	PriorityUnset Priority = iota
	PriorityLow
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityHigh:
		return "high"
	default:
		return "unset"
	}
}

// LifecycleState tracks where a message is in the triage pipeline.
// A message moves Ingested -> TriageClaimed -> Triaged, and from Triaged
// either directly to Resolved (alerted High) or via DigestClaimed (Low).
type LifecycleState int

const (
	StateIngested LifecycleState = iota
	StateTriageClaimed
	StateTriaged
	StateDigestClaimed
	StateResolved
)

func (s LifecycleState) String() string {
	switch s {
	case StateIngested:
		return "ingested"
	case StateTriageClaimed:
		return "triage_claimed"
	case StateTriaged:
		return "triaged"
	case StateDigestClaimed:
		return "digest_claimed"
	case StateResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Message represents one ingested message instance.
type Message struct {
	ID         int64
	ChatID     string
	ChatName   string
	Body       string
	ObservedAt time.Time
	Priority   Priority
	State      LifecycleState
}

// IsHigh reports whether the message was triaged as high priority.
func (m *Message) IsHigh() bool {
	return m.Priority == PriorityHigh
}

// IsTerminal reports whether the message has produced its user-visible effect.
func (m *Message) IsTerminal() bool {
	return m.State == StateResolved
}
