package repo

import (
	"context"

	"github.com/anthropics/whatsapp-monitor/internal/biz/domain"
)

// Classification is the engine's verdict for one message.
type Classification struct {
	Priority domain.Priority // Low or High, never Unset
	Reason   string          // brief justification, used in the alert text
}

// DecisionEngine is the external reasoning interface.
// Both operations are opaque and non-deterministic; the caller supplies chat
// context so the engine can judge messages that are not self-contained.
type DecisionEngine interface {
	// Classify returns a priority verdict for one message. history is
	// recent conversation text from the same chat, empty if unavailable.
	Classify(ctx context.Context, msg *domain.Message, history string) (Classification, error)

	// Summarize produces a narrative digest over the given messages.
	// chatContext maps chat id to recent conversation text.
	Summarize(ctx context.Context, msgs []*domain.Message, chatContext map[string]string) (string, error)
}
