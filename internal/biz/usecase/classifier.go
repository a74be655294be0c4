package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/whatsapp-monitor/internal/biz/domain"
	"github.com/anthropics/whatsapp-monitor/internal/biz/repo"
)

// ClassifierUsecase assigns a priority to every untriaged message and sends
// a single alert covering all unresolved high-priority messages.
type ClassifierUsecase struct {
	store        repo.MessageStore
	chat         repo.ChatService
	engine       repo.DecisionEngine
	alertMarker  string
	historyLimit int
}

// NewClassifierUsecase creates a new classifier usecase
func NewClassifierUsecase(
	store repo.MessageStore,
	chat repo.ChatService,
	engine repo.DecisionEngine,
	alertMarker string,
	historyLimit int,
) *ClassifierUsecase {
	return &ClassifierUsecase{
		store:        store,
		chat:         chat,
		engine:       engine,
		alertMarker:  alertMarker,
		historyLimit: historyLimit,
	}
}

// Run claims the untriaged set, scores each message, and alerts on the
// high-priority ones. A message whose classification fails stays claimed
// and unscored; the stale-claim release makes it visible to a later run.
func (uc *ClassifierUsecase) Run(ctx context.Context) error {
	claimed, err := uc.store.ClaimUntriaged(ctx)
	if err != nil {
		return fmt.Errorf("claim untriaged: %w", err)
	}
	fmt.Printf("[Classifier] Claimed %d untriaged messages\n", len(claimed))

	reasons := make(map[int64]string)
	var scoreErrs []error
	for _, msg := range claimed {
		history := uc.fetchHistory(ctx, msg.ChatID)

		cls, err := uc.engine.Classify(ctx, msg, history)
		if err != nil {
			// Leave the message claimed-but-unscored; do not guess a
			// priority for it.
			fmt.Printf("[Classifier] Engine failed on message %d: %v\n", msg.ID, err)
			scoreErrs = append(scoreErrs, err)
			continue
		}

		if err := uc.store.SetPriority(ctx, msg.ID, cls.Priority); err != nil {
			return fmt.Errorf("set priority for message %d: %w", msg.ID, err)
		}
		if cls.Priority == domain.PriorityHigh {
			reasons[msg.ID] = cls.Reason
		}
	}

	// The alert covers every unresolved high message, including ones left
	// over from a run whose alert send failed.
	high, err := uc.store.ListUnresolvedHigh(ctx)
	if err != nil {
		return errors.Join(append(scoreErrs, fmt.Errorf("list unresolved high: %w", err))...)
	}
	if len(high) == 0 {
		fmt.Println("[Classifier] No high priority messages, no alert")
		return errors.Join(scoreErrs...)
	}

	alert := uc.buildAlert(high, reasons)
	if err := uc.chat.SendMessageToSelf(ctx, alert); err != nil {
		// Resolution must not happen without a successful send; these
		// messages stay Triaged/High and the next run re-alerts them.
		return errors.Join(append(scoreErrs, fmt.Errorf("send alert: %w", err))...)
	}

	for _, msg := range high {
		if err := uc.store.MarkResolved(ctx, msg.ID); err != nil {
			return errors.Join(append(scoreErrs, fmt.Errorf("resolve alerted message %d: %w", msg.ID, err))...)
		}
	}

	fmt.Printf("[Classifier] Alerted %d high priority messages\n", len(high))
	return errors.Join(scoreErrs...)
}

// fetchHistory gets recent conversation context, best effort
func (uc *ClassifierUsecase) fetchHistory(ctx context.Context, chatID string) string {
	if uc.historyLimit <= 0 {
		return ""
	}
	msgs, err := uc.chat.ListRecentMessages(ctx, chatID, uc.historyLimit)
	if err != nil {
		return ""
	}
	return FormatHistory(msgs)
}

// buildAlert builds the single alert message. It names the chat and the
// reason for each high message but never includes the message content.
func (uc *ClassifierUsecase) buildAlert(high []*domain.Message, reasons map[int64]string) string {
	var sb strings.Builder
	sb.WriteString(uc.alertMarker)
	sb.WriteString("\n")
	for _, msg := range high {
		label := msg.ChatName
		if label == "" {
			label = msg.ChatID
		}
		reason := reasons[msg.ID]
		if reason == "" {
			reason = "flagged high priority in an earlier run"
		}
		fmt.Fprintf(&sb, "- %s: %s\n", label, reason)
	}
	return sb.String()
}

// FormatHistory formats chat messages as conversation text for the engine
func FormatHistory(msgs []repo.ChatMessage) string {
	var sb strings.Builder
	for _, m := range msgs {
		sender := m.Sender
		if m.FromMe {
			sender = "me"
		}
		if sender == "" {
			sender = "unknown"
		}
		fmt.Fprintf(&sb, "[%s]: %s\n", sender, m.Body)
	}
	return sb.String()
}
