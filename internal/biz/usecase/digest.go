package usecase

import (
	"context"
	"fmt"

	"github.com/anthropics/whatsapp-monitor/internal/biz/domain"
	"github.com/anthropics/whatsapp-monitor/internal/biz/repo"
)

// DigestUsecase rolls unresolved low-priority messages into one digest
// message and resolves them after the send succeeds.
type DigestUsecase struct {
	store        repo.MessageStore
	chat         repo.ChatService
	engine       repo.DecisionEngine
	digestMarker string
	historyLimit int
}

// NewDigestUsecase creates a new digest usecase
func NewDigestUsecase(
	store repo.MessageStore,
	chat repo.ChatService,
	engine repo.DecisionEngine,
	digestMarker string,
	historyLimit int,
) *DigestUsecase {
	return &DigestUsecase{
		store:        store,
		chat:         chat,
		engine:       engine,
		digestMarker: digestMarker,
		historyLimit: historyLimit,
	}
}

// Run claims the undigested low-priority set and sends one digest.
// When the claim is empty nothing is sent, not even a marker message.
// When the send or summary fails, nothing is resolved; the claimed set is
// re-exposed by the stale-claim release for a later run to retry.
func (uc *DigestUsecase) Run(ctx context.Context) error {
	claimed, err := uc.store.ClaimUndigestedLowPriority(ctx)
	if err != nil {
		return fmt.Errorf("claim undigested: %w", err)
	}
	if len(claimed) == 0 {
		fmt.Println("[Digest] Nothing to digest")
		return nil
	}
	fmt.Printf("[Digest] Claimed %d low priority messages\n", len(claimed))

	summary, err := uc.engine.Summarize(ctx, claimed, uc.fetchChatContext(ctx, claimed))
	if err != nil {
		return fmt.Errorf("summarize digest: %w", err)
	}

	digest := uc.digestMarker + "\n\n" + summary
	if err := uc.chat.SendMessageToSelf(ctx, digest); err != nil {
		return fmt.Errorf("send digest: %w", err)
	}

	for _, msg := range claimed {
		if err := uc.store.MarkResolved(ctx, msg.ID); err != nil {
			return fmt.Errorf("resolve digested message %d: %w", msg.ID, err)
		}
	}

	fmt.Printf("[Digest] Sent digest covering %d messages\n", len(claimed))
	return nil
}

// fetchChatContext gets recent conversation text per chat, best effort,
// so the engine can make sense of messages that are not self-contained.
func (uc *DigestUsecase) fetchChatContext(ctx context.Context, msgs []*domain.Message) map[string]string {
	if uc.historyLimit <= 0 {
		return nil
	}

	chatContext := make(map[string]string)
	for _, msg := range msgs {
		if _, done := chatContext[msg.ChatID]; done {
			continue
		}
		history, err := uc.chat.ListRecentMessages(ctx, msg.ChatID, uc.historyLimit)
		if err != nil {
			continue
		}
		chatContext[msg.ChatID] = FormatHistory(history)
	}
	return chatContext
}
