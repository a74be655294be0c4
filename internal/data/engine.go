package data

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/whatsapp-monitor/internal/biz/domain"
	"github.com/anthropics/whatsapp-monitor/internal/biz/repo"
	"github.com/anthropics/whatsapp-monitor/internal/conf"
	"github.com/anthropics/whatsapp-monitor/llm"
)

// engineRepo implements the decision engine repository over the LLM client
type engineRepo struct {
	client  *llm.Client
	prompts *conf.PromptsConfig
}

// NewEngineRepo creates a new decision engine repository
func NewEngineRepo(client *llm.Client, prompts *conf.PromptsConfig) repo.DecisionEngine {
	if prompts == nil {
		prompts = conf.DefaultPromptsConfig()
	}
	return &engineRepo{client: client, prompts: prompts}
}

// Classify obtains a priority verdict for one message
func (r *engineRepo) Classify(ctx context.Context, msg *domain.Message, history string) (repo.Classification, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Chat\n%s\n\n", chatLabel(msg))
	if history != "" {
		fmt.Fprintf(&sb, "## Recent chat history\n%s\n\n", history)
	}
	fmt.Fprintf(&sb, "## Message to evaluate\n%s", msg.Body)

	resp, err := r.client.Chat(ctx, r.prompts.Classify.SystemPrompt, sb.String(), 0.1, 150)
	if err != nil {
		return repo.Classification{}, fmt.Errorf("classify message %d: %w", msg.ID, err)
	}

	verdict, err := llm.ParseVerdict(resp)
	if err != nil {
		return repo.Classification{}, fmt.Errorf("classify message %d: %w", msg.ID, err)
	}

	priority := domain.PriorityLow
	if verdict.High {
		priority = domain.PriorityHigh
	}
	fmt.Printf("[Engine] Message %d scored %d -> %v\n", msg.ID, verdict.Score, priority)
	return repo.Classification{Priority: priority, Reason: verdict.Reason}, nil
}

// Summarize produces a narrative digest over the given messages
func (r *engineRepo) Summarize(ctx context.Context, msgs []*domain.Message, chatContext map[string]string) (string, error) {
	var sb strings.Builder
	sb.WriteString("## Messages to summarize\n")
	for _, m := range msgs {
		fmt.Fprintf(&sb, "[%s] %s: %s\n", m.ObservedAt.Format("15:04"), chatLabel(m), m.Body)
	}
	if len(chatContext) > 0 {
		sb.WriteString("\n## Chat context\n")
		for chatID, history := range chatContext {
			fmt.Fprintf(&sb, "### %s\n%s\n", chatID, history)
		}
	}

	summary, err := r.client.Chat(ctx, r.prompts.Digest.SummaryPrompt, sb.String(), 0.3, 600)
	if err != nil {
		return "", fmt.Errorf("summarize %d messages: %w", len(msgs), err)
	}
	return strings.TrimSpace(summary), nil
}

func chatLabel(m *domain.Message) string {
	if m.ChatName != "" {
		return m.ChatName
	}
	return m.ChatID
}
