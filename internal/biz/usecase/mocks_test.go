package usecase

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/anthropics/whatsapp-monitor/internal/biz/domain"
	"github.com/anthropics/whatsapp-monitor/internal/biz/repo"
	"github.com/anthropics/whatsapp-monitor/internal/data"
)

func newTestStore(t *testing.T) repo.MessageStore {
	t.Helper()
	store, err := data.NewMessageStore(filepath.Join(t.TempDir(), "messages.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// mockChat is a canned-response chat service that records every outbound
// call so tests can assert what the pipeline sent and what it never touched.
type mockChat struct {
	unreadChats    []repo.Chat
	unreadMessages map[string][]repo.ChatMessage
	recentMessages map[string][]repo.ChatMessage

	listUnreadChatsErr error
	listUnreadMsgsErr  error
	sendToSelfErr      error

	sentToSelf    []string
	markReadCalls int
}

func (m *mockChat) ListChats(ctx context.Context) ([]repo.Chat, error) {
	return m.unreadChats, nil
}

func (m *mockChat) ListUnreadChats(ctx context.Context) ([]repo.Chat, error) {
	if m.listUnreadChatsErr != nil {
		return nil, m.listUnreadChatsErr
	}
	return m.unreadChats, nil
}

func (m *mockChat) ListUnreadMessages(ctx context.Context, chatID string, limit int) ([]repo.ChatMessage, error) {
	if m.listUnreadMsgsErr != nil {
		return nil, m.listUnreadMsgsErr
	}
	msgs := m.unreadMessages[chatID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func (m *mockChat) ListRecentMessages(ctx context.Context, chatID string, limit int) ([]repo.ChatMessage, error) {
	return m.recentMessages[chatID], nil
}

func (m *mockChat) SearchMessages(ctx context.Context, query string, limit int) ([]repo.ChatMessage, error) {
	return nil, nil
}

func (m *mockChat) SendMessage(ctx context.Context, chatID, text string) error {
	return nil
}

func (m *mockChat) SendMessageToSelf(ctx context.Context, text string) error {
	if m.sendToSelfErr != nil {
		return m.sendToSelfErr
	}
	m.sentToSelf = append(m.sentToSelf, text)
	return nil
}

func (m *mockChat) MarkChatRead(ctx context.Context, chatID string) error {
	m.markReadCalls++
	return nil
}

func (m *mockChat) MarkAllRead(ctx context.Context) error {
	m.markReadCalls++
	return nil
}

// mockEngine delegates to test-provided functions
type mockEngine struct {
	classifyFn  func(msg *domain.Message, history string) (repo.Classification, error)
	summarizeFn func(msgs []*domain.Message, chatContext map[string]string) (string, error)
}

func (m *mockEngine) Classify(ctx context.Context, msg *domain.Message, history string) (repo.Classification, error) {
	return m.classifyFn(msg, history)
}

func (m *mockEngine) Summarize(ctx context.Context, msgs []*domain.Message, chatContext map[string]string) (string, error) {
	if m.summarizeFn != nil {
		return m.summarizeFn(msgs, chatContext)
	}
	return "summary", nil
}

func insertAndTriage(t *testing.T, store repo.MessageStore, chatID, body string, p domain.Priority) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := store.Insert(ctx, chatID, "Chat "+chatID, body, time.Now())
	if err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}
	if _, err := store.ClaimUntriaged(ctx); err != nil {
		t.Fatalf("Failed to claim: %v", err)
	}
	if err := store.SetPriority(ctx, id, p); err != nil {
		t.Fatalf("Failed to set priority: %v", err)
	}
	return id
}
