package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/anthropics/whatsapp-monitor/internal/biz/domain"
	"github.com/anthropics/whatsapp-monitor/internal/biz/repo"
	"github.com/anthropics/whatsapp-monitor/internal/biz/usecase"
	"github.com/anthropics/whatsapp-monitor/internal/data"
)

type fakeChat struct {
	unreadChats    []repo.Chat
	unreadMessages map[string][]repo.ChatMessage
	listErr        error
	sentToSelf     []string
}

func (f *fakeChat) ListChats(ctx context.Context) ([]repo.Chat, error) { return f.unreadChats, nil }

func (f *fakeChat) ListUnreadChats(ctx context.Context) ([]repo.Chat, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.unreadChats, nil
}

func (f *fakeChat) ListUnreadMessages(ctx context.Context, chatID string, limit int) ([]repo.ChatMessage, error) {
	return f.unreadMessages[chatID], nil
}

func (f *fakeChat) ListRecentMessages(ctx context.Context, chatID string, limit int) ([]repo.ChatMessage, error) {
	return nil, nil
}

func (f *fakeChat) SearchMessages(ctx context.Context, query string, limit int) ([]repo.ChatMessage, error) {
	return nil, nil
}

func (f *fakeChat) SendMessage(ctx context.Context, chatID, text string) error { return nil }

func (f *fakeChat) SendMessageToSelf(ctx context.Context, text string) error {
	f.sentToSelf = append(f.sentToSelf, text)
	return nil
}

func (f *fakeChat) MarkChatRead(ctx context.Context, chatID string) error { return nil }
func (f *fakeChat) MarkAllRead(ctx context.Context) error                 { return nil }

type fakeEngine struct{}

func (fakeEngine) Classify(ctx context.Context, msg *domain.Message, history string) (repo.Classification, error) {
	if strings.Contains(msg.Body, "urgent") {
		return repo.Classification{Priority: domain.PriorityHigh, Reason: "asked for a quick reply"}, nil
	}
	return repo.Classification{Priority: domain.PriorityLow, Reason: "routine"}, nil
}

func (fakeEngine) Summarize(ctx context.Context, msgs []*domain.Message, chatContext map[string]string) (string, error) {
	return "quiet day", nil
}

func newOrchestrator(t *testing.T, chat *fakeChat, claimMaxAge time.Duration) (*Orchestrator, repo.MessageStore) {
	t.Helper()
	store, err := data.NewMessageStore(filepath.Join(t.TempDir(), "messages.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	engine := fakeEngine{}
	collector := usecase.NewCollectorUsecase(store, chat, 50)
	classifier := usecase.NewClassifierUsecase(store, chat, engine, "**** Whatsapp priority alert ****", 10)
	digest := usecase.NewDigestUsecase(store, chat, engine, "**** Whatsapp daily digest ****", 10)
	return NewOrchestrator(store, collector, classifier, digest, claimMaxAge), store
}

func TestRunOnceFullPass(t *testing.T) {
	chat := &fakeChat{
		unreadChats: []repo.Chat{{ID: "chat-1", Name: "Alice", UnreadCount: 2}},
		unreadMessages: map[string][]repo.ChatMessage{
			"chat-1": {
				{ID: "m1", ChatID: "chat-1", Body: "urgent, call me", Timestamp: time.Now()},
				{ID: "m2", ChatID: "chat-1", Body: "also, lunch on friday?", Timestamp: time.Now()},
			},
		},
	}
	o, store := newOrchestrator(t, chat, 10*time.Minute)

	if err := o.RunOnce(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// One alert and one digest, in that order
	if len(chat.sentToSelf) != 2 {
		t.Fatalf("Expected 2 sends, got %d: %v", len(chat.sentToSelf), chat.sentToSelf)
	}
	if !strings.HasPrefix(chat.sentToSelf[0], "**** Whatsapp priority alert ****") {
		t.Errorf("Expected alert first, got %q", chat.sentToSelf[0])
	}
	if !strings.HasPrefix(chat.sentToSelf[1], "**** Whatsapp daily digest ****") {
		t.Errorf("Expected digest second, got %q", chat.sentToSelf[1])
	}

	counts, err := store.CountByState(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if counts[domain.StateResolved] != 2 {
		t.Errorf("Expected every message resolved, got %v", counts)
	}
}

func TestRunOnceCollectorFailureDoesNotBlockPipeline(t *testing.T) {
	chat := &fakeChat{listErr: errors.New("bridge down")}
	o, store := newOrchestrator(t, chat, 10*time.Minute)
	ctx := context.Background()

	// A message already in the store from an earlier pass
	if _, err := store.Insert(ctx, "chat-1", "Alice", "urgent, call me", time.Now()); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	err := o.RunOnce(ctx)
	if err == nil {
		t.Fatal("Expected collector failure to surface")
	}
	if !strings.Contains(err.Error(), "collector") {
		t.Errorf("Expected collector in error, got %v", err)
	}

	// The classifier still ran and alerted
	if len(chat.sentToSelf) != 1 {
		t.Fatalf("Expected alert despite collector failure, got %v", chat.sentToSelf)
	}
	counts, cerr := store.CountByState(ctx)
	if cerr != nil {
		t.Fatalf("Unexpected error: %v", cerr)
	}
	if counts[domain.StateResolved] != 1 {
		t.Errorf("Expected alerted message resolved, got %v", counts)
	}
}

func TestRunOnceReleasesStaleClaims(t *testing.T) {
	chat := &fakeChat{}
	// A negative max age makes every existing claim count as stale
	o, store := newOrchestrator(t, chat, -time.Minute)
	ctx := context.Background()

	// Simulate a crashed run: claimed but never scored
	if _, err := store.Insert(ctx, "chat-1", "Alice", "urgent, call me", time.Now()); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}
	if _, err := store.ClaimUntriaged(ctx); err != nil {
		t.Fatalf("Failed to claim: %v", err)
	}

	if err := o.RunOnce(ctx); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(chat.sentToSelf) != 1 {
		t.Fatalf("Expected recovered message alerted, got %v", chat.sentToSelf)
	}
}
