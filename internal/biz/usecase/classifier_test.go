package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/anthropics/whatsapp-monitor/internal/biz/domain"
	"github.com/anthropics/whatsapp-monitor/internal/biz/repo"
)

const testAlertMarker = "**** Whatsapp priority alert ****"

func highLowEngine(highBodies ...string) *mockEngine {
	high := make(map[string]bool)
	for _, b := range highBodies {
		high[b] = true
	}
	return &mockEngine{
		classifyFn: func(msg *domain.Message, history string) (repo.Classification, error) {
			if high[msg.Body] {
				return repo.Classification{Priority: domain.PriorityHigh, Reason: "needs a reply soon"}, nil
			}
			return repo.Classification{Priority: domain.PriorityLow, Reason: "routine"}, nil
		},
	}
}

func TestClassifierAlertsHighPriority(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	urgentID, err := store.Insert(ctx, "chat-1", "Alice", "call me back asap", time.Now())
	if err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}
	routineID, err := store.Insert(ctx, "chat-2", "Newsletter", "weekly update", time.Now())
	if err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	chat := &mockChat{}
	uc := NewClassifierUsecase(store, chat, highLowEngine("call me back asap"), testAlertMarker, 10)
	if err := uc.Run(ctx); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(chat.sentToSelf) != 1 {
		t.Fatalf("Expected exactly one alert, got %d sends", len(chat.sentToSelf))
	}
	alert := chat.sentToSelf[0]
	if !strings.HasPrefix(alert, testAlertMarker) {
		t.Errorf("Alert missing marker: %q", alert)
	}
	if !strings.Contains(alert, "Alice") {
		t.Errorf("Alert should name the chat: %q", alert)
	}
	if strings.Contains(alert, "call me back asap") {
		t.Errorf("Alert must not include message content: %q", alert)
	}
	if strings.Contains(alert, "Newsletter") {
		t.Errorf("Alert must not mention low priority chats: %q", alert)
	}

	// High message resolved by the alert, low message waiting for the digest
	high, err := store.ListUnresolvedHigh(ctx)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(high) != 0 {
		t.Errorf("Expected no unresolved high messages, got %d", len(high))
	}
	low, err := store.ClaimUndigestedLowPriority(ctx)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(low) != 1 || low[0].ID != routineID {
		t.Errorf("Expected low message %d waiting for digest, got %v", routineID, low)
	}
	_ = urgentID
}

func TestClassifierNoHighNoAlert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Insert(ctx, "chat-1", "Alice", "nothing urgent", time.Now()); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	chat := &mockChat{}
	uc := NewClassifierUsecase(store, chat, highLowEngine(), testAlertMarker, 10)
	if err := uc.Run(ctx); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(chat.sentToSelf) != 0 {
		t.Errorf("Expected no sends, got %v", chat.sentToSelf)
	}
}

func TestClassifierEngineFailureLeavesMessageClaimed(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	okID, err := store.Insert(ctx, "chat-1", "Alice", "fine", time.Now())
	if err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}
	if _, err := store.Insert(ctx, "chat-2", "Bob", "broken", time.Now()); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	engine := &mockEngine{
		classifyFn: func(msg *domain.Message, history string) (repo.Classification, error) {
			if msg.Body == "broken" {
				return repo.Classification{}, errors.New("engine timeout")
			}
			return repo.Classification{Priority: domain.PriorityLow, Reason: "routine"}, nil
		},
	}

	chat := &mockChat{}
	uc := NewClassifierUsecase(store, chat, engine, testAlertMarker, 10)
	if err := uc.Run(ctx); err == nil {
		t.Fatal("Expected the engine failure to surface")
	}

	// The failed message stays claimed and unscored, the other proceeds
	counts, err := store.CountByState(ctx)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if counts[domain.StateTriageClaimed] != 1 {
		t.Errorf("Expected 1 message still claimed, got %d", counts[domain.StateTriageClaimed])
	}
	if counts[domain.StateTriaged] != 1 {
		t.Errorf("Expected 1 message triaged, got %d", counts[domain.StateTriaged])
	}
	_ = okID
}

func TestClassifierAlertSendFailure(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Insert(ctx, "chat-1", "Alice", "urgent", time.Now()); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	chat := &mockChat{sendToSelfErr: errors.New("send failed")}
	uc := NewClassifierUsecase(store, chat, highLowEngine("urgent"), testAlertMarker, 10)
	if err := uc.Run(ctx); err == nil {
		t.Fatal("Expected the send failure to surface")
	}

	// The high message must stay unresolved so the next run re-alerts it
	high, err := store.ListUnresolvedHigh(ctx)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(high) != 1 {
		t.Fatalf("Expected 1 unresolved high message, got %d", len(high))
	}

	// The next run, with a working send, covers the leftover in its alert
	chat.sendToSelfErr = nil
	if err := uc.Run(ctx); err != nil {
		t.Fatalf("Unexpected error on retry run: %v", err)
	}
	if len(chat.sentToSelf) != 1 {
		t.Fatalf("Expected one alert on retry, got %d", len(chat.sentToSelf))
	}
	if !strings.Contains(chat.sentToSelf[0], "flagged high priority in an earlier run") {
		t.Errorf("Expected leftover reason in alert: %q", chat.sentToSelf[0])
	}
	high, err = store.ListUnresolvedHigh(ctx)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(high) != 0 {
		t.Errorf("Expected leftover resolved after retry, got %d unresolved", len(high))
	}
}

func TestFormatHistory(t *testing.T) {
	msgs := []repo.ChatMessage{
		{Sender: "Alice", Body: "are you coming?"},
		{FromMe: true, Body: "five minutes"},
		{Body: "ok"},
	}
	got := FormatHistory(msgs)
	want := "[Alice]: are you coming?\n[me]: five minutes\n[unknown]: ok\n"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}
