package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/whatsapp-monitor/internal/biz/repo"
)

// CollectorUsecase ingests unread messages from the chat service into the
// store. It is a passive observer: it never marks anything read on the
// platform, and it only ever creates records.
type CollectorUsecase struct {
	store    repo.MessageStore
	chat     repo.ChatService
	pageSize int
	now      func() time.Time
}

// NewCollectorUsecase creates a new collector usecase
func NewCollectorUsecase(store repo.MessageStore, chat repo.ChatService, pageSize int) *CollectorUsecase {
	return &CollectorUsecase{
		store:    store,
		chat:     chat,
		pageSize: pageSize,
		now:      time.Now,
	}
}

// Run ingests one batch of unread messages and returns how many were stored.
// A chat service failure aborts the stage; rows already inserted stay.
func (uc *CollectorUsecase) Run(ctx context.Context) (int, error) {
	chats, err := uc.chat.ListUnreadChats(ctx)
	if err != nil {
		return 0, fmt.Errorf("list unread chats: %w", err)
	}

	inserted := 0
	for _, chat := range chats {
		if chat.UnreadCount == 0 {
			continue
		}

		msgs, err := uc.chat.ListUnreadMessages(ctx, chat.ID, uc.pageSize)
		if err != nil {
			return inserted, fmt.Errorf("list unread messages for %s: %w", chat.ID, err)
		}

		for _, msg := range msgs {
			chatName := chat.Name
			if chatName == "" {
				chatName = msg.ChatName
			}
			observedAt := msg.Timestamp
			if observedAt.IsZero() {
				observedAt = uc.now()
			}

			if _, err := uc.store.Insert(ctx, chat.ID, chatName, msg.Body, observedAt); err != nil {
				return inserted, fmt.Errorf("store message from %s: %w", chat.ID, err)
			}
			inserted++
		}
	}

	fmt.Printf("[Collector] Ingested %d messages from %d unread chats\n", inserted, len(chats))
	return inserted, nil
}
