package data

import (
	"context"

	"github.com/anthropics/whatsapp-monitor/chatapi"
	"github.com/anthropics/whatsapp-monitor/internal/biz/repo"
)

// chatRepo implements the chat service repository over the bridge API
type chatRepo struct {
	client *chatapi.Client
}

// NewChatRepo creates a new chat service repository
func NewChatRepo(client *chatapi.Client) repo.ChatService {
	return &chatRepo{client: client}
}

func (r *chatRepo) ListChats(ctx context.Context) ([]repo.Chat, error) {
	chats, err := r.client.ListChats(ctx)
	if err != nil {
		return nil, err
	}
	return toRepoChats(chats), nil
}

func (r *chatRepo) ListUnreadChats(ctx context.Context) ([]repo.Chat, error) {
	chats, err := r.client.ListUnreadChats(ctx)
	if err != nil {
		return nil, err
	}
	return toRepoChats(chats), nil
}

func (r *chatRepo) ListUnreadMessages(ctx context.Context, chatID string, limit int) ([]repo.ChatMessage, error) {
	msgs, err := r.client.ListUnreadMessages(ctx, chatID, limit)
	if err != nil {
		return nil, err
	}
	return toRepoMessages(msgs), nil
}

func (r *chatRepo) ListRecentMessages(ctx context.Context, chatID string, limit int) ([]repo.ChatMessage, error) {
	msgs, err := r.client.ListRecentMessages(ctx, chatID, limit)
	if err != nil {
		return nil, err
	}
	return toRepoMessages(msgs), nil
}

func (r *chatRepo) SearchMessages(ctx context.Context, query string, limit int) ([]repo.ChatMessage, error) {
	msgs, err := r.client.SearchMessages(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return toRepoMessages(msgs), nil
}

func (r *chatRepo) SendMessage(ctx context.Context, chatID, text string) error {
	return r.client.SendMessage(ctx, chatID, text)
}

func (r *chatRepo) SendMessageToSelf(ctx context.Context, text string) error {
	return r.client.SendMessageToSelf(ctx, text)
}

func (r *chatRepo) MarkChatRead(ctx context.Context, chatID string) error {
	return r.client.MarkChatRead(ctx, chatID)
}

func (r *chatRepo) MarkAllRead(ctx context.Context) error {
	return r.client.MarkAllRead(ctx)
}

func toRepoChats(chats []chatapi.Chat) []repo.Chat {
	result := make([]repo.Chat, 0, len(chats))
	for _, c := range chats {
		result = append(result, repo.Chat{
			ID:          c.ID,
			Name:        c.Name,
			IsGroup:     c.IsGroup,
			UnreadCount: c.UnreadCount,
			IsReadOnly:  c.IsReadOnly,
		})
	}
	return result
}

func toRepoMessages(msgs []chatapi.Message) []repo.ChatMessage {
	result := make([]repo.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		result = append(result, repo.ChatMessage{
			ID:        m.ID,
			ChatID:    m.ChatID,
			ChatName:  m.ChatName,
			Sender:    m.Sender,
			Body:      m.Body,
			FromMe:    m.FromMe,
			Timestamp: m.ParsedTimestamp(),
		})
	}
	return result
}
