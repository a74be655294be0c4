package repo

import (
	"context"
	"time"
)

// Chat represents a conversation as reported by the chat service.
type Chat struct {
	ID          string
	Name        string
	IsGroup     bool
	UnreadCount int
	IsReadOnly  bool
}

// ChatMessage represents a message as reported by the chat service,
// before it is ingested into the store.
type ChatMessage struct {
	ID        string
	ChatID    string
	ChatName  string
	Sender    string
	Body      string
	FromMe    bool
	Timestamp time.Time // zero when the source carries no timestamp
}

// ChatService is the chat platform interface.
// The monitor is a passive observer: MarkChatRead and MarkAllRead exist in
// the platform contract but no pipeline component may invoke them.
type ChatService interface {
	// ListChats lists all chats.
	ListChats(ctx context.Context) ([]Chat, error)

	// ListUnreadChats lists chats reporting unread messages.
	ListUnreadChats(ctx context.Context) ([]Chat, error)

	// ListUnreadMessages fetches up to limit unread messages from a chat.
	ListUnreadMessages(ctx context.Context, chatID string, limit int) ([]ChatMessage, error)

	// ListRecentMessages fetches the latest messages from a chat,
	// read or not, for context lookups.
	ListRecentMessages(ctx context.Context, chatID string, limit int) ([]ChatMessage, error)

	// SearchMessages searches messages containing the query.
	SearchMessages(ctx context.Context, query string, limit int) ([]ChatMessage, error)

	// SendMessage sends a message to a chat.
	SendMessage(ctx context.Context, chatID, text string) error

	// SendMessageToSelf sends a message to the user's own chat.
	SendMessageToSelf(ctx context.Context, text string) error

	// MarkChatRead marks a chat as read. Never invoked by the pipeline.
	MarkChatRead(ctx context.Context, chatID string) error

	// MarkAllRead marks all chats as read. Never invoked by the pipeline.
	MarkAllRead(ctx context.Context) error
}
