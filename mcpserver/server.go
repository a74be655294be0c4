// Package mcpserver exposes read-only monitor tools over MCP so an
// external agent can inspect chats and triage progress. None of the tools
// mutate triage state or send messages.
package mcpserver

import (
	"context"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anthropics/whatsapp-monitor/internal/biz/repo"
)

// MonitorMCPServer provides MCP tools over the chat service and store
type MonitorMCPServer struct {
	server *mcp.Server
	chat   repo.ChatService
	store  repo.MessageStore
}

// NewServer creates a new monitor MCP server
func NewServer(chat repo.ChatService, store repo.MessageStore) *MonitorMCPServer {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "whatsapp-monitor-tools",
		Version: "v1.0.0",
	}, nil)

	s := &MonitorMCPServer{
		server: server,
		chat:   chat,
		store:  store,
	}
	s.registerTools()
	return s
}

func (s *MonitorMCPServer) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "whatsapp_list_chats",
		Description: "List all chats with their unread counts.",
	}, s.handleListChats)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "whatsapp_get_chat_history",
		Description: "Get recent messages from a chat for context.",
	}, s.handleGetChatHistory)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "whatsapp_search_messages",
		Description: "Search messages containing a query string.",
	}, s.handleSearchMessages)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "whatsapp_triage_stats",
		Description: "Get counts of triaged messages per lifecycle state (ingested, claimed, triaged, resolved).",
	}, s.handleTriageStats)
}

// ChatInfo describes a chat in tool output
type ChatInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	IsGroup     bool   `json:"is_group"`
	UnreadCount int    `json:"unread_count"`
}

// HistoryMessage describes a chat message in tool output
type HistoryMessage struct {
	Sender    string `json:"sender"`
	Body      string `json:"body"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ListChatsInput is empty - no input needed
type ListChatsInput struct{}

// ListChatsOutput contains the chat listing
type ListChatsOutput struct {
	Chats []ChatInfo `json:"chats"`
	Error string     `json:"error,omitempty"`
}

func (s *MonitorMCPServer) handleListChats(ctx context.Context, req *mcp.CallToolRequest, input ListChatsInput) (*mcp.CallToolResult, ListChatsOutput, error) {
	chats, err := s.chat.ListChats(ctx)
	if err != nil {
		return nil, ListChatsOutput{Error: err.Error()}, nil
	}

	out := ListChatsOutput{Chats: make([]ChatInfo, 0, len(chats))}
	for _, c := range chats {
		out.Chats = append(out.Chats, ChatInfo{
			ID:          c.ID,
			Name:        c.Name,
			IsGroup:     c.IsGroup,
			UnreadCount: c.UnreadCount,
		})
	}
	return nil, out, nil
}

// GetChatHistoryInput specifies the chat and how many messages to retrieve
type GetChatHistoryInput struct {
	ChatID string `json:"chat_id" jsonschema:"description=The chat to read history from"`
	Limit  int    `json:"limit,omitempty" jsonschema:"description=Maximum number of messages to retrieve (default 20)"`
}

// GetChatHistoryOutput contains recent messages
type GetChatHistoryOutput struct {
	Messages []HistoryMessage `json:"messages"`
	Error    string           `json:"error,omitempty"`
}

func (s *MonitorMCPServer) handleGetChatHistory(ctx context.Context, req *mcp.CallToolRequest, input GetChatHistoryInput) (*mcp.CallToolResult, GetChatHistoryOutput, error) {
	if input.ChatID == "" {
		return nil, GetChatHistoryOutput{Error: "chat_id is required"}, nil
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	msgs, err := s.chat.ListRecentMessages(ctx, input.ChatID, limit)
	if err != nil {
		return nil, GetChatHistoryOutput{Error: err.Error()}, nil
	}
	return nil, GetChatHistoryOutput{Messages: toHistoryMessages(msgs)}, nil
}

// SearchMessagesInput specifies the search query
type SearchMessagesInput struct {
	Query string `json:"query" jsonschema:"description=Text to search for"`
	Limit int    `json:"limit,omitempty" jsonschema:"description=Maximum number of results (default 10)"`
}

// SearchMessagesOutput contains matching messages
type SearchMessagesOutput struct {
	Messages []HistoryMessage `json:"messages"`
	Error    string           `json:"error,omitempty"`
}

func (s *MonitorMCPServer) handleSearchMessages(ctx context.Context, req *mcp.CallToolRequest, input SearchMessagesInput) (*mcp.CallToolResult, SearchMessagesOutput, error) {
	if input.Query == "" {
		return nil, SearchMessagesOutput{Error: "query is required"}, nil
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	msgs, err := s.chat.SearchMessages(ctx, input.Query, limit)
	if err != nil {
		return nil, SearchMessagesOutput{Error: err.Error()}, nil
	}
	return nil, SearchMessagesOutput{Messages: toHistoryMessages(msgs)}, nil
}

// TriageStatsInput is empty - no input needed
type TriageStatsInput struct{}

// TriageStatsOutput contains per-state record counts
type TriageStatsOutput struct {
	Counts map[string]int `json:"counts"`
	Error  string         `json:"error,omitempty"`
}

func (s *MonitorMCPServer) handleTriageStats(ctx context.Context, req *mcp.CallToolRequest, input TriageStatsInput) (*mcp.CallToolResult, TriageStatsOutput, error) {
	counts, err := s.store.CountByState(ctx)
	if err != nil {
		return nil, TriageStatsOutput{Error: err.Error()}, nil
	}

	out := TriageStatsOutput{Counts: make(map[string]int, len(counts))}
	for state, n := range counts {
		out.Counts[state.String()] = n
	}
	return nil, out, nil
}

func toHistoryMessages(msgs []repo.ChatMessage) []HistoryMessage {
	result := make([]HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		sender := m.Sender
		if m.FromMe {
			sender = "me"
		}
		hm := HistoryMessage{Sender: sender, Body: m.Body}
		if !m.Timestamp.IsZero() {
			hm.Timestamp = m.Timestamp.Format("2006-01-02 15:04")
		}
		result = append(result, hm)
	}
	return result
}

// Run starts the MCP server with stdio transport.
// Stdout carries the protocol, so the startup note goes to stderr.
func (s *MonitorMCPServer) Run(ctx context.Context) error {
	fmt.Fprintln(os.Stderr, "[MCP] Server starting on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
