package main

import (
	"context"
	"log"

	"github.com/anthropics/whatsapp-monitor/chatapi"
	"github.com/anthropics/whatsapp-monitor/internal/conf"
	"github.com/anthropics/whatsapp-monitor/internal/data"
	"github.com/anthropics/whatsapp-monitor/mcpserver"
	"github.com/joho/godotenv"
)

// monitor-mcp serves read-only monitor tools over MCP stdio so an external
// agent can inspect chats and triage progress.
func main() {
	_ = godotenv.Load()

	cfg := conf.LoadFromEnv()

	chatClient := chatapi.NewClient(cfg.Chat.BaseURL)

	store, err := data.NewMessageStore(cfg.Store.DBPath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	server := mcpserver.NewServer(data.NewChatRepo(chatClient), store)
	if err := server.Run(context.Background()); err != nil {
		log.Fatalf("MCP server stopped: %v", err)
	}
}
