package data

import (
	"github.com/anthropics/whatsapp-monitor/chatapi"
	"github.com/anthropics/whatsapp-monitor/internal/biz/repo"
	"github.com/anthropics/whatsapp-monitor/internal/conf"
	"github.com/anthropics/whatsapp-monitor/llm"
)

// Repositories contains all repositories
type Repositories struct {
	Store  repo.MessageStore
	Chat   repo.ChatService
	Engine repo.DecisionEngine
}

// NewRepositories creates all repositories
func NewRepositories(
	chatClient *chatapi.Client,
	llmClient *llm.Client,
	dbPath string,
	prompts *conf.PromptsConfig,
) (*Repositories, error) {
	store, err := NewMessageStore(dbPath)
	if err != nil {
		return nil, err
	}

	return &Repositories{
		Store:  store,
		Chat:   NewChatRepo(chatClient),
		Engine: NewEngineRepo(llmClient, prompts),
	}, nil
}
