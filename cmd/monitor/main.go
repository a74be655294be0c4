package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/anthropics/whatsapp-monitor/chatapi"
	"github.com/anthropics/whatsapp-monitor/internal/biz/usecase"
	"github.com/anthropics/whatsapp-monitor/internal/conf"
	"github.com/anthropics/whatsapp-monitor/internal/data"
	"github.com/anthropics/whatsapp-monitor/internal/service"
	"github.com/anthropics/whatsapp-monitor/llm"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Initialize clients
	chatClient := chatapi.NewClient(cfg.Chat.BaseURL)
	llmClient := llm.NewClient(cfg.Engine.APIKey, cfg.Engine.BaseURL, cfg.Engine.Model)
	llmClient.SetRetries(cfg.Pipeline.EngineRetries)

	// Initialize repository layer
	repos, err := data.NewRepositories(chatClient, llmClient, cfg.Store.DBPath, cfg.Prompts)
	if err != nil {
		log.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Store.Close()

	fmt.Printf("[Monitor] Store DB: %s\n", cfg.Store.DBPath)
	fmt.Printf("[Monitor] Chat API: %s\n", cfg.Chat.BaseURL)

	// Initialize usecase layer
	collector := usecase.NewCollectorUsecase(repos.Store, repos.Chat, cfg.Pipeline.PageSize)
	classifier := usecase.NewClassifierUsecase(
		repos.Store, repos.Chat, repos.Engine,
		cfg.Prompts.Alert.Marker, cfg.Pipeline.HistoryLimit,
	)
	digest := usecase.NewDigestUsecase(
		repos.Store, repos.Chat, repos.Engine,
		cfg.Prompts.Digest.Marker, cfg.Pipeline.HistoryLimit,
	)

	orchestrator := service.NewOrchestrator(
		repos.Store, collector, classifier, digest, cfg.Pipeline.ClaimMaxAge,
	)

	ctx := context.Background()

	// Single shot unless an interval is configured
	if cfg.Pipeline.RunInterval <= 0 {
		if err := orchestrator.RunOnce(ctx); err != nil {
			log.Fatalf("Pipeline run failed: %v", err)
		}
		return
	}

	scheduler := service.NewScheduler(orchestrator, cfg.Pipeline.RunInterval)
	scheduler.Start(ctx)

	// Run one pass immediately rather than waiting a full interval
	if err := orchestrator.RunOnce(ctx); err != nil {
		fmt.Printf("[Monitor] Initial pass failed: %v\n", err)
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("[Monitor] Shutting down...")
	scheduler.Stop()
}
