package main

import (
	"context"
	"time"

	"github.com/quillchat/quill/internal/chat"
	"github.com/quillchat/quill/internal/eventbus"
	"github.com/quillchat/quill/internal/export"
	"github.com/quillchat/quill/internal/models"
	"github.com/quillchat/quill/internal/provider"
	"github.com/quillchat/quill/internal/storage"
	"github.com/quillchat/quill/internal/summarizer"
	"github.com/quillchat/quill/internal/tui"
	"github.com/quillchat/quill/pkg/config"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize storage
	var store storage.Store
	switch cfg.Database.Driver {
	case "memory":
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStore()
	case "postgres":
		logger.Info("Using PostgreSQL storage")
		store, err = storage.NewPostgresStore(storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
	default:
		logger.Info("Using SQLite storage", zap.String("path", cfg.Database.Path))
		store, err = storage.NewSQLiteStore(cfg.Database.Path)
	}
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer store.Close()

	// Resolve the provider adapter
	providerCfg := provider.Config{
		OpenAIKey:     cfg.Providers.OpenAI.APIKey,
		OpenAIBaseURL: cfg.Providers.OpenAI.BaseURL,
		AnthropicKey:  cfg.Providers.Anthropic.APIKey,
		GeminiKey:     cfg.Providers.Gemini.APIKey,
	}
	adapter := provider.Resolve(cfg.Providers.Default, providerCfg)

	assistant := &models.Assistant{
		ID:       "default",
		Name:     cfg.Assistant.Name,
		Prompt:   cfg.Assistant.Prompt,
		Model:    modelFor(cfg),
		Provider: cfg.Providers.Default,
		Settings: models.AssistantSettings{
			ContextCount: cfg.Assistant.ContextCount,
			Temperature:  cfg.Assistant.Temperature,
			MaxTokens:    cfg.Assistant.MaxTokens,
			Stream:       cfg.Assistant.Stream,
		},
	}

	// Topic titles come from the model when credentials exist, otherwise
	// from the local heuristic
	var summ summarizer.Summarizer
	if hasCredentials(cfg) {
		summaryModel := cfg.Chat.SummaryModel
		if summaryModel == "" {
			summaryModel = assistant.Model
		}
		summ = summarizer.NewProviderSummarizer(adapter, summaryModel, logger)
	} else {
		logger.Info("No provider credentials, using heuristic topic titles")
		summ = summarizer.HeuristicSummarizer{}
	}

	sink, err := export.NewSink(cfg.Chat.ExportDir)
	if err != nil {
		logger.Fatal("Failed to initialize export sink", zap.Error(err))
	}

	bus := eventbus.New()
	orch := chat.New(bus, store, summ, assistant, logger, chat.Options{
		RenameDelay: time.Duration(cfg.Chat.RenameDelayMS) * time.Millisecond,
		Completer:   chat.NewResponder(adapter, logger),
		Exporter:    sink,
	})
	defer orch.Close()

	// Open a fresh topic
	topic := models.NewTopic(assistant)
	if err := store.CreateTopic(context.Background(), topic, nil); err != nil {
		logger.Fatal("Failed to create topic", zap.Error(err))
	}
	if err := orch.LoadTopic(context.Background(), topic); err != nil {
		logger.Fatal("Failed to load topic", zap.Error(err))
	}

	if err := tui.Run(bus, orch, assistant, logger); err != nil {
		logger.Fatal("UI error", zap.Error(err))
	}
}

func modelFor(cfg *config.Config) string {
	switch cfg.Providers.Default {
	case provider.ProviderAnthropic:
		return cfg.Providers.Anthropic.Model
	case provider.ProviderGemini:
		return cfg.Providers.Gemini.Model
	default:
		return cfg.Providers.OpenAI.Model
	}
}

func hasCredentials(cfg *config.Config) bool {
	switch cfg.Providers.Default {
	case provider.ProviderAnthropic:
		return cfg.Providers.Anthropic.APIKey != ""
	case provider.ProviderGemini:
		return cfg.Providers.Gemini.APIKey != ""
	default:
		return cfg.Providers.OpenAI.APIKey != ""
	}
}
