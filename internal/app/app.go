package app

import (
	"github.com/Dhoini/Chat-microservice/internal/api/rest/handlers"
	"github.com/Dhoini/Chat-microservice/internal/config"
	"github.com/Dhoini/Chat-microservice/internal/domain"
	"github.com/Dhoini/Chat-microservice/internal/integration/mistral"
	"github.com/Dhoini/Chat-microservice/internal/integration/ollama"
	"github.com/Dhoini/Chat-microservice/internal/kafka"
	"github.com/Dhoini/Chat-microservice/internal/metrics"
	"github.com/Dhoini/Chat-microservice/internal/middleware"
	"github.com/Dhoini/Chat-microservice/internal/repository"
	"github.com/Dhoini/Chat-microservice/internal/service"
	"github.com/Dhoini/Chat-microservice/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
)

// App представляет собой контейнер для всех компонентов приложения
type App struct {
	Config         *config.Config
	Registry       *prometheus.Registry
	SystemMetrics  metrics.SystemMetrics
	AuthMiddleware *middleware.JWTMiddleware
	Handlers       Handlers
	Logger         *logger.Logger
}

// Handlers обработчики HTTP API
type Handlers struct {
	Chat         *handlers.ChatHandler
	Conversation *handlers.ConversationHandler
	Usage        *handlers.UsageHandler
}

// NewApp собирает приложение из готовых репозиториев и продюсера событий
func NewApp(
	cfg *config.Config,
	userRepo repository.UserRepository,
	convRepo repository.ConversationRepository,
	producer kafka.Producer,
	log *logger.Logger,
) *App {
	registry := prometheus.NewRegistry()
	chatMetrics := metrics.NewChatMetrics(registry, log)
	systemMetrics := metrics.NewSystemMetrics(registry, log)

	// Бэкенды генерации
	mistralClient := mistral.NewClient(mistral.Config{
		APIKey:  cfg.LLM.Mistral.APIKey,
		BaseURL: cfg.LLM.Mistral.BaseURL,
		Model:   cfg.LLM.Mistral.Model,
	}, log)
	ollamaClient := ollama.NewClient(ollama.Config{
		BaseURL: cfg.LLM.Ollama.BaseURL,
		Model:   cfg.LLM.Ollama.Model,
	}, log)

	dispatcher := service.NewDispatcher(
		domain.ModelProvider(cfg.LLM.DefaultProvider),
		log,
		mistralClient,
		ollamaClient,
	)

	// Сервисный слой
	quota := service.NewQuotaService(domain.DefaultPlanTable(), log)
	prompts := service.NewPromptBuilder(cfg.LLM.SystemPrompt, cfg.LLM.ResponseLanguage)
	chatService := service.NewChatService(
		userRepo,
		convRepo,
		quota,
		dispatcher,
		prompts,
		producer,
		chatMetrics,
		service.ChatConfig{
			MaxLengthRetries: cfg.LLM.MaxLengthRetries,
			FallbackMessage:  cfg.LLM.FallbackMessage,
		},
		log,
	)
	conversationService := service.NewConversationService(convRepo, userRepo, producer, log)
	usageService := service.NewUsageService(userRepo, quota, log)

	// Middleware аутентификации
	validator := &middleware.DefaultTokenValidator{Secret: []byte(cfg.Auth.JWTSecret)}
	authMiddleware := middleware.NewJWTMiddleware(log, validator)

	return &App{
		Config:         cfg,
		Registry:       registry,
		SystemMetrics:  systemMetrics,
		AuthMiddleware: authMiddleware,
		Handlers: Handlers{
			Chat:         handlers.NewChatHandler(chatService, log),
			Conversation: handlers.NewConversationHandler(conversationService, log),
			Usage:        handlers.NewUsageHandler(usageService, log),
		},
		Logger: log,
	}
}
