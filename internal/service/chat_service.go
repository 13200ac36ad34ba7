package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Dhoini/Chat-microservice/internal/domain"
	"github.com/Dhoini/Chat-microservice/internal/kafka"
	"github.com/Dhoini/Chat-microservice/internal/metrics"
	"github.com/Dhoini/Chat-microservice/internal/repository"
	"github.com/Dhoini/Chat-microservice/pkg/logger"
	"github.com/google/uuid"
)

const (
	// defaultMaxLengthRetries попыток генерации до ответа-заглушки
	defaultMaxLengthRetries = 3

	// defaultFallbackMessage отдается, когда лимит длины так и не был соблюден
	defaultFallbackMessage = "I could not produce a short enough answer. Please try rephrasing your question."

	// titleMaxRunes длина заголовка нового диалога
	titleMaxRunes = 50
)

// ChatService интерфейс обработки входящего сообщения: проверки тарифа и квот,
// сборка промпта, генерация с контролем длины, атомарная запись хода
type ChatService interface {
	// ProcessMessage проводит сообщение через весь конвейер и возвращает ответ
	// вместе со снимком лимитов после учета использования
	ProcessMessage(ctx context.Context, userID string, req domain.ChatRequest) (*domain.ChatResponse, *domain.PlanLimits, error)
}

// ChatConfig параметры конвейера обработки сообщений
type ChatConfig struct {
	MaxLengthRetries int
	FallbackMessage  string
}

type chatService struct {
	userRepo   repository.UserRepository
	convRepo   repository.ConversationRepository
	quota      QuotaService
	dispatcher Dispatcher
	prompts    *PromptBuilder
	producer   kafka.Producer
	metrics    metrics.ChatMetrics
	cfg        ChatConfig
	log        *logger.Logger
}

// NewChatService создает новый сервис обработки сообщений
func NewChatService(
	userRepo repository.UserRepository,
	convRepo repository.ConversationRepository,
	quota QuotaService,
	dispatcher Dispatcher,
	prompts *PromptBuilder,
	producer kafka.Producer,
	chatMetrics metrics.ChatMetrics,
	cfg ChatConfig,
	log *logger.Logger,
) ChatService {
	if cfg.MaxLengthRetries <= 0 {
		cfg.MaxLengthRetries = defaultMaxLengthRetries
	}
	if cfg.FallbackMessage == "" {
		cfg.FallbackMessage = defaultFallbackMessage
	}
	return &chatService{
		userRepo:   userRepo,
		convRepo:   convRepo,
		quota:      quota,
		dispatcher: dispatcher,
		prompts:    prompts,
		producer:   producer,
		metrics:    chatMetrics,
		cfg:        cfg,
		log:        log,
	}
}

// ProcessMessage проводит сообщение через конвейер: валидация, тариф, квоты,
// выбор бэкенда, сборка промпта, генерация с контролем длины, запись хода и
// учет использования. До успешной генерации ничего не пишется.
func (s *chatService) ProcessMessage(ctx context.Context, userID string, req domain.ChatRequest) (*domain.ChatResponse, *domain.PlanLimits, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, nil, domain.ErrInvalidInput
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Warnw("Unknown user in chat request", "userID", userID)
			return nil, nil, domain.ErrUnauthenticated
		}
		return nil, nil, err
	}

	now := time.Now()

	// Платный тариф требует активной подписки
	if user.SubscriptionTier != domain.TierFree && !user.HasActiveSubscription() {
		s.log.Infow("Subscription inactive", "userID", userID, "tier", user.SubscriptionTier)
		return nil, nil, domain.ErrSubscriptionInactive
	}

	if err := s.quota.CheckMessageQuota(user, now); err != nil {
		s.metrics.IncQuotaDenied(string(domain.QuotaDailyMessageLimit))
		return nil, nil, err
	}

	newConversation := req.ConversationID == ""

	var conv *domain.Conversation
	if newConversation {
		if err := s.quota.CheckConversationQuota(user, now); err != nil {
			s.metrics.IncQuotaDenied(string(domain.QuotaActiveConversationLimit))
			return nil, nil, err
		}
	} else {
		conv, err = s.convRepo.GetByIDAndOwner(ctx, req.ConversationID, userID)
		if err != nil {
			return nil, nil, err
		}
	}

	provider, err := s.dispatcher.Resolve(req.ModelProvider)
	if err != nil {
		return nil, nil, err
	}
	if err := s.quota.CheckProviderAccess(user, provider.Name()); err != nil {
		return nil, nil, err
	}

	plan := s.quota.PlanLimitsFor(user, now)

	var history []domain.Message
	if conv != nil {
		history = conv.Messages
	}
	prompt := s.prompts.Build(history, message, plan.MaxResponseLength)

	response, fallback, err := s.generate(ctx, provider, prompt, plan.MaxResponseLength)
	if err != nil {
		return nil, nil, err
	}

	// Отмененный запрос не оставляет следов: ни хода, ни учета использования
	if ctxErr := ctx.Err(); ctxErr != nil {
		s.log.Warnw("Request cancelled before persistence", "userID", userID)
		return nil, nil, ctxErr
	}

	if newConversation {
		conv = &domain.Conversation{
			ID:        uuid.New().String(),
			UserID:    userID,
			Title:     conversationTitle(message),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.convRepo.Create(ctx, conv); err != nil {
			return nil, nil, err
		}
	}

	turns := []domain.Message{
		{Role: domain.RoleUser, Content: message, CreatedAt: now},
		{Role: domain.RoleAssistant, Content: response, CreatedAt: time.Now()},
	}
	if err := s.convRepo.AppendTurns(ctx, conv.ID, turns); err != nil {
		return nil, nil, err
	}

	if err := s.userRepo.RecordUsage(ctx, userID, now, newConversation); err != nil {
		return nil, nil, err
	}

	s.publishEvents(ctx, user, conv.ID, provider.Name(), fallback, newConversation, now)
	s.metrics.IncMessageProcessed(string(plan.Tier), string(provider.Name()))
	if fallback {
		s.metrics.IncFallbackServed(string(plan.Tier))
	}

	limits := s.limitsAfterUsage(user, now, newConversation)

	return &domain.ChatResponse{
		Response:       response,
		ConversationID: conv.ID,
		ModelProvider:  string(provider.Name()),
	}, &limits, nil
}

// generate выполняет ограниченный цикл генерации: каждый слишком длинный ответ
// возвращается модели с директивой, называющей замеренную длину; после
// исчерпания попыток отдается ответ-заглушка. Ошибка бэкенда прерывает цикл
// сразу, без повторов.
func (s *chatService) generate(ctx context.Context, provider ModelProvider, prompt []domain.PromptMessage, maxLength int) (string, bool, error) {
	providerName := string(provider.Name())

	for attempt := 1; attempt <= s.cfg.MaxLengthRetries; attempt++ {
		start := time.Now()
		response, err := provider.Complete(ctx, prompt)
		s.metrics.ObserveGenerationDuration(providerName, time.Since(start))
		if err != nil {
			s.metrics.IncGenerationFailed(providerName)
			s.log.Errorw("Generation failed", "provider", providerName, "attempt", attempt, "error", err)
			return "", false, err
		}

		measured := utf8.RuneCountInString(response)
		if maxLength <= 0 || measured <= maxLength {
			return response, false, nil
		}

		s.metrics.IncLengthRetry(providerName)
		s.log.Infow("Response exceeds length budget, retrying",
			"provider", providerName, "attempt", attempt, "measured", measured, "maxLength", maxLength)
		if attempt < s.cfg.MaxLengthRetries {
			prompt = s.prompts.WithLengthCorrection(prompt, response, measured, maxLength)
		}
	}

	s.log.Warnw("Length budget not met after all attempts, serving fallback", "provider", providerName, "maxLength", maxLength)
	return s.cfg.FallbackMessage, true, nil
}

// publishEvents публикует события использования; ошибки Kafka не влияют на ответ
func (s *chatService) publishEvents(ctx context.Context, user *domain.User, conversationID string, provider domain.ModelProvider, fallback, newConversation bool, now time.Time) {
	event := &domain.UsageEvent{
		UserID:         user.ID,
		ConversationID: conversationID,
		Tier:           user.SubscriptionTier,
		Provider:       provider,
		Fallback:       fallback,
		CreatedAt:      now,
	}

	if newConversation {
		if err := s.producer.PublishUsageEvent(ctx, kafka.TopicConversationCreated, event); err != nil {
			s.log.Warnw("Failed to publish conversation created event", "error", err, "userID", user.ID)
		}
	}
	if err := s.producer.PublishUsageEvent(ctx, kafka.TopicChatMessageSent, event); err != nil {
		s.log.Warnw("Failed to publish chat message event", "error", err, "userID", user.ID)
	}
}

// limitsAfterUsage возвращает снимок лимитов с учетом только что записанного
// использования, не обращаясь в хранилище повторно
func (s *chatService) limitsAfterUsage(user *domain.User, now time.Time, newConversation bool) domain.PlanLimits {
	updated := *user
	if updated.LastMessageDate != nil && domain.SameUTCDay(*updated.LastMessageDate, now) {
		updated.DailyMessageCount++
	} else {
		updated.DailyMessageCount = 1
	}
	ts := now.UTC()
	updated.LastMessageDate = &ts
	if newConversation {
		updated.ActiveConversations++
	}
	return s.quota.PlanLimitsFor(&updated, now)
}

// conversationTitle строит заголовок нового диалога из первого сообщения
func conversationTitle(message string) string {
	runes := []rune(message)
	if len(runes) <= titleMaxRunes {
		return message
	}
	return string(runes[:titleMaxRunes]) + "..."
}
