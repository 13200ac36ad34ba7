package service

import (
	"context"
	"strings"
	"time"

	"github.com/Dhoini/Chat-microservice/internal/domain"
	"github.com/Dhoini/Chat-microservice/internal/kafka"
	"github.com/Dhoini/Chat-microservice/internal/repository"
	"github.com/Dhoini/Chat-microservice/pkg/logger"
)

// ConversationService интерфейс управления диалогами пользователя
type ConversationService interface {
	// List возвращает диалоги пользователя без сообщений, свежие сверху
	List(ctx context.Context, userID string) ([]domain.Conversation, error)
	// Get возвращает диалог с полной историей сообщений
	Get(ctx context.Context, userID, conversationID string) (*domain.Conversation, error)
	// Rename переименовывает диалог
	Rename(ctx context.Context, userID, conversationID, title string) error
	// Delete удаляет диалог и освобождает слот активных диалогов
	Delete(ctx context.Context, userID, conversationID string) error
}

type conversationService struct {
	convRepo repository.ConversationRepository
	userRepo repository.UserRepository
	producer kafka.Producer
	log      *logger.Logger
}

// NewConversationService создает новый сервис диалогов
func NewConversationService(
	convRepo repository.ConversationRepository,
	userRepo repository.UserRepository,
	producer kafka.Producer,
	log *logger.Logger,
) ConversationService {
	return &conversationService{
		convRepo: convRepo,
		userRepo: userRepo,
		producer: producer,
		log:      log,
	}
}

// List возвращает диалоги пользователя
func (s *conversationService) List(ctx context.Context, userID string) ([]domain.Conversation, error) {
	return s.convRepo.ListByOwner(ctx, userID)
}

// Get возвращает диалог с полной историей сообщений
func (s *conversationService) Get(ctx context.Context, userID, conversationID string) (*domain.Conversation, error) {
	return s.convRepo.GetByIDAndOwner(ctx, conversationID, userID)
}

// Rename переименовывает диалог
func (s *conversationService) Rename(ctx context.Context, userID, conversationID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.ErrInvalidInput
	}
	return s.convRepo.UpdateTitle(ctx, conversationID, userID, title)
}

// Delete удаляет диалог и уменьшает счетчик активных диалогов пользователя
func (s *conversationService) Delete(ctx context.Context, userID, conversationID string) error {
	if err := s.convRepo.Delete(ctx, conversationID, userID); err != nil {
		return err
	}

	if err := s.userRepo.DecrementActiveConversations(ctx, userID); err != nil {
		// Диалог уже удален; расхождение счетчика логируем, но не откатываем
		s.log.Warnw("Failed to decrement active conversations after delete", "error", err, "userID", userID)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		s.log.Warnw("Failed to load user for deletion event", "error", err, "userID", userID)
		return nil
	}

	event := &domain.UsageEvent{
		UserID:         userID,
		ConversationID: conversationID,
		Tier:           user.SubscriptionTier,
		CreatedAt:      time.Now(),
	}
	if err := s.producer.PublishUsageEvent(ctx, kafka.TopicConversationDeleted, event); err != nil {
		s.log.Warnw("Failed to publish conversation deleted event", "error", err, "userID", userID)
	}

	return nil
}
