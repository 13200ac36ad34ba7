package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dhoini/Chat-microservice/internal/domain"
	"github.com/Dhoini/Chat-microservice/pkg/logger"
)

// InMemoryConversationRepository потокобезопасная реализация ConversationRepository в памяти
type InMemoryConversationRepository struct {
	mu            sync.RWMutex
	conversations map[string]*domain.Conversation
	log           *logger.Logger
}

// NewInMemoryConversationRepository создает новый in-memory репозиторий диалогов
func NewInMemoryConversationRepository(log *logger.Logger) *InMemoryConversationRepository {
	return &InMemoryConversationRepository{
		conversations: make(map[string]*domain.Conversation),
		log:           log,
	}
}

// Create создает новый диалог
func (r *InMemoryConversationRepository) Create(_ context.Context, conv *domain.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conversations[conv.ID]; exists {
		return ErrDuplicate
	}
	c := cloneConversation(conv)
	r.conversations[conv.ID] = c

	return nil
}

// GetByIDAndOwner возвращает копию диалога; чужой диалог неотличим от несуществующего
func (r *InMemoryConversationRepository) GetByIDAndOwner(_ context.Context, id, userID string) (*domain.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conv, ok := r.conversations[id]
	if !ok || conv.UserID != userID {
		return nil, ErrNotFound
	}
	return cloneConversation(conv), nil
}

// ListByOwner возвращает диалоги пользователя без сообщений, свежие сверху
func (r *InMemoryConversationRepository) ListByOwner(_ context.Context, userID string) ([]domain.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Conversation, 0)
	for _, conv := range r.conversations {
		if conv.UserID != userID {
			continue
		}
		c := *conv
		c.Messages = nil
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})

	return result, nil
}

// AppendTurns дописывает реплики в конец диалога и двигает updated_at
func (r *InMemoryConversationRepository) AppendTurns(_ context.Context, conversationID string, messages []domain.Message) error {
	if len(messages) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[conversationID]
	if !ok {
		return ErrNotFound
	}
	conv.Messages = append(conv.Messages, messages...)
	conv.UpdatedAt = time.Now().UTC()

	return nil
}

// UpdateTitle переименовывает диалог пользователя
func (r *InMemoryConversationRepository) UpdateTitle(_ context.Context, id, userID, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[id]
	if !ok || conv.UserID != userID {
		return ErrNotFound
	}
	conv.Title = title
	conv.UpdatedAt = time.Now().UTC()

	return nil
}

// Delete удаляет диалог пользователя
func (r *InMemoryConversationRepository) Delete(_ context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[id]
	if !ok || conv.UserID != userID {
		return ErrNotFound
	}
	delete(r.conversations, id)

	return nil
}

func cloneConversation(conv *domain.Conversation) *domain.Conversation {
	c := *conv
	c.Messages = make([]domain.Message, len(conv.Messages))
	copy(c.Messages, conv.Messages)
	return &c
}
