package repository

import (
	"context"
	"sync"
	"time"

	"github.com/Dhoini/Chat-microservice/internal/domain"
	"github.com/Dhoini/Chat-microservice/pkg/logger"
)

// InMemoryUserRepository потокобезопасная реализация UserRepository в памяти.
// Используется в тестах и при запуске без базы данных.
type InMemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
	log   *logger.Logger
}

// NewInMemoryUserRepository создает новый in-memory репозиторий пользователей
func NewInMemoryUserRepository(log *logger.Logger) *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users: make(map[string]*domain.User),
		log:   log,
	}
}

// Seed добавляет или заменяет пользователя
func (r *InMemoryUserRepository) Seed(user *domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := *user
	r.users[u.ID] = &u
}

// GetByID возвращает копию пользователя по ID
func (r *InMemoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u := *user
	return &u, nil
}

// RecordUsage фиксирует использование под мьютексом: сброс на 1 при смене
// календарного дня (UTC), иначе инкремент
func (r *InMemoryUserRepository) RecordUsage(_ context.Context, userID string, now time.Time, newConversation bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return ErrNotFound
	}

	if user.LastMessageDate != nil && domain.SameUTCDay(*user.LastMessageDate, now) {
		user.DailyMessageCount++
	} else {
		user.DailyMessageCount = 1
	}
	ts := now.UTC()
	user.LastMessageDate = &ts
	if newConversation {
		user.ActiveConversations++
	}
	user.UpdatedAt = ts

	return nil
}

// DecrementActiveConversations уменьшает счетчик активных диалогов, не опускаясь ниже нуля
func (r *InMemoryUserRepository) DecrementActiveConversations(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return ErrNotFound
	}
	if user.ActiveConversations > 0 {
		user.ActiveConversations--
	}
	user.UpdatedAt = time.Now().UTC()

	return nil
}
