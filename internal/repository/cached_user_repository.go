package repository

import (
	"context"
	"time"

	"github.com/Dhoini/Chat-microservice/internal/domain"
	"github.com/Dhoini/Chat-microservice/pkg/logger"
)

// CachedUserRepository реализует UserRepository с кешированием снимков пользователей.
// Счетчики использования меняются при каждом сообщении, поэтому любая запись
// инвалидирует кеш, а не пытается его обновить.
type CachedUserRepository struct {
	repo  UserRepository
	cache *RedisCacheRepository
	log   *logger.Logger
}

// NewCachedUserRepository создает новый репозиторий с кешированием
func NewCachedUserRepository(
	repo UserRepository,
	cache *RedisCacheRepository,
	log *logger.Logger,
) UserRepository {
	return &CachedUserRepository{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// GetByID получает пользователя по ID (сначала из кеша, потом из БД)
func (r *CachedUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	// Пытаемся получить из кеша
	cachedUser, err := r.cache.GetCachedUser(ctx, id)
	if err != nil {
		r.log.Warnw("Error getting user from cache", "error", err, "userID", id)
		// Продолжаем выполнение при ошибке кеша
	}

	// Если нашли в кеше, возвращаем
	if cachedUser != nil {
		r.log.Debugw("User found in cache", "userID", id)
		return cachedUser, nil
	}

	// Если не нашли в кеше, ищем в БД
	user, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Кешируем найденного пользователя
	if user != nil {
		if err := r.cache.CacheUser(ctx, user); err != nil {
			r.log.Warnw("Failed to cache user after fetching", "error", err, "userID", id)
		}
	}

	return user, nil
}

// RecordUsage фиксирует использование в БД и инвалидирует кеш пользователя
func (r *CachedUserRepository) RecordUsage(ctx context.Context, userID string, now time.Time, newConversation bool) error {
	if err := r.repo.RecordUsage(ctx, userID, now, newConversation); err != nil {
		return err
	}

	if err := r.cache.InvalidateUserCache(ctx, userID); err != nil {
		r.log.Warnw("Failed to invalidate user cache after usage record", "error", err, "userID", userID)
		// Продолжаем выполнение, несмотря на ошибку кеширования
	}

	return nil
}

// DecrementActiveConversations уменьшает счетчик в БД и инвалидирует кеш пользователя
func (r *CachedUserRepository) DecrementActiveConversations(ctx context.Context, userID string) error {
	if err := r.repo.DecrementActiveConversations(ctx, userID); err != nil {
		return err
	}

	if err := r.cache.InvalidateUserCache(ctx, userID); err != nil {
		r.log.Warnw("Failed to invalidate user cache after decrement", "error", err, "userID", userID)
	}

	return nil
}
