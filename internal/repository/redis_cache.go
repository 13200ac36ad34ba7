package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dhoini/Chat-microservice/internal/domain"
	"github.com/Dhoini/Chat-microservice/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	// Префикс ключей для снимков пользователей
	userKeyPrefix = "user:"

	// TTL для кэша
	defaultCacheTTL = 15 * time.Minute
)

// RedisCacheRepository реализует кеширование снимков пользователей с использованием Redis
type RedisCacheRepository struct {
	client *redis.Client
	log    *logger.Logger
}

// NewRedisCacheRepository создает новый экземпляр Redis репозитория
func NewRedisCacheRepository(redisAddr, redisPassword string, redisDB int, log *logger.Logger) (*RedisCacheRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})

	// Проверяем соединение с Redis
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Errorw("Failed to connect to Redis", "error", err)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Infow("Connected to Redis successfully", "addr", redisAddr)
	return &RedisCacheRepository{
		client: client,
		log:    log,
	}, nil
}

// Close закрывает соединение с Redis
func (r *RedisCacheRepository) Close() error {
	return r.client.Close()
}

// CacheUser кеширует снимок пользователя в Redis
func (r *RedisCacheRepository) CacheUser(ctx context.Context, user *domain.User) error {
	key := fmt.Sprintf("%s%s", userKeyPrefix, user.ID)

	data, err := json.Marshal(user)
	if err != nil {
		r.log.Errorw("Failed to marshal user for caching", "error", err, "userID", user.ID)
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	if err := r.client.Set(ctx, key, data, defaultCacheTTL).Err(); err != nil {
		r.log.Errorw("Failed to cache user in Redis", "error", err, "userID", user.ID)
		return fmt.Errorf("failed to cache user: %w", err)
	}

	r.log.Debugw("User cached successfully", "userID", user.ID)
	return nil
}

// GetCachedUser получает снимок пользователя из кеша
func (r *RedisCacheRepository) GetCachedUser(ctx context.Context, userID string) (*domain.User, error) {
	key := fmt.Sprintf("%s%s", userKeyPrefix, userID)

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Ключ не найден в кеше
			r.log.Debugw("User not found in cache", "userID", userID)
			return nil, nil // Возвращаем nil вместо ошибки
		}
		r.log.Errorw("Error getting user from Redis", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to get user from cache: %w", err)
	}

	var user domain.User
	if err := json.Unmarshal(data, &user); err != nil {
		r.log.Errorw("Failed to unmarshal cached user", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to unmarshal cached user: %w", err)
	}

	r.log.Debugw("User retrieved from cache", "userID", userID)
	return &user, nil
}

// InvalidateUserCache удаляет снимок пользователя из кеша
func (r *RedisCacheRepository) InvalidateUserCache(ctx context.Context, userID string) error {
	key := fmt.Sprintf("%s%s", userKeyPrefix, userID)

	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.log.Errorw("Failed to delete user from cache", "error", err, "userID", userID)
		return fmt.Errorf("failed to delete user from cache: %w", err)
	}

	r.log.Debugw("User cache invalidated", "userID", userID)
	return nil
}
