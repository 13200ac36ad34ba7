package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dhoini/Chat-microservice/internal/domain"
	"github.com/Dhoini/Chat-microservice/pkg/logger"
	"github.com/jmoiron/sqlx"
)

// UserRepository интерфейс репозитория пользователей
type UserRepository interface {
	// GetByID возвращает пользователя по ID
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// RecordUsage фиксирует успешно обработанное сообщение: сбрасывает счетчик
	// на 1 при смене календарного дня, иначе инкрементирует; обновляет
	// lastMessageDate; при newConversation также инкрементирует счетчик
	// активных диалогов. Выполняется одним атомарным обновлением.
	RecordUsage(ctx context.Context, userID string, now time.Time, newConversation bool) error
	// DecrementActiveConversations уменьшает счетчик активных диалогов (не ниже нуля)
	DecrementActiveConversations(ctx context.Context, userID string) error
}

// PostgresUserRepository реализация UserRepository поверх PostgreSQL
type PostgresUserRepository struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewPostgresUserRepository создает новый репозиторий пользователей
func NewPostgresUserRepository(db *sqlx.DB, log *logger.Logger) *PostgresUserRepository {
	return &PostgresUserRepository{db: db, log: log}
}

// GetByID возвращает пользователя по ID
func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
        SELECT id, name, email, subscription_tier, subscription_status, subscription_end,
               daily_message_count, last_message_date, active_conversations, created_at, updated_at
        FROM users
        WHERE id = $1
    `
	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnw("User not found", "userID", id)
			return nil, ErrNotFound
		}
		r.log.Errorw("Failed to get user from database", "error", err, "userID", id)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// RecordUsage фиксирует использование одним условным обновлением:
// "инкремент, если тот же день, иначе сброс на 1" считается на стороне БД,
// что закрывает гонку read-modify-write между конкурентными запросами.
func (r *PostgresUserRepository) RecordUsage(ctx context.Context, userID string, now time.Time, newConversation bool) error {
	convDelta := 0
	if newConversation {
		convDelta = 1
	}

	query := `
        UPDATE users SET
            daily_message_count = CASE
                WHEN last_message_date IS NOT NULL
                     AND (last_message_date AT TIME ZONE 'UTC')::date = ($2::timestamptz AT TIME ZONE 'UTC')::date
                THEN daily_message_count + 1
                ELSE 1
            END,
            last_message_date = $2,
            active_conversations = active_conversations + $3,
            updated_at = $2
        WHERE id = $1
    `
	result, err := r.db.ExecContext(ctx, query, userID, now.UTC(), convDelta)
	if err != nil {
		r.log.Errorw("Failed to record usage", "error", err, "userID", userID)
		return fmt.Errorf("failed to record usage: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows count: %w", err)
	}
	if rowsAffected == 0 {
		r.log.Warnw("No user row updated while recording usage", "userID", userID)
		return ErrNotFound
	}

	r.log.Debugw("Usage recorded", "userID", userID, "newConversation", newConversation)
	return nil
}

// DecrementActiveConversations уменьшает счетчик активных диалогов, не опускаясь ниже нуля
func (r *PostgresUserRepository) DecrementActiveConversations(ctx context.Context, userID string) error {
	query := `
        UPDATE users SET
            active_conversations = GREATEST(active_conversations - 1, 0),
            updated_at = NOW()
        WHERE id = $1
    `
	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		r.log.Errorw("Failed to decrement active conversations", "error", err, "userID", userID)
		return fmt.Errorf("failed to decrement active conversations: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows count: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
