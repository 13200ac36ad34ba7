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

// ConversationRepository интерфейс репозитория диалогов
type ConversationRepository interface {
	// Create создает новый диалог
	Create(ctx context.Context, conv *domain.Conversation) error
	// GetByIDAndOwner возвращает диалог с сообщениями; чужой диалог неотличим
	// от несуществующего (ErrNotFound в обоих случаях)
	GetByIDAndOwner(ctx context.Context, id, userID string) (*domain.Conversation, error)
	// ListByOwner возвращает диалоги пользователя без сообщений,
	// отсортированные по времени последнего обновления
	ListByOwner(ctx context.Context, userID string) ([]domain.Conversation, error)
	// AppendTurns дописывает реплики в конец диалога одной транзакцией
	AppendTurns(ctx context.Context, conversationID string, messages []domain.Message) error
	// UpdateTitle переименовывает диалог пользователя
	UpdateTitle(ctx context.Context, id, userID, title string) error
	// Delete удаляет диалог пользователя вместе с сообщениями
	Delete(ctx context.Context, id, userID string) error
}

// PostgresConversationRepository реализация ConversationRepository поверх PostgreSQL
type PostgresConversationRepository struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewPostgresConversationRepository создает новый репозиторий диалогов
func NewPostgresConversationRepository(db *sqlx.DB, log *logger.Logger) *PostgresConversationRepository {
	return &PostgresConversationRepository{db: db, log: log}
}

// Create создает новый диалог
func (r *PostgresConversationRepository) Create(ctx context.Context, conv *domain.Conversation) error {
	query := `
        INSERT INTO conversations (id, user_id, title, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)
    `
	_, err := r.db.ExecContext(ctx, query, conv.ID, conv.UserID, conv.Title, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		r.log.Errorw("Failed to create conversation", "error", err, "conversationID", conv.ID)
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	r.log.Debugw("Conversation created", "conversationID", conv.ID, "userID", conv.UserID)
	return nil
}

// GetByIDAndOwner возвращает диалог с сообщениями в порядке записи
func (r *PostgresConversationRepository) GetByIDAndOwner(ctx context.Context, id, userID string) (*domain.Conversation, error) {
	query := `
        SELECT id, user_id, title, created_at, updated_at
        FROM conversations
        WHERE id = $1 AND user_id = $2
    `
	var conv domain.Conversation
	if err := r.db.GetContext(ctx, &conv, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.log.Errorw("Failed to get conversation", "error", err, "conversationID", id)
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	messagesQuery := `
        SELECT role, content, created_at
        FROM messages
        WHERE conversation_id = $1
        ORDER BY seq
    `
	if err := r.db.SelectContext(ctx, &conv.Messages, messagesQuery, id); err != nil {
		r.log.Errorw("Failed to get conversation messages", "error", err, "conversationID", id)
		return nil, fmt.Errorf("failed to get conversation messages: %w", err)
	}

	return &conv, nil
}

// ListByOwner возвращает диалоги пользователя, свежие сверху
func (r *PostgresConversationRepository) ListByOwner(ctx context.Context, userID string) ([]domain.Conversation, error) {
	query := `
        SELECT id, user_id, title, created_at, updated_at
        FROM conversations
        WHERE user_id = $1
        ORDER BY updated_at DESC
    `
	conversations := make([]domain.Conversation, 0)
	if err := r.db.SelectContext(ctx, &conversations, query, userID); err != nil {
		r.log.Errorw("Failed to list conversations", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return conversations, nil
}

// AppendTurns дописывает реплики и двигает updated_at одной транзакцией:
// либо записан весь ход целиком, либо ничего
func (r *PostgresConversationRepository) AppendTurns(ctx context.Context, conversationID string, messages []domain.Message) error {
	if len(messages) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	insertQuery := `
        INSERT INTO messages (conversation_id, seq, role, content, created_at)
        VALUES ($1, (SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE conversation_id = $1), $2, $3, $4)
    `
	for _, msg := range messages {
		if _, err := tx.ExecContext(ctx, insertQuery, conversationID, msg.Role, msg.Content, msg.CreatedAt); err != nil {
			r.log.Errorw("Failed to append message", "error", err, "conversationID", conversationID)
			return fmt.Errorf("failed to append message: %w", err)
		}
	}

	touchQuery := `UPDATE conversations SET updated_at = $2 WHERE id = $1`
	result, err := tx.ExecContext(ctx, touchQuery, conversationID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows count: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.log.Debugw("Turns appended", "conversationID", conversationID, "count", len(messages))
	return nil
}

// UpdateTitle переименовывает диалог пользователя
func (r *PostgresConversationRepository) UpdateTitle(ctx context.Context, id, userID, title string) error {
	query := `
        UPDATE conversations SET title = $3, updated_at = NOW()
        WHERE id = $1 AND user_id = $2
    `
	result, err := r.db.ExecContext(ctx, query, id, userID, title)
	if err != nil {
		r.log.Errorw("Failed to update conversation title", "error", err, "conversationID", id)
		return fmt.Errorf("failed to update conversation title: %w", err)
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

// Delete удаляет диалог пользователя; сообщения удаляются каскадом по FK
func (r *PostgresConversationRepository) Delete(ctx context.Context, id, userID string) error {
	query := `DELETE FROM conversations WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		r.log.Errorw("Failed to delete conversation", "error", err, "conversationID", id)
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows count: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	r.log.Debugw("Conversation deleted", "conversationID", id, "userID", userID)
	return nil
}
