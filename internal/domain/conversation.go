package domain

import (
	"time"
)

// Role роль автора сообщения в диалоге
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message одна реплика диалога; после создания не изменяется
type Message struct {
	Role      Role      `json:"role" db:"role"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Conversation упорядоченный журнал реплик, принадлежащий ровно одному пользователю.
// Порядок Messages — это и есть история диалога, перестановки недопустимы.
type Conversation struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PromptMessage сегмент промпта, не зависящий от конкретного бэкенда модели
type PromptMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
