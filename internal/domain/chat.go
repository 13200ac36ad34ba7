package domain

import (
	"time"
)

// ModelProvider тег бэкенда генерации
type ModelProvider string

const (
	// ProviderHosted коммерческий API (Mistral)
	ProviderHosted ModelProvider = "hosted"
	// ProviderSelfHosted собственный inference-эндпоинт (Ollama)
	ProviderSelfHosted ModelProvider = "self-hosted"
)

// ChatRequest входящий запрос движка управления
type ChatRequest struct {
	Message        string `json:"message" validate:"required"`
	ConversationID string `json:"conversationId,omitempty"`
	ModelProvider  string `json:"modelProvider,omitempty" validate:"omitempty,oneof=hosted self-hosted"`
}

// ChatResponse успешный ответ движка
type ChatResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversationId"`
	ModelProvider  string `json:"modelProvider"`
}

// RemainingLimits остатки квот на момент ответа
type RemainingLimits struct {
	DailyMessages       int `json:"daily_messages"`
	ActiveConversations int `json:"active_conversations"`
}

// PlanLimits снимок лимитов плана и остатков, отдается клиенту при отказе по квоте
// и в ручке использования
type PlanLimits struct {
	Tier                   SubscriptionTier `json:"tier"`
	DailyMessageLimit      int              `json:"daily_message_limit"`
	MaxActiveConversations int              `json:"max_active_conversations"`
	MaxResponseLength      int              `json:"max_response_length"`
	Features               PlanFeatures     `json:"features"`
	Remaining              RemainingLimits  `json:"remaining"`
}

// UsageEvent событие использования, публикуемое в Kafka после успешной записи хода
type UsageEvent struct {
	UserID         string           `json:"user_id"`
	ConversationID string           `json:"conversation_id"`
	Tier           SubscriptionTier `json:"tier"`
	Provider       ModelProvider    `json:"provider"`
	// Fallback ответ-заглушка вместо ответа модели (лимит длины так и не был соблюден)
	Fallback  bool      `json:"fallback"`
	CreatedAt time.Time `json:"created_at"`
}
