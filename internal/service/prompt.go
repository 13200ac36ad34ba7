package service

import (
	"fmt"
	"strings"

	"github.com/Dhoini/Chat-microservice/internal/domain"
)

// PromptBuilder собирает промпт для бэкенда генерации: системный сегмент с
// бюджетом длины, история диалога в исходном порядке и новое сообщение
// пользователя. Результат не зависит от конкретного бэкенда.
type PromptBuilder struct {
	systemPrompt string
	language     string
}

// NewPromptBuilder создает новый сборщик промптов
func NewPromptBuilder(systemPrompt, language string) *PromptBuilder {
	return &PromptBuilder{
		systemPrompt: systemPrompt,
		language:     language,
	}
}

// Build собирает промпт: системный сегмент, история, сообщение пользователя.
// Директива длины повторяется дважды: в системном сегменте и замыкающей
// строкой в сегменте пользователя. При maxLength <= 0 директива не добавляется.
func (b *PromptBuilder) Build(history []domain.Message, userMessage string, maxLength int) []domain.PromptMessage {
	var system strings.Builder
	system.WriteString(b.systemPrompt)
	if maxLength > 0 {
		fmt.Fprintf(&system, " Keep your answer under %d characters.", maxLength)
	}
	if b.language != "" {
		fmt.Fprintf(&system, " Respond in %s.", b.language)
	}

	user := userMessage
	if maxLength > 0 {
		user = fmt.Sprintf("%s\n\nAnswer in %d characters or fewer.", userMessage, maxLength)
	}

	prompt := make([]domain.PromptMessage, 0, len(history)+2)
	prompt = append(prompt, domain.PromptMessage{Role: domain.RoleSystem, Content: system.String()})
	for _, msg := range history {
		prompt = append(prompt, domain.PromptMessage{Role: msg.Role, Content: msg.Content})
	}
	prompt = append(prompt, domain.PromptMessage{Role: domain.RoleUser, Content: user})

	return prompt
}

// WithLengthCorrection расширяет промпт для повторной генерации: слишком длинный
// ответ возвращается модели вместе с директивой, называющей замеренную длину
// и требуемый максимум
func (b *PromptBuilder) WithLengthCorrection(base []domain.PromptMessage, overlongResponse string, measured, maxLength int) []domain.PromptMessage {
	corrected := make([]domain.PromptMessage, len(base), len(base)+2)
	copy(corrected, base)

	corrected = append(corrected, domain.PromptMessage{
		Role:    domain.RoleAssistant,
		Content: overlongResponse,
	})
	corrected = append(corrected, domain.PromptMessage{
		Role: domain.RoleUser,
		Content: fmt.Sprintf(
			"Your previous answer was %d characters long, which exceeds the limit of %d characters. Rewrite it to fit within %d characters without losing the key points.",
			measured, maxLength, maxLength,
		),
	})

	return corrected
}
