package domain

import (
	"errors"
	"fmt"
)

// Application errors
var (
	// ErrInvalidInput неверные входные данные (пустое сообщение и т.п.)
	ErrInvalidInput = errors.New("invalid input data")

	// ErrUnauthenticated пользователь не аутентифицирован
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrSubscriptionInactive платный тариф с неактивной подпиской
	ErrSubscriptionInactive = errors.New("subscription expired or inactive")

	// ErrQuotaExceeded превышена квота тарифа
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrFeatureForbidden возможность не входит в тариф пользователя
	ErrFeatureForbidden = errors.New("feature not available in plan")

	// ErrGenerationFailed бэкенд модели недоступен или вернул непригодный ответ
	ErrGenerationFailed = errors.New("generation failed")
)

// QuotaKind вид нарушенной квоты
type QuotaKind string

const (
	QuotaDailyMessageLimit       QuotaKind = "daily_message_limit"
	QuotaActiveConversationLimit QuotaKind = "active_conversation_limit"
)

// QuotaError отказ по квоте с указанием нарушенного инварианта и снимком лимитов,
// чтобы клиент мог показать точные счетчики
type QuotaError struct {
	Kind    QuotaKind
	Message string
	Limits  PlanLimits
}

// Error реализует интерфейс error
func (e *QuotaError) Error() string {
	return fmt.Sprintf("quota exceeded [%s]: %s", e.Kind, e.Message)
}

// Is позволяет errors.Is(err, ErrQuotaExceeded)
func (e *QuotaError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

// NewQuotaError создает новый отказ по квоте
func NewQuotaError(kind QuotaKind, message string, limits PlanLimits) *QuotaError {
	return &QuotaError{
		Kind:    kind,
		Message: message,
		Limits:  limits,
	}
}

// GenerationError нормализованная ошибка бэкенда генерации: транспорт, неуспешный
// статус и отсутствие сгенерированного текста сводятся к одному виду
type GenerationError struct {
	Provider    ModelProvider
	Message     string
	OriginalErr error
}

// Error реализует интерфейс error
func (e *GenerationError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("generation failed [%s]: %s: %v", e.Provider, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("generation failed [%s]: %s", e.Provider, e.Message)
}

// Is позволяет errors.Is(err, ErrGenerationFailed)
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}

// Unwrap возвращает оригинальную ошибку
func (e *GenerationError) Unwrap() error {
	return e.OriginalErr
}

// NewGenerationError создает новую ошибку генерации
func NewGenerationError(provider ModelProvider, message string, err error) *GenerationError {
	return &GenerationError{
		Provider:    provider,
		Message:     message,
		OriginalErr: err,
	}
}
