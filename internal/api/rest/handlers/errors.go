package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/Dhoini/Chat-microservice/internal/domain"
	"github.com/Dhoini/Chat-microservice/internal/repository"
	"github.com/Dhoini/Chat-microservice/pkg/logger"
	"github.com/gin-gonic/gin"
)

// respondError переводит ошибку сервисного слоя в HTTP-статус и тело ответа.
// Отказ по квоте несет снимок лимитов, чтобы клиент мог показать точные счетчики.
func respondError(c *gin.Context, log *logger.Logger, err error) {
	var quotaErr *domain.QuotaError

	switch {
	case errors.As(err, &quotaErr):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":      quotaErr.Message,
			"error_kind": string(quotaErr.Kind),
			"limits":     quotaErr.Limits,
		})
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_kind": "invalid_input"})
	case errors.Is(err, domain.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthenticated", "error_kind": "unauthenticated"})
	case errors.Is(err, domain.ErrSubscriptionInactive):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "Subscription expired or inactive", "error_kind": "subscription_inactive"})
	case errors.Is(err, domain.ErrFeatureForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Feature not available in your plan", "error_kind": "feature_forbidden"})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found", "error_kind": "not_found"})
	case errors.Is(err, domain.ErrGenerationFailed):
		log.Errorw("Generation backend failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Model backend unavailable", "error_kind": "generation_failed"})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusRequestTimeout, gin.H{"error": "Request cancelled", "error_kind": "cancelled"})
	default:
		log.Errorw("Unhandled error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "error_kind": "internal"})
	}
}
