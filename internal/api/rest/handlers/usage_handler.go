package handlers

import (
	"net/http"

	"github.com/Dhoini/Chat-microservice/internal/middleware"
	"github.com/Dhoini/Chat-microservice/internal/service"
	"github.com/Dhoini/Chat-microservice/pkg/logger"
	"github.com/gin-gonic/gin"
)

// UsageHandler обработчик отчета об использовании тарифа
type UsageHandler struct {
	service service.UsageService
	log     *logger.Logger
}

// NewUsageHandler создает новый обработчик отчета об использовании
func NewUsageHandler(svc service.UsageService, log *logger.Logger) *UsageHandler {
	return &UsageHandler{
		service: svc,
		log:     log,
	}
}

// GetUsage возвращает снимок лимитов тарифа и остатков пользователя
func (h *UsageHandler) GetUsage(c *gin.Context) {
	userID := c.GetString(string(middleware.ContextUserIDKey))

	limits, err := h.service.GetUsage(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	setLimitHeaders(c, limits)
	c.JSON(http.StatusOK, limits)
}
