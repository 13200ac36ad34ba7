package handlers

import (
	"net/http"
	"strconv"

	"github.com/Dhoini/Chat-microservice/internal/domain"
	"github.com/Dhoini/Chat-microservice/internal/middleware"
	"github.com/Dhoini/Chat-microservice/internal/service"
	"github.com/Dhoini/Chat-microservice/pkg/logger"
	"github.com/Dhoini/Chat-microservice/pkg/req"
	"github.com/gin-gonic/gin"
)

// ChatHandler обработчик сообщений чата
type ChatHandler struct {
	service service.ChatService
	log     *logger.Logger
}

// NewChatHandler создает новый обработчик сообщений
func NewChatHandler(svc service.ChatService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		service: svc,
		log:     log,
	}
}

// Chat обрабатывает входящее сообщение пользователя
func (h *ChatHandler) Chat(c *gin.Context) {
	userID := c.GetString(string(middleware.ContextUserIDKey))

	body, err := req.Decode[domain.ChatRequest](c.Request.Body)
	if err != nil {
		h.log.Warnw("Failed to decode chat request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "error_kind": "invalid_input"})
		return
	}
	if err := req.IsValid(body); err != nil {
		h.log.Warnw("Chat request validation failed", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "error_kind": "invalid_input"})
		return
	}

	resp, limits, err := h.service.ProcessMessage(c.Request.Context(), userID, body)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	setLimitHeaders(c, limits)
	c.JSON(http.StatusOK, resp)
}

// setLimitHeaders отдает остатки квот в заголовках успешного ответа
func setLimitHeaders(c *gin.Context, limits *domain.PlanLimits) {
	if limits == nil {
		return
	}
	c.Header("X-Subscription-Tier", string(limits.Tier))
	c.Header("X-Daily-Messages-Remaining", strconv.Itoa(limits.Remaining.DailyMessages))
	c.Header("X-Active-Conversations-Remaining", strconv.Itoa(limits.Remaining.ActiveConversations))
}
