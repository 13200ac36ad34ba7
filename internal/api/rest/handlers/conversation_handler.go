package handlers

import (
	"net/http"

	"github.com/Dhoini/Chat-microservice/internal/middleware"
	"github.com/Dhoini/Chat-microservice/internal/service"
	"github.com/Dhoini/Chat-microservice/pkg/logger"
	"github.com/Dhoini/Chat-microservice/pkg/req"
	"github.com/gin-gonic/gin"
)

// ConversationHandler обработчик управления диалогами
type ConversationHandler struct {
	service service.ConversationService
	log     *logger.Logger
}

// NewConversationHandler создает новый обработчик диалогов
func NewConversationHandler(svc service.ConversationService, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		service: svc,
		log:     log,
	}
}

// RenameRequest тело запроса переименования диалога
type RenameRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

// List возвращает диалоги пользователя
func (h *ConversationHandler) List(c *gin.Context) {
	userID := c.GetString(string(middleware.ContextUserIDKey))

	conversations, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// Get возвращает диалог с полной историей сообщений
func (h *ConversationHandler) Get(c *gin.Context) {
	userID := c.GetString(string(middleware.ContextUserIDKey))
	conversationID := c.Param("id")

	conversation, err := h.service.Get(c.Request.Context(), userID, conversationID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, conversation)
}

// Rename переименовывает диалог
func (h *ConversationHandler) Rename(c *gin.Context) {
	userID := c.GetString(string(middleware.ContextUserIDKey))
	conversationID := c.Param("id")

	body, err := req.Decode[RenameRequest](c.Request.Body)
	if err != nil {
		h.log.Warnw("Failed to decode rename request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "error_kind": "invalid_input"})
		return
	}
	if err := req.IsValid(body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "error_kind": "invalid_input"})
		return
	}

	if err := h.service.Rename(c.Request.Context(), userID, conversationID, body.Title); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "renamed"})
}

// Delete удаляет диалог и освобождает слот активных диалогов
func (h *ConversationHandler) Delete(c *gin.Context) {
	userID := c.GetString(string(middleware.ContextUserIDKey))
	conversationID := c.Param("id")

	if err := h.service.Delete(c.Request.Context(), userID, conversationID); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}
