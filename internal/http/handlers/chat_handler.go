package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/homecare-backend/internal/http/handlers/common"
	"github.com/ignatzorin/homecare-backend/internal/service"
)

// ChatHandler обслуживает переписки и сообщения.
type ChatHandler struct {
	chat *service.ChatService
}

// NewChatHandler создаёт новый хэндлер.
func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type startConversationRequest struct {
	CounterpartID uuid.UUID  `json:"counterpart_id" binding:"required"`
	ProposalID    *uuid.UUID `json:"proposal_id"`
}

// StartConversation обрабатывает POST /api/conversations.
func (h *ChatHandler) StartConversation(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		abortUnauthorized(c)
		return
	}

	var req startConversationRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	conversation, err := h.chat.StartConversation(c.Request.Context(), userID, req.CounterpartID, req.ProposalID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, conversation)
}

// ListConversations обрабатывает GET /api/conversations.
func (h *ChatHandler) ListConversations(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		abortUnauthorized(c)
		return
	}

	conversations, err := h.chat.ListConversations(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

type sendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// SendMessage обрабатывает POST /api/conversations/:id/messages.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		abortUnauthorized(c)
		return
	}

	conversationID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req sendMessageRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	message, err := h.chat.SendMessage(c.Request.Context(), userID, conversationID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

// ListMessages обрабатывает GET /api/conversations/:id/messages.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		abortUnauthorized(c)
		return
	}

	conversationID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	messages, err := h.chat.ListMessages(c.Request.Context(), userID, conversationID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
