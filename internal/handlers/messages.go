package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"markethub/internal/middleware"
	"markethub/internal/service"
)

type MessageHandler struct {
	Messages *service.MessageService
}

func (h *MessageHandler) RegisterProtected(rg *gin.RouterGroup) {
	rg.POST("/conversations", h.Start)
	rg.GET("/conversations", h.List)
	rg.GET("/conversations/:id/messages", h.ListMessages)
	rg.POST("/conversations/:id/messages", h.Send)
	rg.POST("/conversations/:id/read", h.MarkRead)
	rg.GET("/messages/unread", h.UnreadCount)
}

func (h *MessageHandler) Start(c *gin.Context) {
	var in service.StartConversationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	conv, err := h.Messages.Start(c.Request.Context(), middleware.Identity(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, conv)
}

func (h *MessageHandler) List(c *gin.Context) {
	list, err := h.Messages.Conversations(c.Request.Context(), middleware.Identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *MessageHandler) ListMessages(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	limit, offset := pageParams(c, 50, 200)

	msgs, err := h.Messages.Messages(c.Request.Context(), middleware.Identity(c), id, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

type sendRequest struct {
	Content string `json:"content"`
}

func (h *MessageHandler) Send(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var in sendRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	msg, err := h.Messages.Send(c.Request.Context(), middleware.Identity(c), id, in.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *MessageHandler) MarkRead(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.Messages.MarkRead(c.Request.Context(), middleware.Identity(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}

func (h *MessageHandler) UnreadCount(c *gin.Context) {
	count, err := h.Messages.UnreadCount(c.Request.Context(), middleware.Identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}
