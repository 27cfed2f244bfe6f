package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type startChatRequest struct {
	ApartmentID uint `json:"apartment_id" binding:"required"`
}

type messageRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *Handler) ListChats(c *gin.Context) {
	chats, err := h.chats.List(c.Request.Context(), userID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, chats)
}

// StartChat opens the caller's conversation with the host of an apartment.
func (h *Handler) StartChat(c *gin.Context) {
	var req startChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	chat, err := h.chats.Start(c.Request.Context(), req.ApartmentID, userID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, chat)
}

func (h *Handler) UnreadCount(c *gin.Context) {
	count, err := h.chats.UnreadCount(c.Request.Context(), userID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// OpenChat returns the history and marks the counterpart's messages read.
func (h *Handler) OpenChat(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	conversation, err := h.chats.Open(c.Request.Context(), id, userID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, conversation)
}

func (h *Handler) SendMessage(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	msg, err := h.chats.Send(c.Request.Context(), id, userID(c), req.Content)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *Handler) GetTyping(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	typing, err := h.chats.CounterpartTyping(c.Request.Context(), id, userID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"typing": typing})
}

func (h *Handler) SetTyping(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.chats.SetTyping(c.Request.Context(), id, userID(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
