package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ai-teacher/internal/app"
	"ai-teacher/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) bind(c *gin.Context) (app.ChatInput, bool) {
	userID, ok := requireUser(c)
	if !ok {
		return app.ChatInput{}, false
	}
	var req GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return app.ChatInput{}, false
	}
	return app.ChatInput{
		UserID:   userID,
		History:  req.ChatHistory,
		UserInfo: req.UserInfo.toApp(),
	}, true
}

// HelpChat streams an answer grounded on the uploaded material.
func (h *ChatHandler) HelpChat(c *gin.Context) {
	in, ok := h.bind(c)
	if !ok {
		return
	}
	stream := newTextStream(c)
	if _, err := h.chatService.HelpChat(c.Request.Context(), in, stream.Write); err != nil {
		stream.Fail(err, "help chat failed")
	}
}

// Simplify streams a simplified explanation of the latest question.
func (h *ChatHandler) Simplify(c *gin.Context) {
	in, ok := h.bind(c)
	if !ok {
		return
	}
	stream := newTextStream(c)
	if _, err := h.chatService.Simplify(c.Request.Context(), in, stream.Write); err != nil {
		stream.Fail(err, "simplify failed")
	}
}

func (h *ChatHandler) History(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	turns, err := h.chatService.History(c.Request.Context(), userID, limit)
	if err != nil {
		writeError(c, err, "get history failed")
		return
	}
	response.OK(c, turns)
}
