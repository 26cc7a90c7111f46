package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"ai-teacher/internal/app"
	"ai-teacher/internal/transport/http/response"
)

type MediaHandler struct {
	mediaService *app.MediaService
}

func NewMediaHandler(mediaService *app.MediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

func (h *MediaHandler) GenerateImage(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req ImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	result, err := h.mediaService.GenerateImage(c.Request.Context(), userID, req.Prompt)
	if err != nil {
		writeError(c, err, "generate image failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"image_url": result.URL})
}

func (h *MediaHandler) Synthesize(c *gin.Context) {
	var req SynthesizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	audio, err := h.mediaService.Synthesize(c.Request.Context(), req.Text)
	if err != nil {
		writeError(c, err, "synthesize failed")
		return
	}
	defer audio.Close()

	c.Header("Content-Type", "audio/wav")
	c.Header("Content-Disposition", `attachment; filename="speech.wav"`)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, audio); err != nil {
		logger(c).Warn("stream audio failed", "error", err)
	}
}
