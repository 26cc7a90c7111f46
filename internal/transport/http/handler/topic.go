package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"ai-teacher/internal/app"
	"ai-teacher/internal/transport/http/response"
)

type TopicHandler struct {
	topicService *app.TopicService
}

func NewTopicHandler(topicService *app.TopicService) *TopicHandler {
	return &TopicHandler{topicService: topicService}
}

// List and the other topic endpoints answer with bare JSON bodies; only
// errors use the response envelope.
func (h *TopicHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"topics": h.topicService.List()})
}

func (h *TopicHandler) Confirm(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	result, err := h.topicService.Confirm(c.Request.Context(), userID, c.PostForm("topic"))
	if err != nil {
		writeError(c, err, "confirm topic failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Topic confirmed and session updated.",
		"topic":   result.TopicID,
	})
}

func (h *TopicHandler) Add(c *gin.Context) {
	in := app.AddTopicInput{
		Name:         c.PostForm("topic_name"),
		Definition:   c.PostForm("definition"),
		Instruction:  c.PostForm("instruction"),
		ExamplesJSON: c.PostForm("examples"),
	}

	var closers []io.Closer
	defer func() {
		for _, cl := range closers {
			_ = cl.Close()
		}
	}()
	if form, err := c.MultipartForm(); err == nil {
		for _, fh := range form.File["references"] {
			f, err := fh.Open()
			if err != nil {
				response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "open reference failed")
				return
			}
			closers = append(closers, f)
			in.References = append(in.References, app.ReferenceFile{Name: fh.Filename, Content: f})
		}
	}

	created, err := h.topicService.AddTopic(c.Request.Context(), in)
	if err != nil {
		writeError(c, err, "add topic failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("The topic %q has been added successfully.", created.ID)})
}
