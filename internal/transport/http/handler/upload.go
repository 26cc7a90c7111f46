package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ai-teacher/internal/app"
	"ai-teacher/internal/transport/http/response"
)

const ClassifiedTopicHeader = "X-Classified-Topic"

type UploadHandler struct {
	uploadService *app.UploadService
	maxBytes      int64
}

func NewUploadHandler(uploadService *app.UploadService, maxBytes int64) *UploadHandler {
	return &UploadHandler{uploadService: uploadService, maxBytes: maxBytes}
}

// UploadPDF classifies the PDF, then streams its learning plan. The topic is
// sent in a header before the first chunk.
func (h *UploadHandler) UploadPDF(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "open upload failed")
		return
	}
	defer file.Close()

	ctx := c.Request.Context()
	ingested, err := h.uploadService.Ingest(ctx, app.UploadInput{
		UserID:   userID,
		FileName: fileHeader.Filename,
		Content:  file,
	})
	if err != nil {
		writeError(c, err, "upload failed")
		return
	}

	c.Header(ClassifiedTopicHeader, ingested.Topic.TopicID)
	stream := newTextStream(c)
	if _, err := h.uploadService.StreamPlan(ctx, ingested, stream.Write); err != nil {
		stream.Fail(err, "learning plan failed")
	}
}
