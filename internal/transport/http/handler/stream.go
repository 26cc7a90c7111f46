package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// textStream writes chunks as they arrive and flushes after each one.
type textStream struct {
	c       *gin.Context
	flusher http.Flusher
	started bool
}

func newTextStream(c *gin.Context) *textStream {
	flusher, _ := c.Writer.(http.Flusher)
	return &textStream{c: c, flusher: flusher}
}

func (s *textStream) start() {
	if s.started {
		return
	}
	s.started = true
	h := s.c.Writer.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Accel-Buffering", "no")
	s.c.Status(http.StatusOK)
}

func (s *textStream) Write(chunk string) error {
	s.start()
	if _, err := s.c.Writer.WriteString(chunk); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

// Fail reports err. Before the first chunk it falls back to a JSON error;
// afterwards a trailing line is appended to the stream.
func (s *textStream) Fail(err error, fallback string) {
	if !s.started {
		writeError(s.c, err, fallback)
		return
	}
	logger(s.c).Error(fallback, "error", err)
	if s.c.Request.Context().Err() != nil {
		return
	}
	_ = s.Write("\n\n[error] " + fallback)
}

func logger(c *gin.Context) *slog.Logger {
	return slog.Default().With("path", c.FullPath())
}
