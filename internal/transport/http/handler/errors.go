package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ai-teacher/internal/app"
	"ai-teacher/internal/transport/http/middleware"
	"ai-teacher/internal/transport/http/response"
)

// writeError maps app errors onto status codes. Unclassified errors are
// reported with fallback and logged.
func writeError(c *gin.Context, err error, fallback string) {
	var verr *app.ValidationError
	switch {
	case errors.As(err, &verr):
		response.ValidationFailed(c, "Validation errors", verr.Details)
	case errors.Is(err, app.ErrValidation):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrTopicExists):
		response.Error(c, http.StatusBadRequest, response.CodeTopicExists, err.Error())
	case errors.Is(err, app.ErrNoUpload):
		response.Error(c, http.StatusBadRequest, response.CodeNoUpload, app.ErrNoUpload.Error())
	case errors.Is(err, app.ErrNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
	case errors.Is(err, app.ErrUnsupported):
		response.Error(c, http.StatusUnprocessableEntity, response.CodeUnsupported, err.Error())
	case errors.Is(err, app.ErrUpstream):
		logger(c).Error(fallback, "error", err)
		response.Error(c, http.StatusBadGateway, response.CodeUpstream, err.Error())
	default:
		logger(c).Error(fallback, "error", err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}

func requireUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "missing user session")
		return "", false
	}
	return userID, true
}
