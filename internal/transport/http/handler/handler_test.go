package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-teacher/internal/app"
	"ai-teacher/internal/prompt"
	"ai-teacher/internal/session"
	"ai-teacher/internal/topic"
	"ai-teacher/internal/transport/http/middleware"
	"ai-teacher/internal/transport/http/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubLLM struct {
	chunks []string
	err    error
}

func (s *stubLLM) GenerateStream(_ context.Context, _ string, onChunk func(string) error) (string, error) {
	var full strings.Builder
	for _, c := range s.chunks {
		full.WriteString(c)
		if err := onChunk(c); err != nil {
			return full.String(), err
		}
	}
	return full.String(), s.err
}

type stubImages struct{ url string }

func (s *stubImages) GenerateImage(context.Context, string) (string, error) {
	return s.url, nil
}

type stubSpeech struct{ audio string }

func (s *stubSpeech) Synthesize(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(s.audio)), nil
}

type testServer struct {
	router *gin.Engine
	llm    *stubLLM
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	root := t.TempDir()
	sessions := session.NewMemoryStore(time.Hour, nil)
	registry := topic.NewRegistry(filepath.Join(root, "topics"), nil)
	require.NoError(t, registry.Refresh())
	builder := prompt.NewBuilder(registry)
	llm := &stubLLM{chunks: []string{"Hello", " world"}}

	chat := app.NewChatService(app.ChatServiceDeps{
		Sessions: sessions,
		Builder:  builder,
		LLM:      llm,
	})
	classifier := topic.NewClassifier(registry, nil, filepath.Join(root, "general-vs"), nil, nil)
	topics := app.NewTopicService(registry, classifier, builder, nil, sessions, nil)
	media := app.NewMediaService(app.NewWorkspace(filepath.Join(root, "users")),
		&stubImages{url: "http://127.0.0.1:1/missing.png"}, &stubSpeech{audio: "RIFF...."}, nil)

	chatHandler := NewChatHandler(chat)
	topicHandler := NewTopicHandler(topics)
	mediaHandler := NewMediaHandler(media)
	uploadHandler := NewUploadHandler(nil, 1<<20)

	router := gin.New()
	router.Use(middleware.UserSession(middleware.SessionConfig{
		Secret:     "test-secret",
		CookieName: "sid",
		TTL:        time.Hour,
	}))
	router.POST("/upload-pdf/", uploadHandler.UploadPDF)
	router.POST("/simplify/", chatHandler.Simplify)
	router.POST("/help-chat/", chatHandler.HelpChat)
	router.GET("/history/", chatHandler.History)
	router.GET("/topics/", topicHandler.List)
	router.POST("/confirm-topic/", topicHandler.Confirm)
	router.POST("/add-topic/", topicHandler.Add)
	router.POST("/generate-image/", mediaHandler.GenerateImage)
	router.POST("/synthesize/", mediaHandler.Synthesize)
	return &testServer{router: router, llm: llm}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, path string, body any) *http.Request {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) response.APIResponse {
	t.Helper()
	var resp response.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func chatBody(question string) gin.H {
	return gin.H{
		"chat_history": []gin.H{{"role": "user", "content": question}},
		"user_info":    gin.H{"interests": "football, chess"},
	}
}

func TestInterestListAcceptsStringOrList(t *testing.T) {
	var fromString UserInfoRequest
	require.NoError(t, json.Unmarshal([]byte(`{"interests":"football, chess ,"}`), &fromString))
	assert.Equal(t, []string{"football", "chess"}, []string(fromString.Interests))

	var fromList UserInfoRequest
	require.NoError(t, json.Unmarshal([]byte(`{"interests":["music"]}`), &fromList))
	assert.Equal(t, []string{"music"}, []string(fromList.Interests))

	var bad UserInfoRequest
	assert.Error(t, json.Unmarshal([]byte(`{"interests":42}`), &bad))
}

func TestSimplifyStreamsPlainText(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(jsonRequest(http.MethodPost, "/simplify/", chatBody("What is a cell?")))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Hello world", rec.Body.String())
}

func TestSimplifyUpstreamFailureBeforeFirstChunk(t *testing.T) {
	srv := newTestServer(t)
	srv.llm.chunks = nil
	srv.llm.err = errors.New("model overloaded")

	rec := srv.do(jsonRequest(http.MethodPost, "/simplify/", chatBody("What is a cell?")))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, response.CodeUpstream, decode(t, rec).Code)
}

func TestSimplifyUpstreamFailureMidStream(t *testing.T) {
	srv := newTestServer(t)
	srv.llm.err = errors.New("connection reset")

	rec := srv.do(jsonRequest(http.MethodPost, "/simplify/", chatBody("What is a cell?")))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Hello world"))
	assert.Contains(t, rec.Body.String(), "[error] simplify failed")
}

func TestSimplifyRejectsMissingHistory(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(jsonRequest(http.MethodPost, "/simplify/", gin.H{"chat_history": []gin.H{}}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, response.CodeBadRequest, decode(t, rec).Code)
}

func TestHelpChatWithoutUpload(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(jsonRequest(http.MethodPost, "/help-chat/", chatBody("Summarize chapter one")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, response.CodeNoUpload, resp.Code)
	assert.Equal(t, app.ErrNoUpload.Error(), resp.Message)
}

func TestHistoryWithoutPersistence(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/history/?limit=5", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, response.CodeOK, decode(t, rec).Code)
}

func TestListTopics(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/topics/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []any{prompt.GeneralTopic}, body["topics"])
	assert.NotContains(t, body, "data")
}

func TestConfirmTopicRequiresValue(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/confirm-topic/", strings.NewReader("topic="))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := srv.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfirmTopicBareBody(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/confirm-topic/", strings.NewReader("topic="+prompt.GeneralTopic))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := srv.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, prompt.GeneralTopic, body["topic"])
	assert.Equal(t, "Topic confirmed and session updated.", body["message"])
}

func TestAddTopicReportsFieldErrors(t *testing.T) {
	srv := newTestServer(t)
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("topic_name", "Chemistry"))
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/add-topic/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	rec := srv.do(req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Code int `json:"code"`
		Data struct {
			Error   string            `json:"error"`
			Details map[string]string `json:"details"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, response.CodeValidation, body.Code)
	assert.Equal(t, "Validation errors", body.Data.Error)
	assert.NotEmpty(t, body.Data.Details)
}

func TestUploadRequiresFile(t *testing.T) {
	srv := newTestServer(t)
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/upload-pdf/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	rec := srv.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "file is required", decode(t, rec).Message)
}

func TestGenerateImageReturnsURLWhenDownloadFails(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(jsonRequest(http.MethodPost, "/generate-image/", gin.H{"prompt": "a red cell"}))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "http://127.0.0.1:1/missing.png", body["image_url"])
	assert.NotContains(t, body, "data")
}

func TestSynthesizeStreamsWav(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(jsonRequest(http.MethodPost, "/synthesize/", gin.H{"text": "مرحبا"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/wav", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "speech.wav")
	assert.Equal(t, "RIFF....", rec.Body.String())
}

func TestSynthesizeRejectsEmptyText(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(jsonRequest(http.MethodPost, "/synthesize/", gin.H{"text": "  "}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWriteErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   int
	}{
		{fmt.Errorf("wrap: %w", app.ErrNotFound), http.StatusNotFound, response.CodeNotFound},
		{app.ErrUnsupported, http.StatusUnprocessableEntity, response.CodeUnsupported},
		{app.ErrTopicExists, http.StatusBadRequest, response.CodeTopicExists},
		{app.ErrUpstream, http.StatusBadGateway, response.CodeUpstream},
		{errors.New("boom"), http.StatusInternalServerError, response.CodeInternalServer},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		writeError(c, tc.err, "fallback")

		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		assert.Equal(t, tc.code, decode(t, rec).Code, tc.err.Error())
	}
}
