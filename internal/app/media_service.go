package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"ai-teacher/internal/pkg/thumbnail"
)

const (
	thumbnailSide    = 256
	maxImageDownload = 32 << 20
)

type MediaService struct {
	workspace  Workspace
	images     ImageGenerator
	speech     SpeechSynthesizer
	httpClient *http.Client
	logger     *slog.Logger
}

func NewMediaService(workspace Workspace, images ImageGenerator, speech SpeechSynthesizer, logger *slog.Logger) *MediaService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MediaService{
		workspace:  workspace,
		images:     images,
		speech:     speech,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger.With("component", "media_service"),
	}
}

type ImageResult struct {
	URL           string `json:"image_url"`
	Path          string `json:"-"`
	ThumbnailPath string `json:"-"`
}

// GenerateImage creates one image and keeps a copy plus a thumbnail in the
// user's folder. A failed download is logged and the URL is still returned.
func (s *MediaService) GenerateImage(ctx context.Context, userID, prompt string) (ImageResult, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ImageResult{}, validationf("prompt is required")
	}
	dir, err := s.workspace.UserDir(userID)
	if err != nil {
		return ImageResult{}, fmt.Errorf("prepare user folder failed: %w", err)
	}

	url, err := s.images.GenerateImage(ctx, prompt)
	if err != nil {
		return ImageResult{}, upstream("generate image", err)
	}
	result := ImageResult{URL: url}

	data, err := s.download(ctx, url)
	if err != nil {
		s.logger.Warn("download generated image failed", "user_id", userID, "error", err)
		return result, nil
	}
	id := uuid.NewString()
	result.Path = filepath.Join(dir, id+".png")
	if err := os.WriteFile(result.Path, data, 0o644); err != nil {
		s.logger.Warn("save generated image failed", "user_id", userID, "error", err)
		return ImageResult{URL: url}, nil
	}

	var thumb bytes.Buffer
	if err := thumbnail.WritePNG(&thumb, data, thumbnailSide); err != nil {
		s.logger.Warn("thumbnail generated image failed", "user_id", userID, "error", err)
		return result, nil
	}
	thumbPath := filepath.Join(dir, id+"_thumb.png")
	if err := os.WriteFile(thumbPath, thumb.Bytes(), 0o644); err != nil {
		s.logger.Warn("save thumbnail failed", "user_id", userID, "error", err)
		return result, nil
	}
	result.ThumbnailPath = thumbPath
	return result, nil
}

func (s *MediaService) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build image download request failed: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image download status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageDownload))
	if err != nil {
		return nil, fmt.Errorf("read image download failed: %w", err)
	}
	return data, nil
}

// Synthesize returns the spoken audio of text. The caller closes the stream.
func (s *MediaService) Synthesize(ctx context.Context, text string) (io.ReadCloser, error) {
	if strings.TrimSpace(text) == "" {
		return nil, validationf("no text provided")
	}
	audio, err := s.speech.Synthesize(ctx, text)
	if err != nil {
		return nil, upstream("synthesize speech", err)
	}
	return audio, nil
}
