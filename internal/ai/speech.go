package ai

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type SpeechConfig struct {
	Key          string
	Region       string
	Voice        string
	OutputFormat string
	// Endpoint overrides the regional URL derived from Region.
	Endpoint string
}

// SpeechClient turns text into audio through the Azure text-to-speech REST API.
type SpeechClient struct {
	cfg        SpeechConfig
	httpClient *http.Client
}

func NewSpeechClient(cfg SpeechConfig) *SpeechClient {
	return &SpeechClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *SpeechClient) endpoint() string {
	if c.cfg.Endpoint != "" {
		return c.cfg.Endpoint
	}
	return fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", c.cfg.Region)
}

// SSML wraps text in a single voice element. Text is XML-escaped.
func SSML(voice, text string) (string, error) {
	lang := "ar-SA"
	if parts := strings.SplitN(voice, "-", 3); len(parts) == 3 {
		lang = parts[0] + "-" + parts[1]
	}
	var escaped bytes.Buffer
	if err := xml.EscapeText(&escaped, []byte(text)); err != nil {
		return "", fmt.Errorf("escape ssml text failed: %w", err)
	}
	return fmt.Sprintf(
		`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang="%s"><voice name="%s">%s</voice></speak>`,
		lang, voice, escaped.String(),
	), nil
}

// Synthesize returns the audio stream. The caller closes it.
func (c *SpeechClient) Synthesize(ctx context.Context, text string) (io.ReadCloser, error) {
	body, err := SSML(c.cfg.Voice, text)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build speech request failed: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.Key)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", c.cfg.OutputFormat)
	req.Header.Set("User-Agent", "ai-teacher")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech request failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("speech response status %d: %s", resp.StatusCode, string(raw))
	}
	return resp.Body, nil
}
