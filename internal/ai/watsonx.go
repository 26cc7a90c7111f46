package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	watsonxAPIVersion  = "2023-05-29"
	tokenRefreshMargin = time.Minute
)

type WatsonxConfig struct {
	URL               string
	IAMURL            string
	APIKey            string
	ProjectID         string
	ModelID           string
	MaxNewTokens      int
	RepetitionPenalty float64
}

// WatsonxClient calls the watsonx.ai text generation API with greedy decoding.
type WatsonxClient struct {
	cfg        WatsonxConfig
	httpClient *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	now         func() time.Time
}

func NewWatsonxClient(cfg WatsonxConfig) *WatsonxClient {
	return &WatsonxClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 180 * time.Second},
		now:        time.Now,
	}
}

type generationRequest struct {
	ModelID    string               `json:"model_id"`
	Input      string               `json:"input"`
	ProjectID  string               `json:"project_id"`
	Parameters generationParameters `json:"parameters"`
}

type generationParameters struct {
	DecodingMethod    string  `json:"decoding_method"`
	MaxNewTokens      int     `json:"max_new_tokens"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
}

type generationResponse struct {
	Results []struct {
		GeneratedText string `json:"generated_text"`
	} `json:"results"`
}

// Generate returns the full completion for prompt.
func (c *WatsonxClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.post(ctx, "/ml/v1/text/generation", prompt)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read watsonx response failed: %w", err)
	}
	var parsed generationResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse watsonx json failed: %w", err)
	}
	if len(parsed.Results) == 0 {
		return "", fmt.Errorf("empty watsonx results")
	}
	return parsed.Results[0].GeneratedText, nil
}

// GenerateStream forwards each generated fragment to onChunk and returns the
// concatenated text. An onChunk error stops the stream.
func (c *WatsonxClient) GenerateStream(ctx context.Context, prompt string, onChunk func(chunk string) error) (string, error) {
	resp, err := c.post(ctx, "/ml/v1/text/generation_stream", prompt)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	var full strings.Builder
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}

		var chunk generationResponse
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		if len(chunk.Results) == 0 || chunk.Results[0].GeneratedText == "" {
			continue
		}
		text := chunk.Results[0].GeneratedText
		full.WriteString(text)
		if err := onChunk(text); err != nil {
			return full.String(), err
		}
	}
	if err := scanner.Err(); err != nil {
		return full.String(), fmt.Errorf("scan watsonx stream failed: %w", err)
	}
	return full.String(), nil
}

func (c *WatsonxClient) post(ctx context.Context, path, prompt string) (*http.Response, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	bodyBytes, err := json.Marshal(generationRequest{
		ModelID:   c.cfg.ModelID,
		Input:     prompt,
		ProjectID: c.cfg.ProjectID,
		Parameters: generationParameters{
			DecodingMethod:    "greedy",
			MaxNewTokens:      c.cfg.MaxNewTokens,
			RepetitionPenalty: c.cfg.RepetitionPenalty,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal watsonx request failed: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.URL, "/") + path + "?version=" + watsonxAPIVersion
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build watsonx request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("watsonx request failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("watsonx response status %d: %s", resp.StatusCode, string(raw))
	}
	return resp, nil
}

// accessToken exchanges the API key for an IAM bearer token and caches it
// until shortly before it expires.
func (c *WatsonxClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "urn:ibm:params:oauth:grant-type:apikey")
	form.Set("apikey", c.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.IAMURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build iam request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("iam request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read iam response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("iam response status %d: %s", resp.StatusCode, string(raw))
	}
	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse iam json failed: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("empty iam access token")
	}

	c.token = parsed.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(parsed.ExpiresIn)*time.Second - tokenRefreshMargin)
	return c.token, nil
}
