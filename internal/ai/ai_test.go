package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWatsonxServer(t *testing.T, tokenCalls *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/identity/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(tokenCalls, 1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "secret", r.PostForm.Get("apikey"))
		_, _ = io.WriteString(w, `{"access_token":"tok","expires_in":3600}`)
	})
	mux.HandleFunc("/ml/v1/text/generation", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, watsonxAPIVersion, r.URL.Query().Get("version"))
		var body generationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "greedy", body.Parameters.DecodingMethod)
		assert.Equal(t, "proj", body.ProjectID)
		_, _ = fmt.Fprintf(w, `{"results":[{"generated_text":"echo:%s"}]}`, body.Input)
	})
	mux.HandleFunc("/ml/v1/text/generation_stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"مر", "حبا", ""} {
			_, _ = fmt.Fprintf(w, "id: 1\nevent: message\ndata: {\"results\":[{\"generated_text\":%q}]}\n\n", part)
		}
	})
	mux.HandleFunc("/fail/ml/v1/text/generation", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testWatsonx(srv *httptest.Server) *WatsonxClient {
	return NewWatsonxClient(WatsonxConfig{
		URL:          srv.URL,
		IAMURL:       srv.URL + "/identity/token",
		APIKey:       "secret",
		ProjectID:    "proj",
		ModelID:      "sdaia/allam-1-13b-instruct",
		MaxNewTokens: 64,
	})
}

func TestWatsonxGenerateCachesToken(t *testing.T) {
	var tokenCalls int32
	srv := newWatsonxServer(t, &tokenCalls)
	c := testWatsonx(srv)

	out, err := c.Generate(context.Background(), "Science")
	require.NoError(t, err)
	assert.Equal(t, "echo:Science", out)

	_, err = c.Generate(context.Background(), "again")
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&tokenCalls))
}

func TestWatsonxGenerateStream(t *testing.T) {
	var tokenCalls int32
	srv := newWatsonxServer(t, &tokenCalls)
	c := testWatsonx(srv)

	var chunks []string
	full, err := c.GenerateStream(context.Background(), "hi", func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"مر", "حبا"}, chunks)
	assert.Equal(t, "مرحبا", full)
}

func TestWatsonxGenerateStreamStopsOnCallbackError(t *testing.T) {
	var tokenCalls int32
	srv := newWatsonxServer(t, &tokenCalls)
	c := testWatsonx(srv)

	stop := errors.New("client gone")
	full, err := c.GenerateStream(context.Background(), "hi", func(string) error { return stop })
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, "مر", full)
}

func TestWatsonxUpstreamStatus(t *testing.T) {
	var tokenCalls int32
	srv := newWatsonxServer(t, &tokenCalls)
	c := testWatsonx(srv)
	c.cfg.URL = srv.URL + "/fail"

	_, err := c.Generate(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestSSMLEscapesText(t *testing.T) {
	out, err := SSML("ar-SA-ZariyahNeural", `a < b & "c"`)
	require.NoError(t, err)
	assert.Contains(t, out, `xml:lang="ar-SA"`)
	assert.Contains(t, out, `<voice name="ar-SA-ZariyahNeural">`)
	assert.Contains(t, out, "a &lt; b &amp; &#34;c&#34;")
}

func TestSpeechSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("Ocp-Apim-Subscription-Key"))
		assert.Equal(t, "application/ssml+xml", r.Header.Get("Content-Type"))
		assert.Equal(t, "riff-24khz-16bit-mono-pcm", r.Header.Get("X-Microsoft-OutputFormat"))
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "مرحبا")
		_, _ = w.Write([]byte("RIFFdata"))
	}))
	defer srv.Close()

	c := NewSpeechClient(SpeechConfig{
		Key:          "key",
		Voice:        "ar-SA-ZariyahNeural",
		OutputFormat: "riff-24khz-16bit-mono-pcm",
		Endpoint:     srv.URL,
	})
	audio, err := c.Synthesize(context.Background(), "مرحبا")
	require.NoError(t, err)
	defer audio.Close()
	raw, err := io.ReadAll(audio)
	require.NoError(t, err)
	assert.Equal(t, "RIFFdata", string(raw))
}

func TestOpenAIEmbedderBatchesAndOrders(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		var body struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		data := make([]string, len(body.Input))
		// Reverse order to check that Index drives placement.
		for i := range body.Input {
			idx := len(body.Input) - 1 - i
			data[i] = fmt.Sprintf(`{"object":"embedding","index":%d,"embedding":[%d]}`, idx, len(body.Input[idx]))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"object":"list","model":"m","data":[%s],"usage":{"prompt_tokens":1,"total_tokens":1}}`, strings.Join(data, ","))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIConfig{APIKey: "k", BaseURL: srv.URL, EmbeddingModel: "m"}, option.WithMaxRetries(0))
	texts := make([]string, 150)
	for i := range texts {
		texts[i] = strings.Repeat("x", i%7+1)
	}
	vectors, err := e.EmbedDocuments(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, 150)
	for i, v := range vectors {
		assert.Equal(t, []float32{float32(i%7 + 1)}, v)
	}
	assert.EqualValues(t, 2, atomic.LoadInt32(&requests))
	assert.Equal(t, "m", e.ModelName())
}
