package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain unchanged", input: "[0, 2, 5]", want: "[0, 2, 5]"},
		{name: "json fence", input: "```json\n[1,4,9]\n```", want: "[1,4,9]"},
		{name: "html fence", input: "```html\n<b>Digest</b>\n```", want: "<b>Digest</b>"},
		{name: "bare fence", input: "```\nhello\n```", want: "hello"},
		{name: "whitespace", input: "  text  ", want: "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, StripCodeFence(tt.input))
		})
	}
}

func TestExtractJSONArray(t *testing.T) {
	require.Equal(t, "[1, 4, 9]", ExtractJSONArray("Here you go: [1, 4, 9] hope it helps"))
	require.Equal(t, "[0,2]", ExtractJSONArray("```json\n[0,2]\n```"))
	require.Equal(t, "no array", ExtractJSONArray("no array"))
}

func TestNewRejectsMissingKeyAndUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), Options{Provider: ProviderOpenAI})
	require.Error(t, err)

	_, err = New(context.Background(), Options{Provider: "llama", APIKey: "k"})
	require.ErrorContains(t, err, "unknown AI provider")

	c, err := New(context.Background(), Options{Provider: ProviderAnthropic, APIKey: "k"})
	require.NoError(t, err)
	require.IsType(t, &AnthropicClient{}, c)
}

func TestOpenAIClientGenerate(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": " [1, 4, 9] "}, "finish_reason": "stop"}]
		}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient(Options{APIKey: "test-key", BaseURL: srv.URL + "/v1", Timeout: 5 * time.Second})
	out, err := c.Generate(context.Background(), Request{System: "sys", Prompt: "rank", Temperature: Float32(0)})

	require.NoError(t, err)
	require.Equal(t, "[1, 4, 9]", out)
	require.Equal(t, "gpt-4o", gotBody["model"])
	messages := gotBody["messages"].([]any)
	require.Len(t, messages, 2)
	require.Equal(t, "system", messages[0].(map[string]any)["role"])
	require.Equal(t, "rank", messages[1].(map[string]any)["content"])
	require.Contains(t, gotBody, "temperature")
}

func TestOpenAIClientErrorStatus(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error": {"message": "boom", "type": "server_error"}}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient(Options{APIKey: "k", BaseURL: srv.URL + "/v1", Timeout: 5 * time.Second})
	_, err := c.Generate(context.Background(), Request{Prompt: "x"})

	require.Error(t, err)
	require.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestAnthropicClientGenerate(t *testing.T) {
	var hits int32
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		require.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-haiku-latest",
			"content": [{"type": "text", "text": "ESSENCE: ok"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 3, "output_tokens": 2}
		}`)
	}))
	defer srv.Close()

	c := NewAnthropicClient(Options{APIKey: "k", BaseURL: srv.URL, Timeout: 5 * time.Second})
	out, err := c.Generate(context.Background(), Request{System: "be brief", Prompt: "summarize"})

	require.NoError(t, err)
	require.Equal(t, "ESSENCE: ok", out)
	require.EqualValues(t, 1, atomic.LoadInt32(&hits))
	require.Equal(t, "claude-3-5-haiku-latest", gotBody["model"])
}

func TestGeminiText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("[0, "), genai.Text("2]")}},
		}},
	}
	out, err := geminiText(resp)
	require.NoError(t, err)
	require.Equal(t, "[0, 2]", out)

	_, err = geminiText(&genai.GenerateContentResponse{})
	require.ErrorIs(t, err, ErrEmptyResponse)

	_, err = geminiText(nil)
	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGeminiClientGenerate(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		require.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-1.5-flash:generateContent"), r.URL.Path)
		require.Equal(t, "g-key", r.Header.Get("x-goog-api-key"))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"[1, 4, 9]"}]},"finishReason":"STOP"}]}`)
	}))
	defer srv.Close()

	c, err := NewGeminiClient(context.Background(), Options{APIKey: "g-key", BaseURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	defer c.Close()

	out, err := c.Generate(context.Background(), Request{System: "rank", Prompt: "list", Temperature: Float32(0)})
	require.NoError(t, err)
	require.Equal(t, "[1, 4, 9]", out)
	require.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestGeminiClientDoesNotRetryUnavailable(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, `{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`)
	}))
	defer srv.Close()

	c, err := NewGeminiClient(context.Background(), Options{APIKey: "g-key", BaseURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	defer c.Close()

	start := time.Now()
	_, err = c.Generate(context.Background(), Request{Prompt: "summarize"})

	require.ErrorContains(t, err, "gemini API status 503")
	require.EqualValues(t, 1, atomic.LoadInt32(&hits))
	require.Less(t, time.Since(start), time.Second, "no backoff pause between attempts")
}
