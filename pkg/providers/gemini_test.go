package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotsetgreg/wanderbot/pkg/config"
)

func newTestProvider(t *testing.T, serverURL, key string) *GeminiProvider {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Gemini.APIKey = key
	cfg.Gemini.APIBase = serverURL
	p, err := CreateProvider(cfg, nil)
	require.NoError(t, err)
	return p
}

func TestGenerate_SuccessSendsGeminiShape(t *testing.T) {
	var seenPath, seenKey string
	var req map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenPath = r.URL.Path
		seenKey = r.URL.Query().Get("key")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates":[{"content":{"role":"model","parts":[{"text":"  Go to Munnar. "}]}}],
			"usageMetadata":{"promptTokenCount":12,"candidatesTokenCount":4,"totalTokenCount":16}
		}`))
	}))
	defer server.Close()

	p := newTestProvider(t, server.URL, "test-key")
	got, err := p.Generate(context.Background(), []Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleAssistant, Content: "preamble"},
		{Role: RoleUser, Content: "plan a trip"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Go to Munnar.", got)
	assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", seenPath)
	assert.Equal(t, "test-key", seenKey)

	contents, ok := req["contents"].([]interface{})
	require.True(t, ok)
	require.Len(t, contents, 3)
	roles := make([]string, 0, len(contents))
	for _, c := range contents {
		roles = append(roles, c.(map[string]interface{})["role"].(string))
	}
	assert.Equal(t, []string{"system", "model", "user"}, roles)

	genCfg, ok := req["generationConfig"].(map[string]interface{})
	require.True(t, ok)
	assert.InDelta(t, 0.6, genCfg["temperature"], 1e-9)
	assert.InDelta(t, 0.9, genCfg["top_p"], 1e-9)
}

func TestChat_ReportsUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"a"},{"text":"b"}]}}],
			"usageMetadata":{"promptTokenCount":3,"candidatesTokenCount":2,"totalTokenCount":5}}`))
	}))
	defer server.Close()

	p := newTestProvider(t, server.URL, "k")
	resp, err := p.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ab", resp.Content)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 5, resp.Usage.TotalTokens)
}

func TestGenerate_HeaderAuth(t *testing.T) {
	var seenHeader, seenQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenHeader = r.Header.Get("x-goog-api-key")
		seenQuery = r.URL.Query().Get("key")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer server.Close()

	cfg := config.DefaultConfig()
	cfg.Gemini.APIKey = "hdr-key"
	cfg.Gemini.APIBase = server.URL
	cfg.Gemini.AuthMode = config.AuthModeHeader
	p, err := CreateProvider(cfg, nil)
	require.NoError(t, err)

	got, err := p.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, "hdr-key", seenHeader)
	assert.Empty(t, seenQuery)
}

func TestGenerate_MissingKeyFallsBack(t *testing.T) {
	p := NewGeminiProvider(GeminiOptions{OfflineFallback: true})
	got, err := p.Generate(context.Background(), []Message{
		{Role: RoleUser, Content: "older question"},
		{Role: RoleAssistant, Content: "older answer"},
		{Role: RoleUser, Content: "cheap hotels in Munnar under ₹2000"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, got)
	assert.Contains(t, got, "(Note: Using local stub.)")
	assert.Contains(t, got, "cheap hotels in Munnar under ₹2000")
	assert.NotContains(t, got, "older question")
}

func TestGenerate_MissingKeyStrict(t *testing.T) {
	p := NewGeminiProvider(GeminiOptions{OfflineFallback: false})
	_, err := p.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestGenerate_HTTPErrorFallsBackWithStatus(t *testing.T) {
	longBody := strings.Repeat("x", 500)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(longBody))
	}))
	defer server.Close()

	p := newTestProvider(t, server.URL, "k")
	got, err := p.Generate(context.Background(), []Message{{Role: RoleUser, Content: "weather in Ooty"}})
	require.NoError(t, err)
	assert.Contains(t, got, "HTTP 429: "+strings.Repeat("x", 200)+".)")
	assert.NotContains(t, got, strings.Repeat("x", 201))
	assert.Contains(t, got, "weather in Ooty")
}

func TestGenerate_MalformedResponseFallsBack(t *testing.T) {
	bodies := []string{
		`{"candidates":[]}`,
		`{"candidates":[{"content":{"parts":[{}]}}]}`,
		`not json`,
	}
	for _, body := range bodies {
		body := body
		t.Run(body, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer server.Close()

			p := newTestProvider(t, server.URL, "k")
			got, err := p.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hello"}})
			require.NoError(t, err)
			assert.Contains(t, got, "Using local stub – Malformed Gemini response.")
		})
	}
}

func TestGenerate_OversizedResponseIsCut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"`))
		_, _ = w.Write([]byte(strings.Repeat("a", maxGeminiResponseBytes)))
		_, _ = w.Write([]byte(`"}]}}]}`))
	}))
	defer server.Close()

	p := newTestProvider(t, server.URL, "k")
	_, err := p.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hello"}}, nil)
	var respErr *ResponseError
	require.ErrorAs(t, err, &respErr)

	got, err := p.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hello"}})
	require.NoError(t, err)
	assert.Contains(t, got, "Malformed Gemini response")
}

func TestGenerate_TransportErrorScrubsKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := server.URL
	server.Close()

	p := newTestProvider(t, base, "super-secret-key")
	got, err := p.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hello"}})
	require.NoError(t, err)
	assert.Contains(t, got, "request failed")
	assert.NotContains(t, got, "super-secret-key")
}

func TestFallbackAnswer_TruncatesUserText(t *testing.T) {
	long := strings.Repeat("आ", 150)
	got := FallbackAnswer([]Message{{Role: RoleUser, Content: long}}, "")
	assert.Contains(t, got, "→ "+strings.Repeat("आ", 120)+"...\n")
	assert.True(t, strings.HasPrefix(got, "I can't reach Gemini right now, but here's a quick plan: (Note: Using local stub.)\n\n"))
	assert.True(t, strings.HasSuffix(got, "  - Budget tips: use buses/metros, book early"))
}

func TestFallbackAnswer_NoUserTurn(t *testing.T) {
	got := FallbackAnswer([]Message{{Role: RoleSystem, Content: "sys"}}, "boom")
	assert.Contains(t, got, "(Note: Using local stub – boom.)")
	assert.Contains(t, got, "→ ...\n")
}

func TestNewAuthStrategy_RejectsUnknownMode(t *testing.T) {
	_, err := NewAuthStrategy("bearer", "k")
	assert.Error(t, err)
}

func TestAugmentProviderError_Hints(t *testing.T) {
	assert.Contains(t, augmentProviderError(400, "API key not valid. Please pass a valid API key."), "GENAI_API_KEY")
	assert.Contains(t, augmentProviderError(404, "models/foo is not found for API version v1beta"), "GEMINI_MODEL")
	assert.Equal(t, "plain", augmentProviderError(500, "plain"))
}

func TestExtractAPIError(t *testing.T) {
	body := []byte(`{"error":{"code":400,"message":"API key not valid.","status":"INVALID_ARGUMENT"}}`)
	assert.Equal(t, "INVALID_ARGUMENT: API key not valid.", extractAPIError(body))
	assert.Equal(t, "empty response body", extractAPIError(nil))
	assert.Equal(t, "oops", extractAPIError([]byte("oops")))
}
