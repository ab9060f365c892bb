package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/dotsetgreg/wanderbot/pkg/logger"
	"github.com/dotsetgreg/wanderbot/pkg/telemetry"
)

const (
	defaultGeminiAPIBase    = "https://generativelanguage.googleapis.com"
	defaultGeminiAPIVersion = "v1beta"
	defaultGeminiModel      = "gemini-2.0-flash"
	defaultGeminiTimeout    = 60 * time.Second
	geminiModelRole         = "model"

	// maxGeminiResponseBytes caps how much of a response body is read.
	// Anything longer is cut and then fails to decode.
	maxGeminiResponseBytes = 4 << 20
)

type GeminiOptions struct {
	APIKey          string
	APIBase         string
	APIVersion      string
	Model           string
	Temperature     float64
	TopP            float64
	Timeout         time.Duration
	OfflineFallback bool
	Auth            AuthStrategy
	HTTPClient      *http.Client
	Instruments     *telemetry.Instruments
}

// GeminiProvider talks to the generateContent endpoint of the Gemini API.
type GeminiProvider struct {
	apiKey          string
	apiBase         string
	apiVersion      string
	model           string
	temperature     float64
	topP            float64
	offlineFallback bool
	auth            AuthStrategy
	httpClient      *http.Client
	inst            *telemetry.Instruments
}

func NewGeminiProvider(opts GeminiOptions) *GeminiProvider {
	apiBase := strings.TrimRight(strings.TrimSpace(opts.APIBase), "/")
	if apiBase == "" {
		apiBase = defaultGeminiAPIBase
	}
	apiVersion := strings.Trim(strings.TrimSpace(opts.APIVersion), "/")
	if apiVersion == "" {
		apiVersion = defaultGeminiAPIVersion
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultGeminiModel
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultGeminiTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	auth := opts.Auth
	if auth == nil {
		auth = NewQueryKeyAuth(opts.APIKey)
	}
	inst := opts.Instruments
	if inst == nil {
		inst = telemetry.Default()
	}

	return &GeminiProvider{
		apiKey:          strings.TrimSpace(opts.APIKey),
		apiBase:         apiBase,
		apiVersion:      apiVersion,
		model:           model,
		temperature:     opts.Temperature,
		topP:            opts.TopP,
		offlineFallback: opts.OfflineFallback,
		auth:            auth,
		httpClient:      client,
		inst:            inst,
	}
}

func (p *GeminiProvider) GetDefaultModel() string {
	return p.model
}

func (p *GeminiProvider) endpoint() string {
	return fmt.Sprintf("%s/%s/models/%s:generateContent", p.apiBase, p.apiVersion, url.PathEscape(p.model))
}

// Generate returns the model answer, or the offline fallback on any
// transport or response failure. The only error it returns is
// ErrMissingAPIKey when offline fallback has been disabled.
func (p *GeminiProvider) Generate(ctx context.Context, messages []Message) (string, error) {
	if p.apiKey == "" {
		if !p.offlineFallback {
			return "", ErrMissingAPIKey
		}
		logger.DebugC("gemini", "No API key configured, answering from local stub")
		p.inst.LLMFallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "missing_key")))
		return FallbackAnswer(messages, ""), nil
	}

	resp, err := p.Chat(ctx, messages, nil)
	if err != nil {
		note, reason := p.fallbackNote(err)
		logger.WarnCF("gemini", "Generation failed, answering from local stub",
			map[string]interface{}{
				"model":  p.model,
				"reason": reason,
				"error":  note,
			})
		p.inst.LLMFallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
		return FallbackAnswer(messages, note), nil
	}
	return resp.Content, nil
}

func (p *GeminiProvider) fallbackNote(err error) (note, reason string) {
	var httpErr *HTTPError
	var respErr *ResponseError
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Error(), "http_status"
	case errors.As(err, &respErr):
		return respErr.Error(), "malformed_response"
	default:
		return p.scrub("request failed: " + err.Error()), "transport"
	}
}

// scrub removes the API key from strings that may embed the request URL.
func (p *GeminiProvider) scrub(s string) string {
	if p.apiKey == "" {
		return s
	}
	s = strings.ReplaceAll(s, p.apiKey, "***")
	return strings.ReplaceAll(s, url.QueryEscape(p.apiKey), "***")
}

// Chat performs one generateContent round trip. A nil gen uses the
// configured temperature and top_p.
func (p *GeminiProvider) Chat(ctx context.Context, messages []Message, gen *GenerationConfig) (*LLMResponse, error) {
	ctx, span := p.inst.Tracer.Start(ctx, "gemini.generate_content",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gen_ai.system", "gemini"),
			attribute.String("gen_ai.request.model", p.model),
			attribute.Int("gen_ai.request.messages", len(messages)),
		))
	defer span.End()
	start := time.Now()

	resp, err := p.doChat(ctx, messages, gen)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(errors.New(p.scrub(err.Error())))
		span.SetStatus(codes.Error, "generate content failed")
	}
	attrs := metric.WithAttributes(
		attribute.String("model", p.model),
		attribute.String("outcome", outcome),
	)
	p.inst.LLMRequests.Add(ctx, 1, attrs)
	p.inst.LLMDuration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)

	if resp != nil && resp.Usage != nil {
		span.SetAttributes(
			attribute.Int("gen_ai.usage.input_tokens", resp.Usage.PromptTokens),
			attribute.Int("gen_ai.usage.output_tokens", resp.Usage.CompletionTokens),
		)
		p.inst.TokenUsage.Add(ctx, int64(resp.Usage.PromptTokens), metric.WithAttributes(
			attribute.String("model", p.model), attribute.String("direction", "input")))
		p.inst.TokenUsage.Add(ctx, int64(resp.Usage.CompletionTokens), metric.WithAttributes(
			attribute.String("model", p.model), attribute.String("direction", "output")))
		logger.InfoCF("gemini", "Token usage",
			map[string]interface{}{
				"model":             p.model,
				"prompt_tokens":     resp.Usage.PromptTokens,
				"completion_tokens": resp.Usage.CompletionTokens,
				"total_tokens":      resp.Usage.TotalTokens,
			})
	}
	return resp, err
}

func (p *GeminiProvider) doChat(ctx context.Context, messages []Message, gen *GenerationConfig) (*LLMResponse, error) {
	if gen == nil {
		temperature, topP := p.temperature, p.topP
		gen = &GenerationConfig{Temperature: &temperature, TopP: &topP}
	}
	body := geminiRequest{
		Contents:         convertMessages(messages),
		GenerationConfig: gen,
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(), bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := p.auth.Apply(ctx, req); err != nil {
		return nil, err
	}

	logger.DebugCF("gemini", "Sending generateContent request",
		map[string]interface{}{
			"model":     p.model,
			"auth_mode": p.auth.Mode(),
			"contents":  len(body.Contents),
		})

	httpResp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxGeminiResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		logger.ErrorCF("gemini", "Gemini API request failed",
			map[string]interface{}{
				"status": httpResp.StatusCode,
				"error":  augmentProviderError(httpResp.StatusCode, extractAPIError(respBody)),
			})
		return nil, &HTTPError{Status: httpResp.StatusCode, Body: string(respBody)}
	}

	return parseGeminiResponse(respBody)
}

func parseGeminiResponse(body []byte) (*LLMResponse, error) {
	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &ResponseError{Reason: "Malformed Gemini response"}
	}
	if len(parsed.Candidates) == 0 {
		return nil, &ResponseError{Reason: "Malformed Gemini response"}
	}

	var text strings.Builder
	found := false
	for _, part := range parsed.Candidates[0].Content.Parts {
		if part.Text == nil {
			continue
		}
		text.WriteString(*part.Text)
		found = true
	}
	if !found {
		return nil, &ResponseError{Reason: "Malformed Gemini response"}
	}

	resp := &LLMResponse{Content: strings.TrimSpace(text.String())}
	if u := parsed.UsageMetadata; u != nil {
		resp.Usage = &UsageInfo{
			PromptTokens:     u.PromptTokenCount,
			CompletionTokens: u.CandidatesTokenCount,
			TotalTokens:      u.TotalTokenCount,
		}
	}
	return resp, nil
}

func convertMessages(messages []Message) []geminiContent {
	contents := make([]geminiContent, 0, len(messages))
	for _, m := range messages {
		text := m.Content
		contents = append(contents, geminiContent{
			Role:  mapRole(m.Role),
			Parts: []geminiPart{{Text: &text}},
		})
	}
	return contents
}

func mapRole(role string) string {
	if role == RoleAssistant {
		return geminiModelRole
	}
	return role
}

type geminiRequest struct {
	Contents         []geminiContent   `json:"contents"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates    []geminiCandidate `json:"candidates"`
	UsageMetadata *geminiUsage      `json:"usageMetadata"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text *string `json:"text,omitempty"`
}

type geminiUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}
