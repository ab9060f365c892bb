package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dotsetgreg/wanderbot/pkg/logger"
)

const (
	defaultHTTPToolTimeout = 15 * time.Second
	maxHTTPToolResultBytes = 8 << 10
)

// HTTPBackend describes a live endpoint for a tool. Arguments are POSTed as
// a JSON object and the response body becomes the tool result.
type HTTPBackend struct {
	URL            string            `yaml:"url"`
	Headers        map[string]string `yaml:"headers,omitempty"`
	TimeoutSeconds int               `yaml:"timeout_seconds,omitempty"`
}

// HTTPTool calls an HTTPBackend. Failures are reported in the result text.
type HTTPTool struct {
	name    string
	url     string
	headers map[string]string
	client  *http.Client
}

func NewHTTPTool(name string, backend HTTPBackend) (*HTTPTool, error) {
	url := strings.TrimSpace(backend.URL)
	if url == "" {
		return nil, fmt.Errorf("tool %s: backend url is required", name)
	}
	timeout := defaultHTTPToolTimeout
	if backend.TimeoutSeconds > 0 {
		timeout = time.Duration(backend.TimeoutSeconds) * time.Second
	}
	headers := make(map[string]string, len(backend.Headers))
	for k, v := range backend.Headers {
		headers[k] = ResolveSecretRef(v)
	}
	return &HTTPTool{
		name:    name,
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (t *HTTPTool) Name() string { return t.name }

func (t *HTTPTool) Execute(ctx context.Context, args map[string]interface{}) string {
	if args == nil {
		args = map[string]interface{}{}
	}
	body, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("Tool '%s' failed: encode args: %v", t.name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Sprintf("Tool '%s' failed: %v", t.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		logger.WarnCF("tool", "HTTP tool request failed",
			map[string]interface{}{
				"tool":  t.name,
				"error": err.Error(),
			})
		return fmt.Sprintf("Tool '%s' failed: backend unreachable", t.name)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxHTTPToolResultBytes))
	if err != nil {
		return fmt.Sprintf("Tool '%s' failed: read response: %v", t.name, err)
	}
	text := strings.TrimSpace(string(data))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Sprintf("Tool '%s' failed: HTTP %d: %s", t.name, resp.StatusCode, truncateLogString(text))
	}
	return text
}

// ResolveSecretRef resolves values of the form "env:VAR_NAME" so profiles
// can reference credentials without embedding them.
func ResolveSecretRef(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(strings.ToLower(raw), "env:") {
		return raw
	}
	key := strings.TrimSpace(raw[4:])
	if key == "" {
		return ""
	}
	return os.Getenv(key)
}

// NewRouter attaches the built-in mocks, then replaces them with HTTP
// backends for specs that declare one.
func NewRouter(specs []ToolSpec) (*ToolRegistry, error) {
	r := NewMockRouter(specs)
	for _, spec := range r.Specs() {
		if spec.Backend == nil {
			continue
		}
		tool, err := NewHTTPTool(spec.Name, *spec.Backend)
		if err != nil {
			return nil, err
		}
		r.Register(tool)
	}
	return r, nil
}
