package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const (
	AuthModeQuery  = "query"
	AuthModeHeader = "header"

	apiKeyHeader = "x-goog-api-key"
)

// AuthStrategy applies request auth for Gemini HTTP calls.
type AuthStrategy interface {
	Mode() string
	Apply(ctx context.Context, req *http.Request) error
}

type queryKeyAuth struct {
	key string
}

// NewQueryKeyAuth sends the API key as the ?key= query parameter.
func NewQueryKeyAuth(key string) AuthStrategy {
	return &queryKeyAuth{key: strings.TrimSpace(key)}
}

func (a *queryKeyAuth) Mode() string {
	return AuthModeQuery
}

func (a *queryKeyAuth) Apply(_ context.Context, req *http.Request) error {
	if a.key == "" {
		return ErrMissingAPIKey
	}
	q := req.URL.Query()
	q.Set("key", a.key)
	req.URL.RawQuery = q.Encode()
	return nil
}

type headerKeyAuth struct {
	key string
}

// NewHeaderKeyAuth sends the API key in the x-goog-api-key header, keeping it
// out of URLs and transport error strings.
func NewHeaderKeyAuth(key string) AuthStrategy {
	return &headerKeyAuth{key: strings.TrimSpace(key)}
}

func (a *headerKeyAuth) Mode() string {
	return AuthModeHeader
}

func (a *headerKeyAuth) Apply(_ context.Context, req *http.Request) error {
	if a.key == "" {
		return ErrMissingAPIKey
	}
	req.Header.Set(apiKeyHeader, a.key)
	return nil
}

// NewAuthStrategy maps a config auth mode onto a strategy.
func NewAuthStrategy(mode, key string) (AuthStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", AuthModeQuery:
		return NewQueryKeyAuth(key), nil
	case AuthModeHeader:
		return NewHeaderKeyAuth(key), nil
	default:
		return nil, fmt.Errorf("unsupported auth mode %q (use %q or %q)", mode, AuthModeQuery, AuthModeHeader)
	}
}
