package providers

import (
	"errors"
	"fmt"
)

// ErrMissingAPIKey is returned by Generate only when offline fallback is disabled.
var ErrMissingAPIKey = errors.New("GENAI_API_KEY not set")

// HTTPError reports a non-2xx status from the generation endpoint.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, truncateRunes(e.Body, maxErrorBodyRunes))
}

// ResponseError reports a 2xx response that could not be decoded into text.
type ResponseError struct {
	Reason string
}

func (e *ResponseError) Error() string {
	return e.Reason
}

const maxErrorBodyRunes = 200

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
