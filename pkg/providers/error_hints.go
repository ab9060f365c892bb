package providers

import (
	"encoding/json"
	"net/http"
	"strings"
)

// augmentProviderError appends an operator hint to known Gemini failures.
func augmentProviderError(status int, message string) string {
	msg := strings.TrimSpace(message)
	if msg == "" {
		return msg
	}
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "api key not valid") || strings.Contains(lower, "api_key_invalid"):
		return msg + " Hint: check GENAI_API_KEY; keys are issued from Google AI Studio."
	case status == http.StatusNotFound || strings.Contains(lower, "is not found for api version"):
		return msg + " Hint: the model may not exist for this API version; check GEMINI_MODEL and GEMINI_API_VERSION."
	case status == http.StatusTooManyRequests || strings.Contains(lower, "resource_exhausted"):
		return msg + " Hint: quota exhausted; wait and retry or switch to a smaller model."
	case status == http.StatusForbidden || strings.Contains(lower, "permission_denied"):
		return msg + " Hint: the key lacks access to the Generative Language API for this project."
	}
	return msg
}

// extractAPIError pulls the human-readable message out of a Google API error body.
func extractAPIError(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "empty response body"
	}

	var payload struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		msg := strings.TrimSpace(payload.Error.Message)
		if msg != "" {
			if payload.Error.Status != "" {
				return payload.Error.Status + ": " + msg
			}
			return msg
		}
	}

	if len(trimmed) > 2000 {
		return trimmed[:2000] + "..."
	}
	return trimmed
}
