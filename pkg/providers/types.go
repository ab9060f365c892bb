package providers

import "context"

// Role names used on the wire by callers. Gemini renames assistant to model.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type UsageInfo struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type LLMResponse struct {
	Content string     `json:"content"`
	Usage   *UsageInfo `json:"usage,omitempty"`
}

// GenerationConfig overrides the per-request sampling settings. Zero fields
// are omitted from the request.
type GenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"top_p,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

// LLMProvider performs one raw generation round trip and reports failures.
type LLMProvider interface {
	Chat(ctx context.Context, messages []Message, gen *GenerationConfig) (*LLMResponse, error)
	GetDefaultModel() string
}

// Generator produces an answer for a message sequence, absorbing transport
// and response failures into a degraded answer.
type Generator interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}
