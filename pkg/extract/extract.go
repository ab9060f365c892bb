// Package extract turns free-form travel write-ups into structured records
// using a single constrained Gemini call.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/dotsetgreg/wanderbot/pkg/logger"
	"github.com/dotsetgreg/wanderbot/pkg/providers"
)

// TravelSubmission is the structured form of a user's travel experience.
type TravelSubmission struct {
	Name                string `json:"name"`
	Location            string `json:"location"`
	Description         string `json:"description"`
	Season              string `json:"season"`
	RecommendedActivity string `json:"recommended_activity"`
}

const instructions = "You are WanderBot, an assistant that converts travel experiences into structured JSON\n" +
	"with the following fields: name, location, description, season, and recommended_activity.\n" +
	"Always respond in valid JSON only."

const submissionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "location", "description", "season", "recommended_activity"],
  "properties": {
    "name": {"type": "string"},
    "location": {"type": "string"},
    "description": {"type": "string"},
    "season": {"type": "string"},
    "recommended_activity": {"type": "string"}
  }
}`

const maxOutputTokens = 200

// Parser extracts TravelSubmission records.
type Parser struct {
	provider providers.LLMProvider
	schema   *jsonschema.Schema
}

func NewParser(provider providers.LLMProvider) (*Parser, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	schema, err := jsonschema.CompileString("travel_submission.json", submissionSchema)
	if err != nil {
		return nil, fmt.Errorf("compile submission schema: %w", err)
	}
	return &Parser{provider: provider, schema: schema}, nil
}

// Parse returns the extracted record, or false when the model call fails or
// its output is not a valid submission. Failures are logged, never returned.
func (p *Parser) Parse(ctx context.Context, submission string) (*TravelSubmission, bool) {
	msgs := []providers.Message{
		{Role: providers.RoleUser, Content: userPrompt(submission)},
		{Role: providers.RoleAssistant, Content: instructions},
	}
	resp, err := p.provider.Chat(ctx, msgs, &providers.GenerationConfig{
		StopSequences:   []string{"\n\n"},
		MaxOutputTokens: maxOutputTokens,
	})
	if err != nil {
		logger.WarnCF("extract", "Submission extraction request failed",
			map[string]interface{}{"error": err.Error()})
		return nil, false
	}

	out, err := p.decode(resp.Content)
	if err != nil {
		logger.WarnCF("extract", "Model output is not a valid travel submission",
			map[string]interface{}{
				"error":      err.Error(),
				"raw_output": resp.Content,
			})
		return nil, false
	}
	return out, true
}

func userPrompt(submission string) string {
	return "Here is a new travel submission:\n" +
		strings.TrimSpace(submission) + "\n" +
		"Please convert this submission into structured JSON."
}

func (p *Parser) decode(raw string) (*TravelSubmission, error) {
	body := stripCodeFence(raw)

	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if err := p.schema.Validate(doc); err != nil {
		return nil, err
	}

	var out TravelSubmission
	if err := json.NewDecoder(bytes.NewReader([]byte(body))).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode submission: %w", err)
	}
	return &out, nil
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}
