package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dotsetgreg/wanderbot/pkg/providers"
	"github.com/dotsetgreg/wanderbot/pkg/tools"
)

const systemPromptTemplate = `You are %s, a friendly, practical travel assistant for Indian users.
Goal: %s
Style: concise, optimistic, step-by-step when planning. Use Indian context (₹, train/bus options) when relevant.
Safety: Do not request or store sensitive PII. If user shares PII, redact and proceed.
Tool use: If tools are available, explain when you used them and incorporate results.
If the user asks for medical or legal advice, give general info + advise consulting a professional.`

const guardrails = "Tasks: Classify intent → extract entities (city, dates, budget, food prefs) → plan → answer.\n" +
	"Avoid hallucinating unavailable data; ask for missing key details in 1-2 short questions if essential.\n" +
	"Prefer bullet itineraries with morning/afternoon/evening blocks. Use ₹ for currency."

const noToolsSentinel = "(No external tools available)"

var fewShots = []providers.Message{
	{
		Role:    providers.RoleUser,
		Content: "find me cheap hotels in goa for this weekend",
	},
	{
		Role: providers.RoleAssistant,
		Content: "Intent: hotel_search\n" +
			"Entities: city=Goa, dates=this weekend, constraints=cheap\n" +
			"Plan: 1) check weather 2) fetch hotels 3) sort by price 4) suggest transport\n" +
			"Answer (friendly + concise): Here are budget-friendly stays in Goa for the weekend...",
	},
	{
		Role:    providers.RoleUser,
		Content: "itinerary for 2 days in Pondicherry, vegetarian food only",
	},
	{
		Role: providers.RoleAssistant,
		Content: "Intent: itinerary\n" +
			"Entities: city=Pondicherry, duration=2 days, diet=vegetarian\n" +
			"Plan: morning/afternoon/evening blocks with veg eateries near sights\n" +
			"Answer: Day 1: Promenade Beach sunrise... veg cafés nearby... Day 2: Auroville...",
	},
}

// SystemPrompt fills the persona template.
func SystemPrompt(botName, appPurpose string) string {
	return fmt.Sprintf(systemPromptTemplate, botName, appPurpose)
}

// FewShots returns a copy of the canned example exchanges.
func FewShots() []providers.Message {
	out := make([]providers.Message, len(fewShots))
	copy(out, fewShots)
	return out
}

// RenderToolsBlock lists each tool with its schema as compact JSON.
func RenderToolsBlock(specs []tools.ToolSpec) string {
	if len(specs) == 0 {
		return noToolsSentinel
	}
	lines := []string{"Available Tools:"}
	for _, spec := range specs {
		schema := spec.Schema
		if schema == nil {
			schema = map[string]string{}
		}
		lines = append(lines, fmt.Sprintf("- %s: %s. Schema: %s", spec.Name, spec.Description, compactJSON(schema)))
	}
	return strings.Join(lines, "\n")
}

func renderContextBlock(c Context) string {
	return fmt.Sprintf("Time: %s | Season: %s\nUser profile: %s\nHints: %s\n",
		c.Timestamp.Format(timestampLayout), c.Season, compactJSON(c.UserProfile), compactJSON(c.Hints))
}

// RenderPrompt assembles the message sequence sent to the model: system
// persona, few-shot examples, an assistant preamble carrying context, memory,
// tools and guardrails, the user message, then the tool result if any.
func RenderPrompt(system string, c Context, memorySummary, toolsBlock, userMessage, toolResult string) []providers.Message {
	if memorySummary == "" {
		memorySummary = "None"
	}
	preamble := fmt.Sprintf("[Context]\n%s\n[Memory]\n%s\n[Tools]\n%s\n[Guardrails]\n%s\n",
		renderContextBlock(c), memorySummary, toolsBlock, guardrails)

	msgs := make([]providers.Message, 0, len(fewShots)+4)
	msgs = append(msgs, providers.Message{Role: providers.RoleSystem, Content: system})
	msgs = append(msgs, FewShots()...)
	msgs = append(msgs, providers.Message{Role: providers.RoleAssistant, Content: preamble})
	msgs = append(msgs, providers.Message{Role: providers.RoleUser, Content: userMessage})
	if toolResult != "" {
		msgs = append(msgs, providers.Message{
			Role:    providers.RoleAssistant,
			Content: "Tool result incorporated: " + toolResult,
		})
	}
	return msgs
}

// compactJSON encodes without HTML escaping so ₹ and & survive as typed.
func compactJSON(v interface{}) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "{}"
	}
	return strings.TrimRight(buf.String(), "\n")
}
