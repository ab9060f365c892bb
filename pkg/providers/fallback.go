package providers

import (
	"fmt"
	"strings"
)

const fallbackSnippetRunes = 120

// FallbackAnswer is the deterministic offline answer. It echoes the leading
// text of the most recent user message and an optional failure note.
func FallbackAnswer(messages []Message, note string) string {
	userLast := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			userLast = messages[i].Content
			break
		}
	}

	apology := " (Note: Using local stub.)"
	if note != "" {
		apology = fmt.Sprintf(" (Note: Using local stub – %s.)", note)
	}

	var sb strings.Builder
	sb.WriteString("I can't reach Gemini right now, but here's a quick plan:")
	sb.WriteString(apology)
	sb.WriteString("\n\n")
	sb.WriteString("• Intent guess: travel_planning\n")
	sb.WriteString("• Plan: 1) confirm dates/budget 2) check weather 3) propose itinerary 4) list hotels/food\n")
	fmt.Fprintf(&sb, "• Suggestion for your request → %s...\n", truncateRunes(userLast, fallbackSnippetRunes))
	sb.WriteString("  - Morning: sightseeing\n")
	sb.WriteString("  - Afternoon: local food\n")
	sb.WriteString("  - Evening: market walk\n")
	sb.WriteString("  - Budget tips: use buses/metros, book early")
	return sb.String()
}
