// Package memory holds the bounded, in-process conversation log for one bot
// instance. It is not safe for concurrent use; callers serialize access or
// keep one ConversationMemory per session.
package memory

import (
	"fmt"
	"strings"

	"github.com/dotsetgreg/wanderbot/pkg/logger"
)

// ConversationMemory is an append-only sequence of turns capped by an
// estimated token budget. When the estimated total exceeds MaxTokens the
// oldest turns are dropped until the retained suffix fits TargetContextTokens.
type ConversationMemory struct {
	turns               []Turn
	maxTokens           int
	targetContextTokens int
	estimator           Estimator
}

type Option func(*ConversationMemory)

// WithEstimator replaces the default four-characters-per-token heuristic.
func WithEstimator(e Estimator) Option {
	return func(m *ConversationMemory) {
		if e != nil {
			m.estimator = e
		}
	}
}

// New returns an empty memory. Non-positive budgets fall back to the defaults,
// and a target above maxTokens is clamped to maxTokens.
func New(maxTokens, targetContextTokens int, opts ...Option) *ConversationMemory {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if targetContextTokens <= 0 {
		targetContextTokens = DefaultTargetContextTokens
	}
	if targetContextTokens > maxTokens {
		targetContextTokens = maxTokens
	}
	m := &ConversationMemory{
		maxTokens:           maxTokens,
		targetContextTokens: targetContextTokens,
		estimator:           CharEstimator{CharsPerToken: 4},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Add appends a turn and evicts old turns if the budget is exceeded.
func (m *ConversationMemory) Add(role Role, content string) {
	m.turns = append(m.turns, Turn{Role: role, Content: content})
	m.shrinkIfNeeded()
}

// Turns returns a copy of the retained turns in chronological order.
func (m *ConversationMemory) Turns() []Turn {
	out := make([]Turn, len(m.turns))
	copy(out, m.turns)
	return out
}

// Restore replaces the retained turns with a copy of turns, typically a
// value previously returned by Turns.
func (m *ConversationMemory) Restore(turns []Turn) {
	m.turns = make([]Turn, len(turns))
	copy(m.turns, turns)
}

func (m *ConversationMemory) Len() int { return len(m.turns) }

func (m *ConversationMemory) MaxTokens() int { return m.maxTokens }

func (m *ConversationMemory) TargetContextTokens() int { return m.targetContextTokens }

// TotalTokens is the estimated token cost of every retained turn.
func (m *ConversationMemory) TotalTokens() int {
	total := 0
	for _, t := range m.turns {
		total += m.estimator.Estimate(t.Content)
	}
	return total
}

// LastUser returns the content of the most recent user turn.
func (m *ConversationMemory) LastUser() (string, bool) {
	for i := len(m.turns) - 1; i >= 0; i-- {
		if m.turns[i].Role == RoleUser {
			return m.turns[i].Content, true
		}
	}
	return "", false
}

// Summary renders a compact gist of older turns followed by the last six
// turns verbatim. The gist is cut to maxLength-40 runes and ellipsized.
// An empty memory yields "".
func (m *ConversationMemory) Summary(maxLength int) string {
	if len(m.turns) == 0 {
		return ""
	}
	if maxLength <= 0 {
		maxLength = DefaultSummaryMaxLength
	}

	split := len(m.turns) - recentTurnWindow
	if split < 0 {
		split = 0
	}
	earlier := m.turns[:split]
	recent := m.turns[split:]

	earlierHint := ""
	if len(earlier) > 0 {
		parts := make([]string, 0, len(earlier))
		for _, t := range earlier {
			parts = append(parts, t.Content)
		}
		earlierHint = truncateRunes(strings.Join(parts, " "), maxLength-40) + "…"
	}

	lines := make([]string, 0, len(recent))
	for _, t := range recent {
		lines = append(lines, fmt.Sprintf("%s: %s", t.Role, t.Content))
	}

	return fmt.Sprintf("Earlier gist: %s\nRecent turns:\n%s", earlierHint, strings.Join(lines, "\n"))
}

func (m *ConversationMemory) shrinkIfNeeded() {
	total := m.TotalTokens()
	if total <= m.maxTokens {
		return
	}

	// Walk newest to oldest; the most recent turn is always kept even when it
	// alone exceeds the target.
	kept := 0
	running := 0
	for i := len(m.turns) - 1; i >= 0; i-- {
		cost := m.estimator.Estimate(m.turns[i].Content)
		if running+cost > m.targetContextTokens && kept > 0 {
			break
		}
		running += cost
		kept++
	}

	dropped := len(m.turns) - kept
	retained := make([]Turn, kept)
	copy(retained, m.turns[dropped:])
	m.turns = retained

	logger.DebugCF("memory", "Conversation memory trimmed",
		map[string]interface{}{
			"dropped_turns":   dropped,
			"retained_turns":  kept,
			"retained_tokens": running,
			"previous_tokens": total,
		})
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
