package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotsetgreg/wanderbot/pkg/config"
	"github.com/dotsetgreg/wanderbot/pkg/memory"
	"github.com/dotsetgreg/wanderbot/pkg/profile"
	"github.com/dotsetgreg/wanderbot/pkg/providers"
	"github.com/dotsetgreg/wanderbot/pkg/redact"
	"github.com/dotsetgreg/wanderbot/pkg/tools"
)

type recordingGenerator struct {
	answer string
	err    error
	calls  [][]providers.Message
}

func (g *recordingGenerator) Generate(_ context.Context, messages []providers.Message) (string, error) {
	g.calls = append(g.calls, messages)
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

func (g *recordingGenerator) last() []providers.Message {
	return g.calls[len(g.calls)-1]
}

type countingRouter struct {
	calls []tools.Invocation
}

func (r *countingRouter) Call(_ context.Context, name string, args map[string]interface{}) string {
	r.calls = append(r.calls, tools.Invocation{Name: name, Args: args})
	return "routed " + name
}

func TestRespond_EndToEndOffline(t *testing.T) {
	gen := providers.NewGeminiProvider(providers.GeminiOptions{OfflineFallback: true})
	bot, err := NewBot(profile.Default(), gen)
	require.NoError(t, err)
	require.Len(t, bot.Tools(), 2)

	before := bot.Memory().Turns()
	answer, err := bot.Respond(context.Background(), "cheap hotels in Munnar under ₹2000")
	require.NoError(t, err)
	assert.NotEmpty(t, answer)
	assert.Contains(t, answer, "cheap hotels in Munnar under ₹2000")

	after := bot.Memory().Turns()
	require.Len(t, after, len(before)+2)
	assert.Equal(t, memory.Turn{Role: memory.RoleUser, Content: "cheap hotels in Munnar under ₹2000"}, after[len(after)-2])
	assert.Equal(t, memory.Turn{Role: memory.RoleAssistant, Content: answer}, after[len(after)-1])
}

func TestRespond_PlansAndIncorporatesToolResult(t *testing.T) {
	gen := &recordingGenerator{answer: "Here you go"}
	bot, err := NewBot(profile.Default(), gen)
	require.NoError(t, err)

	_, err = bot.Respond(context.Background(), "find hotels in Goa under ₹3000")
	require.NoError(t, err)

	msgs := gen.last()
	last := msgs[len(msgs)-1]
	assert.Equal(t, providers.RoleAssistant, last.Role)
	assert.True(t, strings.HasPrefix(last.Content, "Tool result incorporated: Top budget stays in Goa under ₹3000:"))
	assert.Equal(t, providers.Message{Role: providers.RoleUser, Content: "find hotels in Goa under ₹3000"}, msgs[len(msgs)-2])
}

func TestRespond_ExplicitToolResultSkipsPlanning(t *testing.T) {
	gen := &recordingGenerator{answer: "ok"}
	router := &countingRouter{}
	bot, err := NewBot(profile.Default(), gen, WithRouter(router))
	require.NoError(t, err)

	_, err = bot.Respond(context.Background(), "weather in Chennai", WithToolResult("35°C and sunny"))
	require.NoError(t, err)
	assert.Empty(t, router.calls)

	msgs := gen.last()
	assert.Equal(t, "Tool result incorporated: 35°C and sunny", msgs[len(msgs)-1].Content)
}

func TestRespond_NoToolWhenNoKeywords(t *testing.T) {
	gen := &recordingGenerator{answer: "ok"}
	router := &countingRouter{}
	bot, err := NewBot(profile.Default(), gen, WithRouter(router))
	require.NoError(t, err)

	_, err = bot.Respond(context.Background(), "itinerary for Pondicherry")
	require.NoError(t, err)
	assert.Empty(t, router.calls)
	msgs := gen.last()
	assert.Equal(t, providers.RoleUser, msgs[len(msgs)-1].Role)
}

func TestRespond_RedactsBothDirections(t *testing.T) {
	gen := &recordingGenerator{answer: "Mail me at guide@example.com"}
	bot, err := NewBot(profile.Default(), gen)
	require.NoError(t, err)

	answer, err := bot.Respond(context.Background(), "my phone is 9876543210, plan Ooty")
	require.NoError(t, err)
	assert.Equal(t, "Mail me at "+redact.Token, answer)

	msgs := gen.last()
	for _, m := range msgs {
		assert.NotContains(t, m.Content, "9876543210")
	}
	for _, turn := range bot.Memory().Turns() {
		assert.NotContains(t, turn.Content, "9876543210")
		assert.NotContains(t, turn.Content, "guide@example.com")
	}
}

func TestRespond_HintsReachPreamble(t *testing.T) {
	gen := &recordingGenerator{answer: "ok"}
	bot, err := NewBot(profile.Default(), gen)
	require.NoError(t, err)

	_, err = bot.Respond(context.Background(), "plan a trip", WithHints(map[string]interface{}{"dates": "next week"}))
	require.NoError(t, err)
	assert.Contains(t, gen.last()[5].Content, `Hints: {"dates":"next week"}`)
}

func TestRespond_MemorySummaryIncludesHistory(t *testing.T) {
	gen := &recordingGenerator{answer: "first answer"}
	bot, err := NewBot(profile.Default(), gen)
	require.NoError(t, err)

	_, err = bot.Respond(context.Background(), "first question")
	require.NoError(t, err)
	_, err = bot.Respond(context.Background(), "second question")
	require.NoError(t, err)

	preamble := gen.last()[5].Content
	assert.Contains(t, preamble, "user: first question\nassistant: first answer\nuser: second question")
}

func TestRespond_GeneratorErrorPropagates(t *testing.T) {
	gen := &recordingGenerator{err: providers.ErrMissingAPIKey}
	bot, err := NewBot(profile.Default(), gen)
	require.NoError(t, err)

	_, err = bot.Respond(context.Background(), "hello")
	assert.True(t, errors.Is(err, providers.ErrMissingAPIKey))
	assert.Equal(t, 0, bot.Memory().Len())
}

func TestRespond_GeneratorErrorKeepsEarlierTurns(t *testing.T) {
	gen := &recordingGenerator{answer: "first answer"}
	bot, err := NewBot(profile.Default(), gen, WithMemory(memory.New(40, 20)))
	require.NoError(t, err)

	_, err = bot.Respond(context.Background(), "first question")
	require.NoError(t, err)
	before := bot.Memory().Turns()
	require.Len(t, before, 2)

	gen.err = providers.ErrMissingAPIKey
	long := strings.Repeat("tell me more about the backwaters ", 10)
	_, err = bot.Respond(context.Background(), long)
	require.Error(t, err)
	assert.Equal(t, before, bot.Memory().Turns())
}

func TestNewBot_Validation(t *testing.T) {
	_, err := NewBot(nil, &recordingGenerator{})
	assert.ErrorIs(t, err, profile.ErrInvalidProfile)

	_, err = NewBot(&profile.Profile{Name: "x"}, &recordingGenerator{})
	assert.ErrorIs(t, err, profile.ErrInvalidProfile)

	_, err = NewBot(profile.Default(), nil)
	assert.Error(t, err)
}

func TestNewBotFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Memory.MaxTokens = 100
	cfg.Memory.TargetContextTokens = 50

	bot, err := NewBotFromConfig(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "WanderBot", bot.Name())
	assert.Equal(t, 100, bot.Memory().MaxTokens())
	assert.Equal(t, 50, bot.Memory().TargetContextTokens())
	assert.NotEmpty(t, bot.SessionID())
}
