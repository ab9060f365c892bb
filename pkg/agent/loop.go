package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/dotsetgreg/wanderbot/pkg/logger"
	"github.com/dotsetgreg/wanderbot/pkg/memory"
	"github.com/dotsetgreg/wanderbot/pkg/profile"
	"github.com/dotsetgreg/wanderbot/pkg/providers"
	"github.com/dotsetgreg/wanderbot/pkg/redact"
	"github.com/dotsetgreg/wanderbot/pkg/telemetry"
	"github.com/dotsetgreg/wanderbot/pkg/tools"
)

// Bot owns one conversation: its memory, declared tools and generation
// client. Respond calls are serialized.
type Bot struct {
	mu sync.Mutex

	sessionID        string
	name             string
	purpose          string
	specs            []tools.ToolSpec
	memory           *memory.ConversationMemory
	summaryMaxLength int
	contextBuilder   *ContextBuilder
	planner          Planner
	router           tools.Router
	generator        providers.Generator
	redactor         *redact.Redactor
	inst             *telemetry.Instruments
}

type Option func(*Bot)

func WithMemory(m *memory.ConversationMemory) Option {
	return func(b *Bot) {
		if m != nil {
			b.memory = m
		}
	}
}

func WithSummaryMaxLength(n int) Option {
	return func(b *Bot) {
		if n > 0 {
			b.summaryMaxLength = n
		}
	}
}

// WithPlanner swaps the keyword heuristic for another strategy.
func WithPlanner(p Planner) Option {
	return func(b *Bot) {
		if p != nil {
			b.planner = p
		}
	}
}

// WithRouter replaces the mock tool backends.
func WithRouter(r tools.Router) Option {
	return func(b *Bot) {
		if r != nil {
			b.router = r
		}
	}
}

func WithContextBuilder(cb *ContextBuilder) Option {
	return func(b *Bot) {
		if cb != nil {
			b.contextBuilder = cb
		}
	}
}

func WithInstruments(inst *telemetry.Instruments) Option {
	return func(b *Bot) {
		if inst != nil {
			b.inst = inst
		}
	}
}

// NewBot builds a bot from its profile. Tool specs are copied and fixed for
// the bot's lifetime.
func NewBot(p *profile.Profile, generator providers.Generator, opts ...Option) (*Bot, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: profile is nil", profile.ErrInvalidProfile)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if generator == nil {
		return nil, errors.New("generator is required")
	}

	specs := make([]tools.ToolSpec, len(p.Tools))
	copy(specs, p.Tools)

	b := &Bot{
		sessionID:        uuid.NewString(),
		name:             p.Name,
		purpose:          p.Purpose,
		specs:            specs,
		memory:           memory.New(memory.DefaultMaxTokens, memory.DefaultTargetContextTokens),
		summaryMaxLength: memory.DefaultSummaryMaxLength,
		contextBuilder:   NewContextBuilder(p.Purpose, p.UserProfile),
		planner:          KeywordPlanner{},
		generator:        generator,
		redactor:         redact.New(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.router == nil {
		router, err := tools.NewRouter(specs)
		if err != nil {
			return nil, err
		}
		b.router = router
	}
	if b.inst == nil {
		b.inst = telemetry.Default()
	}

	logger.DebugCF("agent", "Bot initialized",
		map[string]interface{}{
			"session_id": b.sessionID,
			"bot":        b.name,
			"tools":      len(b.specs),
		})
	return b, nil
}

func (b *Bot) SessionID() string { return b.sessionID }

func (b *Bot) Name() string { return b.name }

func (b *Bot) Tools() []tools.ToolSpec {
	out := make([]tools.ToolSpec, len(b.specs))
	copy(out, b.specs)
	return out
}

// Memory exposes the conversation log. Callers must not use it concurrently
// with Respond.
func (b *Bot) Memory() *memory.ConversationMemory { return b.memory }

type respondOptions struct {
	hints      map[string]interface{}
	toolResult string
}

type RespondOption func(*respondOptions)

// WithHints attaches caller-supplied context shown to the model.
func WithHints(hints map[string]interface{}) RespondOption {
	return func(o *respondOptions) { o.hints = hints }
}

// WithToolResult supplies a tool result directly. A non-empty result skips
// automatic planning.
func WithToolResult(result string) RespondOption {
	return func(o *respondOptions) { o.toolResult = result }
}

// Respond runs one turn: record the user message, build context, plan and
// call a tool, render the prompt, generate, redact and record the answer.
// Each successful call appends exactly one user and one assistant turn.
// The only error is a generation configuration error, after which memory is
// left as it was before the call.
func (b *Bot) Respond(ctx context.Context, userMessage string, opts ...RespondOption) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var ro respondOptions
	for _, opt := range opts {
		opt(&ro)
	}

	ctx, span := b.inst.Tracer.Start(ctx, "wanderbot.respond")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", b.sessionID))

	userMessage = strings.TrimSpace(userMessage)
	c := b.contextBuilder.Build(userMessage, ro.hints)
	checkpoint := b.memory.Turns()
	b.memory.Add(memory.RoleUser, c.SanitizedUserMessage)

	toolResult := ro.toolResult
	if toolResult == "" {
		if inv, ok := b.planner.Plan(userMessage); ok {
			toolResult = b.router.Call(ctx, inv.Name, inv.Args)
			b.inst.ToolCalls.Add(ctx, 1, metric.WithAttributes(attribute.String("tool", inv.Name)))
			span.SetAttributes(attribute.String("tool.name", inv.Name))
		}
	} else {
		logger.DebugCF("agent", "Using caller-supplied tool result",
			map[string]interface{}{"session_id": b.sessionID})
	}

	msgs := RenderPrompt(
		SystemPrompt(b.name, b.purpose),
		c,
		b.memory.Summary(b.summaryMaxLength),
		RenderToolsBlock(b.specs),
		c.SanitizedUserMessage,
		toolResult,
	)

	answer, err := b.generator.Generate(ctx, msgs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate failed")
		logger.ErrorCF("agent", "Generation failed",
			map[string]interface{}{
				"session_id": b.sessionID,
				"error":      err.Error(),
			})
		b.memory.Restore(checkpoint)
		return "", fmt.Errorf("generate: %w", err)
	}

	safe := b.redactor.Redact(answer)
	b.memory.Add(memory.RoleAssistant, safe)
	b.inst.Responses.Add(ctx, 1)

	logger.InfoCF("agent", "Response ready",
		map[string]interface{}{
			"session_id":    b.sessionID,
			"prompt_msgs":   len(msgs),
			"answer_len":    len(safe),
			"memory_turns":  b.memory.Len(),
			"memory_tokens": b.memory.TotalTokens(),
		})
	return safe, nil
}
