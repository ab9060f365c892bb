package agent

import (
	"github.com/dotsetgreg/wanderbot/pkg/config"
	"github.com/dotsetgreg/wanderbot/pkg/memory"
	"github.com/dotsetgreg/wanderbot/pkg/profile"
	"github.com/dotsetgreg/wanderbot/pkg/providers"
	"github.com/dotsetgreg/wanderbot/pkg/telemetry"
)

// NewBotFromConfig loads the configured profile and Gemini client and sizes
// memory from cfg.
func NewBotFromConfig(cfg *config.Config, inst *telemetry.Instruments) (*Bot, error) {
	p, err := profile.Load(cfg.ProfilePath())
	if err != nil {
		return nil, err
	}
	provider, err := providers.CreateProvider(cfg, inst)
	if err != nil {
		return nil, err
	}
	mem := memory.New(cfg.Memory.MaxTokens, cfg.Memory.TargetContextTokens,
		memory.WithEstimator(memory.CharEstimator{CharsPerToken: cfg.Memory.CharsPerToken}))
	return NewBot(p, provider,
		WithMemory(mem),
		WithSummaryMaxLength(cfg.Memory.SummaryMaxLength),
		WithInstruments(inst),
	)
}
