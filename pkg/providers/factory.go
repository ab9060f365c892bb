package providers

import (
	"fmt"
	"time"

	"github.com/dotsetgreg/wanderbot/pkg/config"
	"github.com/dotsetgreg/wanderbot/pkg/telemetry"
)

// CreateProvider builds the Gemini client from validated configuration.
func CreateProvider(cfg *config.Config, inst *telemetry.Instruments) (*GeminiProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	g := cfg.Gemini
	auth, err := NewAuthStrategy(g.AuthMode, g.APIKey)
	if err != nil {
		return nil, err
	}
	return NewGeminiProvider(GeminiOptions{
		APIKey:          g.APIKey,
		APIBase:         g.APIBase,
		APIVersion:      g.APIVersion,
		Model:           g.Model,
		Temperature:     g.Temperature,
		TopP:            g.TopP,
		Timeout:         time.Duration(g.TimeoutSeconds) * time.Second,
		OfflineFallback: g.OfflineFallback,
		Auth:            auth,
		Instruments:     inst,
	}), nil
}
