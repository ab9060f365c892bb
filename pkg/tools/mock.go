package tools

import (
	"context"
	"fmt"
	"time"
)

const (
	HotelsToolName  = "get_hotels"
	WeatherToolName = "get_weather"

	defaultHotelBudgetINR = 2500
)

// HotelsTool returns a canned list of budget stays.
type HotelsTool struct{}

func (HotelsTool) Name() string { return HotelsToolName }

func (HotelsTool) Execute(_ context.Context, args map[string]interface{}) string {
	city := stringArg(args, "city", "Unknown")
	budget, ok := args["budget_per_night_inr"]
	if !ok || budget == nil {
		budget = defaultHotelBudgetINR
	}
	return fmt.Sprintf("Top budget stays in %s under ₹%v:\n"+
		"- Cozy Inn (₹1800, near bus station)\n"+
		"- Lakeside Lodge (₹2200, breakfast included)\n"+
		"- City Capsule (₹1200, dorms)", city, budget)
}

// WeatherTool returns a canned forecast. Date defaults to today.
type WeatherTool struct {
	Now func() time.Time
}

func (WeatherTool) Name() string { return WeatherToolName }

func (t WeatherTool) Execute(_ context.Context, args map[string]interface{}) string {
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	city := stringArg(args, "city", "Unknown")
	date := stringArg(args, "date", now().Format("2006-01-02"))
	return fmt.Sprintf("Weather in %s on %s: light showers, 24–28°C, humid.", city, date)
}

// NewMockRouter declares specs and attaches the built-in mock backends to
// the specs that name them. Other declared specs answer with a "no mock"
// notice.
func NewMockRouter(specs []ToolSpec) *ToolRegistry {
	r := NewToolRegistry(specs)
	for _, tool := range []Tool{HotelsTool{}, WeatherTool{}} {
		if _, declared := r.byName[tool.Name()]; declared {
			r.Register(tool)
		}
	}
	return r
}

func stringArg(args map[string]interface{}, key, fallback string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return fallback
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
