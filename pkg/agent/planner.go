package agent

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dotsetgreg/wanderbot/pkg/tools"
)

// Planner picks at most one tool invocation for a user message.
type Planner interface {
	Plan(text string) (tools.Invocation, bool)
}

type PlannerFunc func(text string) (tools.Invocation, bool)

func (f PlannerFunc) Plan(text string) (tools.Invocation, bool) { return f(text) }

// Keywords match anywhere in the lowercased text, so "homestays" counts as a
// hotel request and "train" as a weather one.
var (
	hotelKeywords   = []string{"hotel", "stay", "accommodation"}
	weatherKeywords = []string{"weather", "rain", "temperature"}
)

var (
	cityPattern   = regexp.MustCompile(`\bin\s+([a-z][a-z ]*)`)
	budgetPattern = regexp.MustCompile(`under\s*₹?\s*(\d{3,5})`)
)

// cityStopWords end a place name: "in goa under ₹3000" yields "goa".
var cityStopWords = map[string]bool{
	"under": true, "below": true, "for": true, "from": true, "on": true,
	"this": true, "next": true, "with": true, "during": true, "at": true,
	"near": true, "by": true, "and": true, "in": true, "around": true, "tomorrow": true,
	"today": true, "weekend": true,
}

const minCityLength = 3

// KeywordPlanner is the heuristic planner. Hotel keywords win over weather
// keywords when both appear.
type KeywordPlanner struct{}

func (KeywordPlanner) Plan(text string) (tools.Invocation, bool) {
	lower := strings.ToLower(text)

	switch {
	case containsAny(lower, hotelKeywords):
		args := map[string]interface{}{}
		if city, ok := extractCity(lower); ok {
			args["city"] = city
		}
		if m := budgetPattern.FindStringSubmatch(lower); m != nil {
			if budget, err := strconv.Atoi(m[1]); err == nil {
				args["budget_per_night_inr"] = budget
			}
		}
		return tools.Invocation{Name: tools.HotelsToolName, Args: args}, true
	case containsAny(lower, weatherKeywords):
		args := map[string]interface{}{}
		if city, ok := extractCity(lower); ok {
			args["city"] = city
		}
		return tools.Invocation{Name: tools.WeatherToolName, Args: args}, true
	}
	return tools.Invocation{}, false
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func extractCity(lower string) (string, bool) {
	for _, m := range cityPattern.FindAllStringSubmatch(lower, -1) {
		var words []string
		for _, w := range strings.Fields(m[1]) {
			if cityStopWords[w] {
				break
			}
			words = append(words, w)
		}
		city := strings.Join(words, " ")
		if len(city) >= minCityLength {
			return cases.Title(language.English).String(city), true
		}
	}
	return "", false
}
