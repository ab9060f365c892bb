package agent

import (
	"strings"
	"time"

	"github.com/dotsetgreg/wanderbot/pkg/redact"
)

const timestampLayout = "2006-01-02T15:04:05.000000"

// Context is the per-request situational snapshot embedded in the prompt.
// It is rebuilt for every message and never stored.
type Context struct {
	Timestamp            time.Time
	Season               string
	AppPurpose           string
	UserProfile          map[string]interface{}
	Hints                map[string]interface{}
	SanitizedUserMessage string
}

type ContextBuilder struct {
	appPurpose  string
	userProfile map[string]interface{}
	redactor    *redact.Redactor
	now         func() time.Time
}

func NewContextBuilder(appPurpose string, userProfile map[string]interface{}) *ContextBuilder {
	if userProfile == nil {
		userProfile = map[string]interface{}{}
	}
	return &ContextBuilder{
		appPurpose:  appPurpose,
		userProfile: userProfile,
		redactor:    redact.New(),
		now:         time.Now,
	}
}

// Build captures the current time and season and redacts the user text.
// Nil hints become an empty map.
func (cb *ContextBuilder) Build(userMessage string, hints map[string]interface{}) Context {
	now := cb.now()
	if hints == nil {
		hints = map[string]interface{}{}
	}
	return Context{
		Timestamp:            now,
		Season:               InferSeason(now.Month()),
		AppPurpose:           cb.appPurpose,
		UserProfile:          cb.userProfile,
		Hints:                hints,
		SanitizedUserMessage: cb.redactor.Redact(strings.TrimSpace(userMessage)),
	}
}

// InferSeason maps a calendar month onto the Indian travel seasons.
func InferSeason(month time.Month) string {
	switch month {
	case time.June, time.July, time.August, time.September:
		return "monsoon"
	case time.October, time.November:
		return "post-monsoon"
	case time.December, time.January, time.February:
		return "winter"
	default:
		return "summer"
	}
}
