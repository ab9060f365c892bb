package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dotsetgreg/wanderbot/pkg/redact"
)

func TestInferSeason(t *testing.T) {
	cases := map[time.Month]string{
		time.January:   "winter",
		time.February:  "winter",
		time.March:     "summer",
		time.April:     "summer",
		time.May:       "summer",
		time.June:      "monsoon",
		time.July:      "monsoon",
		time.August:    "monsoon",
		time.September: "monsoon",
		time.October:   "post-monsoon",
		time.November:  "post-monsoon",
		time.December:  "winter",
	}
	for month, want := range cases {
		assert.Equal(t, want, InferSeason(month), month.String())
	}
}

func TestContextBuilder_Build(t *testing.T) {
	cb := NewContextBuilder("plan trips", map[string]interface{}{"home": "Madurai"})
	cb.now = func() time.Time { return time.Date(2026, time.July, 4, 9, 30, 0, 0, time.UTC) }

	c := cb.Build("  call me on 9876543210  ", nil)

	assert.Equal(t, "monsoon", c.Season)
	assert.Equal(t, "plan trips", c.AppPurpose)
	assert.Equal(t, "Madurai", c.UserProfile["home"])
	assert.NotNil(t, c.Hints)
	assert.Empty(t, c.Hints)
	assert.Equal(t, "call me on "+redact.Token, c.SanitizedUserMessage)
	assert.Equal(t, 2026, c.Timestamp.Year())
}
