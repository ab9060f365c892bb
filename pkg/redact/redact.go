// Package redact scrubs personally identifying substrings from free text.
// It is best-effort pattern matching, not a security boundary.
package redact

import "regexp"

// Token replaces every matched substring.
const Token = "[REDACTED]"

// Rule is one pattern applied by a Redactor.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

// DefaultRules are applied in order: Aadhaar-like 12-digit runs, 16-digit
// card numbers, 10-digit phone numbers, then e-mail addresses.
var DefaultRules = []Rule{
	{Name: "aadhaar", Pattern: regexp.MustCompile(`\b\d{12}\b`)},
	{Name: "card", Pattern: regexp.MustCompile(`\b\d{16}\b`)},
	{Name: "phone", Pattern: regexp.MustCompile(`\b[0-9]{10}\b`)},
	{Name: "email", Pattern: regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)},
}

type Redactor struct {
	rules []Rule
	token string
}

func New(rules ...Rule) *Redactor {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &Redactor{rules: rules, token: Token}
}

func (r *Redactor) Redact(text string) string {
	out := text
	for _, rule := range r.rules {
		out = rule.Pattern.ReplaceAllLiteralString(out, r.token)
	}
	return out
}

var defaultRedactor = New()

// Redact applies DefaultRules to text.
func Redact(text string) string {
	return defaultRedactor.Redact(text)
}
