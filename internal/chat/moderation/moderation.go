// Package moderation implements the pre-send content policy gate. Outgoing
// plaintext is checked against an ordered chain of matchers; the first match
// blocks the send. The gate is pure and synchronous, so the pipeline can run
// it inline on every message.
package moderation

import "regexp"

// Matcher inspects plaintext for one class of sensitive content.
type Matcher interface {
	// Name identifies the rule, used in rejection reasons and logs.
	Name() string
	// Match reports whether text violates the rule.
	Match(text string) bool
}

// RejectionError is returned when a matcher flags outgoing text. It is a
// policy decision, not a transport failure; callers distinguish it with
// errors.As.
type RejectionError struct {
	Rule   string
	Reason string
}

func (e *RejectionError) Error() string {
	return "moderation: " + e.Reason
}

// RegexpMatcher flags text matching a compiled pattern.
type RegexpMatcher struct {
	name    string
	pattern *regexp.Regexp
	reason  string
}

// NewRegexpMatcher builds a matcher from a pattern. The pattern must compile;
// rules are fixed at startup, so a bad one is a programming error.
func NewRegexpMatcher(name, pattern, reason string) *RegexpMatcher {
	return &RegexpMatcher{
		name:    name,
		pattern: regexp.MustCompile(pattern),
		reason:  reason,
	}
}

func (m *RegexpMatcher) Name() string           { return m.name }
func (m *RegexpMatcher) Match(text string) bool { return m.pattern.MatchString(text) }

// Gate runs text through its matchers in order.
type Gate struct {
	matchers []Matcher
}

// NewGate builds a gate from an ordered matcher chain.
func NewGate(matchers ...Matcher) *Gate {
	return &Gate{matchers: matchers}
}

// DefaultGate returns the standard sensitive-data rules: credential keywords,
// credit-card-like 16-digit groupings, and SSN-like 9-digit groupings.
func DefaultGate() *Gate {
	return NewGate(
		NewRegexpMatcher(
			"credentials",
			`(?i)\b(password|passwd|passphrase|secret key|api[ _-]?key|private key)\b`,
			"message appears to contain credentials",
		),
		NewRegexpMatcher(
			"card-number",
			`\b(?:\d[ -]?){15}\d\b`,
			"message appears to contain a card number",
		),
		NewRegexpMatcher(
			"ssn",
			`\b\d{3}-?\d{2}-?\d{4}\b`,
			"message appears to contain a social security number",
		),
	)
}

// Check evaluates text against the chain. It returns nil when no rule
// matches, or a *RejectionError for the first rule that does.
func (g *Gate) Check(text string) error {
	for _, m := range g.matchers {
		if m.Match(text) {
			return &RejectionError{Rule: m.Name(), Reason: reasonFor(m)}
		}
	}
	return nil
}

func reasonFor(m Matcher) string {
	if rm, ok := m.(*RegexpMatcher); ok {
		return rm.reason
	}
	return "message flagged by rule " + m.Name()
}
