package policy

import "strings"

// trigger is one way a keyword rule can fire against a cleaned question.
// All substrings in allOf must be present and none from noneOf; when
// maxTokens is set the question must also be at most that many words.
type trigger struct {
	allOf     []string
	noneOf    []string
	maxTokens int
}

func (t trigger) matches(cleaned string, tokens int) bool {
	for _, s := range t.allOf {
		if !strings.Contains(cleaned, s) {
			return false
		}
	}
	for _, s := range t.noneOf {
		if strings.Contains(cleaned, s) {
			return false
		}
	}
	if t.maxTokens > 0 && tokens > t.maxTokens {
		return false
	}
	return true
}

// keyMatch selects which knowledge keys a fired rule may answer from.
// A key matches when it contains every allOf substring and, if anyOf is
// set, at least one of those.
type keyMatch struct {
	allOf []string
	anyOf []string
}

func (k keyMatch) matches(key string) bool {
	for _, s := range k.allOf {
		if !strings.Contains(key, s) {
			return false
		}
	}
	if len(k.anyOf) == 0 {
		return true
	}
	for _, s := range k.anyOf {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}

// keywordRule routes a recognized question shape to a family of knowledge
// keys. Rules are tried in order; a rule only answers when it both fires
// and finds a matching key, otherwise the next rule gets a chance.
type keywordRule struct {
	name     string
	triggers []trigger
	key      keyMatch
}

func (r keywordRule) fires(cleaned string, tokens int) bool {
	for _, t := range r.triggers {
		if t.matches(cleaned, tokens) {
			return true
		}
	}
	return false
}

// defaultRules covers the question shapes a front desk hears all day.
// Specific shapes come before broad ones so "what time do you open"
// lands on an opening-time key rather than a generic hours key.
var defaultRules = []keywordRule{
	{
		name: "walk-ins",
		triggers: []trigger{
			{allOf: []string{"walk", "in"}},
			{allOf: []string{"appointment"}},
			{allOf: []string{"book"}},
		},
		key: keyMatch{anyOf: []string{"walk", "appointment"}},
	},
	{
		name: "closing",
		triggers: []trigger{
			{allOf: []string{"close"}},
			{allOf: []string{"closing"}},
		},
		key: keyMatch{allOf: []string{"close"}},
	},
	{
		name: "opening-time",
		triggers: []trigger{
			{allOf: []string{"open", "time"}},
			{allOf: []string{"when", "hour", "time"}},
			{allOf: []string{"when", "time"}, maxTokens: 4},
		},
		key: keyMatch{allOf: []string{"time", "open"}},
	},
	{
		name: "open-status",
		triggers: []trigger{
			{allOf: []string{"open"}, noneOf: []string{"time"}},
			{allOf: []string{"when", "hour"}, noneOf: []string{"time"}},
			{allOf: []string{"when"}, noneOf: []string{"time"}, maxTokens: 4},
		},
		key: keyMatch{anyOf: []string{"open", "hours"}},
	},
	{
		name: "hours",
		triggers: []trigger{
			{allOf: []string{"hour"}, noneOf: []string{"open", "close"}},
		},
		key: keyMatch{anyOf: []string{"hours"}},
	},
	{
		name: "location",
		triggers: []trigger{
			{allOf: []string{"locat"}},
			{allOf: []string{"where"}},
			{allOf: []string{"address"}},
			{allOf: []string{"find"}},
		},
		key: keyMatch{anyOf: []string{"locat", "where", "address", "find"}},
	},
}
