// Package intent classifies a query into a coarse need category by keyword.
package intent

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/hyperjump/ayuda/internal/models"
)

// Rule maps an intent name to the keywords that select it.
type Rule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// DefaultRules in match order.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "food", Keywords: []string{"food", "hunger", "meal", "pantry", "eat"}},
		{Name: "housing", Keywords: []string{"housing", "rent", "shelter", "home", "eviction"}},
		{Name: "job", Keywords: []string{"job", "work", "employment", "hire", "career"}},
	}
}

// Classifier matches keywords as substrings of the normalized text. The first
// rule, in declaration order, with any matching keyword wins.
type Classifier struct {
	rules []Rule
}

// NewClassifier validates and normalizes rules. Order is preserved.
func NewClassifier(rules []Rule) (*Classifier, error) {
	c := &Classifier{rules: make([]Rule, 0, len(rules))}
	for i, r := range rules {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return nil, fmt.Errorf("intent rule %d: empty name", i)
		}
		kws := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			if kw = Normalize(kw); kw != "" {
				kws = append(kws, kw)
			}
		}
		if len(kws) == 0 {
			return nil, fmt.Errorf("intent rule %q: no keywords", name)
		}
		c.rules = append(c.rules, Rule{Name: name, Keywords: kws})
	}
	return c, nil
}

// Classify returns the intent of text, or models.IntentUnknown.
func (c *Classifier) Classify(text string) string {
	t := Normalize(text)
	for _, r := range c.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(t, kw) {
				return r.Name
			}
		}
	}
	return models.IntentUnknown
}

// Rules returns a copy of the normalized rules.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	for i, r := range c.rules {
		out[i] = Rule{Name: r.Name, Keywords: append([]string(nil), r.Keywords...)}
	}
	return out
}

// Normalize applies NFKC and lower-cases.
func Normalize(s string) string {
	return strings.ToLower(norm.NFKC.String(strings.TrimSpace(s)))
}
