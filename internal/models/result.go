// Package models defines the request, query record, and result shapes shared by the pipeline and the API.
package models

import (
	"encoding/json"
	"fmt"
)

// IntentUnknown is the intent assigned when no keyword matches.
const IntentUnknown = "unknown"

// Entity is a named entity found in the original message.
// It serializes as a two-element JSON array: [text, label].
type Entity struct {
	Text  string
	Label string
}

// MarshalJSON encodes the entity as [text, label].
func (e Entity) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{e.Text, e.Label})
}

// UnmarshalJSON decodes an entity from [text, label].
func (e *Entity) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("entity: expected [text, label], got %d elements", len(pair))
	}
	e.Text, e.Label = pair[0], pair[1]
	return nil
}

// QueryRecord describes one processed message.
type QueryRecord struct {
	Original   string   `json:"original"`
	Language   string   `json:"language"`
	Translated string   `json:"translated"`
	Intent     string   `json:"intent"`
	Entities   []Entity `json:"entities"`

	// Fallback markers are internal; callers never see sub-step degradation.
	LanguageFallback    bool `json:"-"`
	TranslationFallback bool `json:"-"`
	EntityFallback      bool `json:"-"`
}

// Match is one ranked catalog organization.
type Match struct {
	Name     string  `json:"Name"`
	URL      string  `json:"URL"`
	Summary  string  `json:"Summary"`
	Category string  `json:"Category"`
	Score    float64 `json:"Score"`
}

// RankedResult is the chat response payload. Results are sorted by descending score.
type RankedResult struct {
	QueryInfo *QueryRecord `json:"query_info"`
	Results   []Match      `json:"results"`
}
