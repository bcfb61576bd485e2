package zhuyin

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Term is a lexicon entry: display text and its score.
// On disk a term is the two-element array [text, score].
type Term struct {
	Text  string
	Score int
}

// MarshalJSON encodes the term as [text, score].
func (t Term) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{t.Text, t.Score})
}

// UnmarshalJSON decodes a [text, score] array.
func (t *Term) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding term: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("decoding term: expected [text, score], got %d elements", len(raw))
	}
	if err := json.Unmarshal(raw[0], &t.Text); err != nil {
		return fmt.Errorf("decoding term text: %w", err)
	}
	var score float64
	if err := json.Unmarshal(raw[1], &score); err != nil {
		return fmt.Errorf("decoding term score: %w", err)
	}
	t.Score = int(score)
	return nil
}

// Sentence is an ordered run of terms covering a contiguous span of syllables.
type Sentence []Term

// Score is the sum of the member scores.
func (s Sentence) Score() int {
	total := 0
	for _, t := range s {
		total += t.Score
	}
	return total
}

// Text concatenates the member texts.
func (s Sentence) Text() string {
	var sb strings.Builder
	for _, t := range s {
		sb.WriteString(t.Text)
	}
	return sb.String()
}

// Category tags where a candidate came from. It is used for disambiguation
// after selection, never for ranking.
type Category string

const (
	CategoryWhole      Category = "whole"      // covers the whole buffer
	CategoryTerm       Category = "term"       // covers a leading part of the buffer
	CategorySymbol     Category = "symbol"     // literal symbols of the first syllable
	CategorySuggestion Category = "suggestion" // follows a previous selection
)

// Candidate is one entry of the candidate list.
type Candidate struct {
	Text     string   `json:"text"`
	Category Category `json:"category"`
}
