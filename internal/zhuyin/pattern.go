package zhuyin

import (
	"strings"
	"unicode/utf8"
)

// SlotKind describes what a pattern accepts in one slot.
type SlotKind uint8

const (
	SlotEmpty SlotKind = iota // slot must be unset
	SlotFixed                 // slot must hold Symbol
	SlotAny                   // slot matches anything, including unset
)

// SlotPattern is the per-slot part of a Pattern.
type SlotPattern struct {
	Kind   SlotKind
	Symbol rune
}

// Pattern is a structured single-syllable query.
type Pattern [NumSlots]SlotPattern

// PatternOf parses the serialized form of a syllable pattern ("ㄊㄞˊ", "ㄊ*").
func PatternOf(text string) Pattern {
	return ParseSyllable(text).Pattern()
}

// Wild reports whether any slot is a wildcard.
func (p Pattern) Wild() bool {
	for _, sp := range p {
		if sp.Kind == SlotAny {
			return true
		}
	}
	return false
}

// Match reports whether a key syllable satisfies the pattern. An unset tone
// and NoTone are equivalent.
func (p Pattern) Match(s Syllable) bool {
	for i, sp := range p {
		r := s.Symbols[i]
		if Slot(i) == Tone && r == NoTone {
			r = 0
		}
		switch sp.Kind {
		case SlotAny:
		case SlotEmpty:
			if r != 0 {
				return false
			}
		case SlotFixed:
			if r != sp.Symbol {
				return false
			}
		}
	}
	return true
}

// String serializes the pattern: fixed symbols in slot order, with a single
// '*' where the wildcard run starts.
func (p Pattern) String() string {
	var sb strings.Builder
	for _, sp := range p {
		switch sp.Kind {
		case SlotFixed:
			sb.WriteRune(sp.Symbol)
		case SlotAny:
			sb.WriteRune(Wildcard)
			return sb.String()
		}
	}
	return sb.String()
}

// prefix returns the fixed symbols before the first wildcard slot.
func (p Pattern) prefix() string {
	return strings.TrimSuffix(p.String(), string(Wildcard))
}

// Constant returns the leading fixed symbol, used to build skeleton keys.
// It is false when the leading slot is a wildcard.
func (p Pattern) Constant() (rune, bool) {
	for _, sp := range p {
		switch sp.Kind {
		case SlotFixed:
			return sp.Symbol, true
		case SlotAny:
			return 0, false
		}
	}
	return 0, false
}

// Literal is the fallback text for the pattern: its fixed symbols.
func (p Pattern) Literal() string {
	var sb strings.Builder
	for _, sp := range p {
		if sp.Kind == SlotFixed {
			sb.WriteRune(sp.Symbol)
		}
	}
	return sb.String()
}

// Query is an ordered sequence of syllable patterns. A Prefix query also
// accepts keys with more syllables than the query has.
type Query struct {
	Syllables []Pattern
	Prefix    bool
}

// NewQuery builds an exact-length query.
func NewQuery(patterns ...Pattern) Query {
	return Query{Syllables: patterns}
}

// Wild reports whether any syllable contains a wildcard.
func (q Query) Wild() bool {
	for _, p := range q.Syllables {
		if p.Wild() {
			return true
		}
	}
	return false
}

// Key joins the serialized syllables with the key separator. For a query
// without wildcards this is exactly the lexicon key.
func (q Query) Key() string {
	parts := make([]string, len(q.Syllables))
	for i, p := range q.Syllables {
		parts[i] = p.String()
	}
	return strings.Join(parts, KeySeparator)
}

// String is the normalized cache form of the query.
func (q Query) String() string {
	if q.Prefix {
		return q.Key() + KeySeparator + "…"
	}
	return q.Key()
}

// Literal joins the fixed symbols of every syllable.
func (q Query) Literal() string {
	var sb strings.Builder
	for _, p := range q.Syllables {
		sb.WriteString(p.Literal())
	}
	return sb.String()
}

// Match reports whether a lexicon key satisfies the query.
func (q Query) Match(key string) bool {
	syllables := ParseKey(key)
	if len(syllables) < len(q.Syllables) {
		return false
	}
	if !q.Prefix && len(syllables) != len(q.Syllables) {
		return false
	}
	for i, p := range q.Syllables {
		if !p.Match(syllables[i]) {
			return false
		}
	}
	return true
}

// Skeleton returns the constant skeleton of the query, the leading symbol of
// every syllable joined by the separator. It is false when some syllable
// starts with a wildcard.
func (q Query) Skeleton() (string, bool) {
	parts := make([]string, len(q.Syllables))
	for i, p := range q.Syllables {
		r, ok := p.Constant()
		if !ok {
			return "", false
		}
		parts[i] = string(r)
	}
	return strings.Join(parts, KeySeparator), true
}

// FixedPrefix returns the longest literal prefix every matching key starts
// with. It bounds key range scans.
func (q Query) FixedPrefix() string {
	var sb strings.Builder
	for i, p := range q.Syllables {
		if i > 0 {
			sb.WriteString(KeySeparator)
		}
		if p.Wild() {
			sb.WriteString(p.prefix())
			return sb.String()
		}
		sb.WriteString(p.String())
	}
	return sb.String()
}

// UpperBound returns the exclusive upper bound of keys starting with prefix.
// An empty prefix has no bound.
func UpperBound(prefix string) string {
	if prefix == "" {
		return ""
	}
	r, size := utf8.DecodeLastRuneInString(prefix)
	return prefix[:len(prefix)-size] + string(r+1)
}

// ParseKey splits a lexicon key into its syllables.
func ParseKey(key string) []Syllable {
	if key == "" {
		return nil
	}
	parts := strings.Split(key, KeySeparator)
	out := make([]Syllable, len(parts))
	for i, part := range parts {
		out[i] = ParseSyllable(part)
	}
	return out
}

// SkeletonOf returns the constant skeleton of a lexicon key: the first
// symbol of every syllable.
func SkeletonOf(key string) string {
	parts := strings.Split(key, KeySeparator)
	for i, part := range parts {
		if r, size := utf8.DecodeRuneInString(part); size > 0 && r != utf8.RuneError {
			parts[i] = string(r)
		}
	}
	return strings.Join(parts, KeySeparator)
}
