package zhuyin

import "strings"

// Syllable holds at most one symbol per slot. A zero rune marks an unset
// slot. WildTone is set when the syllable was closed without a tone, so its
// tone (and any slot after its last symbol) matches anything.
type Syllable struct {
	Symbols  [NumSlots]rune
	WildTone bool
}

// ParseSyllable rebuilds a syllable from its display or serialized form.
// Symbols are reclassified into their slots; a trailing '*' sets WildTone and
// anything else non-phonetic is dropped.
func ParseSyllable(text string) Syllable {
	var s Syllable
	for _, r := range text {
		if r == Wildcard {
			s.WildTone = true
			continue
		}
		if slot, ok := Classify(r); ok {
			s.Symbols[slot] = r
		}
	}
	return s
}

// Set places a symbol into its slot.
func (s *Syllable) Set(slot Slot, r rune) {
	s.Symbols[slot] = r
}

// Get returns the symbol in a slot, or zero.
func (s Syllable) Get(slot Slot) rune {
	return s.Symbols[slot]
}

// HasSymbols reports whether any slot holds a symbol.
func (s Syllable) HasSymbols() bool {
	for _, r := range s.Symbols {
		if r != 0 {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the syllable has neither symbols nor a wildcard.
func (s Syllable) IsEmpty() bool {
	return !s.HasSymbols() && !s.WildTone
}

// Complete reports whether the tone slot is set, either by a tone symbol or
// by the wildcard.
func (s Syllable) Complete() bool {
	return s.Symbols[Tone] != 0 || s.WildTone
}

// OccupiedFrom reports whether the given slot or any later slot holds a
// symbol.
func (s Syllable) OccupiedFrom(slot Slot) bool {
	for i := slot; i < NumSlots; i++ {
		if s.Symbols[i] != 0 {
			return true
		}
	}
	return false
}

// Display returns the symbols in slot order without the wildcard marker.
func (s Syllable) Display() string {
	var sb strings.Builder
	for _, r := range s.Symbols {
		if r != 0 {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Literal is the text used when a syllable has to stand in for a term.
func (s Syllable) Literal() string {
	return s.Display()
}

// String returns the serialized form, with '*' for a wildcard tone.
func (s Syllable) String() string {
	if s.WildTone {
		return s.Display() + string(Wildcard)
	}
	return s.Display()
}

// Key returns the lexicon key form of a complete syllable: symbols in slot
// order with NoTone removed.
func (s Syllable) Key() string {
	var sb strings.Builder
	for i, r := range s.Symbols {
		if r == 0 || (Slot(i) == Tone && r == NoTone) {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// WithTone returns a copy whose tone slot is filled: with the wildcard when
// wild is true, otherwise with NoTone. Complete syllables are returned as is.
func (s Syllable) WithTone(wild bool) Syllable {
	if s.Complete() {
		return s
	}
	if wild {
		s.WildTone = true
	} else {
		s.Symbols[Tone] = NoTone
	}
	return s
}

// ClearLast removes the highest-indexed symbol (scanning Tone back to
// Initial). The wildcard marker is never removed. It reports whether a
// symbol was cleared.
func (s *Syllable) ClearLast() bool {
	for i := NumSlots - 1; i >= 0; i-- {
		if s.Symbols[i] != 0 {
			s.Symbols[i] = 0
			return true
		}
	}
	return false
}

// Pattern converts the syllable into a structured query pattern.
func (s Syllable) Pattern() Pattern {
	var p Pattern
	if !s.WildTone {
		for i, r := range s.Symbols {
			if r == 0 || (Slot(i) == Tone && r == NoTone) {
				p[i] = SlotPattern{Kind: SlotEmpty}
				continue
			}
			p[i] = SlotPattern{Kind: SlotFixed, Symbol: r}
		}
		return p
	}

	last := -1
	for i := 0; i < int(Tone); i++ {
		if s.Symbols[i] != 0 {
			last = i
		}
	}
	for i := 0; i < NumSlots; i++ {
		switch {
		case i > last:
			p[i] = SlotPattern{Kind: SlotAny}
		case s.Symbols[i] != 0:
			p[i] = SlotPattern{Kind: SlotFixed, Symbol: s.Symbols[i]}
		default:
			p[i] = SlotPattern{Kind: SlotEmpty}
		}
	}
	return p
}

// Buffer is an ordered run of syllables.
type Buffer []Syllable

// Display joins the display form of every syllable.
func (b Buffer) Display() string {
	var sb strings.Builder
	for _, s := range b {
		sb.WriteString(s.Display())
	}
	return sb.String()
}

// Literal joins the literal text of every syllable.
func (b Buffer) Literal() string {
	var sb strings.Builder
	for _, s := range b {
		sb.WriteString(s.Literal())
	}
	return sb.String()
}

// HasSymbols reports whether any syllable holds a symbol.
func (b Buffer) HasSymbols() bool {
	for _, s := range b {
		if s.HasSymbols() {
			return true
		}
	}
	return false
}

// Patterns converts every syllable into a query pattern.
func (b Buffer) Patterns() []Pattern {
	out := make([]Pattern, len(b))
	for i, s := range b {
		out[i] = s.Pattern()
	}
	return out
}
