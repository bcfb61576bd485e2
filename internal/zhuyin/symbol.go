// Package zhuyin provides the phonetic data model shared by the engine:
// symbols, syllables, structured query patterns and lexicon terms.
package zhuyin

// Slot is one of the four positions a Zhuyin symbol can occupy in a syllable.
type Slot int

const (
	Initial Slot = iota // ㄅ - ㄙ
	Glide               // ㄧ ㄨ ㄩ
	Final               // ㄚ - ㄦ
	Tone                // ˙ ˊ ˇ ˋ and the blank first tone
)

// NumSlots is the number of slots in a syllable.
const NumSlots = 4

const (
	// NoTone is the canonical "no tone" marker (first tone, typed as space).
	// It is dropped when a syllable is serialized into a lexicon key.
	NoTone rune = ' '

	// Wildcard marks a slot that matches anything in serialized patterns.
	Wildcard rune = '*'

	// KeySeparator joins the syllables of a multi-syllable lexicon key.
	KeySeparator = "-"
)

var tones = map[rune]bool{
	NoTone: true,
	'˙':    true,
	'ˊ':    true,
	'ˇ':    true,
	'ˋ':    true,
}

// Classify returns the slot of a phonetic symbol. The second value is false
// for anything that is not a Zhuyin symbol.
func Classify(r rune) (Slot, bool) {
	switch {
	case r >= 0x3105 && r <= 0x3119:
		return Initial, true
	case r >= 0x3127 && r <= 0x3129:
		return Glide, true
	case r >= 0x311A && r <= 0x3126:
		return Final, true
	case tones[r]:
		return Tone, true
	}
	return 0, false
}

// IsSymbol reports whether r is a Zhuyin symbol.
func IsSymbol(r rune) bool {
	_, ok := Classify(r)
	return ok
}

// String returns the slot name.
func (s Slot) String() string {
	switch s {
	case Initial:
		return "initial"
	case Glide:
		return "glide"
	case Final:
		return "final"
	case Tone:
		return "tone"
	default:
		return "unknown"
	}
}
