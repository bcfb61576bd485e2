// Package pinyin spells Chinese text as Zhuyin syllables by way of pinyin.
package pinyin

import (
	"strings"

	"github.com/f3rmion/zhuyin/internal/zhuyin"
	gopinyin "github.com/mozillazg/go-pinyin"
)

// Parser handles pinyin lookup and conversion to Zhuyin.
type Parser struct {
	args gopinyin.Args
}

// NewParser creates a new pinyin parser.
func NewParser() *Parser {
	args := gopinyin.NewArgs()
	args.Style = gopinyin.Tone // Returns tone marks: zhōng
	args.Heteronym = true      // Return all possible readings
	return &Parser{args: args}
}

// Reading is one pronunciation of a character.
type Reading struct {
	Char     string          // the character (e.g., "好")
	Pinyin   string          // pinyin with tone mark (e.g., "hǎo")
	Syllable zhuyin.Syllable // Zhuyin spelling (e.g., ㄏㄠˇ)
}

// GetPinyin returns all pinyin readings for a character.
func (p *Parser) GetPinyin(char string) []string {
	result := gopinyin.Pinyin(char, p.args)
	if len(result) == 0 {
		return nil
	}
	return result[0]
}

// Readings returns every reading of every Han character in text, one slice
// per character. Characters without a reading are skipped.
func (p *Parser) Readings(text string) [][]Reading {
	var out [][]Reading
	for _, r := range text {
		char := string(r)
		pys := p.GetPinyin(char)
		if len(pys) == 0 {
			continue
		}
		readings := make([]Reading, 0, len(pys))
		for _, py := range pys {
			s, ok := Convert(py)
			if !ok {
				continue
			}
			readings = append(readings, Reading{Char: char, Pinyin: py, Syllable: s})
		}
		if len(readings) > 0 {
			out = append(out, readings)
		}
	}
	return out
}

// Spell returns the most common Zhuyin spelling of each Han character in
// text.
func (p *Parser) Spell(text string) zhuyin.Buffer {
	var out zhuyin.Buffer
	for _, readings := range p.Readings(text) {
		out = append(out, readings[0].Syllable)
	}
	return out
}

// Convert turns one tone-marked pinyin syllable into Zhuyin. Syllables
// without a tone mark get the neutral tone. The second value is false when
// the input is not valid pinyin.
func Convert(py string) (zhuyin.Syllable, bool) {
	var s zhuyin.Syllable

	tone, plain := extractTone(py)
	plain = strings.ReplaceAll(strings.ToLower(plain), "v", "ü")
	if plain == "" {
		return s, false
	}
	s.Set(zhuyin.Tone, tone)

	initial, rest := splitInitial(plain)
	if initial != 0 {
		s.Set(zhuyin.Initial, initial)
	}
	rest = expandRime(initial, rest)

	// zhi, chi, shi, ri, zi, ci, si carry no vowel symbol.
	if rest == "i" && isRetroflexOrSibilant(initial) {
		return s, true
	}

	glide, final, ok := splitRime(rest)
	if !ok {
		return zhuyin.Syllable{}, false
	}
	if glide != 0 {
		s.Set(zhuyin.Glide, glide)
	}
	if final != 0 {
		s.Set(zhuyin.Final, final)
	}
	if initial == 0 && glide == 0 && final == 0 {
		return zhuyin.Syllable{}, false
	}
	return s, true
}

// extractTone extracts the tone symbol and returns the pinyin without tone
// marks.
func extractTone(pinyin string) (rune, string) {
	tone := '˙'
	var result strings.Builder

	toneMarks := map[rune]struct {
		base rune
		tone rune
	}{
		'ā': {'a', zhuyin.NoTone}, 'á': {'a', 'ˊ'}, 'ǎ': {'a', 'ˇ'}, 'à': {'a', 'ˋ'},
		'ē': {'e', zhuyin.NoTone}, 'é': {'e', 'ˊ'}, 'ě': {'e', 'ˇ'}, 'è': {'e', 'ˋ'},
		'ī': {'i', zhuyin.NoTone}, 'í': {'i', 'ˊ'}, 'ǐ': {'i', 'ˇ'}, 'ì': {'i', 'ˋ'},
		'ō': {'o', zhuyin.NoTone}, 'ó': {'o', 'ˊ'}, 'ǒ': {'o', 'ˇ'}, 'ò': {'o', 'ˋ'},
		'ū': {'u', zhuyin.NoTone}, 'ú': {'u', 'ˊ'}, 'ǔ': {'u', 'ˇ'}, 'ù': {'u', 'ˋ'},
		'ǖ': {'ü', zhuyin.NoTone}, 'ǘ': {'ü', 'ˊ'}, 'ǚ': {'ü', 'ˇ'}, 'ǜ': {'ü', 'ˋ'},
		'ḿ': {'m', 'ˊ'}, 'ń': {'n', 'ˊ'}, 'ň': {'n', 'ˇ'}, 'ǹ': {'n', 'ˋ'},
	}

	for _, r := range pinyin {
		if mark, ok := toneMarks[r]; ok {
			result.WriteRune(mark.base)
			tone = mark.tone
		} else {
			result.WriteRune(r)
		}
	}

	return tone, result.String()
}

var initials = map[string]rune{
	"b": 'ㄅ', "p": 'ㄆ', "m": 'ㄇ', "f": 'ㄈ',
	"d": 'ㄉ', "t": 'ㄊ', "n": 'ㄋ', "l": 'ㄌ',
	"g": 'ㄍ', "k": 'ㄎ', "h": 'ㄏ',
	"j": 'ㄐ', "q": 'ㄑ', "x": 'ㄒ',
	"zh": 'ㄓ', "ch": 'ㄔ', "sh": 'ㄕ', "r": 'ㄖ',
	"z": 'ㄗ', "c": 'ㄘ', "s": 'ㄙ',
}

// splitInitial separates the consonant initial. y and w are spelling
// conventions, not initials, and are rewritten into the rime.
func splitInitial(py string) (rune, string) {
	switch {
	case strings.HasPrefix(py, "yu"):
		return 0, "ü" + py[2:]
	case strings.HasPrefix(py, "yi"):
		return 0, py[1:]
	case strings.HasPrefix(py, "y"):
		return 0, "i" + py[1:]
	case strings.HasPrefix(py, "wu"):
		return 0, py[1:]
	case strings.HasPrefix(py, "w"):
		return 0, "u" + py[1:]
	}

	for _, cluster := range []string{"zh", "ch", "sh"} {
		if strings.HasPrefix(py, cluster) {
			return initials[cluster], py[len(cluster):]
		}
	}
	if r, ok := initials[py[:1]]; ok {
		return r, py[1:]
	}
	return 0, py
}

// expandRime undoes pinyin's abbreviated spellings.
func expandRime(initial rune, rime string) string {
	switch initial {
	case 'ㄐ', 'ㄑ', 'ㄒ':
		if strings.HasPrefix(rime, "u") {
			rime = "ü" + rime[1:]
		}
	}

	switch rime {
	case "iu":
		return "iou"
	case "ui":
		return "uei"
	case "un":
		return "uen"
	case "ong":
		return "ueng"
	case "iong":
		return "üeng"
	case "in":
		return "ien"
	case "ing":
		return "ieng"
	case "ün":
		return "üen"
	case "ie", "üe":
		return rime[:len(rime)-1] + "ê"
	}
	return rime
}

var finals = map[string]rune{
	"a": 'ㄚ', "o": 'ㄛ', "e": 'ㄜ', "ê": 'ㄝ',
	"ai": 'ㄞ', "ei": 'ㄟ', "ao": 'ㄠ', "ou": 'ㄡ',
	"an": 'ㄢ', "en": 'ㄣ', "ang": 'ㄤ', "eng": 'ㄥ',
	"er": 'ㄦ',
}

var glides = map[rune]rune{'i': 'ㄧ', 'u': 'ㄨ', 'ü': 'ㄩ'}

// splitRime maps a fully spelled rime to a glide and a final.
func splitRime(rime string) (glide, final rune, ok bool) {
	if rime == "" {
		return 0, 0, true
	}

	first := []rune(rime)[0]
	if g, isGlide := glides[first]; isGlide {
		glide = g
		rime = strings.TrimPrefix(rime, string(first))
		if rime == "" {
			return glide, 0, true
		}
	}

	// e after a glide is ㄝ.
	if glide != 0 && rime == "e" {
		rime = "ê"
	}

	final, ok = finals[rime]
	return glide, final, ok
}

func isRetroflexOrSibilant(initial rune) bool {
	switch initial {
	case 'ㄓ', 'ㄔ', 'ㄕ', 'ㄖ', 'ㄗ', 'ㄘ', 'ㄙ':
		return true
	}
	return false
}
