package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/f3rmion/zhuyin/internal/ime"
	"github.com/f3rmion/zhuyin/internal/zhuyin"
)

// dachen is the standard Zhuyin keyboard layout, keyed by the character a
// US keyboard produces.
var dachen = map[string]rune{
	"1": 'ㄅ', "q": 'ㄆ', "a": 'ㄇ', "z": 'ㄈ',
	"2": 'ㄉ', "w": 'ㄊ', "s": 'ㄋ', "x": 'ㄌ',
	"e": 'ㄍ', "d": 'ㄎ', "c": 'ㄏ',
	"r": 'ㄐ', "f": 'ㄑ', "v": 'ㄒ',
	"5": 'ㄓ', "t": 'ㄔ', "g": 'ㄕ', "b": 'ㄖ',
	"y": 'ㄗ', "h": 'ㄘ', "n": 'ㄙ',
	"u": 'ㄧ', "j": 'ㄨ', "m": 'ㄩ',
	"8": 'ㄚ', "i": 'ㄛ', "k": 'ㄜ', ",": 'ㄝ',
	"9": 'ㄞ', "o": 'ㄟ', "l": 'ㄠ', ".": 'ㄡ',
	"0": 'ㄢ', "p": 'ㄣ', ";": 'ㄤ', "/": 'ㄥ',
	"-": 'ㄦ',
	" ": zhuyin.NoTone, "6": 'ˊ', "3": 'ˇ', "4": 'ˋ', "7": '˙',
}

// keyCode translates a key press into the code the engine expects. Keys
// outside the layout pass through as their own character. The second value
// is false for keys that carry no code.
func keyCode(msg tea.KeyMsg) (int, bool) {
	switch msg.Type {
	case tea.KeyEnter:
		return ime.KeyReturn, true
	case tea.KeyBackspace:
		return ime.KeyBackspace, true
	case tea.KeySpace:
		return int(zhuyin.NoTone), true
	case tea.KeyRunes:
		if msg.Alt || len(msg.Runes) != 1 {
			return 0, false
		}
		if r, ok := dachen[string(msg.Runes)]; ok {
			return int(r), true
		}
		return int(msg.Runes[0]), true
	}
	return 0, false
}

type keyMap struct {
	Next   key.Binding
	Prev   key.Binding
	Select key.Binding
	Clear  key.Binding
	Copy   key.Binding
	Reset  key.Binding
	Help   key.Binding
	Quit   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Next: key.NewBinding(
			key.WithKeys("right", "down"),
			key.WithHelp("→", "next candidate"),
		),
		Prev: key.NewBinding(
			key.WithKeys("left", "up"),
			key.WithHelp("←", "previous candidate"),
		),
		Select: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "select"),
		),
		Clear: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear input"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("ctrl+y", "copy text"),
		),
		Reset: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "clear text"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("f1", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.Copy, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev, k.Select},
		{k.Clear, k.Reset, k.Copy},
		{k.Help, k.Quit},
	}
}
