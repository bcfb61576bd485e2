package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/f3rmion/zhuyin/internal/clipboard"
	"github.com/f3rmion/zhuyin/internal/ime"
	"github.com/f3rmion/zhuyin/internal/tui/bigchar"
	"github.com/f3rmion/zhuyin/internal/zhuyin"
	"github.com/mattn/go-runewidth"
)

// Glyph size in terminal cells.
const (
	glyphCols = 24
	glyphRows = 12
)

type openedMsg struct{ err error }

type clearStatusMsg struct{}

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}

// Model is the Bubble Tea model for the input host.
type Model struct {
	engine *ime.Engine
	glyphs *bigchar.Renderer
	keys   keyMap
	help   help.Model

	pending    string
	candidates []zhuyin.Candidate
	highlight  int
	text       []rune

	status string
	err    error

	width int
}

// New creates a model driving engine. glyphs may be nil, in which case no
// large preview is drawn.
func New(engine *ime.Engine, glyphs *bigchar.Renderer) Model {
	return Model{
		engine: engine,
		glyphs: glyphs,
		keys:   defaultKeyMap(),
		help:   help.New(),
	}
}

// Run starts the program and routes the sink's output into it.
func Run(m Model, sink *Sink) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	sink.Attach(p.Send)
	defer sink.Attach(nil)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running tui: %w", err)
	}
	return nil
}

// Init opens the lexicon in the background.
func (m Model) Init() tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		return openedMsg{err: engine.Open()}
	}
}

// Text returns the committed text.
func (m Model) Text() string {
	return string(m.text)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case pendingMsg:
		m.pending = msg.text
	case candidatesMsg:
		m.candidates = msg.candidates
		m.highlight = 0
	case commitMsg:
		m.text = append(m.text, []rune(msg.text)...)
	case passKeyMsg:
		m.passKey(msg.code)

	case openedMsg:
		m.err = msg.err
	case clearStatusMsg:
		m.status = ""

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Next):
		if n := len(m.candidates); n > 0 {
			m.highlight = (m.highlight + 1) % n
		}
	case key.Matches(msg, m.keys.Prev):
		if n := len(m.candidates); n > 0 {
			m.highlight = (m.highlight - 1 + n) % n
		}
	case key.Matches(msg, m.keys.Select):
		if m.highlight < len(m.candidates) {
			c := m.candidates[m.highlight]
			m.engine.Select(c.Text, c.Category)
		}
	case key.Matches(msg, m.keys.Clear):
		m.engine.Empty()
	case key.Matches(msg, m.keys.Reset):
		m.text = nil
	case key.Matches(msg, m.keys.Copy):
		if len(m.text) == 0 {
			return m, nil
		}
		if err := clipboard.Write(m.Text()); err != nil {
			m.status = "Copy failed: " + err.Error()
		} else {
			m.status = "Copied!"
		}
		return m, clearStatusAfter(2 * time.Second)
	default:
		if code, ok := keyCode(msg); ok {
			m.engine.Click(code)
		}
	}
	return m, nil
}

// passKey applies a key the engine did not consume to the committed text.
func (m *Model) passKey(code int) {
	switch code {
	case ime.KeyBackspace:
		if len(m.text) > 0 {
			m.text = m.text[:len(m.text)-1]
		}
	case ime.KeyReturn:
		m.text = append(m.text, '\n')
	default:
		m.text = append(m.text, rune(code))
	}
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("  注音  ") + "  " + SubtitleStyle.Render("Zhuyin Input"))
	b.WriteString("\n\n")

	b.WriteString(m.renderText())
	b.WriteString("\n")
	b.WriteString(m.renderCandidates())
	b.WriteString("\n")

	if m.glyphs != nil && m.highlight < len(m.candidates) {
		if glyph := m.glyphs.Render(m.candidates[m.highlight].Text, glyphCols, glyphRows); glyph != "" {
			b.WriteString(GlyphStyle.Render(glyph))
			b.WriteString("\n")
		}
	}

	if m.err != nil {
		b.WriteString(ErrorStyle.Render("  " + m.err.Error()))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(StatusStyle.Render("  " + m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n  ")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// renderText shows the committed text followed by the pending symbols.
func (m Model) renderText() string {
	body := string(m.text) + PendingStyle.Render(m.pending)
	style := CommittedBoxStyle
	if m.width > 4 {
		style = style.Width(m.width - 4)
	}
	return style.Render(body)
}

// renderCandidates lays out the numbered candidates on one line, cutting
// off what does not fit the terminal width.
func (m Model) renderCandidates() string {
	if len(m.candidates) == 0 {
		return HelpStyle.Render("  no candidates")
	}

	limit := m.width - 4
	var cells []string
	used := 0
	for i, c := range m.candidates {
		label := fmt.Sprintf("%d.", i+1)
		w := runewidth.StringWidth(label) + runewidth.StringWidth(c.Text) + 2
		if limit > 0 && used+w > limit {
			cells = append(cells, HelpStyle.Render("…"))
			break
		}
		used += w

		style := CandidateStyle
		if i == m.highlight {
			style = CandidateActiveStyle
		}
		cells = append(cells, style.Render(CandidateIndexStyle.Render(label)+c.Text))
	}
	return "  " + lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}
