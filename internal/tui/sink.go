package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/f3rmion/zhuyin/internal/zhuyin"
)

// Engine output, delivered to the model as messages.
type (
	pendingMsg    struct{ text string }
	candidatesMsg struct{ candidates []zhuyin.Candidate }
	commitMsg     struct{ text string }
	passKeyMsg    struct{ code int }
)

// Sink forwards engine output to a running program. Output sent before a
// program is attached is dropped.
type Sink struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

// NewSink creates a detached sink.
func NewSink() *Sink {
	return &Sink{}
}

// Attach routes output to send, usually (*tea.Program).Send.
func (s *Sink) Attach(send func(tea.Msg)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.send = send
}

func (s *Sink) forward(msg tea.Msg) {
	s.mu.Lock()
	send := s.send
	s.mu.Unlock()
	if send != nil {
		send(msg)
	}
}

// SendPendingSymbols implements ime.Sink.
func (s *Sink) SendPendingSymbols(text string) {
	s.forward(pendingMsg{text: text})
}

// SendCandidates implements ime.Sink.
func (s *Sink) SendCandidates(candidates []zhuyin.Candidate) {
	s.forward(candidatesMsg{candidates: append([]zhuyin.Candidate(nil), candidates...)})
}

// SendString implements ime.Sink.
func (s *Sink) SendString(text string) {
	s.forward(commitMsg{text: text})
}

// SendKey implements ime.Sink.
func (s *Sink) SendKey(code int) {
	s.forward(passKeyMsg{code: code})
}
