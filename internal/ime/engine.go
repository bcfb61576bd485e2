// Package ime turns a stream of Zhuyin key codes into committed text.
//
// The Engine owns the syllable buffer and processes key, selection and
// clear events strictly one at a time, in the order they were submitted.
// Candidates, pending symbols and committed text are reported through a
// Sink.
package ime

import (
	"context"
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/f3rmion/zhuyin/internal/config"
	"github.com/f3rmion/zhuyin/internal/zhuyin"
)

// Reserved control codes.
const (
	KeyBackspace = 0x08
	KeyReturn    = 0x0d
)

// Sink receives the engine output. Its methods are called from one
// goroutine at a time, never concurrently.
type Sink interface {
	// SendPendingSymbols shows the uncommitted phonetic symbols.
	SendPendingSymbols(text string)

	// SendCandidates replaces the displayed candidate list.
	SendCandidates(candidates []zhuyin.Candidate)

	// SendString outputs committed text.
	SendString(text string)

	// SendKey passes through a code the engine does not handle.
	SendKey(code int)
}

// Lexicon is the lookup surface the engine needs.
type Lexicon interface {
	Open(ctx context.Context) error
	Ready() bool
	Terms(ctx context.Context, patterns []zhuyin.Pattern) ([]zhuyin.Term, error)
	Sentences(ctx context.Context, patterns []zhuyin.Pattern) ([]zhuyin.Sentence, error)
	Suggestions(ctx context.Context, lead []zhuyin.Pattern, selected string) ([]zhuyin.Term, error)
	Close() error
}

// State is the externally visible input state.
type State int

const (
	Idle              State = iota // nothing buffered, no candidates
	Composing                      // symbols buffered
	CandidatesPending              // a default candidate awaits commit
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Composing:
		return "composing"
	case CandidatesPending:
		return "candidates"
	default:
		return "unknown"
	}
}

type eventKind int

const (
	eventKey     eventKind = iota // code > 0
	eventRefresh                  // redraw after selecting a suggestion
	eventRemove                   // drop count leading syllables after a selection
	eventClear                    // reset everything
)

type event struct {
	kind  eventKind
	code  int
	count int
	text  string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Engine is the input state machine.
type Engine struct {
	cfg    config.Engine
	lex    Lexicon
	sink   Sink
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	openOnce sync.Once
	openErr  error

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []event
	working bool
	closed  bool
	state   State

	// Owned by the drain goroutine. The last syllable of buffer is the one
	// being typed; buffer always holds at least one syllable.
	buffer    zhuyin.Buffer
	candidate string        // default candidate
	selected  string        // text of the last selection
	removed   zhuyin.Buffer // syllables consumed by that selection
}

// New creates an engine. The lexicon is opened on the first event, or by
// an explicit call to Open.
func New(cfg config.Engine, lex Lexicon, sink Sink, opts ...Option) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		cfg:    cfg,
		lex:    lex,
		sink:   sink,
		logger: slog.New(slog.DiscardHandler),
		ctx:    ctx,
		cancel: cancel,
		buffer: zhuyin.Buffer{{}},
	}
	e.cond = sync.NewCond(&e.mu)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Open opens the lexicon if that has not happened yet and returns the
// result of the first attempt.
func (e *Engine) Open() error {
	e.openOnce.Do(func() {
		e.logger.Debug("opening lexicon")
		e.openErr = e.lex.Open(e.ctx)
		if e.openErr != nil {
			e.logger.Error("lexicon unavailable, running without candidates", "error", e.openErr)
		}
	})
	return e.openErr
}

// Ready reports whether the lexicon can answer queries.
func (e *Engine) Ready() bool {
	return e.lex.Ready()
}

// State returns the state after the last processed event.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Click feeds one key code. Codes <= 0 are ignored.
func (e *Engine) Click(code int) {
	if code <= 0 {
		e.logger.Debug("ignoring key code", "code", code)
		return
	}
	e.enqueue(event{kind: eventKey, code: code})
}

// Select reports that the host chose a candidate. The text is committed and
// the syllables it covered leave the buffer: one for a symbol, none for a
// suggestion, otherwise one per character.
func (e *Engine) Select(text string, category zhuyin.Category) {
	n := utf8.RuneCountInString(text)
	switch category {
	case zhuyin.CategorySymbol:
		n = 1
	case zhuyin.CategorySuggestion:
		n = 0
	}

	if n == 0 {
		e.enqueue(event{kind: eventRefresh, text: text})
		return
	}
	e.enqueue(event{kind: eventRemove, count: n, text: text})
}

// Empty queues a reset of the buffer and candidates.
func (e *Engine) Empty() {
	e.enqueue(event{kind: eventClear})
}

// Wait blocks until every queued event has been processed.
func (e *Engine) Wait() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for e.working {
		e.cond.Wait()
	}
}

// Close drops pending events, waits for the running one and closes the
// lexicon.
func (e *Engine) Close() error {
	e.mu.Lock()
	e.closed = true
	e.queue = nil
	e.mu.Unlock()

	e.cancel()
	e.Wait()
	return e.lex.Close()
}

// enqueue appends an event and starts draining unless a drain is running.
func (e *Engine) enqueue(ev event) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.queue = append(e.queue, ev)
	start := !e.working
	e.working = true
	e.mu.Unlock()

	if start {
		go e.drain()
	}
}

// drain processes queued events until the queue is empty.
func (e *Engine) drain() {
	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			e.working = false
			e.cond.Broadcast()
			e.mu.Unlock()
			return
		}
		ev := e.queue[0]
		e.queue = e.queue[1:]
		e.mu.Unlock()

		e.Open()
		e.handle(e.ctx, ev)

		state := e.currentState()
		e.mu.Lock()
		e.state = state
		e.mu.Unlock()
	}
}

func (e *Engine) currentState() State {
	switch {
	case e.candidate != "":
		return CandidatesPending
	case e.buffer.HasSymbols():
		return Composing
	default:
		return Idle
	}
}

func (e *Engine) handle(ctx context.Context, ev event) {
	switch ev.kind {
	case eventKey:
		e.handleKey(ctx, ev.code)
	case eventRefresh:
		if ev.text != "" {
			e.sink.SendString(ev.text)
		}
		e.sendPending()
		e.generate(ctx, false)
	case eventRemove:
		e.sink.SendString(ev.text)
		e.removeSyllables(ctx, ev.count, ev.text)
	case eventClear:
		e.reset()
		e.sink.SendCandidates(nil)
	}
}

func (e *Engine) handleKey(ctx context.Context, code int) {
	e.logger.Debug("key", "code", code)

	switch code {
	case KeyReturn:
		if e.candidate == "" {
			e.sink.SendKey(code)
			return
		}
		e.commitDefault()
		return

	case KeyBackspace:
		e.backspace(ctx, code)
		return
	}

	// Codes past the Unicode range would wrap around when narrowed to a rune.
	r := rune(code)
	slot, ok := zhuyin.Classify(r)
	if !ok || code > utf8.MaxRune {
		if e.candidate != "" {
			e.commitDefault()
		}
		e.sink.SendKey(code)
		return
	}

	cur := &e.buffer[len(e.buffer)-1]
	if e.occupied(*cur, slot) {
		e.logger.Debug("slot occupied, starting next syllable", "slot", slot)
		cur.WildTone = true
		e.buffer = append(e.buffer, zhuyin.Syllable{})
		cur = &e.buffer[len(e.buffer)-1]
	}
	cur.Set(slot, r)
	e.selected, e.removed = "", nil
	e.sendPending()

	if limit := e.cfg.BufferLimit; limit > 0 && len(e.buffer) >= limit {
		e.forceCommit(ctx)
	} else {
		e.generate(ctx, true)
	}

	if slot == zhuyin.Tone {
		e.buffer = append(e.buffer, zhuyin.Syllable{})
	}
}

// occupied reports whether placing a symbol in slot has to start a new
// syllable.
func (e *Engine) occupied(s zhuyin.Syllable, slot zhuyin.Slot) bool {
	if e.cfg.IncompleteMatching {
		return s.OccupiedFrom(slot)
	}
	return s.Get(slot) != 0
}

// forceCommit outputs the longest leading run of syllables that forms a
// term, or the first syllable as typed, and drops it from the buffer.
func (e *Engine) forceCommit(ctx context.Context) {
	e.logger.Debug("buffer limit reached", "syllables", len(e.buffer))

	for i := len(e.buffer) - 1; i >= 1; i-- {
		terms := e.terms(ctx, e.normalize(e.buffer[:i]).Patterns())
		if len(terms) == 0 && i > 1 {
			continue
		}

		text := e.buffer[:i].Literal()
		if len(terms) > 0 {
			text = terms[0].Text
		}
		e.sink.SendString(text)
		e.buffer = append(zhuyin.Buffer(nil), e.buffer[i:]...)
		break
	}

	e.sendPending()
	e.generate(ctx, true)
}

func (e *Engine) backspace(ctx context.Context, code int) {
	if !e.buffer.HasSymbols() {
		if e.candidate == "" {
			e.sink.SendKey(code)
			return
		}
		e.logger.Debug("clearing candidates")
		e.selected, e.removed = "", nil
		e.generate(ctx, false)
		return
	}

	if !e.buffer[len(e.buffer)-1].HasSymbols() {
		e.buffer = e.buffer[:len(e.buffer)-1]
		last := &e.buffer[len(e.buffer)-1]
		*last = zhuyin.ParseSyllable(last.Display())
	}
	e.buffer[len(e.buffer)-1].ClearLast()

	e.sendPending()
	e.generate(ctx, true)
}

// removeSyllables drops the syllables a selection covered and offers
// suggestions that continue it.
func (e *Engine) removeSyllables(ctx context.Context, n int, text string) {
	n = min(n, len(e.buffer))
	e.logger.Debug("removing syllables", "count", n)

	e.selected = text
	e.removed = append(zhuyin.Buffer(nil), e.buffer[:n]...)
	e.buffer = append(zhuyin.Buffer(nil), e.buffer[n:]...)
	if len(e.buffer) == 0 {
		e.buffer = zhuyin.Buffer{{}}
	}

	e.sendPending()
	e.generate(ctx, true)
}

func (e *Engine) commitDefault() {
	e.logger.Debug("committing default candidate", "text", e.candidate)
	e.sink.SendString(e.candidate)
	e.sink.SendCandidates(nil)
	e.reset()
}

// reset empties the buffer and forgets the default candidate and the
// last selection.
func (e *Engine) reset() {
	e.buffer = zhuyin.Buffer{{}}
	e.candidate = ""
	e.selected, e.removed = "", nil
	e.sendPending()
}

func (e *Engine) sendPending() {
	e.sink.SendPendingSymbols(e.buffer.Display())
}
