package ime

import (
	"context"
	"strings"

	"github.com/f3rmion/zhuyin/internal/zhuyin"
)

// candidateList accumulates candidates, keeping the first of each text.
type candidateList struct {
	items []zhuyin.Candidate
	seen  map[string]bool
}

func (l *candidateList) add(text string, category zhuyin.Category) {
	if text == "" || l.seen[text] {
		return
	}
	if l.seen == nil {
		l.seen = make(map[string]bool)
	}
	l.seen[text] = true
	l.items = append(l.items, zhuyin.Candidate{Text: text, Category: category})
}

func (l *candidateList) addTerms(terms []zhuyin.Term, category zhuyin.Category) {
	for _, t := range terms {
		l.add(t.Text, category)
	}
}

// normalize prepares syllables for a query. A trailing syllable without a
// tone gets the wildcard tone or NoTone, depending on configuration, and a
// trailing empty syllable is dropped.
func (e *Engine) normalize(b zhuyin.Buffer) zhuyin.Buffer {
	out := append(zhuyin.Buffer(nil), b...)
	if len(out) == 0 {
		return out
	}

	last := &out[len(out)-1]
	if last.IsEmpty() {
		return out[:len(out)-1]
	}
	if !last.Complete() {
		*last = last.WithTone(e.cfg.AutocompleteLastSyllable)
	}
	return out
}

// generate rebuilds the candidate list for the current buffer and sends it.
// With an empty buffer it offers continuations of the last selection when
// suggest is set.
func (e *Engine) generate(ctx context.Context, suggest bool) {
	var list candidateList

	if !e.buffer.HasSymbols() {
		if suggest && e.cfg.AutoSuggest && e.selected != "" {
			for _, t := range e.suggestions(ctx) {
				list.add(strings.TrimPrefix(t.Text, e.selected), zhuyin.CategorySuggestion)
			}
			e.selected, e.removed = "", nil
		}
		e.emit(list.items)
		return
	}

	syllables := e.normalize(e.buffer)
	patterns := syllables.Patterns()

	list.addTerms(e.terms(ctx, patterns), zhuyin.CategoryWhole)

	if len(patterns) == 1 {
		if len(list.items) == 0 {
			list.add(e.buffer.Literal(), zhuyin.CategoryWhole)
		}
		e.emit(list.items)
		return
	}

	for _, s := range e.sentences(ctx, patterns) {
		list.add(s.Text(), zhuyin.CategoryWhole)
	}

	for i := min(e.cfg.MaxTermLength, len(patterns)-1); i >= 1; i-- {
		terms := e.terms(ctx, patterns[:i])
		list.addTerms(terms, zhuyin.CategoryTerm)
		if i == 1 && len(terms) == 0 {
			list.add(e.buffer[0].Literal(), zhuyin.CategorySymbol)
		}
	}

	e.emit(list.items)
}

// emit sends the candidates and records the first as the default.
func (e *Engine) emit(candidates []zhuyin.Candidate) {
	e.candidate = ""
	if len(candidates) > 0 {
		e.candidate = candidates[0].Text
	}
	e.sink.SendCandidates(candidates)
}

// suggestions looks up continuations of the last selection in the context
// of the syllables it consumed.
func (e *Engine) suggestions(ctx context.Context) []zhuyin.Term {
	lead := e.normalize(e.removed)
	if len(lead) == 0 {
		return nil
	}
	terms, err := e.lex.Suggestions(ctx, lead.Patterns(), e.selected)
	if err != nil {
		e.logger.Debug("suggestion lookup failed", "selected", e.selected, "error", err)
		return nil
	}
	return terms
}

// terms looks up terms, treating failures as no result.
func (e *Engine) terms(ctx context.Context, patterns []zhuyin.Pattern) []zhuyin.Term {
	if len(patterns) == 0 {
		return nil
	}
	terms, err := e.lex.Terms(ctx, patterns)
	if err != nil {
		e.logger.Debug("term lookup failed", "syllables", zhuyin.NewQuery(patterns...).Key(), "error", err)
		return nil
	}
	return terms
}

// sentences segments the buffer, treating failures as no result.
func (e *Engine) sentences(ctx context.Context, patterns []zhuyin.Pattern) []zhuyin.Sentence {
	sentences, err := e.lex.Sentences(ctx, patterns)
	if err != nil {
		e.logger.Debug("sentence lookup failed", "syllables", zhuyin.NewQuery(patterns...).Key(), "error", err)
		return nil
	}
	return sentences
}
