// Package segment splits a run of syllables into terms. Every composition
// of the run is resolved against the lexicon and the full-coverage results
// are ranked by their summed score.
package segment

import (
	"cmp"
	"context"
	"log/slog"
	"slices"

	"github.com/f3rmion/zhuyin/internal/zhuyin"
	"github.com/sourcegraph/conc/iter"
)

// FallbackScore is given to a single syllable with no lexicon entry. It is
// lower than any real lexicon score.
const FallbackScore = -7

// Resolver finds the best scoring term for a run of syllables.
type Resolver interface {
	BestTerm(ctx context.Context, patterns []zhuyin.Pattern) (zhuyin.Term, bool, error)
}

// Compositions returns every composition of n (every way to write n as an
// ordered sum of positive parts), 2^(n-1) in total. Bit j of the mask x
// joins syllable j+1 to the current part; masks are walked from all ones
// down to zero, which fixes the discovery order.
func Compositions(n int) [][]int {
	if n <= 0 {
		return nil
	}

	out := make([][]int, 0, 1<<(n-1))
	for x := 1<<(n-1) - 1; x >= 0; x-- {
		parts := []int{1}
		for j := 0; j < n-1; j++ {
			if x&(1<<j) != 0 {
				parts[len(parts)-1]++
			} else {
				parts = append(parts, 1)
			}
		}
		out = append(out, parts)
	}
	return out
}

// Segmenter resolves compositions into sentences.
type Segmenter struct {
	Resolver Resolver

	// MaxTermLength bounds the syllables a single term can cover.
	// Zero means unbounded.
	MaxTermLength int

	// Workers bounds concurrent composition lookups.
	// Zero uses GOMAXPROCS.
	Workers int

	Logger *slog.Logger
}

type resolved struct {
	sentence zhuyin.Sentence
	ok       bool
}

// Sentences returns every sentence covering all of patterns, ordered by
// descending score (ties keep discovery order) with repeated texts removed.
func (s *Segmenter) Sentences(ctx context.Context, patterns []zhuyin.Pattern) ([]zhuyin.Sentence, error) {
	if len(patterns) == 0 {
		return nil, nil
	}

	comps := Compositions(len(patterns))
	mapper := iter.Mapper[[]int, resolved]{MaxGoroutines: s.Workers}
	results := mapper.Map(comps, func(comp *[]int) resolved {
		sentence, ok := s.resolve(ctx, patterns, *comp)
		return resolved{sentence: sentence, ok: ok}
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var kept []zhuyin.Sentence
	for _, r := range results {
		if r.ok {
			kept = append(kept, r.sentence)
		}
	}
	return rank(kept), nil
}

// resolve walks one composition left to right. A multi-syllable part with
// no term abandons the composition; a single syllable falls back to its
// literal symbols.
func (s *Segmenter) resolve(ctx context.Context, patterns []zhuyin.Pattern, comp []int) (zhuyin.Sentence, bool) {
	sentence := make(zhuyin.Sentence, 0, len(comp))
	start := 0
	for _, size := range comp {
		part := patterns[start : start+size]

		term, ok := s.lookup(ctx, part)
		if !ok {
			if size > 1 {
				return nil, false
			}
			term = zhuyin.Term{Text: part[0].Literal(), Score: FallbackScore}
		}

		sentence = append(sentence, term)
		start += size
	}
	return sentence, start == len(patterns)
}

func (s *Segmenter) lookup(ctx context.Context, part []zhuyin.Pattern) (zhuyin.Term, bool) {
	if s.MaxTermLength > 0 && len(part) > s.MaxTermLength {
		return zhuyin.Term{}, false
	}
	if ctx.Err() != nil {
		return zhuyin.Term{}, false
	}

	term, ok, err := s.Resolver.BestTerm(ctx, part)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Debug("term lookup failed", "syllables", zhuyin.NewQuery(part...).Key(), "error", err)
		}
		return zhuyin.Term{}, false
	}
	return term, ok
}

// rank stable-sorts sentences by descending score and keeps the first
// sentence of every rendered text.
func rank(sentences []zhuyin.Sentence) []zhuyin.Sentence {
	slices.SortStableFunc(sentences, func(a, b zhuyin.Sentence) int {
		return cmp.Compare(b.Score(), a.Score())
	})

	seen := make(map[string]bool, len(sentences))
	out := sentences[:0]
	for _, s := range sentences {
		text := s.Text()
		if seen[text] {
			continue
		}
		seen[text] = true
		out = append(out, s)
	}
	return out
}
