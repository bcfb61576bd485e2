package segment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/f3rmion/zhuyin/internal/zhuyin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapResolver resolves joined pattern keys from a fixed table.
type mapResolver struct {
	terms map[string]zhuyin.Term
	calls atomic.Int64
	fail  map[string]bool
}

func (r *mapResolver) BestTerm(ctx context.Context, patterns []zhuyin.Pattern) (zhuyin.Term, bool, error) {
	r.calls.Add(1)
	key := zhuyin.NewQuery(patterns...).Key()
	if r.fail[key] {
		return zhuyin.Term{}, false, errors.New("store unavailable")
	}
	t, ok := r.terms[key]
	return t, ok, nil
}

func patterns(syllables ...string) []zhuyin.Pattern {
	out := make([]zhuyin.Pattern, len(syllables))
	for i, s := range syllables {
		out[i] = zhuyin.PatternOf(s)
	}
	return out
}

func TestCompositionsCount(t *testing.T) {
	for n := 1; n <= 8; n++ {
		comps := Compositions(n)
		require.Len(t, comps, 1<<(n-1), "n=%d", n)

		seen := make(map[string]bool)
		for _, c := range comps {
			sum := 0
			for _, part := range c {
				require.Positive(t, part)
				sum += part
			}
			assert.Equal(t, n, sum, "composition %v of %d", c, n)

			key := fmt.Sprint(c)
			assert.False(t, seen[key], "duplicate composition %v", c)
			seen[key] = true
		}
	}
	assert.Nil(t, Compositions(0))
}

func TestCompositionsOrder(t *testing.T) {
	assert.Equal(t, [][]int{
		{3},
		{1, 2},
		{2, 1},
		{1, 1, 1},
	}, Compositions(3))
}

func TestSentencesRanking(t *testing.T) {
	r := &mapResolver{terms: map[string]zhuyin.Term{
		"ㄊㄞˊ-ㄅㄟˇ": {Text: "台北", Score: 100},
		"ㄊㄞˊ":      {Text: "台", Score: 10},
		"ㄅㄟˇ":      {Text: "貝", Score: 20},
	}}
	s := &Segmenter{Resolver: r}

	sentences, err := s.Sentences(context.Background(), patterns("ㄊㄞˊ", "ㄅㄟˇ"))
	require.NoError(t, err)
	require.Len(t, sentences, 2)
	assert.Equal(t, "台北", sentences[0].Text())
	assert.Equal(t, 100, sentences[0].Score())
	assert.Len(t, sentences[0], 1)
	assert.Equal(t, "台貝", sentences[1].Text())
	assert.Len(t, sentences[1], 2)
	assert.Equal(t, 30, sentences[1].Score())
}

func TestSentencesDedupeKeepsHighest(t *testing.T) {
	r := &mapResolver{terms: map[string]zhuyin.Term{
		"ㄊㄞˊ-ㄅㄟˇ": {Text: "台北", Score: 5},
		"ㄊㄞˊ":      {Text: "台", Score: 10},
		"ㄅㄟˇ":      {Text: "北", Score: 20},
	}}
	s := &Segmenter{Resolver: r}

	sentences, err := s.Sentences(context.Background(), patterns("ㄊㄞˊ", "ㄅㄟˇ"))
	require.NoError(t, err)
	require.Len(t, sentences, 1)
	assert.Equal(t, 30, sentences[0].Score())
	assert.Len(t, sentences[0], 2)
}

func TestSentencesFallbackAndAbandon(t *testing.T) {
	r := &mapResolver{terms: map[string]zhuyin.Term{
		"ㄅㄟˇ": {Text: "北", Score: 20},
	}}
	s := &Segmenter{Resolver: r}

	sentences, err := s.Sentences(context.Background(), patterns("ㄊㄞˊ", "ㄅㄟˇ"))
	require.NoError(t, err)
	require.Len(t, sentences, 1, "two-syllable part has no term and is abandoned")
	assert.Equal(t, "ㄊㄞˊ北", sentences[0].Text())
	assert.Equal(t, FallbackScore+20, sentences[0].Score())
}

func TestSentencesTileSpan(t *testing.T) {
	terms := map[string]zhuyin.Term{}
	syllables := []string{"ㄅㄚ", "ㄆㄚ", "ㄇㄚ", "ㄈㄚ", "ㄉㄚ"}
	for i := range syllables {
		for j := i + 1; j <= len(syllables); j++ {
			key := strings.Join(syllables[i:j], "-")
			terms[key] = zhuyin.Term{Text: fmt.Sprintf("<%d:%d>", i, j), Score: j - i}
		}
	}
	r := &mapResolver{terms: terms}
	s := &Segmenter{Resolver: r, Workers: 4}

	sentences, err := s.Sentences(context.Background(), patterns(syllables...))
	require.NoError(t, err)
	require.Len(t, sentences, 1<<(len(syllables)-1))

	for _, sentence := range sentences {
		next := 0
		for _, term := range sentence {
			var i, j int
			_, err := fmt.Sscanf(term.Text, "<%d:%d>", &i, &j)
			require.NoError(t, err)
			assert.Equal(t, next, i, "gap or overlap in %s", sentence.Text())
			next = j
		}
		assert.Equal(t, len(syllables), next)
		assert.Equal(t, len(syllables), sentence.Score())
	}
}

func TestSentencesMaxTermLength(t *testing.T) {
	r := &mapResolver{terms: map[string]zhuyin.Term{
		"ㄊㄞˊ-ㄅㄟˇ": {Text: "台北", Score: 100},
		"ㄊㄞˊ":      {Text: "台", Score: 10},
		"ㄅㄟˇ":      {Text: "北", Score: 20},
	}}
	s := &Segmenter{Resolver: r, MaxTermLength: 1}

	sentences, err := s.Sentences(context.Background(), patterns("ㄊㄞˊ", "ㄅㄟˇ"))
	require.NoError(t, err)
	require.Len(t, sentences, 1)
	assert.Equal(t, "台北", sentences[0].Text())
	assert.Len(t, sentences[0], 2)
}

func TestSentencesLookupErrorIsNoTerm(t *testing.T) {
	r := &mapResolver{
		terms: map[string]zhuyin.Term{"ㄊㄞˊ-ㄅㄟˇ": {Text: "台北", Score: 100}},
		fail:  map[string]bool{"ㄊㄞˊ-ㄅㄟˇ": true},
	}
	s := &Segmenter{Resolver: r}

	sentences, err := s.Sentences(context.Background(), patterns("ㄊㄞˊ", "ㄅㄟˇ"))
	require.NoError(t, err)
	require.Len(t, sentences, 1)
	assert.Equal(t, "ㄊㄞˊㄅㄟˇ", sentences[0].Text())
}

func TestSentencesCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &Segmenter{Resolver: &mapResolver{}}
	_, err := s.Sentences(ctx, patterns("ㄊㄞˊ", "ㄅㄟˇ"))
	assert.ErrorIs(t, err, context.Canceled)
}
