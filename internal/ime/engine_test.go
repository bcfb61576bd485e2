package ime

import (
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/f3rmion/zhuyin/internal/config"
	"github.com/f3rmion/zhuyin/internal/lexicon"
	"github.com/f3rmion/zhuyin/internal/zhuyin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a Sink that keeps everything it is sent.
type recorder struct {
	mu         sync.Mutex
	pending    []string
	candidates [][]zhuyin.Candidate
	strings    []string
	keys       []int
}

func (r *recorder) SendPendingSymbols(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, text)
}

func (r *recorder) SendCandidates(candidates []zhuyin.Candidate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidates = append(r.candidates, candidates)
}

func (r *recorder) SendString(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strings = append(r.strings, text)
}

func (r *recorder) SendKey(code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, code)
}

func (r *recorder) lastPending() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pending) == 0 {
		return ""
	}
	return r.pending[len(r.pending)-1]
}

func (r *recorder) lastCandidates() []zhuyin.Candidate {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.candidates) == 0 {
		return nil
	}
	return r.candidates[len(r.candidates)-1]
}

func (r *recorder) committed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.strings...)
}

func testLexicon() *lexicon.Lexicon {
	flat := lexicon.NewMemoryStore()
	flat.Add("ㄊㄞˊ", zhuyin.Term{Text: "台", Score: 10}, zhuyin.Term{Text: "抬", Score: 5})
	flat.Add("ㄊㄞˋ", zhuyin.Term{Text: "太", Score: 8})
	flat.Add("ㄅㄟˇ", zhuyin.Term{Text: "北", Score: 20})
	flat.Add("ㄊㄞˊ-ㄅㄟˇ", zhuyin.Term{Text: "台北", Score: 100})
	flat.Add("ㄊㄞˊ-ㄅㄟˇ-ㄕˋ", zhuyin.Term{Text: "台北市", Score: 90})
	flat.Add("ㄊㄞˊ-ㄅㄟˇ-ㄖㄣˊ", zhuyin.Term{Text: "台北人", Score: 30})
	return lexicon.New(flat, nil)
}

func newEngine(t *testing.T, cfg config.Engine, lex Lexicon) (*Engine, *recorder) {
	t.Helper()
	sink := &recorder{}
	e := New(cfg, lex, sink)
	t.Cleanup(func() { e.Close() })
	return e, sink
}

// typeText clicks every rune of text and waits for the engine to settle.
func typeText(e *Engine, text string) {
	for _, r := range text {
		e.Click(int(r))
	}
	e.Wait()
}

func candidate(text string, category zhuyin.Category) zhuyin.Candidate {
	return zhuyin.Candidate{Text: text, Category: category}
}

func TestEngineCompletesSyllableOnTone(t *testing.T) {
	e, sink := newEngine(t, config.DefaultEngine(), testLexicon())

	typeText(e, "ㄊㄞˊ")
	assert.Equal(t, "ㄊㄞˊ", sink.lastPending())
	assert.Equal(t, []zhuyin.Candidate{
		candidate("台", zhuyin.CategoryWhole),
		candidate("抬", zhuyin.CategoryWhole),
	}, sink.lastCandidates())
	require.Len(t, e.buffer, 2)
	assert.True(t, e.buffer[0].Complete())
	assert.True(t, e.buffer[1].IsEmpty())
	assert.Equal(t, CandidatesPending, e.State())

	typeText(e, "ㄅ")
	require.Len(t, e.buffer, 2)
	assert.Equal(t, "ㄊㄞˊㄅ", sink.lastPending())
}

func TestEngineWholeBufferCandidate(t *testing.T) {
	e, sink := newEngine(t, config.DefaultEngine(), testLexicon())

	typeText(e, "ㄊㄞˊㄅㄟˇ")
	assert.Equal(t, []zhuyin.Candidate{
		candidate("台北", zhuyin.CategoryWhole),
		candidate("台", zhuyin.CategoryTerm),
		candidate("抬", zhuyin.CategoryTerm),
	}, sink.lastCandidates())

	typeText(e, string(rune(KeyReturn)))
	assert.Equal(t, []string{"台北"}, sink.committed())
	assert.Empty(t, sink.lastCandidates())
	assert.Equal(t, "", sink.lastPending())
	assert.Equal(t, Idle, e.State())
}

func TestEngineIncompleteMatching(t *testing.T) {
	e, sink := newEngine(t, config.DefaultEngine(), testLexicon())

	typeText(e, "ㄊㄅ")
	require.Len(t, e.buffer, 2)
	assert.True(t, e.buffer[0].WildTone)

	cands := sink.lastCandidates()
	require.NotEmpty(t, cands)
	assert.Equal(t, candidate("台北", zhuyin.CategoryWhole), cands[0])
}

func TestEngineWithoutIncompleteMatching(t *testing.T) {
	cfg := config.DefaultEngine()
	cfg.IncompleteMatching = false
	e, _ := newEngine(t, cfg, testLexicon())

	typeText(e, "ㄞㄅ")
	require.Len(t, e.buffer, 1, "ㄅ sits before ㄞ but its own slot is free")
	assert.Equal(t, "ㄅㄞ", e.buffer[0].Display())

	typeText(e, "ㄆ")
	require.Len(t, e.buffer, 2, "occupied slot starts a new syllable")
}

func TestEngineAutocompleteDisabled(t *testing.T) {
	cfg := config.DefaultEngine()
	cfg.AutocompleteLastSyllable = false
	e, sink := newEngine(t, cfg, testLexicon())

	typeText(e, "ㄊㄞ")
	assert.Equal(t, []zhuyin.Candidate{candidate("ㄊㄞ", zhuyin.CategoryWhole)}, sink.lastCandidates(),
		"first tone only, which has no entry")
}

func TestEngineSelectSuggests(t *testing.T) {
	e, sink := newEngine(t, config.DefaultEngine(), testLexicon())

	typeText(e, "ㄊㄞˊㄅㄟˇ")
	e.Select("台北", zhuyin.CategoryWhole)
	e.Wait()

	assert.Equal(t, []string{"台北"}, sink.committed())
	assert.Equal(t, []zhuyin.Candidate{
		candidate("市", zhuyin.CategorySuggestion),
		candidate("人", zhuyin.CategorySuggestion),
	}, sink.lastCandidates())
	assert.False(t, e.buffer.HasSymbols())
	assert.Equal(t, CandidatesPending, e.State())

	e.Select("市", zhuyin.CategorySuggestion)
	e.Wait()
	assert.Equal(t, []string{"台北", "市"}, sink.committed())
	assert.Empty(t, sink.lastCandidates(), "no suggestions after a suggestion")
	assert.Equal(t, Idle, e.State())
}

func TestEngineSelectWithoutAutoSuggest(t *testing.T) {
	cfg := config.DefaultEngine()
	cfg.AutoSuggest = false
	e, sink := newEngine(t, cfg, testLexicon())

	typeText(e, "ㄊㄞˊㄅㄟˇ")
	e.Select("台北", zhuyin.CategoryWhole)
	e.Wait()
	assert.Empty(t, sink.lastCandidates())
}

func TestEngineSelectRemovesSyllables(t *testing.T) {
	e, sink := newEngine(t, config.DefaultEngine(), testLexicon())

	typeText(e, "ㄊㄞˊㄇㄚˇ")
	require.Len(t, e.buffer, 3)

	e.Select("ㄊㄞˊ", zhuyin.CategorySymbol)
	e.Wait()
	require.Len(t, e.buffer, 2, "symbol removes exactly one syllable")
	assert.Equal(t, "ㄇㄚˇ", sink.lastPending())

	e.Select("x", zhuyin.CategorySuggestion)
	e.Wait()
	assert.Len(t, e.buffer, 2, "suggestion removes nothing")

	e.Select("台", zhuyin.CategoryTerm)
	e.Wait()
	assert.False(t, e.buffer.HasSymbols())
	assert.Equal(t, []string{"ㄊㄞˊ", "x", "台"}, sink.committed())
}

func TestEngineBackspace(t *testing.T) {
	e, sink := newEngine(t, config.DefaultEngine(), testLexicon())

	typeText(e, "ㄊㄞˊ")
	typeText(e, string(rune(KeyBackspace)))
	require.Len(t, e.buffer, 1)
	assert.Equal(t, "ㄊㄞ", e.buffer[0].Display())
	assert.Equal(t, "ㄊㄞ", sink.lastPending())
	assert.Equal(t, []zhuyin.Candidate{
		candidate("台", zhuyin.CategoryWhole),
		candidate("太", zhuyin.CategoryWhole),
		candidate("抬", zhuyin.CategoryWhole),
	}, sink.lastCandidates())

	typeText(e, "ˋ")
	assert.Equal(t, []zhuyin.Candidate{candidate("太", zhuyin.CategoryWhole)}, sink.lastCandidates())
}

func TestEngineBackspaceKeepsWildcard(t *testing.T) {
	e, sink := newEngine(t, config.DefaultEngine(), testLexicon())

	typeText(e, "ㄊㄅ")
	typeText(e, string(rune(KeyBackspace)))
	require.Len(t, e.buffer, 2)
	assert.True(t, e.buffer[0].WildTone)
	assert.True(t, e.buffer[1].IsEmpty())
	assert.Equal(t, "ㄊ", sink.lastPending())

	typeText(e, string(rune(KeyBackspace)))
	require.Len(t, e.buffer, 1)
	assert.False(t, e.buffer.HasSymbols())
	assert.Empty(t, sink.keys)
}

func TestEngineBackspacePassThrough(t *testing.T) {
	e, sink := newEngine(t, config.DefaultEngine(), testLexicon())

	typeText(e, string(rune(KeyBackspace)))
	assert.Equal(t, []int{KeyBackspace}, sink.keys)

	typeText(e, "ㄊㄞˊㄅㄟˇ")
	e.Select("台北", zhuyin.CategoryWhole)
	e.Wait()
	require.NotEmpty(t, sink.lastCandidates())

	typeText(e, string(rune(KeyBackspace)))
	assert.Empty(t, sink.lastCandidates(), "backspace clears suggestions first")
	assert.Equal(t, []int{KeyBackspace}, sink.keys)

	typeText(e, string(rune(KeyBackspace)))
	assert.Equal(t, []int{KeyBackspace, KeyBackspace}, sink.keys)
}

func TestEngineReturnPassThrough(t *testing.T) {
	e, sink := newEngine(t, config.DefaultEngine(), testLexicon())

	typeText(e, string(rune(KeyReturn)))
	assert.Equal(t, []int{KeyReturn}, sink.keys)
	assert.Empty(t, sink.committed())
}

func TestEngineNonPhoneticCommits(t *testing.T) {
	e, sink := newEngine(t, config.DefaultEngine(), testLexicon())

	typeText(e, "ㄊㄞˊㄅㄟˇ，")
	assert.Equal(t, []string{"台北"}, sink.committed())
	assert.Equal(t, []int{int('，')}, sink.keys)
	assert.False(t, e.buffer.HasSymbols())

	typeText(e, "a")
	assert.Equal(t, []string{"台北"}, sink.committed())
	assert.Equal(t, []int{int('，'), int('a')}, sink.keys)
}

func TestEngineBufferLimit(t *testing.T) {
	e, sink := newEngine(t, config.DefaultEngine(), testLexicon())

	for range 7 {
		typeText(e, "ㄇㄚˇ")
		assert.LessOrEqual(t, len(e.buffer), 8)
	}
	assert.Empty(t, sink.committed())
	require.Len(t, e.buffer, 8)

	typeText(e, "ㄇ")
	assert.Equal(t, []string{"ㄇㄚˇ"}, sink.committed(), "exactly one forced commit")
	assert.Len(t, e.buffer, 7)
	assert.Equal(t, "ㄇㄚˇㄇㄚˇㄇㄚˇㄇㄚˇㄇㄚˇㄇㄚˇㄇ", sink.lastPending())
}

func TestEngineBufferLimitCommitsLongestTerm(t *testing.T) {
	cfg := config.DefaultEngine()
	cfg.BufferLimit = 3
	e, sink := newEngine(t, cfg, testLexicon())

	typeText(e, "ㄊㄞˊㄅㄟˇ")
	require.Len(t, e.buffer, 3)
	assert.Empty(t, sink.committed())

	typeText(e, "ㄇ")
	assert.Equal(t, []string{"台北"}, sink.committed())
	require.Len(t, e.buffer, 1)
	assert.Equal(t, "ㄇ", sink.lastPending())
}

func TestEngineBufferLimitTone(t *testing.T) {
	cfg := config.DefaultEngine()
	cfg.BufferLimit = 2
	e, sink := newEngine(t, cfg, testLexicon())

	typeText(e, "ㄊㄞˊ")
	assert.Empty(t, sink.committed())

	typeText(e, "ˇ")
	assert.Equal(t, []string{"台"}, sink.committed())
	require.Len(t, e.buffer, 2, "tone still completes the syllable after a forced commit")
	assert.Equal(t, 'ˇ', e.buffer[0].Get(zhuyin.Tone))
	assert.False(t, e.buffer[0].WildTone)
	assert.True(t, e.buffer[1].IsEmpty())
}

func TestEngineIgnoresInvalidCodes(t *testing.T) {
	e, sink := newEngine(t, config.DefaultEngine(), testLexicon())

	e.Click(0)
	e.Click(-5)
	e.Wait()

	assert.Empty(t, sink.pending)
	assert.Empty(t, sink.candidates)
	assert.Empty(t, sink.keys)
}

func TestEngineWideCodesPassThrough(t *testing.T) {
	if strconv.IntSize < 64 {
		t.Skip("int cannot hold codes past 32 bits")
	}
	e, sink := newEngine(t, config.DefaultEngine(), testLexicon())

	var wide uint64 = 1<<32 | uint64('ㄅ')
	code := int(wide)
	e.Click(code)
	e.Wait()

	assert.Equal(t, []int{code}, sink.keys)
	assert.False(t, e.buffer.HasSymbols())
	assert.Empty(t, sink.pending)
}

func TestEngineEmpty(t *testing.T) {
	e, sink := newEngine(t, config.DefaultEngine(), testLexicon())

	typeText(e, "ㄊㄞˊㄅ")
	e.Empty()
	e.Wait()

	assert.False(t, e.buffer.HasSymbols())
	assert.Equal(t, "", sink.lastPending())
	assert.Empty(t, sink.lastCandidates())
	assert.Equal(t, Idle, e.State())

	typeText(e, string(rune(KeyReturn)))
	assert.Equal(t, []int{KeyReturn}, sink.keys)
}

func TestEngineCandidatesAreUnique(t *testing.T) {
	e, sink := newEngine(t, config.DefaultEngine(), testLexicon())

	typeText(e, "ㄊㄅㄊㄞˊㄅㄟˇㄊ")
	sink.mu.Lock()
	defer sink.mu.Unlock()
	for _, list := range sink.candidates {
		seen := make(map[string]bool)
		for _, c := range list {
			assert.False(t, seen[c.Text], "duplicate candidate %q", c.Text)
			seen[c.Text] = true
		}
	}
}

func TestEngineOrdering(t *testing.T) {
	e, sink := newEngine(t, config.DefaultEngine(), testLexicon())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for _, r := range "ㄊㄞˊ\rㄅㄟˇ\r" {
			e.Click(int(r))
		}
	}()
	wg.Wait()
	e.Wait()

	assert.Equal(t, []string{"台", "北"}, sink.committed())
}

func TestEngineOpensLexiconLazily(t *testing.T) {
	lex := testLexicon()
	e, _ := newEngine(t, config.DefaultEngine(), lex)

	assert.False(t, e.Ready())
	typeText(e, "ㄊ")
	assert.True(t, e.Ready())
	assert.NoError(t, e.Open())
}

func TestEngineWithoutLexicon(t *testing.T) {
	flat := lexicon.NewMemoryStore(filepath.Join(t.TempDir(), "missing.json"))
	e, sink := newEngine(t, config.DefaultEngine(), lexicon.New(flat, nil))

	typeText(e, "ㄊㄞˊ")
	assert.ErrorIs(t, e.Open(), lexicon.ErrUnavailable)
	assert.False(t, e.Ready())
	assert.Equal(t, []zhuyin.Candidate{candidate("ㄊㄞˊ", zhuyin.CategoryWhole)}, sink.lastCandidates())

	typeText(e, "ㄅㄟˇ")
	assert.Equal(t, []zhuyin.Candidate{candidate("ㄊㄞˊ", zhuyin.CategorySymbol)}, sink.lastCandidates())

	typeText(e, string(rune(KeyReturn)))
	assert.Equal(t, []string{"ㄊㄞˊ"}, sink.committed())
}

func TestEngineCloseStopsProcessing(t *testing.T) {
	sink := &recorder{}
	e := New(config.DefaultEngine(), testLexicon(), sink)

	typeText(e, "ㄊ")
	require.NoError(t, e.Close())

	before := len(sink.pending)
	e.Click(int('ㄞ'))
	e.Wait()
	assert.Len(t, sink.pending, before)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "composing", Composing.String())
	assert.Equal(t, "candidates", CandidatesPending.String())
}
