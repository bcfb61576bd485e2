package lexicon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/f3rmion/zhuyin/internal/segment"
	"github.com/f3rmion/zhuyin/internal/zhuyin"
)

// Cache key prefixes.
const (
	cacheTerms    = "TERMS:"
	cacheSuggest  = "SUGGEST:"
	cacheSkeleton = "SKELETON:"
)

// Option configures a Lexicon.
type Option func(*Lexicon)

// WithCacheTimeout sets the idle timeout of the result cache. A zero or
// negative timeout disables caching.
func WithCacheTimeout(d time.Duration) Option {
	return func(l *Lexicon) {
		l.cacheTimeout = d
	}
}

// WithMaxTermLength bounds the syllables a single term can span during
// segmentation.
func WithMaxTermLength(n int) Option {
	return func(l *Lexicon) {
		l.segmenter.MaxTermLength = n
	}
}

// WithWorkers bounds concurrent composition lookups during segmentation.
func WithWorkers(n int) Option {
	return func(l *Lexicon) {
		l.segmenter.Workers = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Lexicon) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Lexicon answers term, sentence and suggestion queries against whichever
// store is active. It prefers the indexed store and falls back to the flat
// JSON store, populating the indexed store in the background when it is
// empty.
type Lexicon struct {
	flat    *MemoryStore
	indexed Populator

	mu     sync.RWMutex
	active Store

	cacheTimeout time.Duration
	cache        *cache
	segmenter    segment.Segmenter
	logger       *slog.Logger

	cancel        context.CancelFunc
	closing       chan struct{}
	closeOnce     sync.Once
	populated     chan struct{}
	populatedOnce sync.Once
	wg            sync.WaitGroup
}

// New creates a lexicon over a flat store and an optional indexed store.
// Either may be nil, but not both.
func New(flat *MemoryStore, indexed Populator, opts ...Option) *Lexicon {
	l := &Lexicon{
		flat:         flat,
		indexed:      indexed,
		cacheTimeout: DefaultCacheTimeout,
		logger:       slog.New(slog.DiscardHandler),
		populated:    make(chan struct{}),
		closing:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.cache = newCache(l.cacheTimeout)
	l.segmenter.Resolver = l
	l.segmenter.Logger = l.logger
	if flat != nil {
		flat.SetLogger(l.logger)
	}
	return l
}

// Open selects the backend. A populated indexed store is used directly. An
// empty one is filled from the flat store in the background while the flat
// store serves queries. Open returns ErrUnavailable when no store loads.
func (l *Lexicon) Open(ctx context.Context) error {
	populate := false
	if l.indexed != nil {
		switch err := l.indexed.Open(ctx); {
		case err != nil:
			l.logger.Warn("indexed lexicon unavailable", "error", err)
		case l.indexed.Ready(ctx):
			l.setActive(l.indexed)
			l.donePopulating()
			l.logger.Debug("using indexed lexicon")
			return nil
		default:
			populate = true
		}
	}

	if l.flat == nil {
		l.donePopulating()
		return fmt.Errorf("opening lexicon: %w", ErrUnavailable)
	}
	if err := l.flat.Open(ctx); err != nil {
		l.donePopulating()
		return fmt.Errorf("opening lexicon: %w", err)
	}
	l.setActive(l.flat)
	l.logger.Debug("using flat lexicon", "keys", len(l.flat.Records()))

	if !populate {
		l.donePopulating()
		return nil
	}

	bg, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer l.donePopulating()
		l.populate(bg)
	}()
	return nil
}

// populate copies the flat store into the indexed store and switches to it.
func (l *Lexicon) populate(ctx context.Context) {
	start := time.Now()
	n, err := Import(ctx, l.flat, l.indexed)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			l.logger.Warn("populating indexed lexicon failed", "error", err)
		}
		return
	}

	l.setActive(l.indexed)
	l.cache.clear()
	l.logger.Info("indexed lexicon populated", "keys", n, "elapsed", time.Since(start))
}

// Import writes every record of the flat store into the indexed store. The
// flat store is loaded first if it holds nothing yet.
func Import(ctx context.Context, flat *MemoryStore, indexed Populator) (int, error) {
	if !flat.Ready(ctx) {
		if err := flat.Open(ctx); err != nil {
			return 0, fmt.Errorf("loading flat lexicon: %w", err)
		}
	}
	if err := indexed.Open(ctx); err != nil {
		return 0, fmt.Errorf("opening indexed lexicon: %w", err)
	}

	records := flat.Records()
	if err := indexed.Populate(ctx, records); err != nil {
		return 0, fmt.Errorf("populating indexed lexicon: %w", err)
	}
	return len(records), nil
}

func (l *Lexicon) donePopulating() {
	l.populatedOnce.Do(func() { close(l.populated) })
}

// Populated is closed once background population has ended, whether it
// succeeded or not. It is also closed when no population was needed.
func (l *Lexicon) Populated() <-chan struct{} {
	return l.populated
}

func (l *Lexicon) setActive(s Store) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active = s
}

func (l *Lexicon) store() (Store, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.active == nil {
		return nil, ErrNotReady
	}
	return l.active, nil
}

// Ready reports whether some store is serving queries.
func (l *Lexicon) Ready() bool {
	_, err := l.store()
	return err == nil
}

// Backend names the active store: "indexed", "flat", or "" before Open.
func (l *Lexicon) Backend() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	switch {
	case l.active == nil:
		return ""
	case l.active == Store(l.indexed):
		return "indexed"
	default:
		return "flat"
	}
}

// Reload rereads the flat data files and drops cached results.
func (l *Lexicon) Reload(ctx context.Context) error {
	if l.flat == nil {
		return nil
	}
	if err := l.flat.Reload(ctx); err != nil {
		return fmt.Errorf("reloading lexicon: %w", err)
	}
	l.cache.clear()
	return nil
}

// Terms returns every term whose key matches patterns, by descending score
// with repeated texts removed.
func (l *Lexicon) Terms(ctx context.Context, patterns []zhuyin.Pattern) ([]zhuyin.Term, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	q := zhuyin.NewQuery(patterns...)

	key := cacheTerms + q.String()
	if terms, ok := l.cache.getTerms(key); ok {
		return terms, nil
	}

	st, err := l.store()
	if err != nil {
		return nil, err
	}

	var terms []zhuyin.Term
	if q.Wild() {
		records, err := l.rangeRecords(ctx, st, q)
		if err != nil {
			return nil, err
		}
		terms = mergeRecords(records)
	} else {
		exact, err := st.Exact(ctx, q.Key())
		if err != nil {
			return nil, fmt.Errorf("looking up %s: %w", q.Key(), err)
		}
		terms = normalizeTerms(exact)
	}

	l.cache.putTerms(key, terms)
	return terms, nil
}

// rangeRecords runs a range query, going through the cached skeleton index
// for exact-length queries with a constant skeleton.
func (l *Lexicon) rangeRecords(ctx context.Context, st Store, q zhuyin.Query) ([]Record, error) {
	skel, ok := q.Skeleton()
	if !ok || q.Prefix {
		records, err := st.Range(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", q, err)
		}
		return records, nil
	}

	key := cacheSkeleton + skel
	records, ok := l.cache.getRecords(key)
	if !ok {
		var err error
		records, err = st.Skeleton(ctx, skel)
		if err != nil {
			return nil, fmt.Errorf("scanning skeleton %s: %w", skel, err)
		}
		l.cache.putRecords(key, records)
	}
	return filterRecords(records, q), nil
}

// BestTerm returns the highest scoring term matching patterns.
func (l *Lexicon) BestTerm(ctx context.Context, patterns []zhuyin.Pattern) (zhuyin.Term, bool, error) {
	terms, err := l.Terms(ctx, patterns)
	if err != nil || len(terms) == 0 {
		return zhuyin.Term{}, false, err
	}
	return terms[0], true, nil
}

// Sentences segments patterns into ranked full-coverage sentences.
func (l *Lexicon) Sentences(ctx context.Context, patterns []zhuyin.Pattern) ([]zhuyin.Sentence, error) {
	if _, err := l.store(); err != nil {
		return nil, err
	}
	return l.segmenter.Sentences(ctx, patterns)
}

// Suggestions returns terms that continue selected: their text starts with
// selected and is longer, and their key starts with the syllables of
// lead. A wildcard lead is first narrowed to the key that produced
// selected.
func (l *Lexicon) Suggestions(ctx context.Context, lead []zhuyin.Pattern, selected string) ([]zhuyin.Term, error) {
	if len(lead) == 0 || selected == "" {
		return nil, nil
	}
	q := zhuyin.Query{Syllables: lead, Prefix: true}

	key := cacheSuggest + q.String() + "|" + selected
	if terms, ok := l.cache.getTerms(key); ok {
		return terms, nil
	}

	st, err := l.store()
	if err != nil {
		return nil, err
	}

	if q.Wild() {
		resolved, ok, err := l.resolveContext(ctx, st, lead, selected)
		if err != nil {
			return nil, err
		}
		if ok {
			q.Syllables = resolved
		}
	}

	records, err := st.Range(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("scanning suggestions for %s: %w", q, err)
	}

	var all []zhuyin.Term
	for _, r := range records {
		for _, t := range r.Terms {
			if t.Text != selected && strings.HasPrefix(t.Text, selected) {
				all = append(all, t)
			}
		}
	}
	terms := normalizeTerms(all)

	l.cache.putTerms(key, terms)
	return terms, nil
}

// resolveContext finds the first key, in key order, matching the wildcard
// lead whose terms contain selected, and returns its concrete patterns.
func (l *Lexicon) resolveContext(ctx context.Context, st Store, lead []zhuyin.Pattern, selected string) ([]zhuyin.Pattern, bool, error) {
	records, err := l.rangeRecords(ctx, st, zhuyin.NewQuery(lead...))
	if err != nil {
		return nil, false, err
	}
	for _, r := range records {
		for _, t := range r.Terms {
			if t.Text != selected {
				continue
			}
			syllables := zhuyin.ParseKey(r.Key)
			out := make([]zhuyin.Pattern, len(syllables))
			for i, s := range syllables {
				out[i] = s.Pattern()
			}
			return out, true, nil
		}
	}
	return nil, false, nil
}

// Close stops background work and closes both stores.
func (l *Lexicon) Close() error {
	if l.cancel != nil {
		l.cancel()
	}
	l.closeOnce.Do(func() { close(l.closing) })
	l.wg.Wait()
	l.cache.stop()
	l.setActive(nil)

	var errs []error
	if l.indexed != nil {
		if err := l.indexed.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing indexed lexicon: %w", err))
		}
	}
	if l.flat != nil {
		if err := l.flat.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing flat lexicon: %w", err))
		}
	}
	return errors.Join(errs...)
}
