// Package lexicon provides the scored term stores behind the engine and the
// query layer that resolves syllable patterns against them.
package lexicon

import (
	"cmp"
	"context"
	"errors"
	"slices"

	"github.com/f3rmion/zhuyin/internal/zhuyin"
)

var (
	// ErrUnavailable is returned by Open when no data source could be loaded.
	ErrUnavailable = errors.New("lexicon unavailable")

	// ErrNotReady is returned by queries issued before a store is open.
	ErrNotReady = errors.New("lexicon not ready")
)

// lastEntryKey marks a fully populated indexed store.
const lastEntryKey = "_last_entry_"

// Record is one lexicon key with its terms.
type Record struct {
	Key   string        `json:"syllables"`
	Terms []zhuyin.Term `json:"terms"`
}

// Store is the capability every lexicon backend provides. Missing keys are
// reported as nil results with a nil error; errors mean the lookup itself
// failed. Record slices are ordered by key.
type Store interface {
	// Open prepares the store for queries.
	Open(ctx context.Context) error

	// Ready reports whether the store holds a complete data set.
	Ready(ctx context.Context) bool

	// Exact returns the terms stored under key.
	Exact(ctx context.Context, key string) ([]zhuyin.Term, error)

	// Range returns every record whose key matches the query.
	Range(ctx context.Context, q zhuyin.Query) ([]Record, error)

	// Skeleton returns every record whose constant skeleton equals skeleton.
	Skeleton(ctx context.Context, skeleton string) ([]Record, error)

	// Close releases the store.
	Close() error
}

// Populator is a store that can be bulk loaded from records.
type Populator interface {
	Store
	Populate(ctx context.Context, records []Record) error
}

// normalizeTerms sorts terms by descending score, keeping the original order
// for ties, and drops repeated texts after their first occurrence.
func normalizeTerms(terms []zhuyin.Term) []zhuyin.Term {
	if len(terms) == 0 {
		return nil
	}
	sorted := slices.Clone(terms)
	slices.SortStableFunc(sorted, func(a, b zhuyin.Term) int {
		return cmp.Compare(b.Score, a.Score)
	})

	seen := make(map[string]bool, len(sorted))
	out := sorted[:0]
	for _, t := range sorted {
		if seen[t.Text] {
			continue
		}
		seen[t.Text] = true
		out = append(out, t)
	}
	return out
}

// mergeRecords concatenates the terms of every record and normalizes them.
func mergeRecords(records []Record) []zhuyin.Term {
	var all []zhuyin.Term
	for _, r := range records {
		all = append(all, r.Terms...)
	}
	return normalizeTerms(all)
}

// filterRecords keeps the records whose key matches q.
func filterRecords(records []Record, q zhuyin.Query) []Record {
	var out []Record
	for _, r := range records {
		if q.Match(r.Key) {
			out = append(out, r)
		}
	}
	return out
}
