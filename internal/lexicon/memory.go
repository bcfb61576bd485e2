package lexicon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/f3rmion/zhuyin/internal/zhuyin"
	"golang.org/x/text/unicode/norm"
)

// MemoryStore is the flat lexicon source: JSON term files held in memory.
// Each file is an object mapping a syllable key to [[text, score], ...].
type MemoryStore struct {
	mu        sync.RWMutex
	paths     []string
	data      map[string][]zhuyin.Term
	keys      []string            // sorted
	skeletons map[string][]string // skeleton -> sorted keys
	loaded    bool
	logger    *slog.Logger
}

// NewMemoryStore creates a store backed by the given JSON files. Files are
// read on Open, later files overriding earlier ones key by key.
func NewMemoryStore(paths ...string) *MemoryStore {
	return &MemoryStore{
		paths:  paths,
		data:   make(map[string][]zhuyin.Term),
		logger: slog.New(slog.DiscardHandler),
	}
}

// SetLogger sets the logger used to report unreadable files.
func (s *MemoryStore) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Paths returns the files the store loads from.
func (s *MemoryStore) Paths() []string {
	return slices.Clone(s.paths)
}

// Add stores terms under a key, replacing whatever was there.
func (s *MemoryStore) Add(key string, terms ...zhuyin.Term) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = mergeInto(s.data, map[string][]zhuyin.Term{key: terms})
	s.reindex()
}

// Open loads the data files. Missing or malformed files are reported and
// treated as empty; Open fails only when nothing at all could be loaded.
func (s *MemoryStore) Open(ctx context.Context) error {
	return s.Reload(ctx)
}

// Reload rereads every data file and swaps the content in one step.
// Entries added with Add are kept when no file could be read.
func (s *MemoryStore) Reload(ctx context.Context) error {
	if len(s.paths) == 0 {
		s.mu.Lock()
		defer s.mu.Unlock()
		if len(s.data) == 0 {
			return fmt.Errorf("no data files configured: %w", ErrUnavailable)
		}
		s.loaded = true
		return nil
	}

	data := make(map[string][]zhuyin.Term)
	loaded := 0
	for _, path := range s.paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries, err := LoadFile(path)
		if err != nil {
			s.logger.Warn("skipping lexicon file", "path", path, "error", err)
			continue
		}
		data = mergeInto(data, entries)
		loaded++
	}

	if loaded == 0 {
		return fmt.Errorf("loading %s: %w", strings.Join(s.paths, ", "), ErrUnavailable)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	s.loaded = true
	s.reindex()
	s.logger.Debug("lexicon files loaded", "files", loaded, "keys", len(s.keys))
	return nil
}

// reindex rebuilds the sorted key list and skeleton index. Callers hold mu.
func (s *MemoryStore) reindex() {
	s.keys = s.keys[:0]
	s.skeletons = make(map[string][]string)
	for key := range s.data {
		s.keys = append(s.keys, key)
	}
	sort.Strings(s.keys)
	for _, key := range s.keys {
		skel := zhuyin.SkeletonOf(key)
		s.skeletons[skel] = append(s.skeletons[skel], key)
	}
}

// Ready reports whether the store holds any data.
func (s *MemoryStore) Ready(ctx context.Context) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded && len(s.data) > 0
}

// Exact returns the terms stored under key.
func (s *MemoryStore) Exact(ctx context.Context, key string) ([]zhuyin.Term, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.data[key]), nil
}

// Range scans the keys sharing the query's fixed prefix and returns those
// matching it.
func (s *MemoryStore) Range(ctx context.Context, q zhuyin.Query) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := q.FixedPrefix()
	var out []Record
	for i := sort.SearchStrings(s.keys, prefix); i < len(s.keys); i++ {
		key := s.keys[i]
		if !strings.HasPrefix(key, prefix) {
			break
		}
		if q.Match(key) {
			out = append(out, Record{Key: key, Terms: slices.Clone(s.data[key])})
		}
	}
	return out, nil
}

// Skeleton returns the records indexed under a constant skeleton.
func (s *MemoryStore) Skeleton(ctx context.Context, skeleton string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := s.skeletons[skeleton]
	out := make([]Record, 0, len(keys))
	for _, key := range keys {
		out = append(out, Record{Key: key, Terms: slices.Clone(s.data[key])})
	}
	return out, nil
}

// Records returns every record in key order.
func (s *MemoryStore) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.keys))
	for _, key := range s.keys {
		out = append(out, Record{Key: key, Terms: slices.Clone(s.data[key])})
	}
	return out
}

// Close drops the loaded data.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string][]zhuyin.Term)
	s.keys = nil
	s.skeletons = nil
	s.loaded = false
	return nil
}

// Load decodes a JSON term file. Keys and texts are NFC normalized and every
// term list is sorted by descending score with repeated texts removed.
func Load(r io.Reader) (map[string][]zhuyin.Term, error) {
	var raw map[string][]zhuyin.Term
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding lexicon: %w", err)
	}

	out := make(map[string][]zhuyin.Term, len(raw))
	for key, terms := range raw {
		if key == lastEntryKey {
			continue
		}
		for i := range terms {
			terms[i].Text = norm.NFC.String(terms[i].Text)
		}
		out[norm.NFC.String(key)] = normalizeTerms(terms)
	}
	return out, nil
}

// LoadFile is a convenience wrapper that opens a file path.
func LoadFile(path string) (map[string][]zhuyin.Term, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening lexicon file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func mergeInto(dst, src map[string][]zhuyin.Term) map[string][]zhuyin.Term {
	if dst == nil {
		dst = make(map[string][]zhuyin.Term, len(src))
	}
	for key, terms := range src {
		dst[key] = normalizeTerms(terms)
	}
	return dst
}
