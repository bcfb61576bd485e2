package lexicon

import (
	"slices"
	"sync"
	"time"

	"github.com/f3rmion/zhuyin/internal/zhuyin"
)

// DefaultCacheTimeout is how long the result cache survives without access.
const DefaultCacheTimeout = 10 * time.Second

// cache holds query results until it has been idle for timeout, then drops
// everything at once. Every access re-arms the timer.
type cache struct {
	mu      sync.Mutex
	timeout time.Duration
	timer   *time.Timer
	terms   map[string][]zhuyin.Term
	records map[string][]Record
}

func newCache(timeout time.Duration) *cache {
	return &cache{
		timeout: timeout,
		terms:   make(map[string][]zhuyin.Term),
		records: make(map[string][]Record),
	}
}

// touch re-arms the idle timer. Callers hold mu.
func (c *cache) touch() {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.timeout, c.clear)
}

func (c *cache) getTerms(key string) ([]zhuyin.Term, bool) {
	if c.timeout <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	terms, ok := c.terms[key]
	if !ok {
		return nil, false
	}
	c.touch()
	return slices.Clone(terms), true
}

func (c *cache) putTerms(key string, terms []zhuyin.Term) {
	if c.timeout <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.terms[key] = slices.Clone(terms)
	c.touch()
}

func (c *cache) getRecords(key string) ([]Record, bool) {
	if c.timeout <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	records, ok := c.records[key]
	if !ok {
		return nil, false
	}
	c.touch()
	return slices.Clone(records), true
}

func (c *cache) putRecords(key string, records []Record) {
	if c.timeout <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[key] = slices.Clone(records)
	c.touch()
}

// len returns the number of cached entries.
func (c *cache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.terms) + len(c.records)
}

// clear drops every entry.
func (c *cache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.terms)
	clear(c.records)
}

// stop cancels the idle timer.
func (c *cache) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
