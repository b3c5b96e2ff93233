package analyze

import "sort"

// Table is an insertion-ordered map from group key to accumulator. Keys are
// created lazily through Get so creation semantics stay in one place; Keys
// returns first-encounter order, which doubles as the stable sort tiebreak
// for ranked views.
type Table[T any] struct {
	entries map[string]*T
	order   []string
}

func newTable[T any]() *Table[T] {
	return &Table[T]{entries: make(map[string]*T)}
}

// Get returns the accumulator for key, creating a zero-valued one on first
// access.
func (t *Table[T]) Get(key string) *T {
	if e, ok := t.entries[key]; ok {
		return e
	}
	e := new(T)
	t.entries[key] = e
	t.order = append(t.order, key)
	return e
}

// Lookup returns the accumulator for key without creating it.
func (t *Table[T]) Lookup(key string) (*T, bool) {
	e, ok := t.entries[key]
	return e, ok
}

// Keys returns all keys in first-encounter order.
func (t *Table[T]) Keys() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Ranked returns keys sorted descending by the given measure. The sort is
// stable, so equal measures keep encounter order.
func (t *Table[T]) Ranked(measure func(*T) int) []string {
	keys := t.Keys()
	sort.SliceStable(keys, func(i, j int) bool {
		return measure(t.entries[keys[i]]) > measure(t.entries[keys[j]])
	})
	return keys
}

// SortedKeys returns keys in lexicographic order.
func (t *Table[T]) SortedKeys() []string {
	keys := t.Keys()
	sort.Strings(keys)
	return keys
}

func (t *Table[T]) Len() int { return len(t.order) }

// Counter is an insertion-ordered string counter, used for the per-agent
// disposition/type/status breakdowns. The zero value is ready to use.
type Counter struct {
	counts map[string]int
	order  []string
}

func (c *Counter) Inc(key string) {
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

func (c *Counter) Get(key string) int { return c.counts[key] }

// Keys returns counted keys in first-encounter order.
func (c *Counter) Keys() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Ranked returns keys sorted descending by count, encounter order on ties.
func (c *Counter) Ranked() []string {
	keys := c.Keys()
	sort.SliceStable(keys, func(i, j int) bool {
		return c.counts[keys[i]] > c.counts[keys[j]]
	})
	return keys
}
