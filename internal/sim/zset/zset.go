package zset

import "sort"

// ZSet maps values to signed integer weights. Values whose weight is zero are
// never stored, so they are never observed by Len, Each or Entries.
//
// The zero value is an empty collection ready to use. Read methods accept a
// nil receiver and treat it as empty.
type ZSet[T comparable] struct {
	m map[T]int64
}

// Entry is one value of a ZSet together with its weight.
type Entry[T comparable] struct {
	Value  T
	Weight int64
}

func New[T comparable]() *ZSet[T] { return &ZSet[T]{} }

// Of returns a collection holding each of vals with weight 1 per occurrence.
func Of[T comparable](vals ...T) *ZSet[T] {
	z := &ZSet[T]{m: make(map[T]int64, len(vals))}
	for _, v := range vals {
		z.Add(v, 1)
	}
	return z
}

func FromEntries[T comparable](entries []Entry[T]) *ZSet[T] {
	z := &ZSet[T]{m: make(map[T]int64, len(entries))}
	for _, e := range entries {
		z.Add(e.Value, e.Weight)
	}
	return z
}

// Add adds w to the weight of v. A resulting weight of zero removes v.
func (z *ZSet[T]) Add(v T, w int64) {
	if w == 0 {
		return
	}
	if z.m == nil {
		z.m = make(map[T]int64)
	}
	n := z.m[v] + w
	if n == 0 {
		delete(z.m, v)
		return
	}
	z.m[v] = n
}

// Merge adds every entry of other into z.
func (z *ZSet[T]) Merge(other *ZSet[T]) {
	if other == nil {
		return
	}
	for v, w := range other.m {
		z.Add(v, w)
	}
}

func (z *ZSet[T]) Weight(v T) int64 {
	if z == nil {
		return 0
	}
	return z.m[v]
}

func (z *ZSet[T]) Contains(v T) bool { return z.Weight(v) != 0 }

// Len is the number of values with a non-zero weight.
func (z *ZSet[T]) Len() int {
	if z == nil {
		return 0
	}
	return len(z.m)
}

func (z *ZSet[T]) IsEmpty() bool { return z.Len() == 0 }

// Cardinality is the sum of all weights.
func (z *ZSet[T]) Cardinality() int64 {
	if z == nil {
		return 0
	}
	var n int64
	for _, w := range z.m {
		n += w
	}
	return n
}

// Each calls fn for every entry in unspecified order. fn must not modify z.
func (z *ZSet[T]) Each(fn func(v T, w int64)) {
	if z == nil {
		return
	}
	for v, w := range z.m {
		fn(v, w)
	}
}

func (z *ZSet[T]) Clone() *ZSet[T] {
	out := &ZSet[T]{m: make(map[T]int64, z.Len())}
	if z == nil {
		return out
	}
	for v, w := range z.m {
		out.m[v] = w
	}
	return out
}

func (z *ZSet[T]) Clear() { z.m = nil }

// Entries returns all entries. When cmp is non-nil they are sorted by value.
func (z *ZSet[T]) Entries(cmp func(a, b T) int) []Entry[T] {
	out := make([]Entry[T], 0, z.Len())
	z.Each(func(v T, w int64) {
		out = append(out, Entry[T]{Value: v, Weight: w})
	})
	if cmp != nil {
		sort.Slice(out, func(i, j int) bool { return cmp(out[i].Value, out[j].Value) < 0 })
	}
	return out
}

// Values returns the values with a non-zero weight, sorted when cmp is non-nil.
func (z *ZSet[T]) Values(cmp func(a, b T) int) []T {
	out := make([]T, 0, z.Len())
	z.Each(func(v T, _ int64) { out = append(out, v) })
	if cmp != nil {
		sort.Slice(out, func(i, j int) bool { return cmp(out[i], out[j]) < 0 })
	}
	return out
}

// Equal reports whether a and b hold the same values with the same weights.
func Equal[T comparable](a, b *ZSet[T]) bool {
	if a.Len() != b.Len() {
		return false
	}
	eq := true
	a.Each(func(v T, w int64) {
		if b.Weight(v) != w {
			eq = false
		}
	})
	return eq
}
