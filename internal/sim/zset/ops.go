package zset

// Combine sums the weights of all inputs per value. It is commutative and
// associative, and the empty collection is its identity.
func Combine[T comparable](sets ...*ZSet[T]) *ZSet[T] {
	out := New[T]()
	for _, s := range sets {
		out.Merge(s)
	}
	return out
}

// Negate flips the sign of every weight.
func Negate[T comparable](a *ZSet[T]) *ZSet[T] {
	out := &ZSet[T]{m: make(map[T]int64, a.Len())}
	a.Each(func(v T, w int64) { out.m[v] = -w })
	return out
}

// Distinct keeps the values with a positive weight, each with weight 1.
func Distinct[T comparable](a *ZSet[T]) *ZSet[T] {
	out := New[T]()
	a.Each(func(v T, w int64) {
		if w > 0 {
			out.Add(v, 1)
		}
	})
	return out
}

// Support keeps every value with a non-zero weight, each with weight 1.
func Support[T comparable](a *ZSet[T]) *ZSet[T] {
	out := New[T]()
	a.Each(func(v T, _ int64) { out.Add(v, 1) })
	return out
}

// Consolidate returns a compact copy of a. Weights cancelled inside a are
// already absent; the copy additionally releases the map space they used.
func Consolidate[T comparable](a *ZSet[T]) *ZSet[T] { return a.Clone() }

// Map contributes the weight of every value v to f(v). Weights accumulate
// when f is not injective.
func Map[T, U comparable](a *ZSet[T], f func(T) U) *ZSet[U] {
	out := New[U]()
	a.Each(func(v T, w int64) { out.Add(f(v), w) })
	return out
}

func Filter[T comparable](a *ZSet[T], keep func(T) bool) *ZSet[T] {
	out := New[T]()
	a.Each(func(v T, w int64) {
		if keep(v) {
			out.Add(v, w)
		}
	})
	return out
}

// Join pairs every value of a with every value of b that has the same key
// and emits f(x, y) with the product of their weights.
func Join[A, B, K, O comparable](a *ZSet[A], b *ZSet[B], keyA func(A) K, keyB func(B) K, f func(A, B) O) *ZSet[O] {
	right := Group(b, keyB)
	out := New[O]()
	a.Each(func(x A, wx int64) {
		right[keyA(x)].Each(func(y B, wy int64) {
			out.Add(f(x, y), wx*wy)
		})
	})
	return out
}

// Group partitions a by key. Groups are never empty.
func Group[T, K comparable](a *ZSet[T], key func(T) K) map[K]*ZSet[T] {
	out := make(map[K]*ZSet[T])
	a.Each(func(v T, w int64) {
		k := key(v)
		g, ok := out[k]
		if !ok {
			g = New[T]()
			out[k] = g
		}
		g.Add(v, w)
	})
	return out
}
