package zset

// Integrator accumulates a stream of deltas into the collection they describe.
type Integrator[T comparable] struct {
	state ZSet[T]
}

// Step merges delta and returns the integrated state. The returned collection
// is owned by the integrator.
func (i *Integrator[T]) Step(delta *ZSet[T]) *ZSet[T] {
	i.state.Merge(delta)
	return &i.state
}

func (i *Integrator[T]) State() *ZSet[T] { return &i.state }

// DistinctOp is the incremental form of Distinct.
type DistinctOp[T comparable] struct {
	in ZSet[T]
}

// Step integrates delta and returns the change to Distinct of the integrated
// input. Only the values present in delta are examined.
func (d *DistinctOp[T]) Step(delta *ZSet[T]) *ZSet[T] {
	out := New[T]()
	delta.Each(func(v T, w int64) {
		before := d.in.Weight(v)
		d.in.Add(v, w)
		after := before + w
		switch {
		case before <= 0 && after > 0:
			out.Add(v, 1)
		case before > 0 && after <= 0:
			out.Add(v, -1)
		}
	})
	return out
}

// Input is the integrated input. It must not be modified.
func (d *DistinctOp[T]) Input() *ZSet[T] { return &d.in }

func (d *DistinctOp[T]) Output() *ZSet[T] { return Distinct(&d.in) }

// JoinOp is the incremental form of Join.
type JoinOp[A, B, K, O comparable] struct {
	keyA func(A) K
	keyB func(B) K
	f    func(A, B) O

	left  map[K]*ZSet[A]
	right map[K]*ZSet[B]
}

func NewJoinOp[A, B, K, O comparable](keyA func(A) K, keyB func(B) K, f func(A, B) O) *JoinOp[A, B, K, O] {
	return &JoinOp[A, B, K, O]{
		keyA:  keyA,
		keyB:  keyB,
		f:     f,
		left:  map[K]*ZSet[A]{},
		right: map[K]*ZSet[B]{},
	}
}

// Step integrates both input deltas and returns the change to the join of the
// integrated inputs: da⋈B + (A+da)⋈db.
func (j *JoinOp[A, B, K, O]) Step(da *ZSet[A], db *ZSet[B]) *ZSet[O] {
	out := New[O]()
	da.Each(func(x A, wx int64) {
		j.right[j.keyA(x)].Each(func(y B, wy int64) {
			out.Add(j.f(x, y), wx*wy)
		})
	})
	da.Each(func(x A, wx int64) { indexAdd(j.left, j.keyA(x), x, wx) })

	db.Each(func(y B, wy int64) {
		j.left[j.keyB(y)].Each(func(x A, wx int64) {
			out.Add(j.f(x, y), wx*wy)
		})
	})
	db.Each(func(y B, wy int64) { indexAdd(j.right, j.keyB(y), y, wy) })
	return out
}

// Left returns the integrated left input grouped under k.
func (j *JoinOp[A, B, K, O]) Left(k K) *ZSet[A] { return j.left[k] }

func (j *JoinOp[A, B, K, O]) Right(k K) *ZSet[B] { return j.right[k] }

func indexAdd[K, T comparable](idx map[K]*ZSet[T], k K, v T, w int64) {
	g, ok := idx[k]
	if !ok {
		g = New[T]()
		idx[k] = g
	}
	g.Add(v, w)
	if g.IsEmpty() {
		delete(idx, k)
	}
}

// CountChange is the weight of one group key before and after a Step.
type CountChange[K comparable] struct {
	Key    K
	Before int64
	After  int64
}

// CountOp maintains, per group key, the total weight of the values mapped to
// that key.
type CountOp[T, K comparable] struct {
	key    func(T) K
	counts map[K]int64
}

func NewCountOp[T, K comparable](key func(T) K) *CountOp[T, K] {
	return &CountOp[T, K]{key: key, counts: map[K]int64{}}
}

// Step integrates delta and returns one change per group key whose count
// moved. The order of the returned changes is unspecified.
func (c *CountOp[T, K]) Step(delta *ZSet[T]) []CountChange[K] {
	byKey := Map(delta, c.key)
	if byKey.IsEmpty() {
		return nil
	}
	out := make([]CountChange[K], 0, byKey.Len())
	byKey.Each(func(k K, w int64) {
		before := c.counts[k]
		after := before + w
		if after == 0 {
			delete(c.counts, k)
		} else {
			c.counts[k] = after
		}
		out = append(out, CountChange[K]{Key: k, Before: before, After: after})
	})
	return out
}

func (c *CountOp[T, K]) Count(k K) int64 { return c.counts[k] }

// Keys returns the group keys with a non-zero count in unspecified order.
func (c *CountOp[T, K]) Keys() []K {
	out := make([]K, 0, len(c.counts))
	for k := range c.counts {
		out = append(out, k)
	}
	return out
}
