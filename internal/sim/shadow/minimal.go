package shadow

import (
	"sort"

	"shadowbox.ai/internal/sim/zset"
)

// Minimal returns a smallest voxel set casting both goals. Column x needs at
// least max(|Y(x)|, |Z(x)|) voxels, and pairing the i-th y with the i-th z,
// cycling through the shorter list, reaches that bound.
//
// Y(x) and Z(x) are taken in ascending order. The result is one of several
// minimal sets; callers must rely only on its size and its shadows.
func Minimal(xy, xz *zset.ZSet[Square]) (*zset.ZSet[Voxel], error) {
	ys := columns(zset.Distinct(xy))
	zs := columns(zset.Distinct(xz))

	xs := make([]int, 0, len(ys)+len(zs))
	for x := range ys {
		xs = append(xs, x)
	}
	for x := range zs {
		if _, ok := ys[x]; !ok {
			xs = append(xs, x)
		}
	}
	sort.Ints(xs)

	out := zset.New[Voxel]()
	for _, x := range xs {
		y, z := ys[x], zs[x]
		if len(y) == 0 {
			return nil, &UnpairedColumnError{X: x, Missing: XY}
		}
		if len(z) == 0 {
			return nil, &UnpairedColumnError{X: x, Missing: XZ}
		}
		for i := range max(len(y), len(z)) {
			out.Add(Voxel{X: x, Y: y[i%len(y)], Z: z[i%len(z)]}, 1)
		}
	}
	return out, nil
}

// columns groups a distinct goal by x into ascending second coordinates.
func columns(goal *zset.ZSet[Square]) map[int][]int {
	out := map[int][]int{}
	goal.Each(func(s Square, _ int64) {
		out[s.A] = append(out[s.A], s.B)
	})
	for _, bs := range out {
		sort.Ints(bs)
	}
	return out
}

// MinimalCardinality is the size of any minimal solution: the sum over x of
// max(|Y(x)|, |Z(x)|). No voxel is materialized.
func MinimalCardinality(xy, xz *zset.ZSet[Square]) int64 {
	count := func(goal *zset.ZSet[Square]) map[int]int64 {
		out := map[int]int64{}
		zset.Distinct(goal).Each(func(s Square, _ int64) { out[s.A]++ })
		return out
	}
	ys, zs := count(xy), count(xz)
	var total int64
	for x, n := range ys {
		total += max(n, zs[x])
	}
	for x, n := range zs {
		if _, ok := ys[x]; !ok {
			total += n
		}
	}
	return total
}

// MinimalCounter maintains MinimalCardinality from the deltas of the
// distinct goals. A step costs work proportional to the number of columns
// whose counts changed.
type MinimalCounter struct {
	ys *zset.CountOp[Square, int]
	zs *zset.CountOp[Square, int]

	total    int64
	unpaired int
}

func NewMinimalCounter() *MinimalCounter {
	return &MinimalCounter{
		ys: zset.NewCountOp(squareColumn),
		zs: zset.NewCountOp(squareColumn),
	}
}

type columnCounts struct {
	y0, y1 int64
	z0, z1 int64
	y, z   bool
}

// Step returns the new minimal cardinality.
func (c *MinimalCounter) Step(xyDelta, xzDelta *zset.ZSet[Square]) int64 {
	cols := map[int]*columnCounts{}
	get := func(x int) *columnCounts {
		cc, ok := cols[x]
		if !ok {
			cc = &columnCounts{}
			cols[x] = cc
		}
		return cc
	}
	for _, ch := range c.ys.Step(xyDelta) {
		cc := get(ch.Key)
		cc.y0, cc.y1, cc.y = ch.Before, ch.After, true
	}
	for _, ch := range c.zs.Step(xzDelta) {
		cc := get(ch.Key)
		cc.z0, cc.z1, cc.z = ch.Before, ch.After, true
	}
	for x, cc := range cols {
		if !cc.y {
			cc.y0 = c.ys.Count(x)
			cc.y1 = cc.y0
		}
		if !cc.z {
			cc.z0 = c.zs.Count(x)
			cc.z1 = cc.z0
		}
		c.total += max(cc.y1, cc.z1) - max(cc.y0, cc.z0)
		c.unpaired += unpaired(cc.y1, cc.z1) - unpaired(cc.y0, cc.z0)
	}
	return c.total
}

func unpaired(y, z int64) int {
	if (y == 0) != (z == 0) {
		return 1
	}
	return 0
}

func (c *MinimalCounter) Cardinality() int64 { return c.total }

// Satisfiable reports whether every column covered by one goal is covered by
// the other.
func (c *MinimalCounter) Satisfiable() bool { return c.unpaired == 0 }
