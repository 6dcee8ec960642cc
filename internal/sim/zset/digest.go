package zset

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Digest hashes every entry with xxHash64 and sums the entry hashes, so the
// result does not depend on iteration order. encode appends a canonical byte
// form of v to dst.
func Digest[T comparable](z *ZSet[T], encode func(dst []byte, v T) []byte) uint64 {
	var (
		sum uint64
		buf []byte
	)
	z.Each(func(v T, w int64) {
		buf = encode(buf[:0], v)
		buf = binary.AppendVarint(buf, w)
		sum += xxhash.Sum64(buf)
	})
	return sum
}

// DigestOp integrates deltas and keeps Digest of the integrated collection
// current. A step re-hashes only the values in the delta.
type DigestOp[T comparable] struct {
	encode func(dst []byte, v T) []byte
	state  ZSet[T]
	sum    uint64
	buf    []byte
}

func NewDigestOp[T comparable](encode func(dst []byte, v T) []byte) *DigestOp[T] {
	return &DigestOp[T]{encode: encode}
}

// Step integrates delta and returns the new digest.
func (d *DigestOp[T]) Step(delta *ZSet[T]) uint64 {
	delta.Each(func(v T, w int64) {
		before := d.state.Weight(v)
		if before != 0 {
			d.sum -= d.entry(v, before)
		}
		d.state.Add(v, w)
		if after := before + w; after != 0 {
			d.sum += d.entry(v, after)
		}
	})
	return d.sum
}

func (d *DigestOp[T]) entry(v T, w int64) uint64 {
	d.buf = d.encode(d.buf[:0], v)
	d.buf = binary.AppendVarint(d.buf, w)
	return xxhash.Sum64(d.buf)
}

func (d *DigestOp[T]) Sum() uint64 { return d.sum }

// State is the integrated collection. It must not be modified.
func (d *DigestOp[T]) State() *ZSet[T] { return &d.state }
