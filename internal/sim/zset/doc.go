// Package zset implements delta collections: multisets whose values carry a
// signed integer weight (Z-sets). A positive weight records insertions, a
// negative weight records retractions, and a value whose weight sums to zero
// is absent.
//
// Two families of operations are provided.
//
// Whole-collection operators (Combine, Negate, Distinct, Support, Map, Filter,
// Join, Group) are pure functions over complete collections.
//
// Incremental operators (Integrator, DistinctOp, JoinOp, CountOp) keep the
// integrated state of their inputs and turn an input delta into the matching
// output delta. Their work is proportional to the size of the delta plus the
// number of keys it touches, never to the size of the integrated state:
//
//   - linear operators (Map, Filter, Negate, Combine) need no state; applying
//     them to a delta yields the delta of the output.
//   - DistinctOp re-evaluates presence only for the values in the delta.
//   - JoinOp is bilinear: d(A⋈B) = dA⋈B + (A+dA)⋈dB.
//   - CountOp reports the before/after weight of each group key a delta touches.
package zset
