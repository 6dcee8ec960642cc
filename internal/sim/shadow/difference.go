package shadow

import "shadowbox.ai/internal/sim/zset"

// Errors compares a shadow against its goal. Positive entries are goal
// squares the shadow does not cover yet; negative entries are covered squares
// outside the goal.
func Errors(goal, projected *zset.ZSet[Square]) *zset.ZSet[Square] {
	return zset.Consolidate(zset.Combine(zset.Negate(zset.Distinct(projected)), goal))
}

// Solved reports whether every error collection is empty. Both unmet goal
// squares and wrongly covered squares keep a puzzle unsolved, so presence is
// tested regardless of sign.
func Solved(errs ...*zset.ZSet[Square]) bool {
	for _, e := range errs {
		if !zset.Support(e).IsEmpty() {
			return false
		}
	}
	return true
}

// Differ maintains Errors for one axis from the goal delta and the shadow
// delta produced by a Projector. Errors is linear in both inputs, so a delta
// touching k squares changes at most k error entries.
type Differ struct {
	axis   Axis
	errors zset.Integrator[Square]
}

func NewDiffer(axis Axis) *Differ {
	return &Differ{axis: axis}
}

func (d *Differ) Axis() Axis { return d.axis }

// Step returns the change to the error collection.
func (d *Differ) Step(goalDelta, shadowDelta *zset.ZSet[Square]) *zset.ZSet[Square] {
	delta := zset.Consolidate(zset.Combine(zset.Negate(shadowDelta), goalDelta))
	d.errors.Step(delta)
	return delta
}

// Errors returns the integrated error collection. It must not be modified.
func (d *Differ) Errors() *zset.ZSet[Square] { return d.errors.State() }

// Clean reports whether the error collection is empty.
func (d *Differ) Clean() bool { return d.errors.State().IsEmpty() }
