package shadow

import "shadowbox.ai/internal/sim/zset"

// Project returns the shadow voxels cast on axis: every covered square with
// weight 1.
func Project(voxels *zset.ZSet[Voxel], axis Axis) *zset.ZSet[Square] {
	return zset.Distinct(zset.Map(voxels, axis.Project))
}

// Projector maintains Project incrementally. Map is linear, so only the
// squares under the voxels of a delta are re-examined by the distinct step.
type Projector struct {
	axis     Axis
	distinct zset.DistinctOp[Square]
}

func NewProjector(axis Axis) *Projector {
	return &Projector{axis: axis}
}

func (p *Projector) Axis() Axis { return p.axis }

// Step consumes a voxel delta and returns the change to the shadow.
func (p *Projector) Step(voxelDelta *zset.ZSet[Voxel]) *zset.ZSet[Square] {
	return p.distinct.Step(zset.Map(voxelDelta, p.axis.Project))
}

// Shadow returns the current shadow.
func (p *Projector) Shadow() *zset.ZSet[Square] { return p.distinct.Output() }

// Cover returns how many voxels currently cast s.
func (p *Projector) Cover(s Square) int64 { return p.distinct.Input().Weight(s) }
