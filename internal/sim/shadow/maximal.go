package shadow

import "shadowbox.ai/internal/sim/zset"

// Maximal returns the largest voxel set casting both goals: for every column
// x, each y of the XY goal paired with each z of the XZ goal. Any other voxel
// casts a square outside one of the goals, so the result is unique.
func Maximal(xy, xz *zset.ZSet[Square]) *zset.ZSet[Voxel] {
	return zset.Join(zset.Distinct(xy), zset.Distinct(xz), squareColumn, squareColumn, joinColumns)
}

func joinColumns(xy, xz Square) Voxel { return Voxel{X: xy.A, Y: xy.B, Z: xz.B} }

// MaximalSolver maintains Maximal incrementally from the deltas of the
// distinct goals.
type MaximalSolver struct {
	join *zset.JoinOp[Square, Square, int, Voxel]
	out  zset.Integrator[Voxel]
}

func NewMaximalSolver() *MaximalSolver {
	return &MaximalSolver{join: zset.NewJoinOp(squareColumn, squareColumn, joinColumns)}
}

// Step takes the changes to the distinct XY and XZ goals and returns the
// change to the maximal solution.
func (m *MaximalSolver) Step(xyDelta, xzDelta *zset.ZSet[Square]) *zset.ZSet[Voxel] {
	d := m.join.Step(xyDelta, xzDelta)
	m.out.Step(d)
	return d
}

// Solution returns a copy of the current maximal solution.
func (m *MaximalSolver) Solution() *zset.ZSet[Voxel] { return m.out.State().Clone() }

func (m *MaximalSolver) Cardinality() int64 { return m.out.State().Cardinality() }
