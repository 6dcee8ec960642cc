package shadow

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shadowbox.ai/internal/sim/zset"
)

func squares(pairs ...[2]int) *zset.ZSet[Square] {
	z := zset.New[Square]()
	for _, p := range pairs {
		z.Add(Square{A: p[0], B: p[1]}, 1)
	}
	return z
}

func randomVoxels(r *rand.Rand, n, count int) *zset.ZSet[Voxel] {
	z := zset.New[Voxel]()
	for i := 0; i < count; i++ {
		v := Voxel{X: r.Intn(n), Y: r.Intn(n), Z: r.Intn(n)}
		if !z.Contains(v) {
			z.Add(v, 1)
		}
	}
	return z
}

func TestAxis(t *testing.T) {
	v := Voxel{X: 1, Y: 2, Z: 3}
	assert.Equal(t, Square{A: 1, B: 2}, XY.Project(v))
	assert.Equal(t, Square{A: 1, B: 3}, XZ.Project(v))
	assert.Equal(t, 0, XY.Index())
	assert.Equal(t, 1, XZ.Index())

	a, err := ParseAxis(" xz ")
	require.NoError(t, err)
	assert.Equal(t, XZ, a)

	_, err = ParseAxis("YZ")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.False(t, Axis(0).Valid())
}

func TestGrid_Checks(t *testing.T) {
	g := Grid{N: 5}
	assert.NoError(t, g.CheckVoxel(Voxel{X: 0, Y: 4, Z: 2}))

	err := g.CheckVoxel(Voxel{X: 0, Y: 5, Z: 0})
	require.ErrorIs(t, err, ErrInvalidInput)
	var ie *InvalidInputError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "y", ie.Field)
	assert.Equal(t, 5, ie.Value)

	assert.ErrorIs(t, g.CheckSquare(Square{A: -1, B: 0}), ErrInvalidInput)
	assert.NoError(t, CheckSign(-1))
	assert.ErrorIs(t, CheckSign(2), ErrInvalidInput)
}

func TestProject_DeduplicatesColumns(t *testing.T) {
	voxels := zset.Of(Voxel{0, 0, 0}, Voxel{0, 0, 1}, Voxel{1, 2, 1})
	got := Project(voxels, XY)
	assert.Equal(t, []zset.Entry[Square]{{Square{0, 0}, 1}, {Square{1, 2}, 1}}, got.Entries(CompareSquare))
}

func TestProjector_MatchesProject(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for _, axis := range Axes {
		p := NewProjector(axis)
		var voxels zset.Integrator[Voxel]
		shadow := zset.New[Square]()
		for step := 0; step < 200; step++ {
			v := Voxel{X: r.Intn(3), Y: r.Intn(3), Z: r.Intn(3)}
			delta := zset.New[Voxel]()
			if voxels.State().Contains(v) {
				delta.Add(v, -1)
			} else {
				delta.Add(v, 1)
			}
			d := p.Step(delta)
			assert.LessOrEqual(t, d.Len(), 1)
			shadow.Merge(d)
			voxels.Step(delta)
			require.True(t, zset.Equal(shadow, Project(voxels.State(), axis)), "%s step %d", axis, step)
			require.True(t, zset.Equal(shadow, p.Shadow()))
		}
	}
}

func TestErrors_SignConvention(t *testing.T) {
	goal := squares([2]int{0, 0}, [2]int{1, 1})
	projected := squares([2]int{1, 1}, [2]int{2, 2})
	projected.Add(Square{1, 1}, 1) // two voxels over the same square

	errs := Errors(goal, projected)
	assert.Equal(t, []zset.Entry[Square]{{Square{0, 0}, 1}, {Square{2, 2}, -1}}, errs.Entries(CompareSquare))
	assert.False(t, Solved(errs))
	assert.True(t, Solved(Errors(goal, goal)))
}

func TestSolved_NegativeOnlyErrorsAreUnsolved(t *testing.T) {
	errs := zset.New[Square]()
	errs.Add(Square{2, 2}, -1)
	assert.False(t, Solved(errs, zset.New[Square]()))
	assert.True(t, Solved())
}

func TestDiffer_MatchesErrors(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	p := NewProjector(XY)
	d := NewDiffer(XY)
	var goal zset.Integrator[Square]
	var voxels zset.Integrator[Voxel]

	for step := 0; step < 300; step++ {
		gd, vd := zset.New[Square](), zset.New[Voxel]()
		if r.Intn(2) == 0 {
			gd.Add(Square{r.Intn(3), r.Intn(3)}, int64(r.Intn(3)-1))
		}
		vd.Add(Voxel{r.Intn(3), r.Intn(3), r.Intn(3)}, int64(r.Intn(3)-1))

		ed := d.Step(gd, p.Step(vd))
		assert.LessOrEqual(t, ed.Len(), 2)
		goal.Step(gd)
		voxels.Step(vd)
		want := Errors(goal.State(), zset.Map(voxels.State(), XY.Project))
		require.True(t, zset.Equal(d.Errors(), want), "step %d", step)
		require.Equal(t, d.Clean(), Solved(want))
	}
}

func TestMaximal_Cardinality(t *testing.T) {
	xy := squares([2]int{0, 0}, [2]int{0, 1}, [2]int{1, 3})
	xz := squares([2]int{0, 2}, [2]int{0, 3}, [2]int{0, 4}, [2]int{1, 0})
	got := Maximal(xy, xz)
	assert.Equal(t, int64(2*3+1*1), got.Cardinality())
	assert.True(t, got.Contains(Voxel{1, 3, 0}))
	assert.True(t, got.Contains(Voxel{0, 1, 4}))
}

func TestMaximal_RoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(9))
	for i := 0; i < 100; i++ {
		voxels := randomVoxels(r, 5, 1+r.Intn(20))
		xy, xz := Project(voxels, XY), Project(voxels, XZ)

		m := Maximal(xy, xz)
		require.True(t, zset.Equal(Project(m, XY), xy))
		require.True(t, zset.Equal(Project(m, XZ), xz))
		// Every consistent set is contained in the maximal one.
		voxels.Each(func(v Voxel, _ int64) { require.True(t, m.Contains(v)) })
	}
}

func TestMaximalSolver_MatchesMaximal(t *testing.T) {
	r := rand.New(rand.NewSource(13))
	solver := NewMaximalSolver()
	var xyOp, xzOp zset.DistinctOp[Square]
	for step := 0; step < 200; step++ {
		dxy, dxz := zset.New[Square](), zset.New[Square]()
		dxy.Add(Square{r.Intn(4), r.Intn(4)}, int64(r.Intn(3)-1))
		dxz.Add(Square{r.Intn(4), r.Intn(4)}, int64(r.Intn(3)-1))
		solver.Step(xyOp.Step(dxy), xzOp.Step(dxz))

		want := Maximal(xyOp.Input(), xzOp.Input())
		require.True(t, zset.Equal(solver.Solution(), want), "step %d", step)
		require.Equal(t, want.Cardinality(), solver.Cardinality())
	}
}

func TestMinimal_CyclicPairing(t *testing.T) {
	xy := squares([2]int{0, 0}, [2]int{0, 1}, [2]int{0, 2})
	xz := squares([2]int{0, 4})
	got, err := Minimal(xy, xz)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Cardinality())
	assert.True(t, zset.Equal(Project(got, XY), xy))
	assert.True(t, zset.Equal(Project(got, XZ), xz))
}

func TestMinimal_BoundAndFeasibility(t *testing.T) {
	r := rand.New(rand.NewSource(17))
	for i := 0; i < 100; i++ {
		voxels := randomVoxels(r, 5, 1+r.Intn(25))
		xy, xz := Project(voxels, XY), Project(voxels, XZ)

		m, err := Minimal(xy, xz)
		require.NoError(t, err)
		require.Equal(t, MinimalCardinality(xy, xz), m.Cardinality())
		require.Equal(t, int64(m.Len()), m.Cardinality(), "voxels must be distinct")
		require.True(t, zset.Equal(Project(m, XY), xy))
		require.True(t, zset.Equal(Project(m, XZ), xz))
		require.LessOrEqual(t, m.Cardinality(), voxels.Cardinality())
	}
}

func TestMinimal_Deterministic(t *testing.T) {
	xy := squares([2]int{0, 0}, [2]int{0, 3}, [2]int{2, 1}, [2]int{2, 2})
	xz := squares([2]int{0, 1}, [2]int{2, 0}, [2]int{2, 1}, [2]int{2, 4})
	first, err := Minimal(xy, xz)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Minimal(xy, xz)
		require.NoError(t, err)
		require.True(t, zset.Equal(first, again))
	}
}

func TestMinimal_UnpairedColumn(t *testing.T) {
	xy := squares([2]int{0, 0}, [2]int{3, 1})
	xz := squares([2]int{0, 0})
	_, err := Minimal(xy, xz)
	require.ErrorIs(t, err, ErrUnsatisfiable)
	assert.NotErrorIs(t, err, ErrInvalidInput)

	var ue *UnpairedColumnError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, 3, ue.X)
	assert.Equal(t, XZ, ue.Missing)
}

// On a 2x2x2 grid every voxel subset can be enumerated, which checks both
// extremal claims exactly.
func TestSolvers_ExhaustiveSmallGrid(t *testing.T) {
	var all []Voxel
	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			for z := 0; z < 2; z++ {
				all = append(all, Voxel{x, y, z})
			}
		}
	}
	subset := func(mask int) *zset.ZSet[Voxel] {
		z := zset.New[Voxel]()
		for i, v := range all {
			if mask&(1<<i) != 0 {
				z.Add(v, 1)
			}
		}
		return z
	}

	for goalMask := 1; goalMask < 1<<len(all); goalMask += 7 {
		target := subset(goalMask)
		xy, xz := Project(target, XY), Project(target, XZ)

		lo, hi := int64(len(all)+1), int64(-1)
		for mask := 0; mask < 1<<len(all); mask++ {
			s := subset(mask)
			if !zset.Equal(Project(s, XY), xy) || !zset.Equal(Project(s, XZ), xz) {
				continue
			}
			lo = min(lo, s.Cardinality())
			hi = max(hi, s.Cardinality())
		}

		m, err := Minimal(xy, xz)
		require.NoError(t, err)
		require.Equal(t, lo, m.Cardinality(), "goal mask %d", goalMask)
		require.Equal(t, hi, Maximal(xy, xz).Cardinality(), "goal mask %d", goalMask)
	}
}

func TestMinimalCounter_MatchesClosedForm(t *testing.T) {
	r := rand.New(rand.NewSource(19))
	c := NewMinimalCounter()
	var xyOp, xzOp zset.DistinctOp[Square]
	for step := 0; step < 300; step++ {
		dxy, dxz := zset.New[Square](), zset.New[Square]()
		for i := 0; i < 2; i++ {
			dxy.Add(Square{r.Intn(4), r.Intn(5)}, int64(r.Intn(3)-1))
			dxz.Add(Square{r.Intn(4), r.Intn(5)}, int64(r.Intn(3)-1))
		}
		got := c.Step(xyOp.Step(dxy), xzOp.Step(dxz))
		require.Equal(t, MinimalCardinality(xyOp.Input(), xzOp.Input()), got, "step %d", step)

		_, err := Minimal(xyOp.Input(), xzOp.Input())
		require.Equal(t, err == nil, c.Satisfiable(), "step %d", step)
	}
}
