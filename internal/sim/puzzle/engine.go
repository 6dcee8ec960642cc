package puzzle

import (
	"fmt"

	"shadowbox.ai/internal/sim/shadow"
	"shadowbox.ai/internal/sim/zset"
)

type Config struct {
	ID       string
	GridSize int
}

// VoxelUpdate is one signed change to the voxel set.
type VoxelUpdate struct {
	Voxel shadow.Voxel `json:"voxel"`
	Sign  int          `json:"sign"`
}

// GoalUpdate is one signed change to a goal shadow.
type GoalUpdate struct {
	Axis   shadow.Axis   `json:"axis"`
	Square shadow.Square `json:"square"`
	Sign   int           `json:"sign"`
}

// Engine is the incremental shadow pipeline for one puzzle.
//
// Updates are buffered until Advance commits them as one batch; reads only
// ever observe committed state. Engine is not safe for concurrent use: a
// Runner serializes producers onto it.
type Engine struct {
	cfg  Config
	grid shadow.Grid

	round  uint64
	solved bool

	pending batch

	voxels *zset.DigestOp[shadow.Voxel]
	goals  [2]zset.DistinctOp[shadow.Square]
	goalDg [2]*zset.DigestOp[shadow.Square]

	proj [2]*shadow.Projector
	diff [2]*shadow.Differ

	maximal *shadow.MaximalSolver
	minimal *shadow.MinimalCounter
}

type batch struct {
	voxels *zset.ZSet[shadow.Voxel]
	goals  [2]*zset.ZSet[shadow.Square]

	voxelLog []VoxelUpdate
	goalLog  []GoalUpdate
	rejected int
}

func (b *batch) reset() {
	b.voxels = zset.New[shadow.Voxel]()
	b.goals = [2]*zset.ZSet[shadow.Square]{zset.New[shadow.Square](), zset.New[shadow.Square]()}
	b.voxelLog = nil
	b.goalLog = nil
	b.rejected = 0
}

func New(cfg Config) (*Engine, error) {
	if cfg.GridSize <= 0 {
		return nil, fmt.Errorf("grid size must be positive, got %d", cfg.GridSize)
	}
	e := &Engine{
		cfg:     cfg,
		grid:    shadow.Grid{N: cfg.GridSize},
		solved:  true,
		voxels:  zset.NewDigestOp(shadow.AppendVoxel),
		maximal: shadow.NewMaximalSolver(),
		minimal: shadow.NewMinimalCounter(),
	}
	for _, axis := range shadow.Axes {
		i := axis.Index()
		e.goalDg[i] = zset.NewDigestOp(shadow.AppendSquare)
		e.proj[i] = shadow.NewProjector(axis)
		e.diff[i] = shadow.NewDiffer(axis)
	}
	e.pending.reset()
	return e, nil
}

func (e *Engine) Config() Config    { return e.cfg }
func (e *Engine) Grid() shadow.Grid { return e.grid }
func (e *Engine) Round() uint64     { return e.round }

// SubmitVoxelDelta buffers one voxel change for the next Advance. An invalid
// update is refused with an error wrapping shadow.ErrInvalidInput and leaves
// the buffered batch as it was.
func (e *Engine) SubmitVoxelDelta(v shadow.Voxel, sign int) error {
	if err := shadow.CheckSign(sign); err != nil {
		e.pending.rejected++
		return err
	}
	if err := e.grid.CheckVoxel(v); err != nil {
		e.pending.rejected++
		return err
	}
	e.pending.voxels.Add(v, int64(sign))
	e.pending.voxelLog = append(e.pending.voxelLog, VoxelUpdate{Voxel: v, Sign: sign})
	return nil
}

// SubmitVoxelBatch buffers updates in order and stops at the first invalid
// one. It returns how many updates were accepted; those stay buffered.
func (e *Engine) SubmitVoxelBatch(updates []VoxelUpdate) (int, error) {
	for i, u := range updates {
		if err := e.SubmitVoxelDelta(u.Voxel, u.Sign); err != nil {
			return i, fmt.Errorf("voxel update %d: %w", i, err)
		}
	}
	return len(updates), nil
}

// SubmitGoalDelta buffers one goal change for the next Advance.
func (e *Engine) SubmitGoalDelta(axis shadow.Axis, s shadow.Square, sign int) error {
	if !axis.Valid() {
		e.pending.rejected++
		return &shadow.InvalidInputError{Field: "axis", Value: int(axis), Reason: "want XY or XZ"}
	}
	if err := shadow.CheckSign(sign); err != nil {
		e.pending.rejected++
		return err
	}
	if err := e.grid.CheckSquare(s); err != nil {
		e.pending.rejected++
		return err
	}
	e.pending.goals[axis.Index()].Add(s, int64(sign))
	e.pending.goalLog = append(e.pending.goalLog, GoalUpdate{Axis: axis, Square: s, Sign: sign})
	return nil
}

func (e *Engine) SubmitGoalBatch(updates []GoalUpdate) (int, error) {
	for i, u := range updates {
		if err := e.SubmitGoalDelta(u.Axis, u.Square, u.Sign); err != nil {
			return i, fmt.Errorf("goal update %d: %w", i, err)
		}
	}
	return len(updates), nil
}

// Pending is the number of accepted updates waiting for Advance.
func (e *Engine) Pending() int { return len(e.pending.voxelLog) + len(e.pending.goalLog) }

// Advance commits the buffered batch and returns the resulting deltas.
//
// Updates inside a batch are summed before any derivation runs, so their
// order never affects the result. Every derivation is incremental: the work
// is proportional to the keys the batch touches.
func (e *Engine) Advance() RoundResult {
	b := e.pending
	e.pending.reset()

	e.voxels.Step(b.voxels)

	var goalDistinct [2]*zset.ZSet[shadow.Square]
	res := RoundResult{
		Voxels:   b.voxelLog,
		Goals:    b.goalLog,
		Rejected: b.rejected,
	}
	for _, axis := range shadow.Axes {
		i := axis.Index()
		goalDistinct[i] = e.goals[i].Step(b.goals[i])
		e.goalDg[i].Step(b.goals[i])
		res.ErrorDeltas[i] = e.diff[i].Step(b.goals[i], e.proj[i].Step(b.voxels))
		res.ErrorSizes[i] = e.diff[i].Errors().Len()
	}
	e.maximal.Step(goalDistinct[0], goalDistinct[1])
	res.MinimalCardinality = e.minimal.Step(goalDistinct[0], goalDistinct[1])
	res.MaximalCardinality = e.maximal.Cardinality()
	res.Satisfiable = e.minimal.Satisfiable()

	solved := e.diff[0].Clean() && e.diff[1].Clean()
	res.SolvedChanged = solved != e.solved
	res.Solved = solved
	e.solved = solved

	e.round++
	res.Round = e.round
	res.Digest = e.Digest()
	return res
}

// Solved reports whether both committed shadows match their goals exactly.
func (e *Engine) Solved() bool { return e.solved }

// Errors returns a copy of the committed error collection for axis.
func (e *Engine) Errors(axis shadow.Axis) *zset.ZSet[shadow.Square] {
	return e.diff[axis.Index()].Errors().Clone()
}

// Shadow returns the committed shadow of the voxel set on axis.
func (e *Engine) Shadow(axis shadow.Axis) *zset.ZSet[shadow.Square] {
	return e.proj[axis.Index()].Shadow()
}

func (e *Engine) Voxels() *zset.ZSet[shadow.Voxel] { return e.voxels.State().Clone() }

func (e *Engine) Goal(axis shadow.Axis) *zset.ZSet[shadow.Square] {
	return e.goals[axis.Index()].Input().Clone()
}

// ComputeMaximal returns the maximal solution of the committed goals.
func (e *Engine) ComputeMaximal() *zset.ZSet[shadow.Voxel] { return e.maximal.Solution() }

// ComputeMinimal returns a minimal solution of the committed goals, or an
// error wrapping shadow.ErrUnsatisfiable.
func (e *Engine) ComputeMinimal() (*zset.ZSet[shadow.Voxel], error) {
	return shadow.Minimal(e.goals[0].Input(), e.goals[1].Input())
}

func (e *Engine) MinimalCardinality() int64 { return e.minimal.Cardinality() }
