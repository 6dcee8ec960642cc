package puzzle

import (
	"fmt"

	"shadowbox.ai/internal/persistence/snapshot"
	"shadowbox.ai/internal/sim/shadow"
)

// ExportSnapshot captures the committed inputs. Buffered updates are not
// included.
func (e *Engine) ExportSnapshot() snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version:  snapshot.Version,
			PuzzleID: e.cfg.ID,
			Round:    e.round,
		},
		GridSize: e.cfg.GridSize,
		Solved:   e.solved,
		Digest:   e.Digest(),
	}
	for _, en := range e.voxels.State().Entries(shadow.CompareVoxel) {
		snap.Voxels = append(snap.Voxels, snapshot.VoxelV1{X: en.Value.X, Y: en.Value.Y, Z: en.Value.Z, W: en.Weight})
	}
	squares := func(axis shadow.Axis) []snapshot.SquareV1 {
		var out []snapshot.SquareV1
		for _, en := range e.goals[axis.Index()].Input().Entries(shadow.CompareSquare) {
			out = append(out, snapshot.SquareV1{A: en.Value.A, B: en.Value.B, W: en.Weight})
		}
		return out
	}
	snap.GoalXY = squares(shadow.XY)
	snap.GoalXZ = squares(shadow.XZ)
	return snap
}

// FromSnapshot rebuilds an engine by committing the snapshot contents as a
// single batch. The round counter resumes from the snapshot header.
func FromSnapshot(snap snapshot.SnapshotV1) (*Engine, error) {
	if snap.Header.Version != snapshot.Version {
		return nil, fmt.Errorf("snapshot version %d not supported", snap.Header.Version)
	}
	e, err := New(Config{ID: snap.Header.PuzzleID, GridSize: snap.GridSize})
	if err != nil {
		return nil, err
	}
	for _, v := range snap.Voxels {
		vox := shadow.Voxel{X: v.X, Y: v.Y, Z: v.Z}
		if err := e.grid.CheckVoxel(vox); err != nil {
			return nil, fmt.Errorf("snapshot voxel %v: %w", vox, err)
		}
		e.pending.voxels.Add(vox, v.W)
	}
	goals := [2][]snapshot.SquareV1{snap.GoalXY, snap.GoalXZ}
	for i, sq := range goals {
		for _, s := range sq {
			q := shadow.Square{A: s.A, B: s.B}
			if err := e.grid.CheckSquare(q); err != nil {
				return nil, fmt.Errorf("snapshot %s goal square %v: %w", shadow.Axes[i], q, err)
			}
			e.pending.goals[i].Add(q, s.W)
		}
	}
	res := e.Advance()
	e.round = snap.Header.Round
	if snap.Digest != "" && res.Digest != snap.Digest {
		return nil, fmt.Errorf("snapshot digest mismatch: got %s want %s", res.Digest, snap.Digest)
	}
	return e, nil
}
