package ws

import (
	"errors"

	"shadowbox.ai/internal/protocol"
	"shadowbox.ai/internal/sim/puzzle"
	"shadowbox.ai/internal/sim/shadow"
	"shadowbox.ai/internal/sim/zset"
)

// CodeFor maps an error from the puzzle layer to a protocol error code.
func CodeFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, shadow.ErrInvalidInput):
		return protocol.ErrInvalidInput
	case errors.Is(err, shadow.ErrUnsatisfiable):
		return protocol.ErrUnsatisfiable
	case errors.Is(err, puzzle.ErrStopped):
		return protocol.ErrBusy
	default:
		return protocol.ErrInternal
	}
}

// Updates converts a SUBMIT body. An unknown axis is passed through as an
// invalid Axis so the engine refuses it in order with the other updates.
func Updates(m protocol.SubmitMsg) ([]puzzle.VoxelUpdate, []puzzle.GoalUpdate) {
	voxels := make([]puzzle.VoxelUpdate, len(m.Voxels))
	for i, v := range m.Voxels {
		voxels[i] = puzzle.VoxelUpdate{Voxel: shadow.Voxel{X: v.Pos[0], Y: v.Pos[1], Z: v.Pos[2]}, Sign: v.Sign}
	}
	goals := make([]puzzle.GoalUpdate, len(m.Goals))
	for i, g := range m.Goals {
		axis, _ := shadow.ParseAxis(g.Axis)
		goals[i] = puzzle.GoalUpdate{Axis: axis, Square: shadow.Square{A: g.Square[0], B: g.Square[1]}, Sign: g.Sign}
	}
	return voxels, goals
}

func ErrorSets(xy, xz *zset.ZSet[shadow.Square]) protocol.ErrorSets {
	return protocol.ErrorSets{XY: signedSquares(xy), XZ: signedSquares(xz)}
}

func signedSquares(z *zset.ZSet[shadow.Square]) []protocol.SignedSquare {
	out := []protocol.SignedSquare{}
	for _, e := range z.Entries(shadow.CompareSquare) {
		out = append(out, protocol.SignedSquare{Square: [2]int{e.Value.A, e.Value.B}, W: e.Weight})
	}
	return out
}

func RoundMsg(res puzzle.RoundResult, replyTo string) protocol.RoundMsg {
	return protocol.RoundMsg{
		Type:            protocol.TypeRound,
		ProtocolVersion: protocol.Version,
		ReplyTo:         replyTo,

		Round:         res.Round,
		Accepted:      len(res.Voxels) + len(res.Goals),
		Rejected:      res.Rejected,
		ErrorDeltas:   ErrorSets(res.ErrorDeltas[0], res.ErrorDeltas[1]),
		ErrorSizes:    res.ErrorSizes,
		Solved:        res.Solved,
		SolvedChanged: res.SolvedChanged,

		MinimalCardinality: res.MinimalCardinality,
		MaximalCardinality: res.MaximalCardinality,
		Satisfiable:        res.Satisfiable,

		Digest: res.Digest,
	}
}

func WelcomeMsg(sessionID string, st puzzle.StateView, catalogDigest string) protocol.WelcomeMsg {
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		Puzzle: protocol.PuzzleParams{
			ID:            st.PuzzleID,
			GridSize:      st.GridSize,
			CatalogDigest: catalogDigest,
		},
		Round:  st.Round,
		Solved: st.Solved,
		Errors: ErrorSets(st.Errors[0], st.Errors[1]),
		Digest: st.Digest,
	}
}

func SolutionMsg(res puzzle.SolveResult, replyTo string) protocol.SolutionMsg {
	msg := protocol.SolutionMsg{
		Type:            protocol.TypeSolution,
		ProtocolVersion: protocol.Version,
		ReplyTo:         replyTo,
		Kind:            string(res.Kind),
		Round:           res.Round,
		Voxels:          [][3]int{},
	}
	for _, e := range res.Voxels.Entries(shadow.CompareVoxel) {
		for range e.Weight {
			msg.Voxels = append(msg.Voxels, [3]int{e.Value.X, e.Value.Y, e.Value.Z})
		}
	}
	msg.Cardinality = int64(len(msg.Voxels))
	return msg
}

func errorMsg(replyTo, code, message string) protocol.ErrorMsg {
	return protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		ReplyTo:         replyTo,
		Code:            code,
		Message:         message,
	}
}
