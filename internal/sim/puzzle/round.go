package puzzle

import (
	"shadowbox.ai/internal/sim/shadow"
	"shadowbox.ai/internal/sim/zset"
)

// RoundResult is everything one Advance produced.
type RoundResult struct {
	Round uint64

	// Accepted updates in submission order, and how many were refused.
	Voxels   []VoxelUpdate
	Goals    []GoalUpdate
	Rejected int

	// ErrorDeltas holds the change to each axis' error collection, indexed
	// by Axis.Index. ErrorSizes holds the size after the change.
	ErrorDeltas [2]*zset.ZSet[shadow.Square]
	ErrorSizes  [2]int

	Solved        bool
	SolvedChanged bool

	MinimalCardinality int64
	MaximalCardinality int64
	Satisfiable        bool

	Digest string
}

func (r RoundResult) ErrorDelta(axis shadow.Axis) *zset.ZSet[shadow.Square] {
	return r.ErrorDeltas[axis.Index()]
}

// Touched is the number of error keys the round changed across both axes.
func (r RoundResult) Touched() int {
	return r.ErrorDeltas[0].Len() + r.ErrorDeltas[1].Len()
}

// RoundLogEntry is the replayable record of one round.
type RoundLogEntry struct {
	Round    uint64        `json:"round"`
	Voxels   []VoxelUpdate `json:"voxels,omitempty"`
	Goals    []GoalUpdate  `json:"goals,omitempty"`
	Rejected int           `json:"rejected,omitempty"`

	Solved             bool   `json:"solved"`
	ErrorSizes         [2]int `json:"error_sizes"`
	MinimalCardinality int64  `json:"minimal_cardinality"`
	Digest             string `json:"digest"`
}

func (r RoundResult) LogEntry() RoundLogEntry {
	return RoundLogEntry{
		Round:    r.Round,
		Voxels:   r.Voxels,
		Goals:    r.Goals,
		Rejected: r.Rejected,

		Solved:             r.Solved,
		ErrorSizes:         r.ErrorSizes,
		MinimalCardinality: r.MinimalCardinality,
		Digest:             r.Digest,
	}
}

// Replay submits the updates of a logged round and advances. Updates that
// were accepted when logged are accepted again on an engine in the same state.
func (e *Engine) Replay(entry RoundLogEntry) (RoundResult, error) {
	if _, err := e.SubmitVoxelBatch(entry.Voxels); err != nil {
		return RoundResult{}, err
	}
	if _, err := e.SubmitGoalBatch(entry.Goals); err != nil {
		return RoundResult{}, err
	}
	return e.Advance(), nil
}
