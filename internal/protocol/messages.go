package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	ClientName      string            `json:"client_name"`
	Capabilities    HelloCapabilities `json:"capabilities"`
}

type HelloCapabilities struct {
	// MaxQueue caps the outbound queue the server keeps for this client.
	MaxQueue int `json:"max_queue,omitempty"`
	// Rounds subscribes the connection to ROUND pushes.
	Rounds bool `json:"rounds,omitempty"`
}

// WELCOME (server -> client): committed state at connect time.
type WelcomeMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	SessionID       string       `json:"session_id"`
	Puzzle          PuzzleParams `json:"puzzle"`
	Round           uint64       `json:"round"`
	Solved          bool         `json:"solved"`
	Errors          ErrorSets    `json:"errors"`
	Digest          string       `json:"digest"`
}

type PuzzleParams struct {
	ID            string `json:"id"`
	GridSize      int    `json:"grid_size"`
	CatalogDigest string `json:"catalog_digest,omitempty"`
}

// SignedSquare is one error entry: positive W is an unmet goal square,
// negative W a square cast outside the goal.
type SignedSquare struct {
	Square [2]int `json:"square"`
	W      int64  `json:"w"`
}

type ErrorSets struct {
	XY []SignedSquare `json:"xy"`
	XZ []SignedSquare `json:"xz"`
}

// SUBMIT (client -> server)
type SubmitMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	RequestID       string       `json:"request_id"`
	Voxels          []VoxelDelta `json:"voxels,omitempty"`
	Goals           []GoalDelta  `json:"goals,omitempty"`
}

type VoxelDelta struct {
	Pos  [3]int `json:"pos"`
	Sign int    `json:"sign"`
}

type GoalDelta struct {
	Axis   string `json:"axis"`
	Square [2]int `json:"square"`
	Sign   int    `json:"sign"`
}

// ACK (server -> client) answers SUBMIT. Accepted counts the leading updates
// that were buffered; a non-empty Code names why the next one was refused.
type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AckFor          string `json:"ack_for"`
	Accepted        int    `json:"accepted"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
}

// ADVANCE (client -> server)
type AdvanceMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RequestID       string `json:"request_id"`
}

// ROUND (server -> client): pushed after every committed round, and sent in
// reply to ADVANCE with ReplyTo set.
type RoundMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReplyTo         string `json:"reply_to,omitempty"`

	Round         uint64    `json:"round"`
	Accepted      int       `json:"accepted"`
	Rejected      int       `json:"rejected"`
	ErrorDeltas   ErrorSets `json:"error_deltas"`
	ErrorSizes    [2]int    `json:"error_sizes"`
	Solved        bool      `json:"solved"`
	SolvedChanged bool      `json:"solved_changed"`

	MinimalCardinality int64 `json:"minimal_cardinality"`
	MaximalCardinality int64 `json:"maximal_cardinality"`
	Satisfiable        bool  `json:"satisfiable"`

	Digest string `json:"digest"`
}

// SOLVE (client -> server)
type SolveMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RequestID       string `json:"request_id"`
	Kind            string `json:"kind"`
}

// SOLUTION (server -> client)
type SolutionMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	ReplyTo         string   `json:"reply_to"`
	Kind            string   `json:"kind"`
	Round           uint64   `json:"round"`
	Cardinality     int64    `json:"cardinality"`
	Voxels          [][3]int `json:"voxels"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReplyTo         string `json:"reply_to,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}
