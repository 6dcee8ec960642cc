package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello    = "HELLO"
	TypeWelcome  = "WELCOME"
	TypeSubmit   = "SUBMIT"
	TypeAck      = "ACK"
	TypeAdvance  = "ADVANCE"
	TypeRound    = "ROUND"
	TypeSolve    = "SOLVE"
	TypeSolution = "SOLUTION"
	TypeError    = "ERROR"
)

// Axis names on the wire.
const (
	AxisXY = "XY"
	AxisXZ = "XZ"
)

// Solve kinds.
const (
	SolveMaximal = "MAXIMAL"
	SolveMinimal = "MINIMAL"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	RequestID       string `json:"request_id,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
