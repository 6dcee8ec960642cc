package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Intake.
	ErrBusy = "E_BUSY"

	// Update/solver layer.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrInvalidInput  = "E_INVALID_INPUT"
	ErrUnsatisfiable = "E_UNSATISFIABLE"
	ErrInternal      = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBusy:            {},
	ErrBadRequest:      {},
	ErrInvalidInput:    {},
	ErrUnsatisfiable:   {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
