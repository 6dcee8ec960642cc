package protocol_test

import (
	"strings"
	"testing"

	"shadowbox.ai/internal/protocol"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	v, err := protocol.NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}

	validate := func(typ, raw string) {
		t.Helper()
		if err := v.Validate(typ, []byte(raw)); err != nil {
			t.Fatalf("validate %s: %v", typ, err)
		}
	}

	validate(protocol.TypeHello, `{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "client_name":"bot1",
	  "capabilities":{"max_queue":8,"rounds":true}
	}`)

	validate(protocol.TypeSubmit, `{
	  "type":"SUBMIT",
	  "protocol_version":"1.0",
	  "request_id":"R1",
	  "voxels":[{"pos":[0,1,2],"sign":1},{"pos":[9,9,9],"sign":-1}],
	  "goals":[{"axis":"XY","square":[0,1],"sign":1}]
	}`)

	validate(protocol.TypeAdvance, `{"type":"ADVANCE","protocol_version":"1.0","request_id":"R2"}`)
	validate(protocol.TypeSolve, `{"type":"SOLVE","protocol_version":"1.0","request_id":"R3","kind":"MINIMAL"}`)

	validate(protocol.TypeWelcome, `{
	  "type":"WELCOME",
	  "protocol_version":"1.0",
	  "session_id":"S1",
	  "puzzle":{"id":"cross","grid_size":5},
	  "round":0,
	  "solved":false,
	  "errors":{"xy":[{"square":[2,2],"w":1}],"xz":[]},
	  "digest":"00000000deadbeef"
	}`)

	validate(protocol.TypeRound, `{
	  "type":"ROUND",
	  "protocol_version":"1.0",
	  "round":3,
	  "accepted":1,
	  "rejected":0,
	  "error_deltas":{"xy":[{"square":[2,2],"w":-1}],"xz":null},
	  "error_sizes":[1,0],
	  "solved":false,
	  "solved_changed":true,
	  "minimal_cardinality":9,
	  "maximal_cardinality":17,
	  "satisfiable":true,
	  "digest":"0123456789abcdef"
	}`)

	validate(protocol.TypeSolution, `{
	  "type":"SOLUTION","protocol_version":"1.0","reply_to":"R3","kind":"MINIMAL",
	  "round":3,"cardinality":1,"voxels":[[0,1,2]]
	}`)
	validate(protocol.TypeAck, `{"type":"ACK","protocol_version":"1.0","ack_for":"R1","accepted":1,"code":"E_INVALID_INPUT"}`)
	validate(protocol.TypeError, `{"type":"ERROR","protocol_version":"1.0","code":"E_BUSY","message":"queue full"}`)
}

func TestSchemas_RejectMalformed(t *testing.T) {
	v, err := protocol.NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	cases := []struct {
		typ string
		raw string
	}{
		{protocol.TypeHello, `{"type":"HELLO","protocol_version":"1.0"}`},
		{protocol.TypeSubmit, `{"type":"SUBMIT","protocol_version":"1.0","request_id":"R","voxels":[{"pos":[1,2],"sign":1}]}`},
		{protocol.TypeSolve, `{"type":"SOLVE","protocol_version":"1.0","request_id":"R","kind":"MEDIUM"}`},
		{protocol.TypeAdvance, `{"type":"SOLVE","protocol_version":"1.0","request_id":"R"}`},
		{protocol.TypeRound, `{"type":"ROUND","protocol_version":"1.0","round":1,"error_deltas":{"xy":[{"square":[0,0],"w":0}],"xz":[]},"error_sizes":[0,0],"solved":true,"solved_changed":false,"digest":"x"}`},
	}
	for _, tc := range cases {
		if err := v.Validate(tc.typ, []byte(tc.raw)); err == nil {
			t.Fatalf("expected %s to be rejected: %s", tc.typ, tc.raw)
		}
	}
	if err := v.Validate("NOPE", []byte(`{}`)); err == nil || !strings.Contains(err.Error(), "unknown") {
		t.Fatalf("expected unknown type error, got %v", err)
	}
}

func TestDecodeBase(t *testing.T) {
	b, err := protocol.DecodeBase([]byte(`{"type":"SUBMIT","protocol_version":"1.0","request_id":"R9","voxels":[]}`))
	if err != nil {
		t.Fatalf("DecodeBase: %v", err)
	}
	if b.Type != protocol.TypeSubmit || b.RequestID != "R9" {
		t.Fatalf("unexpected base: %+v", b)
	}
}
