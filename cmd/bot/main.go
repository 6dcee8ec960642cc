package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"

	"shadowbox.ai/internal/protocol"
)

// The bot asks the server for a solution, submits it voxel by voxel in
// batches, and advances until the puzzle reports solved.
func main() {
	var (
		url   = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name  = flag.String("name", "bot", "client name")
		kind  = flag.String("kind", protocol.SolveMinimal, "solution kind: MINIMAL or MAXIMAL")
		batch = flag.Int("batch", 16, "voxels per SUBMIT")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
		Capabilities:    protocol.HelloCapabilities{MaxQueue: 8},
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	b := &bot{conn: conn, logger: logger, kind: strings.ToUpper(*kind), batch: *batch}
	for {
		select {
		case <-stop:
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		done, err := b.handle(base.Type, msg)
		if err != nil {
			logger.Fatalf("%v", err)
		}
		if done {
			return
		}
	}
}

type bot struct {
	conn   *websocket.Conn
	logger *log.Logger
	kind   string
	batch  int

	seq     int
	pending int
}

func (b *bot) nextID(prefix string) string {
	b.seq++
	return fmt.Sprintf("%s_%d", prefix, b.seq)
}

func (b *bot) handle(typ string, msg []byte) (bool, error) {
	switch typ {
	case protocol.TypeWelcome:
		var w protocol.WelcomeMsg
		if err := json.Unmarshal(msg, &w); err != nil {
			return false, err
		}
		b.logger.Printf("WELCOME session=%s puzzle=%s grid=%d round=%d solved=%v", w.SessionID, w.Puzzle.ID, w.Puzzle.GridSize, w.Round, w.Solved)
		if w.Solved && len(w.Errors.XY)+len(w.Errors.XZ) > 0 {
			return false, fmt.Errorf("inconsistent WELCOME: solved with errors")
		}
		return false, b.conn.WriteJSON(protocol.SolveMsg{
			Type:            protocol.TypeSolve,
			ProtocolVersion: protocol.Version,
			RequestID:       b.nextID("S"),
			Kind:            b.kind,
		})

	case protocol.TypeSolution:
		var s protocol.SolutionMsg
		if err := json.Unmarshal(msg, &s); err != nil {
			return false, err
		}
		b.logger.Printf("SOLUTION kind=%s round=%d cardinality=%d", s.Kind, s.Round, s.Cardinality)
		return false, b.submit(s.Voxels)

	case protocol.TypeAck:
		var a protocol.AckMsg
		if err := json.Unmarshal(msg, &a); err != nil {
			return false, err
		}
		if a.Code != "" {
			return false, fmt.Errorf("submit %s refused: %s %s", a.AckFor, a.Code, a.Message)
		}
		b.pending--
		if b.pending > 0 {
			return false, nil
		}
		return false, b.conn.WriteJSON(protocol.AdvanceMsg{
			Type:            protocol.TypeAdvance,
			ProtocolVersion: protocol.Version,
			RequestID:       b.nextID("A"),
		})

	case protocol.TypeRound:
		var r protocol.RoundMsg
		if err := json.Unmarshal(msg, &r); err != nil {
			return false, err
		}
		b.logger.Printf("ROUND %d solved=%v errors=%v digest=%s", r.Round, r.Solved, r.ErrorSizes, r.Digest)
		return r.ReplyTo != "", nil

	case protocol.TypeError:
		var e protocol.ErrorMsg
		if err := json.Unmarshal(msg, &e); err != nil {
			return false, err
		}
		return false, fmt.Errorf("server error for %s: %s %s", e.ReplyTo, e.Code, e.Message)
	}
	return false, nil
}

// submit sends the voxels in batches; the last ACK triggers ADVANCE.
func (b *bot) submit(voxels [][3]int) error {
	if b.batch <= 0 {
		b.batch = len(voxels)
	}
	if len(voxels) == 0 {
		b.pending = 1
		return b.conn.WriteJSON(protocol.SubmitMsg{
			Type:            protocol.TypeSubmit,
			ProtocolVersion: protocol.Version,
			RequestID:       b.nextID("U"),
		})
	}
	for start := 0; start < len(voxels); start += b.batch {
		end := min(start+b.batch, len(voxels))
		msg := protocol.SubmitMsg{
			Type:            protocol.TypeSubmit,
			ProtocolVersion: protocol.Version,
			RequestID:       b.nextID("U"),
		}
		for _, v := range voxels[start:end] {
			msg.Voxels = append(msg.Voxels, protocol.VoxelDelta{Pos: v, Sign: 1})
		}
		b.pending++
		if err := b.conn.WriteJSON(msg); err != nil {
			return err
		}
	}
	return nil
}
