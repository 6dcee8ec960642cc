package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"shadowbox.ai/internal/protocol"
	"shadowbox.ai/internal/sim/puzzle"
)

type Options struct {
	// MaxQueue caps the per-connection outbound queue.
	MaxQueue      int
	CatalogDigest string
	// SubmitTimeout bounds how long a SUBMIT may wait for intake space
	// before it is answered with E_BUSY.
	SubmitTimeout time.Duration
}

type Server struct {
	runner    *puzzle.Runner
	validator *protocol.Validator
	opts      Options
	log       *log.Logger

	upgrader websocket.Upgrader
	sessions atomic.Uint64
}

func NewServer(r *puzzle.Runner, v *protocol.Validator, opts Options, logger *log.Logger) *Server {
	if opts.MaxQueue <= 0 {
		opts.MaxQueue = 64
	}
	if opts.SubmitTimeout <= 0 {
		opts.SubmitTimeout = 2 * time.Second
	}
	return &Server{
		runner:    r,
		validator: v,
		opts:      opts,
		log:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		hello, ok := s.readHello(conn)
		if !ok {
			return
		}

		maxQ := hello.Capabilities.MaxQueue
		if maxQ <= 0 || maxQ > s.opts.MaxQueue {
			maxQ = s.opts.MaxQueue
		}
		out := make(chan any, maxQ)

		// Subscribe before WELCOME so no round falls between the two.
		var rounds <-chan puzzle.RoundResult
		if hello.Capabilities.Rounds {
			id, ch, err := s.runner.Subscribe(ctx, maxQ)
			if err != nil {
				return
			}
			defer s.runner.Unsubscribe(id)
			rounds = ch
		}
		if !s.welcome(ctx, conn, hello) {
			return
		}

		// Writer goroutine.
		go func() {
			for {
				var v any
				select {
				case <-ctx.Done():
					return
				case v = <-out:
				case res, ok := <-rounds:
					if !ok {
						cancel()
						return
					}
					v = RoundMsg(res, "")
				}
				if err := writeJSON(conn, v); err != nil {
					cancel()
					return
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			reply := s.dispatch(ctx, msg)
			if reply == nil {
				continue
			}
			select {
			case out <- reply:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
		}
	}
}

// dispatch handles one client message and returns the reply to send.
func (s *Server) dispatch(ctx context.Context, msg []byte) any {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return errorMsg("", protocol.ErrProtoBadRequest, "malformed json")
	}
	if base.ProtocolVersion != protocol.Version {
		return errorMsg(base.RequestID, protocol.ErrProtoBadRequest, "bad protocol_version")
	}
	switch base.Type {
	case protocol.TypeSubmit, protocol.TypeAdvance, protocol.TypeSolve:
	default:
		return errorMsg(base.RequestID, protocol.ErrProtoBadRequest, fmt.Sprintf("unexpected message type %q", base.Type))
	}
	if err := s.validator.Validate(base.Type, msg); err != nil {
		return errorMsg(base.RequestID, protocol.ErrProtoBadRequest, err.Error())
	}

	switch base.Type {
	case protocol.TypeSubmit:
		var m protocol.SubmitMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return errorMsg(base.RequestID, protocol.ErrProtoBadRequest, err.Error())
		}
		voxels, goals := Updates(m)
		sctx, cancel := context.WithTimeout(ctx, s.opts.SubmitTimeout)
		defer cancel()
		res, err := s.runner.Submit(sctx, voxels, goals)
		if err != nil {
			return errorMsg(m.RequestID, protocol.ErrBusy, err.Error())
		}
		ack := protocol.AckMsg{
			Type:            protocol.TypeAck,
			ProtocolVersion: protocol.Version,
			AckFor:          m.RequestID,
			Accepted:        res.Accepted,
		}
		if res.Err != nil {
			ack.Code = CodeFor(res.Err)
			ack.Message = res.Err.Error()
		}
		return ack

	case protocol.TypeAdvance:
		res, err := s.runner.Advance(ctx)
		if err != nil {
			return errorMsg(base.RequestID, CodeFor(err), err.Error())
		}
		return RoundMsg(res, base.RequestID)

	default:
		var m protocol.SolveMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return errorMsg(base.RequestID, protocol.ErrProtoBadRequest, err.Error())
		}
		res, err := s.runner.Solve(ctx, puzzle.SolveKind(m.Kind))
		if err != nil {
			return errorMsg(m.RequestID, CodeFor(err), err.Error())
		}
		if res.Err != nil {
			return errorMsg(m.RequestID, CodeFor(res.Err), res.Err.Error())
		}
		return SolutionMsg(res, m.RequestID)
	}
}

func (s *Server) readHello(conn *websocket.Conn) (protocol.HelloMsg, bool) {
	var hello protocol.HelloMsg
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return hello, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return hello, false
	}
	if base.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return hello, false
	}
	if err := s.validator.Validate(protocol.TypeHello, msg); err != nil {
		closeWith(conn, "bad HELLO")
		return hello, false
	}
	if err := json.Unmarshal(msg, &hello); err != nil {
		return hello, false
	}
	return hello, true
}

func (s *Server) welcome(ctx context.Context, conn *websocket.Conn, hello protocol.HelloMsg) bool {
	st, err := s.runner.State(ctx)
	if err != nil {
		if s.log != nil {
			s.log.Printf("welcome %s: %v", hello.ClientName, err)
		}
		closeWith(conn, "server unavailable")
		return false
	}
	sid := fmt.Sprintf("S%d", s.sessions.Add(1))
	if err := writeJSON(conn, WelcomeMsg(sid, st, s.opts.CatalogDigest)); err != nil {
		return false
	}
	if s.log != nil {
		s.log.Printf("session %s: client=%s round=%d", sid, hello.ClientName, st.Round)
	}
	return true
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
