package main

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"

	"shadowbox.ai/internal/persistence/indexdb"
	"shadowbox.ai/internal/sim/puzzle"
	"shadowbox.ai/internal/transport/ws"
)

func metricsHandler(puzzleID string, r *puzzle.Runner, idx *indexdb.SQLiteIndex) http.HandlerFunc {
	return func(rw http.ResponseWriter, req *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		m := r.Metrics()

		fmt.Fprintf(rw, "# HELP shadowbox_round Last committed round.\n")
		fmt.Fprintf(rw, "# TYPE shadowbox_round gauge\n")
		fmt.Fprintf(rw, "shadowbox_round{puzzle=%q} %d\n", puzzleID, m.Round)

		fmt.Fprintf(rw, "# HELP shadowbox_solved 1 when both shadows match their goals.\n")
		fmt.Fprintf(rw, "# TYPE shadowbox_solved gauge\n")
		fmt.Fprintf(rw, "shadowbox_solved{puzzle=%q} %d\n", puzzleID, boolInt(m.Solved))

		fmt.Fprintf(rw, "# HELP shadowbox_errors Error collection size per axis.\n")
		fmt.Fprintf(rw, "# TYPE shadowbox_errors gauge\n")
		fmt.Fprintf(rw, "shadowbox_errors{puzzle=%q,axis=%q} %d\n", puzzleID, "XY", m.ErrorSizes[0])
		fmt.Fprintf(rw, "shadowbox_errors{puzzle=%q,axis=%q} %d\n", puzzleID, "XZ", m.ErrorSizes[1])

		fmt.Fprintf(rw, "# HELP shadowbox_solution_cardinality Size of the extremal solutions of the goals.\n")
		fmt.Fprintf(rw, "# TYPE shadowbox_solution_cardinality gauge\n")
		fmt.Fprintf(rw, "shadowbox_solution_cardinality{puzzle=%q,kind=%q} %d\n", puzzleID, "minimal", m.MinimalCardinality)
		fmt.Fprintf(rw, "shadowbox_solution_cardinality{puzzle=%q,kind=%q} %d\n", puzzleID, "maximal", m.MaximalCardinality)

		fmt.Fprintf(rw, "# HELP shadowbox_subscribers Connections receiving round pushes.\n")
		fmt.Fprintf(rw, "# TYPE shadowbox_subscribers gauge\n")
		fmt.Fprintf(rw, "shadowbox_subscribers{puzzle=%q} %d\n", puzzleID, m.Subscribers)

		fmt.Fprintf(rw, "# HELP shadowbox_queue_depth Channel backlog depth.\n")
		fmt.Fprintf(rw, "# TYPE shadowbox_queue_depth gauge\n")
		fmt.Fprintf(rw, "shadowbox_queue_depth{puzzle=%q,queue=%q} %d\n", puzzleID, "submit", m.QueueDepths.Submit)
		fmt.Fprintf(rw, "shadowbox_queue_depth{puzzle=%q,queue=%q} %d\n", puzzleID, "advance", m.QueueDepths.Advance)
		fmt.Fprintf(rw, "shadowbox_queue_depth{puzzle=%q,queue=%q} %d\n", puzzleID, "solve", m.QueueDepths.Solve)

		fmt.Fprintf(rw, "# HELP shadowbox_rounds_total Rounds committed since start.\n")
		fmt.Fprintf(rw, "# TYPE shadowbox_rounds_total counter\n")
		fmt.Fprintf(rw, "shadowbox_rounds_total{puzzle=%q} %d\n", puzzleID, m.RoundsTotal)

		fmt.Fprintf(rw, "# HELP shadowbox_rejected_total Updates refused as invalid since start.\n")
		fmt.Fprintf(rw, "# TYPE shadowbox_rejected_total counter\n")
		fmt.Fprintf(rw, "shadowbox_rejected_total{puzzle=%q} %d\n", puzzleID, m.RejectedTotal)

		fmt.Fprintf(rw, "# HELP shadowbox_round_log_errors_total Rounds the round log failed to record.\n")
		fmt.Fprintf(rw, "# TYPE shadowbox_round_log_errors_total counter\n")
		fmt.Fprintf(rw, "shadowbox_round_log_errors_total{puzzle=%q} %d\n", puzzleID, m.RoundLogErrorsTotal)

		fmt.Fprintf(rw, "# HELP shadowbox_step_ms Last round step duration in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE shadowbox_step_ms gauge\n")
		fmt.Fprintf(rw, "shadowbox_step_ms{puzzle=%q} %.3f\n", puzzleID, m.StepMS)

		if idx != nil {
			s := idx.Stats()
			fmt.Fprintf(rw, "# HELP shadowbox_index_queue_depth Current index queue depth.\n")
			fmt.Fprintf(rw, "# TYPE shadowbox_index_queue_depth gauge\n")
			fmt.Fprintf(rw, "shadowbox_index_queue_depth %d\n", s.QueueDepth)
			fmt.Fprintf(rw, "# HELP shadowbox_index_dropped_total Index writes dropped because the queue was full.\n")
			fmt.Fprintf(rw, "# TYPE shadowbox_index_dropped_total counter\n")
			fmt.Fprintf(rw, "shadowbox_index_dropped_total{kind=%q} %d\n", "round", s.DropRoundTotal)
			fmt.Fprintf(rw, "shadowbox_index_dropped_total{kind=%q} %d\n", "snapshot", s.DropSnapshotTotal)
		}
	}
}

type stateResponse struct {
	PuzzleID string `json:"puzzle_id"`
	GridSize int    `json:"grid_size"`
	Round    uint64 `json:"round"`
	Solved   bool   `json:"solved"`
	Pending  int    `json:"pending"`
	Digest   string `json:"digest"`

	Errors any `json:"errors"`

	MinimalCardinality int64 `json:"minimal_cardinality"`
	MaximalCardinality int64 `json:"maximal_cardinality"`
	Satisfiable        bool  `json:"satisfiable"`

	Metrics puzzle.Metrics `json:"metrics"`
}

func stateHandler(r *puzzle.Runner) http.HandlerFunc {
	return func(rw http.ResponseWriter, req *http.Request) {
		st, err := r.State(req.Context())
		if err != nil {
			http.Error(rw, err.Error(), http.StatusServiceUnavailable)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(stateResponse{
			PuzzleID:           st.PuzzleID,
			GridSize:           st.GridSize,
			Round:              st.Round,
			Solved:             st.Solved,
			Pending:            st.Pending,
			Digest:             st.Digest,
			Errors:             ws.ErrorSets(st.Errors[0], st.Errors[1]),
			MinimalCardinality: st.MinimalCardinality,
			MaximalCardinality: st.MaximalCardinality,
			Satisfiable:        st.Satisfiable,
			Metrics:            r.Metrics(),
		})
	}
}

// snapshotHandler forces a snapshot. Only POST from loopback is allowed.
func snapshotHandler(r *puzzle.Runner) http.HandlerFunc {
	return func(rw http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(req.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		round, err := r.RequestSnapshot(req.Context())
		if err != nil {
			rw.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
			return
		}
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "round": round})
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
