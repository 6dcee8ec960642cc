package puzzle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"shadowbox.ai/internal/persistence/snapshot"
	"shadowbox.ai/internal/sim/shadow"
	"shadowbox.ai/internal/sim/zset"
)

type RoundLogger interface {
	WriteRound(entry RoundLogEntry) error
}

type RunnerConfig struct {
	// AdvanceEvery commits pending updates on a timer. Zero means rounds
	// only advance on explicit requests.
	AdvanceEvery        time.Duration
	SnapshotEveryRounds int
	IntakeBuffer        int
}

// Runner owns an Engine and serializes every producer onto it through a
// single intake loop. All engine access happens on the Run goroutine.
type Runner struct {
	engine *Engine
	cfg    RunnerConfig

	submit      chan SubmitRequest
	advance     chan AdvanceRequest
	solve       chan SolveRequest
	read        chan readReq
	snap        chan snapshotReq
	subscribe   chan subscribeReq
	unsubscribe chan uint64
	stop        chan struct{}
	stopOnce    sync.Once

	// Optional (may be nil).
	roundLogger  RoundLogger
	snapshotSink chan<- snapshot.SnapshotV1

	subs    map[uint64]chan RoundResult
	nextSub uint64

	roundsTotal    uint64
	rejectedTotal  uint64
	roundLogErrors uint64
	metrics       atomic.Value
}

type SubmitRequest struct {
	Voxels []VoxelUpdate
	Goals  []GoalUpdate
	Resp   chan SubmitResult
}

// SubmitResult reports how many updates of a request were buffered. Err is
// set when an update was refused; updates after it were not attempted.
type SubmitResult struct {
	Accepted int
	Err      error
}

type AdvanceRequest struct {
	Resp chan RoundResult
}

type SolveKind string

const (
	SolveMaximal SolveKind = "MAXIMAL"
	SolveMinimal SolveKind = "MINIMAL"
)

type SolveRequest struct {
	Kind SolveKind
	Resp chan SolveResult
}

type SolveResult struct {
	Kind   SolveKind
	Round  uint64
	Voxels *zset.ZSet[shadow.Voxel]
	Err    error
}

// StateView is a consistent read of committed state.
type StateView struct {
	PuzzleID string
	GridSize int
	Round    uint64
	Solved   bool
	Errors   [2]*zset.ZSet[shadow.Square]
	Pending  int

	MinimalCardinality int64
	MaximalCardinality int64
	Satisfiable        bool
	Digest             string
}

type readReq struct{ Resp chan StateView }

type snapshotReq struct{ Resp chan uint64 }

type subscribeReq struct {
	Buffer int
	Resp   chan subscription
}

type subscription struct {
	ID  uint64
	Out chan RoundResult
}

var (
	ErrStopped       = errors.New("runner stopped")
	ErrNoSnapshotter = errors.New("snapshot sink not configured")
)

func NewRunner(e *Engine, cfg RunnerConfig) *Runner {
	buf := cfg.IntakeBuffer
	if buf <= 0 {
		buf = 1024
	}
	return &Runner{
		engine:      e,
		cfg:         cfg,
		submit:      make(chan SubmitRequest, buf),
		advance:     make(chan AdvanceRequest, 64),
		solve:       make(chan SolveRequest, 64),
		read:        make(chan readReq, 64),
		snap:        make(chan snapshotReq, 4),
		subscribe:   make(chan subscribeReq, 16),
		unsubscribe: make(chan uint64, 16),
		stop:        make(chan struct{}),
		subs:        map[uint64]chan RoundResult{},
	}
}

func (r *Runner) SetRoundLogger(l RoundLogger)                    { r.roundLogger = l }
func (r *Runner) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { r.snapshotSink = ch }

func (r *Runner) Inbox() chan<- SubmitRequest { return r.submit }

// Run serves requests until ctx ends or Stop is called. Once it returns the
// runner counts as stopped, so pending and later calls fail with ErrStopped.
func (r *Runner) Run(ctx context.Context) error {
	defer r.Stop()

	var tick <-chan time.Time
	if r.cfg.AdvanceEvery > 0 {
		t := time.NewTicker(r.cfg.AdvanceEvery)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.stop:
			return nil
		case req := <-r.submit:
			r.handleSubmit(req)
		case req := <-r.advance:
			res := r.step()
			if req.Resp != nil {
				req.Resp <- res
			}
		case req := <-r.solve:
			req.Resp <- r.handleSolve(req.Kind)
		case req := <-r.read:
			req.Resp <- r.view()
		case req := <-r.snap:
			req.Resp <- r.emitSnapshot()
		case req := <-r.subscribe:
			r.nextSub++
			out := make(chan RoundResult, max(req.Buffer, 1))
			r.subs[r.nextSub] = out
			req.Resp <- subscription{ID: r.nextSub, Out: out}
		case id := <-r.unsubscribe:
			if out, ok := r.subs[id]; ok {
				delete(r.subs, id)
				close(out)
			}
		case <-tick:
			if r.engine.Pending() > 0 {
				r.step()
			}
		}
	}
}

func (r *Runner) Stop() { r.stopOnce.Do(func() { close(r.stop) }) }

func (r *Runner) handleSubmit(req SubmitRequest) {
	res := SubmitResult{}
	n, err := r.engine.SubmitVoxelBatch(req.Voxels)
	res.Accepted += n
	if err == nil {
		n, err = r.engine.SubmitGoalBatch(req.Goals)
		res.Accepted += n
	}
	res.Err = err
	if req.Resp != nil {
		req.Resp <- res
	}
}

func (r *Runner) handleSolve(kind SolveKind) SolveResult {
	res := SolveResult{Kind: kind, Round: r.engine.Round()}
	switch kind {
	case SolveMaximal:
		res.Voxels = r.engine.ComputeMaximal()
	case SolveMinimal:
		res.Voxels, res.Err = r.engine.ComputeMinimal()
	default:
		res.Err = &shadow.InvalidInputError{Field: "solve kind", Text: string(kind), Reason: "want MAXIMAL or MINIMAL"}
	}
	return res
}

func (r *Runner) view() StateView {
	e := r.engine
	return StateView{
		PuzzleID:           e.cfg.ID,
		GridSize:           e.cfg.GridSize,
		Round:              e.Round(),
		Solved:             e.Solved(),
		Errors:             [2]*zset.ZSet[shadow.Square]{e.Errors(shadow.XY), e.Errors(shadow.XZ)},
		Pending:            e.Pending(),
		MinimalCardinality: e.MinimalCardinality(),
		MaximalCardinality: e.maximal.Cardinality(),
		Satisfiable:        e.minimal.Satisfiable(),
		Digest:             e.Digest(),
	}
}

func (r *Runner) step() RoundResult {
	start := time.Now()
	res := r.engine.Advance()

	if r.roundLogger != nil {
		if err := r.roundLogger.WriteRound(res.LogEntry()); err != nil {
			r.roundLogErrors++
		}
	}

	if every := uint64(r.cfg.SnapshotEveryRounds); r.snapshotSink != nil && every > 0 && res.Round%every == 0 {
		r.emitSnapshot()
	}

	for _, out := range r.subs {
		sendLatest(out, res)
	}

	r.roundsTotal++
	r.rejectedTotal += uint64(res.Rejected)
	r.metrics.Store(Metrics{
		Round:               res.Round,
		Solved:              res.Solved,
		ErrorSizes:          res.ErrorSizes,
		MinimalCardinality:  res.MinimalCardinality,
		MaximalCardinality:  res.MaximalCardinality,
		Subscribers:         len(r.subs),
		RoundsTotal:         r.roundsTotal,
		RejectedTotal:       r.rejectedTotal,
		RoundLogErrorsTotal: r.roundLogErrors,
		QueueDepths: QueueDepths{
			Submit:  len(r.submit),
			Advance: len(r.advance),
			Solve:   len(r.solve),
		},
		StepMS: float64(time.Since(start).Microseconds()) / 1000.0,
	})
	return res
}

// emitSnapshot hands a snapshot to the sink without blocking and returns the
// round it captured, or 0 when nothing was sent.
func (r *Runner) emitSnapshot() uint64 {
	if r.snapshotSink == nil {
		return 0
	}
	snap := r.engine.ExportSnapshot()
	select {
	case r.snapshotSink <- snap:
		return snap.Header.Round
	default:
		// Drop if the writer is backed up.
		return 0
	}
}

// sendLatest never blocks the loop: when a subscriber is full its oldest
// round is dropped.
func sendLatest[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
