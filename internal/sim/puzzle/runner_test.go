package puzzle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"shadowbox.ai/internal/persistence/snapshot"
	"shadowbox.ai/internal/sim/shadow"
)

type memRoundLogger struct {
	mu      sync.Mutex
	entries []RoundLogEntry
}

func (l *memRoundLogger) WriteRound(e RoundLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	return nil
}

func startRunner(t *testing.T, cfg RunnerConfig) (*Runner, context.Context) {
	t.Helper()
	e, err := New(Config{ID: "runner", GridSize: 4})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r := NewRunner(e, cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	t.Cleanup(func() {
		r.Stop()
		<-done
		cancel()
	})
	return r, ctx
}

func TestRunner_SubmitAdvanceState(t *testing.T) {
	logger := &memRoundLogger{}
	e, _ := New(Config{ID: "runner", GridSize: 4})
	r := NewRunner(e, RunnerConfig{})
	r.SetRoundLogger(logger)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go r.Run(ctx)
	defer r.Stop()

	sub, err := r.Submit(ctx, nil, []GoalUpdate{
		{Axis: shadow.XY, Square: shadow.Square{A: 1, B: 1}, Sign: 1},
		{Axis: shadow.XZ, Square: shadow.Square{A: 1, B: 2}, Sign: 1},
	})
	if err != nil || sub.Err != nil || sub.Accepted != 2 {
		t.Fatalf("submit goals: %+v %v", sub, err)
	}

	st, err := r.State(ctx)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if st.Pending != 2 || !st.Solved || st.Round != 0 {
		t.Fatalf("state before advance: %+v", st)
	}

	res, err := r.Advance(ctx)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if res.Round != 1 || res.Solved || res.ErrorSizes != [2]int{1, 1} {
		t.Fatalf("round 1: %+v", res)
	}

	sub, _ = r.Submit(ctx, []VoxelUpdate{{Voxel: shadow.Voxel{X: 1, Y: 1, Z: 2}, Sign: 1}}, nil)
	if sub.Accepted != 1 {
		t.Fatalf("submit voxel: %+v", sub)
	}
	res, _ = r.Advance(ctx)
	if !res.Solved || !res.SolvedChanged {
		t.Fatalf("round 2: %+v", res)
	}

	if m := r.Metrics(); m.Round != 2 || !m.Solved || m.RoundsTotal != 2 {
		t.Fatalf("metrics: %+v", m)
	}
	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.entries) != 2 || logger.entries[1].Digest != res.Digest {
		t.Fatalf("round log: %+v", logger.entries)
	}
}

func TestRunner_SubmitReportsInvalidInput(t *testing.T) {
	r, ctx := startRunner(t, RunnerConfig{})
	sub, err := r.Submit(ctx, []VoxelUpdate{
		{Voxel: shadow.Voxel{X: 0, Y: 0, Z: 0}, Sign: 1},
		{Voxel: shadow.Voxel{X: 0, Y: 0, Z: 0}, Sign: 3},
	}, []GoalUpdate{{Axis: shadow.XY, Square: shadow.Square{}, Sign: 1}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sub.Accepted != 1 || !errors.Is(sub.Err, shadow.ErrInvalidInput) {
		t.Fatalf("unexpected result: %+v", sub)
	}
	res, _ := r.Advance(ctx)
	if res.Rejected != 1 || len(res.Voxels) != 1 || len(res.Goals) != 0 {
		t.Fatalf("unexpected round: %+v", res)
	}
}

func TestRunner_Solve(t *testing.T) {
	r, ctx := startRunner(t, RunnerConfig{})
	_, _ = r.Submit(ctx, nil, []GoalUpdate{
		{Axis: shadow.XY, Square: shadow.Square{A: 0, B: 1}, Sign: 1},
		{Axis: shadow.XY, Square: shadow.Square{A: 0, B: 2}, Sign: 1},
		{Axis: shadow.XZ, Square: shadow.Square{A: 0, B: 3}, Sign: 1},
	})
	if _, err := r.Advance(ctx); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	minRes, err := r.Solve(ctx, SolveMinimal)
	if err != nil || minRes.Err != nil {
		t.Fatalf("minimal: %v %v", err, minRes.Err)
	}
	if minRes.Voxels.Cardinality() != 2 || minRes.Round != 1 {
		t.Fatalf("minimal: %+v", minRes)
	}
	maxRes, _ := r.Solve(ctx, SolveMaximal)
	if maxRes.Voxels.Cardinality() != 2 {
		t.Fatalf("maximal: %+v", maxRes)
	}
	bad, _ := r.Solve(ctx, SolveKind("MEDIUM"))
	if !errors.Is(bad.Err, shadow.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", bad.Err)
	}
}

func TestRunner_TickerAdvancesOnlyWithPending(t *testing.T) {
	r, ctx := startRunner(t, RunnerConfig{AdvanceEvery: 5 * time.Millisecond})
	_, rounds, err := r.Subscribe(ctx, 4)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	time.Sleep(30 * time.Millisecond)
	if st, _ := r.State(ctx); st.Round != 0 {
		t.Fatalf("idle ticker advanced to round %d", st.Round)
	}

	_, _ = r.Submit(ctx, []VoxelUpdate{{Voxel: shadow.Voxel{X: 3, Y: 3, Z: 3}, Sign: 1}}, nil)
	select {
	case res := <-rounds:
		if res.Round != 1 || len(res.Voxels) != 1 {
			t.Fatalf("unexpected round: %+v", res)
		}
	case <-ctx.Done():
		t.Fatalf("no round delivered")
	}
}

func TestRunner_SlowSubscriberKeepsLatest(t *testing.T) {
	r, ctx := startRunner(t, RunnerConfig{})
	id, rounds, err := r.Subscribe(ctx, 1)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := r.Advance(ctx); err != nil {
			t.Fatalf("Advance: %v", err)
		}
	}
	res := <-rounds
	if res.Round != 5 {
		t.Fatalf("expected latest round 5, got %d", res.Round)
	}

	r.Unsubscribe(id)
	if _, ok := <-rounds; ok {
		t.Fatalf("expected closed channel after unsubscribe")
	}
}

func TestRunner_Snapshots(t *testing.T) {
	sink := make(chan snapshot.SnapshotV1, 8)
	e, _ := New(Config{ID: "snap", GridSize: 4})
	r := NewRunner(e, RunnerConfig{SnapshotEveryRounds: 2})
	r.SetSnapshotSink(sink)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go r.Run(ctx)
	defer r.Stop()

	for i := 0; i < 4; i++ {
		_, _ = r.Advance(ctx)
	}
	round, err := r.RequestSnapshot(ctx)
	if err != nil || round != 4 {
		t.Fatalf("RequestSnapshot: %d %v", round, err)
	}

	var got []uint64
	for len(sink) > 0 {
		got = append(got, (<-sink).Header.Round)
	}
	if len(got) != 3 || got[0] != 2 || got[1] != 4 || got[2] != 4 {
		t.Fatalf("snapshot rounds: %v", got)
	}
}

func TestRunner_RequestSnapshotWithoutSink(t *testing.T) {
	r, ctx := startRunner(t, RunnerConfig{})
	if _, err := r.RequestSnapshot(ctx); !errors.Is(err, ErrNoSnapshotter) {
		t.Fatalf("expected ErrNoSnapshotter, got %v", err)
	}
}

func TestRunner_StoppedRejectsRequests(t *testing.T) {
	e, _ := New(Config{GridSize: 2})
	r := NewRunner(e, RunnerConfig{})
	r.Stop()
	if _, err := r.Advance(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

type failingRoundLogger struct{}

func (failingRoundLogger) WriteRound(RoundLogEntry) error { return errors.New("disk full") }

func TestRunner_CountsRoundLogErrors(t *testing.T) {
	e, _ := New(Config{ID: "logerr", GridSize: 2})
	r := NewRunner(e, RunnerConfig{})
	r.SetRoundLogger(failingRoundLogger{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go r.Run(ctx)
	defer r.Stop()

	for i := 0; i < 3; i++ {
		if _, err := r.Advance(ctx); err != nil {
			t.Fatalf("Advance: %v", err)
		}
	}
	if m := r.Metrics(); m.RoundLogErrorsTotal != 3 || m.RoundsTotal != 3 {
		t.Fatalf("metrics: %+v", m)
	}
}

func TestRunner_CancelledRunStopsRunner(t *testing.T) {
	e, _ := New(Config{GridSize: 2})
	r := NewRunner(e, RunnerConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	ids := make([]uint64, 0, 4)
	for i := 0; i < 4; i++ {
		id, _, err := r.Subscribe(ctx, 1)
		if err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
		ids = append(ids, id)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run: %v", err)
	}

	// More unsubscribes than the channel buffers must not block.
	finished := make(chan struct{})
	go func() {
		for i := 0; i < 64; i++ {
			r.Unsubscribe(ids[i%len(ids)])
		}
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatalf("Unsubscribe blocked after Run returned")
	}

	if _, err := r.Advance(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}
