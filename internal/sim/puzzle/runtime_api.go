package puzzle

import (
	"context"
	"fmt"
)

// The methods below are safe to call from any goroutine. Each enqueues a
// request for the Run loop and waits for its answer or for ctx.

func (r *Runner) Submit(ctx context.Context, voxels []VoxelUpdate, goals []GoalUpdate) (SubmitResult, error) {
	resp := make(chan SubmitResult, 1)
	if err := send(ctx, r, r.submit, SubmitRequest{Voxels: voxels, Goals: goals, Resp: resp}); err != nil {
		return SubmitResult{}, err
	}
	return recv(ctx, r, resp)
}

func (r *Runner) Advance(ctx context.Context) (RoundResult, error) {
	resp := make(chan RoundResult, 1)
	if err := send(ctx, r, r.advance, AdvanceRequest{Resp: resp}); err != nil {
		return RoundResult{}, err
	}
	return recv(ctx, r, resp)
}

func (r *Runner) Solve(ctx context.Context, kind SolveKind) (SolveResult, error) {
	resp := make(chan SolveResult, 1)
	if err := send(ctx, r, r.solve, SolveRequest{Kind: kind, Resp: resp}); err != nil {
		return SolveResult{}, err
	}
	return recv(ctx, r, resp)
}

func (r *Runner) State(ctx context.Context) (StateView, error) {
	resp := make(chan StateView, 1)
	if err := send(ctx, r, r.read, readReq{Resp: resp}); err != nil {
		return StateView{}, err
	}
	return recv(ctx, r, resp)
}

// RequestSnapshot asks the loop to export a snapshot to the configured sink.
func (r *Runner) RequestSnapshot(ctx context.Context) (round uint64, err error) {
	if r.snapshotSink == nil {
		return 0, ErrNoSnapshotter
	}
	resp := make(chan uint64, 1)
	if err := send(ctx, r, r.snap, snapshotReq{Resp: resp}); err != nil {
		return 0, err
	}
	round, err = recv(ctx, r, resp)
	if err == nil && round == 0 {
		return 0, fmt.Errorf("snapshot sink busy")
	}
	return round, err
}

// Subscribe registers for every future RoundResult. Slow subscribers lose
// the oldest buffered rounds, never the newest.
func (r *Runner) Subscribe(ctx context.Context, buffer int) (uint64, <-chan RoundResult, error) {
	resp := make(chan subscription, 1)
	if err := send(ctx, r, r.subscribe, subscribeReq{Buffer: buffer, Resp: resp}); err != nil {
		return 0, nil, err
	}
	sub, err := recv(ctx, r, resp)
	if err != nil {
		return 0, nil, err
	}
	return sub.ID, sub.Out, nil
}

func (r *Runner) Unsubscribe(id uint64) {
	select {
	case r.unsubscribe <- id:
	case <-r.stop:
	}
}

func send[T any](ctx context.Context, r *Runner, ch chan<- T, v T) error {
	select {
	case ch <- v:
		return nil
	case <-r.stop:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func recv[T any](ctx context.Context, r *Runner, ch <-chan T) (T, error) {
	select {
	case v := <-ch:
		return v, nil
	case <-r.stop:
		var zero T
		return zero, ErrStopped
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
